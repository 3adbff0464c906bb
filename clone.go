package govcs

import (
	"github.com/pkg/errors"

	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/packfile"
	"github.com/vcsforge/govcs/transport"
)

// Clone initializes a new repository at dir, fetches every ref and
// object advertised by a smart HTTP v2 remote at url, and materializes
// the working tree at HEAD.
func Clone(url, dir string) (*Repository, error) {
	r, err := InitRepository(dir, Options{})
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize destination repository")
	}

	client := transport.NewClient(url)

	refs, err := client.LsRefs()
	if err != nil {
		return nil, errors.Wrap(err, "could not list remote refs")
	}

	wants := distinctIDs(refs)
	pack, err := client.Fetch(wants)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch remote objects")
	}

	if _, err := packfile.Decode(pack, r.odb); err != nil {
		return nil, errors.Wrap(err, "could not decode pack")
	}

	for name, hexID := range refs {
		oid, err := ginternals.NewOidFromStr(hexID)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid id %q for ref %s", hexID, name)
		}
		if err := r.WriteReference(ginternals.NewReference(name, oid)); err != nil {
			return nil, errors.Wrapf(err, "could not write ref %s", name)
		}
	}

	head, ok := refs[ginternals.Head]
	if !ok {
		return r, nil
	}
	headID, err := ginternals.NewOidFromStr(head)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid HEAD id %q", head)
	}

	commit, err := r.Commit(headID)
	if err != nil {
		return nil, errors.Wrap(err, "could not load HEAD commit")
	}
	if err := r.Checkout(commit.TreeID(), dir); err != nil {
		return nil, errors.Wrap(err, "could not materialize working tree")
	}

	return r, nil
}

// distinctIDs returns the unique hex object ids named by refs.
func distinctIDs(refs map[string]string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, id := range refs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
