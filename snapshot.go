package govcs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
)

// ErrUnsupportedEntry is returned when the working tree contains an
// entry that isn't a regular file, a symlink, or a directory (a socket,
// device, or FIFO).
var ErrUnsupportedEntry = errors.New("unsupported directory entry")

// Snapshot walks dir recursively (skipping a top-level ".git" entry),
// storing every regular file as a blob and every directory as a tree,
// and returns the id of the tree representing dir itself.
//
// Executable files are stored as mode 100755 and symlinks as 120000;
// every other regular file is 100644. Empty directories contribute no
// entry to their parent tree.
func (r *Repository) Snapshot(dir string) (ginternals.Oid, error) {
	t, err := r.snapshotDir(dir, true)
	if err != nil {
		return ginternals.NullOid, err
	}
	return t.ID(), nil
}

func (r *Repository) snapshotDir(dir string, isRoot bool) (*object.Tree, error) {
	infos, err := afero.ReadDir(r.wt, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not list %s", dir)
	}

	entries := make([]object.TreeEntry, 0, len(infos))
	for _, info := range infos {
		if isRoot && info.Name() == ".git" {
			continue
		}

		full := filepath.Join(dir, info.Name())
		entry, ok, err := r.snapshotEntry(full, info)
		if err != nil {
			return nil, err
		}
		if ok {
			entry.Path = info.Name()
			entries = append(entries, entry)
		}
	}

	t := object.NewTree(entries)
	if _, err := r.WriteObject(t.ToObject()); err != nil {
		return nil, errors.Wrapf(err, "could not store tree for %s", dir)
	}
	return t, nil
}

// snapshotEntry stores a single directory entry and returns its tree
// entry. ok is false for an empty subdirectory, which contributes
// nothing to its parent.
func (r *Repository) snapshotEntry(path string, info os.FileInfo) (entry object.TreeEntry, ok bool, err error) {
	if info.IsDir() {
		sub, err := r.snapshotDir(path, false)
		if err != nil {
			return object.TreeEntry{}, false, err
		}
		if len(sub.Entries()) == 0 {
			return object.TreeEntry{}, false, nil
		}
		return object.TreeEntry{ID: sub.ID(), Mode: object.ModeDirectory}, true, nil
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		target, err := readLink(r.wt, path)
		if err != nil {
			return object.TreeEntry{}, false, errors.Wrapf(err, "could not read symlink %s", path)
		}
		o, err := r.NewBlob([]byte(target))
		if err != nil {
			return object.TreeEntry{}, false, err
		}
		return object.TreeEntry{ID: o.ID(), Mode: object.ModeSymLink}, true, nil

	case mode.IsRegular():
		data, err := afero.ReadFile(r.wt, path)
		if err != nil {
			return object.TreeEntry{}, false, errors.Wrapf(err, "could not read %s", path)
		}
		o, err := r.NewBlob(data)
		if err != nil {
			return object.TreeEntry{}, false, err
		}
		fileMode := object.ModeFile
		if mode&0o100 != 0 {
			fileMode = object.ModeExecutable
		}
		return object.TreeEntry{ID: o.ID(), Mode: fileMode}, true, nil

	default:
		return object.TreeEntry{}, false, errors.Wrapf(ErrUnsupportedEntry, "%s", path)
	}
}

// readLink resolves a symlink's target through the afero filesystem,
// falling back to os.Readlink when the filesystem doesn't implement
// afero.LinkReader (e.g. an in-memory fs used in tests, which never
// reports ModeSymlink entries in the first place).
func readLink(fs afero.Fs, path string) (string, error) {
	if lr, ok := fs.(afero.LinkReader); ok {
		return lr.ReadlinkIfPossible(path)
	}
	return os.Readlink(path)
}
