package govcs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
)

// Checkout materializes the tree identified by treeID into dir,
// recreating regular files, executable files, symlinks, and
// subdirectories as described by each entry's mode.
func (r *Repository) Checkout(treeID ginternals.Oid, dir string) error {
	if err := r.wt.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "could not create %s", dir)
	}

	t, err := r.Tree(treeID)
	if err != nil {
		return errors.Wrapf(err, "could not load tree %s", treeID)
	}

	for _, e := range t.Entries() {
		path := filepath.Join(dir, e.Path)
		if err := r.checkoutEntry(e, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) checkoutEntry(e object.TreeEntry, path string) error {
	switch e.Mode {
	case object.ModeDirectory:
		return r.Checkout(e.ID, path)

	case object.ModeSymLink:
		o, err := r.Object(e.ID)
		if err != nil {
			return errors.Wrapf(err, "could not load symlink target for %s", path)
		}
		if sw, ok := r.wt.(afero.Symlinker); ok {
			return sw.SymlinkIfPossible(string(o.Bytes()), path)
		}
		return errors.Errorf("filesystem does not support symlinks: %s", path)

	case object.ModeFile, object.ModeExecutable:
		o, err := r.Object(e.ID)
		if err != nil {
			return errors.Wrapf(err, "could not load blob for %s", path)
		}
		perm := os.FileMode(0o644)
		if e.Mode == object.ModeExecutable {
			perm = 0o755
		}
		return afero.WriteFile(r.wt, path, o.Bytes(), perm)

	default:
		return errors.Errorf("unsupported mode %o for %s", e.Mode, path)
	}
}
