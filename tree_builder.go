package govcs

import (
	"github.com/pkg/errors"

	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
)

// ErrInvalidMode is returned when a TreeBuilder entry is given a mode
// outside object.TreeObjectMode's supported set.
var ErrInvalidMode = errors.New("invalid tree entry mode")

// TreeBuilder accumulates a flat set of path/oid/mode entries and
// writes them out as a single tree object. It does not build a
// directory hierarchy of nested tree objects: every path is a direct
// entry of the tree it produces, matching the flat layout spec.md's
// tree model describes.
type TreeBuilder struct {
	repo    *Repository
	entries map[string]object.TreeEntry
}

// NewTreeBuilder returns an empty TreeBuilder.
func (r *Repository) NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{
		repo:    r,
		entries: map[string]object.TreeEntry{},
	}
}

// NewTreeBuilderFromTree returns a TreeBuilder seeded with t's entries.
func (r *Repository) NewTreeBuilderFromTree(t *object.Tree) *TreeBuilder {
	tb := r.NewTreeBuilder()
	for _, e := range t.Entries() {
		tb.entries[e.Path] = e
	}
	return tb
}

// Insert adds or replaces the entry at path. The referenced object must
// already exist in the repository and must match the kind the mode
// implies (a tree for ModeDirectory, a blob otherwise).
func (tb *TreeBuilder) Insert(path string, oid ginternals.Oid, mode object.TreeObjectMode) error {
	if !mode.IsValid() {
		return errors.Wrapf(ErrInvalidMode, "mode %o", mode)
	}

	o, err := tb.repo.Object(oid)
	if err != nil {
		return errors.Wrapf(err, "could not find object %s", oid)
	}
	if o.Type() != mode.ObjectType() {
		return errors.Errorf("object %s is a %s, not a %s", oid, o.Type(), mode.ObjectType())
	}

	tb.entries[path] = object.TreeEntry{
		Path: path,
		ID:   oid,
		Mode: mode,
	}
	return nil
}

// Remove deletes the entry at path, if any.
func (tb *TreeBuilder) Remove(path string) {
	delete(tb.entries, path)
}

// Write persists the accumulated entries as a tree object and returns
// it. Canonical ordering is handled by object.NewTree itself, so
// entries don't need to be pre-sorted here.
func (tb *TreeBuilder) Write() (*object.Tree, error) {
	entries := make([]object.TreeEntry, 0, len(tb.entries))
	for _, e := range tb.entries {
		entries = append(entries, e)
	}

	t := object.NewTree(entries)
	if _, err := tb.repo.WriteObject(t.ToObject()); err != nil {
		return nil, errors.Wrap(err, "could not store tree")
	}
	return t, nil
}
