// Package govcs ties the object store, tree model, and pack decoder
// together into a working repository: init/open a .git directory,
// snapshot a working tree, write commits, and clone from a smart HTTP
// v2 remote.
package govcs

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/vcsforge/govcs/backend"
	"github.com/vcsforge/govcs/backend/fsbackend"
	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/config"
	"github.com/vcsforge/govcs/ginternals/object"
	"github.com/vcsforge/govcs/internal/env"
	"github.com/vcsforge/govcs/internal/gitpath"
)

// Errors returned by Repository's lifecycle methods.
var (
	ErrRepositoryNotExist = errors.New("repository does not exist")
	ErrRepositoryExists   = errors.New("repository already exists")
)

// Repository represents a git repository: a .git directory (the
// object/ref store) plus, unless bare, a working tree.
type Repository struct {
	cfg  *config.Config
	odb  backend.Backend
	wt   afero.Fs
	bare bool
}

// Options controls how a repository is initialized or opened.
type Options struct {
	// IsBare states whether the repository has no working tree.
	IsBare bool
	// FS is the filesystem to use for both the .git directory and the
	// working tree. Defaults to the real filesystem; tests pass
	// afero.NewMemMapFs().
	FS afero.Fs
}

// InitRepository creates a new repository rooted at path, writing a
// fresh .git directory (or, if opts.IsBare, using path itself as the
// git directory) with HEAD pointing at refs/heads/main.
func InitRepository(path string, opts Options) (*Repository, error) {
	gitDir := path
	if !opts.IsBare {
		gitDir = filepath.Join(path, gitpath.DotGitPath)
	}
	cfg, err := config.LoadConfig(env.NewFromOs(), config.LoadConfigOptions{
		WorkingDirectory: path,
		GitDirPath:       gitDir,
		WorkTreePath:     path,
		IsBare:           opts.IsBare,
		SkipGitDirLookUp: true,
		FS:               opts.FS,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve repository config")
	}

	r := &Repository{
		cfg:  cfg,
		odb:  fsbackend.New(cfg),
		wt:   workingTreeFS(cfg, opts),
		bare: opts.IsBare,
	}

	if err := r.odb.Init(); err != nil {
		return nil, errors.Wrap(err, "could not initialize the object store")
	}

	head := ginternals.NewSymbolicReference(ginternals.Head, ginternals.LocalBranchFullName(ginternals.Main))
	if err := r.odb.WriteReferenceSafe(head); err != nil {
		if errors.Is(err, ginternals.ErrRefExists) {
			return nil, ErrRepositoryExists
		}
		return nil, errors.Wrap(err, "could not write HEAD")
	}

	return r, nil
}

// OpenRepository loads an existing repository rooted at path.
func OpenRepository(path string, opts Options) (*Repository, error) {
	gitDir := path
	if !opts.IsBare {
		gitDir = filepath.Join(path, gitpath.DotGitPath)
	}
	cfg, err := config.LoadConfig(env.NewFromOs(), config.LoadConfigOptions{
		WorkingDirectory: path,
		GitDirPath:       gitDir,
		WorkTreePath:     path,
		IsBare:           opts.IsBare,
		FS:               opts.FS,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve repository config")
	}

	r := &Repository{
		cfg:  cfg,
		odb:  fsbackend.New(cfg),
		wt:   workingTreeFS(cfg, opts),
		bare: opts.IsBare,
	}

	// HEAD should always exist in a valid repository; use its presence
	// to distinguish "not a repository" from any other error. The file
	// is checked rather than resolved: in a fresh repository HEAD names
	// a branch that has no commit yet.
	if _, err := cfg.FS.Stat(filepath.Join(cfg.GitDirPath, gitpath.HEADPath)); err != nil {
		return nil, ErrRepositoryNotExist
	}

	return r, nil
}

func workingTreeFS(cfg *config.Config, opts Options) afero.Fs {
	if opts.IsBare {
		return nil
	}
	if opts.FS != nil {
		return opts.FS
	}
	if cfg.FS != nil {
		return cfg.FS
	}
	return afero.NewOsFs()
}

// IsBare returns whether the repository has no working tree.
func (r *Repository) IsBare() bool {
	return r.bare
}

// Close releases any resource held by the repository's backend.
func (r *Repository) Close() error {
	return r.odb.Close()
}

// GitDirPath returns the path to the repository's .git directory.
func (r *Repository) GitDirPath() string {
	return r.cfg.GitDirPath
}

// Object returns the object identified by oid.
func (r *Repository) Object(oid ginternals.Oid) (*object.Object, error) {
	return r.odb.Object(oid)
}

// WriteObject persists o in the object store and returns its id.
func (r *Repository) WriteObject(o *object.Object) (ginternals.Oid, error) {
	return r.odb.WriteObject(o)
}

// NewBlob stores data as a blob and returns the resulting object.
func (r *Repository) NewBlob(data []byte) (*object.Object, error) {
	o := object.New(object.TypeBlob, data)
	if _, err := r.odb.WriteObject(o); err != nil {
		return nil, errors.Wrap(err, "could not store blob")
	}
	return o, nil
}

// Reference returns the reference named name.
func (r *Repository) Reference(name string) (*ginternals.Reference, error) {
	return r.odb.Reference(name)
}

// WriteReference writes ref, overwriting any existing reference with
// the same name.
func (r *Repository) WriteReference(ref *ginternals.Reference) error {
	return r.odb.WriteReference(ref)
}

// Commit returns the commit identified by oid.
func (r *Repository) Commit(oid ginternals.Oid) (*object.Commit, error) {
	o, err := r.odb.Object(oid)
	if err != nil {
		return nil, err
	}
	return o.AsCommit()
}

// Tree returns the tree identified by oid.
func (r *Repository) Tree(oid ginternals.Oid) (*object.Tree, error) {
	o, err := r.odb.Object(oid)
	if err != nil {
		return nil, err
	}
	return o.AsTree()
}

// NewCommit builds a commit on top of treeID, persists it, updates
// refName to point at it, and returns the resulting commit.
func (r *Repository) NewCommit(refName string, treeID ginternals.Oid, author object.Signature, opts *object.CommitOptions) (*object.Commit, error) {
	c := object.NewCommit(treeID, author, opts)
	if _, err := r.odb.WriteObject(c.ToObject()); err != nil {
		return nil, errors.Wrap(err, "could not store commit")
	}

	ref := ginternals.NewReference(refName, c.ID())
	if err := r.odb.WriteReference(ref); err != nil {
		return nil, errors.Wrap(err, "could not update reference")
	}
	return c, nil
}
