// Package fsbackend contains an implementation of the backend.Backend
// interface that stores objects and references as plain files, the
// way `.git` itself is laid out.
package fsbackend

import (
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/vcsforge/govcs/backend"
	"github.com/vcsforge/govcs/ginternals/config"
	"github.com/vcsforge/govcs/internal/cache"
	"github.com/vcsforge/govcs/internal/gitpath"
	"github.com/vcsforge/govcs/internal/syncutil"
)

// we make sure the struct implements the interface
var _ backend.Backend = (*Backend)(nil)

// defaultCacheSize is the number of decoded objects kept in memory
const defaultCacheSize = 256

// defaultLockShards is the number of mutexes the per-oid lock is
// sharded across
const defaultLockShards = 64

// Backend is a Backend implementation that uses the filesystem to
// store data
type Backend struct {
	fs   afero.Fs
	root string
	cfg  *config.Config

	objectMu *syncutil.NamedMutex
	cache    *cache.LRU

	// looseObjects tracks which oids are known to exist as loose
	// objects: those found on disk by Init or WalkLooseObjectIDs, and
	// those written or read through this Backend
	looseObjects sync.Map
}

// New returns a new Backend rooted at the given .git directory
func New(cfg *config.Config) *Backend {
	fs := cfg.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Backend{
		fs:       fs,
		root:     cfg.GitDirPath,
		cfg:      cfg,
		objectMu: syncutil.NewNamedMutex(defaultLockShards),
		cache:    cache.NewLRU(defaultCacheSize),
	}
}

// Close frees the resources held by the backend
func (b *Backend) Close() error {
	return nil
}

// Path returns the path to the .git directory
func (b *Backend) Path() string {
	return b.root
}

// ObjectsPath returns the path to the object directory
func (b *Backend) ObjectsPath() string {
	return b.cfg.ObjectDirPath
}

// Init initializes a repository: creates the directory layout and
// the default configuration
func (b *Backend) Init() error {
	dirs := []string{
		gitpath.ObjectsPath,
		gitpath.RefsTagsPath,
		gitpath.RefsHeadsPath,
		gitpath.ObjectsInfoPath,
		gitpath.ObjectsPackPath,
	}
	for _, d := range dirs {
		if err := b.fs.MkdirAll(b.join(d), 0o750); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	description := []byte("Unnamed repository; edit this file 'description' to name the repository.\n")
	if err := afero.WriteFile(b.fs, b.join(gitpath.DescriptionPath), description, 0o644); err != nil {
		return xerrors.Errorf("could not create description file: %w", err)
	}

	if err := b.setDefaultCfg(); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}

	return b.loadLooseObject()
}

// join joins a path relative to the .git directory
func (b *Backend) join(rel string) string {
	return filepath.Join(b.root, rel)
}
