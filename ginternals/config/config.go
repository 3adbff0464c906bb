// Package config contains structs to interact with git configuration
// as well as to configure the library
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/vcsforge/govcs/internal/env"
	"github.com/vcsforge/govcs/internal/gitpath"
)

// ErrNoWorkTreeAlone is thrown when a work tree path is given without
// a git path
var ErrNoWorkTreeAlone = xerrors.New("cannot specify a work tree without also specifying a git dir")

// Config represents the config of a repository, populated from the
// environment and the options passed at load time.
// https://git-scm.com/book/en/v2/Git-Internals-Environment-Variables
//
// If you decide to create a Config by yourself, make sure to set correct
// values everywhere
type Config struct {
	// FS represents the file system implementation to use to look for
	// files and directories.
	// Defaults to the regular filesystem.
	FS afero.Fs

	// GitDirPath represents the path to the .git directory
	// Maps to $GIT_DIR if set
	// Defaults to finding a ".git" folder in the current directory,
	// going up in the tree until reaching /
	GitDirPath string
	// WorkTreePath represents the path containing the working copy
	// Maps to $GIT_WORK_TREE
	// Defaults to $(current-dir) if GitDirPath was set, otherwise to the
	// directory that contains the .git directory found by the lookup
	// ($(current-dir) if none was found). Left empty for a bare repo.
	WorkTreePath string
	// ObjectDirPath represents the path to the .git/objects directory
	// Maps to $GIT_OBJECT_DIRECTORY
	// Defaults to $(GitDirPath)/objects
	ObjectDirPath string
	// LocalConfig represents the path to the repository's config file
	// Maps to $GIT_CONFIG
	// Defaults to $(GitDirPath)/config if not set
	LocalConfig string
	// IsBare states whether the repository has no working tree
	IsBare bool
}

// LoadConfigOptions represents all the params used to set the default
// values of a Config object
type LoadConfigOptions struct {
	// FS represents the file system implementation to use to look for
	// files and directories.
	// Defaults to the regular filesystem.
	FS afero.Fs
	// WorkingDirectory represents the current working directory
	// Defaults to the current working directory
	WorkingDirectory string
	// WorkTreePath corresponds to the directory that should contain the .git.
	// Set this value to change the default behavior and overwrite
	// $GIT_WORK_TREE.
	WorkTreePath string
	// GitDirPath corresponds to the .git directory
	// Set this value to change the default behavior and overwrite
	// $GIT_DIR.
	GitDirPath string
	// IsBare defines if the repo is bare, meaning it has no work tree
	IsBare bool
	// SkipGitDirLookUp will disable automatic lookup of the .git directory.
	// Defaults to false which means that if no path is provided
	// to $GitDirPath or $GIT_DIR, the method will look for a .git dir in
	// $WorkingDirectory and will go up the tree until it finds one.
	//
	// You should only set this value to true if you want to initialize a
	// new repository.
	SkipGitDirLookUp bool
}

// LoadConfig returns a new Config that fetches the data from the env.
// This is what you want to use to give your users some control over
// the repository location. If you want something more direct without
// control, use LoadConfigSkipEnv()
func LoadConfig(e *env.Env, p LoadConfigOptions) (*Config, error) {
	opts := &Config{
		GitDirPath:    e.Get("GIT_DIR"),
		WorkTreePath:  e.Get("GIT_WORK_TREE"),
		ObjectDirPath: e.Get("GIT_OBJECT_DIRECTORY"),
		LocalConfig:   e.Get("GIT_CONFIG"),
		IsBare:        p.IsBare,
	}

	if err := setConfig(opts, p); err != nil {
		return nil, err
	}
	return opts, nil
}

// LoadConfigSkipEnv returns a new Config that skips the env
// and uses the default values
func LoadConfigSkipEnv(opts LoadConfigOptions) (*Config, error) {
	return LoadConfig(env.NewFromKVList([]string{}), opts)
}

func setConfig(p *Config, opts LoadConfigOptions) (err error) {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	p.FS = opts.FS

	wd := opts.WorkingDirectory
	if wd == "" {
		wd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get the current directory: %w", err)
		}
	}
	if !filepath.IsAbs(wd) {
		abs, aerr := filepath.Abs(wd)
		if aerr != nil {
			return fmt.Errorf("could not resolve working directory: %w", aerr)
		}
		wd = abs
	}
	opts.WorkingDirectory = wd

	// $GIT_WORK_TREE and --work-tree cannot be set if $GIT_DIR or
	// --git-dir isn't set. core.worktree isn't affected
	if opts.GitDirPath == "" && p.GitDirPath == "" && (opts.WorkTreePath != "" || p.WorkTreePath != "") {
		return ErrNoWorkTreeAlone
	}

	// GitDir rules:
	// - p.GitDirPath contains either nothing or $GIT_DIR
	// - opts.GitDirPath contains either nothing or a value used to override
	//   p.GitDirPath.
	// - If nothing set, a .git directory will be looked for by walking up
	//   the current directory.
	// - If relative, the path will be appended to the current working
	//   directory.
	if opts.GitDirPath != "" {
		p.GitDirPath = opts.GitDirPath
	}
	guessedWorkingTree := opts.WorkingDirectory
	switch p.GitDirPath {
	default:
		if !filepath.IsAbs(p.GitDirPath) {
			p.GitDirPath = filepath.Join(opts.WorkingDirectory, p.GitDirPath)
		}
	case "":
		if !opts.SkipGitDirLookUp {
			found, ferr := workingTreeFromPath(opts.FS, opts.WorkingDirectory)
			if ferr == nil {
				guessedWorkingTree = found
			}
		}
		p.GitDirPath = filepath.Join(guessedWorkingTree, gitpath.DotGitPath)
	}

	// LocalConfig rules:
	// - p.LocalConfig contains either nothing or a path to the .git/config
	// - Fallback to $(GitDirPath)/config
	//
	// If relative, the path will be appended to the current working
	// directory.
	if p.LocalConfig == "" {
		p.LocalConfig = filepath.Join(p.GitDirPath, gitpath.ConfigPath)
	}
	if !filepath.IsAbs(p.LocalConfig) {
		p.LocalConfig = filepath.Join(opts.WorkingDirectory, p.LocalConfig)
	}

	// ObjectDirPath rules:
	// - p.ObjectDirPath contains either nothing or a path to .git/objects
	// - Fallback to $(GitDirPath)/objects
	//
	// If relative, the path will be appended to the current working
	// directory.
	if p.ObjectDirPath == "" {
		p.ObjectDirPath = filepath.Join(p.GitDirPath, gitpath.ObjectsPath)
	}
	if !filepath.IsAbs(p.ObjectDirPath) {
		p.ObjectDirPath = filepath.Join(opts.WorkingDirectory, p.ObjectDirPath)
	}

	// Worktree rules:
	//
	// - p.WorkTreePath contains either nothing or $GIT_WORK_TREE.
	// - opts.WorkTreePath contains either nothing or a path to the
	//   working tree. It overrides p.WorkTreePath
	// - guessedWorkingTree contains either nothing or the path containing
	//   the .git directory. It's used as fallback.
	// - Fallback on the current working directory
	//
	// If any path are relative, they will be relative to the current
	// working directory
	if opts.WorkTreePath != "" {
		p.WorkTreePath = opts.WorkTreePath
	}
	// a bare repo has no working tree unless one is explicitly provided
	if p.WorkTreePath == "" && !opts.IsBare {
		p.WorkTreePath = guessedWorkingTree
	}
	if p.WorkTreePath != "" && !filepath.IsAbs(p.WorkTreePath) {
		p.WorkTreePath = filepath.Join(opts.WorkingDirectory, p.WorkTreePath)
	}

	return nil
}

// workingTreeFromPath walks up from dir looking for a .git directory,
// returning the first parent (or dir itself) that contains one.
func workingTreeFromPath(fs afero.Fs, dir string) (string, error) {
	prev := ""
	for dir != prev {
		info, err := fs.Stat(filepath.Join(dir, gitpath.DotGitPath))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		prev = dir
		dir = filepath.Dir(dir)
	}
	return "", xerrors.New("not a git repository (or any of the parent directories)")
}
