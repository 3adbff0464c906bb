package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vcsforge/govcs"
)

func newInitCmd(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "create an empty repository",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := workDir(cfg)
		if err != nil {
			return err
		}
		return initCmd(cmd.OutOrStdout(), dir)
	}

	return cmd
}

func initCmd(out io.Writer, dir string) error {
	r, err := govcs.InitRepository(dir, govcs.Options{})
	switch {
	case err == nil:
		defer r.Close() //nolint:errcheck // nothing actionable to do with a close error here
		fmt.Fprintln(out, "Initialized empty repository in", r.GitDirPath())
		return nil

	case errors.Is(err, govcs.ErrRepositoryExists):
		r, err = govcs.OpenRepository(dir, govcs.Options{})
		if err != nil {
			return err
		}
		defer r.Close() //nolint:errcheck // nothing actionable to do with a close error here
		fmt.Fprintln(out, "Reinitialized existing repository in", r.GitDirPath())
		return nil

	default:
		return err
	}
}
