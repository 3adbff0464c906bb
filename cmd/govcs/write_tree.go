package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vcsforge/govcs"
)

func newWriteTreeCmd(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write-tree",
		Short: "snapshot the working tree and print the resulting tree id",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := workDir(cfg)
		if err != nil {
			return err
		}
		return writeTreeCmd(cmd.OutOrStdout(), dir)
	}

	return cmd
}

func writeTreeCmd(out io.Writer, dir string) error {
	r, err := govcs.OpenRepository(dir, govcs.Options{})
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // nothing actionable to do with a close error here

	treeID, err := r.Snapshot(dir)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, treeID.String())
	return nil
}
