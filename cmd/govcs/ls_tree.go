package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vcsforge/govcs"
)

func newLsTreeCmd(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree TREE",
		Short: "list the entries of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	nameOnly := cmd.Flags().Bool("name-only", false, "List only the names of the entries, not their mode or id.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := workDir(cfg)
		if err != nil {
			return err
		}
		return lsTreeCmd(cmd.OutOrStdout(), dir, args[0], *nameOnly)
	}

	return cmd
}

func lsTreeCmd(out io.Writer, dir, treeName string, nameOnly bool) error {
	r, err := govcs.OpenRepository(dir, govcs.Options{})
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // nothing actionable to do with a close error here

	oid, err := resolveObjectName(r, treeName)
	if err != nil {
		return err
	}

	t, err := r.Tree(oid)
	if err != nil {
		return err
	}

	for _, e := range t.Entries() {
		if nameOnly {
			fmt.Fprintln(out, e.Path)
			continue
		}
		fmt.Fprintf(out, "%06o %s %s\t%s\n", e.Mode, e.Mode.ObjectType().String(), e.ID.String(), e.Path)
	}
	return nil
}
