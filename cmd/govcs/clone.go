package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vcsforge/govcs"
)

func newCloneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone URL DIR",
		Short: "initialize DIR and fetch every object and ref from a smart HTTP v2 remote",
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cloneCmd(cmd.OutOrStdout(), args[0], args[1])
	}

	return cmd
}

func cloneCmd(out io.Writer, url, dir string) error {
	r, err := govcs.Clone(url, dir)
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // nothing actionable to do with a close error here

	fmt.Fprintln(out, "Cloned into", dir)
	return nil
}
