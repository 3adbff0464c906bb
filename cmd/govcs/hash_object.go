package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/vcsforge/govcs"
	"github.com/vcsforge/govcs/ginternals/object"
)

func newHashObjectCmd(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object FILE",
		Short: "compute an object id and optionally store it as a blob",
		Args:  cobra.ExactArgs(1),
	}

	write := cmd.Flags().BoolP("w", "w", false, "Write the object to the repository.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := workDir(cfg)
		if err != nil {
			return err
		}
		return hashObjectCmd(cmd.OutOrStdout(), dir, args[0], *write)
	}

	return cmd
}

func hashObjectCmd(out io.Writer, dir, filePath string, write bool) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return xerrors.Errorf("could not read %s: %w", filePath, err)
	}

	if !write {
		o := object.New(object.TypeBlob, content)
		fmt.Fprintln(out, o.ID().String())
		return nil
	}

	r, err := govcs.OpenRepository(dir, govcs.Options{})
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // nothing actionable to do with a close error here

	o, err := r.NewBlob(content)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, o.ID().String())
	return nil
}
