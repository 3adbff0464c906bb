package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vcsforge/govcs"
	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
	"github.com/vcsforge/govcs/internal/env"
)

func newCommitTreeCmd(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-tree TREE",
		Short: "write a commit for an existing tree and print its id",
		Args:  cobra.ExactArgs(1),
	}

	parent := cmd.Flags().StringP("parent", "p", "", "The id of the parent commit, if any.")
	message := cmd.Flags().StringP("message", "m", "", "The commit message.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := workDir(cfg)
		if err != nil {
			return err
		}
		return commitTreeCmd(cmd.OutOrStdout(), dir, args[0], *parent, *message)
	}

	return cmd
}

func commitTreeCmd(out io.Writer, dir, treeName, parentName, message string) error {
	r, err := govcs.OpenRepository(dir, govcs.Options{})
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // nothing actionable to do with a close error here

	treeID, err := resolveObjectName(r, treeName)
	if err != nil {
		return err
	}

	opts := &object.CommitOptions{Message: message}
	if parentName != "" {
		parentID, err := resolveObjectName(r, parentName)
		if err != nil {
			return err
		}
		opts.ParentsID = []ginternals.Oid{parentID}
	}

	c := object.NewCommit(treeID, commitAuthor(), opts)
	if _, err := r.WriteObject(c.ToObject()); err != nil {
		return err
	}

	fmt.Fprintln(out, c.ID().String())
	return nil
}

// commitAuthor builds a commit signature from the standard GIT_AUTHOR_*
// environment variables, falling back to a generic identity when
// they're unset.
func commitAuthor() object.Signature {
	e := env.NewFromOs()
	name := e.Get("GIT_AUTHOR_NAME")
	if name == "" {
		name = "govcs"
	}
	email := e.Get("GIT_AUTHOR_EMAIL")
	if email == "" {
		email = "govcs@localhost"
	}
	return object.Signature{
		Name:  name,
		Email: email,
		Time:  time.Now(),
	}
}
