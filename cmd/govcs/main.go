package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootConfig holds the flags shared by every subcommand.
type rootConfig struct {
	// C is the directory to run as if govcs had been started from,
	// equivalent to git's own -C flag. Empty means the current
	// working directory.
	C string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "govcs",
		Short:         "a content-addressable version control store",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cfg := &rootConfig{}
	cmd.PersistentFlags().StringVarP(&cfg.C, "C", "C", "", "Run as if govcs was started in the provided path instead of the current working directory.")

	// porcelain
	cmd.AddCommand(newInitCmd(cfg))
	cmd.AddCommand(newWriteTreeCmd(cfg))
	cmd.AddCommand(newCommitTreeCmd(cfg))
	cmd.AddCommand(newCloneCmd())

	// plumbing
	cmd.AddCommand(newCatFileCmd(cfg))
	cmd.AddCommand(newHashObjectCmd(cfg))
	cmd.AddCommand(newLsTreeCmd(cfg))

	return cmd
}

// workDir returns the directory a command should operate in: cfg.C if
// set, otherwise the process's current working directory.
func workDir(cfg *rootConfig) (string, error) {
	if cfg.C != "" {
		return cfg.C, nil
	}
	return os.Getwd()
}
