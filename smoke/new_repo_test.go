package smoke_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcsforge/govcs"
	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
)

func TestWorkingOnNewRepo(t *testing.T) {
	t.Parallel()

	d := t.TempDir()

	// Create a new repo
	r, err := govcs.InitRepository(d, govcs.Options{})
	require.NoError(t, err, "failed creating a repo")
	t.Cleanup(func() {
		require.NoError(t, r.Close(), "failed closing repo")
	})

	// Add new files to the repo
	tb := r.NewTreeBuilder()

	readme, err := r.NewBlob([]byte("Hello Wrld\n"))
	require.NoError(t, err, "failed creating readme")
	err = tb.Insert("README.md", readme.ID(), object.ModeFile)
	require.NoError(t, err, "failed adding readme to tree")

	rootTree, err := tb.Write()
	require.NoError(t, err, "failed creating root tree")

	// Create the first commit in the main branch
	mainBranchName := ginternals.LocalBranchFullName(ginternals.Main)
	initialCommit, err := r.NewCommit(
		mainBranchName,
		rootTree.ID(),
		object.NewSignature("John Doe", "john@domain.tld"),
		&object.CommitOptions{
			Message: "Initial commit",
		})
	require.NoError(t, err, "failed creating the initial commit")

	// Oops, we have a typo in our Readme. Let's fix it by creating a new
	// commit in another branch and merging them.

	tb = r.NewTreeBuilderFromTree(rootTree)

	readme, err = r.NewBlob([]byte("Hello World\n"))
	require.NoError(t, err, "failed creating 2nd version of readme")
	err = tb.Insert("README.md", readme.ID(), object.ModeFile)
	require.NoError(t, err, "failed updating readme in tree")

	newTree, err := tb.Write()
	require.NoError(t, err, "failed creating new tree")

	fixBranchName := ginternals.LocalBranchFullName("docs/fix-typo-in-readme")
	fixCommit, err := r.NewCommit(
		fixBranchName,
		newTree.ID(),
		object.NewSignature("John Doe", "john@domain.tld"),
		&object.CommitOptions{
			Message:   "docs(readme): Fix typo",
			ParentsID: []ginternals.Oid{initialCommit.ID()},
		})
	require.NoError(t, err, "failed creating the commit with the fix")

	// Alright, time to merge this new branch into the default one!

	mergeCommit, err := r.NewCommit(
		mainBranchName,
		newTree.ID(),
		object.NewSignature("John Doe", "john@domain.tld"),
		&object.CommitOptions{
			Message:   "merge branch docs/fix-typo-in-readme into main",
			ParentsID: []ginternals.Oid{initialCommit.ID(), fixCommit.ID()},
		})
	require.NoError(t, err, "failed creating the merge commit")

	// Make sure the merge worked
	mainBranch, err := r.Reference(mainBranchName)
	require.NoError(t, err, "couldn't get the main branch")
	require.Equal(t, mergeCommit.ID(), mainBranch.Target(), "the merge didn't work")
}
