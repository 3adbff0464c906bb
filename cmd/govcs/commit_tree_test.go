package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitTreeCmd(t *testing.T) {
	// not parallel: t.Setenv cannot be used in a parallel test
	t.Setenv("GIT_AUTHOR_NAME", "Test Author")
	t.Setenv("GIT_AUTHOR_EMAIL", "author@example.com")

	dir := t.TempDir()
	require.NoError(t, initCmd(&bytes.Buffer{}, dir))
	require.NoError(t, os.WriteFile(dir+"/hello.txt", []byte("hello world"), 0o644))

	var treeOut bytes.Buffer
	require.NoError(t, writeTreeCmd(&treeOut, dir))
	treeID := strings.TrimSpace(treeOut.String())

	var commitOut bytes.Buffer
	require.NoError(t, commitTreeCmd(&commitOut, dir, treeID, "", "initial commit\n"))
	commitID := strings.TrimSpace(commitOut.String())
	require.Len(t, commitID, 40)

	var showOut bytes.Buffer
	require.NoError(t, catFileCmd(&showOut, dir, catFileParams{prettyPrint: true, objectName: commitID}))
	assert.Contains(t, showOut.String(), "tree "+treeID)
	assert.Contains(t, showOut.String(), "author Test Author <author@example.com>")
	assert.Contains(t, showOut.String(), "initial commit")

	var secondTreeOut bytes.Buffer
	require.NoError(t, writeTreeCmd(&secondTreeOut, dir))
	secondTreeID := strings.TrimSpace(secondTreeOut.String())

	var childOut bytes.Buffer
	require.NoError(t, commitTreeCmd(&childOut, dir, secondTreeID, commitID, "second commit\n"))

	var showChildOut bytes.Buffer
	require.NoError(t, catFileCmd(&showChildOut, dir, catFileParams{prettyPrint: true, objectName: strings.TrimSpace(childOut.String())}))
	assert.Contains(t, showChildOut.String(), "parent "+commitID)
}
