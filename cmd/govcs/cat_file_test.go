package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashObjectAndCatFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, initCmd(&bytes.Buffer{}, dir))

	filePath := dir + "/hello.txt"
	require.NoError(t, os.WriteFile(filePath, []byte("hello world"), 0o644))

	var hashOut bytes.Buffer
	require.NoError(t, hashObjectCmd(&hashOut, dir, filePath, true))
	id := hashOut.String()[:40]
	assert.Equal(t, "95d09f2b10159347eece71399a7e2e907ea3df4f", id)

	var catOut bytes.Buffer
	require.NoError(t, catFileCmd(&catOut, dir, catFileParams{prettyPrint: true, objectName: id}))
	assert.Equal(t, "hello world", catOut.String())
}

func TestCatFile_typeAndSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, initCmd(&bytes.Buffer{}, dir))

	filePath := dir + "/hello.txt"
	require.NoError(t, os.WriteFile(filePath, []byte("hello world"), 0o644))

	var hashOut bytes.Buffer
	require.NoError(t, hashObjectCmd(&hashOut, dir, filePath, true))
	id := hashOut.String()[:40]

	var typeOut bytes.Buffer
	require.NoError(t, catFileCmd(&typeOut, dir, catFileParams{typeOnly: true, objectName: id}))
	assert.Equal(t, "blob\n", typeOut.String())

	var sizeOut bytes.Buffer
	require.NoError(t, catFileCmd(&sizeOut, dir, catFileParams{sizeOnly: true, objectName: id}))
	assert.Equal(t, "11\n", sizeOut.String())
}
