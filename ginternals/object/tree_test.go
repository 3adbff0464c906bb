package object_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
)

func TestTree(t *testing.T) {
	t.Run("o.AsTree().ToObject() should return the same object", func(t *testing.T) {
		t.Parallel()

		blobID, err := ginternals.NewOidFromStr("0343d67ca3d80a531d0d163f0078a81c95c9085a")
		require.NoError(t, err)

		tree := object.NewTree([]object.TreeEntry{
			{Mode: object.ModeFile, ID: blobID, Path: "blob"},
		})
		o := tree.ToObject()

		roundTripped, err := o.AsTree()
		require.NoError(t, err)

		newO := roundTripped.ToObject()
		require.Equal(t, o.ID(), newO.ID())
		require.Equal(t, o.Bytes(), newO.Bytes())
	})

	t.Run("entries are ordered the way git orders them on disk", func(t *testing.T) {
		t.Parallel()

		blobID, err := ginternals.NewOidFromStr("0343d67ca3d80a531d0d163f0078a81c95c9085a")
		require.NoError(t, err)

		// "foo.go" must sort before the directory "foo", even though a
		// byte-by-byte comparison of "foo.go" and "foo" would put "foo"
		// first: git compares directory names as if they carried a
		// trailing "/".
		tree := object.NewTree([]object.TreeEntry{
			{Mode: object.ModeDirectory, ID: blobID, Path: "foo"},
			{Mode: object.ModeFile, ID: blobID, Path: "foo.go"},
		})

		entries := tree.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "foo.go", entries[0].Path)
		assert.Equal(t, "foo", entries[1].Path)
	})

	t.Run("mode is serialized as git's octal-looking text, not decimal", func(t *testing.T) {
		t.Parallel()

		blobID, err := ginternals.NewOidFromStr("0343d67ca3d80a531d0d163f0078a81c95c9085a")
		require.NoError(t, err)

		tree := object.NewTree([]object.TreeEntry{
			{Mode: object.ModeFile, ID: blobID, Path: "blob"},
		})
		assert.Contains(t, string(tree.ToObject().Bytes()), "100644 blob\x00")
	})

	t.Run("tree id matches real git for a single tracked file", func(t *testing.T) {
		t.Parallel()

		// Known git values for a working directory containing only
		// hello.txt with content "hello world" (11 bytes, no trailing
		// newline): `git hash-object` gives the blob id below, and
		// `git write-tree` gives the tree id below.
		blobID, err := ginternals.NewOidFromStr("95d09f2b10159347eece71399a7e2e907ea3df4f")
		require.NoError(t, err)

		tree := object.NewTree([]object.TreeEntry{
			{Mode: object.ModeFile, ID: blobID, Path: "hello.txt"},
		})

		assert.Equal(t, "e8c3bcec01ac3c2ea41249cdfc8c4493d9c29836", tree.ID().String())

		roundTripped, err := tree.ToObject().AsTree()
		require.NoError(t, err)
		assert.Equal(t, "e8c3bcec01ac3c2ea41249cdfc8c4493d9c29836", roundTripped.ID().String())
	})

	t.Run("Entries should be immutable", func(t *testing.T) {
		t.Parallel()

		blobID, err := ginternals.NewOidFromStr("0343d67ca3d80a531d0d163f0078a81c95c9085a")
		require.NoError(t, err)

		tree := object.NewTree([]object.TreeEntry{
			{
				Mode: object.ModeFile,
				ID:   blobID,
				Path: "blob",
			},
		})

		tree.Entries()[0].ID[0] = 0xe5
		assert.Equal(t, byte(0x03), tree.Entries()[0].ID[0], "should not update entry ID")

		tree.Entries()[0].Path = "nope"
		assert.Equal(t, "blob", tree.Entries()[0].Path, "should not update entry Path")
	})
}

func TestTreeObjectMode(t *testing.T) {
	t.Parallel()

	t.Run("ObjectType()", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			desc     string
			mode     object.TreeObjectMode
			expected object.Type
		}{
			{
				desc:     "unknown object should be blob",
				mode:     0o644,
				expected: object.TypeBlob,
			},
			{
				desc:     "ModeFile should be a blob",
				mode:     object.ModeFile,
				expected: object.TypeBlob,
			},
			{
				desc:     "ModeExecutable should be a blob",
				mode:     object.ModeExecutable,
				expected: object.TypeBlob,
			},
			{
				desc:     "ModeSymLink should be a blob",
				mode:     object.ModeSymLink,
				expected: object.TypeBlob,
			},
			{
				desc:     "ModeDirectory should be a tree",
				mode:     object.ModeDirectory,
				expected: object.TypeTree,
			},
			{
				desc:     "ModeGitLink should be a commit",
				mode:     object.ModeGitLink,
				expected: object.TypeCommit,
			},
		}
		for i, tc := range testCases {
			tc := tc
			i := i
			t.Run(fmt.Sprintf("%d/%s", i, tc.desc), func(t *testing.T) {
				t.Parallel()

				assert.Equal(t, tc.expected, tc.mode.ObjectType())
			})
		}
	})

	t.Run("IsValid()", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			desc    string
			mode    object.TreeObjectMode
			isValid bool
		}{
			{
				desc:    "0o644 should not be valid",
				mode:    0o644,
				isValid: false,
			},
			{
				desc:    "ModeFile should be valid",
				mode:    object.ModeFile,
				isValid: true,
			},
			{
				desc:    "0o100755 should be valid",
				mode:    0o100755,
				isValid: true,
			},
		}
		for i, tc := range testCases {
			tc := tc
			i := i
			t.Run(fmt.Sprintf("%d/%s", i, tc.desc), func(t *testing.T) {
				t.Parallel()

				out := tc.mode.IsValid()
				assert.Equal(t, tc.isValid, out)
			})
		}
	})
}
