package govcs_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcsforge/govcs"
	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
	"github.com/vcsforge/govcs/transport"
)

func packObjectHeader(typ object.Type, size int) []byte {
	var out []byte
	first := byte(typ)<<4 | byte(size&0x0f)
	size >>= 4
	if size > 0 {
		first |= 0x80
	}
	out = append(out, first)
	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func zlibCompressFor(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func buildTestPack(t *testing.T, objs []*object.Object) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("PACK")
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(2)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(objs))))
	for _, o := range objs {
		buf.Write(packObjectHeader(o.Type(), len(o.Bytes())))
		buf.Write(zlibCompressFor(t, o.Bytes()))
	}
	buf.Write(make([]byte, ginternals.OidSize))
	return buf.Bytes()
}

// realGitTree builds a tree object byte-for-byte the way real git
// writes one on the wire ("{octal_mode} {path}\0{raw_sha}" per entry),
// independent of this module's own Tree serializer, so a regression in
// that serializer (e.g. emitting mode text in the wrong base) can't
// silently pass by round-tripping against itself.
func realGitTree(entries ...object.TreeEntry) *object.Object {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%o %s", e.Mode, e.Path)
		buf.WriteByte(0)
		buf.Write(e.ID.Bytes())
	}
	return object.New(object.TypeTree, buf.Bytes())
}

// TestClone exercises the full S6-style clone path against a fake
// smart HTTP v2 server: ls-refs advertises HEAD and master pointing at
// a commit, fetch returns a pack with that commit, its root tree, and
// one blob, and the clone materializes README.md in the destination.
func TestClone(t *testing.T) {
	t.Parallel()

	blob := object.New(object.TypeBlob, []byte("hello from the remote\n"))
	tree := realGitTree(object.TreeEntry{Path: "README.md", ID: blob.ID(), Mode: object.ModeFile})
	commit := object.NewCommit(tree.ID(), object.Signature{Name: "Remote", Email: "remote@example.com"}, &object.CommitOptions{
		Message: "initial commit\n",
	})

	pack := buildTestPack(t, []*object.Object{commit.ToObject(), tree, blob})

	masterRef := ginternals.LocalBranchFullName(ginternals.Master)

	mux := http.NewServeMux()
	mux.HandleFunc("/git-upload-pack", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if bytes.Contains(body, []byte("command=ls-refs")) {
			var resp bytes.Buffer
			resp.Write(transport.EncodeLine([]byte(fmt.Sprintf("%s HEAD\n", commit.ID().String()))))
			resp.Write(transport.EncodeLine([]byte(fmt.Sprintf("%s %s\n", commit.ID().String(), masterRef))))
			resp.Write(transport.EncodeFlush())
			_, _ = w.Write(resp.Bytes())
			return
		}

		var resp bytes.Buffer
		resp.Write(transport.EncodeLine([]byte("packfile\n")))
		sideband := append([]byte{1}, pack...)
		resp.Write(transport.EncodeLine(sideband))
		resp.Write(transport.EncodeFlush())
		_, _ = w.Write(resp.Bytes())
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	r, err := govcs.Clone(srv.URL, dir)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })

	head, err := r.Reference(masterRef)
	require.NoError(t, err)
	assert.Equal(t, commit.ID(), head.Target())

	data, err := os.ReadFile(dir + "/README.md")
	require.NoError(t, err)
	assert.Equal(t, "hello from the remote\n", string(data))
}
