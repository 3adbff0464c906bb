package packfile_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
	"github.com/vcsforge/govcs/ginternals/packfile"
)

// fakeStore is a minimal in-memory packfile.Store used to exercise
// the decoder without a real on-disk odb.
type fakeStore struct {
	objects map[ginternals.Oid]*object.Object
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[ginternals.Oid]*object.Object{}}
}

func (s *fakeStore) Object(id ginternals.Oid) (*object.Object, error) {
	o, ok := s.objects[id]
	if !ok {
		return nil, ginternals.ErrObjectNotFound
	}
	return o, nil
}

func (s *fakeStore) WriteObject(o *object.Object) (ginternals.Oid, error) {
	s.objects[o.ID()] = o
	return o.ID(), nil
}

// packObjectHeader encodes the variable-length (type, size) preamble
// the same way a real pack does: first byte carries 4 size bits and
// the 3-bit type, continuation bytes carry 7 size bits each.
func packObjectHeader(typeCode int, size int) []byte {
	var out []byte
	first := byte(typeCode<<4) | byte(size&0x0f)
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

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// deltaVarint encodes a size using the pure LEB128 convention used
// for a delta's source/target sizes.
func deltaVarint(size int) []byte {
	var out []byte
	for {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if size == 0 {
			break
		}
	}
	return out
}

func buildPack(t *testing.T, objects [][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("PACK")
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(2)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(objects))))
	for _, o := range objects {
		buf.Write(o)
	}
	// 20 trailing checksum bytes; content doesn't matter, the decoder
	// never looks at them.
	buf.Write(make([]byte, ginternals.OidSize))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("decodes a single blob", func(t *testing.T) {
		t.Parallel()

		content := []byte("hello world")
		header := packObjectHeader(int(object.TypeBlob), len(content))
		payload := zlibCompress(t, content)

		pack := buildPack(t, [][]byte{append(header, payload...)})
		store := newFakeStore()

		ids, err := packfile.Decode(pack, store)
		require.NoError(t, err)
		require.Len(t, ids, 1)

		o, err := store.Object(ids[0])
		require.NoError(t, err)
		assert.Equal(t, object.TypeBlob, o.Type())
		assert.Equal(t, content, o.Bytes())
	})

	t.Run("resolves a ref-delta against a base earlier in the pack", func(t *testing.T) {
		t.Parallel()

		base := []byte("the quick brown fox jumps over the lazy dog")
		baseHeader := packObjectHeader(int(object.TypeBlob), len(base))
		basePayload := zlibCompress(t, base)
		baseObj := append(baseHeader, basePayload...)

		baseID := object.New(object.TypeBlob, base).ID()

		// delta: source size, target size, then a single copy opcode
		// covering the whole base (offset 0, length len(base)).
		var delta bytes.Buffer
		delta.Write(deltaVarint(len(base)))
		delta.Write(deltaVarint(len(base)))
		delta.WriteByte(0x80 | 0x10) // copy, length byte 0 present, no offset bytes
		delta.WriteByte(byte(len(base)))

		deltaHeader := packObjectHeader(int(object.ObjectDeltaRef), delta.Len())
		deltaPayload := zlibCompress(t, delta.Bytes())
		var deltaObj bytes.Buffer
		deltaObj.Write(deltaHeader)
		deltaObj.Write(baseID.Bytes())
		deltaObj.Write(deltaPayload)

		pack := buildPack(t, [][]byte{baseObj, deltaObj.Bytes()})
		store := newFakeStore()

		ids, err := packfile.Decode(pack, store)
		require.NoError(t, err)
		require.Len(t, ids, 2)

		resolved, err := store.Object(ids[1])
		require.NoError(t, err)
		assert.Equal(t, object.TypeBlob, resolved.Type())
		assert.Equal(t, base, resolved.Bytes())
	})

	t.Run("fails on a bad magic", func(t *testing.T) {
		t.Parallel()

		pack := buildPack(t, nil)
		copy(pack[0:4], "NOPE")

		_, err := packfile.Decode(pack, newFakeStore())
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, packfile.ErrBadPack))
	})

	t.Run("fails on an unsupported version", func(t *testing.T) {
		t.Parallel()

		pack := buildPack(t, nil)
		binary.BigEndian.PutUint32(pack[4:8], 3)

		_, err := packfile.Decode(pack, newFakeStore())
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, packfile.ErrBadPack))
	})

	t.Run("fails on ofs-delta", func(t *testing.T) {
		t.Parallel()

		header := packObjectHeader(int(object.ObjectDeltaOFS), 1)
		pack := buildPack(t, [][]byte{append(header, 0x00)})

		_, err := packfile.Decode(pack, newFakeStore())
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, packfile.ErrUnsupported))
	})

	t.Run("fails when a ref-delta's base is nowhere to be found", func(t *testing.T) {
		t.Parallel()

		delta := append(deltaVarint(1), deltaVarint(1)...)
		delta = append(delta, 0x01) // insert of 1 byte
		delta = append(delta, 'x')

		deltaHeader := packObjectHeader(int(object.ObjectDeltaRef), len(delta))
		var deltaObj bytes.Buffer
		deltaObj.Write(deltaHeader)
		deltaObj.Write(ginternals.NullOid.Bytes())
		deltaObj.Write(zlibCompress(t, delta))

		pack := buildPack(t, [][]byte{deltaObj.Bytes()})

		_, err := packfile.Decode(pack, newFakeStore())
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, packfile.ErrMissingBase))
	})

	t.Run("resolves a ref-delta against a base already in the store", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		baseObj := object.New(object.TypeBlob, []byte("stored earlier"))
		_, err := store.WriteObject(baseObj)
		require.NoError(t, err)

		base := baseObj.Bytes()
		var delta bytes.Buffer
		delta.Write(deltaVarint(len(base)))
		delta.Write(deltaVarint(len(base)))
		delta.WriteByte(0x80 | 0x10)
		delta.WriteByte(byte(len(base)))

		deltaHeader := packObjectHeader(int(object.ObjectDeltaRef), delta.Len())
		var deltaObj bytes.Buffer
		deltaObj.Write(deltaHeader)
		deltaObj.Write(baseObj.ID().Bytes())
		deltaObj.Write(zlibCompress(t, delta.Bytes()))

		pack := buildPack(t, [][]byte{deltaObj.Bytes()})

		ids, err := packfile.Decode(pack, store)
		require.NoError(t, err)
		require.Len(t, ids, 1)

		resolved, err := store.Object(ids[0])
		require.NoError(t, err)
		assert.Equal(t, base, resolved.Bytes())
	})
}
