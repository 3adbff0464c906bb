// Package packfile decodes pack files: a stream of objects, some of
// which are expressed as ref-deltas against objects that appeared
// earlier in the same stream.
//
// Unlike a random-access reader keyed off a sibling .idx file, this
// decoder only ever walks a pack once, front to back, and is the only
// shape the clone path needs: refs never point backward across packs,
// and a ref-delta base is either an object already decoded earlier in
// this same pass or an object already persisted by a previous call.
package packfile

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/xerrors"

	"github.com/vcsforge/govcs/ginternals"
	"github.com/vcsforge/govcs/ginternals/object"
)

// headerSize is the size, in bytes, of a pack file's fixed header:
// 4 bytes of magic, 4 bytes of version, 4 bytes of object count.
const headerSize = 12

var (
	// ErrBadPack is returned when the pack header, an object's
	// preamble, or a type code doesn't match the format.
	ErrBadPack = xerrors.New("invalid pack file")
	// ErrUnsupported is returned when a pack uses a feature this
	// decoder doesn't implement (ofs-delta).
	ErrUnsupported = xerrors.New("unsupported pack feature")
	// ErrBadDelta is returned when a delta stream's opcodes or
	// declared sizes don't add up.
	ErrBadDelta = xerrors.New("invalid delta")
	// ErrMissingBase is returned when a ref-delta's base object is
	// neither earlier in the same pack nor already in the store.
	// Thin packs, where the base was never sent at all, hit this.
	ErrMissingBase = xerrors.New("delta base not found")
	// ErrIntOverflow is returned when a variable-length integer
	// doesn't terminate within 64 bits.
	ErrIntOverflow = xerrors.New("integer overflow")
)

func magic() []byte { return []byte{'P', 'A', 'C', 'K'} }

// Store is the subset of the object database the decoder needs: a
// way to look up a base object that wasn't produced earlier in this
// same pack, and a way to persist every object it decodes.
type Store interface {
	Object(ginternals.Oid) (*object.Object, error)
	WriteObject(*object.Object) (ginternals.Oid, error)
}

// Decode walks data, a full pack file held in memory, front to back,
// storing every object it contains in store. It returns the ids of
// the objects written, in the order they appear in the pack.
//
// Decoding is strictly sequential: a ref-delta may reference a base
// that appeared earlier in this same pack, so objects must be stored
// (and made available for base lookups) as they're decoded, not
// after the fact.
func Decode(data []byte, store Store) ([]ginternals.Oid, error) {
	if len(data) < headerSize {
		return nil, xerrors.Errorf("pack is only %d bytes: %w", len(data), ErrBadPack)
	}
	if !bytes.Equal(data[0:4], magic()) {
		return nil, xerrors.Errorf("bad magic %q: %w", data[0:4], ErrBadPack)
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != 2 {
		return nil, xerrors.Errorf("version %d: %w", version, ErrBadPack)
	}
	count := binary.BigEndian.Uint32(data[8:12])

	cursor := headerSize
	seen := make(map[ginternals.Oid]*object.Object, count)
	ids := make([]ginternals.Oid, 0, count)

	for i := uint32(0); i < count; i++ {
		if cursor >= len(data) {
			return nil, xerrors.Errorf("object %d: truncated pack: %w", i, ErrBadPack)
		}

		typeCode, size, read, err := readObjectHeader(data[cursor:])
		if err != nil {
			return nil, xerrors.Errorf("object %d: %w", i, err)
		}
		cursor += read

		var o *object.Object
		switch object.Type(typeCode) {
		case object.TypeCommit, object.TypeTree, object.TypeBlob, object.TypeTag:
			var payload []byte
			var consumed int
			payload, consumed, err = decompress(data[cursor:], size)
			if err != nil {
				return nil, xerrors.Errorf("object %d: %w", i, err)
			}
			cursor += consumed
			o = object.New(object.Type(typeCode), payload)

		case object.ObjectDeltaRef:
			if cursor+ginternals.OidSize > len(data) {
				return nil, xerrors.Errorf("object %d: truncated delta base: %w", i, ErrBadPack)
			}
			baseID, err := ginternals.NewOidFromHex(data[cursor : cursor+ginternals.OidSize])
			if err != nil {
				return nil, xerrors.Errorf("object %d: %w", i, err)
			}
			cursor += ginternals.OidSize

			var deltaBytes []byte
			var consumed int
			deltaBytes, consumed, err = decompress(data[cursor:], size)
			if err != nil {
				return nil, xerrors.Errorf("object %d: %w", i, err)
			}
			cursor += consumed

			base, err := resolveBase(baseID, seen, store)
			if err != nil {
				return nil, xerrors.Errorf("object %d: %w", i, err)
			}
			o, err = ResolveRefDelta(base, deltaBytes)
			if err != nil {
				return nil, xerrors.Errorf("object %d: %w", i, err)
			}

		case object.ObjectDeltaOFS:
			return nil, xerrors.Errorf("object %d: ofs-delta: %w", i, ErrUnsupported)

		default:
			return nil, xerrors.Errorf("object %d: type code %d: %w", i, typeCode, ErrBadPack)
		}

		oid, err := store.WriteObject(o)
		if err != nil {
			return nil, xerrors.Errorf("object %d: %w", i, err)
		}
		seen[oid] = o
		ids = append(ids, oid)
	}

	return ids, nil
}

// resolveBase looks for id among the objects decoded earlier in this
// pass, falling back to the store for objects persisted by a prior
// call to Decode. ErrMissingBase means a thin pack: a base that was
// never sent at all.
func resolveBase(id ginternals.Oid, seen map[ginternals.Oid]*object.Object, store Store) (*object.Object, error) {
	if o, ok := seen[id]; ok {
		return o, nil
	}
	o, err := store.Object(id)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", id.String(), ErrMissingBase)
	}
	return o, nil
}

// readObjectHeader parses a pack object's variable-length preamble.
// The first byte holds a continuation bit, a 3-bit type code, and the
// low 4 bits of the size:
//
//	value       : MTTT_SSSS  // M = continuation, T = type, S = size
//	type  = (value & 0111_0000) >> 4
//	size  =  value & 0000_1111
//
// Each following byte, while the previous byte's continuation bit was
// set, contributes 7 more size bits, least significant chunk first.
func readObjectHeader(data []byte) (typeCode int, size uint64, read int, err error) {
	if len(data) == 0 {
		return 0, 0, 0, xerrors.Errorf("empty object header: %w", ErrBadPack)
	}

	b := data[0]
	typeCode = int((b & 0b_0111_0000) >> 4)
	size = uint64(b & 0b_0000_1111)
	read = 1

	shift := uint(4)
	for isMSBSet(b) {
		if read >= len(data) {
			return 0, 0, 0, xerrors.Errorf("truncated object header: %w", ErrBadPack)
		}
		if shift > 63 {
			return 0, 0, 0, ErrIntOverflow
		}
		b = data[read]
		size |= uint64(unsetMSB(b)) << shift
		shift += 7
		read++
	}
	return typeCode, size, read, nil
}

// decompress reads a single zlib stream from the front of data and
// returns its payload along with the number of input bytes consumed.
// The compressed length isn't known ahead of time, so the stream's
// own end-of-stream marker is what stops the read; the number of
// bytes consumed is recovered from how far the underlying reader's
// cursor moved.
func decompress(data []byte, expectedSize uint64) (payload []byte, consumed int, err error) {
	r := bytes.NewReader(data)
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, 0, xerrors.Errorf("could not open zlib stream: %w", err)
	}
	defer zr.Close() //nolint:errcheck // nothing actionable to do with a close error here

	buf := new(bytes.Buffer)
	buf.Grow(int(expectedSize))
	if _, err = io.Copy(buf, zr); err != nil {
		return nil, 0, xerrors.Errorf("could not decompress object: %w", err)
	}
	if uint64(buf.Len()) != expectedSize {
		return nil, 0, xerrors.Errorf("decompressed %d bytes, expected %d: %w", buf.Len(), expectedSize, ErrBadPack)
	}
	return buf.Bytes(), len(data) - r.Len(), nil
}

// isMSBSet checks if the MSB of a byte is set to 1.
func isMSBSet(b byte) bool {
	return b >= 0b_1000_0000
}

// unsetMSB sets the left-most bit of the byte to 0.
func unsetMSB(b byte) byte {
	return b & 0b_0111_1111
}
