package packfile

import (
	"bytes"

	"golang.org/x/xerrors"

	"github.com/vcsforge/govcs/ginternals/object"
)

// copyLengthWrap is the length a copy opcode encodes when its length
// field is 0; the wire format has no way to spell 0x10000 directly in
// the 3 length bytes, so a literal 0 stands in for it.
const copyLengthWrap = 0x10000

// ResolveRefDelta reconstructs the object a ref-delta encodes against
// base, and returns it tagged with base's type. deltaBytes is the
// already-decompressed delta stream: a source size, a target size,
// then a sequence of copy/insert opcodes.
func ResolveRefDelta(base *object.Object, deltaBytes []byte) (*object.Object, error) {
	sourceSize, n, err := readDeltaSize(deltaBytes)
	if err != nil {
		return nil, xerrors.Errorf("could not read source size: %w", err)
	}
	deltaBytes = deltaBytes[n:]

	targetSize, n, err := readDeltaSize(deltaBytes)
	if err != nil {
		return nil, xerrors.Errorf("could not read target size: %w", err)
	}
	deltaBytes = deltaBytes[n:]

	if uint64(base.Size()) != sourceSize {
		return nil, xerrors.Errorf("base is %d bytes, delta expects %d: %w", base.Size(), sourceSize, ErrBadDelta)
	}

	basePayload := base.Bytes()
	out := bytes.NewBuffer(make([]byte, 0, targetSize))

	for len(deltaBytes) > 0 {
		op := deltaBytes[0]
		deltaBytes = deltaBytes[1:]

		switch {
		case op&0x80 != 0: // copy
			offset, length, rest, err := readCopyArgs(op, deltaBytes)
			if err != nil {
				return nil, xerrors.Errorf("copy opcode: %w", err)
			}
			deltaBytes = rest

			if offset+length > uint64(len(basePayload)) {
				return nil, xerrors.Errorf("copy [%d:%d] is out of bounds of a %d byte base: %w", offset, offset+length, len(basePayload), ErrBadDelta)
			}
			out.Write(basePayload[offset : offset+length])

		case op != 0: // insert
			if int(op) > len(deltaBytes) {
				return nil, xerrors.Errorf("insert of %d bytes overruns the delta stream: %w", op, ErrBadDelta)
			}
			out.Write(deltaBytes[:op])
			deltaBytes = deltaBytes[op:]

		default: // op == 0, reserved
			return nil, xerrors.Errorf("opcode 0 is reserved: %w", ErrBadDelta)
		}
	}

	if uint64(out.Len()) != targetSize {
		return nil, xerrors.Errorf("target is %d bytes, delta declared %d: %w", out.Len(), targetSize, ErrBadDelta)
	}

	return object.New(base.Type(), out.Bytes()), nil
}

// readCopyArgs reads the offset and length that follow a copy opcode.
// Bits 0x01..0x08 of op each indicate whether one more little-endian
// byte of offset follows; bits 0x10..0x40 do the same for length:
//
//	op          : 1LLL_OOOO  // bits 4..6 = length bytes present
//	                          // bits 0..3 = offset bytes present
//
// A length of 0 means 0x10000, since the wire format has no other way
// to encode that value in 3 bytes.
func readCopyArgs(op byte, data []byte) (offset, length uint64, rest []byte, err error) {
	for i := uint(0); i < 4; i++ {
		if op&(1<<i) == 0 {
			continue
		}
		if len(data) == 0 {
			return 0, 0, nil, xerrors.Errorf("truncated offset: %w", ErrBadDelta)
		}
		offset |= uint64(data[0]) << (8 * i)
		data = data[1:]
	}
	for i := uint(0); i < 3; i++ {
		if op&(1<<(4+i)) == 0 {
			continue
		}
		if len(data) == 0 {
			return 0, 0, nil, xerrors.Errorf("truncated length: %w", ErrBadDelta)
		}
		length |= uint64(data[0]) << (8 * i)
		data = data[1:]
	}
	if length == 0 {
		length = copyLengthWrap
	}
	return offset, length, data, nil
}

// readDeltaSize reads a pure LEB128 varint: 7 bits per byte, least
// significant chunk first, continuation bit in bit 7. This is the
// encoding used for a delta's source/target sizes, distinct from a
// pack object header's size (whose first byte carries only 4 bits,
// the rest being used for the type code).
func readDeltaSize(data []byte) (size uint64, read int, err error) {
	shift := uint(0)
	for {
		if read >= len(data) {
			return 0, 0, xerrors.Errorf("truncated varint: %w", ErrBadDelta)
		}
		if shift > 63 {
			return 0, 0, ErrIntOverflow
		}
		b := data[read]
		size |= uint64(unsetMSB(b)) << shift
		read++
		if !isMSBSet(b) {
			return size, read, nil
		}
		shift += 7
	}
}
