package packfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestReadDeltaSize(t *testing.T) {
	t.Parallel()

	t.Run("single byte", func(t *testing.T) {
		t.Parallel()

		size, read, err := readDeltaSize([]byte{0x2a})
		require.NoError(t, err)
		assert.Equal(t, uint64(0x2a), size)
		assert.Equal(t, 1, read)
	})

	t.Run("multi byte, least significant chunk first", func(t *testing.T) {
		t.Parallel()

		// 0x80|0x01, 0x02 -> chunk0 = 0x01, chunk1 = 0x02 -> size = 0x01 | (0x02 << 7)
		size, read, err := readDeltaSize([]byte{0x81, 0x02})
		require.NoError(t, err)
		assert.Equal(t, uint64(0x01|0x02<<7), size)
		assert.Equal(t, 2, read)
	})

	t.Run("truncated varint fails", func(t *testing.T) {
		t.Parallel()

		_, _, err := readDeltaSize([]byte{0x80})
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, ErrBadDelta))
	})
}

func TestReadCopyArgs(t *testing.T) {
	t.Parallel()

	t.Run("no offset or length bytes defaults length to the wrap value", func(t *testing.T) {
		t.Parallel()

		offset, length, rest, err := readCopyArgs(0x80, []byte{0xff})
		require.NoError(t, err)
		assert.Equal(t, uint64(0), offset)
		assert.Equal(t, uint64(copyLengthWrap), length)
		assert.Equal(t, []byte{0xff}, rest)
	})

	t.Run("reads offset and length bytes in order", func(t *testing.T) {
		t.Parallel()

		// offset bytes 0 and 1 present (0x03), length byte 0 present (0x10)
		op := byte(0x80 | 0x03 | 0x10)
		offset, length, rest, err := readCopyArgs(op, []byte{0x01, 0x02, 0x05, 0xaa})
		require.NoError(t, err)
		assert.Equal(t, uint64(0x01|0x02<<8), offset)
		assert.Equal(t, uint64(0x05), length)
		assert.Equal(t, []byte{0xaa}, rest)
	})

	t.Run("truncated offset fails", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := readCopyArgs(0x80|0x01, nil)
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, ErrBadDelta))
	})
}

func TestReadObjectHeader(t *testing.T) {
	t.Parallel()

	t.Run("single byte header", func(t *testing.T) {
		t.Parallel()

		// type 3 (blob), size 5: 0011_0101
		typeCode, size, read, err := readObjectHeader([]byte{0b0011_0101})
		require.NoError(t, err)
		assert.Equal(t, 3, typeCode)
		assert.Equal(t, uint64(5), size)
		assert.Equal(t, 1, read)
	})

	t.Run("multi byte header", func(t *testing.T) {
		t.Parallel()

		// first byte: continuation set, type 2, low size nibble 0xf
		// second byte: no continuation, chunk 0x01
		typeCode, size, read, err := readObjectHeader([]byte{0b1010_1111, 0b0000_0001})
		require.NoError(t, err)
		assert.Equal(t, 2, typeCode)
		assert.Equal(t, uint64(0xf|0x01<<4), size)
		assert.Equal(t, 2, read)
	})

	t.Run("truncated header fails", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := readObjectHeader([]byte{0b1000_0000})
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, ErrBadPack))
	})

	t.Run("empty input fails", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := readObjectHeader(nil)
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, ErrBadPack))
	})
}
