// Package transport speaks the smart HTTP protocol version 2: pkt-line
// framing, the ls-refs/fetch command exchange, and sideband
// demultiplexing of the fetch response.
package transport

import (
	"encoding/hex"
	"io"

	"golang.org/x/xerrors"
)

// Flush and Delimiter are the two pkt-line sentinel lengths; they carry
// no payload.
const (
	Flush     = "0000"
	Delimiter = "0001"
)

// ErrBadPktLine is returned when a pkt-line's length header isn't valid
// hex, or a payload is shorter than its declared length.
var ErrBadPktLine = xerrors.New("invalid pkt-line")

// EncodeLine frames payload as a single pkt-line: 4 hex digits of total
// length (header included) followed by the payload verbatim.
func EncodeLine(payload []byte) []byte {
	total := len(payload) + 4
	out := make([]byte, 4, total)
	hex.Encode(out, []byte{byte(total >> 8), byte(total)})
	return append(out, payload...)
}

// EncodeFlush returns the flush-pkt bytes.
func EncodeFlush() []byte { return []byte(Flush) }

// EncodeDelim returns the delimiter-pkt bytes.
func EncodeDelim() []byte { return []byte(Delimiter) }

// lineKind identifies whether a pkt-line read carries a payload or is
// one of the two control sentinels.
type lineKind int

const (
	lineData lineKind = iota
	lineFlush
	lineDelim
)

// ReadLine reads one pkt-line from r, reporting whether it was a data
// line, a flush, or a delimiter. io.EOF is returned once r is exhausted
// with nothing left to read.
func ReadLine(r io.Reader) (payload []byte, kind lineKind, err error) {
	var lenHdr [4]byte
	if _, err = io.ReadFull(r, lenHdr[:]); err != nil {
		return nil, lineData, err
	}

	var decoded [2]byte
	if _, err = hex.Decode(decoded[:], lenHdr[:]); err != nil {
		return nil, lineData, xerrors.Errorf("length header %q: %w", lenHdr, ErrBadPktLine)
	}
	length := int(decoded[0])<<8 | int(decoded[1])

	switch length {
	case 0:
		return nil, lineFlush, nil
	case 1:
		return nil, lineDelim, nil
	}
	if length < 4 {
		return nil, lineData, xerrors.Errorf("length %d is smaller than the header itself: %w", length, ErrBadPktLine)
	}

	payload = make([]byte, length-4)
	if _, err = io.ReadFull(r, payload); err != nil {
		return nil, lineData, xerrors.Errorf("truncated payload: %w", err)
	}
	return payload, lineData, nil
}

// ReadLines reads pkt-lines from r until a flush is seen (inclusive).
// Delimiters separate sections within the stream and are skipped
// without ending the read; every data payload read along the way is
// returned in order.
func ReadLines(r io.Reader) ([][]byte, error) {
	var lines [][]byte
	for {
		payload, kind, err := ReadLine(r)
		if err != nil {
			return nil, err
		}
		switch kind {
		case lineFlush:
			return lines, nil
		case lineDelim:
			continue
		default:
			lines = append(lines, payload)
		}
	}
}
