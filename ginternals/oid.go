package ginternals

import (
	"crypto/sha1" //nolint:gosec // sha1 is mandated by the wire format, not used for security
	"encoding/hex"

	"golang.org/x/xerrors"
)

// OidSize is the length of an oid, in bytes
const OidSize = 20

// NullOid is the value of an empty Oid, all zeros
var NullOid = Oid{}

// ErrInvalidOid is returned when a given value isn't a valid Oid
var ErrInvalidOid = xerrors.New("invalid Oid")

// Oid represents a git object id: the SHA-1 of an object's framed,
// uncompressed bytes (type, size, NUL, payload).
type Oid [OidSize]byte

// Bytes returns the raw Oid as []byte.
// For the oid 642480605b8b0fd464ab5762e044269cf29a60a3:
// oid.Bytes(): []byte{ 0x64, 0x24, 0x80, ... }
func (o Oid) Bytes() []byte {
	return o[:]
}

// String converts an oid to its 40 char hex representation
func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero returns whether the oid has the zero value (NullOid)
func (o Oid) IsZero() bool {
	return o == NullOid
}

// NewOidFromContent returns the Oid of the given content.
// The oid is the SHA-1 sum of the content.
func NewOidFromContent(data []byte) Oid {
	return sha1.Sum(data) //nolint:gosec // mandated by the wire format
}

// NewOidFromHex returns an Oid from the provided raw 20-byte oid
func NewOidFromHex(id []byte) (Oid, error) {
	if len(id) != OidSize {
		return NullOid, ErrInvalidOid
	}
	var oid Oid
	copy(oid[:], id)
	return oid, nil
}

// NewOidFromChars creates an Oid from the given 40 ASCII hex chars
// For the SHA {'9', 'b', '9', '1', 'd', 'a', ...}
// the oid will be {0x9b, 0x91, 0xda, ...}
func NewOidFromChars(id []byte) (Oid, error) {
	return NewOidFromStr(string(id))
}

// NewOidFromStr creates an Oid from the given 40 char hex string
func NewOidFromStr(id string) (Oid, error) {
	raw, err := hex.DecodeString(id)
	if err != nil {
		return NullOid, ErrInvalidOid
	}
	return NewOidFromHex(raw)
}
