package domain

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// AddressSize is the byte length of a Swarm chunk address.
const AddressSize = 32

// Address is the content address of a chunk, blob or manifest node.
type Address [AddressSize]byte

// ZeroAddress is the all-zero address used as a placeholder manifest entry.
var ZeroAddress Address

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Equal(other Address) bool {
	return bytes.Equal(a[:], other[:])
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// AddressFromBytes copies b into an Address. b must be exactly AddressSize bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var out Address
	if len(b) != AddressSize {
		return out, fmt.Errorf("expected %d byte address, got %d bytes", AddressSize, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// AddressFromHex parses a 64 character hex reference.
func AddressFromHex(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex reference %q: %w", s, err)
	}
	return AddressFromBytes(b)
}
