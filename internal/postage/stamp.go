package postage

import (
	"encoding/hex"
	"fmt"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
)

// Stamp layout. The marshaled form is always StampSize bytes.
const (
	IndexSize     = 8
	TimestampSize = 8
	SignatureSize = 65
	StampSize     = domain.BatchIDSize + IndexSize + TimestampSize + SignatureSize
)

// Stamp authorizes one chunk write against a postage batch.
type Stamp struct {
	BatchID   [domain.BatchIDSize]byte
	Index     [IndexSize]byte
	Timestamp [TimestampSize]byte
	Signature [SignatureSize]byte
}

// MarshalBinary lays the stamp out as batchID || index || timestamp || signature.
func (s Stamp) MarshalBinary() ([]byte, error) {
	return Marshal(s.BatchID[:], s.Index[:], s.Timestamp[:], s.Signature[:])
}

// Hex returns the hex encoding sent in the Swarm-Postage-Stamp header.
func (s Stamp) Hex() string {
	b, _ := s.MarshalBinary()
	return hex.EncodeToString(b)
}

// Marshal builds the 113-byte wire form from its parts, rejecting any part
// of the wrong length.
func Marshal(batchID, index, timestamp, signature []byte) ([]byte, error) {
	if len(batchID) != domain.BatchIDSize {
		return nil, errors.LengthError("batch id", domain.BatchIDSize, len(batchID))
	}
	if len(index) != IndexSize {
		return nil, errors.LengthError("stamp index", IndexSize, len(index))
	}
	if len(timestamp) != TimestampSize {
		return nil, errors.LengthError("stamp timestamp", TimestampSize, len(timestamp))
	}
	if len(signature) != SignatureSize {
		return nil, errors.LengthError("signature", SignatureSize, len(signature))
	}

	buf := make([]byte, 0, StampSize)
	buf = append(buf, batchID...)
	buf = append(buf, index...)
	buf = append(buf, timestamp...)
	buf = append(buf, signature...)
	if len(buf) != StampSize {
		panic(fmt.Sprintf("postage: marshaled stamp is %d bytes, want %d", len(buf), StampSize))
	}
	return buf, nil
}

// UnmarshalStamp parses the 113-byte wire form.
func UnmarshalStamp(b []byte) (Stamp, error) {
	var s Stamp
	if len(b) != StampSize {
		return s, errors.LengthError("stamp", StampSize, len(b))
	}
	offset := copy(s.BatchID[:], b)
	offset += copy(s.Index[:], b[offset:])
	offset += copy(s.Timestamp[:], b[offset:])
	copy(s.Signature[:], b[offset:])
	return s, nil
}
