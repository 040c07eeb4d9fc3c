// Package bmt implements Swarm's binary Merkle tree chunk addressing and the
// file splitter that turns a byte stream into a tree of content-addressed
// chunks.
//
// A chunk is an 8-byte little-endian span followed by at most 4096 bytes of
// payload. Its address is keccak256(span || root), where root is the binary
// Merkle tree root over the payload zero-padded to 4096 bytes and cut into
// 32-byte segments.
package bmt

import (
	"encoding/binary"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
)

const (
	SpanSize       = 8
	SegmentSize    = 32
	MaxPayloadSize = 4096

	// Branches is the number of child references that fit in one
	// intermediate chunk.
	Branches = MaxPayloadSize / domain.AddressSize
)

// Chunk is a span-prefixed payload together with its precomputed address.
type Chunk struct {
	span    uint64
	payload []byte
	address domain.Address
}

// NewChunk builds a chunk over payload covering span bytes of file data.
func NewChunk(payload []byte, span uint64) (Chunk, error) {
	if len(payload) > MaxPayloadSize {
		return Chunk{}, fmt.Errorf("chunk payload of %d bytes exceeds %d", len(payload), MaxPayloadSize)
	}
	spanBytes := EncodeSpan(span)
	return Chunk{
		span:    span,
		payload: payload,
		address: hashChunk(spanBytes[:], payload),
	}, nil
}

// Span is the number of file bytes this chunk covers.
func (c Chunk) Span() uint64 {
	return c.span
}

func (c Chunk) Payload() []byte {
	return c.payload
}

// Data returns span || payload, the bytes sent to the storage node.
func (c Chunk) Data() []byte {
	spanBytes := EncodeSpan(c.span)
	out := make([]byte, 0, SpanSize+len(c.payload))
	out = append(out, spanBytes[:]...)
	return append(out, c.payload...)
}

func (c Chunk) Address() domain.Address {
	return c.address
}

// EncodeSpan returns the little-endian span prefix.
func EncodeSpan(span uint64) [SpanSize]byte {
	var b [SpanSize]byte
	binary.LittleEndian.PutUint64(b[:], span)
	return b
}

// Address computes the chunk address of span || payload as uploaded to a node.
func Address(spanPayload []byte) (domain.Address, error) {
	if len(spanPayload) < SpanSize {
		return domain.Address{}, fmt.Errorf("chunk data of %d bytes is shorter than the span", len(spanPayload))
	}
	if len(spanPayload) > SpanSize+MaxPayloadSize {
		return domain.Address{}, fmt.Errorf("chunk data of %d bytes exceeds %d", len(spanPayload), SpanSize+MaxPayloadSize)
	}
	return hashChunk(spanPayload[:SpanSize], spanPayload[SpanSize:]), nil
}

func hashChunk(span, payload []byte) domain.Address {
	root := RootHash(payload)
	h := sha3.NewLegacyKeccak256()
	h.Write(span)
	h.Write(root[:])
	var out domain.Address
	copy(out[:], h.Sum(nil))
	return out
}

// RootHash computes the binary Merkle tree root of payload zero-padded to
// MaxPayloadSize. Adjacent 32-byte segments are concatenated and hashed level
// by level until one segment remains.
func RootHash(payload []byte) [SegmentSize]byte {
	var padded [MaxPayloadSize]byte
	copy(padded[:], payload)

	hasher := sha3.NewLegacyKeccak256()
	level := padded[:]
	for len(level) > SegmentSize {
		next := make([]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 * SegmentSize {
			sum := hashPair(hasher, level[i:i+2*SegmentSize])
			copy(next[i/2:], sum)
		}
		level = next
	}

	var root [SegmentSize]byte
	copy(root[:], level)
	return root
}

func hashPair(hasher hash.Hash, pair []byte) []byte {
	hasher.Reset()
	hasher.Write(pair)
	return hasher.Sum(nil)
}
