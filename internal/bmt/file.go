package bmt

import (
	"errors"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
)

// Split cuts data into leaf chunks and builds the intermediate levels above
// them. The result lists levels from the leaves up; the last level holds
// exactly one chunk, the root. Every chunk of the tree appears in exactly one
// level.
//
// A level whose chunk count leaves a single chunk for a new parent does not
// wrap that chunk: the lone "carrier" chunk is moved up and referenced
// directly by the first level with room for it, as Swarm's file hasher does.
func Split(data []byte) ([][]Chunk, error) {
	leaves, err := splitLeaves(data)
	if err != nil {
		return nil, err
	}

	leaves, carrier := popCarrier(leaves)
	levels := [][]Chunk{leaves}
	for len(levels[len(levels)-1]) != 1 {
		next, nextCarrier, err := nextLevel(levels[len(levels)-1], carrier)
		if err != nil {
			return nil, err
		}
		levels = append(levels, next)
		carrier = nextCarrier
	}
	return levels, nil
}

// Root returns the single chunk of the top level produced by Split.
func Root(levels [][]Chunk) (Chunk, error) {
	if len(levels) == 0 || len(levels[len(levels)-1]) != 1 {
		return Chunk{}, errors.New("chunk tree has no single root")
	}
	return levels[len(levels)-1][0], nil
}

// Count returns the total number of chunks across all levels.
func Count(levels [][]Chunk) int {
	n := 0
	for _, level := range levels {
		n += len(level)
	}
	return n
}

func splitLeaves(data []byte) ([]Chunk, error) {
	if len(data) == 0 {
		chunk, err := NewChunk(nil, 0)
		if err != nil {
			return nil, err
		}
		return []Chunk{chunk}, nil
	}

	leaves := make([]Chunk, 0, (len(data)+MaxPayloadSize-1)/MaxPayloadSize)
	for offset := 0; offset < len(data); offset += MaxPayloadSize {
		end := offset + MaxPayloadSize
		if end > len(data) {
			end = len(data)
		}
		chunk, err := NewChunk(data[offset:end], uint64(end-offset))
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, chunk)
	}
	return leaves, nil
}

func nextLevel(chunks []Chunk, carrier *Chunk) ([]Chunk, *Chunk, error) {
	next := make([]Chunk, 0, (len(chunks)+Branches-1)/Branches)
	for offset := 0; offset < len(chunks); offset += Branches {
		end := offset + Branches
		if end > len(chunks) {
			end = len(chunks)
		}
		parent, err := intermediate(chunks[offset:end])
		if err != nil {
			return nil, nil, err
		}
		next = append(next, parent)
	}

	if carrier != nil && len(next)%Branches != 0 {
		next = append(next, *carrier)
		carrier = nil
	}
	if carrier == nil {
		next, carrier = popCarrier(next)
	}
	return next, carrier, nil
}

func intermediate(children []Chunk) (Chunk, error) {
	payload := make([]byte, 0, len(children)*domain.AddressSize)
	var span uint64
	for _, child := range children {
		address := child.Address()
		payload = append(payload, address[:]...)
		span += child.Span()
	}
	return NewChunk(payload, span)
}

// popCarrier removes the trailing chunk when it would end up as the only
// child of a parent.
func popCarrier(chunks []Chunk) ([]Chunk, *Chunk) {
	if len(chunks) <= 1 || len(chunks)%Branches != 1 {
		return chunks, nil
	}
	carrier := chunks[len(chunks)-1]
	return chunks[:len(chunks)-1], &carrier
}

// ChunkCount returns the number of chunks Split produces for size bytes
// without hashing anything.
func ChunkCount(size int64) int {
	if size <= 0 {
		return 1
	}
	count, carried := carrierCount(int((size + MaxPayloadSize - 1) / MaxPayloadSize))
	total := count
	for count != 1 {
		next := (count + Branches - 1) / Branches
		if carried && next%Branches != 0 {
			next++
			carried = false
		}
		if !carried {
			next, carried = carrierCount(next)
		}
		total += next
		count = next
	}
	return total
}

func carrierCount(n int) (int, bool) {
	if n <= 1 || n%Branches != 1 {
		return n, false
	}
	return n - 1, true
}
