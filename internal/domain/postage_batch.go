package domain

import (
	"encoding/hex"
	"fmt"
)

const (
	// BatchIDSize is the byte length of a postage batch identifier.
	BatchIDSize = 32

	MinBatchDepth = 16
	MaxBatchDepth = 100
)

// PostageBatch identifies prepaid storage capacity split into 2^Depth buckets.
type PostageBatch struct {
	BatchID [BatchIDSize]byte
	Depth   uint8
}

// BatchIDHex returns the batch identifier as it appears in Bee API headers.
func (b PostageBatch) BatchIDHex() string {
	return hex.EncodeToString(b.BatchID[:])
}

// ParsePostageBatch builds a PostageBatch from a hex batch id and a depth.
func ParsePostageBatch(batchID string, depth int) (PostageBatch, error) {
	raw, err := hex.DecodeString(batchID)
	if err != nil {
		return PostageBatch{}, fmt.Errorf("invalid batch id %q: %w", batchID, err)
	}
	if len(raw) != BatchIDSize {
		return PostageBatch{}, fmt.Errorf("expected %d byte batch id, got %d bytes", BatchIDSize, len(raw))
	}
	if depth < MinBatchDepth || depth > MaxBatchDepth {
		return PostageBatch{}, fmt.Errorf("expected depth between %d and %d, got %d", MinBatchDepth, MaxBatchDepth, depth)
	}
	batch := PostageBatch{Depth: uint8(depth)}
	copy(batch.BatchID[:], raw)
	return batch, nil
}
