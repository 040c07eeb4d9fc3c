package postage

import (
	"encoding/binary"
	"fmt"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
)

// BucketIndex maps a chunk address to one of the 2^depth buckets of a batch
// by taking the top depth bits of the address prefix. Depths of 32 and above
// use the whole 32-bit prefix.
func BucketIndex(depth int, address []byte) (uint32, error) {
	if len(address) != domain.AddressSize {
		return 0, errors.LengthError("address", domain.AddressSize, len(address))
	}
	if err := validateDepth(depth); err != nil {
		return 0, err
	}
	prefix := binary.BigEndian.Uint32(address[:4])
	if depth >= 32 {
		return prefix, nil
	}
	return prefix >> (32 - depth), nil
}

func validateDepth(depth int) error {
	if depth < domain.MinBatchDepth || depth > domain.MaxBatchDepth {
		return &errors.EncodingError{
			Field: "depth",
			Err:   fmt.Errorf("%w, got %d", errors.ErrInvalidDepth, depth),
		}
	}
	return nil
}
