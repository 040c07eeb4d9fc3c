// Package state persists the per-bucket stamp counters used by the
// bucket-counter stamp scheme between runs.
//
// The file is a sequence of little-endian uint32 pairs (bucket, next counter).
// A missing file is an empty state.
package state

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
)

const entrySize = 8

// BucketCounters hands out increasing counters per postage bucket.
type BucketCounters struct {
	mu     sync.Mutex
	path   string
	counts map[uint32]uint32
}

// NewBucketCounters creates an empty, unpersisted counter set.
func NewBucketCounters() *BucketCounters {
	return &BucketCounters{counts: make(map[uint32]uint32)}
}

// LoadBucketCounters reads counters from path, or starts empty if the file
// does not exist. Save writes back to the same path.
func LoadBucketCounters(path string) (*BucketCounters, error) {
	c := NewBucketCounters()
	c.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debugf("No bucket state at %s, starting empty", path)
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading bucket state %s: %w", path, err)
	}
	if len(data)%entrySize != 0 {
		return nil, fmt.Errorf("bucket state %s is %d bytes, not a multiple of %d", path, len(data), entrySize)
	}

	for offset := 0; offset < len(data); offset += entrySize {
		bucket := binary.LittleEndian.Uint32(data[offset:])
		c.counts[bucket] = binary.LittleEndian.Uint32(data[offset+4:])
	}
	log.Debugf("Loaded %d bucket counters from %s", len(c.counts), path)
	return c, nil
}

// Next returns the counter to use for bucket and advances it.
func (c *BucketCounters) Next(bucket uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.counts[bucket]
	if n == math.MaxUint32 {
		return 0, fmt.Errorf("bucket %d: %w", bucket, errors.ErrBucketFull)
	}
	c.counts[bucket] = n + 1
	return n, nil
}

// Save writes the counters to the path they were loaded from, replacing the
// file atomically. Counters created with NewBucketCounters are not saved.
func (c *BucketCounters) Save() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	buckets := make([]uint32, 0, len(c.counts))
	for bucket := range c.counts {
		buckets = append(buckets, bucket)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	data := make([]byte, 0, len(buckets)*entrySize)
	for _, bucket := range buckets {
		data = binary.LittleEndian.AppendUint32(data, bucket)
		data = binary.LittleEndian.AppendUint32(data, c.counts[bucket])
	}
	c.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp bucket state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing bucket state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing bucket state: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replacing bucket state %s: %w", c.path, err)
	}
	return nil
}
