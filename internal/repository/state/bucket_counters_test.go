package state

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	apperrors "github.com/Cafe137/swarm-chunked-upload/internal/errors"
)

func TestNextIncrementsPerBucket(t *testing.T) {
	c := NewBucketCounters()
	for want := uint32(0); want < 3; want++ {
		got, err := c.Next(7)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Next(7) = %d, want %d", got, want)
		}
	}
	if got, _ := c.Next(8); got != 0 {
		t.Errorf("Next(8) = %d, want 0", got)
	}
}

func TestNextConcurrent(t *testing.T) {
	c := NewBucketCounters()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Next(1); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := c.counts[1]; got != 50 {
		t.Errorf("counter of bucket 1 = %d, want 50", got)
	}
}

func TestNextBucketFull(t *testing.T) {
	c := NewBucketCounters()
	c.counts[3] = math.MaxUint32
	if _, err := c.Next(3); !errors.Is(err, apperrors.ErrBucketFull) {
		t.Errorf("Next() error = %v, want ErrBucketFull", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bin")

	c, err := LoadBucketCounters(path)
	if err != nil {
		t.Fatalf("LoadBucketCounters() on missing file: %v", err)
	}
	c.Next(65536)
	c.Next(65536)
	c.Next(12)
	if err := c.Save(); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 2*entrySize {
		t.Errorf("state file is %d bytes, want %d", info.Size(), 2*entrySize)
	}

	loaded, err := LoadBucketCounters(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := loaded.Next(65536); got != 2 {
		t.Errorf("Next(65536) after load = %d, want 2", got)
	}
	if got, _ := loaded.Next(12); got != 1 {
		t.Errorf("Next(12) after load = %d, want 1", got)
	}
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBucketCounters(path); err == nil {
		t.Error("LoadBucketCounters() on truncated file succeeded")
	}
}
