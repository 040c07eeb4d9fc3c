package service_test

import (
	"context"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/postage"
)

const (
	testBatchID = "1000000000000000000000000000000000000000000000000000000000000001"
	testKey     = "2222222222222222222222222222222222222222222222222222222222222222"
)

// mockUploader is a mock Bee client. Without func fields it behaves like a
// healthy node.
type mockUploader struct {
	uploadChunkFunc func(ctx context.Context, stamp postage.Stamp, data []byte) (domain.Address, error)
	uploadDataFunc  func(ctx context.Context, data []byte) (domain.Address, error)

	chunkCalls atomic.Int32
	mu         sync.Mutex
	blobs      [][]byte
}

func (m *mockUploader) UploadChunk(ctx context.Context, stamp postage.Stamp, data []byte) (domain.Address, error) {
	m.chunkCalls.Add(1)
	if m.uploadChunkFunc != nil {
		return m.uploadChunkFunc(ctx, stamp, data)
	}
	return bmt.Address(data)
}

func (m *mockUploader) UploadData(ctx context.Context, data []byte) (domain.Address, error) {
	if m.uploadDataFunc != nil {
		return m.uploadDataFunc(ctx, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs = append(m.blobs, data)
	return domain.Address{0xb0, byte(len(m.blobs))}, nil
}

func (m *mockUploader) savedBlobs() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobs
}

// countingStamper wraps a real signer and counts issued stamps.
type countingStamper struct {
	*postage.Signer
	stamps atomic.Int32
}

func (c *countingStamper) Stamp(address domain.Address) (postage.Stamp, error) {
	c.stamps.Add(1)
	return c.Signer.Stamp(address)
}

func newStamper(t testing.TB) *countingStamper {
	t.Helper()
	batch, err := domain.ParsePostageBatch(testBatchID, 20)
	if err != nil {
		t.Fatal(err)
	}
	key, _ := hex.DecodeString(testKey)
	signer, err := postage.NewSigner(batch, key, postage.SchemeFlat, nil)
	if err != nil {
		t.Fatal(err)
	}
	return &countingStamper{Signer: signer}
}

type mockRecordRepository struct {
	createFunc func(ctx context.Context, record domain.UploadRecord) (domain.UploadRecord, error)
	records    []domain.UploadRecord
}

func (m *mockRecordRepository) CreateRecord(ctx context.Context, record domain.UploadRecord) (domain.UploadRecord, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, record)
	}
	m.records = append(m.records, record)
	return record, nil
}

func mustChunk(t *testing.T, payload string) bmt.Chunk {
	t.Helper()
	chunk, err := bmt.NewChunk([]byte(payload), uint64(len(payload)))
	if err != nil {
		t.Fatal(err)
	}
	return chunk
}
