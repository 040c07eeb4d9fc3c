package service_test

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	apperrors "github.com/Cafe137/swarm-chunked-upload/internal/errors"
	"github.com/Cafe137/swarm-chunked-upload/internal/placement"
	"github.com/Cafe137/swarm-chunked-upload/internal/postage"
	"github.com/Cafe137/swarm-chunked-upload/internal/repository/objectstore"
	"github.com/Cafe137/swarm-chunked-upload/internal/service"
)

func TestChunkFileNames(t *testing.T) {
	address := domain.Address{0xab, 0xcd}
	data, stamp := service.ChunkFileNames(7, address)
	want := "data-00007-abcd" + hex.EncodeToString(make([]byte, 30))
	if data != want+".bin" || stamp != want+".sig.bin" {
		t.Errorf("ChunkFileNames() = %s, %s", data, stamp)
	}
}

func TestExportService_Export(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	placer := placement.NewRoundRobinPlacer()
	placer.RegisterTarget("a", objectstore.NewLocalObjectRepository(dirA, ""))
	placer.RegisterTarget("b", objectstore.NewLocalObjectRepository(dirB, ""))

	stamper := newStamper(t)
	svc := service.NewExportService(stamper, placer, service.ExportOptions{Parallelism: 2})

	data := make([]byte, 8197)
	for i := range data {
		data[i] = byte(i % 256)
	}
	result, err := svc.Export(context.Background(), "big.bin", data)
	if err != nil {
		t.Fatal(err)
	}
	if result.ChunkCount != 4 || len(result.Files) != 8 {
		t.Fatalf("exported %d chunks in %d files, want 4 in 8", result.ChunkCount, len(result.Files))
	}

	levels, _ := bmt.Split(data)
	var chunks []bmt.Chunk
	for _, level := range levels {
		chunks = append(chunks, level...)
	}

	for i, chunk := range chunks {
		dir := dirA
		if i%2 == 1 {
			dir = dirB
		}
		dataName, stampName := service.ChunkFileNames(i, chunk.Address())

		got, err := os.ReadFile(filepath.Join(dir, dataName))
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if string(got) != string(chunk.Data()) {
			t.Errorf("chunk %d data mismatch", i)
		}

		stampHex, err := os.ReadFile(filepath.Join(dir, stampName))
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		raw, err := hex.DecodeString(string(stampHex))
		if err != nil {
			t.Fatal(err)
		}
		stamp, err := postage.UnmarshalStamp(raw)
		if err != nil {
			t.Fatal(err)
		}
		owner, err := postage.RecoverOwner(stamp, chunk.Address())
		if err != nil {
			t.Fatal(err)
		}
		if owner != stamper.Owner() {
			t.Errorf("chunk %d stamp signed by %x", i, owner)
		}
	}
}

func TestExportService_Clean(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "data-00099-stale.bin")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	placer := placement.NewRoundRobinPlacer()
	placer.RegisterTarget("local", objectstore.NewLocalObjectRepository(dir, ""))
	svc := service.NewExportService(newStamper(t), placer, service.ExportOptions{Clean: true})

	if _, err := svc.Export(context.Background(), "a.txt", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale export file survived a clean export")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("directory holds %d files, want 2", len(entries))
	}
}

func TestExportService_Errors(t *testing.T) {
	svc := service.NewExportService(newStamper(t), placement.NewRoundRobinPlacer(), service.ExportOptions{})

	if _, err := svc.Export(context.Background(), "e.txt", nil); !errors.Is(err, apperrors.ErrEmptyFile) {
		t.Errorf("Export(empty) error = %v, want ErrEmptyFile", err)
	}
	if _, err := svc.Export(context.Background(), "a.txt", []byte("a")); err == nil {
		t.Error("Export() with no targets succeeded")
	}
}
