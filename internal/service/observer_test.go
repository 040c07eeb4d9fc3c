package service_test

import (
	"errors"
	"testing"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
	"github.com/Cafe137/swarm-chunked-upload/internal/service"
)

func TestMultiObserver(t *testing.T) {
	var events []string
	record := func(name string) service.Observer {
		return service.ObserverFuncs{
			Uploaded: func(bmt.Chunk) { events = append(events, name+":uploaded") },
			Failed:   func(_ bmt.Chunk, attempt int, _ error) { events = append(events, name+":failed") },
		}
	}
	m := service.MultiObserver{record("a"), service.LogObserver{}, service.NopObserver{}, record("b")}

	chunk := mustChunk(t, "x")
	m.ChunkFailed(chunk, 1, errors.New("boom"))
	m.ChunkUploaded(chunk)

	want := []string{"a:failed", "b:failed", "a:uploaded", "b:uploaded"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, events[i], want[i])
		}
	}

	// nil funcs are skipped
	service.ObserverFuncs{}.ChunkUploaded(chunk)
}
