// Package placement spreads exported chunks across several export targets.
//
// Every chunk is placed by its index in split order, so the data file and
// the stamp file of a chunk always land on the same target and a rerun of
// the same export produces the same layout.
//
// Example:
//
//	placer := NewRoundRobinPlacer()
//	placer.RegisterTarget("file://out", localRepo)
//	placer.RegisterTarget("s3://bucket/chunks", s3Repo)
//
//	name, repo, _ := placer.Place(0) // file://out
//	name, repo, _ = placer.Place(1)  // s3://bucket/chunks
package placement

import (
	"github.com/Cafe137/swarm-chunked-upload/internal/repository/objectstore"
)

// Placer selects the export target for a chunk.
//
// Implementations must be safe for concurrent use and deterministic: the
// same chunk index always maps to the same target.
type Placer interface {
	// Place selects the target for the chunk with the given index.
	Place(chunkIndex int) (string, objectstore.ObjectRepository, error)

	// RegisterTarget adds a target under a unique name.
	RegisterTarget(name string, repo objectstore.ObjectRepository) error

	// Targets returns the registered target names in registration order.
	Targets() []string

	// Target returns the repository registered under name.
	Target(name string) (objectstore.ObjectRepository, error)
}
