package service

import (
	"bytes"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
	"github.com/Cafe137/swarm-chunked-upload/internal/placement"
)

// ExportFilePrefix starts the name of every exported file.
const ExportFilePrefix = "data-"

// ExportOptions tunes an export.
type ExportOptions struct {
	Parallelism int
	// Clean removes previously exported files from every target first.
	Clean    bool
	Observer Observer
}

// ExportResult summarizes an export.
type ExportResult struct {
	RootAddress domain.Address
	ChunkCount  int
	Files       []string
}

// ExportService signs every chunk of a file and writes the chunks with their
// stamps to export targets instead of a node, for later upload by other
// tools.
type ExportService struct {
	stamper Stamper
	placer  placement.Placer
	opts    ExportOptions
}

// NewExportService creates an ExportService writing through placer.
func NewExportService(stamper Stamper, placer placement.Placer, opts ExportOptions) *ExportService {
	if opts.Parallelism < 1 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	return &ExportService{
		stamper: stamper,
		placer:  placer,
		opts:    opts,
	}
}

// ChunkFileNames returns the data and stamp file names for the chunk with
// the given index in split order.
func ChunkFileNames(index int, address domain.Address) (data, stamp string) {
	base := fmt.Sprintf("%s%05d-%x", ExportFilePrefix, index, address[:])
	return base + ".bin", base + ".sig.bin"
}

// Export writes data-%05d-<address>.bin (span and payload) and
// data-%05d-<address>.sig.bin (hex stamp) for every chunk, leaves first.
func (s *ExportService) Export(ctx context.Context, filename string, data []byte) (ExportResult, error) {
	if len(data) == 0 {
		return ExportResult{}, errors.ErrEmptyFile
	}
	levels, err := bmt.Split(data)
	if err != nil {
		return ExportResult{}, fmt.Errorf("splitting %s: %w", filename, err)
	}
	root, err := bmt.Root(levels)
	if err != nil {
		return ExportResult{}, err
	}

	if s.opts.Clean {
		if err := s.clean(ctx); err != nil {
			return ExportResult{}, err
		}
	}

	var chunks []bmt.Chunk
	for _, level := range levels {
		chunks = append(chunks, level...)
	}
	files := make([]string, 2*len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	for i, chunk := range chunks {
		g.Go(func() error {
			dataURI, stampURI, err := s.exportChunk(ctx, i, chunk)
			if err != nil {
				return fmt.Errorf("exporting chunk %d: %w", i, err)
			}
			files[2*i], files[2*i+1] = dataURI, stampURI
			s.opts.Observer.ChunkUploaded(chunk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExportResult{}, err
	}

	log.Infof("Exported %s: %d chunks to %v", filename, len(chunks), s.placer.Targets())
	return ExportResult{
		RootAddress: root.Address(),
		ChunkCount:  len(chunks),
		Files:       files,
	}, nil
}

func (s *ExportService) exportChunk(ctx context.Context, index int, chunk bmt.Chunk) (string, string, error) {
	stamp, err := s.stamper.Stamp(chunk.Address())
	if err != nil {
		return "", "", err
	}
	target, repo, err := s.placer.Place(index)
	if err != nil {
		return "", "", err
	}

	dataName, stampName := ChunkFileNames(index, chunk.Address())
	log.Tracef("Exporting chunk %d to %s", index, target)

	dataURI, err := repo.Upload(ctx, dataName, bytes.NewReader(chunk.Data()))
	if err != nil {
		return "", "", err
	}
	stampURI, err := repo.Upload(ctx, stampName, bytes.NewReader([]byte(stamp.Hex())))
	if err != nil {
		return "", "", err
	}
	return dataURI, stampURI, nil
}

func (s *ExportService) clean(ctx context.Context) error {
	for _, name := range s.placer.Targets() {
		repo, err := s.placer.Target(name)
		if err != nil {
			return err
		}
		log.Debugf("Removing previous export from %s", name)
		if err := repo.DeletePrefix(ctx, ExportFilePrefix); err != nil {
			return fmt.Errorf("cleaning %s: %w", name, err)
		}
	}
	return nil
}
