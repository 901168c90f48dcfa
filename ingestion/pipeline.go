package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/hybridrag/chunker"
	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/search"
)

// Pipeline chunks files and indexes the result.
type Pipeline struct {
	index    *search.Index
	chunker  *chunker.Chunker
	poolSize int
	append   bool
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of files chunked concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.poolSize = size
		return nil
	}
}

// WithAppend controls what happens when the index already holds chunks.
// With append enabled (the default) new chunks are added; otherwise the
// batch is dropped and Ingest reports zero chunks.
func WithAppend(enabled bool) Option {
	return func(p *Pipeline) error {
		p.append = enabled
		return nil
	}
}

// WithProgress writes per-file progress to w. A nil writer disables reporting.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a pipeline feeding index with chunks from c.
func NewPipeline(index *search.Index, c *chunker.Chunker, opts ...Option) (*Pipeline, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if c == nil {
		return nil, ErrChunkerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	p := &Pipeline{
		index:    index,
		chunker:  c,
		poolSize: poolSize,
		append:   true,
		logger:   slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// IngestPaths reads the named files and ingests them.
func (p *Pipeline) IngestPaths(ctx context.Context, paths ...string) (int, error) {
	files := make([]chunker.File, 0, len(paths))
	for _, path := range paths {
		file, err := chunker.ReadFile(path)
		if err != nil {
			return 0, err
		}
		files = append(files, file)
	}
	return p.Ingest(ctx, files...)
}

// Ingest chunks files and loads or appends the chunks to the index, in file
// order. It returns the number of chunks indexed. Any file that fails to
// chunk fails the whole batch and leaves the index untouched.
func (p *Pipeline) Ingest(ctx context.Context, files ...chunker.File) (int, error) {
	if len(files) == 0 {
		return 0, ErrNoFiles
	}

	chunks, err := p.chunkFiles(ctx, files)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: files produced no text", core.ErrEmptyCorpus)
	}

	switch {
	case !p.index.Loaded():
		err = p.index.Load(ctx, chunks)
	case p.append:
		err = p.index.Append(ctx, chunks)
	default:
		p.logger.Info("index already loaded, skipping batch", "chunks", len(chunks))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	p.logger.Info("ingested files", "files", len(files), "chunks", len(chunks), "total", p.index.Len())
	return len(chunks), nil
}

func (p *Pipeline) chunkFiles(ctx context.Context, files []chunker.File) ([]core.Chunk, error) {
	pool, err := ants.NewPool(p.poolSize)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(files), 1)
		tracker.Start()
	}

	perFile := make([][]core.Chunk, len(files))
	errs := make([]error, len(files))
	var wg sync.WaitGroup

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			perFile[i], errs[i] = p.chunker.Process(file)
			if tracker != nil {
				tracker.Increment(1)
			}
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
			break
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}

	var chunks []core.Chunk
	for i, fileChunks := range perFile {
		if errs[i] != nil {
			return nil, errs[i]
		}
		for _, chunk := range fileChunks {
			if strings.TrimSpace(chunk.Content) == "" {
				continue
			}
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}
