package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// Source is one input file of a batch.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource reads a file from disk.
func FileSource(path string) Source {
	return Source{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesSource serves an in-memory upload.
func BytesSource(name string, data []byte) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// FileError names the file that failed in a batch.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// ParseBatch parses every source concurrently (at most limit at a time; zero
// means unlimited) and returns all records sorted newest first. The batch
// succeeds only if every file parses: the first failure is returned as a
// *FileError and no records are returned. ErrNoValidData is returned when
// the files parse but yield no records.
func (p *Parser) ParseBatch(ctx context.Context, sources []Source, limit int) ([]record.Record, error) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]*Result, len(sources))
	for i, src := range sources {
		g.Go(func() error {
			res, err := p.parseSource(gctx, src)
			if err != nil {
				return &FileError{File: src.Name, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []record.Record
	for _, res := range results {
		all = append(all, res.Records...)
	}
	if len(all) == 0 {
		return nil, ErrNoValidData
	}
	record.SortNewestFirst(all)
	return all, nil
}

func (p *Parser) parseSource(ctx context.Context, src Source) (*Result, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return p.Parse(ctx, rc, src.Name)
}
