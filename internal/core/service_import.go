package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dryerlog/internal/export"
	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/storage"
	"github.com/JonMunkholm/dryerlog/internal/store"
)

// SkippedRow is a CSV row left out of an import.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult summarizes one CSV import.
type ImportResult struct {
	File    string       `json:"file"`
	Rows    int          `json:"rows"`
	Added   int          `json:"added"`
	Skipped []SkippedRow `json:"skipped,omitempty"`
}

// ImportCSV parses a record CSV and merges its records into the store
// with fresh ids where needed. A file with malformed rows is rejected as a
// whole. When no row yields a record the store is left unchanged and the
// error wraps ErrNoValidData.
func (s *Service) ImportCSV(ctx context.Context, src importer.Source) (*ImportResult, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		s.fail("Import", err)
		return nil, err
	}
	defer done()

	res, err := s.parseCSV(ctx, src)
	if err != nil {
		s.fail("Import", err)
		return nil, fmt.Errorf("import %s: %w", src.Name, err)
	}

	out := &ImportResult{File: src.Name, Rows: res.Rows}
	for _, sk := range res.Skipped {
		out.Skipped = append(out.Skipped, SkippedRow{Line: sk.Line, Reason: sk.Reason})
	}
	if len(res.Records) == 0 {
		s.notify(store.LevelInfo, "No valid data found in the CSV file.")
		return out, fmt.Errorf("import %s: %w", src.Name, ErrNoValidData)
	}

	n, err := s.store.MergeImported(ctx, res.Records)
	out.Added = n
	if err != nil {
		return out, fmt.Errorf("import %s: %w", src.Name, err)
	}
	s.log.Info("csv imported", "file", src.Name, "added", n, "skipped", len(out.Skipped))
	return out, nil
}

func (s *Service) parseCSV(ctx context.Context, src importer.Source) (*importer.Result, error) {
	rc, err := s.open(src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	res, err := s.parser.Parse(ctx, rc, src.Name)
	if err != nil {
		return nil, parseError(err)
	}
	return res, nil
}

// LoadMaster replaces the store with a JSON snapshot (all_records.json).
// Loaded records are marked synced.
func (s *Service) LoadMaster(ctx context.Context, src importer.Source) (int, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		s.fail("Load", err)
		return 0, err
	}
	defer done()

	recs, err := s.decode(src)
	if err != nil {
		s.fail("Load", err)
		return 0, fmt.Errorf("load master: %w", err)
	}
	if err := s.store.ReplaceAll(ctx, recs); err != nil {
		return 0, fmt.Errorf("load master: %w", err)
	}
	s.log.Info("master loaded", "file", src.Name, "records", len(recs))
	return len(recs), nil
}

// BuildMaster parses record CSV files concurrently into one snapshot,
// newest first. Nothing is produced unless every file parses; the error
// then carries a *FileError naming the first file that failed.
func (s *Service) BuildMaster(ctx context.Context, sources []importer.Source) (*Artifact, error) {
	if len(sources) == 0 {
		return nil, ErrNoFile
	}
	ctx, done, err := s.begin(ctx)
	if err != nil {
		s.fail("Build", err)
		return nil, err
	}
	defer done()

	limited := make([]importer.Source, len(sources))
	for i, src := range sources {
		if src.Open == nil {
			return nil, fmt.Errorf("build master: %s: %w", src.Name, ErrNoFile)
		}
		limited[i] = s.limited(src)
	}

	recs, err := s.parser.ParseBatch(ctx, limited, s.opts.MaxConcurrent)
	if err != nil {
		err = parseError(err)
		s.fail("Build", err)
		return nil, fmt.Errorf("build master: %w", err)
	}

	data, err := render(recs, export.WriteJSON)
	if err != nil {
		return nil, fmt.Errorf("build master: %w", err)
	}
	s.notify(store.LevelSuccess, fmt.Sprintf("Master database built from %d files: %d records.", len(sources), len(recs)))
	s.log.Info("master built", "files", len(sources), "records", len(recs))
	return &Artifact{Name: export.MasterJSONName, ContentType: contentTypeJSON, Count: len(recs), Data: data}, nil
}

// MergeResult summarizes a merge.
type MergeResult struct {
	Reference int `json:"reference"`
	Added     int `json:"added"`
	Total     int `json:"total"`
}

// MergeFiles reads a reference snapshot and then a delta file and returns
// the new master snapshot. Delta records are added with import semantics:
// a delta id already present in the reference gets a fresh id, nothing in
// the reference is modified. The service's own store is not touched.
func (s *Service) MergeFiles(ctx context.Context, reference, delta importer.Source) (*Artifact, *MergeResult, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		s.fail("Merge", err)
		return nil, nil, err
	}
	defer done()

	ref, err := s.decode(reference)
	if err != nil {
		s.fail("Merge", err)
		return nil, nil, fmt.Errorf("merge reference: %w", err)
	}
	add, err := s.decode(delta)
	if err != nil {
		s.fail("Merge", err)
		return nil, nil, fmt.Errorf("merge delta: %w", err)
	}

	tmp, err := store.New(ctx, storage.NewMemory(), s.catalog, store.WithLogger(s.log))
	if err != nil {
		return nil, nil, fmt.Errorf("merge: %w", err)
	}
	if err := tmp.ReplaceAll(ctx, ref); err != nil {
		return nil, nil, fmt.Errorf("merge: %w", err)
	}
	n, err := tmp.MergeImported(ctx, add)
	if err != nil {
		return nil, nil, fmt.Errorf("merge: %w", err)
	}

	all := tmp.All()
	data, err := render(all, export.WriteJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("merge: %w", err)
	}
	res := &MergeResult{Reference: len(ref), Added: n, Total: len(all)}
	s.notify(store.LevelSuccess, fmt.Sprintf("Merge complete: %d records added, %d in the new master database.", n, len(all)))
	s.log.Info("snapshots merged", "reference", res.Reference, "added", n, "total", res.Total)
	return &Artifact{Name: export.MasterJSONName, ContentType: contentTypeJSON, Count: len(all), Data: data}, res, nil
}
