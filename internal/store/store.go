// Package store holds the in-memory record collection and the view state
// (filter, sort, page, golden batch, record being edited) derived from it.
//
// All mutations go through a Store, which serializes them, persists the
// full snapshot through a storage.Backend and publishes events on its
// Dispatcher. A persistence failure is returned to the caller, but the
// in-memory state stays authoritative for the running process.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
	"github.com/JonMunkholm/dryerlog/internal/storage"
)

// Storage keys.
const (
	RecordsKey   = "dryerRecords"
	goldenPrefix = "goldenBatchId_"
)

// GoldenKey returns the storage key of model's golden batch pointer.
func GoldenKey(model string) string {
	return goldenPrefix + model
}

var (
	// ErrNotFound is returned for ids that are not in the store.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence wraps backend failures.
	ErrPersistence = errors.New("persistence failed")
)

// Store is the record collection. Construct with New.
type Store struct {
	mu       sync.Mutex
	backend  storage.Backend
	catalog  *schema.Catalog
	events   *Dispatcher
	log      *slog.Logger
	collator *collate.Collator

	records []record.Record
	view    View
	filter  Filter
	sort    Sort
	page    int
	golden  string
	editing string
}

// Option configures a Store.
type Option func(*Store)

// WithDispatcher publishes events on d instead of a private dispatcher.
func WithDispatcher(d *Dispatcher) Option {
	return func(s *Store) { s.events = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithLocale sets the collation locale of text sorting (default zh-Hant).
func WithLocale(tag language.Tag) Option {
	return func(s *Store) { s.collator = collate.New(tag) }
}

// New loads the snapshot from backend and returns the store. The initial
// view is the evaluation-team category of the catalog's default model.
//
// When the snapshot cannot be read or decoded, New still returns a usable
// empty store, together with an error wrapping ErrPersistence.
func New(ctx context.Context, backend storage.Backend, cat *schema.Catalog, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		catalog: cat,
		events:  NewDispatcher(),
		log:     slog.Default(),
		view:    View{Category: record.EvaluationTeam, Model: cat.DefaultModel()},
		sort:    DefaultSort,
		page:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.collator == nil {
		s.collator = collate.New(language.TraditionalChinese)
	}
	s.log = s.log.With("component", "store")

	loadErr := s.load(ctx)
	if err := s.loadGolden(ctx); err != nil && loadErr == nil {
		loadErr = err
	}
	if loadErr != nil {
		s.log.Error("load snapshot failed", "error", loadErr)
	}
	return s, loadErr
}

// Events returns the dispatcher the store publishes on.
func (s *Store) Events() *Dispatcher {
	return s.events
}

// Catalog returns the field catalog the store validates against.
func (s *Store) Catalog() *schema.Catalog {
	return s.catalog
}

func (s *Store) load(ctx context.Context) error {
	b, err := s.backend.Get(ctx, RecordsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read records: %w", ErrPersistence, err)
	}

	var docs []map[string]any
	if err := json.Unmarshal(b, &docs); err != nil {
		return fmt.Errorf("%w: decode records: %w", ErrPersistence, err)
	}
	for _, d := range docs {
		if d == nil {
			continue
		}
		r := record.Record(d)
		if r.ID() == "" {
			r.SetID(record.NewID())
		}
		s.records = append(s.records, r)
	}
	s.log.Info("records loaded", "count", len(s.records))
	return nil
}

func (s *Store) loadGolden(ctx context.Context) error {
	b, err := s.backend.Get(ctx, GoldenKey(s.view.Model))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.golden = ""
		return nil
	case err != nil:
		s.golden = ""
		return fmt.Errorf("%w: read golden batch: %w", ErrPersistence, err)
	}
	s.golden = string(b)
	return nil
}

func (s *Store) saveRecords(ctx context.Context) error {
	b, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("%w: encode records: %w", ErrPersistence, err)
	}
	if err := s.backend.Set(ctx, RecordsKey, b); err != nil {
		return fmt.Errorf("%w: write records: %w", ErrPersistence, err)
	}
	return nil
}

func (s *Store) saveGolden(ctx context.Context) error {
	key := GoldenKey(s.view.Model)
	var err error
	if s.golden == "" {
		err = s.backend.Delete(ctx, key)
	} else {
		err = s.backend.Set(ctx, key, []byte(s.golden))
	}
	if err != nil {
		return fmt.Errorf("%w: write golden batch: %w", ErrPersistence, err)
	}
	return nil
}

// persisted turns a save error into the events and error a mutation
// reports. On success it returns the events of a successful mutation.
func (s *Store) persisted(err error, success string) ([]Event, error) {
	if err != nil {
		s.log.Error("persist failed", "error", err)
		return []Event{s.updatedLocked(), Notice{Level: LevelError, Text: "Failed to save local data."}}, err
	}
	evs := []Event{s.updatedLocked()}
	if success != "" {
		evs = append(evs, Notice{Level: LevelSuccess, Text: success})
	}
	return evs, nil
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

func (s *Store) notFound(id string) error {
	s.events.Publish(Notice{Level: LevelError, Text: "The record no longer exists."})
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// prepare canonicalizes r and refreshes its derived fields.
func (s *Store) prepare(r record.Record) {
	r.Canonicalize()
	s.catalog.Recompute(r)
}

// Add validates r and stores a copy as a new unsynced record. A missing or
// already used id is replaced. Returns the stored record.
func (s *Store) Add(ctx context.Context, r record.Record) (record.Record, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidInput)
	}
	rec := r.Clone()
	s.prepare(rec)
	if err := s.catalog.ValidateRecord(rec); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if rec.ID() == "" || s.indexLocked(rec.ID()) >= 0 {
		rec.SetID(record.NewID())
	}
	rec.SetSynced(false)
	s.records = append([]record.Record{rec}, s.records...)
	evs, err := s.persisted(s.saveRecords(ctx), "Record added.")
	out := rec.Clone()
	s.mu.Unlock()

	s.events.Publish(evs...)
	s.log.Info("record added", "id", out.ID(), "model", out.Model())
	return out, err
}

// Update shallow-merges r over the stored record with the same id and
// marks it unsynced. The merged record is validated before it replaces the
// stored one.
func (s *Store) Update(ctx context.Context, r record.Record) (record.Record, error) {
	if r == nil || r.ID() == "" {
		return nil, fmt.Errorf("%w: record id required", ErrInvalidInput)
	}

	s.mu.Lock()
	i := s.indexLocked(r.ID())
	if i < 0 {
		s.mu.Unlock()
		return nil, s.notFound(r.ID())
	}
	merged := s.records[i].Clone()
	merged.Merge(r.Clone())
	s.prepare(merged)
	if err := s.catalog.ValidateRecord(merged); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	merged.SetSynced(false)
	s.records[i] = merged
	evs, err := s.persisted(s.saveRecords(ctx), "Record updated.")
	out := merged.Clone()
	s.mu.Unlock()

	s.events.Publish(evs...)
	s.log.Info("record updated", "id", out.ID())
	return out, err
}

// Delete removes the record with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return s.notFound(id)
	}
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	var pre []Event
	if s.editing == id {
		s.editing = ""
		pre = append(pre, EditCleared{})
	}
	evs, err := s.persisted(s.saveRecords(ctx), "")
	if err == nil {
		evs = append(evs, Notice{Level: LevelInfo, Text: "Record deleted."})
	}
	s.mu.Unlock()

	s.events.Publish(append(pre, evs...)...)
	s.log.Info("record deleted", "id", id)
	return err
}

// MergeImported adds records from an import. Every record gets a fresh id
// when its id is missing or already in use, is canonicalized, recomputed
// and marked unsynced. The whole store is then re-sorted newest first.
// Existing records are never modified. Returns the number added.
func (s *Store) MergeImported(ctx context.Context, recs []record.Record) (int, error) {
	if len(recs) == 0 {
		s.events.Publish(Notice{Level: LevelInfo, Text: "The imported file has no records to add."})
		return 0, nil
	}

	s.mu.Lock()
	seen := make(map[string]bool, len(s.records)+len(recs))
	for _, r := range s.records {
		seen[r.ID()] = true
	}
	added := make([]record.Record, 0, len(recs))
	for _, in := range recs {
		if in == nil {
			continue
		}
		r := in.Clone()
		if r.ID() == "" || seen[r.ID()] {
			r.SetID(record.NewID())
		}
		seen[r.ID()] = true
		s.prepare(r)
		r.SetSynced(false)
		added = append(added, r)
	}
	s.records = append(added, s.records...)
	record.SortNewestFirst(s.records)

	evs, err := s.persisted(s.saveRecords(ctx), fmt.Sprintf("Imported %d records.", len(added)))
	s.mu.Unlock()

	s.events.Publish(evs...)
	s.log.Info("records merged", "count", len(added))
	return len(added), err
}

// ReplaceAll replaces the whole collection with an authoritative snapshot.
// Records are marked synced, given ids where missing (or duplicated) and
// canonicalized. A nil slice is rejected without touching the store. When
// the snapshot is not empty the view switches to the first record's
// category and model.
func (s *Store) ReplaceAll(ctx context.Context, recs []record.Record) error {
	if recs == nil {
		s.events.Publish(Notice{Level: LevelError, Text: "Load failed: the file is not a record array."})
		return fmt.Errorf("%w: not a record array", ErrInvalidInput)
	}

	next := make([]record.Record, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, in := range recs {
		if in == nil {
			continue
		}
		r := in.Clone()
		if r.ID() == "" || seen[r.ID()] {
			r.SetID(record.NewID())
		}
		seen[r.ID()] = true
		s.prepare(r)
		r.SetSynced(true)
		next = append(next, r)
	}

	s.mu.Lock()
	s.records = next
	s.editing = ""
	saveErr := s.saveRecords(ctx)

	var pre []Event
	if len(next) > 0 {
		v := View{Category: next[0].Category(), Model: next[0].Model()}
		s.view = v
		s.page = 1
		if err := s.loadGolden(ctx); err != nil && saveErr == nil {
			saveErr = err
		}
		pre = append(pre, ViewSwitched{View: v})
	}
	evs, err := s.persisted(saveErr, fmt.Sprintf("Master database loaded: %d records.", len(next)))
	s.mu.Unlock()

	s.events.Publish(append(pre, evs...)...)
	s.log.Info("records replaced", "count", len(next))
	return err
}

// ClearAll removes every record and the active model's golden pointer.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.records = nil
	s.editing = ""
	s.golden = ""
	err := errors.Join(s.saveRecords(ctx), s.saveGolden(ctx))
	evs, err := s.persisted(err, "")
	if err == nil {
		evs = append(evs, Notice{Level: LevelInfo, Text: "All data cleared."})
	}
	s.mu.Unlock()

	s.events.Publish(append([]Event{EditCleared{}}, evs...)...)
	s.log.Info("records cleared")
	return err
}

// Get returns a copy of the record with id.
func (s *Store) Get(id string) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.records[i].Clone(), nil
}

// All returns a copy of every record in storage order.
func (s *Store) All() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return record.CloneAll(s.records)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// RawChart returns the raw time-series blob attached to a record. Records
// without samples report ErrNotFound.
func (s *Store) RawChart(id string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 || !s.records[i].HasRawChart() {
		return nil, fmt.Errorf("%w: no raw chart data for %s", ErrNotFound, id)
	}
	return s.records[i].Clone()[record.KeyRawChart], nil
}

// AttachRawChart stores a raw time-series blob on a record and marks it
// unsynced. The rest of the record is kept as stored and is not validated,
// so legacy records accept a chart too.
func (s *Store) AttachRawChart(ctx context.Context, id string, blob map[string]any) error {
	chart := record.Record{record.KeyRawChart: blob}.Clone()[record.KeyRawChart]

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return s.notFound(id)
	}
	rec := s.records[i].Clone()
	rec[record.KeyRawChart] = chart
	rec.SetSynced(false)
	s.records[i] = rec
	evs, err := s.persisted(s.saveRecords(ctx), "Record updated.")
	s.mu.Unlock()

	s.events.Publish(evs...)
	s.log.Info("raw chart stored", "id", id)
	return err
}

// Unsynced returns copies of every record created or edited locally.
func (s *Store) Unsynced() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []record.Record
	for _, r := range s.records {
		if !r.Synced() {
			out = append(out, r.Clone())
		}
	}
	return out
}

// MarkSynced flags the given records as synced. Unknown ids are ignored.
func (s *Store) MarkSynced(ctx context.Context, ids []string) error {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.Lock()
	n := 0
	for _, r := range s.records {
		if want[r.ID()] && !r.Synced() {
			r.SetSynced(true)
			n++
		}
	}
	evs, err := s.persisted(s.saveRecords(ctx), "")
	s.mu.Unlock()

	s.events.Publish(evs...)
	s.log.Info("records marked synced", "count", n)
	return err
}
