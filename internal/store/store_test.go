package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
	"github.com/JonMunkholm/dryerlog/internal/storage"
)

func TestAdd(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	events := capture(s)

	in := evalRecord("rec-1", "2024-01-01T08:00")
	in.SetSynced(true)
	got, err := s.Add(ctx, in)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.ID() != "rec-1" || got.Synced() {
		t.Errorf("stored = id %q synced %v, want rec-1 unsynced", got.ID(), got.Synced())
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	raw, err := backend.Get(ctx, RecordsKey)
	if err != nil {
		t.Fatalf("backend.Get: %v", err)
	}
	var saved []map[string]any
	if err := json.Unmarshal(raw, &saved); err != nil || len(saved) != 1 {
		t.Errorf("persisted = %s (%v), want one record", raw, err)
	}
	if events.count("view-updated") != 1 || len(events.notices()) != 1 {
		t.Errorf("events = %+v", events.events)
	}

	in.Set("remark", "changed after add")
	if stored, _ := s.Get("rec-1"); stored.Remark() != "" {
		t.Error("store shares the caller's record")
	}
}

func TestAddRejectsInvalidRecord(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Add(context.Background(), evalRecord("", ""))
	if !errors.Is(err, schema.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestAddReplacesDuplicateID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, err := s.Add(ctx, evalRecord("dup", "2024-01-01T08:00")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Add(ctx, evalRecord("dup", "2024-01-02T08:00"))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID() == "dup" || got.ID() == "" {
		t.Errorf("second id = %q, want a fresh id", got.ID())
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.ReplaceAll(ctx, []record.Record{evalRecord("a", "2024-01-01T08:00")}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Update(ctx, record.Record{record.KeyID: "a", record.KeyRemark: "checked"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Remark() != "checked" || got.Timestamp() != "2024-01-01T08:00" {
		t.Errorf("merged = %v", got)
	}
	if got.Synced() {
		t.Error("updated record should be unsynced")
	}

	_, err = s.Update(ctx, record.Record{record.KeyID: "missing", record.KeyRemark: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	_, err = s.Update(ctx, record.Record{record.KeyID: "a", record.KeyTimestamp: ""})
	if !errors.Is(err, schema.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if r, _ := s.Get("a"); r.Timestamp() != "2024-01-01T08:00" {
		t.Error("invalid update modified the record")
	}
}

func TestDeleteClearsEditing(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.ReplaceAll(ctx, []record.Record{evalRecord("a", "2024-01-01T08:00"), evalRecord("b", "")}); err != nil {
		t.Fatal(err)
	}
	events := capture(s)

	if _, err := s.BeginEdit("a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Editing() != "" {
		t.Errorf("Editing = %q, want cleared", s.Editing())
	}
	if events.count("edit-cleared") != 1 {
		t.Error("EditCleared not published")
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMergeImportedTwice(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	batch := []record.Record{
		evalRecord("a", "2024-01-01T08:00"),
		evalRecord("b", "2024-03-01T08:00"),
		evalRecord("", ""),
	}
	batch[0][record.KeyModel] = "VT8"
	batch[1][record.KeyCategory] = "評價TEAM用"

	for round := 1; round <= 2; round++ {
		n, err := s.MergeImported(ctx, batch)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if n != 3 || s.Len() != 3*round {
			t.Fatalf("round %d: added %d, Len %d", round, n, s.Len())
		}
	}

	all := s.All()
	seen := make(map[string]bool)
	for _, r := range all {
		if r.ID() == "" || seen[r.ID()] {
			t.Fatalf("duplicate or empty id %q", r.ID())
		}
		seen[r.ID()] = true
		if r.Synced() {
			t.Errorf("%s: merged record marked synced", r.ID())
		}
		if r.Model() != "vt8" || r.Category() != record.EvaluationTeam {
			t.Errorf("%s: model %q category %q", r.ID(), r.Model(), r.Category())
		}
	}

	if all[0].Timestamp() != "2024-03-01T08:00" || all[len(all)-1].Timestamp() != "" {
		t.Errorf("store not sorted newest first: first %q last %q", all[0].Timestamp(), all[len(all)-1].Timestamp())
	}
	if batch[0].ID() != "a" {
		t.Error("MergeImported modified the caller's records")
	}
}

func TestMergeImportedEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	events := capture(s)

	n, err := s.MergeImported(context.Background(), nil)
	if n != 0 || err != nil {
		t.Errorf("MergeImported(nil) = %d, %v", n, err)
	}
	if ns := events.notices(); len(ns) != 1 || ns[0].Level != LevelInfo {
		t.Errorf("notices = %v, want one info", ns)
	}
}

func TestReplaceAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	events := capture(s)

	a := record.New(record.EvaluationTeam, "vt5")
	a[record.KeyTimestamp] = "2024-01-01T08:00"
	a[record.KeyCategory] = "評價TEAM用"
	a[record.KeyModel] = "VT5"
	b := record.New(record.ConditionSetting, "vt8")
	b.Set("hmiData.line_speed", 12.5)
	b.Set("legacyField", "kept")

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode([]record.Record{a, b}); err != nil {
		t.Fatal(err)
	}
	decoded, err := importer.DecodeSnapshot(&buf)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if err := s.ReplaceAll(ctx, decoded); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	all := s.All()
	if !slices.Equal(ids(all), []string{a.ID(), b.ID()}) {
		t.Fatalf("ids = %v, want %v", ids(all), []string{a.ID(), b.ID()})
	}
	if all[0].Model() != "vt5" || all[0].Category() != record.EvaluationTeam {
		t.Errorf("first = %q/%q, want vt5/evaluationTeam", all[0].Model(), all[0].Category())
	}
	if all[1].Category() != record.ConditionSetting || all[1].Get("legacyField", nil) != "kept" {
		t.Errorf("second = %v", all[1])
	}
	for _, r := range all {
		if !r.Synced() {
			t.Errorf("%s not synced", r.ID())
		}
	}

	if v := s.View(); v.Model != "vt5" || v.Category != record.EvaluationTeam {
		t.Errorf("View = %+v, want first record's view", v)
	}
	if events.count("view-switched") != 1 {
		t.Error("ViewSwitched not published")
	}
}

func TestReplaceAllKeepsLegacyCategory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	legacy := evalRecord("old", "2023-01-01T08:00")
	legacy[record.KeyCategory] = "評價TEAM用(舊)"
	exact := evalRecord("new", "2024-01-01T08:00")
	exact[record.KeyCategory] = "條件設定用"
	if err := s.ReplaceAll(ctx, []record.Record{exact, legacy}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	tests := []struct {
		id   string
		want record.Category
	}{
		{"new", record.ConditionSetting},
		{"old", record.Category("評價team用(舊)")},
	}
	for _, tt := range tests {
		got, err := s.Get(tt.id)
		if err != nil {
			t.Fatalf("Get(%s): %v", tt.id, err)
		}
		if got.Category() != tt.want {
			t.Errorf("%s category = %q, want %q", tt.id, got.Category(), tt.want)
		}
	}
}

func TestAddZeroesMaintenanceVolume(t *testing.T) {
	s, _ := newTestStore(t)

	r := record.New(record.EvaluationTeam, "vt7")
	r[record.KeyTimestamp] = "2024-01-01T08:00"
	r.Set("airVolumes.circulation2.speed", 1.0)
	r.Set("airVolumes.circulation2.temp", 20.0)
	r.Set("airVolumes.circulation2.volume", 999.0)

	got, err := s.Add(context.Background(), r)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if v := got.Get("airVolumes.circulation2.volume", nil); v != 0.0 {
		t.Errorf("stored volume = %v, want 0", v)
	}
}

func TestReplaceAllRejectsNil(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.ReplaceAll(ctx, []record.Record{evalRecord("a", "")}); err != nil {
		t.Fatal(err)
	}

	if err := s.ReplaceAll(ctx, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want existing record kept", s.Len())
	}

	if err := s.ReplaceAll(ctx, []record.Record{}); err != nil {
		t.Errorf("empty snapshot: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestPersistenceFailureKeepsState(t *testing.T) {
	s := newStoreOn(t, failingBackend{storage.NewMemory()})
	events := capture(s)

	_, err := s.Add(context.Background(), evalRecord("a", "2024-01-01T08:00"))
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, errDiskFull) {
		t.Fatalf("error = %v, want ErrPersistence wrapping the backend error", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want in-memory record kept", s.Len())
	}
	ns := events.notices()
	if len(ns) != 1 || ns[0].Level != LevelError {
		t.Errorf("notices = %v, want one error", ns)
	}
}

func TestNewLoadsSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	snapshot := `[{"id":"a","recordType":"evaluationTeam","dryerModel":"vt8"},null,{"recordType":"evaluationTeam","dryerModel":"vt8"}]`
	if err := backend.Set(ctx, RecordsKey, []byte(snapshot)); err != nil {
		t.Fatal(err)
	}
	if err := backend.Set(ctx, GoldenKey("vt8"), []byte("a")); err != nil {
		t.Fatal(err)
	}

	s := newStoreOn(t, backend)
	all := s.All()
	if len(all) != 2 || all[0].ID() != "a" || all[1].ID() == "" {
		t.Errorf("loaded ids = %v", ids(all))
	}
	if s.GoldenBatch() != "a" {
		t.Errorf("GoldenBatch = %q, want a", s.GoldenBatch())
	}
}

func TestNewWithCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	if err := backend.Set(ctx, RecordsKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	cat, err := schema.Default()
	if err != nil {
		t.Fatal(err)
	}

	s, err := New(ctx, backend, cat)
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
	if s == nil || s.Len() != 0 {
		t.Fatal("want a usable empty store")
	}
}

func TestUnsyncedAndMarkSynced(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.ReplaceAll(ctx, []record.Record{evalRecord("old", "2024-01-01T08:00")}); err != nil {
		t.Fatal(err)
	}
	added, err := s.Add(ctx, evalRecord("new", "2024-01-02T08:00"))
	if err != nil {
		t.Fatal(err)
	}

	un := s.Unsynced()
	if len(un) != 1 || un[0].ID() != added.ID() {
		t.Fatalf("Unsynced = %v, want [%s]", ids(un), added.ID())
	}
	if err := s.MarkSynced(ctx, []string{added.ID(), "unknown"}); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if un := s.Unsynced(); len(un) != 0 {
		t.Errorf("Unsynced after MarkSynced = %v", ids(un))
	}
}

func TestRawChart(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.ReplaceAll(ctx, []record.Record{evalRecord("a", "2024-01-01T08:00")}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.RawChart("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	blob := map[string]any{"data": []any{map[string]any{"CH01": 1.0}}}
	if err := s.AttachRawChart(ctx, "a", blob); err != nil {
		t.Fatalf("AttachRawChart: %v", err)
	}
	got, err := s.RawChart("a")
	if err != nil {
		t.Fatalf("RawChart: %v", err)
	}
	if m, ok := got.(map[string]any); !ok || len(m["data"].([]any)) != 1 {
		t.Errorf("RawChart = %v", got)
	}
}

func TestRawChartOnLegacyRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	legacy := evalRecord("a", "2023-01-01T08:00")
	legacy[record.KeyCategory] = "舊資料"
	if err := s.ReplaceAll(ctx, []record.Record{legacy}); err != nil {
		t.Fatal(err)
	}

	blob := map[string]any{"data": []any{map[string]any{"CH01": 1.0}}}
	if err := s.AttachRawChart(ctx, "a", blob); err != nil {
		t.Fatalf("AttachRawChart: %v", err)
	}
	got, _ := s.Get("a")
	if !got.HasRawChart() || got.Synced() {
		t.Errorf("record = %v, want raw chart attached and unsynced", got)
	}
	if got.Category() != record.Category("舊資料") {
		t.Errorf("category = %q, want kept", got.Category())
	}

	if err := s.AttachRawChart(ctx, "missing", blob); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	if err := s.ReplaceAll(ctx, []record.Record{evalRecord("a", "2024-01-01T08:00")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetGoldenBatch(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if s.Len() != 0 || s.GoldenBatch() != "" {
		t.Errorf("Len = %d, golden = %q", s.Len(), s.GoldenBatch())
	}
	if _, err := backend.Get(ctx, GoldenKey("vt8")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("golden key still stored: %v", err)
	}
}

func TestDispatcherUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	var got []string
	unsub := d.Subscribe(func(e Event) { got = append(got, e.EventName()) })

	d.Publish(Notice{Text: "one"}, EditCleared{})
	unsub()
	d.Publish(Notice{Text: "two"})

	if !slices.Equal(got, []string{"notice", "edit-cleared"}) {
		t.Errorf("got %v", got)
	}
}
