package importer

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
)

// Row is one CSV data row with its header.
type Row struct {
	Line   int
	Header []string
	Values []string
}

// Value returns the cell under header h (trimmed match), or "".
func (r Row) Value(h string) string {
	for i, name := range r.Header {
		if strings.TrimSpace(name) == h && i < len(r.Values) {
			return r.Values[i]
		}
	}
	return ""
}

// SkipError reports a row that was left out of an import.
type SkipError struct {
	Line   int
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("line %d skipped: %s", e.Line, e.Reason)
}

// Normalizer turns raw CSV rows into canonical records.
type Normalizer struct {
	catalog *schema.Catalog

	mu      sync.Mutex
	mappers map[string]*Mapper
}

// NewNormalizer returns a normalizer for the models of cat.
func NewNormalizer(cat *schema.Catalog) *Normalizer {
	return &Normalizer{catalog: cat, mappers: make(map[string]*Mapper)}
}

// Mapper returns the cached header mapper of model.
func (n *Normalizer) Mapper(model string) *Mapper {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.mappers[model]
	if !ok {
		m = NewMapper(n.catalog, model)
		n.mappers[model] = m
	}
	return m
}

// Normalize builds a record from row. Rows without a category, or naming a
// model the catalog does not support, return a *SkipError. A missing model
// falls back to the catalog default. Derived fields are recomputed, so
// volume and spread cells in the file are ignored.
func (n *Normalizer) Normalize(row Row) (record.Record, error) {
	cat := record.NormalizeCategory(row.Value(HeaderCategory))
	if cat == "" {
		return nil, &SkipError{Line: row.Line, Reason: "missing record type"}
	}

	model := record.NormalizeModel(row.Value(HeaderModel))
	if model == "" {
		model = n.catalog.DefaultModel()
	}
	if !n.catalog.Supported(model) {
		return nil, &SkipError{Line: row.Line, Reason: fmt.Sprintf("unsupported model %q", model)}
	}

	r := record.New(cat, model)
	r.SetSynced(true)
	mapper := n.Mapper(model)

	for i, header := range row.Header {
		if i >= len(row.Values) {
			break
		}
		h := strings.TrimSpace(header)
		raw := row.Values[i]

		switch h {
		case HeaderRTO:
			r[record.KeyRTOStatus] = record.FlagFromDisplay(strings.TrimSpace(raw)).Value()
			continue
		case HeaderHeating:
			r[record.KeyHeatingStatus] = record.FlagFromDisplay(strings.TrimSpace(raw)).Value()
			continue
		}
		if isControlHeader(h) {
			continue
		}

		d, match := mapper.Resolve(h)
		if match == MatchNone {
			continue
		}
		d.DataKey.Set(r, CoerceCell(d, raw))
	}

	n.catalog.Recompute(r)
	return r, nil
}

// CoerceCell converts a CSV cell for descriptor d. Blank cells and the
// text "null" become nil; numeric and calculated fields are parsed as
// numbers (nil when unparseable or infinite); everything else is kept as trimmed text.
func CoerceCell(d schema.Descriptor, raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	if !d.Numeric() {
		return s
	}
	f, ok := record.ParseNumber(s)
	if !ok || math.IsInf(f, 0) {
		return nil
	}
	return f
}
