package store

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/collate"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// PageSize is the number of records per page.
const PageSize = 20

// View selects the records shown: one category of one model.
type View struct {
	Category record.Category `json:"recordType"`
	Model    string          `json:"dryerModel"`
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort orders records by the value at Key.
type Sort struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort is newest first.
var DefaultSort = Sort{Key: record.KeyTimestamp, Direction: Desc}

// Filter narrows the records of a view. Zero fields do not filter.
type Filter struct {
	RTOStatus     record.Flag `json:"rtoStatus"`
	HeatingStatus record.Flag `json:"heatingStatus"`
	Remark        string      `json:"remark"`    // case-insensitive substring
	StartDate     string      `json:"startDate"` // YYYY-MM-DD, inclusive
	EndDate       string      `json:"endDate"`   // YYYY-MM-DD, inclusive
	Field         string      `json:"field"`     // path of the numeric range field
	Min           string      `json:"min"`
	Max           string      `json:"max"`
}

// Validate checks the range field path.
func (f Filter) Validate() error {
	if f.Field == "" {
		return nil
	}
	if _, err := record.ParsePath(f.Field); err != nil {
		return fmt.Errorf("%w: filter field: %w", ErrInvalidInput, err)
	}
	return nil
}

// Query is a stateless request for one page.
type Query struct {
	View   View
	Filter Filter
	Sort   Sort
	Page   int
}

// Page is one page of a view.
type Page struct {
	Records     []record.Record `json:"records"`
	CurrentPage int             `json:"currentPage"`
	TotalPages  int             `json:"totalPages"`
	Total       int             `json:"total"`
	View        View            `json:"view"`
	Sort        Sort            `json:"sort"`
	GoldenID    string          `json:"goldenBatchId,omitempty"`
	EditingID   string          `json:"editingId,omitempty"`
}

// match reports whether r passes the view and filter.
func (f Filter) match(v View, r record.Record) bool {
	if r.Category() != v.Category || r.Model() != v.Model {
		return false
	}
	if f.RTOStatus != record.FlagUnset && r.RTOStatus() != f.RTOStatus {
		return false
	}
	if f.HeatingStatus != record.FlagUnset && r.HeatingStatus() != f.HeatingStatus {
		return false
	}
	if f.Remark != "" {
		rm := r.Remark()
		if rm == "" || !strings.Contains(strings.ToLower(rm), strings.ToLower(f.Remark)) {
			return false
		}
	}
	if f.StartDate != "" || f.EndDate != "" {
		ts := r.Timestamp()
		if ts == "" {
			return false
		}
		day := ts[:min(len(ts), 10)]
		if f.StartDate != "" && day < f.StartDate {
			return false
		}
		if f.EndDate != "" && day > f.EndDate {
			return false
		}
	}
	if lo, hi, ok := f.rangeBounds(); ok {
		v, isNum := record.ToFloat(record.Get(r, f.Field, nil))
		if !isNum || v < lo || v > hi {
			return false
		}
	}
	return true
}

// rangeBounds returns the numeric range. ok is false when no range is
// requested or a bound is not a number.
func (f Filter) rangeBounds() (lo, hi float64, ok bool) {
	if f.Field == "" || (f.Min == "" && f.Max == "") {
		return 0, 0, false
	}
	lo, hi = math.Inf(-1), math.Inf(1)
	if f.Min != "" {
		n, isNum := record.ParseNumber(f.Min)
		if !isNum {
			return 0, 0, false
		}
		lo = n
	}
	if f.Max != "" {
		n, isNum := record.ParseNumber(f.Max)
		if !isNum {
			return 0, 0, false
		}
		hi = n
	}
	return lo, hi, true
}

// filterSorted returns the records of the view that pass f, ordered by s.
// The input slice is not modified.
func filterSorted(all []record.Record, v View, f Filter, s Sort, coll *collate.Collator) []record.Record {
	var out []record.Record
	for _, r := range all {
		if f.match(v, r) {
			out = append(out, r)
		}
	}
	if s.Key != "" {
		sortRecords(out, s, coll)
	}
	return out
}

// sortRecords sorts by the value at s.Key. Absent values sort last in both
// directions. Two non-numeric strings compare by collation; everything else
// compares as numbers, with unparseable values after all numbers.
func sortRecords(recs []record.Record, s Sort, coll *collate.Collator) {
	keys := make([]any, len(recs))
	for i, r := range recs {
		keys[i] = record.Get(r, s.Key, nil)
	}
	idx := make([]int, len(recs))
	for i := range idx {
		idx[i] = i
	}
	desc := s.Direction == Desc

	sort.SliceStable(idx, func(i, j int) bool {
		return lessValue(keys[idx[i]], keys[idx[j]], desc, coll)
	})

	sorted := make([]record.Record, len(recs))
	for i, k := range idx {
		sorted[i] = recs[k]
	}
	copy(recs, sorted)
}

// Sort ranks: numbers first, then non-numeric text, then any other value.
const (
	rankNumber = iota
	rankText
	rankOther
)

func sortKey(v any) (n float64, text string, rank int) {
	if s, ok := v.(string); ok {
		if record.IsNumericText(s) {
			if n, ok := record.ToFloat(s); ok {
				return n, "", rankNumber
			}
		}
		return 0, s, rankText
	}
	if n, ok := record.ToFloat(v); ok {
		return n, "", rankNumber
	}
	return 0, "", rankOther
}

// lessValue orders absent values last, then by rank. Direction applies
// within a rank only.
func lessValue(a, b any, desc bool, coll *collate.Collator) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}

	na, sa, ra := sortKey(a)
	nb, sb, rb := sortKey(b)
	if ra != rb {
		return ra < rb
	}
	switch ra {
	case rankNumber:
		if desc {
			return na > nb
		}
		return na < nb
	case rankText:
		c := coll.CompareString(sa, sb)
		if desc {
			return c > 0
		}
		return c < 0
	default:
		return false
	}
}

// paginate slices one page. Pages past the end reset to the first page.
func paginate(recs []record.Record, page int) (slice []record.Record, current, total int) {
	total = (len(recs) + PageSize - 1) / PageSize
	if total == 0 {
		total = 1
	}
	if page > total || page < 1 {
		page = 1
	}
	start := (page - 1) * PageSize
	end := min(start+PageSize, len(recs))
	return recs[start:end], page, total
}
