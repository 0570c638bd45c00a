// Package record defines the dryer test record document and the helpers
// that read, write and canonicalize it.
//
// A Record is kept as a generic JSON document rather than a fixed struct so
// that fields written by older releases (or by models this build does not
// know about) survive a load/save cycle untouched. Typed accessors cover the
// control fields every record carries.
package record

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wire keys of the snapshot format.
const (
	KeyID            = "id"
	KeyCategory      = "recordType"
	KeyModel         = "dryerModel"
	KeyTimestamp     = "dateTime"
	KeySynced        = "isSynced"
	KeyAirVolumes    = "airVolumes"
	KeyActualTemps   = "actualTemps"
	KeyRecorder1     = "recorder1Data"
	KeyRecorder2     = "recorder2Data"
	KeyAirExternal   = "airExternalData"
	KeyDamperOpening = "damperOpeningData"
	KeyHMI           = "hmiData"
	KeyRTOStatus     = "rtoStatus"
	KeyHeatingStatus = "heatingStatus"
	KeyRemark        = "remark"
	KeyRawChart      = "rawChartData"
)

// groupKeys are the nested sections every new record starts with.
var groupKeys = []string{
	KeyAirVolumes,
	KeyActualTemps,
	KeyRecorder1,
	KeyRecorder2,
	KeyAirExternal,
	KeyDamperOpening,
	KeyHMI,
}

// Record is one saved measurement entry.
type Record map[string]any

// New returns an empty record with a fresh id and all nested sections present.
func New(category Category, model string) Record {
	r := Record{
		KeyID:       NewID(),
		KeyCategory: string(category),
		KeyModel:    NormalizeModel(model),
		KeySynced:   false,
		KeyRawChart: nil,
	}
	for _, k := range groupKeys {
		r[k] = map[string]any{}
	}
	return r
}

// NewID returns a random record identifier.
func NewID() string {
	return uuid.NewString()
}

// ID returns the record id or "" when absent.
func (r Record) ID() string {
	s, _ := r[KeyID].(string)
	return s
}

// SetID assigns the record id.
func (r Record) SetID(id string) { r[KeyID] = id }

// Category returns the stored category token.
func (r Record) Category() Category {
	s, _ := r[KeyCategory].(string)
	return Category(s)
}

// Model returns the stored machine model.
func (r Record) Model() string {
	s, _ := r[KeyModel].(string)
	return s
}

// Timestamp returns the raw dateTime text.
func (r Record) Timestamp() string {
	s, _ := r[KeyTimestamp].(string)
	return s
}

// Time parses the record timestamp. Records without a parseable timestamp
// report the zero time so that they order as the oldest entries.
func (r Record) Time() time.Time {
	return ParseTime(r.Timestamp())
}

// Date returns the YYYY-MM-DD portion of the timestamp, or "".
func (r Record) Date() string {
	ts := r.Timestamp()
	if len(ts) < 10 {
		return ""
	}
	return ts[:10]
}

// Synced reports whether the record came verbatim from a reference snapshot.
func (r Record) Synced() bool {
	b, _ := r[KeySynced].(bool)
	return b
}

// SetSynced sets the sync marker.
func (r Record) SetSynced(v bool) { r[KeySynced] = v }

// RTOStatus returns the RTO tri-state flag.
func (r Record) RTOStatus() Flag { return ParseFlag(r[KeyRTOStatus]) }

// HeatingStatus returns the heating tri-state flag.
func (r Record) HeatingStatus() Flag { return ParseFlag(r[KeyHeatingStatus]) }

// Remark returns the free-text remark.
func (r Record) Remark() string {
	s, _ := r[KeyRemark].(string)
	return s
}

// HasRawChart reports whether a raw time-series blob with samples is attached.
func (r Record) HasRawChart() bool {
	m, ok := asMap(r[KeyRawChart])
	if !ok {
		return false
	}
	rows, _ := m["data"].([]any)
	return len(rows) > 0
}

// Canonicalize lower-cases the model, maps the category to its canonical
// token and rewrites present status flags to "yes", "no" or null, in place.
// Non-string model and category values are left alone.
func (r Record) Canonicalize() {
	if s, ok := r[KeyModel].(string); ok {
		r[KeyModel] = NormalizeModel(s)
	}
	if s, ok := r[KeyCategory].(string); ok {
		r[KeyCategory] = string(CanonicalCategory(s))
	}
	for _, k := range []string{KeyRTOStatus, KeyHeatingStatus} {
		v, ok := r[k]
		if !ok {
			continue
		}
		f := ParseFlag(v)
		if s, isStr := v.(string); isStr && f == FlagUnset {
			f = FlagFromDisplay(s)
		}
		r[k] = f.Value()
	}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(cloneMap(r))
}

// Merge shallow-merges src over r.
func (r Record) Merge(src Record) {
	for k, v := range src {
		r[k] = v
	}
}

// NormalizeModel returns the canonical lower-cased model identifier.
func NormalizeModel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Record:
		return Record(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// CloneAll deep-copies a slice of records.
func CloneAll(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// SortNewestFirst orders records by timestamp, newest first. Records
// without a parseable timestamp sort as the oldest. The sort is stable.
func SortNewestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Time().After(recs[j].Time())
	})
}
