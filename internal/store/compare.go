package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// TempLineNames names the five readings of a technical temperature point.
var TempLineNames = []string{"1(右)", "2", "3(中)", "4", "5(左)"}

const noTimestamp = "無時間"

// Comparison is a side-by-side analysis of two records.
type Comparison struct {
	Air   *AirComparison `json:"airVolumeData"` // nil when neither record has volumes
	Temps TempComparison `json:"tempData"`
	InfoA string         `json:"recordA"`
	InfoB string         `json:"recordB"`
}

// AirComparison pairs the computed air volumes of both records.
type AirComparison struct {
	Labels []string  `json:"labels"`
	A      []float64 `json:"a"`
	B      []float64 `json:"b"`
	RTOA   bool      `json:"rtoA"`
	RTOB   bool      `json:"rtoB"`
}

// TempComparison holds five lines per record over the technical points.
type TempComparison struct {
	Labels []string   `json:"labels"`
	Lines  []TempLine `json:"lines"`
}

// TempLine is one reading position of one record; nil marks no reading.
type TempLine struct {
	Record int        `json:"record"` // 1 or 2
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// Compare analyzes exactly two records.
func (s *Store) Compare(ids []string) (*Comparison, error) {
	if len(ids) != 2 {
		return nil, fmt.Errorf("%w: compare needs exactly two records, got %d", ErrInvalidInput, len(ids))
	}

	s.mu.Lock()
	ia, ib := s.indexLocked(ids[0]), s.indexLocked(ids[1])
	if ia < 0 || ib < 0 {
		s.mu.Unlock()
		s.events.Publish(Notice{Level: LevelError, Text: "The selected records are not valid for comparison."})
		return nil, fmt.Errorf("%w: compare %s, %s", ErrNotFound, ids[0], ids[1])
	}
	a, b := s.records[ia].Clone(), s.records[ib].Clone()
	s.mu.Unlock()

	return &Comparison{
		Air:   s.compareAir(a, b),
		Temps: s.compareTemps(a, b),
		InfoA: recordInfo(a),
		InfoB: recordInfo(b),
	}, nil
}

func (s *Store) compareAir(a, b record.Record) *AirComparison {
	var keys []string
	seen := make(map[string]bool)
	for _, r := range []record.Record{a, b} {
		m, _ := r[record.KeyAirVolumes].(map[string]any)
		for _, k := range s.airKeys(r.Model(), m) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	out := &AirComparison{RTOA: a.RTOStatus() == record.FlagYes, RTOB: b.RTOStatus() == record.FlagYes}
	for _, k := range keys {
		path := record.KeyAirVolumes + "." + k + ".volume"
		va, okA := record.ToFloat(a.Get(path, nil))
		vb, okB := record.ToFloat(b.Get(path, nil))
		if !okA && !okB {
			continue
		}
		out.Labels = append(out.Labels, s.airLabel(a, b, k))
		out.A = append(out.A, va)
		out.B = append(out.B, vb)
	}
	if len(out.Labels) == 0 {
		return nil
	}
	return out
}

// airKeys lists the keys of m: the model's catalog points first, in
// catalog order, then any others sorted.
func (s *Store) airKeys(model string, m map[string]any) []string {
	var keys []string
	known := make(map[string]bool)
	for _, p := range s.catalog.AirPoints(model) {
		known[p.ID] = true
		if _, ok := m[p.ID]; ok {
			keys = append(keys, p.ID)
		}
	}
	var rest []string
	for k := range m {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

// airLabel prefers the second record's model label, as either model may
// declare the point.
func (s *Store) airLabel(a, b record.Record, key string) string {
	if l := s.catalog.AirLabel(b.Model(), key); l != key {
		return l
	}
	return s.catalog.AirLabel(a.Model(), key)
}

func (s *Store) compareTemps(a, b record.Record) TempComparison {
	points := s.catalog.TechPoints()
	tc := TempComparison{Labels: make([]string, len(points))}
	for i, p := range points {
		tc.Labels[i] = p.ShortLabel()
	}
	for n, r := range []record.Record{a, b} {
		for i, name := range TempLineNames {
			line := TempLine{Record: n + 1, Name: name, Values: make([]*float64, len(points))}
			for j, p := range points {
				path := fmt.Sprintf("%s.%s.val%d", record.KeyActualTemps, p.RecordKey(), i+1)
				if v, ok := record.ToFloat(r.Get(path, nil)); ok {
					line.Values[j] = &v
				}
			}
			tc.Lines = append(tc.Lines, line)
		}
	}
	return tc
}

func recordInfo(r record.Record) string {
	ts := r.Timestamp()
	if ts == "" {
		return noTimestamp
	}
	return strings.Replace(ts, "T", " ", 1)
}
