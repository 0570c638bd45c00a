package importer

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/dryerlog/internal/schema"
)

// Control columns handled by the normalizer rather than by descriptors.
const (
	HeaderCategory = "類型"
	HeaderModel    = "機台型號"
	HeaderRTO      = "RTO啟用狀態"
	HeaderHeating  = "升溫狀態"
)

func isControlHeader(h string) bool {
	switch h {
	case HeaderCategory, HeaderModel, HeaderRTO, HeaderHeating:
		return true
	}
	return false
}

// Match tells how a file header was resolved.
type Match int

const (
	MatchNone Match = iota
	MatchExact
	MatchPrefixed // the two sides differ only by the "<MODEL>_" prefix
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchPrefixed:
		return "prefixed"
	default:
		return "none"
	}
}

// Mapper resolves CSV header text to the field descriptors of one model.
//
// Headers written by older releases differ from the current ones only by a
// "<MODEL>_" prefix, in either direction, so a header that does not match
// exactly is retried with the prefix removed from the canonical header or
// from the file header.
type Mapper struct {
	prefix   string
	exact    map[string]schema.Descriptor
	stripped map[string]schema.Descriptor
}

// NewMapper indexes the descriptors of model. Descriptors declared earlier
// win when two share a header.
func NewMapper(cat *schema.Catalog, model string) *Mapper {
	m := &Mapper{
		prefix:   strings.ToUpper(model) + "_",
		exact:    make(map[string]schema.Descriptor),
		stripped: make(map[string]schema.Descriptor),
	}
	for _, d := range cat.Fields(model) {
		if d.DataKey.IsZero() || d.CSVHeader == "" {
			continue
		}
		h := cleanHeader(d.CSVHeader)
		if _, ok := m.exact[h]; !ok {
			m.exact[h] = d
		}
		if rest, ok := strings.CutPrefix(h, m.prefix); ok && rest != "" {
			if _, dup := m.stripped[rest]; !dup {
				m.stripped[rest] = d
			}
		}
	}
	return m
}

// Resolve returns the descriptor a file header maps to.
func (m *Mapper) Resolve(header string) (schema.Descriptor, Match) {
	h := cleanHeader(header)
	if h == "" {
		return schema.Descriptor{}, MatchNone
	}
	if d, ok := m.exact[h]; ok {
		return d, MatchExact
	}
	if d, ok := m.stripped[h]; ok {
		return d, MatchPrefixed
	}
	if rest, ok := strings.CutPrefix(h, m.prefix); ok {
		if d, ok := m.exact[rest]; ok {
			return d, MatchPrefixed
		}
	}
	return schema.Descriptor{}, MatchNone
}

// cleanHeader trims a header cell and puts it in NFC form so that headers
// typed on different systems compare equal.
func cleanHeader(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
