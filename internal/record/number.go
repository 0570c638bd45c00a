package record

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var numberPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// ParseNumber reads the longest leading decimal number in s, ignoring
// leading whitespace, so "12.5℃" yields 12.5. It reports false when s does
// not start with a number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	m := numberPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	m = strings.TrimSuffix(m, ".")
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsNumericText reports whether the whole of s reads as a number. Blank text
// counts as numeric (it converts to zero).
func IsNumericText(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	switch s {
	case "Infinity", "+Infinity", "-Infinity":
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// ToFloat converts a stored value to a float. Strings use ParseNumber. NaN,
// booleans, nil and nested values report false.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, ok := ParseNumber(t)
		if !ok {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

var timeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp formats records are written with. Unknown
// or empty input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
