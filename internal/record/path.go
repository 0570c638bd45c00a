package record

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned when a field path does not address the record shape.
var ErrInvalidPath = errors.New("invalid field path")

// knownRoots lists the top-level keys a field path may start with.
var knownRoots = map[string]bool{
	KeyID:            true,
	KeyCategory:      true,
	KeyModel:         true,
	KeyTimestamp:     true,
	KeySynced:        true,
	KeyAirVolumes:    true,
	KeyActualTemps:   true,
	KeyRecorder1:     true,
	KeyRecorder2:     true,
	KeyAirExternal:   true,
	KeyDamperOpening: true,
	KeyHMI:           true,
	KeyRTOStatus:     true,
	KeyHeatingStatus: true,
	KeyRemark:        true,
	KeyRawChart:      true,
}

// Get walks doc along the dot-delimited path. It returns def when any
// segment is missing or nil; zero values such as 0, false and "" are
// returned as found.
func Get(doc map[string]any, path string, def any) any {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return def
		}
		cur = m[part]
	}
	if cur == nil {
		return def
	}
	return cur
}

// Set assigns value at path, creating or replacing every intermediate level
// that is missing or not a mapping.
func Set(doc map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	last := parts[len(parts)-1]
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(cur[part])
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[last] = value
}

// Get reads path from the record.
func (r Record) Get(path string, def any) any { return Get(r, path, def) }

// Set writes value at path in the record.
func (r Record) Set(path string, value any) { Set(r, path, value) }

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, t != nil
	case Record:
		return t, t != nil
	default:
		return nil, false
	}
}

// Path is a field path checked against the record shape.
type Path struct {
	raw  string
	segs []string
}

// ParsePath validates s: no empty segments and a known root key.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if seg == "" {
			return Path{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, s)
		}
	}
	if !knownRoots[segs[0]] {
		return Path{}, fmt.Errorf("%w: %q does not start with a record field", ErrInvalidPath, s)
	}
	return Path{raw: s, segs: segs}, nil
}

// MustParsePath is ParsePath for constants; it panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return p.raw }

// IsZero reports whether p is the zero Path.
func (p Path) IsZero() bool { return p.raw == "" }

// Root returns the first segment.
func (p Path) Root() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[0]
}

// Get reads the path from r.
func (p Path) Get(r Record, def any) any {
	if p.IsZero() {
		return def
	}
	return Get(r, p.raw, def)
}

// Set writes value at the path in r.
func (p Path) Set(r Record, value any) {
	if p.IsZero() {
		return
	}
	Set(r, p.raw, value)
}
