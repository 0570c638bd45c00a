package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

var (
	// ErrNotArray is returned when a snapshot is valid JSON but not an array.
	ErrNotArray = errors.New("snapshot is not a record array")
	// ErrInvalidJSON wraps snapshot syntax and shape errors.
	ErrInvalidJSON = errors.New("invalid snapshot json")
)

// DecodeSnapshot reads a JSON array of records (all_records.json or a daily
// file). Records are returned as stored; callers canonicalize them. Null
// array elements are dropped.
func DecodeSnapshot(r io.Reader) ([]record.Record, error) {
	raw, err := io.ReadAll(NewTextReader(r))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidJSON)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: syntax error", ErrInvalidJSON)
	}
	if raw[0] != '[' {
		return nil, ErrNotArray
	}

	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	out := make([]record.Record, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		out = append(out, record.Record(d))
	}
	return out, nil
}
