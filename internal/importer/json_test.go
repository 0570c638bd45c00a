package importer

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr error
	}{
		{"array", `[{"id":"a","dryerModel":"VT8"},{"id":"b"}]`, 2, nil},
		{"null elements dropped", `[{"id":"a"}, null]`, 1, nil},
		{"empty array", `[]`, 0, nil},
		{"with BOM", "\ufeff[{\"id\":\"a\"}]", 1, nil},
		{"object", `{"id":"a"}`, 0, ErrNotArray},
		{"null", `null`, 0, ErrNotArray},
		{"truncated", `[{"id":`, 0, ErrInvalidJSON},
		{"non-object element", `[1]`, 0, ErrInvalidJSON},
		{"empty", ``, 0, ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := DecodeSnapshot(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeSnapshot: %v", err)
			}
			if len(recs) != tt.wantLen {
				t.Errorf("records = %d, want %d", len(recs), tt.wantLen)
			}
		})
	}
}

func TestDecodeSnapshotKeepsFieldsVerbatim(t *testing.T) {
	recs, err := DecodeSnapshot(strings.NewReader(`[{"id":"a","dryerModel":"VT8","legacyField":{"x":1}}]`))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if recs[0].Model() != "VT8" {
		t.Errorf("model = %q, want raw VT8", recs[0].Model())
	}
	if recs[0].Get("legacyField.x", nil) != 1.0 {
		t.Error("legacy field lost")
	}
}
