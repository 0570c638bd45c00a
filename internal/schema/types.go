// Package schema provides the per-model field configuration: which fields a
// dryer model records, where each value lives inside a record, how it is
// labelled in CSV files, and how it is validated.
package schema

import (
	"fmt"
	"slices"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// FieldType represents the input type of a field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumber
	FieldSelect
	FieldDateTime
	FieldTextArea
)

var fieldTypeNames = map[string]FieldType{
	"text":     FieldText,
	"number":   FieldNumber,
	"select":   FieldSelect,
	"datetime": FieldDateTime,
	"textarea": FieldTextArea,
}

func parseFieldType(s string) (FieldType, error) {
	if s == "" {
		return FieldText, nil
	}
	ft, ok := fieldTypeNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown field type %q", s)
	}
	return ft, nil
}

func (t FieldType) String() string {
	for name, ft := range fieldTypeNames {
		if ft == t {
			return name
		}
	}
	return "text"
}

// Descriptor describes one field of a model.
type Descriptor struct {
	ID          string
	DataKey     record.Path
	CSVHeader   string
	Label       string
	Type        FieldType
	RecordTypes []record.Category
	Calculated  bool // derived from other fields, never read from input
	InTable     bool // shown in tables and exported
	Order       int  // 0 means unordered
	Required    bool
	Validation  string // named rule or CEL expression over `value`
}

// Header returns the CSV column name: the CSV header, or the label if none.
func (d Descriptor) Header() string {
	if d.CSVHeader != "" {
		return d.CSVHeader
	}
	return d.Label
}

// AppliesTo reports whether the field is used by records of category c.
func (d Descriptor) AppliesTo(c record.Category) bool {
	return slices.Contains(d.RecordTypes, c)
}

// Numeric reports whether input values are coerced to numbers.
func (d Descriptor) Numeric() bool {
	return d.Type == FieldNumber || d.Calculated
}

// SortOrder returns Order, with unordered fields placed last.
func (d Descriptor) SortOrder() int {
	if d.Order == 0 {
		return 9999
	}
	return d.Order
}

// AirPoint is an air-volume measurement location of a model.
type AirPoint struct {
	ID     string
	Label  string
	Duct   string  // duct spec, e.g. "φ0.55" or "0.65*0.65"
	Area   float64 // m², derived from Duct when not configured
	Normal bool    // other points always get a volume of 0
}

// TechPoint is a technical temperature probe point shared by all models.
type TechPoint struct {
	ID    string
	Label string
}

// RecordKey returns the actualTemps key for the point.
func (p TechPoint) RecordKey() string {
	return record.TempPointKey(p.ID)
}
