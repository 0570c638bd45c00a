package schema

// validation.go checks a record against its model's field descriptors before
// it is saved.
//
// Validation covers the control fields (category, model) and, for every
// field active in the record's category:
//  1. Required fields must hold a non-blank value
//  2. Numeric fields must hold a number when set
//  3. Fields with a rule must satisfy it (see RuleSet)
//
// Calculated fields are skipped: they are recomputed, never entered.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// ErrValidation matches any error returned by ValidateRecord.
var ErrValidation = errors.New("validation failed")

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field label or control key
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every problem found in one record.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// ValidateRecord returns ValidationErrors listing every problem, or nil.
func (c *Catalog) ValidateRecord(r record.Record) error {
	var errs ValidationErrors

	cat := r.Category()
	if !cat.Valid() {
		errs = append(errs, ValidationError{Field: record.KeyCategory, Value: string(cat), Message: "unsupported record type"})
	}
	model := r.Model()
	if !c.Supported(model) {
		errs = append(errs, ValidationError{Field: record.KeyModel, Value: model, Message: "unsupported machine model"})
	}
	if len(errs) > 0 {
		return errs
	}

	for _, d := range c.fields[model] {
		if d.Calculated || !d.AppliesTo(cat) {
			continue
		}
		if ve, ok := c.validateField(d, d.DataKey.Get(r, nil)); !ok {
			errs = append(errs, ve)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Catalog) validateField(d Descriptor, v any) (ValidationError, bool) {
	name := d.Label
	if name == "" {
		name = d.ID
	}

	if isBlank(v) {
		if d.Required {
			return ValidationError{Field: name, Message: "required field is empty"}, false
		}
		return ValidationError{}, true
	}

	if !d.Numeric() && d.Validation == "" {
		return ValidationError{}, true
	}

	f, ok := record.ToFloat(v)
	if !ok {
		return ValidationError{Field: name, Value: fmt.Sprint(v), Message: "must be a number"}, false
	}
	if d.Validation == "" {
		return ValidationError{}, true
	}

	pass, err := c.rules.Check(d.Validation, f)
	if err != nil {
		return ValidationError{Field: name, Value: fmt.Sprint(v), Message: err.Error()}, false
	}
	if !pass {
		return ValidationError{Field: name, Value: fmt.Sprint(v), Message: ruleMessage(d.Validation)}, false
	}
	return ValidationError{}, true
}

func ruleMessage(rule string) string {
	switch rule {
	case "percentage":
		return "must be between 0 and 100"
	case "nonNegative":
		return "must not be negative"
	default:
		return fmt.Sprintf("fails rule %q", rule)
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
