package record

import "strings"

// Category tells whether a record is an evaluation-team measurement or a
// condition-setting snapshot.
type Category string

const (
	EvaluationTeam   Category = "evaluationTeam"
	ConditionSetting Category = "conditionSetting"
)

// Localized text found in CSV files and older snapshots.
const (
	evaluationMarker = "評價"
	conditionMarker  = "條件設定"

	evaluationLabel = "評價TEAM用"
	conditionLabel  = "條件設定用"
)

// Categories lists the canonical categories in display order.
var Categories = []Category{EvaluationTeam, ConditionSetting}

// CanonicalCategory maps canonical tokens (any case) and the exact
// localized labels to a canonical category. Anything else is lower-cased
// and kept as legacy text. Stored records are canonicalized with it.
func CanonicalCategory(s string) Category {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, string(EvaluationTeam)), s == evaluationLabel:
		return EvaluationTeam
	case strings.EqualFold(s, string(ConditionSetting)), s == conditionLabel:
		return ConditionSetting
	default:
		return Category(strings.ToLower(s))
	}
}

// NormalizeCategory is the lenient form for CSV cells and user input: text
// containing a localized category marker also counts.
func NormalizeCategory(s string) Category {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, string(EvaluationTeam)):
		return EvaluationTeam
	case strings.EqualFold(s, string(ConditionSetting)):
		return ConditionSetting
	case strings.Contains(s, evaluationMarker):
		return EvaluationTeam
	case strings.Contains(s, conditionMarker):
		return ConditionSetting
	default:
		return Category(strings.ToLower(s))
	}
}

// Valid reports whether c is one of the canonical categories.
func (c Category) Valid() bool {
	return c == EvaluationTeam || c == ConditionSetting
}

// Display returns the localized label used in exported files.
func (c Category) Display() string {
	switch c {
	case EvaluationTeam:
		return evaluationLabel
	case ConditionSetting:
		return conditionLabel
	default:
		return string(c)
	}
}
