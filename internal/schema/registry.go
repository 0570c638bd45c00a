package schema

import (
	"slices"
	"sort"
	"strings"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// Models returns the supported models in catalog order.
func (c *Catalog) Models() []string {
	return slices.Clone(c.models)
}

// DefaultModel returns the model assumed when a row names none.
func (c *Catalog) DefaultModel() string {
	return c.defaultModel
}

// Supported reports whether model (canonical form) is configured.
func (c *Catalog) Supported(model string) bool {
	return slices.Contains(c.models, model)
}

// Fields returns every field descriptor of a model in declaration order.
// Returns nil for unknown models.
func (c *Catalog) Fields(model string) []Descriptor {
	return slices.Clone(c.fields[model])
}

// Field looks up a descriptor by id.
func (c *Catalog) Field(model, id string) (Descriptor, bool) {
	for _, d := range c.fields[model] {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// TableFields returns the exported columns of a model for one category.
func (c *Catalog) TableFields(model string, cat record.Category) []Descriptor {
	var out []Descriptor
	for _, d := range c.fields[model] {
		if d.InTable && d.AppliesTo(cat) {
			out = append(out, d)
		}
	}
	return out
}

// ReportColumn is one column of the cross-model report.
type ReportColumn struct {
	Descriptor
	Models []string // models declaring this header
}

// AppliesToModel reports whether model declares this column.
func (rc ReportColumn) AppliesToModel(model string) bool {
	return slices.Contains(rc.Models, model)
}

// ReportFields returns the union of exported columns across all models,
// deduplicated by header text (the first model declaring a header wins) and
// ordered by SortOrder. Conflicts lists headers that different models map
// to different data keys; those columns carry only the winner's key.
func (c *Catalog) ReportFields() (cols []ReportColumn, conflicts []string) {
	index := make(map[string]int)
	conflicted := make(map[string]bool)

	for _, model := range c.models {
		for _, d := range c.fields[model] {
			if !d.InTable {
				continue
			}
			h := d.Header()
			i, ok := index[h]
			if !ok {
				index[h] = len(cols)
				cols = append(cols, ReportColumn{Descriptor: d, Models: []string{model}})
				continue
			}
			if !slices.Contains(cols[i].Models, model) {
				cols[i].Models = append(cols[i].Models, model)
			}
			if cols[i].DataKey.String() != d.DataKey.String() && !conflicted[h] {
				conflicted[h] = true
				conflicts = append(conflicts, h)
			}
		}
	}

	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i].SortOrder() < cols[j].SortOrder()
	})
	return cols, conflicts
}

// AirPoints returns the air-volume measurement points of a model.
func (c *Catalog) AirPoints(model string) []AirPoint {
	return slices.Clone(c.airPoints[model])
}

// AirLabel returns the display label of an air point, or id when unknown.
func (c *Catalog) AirLabel(model, id string) string {
	for _, p := range c.airPoints[model] {
		if p.ID == id {
			return p.Label
		}
	}
	return id
}

// TechPoints returns the technical temperature points.
func (c *Catalog) TechPoints() []TechPoint {
	return slices.Clone(c.techPoints)
}

// ShortLabel returns the label without the common technical-point prefix.
func (p TechPoint) ShortLabel() string {
	return strings.TrimPrefix(p.Label, techLabelPrefix)
}

// Rules returns the compiled validation rules.
func (c *Catalog) Rules() *RuleSet {
	return c.rules
}
