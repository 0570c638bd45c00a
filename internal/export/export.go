// Package export renders record sets as CSV, XLSX and JSON files.
//
// Two column layouts are supported. The model layout uses the table fields
// of the first record's model and category. The report layout is the union
// of every model's table fields, deduplicated by header text with the first
// model declaring a header winning, and ordered by the catalog order.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
)

// BOM prefixes every CSV export so spreadsheet tools detect UTF-8.
const BOM = "\ufeff"

// File names.
const (
	ReportCSVName  = "power_bi_export_full.csv"
	ReportXLSXName = "power_bi_export_full.xlsx"
	MasterJSONName = "all_records.json"
)

// ErrNoRecords is returned when an export that needs records gets none.
var ErrNoRecords = errors.New("no records to export")

// ModelCSVName returns the single-model CSV file name.
func ModelCSVName(model string, now time.Time) string {
	return fmt.Sprintf("乾燥機數據_%s_%s.csv", model, now.UTC().Format("20060102150405"))
}

// DailyJSONName returns the daily delta file name.
func DailyJSONName(now time.Time) string {
	return fmt.Sprintf("tablet-data-%s.json", now.Format("2006-01-02"))
}

// column is one exported column.
type column struct {
	header string
	key    record.Path
	models []string // nil: applies to every record
}

func (c column) appliesTo(r record.Record, cat *schema.Catalog) bool {
	if c.models == nil || !cat.Supported(r.Model()) {
		return true
	}
	return slices.Contains(c.models, r.Model())
}

// modelColumns returns the table fields of the first record's model and
// category.
func modelColumns(cat *schema.Catalog, recs []record.Record) []column {
	first := recs[0]
	fields := cat.TableFields(first.Model(), first.Category())
	cols := make([]column, len(fields))
	for i, d := range fields {
		cols[i] = column{header: d.Header(), key: d.DataKey}
	}
	return cols
}

// reportColumns returns the cross-model union. Headers that different
// models map to different fields are logged.
func reportColumns(cat *schema.Catalog) []column {
	fields, conflicts := cat.ReportFields()
	for _, h := range conflicts {
		slog.Warn("report header maps to different fields across models", "header", h)
	}
	cols := make([]column, len(fields))
	for i, rc := range fields {
		cols[i] = column{header: rc.Header(), key: rc.DataKey, models: rc.Models}
	}
	return cols
}

func headers(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

// cellValue returns the exported value of one cell: display text for the
// control fields, the raw value otherwise. nil renders as an empty cell.
func cellValue(c column, r record.Record) any {
	switch c.key.String() {
	case record.KeyCategory:
		return r.Category().Display()
	case record.KeyModel:
		return strings.ToUpper(r.Model())
	case record.KeyRTOStatus:
		return r.RTOStatus().Display()
	case record.KeyHeatingStatus:
		return r.HeatingStatus().Display()
	}
	return c.key.Get(r, nil)
}

// cellText formats a cell value for CSV.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
