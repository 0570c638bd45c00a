package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// RawChannels are the recognized channel columns of a raw time-series file.
var RawChannels = []string{"CH01", "CH02", "CH03", "CH04", "CH05", "AVE"}

// RawSampleInterval is the logger's sampling period.
const RawSampleInterval = 10 * time.Second

// ErrNoChannels is returned when a raw file has none of RawChannels.
var ErrNoChannels = errors.New("no channel columns")

// RawChart is a parsed raw temperature log. It is stored on a record as an
// opaque blob (see Value) and carried through unchanged.
type RawChart struct {
	Fields []string
	Rows   []map[string]any // header -> float64, string or nil
	Errors []RowError
}

// ParseRawChart reads a raw time-series CSV leniently: malformed rows are
// reported in Errors and left out, non-numeric cells become nil samples.
// The header must contain at least one of RawChannels.
func ParseRawChart(ctx context.Context, r io.Reader) (*RawChart, error) {
	header, rows, rowErrs, err := readRows(ctx, r)
	if err != nil {
		return nil, err
	}
	chart := &RawChart{Fields: header, Errors: rowErrs}
	if len(chart.Channels()) == 0 {
		return nil, fmt.Errorf("%w: header must include at least one of %s",
			ErrNoChannels, strings.Join(RawChannels, ", "))
	}

	for _, row := range rows {
		m := make(map[string]any, len(header))
		for i, h := range header {
			if i >= len(row.values) {
				m[h] = nil
				continue
			}
			m[h] = rawCell(row.values[i])
		}
		chart.Rows = append(chart.Rows, m)
	}
	return chart, nil
}

func rawCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if record.IsNumericText(s) {
		if f, ok := record.ParseNumber(s); ok {
			return f
		}
	}
	return s
}

// Channels returns the recognized channel columns present, in RawChannels
// order.
func (c *RawChart) Channels() []string {
	var out []string
	for _, ch := range RawChannels {
		if slices.Contains(c.Fields, ch) {
			out = append(out, ch)
		}
	}
	return out
}

// Series is the samples of one channel; nil marks a missing sample.
type Series struct {
	Channel string     `json:"channel"`
	Samples []*float64 `json:"samples"`
}

// Plot is a raw chart laid out for plotting against elapsed time.
type Plot struct {
	ElapsedSeconds []int    `json:"elapsedSeconds"`
	Series         []Series `json:"series"`
}

// Plot returns one series per recognized channel.
func (c *RawChart) Plot() Plot {
	step := int(RawSampleInterval / time.Second)
	p := Plot{ElapsedSeconds: make([]int, len(c.Rows))}
	for i := range c.Rows {
		p.ElapsedSeconds[i] = i * step
	}
	for _, ch := range c.Channels() {
		s := Series{Channel: ch, Samples: make([]*float64, len(c.Rows))}
		for i, row := range c.Rows {
			if f, ok := row[ch].(float64); ok {
				s.Samples[i] = &f
			}
		}
		p.Series = append(p.Series, s)
	}
	return p
}

// Value returns the blob stored under a record's rawChartData key.
func (c *RawChart) Value() map[string]any {
	fields := make([]any, len(c.Fields))
	for i, f := range c.Fields {
		fields[i] = f
	}
	data := make([]any, len(c.Rows))
	for i, row := range c.Rows {
		data[i] = row
	}
	errs := make([]any, len(c.Errors))
	for i, e := range c.Errors {
		errs[i] = map[string]any{"row": float64(e.Line), "message": e.Reason}
	}
	return map[string]any{
		"data":   data,
		"errors": errs,
		"meta":   map[string]any{"fields": fields},
	}
}

// RawChartFromValue reads a blob written by Value (or by older releases,
// which used the same layout). It reports false when v holds no samples.
func RawChartFromValue(v any) (*RawChart, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	data, _ := m["data"].([]any)
	if len(data) == 0 {
		return nil, false
	}

	c := &RawChart{}
	if meta, ok := m["meta"].(map[string]any); ok {
		fields, _ := meta["fields"].([]any)
		for _, f := range fields {
			if s, ok := f.(string); ok {
				c.Fields = append(c.Fields, s)
			}
		}
	}
	for _, d := range data {
		row, ok := d.(map[string]any)
		if !ok {
			continue
		}
		c.Rows = append(c.Rows, row)
	}
	if len(c.Fields) == 0 && len(c.Rows) > 0 {
		for k := range c.Rows[0] {
			c.Fields = append(c.Fields, k)
		}
		slices.Sort(c.Fields)
	}
	if errs, ok := m["errors"].([]any); ok {
		for _, e := range errs {
			em, ok := e.(map[string]any)
			if !ok {
				continue
			}
			line, _ := record.ToFloat(em["row"])
			msg, _ := em["message"].(string)
			c.Errors = append(c.Errors, RowError{Line: int(line), Reason: msg})
		}
	}
	return c, true
}
