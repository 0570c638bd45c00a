// Package importer reads dryer records from CSV exports and JSON snapshots.
//
// Record CSV files are parsed strictly: every malformed row is collected and
// any malformed row rejects the whole file. Raw time-series files (see
// ParseRawChart) use the same reader with a lenient row policy.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
)

// ContextCheckInterval is how often (in rows) parsing checks for cancellation.
var ContextCheckInterval = 100

var (
	// ErrMalformed matches a *ParseReport.
	ErrMalformed = errors.New("malformed csv")
	// ErrNoHeader is returned for empty files.
	ErrNoHeader = errors.New("missing header row")
	// ErrNoValidData is returned when no row produced a record.
	ErrNoValidData = errors.New("no valid data")
)

// RowError is a problem with one CSV line.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseReport lists every malformed row of a rejected file.
type ParseReport struct {
	File   string
	Errors []RowError
}

func (p *ParseReport) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d malformed row(s)", len(p.Errors))
	for i, e := range p.Errors {
		if i == 3 {
			fmt.Fprintf(&b, "; and %d more", len(p.Errors)-i)
			break
		}
		b.WriteString("; ")
		b.WriteString(e.Error())
	}
	return b.String()
}

// Is lets errors.Is(err, ErrMalformed) match.
func (p *ParseReport) Is(target error) bool {
	return target == ErrMalformed
}

// Result is the outcome of parsing one record CSV file.
type Result struct {
	File    string
	Rows    int // data rows read
	Records []record.Record
	Skipped []*SkipError
}

// Parser reads record CSV files for the models of a catalog.
type Parser struct {
	norm *Normalizer
}

// NewParser returns a parser using cat for header mapping.
func NewParser(cat *schema.Catalog) *Parser {
	return &Parser{norm: NewNormalizer(cat)}
}

// Normalizer returns the parser's row normalizer.
func (p *Parser) Normalizer() *Normalizer {
	return p.norm
}

// Parse reads a record CSV. The file is rejected with a *ParseReport when
// any row is malformed (bad quoting, wrong field count). Rows without a
// usable category or model are skipped and listed in Result.Skipped. A file
// whose rows were all skipped yields an empty Result and no error.
func (p *Parser) Parse(ctx context.Context, r io.Reader, name string) (*Result, error) {
	header, rows, rowErrs, err := readRows(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(rowErrs) > 0 {
		return nil, &ParseReport{File: name, Errors: rowErrs}
	}

	res := &Result{File: name, Rows: len(rows)}
	for _, row := range rows {
		rec, err := p.norm.Normalize(Row{Line: row.line, Header: header, Values: row.values})
		if err != nil {
			var skip *SkipError
			if !errors.As(err, &skip) {
				return nil, err
			}
			slog.Warn("csv row skipped", "file", name, "line", skip.Line, "reason", skip.Reason)
			res.Skipped = append(res.Skipped, skip)
			continue
		}
		res.Records = append(res.Records, rec)
	}

	slog.Info("csv parsed", "file", name, "rows", res.Rows, "records", len(res.Records), "skipped", len(res.Skipped))
	return res, nil
}

type rawRow struct {
	line   int
	values []string
}

// readRows reads the header and every data row in a single pass. Rows that
// fail to parse or whose field count differs from the header are returned
// as RowErrors; reading continues past them.
func readRows(ctx context.Context, r io.Reader) ([]string, []rawRow, []RowError, error) {
	cr := csv.NewReader(NewTextReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = cleanHeader(header[i])
	}

	var rows []rawRow
	var rowErrs []RowError
	for n := 0; ; n++ {
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, nil, err
			}
		}

		values, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, nil, nil, fmt.Errorf("read csv: %w", err)
			}
			rowErrs = append(rowErrs, RowError{Line: pe.StartLine, Reason: pe.Err.Error()})
			continue
		}

		line, _ := cr.FieldPos(0)
		if isBlankRow(values) {
			continue
		}
		if len(values) != len(header) {
			rowErrs = append(rowErrs, RowError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(values)),
			})
			continue
		}
		rows = append(rows, rawRow{line: line, values: values})
	}
	return header, rows, rowErrs, nil
}

func isBlankRow(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
