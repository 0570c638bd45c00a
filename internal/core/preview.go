package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/record"
)

// HeaderPreview tells what one file header maps to.
type HeaderPreview struct {
	Header  string `json:"header"`
	Match   string `json:"match"` // exact, prefixed, control or none
	FieldID string `json:"fieldId,omitempty"`
	DataKey string `json:"dataKey,omitempty"`
	Label   string `json:"label,omitempty"`
}

// PreviewResponse is the read-only analysis of a record CSV.
type PreviewResponse struct {
	File             string          `json:"file"`
	Model            string          `json:"model"`
	Headers          []HeaderPreview `json:"headers"`
	Dropped          []string        `json:"dropped"`
	TotalRows        int             `json:"totalRows"`
	ValidRows        int             `json:"validRows"`
	Skipped          []SkippedRow    `json:"skipped"`
	RowErrors        []RowError      `json:"rowErrors"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
}

// Sample limits
const (
	maxSkippedSamples  = 20
	maxRowErrorSamples = 20
)

// PreviewCSV reports how the headers of a record CSV map to the fields of
// model and which rows would be imported or skipped, without changing the
// store. An empty model means the model of the first importable row, or the
// catalog default. Malformed rows are listed rather than returned as an
// error.
func (s *Service) PreviewCSV(ctx context.Context, src importer.Source, model string) (*PreviewResponse, error) {
	start := time.Now()

	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	rc, err := s.open(src)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", src.Name, err)
	}

	header, err := readHeader(data)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", src.Name, parseError(err))
	}

	resp := &PreviewResponse{File: src.Name, Dropped: []string{}, Skipped: []SkippedRow{}, RowErrors: []RowError{}}
	res, err := s.parser.Parse(ctx, bytes.NewReader(data), src.Name)
	var report *ParseReport
	switch {
	case errors.As(err, &report):
		resp.RowErrors = report.Errors[:min(len(report.Errors), maxRowErrorSamples)]
	case err != nil:
		return nil, fmt.Errorf("preview %s: %w", src.Name, parseError(err))
	default:
		resp.TotalRows = res.Rows
		resp.ValidRows = len(res.Records)
		for i, sk := range res.Skipped {
			if i == maxSkippedSamples {
				break
			}
			resp.Skipped = append(resp.Skipped, SkippedRow{Line: sk.Line, Reason: sk.Reason})
		}
	}

	resp.Model = record.NormalizeModel(model)
	if resp.Model == "" {
		resp.Model = s.catalog.DefaultModel()
		if res != nil && len(res.Records) > 0 {
			resp.Model = res.Records[0].Model()
		}
	}
	if !s.catalog.Supported(resp.Model) {
		return nil, fmt.Errorf("%w: model %q", ErrInvalidInput, model)
	}

	mapper := s.parser.Normalizer().Mapper(resp.Model)
	for _, h := range header {
		h = strings.TrimSpace(h)
		hp := HeaderPreview{Header: h}
		switch h {
		case importer.HeaderCategory, importer.HeaderModel, importer.HeaderRTO, importer.HeaderHeating:
			hp.Match = "control"
		default:
			d, m := mapper.Resolve(h)
			hp.Match = m.String()
			if m == importer.MatchNone {
				resp.Dropped = append(resp.Dropped, h)
			} else {
				hp.FieldID, hp.DataKey, hp.Label = d.ID, d.DataKey.String(), d.Label
			}
		}
		resp.Headers = append(resp.Headers, hp)
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

func readHeader(data []byte) ([]string, error) {
	cr := csv.NewReader(importer.NewTextReader(bytes.NewReader(data)))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, importer.ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	return header, nil
}
