package core

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/dryerlog/internal/export"
	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/store"
)

// ReportFormat selects the reporting export file type.
type ReportFormat string

const (
	ReportCSV  ReportFormat = "csv"
	ReportXLSX ReportFormat = "xlsx"
)

// ParseReportFormat accepts "csv" and "xlsx" in any case; "" means csv.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ReportCSV, nil
	case ReportCSV, ReportXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: report format %q", ErrInvalidInput, s)
}

// ExportModelCSV renders the records of the active view, filtered and
// sorted as displayed, with the columns of their model.
func (s *Service) ExportModelCSV() (*Artifact, error) {
	recs := s.store.VisibleRecords()
	if len(recs) == 0 {
		s.notify(store.LevelInfo, "No records to export.")
		return nil, export.ErrNoRecords
	}

	data, err := render(recs, func(w io.Writer, rs []record.Record) error {
		return export.WriteModelCSV(w, s.catalog, rs)
	})
	if err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	name := export.ModelCSVName(recs[0].Model(), s.now())
	s.notify(store.LevelSuccess, fmt.Sprintf("Exported %d records.", len(recs)))
	s.log.Info("csv exported", "file", name, "records", len(recs))
	return &Artifact{Name: name, ContentType: contentTypeCSV, Count: len(recs), Data: data}, nil
}

// ExportReport renders every record of a master snapshot with the
// cross-model column layout. With no source the whole store is exported.
func (s *Service) ExportReport(ctx context.Context, src importer.Source, format ReportFormat) (*Artifact, error) {
	var recs []record.Record
	if src.Open == nil {
		recs = s.store.All()
	} else {
		_, done, err := s.begin(ctx)
		if err != nil {
			s.fail("Report export", err)
			return nil, err
		}
		recs, err = s.decode(src)
		done()
		if err != nil {
			s.fail("Report export", err)
			return nil, fmt.Errorf("export report: %w", err)
		}
	}

	a := &Artifact{Count: len(recs)}
	write := func(w io.Writer, rs []record.Record) error {
		return export.WriteReportCSV(w, s.catalog, rs)
	}
	a.Name, a.ContentType = export.ReportCSVName, contentTypeCSV
	if format == ReportXLSX {
		write = func(w io.Writer, rs []record.Record) error {
			return export.WriteReportXLSX(w, s.catalog, rs)
		}
		a.Name, a.ContentType = export.ReportXLSXName, contentTypeXLSX
	}

	data, err := render(recs, write)
	if err != nil {
		return nil, fmt.Errorf("export report: %w", err)
	}
	a.Data = data
	s.notify(store.LevelSuccess, fmt.Sprintf("Exported %d records for reporting.", len(recs)))
	s.log.Info("report exported", "file", a.Name, "records", len(recs))
	return a, nil
}

// ExportDaily renders every unsynced record as the daily delta file.
// Records stay unsynced until MarkExported confirms the file was delivered.
func (s *Service) ExportDaily() (*Artifact, error) {
	recs := s.store.Unsynced()
	if len(recs) == 0 {
		s.notify(store.LevelInfo, "No new records to export.")
		return nil, export.ErrNoRecords
	}

	ids := make([]string, len(recs))
	for i, r := range recs {
		r.Canonicalize()
		ids[i] = r.ID()
	}
	data, err := render(recs, export.WriteJSON)
	if err != nil {
		return nil, fmt.Errorf("export daily: %w", err)
	}
	return &Artifact{
		Name:        export.DailyJSONName(s.now()),
		ContentType: contentTypeJSON,
		Count:       len(recs),
		IDs:         ids,
		Data:        data,
	}, nil
}

// MarkExported marks the records of a daily artifact as synced.
func (s *Service) MarkExported(ctx context.Context, a *Artifact) error {
	if err := s.store.MarkSynced(ctx, a.IDs); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	s.notify(store.LevelSuccess, fmt.Sprintf("Today's new records (%d) exported.", len(a.IDs)))
	s.log.Info("daily exported", "file", a.Name, "records", len(a.IDs))
	return nil
}

// ExportAll renders the whole store as a master snapshot.
func (s *Service) ExportAll() (*Artifact, error) {
	recs := s.store.All()
	data, err := render(recs, export.WriteJSON)
	if err != nil {
		return nil, fmt.Errorf("export all: %w", err)
	}
	return &Artifact{Name: export.MasterJSONName, ContentType: contentTypeJSON, Count: len(recs), Data: data}, nil
}
