package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/store"
)

// AttachRawChart parses a raw time-series CSV and stores it on record id.
// Malformed rows are left out and reported in the returned chart.
func (s *Service) AttachRawChart(ctx context.Context, id string, src importer.Source) (*importer.RawChart, error) {
	if _, err := s.store.Get(id); err != nil {
		return nil, fmt.Errorf("attach raw chart: %w", err)
	}

	ctx, done, err := s.begin(ctx)
	if err != nil {
		s.fail("Raw data import", err)
		return nil, err
	}
	defer done()

	rc, err := s.open(src)
	if err != nil {
		s.fail("Raw data import", err)
		return nil, fmt.Errorf("attach raw chart: %w", err)
	}
	defer rc.Close()

	chart, err := importer.ParseRawChart(ctx, rc)
	if err != nil {
		err = parseError(err)
		s.fail("Raw data import", err)
		return nil, fmt.Errorf("attach raw chart %s: %w", src.Name, err)
	}
	if err := s.store.AttachRawChart(ctx, id, chart.Value()); err != nil {
		return nil, fmt.Errorf("attach raw chart: %w", err)
	}
	if n := len(chart.Errors); n > 0 {
		s.notify(store.LevelInfo, fmt.Sprintf("Raw data attached; %d malformed rows were left out.", n))
	}
	s.log.Info("raw chart attached", "id", id, "file", src.Name, "rows", len(chart.Rows), "bad_rows", len(chart.Errors))
	return chart, nil
}

// RawChartPlot returns the raw samples of record id laid out for plotting.
func (s *Service) RawChartPlot(id string) (importer.Plot, error) {
	v, err := s.store.RawChart(id)
	if err != nil {
		s.notify(store.LevelError, "This record has no valid raw chart data.")
		return importer.Plot{}, err
	}
	chart, ok := importer.RawChartFromValue(v)
	if !ok {
		s.notify(store.LevelError, "This record has no valid raw chart data.")
		return importer.Plot{}, fmt.Errorf("%w: no raw chart data for %s", ErrNotFound, id)
	}
	s.notify(store.LevelInfo, "Raw chart loaded.")
	return chart.Plot(), nil
}
