package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
)

// WriteModelCSV writes recs with the columns of the first record's model
// and category. Returns ErrNoRecords for an empty set.
func WriteModelCSV(w io.Writer, cat *schema.Catalog, recs []record.Record) error {
	if len(recs) == 0 {
		return ErrNoRecords
	}
	cols := modelColumns(cat, recs)
	if err := writeCSV(w, cols, recs, func(column, record.Record) bool { return true }); err != nil {
		return err
	}
	slog.Info("model csv exported", "model", recs[0].Model(), "records", len(recs), "columns", len(cols))
	return nil
}

// WriteReportCSV writes recs with the cross-model report columns. Cells of
// columns the record's model does not declare are empty.
func WriteReportCSV(w io.Writer, cat *schema.Catalog, recs []record.Record) error {
	cols := reportColumns(cat)
	applies := func(c column, r record.Record) bool { return c.appliesTo(r, cat) }
	if err := writeCSV(w, cols, recs, applies); err != nil {
		return err
	}
	slog.Info("report csv exported", "records", len(recs), "columns", len(cols))
	return nil
}

func writeCSV(w io.Writer, cols []column, recs []record.Record, applies func(column, record.Record) bool) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(headers(cols)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(cols))
	for _, r := range recs {
		for i, c := range cols {
			row[i] = ""
			if applies(c, r) {
				row[i] = cellText(cellValue(c, r))
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
