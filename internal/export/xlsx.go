package export

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
)

const reportSheet = "records"

// WriteReportXLSX writes the report layout as a workbook with a styled,
// frozen header row. Numbers are stored as numeric cells.
func WriteReportXLSX(w io.Writer, cat *schema.Catalog, recs []record.Record) error {
	cols := reportColumns(cat)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	hdr := make([]any, len(cols))
	for i, h := range headers(cols) {
		hdr[i] = h
	}
	if err := f.SetSheetRow(reportSheet, "A1", &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(cols) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(cols), 1)
		if err := f.SetCellStyle(reportSheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
		lastCol, _ := excelize.ColumnNumberToName(len(cols))
		f.SetColWidth(reportSheet, "A", lastCol, 16)
	}
	f.SetPanes(reportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for n, r := range recs {
		row := make([]any, len(cols))
		for i, c := range cols {
			if c.appliesTo(r, cat) {
				row[i] = xlsxValue(cellValue(c, r))
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, n+2)
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", n+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	slog.Info("report xlsx exported", "records", len(recs), "columns", len(cols))
	return nil
}

// xlsxValue keeps numbers numeric and renders everything else as text.
func xlsxValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return val
	default:
		return cellText(val)
	}
}
