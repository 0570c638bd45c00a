package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
)

const testCatalog = `
version: 1
models: [vt1, vt8]
fields:
  - {id: recordType, dataKey: recordType, csvHeader: "類型", label: "類型", type: select, inTable: true, order: 1}
  - {id: dryerModel, dataKey: dryerModel, csvHeader: "機台型號", label: "機台型號", type: select, inTable: true, order: 2}
  - {id: dateTime, dataKey: dateTime, csvHeader: "日期時間", label: "日期時間", type: datetime, inTable: true, order: 3}
  - {id: rtoStatus, dataKey: rtoStatus, csvHeader: "RTO啟用狀態", label: "RTO", type: select, inTable: true, order: 4}
  - {id: heatingStatus, dataKey: heatingStatus, csvHeader: "升溫狀態", label: "升溫", type: select, inTable: true, order: 5}
  - {id: speed, dataKey: hmiData.speed, csvHeader: "{MODEL}_AirSpeed1", label: "AirSpeed1", type: number, inTable: true, order: 10}
  - {id: fan, dataKey: damperOpeningData.fan, csvHeader: "Fan", label: "Fan", type: number, inTable: true, order: 20, models: [vt8]}
  - {id: fanOld, dataKey: hmiData.fan, csvHeader: "Fan", label: "Fan", type: number, inTable: true, order: 20, models: [vt1]}
  - {id: setting, dataKey: hmiData.setting, csvHeader: "設定", label: "設定", type: text, inTable: true, order: 30, recordTypes: [conditionSetting]}
  - {id: hidden, dataKey: hmiData.hidden, csvHeader: "Hidden", label: "Hidden", type: text}
  - {id: note, dataKey: remark, label: "備註", type: textarea, inTable: true, order: 9000}
`

func mustCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	c, err := schema.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("schema.Parse: %v", err)
	}
	return c
}

func testRecords() []record.Record {
	r1 := record.New(record.EvaluationTeam, "vt8")
	r1[record.KeyTimestamp] = "2024-05-01T10:00"
	r1[record.KeyRTOStatus] = "yes"
	r1.Set("hmiData.speed", 12.5)
	r1.Set("hmiData.hidden", "x")
	r1[record.KeyRemark] = `say "hi", ok`

	r2 := record.New(record.ConditionSetting, "vt1")
	r2[record.KeyRTOStatus] = "no"
	r2.Set("hmiData.speed", 7.0)
	r2.Set("hmiData.fan", 3.0)
	r2.Set("hmiData.setting", "A")

	r3 := record.New(record.EvaluationTeam, "vt99")
	r3.Set("hmiData.speed", 5.0)

	return []record.Record{r1, r2, r3}
}

func csvLines(t *testing.T, out string) []string {
	t.Helper()
	if !strings.HasPrefix(out, BOM) {
		t.Fatalf("output does not start with a BOM: %q", out[:min(len(out), 8)])
	}
	return strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, BOM), "\r\n"), "\r\n")
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReportCSV(&buf, mustCatalog(t), testRecords()); err != nil {
		t.Fatalf("WriteReportCSV: %v", err)
	}

	want := []string{
		"類型,機台型號,日期時間,RTO啟用狀態,升溫狀態,VT1_AirSpeed1,VT8_AirSpeed1,Fan,設定,備註",
		`評價TEAM用,VT8,2024-05-01T10:00,有,,,12.5,,,"say ""hi"", ok"`,
		"條件設定用,VT1,,無,,7,,3,A,",
		"評價TEAM用,VT99,,,,5,5,,,",
	}
	got := csvLines(t, buf.String())
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteModelCSV(t *testing.T) {
	recs := testRecords()
	extra := record.New(record.EvaluationTeam, "vt8")
	extra.Set("damperOpeningData.fan", 40.0)
	extra[record.KeyHeatingStatus] = "yes"

	var buf bytes.Buffer
	if err := WriteModelCSV(&buf, mustCatalog(t), []record.Record{recs[0], extra}); err != nil {
		t.Fatalf("WriteModelCSV: %v", err)
	}

	want := []string{
		"類型,機台型號,日期時間,RTO啟用狀態,升溫狀態,VT8_AirSpeed1,Fan,備註",
		`評價TEAM用,VT8,2024-05-01T10:00,有,,12.5,,"say ""hi"", ok"`,
		"評價TEAM用,VT8,,,有,,40,",
	}
	got := csvLines(t, buf.String())
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("csv =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestWriteModelCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteModelCSV(&buf, mustCatalog(t), nil); !errors.Is(err, ErrNoRecords) {
		t.Errorf("error = %v, want ErrNoRecords", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes for an empty set", buf.Len())
	}
}

func TestWriteReportXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReportXLSX(&buf, mustCatalog(t), testRecords()); err != nil {
		t.Fatalf("WriteReportXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	tests := []struct {
		cell string
		want string
	}{
		{"A1", "類型"},
		{"J1", "備註"},
		{"B2", "VT8"},
		{"G2", "12.5"},
		{"F2", ""},
		{"J2", `say "hi", ok`},
		{"A3", "條件設定用"},
		{"H3", "3"},
		{"F4", "5"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(reportSheet, tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.cell, got, tt.want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name string
		recs []record.Record
		want string
	}{
		{"nil", nil, "[]\n"},
		{"pretty", []record.Record{{"id": "a", "remark": "<b>&", "hmiData": map[string]any{"x": 1.5}}},
			"[\n  {\n    \"hmiData\": {\n      \"x\": 1.5\n    },\n    \"id\": \"a\",\n    \"remark\": \"<b>&\"\n  }\n]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteJSON(&buf, tt.recs); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("json = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestFileNames(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 2, 3, 0, time.UTC)
	if got := ModelCSVName("vt8", now); got != "乾燥機數據_vt8_20240501100203.csv" {
		t.Errorf("ModelCSVName = %q", got)
	}
	if got := DailyJSONName(now); got != "tablet-data-2024-05-01.json" {
		t.Errorf("DailyJSONName = %q", got)
	}
}

func TestCellText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{600.0, "600"},
		{0.1, "0.1"},
		{true, "true"},
		{map[string]any{"a": 1.0}, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := cellText(tt.in); got != tt.want {
			t.Errorf("cellText(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
