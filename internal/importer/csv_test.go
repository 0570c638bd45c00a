package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
)

func parseString(t *testing.T, src string) (*Result, error) {
	t.Helper()
	return NewParser(mustCatalog(t)).Parse(context.Background(), strings.NewReader(src), "test.csv")
}

func TestParseCategoriesAndModels(t *testing.T) {
	src := "類型,機台型號,日期時間,RTO啟用狀態,VT8_AirSpeed1\n" +
		"評價TEAM用,VT8,2024-01-02T08:00,有,1.5\n" +
		"條件設定用,vt8,2024-01-01T08:00,無,2\n"

	res, err := parseString(t, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}

	want := []struct {
		cat   record.Category
		rto   record.Flag
		speed float64
	}{
		{record.EvaluationTeam, record.FlagYes, 1.5},
		{record.ConditionSetting, record.FlagNo, 2},
	}
	for i, w := range want {
		r := res.Records[i]
		if r.Category() != w.cat {
			t.Errorf("record %d category = %q, want %q", i, r.Category(), w.cat)
		}
		if r.Model() != "vt8" {
			t.Errorf("record %d model = %q, want vt8", i, r.Model())
		}
		if r.RTOStatus() != w.rto {
			t.Errorf("record %d rto = %v, want %v", i, r.RTOStatus(), w.rto)
		}
		if got := r.Get("hmiData.air_speed_1", nil); got != w.speed {
			t.Errorf("record %d speed = %v, want %v", i, got, w.speed)
		}
		if r.ID() == "" {
			t.Errorf("record %d has no id", i)
		}
	}
	if res.Records[0].ID() == res.Records[1].ID() {
		t.Error("records share an id")
	}
}

func TestParseSkipsUnsupportedModel(t *testing.T) {
	res, err := parseString(t, "類型,機台型號\n評價TEAM用,vt99\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 0 {
		t.Errorf("records = %d, want 0", len(res.Records))
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Line != 2 {
		t.Errorf("skipped = %v, want line 2", res.Skipped)
	}
}

func TestParseDefaultsMissingModel(t *testing.T) {
	res, err := parseString(t, "類型,備註\n條件設定,hello\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(res.Records))
	}
	r := res.Records[0]
	if r.Model() != "vt8" {
		t.Errorf("model = %q, want vt8", r.Model())
	}
	if r.Remark() != "" {
		t.Errorf("remark = %q, want unmapped column ignored", r.Remark())
	}
}

func TestParseSkipsMissingCategory(t *testing.T) {
	res, err := parseString(t, "機台型號,配方\nvt8,A\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 0 || len(res.Skipped) != 1 {
		t.Errorf("records = %d, skipped = %d; want 0, 1", len(res.Records), len(res.Skipped))
	}
}

func TestParseRejectsMalformedFile(t *testing.T) {
	src := "類型,機台型號,配方\n" +
		"評價TEAM用,vt8\n" +
		"評價TEAM用,vt8,A\"B\n" +
		"評價TEAM用,vt8,ok\n"

	res, err := parseString(t, src)
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("error = %v, want ErrMalformed", err)
	}
	var report *ParseReport
	if !errors.As(err, &report) {
		t.Fatalf("error %T is not a *ParseReport", err)
	}
	if report.File != "test.csv" {
		t.Errorf("File = %q", report.File)
	}
	if len(report.Errors) != 2 || report.Errors[0].Line != 2 || report.Errors[1].Line != 3 {
		t.Errorf("row errors = %v, want lines 2 and 3", report.Errors)
	}
}

func TestParseEmptyFile(t *testing.T) {
	if _, err := parseString(t, ""); !errors.Is(err, ErrNoHeader) {
		t.Errorf("error = %v, want ErrNoHeader", err)
	}
}

func TestParseStripsBOM(t *testing.T) {
	res, err := parseString(t, "\ufeff類型,機台型號\n評價TEAM用,vt1\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Category() != record.EvaluationTeam {
		t.Errorf("records = %v, want one evaluation record", res.Records)
	}
}

func TestParseRecomputesDerived(t *testing.T) {
	src := "類型,機台型號,VT8_供氣_風速,VT8_供氣_溫度,VT8_供氣_風量,技術溫測實溫_1_1,技術溫測實溫_1_3,技術溫測實溫_1_溫差\n" +
		"評價TEAM用,vt8,10,0,999,100,104.5,1\n"

	res, err := parseString(t, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := res.Records[0]
	if got := r.Get("airVolumes.supply.volume", nil); got != 600.0 {
		t.Errorf("volume = %v, want 600", got)
	}
	if got := r.Get("actualTemps.point1.diff", nil); got != 4.5 {
		t.Errorf("diff = %v, want 4.5", got)
	}
}

func TestParseZeroesMaintenanceVolume(t *testing.T) {
	src := "類型,機台型號,VT7_二室循環_風速,VT7_二室循環_溫度,VT7_二室循環_風量\n" +
		"評價TEAM用,VT7,1,20,999\n"

	res, err := parseString(t, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := res.Records[0]
	if got := r.Get("airVolumes.circulation2.speed", nil); got != 1.0 {
		t.Errorf("speed = %v, want 1", got)
	}
	if got := r.Get("airVolumes.circulation2.volume", nil); got != 0.0 {
		t.Errorf("volume = %v, want 0", got)
	}
}

func TestCoerceCell(t *testing.T) {
	num := schema.Descriptor{Type: schema.FieldNumber}
	text := schema.Descriptor{Type: schema.FieldText}

	tests := []struct {
		name string
		d    schema.Descriptor
		raw  string
		want any
	}{
		{"number", num, " 12.5 ", 12.5},
		{"number with unit", num, "12℃", 12.0},
		{"blank", num, "  ", nil},
		{"null text", num, "NULL", nil},
		{"not a number", num, "abc", nil},
		{"infinite", num, "Infinity", nil},
		{"text trimmed", text, " recipe A ", "recipe A"},
		{"text null", text, "null", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceCell(tt.d, tt.raw); got != tt.want {
				t.Errorf("CoerceCell(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
