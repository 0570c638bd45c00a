package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

func TestParseRawChart(t *testing.T) {
	src := "Time,CH01,CH02,AVE\n" +
		"00:00,10,x,11\n" +
		"00:10,,12,13\n" +
		"00:20,1,2\n" +
		"00:30,14,15,16\n"

	chart, err := ParseRawChart(context.Background(), strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseRawChart: %v", err)
	}

	if got := strings.Join(chart.Channels(), ","); got != "CH01,CH02,AVE" {
		t.Errorf("Channels = %s", got)
	}
	if len(chart.Rows) != 3 {
		t.Errorf("rows = %d, want 3", len(chart.Rows))
	}
	if len(chart.Errors) != 1 || chart.Errors[0].Line != 4 {
		t.Errorf("errors = %v, want one on line 4", chart.Errors)
	}

	plot := chart.Plot()
	if len(plot.ElapsedSeconds) != 3 || plot.ElapsedSeconds[2] != 20 {
		t.Errorf("ElapsedSeconds = %v", plot.ElapsedSeconds)
	}
	ch01, ch02 := plot.Series[0], plot.Series[1]
	if ch01.Samples[0] == nil || *ch01.Samples[0] != 10 {
		t.Errorf("CH01[0] = %v, want 10", ch01.Samples[0])
	}
	if ch01.Samples[1] != nil {
		t.Errorf("CH01[1] = %v, want nil", *ch01.Samples[1])
	}
	if ch02.Samples[0] != nil {
		t.Errorf("CH02[0] = %v, want nil for non-numeric cell", *ch02.Samples[0])
	}
}

func TestParseRawChartNoChannels(t *testing.T) {
	_, err := ParseRawChart(context.Background(), strings.NewReader("Time,Temp\n0,1\n"))
	if !errors.Is(err, ErrNoChannels) {
		t.Fatalf("error = %v, want ErrNoChannels", err)
	}
	if !strings.Contains(err.Error(), "CH01, CH02, CH03, CH04, CH05, AVE") {
		t.Errorf("error %q does not name the expected columns", err)
	}
}

func TestRawChartValueRoundTrip(t *testing.T) {
	chart, err := ParseRawChart(context.Background(), strings.NewReader("CH01,AVE\n1,2\n3,4\n"))
	if err != nil {
		t.Fatalf("ParseRawChart: %v", err)
	}

	r := record.New(record.EvaluationTeam, "vt8")
	r[record.KeyRawChart] = chart.Value()
	if !r.HasRawChart() {
		t.Fatal("HasRawChart = false after attaching")
	}

	back, ok := RawChartFromValue(r.Clone()[record.KeyRawChart])
	if !ok {
		t.Fatal("RawChartFromValue reported no samples")
	}
	if len(back.Rows) != 2 || strings.Join(back.Fields, ",") != "CH01,AVE" {
		t.Errorf("round trip = %+v", back)
	}
	if back.Rows[1]["AVE"] != 4.0 {
		t.Errorf("AVE[1] = %v, want 4", back.Rows[1]["AVE"])
	}

	if _, ok := RawChartFromValue(nil); ok {
		t.Error("nil blob reported samples")
	}
}
