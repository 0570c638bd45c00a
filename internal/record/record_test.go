package record

import (
	"encoding/json"
	"testing"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"評價TEAM用", EvaluationTeam},
		{"評價", EvaluationTeam},
		{"條件設定用", ConditionSetting},
		{"evaluationTeam", EvaluationTeam},
		{"EVALUATIONTEAM", EvaluationTeam},
		{"conditionSetting", ConditionSetting},
		{"Other", Category("other")},
		{"", Category("")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeCategory(tt.in); got != tt.want {
				t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"評價TEAM用", EvaluationTeam},
		{" 條件設定用 ", ConditionSetting},
		{"ConditionSetting", ConditionSetting},
		{"評價TEAM用(舊)", Category("評價team用(舊)")},
		{"條件設定", Category("條件設定")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CanonicalCategory(tt.in); got != tt.want {
				t.Errorf("CanonicalCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCategoryDisplay(t *testing.T) {
	if got := EvaluationTeam.Display(); got != "評價TEAM用" {
		t.Errorf("Display = %q", got)
	}
	if got := ConditionSetting.Display(); got != "條件設定用" {
		t.Errorf("Display = %q", got)
	}
	if got := Category("misc").Display(); got != "misc" {
		t.Errorf("Display = %q", got)
	}
}

func TestFlag(t *testing.T) {
	tests := []struct {
		display string
		want    Flag
		value   any
	}{
		{"有", FlagYes, "yes"},
		{"無", FlagNo, "no"},
		{"", FlagUnset, nil},
		{"maybe", FlagUnset, nil},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			f := FlagFromDisplay(tt.display)
			if f != tt.want {
				t.Fatalf("FlagFromDisplay(%q) = %v, want %v", tt.display, f, tt.want)
			}
			if f.Value() != tt.value {
				t.Errorf("Value = %v, want %v", f.Value(), tt.value)
			}
			if ParseFlag(f.Value()) != f {
				t.Errorf("ParseFlag(Value()) = %v, want %v", ParseFlag(f.Value()), f)
			}
		})
	}
}

func TestFlagJSON(t *testing.T) {
	var got struct {
		A Flag `json:"a"`
		B Flag `json:"b"`
		C Flag `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"yes","b":null,"c":"no"}`), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.A != FlagYes || got.B != FlagUnset || got.C != FlagNo {
		t.Errorf("got %+v", got)
	}

	var bad Flag
	if err := json.Unmarshal([]byte(`"perhaps"`), &bad); err == nil {
		t.Error("expected error for unknown flag text")
	}
}

func TestNewRecord(t *testing.T) {
	r := New(EvaluationTeam, "VT8")

	if r.ID() == "" {
		t.Error("expected an id")
	}
	if r.Model() != "vt8" {
		t.Errorf("Model = %q, want vt8", r.Model())
	}
	if r.Synced() {
		t.Error("new record should be unsynced")
	}
	if _, ok := r[KeyAirVolumes].(map[string]any); !ok {
		t.Error("expected airVolumes section")
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := Record{
		"airVolumes": map[string]any{"A1": map[string]any{"speed": 1.0}},
		"list":       []any{map[string]any{"x": 1.0}},
	}
	c := r.Clone()
	Set(c, "airVolumes.A1.speed", 2.0)
	c["list"].([]any)[0].(map[string]any)["x"] = 2.0

	if Get(r, "airVolumes.A1.speed", nil) != 1.0 {
		t.Error("clone shares nested map with original")
	}
	if r["list"].([]any)[0].(map[string]any)["x"] != 1.0 {
		t.Error("clone shares slice element with original")
	}
}

func TestCanonicalize(t *testing.T) {
	r := Record{KeyModel: " VT5 ", KeyCategory: "條件設定用", "legacy": 1.0, KeyRTOStatus: "有", KeyHeatingStatus: "maybe"}
	r.Canonicalize()

	if r[KeyRTOStatus] != "yes" {
		t.Errorf("rtoStatus = %v, want yes", r[KeyRTOStatus])
	}
	if v, ok := r[KeyHeatingStatus]; !ok || v != nil {
		t.Errorf("heatingStatus = %v, want null", v)
	}

	if r.Model() != "vt5" {
		t.Errorf("Model = %q", r.Model())
	}
	if r.Category() != ConditionSetting {
		t.Errorf("Category = %q", r.Category())
	}
	if r["legacy"] != 1.0 {
		t.Error("legacy field lost")
	}
}

func TestRecordTimeAndDate(t *testing.T) {
	r := Record{KeyTimestamp: "2024-03-05T14:30"}
	if r.Date() != "2024-03-05" {
		t.Errorf("Date = %q", r.Date())
	}
	if r.Time().Hour() != 14 {
		t.Errorf("Time = %v", r.Time())
	}
	if !(Record{}).Time().IsZero() {
		t.Error("missing timestamp should be the zero time")
	}
}

func TestSortNewestFirst(t *testing.T) {
	recs := []Record{
		{KeyID: "old", KeyTimestamp: "2024-01-01T08:00"},
		{KeyID: "none"},
		{KeyID: "new", KeyTimestamp: "2024-03-01T08:00"},
		{KeyID: "mid", KeyTimestamp: "2024-02-01T08:00"},
	}
	SortNewestFirst(recs)

	want := []string{"new", "mid", "old", "none"}
	for i, r := range recs {
		if r.ID() != want[i] {
			t.Errorf("recs[%d] = %s, want %s", i, r.ID(), want[i])
		}
	}
}
