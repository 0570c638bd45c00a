package store

import (
	"errors"
	"slices"
	"testing"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

func TestCompare(t *testing.T) {
	s, _ := newTestStore(t)

	a := evalRecord("a", "2024-03-01T09:30")
	a.Set("airVolumes.supply.speed", 10.0)
	a.Set("airVolumes.supply.temp", 20.0)
	a.Set("airVolumes.legacy.volume", 5.0)
	a.Set("actualTemps.point1.val1", 100.0)
	a.Set("actualTemps.point1.val3", 104.0)
	a[record.KeyRTOStatus] = "yes"

	b := evalRecord("b", "")
	b.Set("airVolumes.supply.speed", 12.0)
	b.Set("airVolumes.supply.temp", 20.0)
	b.Set("actualTemps.point2.val5", 90.5)
	seed(t, s, a, b)

	cmp, err := s.Compare([]string{"a", "b"})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if cmp.InfoA != "2024-03-01 09:30" || cmp.InfoB != noTimestamp {
		t.Errorf("info = %q, %q", cmp.InfoA, cmp.InfoB)
	}

	if cmp.Air == nil {
		t.Fatal("Air = nil, want air volume data")
	}
	if want := []string{"供氣", "legacy"}; !slices.Equal(cmp.Air.Labels, want) {
		t.Errorf("air labels = %v, want %v", cmp.Air.Labels, want)
	}
	if cmp.Air.A[1] != 5 || cmp.Air.B[1] != 0 {
		t.Errorf("legacy volumes = %v, %v; want 5, 0", cmp.Air.A[1], cmp.Air.B[1])
	}
	if cmp.Air.A[0] >= cmp.Air.B[0] {
		t.Errorf("supply volume A = %v should be below B = %v", cmp.Air.A[0], cmp.Air.B[0])
	}
	if !cmp.Air.RTOA || cmp.Air.RTOB {
		t.Errorf("rto = %v, %v", cmp.Air.RTOA, cmp.Air.RTOB)
	}

	tc := cmp.Temps
	if len(tc.Labels) != 24 || tc.Labels[0] != "1" {
		t.Errorf("temp labels = %v", tc.Labels)
	}
	if len(tc.Lines) != 10 {
		t.Fatalf("lines = %d, want 10", len(tc.Lines))
	}
	first := tc.Lines[0]
	if first.Record != 1 || first.Name != TempLineNames[0] || first.Values[0] == nil || *first.Values[0] != 100 {
		t.Errorf("first line = %+v", first)
	}
	if tc.Lines[1].Values[0] != nil {
		t.Error("missing reading should be nil")
	}
	last := tc.Lines[9]
	if last.Record != 2 || last.Values[1] == nil || *last.Values[1] != 90.5 {
		t.Errorf("last line = %+v", last)
	}
}

func TestCompareNoAirData(t *testing.T) {
	s, _ := newTestStore(t)
	seed(t, s, evalRecord("a", "2024-01-01T00:00"), evalRecord("b", "2024-01-01T00:00"))

	cmp, err := s.Compare([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if cmp.Air != nil {
		t.Errorf("Air = %+v, want nil", cmp.Air)
	}
}

func TestCompareErrors(t *testing.T) {
	s, _ := newTestStore(t)
	seed(t, s, evalRecord("a", ""), evalRecord("b", ""), evalRecord("c", ""))
	log := capture(s)

	for _, sel := range [][]string{{"a"}, {"a", "b", "c"}, nil} {
		if _, err := s.Compare(sel); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Compare(%v) error = %v, want ErrInvalidInput", sel, err)
		}
	}

	if _, err := s.Compare([]string{"a", "gone"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if n := log.notices(); len(n) != 1 || n[0].Level != LevelError {
		t.Errorf("notices = %+v, want one error", n)
	}
}
