package record

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// standardTempK is the 0°C reference used to normalize air volume.
const standardTempK = 273

// DuctArea returns the cross-section area in m² of a duct spec such as
// "0.65*0.65" (rectangular) or "φ0.55" (round), rounded to 3 decimals.
// Unrecognized specs yield 0.
func DuctArea(spec string) float64 {
	if spec == "" {
		return 0
	}
	var area float64
	switch {
	case strings.Contains(spec, "*"):
		parts := strings.Split(spec, "*")
		if len(parts) != 2 {
			return 0
		}
		a, errA := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errA != nil || errB != nil {
			return 0
		}
		area = a * b
	case strings.ContainsAny(spec, "φФ"):
		digits := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' {
				return r
			}
			return -1
		}, spec)
		d, ok := ParseNumber(digits)
		if !ok {
			return 0
		}
		r := d / 2
		area = math.Pi * r * r
	}
	return Round(area, 3)
}

// AirVolume computes the normalized air volume in Nm³/min from a gas
// temperature (°C), a wind speed (m/s) and a duct area (m²), rounded to one
// decimal. Blank inputs count as zero; unparseable inputs, or a temperature
// of -273°C, yield 0.
func AirVolume(temperature, speed, area any) float64 {
	t, okT := looseNumber(temperature)
	v, okV := looseNumber(speed)
	a, okA := looseNumber(area)
	if !okT || !okV || !okA || standardTempK+t == 0 {
		return 0
	}
	vol := (standardTempK / (standardTempK + t)) * a * v * 60
	return Round(vol, 1)
}

// looseNumber treats nil and blank strings as zero.
func looseNumber(v any) (float64, bool) {
	if v == nil {
		return 0, true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return 0, true
	}
	return ToFloat(v)
}

// TempDelta returns max-min of the numeric values rounded to 2 decimals.
// It reports false when vals holds no number.
func TempDelta(vals []any) (float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for _, v := range vals {
		f, ok := ToFloat(v)
		if !ok {
			continue
		}
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return Round(hi-lo, 2), true
}

// TempPointKey converts a technical temperature point id ("1", "012", "T1")
// to the key used under actualTemps ("point1", "point12", "pointT1").
func TempPointKey(id string) string {
	if strings.HasPrefix(id, "T") {
		return "point" + id
	}
	if n, ok := ParseNumber(id); ok {
		return "point" + strconv.Itoa(int(n))
	}
	return "point" + id
}

const legacyTopRollKey = "airExternal_top_roll_chamber_celsius"

// chamberZones groups technical temperature points by the recorder readings
// shown on the machine display for that zone.
var chamberZones = []struct {
	points []string
	source string
	keys   []string
	single bool
}{
	{[]string{"1", "2", "3", "4"}, KeyRecorder1, []string{"chamber1_lower_right", "chamber1_lower_middle", "chamber1_lower_left"}, false},
	{[]string{"5", "6", "7"}, KeyRecorder1, []string{"chamber1_middle_middle"}, true},
	{[]string{"8", "9", "10", "11"}, KeyRecorder1, []string{"chamber1_upper_right", "chamber1_upper_middle", "chamber1_upper_left"}, false},
	{[]string{"T1", "T2"}, KeyAirExternal, []string{"top_roll_chamber_celsius"}, true},
	{[]string{"12", "13", "14", "15"}, KeyRecorder2, []string{"chamber2_upper_right", "chamber2_upper_middle", "chamber2_upper_left"}, false},
	{[]string{"16", "17", "18"}, KeyRecorder2, []string{"chamber2_middle_middle"}, true},
	{[]string{"19", "20", "21", "22"}, KeyRecorder2, []string{"chamber2_lower_right", "chamber2_lower_middle", "chamber2_lower_left"}, false},
}

// DisplayTemperature returns the machine display temperature for a technical
// temperature point: the mean of the zone's recorder readings (2 decimals),
// or the single reading for zones with one sensor.
func DisplayTemperature(r Record, pointID string) (float64, bool) {
	for _, z := range chamberZones {
		if !slices.Contains(z.points, pointID) {
			continue
		}
		src, _ := asMap(r[z.source])
		if z.single {
			f, ok := src[z.keys[0]].(float64)
			if !ok && z.source == KeyAirExternal {
				// written at the top level by older releases
				f, ok = r[legacyTopRollKey].(float64)
			}
			return f, ok
		}
		sum, n := 0.0, 0
		for _, k := range z.keys {
			if f, ok := ToFloat(src[k]); ok {
				sum += f
				n++
			}
		}
		if n == 0 {
			return 0, false
		}
		return Round(sum/float64(n), 2), true
	}
	return 0, false
}
