package schema

import (
	"fmt"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// Recompute refreshes the derived fields of r in place: the normalized air
// volume of every air point and the temperature spread of every technical
// temperature point. Air points not in normal status get a volume of 0.
// Points the record has no entry for are left absent.
func (c *Catalog) Recompute(r record.Record) {
	for _, ap := range c.airPoints[r.Model()] {
		base := record.KeyAirVolumes + "." + ap.ID
		if r.Get(base, nil) == nil {
			continue
		}
		vol := 0.0
		if ap.Normal {
			vol = record.AirVolume(r.Get(base+".temp", nil), r.Get(base+".speed", nil), ap.Area)
		}
		r.Set(base+".volume", vol)
	}

	for _, tp := range c.techPoints {
		base := record.KeyActualTemps + "." + tp.RecordKey()
		if r.Get(base, nil) == nil {
			continue
		}
		vals := make([]any, 0, 5)
		for i := 1; i <= 5; i++ {
			vals = append(vals, r.Get(fmt.Sprintf("%s.val%d", base, i), nil))
		}
		if d, ok := record.TempDelta(vals); ok {
			r.Set(base+".diff", d)
		} else {
			r.Set(base+".diff", nil)
		}
	}
}

// DisplayTemperatures returns the machine display temperature of every
// technical temperature point that has recorder readings, keyed by the
// point's short label.
func (c *Catalog) DisplayTemperatures(r record.Record) map[string]float64 {
	out := make(map[string]float64)
	for _, tp := range c.techPoints {
		if t, ok := record.DisplayTemperature(r, tp.ID); ok {
			out[tp.ShortLabel()] = t
		}
	}
	return out
}
