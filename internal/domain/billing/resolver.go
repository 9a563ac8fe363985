package billing

// Overlay merges persisted records with unsaved pending edits, pending
// winning per key. Used by preview flows so a user sees the effect of
// edits before saving them.
func Overlay[K comparable, V any](persisted, pending map[K]V) map[K]V {
	merged := make(map[K]V, len(persisted)+len(pending))
	for k, v := range persisted {
		merged[k] = v
	}
	for k, v := range pending {
		merged[k] = v
	}
	return merged
}

// ResolveReadings overlays pending meter readings on persisted ones,
// keyed by unit ID.
func ResolveReadings(persisted, pending []MeterReading) map[string]MeterReading {
	byUnit := func(readings []MeterReading) map[string]MeterReading {
		m := make(map[string]MeterReading, len(readings))
		for _, r := range readings {
			m[r.UnitID] = r
		}
		return m
	}
	return Overlay(byUnit(persisted), byUnit(pending))
}

// ResolveAdjustments overlays pending adjustment edits on persisted
// adjustments, keyed by adjustment ID. A pending entry replaces the
// persisted one wholesale, including its assigned units.
func ResolveAdjustments(persisted, pending []Adjustment) []Adjustment {
	byID := func(adjustments []Adjustment) map[string]Adjustment {
		m := make(map[string]Adjustment, len(adjustments))
		for _, a := range adjustments {
			m[a.ID] = a
		}
		return m
	}
	merged := Overlay(byID(persisted), byID(pending))

	// Preserve persisted order, then new pending IDs in input order.
	seen := make(map[string]bool, len(merged))
	out := make([]Adjustment, 0, len(merged))
	for _, a := range persisted {
		out = append(out, merged[a.ID])
		seen[a.ID] = true
	}
	for _, a := range pending {
		if !seen[a.ID] {
			out = append(out, merged[a.ID])
			seen[a.ID] = true
		}
	}
	return out
}
