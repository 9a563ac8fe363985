package solidwaste

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utilitysplitter/backend/internal/domain/billing"
)

func parsedItems(t *testing.T, raws ...billing.RawLineItem) []LineItem {
	t.Helper()
	items, unmatched := Parse(billing.ServiceSection{
		Parts: []billing.ServicePart{{Items: raws}},
	})
	require.Empty(t, unmatched)
	return items
}

func TestAutoAssign(t *testing.T) {
	items := parsedItems(t,
		billing.RawLineItem{Description: "Garbage", Size: 32, Count: 3, Cost: 10.00},
		billing.RawLineItem{Description: "Food/Yard Waste", Size: 13, Count: 2, Cost: 22.00},
	)

	t.Run("claims slots in roster order", func(t *testing.T) {
		units := []billing.Unit{
			{ID: "u1", SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 32, CompostSize: 13}},
			{ID: "u2", SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 32, CompostSize: 13}},
			{ID: "u3", SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 32}},
		}

		assignments := AutoAssign(items, units)

		require.Len(t, assignments, 3)

		// u1 gets slot 0 of each, which carries the extra cent.
		require.Len(t, assignments[0].GarbageItems, 1)
		assert.Equal(t, 0, assignments[0].GarbageItems[0].SlotIndex)
		assert.InDelta(t, 3.34, assignments[0].GarbageItems[0].Cost, 0.0001)
		require.Len(t, assignments[0].CompostItems, 1)
		assert.InDelta(t, 11.00, assignments[0].CompostItems[0].Cost, 0.0001)
		assert.InDelta(t, 14.34, assignments[0].Total, 0.0001)

		assert.Equal(t, 1, assignments[1].GarbageItems[0].SlotIndex)
		assert.InDelta(t, 3.33, assignments[1].GarbageItems[0].Cost, 0.0001)

		assert.Equal(t, 2, assignments[2].GarbageItems[0].SlotIndex)
		assert.Empty(t, assignments[2].CompostItems)
		assert.Zero(t, assignments[2].CompostTotal)
	})

	t.Run("no matching size leaves category empty", func(t *testing.T) {
		units := []billing.Unit{
			{ID: "u1", SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 96}},
		}

		assignments := AutoAssign(items, units)

		require.Len(t, assignments, 1)
		assert.Empty(t, assignments[0].GarbageItems)
		assert.Zero(t, assignments[0].Total)
	})

	t.Run("slots exhaust after count claims", func(t *testing.T) {
		units := make([]billing.Unit, 5)
		for i := range units {
			units[i] = billing.Unit{
				ID:                 string(rune('a' + i)),
				SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 32},
			}
		}

		assignments := AutoAssign(items, units)

		assigned := 0
		for _, a := range assignments {
			assigned += len(a.GarbageItems)
		}
		assert.Equal(t, 3, assigned, "only 3 garbage slots exist")
		assert.Empty(t, assignments[3].GarbageItems)
		assert.Empty(t, assignments[4].GarbageItems)
	})

	t.Run("assigned costs conserve the group cost", func(t *testing.T) {
		units := []billing.Unit{
			{ID: "u1", SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 32}},
			{ID: "u2", SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 32}},
			{ID: "u3", SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 32}},
		}

		assignments := AutoAssign(items, units)

		var total float64
		for _, a := range assignments {
			total += a.GarbageTotal
		}
		assert.InDelta(t, 10.00, total, 0.0001)
	})
}

func TestToggle(t *testing.T) {
	items := parsedItems(t,
		billing.RawLineItem{Description: "Garbage", Size: 32, Count: 2, Cost: 10.01},
	)
	garbage32 := items[0]

	emptyAssignments := func() []Assignment {
		return []Assignment{{UnitID: "u1"}, {UnitID: "u2"}, {UnitID: "u3"}}
	}

	t.Run("toggle on claims next unclaimed slot", func(t *testing.T) {
		assignments := emptyAssignments()

		assignments, err := ToggleOn(assignments, "u2", garbage32)
		require.NoError(t, err)
		assignments, err = ToggleOn(assignments, "u1", garbage32)
		require.NoError(t, err)

		require.Len(t, assignments[1].GarbageItems, 1)
		assert.Equal(t, 0, assignments[1].GarbageItems[0].SlotIndex)
		assert.InDelta(t, 5.01, assignments[1].GarbageItems[0].Cost, 0.0001)

		require.Len(t, assignments[0].GarbageItems, 1)
		assert.Equal(t, 1, assignments[0].GarbageItems[0].SlotIndex)
		assert.InDelta(t, 5.00, assignments[0].GarbageItems[0].Cost, 0.0001)
	})

	t.Run("toggle on fails when all slots claimed", func(t *testing.T) {
		assignments := emptyAssignments()

		assignments, err := ToggleOn(assignments, "u1", garbage32)
		require.NoError(t, err)
		assignments, err = ToggleOn(assignments, "u2", garbage32)
		require.NoError(t, err)

		_, err = ToggleOn(assignments, "u3", garbage32)
		assert.Error(t, err)
	})

	t.Run("toggle on fails for unknown unit", func(t *testing.T) {
		_, err := ToggleOn(emptyAssignments(), "ghost", garbage32)
		assert.Error(t, err)
	})

	t.Run("toggle off releases the slot and recomputes totals", func(t *testing.T) {
		assignments := emptyAssignments()

		assignments, err := ToggleOn(assignments, "u1", garbage32)
		require.NoError(t, err)
		assignments, err = ToggleOn(assignments, "u2", garbage32)
		require.NoError(t, err)

		assignments = ToggleOff(assignments, "u1", garbage32.Key())

		assert.Empty(t, assignments[0].GarbageItems)
		assert.Zero(t, assignments[0].Total)

		// Released slot becomes claimable again.
		assignments, err = ToggleOn(assignments, "u3", garbage32)
		require.NoError(t, err)
		require.Len(t, assignments[2].GarbageItems, 1)
	})

	t.Run("toggle does not mutate its input", func(t *testing.T) {
		assignments := emptyAssignments()

		out, err := ToggleOn(assignments, "u1", garbage32)
		require.NoError(t, err)
		require.Len(t, out[0].GarbageItems, 1)
		assert.Empty(t, assignments[0].GarbageItems)
	})
}

func TestRecomputeTotals(t *testing.T) {
	t.Run("grand total rounds once from unrounded sum", func(t *testing.T) {
		a := Assignment{
			UnitID:       "u1",
			GarbageItems: []AssignedItem{{ItemKey: "garbage-32", Cost: 1.005}},
			CompostItems: []AssignedItem{{ItemKey: "compost-13", Cost: 1.005}},
			RecycleItems: []AssignedItem{{ItemKey: "recycle-64", Cost: 1.005}},
		}

		a.RecomputeTotals()

		// Summing the pre-rounded category totals would give 3.03.
		assert.InDelta(t, 1.01, a.GarbageTotal, 0.0001)
		assert.InDelta(t, 1.01, a.CompostTotal, 0.0001)
		assert.InDelta(t, 1.01, a.RecycleTotal, 0.0001)
		assert.InDelta(t, 3.02, a.Total, 0.0001)
	})

	t.Run("empty assignment totals to zero", func(t *testing.T) {
		a := Assignment{UnitID: "u1"}
		a.RecomputeTotals()
		assert.Zero(t, a.Total)
	})
}
