package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utilitysplitter/backend/internal/domain/billing"
)

func TestSplit(t *testing.T) {
	t.Run("hundred dollars across three units", func(t *testing.T) {
		adjustment := billing.Adjustment{
			ID:              "a1",
			Description:     "Hydrant repair",
			Cost:            100.00,
			AssignedUnitIDs: []string{"u1", "u2", "u3"},
		}

		shares := Split(adjustment)

		require.Len(t, shares, 3)
		assert.InDelta(t, 33.34, shares[0].Amount, 0.0001)
		assert.InDelta(t, 33.33, shares[1].Amount, 0.0001)
		assert.InDelta(t, 33.33, shares[2].Amount, 0.0001)

		var sum float64
		for _, share := range shares {
			sum += share.Amount
		}
		assert.InDelta(t, 100.00, sum, 0.0001)
	})

	t.Run("credit splits symmetrically", func(t *testing.T) {
		adjustment := billing.Adjustment{
			ID:              "a1",
			Description:     "Overcharge credit",
			Cost:            -50.01,
			AssignedUnitIDs: []string{"u1", "u2"},
		}

		shares := Split(adjustment)

		require.Len(t, shares, 2)
		assert.InDelta(t, -25.01, shares[0].Amount, 0.0001)
		assert.InDelta(t, -25.00, shares[1].Amount, 0.0001)
	})

	t.Run("single unit takes the full cost", func(t *testing.T) {
		adjustment := billing.Adjustment{
			ID:              "a1",
			Description:     "Late fee",
			Cost:            25.00,
			AssignedUnitIDs: []string{"u2"},
		}

		shares := Split(adjustment)

		require.Len(t, shares, 1)
		assert.Equal(t, "u2", shares[0].UnitID)
		assert.InDelta(t, 25.00, shares[0].Amount, 0.0001)
	})

	t.Run("unassigned adjustment yields nothing", func(t *testing.T) {
		shares := Split(billing.Adjustment{ID: "a1", Cost: 100.00})
		assert.Empty(t, shares)
	})
}

func TestSplitAll(t *testing.T) {
	adjustments := []billing.Adjustment{
		{ID: "a1", Description: "Hydrant repair", Cost: 100.00, AssignedUnitIDs: []string{"u1", "u2", "u3"}},
		{ID: "a2", Description: "Late fee", Cost: 10.00, AssignedUnitIDs: []string{"u1"}},
		{ID: "a3", Description: "Unassigned", Cost: 5.00},
	}

	byUnit := SplitAll(adjustments)

	require.Len(t, byUnit, 3)
	require.Len(t, byUnit["u1"], 2)
	assert.Equal(t, "Hydrant repair", byUnit["u1"][0].Description)
	assert.Equal(t, "Late fee", byUnit["u1"][1].Description)
	assert.Len(t, byUnit["u2"], 1)
	assert.Len(t, byUnit["u3"], 1)
}
