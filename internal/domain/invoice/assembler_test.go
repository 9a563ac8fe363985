package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
)

func testBill() billing.Bill {
	return billing.Bill{
		ID:          "bill-1",
		TotalAmount: 100.00,
		Services: map[string]billing.ServiceSection{
			"Water": {
				Total: 100.00,
				Parts: []billing.ServicePart{{Usage: 10}},
			},
		},
	}
}

func testUnits() []billing.Unit {
	return []billing.Unit{
		{ID: "u1", Name: "Unit 101", Sqft: 500},
		{ID: "u2", Name: "Unit 102", Sqft: 500},
	}
}

func TestAssemble(t *testing.T) {
	t.Run("two equal units split water evenly", func(t *testing.T) {
		invoices := Assemble(Inputs{
			Bill:  testBill(),
			Units: testUnits(),
			Readings: map[string]billing.MeterReading{
				"u1": {UnitID: "u1", Reading: 4},
				"u2": {UnitID: "u2", Reading: 4},
			},
		})

		require.Len(t, invoices, 2)
		for _, inv := range invoices {
			assert.InDelta(t, 50.00, inv.Amount, 0.0001)
			require.Len(t, inv.LineItems, 2)
			assert.Equal(t, billing.CategoryWaterUsage, inv.LineItems[0].Category)
			assert.InDelta(t, 40.00, inv.LineItems[0].Amount, 0.0001)
			assert.Equal(t, billing.CategoryWaterSqft, inv.LineItems[1].Category)
			assert.InDelta(t, 10.00, inv.LineItems[1].Amount, 0.0001)
		}
	})

	t.Run("merges all engines into categorized line items", func(t *testing.T) {
		bill := testBill()
		bill.Services["Sewer"] = billing.ServiceSection{
			Total: 80.00,
			Parts: []billing.ServicePart{{Usage: 10}},
		}

		assignments := []solidwaste.Assignment{
			{
				UnitID:       "u1",
				GarbageItems: []solidwaste.AssignedItem{{ItemKey: "garbage-32", Cost: 3.34}},
				CompostItems: []solidwaste.AssignedItem{{ItemKey: "compost-13", Cost: 11.00}},
			},
		}
		assignments[0].RecomputeTotals()

		invoices := Assemble(Inputs{
			Bill:  bill,
			Units: testUnits(),
			Readings: map[string]billing.MeterReading{
				"u1": {UnitID: "u1", Reading: 4},
				"u2": {UnitID: "u2", Reading: 4},
			},
			Adjustments: []billing.Adjustment{
				{ID: "a1", Description: "Hydrant repair", Cost: 100.00, AssignedUnitIDs: []string{"u1", "u2"}},
			},
			Assignments: assignments,
		})

		require.Len(t, invoices, 2)
		u1 := invoices[0]

		// water usage, water common, sewer usage, sewer common,
		// garbage, compost, adjustment
		require.Len(t, u1.LineItems, 7)
		categories := make([]billing.Category, 0, len(u1.LineItems))
		for _, item := range u1.LineItems {
			categories = append(categories, item.Category)
		}
		assert.Equal(t, []billing.Category{
			billing.CategoryWaterUsage,
			billing.CategoryWaterSqft,
			billing.CategorySewer,
			billing.CategorySewer,
			billing.CategorySolidWaste,
			billing.CategorySolidWaste,
			billing.CategoryAdjustment,
		}, categories)

		// 40 + 10 + 32 + 8 + 3.34 + 11.00 + 50.00
		assert.InDelta(t, 154.34, u1.Amount, 0.0001)

		u2 := invoices[1]
		require.Len(t, u2.LineItems, 5)
		assert.InDelta(t, 140.00, u2.Amount, 0.0001)
	})

	t.Run("amount equals rounded sum of line items", func(t *testing.T) {
		invoices := Assemble(Inputs{
			Bill:  testBill(),
			Units: testUnits(),
			Readings: map[string]billing.MeterReading{
				"u1": {UnitID: "u1", Reading: 3.33},
				"u2": {UnitID: "u2", Reading: 5.77},
			},
		})

		for _, inv := range invoices {
			var sum float64
			for _, item := range inv.LineItems {
				sum += item.Amount
			}
			assert.InDelta(t, billing.RoundToCents(sum), inv.Amount, 0.0001)
		}
	})

	t.Run("empty inputs still produce one invoice per unit", func(t *testing.T) {
		invoices := Assemble(Inputs{
			Bill:  billing.Bill{Services: map[string]billing.ServiceSection{}},
			Units: testUnits(),
		})

		require.Len(t, invoices, 2)
		for _, inv := range invoices {
			assert.Zero(t, inv.Amount)
			assert.Empty(t, inv.LineItems)
		}
	})

	t.Run("negative adjustment appears as credit line", func(t *testing.T) {
		invoices := Assemble(Inputs{
			Bill:  billing.Bill{Services: map[string]billing.ServiceSection{}},
			Units: testUnits(),
			Adjustments: []billing.Adjustment{
				{ID: "a1", Description: "Overcharge credit", Cost: -20.00, AssignedUnitIDs: []string{"u1"}},
			},
		})

		u1 := invoices[0]
		require.Len(t, u1.LineItems, 1)
		assert.InDelta(t, -20.00, u1.LineItems[0].Amount, 0.0001)
		assert.InDelta(t, -20.00, u1.Amount, 0.0001)
	})

	t.Run("idempotent on identical inputs", func(t *testing.T) {
		in := Inputs{
			Bill:  testBill(),
			Units: testUnits(),
			Readings: map[string]billing.MeterReading{
				"u1": {UnitID: "u1", Reading: 4},
				"u2": {UnitID: "u2", Reading: 4},
			},
			Adjustments: []billing.Adjustment{
				{ID: "a1", Description: "Fee", Cost: 9.99, AssignedUnitIDs: []string{"u1", "u2"}},
			},
		}

		first := Assemble(in)
		second := Assemble(in)
		assert.Equal(t, first, second)
	})
}

func TestFindService(t *testing.T) {
	services := map[string]billing.ServiceSection{
		"Water Services":    {Total: 100},
		"Sewer":             {Total: 80},
		"Solid Waste":       {Total: 60},
		"Prior Adjustments": {Total: 5},
	}

	t.Run("case-insensitive substring match", func(t *testing.T) {
		section, ok := FindService(services, "water")
		require.True(t, ok)
		assert.InDelta(t, 100.0, section.Total, 0.0001)

		section, ok = FindService(services, "solid waste")
		require.True(t, ok)
		assert.InDelta(t, 60.0, section.Total, 0.0001)
	})

	t.Run("missing service", func(t *testing.T) {
		_, ok := FindService(services, "drainage")
		assert.False(t, ok)
	})
}
