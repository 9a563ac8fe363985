// Package splitter distributes manual adjustments evenly across their
// assigned units with exact cent accounting.
package splitter

import (
	"github.com/utilitysplitter/backend/internal/domain/billing"
)

// Share is one unit's portion of one adjustment.
type Share struct {
	UnitID      string
	Description string
	Amount      float64
}

// Split divides the adjustment's cost evenly across its assigned units.
// The shares sum to the cost exactly; when the cents do not divide
// evenly, units earlier in the assignment order carry the extra cent.
// An adjustment with no assigned units yields no shares.
func Split(adjustment billing.Adjustment) []Share {
	n := len(adjustment.AssignedUnitIDs)
	if n == 0 {
		return nil
	}

	cents := billing.SplitCents(billing.Cents(adjustment.Cost), n)
	shares := make([]Share, n)
	for i, unitID := range adjustment.AssignedUnitIDs {
		shares[i] = Share{
			UnitID:      unitID,
			Description: adjustment.Description,
			Amount:      billing.Dollars(cents[i]),
		}
	}
	return shares
}

// SplitAll splits every adjustment and groups the resulting shares by
// unit, preserving adjustment order within each unit.
func SplitAll(adjustments []billing.Adjustment) map[string][]Share {
	byUnit := make(map[string][]Share)
	for _, adjustment := range adjustments {
		for _, share := range Split(adjustment) {
			byUnit[share.UnitID] = append(byUnit[share.UnitID], share)
		}
	}
	return byUnit
}
