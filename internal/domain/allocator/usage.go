// Package allocator splits a metered service's cost across units by
// submeter usage, with the unmetered common-area remainder split by
// floor-area share.
package allocator

import (
	"github.com/utilitysplitter/backend/internal/domain/billing"
)

// UnitAllocation is one unit's share of a single metered service.
type UnitAllocation struct {
	UnitID           string
	UsageCCF         float64
	UsageCharge      float64
	CommonAreaCharge float64
}

// Result is the allocation of one service section across the roster.
type Result struct {
	CostPerCCF        float64
	BilledUsage       float64
	TotalMeteredUsage float64
	CommonAreaUsage   float64
	Allocations       []UnitAllocation
}

// Allocate splits one metered service (water, sewer, drainage) across the
// roster. Cost per CCF is the section total over the billed usage; each
// unit pays its metered share, and the unmetered remainder is split by
// sqft ratio. Charges are rounded to cents per line. A section with no
// billed usage allocates nothing.
func Allocate(section billing.ServiceSection, units []billing.Unit, readings map[string]billing.MeterReading) Result {
	result := Result{BilledUsage: section.BilledUsage()}

	if result.BilledUsage > 0 {
		result.CostPerCCF = section.Total / result.BilledUsage
	}

	var totalSqft float64
	for _, unit := range units {
		totalSqft += unit.Sqft
		if reading, ok := readings[unit.ID]; ok {
			result.TotalMeteredUsage += reading.CCF()
		}
	}

	result.CommonAreaUsage = result.BilledUsage - result.TotalMeteredUsage
	if result.CommonAreaUsage < 0 {
		result.CommonAreaUsage = 0
	}
	commonAreaCost := result.CommonAreaUsage * result.CostPerCCF

	result.Allocations = make([]UnitAllocation, 0, len(units))
	for _, unit := range units {
		alloc := UnitAllocation{UnitID: unit.ID}
		if reading, ok := readings[unit.ID]; ok {
			alloc.UsageCCF = reading.CCF()
		}
		alloc.UsageCharge = billing.RoundToCents(alloc.UsageCCF * result.CostPerCCF)
		if totalSqft > 0 {
			alloc.CommonAreaCharge = billing.RoundToCents(commonAreaCost * unit.Sqft / totalSqft)
		}
		result.Allocations = append(result.Allocations, alloc)
	}

	return result
}
