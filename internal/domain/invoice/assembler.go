// Package invoice assembles per-unit invoices from the allocation,
// solid-waste, and adjustment engines. Pure transform; callers decide
// whether and when to persist the result.
package invoice

import (
	"sort"
	"strings"

	"github.com/utilitysplitter/backend/internal/domain/allocator"
	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
	"github.com/utilitysplitter/backend/internal/domain/splitter"
)

// Inputs is one consistent snapshot of everything the assembler reads.
type Inputs struct {
	Bill        billing.Bill
	Units       []billing.Unit
	Readings    map[string]billing.MeterReading
	Adjustments []billing.Adjustment
	Assignments []solidwaste.Assignment
}

// meteredService binds a bill service to its invoice categories and
// line-item labels. Water gets a distinct common-area category so the
// sqft-based share is visible on the invoice.
type meteredService struct {
	name           string
	usageLabel     string
	usageCategory  billing.Category
	commonLabel    string
	commonCategory billing.Category
}

var meteredServices = []meteredService{
	{"water", "Water Usage", billing.CategoryWaterUsage, "Common Area Water", billing.CategoryWaterSqft},
	{"sewer", "Sewer Usage", billing.CategorySewer, "Common Area Sewer", billing.CategorySewer},
	{"drainage", "Drainage", billing.CategoryDrainage, "Common Area Drainage", billing.CategoryDrainage},
}

var solidWasteLabels = []struct {
	label string
	total func(solidwaste.Assignment) float64
}{
	{"Solid Waste - Garbage", func(a solidwaste.Assignment) float64 { return a.GarbageTotal }},
	{"Solid Waste - Compost", func(a solidwaste.Assignment) float64 { return a.CompostTotal }},
	{"Solid Waste - Recycle", func(a solidwaste.Assignment) float64 { return a.RecycleTotal }},
}

// Assemble produces one calculated invoice per unit in roster order. Each
// invoice's amount is rounded once from the sum of its line items. Gaps
// in the inputs never fail assembly; they show up as missing line items
// and are reported by validation instead.
func Assemble(in Inputs) []billing.CalculatedInvoice {
	assignmentsByUnit := make(map[string]solidwaste.Assignment, len(in.Assignments))
	for _, a := range in.Assignments {
		assignmentsByUnit[a.UnitID] = a
	}
	adjustmentsByUnit := splitter.SplitAll(in.Adjustments)

	lineItems := make(map[string][]billing.LineItem, len(in.Units))
	for _, service := range meteredServices {
		section, ok := FindService(in.Bill.Services, service.name)
		if !ok {
			continue
		}
		result := allocator.Allocate(section, in.Units, in.Readings)
		for _, alloc := range result.Allocations {
			if alloc.UsageCharge > 0 {
				lineItems[alloc.UnitID] = append(lineItems[alloc.UnitID], billing.LineItem{
					Description: service.usageLabel,
					Amount:      alloc.UsageCharge,
					Category:    service.usageCategory,
				})
			}
			if alloc.CommonAreaCharge > 0 {
				lineItems[alloc.UnitID] = append(lineItems[alloc.UnitID], billing.LineItem{
					Description: service.commonLabel,
					Amount:      alloc.CommonAreaCharge,
					Category:    service.commonCategory,
				})
			}
		}
	}

	invoices := make([]billing.CalculatedInvoice, 0, len(in.Units))
	for _, unit := range in.Units {
		items := lineItems[unit.ID]

		if assignment, ok := assignmentsByUnit[unit.ID]; ok {
			for _, category := range solidWasteLabels {
				if total := category.total(assignment); total != 0 {
					items = append(items, billing.LineItem{
						Description: category.label,
						Amount:      total,
						Category:    billing.CategorySolidWaste,
					})
				}
			}
		}

		for _, share := range adjustmentsByUnit[unit.ID] {
			if share.Amount != 0 {
				items = append(items, billing.LineItem{
					Description: share.Description,
					Amount:      share.Amount,
					Category:    billing.CategoryAdjustment,
				})
			}
		}

		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Category.Order() < items[j].Category.Order()
		})

		var total float64
		for _, item := range items {
			total += item.Amount
		}

		invoices = append(invoices, billing.CalculatedInvoice{
			UnitID:    unit.ID,
			UnitName:  unit.Name,
			Amount:    billing.RoundToCents(total),
			LineItems: items,
		})
	}
	return invoices
}

// FindService looks up a service section by name, case-insensitively and
// by substring. Bill PDFs vary the exact section headings between
// periods ("Water", "Water Services").
func FindService(services map[string]billing.ServiceSection, name string) (billing.ServiceSection, bool) {
	needle := strings.ToLower(name)
	keys := make([]string, 0, len(services))
	for key := range services {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.Contains(strings.ToLower(key), needle) {
			return services[key], true
		}
	}
	return billing.ServiceSection{}, false
}
