// Package solidwaste extracts container line items from a bill's solid
// waste section, distributes each group's cost fairly across its physical
// container slots, and assigns slots to units.
package solidwaste

import (
	"fmt"
	"strings"

	"github.com/utilitysplitter/backend/internal/domain/billing"
)

// ServiceType is the solid-waste pickup category a container belongs to.
type ServiceType string

const (
	ServiceGarbage ServiceType = "garbage"
	ServiceCompost ServiceType = "compost"
	ServiceRecycle ServiceType = "recycle"
	ServiceOther   ServiceType = "other"
)

// Classify maps a bill line-item description to a service type. Utility
// bills label compost pickup "Food/Yard Waste".
func Classify(description string) ServiceType {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "garbage"):
		return ServiceGarbage
	case strings.Contains(desc, "compost"), strings.Contains(desc, "food"), strings.Contains(desc, "yard"):
		return ServiceCompost
	case strings.Contains(desc, "recycle"):
		return ServiceRecycle
	default:
		return ServiceOther
	}
}

// LineItem is one distinct (service type, container size) group found on
// the bill. DistributedCosts holds the exact per-slot cost for each of the
// Count physical containers; its elements always sum to Cost.
type LineItem struct {
	ServiceType      ServiceType `json:"service_type"`
	Size             int         `json:"size"`
	Count            int         `json:"count"`
	Cost             float64     `json:"cost"`
	CostPerUnit      float64     `json:"cost_per_unit"`
	DistributedCosts []float64   `json:"distributed_costs"`
}

// Key identifies the group, e.g. "garbage-32".
func (li LineItem) Key() string {
	return fmt.Sprintf("%s-%d", li.ServiceType, li.Size)
}

// Parse groups the section's container line items by (service type, size)
// and computes each group's fair per-slot distribution. Items without a
// container size, or whose description matches no known service type, are
// returned separately for the caller to surface as warnings.
func Parse(section billing.ServiceSection) (items []LineItem, unmatched []billing.RawLineItem) {
	groups := make(map[string]*LineItem)
	var order []string

	for _, part := range section.Parts {
		for _, raw := range part.Items {
			serviceType := Classify(raw.Description)
			if raw.Size <= 0 || serviceType == ServiceOther {
				unmatched = append(unmatched, raw)
				continue
			}

			key := fmt.Sprintf("%s-%d", serviceType, raw.Size)
			group, ok := groups[key]
			if !ok {
				group = &LineItem{ServiceType: serviceType, Size: raw.Size}
				groups[key] = group
				order = append(order, key)
			}

			count := raw.Count
			if count < 1 {
				count = 1
			}
			group.Count += count
			group.Cost += raw.Cost
		}
	}

	items = make([]LineItem, 0, len(order))
	for _, key := range order {
		group := groups[key]
		group.Cost = billing.RoundToCents(group.Cost)
		group.CostPerUnit = billing.RoundToCents(group.Cost / float64(group.Count))
		group.DistributedCosts = distribute(group.Cost, group.Count)
		items = append(items, *group)
	}
	return items, unmatched
}

// distribute splits cost across count slots in integer cents. Earlier
// slots absorb the remainder cents so the slice sums to cost exactly.
func distribute(cost float64, count int) []float64 {
	shares := billing.SplitCents(billing.Cents(cost), count)
	costs := make([]float64, len(shares))
	for i, share := range shares {
		costs[i] = billing.Dollars(share)
	}
	return costs
}
