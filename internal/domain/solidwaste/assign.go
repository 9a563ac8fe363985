package solidwaste

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/utilitysplitter/backend/internal/domain/billing"
)

// AssignedItem records one container slot claimed by a unit, with the
// slot's fair-distribution cost at the time it was claimed.
type AssignedItem struct {
	ItemKey     string      `json:"item_key"`
	ServiceType ServiceType `json:"service_type"`
	Size        int         `json:"size"`
	SlotIndex   int         `json:"slot_index"`
	Cost        float64     `json:"cost"`
}

// Assignment holds one unit's claimed container slots and category totals.
// Total is rounded once from the unrounded sum of all item costs, never
// from the pre-rounded category subtotals.
type Assignment struct {
	UnitID       string         `json:"unit_id"`
	GarbageItems []AssignedItem `json:"garbage_items"`
	CompostItems []AssignedItem `json:"compost_items"`
	RecycleItems []AssignedItem `json:"recycle_items"`
	GarbageTotal float64        `json:"garbage_total"`
	CompostTotal float64        `json:"compost_total"`
	RecycleTotal float64        `json:"recycle_total"`
	Total        float64        `json:"total"`
}

// RecomputeTotals refreshes the three category totals and the grand total
// from the assigned items. Each category total is rounded from its own
// unrounded sum; the grand total is rounded from the unrounded sum of all
// items, so a half-cent in each category cannot compound.
func (a *Assignment) RecomputeTotals() {
	sumCategory := func(items []AssignedItem) decimal.Decimal {
		sum := decimal.Zero
		for _, item := range items {
			sum = sum.Add(decimal.NewFromFloat(item.Cost))
		}
		return sum
	}

	garbage := sumCategory(a.GarbageItems)
	compost := sumCategory(a.CompostItems)
	recycle := sumCategory(a.RecycleItems)

	a.GarbageTotal = garbage.Round(2).InexactFloat64()
	a.CompostTotal = compost.Round(2).InexactFloat64()
	a.RecycleTotal = recycle.Round(2).InexactFloat64()
	a.Total = garbage.Add(compost).Add(recycle).Round(2).InexactFloat64()
}

func (a *Assignment) categoryItems(serviceType ServiceType) *[]AssignedItem {
	switch serviceType {
	case ServiceGarbage:
		return &a.GarbageItems
	case ServiceCompost:
		return &a.CompostItems
	case ServiceRecycle:
		return &a.RecycleItems
	default:
		return nil
	}
}

// AutoAssign produces a starting assignment for every unit by matching
// each unit's declared default container size against the parsed line
// items, claiming slots in ascending index order as the roster is walked.
// A unit whose default size has no matching or available item is left
// without that category; validation flags the gap downstream.
func AutoAssign(items []LineItem, units []billing.Unit) []Assignment {
	nextSlot := make(map[string]int, len(items))

	assignments := make([]Assignment, 0, len(units))
	for _, unit := range units {
		assignment := Assignment{UnitID: unit.ID}

		defaults := []struct {
			serviceType ServiceType
			size        int
		}{
			{ServiceGarbage, unit.SolidWasteDefaults.GarbageSize},
			{ServiceCompost, unit.SolidWasteDefaults.CompostSize},
			{ServiceRecycle, unit.SolidWasteDefaults.RecycleSize},
		}

		for _, want := range defaults {
			if want.size == 0 {
				continue
			}
			item, ok := findItem(items, want.serviceType, want.size)
			if !ok {
				continue
			}
			slot := nextSlot[item.Key()]
			if slot >= item.Count {
				continue
			}
			nextSlot[item.Key()] = slot + 1

			bucket := assignment.categoryItems(want.serviceType)
			*bucket = append(*bucket, AssignedItem{
				ItemKey:     item.Key(),
				ServiceType: item.ServiceType,
				Size:        item.Size,
				SlotIndex:   slot,
				Cost:        item.DistributedCosts[slot],
			})
		}

		assignment.RecomputeTotals()
		assignments = append(assignments, assignment)
	}
	return assignments
}

func findItem(items []LineItem, serviceType ServiceType, size int) (LineItem, bool) {
	for _, item := range items {
		if item.ServiceType == serviceType && item.Size == size {
			return item, true
		}
	}
	return LineItem{}, false
}

// assignedSlots counts how many slots of the item are currently claimed
// across all units.
func assignedSlots(assignments []Assignment, itemKey string) int {
	count := 0
	for _, a := range assignments {
		for _, items := range [][]AssignedItem{a.GarbageItems, a.CompostItems, a.RecycleItems} {
			for _, item := range items {
				if item.ItemKey == itemKey {
					count++
				}
			}
		}
	}
	return count
}

// ToggleOn claims the next unclaimed slot of the item for the unit. The
// slot index is the number of slots already assigned across all units, so
// repeated toggles walk the fair-distribution list in order. Returns an
// error when every slot is already claimed or the unit is not present.
func ToggleOn(assignments []Assignment, unitID string, item LineItem) ([]Assignment, error) {
	slot := assignedSlots(assignments, item.Key())
	if slot >= item.Count {
		return nil, fmt.Errorf("no free slots for %s: all %d assigned", item.Key(), item.Count)
	}

	out := cloneAssignments(assignments)
	for i := range out {
		if out[i].UnitID != unitID {
			continue
		}
		bucket := out[i].categoryItems(item.ServiceType)
		if bucket == nil {
			return nil, fmt.Errorf("unknown service type %q", item.ServiceType)
		}
		*bucket = append(*bucket, AssignedItem{
			ItemKey:     item.Key(),
			ServiceType: item.ServiceType,
			Size:        item.Size,
			SlotIndex:   slot,
			Cost:        item.DistributedCosts[slot],
		})
		out[i].RecomputeTotals()
		return out, nil
	}
	return nil, fmt.Errorf("unit %q has no assignment record", unitID)
}

// ToggleOff releases the unit's claimed slots matching the item key and
// recomputes the unit's totals from scratch.
func ToggleOff(assignments []Assignment, unitID string, itemKey string) []Assignment {
	out := cloneAssignments(assignments)
	for i := range out {
		if out[i].UnitID != unitID {
			continue
		}
		for _, bucket := range []*[]AssignedItem{&out[i].GarbageItems, &out[i].CompostItems, &out[i].RecycleItems} {
			kept := (*bucket)[:0]
			for _, item := range *bucket {
				if item.ItemKey != itemKey {
					kept = append(kept, item)
				}
			}
			*bucket = kept
		}
		out[i].RecomputeTotals()
	}
	return out
}

func cloneAssignments(assignments []Assignment) []Assignment {
	out := make([]Assignment, len(assignments))
	for i, a := range assignments {
		out[i] = a
		out[i].GarbageItems = append([]AssignedItem(nil), a.GarbageItems...)
		out[i].CompostItems = append([]AssignedItem(nil), a.CompostItems...)
		out[i].RecycleItems = append([]AssignedItem(nil), a.RecycleItems...)
	}
	return out
}
