// Package billing holds the shared types and constants for the allocation
// engine: the bill snapshot, the unit roster, meter readings, adjustments,
// and the calculated invoice output.
//
// Everything in this package is plain data. The engine packages (allocator,
// solidwaste, splitter, invoice, validator) are pure functions over these
// types; persistence and transport live elsewhere.
package billing

import (
	"errors"
	"fmt"
)

// BillStatus tracks a bill through its review lifecycle.
type BillStatus string

const (
	StatusNew             BillStatus = "NEW"
	StatusNeedsReview     BillStatus = "NEEDS_REVIEW"
	StatusPendingApproval BillStatus = "PENDING_APPROVAL"
	StatusInvoiced        BillStatus = "INVOICED"
)

// SolidWasteDefaults records a unit's preferred container size (in gallons)
// per solid-waste service type. Zero means the unit has no container of
// that type.
type SolidWasteDefaults struct {
	GarbageSize int `json:"garbage_size"`
	CompostSize int `json:"compost_size"`
	RecycleSize int `json:"recycle_size"`
}

// Unit is one tenant unit in the property roster. Immutable during a
// calculation pass.
type Unit struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Sqft               float64            `json:"sqft"`
	SubmeterID         string             `json:"submeter_id"`
	Email              string             `json:"email"`
	SolidWasteDefaults SolidWasteDefaults `json:"solid_waste_defaults"`
}

// RawLineItem is one line item as parsed off the bill PDF. Solid-waste
// container items carry Size (gallons) and Count; metered items carry
// Usage and Rate.
type RawLineItem struct {
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Date        string  `json:"date,omitempty"`
	Usage       float64 `json:"usage,omitempty"`
	Rate        float64 `json:"rate,omitempty"`
	Size        int     `json:"size,omitempty"`
	Count       int     `json:"count,omitempty"`
}

// ServicePart is one metering period within a service section.
type ServicePart struct {
	Usage       float64       `json:"usage,omitempty"`
	StartDate   string        `json:"start_date,omitempty"`
	EndDate     string        `json:"end_date,omitempty"`
	MeterNumber string        `json:"meter_number,omitempty"`
	Items       []RawLineItem `json:"items"`
}

// ServiceSection is one service on the bill (Water, Sewer, Drainage,
// Solid Waste, ...) with its stated total and per-period parts.
type ServiceSection struct {
	Total float64       `json:"total"`
	Parts []ServicePart `json:"parts"`
}

// BilledUsage sums the declared usage across the section's parts.
func (s ServiceSection) BilledUsage() float64 {
	var total float64
	for _, part := range s.Parts {
		total += part.Usage
	}
	return total
}

// Bill is a read-only billing-period snapshot. The engine never mutates it.
type Bill struct {
	ID          string                    `json:"id"`
	BillDate    string                    `json:"bill_date"`
	DueDate     string                    `json:"due_date"`
	TotalAmount float64                   `json:"total_amount"`
	Status      BillStatus                `json:"status"`
	PDFURL      string                    `json:"pdf_url,omitempty"`
	Services    map[string]ServiceSection `json:"services"`
}

// ErrMalformedBill indicates an input-shape problem (upstream data bug),
// not a recoverable billing-data gap.
var ErrMalformedBill = errors.New("malformed bill")

// ErrMalformedUnit indicates a roster entry the engine cannot price.
var ErrMalformedUnit = errors.New("malformed unit")

// Validate fails fast on shape problems that indicate an upstream bug.
// Missing or incomplete billing data is not a shape problem; the engine
// degrades gracefully on those and reports them via validation instead.
func (b Bill) Validate() error {
	if b.Services == nil {
		return fmt.Errorf("%w: bill %q has no services map", ErrMalformedBill, b.ID)
	}
	return nil
}

// ValidateUnits fails fast on roster entries with missing identity or
// negative floor area.
func ValidateUnits(units []Unit) error {
	for _, u := range units {
		if u.ID == "" {
			return fmt.Errorf("%w: unit with empty id", ErrMalformedUnit)
		}
		if u.Sqft < 0 {
			return fmt.Errorf("%w: unit %q has negative sqft", ErrMalformedUnit, u.ID)
		}
	}
	return nil
}

// ReadingUnit is the unit of measure a meter reading was captured in.
type ReadingUnit string

const (
	ReadingCCF     ReadingUnit = "ccf"
	ReadingGallons ReadingUnit = "gallons"
)

// MeterReading is one submeter value for one unit in one bill period.
type MeterReading struct {
	UnitID  string      `json:"unit_id"`
	Reading float64     `json:"reading"`
	Unit    ReadingUnit `json:"unit,omitempty"`
}

// CCF returns the reading converted to hundred cubic feet. Readings
// captured in gallons are divided by the fixed 748 gallons/CCF constant.
func (r MeterReading) CCF() float64 {
	if r.Unit == ReadingGallons {
		return r.Reading / GallonsPerCCF
	}
	return r.Reading
}

// Adjustment is a manual charge or credit split evenly across its
// assigned units.
type Adjustment struct {
	ID              string   `json:"id"`
	Description     string   `json:"description"`
	Cost            float64  `json:"cost"`
	Date            string   `json:"date,omitempty"`
	AssignedUnitIDs []string `json:"assigned_unit_ids"`
}

// LineItem is one categorized charge on a calculated invoice.
type LineItem struct {
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	Category    Category `json:"category"`
}

// CalculatedInvoice is the engine's per-unit output. Amount always equals
// the rounded sum of the line items.
type CalculatedInvoice struct {
	UnitID    string     `json:"unit_id"`
	UnitName  string     `json:"unit_name"`
	Amount    float64    `json:"amount"`
	LineItems []LineItem `json:"line_items"`
}
