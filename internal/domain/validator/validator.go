// Package validator reconciles calculated results against the bill's
// stated totals and checks input completeness. Every check returns a
// structured report rather than an error; gaps in billing data are
// findings, not failures.
package validator

import (
	"fmt"
	"math"

	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
)

// Recycle pickup is free on the underlying tariff, so a missing recycle
// assignment warns instead of blocking approval.
const recycleBlocksReadiness = false

// SolidWasteReport is the outcome of reconciling assigned container costs
// against the bill's solid waste section.
type SolidWasteReport struct {
	IsValid       bool     `json:"is_valid"`
	AssignedTotal float64  `json:"assigned_total"`
	BillTotal     float64  `json:"bill_total"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
}

// ValidateSolidWaste checks that every unit has its required container
// assignments and that the assigned totals reconcile with the bill's
// solid waste total within the rounding tolerance. Unmatched bill line
// items are surfaced as warnings.
func ValidateSolidWaste(units []billing.Unit, assignments []solidwaste.Assignment, billTotal float64, unmatched []billing.RawLineItem) SolidWasteReport {
	report := SolidWasteReport{BillTotal: billing.RoundToCents(billTotal)}

	byUnit := make(map[string]solidwaste.Assignment, len(assignments))
	var assigned float64
	for _, a := range assignments {
		byUnit[a.UnitID] = a
		assigned += a.Total
	}
	report.AssignedTotal = billing.RoundToCents(assigned)

	for _, unit := range units {
		assignment := byUnit[unit.ID]
		if len(assignment.GarbageItems) == 0 {
			report.Errors = append(report.Errors, fmt.Sprintf("Unit %s missing garbage assignment", unitLabel(unit)))
		}
		if len(assignment.CompostItems) == 0 {
			report.Errors = append(report.Errors, fmt.Sprintf("Unit %s missing compost assignment", unitLabel(unit)))
		}
		if len(assignment.RecycleItems) == 0 {
			msg := fmt.Sprintf("Unit %s missing recycle assignment", unitLabel(unit))
			if recycleBlocksReadiness {
				report.Errors = append(report.Errors, msg)
			} else {
				report.Warnings = append(report.Warnings, msg)
			}
		}
	}

	if diff := math.Abs(report.AssignedTotal - report.BillTotal); diff > billing.ReconcileTolerance {
		report.Errors = append(report.Errors, fmt.Sprintf(
			"Assigned solid waste total $%.2f does not match bill total $%.2f", report.AssignedTotal, report.BillTotal))
	}

	for _, item := range unmatched {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Unmatched solid waste line item %q ($%.2f)", item.Description, item.Cost))
	}

	report.IsValid = len(report.Errors) == 0
	return report
}

// BillTotalReport compares the sum of calculated invoices to the bill's
// stated total. The totals and difference are always populated for
// display, valid or not.
type BillTotalReport struct {
	IsValid         bool    `json:"is_valid"`
	CalculatedTotal float64 `json:"calculated_total"`
	BillTotal       float64 `json:"bill_total"`
	Difference      float64 `json:"difference"`
}

// ValidateBillTotal reconciles the invoice sum against the bill total
// within the rounding tolerance.
func ValidateBillTotal(invoices []billing.CalculatedInvoice, billTotal float64) BillTotalReport {
	var calculated float64
	for _, inv := range invoices {
		calculated += inv.Amount
	}

	report := BillTotalReport{
		CalculatedTotal: billing.RoundToCents(calculated),
		BillTotal:       billing.RoundToCents(billTotal),
	}
	report.Difference = billing.RoundToCents(report.CalculatedTotal - report.BillTotal)
	report.IsValid = math.Abs(report.Difference) <= billing.ReconcileTolerance
	return report
}

// Readiness is the aggregate approval gate. Ready is true only when every
// blocking condition is clear; Errors lists all blocking reasons at once
// so an admin can fix them in one pass.
type Readiness struct {
	Ready  bool     `json:"ready"`
	Errors []string `json:"errors"`
}

// ReadinessInputs collects everything the gate inspects.
type ReadinessInputs struct {
	Units       []billing.Unit
	Readings    map[string]billing.MeterReading
	Adjustments []billing.Adjustment
	SolidWaste  SolidWasteReport
	BillTotal   BillTotalReport
}

// CheckReadiness decides whether a bill may move to invoiced. A reading
// must exist for every unit (zero is fine, absent is not), every
// adjustment needs at least one assigned unit, and both reconciliation
// reports must pass.
func CheckReadiness(in ReadinessInputs) Readiness {
	var errs []string

	for _, unit := range in.Units {
		if _, ok := in.Readings[unit.ID]; !ok {
			errs = append(errs, fmt.Sprintf("Unit %s has no meter reading", unitLabel(unit)))
		}
	}

	for _, adjustment := range in.Adjustments {
		if len(adjustment.AssignedUnitIDs) == 0 {
			errs = append(errs, fmt.Sprintf("Adjustment %q has no assigned units", adjustment.Description))
		}
	}

	if !in.SolidWaste.IsValid {
		errs = append(errs, in.SolidWaste.Errors...)
	}

	if !in.BillTotal.IsValid {
		errs = append(errs, fmt.Sprintf(
			"Calculated total $%.2f does not match bill total $%.2f (difference $%.2f)",
			in.BillTotal.CalculatedTotal, in.BillTotal.BillTotal, in.BillTotal.Difference))
	}

	return Readiness{Ready: len(errs) == 0, Errors: errs}
}

func unitLabel(unit billing.Unit) string {
	if unit.Name != "" {
		return unit.Name
	}
	return unit.ID
}
