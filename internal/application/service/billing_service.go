// Package service contains the application workflows that sit between
// the HTTP API and the pure calculation engine: loading snapshots from
// storage, merging pending edits, invoking the engine, and persisting
// results in the right order.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/domain/invoice"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
	"github.com/utilitysplitter/backend/internal/domain/validator"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

// ErrBillNotFound is returned when a workflow references an unknown bill.
var ErrBillNotFound = errors.New("bill not found")

// NotReadyError reports a blocked approval with every blocking reason.
type NotReadyError struct {
	Reasons []string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("bill not ready for approval: %s", strings.Join(e.Reasons, "; "))
}

// BillingService runs the calculation and approval workflows over a
// stored bill.
type BillingService struct {
	repo storage.Repository
	log  *slog.Logger
}

// NewBillingService creates a billing service
func NewBillingService(repo storage.Repository, logger *slog.Logger) *BillingService {
	return &BillingService{repo: repo, log: logger}
}

// PendingEdits carries unsaved form state into a preview so the numbers
// reflect what the admin sees on screen, not just what storage has.
type PendingEdits struct {
	Readings    []billing.MeterReading
	Adjustments []billing.Adjustment
}

// PreviewResult bundles the invoices with every validation report.
type PreviewResult struct {
	Bill       billing.Bill                `json:"bill"`
	Invoices   []billing.CalculatedInvoice `json:"invoices"`
	SolidWaste validator.SolidWasteReport  `json:"solid_waste"`
	BillTotal  validator.BillTotalReport   `json:"bill_total"`
	Readiness  validator.Readiness         `json:"readiness"`
}

// Preview computes invoices and validation for a bill without writing
// anything. Pending edits take precedence over persisted values.
func (s *BillingService) Preview(billID string, pending PendingEdits) (*PreviewResult, error) {
	snapshot, err := s.loadSnapshot(billID)
	if err != nil {
		return nil, err
	}

	readings := billing.ResolveReadings(snapshot.readings, pending.Readings)
	adjustments := billing.ResolveAdjustments(snapshot.adjustments, pending.Adjustments)

	invoices := invoice.Assemble(invoice.Inputs{
		Bill:        snapshot.bill,
		Units:       snapshot.units,
		Readings:    readings,
		Adjustments: adjustments,
		Assignments: snapshot.assignments,
	})

	var solidWasteTotal float64
	var unmatched []billing.RawLineItem
	if section, ok := invoice.FindService(snapshot.bill.Services, "solid waste"); ok {
		solidWasteTotal = section.Total
		_, unmatched = solidwaste.Parse(section)
	}

	solidWasteReport := validator.ValidateSolidWaste(snapshot.units, snapshot.assignments, solidWasteTotal, unmatched)
	billTotalReport := validator.ValidateBillTotal(invoices, snapshot.bill.TotalAmount)
	readiness := validator.CheckReadiness(validator.ReadinessInputs{
		Units:       snapshot.units,
		Readings:    readings,
		Adjustments: adjustments,
		SolidWaste:  solidWasteReport,
		BillTotal:   billTotalReport,
	})

	return &PreviewResult{
		Bill:       snapshot.bill,
		Invoices:   invoices,
		SolidWaste: solidWasteReport,
		BillTotal:  billTotalReport,
		Readiness:  readiness,
	}, nil
}

// SaveReadings persists the bill's submeter readings, replacing any
// previous set.
func (s *BillingService) SaveReadings(billID string, readings []billing.MeterReading) error {
	if err := s.ensureBill(billID); err != nil {
		return err
	}
	if err := s.repo.SaveReadings(billID, readings); err != nil {
		return fmt.Errorf("failed to save readings: %w", err)
	}
	s.log.Info("saved meter readings", "bill_id", billID, "count", len(readings))
	return nil
}

// CreateAdjustment records a new manual charge or credit on a bill.
func (s *BillingService) CreateAdjustment(billID, description string, cost float64, date string) (*billing.Adjustment, error) {
	if err := s.ensureBill(billID); err != nil {
		return nil, err
	}

	adjustment := &billing.Adjustment{
		ID:              uuid.NewString(),
		Description:     description,
		Cost:            cost,
		Date:            date,
		AssignedUnitIDs: []string{},
	}
	if err := s.repo.SaveAdjustment(billID, adjustment); err != nil {
		return nil, fmt.Errorf("failed to save adjustment: %w", err)
	}
	s.log.Info("created adjustment", "bill_id", billID, "adjustment_id", adjustment.ID, "cost", cost)
	return adjustment, nil
}

// AssignAdjustment replaces an adjustment's assigned unit set.
func (s *BillingService) AssignAdjustment(adjustmentID string, unitIDs []string) error {
	if err := s.repo.UpdateAdjustmentUnits(adjustmentID, unitIDs); err != nil {
		return fmt.Errorf("failed to assign adjustment: %w", err)
	}
	s.log.Info("assigned adjustment", "adjustment_id", adjustmentID, "units", len(unitIDs))
	return nil
}

// AutoAssignSolidWaste computes and persists a fresh starting assignment
// from the roster's container defaults, replacing any manual edits.
func (s *BillingService) AutoAssignSolidWaste(billID string) ([]solidwaste.Assignment, error) {
	snapshot, err := s.loadSnapshot(billID)
	if err != nil {
		return nil, err
	}

	var items []solidwaste.LineItem
	if section, ok := invoice.FindService(snapshot.bill.Services, "solid waste"); ok {
		items, _ = solidwaste.Parse(section)
	}

	assignments := solidwaste.AutoAssign(items, snapshot.units)
	if err := s.repo.SaveAssignments(billID, assignments); err != nil {
		return nil, fmt.Errorf("failed to save assignments: %w", err)
	}
	s.log.Info("auto-assigned solid waste", "bill_id", billID, "units", len(assignments))
	return assignments, nil
}

// ToggleSolidWaste claims or releases one container slot for a unit and
// persists the updated assignment set.
func (s *BillingService) ToggleSolidWaste(billID, unitID string, serviceType solidwaste.ServiceType, size int, on bool) ([]solidwaste.Assignment, error) {
	snapshot, err := s.loadSnapshot(billID)
	if err != nil {
		return nil, err
	}

	assignments := snapshot.assignments
	if len(assignments) == 0 {
		// No record yet for any unit; start from an empty set
		for _, unit := range snapshot.units {
			assignments = append(assignments, solidwaste.Assignment{UnitID: unit.ID})
		}
	}

	itemKey := fmt.Sprintf("%s-%d", serviceType, size)
	if on {
		var items []solidwaste.LineItem
		if section, ok := invoice.FindService(snapshot.bill.Services, "solid waste"); ok {
			items, _ = solidwaste.Parse(section)
		}
		item, found := findLineItem(items, serviceType, size)
		if !found {
			return nil, fmt.Errorf("no %s line item on bill %s", itemKey, billID)
		}
		assignments, err = solidwaste.ToggleOn(assignments, unitID, item)
		if err != nil {
			return nil, err
		}
	} else {
		assignments = solidwaste.ToggleOff(assignments, unitID, itemKey)
	}

	if err := s.repo.SaveAssignments(billID, assignments); err != nil {
		return nil, fmt.Errorf("failed to save assignments: %w", err)
	}
	s.log.Info("toggled solid waste slot", "bill_id", billID, "unit_id", unitID, "item", itemKey, "on", on)
	return assignments, nil
}

// SubmitForApproval moves a reviewed bill to PENDING_APPROVAL.
func (s *BillingService) SubmitForApproval(billID string) error {
	bill, err := s.repo.GetBill(billID)
	if err != nil {
		return fmt.Errorf("failed to load bill: %w", err)
	}
	if bill == nil {
		return ErrBillNotFound
	}
	if bill.Status == billing.StatusInvoiced {
		return fmt.Errorf("bill %s is already invoiced", billID)
	}
	return s.repo.UpdateBillStatus(billID, billing.StatusPendingApproval)
}

// Approve runs the readiness gate and, if it passes, persists the
// calculated invoices and transitions the bill to INVOICED. Invoices are
// written before the status flips so a partial failure leaves the bill
// re-approvable.
func (s *BillingService) Approve(billID string) (*PreviewResult, error) {
	result, err := s.Preview(billID, PendingEdits{})
	if err != nil {
		return nil, err
	}

	if result.Bill.Status != billing.StatusPendingApproval {
		return nil, fmt.Errorf("bill %s is %s, expected %s", billID, result.Bill.Status, billing.StatusPendingApproval)
	}
	if !result.Readiness.Ready {
		return nil, &NotReadyError{Reasons: result.Readiness.Errors}
	}

	if err := s.repo.SaveInvoices(billID, result.Invoices, storage.InvoiceInvoiced); err != nil {
		return nil, fmt.Errorf("failed to persist invoices: %w", err)
	}
	if err := s.repo.UpdateBillStatus(billID, billing.StatusInvoiced); err != nil {
		return nil, fmt.Errorf("failed to update bill status: %w", err)
	}

	s.log.Info("approved bill", "bill_id", billID, "invoices", len(result.Invoices))
	result.Bill.Status = billing.StatusInvoiced
	return result, nil
}

type billSnapshot struct {
	bill        billing.Bill
	units       []billing.Unit
	readings    []billing.MeterReading
	adjustments []billing.Adjustment
	assignments []solidwaste.Assignment
}

// loadSnapshot gathers one consistent view of everything the engine
// reads, failing fast on malformed shapes.
func (s *BillingService) loadSnapshot(billID string) (*billSnapshot, error) {
	bill, err := s.repo.GetBill(billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill: %w", err)
	}
	if bill == nil {
		return nil, ErrBillNotFound
	}
	if err := bill.Validate(); err != nil {
		return nil, err
	}

	units, err := s.repo.ListUnits()
	if err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}
	if err := billing.ValidateUnits(units); err != nil {
		return nil, err
	}

	readings, err := s.repo.GetReadings(billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	adjustments, err := s.repo.GetAdjustments(billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load adjustments: %w", err)
	}

	assignments, err := s.repo.GetAssignments(billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	return &billSnapshot{
		bill:        *bill,
		units:       units,
		readings:    readings,
		adjustments: adjustments,
		assignments: assignments,
	}, nil
}

func (s *BillingService) ensureBill(billID string) error {
	bill, err := s.repo.GetBill(billID)
	if err != nil {
		return fmt.Errorf("failed to load bill: %w", err)
	}
	if bill == nil {
		return ErrBillNotFound
	}
	return nil
}

func findLineItem(items []solidwaste.LineItem, serviceType solidwaste.ServiceType, size int) (solidwaste.LineItem, bool) {
	for _, item := range items {
		if item.ServiceType == serviceType && item.Size == size {
			return item, true
		}
	}
	return solidwaste.LineItem{}, false
}
