package storage

import (
	"fmt"
	"sort"

	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	units       map[string]billing.Unit
	bills       map[string]billing.Bill
	readings    map[string][]billing.MeterReading     // Keyed by bill_id
	adjustments map[string][]billing.Adjustment       // Keyed by bill_id
	assignments map[string][]solidwaste.Assignment    // Keyed by bill_id
	invoices    map[string][]InvoiceRecord            // Keyed by bill_id
	nextInvID   int64

	// Hooks for test assertions
	SaveBillCalled        bool
	LastSavedBill         *billing.Bill
	SaveInvoicesCalled    bool
	LastSavedInvoices     []billing.CalculatedInvoice
	LastInvoiceStatus     InvoiceStatus
	SaveAssignmentsCalled bool
	UpdateStatusCalled    bool
	LastStatusUpdate      billing.BillStatus

	// Error injection for testing error paths
	SaveBillErr         error
	GetBillErr          error
	SaveReadingsErr     error
	SaveInvoicesErr     error
	SaveAssignmentsErr  error
	UpdateBillStatusErr error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		units:       make(map[string]billing.Unit),
		bills:       make(map[string]billing.Bill),
		readings:    make(map[string][]billing.MeterReading),
		adjustments: make(map[string][]billing.Adjustment),
		assignments: make(map[string][]solidwaste.Assignment),
		invoices:    make(map[string][]InvoiceRecord),
		nextInvID:   1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveUnit saves a unit to the in-memory map
func (m *MockRepository) SaveUnit(unit *billing.Unit) error {
	m.units[unit.ID] = *unit
	return nil
}

// GetUnit retrieves a unit from the in-memory map
func (m *MockRepository) GetUnit(id string) (*billing.Unit, error) {
	unit, ok := m.units[id]
	if !ok {
		return nil, nil
	}
	return &unit, nil
}

// ListUnits returns the roster ordered by name
func (m *MockRepository) ListUnits() ([]billing.Unit, error) {
	units := make([]billing.Unit, 0, len(m.units))
	for _, unit := range m.units {
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Name != units[j].Name {
			return units[i].Name < units[j].Name
		}
		return units[i].ID < units[j].ID
	})
	return units, nil
}

// DeleteUnit removes a unit
func (m *MockRepository) DeleteUnit(id string) error {
	delete(m.units, id)
	return nil
}

// SaveBill saves a bill to the in-memory map
func (m *MockRepository) SaveBill(bill *billing.Bill) error {
	m.SaveBillCalled = true
	m.LastSavedBill = bill
	if m.SaveBillErr != nil {
		return m.SaveBillErr
	}
	copied := *bill
	if copied.Status == "" {
		copied.Status = billing.StatusNew
	}
	if existing, ok := m.bills[bill.ID]; ok {
		// Saving an existing bill refreshes the snapshot, not the status
		copied.Status = existing.Status
	}
	m.bills[bill.ID] = copied
	return nil
}

// GetBill retrieves a bill from the in-memory map
func (m *MockRepository) GetBill(id string) (*billing.Bill, error) {
	if m.GetBillErr != nil {
		return nil, m.GetBillErr
	}
	bill, ok := m.bills[id]
	if !ok {
		return nil, nil
	}
	return &bill, nil
}

// ListBills returns bills matching the filters with pagination
func (m *MockRepository) ListBills(filters BillFilters) (*BillListResult, error) {
	var matching []billing.Bill
	for _, bill := range m.bills {
		if filters.Status != "" && bill.Status != filters.Status {
			continue
		}
		matching = append(matching, bill)
	}
	sort.Slice(matching, func(i, j int) bool {
		if matching[i].BillDate != matching[j].BillDate {
			return matching[i].BillDate > matching[j].BillDate
		}
		return matching[i].ID < matching[j].ID
	})

	limit := filters.Limit
	if limit == 0 {
		limit = 50
	}

	total := len(matching)
	start := filters.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &BillListResult{
		Bills:      matching[start:end],
		TotalCount: total,
		Limit:      limit,
		Offset:     filters.Offset,
	}, nil
}

// UpdateBillStatus moves a bill through its lifecycle
func (m *MockRepository) UpdateBillStatus(id string, status billing.BillStatus) error {
	m.UpdateStatusCalled = true
	m.LastStatusUpdate = status
	if m.UpdateBillStatusErr != nil {
		return m.UpdateBillStatusErr
	}
	bill, ok := m.bills[id]
	if !ok {
		return fmt.Errorf("bill %s not found", id)
	}
	bill.Status = status
	m.bills[id] = bill
	return nil
}

// SaveReadings replaces the bill's readings
func (m *MockRepository) SaveReadings(billID string, readings []billing.MeterReading) error {
	if m.SaveReadingsErr != nil {
		return m.SaveReadingsErr
	}
	m.readings[billID] = append([]billing.MeterReading(nil), readings...)
	return nil
}

// GetReadings returns all readings for a bill
func (m *MockRepository) GetReadings(billID string) ([]billing.MeterReading, error) {
	return append([]billing.MeterReading(nil), m.readings[billID]...), nil
}

// SaveAdjustment inserts or updates an adjustment
func (m *MockRepository) SaveAdjustment(billID string, adjustment *billing.Adjustment) error {
	existing := m.adjustments[billID]
	for i, a := range existing {
		if a.ID == adjustment.ID {
			existing[i] = *adjustment
			return nil
		}
	}
	m.adjustments[billID] = append(existing, *adjustment)
	return nil
}

// GetAdjustments returns a bill's adjustments in insertion order
func (m *MockRepository) GetAdjustments(billID string) ([]billing.Adjustment, error) {
	return append([]billing.Adjustment(nil), m.adjustments[billID]...), nil
}

// UpdateAdjustmentUnits replaces an adjustment's assigned unit set
func (m *MockRepository) UpdateAdjustmentUnits(adjustmentID string, unitIDs []string) error {
	for billID, adjustments := range m.adjustments {
		for i, a := range adjustments {
			if a.ID == adjustmentID {
				m.adjustments[billID][i].AssignedUnitIDs = append([]string(nil), unitIDs...)
				return nil
			}
		}
	}
	return fmt.Errorf("adjustment %s not found", adjustmentID)
}

// SaveAssignments replaces the bill's assignments
func (m *MockRepository) SaveAssignments(billID string, assignments []solidwaste.Assignment) error {
	m.SaveAssignmentsCalled = true
	if m.SaveAssignmentsErr != nil {
		return m.SaveAssignmentsErr
	}
	m.assignments[billID] = append([]solidwaste.Assignment(nil), assignments...)
	return nil
}

// GetAssignments returns all assignments for a bill
func (m *MockRepository) GetAssignments(billID string) ([]solidwaste.Assignment, error) {
	return append([]solidwaste.Assignment(nil), m.assignments[billID]...), nil
}

// SaveInvoices replaces the bill's invoices
func (m *MockRepository) SaveInvoices(billID string, invoices []billing.CalculatedInvoice, status InvoiceStatus) error {
	m.SaveInvoicesCalled = true
	m.LastSavedInvoices = invoices
	m.LastInvoiceStatus = status
	if m.SaveInvoicesErr != nil {
		return m.SaveInvoicesErr
	}

	records := make([]InvoiceRecord, 0, len(invoices))
	for _, inv := range invoices {
		records = append(records, InvoiceRecord{
			ID:      m.nextInvID,
			BillID:  billID,
			Status:  status,
			Invoice: inv,
		})
		m.nextInvID++
	}
	m.invoices[billID] = records
	return nil
}

// GetInvoices returns all persisted invoices for a bill
func (m *MockRepository) GetInvoices(billID string) ([]InvoiceRecord, error) {
	return append([]InvoiceRecord(nil), m.invoices[billID]...), nil
}

// UpdateInvoiceStatus updates every invoice on a bill
func (m *MockRepository) UpdateInvoiceStatus(billID string, status InvoiceStatus) error {
	records := m.invoices[billID]
	for i := range records {
		records[i].Status = status
	}
	return nil
}

// Helper methods for test setup

// AddUnit adds a unit directly (for test setup)
func (m *MockRepository) AddUnit(unit billing.Unit) {
	m.units[unit.ID] = unit
}

// AddBill adds a bill directly (for test setup)
func (m *MockRepository) AddBill(bill billing.Bill) {
	if bill.Status == "" {
		bill.Status = billing.StatusNew
	}
	m.bills[bill.ID] = bill
}

// AddAdjustment adds an adjustment directly (for test setup)
func (m *MockRepository) AddAdjustment(billID string, adjustment billing.Adjustment) {
	m.adjustments[billID] = append(m.adjustments[billID], adjustment)
}

// Reset clears all data and flags (for reuse between tests)
func (m *MockRepository) Reset() {
	m.units = make(map[string]billing.Unit)
	m.bills = make(map[string]billing.Bill)
	m.readings = make(map[string][]billing.MeterReading)
	m.adjustments = make(map[string][]billing.Adjustment)
	m.assignments = make(map[string][]solidwaste.Assignment)
	m.invoices = make(map[string][]InvoiceRecord)
	m.nextInvID = 1
	m.SaveBillCalled = false
	m.LastSavedBill = nil
	m.SaveInvoicesCalled = false
	m.LastSavedInvoices = nil
	m.LastInvoiceStatus = ""
	m.SaveAssignmentsCalled = false
	m.UpdateStatusCalled = false
	m.LastStatusUpdate = ""
	m.SaveBillErr = nil
	m.GetBillErr = nil
	m.SaveReadingsErr = nil
	m.SaveInvoicesErr = nil
	m.SaveAssignmentsErr = nil
	m.UpdateBillStatusErr = nil
}
