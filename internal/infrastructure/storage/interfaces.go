package storage

import (
	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	UnitRepository
	BillRepository
	ReadingRepository
	AdjustmentRepository
	AssignmentRepository
	InvoiceRepository
	Close() error
}

// UnitRepository handles the property roster
type UnitRepository interface {
	// SaveUnit inserts or updates a unit
	SaveUnit(unit *billing.Unit) error

	// GetUnit retrieves a unit by ID, nil if absent
	GetUnit(id string) (*billing.Unit, error)

	// ListUnits returns the full roster ordered by name
	ListUnits() ([]billing.Unit, error)

	// DeleteUnit removes a unit from the roster
	DeleteUnit(id string) error
}

// BillRepository handles bill snapshots
type BillRepository interface {
	// SaveBill inserts or updates a bill snapshot
	SaveBill(bill *billing.Bill) error

	// GetBill retrieves a bill by ID, nil if absent
	GetBill(id string) (*billing.Bill, error)

	// ListBills returns bills matching the filters with pagination
	ListBills(filters BillFilters) (*BillListResult, error)

	// UpdateBillStatus moves a bill through its lifecycle
	UpdateBillStatus(id string, status billing.BillStatus) error
}

// BillFilters defines filters for listing bills
type BillFilters struct {
	Status billing.BillStatus // Filter by status (empty = all)
	Limit  int                // Max results (0 = default 50)
	Offset int                // Pagination offset
}

// BillListResult contains paginated bill results
type BillListResult struct {
	Bills      []billing.Bill `json:"bills"`
	TotalCount int            `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// ReadingRepository handles per-bill submeter readings
type ReadingRepository interface {
	// SaveReadings replaces the bill's readings with the given set
	SaveReadings(billID string, readings []billing.MeterReading) error

	// GetReadings returns all readings for a bill
	GetReadings(billID string) ([]billing.MeterReading, error)
}

// AdjustmentRepository handles manual charges and credits
type AdjustmentRepository interface {
	// SaveAdjustment inserts or updates an adjustment on a bill
	SaveAdjustment(billID string, adjustment *billing.Adjustment) error

	// GetAdjustments returns a bill's adjustments in insertion order
	GetAdjustments(billID string) ([]billing.Adjustment, error)

	// UpdateAdjustmentUnits replaces an adjustment's assigned unit set
	UpdateAdjustmentUnits(adjustmentID string, unitIDs []string) error
}

// AssignmentRepository handles per-unit solid waste assignments
type AssignmentRepository interface {
	// SaveAssignments replaces the bill's assignments with the given set
	SaveAssignments(billID string, assignments []solidwaste.Assignment) error

	// GetAssignments returns all assignments for a bill
	GetAssignments(billID string) ([]solidwaste.Assignment, error)
}

// InvoiceStatus tracks persisted invoice state
type InvoiceStatus string

const (
	InvoiceDraft    InvoiceStatus = "DRAFT"
	InvoiceInvoiced InvoiceStatus = "INVOICED"
)

// InvoiceRecord is a persisted calculated invoice
type InvoiceRecord struct {
	ID        int64                     `json:"id"`
	BillID    string                    `json:"bill_id"`
	Status    InvoiceStatus             `json:"status"`
	CreatedAt string                    `json:"created_at"`
	Invoice   billing.CalculatedInvoice `json:"invoice"`
}

// InvoiceRepository handles persisted invoices
type InvoiceRepository interface {
	// SaveInvoices replaces the bill's invoices with the given set
	SaveInvoices(billID string, invoices []billing.CalculatedInvoice, status InvoiceStatus) error

	// GetInvoices returns all persisted invoices for a bill
	GetInvoices(billID string) ([]InvoiceRecord, error)

	// UpdateInvoiceStatus updates every invoice on a bill
	UpdateInvoiceStatus(billID string, status InvoiceStatus) error
}
