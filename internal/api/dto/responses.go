package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// MessageResponse is a simple acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// UnitResponse represents a rental unit in API responses.
type UnitResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Sqft        float64 `json:"sqft"`
	SubmeterID  string  `json:"submeter_id,omitempty"`
	Email       string  `json:"email,omitempty"`
	GarbageSize int     `json:"garbage_size,omitempty"`
	CompostSize int     `json:"compost_size,omitempty"`
	RecycleSize int     `json:"recycle_size,omitempty"`
}

// UnitListResponse is returned when listing units.
type UnitListResponse struct {
	Units []UnitResponse `json:"units"`
	Count int            `json:"count"`
}

// BillSummaryResponse represents a bill in list responses, without the
// parsed service detail.
type BillSummaryResponse struct {
	ID          string  `json:"id"`
	BillDate    string  `json:"bill_date"`
	DueDate     string  `json:"due_date,omitempty"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
	PDFURL      string  `json:"pdf_url,omitempty"`
}

// BillListResponse is returned when listing bills.
type BillListResponse struct {
	Bills      []BillSummaryResponse `json:"bills"`
	TotalCount int                   `json:"total_count"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}

// BillDetailResponse is the full view of one bill: the parsed snapshot
// plus everything the admin has entered against it.
type BillDetailResponse struct {
	BillSummaryResponse
	Services    map[string]ServiceSectionResponse `json:"services"`
	Readings    []ReadingResponse                 `json:"readings"`
	Adjustments []AdjustmentResponse              `json:"adjustments"`
	Assignments []AssignmentResponse              `json:"assignments"`
}

// ServiceSectionResponse is one utility's section of the parsed bill.
type ServiceSectionResponse struct {
	Total float64               `json:"total"`
	Parts []ServicePartResponse `json:"parts"`
}

// ServicePartResponse is one billing period within a service section.
type ServicePartResponse struct {
	Usage       float64            `json:"usage,omitempty"`
	StartDate   string             `json:"start,omitempty"`
	EndDate     string             `json:"end,omitempty"`
	MeterNumber string             `json:"meter_number,omitempty"`
	Items       []RawItemResponse  `json:"items,omitempty"`
}

// RawItemResponse is one raw line item from the parsed bill.
type RawItemResponse struct {
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Date        string  `json:"date,omitempty"`
	Usage       float64 `json:"usage,omitempty"`
	Rate        float64 `json:"rate,omitempty"`
	Size        int     `json:"size,omitempty"`
	Count       int     `json:"count,omitempty"`
}

// ReadingResponse is one submeter reading.
type ReadingResponse struct {
	UnitID  string  `json:"unit_id"`
	Reading float64 `json:"reading"`
	Unit    string  `json:"unit"`
	CCF     float64 `json:"ccf"`
}

// AdjustmentResponse is one manual charge or credit.
type AdjustmentResponse struct {
	ID              string   `json:"id"`
	Description     string   `json:"description"`
	Cost            float64  `json:"cost"`
	Date            string   `json:"date,omitempty"`
	AssignedUnitIDs []string `json:"assigned_unit_ids"`
}

// AssignedItemResponse is one claimed container slot.
type AssignedItemResponse struct {
	ItemKey     string  `json:"item_key"`
	ServiceType string  `json:"service_type"`
	Size        int     `json:"size"`
	SlotIndex   int     `json:"slot_index"`
	Cost        float64 `json:"cost"`
}

// AssignmentResponse is one unit's container assignments.
type AssignmentResponse struct {
	UnitID       string                 `json:"unit_id"`
	GarbageItems []AssignedItemResponse `json:"garbage_items"`
	CompostItems []AssignedItemResponse `json:"compost_items"`
	RecycleItems []AssignedItemResponse `json:"recycle_items"`
	GarbageTotal float64                `json:"garbage_total"`
	CompostTotal float64                `json:"compost_total"`
	RecycleTotal float64                `json:"recycle_total"`
	Total        float64                `json:"total"`
}

// AssignmentListResponse is returned after assignment mutations.
type AssignmentListResponse struct {
	Assignments []AssignmentResponse `json:"assignments"`
}

// LineItemResponse is one line of a calculated invoice.
type LineItemResponse struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// InvoiceResponse is one unit's calculated invoice.
type InvoiceResponse struct {
	UnitID    string             `json:"unit_id"`
	UnitName  string             `json:"unit_name"`
	Amount    float64            `json:"amount"`
	LineItems []LineItemResponse `json:"line_items"`
}

// InvoiceRecordResponse is a persisted invoice with its status.
type InvoiceRecordResponse struct {
	ID      int64           `json:"id"`
	BillID  string          `json:"bill_id"`
	Status  string          `json:"status"`
	Invoice InvoiceResponse `json:"invoice"`
}

// InvoiceListResponse is returned when listing persisted invoices.
type InvoiceListResponse struct {
	Invoices []InvoiceRecordResponse `json:"invoices"`
	Count    int                     `json:"count"`
}

// SolidWasteReportResponse is the container assignment validation report.
type SolidWasteReportResponse struct {
	IsValid       bool     `json:"is_valid"`
	AssignedTotal float64  `json:"assigned_total"`
	BillTotal     float64  `json:"bill_total"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
}

// BillTotalReportResponse is the reconciliation report.
type BillTotalReportResponse struct {
	IsValid         bool    `json:"is_valid"`
	CalculatedTotal float64 `json:"calculated_total"`
	BillTotal       float64 `json:"bill_total"`
	Difference      float64 `json:"difference"`
}

// ReadinessResponse is the approval gate verdict.
type ReadinessResponse struct {
	Ready  bool     `json:"ready"`
	Errors []string `json:"errors"`
}

// PreviewResponse bundles calculated invoices with validation reports.
type PreviewResponse struct {
	BillID     string                   `json:"bill_id"`
	Status     string                   `json:"status"`
	Invoices   []InvoiceResponse        `json:"invoices"`
	SolidWaste SolidWasteReportResponse `json:"solid_waste"`
	BillTotal  BillTotalReportResponse  `json:"bill_total"`
	Readiness  ReadinessResponse        `json:"readiness"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
