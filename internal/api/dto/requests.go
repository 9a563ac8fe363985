package dto

// SaveUnitRequest is the body for creating or updating a unit.
type SaveUnitRequest struct {
	Name        string  `json:"name"`
	Sqft        float64 `json:"sqft"`
	SubmeterID  string  `json:"submeter_id"`
	Email       string  `json:"email"`
	GarbageSize int     `json:"garbage_size"`
	CompostSize int     `json:"compost_size"`
	RecycleSize int     `json:"recycle_size"`
}

// ReadingRequest is one submeter reading within a SaveReadingsRequest.
type ReadingRequest struct {
	UnitID  string  `json:"unit_id"`
	Reading float64 `json:"reading"`
	Unit    string  `json:"unit,omitempty"` // "ccf" (default) or "gallons"
}

// SaveReadingsRequest replaces a bill's meter readings.
type SaveReadingsRequest struct {
	Readings []ReadingRequest `json:"readings"`
}

// CreateAdjustmentRequest adds a manual charge or credit to a bill.
type CreateAdjustmentRequest struct {
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Date        string  `json:"date,omitempty"`
}

// AssignAdjustmentRequest replaces an adjustment's assigned units.
type AssignAdjustmentRequest struct {
	UnitIDs []string `json:"unit_ids"`
}

// ToggleContainerRequest claims or releases one container slot.
type ToggleContainerRequest struct {
	UnitID      string `json:"unit_id"`
	ServiceType string `json:"service_type"` // "garbage", "compost", "recycle"
	Size        int    `json:"size"`
	Assigned    bool   `json:"assigned"`
}

// PreviewRequest carries unsaved edits into an invoice preview. Both
// fields are optional; an empty body previews persisted state.
type PreviewRequest struct {
	Readings    []ReadingRequest           `json:"readings,omitempty"`
	Adjustments []PendingAdjustmentRequest `json:"adjustments,omitempty"`
}

// PendingAdjustmentRequest is an unsaved adjustment edit in a preview.
type PendingAdjustmentRequest struct {
	ID              string   `json:"id,omitempty"`
	Description     string   `json:"description"`
	Cost            float64  `json:"cost"`
	Date            string   `json:"date,omitempty"`
	AssignedUnitIDs []string `json:"assigned_unit_ids"`
}
