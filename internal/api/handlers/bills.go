package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utilitysplitter/backend/internal/api/dto"
	"github.com/utilitysplitter/backend/internal/application/service"
	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

// BillsHandler handles bill-related HTTP requests.
type BillsHandler struct {
	*Base
	billing *service.BillingService
}

// NewBillsHandler creates a new bills handler.
func NewBillsHandler(repo storage.Repository, billingService *service.BillingService) *BillsHandler {
	return &BillsHandler{
		Base:    NewBase(repo),
		billing: billingService,
	}
}

// List handles GET /api/bills - returns paginated bill summaries.
func (h *BillsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.BillFilters{
		Status: billing.BillStatus(r.URL.Query().Get("status")),
		Limit:  ParseIntParam(r, "limit", 50),
		Offset: ParseIntParam(r, "offset", 0),
	}

	result, err := h.repo.ListBills(filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.BillListResponse{
		Bills:      make([]dto.BillSummaryResponse, 0, len(result.Bills)),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for _, bill := range result.Bills {
		response.Bills = append(response.Bills, toBillSummary(bill))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/bills/{id} - returns one bill with everything
// entered against it.
func (h *BillsHandler) Get(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	if billID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("bill ID is required"))
		return
	}

	bill, err := h.repo.GetBill(billID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if bill == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("bill"))
		return
	}

	readings, err := h.repo.GetReadings(billID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	adjustments, err := h.repo.GetAdjustments(billID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	assignments, err := h.repo.GetAssignments(billID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toBillDetail(*bill, readings, adjustments, assignments))
}

// SaveReadings handles PUT /api/bills/{id}/readings - replaces the
// bill's submeter readings.
func (h *BillsHandler) SaveReadings(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	if billID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("bill ID is required"))
		return
	}

	var req dto.SaveReadingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	readings, err := toMeterReadings(req.Readings)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	if err := h.billing.SaveReadings(billID, readings); err != nil {
		if errors.Is(err, service.ErrBillNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("bill"))
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "readings saved"})
}

// CreateAdjustment handles POST /api/bills/{id}/adjustments.
func (h *BillsHandler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	if billID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("bill ID is required"))
		return
	}

	var req dto.CreateAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.Description == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("description is required"))
		return
	}

	adjustment, err := h.billing.CreateAdjustment(billID, req.Description, req.Cost, req.Date)
	if err != nil {
		if errors.Is(err, service.ErrBillNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("bill"))
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, toAdjustmentResponse(*adjustment))
}

// AssignAdjustment handles PUT /api/adjustments/{id}/units - replaces
// the adjustment's assigned unit set.
func (h *BillsHandler) AssignAdjustment(w http.ResponseWriter, r *http.Request) {
	adjustmentID := chi.URLParam(r, "id")
	if adjustmentID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("adjustment ID is required"))
		return
	}

	var req dto.AssignAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if err := h.billing.AssignAdjustment(adjustmentID, req.UnitIDs); err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("adjustment"))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "adjustment assigned"})
}

func toBillSummary(bill billing.Bill) dto.BillSummaryResponse {
	return dto.BillSummaryResponse{
		ID:          bill.ID,
		BillDate:    bill.BillDate,
		DueDate:     bill.DueDate,
		TotalAmount: bill.TotalAmount,
		Status:      string(bill.Status),
		PDFURL:      bill.PDFURL,
	}
}

func toBillDetail(bill billing.Bill, readings []billing.MeterReading, adjustments []billing.Adjustment, assignments []solidwaste.Assignment) dto.BillDetailResponse {
	detail := dto.BillDetailResponse{
		BillSummaryResponse: toBillSummary(bill),
		Services:            make(map[string]dto.ServiceSectionResponse, len(bill.Services)),
		Readings:            make([]dto.ReadingResponse, 0, len(readings)),
		Adjustments:         make([]dto.AdjustmentResponse, 0, len(adjustments)),
		Assignments:         make([]dto.AssignmentResponse, 0, len(assignments)),
	}

	for name, section := range bill.Services {
		parts := make([]dto.ServicePartResponse, 0, len(section.Parts))
		for _, part := range section.Parts {
			items := make([]dto.RawItemResponse, 0, len(part.Items))
			for _, item := range part.Items {
				items = append(items, dto.RawItemResponse{
					Description: item.Description,
					Cost:        item.Cost,
					Date:        item.Date,
					Usage:       item.Usage,
					Rate:        item.Rate,
					Size:        item.Size,
					Count:       item.Count,
				})
			}
			parts = append(parts, dto.ServicePartResponse{
				Usage:       part.Usage,
				StartDate:   part.StartDate,
				EndDate:     part.EndDate,
				MeterNumber: part.MeterNumber,
				Items:       items,
			})
		}
		detail.Services[name] = dto.ServiceSectionResponse{Total: section.Total, Parts: parts}
	}

	for _, reading := range readings {
		detail.Readings = append(detail.Readings, dto.ReadingResponse{
			UnitID:  reading.UnitID,
			Reading: reading.Reading,
			Unit:    string(reading.Unit),
			CCF:     reading.CCF(),
		})
	}
	for _, adjustment := range adjustments {
		detail.Adjustments = append(detail.Adjustments, toAdjustmentResponse(adjustment))
	}
	for _, assignment := range assignments {
		detail.Assignments = append(detail.Assignments, toAssignmentResponse(assignment))
	}

	return detail
}

func toAdjustmentResponse(adjustment billing.Adjustment) dto.AdjustmentResponse {
	unitIDs := adjustment.AssignedUnitIDs
	if unitIDs == nil {
		unitIDs = []string{}
	}
	return dto.AdjustmentResponse{
		ID:              adjustment.ID,
		Description:     adjustment.Description,
		Cost:            adjustment.Cost,
		Date:            adjustment.Date,
		AssignedUnitIDs: unitIDs,
	}
}

// toMeterReadings validates and converts reading requests.
func toMeterReadings(requests []dto.ReadingRequest) ([]billing.MeterReading, error) {
	readings := make([]billing.MeterReading, 0, len(requests))
	for _, req := range requests {
		if req.UnitID == "" {
			return nil, errors.New("unit_id is required on every reading")
		}
		unit := billing.ReadingUnit(req.Unit)
		switch unit {
		case "", billing.ReadingCCF:
			unit = billing.ReadingCCF
		case billing.ReadingGallons:
		default:
			return nil, errors.New("unit must be ccf or gallons")
		}
		readings = append(readings, billing.MeterReading{
			UnitID:  req.UnitID,
			Reading: req.Reading,
			Unit:    unit,
		})
	}
	return readings, nil
}
