package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utilitysplitter/backend/internal/api/dto"
	"github.com/utilitysplitter/backend/internal/application/service"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
)

// SolidWasteHandler handles container assignment HTTP requests.
type SolidWasteHandler struct {
	*Base
	billing *service.BillingService
}

// NewSolidWasteHandler creates a new solid waste handler.
func NewSolidWasteHandler(billingService *service.BillingService) *SolidWasteHandler {
	return &SolidWasteHandler{
		Base:    &Base{},
		billing: billingService,
	}
}

// AutoAssign handles POST /api/bills/{id}/solid-waste/auto-assign -
// rebuilds assignments from the roster's container defaults.
func (h *SolidWasteHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	if billID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("bill ID is required"))
		return
	}

	assignments, err := h.billing.AutoAssignSolidWaste(billID)
	if err != nil {
		if errors.Is(err, service.ErrBillNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("bill"))
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toAssignmentList(assignments))
}

// Toggle handles POST /api/bills/{id}/solid-waste/toggle - claims or
// releases one container slot for a unit.
func (h *SolidWasteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	if billID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("bill ID is required"))
		return
	}

	var req dto.ToggleContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.UnitID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("unit_id is required"))
		return
	}

	serviceType := solidwaste.ServiceType(req.ServiceType)
	switch serviceType {
	case solidwaste.ServiceGarbage, solidwaste.ServiceCompost, solidwaste.ServiceRecycle:
	default:
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("service_type must be garbage, compost or recycle"))
		return
	}

	assignments, err := h.billing.ToggleSolidWaste(billID, req.UnitID, serviceType, req.Size, req.Assigned)
	if err != nil {
		if errors.Is(err, service.ErrBillNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("bill"))
			return
		}
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, toAssignmentList(assignments))
}

func toAssignmentList(assignments []solidwaste.Assignment) dto.AssignmentListResponse {
	response := dto.AssignmentListResponse{
		Assignments: make([]dto.AssignmentResponse, 0, len(assignments)),
	}
	for _, assignment := range assignments {
		response.Assignments = append(response.Assignments, toAssignmentResponse(assignment))
	}
	return response
}

func toAssignmentResponse(assignment solidwaste.Assignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		UnitID:       assignment.UnitID,
		GarbageItems: toAssignedItems(assignment.GarbageItems),
		CompostItems: toAssignedItems(assignment.CompostItems),
		RecycleItems: toAssignedItems(assignment.RecycleItems),
		GarbageTotal: assignment.GarbageTotal,
		CompostTotal: assignment.CompostTotal,
		RecycleTotal: assignment.RecycleTotal,
		Total:        assignment.Total,
	}
}

func toAssignedItems(items []solidwaste.AssignedItem) []dto.AssignedItemResponse {
	out := make([]dto.AssignedItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.AssignedItemResponse{
			ItemKey:     item.ItemKey,
			ServiceType: string(item.ServiceType),
			Size:        item.Size,
			SlotIndex:   item.SlotIndex,
			Cost:        item.Cost,
		})
	}
	return out
}
