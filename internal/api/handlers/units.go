package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utilitysplitter/backend/internal/api/dto"
	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

// UnitsHandler handles roster-related HTTP requests.
type UnitsHandler struct {
	*Base
}

// NewUnitsHandler creates a new units handler.
func NewUnitsHandler(repo storage.Repository) *UnitsHandler {
	return &UnitsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/units - returns the full roster.
func (h *UnitsHandler) List(w http.ResponseWriter, r *http.Request) {
	units, err := h.repo.ListUnits()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.UnitListResponse{
		Units: make([]dto.UnitResponse, 0, len(units)),
		Count: len(units),
	}
	for _, unit := range units {
		response.Units = append(response.Units, toUnitResponse(unit))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/units/{id} - returns a single unit.
func (h *UnitsHandler) Get(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "id")
	if unitID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("unit ID is required"))
		return
	}

	unit, err := h.repo.GetUnit(unitID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if unit == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("unit"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toUnitResponse(*unit))
}

// Save handles PUT /api/units/{id} - creates or updates a unit.
func (h *UnitsHandler) Save(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "id")
	if unitID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("unit ID is required"))
		return
	}

	var req dto.SaveUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.Name == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("name is required"))
		return
	}
	if req.Sqft < 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("sqft must not be negative"))
		return
	}

	unit := &billing.Unit{
		ID:         unitID,
		Name:       req.Name,
		Sqft:       req.Sqft,
		SubmeterID: req.SubmeterID,
		Email:      req.Email,
		SolidWasteDefaults: billing.SolidWasteDefaults{
			GarbageSize: req.GarbageSize,
			CompostSize: req.CompostSize,
			RecycleSize: req.RecycleSize,
		},
	}
	if err := h.repo.SaveUnit(unit); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toUnitResponse(*unit))
}

// Delete handles DELETE /api/units/{id} - removes a unit from the roster.
func (h *UnitsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "id")
	if unitID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("unit ID is required"))
		return
	}

	if err := h.repo.DeleteUnit(unitID); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "unit deleted"})
}

// toUnitResponse converts a domain unit to an API response.
func toUnitResponse(unit billing.Unit) dto.UnitResponse {
	return dto.UnitResponse{
		ID:          unit.ID,
		Name:        unit.Name,
		Sqft:        unit.Sqft,
		SubmeterID:  unit.SubmeterID,
		Email:       unit.Email,
		GarbageSize: unit.SolidWasteDefaults.GarbageSize,
		CompostSize: unit.SolidWasteDefaults.CompostSize,
		RecycleSize: unit.SolidWasteDefaults.RecycleSize,
	}
}
