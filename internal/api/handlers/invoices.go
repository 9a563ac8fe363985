package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utilitysplitter/backend/internal/api/dto"
	"github.com/utilitysplitter/backend/internal/application/service"
	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

// InvoicesHandler handles invoice calculation and approval requests.
type InvoicesHandler struct {
	*Base
	billing *service.BillingService
}

// NewInvoicesHandler creates a new invoices handler.
func NewInvoicesHandler(repo storage.Repository, billingService *service.BillingService) *InvoicesHandler {
	return &InvoicesHandler{
		Base:    NewBase(repo),
		billing: billingService,
	}
}

// Preview handles POST /api/bills/{id}/preview - computes invoices and
// validation reports without writing anything. The body may carry
// unsaved readings and adjustments; an empty body previews persisted
// state.
func (h *InvoicesHandler) Preview(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	if billID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("bill ID is required"))
		return
	}

	var req dto.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	readings, err := toMeterReadings(req.Readings)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	pending := service.PendingEdits{Readings: readings}
	for _, adj := range req.Adjustments {
		pending.Adjustments = append(pending.Adjustments, billing.Adjustment{
			ID:              adj.ID,
			Description:     adj.Description,
			Cost:            adj.Cost,
			Date:            adj.Date,
			AssignedUnitIDs: adj.AssignedUnitIDs,
		})
	}

	result, err := h.billing.Preview(billID, pending)
	if err != nil {
		h.writePreviewError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toPreviewResponse(result))
}

// Submit handles POST /api/bills/{id}/submit - moves a reviewed bill to
// PENDING_APPROVAL.
func (h *InvoicesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	if billID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("bill ID is required"))
		return
	}

	if err := h.billing.SubmitForApproval(billID); err != nil {
		if errors.Is(err, service.ErrBillNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("bill"))
			return
		}
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "bill submitted for approval"})
}

// Approve handles POST /api/bills/{id}/approve - runs the readiness
// gate, persists the invoices and marks the bill invoiced.
func (h *InvoicesHandler) Approve(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	if billID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("bill ID is required"))
		return
	}

	result, err := h.billing.Approve(billID)
	if err != nil {
		var notReady *service.NotReadyError
		if errors.As(err, &notReady) {
			h.WriteError(w, http.StatusConflict, dto.NotReadyError(notReady.Reasons))
			return
		}
		if errors.Is(err, service.ErrBillNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("bill"))
			return
		}
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, toPreviewResponse(result))
}

// List handles GET /api/bills/{id}/invoices - returns persisted invoices.
func (h *InvoicesHandler) List(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	if billID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("bill ID is required"))
		return
	}

	records, err := h.repo.GetInvoices(billID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.InvoiceListResponse{
		Invoices: make([]dto.InvoiceRecordResponse, 0, len(records)),
		Count:    len(records),
	}
	for _, record := range records {
		response.Invoices = append(response.Invoices, dto.InvoiceRecordResponse{
			ID:      record.ID,
			BillID:  record.BillID,
			Status:  string(record.Status),
			Invoice: toInvoiceResponse(record.Invoice),
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}

func (h *InvoicesHandler) writePreviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBillNotFound):
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("bill"))
	case errors.Is(err, billing.ErrMalformedBill), errors.Is(err, billing.ErrMalformedUnit):
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(err.Error()))
	default:
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

func toPreviewResponse(result *service.PreviewResult) dto.PreviewResponse {
	response := dto.PreviewResponse{
		BillID:   result.Bill.ID,
		Status:   string(result.Bill.Status),
		Invoices: make([]dto.InvoiceResponse, 0, len(result.Invoices)),
		SolidWaste: dto.SolidWasteReportResponse{
			IsValid:       result.SolidWaste.IsValid,
			AssignedTotal: result.SolidWaste.AssignedTotal,
			BillTotal:     result.SolidWaste.BillTotal,
			Errors:        orEmptyStrings(result.SolidWaste.Errors),
			Warnings:      orEmptyStrings(result.SolidWaste.Warnings),
		},
		BillTotal: dto.BillTotalReportResponse{
			IsValid:         result.BillTotal.IsValid,
			CalculatedTotal: result.BillTotal.CalculatedTotal,
			BillTotal:       result.BillTotal.BillTotal,
			Difference:      result.BillTotal.Difference,
		},
		Readiness: dto.ReadinessResponse{
			Ready:  result.Readiness.Ready,
			Errors: orEmptyStrings(result.Readiness.Errors),
		},
	}
	for _, invoice := range result.Invoices {
		response.Invoices = append(response.Invoices, toInvoiceResponse(invoice))
	}
	return response
}

func toInvoiceResponse(invoice billing.CalculatedInvoice) dto.InvoiceResponse {
	response := dto.InvoiceResponse{
		UnitID:    invoice.UnitID,
		UnitName:  invoice.UnitName,
		Amount:    invoice.Amount,
		LineItems: make([]dto.LineItemResponse, 0, len(invoice.LineItems)),
	}
	for _, line := range invoice.LineItems {
		response.LineItems = append(response.LineItems, dto.LineItemResponse{
			Description: line.Description,
			Amount:      line.Amount,
			Category:    string(line.Category),
		})
	}
	return response
}

func orEmptyStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
