package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utilitysplitter/backend/internal/api/dto"
	"github.com/utilitysplitter/backend/internal/api/handlers"
	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

func TestSolidWasteHandler_AutoAssign(t *testing.T) {
	t.Run("assigns from roster defaults", func(t *testing.T) {
		repo := storage.NewMockRepository()
		addReviewBill(repo, billing.StatusPendingApproval)
		require.NoError(t, repo.SaveAssignments("bill-2026-01", nil))
		handler := handlers.NewSolidWasteHandler(newBillingService(repo))

		req := httptest.NewRequest(http.MethodPost, "/api/bills/bill-2026-01/solid-waste/auto-assign", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", "bill-2026-01"))
		rec := httptest.NewRecorder()

		handler.AutoAssign(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.AssignmentListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		require.Len(t, response.Assignments, 2)
		for _, assignment := range response.Assignments {
			assert.Len(t, assignment.GarbageItems, 1)
			assert.Len(t, assignment.CompostItems, 1)
			assert.InDelta(t, 30.00, assignment.Total, 0.001)
		}
	})

	t.Run("returns 404 for missing bill", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewSolidWasteHandler(newBillingService(repo))

		req := httptest.NewRequest(http.MethodPost, "/api/bills/ghost/solid-waste/auto-assign", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", "ghost"))
		rec := httptest.NewRecorder()

		handler.AutoAssign(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSolidWasteHandler_Toggle(t *testing.T) {
	t.Run("claims a slot", func(t *testing.T) {
		repo := storage.NewMockRepository()
		addReviewBill(repo, billing.StatusPendingApproval)
		require.NoError(t, repo.SaveAssignments("bill-2026-01", nil))
		handler := handlers.NewSolidWasteHandler(newBillingService(repo))

		body := `{"unit_id":"u1","service_type":"garbage","size":32,"assigned":true}`
		req := httptest.NewRequest(http.MethodPost, "/api/bills/bill-2026-01/solid-waste/toggle", strings.NewReader(body))
		req = req.WithContext(setChiURLParam(req.Context(), "id", "bill-2026-01"))
		rec := httptest.NewRecorder()

		handler.Toggle(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.AssignmentListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		for _, assignment := range response.Assignments {
			if assignment.UnitID == "u1" {
				require.Len(t, assignment.GarbageItems, 1)
				assert.InDelta(t, 20.00, assignment.Total, 0.001)
			}
		}
	})

	t.Run("rejects unknown service type", func(t *testing.T) {
		repo := storage.NewMockRepository()
		addReviewBill(repo, billing.StatusPendingApproval)
		handler := handlers.NewSolidWasteHandler(newBillingService(repo))

		body := `{"unit_id":"u1","service_type":"plasma","size":32,"assigned":true}`
		req := httptest.NewRequest(http.MethodPost, "/api/bills/bill-2026-01/solid-waste/toggle", strings.NewReader(body))
		req = req.WithContext(setChiURLParam(req.Context(), "id", "bill-2026-01"))
		rec := httptest.NewRecorder()

		handler.Toggle(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("conflicts when no slot is free", func(t *testing.T) {
		repo := storage.NewMockRepository()
		addReviewBill(repo, billing.StatusPendingApproval)
		// Fixture already has both garbage-32 slots claimed
		handler := handlers.NewSolidWasteHandler(newBillingService(repo))

		body := `{"unit_id":"u1","service_type":"garbage","size":32,"assigned":true}`
		req := httptest.NewRequest(http.MethodPost, "/api/bills/bill-2026-01/solid-waste/toggle", strings.NewReader(body))
		req = req.WithContext(setChiURLParam(req.Context(), "id", "bill-2026-01"))
		rec := httptest.NewRecorder()

		handler.Toggle(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)

		var response dto.APIError
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, dto.ErrCodeConflict, response.Code)
	})
}
