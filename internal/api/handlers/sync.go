package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utilitysplitter/backend/internal/api/dto"
	"github.com/utilitysplitter/backend/internal/application/service"
)

// SyncHandler handles sync-related HTTP requests.
type SyncHandler struct {
	*Base
	syncService *service.SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		Base:        &Base{},
		syncService: syncService,
	}
}

// StartSync handles POST /api/sync - starts a new sync job.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	serviceReq := service.SyncRequest{
		DryRun:  req.DryRun,
		Verbose: req.Verbose,
	}

	jobID, err := h.syncService.StartSync(r.Context(), serviceReq)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.APIError{
			Code:    "sync_conflict",
			Message: err.Error(),
		})
		return
	}

	response := dto.StartSyncResponse{
		JobID:  jobID,
		Status: "pending",
	}

	h.WriteJSON(w, http.StatusAccepted, response)
}

// GetSyncStatus handles GET /api/sync/{jobId} - gets sync job status.
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.syncService.GetSyncJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncJobResponse(job))
}

// ListActiveSyncs handles GET /api/sync/active - lists active sync jobs.
func (h *SyncHandler) ListActiveSyncs(w http.ResponseWriter, r *http.Request) {
	jobs := h.syncService.ListActiveSyncJobs()

	response := dto.ActiveSyncsResponse{
		Jobs:  make([]dto.SyncJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toSyncJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// ListAllSyncs handles GET /api/sync - lists all sync jobs.
func (h *SyncHandler) ListAllSyncs(w http.ResponseWriter, r *http.Request) {
	jobs := h.syncService.ListAllSyncJobs()

	response := dto.AllSyncsResponse{
		Jobs:  make([]dto.SyncJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toSyncJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// CancelSync handles DELETE /api/sync/{jobId} - cancels a sync job.
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.syncService.CancelSync(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.APIError{
			Code:    "cancel_failed",
			Message: err.Error(),
		})
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Sync job cancelled successfully",
	})
}

// toSyncJobResponse converts a service model to an API response.
func toSyncJobResponse(job *service.SyncJob) dto.SyncJobResponse {
	response := dto.SyncJobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		DryRun:    job.Request.DryRun,
		StartedAt: job.StartedAt.Format(time.RFC3339),
		Progress: dto.SyncProgressResponse{
			CurrentPhase: job.Progress.CurrentPhase,
			TotalBills:   job.Progress.TotalBills,
			SyncedBills:  job.Progress.SyncedBills,
			SkippedBills: job.Progress.SkippedBills,
			LastUpdate:   job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.Result != nil {
		response.Result = &dto.SyncResultResponse{
			BillsFound:      job.Result.BillsFound,
			BillsSynced:     job.Result.BillsSynced,
			BillsSkipped:    job.Result.BillsSkipped,
			AdjustmentsSeen: job.Result.AdjustmentsSeen,
			ReadingsMatched: job.Result.ReadingsMatched,
		}
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
