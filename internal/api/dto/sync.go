package dto

// StartSyncRequest is the request body for starting a sync.
type StartSyncRequest struct {
	DryRun  bool `json:"dry_run"` // Preview mode
	Verbose bool `json:"verbose"` // Verbose logging
}

// StartSyncResponse is returned when a sync is started.
type StartSyncResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SyncJobResponse represents a sync job's status.
type SyncJobResponse struct {
	JobID       string               `json:"job_id"`
	Status      string               `json:"status"`
	DryRun      bool                 `json:"dry_run"`
	StartedAt   string               `json:"started_at"`
	CompletedAt *string              `json:"completed_at,omitempty"`
	Progress    SyncProgressResponse `json:"progress"`
	Result      *SyncResultResponse  `json:"result,omitempty"`
	Error       *string              `json:"error,omitempty"`
}

// SyncProgressResponse represents real-time progress.
type SyncProgressResponse struct {
	CurrentPhase string `json:"current_phase"`
	TotalBills   int    `json:"total_bills"`
	SyncedBills  int    `json:"synced_bills"`
	SkippedBills int    `json:"skipped_bills"`
	LastUpdate   string `json:"last_update"`
}

// SyncResultResponse represents the final result.
type SyncResultResponse struct {
	BillsFound      int `json:"bills_found"`
	BillsSynced     int `json:"bills_synced"`
	BillsSkipped    int `json:"bills_skipped"`
	AdjustmentsSeen int `json:"adjustments_seen"`
	ReadingsMatched int `json:"readings_matched"`
}

// ActiveSyncsResponse lists active sync jobs.
type ActiveSyncsResponse struct {
	Jobs  []SyncJobResponse `json:"jobs"`
	Count int               `json:"count"`
}

// AllSyncsResponse lists all sync jobs (including completed).
type AllSyncsResponse struct {
	Jobs  []SyncJobResponse `json:"jobs"`
	Count int               `json:"count"`
}
