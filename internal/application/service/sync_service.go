package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	adapter "github.com/utilitysplitter/backend/internal/adapters/firestore"
	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

// BillSource provides parsed bills and submeter readings from the
// upstream scraper output.
type BillSource interface {
	FetchBills(ctx context.Context) ([]adapter.SyncedBill, error)
	FetchLatestReadings(ctx context.Context) (map[string]float64, error)
}

// SyncStatus represents the current state of a sync job.
type SyncStatus string

const (
	StatusPending   SyncStatus = "pending"
	StatusRunning   SyncStatus = "running"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
	StatusCancelled SyncStatus = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress
	// updates before being considered hung or crashed.
	DefaultJobStaleThreshold = 10 * time.Minute

	// DefaultJobMaxDuration is the maximum time a job can run before being
	// forcefully marked as failed.
	DefaultJobMaxDuration = 30 * time.Minute
)

// SyncRequest holds parameters for starting a sync.
type SyncRequest struct {
	DryRun  bool
	Verbose bool
}

// SyncProgress holds real-time progress information.
type SyncProgress struct {
	CurrentPhase string // "pending", "fetching_bills", "storing_bills", "syncing_readings", "completed", "failed"
	TotalBills   int
	SyncedBills  int
	SkippedBills int
	LastUpdate   time.Time
}

// SyncResult summarizes one completed sync run.
type SyncResult struct {
	BillsFound      int `json:"bills_found"`
	BillsSynced     int `json:"bills_synced"`
	BillsSkipped    int `json:"bills_skipped"`
	AdjustmentsSeen int `json:"adjustments_seen"`
	ReadingsMatched int `json:"readings_matched"`
}

// SyncJob represents a running or completed sync job.
type SyncJob struct {
	ID          string
	Status      SyncStatus
	Request     SyncRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    SyncProgress
	Result      *SyncResult
	Error       error
	cancelFunc  context.CancelFunc
}

// SyncService pulls scraper output into local storage, running each pull
// as a tracked background job.
type SyncService struct {
	source BillSource
	repo   storage.Repository
	logger *slog.Logger

	jobs      map[string]*SyncJob
	jobsMutex sync.RWMutex

	// Only one sync runs at a time
	runLock sync.Mutex

	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewSyncService creates a new sync service.
func NewSyncService(source BillSource, repo storage.Repository, logger *slog.Logger) *SyncService {
	return &SyncService{
		source: source,
		repo:   repo,
		logger: logger,
		jobs:   make(map[string]*SyncJob),
	}
}

// StartSync starts a new sync job asynchronously.
// Note: The passed context is NOT used as the parent for the background job.
// Background jobs use context.Background() so they are not cancelled when
// the HTTP request completes. Use CancelSync() to cancel a running job.
func (s *SyncService) StartSync(_ context.Context, req SyncRequest) (string, error) {
	if !s.runLock.TryLock() {
		return "", fmt.Errorf("a sync is already running")
	}

	jobID := fmt.Sprintf("bill-sync-%d", time.Now().UnixNano())
	jobCtx, cancel := context.WithCancel(context.Background())

	job := &SyncJob{
		ID:         jobID,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  time.Now(),
		cancelFunc: cancel,
		Progress:   SyncProgress{CurrentPhase: "pending", LastUpdate: time.Now()},
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runSyncJob(jobCtx, job)

	s.logger.Info("sync job started", "job_id", jobID, "dry_run", req.DryRun)
	return jobID, nil
}

// GetSyncJob retrieves a sync job by ID.
func (s *SyncService) GetSyncJob(jobID string) (*SyncJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// ListActiveSyncJobs returns all running or pending jobs.
func (s *SyncService) ListActiveSyncJobs() []*SyncJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	var active []*SyncJob
	for _, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			active = append(active, job)
		}
	}
	return active
}

// ListAllSyncJobs returns all jobs (for debugging/monitoring).
func (s *SyncService) ListAllSyncJobs() []*SyncJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*SyncJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelSync cancels a running sync job.
func (s *SyncService) CancelSync(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.Progress.CurrentPhase = "cancelled"
	job.Progress.LastUpdate = now

	s.logger.Info("sync job cancelled", "job_id", jobID)
	return nil
}

// Run executes one sync synchronously. Bills already in storage are
// skipped so local edits survive. With DryRun set, nothing is written.
func (s *SyncService) Run(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	return s.run(ctx, req, func(string, SyncProgress) {})
}

func (s *SyncService) run(ctx context.Context, req SyncRequest, progress func(phase string, p SyncProgress)) (*SyncResult, error) {
	progress("fetching_bills", SyncProgress{})

	bills, err := s.source.FetchBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bills: %w", err)
	}

	result := &SyncResult{BillsFound: len(bills)}
	progress("storing_bills", SyncProgress{TotalBills: len(bills)})

	for _, synced := range bills {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		existing, err := s.repo.GetBill(synced.Bill.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check bill %s: %w", synced.Bill.ID, err)
		}
		if existing != nil {
			s.logger.Debug("bill already synced", "bill_id", synced.Bill.ID)
			result.BillsSkipped++
			progress("storing_bills", SyncProgress{
				TotalBills:   len(bills),
				SyncedBills:  result.BillsSynced,
				SkippedBills: result.BillsSkipped,
			})
			continue
		}

		result.AdjustmentsSeen += len(synced.Adjustments)

		if req.DryRun {
			s.logger.Info("would sync bill",
				"bill_id", synced.Bill.ID,
				"status", synced.Bill.Status,
				"adjustments", len(synced.Adjustments))
		} else if err := s.storeBill(synced); err != nil {
			return nil, err
		}

		result.BillsSynced++
		progress("storing_bills", SyncProgress{
			TotalBills:   len(bills),
			SyncedBills:  result.BillsSynced,
			SkippedBills: result.BillsSkipped,
		})
	}

	progress("syncing_readings", SyncProgress{
		TotalBills:   len(bills),
		SyncedBills:  result.BillsSynced,
		SkippedBills: result.BillsSkipped,
	})

	matched, err := s.syncReadings(ctx, bills, req.DryRun)
	if err != nil {
		return nil, err
	}
	result.ReadingsMatched = matched

	s.logger.Info("sync complete",
		"found", result.BillsFound,
		"synced", result.BillsSynced,
		"skipped", result.BillsSkipped,
		"readings", result.ReadingsMatched,
		"dry_run", req.DryRun)
	return result, nil
}

func (s *SyncService) storeBill(synced adapter.SyncedBill) error {
	bill := synced.Bill
	// Adjustments need unit assignment before invoicing, so a new bill
	// carrying any lands in review rather than the default queue.
	if bill.Status == billing.StatusNew && len(synced.Adjustments) > 0 {
		bill.Status = billing.StatusNeedsReview
	}
	if err := s.repo.SaveBill(&bill); err != nil {
		return fmt.Errorf("failed to save bill %s: %w", bill.ID, err)
	}
	for i := range synced.Adjustments {
		if err := s.repo.SaveAdjustment(bill.ID, &synced.Adjustments[i]); err != nil {
			return fmt.Errorf("failed to save adjustment %s: %w", synced.Adjustments[i].ID, err)
		}
	}
	s.logger.Info("synced bill",
		"bill_id", bill.ID,
		"status", bill.Status,
		"total", bill.TotalAmount,
		"adjustments", len(synced.Adjustments))
	return nil
}

// syncReadings seeds the newest bill with the latest submeter snapshot,
// matching readings to units by submeter ID. The snapshot is in gallons.
// Bills that already have readings are left alone.
func (s *SyncService) syncReadings(ctx context.Context, bills []adapter.SyncedBill, dryRun bool) (int, error) {
	target := newestBill(bills)
	if target == "" {
		return 0, nil
	}

	existing, err := s.repo.GetReadings(target)
	if err != nil {
		return 0, fmt.Errorf("failed to check readings for bill %s: %w", target, err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	snapshot, err := s.source.FetchLatestReadings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch readings: %w", err)
	}
	if len(snapshot) == 0 {
		return 0, nil
	}

	units, err := s.repo.ListUnits()
	if err != nil {
		return 0, fmt.Errorf("failed to load units: %w", err)
	}

	var readings []billing.MeterReading
	for _, unit := range units {
		gallons, ok := snapshot[unit.SubmeterID]
		if !ok {
			continue
		}
		readings = append(readings, billing.MeterReading{
			UnitID:  unit.ID,
			Reading: gallons,
			Unit:    billing.ReadingGallons,
		})
	}
	if len(readings) == 0 {
		return 0, nil
	}

	if dryRun {
		s.logger.Info("would seed readings", "bill_id", target, "count", len(readings))
		return len(readings), nil
	}

	if err := s.repo.SaveReadings(target, readings); err != nil {
		return 0, fmt.Errorf("failed to save readings: %w", err)
	}
	s.logger.Info("seeded readings", "bill_id", target, "count", len(readings))
	return len(readings), nil
}

func newestBill(bills []adapter.SyncedBill) string {
	var id, date string
	for _, synced := range bills {
		if synced.Bill.BillDate > date {
			id = synced.Bill.ID
			date = synced.Bill.BillDate
		}
	}
	return id
}

// runSyncJob executes the sync job in a background goroutine.
func (s *SyncService) runSyncJob(ctx context.Context, job *SyncJob) {
	defer s.runLock.Unlock()

	s.updateJobStatus(job.ID, StatusRunning, SyncProgress{
		CurrentPhase: "fetching_bills",
		LastUpdate:   time.Now(),
	})

	result, err := s.run(ctx, job.Request, func(phase string, p SyncProgress) {
		p.CurrentPhase = phase
		p.LastUpdate = time.Now()
		s.updateJobStatus(job.ID, StatusRunning, p)
	})

	if err != nil {
		if ctx.Err() == context.Canceled {
			// Already marked as cancelled in CancelSync
			return
		}
		s.failJob(job.ID, err)
		return
	}

	s.completeJob(job.ID, result)
}

// updateJobStatus updates a job's status and progress.
func (s *SyncService) updateJobStatus(jobID string, status SyncStatus, progress SyncProgress) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.Status = status
		job.Progress = progress
	}
}

// completeJob marks a job as completed with results.
func (s *SyncService) completeJob(jobID string, result *SyncResult) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Result = result
		job.Progress.CurrentPhase = "completed"
		job.Progress.TotalBills = result.BillsFound
		job.Progress.SyncedBills = result.BillsSynced
		job.Progress.SkippedBills = result.BillsSkipped
		job.Progress.LastUpdate = now
		s.logger.Info("sync job completed",
			"job_id", jobID,
			"found", result.BillsFound,
			"synced", result.BillsSynced,
			"skipped", result.BillsSkipped,
		)
	}
}

// failJob marks a job as failed with an error.
func (s *SyncService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err
		job.Progress = SyncProgress{
			CurrentPhase: "failed",
			LastUpdate:   now,
		}
		s.logger.Error("sync job failed", "job_id", jobID, "error", err)
	}
}

// CleanupOldJobs removes completed jobs older than the specified duration.
func (s *SyncService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.Status == StatusCompleted || job.Status == StatusFailed || job.Status == StatusCancelled {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(s.jobs, id)
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old sync jobs", "removed", removed)
	}
	return removed
}

// MarkStaleJobsAsFailed finds jobs that appear to be stuck and marks them
// as failed. A job is stale when it has run longer than maxDuration or
// its progress has not updated within staleThreshold. This covers
// goroutines that panicked and jobs orphaned by a server restart.
func (s *SyncService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0

	for id, job := range s.jobs {
		if job.Status != StatusRunning && job.Status != StatusPending {
			continue
		}

		var reason string
		switch {
		case now.Sub(job.StartedAt) > maxDuration:
			reason = fmt.Sprintf("exceeded max duration of %v (started %v ago)", maxDuration, now.Sub(job.StartedAt).Round(time.Second))
		case now.Sub(job.Progress.LastUpdate) > staleThreshold:
			reason = fmt.Sprintf("no progress update for %v (threshold: %v)", now.Sub(job.Progress.LastUpdate).Round(time.Second), staleThreshold)
		default:
			continue
		}

		if job.cancelFunc != nil {
			job.cancelFunc()
		}

		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = fmt.Errorf("job marked as stale: %s", reason)
		job.Progress.CurrentPhase = "failed"
		job.Progress.LastUpdate = now

		s.logger.Warn("marked stale job as failed",
			"job_id", id,
			"reason", reason,
			"started_at", job.StartedAt,
		)
		marked++
	}

	return marked
}

// IsJobStale checks if a specific job is considered stale.
func (s *SyncService) IsJobStale(jobID string, staleThreshold, maxDuration time.Duration) bool {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return false
	}
	if job.Status != StatusRunning && job.Status != StatusPending {
		return false
	}

	now := time.Now()
	return now.Sub(job.StartedAt) > maxDuration || now.Sub(job.Progress.LastUpdate) > staleThreshold
}

// StartBackgroundCleanup starts a goroutine that periodically marks stale
// jobs as failed and removes old completed jobs. Call
// StopBackgroundCleanup to stop it.
func (s *SyncService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		s.logger.Info("background job cleanup started", "check_interval", checkInterval)

		for {
			select {
			case <-s.cleanupStop:
				s.logger.Info("background job cleanup stopped")
				return
			case <-ticker.C:
				if marked := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration); marked > 0 {
					s.logger.Info("marked stale jobs as failed", "count", marked)
				}
				if cleaned := s.CleanupOldJobs(24 * time.Hour); cleaned > 0 {
					s.logger.Debug("cleaned up old jobs", "count", cleaned)
				}
			}
		}
	}()
}

// StopBackgroundCleanup stops the background cleanup goroutine. It blocks
// until the goroutine has fully stopped.
func (s *SyncService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}
	close(s.cleanupStop)
	<-s.cleanupDone
}
