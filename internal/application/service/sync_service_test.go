package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "github.com/utilitysplitter/backend/internal/adapters/firestore"
	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

// fakeSource is an in-memory BillSource for testing.
type fakeSource struct {
	bills    []adapter.SyncedBill
	readings map[string]float64

	billsErr    error
	readingsErr error
}

func (f *fakeSource) FetchBills(_ context.Context) ([]adapter.SyncedBill, error) {
	if f.billsErr != nil {
		return nil, f.billsErr
	}
	return f.bills, nil
}

func (f *fakeSource) FetchLatestReadings(_ context.Context) (map[string]float64, error) {
	if f.readingsErr != nil {
		return nil, f.readingsErr
	}
	return f.readings, nil
}

// Helper to create a test logger
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func syncedBill(id, billDate string, status billing.BillStatus, adjustments ...billing.Adjustment) adapter.SyncedBill {
	return adapter.SyncedBill{
		Bill: billing.Bill{
			ID:          id,
			BillDate:    billDate,
			TotalAmount: 250.00,
			Status:      status,
			Services:    map[string]billing.ServiceSection{},
		},
		Adjustments: adjustments,
	}
}

func TestSyncService_Run_SyncsNewBills(t *testing.T) {
	repo := storage.NewMockRepository()
	source := &fakeSource{
		bills: []adapter.SyncedBill{
			syncedBill("bill-2026-01", "2026-01-15", billing.StatusPendingApproval),
			syncedBill("bill-2026-02", "2026-03-15", billing.StatusNeedsReview,
				billing.Adjustment{ID: "adj-1", Description: "Hydrant repair", Cost: 100.00}),
		},
	}
	svc := NewSyncService(source, repo, testLogger())

	result, err := svc.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.BillsFound)
	assert.Equal(t, 2, result.BillsSynced)
	assert.Equal(t, 0, result.BillsSkipped)
	assert.Equal(t, 1, result.AdjustmentsSeen)

	bill, err := repo.GetBill("bill-2026-02")
	require.NoError(t, err)
	require.NotNil(t, bill)
	assert.Equal(t, billing.StatusNeedsReview, bill.Status)

	adjustments, err := repo.GetAdjustments("bill-2026-02")
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, "Hydrant repair", adjustments[0].Description)
}

func TestSyncService_Run_FlagsNewBillsWithAdjustmentsForReview(t *testing.T) {
	repo := storage.NewMockRepository()
	source := &fakeSource{
		bills: []adapter.SyncedBill{
			syncedBill("bill-2026-01", "2026-01-15", billing.StatusNew,
				billing.Adjustment{ID: "adj-1", Description: "Hydrant repair", Cost: 100.00}),
			syncedBill("bill-2026-02", "2026-03-15", billing.StatusNew),
		},
	}
	svc := NewSyncService(source, repo, testLogger())

	_, err := svc.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)

	flagged, err := repo.GetBill("bill-2026-01")
	require.NoError(t, err)
	require.NotNil(t, flagged)
	assert.Equal(t, billing.StatusNeedsReview, flagged.Status)

	clean, err := repo.GetBill("bill-2026-02")
	require.NoError(t, err)
	require.NotNil(t, clean)
	assert.Equal(t, billing.StatusNew, clean.Status)
}

func TestSyncService_Run_SkipsExistingBills(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.AddBill(billing.Bill{
		ID:       "bill-2026-01",
		BillDate: "2026-01-15",
		Status:   billing.StatusInvoiced,
		Services: map[string]billing.ServiceSection{},
	})

	source := &fakeSource{
		bills: []adapter.SyncedBill{
			syncedBill("bill-2026-01", "2026-01-15", billing.StatusPendingApproval),
			syncedBill("bill-2026-02", "2026-03-15", billing.StatusPendingApproval),
		},
	}
	svc := NewSyncService(source, repo, testLogger())

	result, err := svc.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.BillsSynced)
	assert.Equal(t, 1, result.BillsSkipped)

	// Local status on the existing bill survives the sync
	bill, err := repo.GetBill("bill-2026-01")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusInvoiced, bill.Status)
}

func TestSyncService_Run_DryRunWritesNothing(t *testing.T) {
	repo := storage.NewMockRepository()
	source := &fakeSource{
		bills: []adapter.SyncedBill{
			syncedBill("bill-2026-01", "2026-01-15", billing.StatusPendingApproval),
		},
		readings: map[string]float64{"NC-1001": 2992},
	}
	svc := NewSyncService(source, repo, testLogger())

	result, err := svc.Run(context.Background(), SyncRequest{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.BillsSynced)
	assert.False(t, repo.SaveBillCalled)

	bill, err := repo.GetBill("bill-2026-01")
	require.NoError(t, err)
	assert.Nil(t, bill)
}

func TestSyncService_Run_SeedsReadingsBySubmeter(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.AddUnit(billing.Unit{ID: "u1", Name: "Unit 101", SubmeterID: "NC-1001"})
	repo.AddUnit(billing.Unit{ID: "u2", Name: "Unit 102", SubmeterID: "NC-1002"})
	repo.AddUnit(billing.Unit{ID: "u3", Name: "Unit 103", SubmeterID: "NC-9999"})

	source := &fakeSource{
		bills: []adapter.SyncedBill{
			syncedBill("bill-2026-01", "2026-01-15", billing.StatusPendingApproval),
			syncedBill("bill-2026-02", "2026-03-15", billing.StatusPendingApproval),
		},
		readings: map[string]float64{
			"NC-1001": 2992,
			"NC-1002": 1496,
			"NC-0000": 500, // No matching unit
		},
	}
	svc := NewSyncService(source, repo, testLogger())

	result, err := svc.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ReadingsMatched)

	// Readings land on the newest bill, in gallons
	readings, err := repo.GetReadings("bill-2026-02")
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "u1", readings[0].UnitID)
	assert.Equal(t, billing.ReadingGallons, readings[0].Unit)
	assert.InDelta(t, 2992.0, readings[0].Reading, 0.0001)

	older, err := repo.GetReadings("bill-2026-01")
	require.NoError(t, err)
	assert.Empty(t, older)
}

func TestSyncService_Run_KeepsExistingReadings(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.AddUnit(billing.Unit{ID: "u1", SubmeterID: "NC-1001"})
	repo.AddBill(billing.Bill{ID: "bill-2026-01", BillDate: "2026-01-15", Services: map[string]billing.ServiceSection{}})
	require.NoError(t, repo.SaveReadings("bill-2026-01", []billing.MeterReading{
		{UnitID: "u1", Reading: 7.5},
	}))

	source := &fakeSource{
		bills:    []adapter.SyncedBill{syncedBill("bill-2026-01", "2026-01-15", billing.StatusPendingApproval)},
		readings: map[string]float64{"NC-1001": 2992},
	}
	svc := NewSyncService(source, repo, testLogger())

	result, err := svc.Run(context.Background(), SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ReadingsMatched)

	readings, err := repo.GetReadings("bill-2026-01")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.InDelta(t, 7.5, readings[0].Reading, 0.0001)
}

func TestSyncService_Run_SourceError(t *testing.T) {
	source := &fakeSource{billsErr: errors.New("firestore unavailable")}
	svc := NewSyncService(source, storage.NewMockRepository(), testLogger())

	_, err := svc.Run(context.Background(), SyncRequest{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch bills")
}

func TestSyncService_GetSyncJob_NotFound(t *testing.T) {
	svc := NewSyncService(nil, nil, testLogger())

	_, err := svc.GetSyncJob("non-existent")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSyncService_ListSyncJobs_Empty(t *testing.T) {
	svc := NewSyncService(nil, nil, testLogger())

	assert.Empty(t, svc.ListActiveSyncJobs())
	assert.Empty(t, svc.ListAllSyncJobs())
}

func TestSyncService_CancelSync_NotFound(t *testing.T) {
	svc := NewSyncService(nil, nil, testLogger())

	err := svc.CancelSync("non-existent")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSyncService_StartSync_CompletesJob(t *testing.T) {
	repo := storage.NewMockRepository()
	source := &fakeSource{
		bills: []adapter.SyncedBill{syncedBill("bill-2026-01", "2026-01-15", billing.StatusPendingApproval)},
	}
	svc := NewSyncService(source, repo, testLogger())

	jobID, err := svc.StartSync(context.Background(), SyncRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	// Poll for completion
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := svc.GetSyncJob(jobID)
		require.NoError(t, err)
		if job.Status == StatusCompleted {
			require.NotNil(t, job.Result)
			assert.Equal(t, 1, job.Result.BillsSynced)
			assert.NotNil(t, job.CompletedAt)
			break
		}
		if job.Status == StatusFailed {
			t.Fatalf("job failed: %v", job.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete, status=%s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSyncService_IsJobStale_NotFound(t *testing.T) {
	svc := NewSyncService(nil, nil, testLogger())

	assert.False(t, svc.IsJobStale("non-existent", 10*time.Minute, 30*time.Minute))
}

func TestSyncService_IsJobStale_RunningJob(t *testing.T) {
	svc := NewSyncService(nil, nil, testLogger())

	svc.jobsMutex.Lock()
	svc.jobs["stale-job"] = &SyncJob{
		ID:        "stale-job",
		Status:    StatusRunning,
		StartedAt: time.Now().Add(-5 * time.Minute),
		Progress:  SyncProgress{LastUpdate: time.Now().Add(-15 * time.Minute)},
	}
	svc.jobs["healthy-job"] = &SyncJob{
		ID:        "healthy-job",
		Status:    StatusRunning,
		StartedAt: time.Now().Add(-5 * time.Minute),
		Progress:  SyncProgress{LastUpdate: time.Now().Add(-1 * time.Minute)},
	}
	svc.jobs["completed-job"] = &SyncJob{
		ID:        "completed-job",
		Status:    StatusCompleted,
		StartedAt: time.Now().Add(-3 * time.Hour),
		Progress:  SyncProgress{LastUpdate: time.Now().Add(-2 * time.Hour)},
	}
	svc.jobsMutex.Unlock()

	assert.True(t, svc.IsJobStale("stale-job", 10*time.Minute, 30*time.Minute))
	assert.False(t, svc.IsJobStale("healthy-job", 10*time.Minute, 30*time.Minute))
	// Completed jobs are never stale
	assert.False(t, svc.IsJobStale("completed-job", 10*time.Minute, 30*time.Minute))
}

func TestSyncService_MarkStaleJobsAsFailed(t *testing.T) {
	svc := NewSyncService(nil, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.jobsMutex.Lock()
	svc.jobs["stale-job"] = &SyncJob{
		ID:         "stale-job",
		Status:     StatusRunning,
		StartedAt:  time.Now().Add(-1 * time.Hour),
		Progress:   SyncProgress{LastUpdate: time.Now().Add(-20 * time.Minute)},
		cancelFunc: cancel,
	}
	svc.jobs["healthy-job"] = &SyncJob{
		ID:        "healthy-job",
		Status:    StatusRunning,
		StartedAt: time.Now().Add(-5 * time.Minute),
		Progress:  SyncProgress{LastUpdate: time.Now().Add(-1 * time.Minute)},
	}
	svc.jobsMutex.Unlock()

	marked := svc.MarkStaleJobsAsFailed(10*time.Minute, 30*time.Minute)
	assert.Equal(t, 1, marked)

	job, err := svc.GetSyncJob("stale-job")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.NotNil(t, job.CompletedAt)
	require.NotNil(t, job.Error)
	assert.Contains(t, job.Error.Error(), "stale")

	select {
	case <-ctx.Done():
	default:
		t.Error("context should have been cancelled")
	}

	healthy, err := svc.GetSyncJob("healthy-job")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, healthy.Status)
}

func TestSyncService_CleanupOldJobs(t *testing.T) {
	svc := NewSyncService(nil, nil, testLogger())

	oldTime := time.Now().Add(-25 * time.Hour)
	recentTime := time.Now().Add(-1 * time.Hour)
	svc.jobsMutex.Lock()
	svc.jobs["old-job"] = &SyncJob{ID: "old-job", Status: StatusCompleted, CompletedAt: &oldTime}
	svc.jobs["recent-job"] = &SyncJob{ID: "recent-job", Status: StatusCompleted, CompletedAt: &recentTime}
	svc.jobs["running-job"] = &SyncJob{ID: "running-job", Status: StatusRunning, StartedAt: oldTime}
	svc.jobsMutex.Unlock()

	removed := svc.CleanupOldJobs(24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, err := svc.GetSyncJob("old-job")
	assert.Error(t, err)

	_, err = svc.GetSyncJob("recent-job")
	assert.NoError(t, err)

	// Running jobs are never removed, no matter how old
	_, err = svc.GetSyncJob("running-job")
	assert.NoError(t, err)
}
