package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

// readyFixture loads the mock with a two-unit bill that passes every
// readiness check: $100 of water split 40/40 metered plus 10/10 common,
// and $60 of solid waste fully assigned. Each invoice comes to $80.
func readyFixture(repo *storage.MockRepository, status billing.BillStatus) {
	repo.AddUnit(billing.Unit{
		ID: "u1", Name: "Unit 101", Sqft: 500, SubmeterID: "NC-1001",
		SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 32, CompostSize: 13},
	})
	repo.AddUnit(billing.Unit{
		ID: "u2", Name: "Unit 102", Sqft: 500, SubmeterID: "NC-1002",
		SolidWasteDefaults: billing.SolidWasteDefaults{GarbageSize: 32, CompostSize: 13},
	})

	repo.AddBill(billing.Bill{
		ID:          "bill-2026-01",
		BillDate:    "2026-01-15",
		TotalAmount: 160.00,
		Status:      status,
		Services: map[string]billing.ServiceSection{
			"Water": {
				Total: 100.00,
				Parts: []billing.ServicePart{{Usage: 10}},
			},
			"Solid Waste": {
				Total: 60.00,
				Parts: []billing.ServicePart{{
					Items: []billing.RawLineItem{
						{Description: "Garbage", Size: 32, Count: 2, Cost: 40.00},
						{Description: "Compost", Size: 13, Count: 2, Cost: 20.00},
					},
				}},
			},
		},
	})

	_ = repo.SaveReadings("bill-2026-01", []billing.MeterReading{
		{UnitID: "u1", Reading: 4},
		{UnitID: "u2", Reading: 4},
	})

	assignments := []solidwaste.Assignment{
		{
			UnitID: "u1",
			GarbageItems: []solidwaste.AssignedItem{
				{ItemKey: "garbage-32", ServiceType: solidwaste.ServiceGarbage, Size: 32, SlotIndex: 0, Cost: 20.00},
			},
			CompostItems: []solidwaste.AssignedItem{
				{ItemKey: "compost-13", ServiceType: solidwaste.ServiceCompost, Size: 13, SlotIndex: 0, Cost: 10.00},
			},
		},
		{
			UnitID: "u2",
			GarbageItems: []solidwaste.AssignedItem{
				{ItemKey: "garbage-32", ServiceType: solidwaste.ServiceGarbage, Size: 32, SlotIndex: 1, Cost: 20.00},
			},
			CompostItems: []solidwaste.AssignedItem{
				{ItemKey: "compost-13", ServiceType: solidwaste.ServiceCompost, Size: 13, SlotIndex: 1, Cost: 10.00},
			},
		},
	}
	for i := range assignments {
		assignments[i].RecomputeTotals()
	}
	_ = repo.SaveAssignments("bill-2026-01", assignments)
}

func TestBillingService_Preview(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	svc := NewBillingService(repo, testLogger())

	result, err := svc.Preview("bill-2026-01", PendingEdits{})
	require.NoError(t, err)

	require.Len(t, result.Invoices, 2)
	assert.InDelta(t, 80.00, result.Invoices[0].Amount, 0.001)
	assert.InDelta(t, 80.00, result.Invoices[1].Amount, 0.001)

	assert.True(t, result.SolidWaste.IsValid)
	assert.InDelta(t, 60.00, result.SolidWaste.AssignedTotal, 0.001)
	assert.True(t, result.BillTotal.IsValid)
	assert.InDelta(t, 160.00, result.BillTotal.CalculatedTotal, 0.001)
	assert.True(t, result.Readiness.Ready)
	assert.Empty(t, result.Readiness.Errors)
}

func TestBillingService_Preview_BillNotFound(t *testing.T) {
	svc := NewBillingService(storage.NewMockRepository(), testLogger())

	_, err := svc.Preview("ghost", PendingEdits{})
	assert.ErrorIs(t, err, ErrBillNotFound)
}

func TestBillingService_Preview_PendingEditsOverride(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	svc := NewBillingService(repo, testLogger())

	// Bump u1's reading to 6 CCF on screen: usage 60, common area drops
	// to zero, u2 stays at 40
	result, err := svc.Preview("bill-2026-01", PendingEdits{
		Readings: []billing.MeterReading{{UnitID: "u1", Reading: 6}},
	})
	require.NoError(t, err)

	require.Len(t, result.Invoices, 2)
	assert.InDelta(t, 90.00, result.Invoices[0].Amount, 0.001)
	assert.InDelta(t, 70.00, result.Invoices[1].Amount, 0.001)

	// Nothing was persisted
	readings, err := repo.GetReadings("bill-2026-01")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, readings[0].Reading, 0.0001)
}

func TestBillingService_Preview_MissingReadingsBlockReadiness(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	require.NoError(t, repo.SaveReadings("bill-2026-01", nil))
	svc := NewBillingService(repo, testLogger())

	result, err := svc.Preview("bill-2026-01", PendingEdits{})
	require.NoError(t, err)

	assert.False(t, result.Readiness.Ready)
	assert.NotEmpty(t, result.Readiness.Errors)
}

func TestBillingService_SaveReadings(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	svc := NewBillingService(repo, testLogger())

	err := svc.SaveReadings("bill-2026-01", []billing.MeterReading{{UnitID: "u1", Reading: 5}})
	require.NoError(t, err)

	readings, err := repo.GetReadings("bill-2026-01")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.InDelta(t, 5.0, readings[0].Reading, 0.0001)

	assert.ErrorIs(t, svc.SaveReadings("ghost", nil), ErrBillNotFound)
}

func TestBillingService_CreateAdjustment(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	svc := NewBillingService(repo, testLogger())

	adjustment, err := svc.CreateAdjustment("bill-2026-01", "Hydrant repair", 100.00, "2026-01-10")
	require.NoError(t, err)
	assert.NotEmpty(t, adjustment.ID)
	assert.Empty(t, adjustment.AssignedUnitIDs)

	stored, err := repo.GetAdjustments("bill-2026-01")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Hydrant repair", stored[0].Description)

	_, err = svc.CreateAdjustment("ghost", "x", 1, "")
	assert.ErrorIs(t, err, ErrBillNotFound)
}

func TestBillingService_AssignAdjustment(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	repo.AddAdjustment("bill-2026-01", billing.Adjustment{ID: "adj-1", Description: "Repair", Cost: 50})
	svc := NewBillingService(repo, testLogger())

	require.NoError(t, svc.AssignAdjustment("adj-1", []string{"u1", "u2"}))

	stored, err := repo.GetAdjustments("bill-2026-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, stored[0].AssignedUnitIDs)

	assert.Error(t, svc.AssignAdjustment("ghost", []string{"u1"}))
}

func TestBillingService_AutoAssignSolidWaste(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	require.NoError(t, repo.SaveAssignments("bill-2026-01", nil))
	repo.SaveAssignmentsCalled = false
	svc := NewBillingService(repo, testLogger())

	assignments, err := svc.AutoAssignSolidWaste("bill-2026-01")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.True(t, repo.SaveAssignmentsCalled)

	// Roster defaults claim one garbage and one compost slot per unit
	for _, a := range assignments {
		assert.Len(t, a.GarbageItems, 1)
		assert.Len(t, a.CompostItems, 1)
		assert.InDelta(t, 30.00, a.Total, 0.001)
	}
}

func TestBillingService_ToggleSolidWaste(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	require.NoError(t, repo.SaveAssignments("bill-2026-01", nil))
	svc := NewBillingService(repo, testLogger())

	assignments, err := svc.ToggleSolidWaste("bill-2026-01", "u1", solidwaste.ServiceGarbage, 32, true)
	require.NoError(t, err)

	var u1 *solidwaste.Assignment
	for i := range assignments {
		if assignments[i].UnitID == "u1" {
			u1 = &assignments[i]
		}
	}
	require.NotNil(t, u1)
	require.Len(t, u1.GarbageItems, 1)
	assert.InDelta(t, 20.00, u1.Total, 0.001)

	t.Run("toggle off", func(t *testing.T) {
		assignments, err := svc.ToggleSolidWaste("bill-2026-01", "u1", solidwaste.ServiceGarbage, 32, false)
		require.NoError(t, err)
		for _, a := range assignments {
			if a.UnitID == "u1" {
				assert.Empty(t, a.GarbageItems)
			}
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.ToggleSolidWaste("bill-2026-01", "u1", solidwaste.ServiceGarbage, 96, true)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "garbage-96")
	})
}

func TestBillingService_SubmitForApproval(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusNeedsReview)
	svc := NewBillingService(repo, testLogger())

	require.NoError(t, svc.SubmitForApproval("bill-2026-01"))

	bill, err := repo.GetBill("bill-2026-01")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPendingApproval, bill.Status)

	t.Run("already invoiced", func(t *testing.T) {
		require.NoError(t, repo.UpdateBillStatus("bill-2026-01", billing.StatusInvoiced))
		err := svc.SubmitForApproval("bill-2026-01")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already invoiced")
	})
}

func TestBillingService_Approve(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	svc := NewBillingService(repo, testLogger())

	result, err := svc.Approve("bill-2026-01")
	require.NoError(t, err)

	assert.True(t, repo.SaveInvoicesCalled)
	assert.Equal(t, storage.InvoiceInvoiced, repo.LastInvoiceStatus)
	assert.Len(t, repo.LastSavedInvoices, 2)
	assert.True(t, repo.UpdateStatusCalled)
	assert.Equal(t, billing.StatusInvoiced, repo.LastStatusUpdate)
	assert.Equal(t, billing.StatusInvoiced, result.Bill.Status)
}

func TestBillingService_Approve_WrongStatus(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusNeedsReview)
	svc := NewBillingService(repo, testLogger())

	_, err := svc.Approve("bill-2026-01")
	assert.Error(t, err)
	assert.False(t, repo.SaveInvoicesCalled)
}

func TestBillingService_Approve_NotReady(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	// An unassigned adjustment blocks the gate
	repo.AddAdjustment("bill-2026-01", billing.Adjustment{ID: "adj-1", Description: "Repair", Cost: 50})
	svc := NewBillingService(repo, testLogger())

	_, err := svc.Approve("bill-2026-01")
	require.Error(t, err)

	var notReady *NotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.NotEmpty(t, notReady.Reasons)
	assert.False(t, repo.SaveInvoicesCalled)
	assert.False(t, repo.UpdateStatusCalled)
}

func TestBillingService_Approve_SaveFailureKeepsStatus(t *testing.T) {
	repo := storage.NewMockRepository()
	readyFixture(repo, billing.StatusPendingApproval)
	repo.SaveInvoicesErr = errors.New("disk full")
	svc := NewBillingService(repo, testLogger())

	_, err := svc.Approve("bill-2026-01")
	require.Error(t, err)
	assert.False(t, repo.UpdateStatusCalled)

	bill, getErr := repo.GetBill("bill-2026-01")
	require.NoError(t, getErr)
	assert.Equal(t, billing.StatusPendingApproval, bill.Status)
}
