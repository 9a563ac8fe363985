package cli

import (
	"fmt"
	"strings"

	"github.com/utilitysplitter/backend/internal/application/service"
	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(propertyName string, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	if propertyName == "" {
		propertyName = "utility bills"
	}
	fmt.Printf("bill-sync: %s (%s mode)\n", propertyName, mode)
}

// PrintSyncSummary prints the sync result summary
func PrintSyncSummary(result *service.SyncResult, store *storage.Storage, dryRun bool) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Summary: Found=%d Synced=%d Skipped=%d\n",
		result.BillsFound,
		result.BillsSynced,
		result.BillsSkipped)

	if result.AdjustmentsSeen > 0 {
		fmt.Printf("Adjustments: %d\n", result.AdjustmentsSeen)
	}
	if result.ReadingsMatched > 0 {
		fmt.Printf("Readings matched to submeters: %d\n", result.ReadingsMatched)
	}

	// Show what still needs review
	if store != nil {
		pending, _ := store.ListBills(storage.BillFilters{Status: billing.StatusNeedsReview})
		if pending != nil && pending.TotalCount > 0 {
			fmt.Printf("\nBills awaiting review: %d\n", pending.TotalCount)
		}
	}

	if !dryRun && result.BillsSynced > 0 {
		fmt.Println("\nSync completed successfully.")
	}
}
