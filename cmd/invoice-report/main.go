package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/utilitysplitter/backend/internal/application/service"
	"github.com/utilitysplitter/backend/internal/infrastructure/config"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath string
		billID     string
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&billID, "bill", "", "Bill ID to report on (default: newest bill)")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(configPath)

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if billID == "" {
		billID, err = newestBillID(store)
		if err != nil {
			log.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	billingService := service.NewBillingService(store, logger)

	result, err := billingService.Preview(billID, service.PendingEdits{})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("INVOICE REPORT")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Printf("Bill: %s (%s, due %s)\n", result.Bill.ID, result.Bill.BillDate, result.Bill.DueDate)
	fmt.Printf("Status: %s\n", result.Bill.Status)
	fmt.Printf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("INVOICES")
	fmt.Println(strings.Repeat("-", 40))
	for _, inv := range result.Invoices {
		fmt.Printf("\n%s (%s): $%.2f\n", inv.UnitName, inv.UnitID, inv.Amount)
		for _, item := range inv.LineItems {
			fmt.Printf("  %-28s $%8.2f\n", item.Description, item.Amount)
		}
	}

	fmt.Println()
	fmt.Println("VALIDATION")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Solid waste: assigned $%.2f of $%.2f", result.SolidWaste.AssignedTotal, result.SolidWaste.BillTotal)
	printVerdict(result.SolidWaste.IsValid)
	for _, warning := range result.SolidWaste.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
	for _, errMsg := range result.SolidWaste.Errors {
		fmt.Printf("  error: %s\n", errMsg)
	}
	fmt.Printf("Bill total: invoiced $%.2f of $%.2f", result.BillTotal.CalculatedTotal, result.BillTotal.BillTotal)
	printVerdict(result.BillTotal.IsValid)

	fmt.Println()
	if result.Readiness.Ready {
		fmt.Println("Ready for approval.")
	} else {
		fmt.Println("Not ready for approval:")
		for _, reason := range result.Readiness.Errors {
			fmt.Printf("  - %s\n", reason)
		}
	}
}

func printVerdict(ok bool) {
	if ok {
		fmt.Println("  [ok]")
	} else {
		fmt.Println("  [MISMATCH]")
	}
}

func newestBillID(store *storage.Storage) (string, error) {
	result, err := store.ListBills(storage.BillFilters{Limit: 1})
	if err != nil {
		return "", err
	}
	if len(result.Bills) == 0 {
		return "", fmt.Errorf("no bills found")
	}
	return result.Bills[0].ID, nil
}
