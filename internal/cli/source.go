package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utilitysplitter/backend/internal/adapters/firestore"
	"github.com/utilitysplitter/backend/internal/infrastructure/config"
)

// NewBillSource connects to the Firestore project the scraper writes to
func NewBillSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*firestore.Source, error) {
	source, err := firestore.NewSource(ctx, cfg.Firestore)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bill source: %w", err)
	}

	logger.Info("connected to bill source",
		slog.String("project", cfg.Firestore.ProjectID),
		slog.String("bills_collection", cfg.Firestore.BillsCollection))

	return source, nil
}
