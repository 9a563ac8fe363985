// Package firestore reads parsed bills and meter readings from the
// Firestore project the scraper writes into.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/infrastructure/config"
)

// billDocument mirrors the bill documents the scraper writes.
type billDocument struct {
	BillDate       string                               `firestore:"bill_date"`
	DueDate        string                               `firestore:"due_date"`
	TotalAmount    float64                              `firestore:"total_amount"`
	PDFURL         string                               `firestore:"pdf_url"`
	Status         string                               `firestore:"status"`
	HasAdjustments bool                                 `firestore:"has_adjustments"`
	ParsedData     parsedData                           `firestore:"parsed_data"`
}

type parsedData struct {
	Services map[string]serviceSection `firestore:"services"`
}

type serviceSection struct {
	Total float64       `firestore:"total"`
	Parts []servicePart `firestore:"parts"`
}

type servicePart struct {
	Usage       float64       `firestore:"usage"`
	StartDate   string        `firestore:"start"`
	EndDate     string        `firestore:"end"`
	MeterNumber string        `firestore:"meter_number"`
	Items       []rawLineItem `firestore:"items"`
}

type rawLineItem struct {
	Description string  `firestore:"description"`
	Cost        float64 `firestore:"cost"`
	Date        string  `firestore:"date"`
	Usage       float64 `firestore:"usage"`
	Rate        float64 `firestore:"rate"`
	Size        int     `firestore:"size"`
	Count       int     `firestore:"count"`
}

type adjustmentDocument struct {
	Description     string   `firestore:"description"`
	Cost            float64  `firestore:"cost"`
	Date            string   `firestore:"date"`
	AssignedUnitIDs []string `firestore:"assigned_unit_ids"`
}

type readingsDocument struct {
	Readings map[string]float64 `firestore:"readings"`
}

// SyncedBill is one bill pulled down with its adjustments.
type SyncedBill struct {
	Bill        billing.Bill
	Adjustments []billing.Adjustment
}

// Source reads scraper output from Firestore.
type Source struct {
	client *firestore.Client
	cfg    config.FirestoreConfig
}

// NewSource connects to the configured Firestore project.
func NewSource(ctx context.Context, cfg config.FirestoreConfig) (*Source, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id not configured")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &Source{client: client, cfg: cfg}, nil
}

// Close releases the underlying client.
func (s *Source) Close() error {
	return s.client.Close()
}

// FetchBills reads every bill document with its adjustments subcollection.
func (s *Source) FetchBills(ctx context.Context) ([]SyncedBill, error) {
	iter := s.client.Collection(s.cfg.BillsCollection).Documents(ctx)
	defer iter.Stop()

	var bills []SyncedBill
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate bills: %w", err)
		}

		var data billDocument
		if err := doc.DataTo(&data); err != nil {
			return nil, fmt.Errorf("failed to decode bill %s: %w", doc.Ref.ID, err)
		}

		adjustments, err := s.fetchAdjustments(ctx, doc.Ref)
		if err != nil {
			return nil, err
		}

		bills = append(bills, SyncedBill{
			Bill:        toBill(doc.Ref.ID, data),
			Adjustments: adjustments,
		})
	}
	return bills, nil
}

func (s *Source) fetchAdjustments(ctx context.Context, billRef *firestore.DocumentRef) ([]billing.Adjustment, error) {
	iter := billRef.Collection("adjustments").Documents(ctx)
	defer iter.Stop()

	var adjustments []billing.Adjustment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate adjustments for bill %s: %w", billRef.ID, err)
		}

		var data adjustmentDocument
		if err := doc.DataTo(&data); err != nil {
			return nil, fmt.Errorf("failed to decode adjustment %s: %w", doc.Ref.ID, err)
		}

		adjustments = append(adjustments, billing.Adjustment{
			ID:              doc.Ref.ID,
			Description:     data.Description,
			Cost:            data.Cost,
			Date:            data.Date,
			AssignedUnitIDs: data.AssignedUnitIDs,
		})
	}
	return adjustments, nil
}

// FetchLatestReadings reads the most recent meter snapshot, keyed by
// submeter ID, in gallons.
func (s *Source) FetchLatestReadings(ctx context.Context) (map[string]float64, error) {
	doc, err := s.client.Collection("settings").Doc("latest_readings").Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest readings: %w", err)
	}

	var data readingsDocument
	if err := doc.DataTo(&data); err != nil {
		return nil, fmt.Errorf("failed to decode readings: %w", err)
	}
	return data.Readings, nil
}

func toBill(id string, data billDocument) billing.Bill {
	services := make(map[string]billing.ServiceSection, len(data.ParsedData.Services))
	for name, section := range data.ParsedData.Services {
		parts := make([]billing.ServicePart, 0, len(section.Parts))
		for _, part := range section.Parts {
			items := make([]billing.RawLineItem, 0, len(part.Items))
			for _, item := range part.Items {
				items = append(items, billing.RawLineItem{
					Description: item.Description,
					Cost:        item.Cost,
					Date:        item.Date,
					Usage:       item.Usage,
					Rate:        item.Rate,
					Size:        item.Size,
					Count:       item.Count,
				})
			}
			parts = append(parts, billing.ServicePart{
				Usage:       part.Usage,
				StartDate:   part.StartDate,
				EndDate:     part.EndDate,
				MeterNumber: part.MeterNumber,
				Items:       items,
			})
		}
		services[name] = billing.ServiceSection{Total: section.Total, Parts: parts}
	}

	status := billing.BillStatus(data.Status)
	if status == "" {
		status = billing.StatusNew
	}

	return billing.Bill{
		ID:          id,
		BillDate:    data.BillDate,
		DueDate:     data.DueDate,
		TotalAmount: data.TotalAmount,
		Status:      status,
		PDFURL:      data.PDFURL,
		Services:    services,
	}
}
