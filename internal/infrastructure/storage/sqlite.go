package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/utilitysplitter/backend/internal/domain/billing"
	"github.com/utilitysplitter/backend/internal/domain/solidwaste"
)

// Storage provides SQLite database access for the billing data.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// ================================================================
// UNITS
// ================================================================

// SaveUnit inserts or updates a unit
func (s *Storage) SaveUnit(unit *billing.Unit) error {
	query := `
	INSERT INTO units (id, name, sqft, submeter_id, email, garbage_size, compost_size, recycle_size)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		sqft = excluded.sqft,
		submeter_id = excluded.submeter_id,
		email = excluded.email,
		garbage_size = excluded.garbage_size,
		compost_size = excluded.compost_size,
		recycle_size = excluded.recycle_size,
		updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.Exec(query,
		unit.ID,
		unit.Name,
		unit.Sqft,
		unit.SubmeterID,
		unit.Email,
		unit.SolidWasteDefaults.GarbageSize,
		unit.SolidWasteDefaults.CompostSize,
		unit.SolidWasteDefaults.RecycleSize,
	)
	return err
}

// GetUnit retrieves a unit by ID
func (s *Storage) GetUnit(id string) (*billing.Unit, error) {
	query := `
	SELECT id, name, sqft, submeter_id, email, garbage_size, compost_size, recycle_size
	FROM units WHERE id = ?
	`

	unit := &billing.Unit{}
	err := s.db.QueryRow(query, id).Scan(
		&unit.ID,
		&unit.Name,
		&unit.Sqft,
		&unit.SubmeterID,
		&unit.Email,
		&unit.SolidWasteDefaults.GarbageSize,
		&unit.SolidWasteDefaults.CompostSize,
		&unit.SolidWasteDefaults.RecycleSize,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// ListUnits returns the full roster ordered by name
func (s *Storage) ListUnits() ([]billing.Unit, error) {
	query := `
	SELECT id, name, sqft, submeter_id, email, garbage_size, compost_size, recycle_size
	FROM units ORDER BY name, id
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var units []billing.Unit
	for rows.Next() {
		var unit billing.Unit
		err := rows.Scan(
			&unit.ID,
			&unit.Name,
			&unit.Sqft,
			&unit.SubmeterID,
			&unit.Email,
			&unit.SolidWasteDefaults.GarbageSize,
			&unit.SolidWasteDefaults.CompostSize,
			&unit.SolidWasteDefaults.RecycleSize,
		)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// DeleteUnit removes a unit from the roster
func (s *Storage) DeleteUnit(id string) error {
	_, err := s.db.Exec(`DELETE FROM units WHERE id = ?`, id)
	return err
}

// ================================================================
// BILLS
// ================================================================

// SaveBill inserts or updates a bill snapshot
func (s *Storage) SaveBill(bill *billing.Bill) error {
	servicesJSON, err := json.Marshal(bill.Services)
	if err != nil {
		return fmt.Errorf("failed to marshal services: %w", err)
	}

	status := bill.Status
	if status == "" {
		status = billing.StatusNew
	}

	query := `
	INSERT INTO bills (id, bill_date, due_date, total_amount, status, pdf_url, services_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		bill_date = excluded.bill_date,
		due_date = excluded.due_date,
		total_amount = excluded.total_amount,
		pdf_url = excluded.pdf_url,
		services_json = excluded.services_json,
		synced_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.Exec(query,
		bill.ID,
		bill.BillDate,
		bill.DueDate,
		bill.TotalAmount,
		string(status),
		bill.PDFURL,
		string(servicesJSON),
	)
	return err
}

// GetBill retrieves a bill by ID
func (s *Storage) GetBill(id string) (*billing.Bill, error) {
	query := `
	SELECT id, bill_date, due_date, total_amount, status, pdf_url, services_json
	FROM bills WHERE id = ?
	`

	bill := &billing.Bill{}
	var servicesJSON string
	err := s.db.QueryRow(query, id).Scan(
		&bill.ID,
		&bill.BillDate,
		&bill.DueDate,
		&bill.TotalAmount,
		&bill.Status,
		&bill.PDFURL,
		&servicesJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(servicesJSON), &bill.Services); err != nil {
		return nil, fmt.Errorf("failed to unmarshal services for bill %s: %w", id, err)
	}
	return bill, nil
}

// ListBills returns bills matching the filters with pagination
func (s *Storage) ListBills(filters BillFilters) (*BillListResult, error) {
	limit := filters.Limit
	if limit == 0 {
		limit = 50
	}

	where := ""
	args := []any{}
	if filters.Status != "" {
		where = "WHERE status = ?"
		args = append(args, string(filters.Status))
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM bills %s`, where)
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
	SELECT id, bill_date, due_date, total_amount, status, pdf_url, services_json
	FROM bills %s
	ORDER BY bill_date DESC, id
	LIMIT ? OFFSET ?
	`, where)
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := &BillListResult{
		TotalCount: total,
		Limit:      limit,
		Offset:     filters.Offset,
	}
	for rows.Next() {
		var bill billing.Bill
		var servicesJSON string
		err := rows.Scan(
			&bill.ID,
			&bill.BillDate,
			&bill.DueDate,
			&bill.TotalAmount,
			&bill.Status,
			&bill.PDFURL,
			&servicesJSON,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(servicesJSON), &bill.Services); err != nil {
			return nil, fmt.Errorf("failed to unmarshal services for bill %s: %w", bill.ID, err)
		}
		result.Bills = append(result.Bills, bill)
	}
	return result, rows.Err()
}

// UpdateBillStatus moves a bill through its lifecycle
func (s *Storage) UpdateBillStatus(id string, status billing.BillStatus) error {
	result, err := s.db.Exec(`UPDATE bills SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("bill %s not found", id)
	}
	return nil
}

// ================================================================
// METER READINGS
// ================================================================

// SaveReadings replaces the bill's readings with the given set
func (s *Storage) SaveReadings(billID string, readings []billing.MeterReading) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM meter_readings WHERE bill_id = ?`, billID); err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, reading := range readings {
		unit := reading.Unit
		if unit == "" {
			unit = billing.ReadingCCF
		}
		_, err := tx.Exec(`
			INSERT INTO meter_readings (bill_id, unit_id, reading, unit)
			VALUES (?, ?, ?, ?)
		`, billID, reading.UnitID, reading.Reading, string(unit))
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// GetReadings returns all readings for a bill
func (s *Storage) GetReadings(billID string) ([]billing.MeterReading, error) {
	rows, err := s.db.Query(`
		SELECT unit_id, reading, unit FROM meter_readings
		WHERE bill_id = ? ORDER BY unit_id
	`, billID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var readings []billing.MeterReading
	for rows.Next() {
		var reading billing.MeterReading
		if err := rows.Scan(&reading.UnitID, &reading.Reading, &reading.Unit); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// ================================================================
// ADJUSTMENTS
// ================================================================

// SaveAdjustment inserts or updates an adjustment on a bill
func (s *Storage) SaveAdjustment(billID string, adjustment *billing.Adjustment) error {
	unitIDs := adjustment.AssignedUnitIDs
	if unitIDs == nil {
		unitIDs = []string{}
	}
	unitsJSON, err := json.Marshal(unitIDs)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO adjustments (id, bill_id, description, cost, date, assigned_unit_ids_json)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		description = excluded.description,
		cost = excluded.cost,
		date = excluded.date,
		assigned_unit_ids_json = excluded.assigned_unit_ids_json
	`

	_, err = s.db.Exec(query,
		adjustment.ID,
		billID,
		adjustment.Description,
		adjustment.Cost,
		adjustment.Date,
		string(unitsJSON),
	)
	return err
}

// GetAdjustments returns a bill's adjustments in insertion order
func (s *Storage) GetAdjustments(billID string) ([]billing.Adjustment, error) {
	rows, err := s.db.Query(`
		SELECT id, description, cost, date, assigned_unit_ids_json
		FROM adjustments WHERE bill_id = ? ORDER BY created_at, id
	`, billID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var adjustments []billing.Adjustment
	for rows.Next() {
		var adjustment billing.Adjustment
		var unitsJSON string
		if err := rows.Scan(&adjustment.ID, &adjustment.Description, &adjustment.Cost, &adjustment.Date, &unitsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(unitsJSON), &adjustment.AssignedUnitIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assigned units for adjustment %s: %w", adjustment.ID, err)
		}
		adjustments = append(adjustments, adjustment)
	}
	return adjustments, rows.Err()
}

// UpdateAdjustmentUnits replaces an adjustment's assigned unit set
func (s *Storage) UpdateAdjustmentUnits(adjustmentID string, unitIDs []string) error {
	if unitIDs == nil {
		unitIDs = []string{}
	}
	unitsJSON, err := json.Marshal(unitIDs)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(`
		UPDATE adjustments SET assigned_unit_ids_json = ? WHERE id = ?
	`, string(unitsJSON), adjustmentID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("adjustment %s not found", adjustmentID)
	}
	return nil
}

// ================================================================
// SOLID WASTE ASSIGNMENTS
// ================================================================

// SaveAssignments replaces the bill's assignments with the given set
func (s *Storage) SaveAssignments(billID string, assignments []solidwaste.Assignment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM solid_waste_assignments WHERE bill_id = ?`, billID); err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, assignment := range assignments {
		garbageJSON, _ := json.Marshal(orEmpty(assignment.GarbageItems))
		compostJSON, _ := json.Marshal(orEmpty(assignment.CompostItems))
		recycleJSON, _ := json.Marshal(orEmpty(assignment.RecycleItems))

		_, err := tx.Exec(`
			INSERT INTO solid_waste_assignments
			(bill_id, unit_id, garbage_items_json, compost_items_json, recycle_items_json,
			 garbage_total, compost_total, recycle_total, total)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			billID,
			assignment.UnitID,
			string(garbageJSON),
			string(compostJSON),
			string(recycleJSON),
			assignment.GarbageTotal,
			assignment.CompostTotal,
			assignment.RecycleTotal,
			assignment.Total,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// GetAssignments returns all assignments for a bill
func (s *Storage) GetAssignments(billID string) ([]solidwaste.Assignment, error) {
	rows, err := s.db.Query(`
		SELECT unit_id, garbage_items_json, compost_items_json, recycle_items_json,
		       garbage_total, compost_total, recycle_total, total
		FROM solid_waste_assignments WHERE bill_id = ? ORDER BY unit_id
	`, billID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var assignments []solidwaste.Assignment
	for rows.Next() {
		var assignment solidwaste.Assignment
		var garbageJSON, compostJSON, recycleJSON string
		err := rows.Scan(
			&assignment.UnitID,
			&garbageJSON,
			&compostJSON,
			&recycleJSON,
			&assignment.GarbageTotal,
			&assignment.CompostTotal,
			&assignment.RecycleTotal,
			&assignment.Total,
		)
		if err != nil {
			return nil, err
		}
		// Unmarshal JSON fields (errors ignored as these are optional enrichment fields)
		_ = json.Unmarshal([]byte(garbageJSON), &assignment.GarbageItems)
		_ = json.Unmarshal([]byte(compostJSON), &assignment.CompostItems)
		_ = json.Unmarshal([]byte(recycleJSON), &assignment.RecycleItems)
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

// ================================================================
// INVOICES
// ================================================================

// SaveInvoices replaces the bill's invoices with the given set
func (s *Storage) SaveInvoices(billID string, invoices []billing.CalculatedInvoice, status InvoiceStatus) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM invoices WHERE bill_id = ?`, billID); err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, inv := range invoices {
		lineItemsJSON, _ := json.Marshal(orEmpty(inv.LineItems))
		_, err := tx.Exec(`
			INSERT INTO invoices (bill_id, unit_id, unit_name, amount, line_items_json, status)
			VALUES (?, ?, ?, ?, ?, ?)
		`, billID, inv.UnitID, inv.UnitName, inv.Amount, string(lineItemsJSON), string(status))
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// GetInvoices returns all persisted invoices for a bill
func (s *Storage) GetInvoices(billID string) ([]InvoiceRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, bill_id, unit_id, unit_name, amount, line_items_json, status, created_at
		FROM invoices WHERE bill_id = ? ORDER BY unit_id
	`, billID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []InvoiceRecord
	for rows.Next() {
		var record InvoiceRecord
		var lineItemsJSON string
		err := rows.Scan(
			&record.ID,
			&record.BillID,
			&record.Invoice.UnitID,
			&record.Invoice.UnitName,
			&record.Invoice.Amount,
			&lineItemsJSON,
			&record.Status,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(lineItemsJSON), &record.Invoice.LineItems)
		records = append(records, record)
	}
	return records, rows.Err()
}

// UpdateInvoiceStatus updates every invoice on a bill
func (s *Storage) UpdateInvoiceStatus(billID string, status InvoiceStatus) error {
	_, err := s.db.Exec(`UPDATE invoices SET status = ? WHERE bill_id = ?`, string(status), billID)
	return err
}

// orEmpty avoids persisting JSON null for empty slices
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
