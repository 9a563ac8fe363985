package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_solid_waste_assignments",
		Up:      migration002AddSolidWasteAssignments,
	},
	{
		Version: 3,
		Name:    "add_invoices_table",
		Up:      migration003AddInvoicesTable,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	// Ensure migrations table exists
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get applied migrations
	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	// Run pending migrations
	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		// Run migration in transaction
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		// Execute migration
		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		// Record migration
		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		// Commit
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		log.Printf("✅ Migration %d complete", migration.Version)
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// ================================================================
// MIGRATION FUNCTIONS
// ================================================================

// migration001InitialSchema creates the roster, bill, reading, and
// adjustment tables
func migration001InitialSchema(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS units (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sqft REAL NOT NULL DEFAULT 0,
			submeter_id TEXT DEFAULT '',
			email TEXT DEFAULT '',
			garbage_size INTEGER DEFAULT 0,
			compost_size INTEGER DEFAULT 0,
			recycle_size INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bills (
			id TEXT PRIMARY KEY,
			bill_date TEXT DEFAULT '',
			due_date TEXT DEFAULT '',
			total_amount REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'NEW',
			pdf_url TEXT DEFAULT '',
			services_json TEXT NOT NULL DEFAULT '{}',
			synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bills_status
		 ON bills(status)`,

		`CREATE INDEX IF NOT EXISTS idx_bills_bill_date
		 ON bills(bill_date DESC)`,

		`CREATE TABLE IF NOT EXISTS meter_readings (
			bill_id TEXT NOT NULL,
			unit_id TEXT NOT NULL,
			reading REAL NOT NULL DEFAULT 0,
			unit TEXT NOT NULL DEFAULT 'ccf',
			PRIMARY KEY (bill_id, unit_id),
			FOREIGN KEY (bill_id) REFERENCES bills(id)
		)`,

		`CREATE TABLE IF NOT EXISTS adjustments (
			id TEXT PRIMARY KEY,
			bill_id TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cost REAL NOT NULL DEFAULT 0,
			date TEXT DEFAULT '',
			assigned_unit_ids_json TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (bill_id) REFERENCES bills(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_adjustments_bill_id
		 ON adjustments(bill_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// migration002AddSolidWasteAssignments creates the per-unit container
// assignment table. Item lists are stored as JSON since slots are only
// ever read back whole.
func migration002AddSolidWasteAssignments(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS solid_waste_assignments (
			bill_id TEXT NOT NULL,
			unit_id TEXT NOT NULL,
			garbage_items_json TEXT NOT NULL DEFAULT '[]',
			compost_items_json TEXT NOT NULL DEFAULT '[]',
			recycle_items_json TEXT NOT NULL DEFAULT '[]',
			garbage_total REAL NOT NULL DEFAULT 0,
			compost_total REAL NOT NULL DEFAULT 0,
			recycle_total REAL NOT NULL DEFAULT 0,
			total REAL NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (bill_id, unit_id),
			FOREIGN KEY (bill_id) REFERENCES bills(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_assignments_bill_id
		 ON solid_waste_assignments(bill_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// migration003AddInvoicesTable creates the persisted invoice table
func migration003AddInvoicesTable(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS invoices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bill_id TEXT NOT NULL,
			unit_id TEXT NOT NULL,
			unit_name TEXT NOT NULL DEFAULT '',
			amount REAL NOT NULL DEFAULT 0,
			line_items_json TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'DRAFT',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (bill_id, unit_id),
			FOREIGN KEY (bill_id) REFERENCES bills(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_invoices_bill_id
		 ON invoices(bill_id)`,

		`CREATE INDEX IF NOT EXISTS idx_invoices_status
		 ON invoices(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
