// Package db manages the schema of the embedded document indexes.
// Migrations are plain SQL files embedded in the binary and applied in
// version order; each database records what it has already run.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Roguelazer/advsearch/pkg/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one versioned schema change.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt *time.Time
}

// MigrationManager applies embedded migrations to one database.
type MigrationManager struct {
	db     *sql.DB
	logger *log.Logger
}

func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{
		db:     db,
		logger: log.ForService("db"),
	}
}

// EnsureMigrationsTable creates the migrations table if it doesn't exist
func (m *MigrationManager) EnsureMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := m.db.Exec(query)
	return err
}

// GetAppliedMigrations returns the versions already run on this database.
func (m *MigrationManager) GetAppliedMigrations() (map[int]time.Time, error) {
	applied := make(map[int]time.Time)

	rows, err := m.db.Query("SELECT version, applied_at FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			m.logger.Warnf("failed to close rows: %v", err)
		}
	}()

	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// GetAvailableMigrations returns every embedded migration, sorted by version.
func (m *MigrationManager) GetAvailableMigrations() ([]Migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// Filenames look like "001_documents.sql".
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) != 2 {
			continue
		}

		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		content, err := migrationsFS.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading migration file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(parts[1], ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// GetPendingMigrations returns migrations that haven't been applied yet.
func (m *MigrationManager) GetPendingMigrations() ([]Migration, error) {
	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}

	available, err := m.GetAvailableMigrations()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, migration := range available {
		if _, exists := applied[migration.Version]; !exists {
			pending = append(pending, migration)
		}
	}

	return pending, nil
}

// ApplyMigration runs one migration and records it, in a single transaction.
func (m *MigrationManager) ApplyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				m.logger.Warnf("failed to rollback migration transaction: %v", err)
			}
		}
	}()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return fmt.Errorf("executing migration %d: %w", migration.Version, err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", migration.Version); err != nil {
		return fmt.Errorf("recording migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", migration.Version, err)
	}

	committed = true
	return nil
}

// ApplyPendingMigrations brings the database up to the current schema.
func (m *MigrationManager) ApplyPendingMigrations() error {
	if err := m.EnsureMigrationsTable(); err != nil {
		return fmt.Errorf("ensuring migrations table: %w", err)
	}

	pending, err := m.GetPendingMigrations()
	if err != nil {
		return fmt.Errorf("getting pending migrations: %w", err)
	}

	for _, migration := range pending {
		m.logger.Infof("applying migration %d: %s", migration.Version, migration.Name)
		if err := m.ApplyMigration(migration); err != nil {
			return fmt.Errorf("applying migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	return nil
}

// InitializeDatabase applies all migrations to a fresh or existing database.
func InitializeDatabase(db *sql.DB) error {
	manager := NewMigrationManager(db)
	if err := manager.ApplyPendingMigrations(); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
