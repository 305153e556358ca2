package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	currentSchemaVersion = 1

	// DefaultPath is the conventional database file name
	DefaultPath = "kpop.db"
)

// Store is the stateless query/mutation façade over the catalog database.
// Every write runs in its own transaction; reads are single statements.
type Store struct {
	db   *sql.DB
	path string
}

// OpenOptions holds options for opening a database
type OpenOptions struct {
	BusyTimeoutMs int  // how long a connection waits on a locked file (default 5000)
	DisableWAL    bool // keep the rollback journal instead of WAL
}

// Open opens or creates a SQLite database at the given path with default options
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, nil)
}

// OpenWithOptions opens or creates a SQLite database with custom options.
// Foreign-key enforcement is switched on for every pooled connection.
func OpenWithOptions(path string, opts *OpenOptions) (*Store, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}
	if opts.BusyTimeoutMs <= 0 {
		opts.BusyTimeoutMs = 5000
	}

	db, err := sql.Open("sqlite", buildDSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db, path: path}

	if err := store.verifyForeignKeys(); err != nil {
		db.Close()
		return nil, err
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

func buildDSN(path string, opts *OpenOptions) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", opts.BusyTimeoutMs),
	}
	if !opts.DisableWAL {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	pragmas = append(pragmas, "_txlock=immediate")

	return fmt.Sprintf("file:%s?%s", path, strings.Join(pragmas, "&"))
}

// verifyForeignKeys makes sure the driver honoured the foreign_keys pragma
func (s *Store) verifyForeignKeys() error {
	var enabled int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("failed to read foreign_keys pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("foreign key enforcement is not enabled")
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path the store was opened with
func (s *Store) Path() string {
	return s.path
}

// SQLiteVersion returns the SQLite version string
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return ""
	}
	return version
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	var result string
	err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// ForeignKeyProblem is one row reported by PRAGMA foreign_key_check
type ForeignKeyProblem struct {
	Table  string
	RowID  int64
	Parent string
}

// CheckForeignKeys lists rows whose foreign keys point at missing parents
func (s *Store) CheckForeignKeys() ([]ForeignKeyProblem, error) {
	rows, err := s.db.Query("PRAGMA foreign_key_check")
	if err != nil {
		return nil, fmt.Errorf("foreign key check failed: %w", err)
	}
	defer rows.Close()

	var problems []ForeignKeyProblem
	for rows.Next() {
		var p ForeignKeyProblem
		var rowID sql.NullInt64
		var fkid int
		if err := rows.Scan(&p.Table, &rowID, &p.Parent, &fkid); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key problem: %w", err)
		}
		p.RowID = rowID.Int64
		problems = append(problems, p)
	}

	return problems, rows.Err()
}

// Initialize creates tables and indexes if absent. With wipe set it also
// removes every row and resets the identity counters.
func (s *Store) Initialize(wipe bool) error {
	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if !wipe {
		return nil
	}

	return s.Transaction(func(tx *Tx) error {
		return tx.Wipe()
	})
}

// Wipe deletes every row in child-to-parent order and resets identity counters
func (s *Store) Wipe() error {
	return s.Transaction(func(tx *Tx) error {
		return tx.Wipe()
	})
}

// migrate applies database migrations
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Apply schema v1
	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setSchemaVersion(tx, 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// Transaction executes fn within a transaction. The transaction is rolled
// back on every path that does not reach a successful commit, and the error
// returned by fn is passed through untouched so typed errors survive.
func (s *Store) Transaction(fn func(*Tx) error) error {
	sqlTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err), "")
	}

	return nil
}
