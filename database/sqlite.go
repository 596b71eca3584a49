package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported driver names. sqlite3 is the cgo driver, sqlite the pure-Go one.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

var db *sql.DB

// OpenDB initializes the SQLite database connection
func OpenDB(driver, path string) error {
	conn, err := Open(driver, path)
	if err != nil {
		return err
	}
	db = conn
	return nil
}

// Open opens a SQLite database file with WAL journaling and a busy timeout.
// The parent directory is created when missing.
func Open(driver, path string) (*sql.DB, error) {
	if driver == "" {
		driver = DriverCGO
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	var dsn string
	switch driver {
	case DriverCGO:
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_txlock=immediate"
	case DriverPureGo:
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// Connect opens the database and applies pending migrations
func Connect(driver, path string) (*sql.DB, error) {
	conn, err := Open(driver, path)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return conn, nil
}

// InitializeDatabase opens the database connection and runs migrations
func InitializeDatabase(driver, path string) error {
	if err := OpenDB(driver, path); err != nil {
		return err
	}

	// Run migrations
	if err := RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("database initialized", "path", path, "driver", driver)
	return nil
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// CloseDB closes the database connection
func CloseDB() error {
	if db != nil {
		return db.Close()
	}
	return nil
}
