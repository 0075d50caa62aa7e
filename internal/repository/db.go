package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Open opens (creating if needed) the SQLite mirror and applies the schema.
// A single connection serializes writers.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("sqlite.open", "path", cfg.Path)
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		logger.Error("sqlite.open.error", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busy.Milliseconds()),
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		logger.Error("sqlite.migrate.error", "error", err)
		return nil, err
	}
	logger.Info("sqlite.open.ok", "path", cfg.Path)
	return db, nil
}

// Close closes the database gracefully
func Close(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("sqlite.close.error", "error", err)
	}
}

// HealthCheck pings the database to catch path or permission issues early.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

func migrate(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			checkpoints INTEGER NOT NULL DEFAULT 0,
			final INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS software_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			district TEXT NOT NULL,
			school_name TEXT NOT NULL,
			approx_level TEXT NOT NULL,
			software TEXT NOT NULL,
			vendor TEXT NOT NULL,
			use_type TEXT NOT NULL,
			host_type TEXT NOT NULL,
			num_school_lic TEXT NOT NULL,
			num_district_lic TEXT NOT NULL,
			cost_per_lic TEXT NOT NULL,
			cost_total TEXT NOT NULL,
			contract_start_month TEXT NOT NULL,
			contract_start_year TEXT NOT NULL,
			contract_length_years TEXT NOT NULL,
			install_month TEXT NOT NULL,
			install_year TEXT NOT NULL,
			quote_month TEXT NOT NULL,
			quote_year TEXT NOT NULL,
			misc_notes TEXT NOT NULL,
			round TEXT NOT NULL,
			source_file TEXT NOT NULL,
			page_number TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_software_records_district ON software_records(district, round)`,
		`CREATE TABLE IF NOT EXISTS district_summaries (
			run_id TEXT NOT NULL REFERENCES runs(id),
			district TEXT NOT NULL,
			round_1_pages INTEGER NOT NULL,
			round_2_pages INTEGER NOT NULL,
			round_3_pages INTEGER NOT NULL,
			round_4_pages INTEGER NOT NULL,
			total_pages INTEGER NOT NULL,
			round_1_pdfs INTEGER NOT NULL,
			round_2_pdfs INTEGER NOT NULL,
			round_3_pdfs INTEGER NOT NULL,
			round_4_pdfs INTEGER NOT NULL,
			total_pdfs INTEGER NOT NULL,
			software_records INTEGER NOT NULL,
			PRIMARY KEY (run_id, district)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}
