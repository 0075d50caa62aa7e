package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
)

const recordColumns = `district, school_name, approx_level, software, vendor, use_type, host_type,
	num_school_lic, num_district_lic, cost_per_lic, cost_total, contract_start_month,
	contract_start_year, contract_length_years, install_month, install_year, quote_month,
	quote_year, misc_notes, round, source_file, page_number`

// RecordRepository reads the mirrored tables.
type RecordRepository interface {
	ListRecords(ctx context.Context, runID string) ([]entity.SoftwareRecord, error)
	ListSummaries(ctx context.Context, runID string) ([]entity.DistrictSummary, error)
}

type recordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRecordRepository(db *sql.DB, logger *slog.Logger) RecordRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &recordRepository{db: db, logger: logger}
}

// ListRecords returns records in insertion order; an empty runID means all runs.
func (r *recordRepository) ListRecords(ctx context.Context, runID string) ([]entity.SoftwareRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM software_records`
	var args []any
	if runID != "" {
		q += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	q += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("sqlite.records.query_error", "run_id", runID, "error", err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []entity.SoftwareRecord
	for rows.Next() {
		var s entity.SoftwareRecord
		if err := rows.Scan(
			&s.District, &s.SchoolName, &s.ApproxLevel, &s.Software, &s.Vendor, &s.UseType, &s.HostType,
			&s.NumSchoolLic, &s.NumDistrictLic, &s.CostPerLic, &s.CostTotal, &s.ContractStartMonth,
			&s.ContractStartYear, &s.ContractLengthYears, &s.InstallMonth, &s.InstallYear, &s.QuoteMonth,
			&s.QuoteYear, &s.MiscNotes, &s.Round, &s.SourceFile, &s.PageNumber,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListSummaries returns district summaries ordered by run start then district.
func (r *recordRepository) ListSummaries(ctx context.Context, runID string) ([]entity.DistrictSummary, error) {
	q := `SELECT d.district, d.round_1_pages, d.round_2_pages, d.round_3_pages, d.round_4_pages, d.total_pages,
		d.round_1_pdfs, d.round_2_pdfs, d.round_3_pdfs, d.round_4_pdfs, d.total_pdfs, d.software_records
		FROM district_summaries d JOIN runs r ON r.id = d.run_id`
	var args []any
	if runID != "" {
		q += ` WHERE d.run_id = ?`
		args = append(args, runID)
	}
	q += ` ORDER BY r.started_at, d.district`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("sqlite.summaries.query_error", "run_id", runID, "error", err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []entity.DistrictSummary
	for rows.Next() {
		var s entity.DistrictSummary
		if err := rows.Scan(&s.District,
			&s.RoundPages[0], &s.RoundPages[1], &s.RoundPages[2], &s.RoundPages[3], &s.TotalPages,
			&s.RoundPDFs[0], &s.RoundPDFs[1], &s.RoundPDFs[2], &s.RoundPDFs[3], &s.TotalPDFs,
			&s.SoftwareRecords,
		); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SQLiteSink mirrors checkpoints into SQLite, one transaction per checkpoint.
// Offsets only advance after a successful commit.
type SQLiteSink struct {
	db     *sql.DB
	logger *slog.Logger

	recordsDone   int
	summariesDone int
}

func NewSQLiteSink(db *sql.DB, logger *slog.Logger) *SQLiteSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteSink{db: db, logger: logger}
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Checkpoint(ctx context.Context, cp entity.Checkpoint) error {
	start := time.Now()
	recDone := min(s.recordsDone, len(cp.Records))
	sumDone := min(s.summariesDone, len(cp.Summaries))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := cp.At.Unix()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, updated_at, checkpoints, final) VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at,
		   checkpoints = runs.checkpoints + 1, final = excluded.final`,
		cp.RunID, now, now, boolInt(cp.Final)); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if pending := cp.Records[recDone:]; len(pending) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO software_records (run_id, `+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare record insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, r := range pending {
			args := []any{cp.RunID}
			for _, c := range r.Row() {
				args = append(args, c)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert record: %w", err)
			}
		}
	}

	for _, sm := range cp.Summaries[sumDone:] {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO district_summaries (run_id, district,
				round_1_pages, round_2_pages, round_3_pages, round_4_pages, total_pages,
				round_1_pdfs, round_2_pdfs, round_3_pdfs, round_4_pdfs, total_pdfs, software_records)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(run_id, district) DO UPDATE SET software_records = excluded.software_records`,
			cp.RunID, sm.District,
			sm.RoundPages[0], sm.RoundPages[1], sm.RoundPages[2], sm.RoundPages[3], sm.TotalPages,
			sm.RoundPDFs[0], sm.RoundPDFs[1], sm.RoundPDFs[2], sm.RoundPDFs[3], sm.TotalPDFs,
			sm.SoftwareRecords,
		); err != nil {
			return fmt.Errorf("insert summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite.checkpoint.commit_error", "error", err)
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("sqlite.checkpoint.ok",
		"final", cp.Final,
		"records", len(cp.Records)-recDone,
		"districts", len(cp.Summaries)-sumDone,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	s.recordsDone = len(cp.Records)
	s.summariesDone = len(cp.Summaries)
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
