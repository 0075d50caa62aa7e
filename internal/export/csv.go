package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
	"github.com/joseph-ayodele/procurement-extractor/internal/utils"
)

// Snapshot file name prefixes; a timestamp and ".csv" follow.
const (
	IntermediateDetailedPrefix = "intermediate_detailed_"
	IntermediateSummaryPrefix  = "intermediate_summary_"
	FinalDetailedPrefix        = "final_detailed_results_"
	FinalSummaryPrefix         = "final_district_summary_"
)

// CSVSink persists checkpoints as CSV: rows not yet written are appended to
// the main tables, and the whole run so far is written to timestamped
// snapshot files.
type CSVSink struct {
	dir         string
	recordsPath string
	summaryPath string
	log         *slog.Logger

	recordsDone   int
	summariesDone int
}

func NewCSVSink(dir, recordsPath, summaryPath string, logger *slog.Logger) *CSVSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVSink{dir: dir, recordsPath: recordsPath, summaryPath: summaryPath, log: logger}
}

func (s *CSVSink) Name() string { return "csv" }

// Checkpoint appends pending rows and writes snapshots. A failed append
// leaves its offset untouched so the rows are retried next time.
func (s *CSVSink) Checkpoint(_ context.Context, cp entity.Checkpoint) error {
	var errs []error

	records := make([][]string, 0, len(cp.Records))
	for _, r := range cp.Records {
		records = append(records, r.Row())
	}
	summaries := make([][]string, 0, len(cp.Summaries))
	for _, sm := range cp.Summaries {
		summaries = append(summaries, sm.Row())
	}

	if n, err := s.appendPending(s.recordsPath, entity.RecordColumns, records, s.recordsDone); err != nil {
		errs = append(errs, err)
	} else {
		s.recordsDone = n
	}
	if n, err := s.appendPending(s.summaryPath, entity.SummaryColumns, summaries, s.summariesDone); err != nil {
		errs = append(errs, err)
	} else {
		s.summariesDone = n
	}

	detailedPrefix, summaryPrefix := IntermediateDetailedPrefix, IntermediateSummaryPrefix
	if cp.Final {
		detailedPrefix, summaryPrefix = FinalDetailedPrefix, FinalSummaryPrefix
	}
	stamp := utils.Stamp(cp.At)
	if err := s.snapshot(filepath.Join(s.dir, detailedPrefix+stamp+".csv"), entity.RecordColumns, records); err != nil {
		errs = append(errs, err)
	}
	if err := s.snapshot(filepath.Join(s.dir, summaryPrefix+stamp+".csv"), entity.SummaryColumns, summaries); err != nil {
		errs = append(errs, err)
	}

	s.log.Info("export.csv.checkpoint",
		"final", cp.Final,
		"records", len(records),
		"districts", len(summaries),
		"records_persisted", s.recordsDone,
		"districts_persisted", s.summariesDone,
		"errors", len(errs),
	)
	return errors.Join(errs...)
}

func (s *CSVSink) appendPending(path string, header []string, rows [][]string, done int) (int, error) {
	if done > len(rows) {
		done = len(rows)
	}
	pending := rows[done:]
	if len(pending) == 0 {
		return done, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if utils.FileEmpty(path) {
		_ = w.Write(header)
	}
	if err := w.WriteAll(pending); err != nil {
		return done, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := utils.AppendFileSync(path, buf.Bytes()); err != nil {
		s.log.Error("export.csv.append_error", "path", path, "rows", len(pending), "error", err)
		return done, err
	}
	s.log.Debug("export.csv.appended", "path", path, "rows", len(pending))
	return len(rows), nil
}

func (s *CSVSink) snapshot(path string, header []string, rows [][]string) error {
	if len(rows) == 0 {
		s.log.Warn("export.csv.snapshot_empty", "path", path)
		return nil
	}
	b, err := EncodeCSV(header, rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := utils.WriteFileAtomic(path, b); err != nil {
		s.log.Error("export.csv.snapshot_error", "path", path, "error", err)
		return err
	}
	return nil
}

// EncodeCSV renders a header and rows as CSV bytes.
func EncodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadRecords loads a detailed-records table written by CSVSink.
func ReadRecords(path string) ([]entity.SoftwareRecord, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	out := make([]entity.SoftwareRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.RecordFromRow(header, row))
	}
	return out, nil
}

// ReadSummaries loads a district-summary table written by CSVSink.
func ReadSummaries(path string) ([]entity.DistrictSummary, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	out := make([]entity.DistrictSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.SummaryFromRow(header, row))
	}
	return out, nil
}

func readTable(path string) (map[string]int, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	head, err := r.Read()
	if errors.Is(err, io.EOF) {
		return map[string]int{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header %s: %w", path, err)
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		header[h] = i
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows %s: %w", path, err)
	}
	return header, rows, nil
}
