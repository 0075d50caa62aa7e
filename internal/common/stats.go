package common

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// Stats are the run's audit counters. They separate clean extraction from
// salvage and from total loss.
type Stats struct {
	DistrictsProcessed atomic.Int64
	PDFsProcessed      atomic.Int64
	PDFsSkipped        atomic.Int64
	PagesAnalyzed      atomic.Int64
	PagesSkipped       atomic.Int64
	RecordsExtracted   atomic.Int64
	APICalls           atomic.Int64
	Errors             atomic.Int64
	CleanParses        atomic.Int64
	SalvagedParses     atomic.Int64
	SchemaViolations   atomic.Int64
}

// LogAttrs renders the counters as slog key/value pairs.
func (s *Stats) LogAttrs() []any {
	return []any{
		"districts_processed", s.DistrictsProcessed.Load(),
		"pdfs_processed", s.PDFsProcessed.Load(),
		"pdfs_skipped", s.PDFsSkipped.Load(),
		"pages_analyzed", s.PagesAnalyzed.Load(),
		"pages_skipped", s.PagesSkipped.Load(),
		"records_extracted", s.RecordsExtracted.Load(),
		"api_calls", s.APICalls.Load(),
		"errors", s.Errors.Load(),
		"clean_parses", s.CleanParses.Load(),
		"salvaged_parses", s.SalvagedParses.Load(),
		"schema_violations", s.SchemaViolations.Load(),
	}
}

// RunContext is handed to every pipeline component instead of package-level state.
type RunContext struct {
	RunID  string
	Config *Config
	Stats  *Stats
	Logger *slog.Logger
}

// NewRunContext builds a run context with fresh counters and a new run ID.
// A nil config is replaced by DefaultConfig(); a nil logger by slog.Default().
func NewRunContext(cfg *Config, logger *slog.Logger) *RunContext {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New().String()
	return &RunContext{
		RunID:  runID,
		Config: cfg,
		Stats:  &Stats{},
		Logger: logger.With("run_id", runID),
	}
}
