package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
	"github.com/joseph-ayodele/procurement-extractor/internal/export"
	repo "github.com/joseph-ayodele/procurement-extractor/internal/repository"
	"github.com/joseph-ayodele/procurement-extractor/internal/utils"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		configPath = flag.String("config", "", "config file (yaml, toml or json)")
		records    = flag.String("records", "", "detailed records CSV (defaults to output.records_file)")
		summary    = flag.String("summary", "", "district summary CSV (defaults to output.summary_file)")
		out        = flag.String("out", "", "output XLSX path (defaults to output.workbook_file)")
		fromDB     = flag.Bool("sqlite", false, "read from the SQLite mirror (output.sqlite_path) instead of CSV")
		runID      = flag.String("run", "", "with --sqlite, only this run ID")
	)
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger, closeLog, err := common.NewLogger(cfg.Log)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	if *records == "" {
		*records = cfg.OutputPath(cfg.Output.RecordsFile)
	}
	if *summary == "" {
		*summary = cfg.OutputPath(cfg.Output.SummaryFile)
	}
	if *out == "" {
		*out = cfg.OutputPath(cfg.Output.WorkbookFile)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var (
		recs []entity.SoftwareRecord
		sums []entity.DistrictSummary
	)
	if *fromDB {
		if cfg.Output.SQLitePath == "" {
			printError("Error: --sqlite needs output.sqlite_path\n")
			os.Exit(1)
		}
		recs, sums, err = loadSQLite(ctx, cfg.OutputPath(cfg.Output.SQLitePath), *runID, logger)
	} else {
		recs, sums, err = loadCSV(*records, *summary)
	}
	if err != nil {
		logger.Error("failed to load results", "error", err)
		os.Exit(1)
	}

	analysis := export.Analyze(recs)
	analysis.Log(logger)

	xlsxBytes, err := export.NewWorkbookService(logger).BuildXLSX(recs, sums, analysis)
	if err != nil {
		logger.Error("failed to build workbook", "error", err)
		os.Exit(1)
	}
	if err := utils.WriteFileAtomic(*out, xlsxBytes); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Report complete!\n")
	fmt.Printf("- Records: %d\n", analysis.TotalRecords)
	fmt.Printf("- Districts: %d\n", analysis.UniqueDistricts)
	fmt.Printf("- Software titles: %d\n", analysis.UniqueSoftware)
	fmt.Printf("- Vendors: %d\n", analysis.UniqueVendors)
	if analysis.Cost.WithCost > 0 {
		fmt.Printf("- Total cost: $%.2f over %d records\n", analysis.Cost.Sum, analysis.Cost.WithCost)
	}
	fmt.Printf("- Output: %s\n", *out)
}

func loadCSV(recordsPath, summaryPath string) ([]entity.SoftwareRecord, []entity.DistrictSummary, error) {
	recs, err := export.ReadRecords(recordsPath)
	if err != nil {
		return nil, nil, common.WrapError(err, "read records")
	}
	sums, err := export.ReadSummaries(summaryPath)
	if err != nil {
		// the summary table is optional for the report
		slog.Warn("export.summary.unavailable", "path", summaryPath, "error", err)
		sums = nil
	}
	return recs, sums, nil
}

func loadSQLite(ctx context.Context, path, runID string, logger *slog.Logger) ([]entity.SoftwareRecord, []entity.DistrictSummary, error) {
	db, err := repo.Open(ctx, repo.Config{Path: path}, logger)
	if err != nil {
		return nil, nil, err
	}
	defer repo.Close(db, logger)

	r := repo.NewRecordRepository(db, logger)
	recs, err := r.ListRecords(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	sums, err := r.ListSummaries(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return recs, sums, nil
}
