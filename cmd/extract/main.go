package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
	"github.com/joseph-ayodele/procurement-extractor/internal/core"
	"github.com/joseph-ayodele/procurement-extractor/internal/export"
	"github.com/joseph-ayodele/procurement-extractor/internal/ingest"
	"github.com/joseph-ayodele/procurement-extractor/internal/llm"
	"github.com/joseph-ayodele/procurement-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/procurement-extractor/internal/ocr"
	repo "github.com/joseph-ayodele/procurement-extractor/internal/repository"
	"github.com/joseph-ayodele/procurement-extractor/internal/tracker"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	var districts listFlag
	var (
		configPath     = flag.String("config", "", "config file (yaml, toml or json)")
		root           = flag.String("root", "", "input root directory (overrides input.root)")
		listDistricts  = flag.Bool("list-districts", false, "list available districts and exit")
		fullRun        = flag.Bool("full-run", false, "process every district and every PDF")
		limitDistricts = flag.Int("limit-districts", 3, "process at most N districts (ignored with --districts; default from input.limit_districts)")
		limitPDFs      = flag.Int("limit-pdfs", 10000, "process at most N PDFs per round (default from input.limit_pdfs_per_round)")
		status         = flag.Bool("status", false, "show processed-set status and exit")
		clearTracking  = flag.Bool("clear-tracking", false, "forget every processed PDF and exit")
		forceUnlock    = flag.Bool("force-unlock", false, "remove a stale tracker lock and exit")
	)
	flag.Var(&districts, "districts", "district names to process (repeatable or comma separated)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyOverrides(cfg, overrides{
		root:           *root,
		districts:      districts,
		fullRun:        *fullRun,
		limitDistricts: *limitDistricts,
		limitPDFs:      *limitPDFs,
	}, set)
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		return 1
	}

	logger, closeLog, err := common.NewLogger(cfg.Log)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	trackerPath := cfg.OutputPath(cfg.Output.TrackerFile)
	switch {
	case *status:
		return showStatus(trackerPath)
	case *forceUnlock:
		removed, err := tracker.ForceUnlock(trackerPath)
		if err != nil {
			logger.Error("tracker.force_unlock.error", "error", err)
			return 1
		}
		fmt.Printf("Lock removed: %t (%s)\n", removed, tracker.LockPath(trackerPath))
		return 0
	case *clearTracking:
		return clearStore(trackerPath, cfg.Tracker.SaveEvery, logger)
	case *listDistricts:
		return printDistricts(cfg, logger)
	}

	if err := cfg.RequireCredentials(); err != nil {
		printError("Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr := tracker.New(trackerPath, cfg.Tracker.SaveEvery, logger)
	if err := tr.Lock(); err != nil {
		logger.Error("tracker.lock.error", "error", err)
		if errors.Is(err, common.ErrTrackerLocked) {
			printError("Another run holds %s; use --force-unlock if it crashed.\n", tracker.LockPath(trackerPath))
		}
		return 1
	}
	defer func() {
		if err := tr.Unlock(); err != nil {
			logger.Error("tracker.unlock.error", "error", err)
		}
	}()
	tr.Load()

	renderer := ocr.NewRenderer(cfg.Render.Scale, logger)
	defer renderer.Close()

	rc := common.NewRunContext(cfg, logger)
	client := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	analyzer := llm.NewAnalyzer(rc, client)
	logger.Info("openai client initialized", "model", cfg.LLM.Model, "base_url", cfg.LLM.BaseURL)

	sinks := []core.Sink{
		export.NewCSVSink(cfg.Output.Dir,
			cfg.OutputPath(cfg.Output.RecordsFile),
			cfg.OutputPath(cfg.Output.SummaryFile),
			logger),
	}
	if cfg.Output.SQLitePath != "" {
		db, err := repo.Open(ctx, repo.Config{Path: cfg.OutputPath(cfg.Output.SQLitePath)}, logger)
		if err != nil {
			logger.Error("failed to open sqlite mirror", "error", err)
			return 1
		}
		defer repo.Close(db, logger)
		sinks = append(sinks, repo.NewSQLiteSink(db, logger))
	}

	scanner := ingest.NewScanner(cfg.Input.Root, renderer, logger)
	processor, err := core.NewProcessor(rc, scanner, renderer, analyzer, tr, sinks...)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}

	res, err := processor.Run(ctx)
	fmt.Printf("Run %s\n", res.RunID)
	fmt.Printf("- Districts: %d of %d selected\n", len(res.Summaries), len(res.Districts))
	fmt.Printf("- PDFs processed: %d (skipped %d)\n", rc.Stats.PDFsProcessed.Load(), rc.Stats.PDFsSkipped.Load())
	fmt.Printf("- Pages analyzed: %d (skipped %d)\n", rc.Stats.PagesAnalyzed.Load(), rc.Stats.PagesSkipped.Load())
	fmt.Printf("- Records: %d\n", len(res.Records))
	fmt.Printf("- API calls: %d, errors: %d\n", rc.Stats.APICalls.Load(), rc.Stats.Errors.Load())
	fmt.Printf("- Output: %s\n", cfg.Output.Dir)
	if err != nil {
		if res.Interrupted {
			fmt.Println("Interrupted; progress was saved. Run again to resume.")
			return 130
		}
		logger.Error("run failed", "error", err)
		return 1
	}
	return 0
}

func showStatus(path string) int {
	st, err := tracker.ReadStatus(path)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Tracker: %s\n", st.Path)
	if !st.Exists {
		fmt.Println("- No PDFs processed yet")
	} else {
		fmt.Printf("- Processed PDFs: %d\n", st.TotalProcessed)
		fmt.Printf("- Last updated: %s\n", st.LastUpdated)
	}
	fmt.Printf("- Locked: %t\n", st.Locked)
	return 0
}

func clearStore(path string, saveEvery int, logger *slog.Logger) int {
	tr := tracker.New(path, saveEvery, logger)
	if err := tr.Lock(); err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	defer func() { _ = tr.Unlock() }()
	n := tr.Load()
	if err := tr.Clear(); err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Cleared %d processed PDFs from %s\n", n, path)
	return 0
}

func printDistricts(cfg *common.Config, logger *slog.Logger) int {
	scanner := ingest.NewScanner(cfg.Input.Root, nil, logger)
	all, err := scanner.Districts()
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	fmt.Printf("%d districts under %s\n", len(all), cfg.Input.Root)
	for _, d := range all {
		folders, err := scanner.RoundFolders(d)
		if err != nil {
			fmt.Printf("  %s (unreadable: %v)\n", d, err)
			continue
		}
		rounds := make([]string, 0, len(folders))
		for _, f := range folders {
			rounds = append(rounds, f.Round+"="+f.Name)
		}
		fmt.Printf("  %s %v\n", d, rounds)
	}
	return 0
}
