package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/procurement-extractor/constants"
	"github.com/joseph-ayodele/procurement-extractor/internal/common"
	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
	"github.com/joseph-ayodele/procurement-extractor/internal/extract"
	"github.com/joseph-ayodele/procurement-extractor/internal/ingest"
	"github.com/joseph-ayodele/procurement-extractor/internal/llm"
	"github.com/joseph-ayodele/procurement-extractor/internal/tracker"
)

// PageAnalyzer turns one rendered page into records. Only context errors
// are returned.
type PageAnalyzer interface {
	Analyze(ctx context.Context, req llm.PageRequest) ([]entity.SoftwareRecord, error)
}

// RunResult is what a run accumulated, interrupted or not.
type RunResult struct {
	RunID       string
	Districts   []string // districts selected for the run
	Records     []entity.SoftwareRecord
	Summaries   []entity.DistrictSummary
	Checkpoints int
	Interrupted bool
	Elapsed     time.Duration
}

// Processor walks district → round → PDF → page, sequentially.
type Processor struct {
	rc       *common.RunContext
	scanner  *ingest.Scanner
	source   extract.PageSource
	analyzer PageAnalyzer
	tracker  *tracker.Tracker
	sinks    []Sink
	limiter  *rate.Limiter
	keys     entity.KeyStrategy
	logger   *slog.Logger

	records   []entity.SoftwareRecord
	summaries []entity.DistrictSummary
	seq       int
}

func NewProcessor(
	rc *common.RunContext,
	scanner *ingest.Scanner,
	source extract.PageSource,
	analyzer PageAnalyzer,
	tr *tracker.Tracker,
	sinks ...Sink,
) (*Processor, error) {
	keys, err := entity.ParseKeyStrategy(rc.Config.Tracker.KeyStrategy)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "tracker.key_strategy", err)
	}
	return &Processor{
		rc:       rc,
		scanner:  scanner,
		source:   source,
		analyzer: analyzer,
		tracker:  tr,
		sinks:    sinks,
		limiter:  rate.NewLimiter(rate.Every(rc.Config.Batch.PageDelay), 1),
		keys:     keys,
		logger:   rc.Logger,
	}, nil
}

// SelectDistricts applies the name filter and the district limit.
func (p *Processor) SelectDistricts() ([]string, error) {
	all, err := p.scanner.Districts()
	if err != nil {
		return nil, err
	}
	selected := p.scanner.FilterDistricts(all, p.rc.Config.Input.Districts)
	if limit := p.rc.Config.Input.LimitDistricts; limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	return selected, nil
}

// Run processes the selected districts. A final checkpoint is always
// attempted, also after an interrupt; in that case the context error is
// returned alongside the partial result.
func (p *Processor) Run(ctx context.Context) (RunResult, error) {
	start := time.Now()
	ctx = common.WithRunID(ctx, p.rc.RunID)
	res := RunResult{RunID: p.rc.RunID}

	districts, err := p.SelectDistricts()
	if err != nil {
		return res, fmt.Errorf("select districts: %w", err)
	}
	res.Districts = districts
	p.logger.Info("processor.run.start",
		"root", p.scanner.Root(),
		"districts", len(districts),
		"tracked", p.tracker.Len(),
	)

	every := max(p.rc.Config.Batch.CheckpointEvery, 1)
	completed := 0
	var runErr error
	for _, d := range districts {
		summary, err := p.processDistrict(ctx, d)
		if err != nil {
			runErr = err
			break
		}
		p.summaries = append(p.summaries, summary)
		p.rc.Stats.DistrictsProcessed.Add(1)
		completed++
		p.logger.Info("processor.district.done", "district", d, "summary", summary.String())

		if completed%every == 0 {
			p.checkpoint(ctx, false)
		}
	}

	// the final checkpoint must land even when ctx is already cancelled
	p.checkpoint(context.WithoutCancel(ctx), true)

	res.Records = p.records
	res.Summaries = p.summaries
	res.Checkpoints = p.seq
	res.Elapsed = time.Since(start)
	if runErr != nil {
		res.Interrupted = errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)
		p.logger.Warn("processor.run.interrupted", append([]any{"error", runErr}, p.rc.Stats.LogAttrs()...)...)
		return res, runErr
	}
	p.logger.Info("processor.run.done", append([]any{"elapsed", res.Elapsed.String()}, p.rc.Stats.LogAttrs()...)...)
	return res, nil
}

// processDistrict returns an error only when the run must stop.
func (p *Processor) processDistrict(ctx context.Context, district string) (entity.DistrictSummary, error) {
	summary := entity.DistrictSummary{District: district}
	log := p.logger.With("district", district)

	folders, err := p.scanner.RoundFolders(district)
	if err != nil {
		log.Warn("processor.district.rounds_error", "error", err)
		return summary, nil
	}
	byRound := make(map[string]ingest.RoundFolder, len(folders))
	for _, f := range folders {
		byRound[f.Round] = f
	}

	for _, round := range constants.Rounds {
		folder, ok := byRound[round]
		if !ok {
			continue
		}
		inv, err := p.scanner.Inventory(folder.Dir, p.rc.Config.Input.LimitPDFsPerRound)
		if err != nil {
			log.Warn("processor.round.inventory_error", "round", round, "dir", folder.Dir, "error", err)
			continue
		}
		// pages cover the whole folder; PDFs count what this run will attempt
		summary.AddRound(round, inv.TotalPages, len(inv.PDFs))
		log.Info("processor.round.start", "round", round, "folder", folder.Name, "pdfs", len(inv.PDFs), "pages", inv.TotalPages)

		for _, pdf := range inv.PDFs {
			status, n, err := p.processPDF(ctx, district, folder, pdf)
			summary.SoftwareRecords += n
			if err != nil {
				log.Warn("processor.pdf.stopped", "file", pdf.Path, "status", status, "error", err)
				return summary, err
			}
		}
	}
	return summary, nil
}

// processPDF attempts every page of one PDF. Its records join the run only
// when all pages were attempted; then the PDF is marked processed.
func (p *Processor) processPDF(ctx context.Context, district string, folder ingest.RoundFolder, pdf ingest.PDF) (constants.PDFStatus, int, error) {
	stats := p.rc.Stats
	id := entity.ProcessedPDFID(p.keys, district, folder.Round, folder.Dir, pdf.Path)
	if p.tracker.IsProcessed(id) {
		stats.PDFsSkipped.Add(1)
		p.logger.Debug("processor.pdf.skip", "id", id)
		return constants.PDFStatusSkipped, 0, nil
	}

	pages := pdf.Pages
	if pages == 0 {
		n, err := p.source.PageCount(pdf.Path)
		if err != nil {
			p.logger.Warn("processor.pdf.unreadable", "id", id, "error", err)
			return constants.PDFStatusUnreadable, 0, nil
		}
		pages = n
	}

	filename := filepath.Base(pdf.Path)
	log := p.logger.With("id", id, "pages", pages)
	log.Info("processor.pdf.start")

	var recs []entity.SoftwareRecord
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return constants.PDFStatusInterrupted, 0, err
		}
		content := p.source.Extract(ctx, pdf.Path, i)
		if content.Empty() {
			stats.PagesSkipped.Add(1)
			log.Warn("processor.page.render_skipped", "page", i+1)
			continue
		}
		if err := p.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return constants.PDFStatusInterrupted, 0, ctxErr
			}
			return constants.PDFStatusInterrupted, 0, err
		}
		out, err := p.analyzer.Analyze(ctx, llm.PageRequest{
			PNG:       content.PNG,
			Text:      content.Text,
			District:  district,
			Round:     folder.Round,
			Filename:  filename,
			PageIndex: i,
		})
		if err != nil {
			return constants.PDFStatusInterrupted, 0, err
		}
		stats.PagesAnalyzed.Add(1)
		recs = append(recs, out...)
	}

	p.records = append(p.records, recs...)
	if err := p.tracker.MarkProcessed(id); err != nil {
		log.Error("processor.pdf.mark_error", "error", err)
	}
	done := stats.PDFsProcessed.Add(1)
	log.Info("processor.pdf.done", "records", len(recs))

	if every := int64(p.rc.Config.Batch.ProgressEvery); every > 0 && done%every == 0 {
		p.logger.Info("processor.progress", p.rc.Stats.LogAttrs()...)
	}
	return constants.PDFStatusDone, len(recs), nil
}
