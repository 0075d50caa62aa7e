package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
	"github.com/joseph-ayodele/procurement-extractor/internal/export"
	"github.com/joseph-ayodele/procurement-extractor/internal/extract"
	"github.com/joseph-ayodele/procurement-extractor/internal/ingest"
	"github.com/joseph-ayodele/procurement-extractor/internal/llm"
	"github.com/joseph-ayodele/procurement-extractor/internal/tracker"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeSource serves pages keyed by file basename; the PNG bytes name the page.
type fakeSource struct {
	pages  map[string]int
	broken map[string]bool // "<file>#<page>" renders empty
}

func (f fakeSource) PageCount(path string) (int, error) {
	n, ok := f.pages[filepath.Base(path)]
	if !ok {
		return 0, errors.New("not a pdf")
	}
	return n, nil
}

func (f fakeSource) Extract(_ context.Context, path string, page int) extract.PageContent {
	key := fmt.Sprintf("%s#%d", filepath.Base(path), page)
	if f.broken[key] {
		return extract.PageContent{}
	}
	return extract.PageContent{PNG: []byte(key), Text: "text of " + key}
}

// routedCompleter answers by page key; unknown pages get an empty list.
type routedCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	seen      []string
	before    func(page string)
}

func (c *routedCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	page := string(req.PNG)
	c.mu.Lock()
	c.seen = append(c.seen, page)
	c.mu.Unlock()
	if c.before != nil {
		c.before(page)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if out, ok := c.responses[page]; ok {
		return out, nil
	}
	return "[]", nil
}

type fixture struct {
	root    string
	out     string
	source  fakeSource
	cfg     *common.Config
	tracker *tracker.Tracker
}

func newFixture(t *testing.T, root string, source fakeSource) *fixture {
	t.Helper()
	cfg := common.DefaultConfig()
	cfg.Input.Root = root
	cfg.Batch.PageDelay = 0
	cfg.Batch.CheckpointEvery = 1
	cfg.Retry.BaseDelay = time.Millisecond
	out := t.TempDir()
	cfg.Output.Dir = out
	return &fixture{
		root:    root,
		out:     out,
		source:  source,
		cfg:     cfg,
		tracker: tracker.New(filepath.Join(out, "processed_pdfs.json"), 5, quiet),
	}
}

func (f *fixture) recordsPath() string { return filepath.Join(f.out, "extracted_software_data.csv") }

// run builds a fresh processor over the fixture's output dir, as a new process would.
func (f *fixture) run(t *testing.T, ctx context.Context, completer llm.Completer) (*common.RunContext, RunResult, error) {
	t.Helper()
	rc := common.NewRunContext(f.cfg, quiet)
	f.tracker = tracker.New(f.tracker.Path(), 5, quiet)
	f.tracker.Load()
	sink := export.NewCSVSink(f.out, f.recordsPath(), filepath.Join(f.out, "district_summary.csv"), quiet)
	p, err := NewProcessor(rc,
		ingest.NewScanner(f.root, f.source, quiet),
		f.source,
		llm.NewAnalyzer(rc, completer),
		f.tracker,
		sink,
	)
	require.NoError(t, err)
	res, err := p.Run(ctx)
	return rc, res, err
}

func touchPDF(t *testing.T, parts ...string) {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4"), 0o644))
}

func TestProcessor_LincolnRoundOne(t *testing.T) {
	root := t.TempDir()
	touchPDF(t, root, "Lincoln", "R1", "purchase.pdf")
	f := newFixture(t, root, fakeSource{pages: map[string]int{"purchase.pdf": 2}})

	completer := &routedCompleter{responses: map[string]string{
		"purchase.pdf#0": `[{"software": "Reading Plus", "vendor": "Reading Plus Inc", "cost_total": "1200.00"}]`,
	}}
	rc, res, err := f.run(t, context.Background(), completer)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "Lincoln", rec.District)
	assert.Equal(t, "1", rec.Round)
	assert.Equal(t, "purchase.pdf", rec.SourceFile)
	assert.Equal(t, "1", rec.PageNumber)
	assert.Equal(t, "Reading Plus", rec.Software)
	assert.Equal(t, "Reading Plus Inc", rec.Vendor)
	assert.Equal(t, "1200.00", rec.CostTotal)

	assert.Equal(t, []string{"Lincoln/1/purchase.pdf"}, f.tracker.IDs())
	assert.Equal(t, []string{"purchase.pdf#0", "purchase.pdf#1"}, completer.seen)

	require.Len(t, res.Summaries, 1)
	sum := res.Summaries[0]
	assert.Equal(t, 2, sum.RoundPages[0])
	assert.Equal(t, 1, sum.TotalPDFs)
	assert.Equal(t, 1, sum.SoftwareRecords)

	assert.Equal(t, int64(1), rc.Stats.DistrictsProcessed.Load())
	assert.Equal(t, int64(1), rc.Stats.PDFsProcessed.Load())
	assert.Equal(t, int64(2), rc.Stats.PagesAnalyzed.Load())
	assert.Equal(t, int64(2), rc.Stats.APICalls.Load())

	onDisk, err := export.ReadRecords(f.recordsPath())
	require.NoError(t, err)
	assert.Equal(t, res.Records, onDisk)

	// a tracker reloaded from disk sees the PDF
	reloaded := tracker.New(f.tracker.Path(), 5, quiet)
	reloaded.Load()
	assert.True(t, reloaded.IsProcessed("Lincoln/1/purchase.pdf"))
}

func TestProcessor_SkipsProcessedPDFs(t *testing.T) {
	root := t.TempDir()
	touchPDF(t, root, "Lincoln", "Round 2", "a.pdf")
	touchPDF(t, root, "Lincoln", "Round 2", "b.pdf")
	f := newFixture(t, root, fakeSource{pages: map[string]int{"a.pdf": 1, "b.pdf": 1}})

	_, _, err := f.run(t, context.Background(), &routedCompleter{})
	require.NoError(t, err)

	again := &routedCompleter{}
	rc, res, err := f.run(t, context.Background(), again)
	require.NoError(t, err)
	assert.Empty(t, again.seen)
	assert.Empty(t, res.Records)
	assert.Equal(t, int64(2), rc.Stats.PDFsSkipped.Load())
	assert.Equal(t, int64(0), rc.Stats.PDFsProcessed.Load())
}

func TestProcessor_RenderFailureSkipsPage(t *testing.T) {
	root := t.TempDir()
	touchPDF(t, root, "Adams", "R3", "scan.pdf")
	f := newFixture(t, root, fakeSource{
		pages:  map[string]int{"scan.pdf": 2},
		broken: map[string]bool{"scan.pdf#0": true},
	})

	completer := &routedCompleter{responses: map[string]string{
		"scan.pdf#1": `[{"software": "Zoom"}]`,
	}}
	rc, res, err := f.run(t, context.Background(), completer)
	require.NoError(t, err)

	assert.Equal(t, []string{"scan.pdf#1"}, completer.seen)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2", res.Records[0].PageNumber)
	assert.Equal(t, "3", res.Records[0].Round)
	assert.Equal(t, int64(1), rc.Stats.PagesSkipped.Load())
	assert.True(t, f.tracker.IsProcessed("Adams/3/scan.pdf"))
}

func TestProcessor_UnreadablePDFIsNotMarked(t *testing.T) {
	root := t.TempDir()
	touchPDF(t, root, "Adams", "R1", "corrupt.pdf")
	f := newFixture(t, root, fakeSource{pages: map[string]int{}})

	_, res, err := f.run(t, context.Background(), &routedCompleter{})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Zero(t, f.tracker.Len())
	require.Len(t, res.Summaries, 1)
	assert.Equal(t, 1, res.Summaries[0].TotalPDFs)
	assert.Equal(t, 0, res.Summaries[0].TotalPages)
}

func TestProcessor_SummaryCountsCappedPDFs(t *testing.T) {
	root := t.TempDir()
	touchPDF(t, root, "Adams", "R1", "short.pdf")
	touchPDF(t, root, "Adams", "R1", "long.pdf")
	touchPDF(t, root, "Adams", "R1", "longest.pdf")
	f := newFixture(t, root, fakeSource{pages: map[string]int{"short.pdf": 1, "long.pdf": 4, "longest.pdf": 9}})
	f.cfg.Input.LimitPDFsPerRound = 1

	completer := &routedCompleter{}
	_, res, err := f.run(t, context.Background(), completer)
	require.NoError(t, err)

	assert.Equal(t, []string{"short.pdf#0"}, completer.seen)
	require.Len(t, res.Summaries, 1)
	sum := res.Summaries[0]
	assert.Equal(t, 1, sum.RoundPDFs[0])
	assert.Equal(t, 1, sum.TotalPDFs)
	assert.Equal(t, 14, sum.RoundPages[0])
	assert.Equal(t, 14, sum.TotalPages)
}

func TestProcessor_DistrictFilterAndLimit(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"Adams", "Baker", "Carter", "Lincoln", "Lincoln Park"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	f := newFixture(t, root, fakeSource{})
	rc := common.NewRunContext(f.cfg, quiet)
	newProc := func() *Processor {
		p, err := NewProcessor(rc, ingest.NewScanner(root, f.source, quiet), f.source, llm.NewAnalyzer(rc, &routedCompleter{}), f.tracker)
		require.NoError(t, err)
		return p
	}

	f.cfg.Input.LimitDistricts = 2
	got, err := newProc().SelectDistricts()
	require.NoError(t, err)
	assert.Equal(t, []string{"Adams", "Baker"}, got)

	f.cfg.Input.LimitDistricts = 0
	f.cfg.Input.Districts = []string{"lincoln"}
	got, err = newProc().SelectDistricts()
	require.NoError(t, err)
	assert.Equal(t, []string{"Lincoln"}, got)
}

func TestProcessor_InvalidKeyStrategy(t *testing.T) {
	f := newFixture(t, t.TempDir(), fakeSource{})
	f.cfg.Tracker.KeyStrategy = "hash"
	rc := common.NewRunContext(f.cfg, quiet)
	_, err := NewProcessor(rc, ingest.NewScanner(f.root, f.source, quiet), f.source, llm.NewAnalyzer(rc, &routedCompleter{}), f.tracker)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func resumeTree(t *testing.T) (string, fakeSource, map[string]string) {
	t.Helper()
	root := t.TempDir()
	pages := map[string]int{}
	responses := map[string]string{}
	for _, d := range []string{"Adams", "Baker", "Carter"} {
		name := d + ".pdf"
		touchPDF(t, root, d, "R1", name)
		pages[name] = 2
		responses[name+"#0"] = fmt.Sprintf(`[{"software": "%s Reader"}]`, d)
		responses[name+"#1"] = fmt.Sprintf(`[{"software": "%s Math"}]`, d)
	}
	return root, fakeSource{pages: pages}, responses
}

func TestProcessor_ResumesAfterInterrupt(t *testing.T) {
	root, source, responses := resumeTree(t)

	baseline := newFixture(t, root, source)
	_, full, err := baseline.run(t, context.Background(), &routedCompleter{responses: responses})
	require.NoError(t, err)
	require.Len(t, full.Records, 6)

	f := newFixture(t, root, source)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupting := &routedCompleter{responses: responses, before: func(page string) {
		if page == "Baker.pdf#1" {
			cancel()
		}
	}}
	_, partial, err := f.run(t, ctx, interrupting)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, partial.Interrupted)
	assert.Len(t, partial.Records, 2, "Baker's first page is discarded with the unfinished PDF")
	assert.Equal(t, 2, partial.Checkpoints, "one periodic checkpoint plus the final one")
	assert.Equal(t, []string{"Adams/1/Adams.pdf"}, f.tracker.IDs())

	resumed := &routedCompleter{responses: responses}
	rc, _, err := f.run(t, context.Background(), resumed)
	require.NoError(t, err)
	assert.NotContains(t, resumed.seen, "Adams.pdf#0")
	assert.NotContains(t, resumed.seen, "Adams.pdf#1")
	assert.Equal(t, int64(1), rc.Stats.PDFsSkipped.Load())

	got, err := export.ReadRecords(f.recordsPath())
	require.NoError(t, err)
	want, err := export.ReadRecords(baseline.recordsPath())
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)
}

type failingSink struct{ calls int }

func (s *failingSink) Name() string { return "failing" }
func (s *failingSink) Checkpoint(context.Context, entity.Checkpoint) error {
	s.calls++
	return errors.New("disk full")
}

func TestProcessor_SinkFailureDoesNotStopRun(t *testing.T) {
	root := t.TempDir()
	touchPDF(t, root, "Adams", "R1", "a.pdf")
	touchPDF(t, root, "Baker", "R1", "b.pdf")
	f := newFixture(t, root, fakeSource{pages: map[string]int{"a.pdf": 1, "b.pdf": 1}})
	rc := common.NewRunContext(f.cfg, quiet)
	sink := &failingSink{}

	p, err := NewProcessor(rc, ingest.NewScanner(root, f.source, quiet), f.source, llm.NewAnalyzer(rc, &routedCompleter{}), f.tracker, sink)
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Summaries, 2)
	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, int64(3), rc.Stats.Errors.Load())
	assert.Equal(t, 2, f.tracker.Len())
}
