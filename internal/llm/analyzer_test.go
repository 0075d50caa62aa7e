package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
)

// scriptedCompleter replays responses in order; an error entry fails that call.
type scriptedCompleter struct {
	mu      sync.Mutex
	script  []any // string or error
	calls   int
	prompts []string
	onCall  func(n int)
}

func (s *scriptedCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if s.onCall != nil {
		s.onCall(s.calls)
	}
	if len(s.script) == 0 {
		return "", errors.New("script exhausted")
	}
	next := s.script[0]
	if len(s.script) > 1 {
		s.script = s.script[1:]
	}
	switch v := next.(type) {
	case error:
		return "", v
	case string:
		return v, nil
	}
	return "", errors.New("bad script entry")
}

func testRunContext() *common.RunContext {
	cfg := common.DefaultConfig()
	cfg.Retry.BaseDelay = time.Millisecond
	return common.NewRunContext(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var testPage = PageRequest{
	PNG:       []byte{0x89, 'P', 'N', 'G'},
	Text:      "Invoice for Canvas",
	District:  "Lincoln",
	Round:     "1",
	Filename:  "invoice.pdf",
	PageIndex: 0,
}

func TestAnalyze_RetriesUntilSuccess(t *testing.T) {
	rc := testRunContext()
	transportErr := common.WrapError(common.ErrTransport, "status 503")
	c := &scriptedCompleter{script: []any{
		transportErr,
		"not json at all",
		`[{"software":"Canvas","vendor":"Instructure"}]`,
	}}

	recs, err := NewAnalyzer(rc, c).Analyze(context.Background(), testPage)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Canvas", recs[0].Software)
	assert.Equal(t, "Lincoln", recs[0].District)
	assert.Equal(t, "1", recs[0].Round)
	assert.Equal(t, "invoice.pdf", recs[0].SourceFile)
	assert.Equal(t, "1", recs[0].PageNumber)

	assert.Equal(t, 3, c.calls)
	assert.EqualValues(t, 3, rc.Stats.APICalls.Load())
	assert.EqualValues(t, 0, rc.Stats.Errors.Load())
	assert.EqualValues(t, 1, rc.Stats.CleanParses.Load())
	assert.EqualValues(t, 1, rc.Stats.RecordsExtracted.Load())
}

func TestAnalyze_ExhaustionYieldsEmpty(t *testing.T) {
	rc := testRunContext()
	c := &scriptedCompleter{script: []any{errors.New("connection reset")}}

	recs, err := NewAnalyzer(rc, c).Analyze(context.Background(), testPage)

	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 3, c.calls)
	assert.EqualValues(t, 3, rc.Stats.APICalls.Load())
	assert.EqualValues(t, 1, rc.Stats.Errors.Load())
}

func TestAnalyze_MaxAttemptsConfigurable(t *testing.T) {
	rc := testRunContext()
	rc.Config.Retry.MaxAttempts = 5
	c := &scriptedCompleter{script: []any{"garbage"}}

	recs, err := NewAnalyzer(rc, c).Analyze(context.Background(), testPage)

	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 5, c.calls)
	assert.EqualValues(t, 1, rc.Stats.Errors.Load())
}

func TestAnalyze_EmptyImageSkipsCall(t *testing.T) {
	rc := testRunContext()
	c := &scriptedCompleter{script: []any{`[{"software":"X"}]`}}

	page := testPage
	page.PNG = nil
	recs, err := NewAnalyzer(rc, c).Analyze(context.Background(), page)

	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 0, c.calls)
	assert.EqualValues(t, 0, rc.Stats.APICalls.Load())
	assert.EqualValues(t, 0, rc.Stats.Errors.Load())
}

func TestAnalyze_SalvagedParseCounted(t *testing.T) {
	rc := testRunContext()
	c := &scriptedCompleter{script: []any{"Found:\n[{\"software\":\"Zoom\"}]\nDone."}}

	recs, err := NewAnalyzer(rc, c).Analyze(context.Background(), testPage)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.EqualValues(t, 0, rc.Stats.CleanParses.Load())
	assert.EqualValues(t, 1, rc.Stats.SalvagedParses.Load())
}

func TestAnalyze_SchemaViolationIsSoft(t *testing.T) {
	rc := testRunContext()
	c := &scriptedCompleter{script: []any{`[{"software":"Canvas","cost_total":"$1,500"}]`}}

	recs, err := NewAnalyzer(rc, c).Analyze(context.Background(), testPage)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "$1,500", recs[0].CostTotal)
	assert.EqualValues(t, 1, rc.Stats.SchemaViolations.Load())
}

func TestAnalyze_ContextCancelStopsRetries(t *testing.T) {
	rc := testRunContext()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &scriptedCompleter{
		script: []any{errors.New("aborted")},
		onCall: func(int) { cancel() },
	}

	recs, err := NewAnalyzer(rc, c).Analyze(ctx, testPage)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recs)
	assert.Equal(t, 1, c.calls)
	assert.EqualValues(t, 0, rc.Stats.Errors.Load())
}

func TestAnalyze_PromptCarriesPageContext(t *testing.T) {
	rc := testRunContext()
	c := &scriptedCompleter{script: []any{"[]"}}

	_, err := NewAnalyzer(rc, c).Analyze(context.Background(), testPage)

	require.NoError(t, err)
	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "Lincoln school district (Round 1, Page 1)")
	assert.Contains(t, c.prompts[0], "Invoice for Canvas")
}
