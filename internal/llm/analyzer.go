package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
)

// Analyzer turns one rendered page into software records. It owns the
// prompt, the retry policy, response recovery and record building; the
// Completer only moves bytes.
type Analyzer struct {
	rc        *common.RunContext
	completer Completer
	log       *slog.Logger
}

func NewAnalyzer(rc *common.RunContext, completer Completer) *Analyzer {
	return &Analyzer{
		rc:        rc,
		completer: completer,
		log:       rc.Logger,
	}
}

// Analyze sends the page to the model with retries. Every failure mode
// (transport, malformed output, anything else) is retried the same way; after
// the last attempt the page yields no records and one error is counted.
// The only returned error is the context's, so callers can stop on interrupt.
func (a *Analyzer) Analyze(ctx context.Context, req PageRequest) ([]entity.SoftwareRecord, error) {
	if len(req.PNG) == 0 {
		return nil, nil
	}

	cfg := a.rc.Config
	stats := a.rc.Stats
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()
	log := a.log.With(
		"req_id", rid,
		"district", req.District,
		"round", req.Round,
		"file", req.Filename,
		"page", req.PageNumber(),
	)

	prompt := BuildPagePrompt(req, cfg.LLM.TextLimit)
	log.Debug("llm.analyze.start", "prompt_len", len(prompt), "png_bytes", len(req.PNG), "text_len", len(req.Text))

	var (
		attempt int
		out     []entity.SoftwareRecord
	)
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		stats.APICalls.Add(1)

		raw, err := a.completer.Complete(ctx, CompletionRequest{RequestID: rid, Prompt: prompt, PNG: req.PNG})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			log.Warn("llm.analyze.call_error", "attempt", attempt, "error", err)
			return err
		}

		objs, strategy, err := Recover(raw)
		if err != nil {
			log.Warn("llm.analyze.malformed", "attempt", attempt, "error", err, "raw_head", truncateRunes(raw, 500))
			return err
		}
		if strategy.Clean() {
			stats.CleanParses.Add(1)
		} else {
			stats.SalvagedParses.Add(1)
			log.Info("llm.recover.salvaged", "attempt", attempt, "strategy", strategy.String(), "objects", len(objs))
		}

		out = a.buildRecords(log, objs, req)
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Info("llm.analyze.retry", "attempt", attempt, "wait_ms", wait.Milliseconds(), "error", err)
	}

	if err := backoff.RetryNotify(op, a.newBackOff(ctx), notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("llm.analyze.cancelled", "attempt", attempt)
			return nil, ctxErr
		}
		stats.Errors.Add(1)
		log.Error("llm.analyze.exhausted",
			"attempts", attempt,
			"error", err,
			"transport", errors.Is(err, common.ErrTransport),
			"malformed", errors.Is(err, common.ErrMalformedResponse),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil
	}

	stats.RecordsExtracted.Add(int64(len(out)))
	log.Info("llm.analyze.ok",
		"attempts", attempt,
		"records", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// newBackOff builds the retry schedule: BaseDelay, BaseDelay*Multiplier, ...
// with no jitter, capped at MaxAttempts total calls.
func (a *Analyzer) newBackOff(ctx context.Context) backoff.BackOff {
	rc := a.rc.Config.Retry
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = rc.BaseDelay
	eb.Multiplier = rc.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	if eb.Multiplier < 1 {
		eb.Multiplier = 1
	}
	eb.Reset()

	attempts := rc.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

func (a *Analyzer) buildRecords(log *slog.Logger, objs []map[string]any, req PageRequest) []entity.SoftwareRecord {
	out := make([]entity.SoftwareRecord, 0, len(objs))
	for i, obj := range objs {
		if err := ValidateRecordObject(obj); err != nil {
			a.rc.Stats.SchemaViolations.Add(1)
			log.Warn("llm.analyze.schema_violation", "index", i, "error", err)
		}
		rec, dropped := ToRecord(obj, req)
		if len(dropped) > 0 {
			log.Debug("llm.analyze.unknown_keys", "index", i, "dropped", dropped)
		}
		if YearRoundMismatch(req.Round, rec.ContractStartYear) {
			log.Warn("llm.analyze.year_round_mismatch", "software", rec.Software, "year", rec.ContractStartYear)
		}
		out = append(out, rec)
	}
	return out
}
