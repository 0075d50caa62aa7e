package core

import (
	"context"
	"time"

	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
)

// Sink persists checkpoints. Each call carries the whole run so far; a sink
// tracks for itself which rows it already wrote.
type Sink interface {
	Name() string
	Checkpoint(ctx context.Context, cp entity.Checkpoint) error
}

// checkpoint hands the accumulated run to every sink and then saves the
// tracker. Failures are logged and the run goes on.
func (p *Processor) checkpoint(ctx context.Context, final bool) {
	p.seq++
	cp := entity.Checkpoint{
		RunID:     p.rc.RunID,
		Seq:       p.seq,
		Final:     final,
		At:        time.Now(),
		Records:   p.records,
		Summaries: p.summaries,
	}
	log := p.logger.With("seq", cp.Seq, "final", final)
	log.Info("checkpoint.start", "records", len(cp.Records), "districts", len(cp.Summaries))

	failed := 0
	for _, s := range p.sinks {
		if err := s.Checkpoint(ctx, cp); err != nil {
			failed++
			p.rc.Stats.Errors.Add(1)
			log.Error("checkpoint.sink_error", "sink", s.Name(), "error", err)
		}
	}
	if err := p.tracker.Save(); err != nil {
		failed++
		log.Error("checkpoint.tracker_error", "path", p.tracker.Path(), "error", err)
	}
	log.Info("checkpoint.done", "failed", failed)
}
