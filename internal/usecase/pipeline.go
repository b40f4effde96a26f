package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/ports"
	"SignalScanner/internal/signal"
)

// ErrRunInProgress is returned when a trigger arrives while a publish
// run is already in flight. Overlapping runs are rejected, not queued.
var ErrRunInProgress = errors.New("a publish run is already in progress")

// PipelineDeps wires all driven adapters into the ingestion workflow.
type PipelineDeps struct {
	Source         ports.SignalSource
	Repository     ports.SignalRepository
	Publisher      *Publisher
	Logger         *slog.Logger
	MaxItemsPerRun int
}

// Pipeline orchestrates aggregate, normalize, filter-seen, score,
// snapshot and publish. It owns the busy flag that keeps at most one
// publish run in flight process-wide.
type Pipeline struct {
	source     ports.SignalSource
	repository ports.SignalRepository
	publisher  *Publisher
	logger     *slog.Logger
	maxItems   int
	busy       atomic.Bool
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		maxItems:   deps.MaxItemsPerRun,
		now:        time.Now,
	}
}

// Prepare runs aggregate, normalize, filter-seen, score and top-N
// selection, then snapshots the survivors into the ledger as status=new
// so a human can publish a subset later. The returned strings are
// non-fatal per-item save errors.
func (p *Pipeline) Prepare(ctx context.Context, cfg domain.SourceConfig) ([]domain.ScoredSignal, []string) {
	raw := p.source.Aggregate(ctx, cfg)
	deduped := signal.Normalize(raw)
	unseen := p.filterUnseen(ctx, deduped)
	scored := signal.ScoreAll(unseen, p.now())
	top := signal.SelectTop(scored, p.maxItems)

	p.debug("prepared candidates",
		"fetched", len(raw), "deduped", len(deduped), "unseen", len(unseen), "selected", len(top))

	var saveErrs []string
	if p.repository != nil && len(top) > 0 {
		var saved int
		saved, saveErrs = p.repository.SaveBatch(ctx, top, domain.StatusNew)
		p.debug("snapshot saved", "saved", saved, "errors", len(saveErrs))
	}
	return top, saveErrs
}

// Run executes the full pipeline and publishes the selected batch. Only
// ErrRunInProgress is ever returned; every other failure is recorded
// inside the result so callers like the scheduler can keep ticking.
func (p *Pipeline) Run(ctx context.Context, cfg domain.SourceConfig, mode domain.PublishMode) (domain.RunResult, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return domain.RunResult{}, ErrRunInProgress
	}
	defer p.busy.Store(false)

	candidates, saveErrs := p.Prepare(ctx, cfg)
	result := p.publishAndMark(ctx, candidates, mode)
	result.Errors = append(result.Errors, saveErrs...)
	return result, nil
}

// PublishPending publishes up to limit snapshotted status=new records,
// the commit half of the prepare/commit split.
func (p *Pipeline) PublishPending(ctx context.Context, limit int, mode domain.PublishMode) (domain.RunResult, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return domain.RunResult{}, ErrRunInProgress
	}
	defer p.busy.Store(false)

	if p.repository == nil {
		result := domain.RunResult{FinishedAt: p.now()}
		result.Errors = append(result.Errors, "signal repository is not configured")
		return result, nil
	}

	pending, err := p.repository.ListPending(ctx, limit)
	if err != nil {
		result := domain.RunResult{FinishedAt: p.now()}
		result.Errors = append(result.Errors, "list pending: "+err.Error())
		return result, nil
	}
	return p.publishAndMark(ctx, pending, mode), nil
}

// Generate runs the synthetic-topic path under the same busy flag.
func (p *Pipeline) Generate(ctx context.Context, topics int) (domain.RunResult, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return domain.RunResult{}, ErrRunInProgress
	}
	defer p.busy.Store(false)

	return p.publisher.GenerateAndPublish(ctx, topics), nil
}

func (p *Pipeline) publishAndMark(ctx context.Context, candidates []domain.ScoredSignal, mode domain.PublishMode) domain.RunResult {
	result, refs := p.publisher.PublishSignals(ctx, candidates, mode)

	if p.repository != nil && len(refs) > 0 {
		if err := p.repository.MarkPublished(ctx, refs); err != nil {
			result.Errors = append(result.Errors, "mark published: "+err.Error())
		}
	}
	return result
}

// filterUnseen consults the ledger by canonical URL and drops signals
// ingested in a prior run. A query error fails open: over-publishing a
// duplicate is preferred to silently losing content.
func (p *Pipeline) filterUnseen(ctx context.Context, in []domain.RawSignal) []domain.RawSignal {
	if p.repository == nil {
		return in
	}

	out := make([]domain.RawSignal, 0, len(in))
	for _, sig := range in {
		exists, err := p.repository.ExistsByURL(ctx, domain.CanonicalURL(sig.URL))
		if err != nil {
			p.warn("seen-filter query failed, treating as unseen", "url", sig.URL, "error", err)
			out = append(out, sig)
			continue
		}
		if exists {
			continue
		}
		out = append(out, sig)
	}
	return out
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
