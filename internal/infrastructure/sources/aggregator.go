package sources

import (
	"context"
	"log/slog"
	"sync"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/ports"
	"SignalScanner/internal/scanner"
)

// Aggregator implements ports.SignalSource over the fetcher registry.
// It starts one concurrent fetch per enabled source, waits for all of
// them to settle and concatenates the results. Fetchers never raise, so
// there is no partial-result contract to carry.
type Aggregator struct {
	registry *scanner.Registry
	logger   *slog.Logger
}

var _ ports.SignalSource = (*Aggregator)(nil)

func NewAggregator(registry *scanner.Registry, logger *slog.Logger) *Aggregator {
	return &Aggregator{registry: registry, logger: logger}
}

func (a *Aggregator) Aggregate(ctx context.Context, cfg domain.SourceConfig) []domain.RawSignal {
	fetchers := a.enabled(cfg)
	req := scanner.Request{Limit: cfg.LimitPerSource, BlogFeeds: cfg.BlogFeeds}

	batches := make([][]domain.RawSignal, len(fetchers))
	var wg sync.WaitGroup
	for i, fetcher := range fetchers {
		wg.Add(1)
		go func(i int, fetcher scanner.Fetcher) {
			defer wg.Done()
			batches[i] = fetcher.Fetch(ctx, req)
		}(i, fetcher)
	}
	wg.Wait()

	var flat []domain.RawSignal
	for i, batch := range batches {
		a.debug("source settled", "source", fetchers[i].Name(), "count", len(batch))
		flat = append(flat, batch...)
	}
	return flat
}

func (a *Aggregator) enabled(cfg domain.SourceConfig) []scanner.Fetcher {
	var names []domain.Source
	if cfg.Arxiv {
		names = append(names, domain.SourceArxiv)
	}
	if cfg.HackerNews {
		names = append(names, domain.SourceHackerNews)
	}
	if cfg.Blogs && len(cfg.BlogFeeds) > 0 {
		names = append(names, domain.SourceBlog)
	}

	fetchers := make([]scanner.Fetcher, 0, len(names))
	for _, name := range names {
		fetcher, err := a.registry.Resolve(name)
		if err != nil {
			a.debug("source not registered", "source", name)
			continue
		}
		fetchers = append(fetchers, fetcher)
	}
	return fetchers
}

func (a *Aggregator) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
