package scanner

import (
	"context"
	"fmt"

	"SignalScanner/internal/domain"
)

// Request carries the per-run parameters handed to every fetcher.
type Request struct {
	Limit     int
	BlogFeeds []string
}

// Fetcher is a single source strategy (arxiv, hn, blog). Implementations
// never return an error: a source that fails entirely logs a warning and
// contributes an empty batch, so one broken source cannot abort a run.
type Fetcher interface {
	Name() domain.Source
	Fetch(ctx context.Context, req Request) []domain.RawSignal
}

// Registry keeps a mapping from source names to fetcher implementations.
type Registry struct {
	fetchers map[domain.Source]Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[domain.Source]Fetcher{}}
}

// Register adds or replaces a fetcher implementation.
func (r *Registry) Register(fetcher Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[domain.Source]Fetcher{}
	}
	r.fetchers[fetcher.Name()] = fetcher
}

// Resolve returns a fetcher by source name or an error if it is absent.
func (r *Registry) Resolve(name domain.Source) (Fetcher, error) {
	if fetcher, ok := r.fetchers[name]; ok {
		return fetcher, nil
	}
	return nil, fmt.Errorf("fetcher %s is not registered", name)
}
