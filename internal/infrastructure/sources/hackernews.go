package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/scanner"
	"SignalScanner/internal/signal"
)

const (
	algoliaBase  = "https://hn.algolia.com/api/v1/search_by_date"
	hnItemBase   = "https://news.ycombinator.com/item?id="
	hnQuery      = `"machine learning" OR "language model" OR AI`
	acceptJSON   = "application/json"
	hnCreatedFmt = time.RFC3339
)

type algoliaResponse struct {
	Hits []algoliaHit `json:"hits"`
}

type algoliaHit struct {
	ObjectID  string `json:"objectID"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Author    string `json:"author"`
	Points    int    `json:"points"`
	CreatedAt string `json:"created_at"`
}

// HackerNewsFetcher queries the Algolia search index for recent stories
// matching the keyword query, newest first. The proxy relay is the only
// fallback tier: Algolia is itself the read-only mirror of HN.
type HackerNewsFetcher struct {
	client    *http.Client
	logger    *slog.Logger
	apiBase   string
	proxyBase string
	query     string
}

var _ scanner.Fetcher = (*HackerNewsFetcher)(nil)

func NewHackerNewsFetcher(client *http.Client, logger *slog.Logger) *HackerNewsFetcher {
	if client == nil {
		client = defaultClient()
	}
	return &HackerNewsFetcher{
		client:    client,
		logger:    logger,
		apiBase:   algoliaBase,
		proxyBase: proxyBase,
		query:     hnQuery,
	}
}

func (f *HackerNewsFetcher) Name() domain.Source {
	return domain.SourceHackerNews
}

func (f *HackerNewsFetcher) Fetch(ctx context.Context, req scanner.Request) []domain.RawSignal {
	searchURL := f.searchURL(req.Limit)

	if body, err := fetchBody(ctx, f.client, searchURL, acceptJSON); err == nil {
		if signals, perr := f.parseHits(body, req.Limit); perr == nil {
			return signals
		} else {
			f.debug("hn parse failed", "error", perr)
		}
	} else {
		f.debug("hn fetch failed", "error", err)
	}

	if body, err := fetchBody(ctx, f.client, proxied(f.proxyBase, searchURL), acceptJSON); err == nil {
		if signals, perr := f.parseHits(body, req.Limit); perr == nil {
			return signals
		} else {
			f.debug("hn proxy parse failed", "error", perr)
		}
	} else {
		f.debug("hn proxy fetch failed", "error", err)
	}

	f.warn("hn fetch failed on all tiers")
	return nil
}

func (f *HackerNewsFetcher) searchURL(limit int) string {
	values := url.Values{}
	values.Set("tags", "story")
	values.Set("query", f.query)
	values.Set("hitsPerPage", strconv.Itoa(limit))
	return f.apiBase + "?" + values.Encode()
}

func (f *HackerNewsFetcher) parseHits(body []byte, limit int) ([]domain.RawSignal, error) {
	var resp algoliaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode algolia response: %w", err)
	}

	signals := make([]domain.RawSignal, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if hit.Title == "" {
			continue
		}

		link := hit.URL
		if link == "" {
			// Ask HN style posts have no outbound URL.
			link = hnItemBase + hit.ObjectID
		}

		sig := domain.NewRawSignal(domain.SourceHackerNews, hit.Title, link)
		sig.Author = hit.Author
		sig.Metadata = map[string]string{signal.MetadataPoints: strconv.Itoa(hit.Points)}
		sig.PublishedAt = time.Now().UTC()
		if created, err := time.Parse(hnCreatedFmt, hit.CreatedAt); err == nil {
			sig.PublishedAt = created
		}

		signals = append(signals, sig)
		if limit > 0 && len(signals) >= limit {
			break
		}
	}
	return signals, nil
}

func (f *HackerNewsFetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *HackerNewsFetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
