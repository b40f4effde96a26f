package sources

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/scanner"
)

const acceptFeed = "application/rss+xml, application/atom+xml, application/xml, text/xml"

// BlogFetcher reads the explicitly configured company-blog feeds. Each
// feed is tried directly and then through the proxy relay; a feed that
// fails on both tiers is skipped, it never aborts the others. Zero
// configured feeds contribute nothing.
type BlogFetcher struct {
	client    *http.Client
	feed      *gofeed.Parser
	logger    *slog.Logger
	proxyBase string
}

var _ scanner.Fetcher = (*BlogFetcher)(nil)

func NewBlogFetcher(client *http.Client, logger *slog.Logger) *BlogFetcher {
	if client == nil {
		client = defaultClient()
	}
	return &BlogFetcher{
		client:    client,
		feed:      gofeed.NewParser(),
		logger:    logger,
		proxyBase: proxyBase,
	}
}

func (f *BlogFetcher) Name() domain.Source {
	return domain.SourceBlog
}

func (f *BlogFetcher) Fetch(ctx context.Context, req scanner.Request) []domain.RawSignal {
	var signals []domain.RawSignal
	for _, feedURL := range req.BlogFeeds {
		items, err := f.fetchFeed(ctx, feedURL)
		if err != nil {
			f.warn("blog feed failed on all tiers", "feed", feedURL, "error", err)
			continue
		}
		signals = append(signals, items...)
		if req.Limit > 0 && len(signals) >= req.Limit {
			signals = signals[:req.Limit]
			break
		}
	}
	return signals
}

func (f *BlogFetcher) fetchFeed(ctx context.Context, feedURL string) ([]domain.RawSignal, error) {
	body, err := fetchBody(ctx, f.client, feedURL, acceptFeed)
	if err != nil {
		f.debug("blog feed direct fetch failed", "feed", feedURL, "error", err)
		body, err = fetchBody(ctx, f.client, proxied(f.proxyBase, feedURL), acceptFeed)
		if err != nil {
			return nil, err
		}
	}

	parsed, err := f.feed.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	signals := make([]domain.RawSignal, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" || item.Link == "" {
			continue
		}

		sig := domain.NewRawSignal(domain.SourceBlog, title, item.Link)
		sig.Summary = strings.TrimSpace(item.Description)
		sig.Tags = item.Categories
		if len(item.Authors) > 0 {
			sig.Author = item.Authors[0].Name
		}
		sig.Metadata = map[string]string{"feed": feedURL}
		sig.PublishedAt = time.Now().UTC()
		if item.PublishedParsed != nil {
			sig.PublishedAt = *item.PublishedParsed
		}

		signals = append(signals, sig)
	}
	return signals, nil
}

func (f *BlogFetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *BlogFetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
