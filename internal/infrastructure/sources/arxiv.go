package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/scanner"
)

const (
	arxivAPIBase     = "https://export.arxiv.org/api/query"
	arxivListingBase = "https://export.arxiv.org/list"
	arxivSiteBase    = "https://arxiv.org"
	arxivQuery       = "cat:cs.AI OR cat:cs.LG OR cat:cs.CL"
	acceptAtom       = "application/atom+xml, application/xml, text/xml"
)

var listingDateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivFetcher pulls recent preprints. Tier one is the Atom API; tier
// two parses the HTML category listing; tier three replays the API call
// through the generic proxy relay.
type ArxivFetcher struct {
	client      *http.Client
	feed        *gofeed.Parser
	logger      *slog.Logger
	apiBase     string
	listingBase string
	proxyBase   string
	query       string
	category    string
}

var _ scanner.Fetcher = (*ArxivFetcher)(nil)

// NewArxivFetcher wires an HTTP client; nil uses a 20s-timeout default.
func NewArxivFetcher(client *http.Client, logger *slog.Logger) *ArxivFetcher {
	if client == nil {
		client = defaultClient()
	}
	return &ArxivFetcher{
		client:      client,
		feed:        gofeed.NewParser(),
		logger:      logger,
		apiBase:     arxivAPIBase,
		listingBase: arxivListingBase,
		proxyBase:   proxyBase,
		query:       arxivQuery,
		category:    "cs.AI",
	}
}

func (f *ArxivFetcher) Name() domain.Source {
	return domain.SourceArxiv
}

// Fetch runs the fallback chain and never returns an error: a total
// failure logs a warning and yields an empty batch.
func (f *ArxivFetcher) Fetch(ctx context.Context, req scanner.Request) []domain.RawSignal {
	apiURL := f.queryURL(req.Limit)

	if body, err := fetchBody(ctx, f.client, apiURL, acceptAtom); err == nil {
		if signals, perr := f.parseAtom(body, req.Limit); perr == nil {
			return signals
		} else {
			f.debug("arxiv api parse failed", "error", perr)
		}
	} else {
		f.debug("arxiv api fetch failed", "error", err)
	}

	if signals, err := f.fetchListing(ctx, req.Limit); err == nil && len(signals) > 0 {
		return signals
	} else if err != nil {
		f.debug("arxiv listing fallback failed", "error", err)
	}

	if body, err := fetchBody(ctx, f.client, proxied(f.proxyBase, apiURL), acceptAtom); err == nil {
		if signals, perr := f.parseAtom(body, req.Limit); perr == nil {
			return signals
		} else {
			f.debug("arxiv proxy parse failed", "error", perr)
		}
	} else {
		f.debug("arxiv proxy fetch failed", "error", err)
	}

	f.warn("arxiv fetch failed on all tiers")
	return nil
}

func (f *ArxivFetcher) queryURL(limit int) string {
	values := url.Values{}
	values.Set("search_query", f.query)
	values.Set("sortBy", "submittedDate")
	values.Set("sortOrder", "descending")
	values.Set("max_results", strconv.Itoa(limit))
	return f.apiBase + "?" + values.Encode()
}

func (f *ArxivFetcher) parseAtom(body []byte, limit int) ([]domain.RawSignal, error) {
	parsed, err := f.feed.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse atom: %w", err)
	}

	signals := make([]domain.RawSignal, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.Join(strings.Fields(item.Title), " ")
		if title == "" || item.Link == "" {
			continue
		}

		sig := domain.NewRawSignal(domain.SourceArxiv, title, item.Link)
		sig.Summary = strings.TrimSpace(item.Description)
		sig.Tags = item.Categories
		if len(item.Authors) > 0 {
			sig.Author = item.Authors[0].Name
		}
		sig.PublishedAt = time.Now().UTC()
		if item.PublishedParsed != nil {
			sig.PublishedAt = *item.PublishedParsed
		}

		signals = append(signals, sig)
		if limit > 0 && len(signals) >= limit {
			break
		}
	}
	return signals, nil
}

// fetchListing is the HTML fallback: the category listing page carries
// the same items the API serves, in definition-list markup.
func (f *ArxivFetcher) fetchListing(ctx context.Context, limit int) ([]domain.RawSignal, error) {
	listingURL := fmt.Sprintf("%s/%s/recent?skip=0&show=%d", f.listingBase, f.category, limit)

	body, err := fetchBody(ctx, f.client, listingURL, "text/html")
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var signals []domain.RawSignal
	doc.Find("dl > dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		dd := dt.Next()

		link := dt.Find(`a[href*="/abs/"]`).First()
		href, _ := link.Attr("href")
		if href == "" {
			return true
		}
		if !strings.HasPrefix(href, "http") {
			href = arxivSiteBase + href
		}

		title := strings.TrimSpace(dd.Find(".list-title").First().Text())
		title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
		if title == "" {
			return true
		}

		summary := strings.TrimSpace(dd.Find(".mathjax").First().Text())
		summary = strings.TrimSpace(strings.TrimPrefix(summary, "Abstract:"))

		publishedAt := time.Now().UTC()
		dateText := dd.Find(".list-date").First().Text()
		if dateText == "" {
			dateText = dd.Find(".list-dateline").First().Text()
		}
		if match := listingDateExpr.FindString(dateText); match != "" {
			if parsed, perr := time.Parse("2 Jan 2006", match); perr == nil {
				publishedAt = parsed
			}
		}

		sig := domain.NewRawSignal(domain.SourceArxiv, title, href)
		sig.Summary = summary
		sig.Tags = []string{f.category}
		sig.PublishedAt = publishedAt
		signals = append(signals, sig)

		return limit <= 0 || len(signals) < limit
	})

	return signals, nil
}

func (f *ArxivFetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *ArxivFetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
