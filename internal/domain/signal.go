package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Source identifies one external provider of signals.
type Source string

const (
	SourceArxiv      Source = "arxiv"
	SourceHackerNews Source = "hn"
	SourceBlog       Source = "blog"
)

// RawSignal is a single discovered item. Immutable once produced by a fetcher.
type RawSignal struct {
	ID          string
	Source      Source
	Title       string
	URL         string
	Author      string
	Summary     string
	Tags        []string
	PublishedAt time.Time
	Metadata    map[string]string
}

// ScoredSignal carries a RawSignal together with its ranking score.
type ScoredSignal struct {
	RawSignal
	Score float64
}

// SignalStatus enumerates lifecycle milestones of a persisted signal.
type SignalStatus string

const (
	StatusNew       SignalStatus = "new"
	StatusPublished SignalStatus = "published"
	StatusSkipped   SignalStatus = "skipped"
)

// SignalRecord is the persisted ledger row behind cross-run dedup and
// deferred publishing. Records are never deleted.
type SignalRecord struct {
	ScoredSignal
	Status             SignalStatus
	PublishedArticleID string
	PublishedEntryID   string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SourceConfig holds per-run fetch settings supplied by the caller.
type SourceConfig struct {
	Arxiv          bool
	HackerNews     bool
	Blogs          bool
	BlogFeeds      []string
	LimitPerSource int
}

// PublishMode selects the shape of published content.
type PublishMode string

const (
	// ModeDigest groups the whole batch under one dated title.
	ModeDigest PublishMode = "digest"
	// ModePerItem creates one title per signal.
	ModePerItem PublishMode = "per-item"
)

// PublishRef ties a published signal back to its content-store records.
type PublishRef struct {
	ArticleID string
	EntryID   string
}

// CanonicalURL strips the fragment from a URL. Unparsable input is
// returned trimmed but otherwise untouched.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String()
}

// SignalID derives the stable identity hash from source, canonical URL
// and title. Re-fetching the same item always yields the same ID, which
// is what makes seen-filtering and publish-mapping idempotent.
func SignalID(source Source, rawURL, title string) string {
	key := fmt.Sprintf("%s|%s|%s", source, CanonicalURL(rawURL), title)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// NewRawSignal builds a RawSignal with its identity hash filled in.
func NewRawSignal(source Source, title, rawURL string) RawSignal {
	return RawSignal{
		ID:     SignalID(source, rawURL, title),
		Source: source,
		Title:  title,
		URL:    rawURL,
	}
}
