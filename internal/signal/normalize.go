// Package signal holds the pure batch transforms of the pipeline:
// in-batch deduplication and heuristic scoring.
package signal

import (
	"strings"

	"SignalScanner/internal/domain"
)

// Normalize removes duplicates within one aggregation batch. Identity is
// source, canonical URL and lowercased trimmed title; the first signal
// per key wins. This catches the same URL surfaced by two sources with
// different formatting.
func Normalize(in []domain.RawSignal) []domain.RawSignal {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.RawSignal, 0, len(in))
	for _, sig := range in {
		key := dedupKey(sig)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sig)
	}
	return out
}

func dedupKey(sig domain.RawSignal) string {
	title := strings.ToLower(strings.TrimSpace(sig.Title))
	return string(sig.Source) + "|" + domain.CanonicalURL(sig.URL) + "|" + title
}
