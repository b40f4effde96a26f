package signal

import (
	"sort"
	"strconv"
	"time"

	"SignalScanner/internal/domain"
)

// MetadataPoints is the metadata key sources use to report an engagement
// metric such as an upvote count.
const MetadataPoints = "points"

// SourceWeights are tunable per-source base scores. Preprints rank
// slightly above forum and blog items.
var SourceWeights = map[domain.Source]float64{
	domain.SourceArxiv:      1.2,
	domain.SourceHackerNews: 1.0,
	domain.SourceBlog:       1.0,
}

const (
	defaultSourceWeight = 0.8
	engagementCeiling   = 300.0
)

// Score computes sourceWeight + freshness + engagement for one signal.
// Freshness is 1/max(1, ageHours): strictly decreasing in age, never
// zero. Engagement is min(1, points/300) when the source reports points.
func Score(sig domain.RawSignal, now time.Time) domain.ScoredSignal {
	weight, ok := SourceWeights[sig.Source]
	if !ok {
		weight = defaultSourceWeight
	}

	ageHours := now.Sub(sig.PublishedAt).Hours()
	if ageHours < 1 {
		ageHours = 1
	}
	freshness := 1 / ageHours

	var engagement float64
	if raw, ok := sig.Metadata[MetadataPoints]; ok {
		if points, err := strconv.ParseFloat(raw, 64); err == nil && points > 0 {
			engagement = points / engagementCeiling
			if engagement > 1 {
				engagement = 1
			}
		}
	}

	return domain.ScoredSignal{RawSignal: sig, Score: weight + freshness + engagement}
}

// ScoreAll scores every signal in the batch. Pure and deterministic for
// a fixed now.
func ScoreAll(in []domain.RawSignal, now time.Time) []domain.ScoredSignal {
	out := make([]domain.ScoredSignal, 0, len(in))
	for _, sig := range in {
		out = append(out, Score(sig, now))
	}
	return out
}

// SelectTop sorts descending by score and keeps at most n signals. Ties
// keep their incoming order.
func SelectTop(in []domain.ScoredSignal, n int) []domain.ScoredSignal {
	out := make([]domain.ScoredSignal, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
