package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalScanner/internal/domain"
)

func TestPublishDigestShape(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	pub := newTestPublisher(content, &fakeIdentity{}, nil)

	signals := []domain.ScoredSignal{
		scoredSignal(domain.SourceArxiv, "Paper A", "https://arxiv.org/abs/1", 2.0),
		scoredSignal(domain.SourceHackerNews, "Story B", "https://example.com/b", 1.5),
		scoredSignal(domain.SourceBlog, "Post C", "https://blog.example.com/c", 1.1),
	}

	result, refs := pub.PublishSignals(context.Background(), signals, domain.ModeDigest)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ArticlesCreated)
	assert.Equal(t, 3, result.EntriesCreated)
	assert.Empty(t, result.Errors)
	assert.Len(t, refs, 3)

	require.Len(t, content.titles, 1)
	assert.Contains(t, content.titles[0].Title, "Signal Digest")
	assert.Equal(t, "ai-signals", content.titles[0].Category)
	for _, ref := range refs {
		assert.Equal(t, "article-1", ref.ArticleID)
	}
}

func TestPublishPerItemShape(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	pub := newTestPublisher(content, &fakeIdentity{}, nil)

	signals := []domain.ScoredSignal{
		scoredSignal(domain.SourceArxiv, "Paper A", "https://arxiv.org/abs/1", 2.0),
		scoredSignal(domain.SourceHackerNews, "Story B", "https://example.com/b", 1.5),
		scoredSignal(domain.SourceBlog, "Post C", "https://blog.example.com/c", 1.1),
	}

	result, refs := pub.PublishSignals(context.Background(), signals, domain.ModePerItem)

	assert.Equal(t, 3, result.ArticlesCreated)
	assert.Equal(t, 3, result.EntriesCreated)
	assert.Len(t, refs, 3)
	assert.Equal(t, "Paper A", content.titles[0].Title)
}

func TestPublishPartialFailure(t *testing.T) {
	t.Parallel()

	content := &fakeContent{failEntryAt: map[int]bool{3: true}}
	pub := newTestPublisher(content, &fakeIdentity{}, nil)

	var signals []domain.ScoredSignal
	for _, title := range []string{"one", "two", "three", "four", "five"} {
		signals = append(signals, scoredSignal(domain.SourceBlog, title, "https://b.example/"+title, 1))
	}

	result, refs := pub.PublishSignals(context.Background(), signals, domain.ModeDigest)

	assert.True(t, result.Success)
	assert.Equal(t, 4, result.EntriesCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "three")
	assert.Len(t, refs, 4)
	assert.NotContains(t, refs, signals[2].ID)
}

func TestPublishIdentityFailureIsTotal(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	pub := newTestPublisher(content, &fakeIdentity{initErr: errors.New("provisioning down")}, nil)

	result, refs := pub.PublishSignals(context.Background(),
		[]domain.ScoredSignal{scoredSignal(domain.SourceBlog, "x", "https://b.example/x", 1)},
		domain.ModeDigest)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "provisioning down")
	assert.Empty(t, refs)
	assert.Zero(t, content.titleCalls)
}

func TestPublishVideoEntry(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	pub := newTestPublisher(content, &fakeIdentity{}, nil)

	signals := []domain.ScoredSignal{
		scoredSignal(domain.SourceHackerNews, "Model demo", "https://www.youtube.com/watch?v=abc123xyz00", 1),
	}

	result, _ := pub.PublishSignals(context.Background(), signals, domain.ModePerItem)

	assert.True(t, result.Success)
	require.Len(t, content.entries, 1)
	media := content.entries[0].Media
	require.NotNil(t, media)
	assert.Equal(t, "video", media.Type)
	assert.Equal(t, "https://www.youtube.com/embed/abc123xyz00", media.URL)
	assert.NotEmpty(t, media.Thumbnail)
}

func TestPublishEmptyBatch(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	pub := newTestPublisher(content, &fakeIdentity{}, nil)

	result, refs := pub.PublishSignals(context.Background(), nil, domain.ModeDigest)

	assert.True(t, result.Success)
	assert.Zero(t, result.ArticlesCreated)
	assert.Empty(t, refs)
	assert.Zero(t, content.titleCalls)
}

func TestPublishDigestTitleFailure(t *testing.T) {
	t.Parallel()

	content := &fakeContent{failTitleAt: map[int]bool{1: true}}
	pub := newTestPublisher(content, &fakeIdentity{}, nil)

	result, refs := pub.PublishSignals(context.Background(),
		[]domain.ScoredSignal{scoredSignal(domain.SourceBlog, "x", "https://b.example/x", 1)},
		domain.ModeDigest)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Empty(t, refs)
	assert.Zero(t, content.entryCalls)
}

func TestGenerateAndPublish(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	chat := &fakeChat{
		topics: []domain.Topic{
			{Title: "Alignment roundup", Summary: "What changed this week."},
			{Title: "Inference costs", Summary: "Why serving got cheaper.", Category: "economics"},
		},
		sups:    map[string][]string{"Alignment roundup": {"more detail", "even more"}},
		supErrs: map[string]error{"Inference costs": errors.New("model overloaded")},
	}
	pub := newTestPublisher(content, &fakeIdentity{}, chat)

	result := pub.GenerateAndPublish(context.Background(), 2)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ArticlesCreated)
	// Two primary entries plus two supplementary ones for the first topic.
	assert.Equal(t, 4, result.EntriesCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Inference costs")
	assert.Equal(t, "economics", content.titles[1].Category)
}

func TestGenerateAndPublishSupplementaryCap(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	chat := &fakeChat{
		topics: []domain.Topic{{Title: "Verbose topic", Summary: "s"}},
		sups:   map[string][]string{"Verbose topic": {"a", "b", "c", "d", "e"}},
	}
	pub := newTestPublisher(content, &fakeIdentity{}, chat)

	result := pub.GenerateAndPublish(context.Background(), 1)

	// One primary plus at most three supplementary entries.
	assert.Equal(t, 4, result.EntriesCreated)
}

func TestGenerateAndPublishTopicsFailure(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	chat := &fakeChat{topicsErr: errors.New("api quota exceeded")}
	pub := newTestPublisher(content, &fakeIdentity{}, chat)

	result := pub.GenerateAndPublish(context.Background(), 3)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Zero(t, content.titleCalls)
}

func TestGenerateWithoutChatClient(t *testing.T) {
	t.Parallel()

	pub := newTestPublisher(&fakeContent{}, &fakeIdentity{}, nil)

	result := pub.GenerateAndPublish(context.Background(), 3)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not configured")
}
