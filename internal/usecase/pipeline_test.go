package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalScanner/internal/domain"
)

func newTestPipeline(source *fakeSource, repo *fakeRepo, content *fakeContent) *Pipeline {
	return NewPipeline(PipelineDeps{
		Source:         source,
		Repository:     repo,
		Publisher:      newTestPublisher(content, &fakeIdentity{}, nil),
		MaxItemsPerRun: 25,
	})
}

func TestPrepareFiltersSeenByCanonicalURL(t *testing.T) {
	t.Parallel()

	source := &fakeSource{signals: []domain.RawSignal{
		rawSignal(domain.SourceArxiv, "Old paper", "https://arxiv.org/abs/1#frag"),
		rawSignal(domain.SourceArxiv, "New paper", "https://arxiv.org/abs/2"),
	}}
	repo := &fakeRepo{seen: map[string]bool{"https://arxiv.org/abs/1": true}}
	p := newTestPipeline(source, repo, &fakeContent{})

	top, saveErrs := p.Prepare(context.Background(), domain.SourceConfig{Arxiv: true})

	require.Len(t, top, 1)
	assert.Equal(t, "New paper", top[0].Title)
	assert.Empty(t, saveErrs)
	assert.Equal(t, domain.StatusNew, repo.savedStatus)
	assert.Len(t, repo.saved, 1)
}

func TestPrepareFailsOpenOnLedgerError(t *testing.T) {
	t.Parallel()

	source := &fakeSource{signals: []domain.RawSignal{
		rawSignal(domain.SourceHackerNews, "Story", "https://example.com/a"),
	}}
	repo := &fakeRepo{
		seen:      map[string]bool{"https://example.com/a": true},
		existsErr: errors.New("connection refused"),
	}
	p := newTestPipeline(source, repo, &fakeContent{})

	top, _ := p.Prepare(context.Background(), domain.SourceConfig{HackerNews: true})

	// The ledger says seen, but the query failed, so the signal survives.
	require.Len(t, top, 1)
}

func TestPrepareDedupesWithinBatch(t *testing.T) {
	t.Parallel()

	source := &fakeSource{signals: []domain.RawSignal{
		rawSignal(domain.SourceBlog, "Same Post", "https://blog.example.com/p"),
		rawSignal(domain.SourceBlog, "  same post ", "https://blog.example.com/p#section"),
		rawSignal(domain.SourceBlog, "Other", "https://blog.example.com/q"),
	}}
	p := newTestPipeline(source, &fakeRepo{}, &fakeContent{})

	top, _ := p.Prepare(context.Background(), domain.SourceConfig{Blogs: true})

	assert.Len(t, top, 2)
}

func TestPrepareForwardsSourceConfig(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	p := newTestPipeline(source, &fakeRepo{}, &fakeContent{})

	cfg := domain.SourceConfig{
		Arxiv:          true,
		BlogFeeds:      []string{"https://openai.com/blog/rss.xml"},
		LimitPerSource: 10,
	}
	p.Prepare(context.Background(), cfg)

	assert.Equal(t, cfg, source.lastCfg)
}

func TestRunRejectsOverlap(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(&fakeSource{}, &fakeRepo{}, &fakeContent{})
	p.busy.Store(true)

	_, err := p.Run(context.Background(), domain.SourceConfig{}, domain.ModeDigest)
	assert.ErrorIs(t, err, ErrRunInProgress)

	_, err = p.PublishPending(context.Background(), 0, domain.ModeDigest)
	assert.ErrorIs(t, err, ErrRunInProgress)

	_, err = p.Generate(context.Background(), 3)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunPublishesAndMarks(t *testing.T) {
	t.Parallel()

	source := &fakeSource{signals: []domain.RawSignal{
		rawSignal(domain.SourceArxiv, "Paper", "https://arxiv.org/abs/1"),
		rawSignal(domain.SourceHackerNews, "Story", "https://example.com/s"),
	}}
	repo := &fakeRepo{}
	content := &fakeContent{}
	p := newTestPipeline(source, repo, content)

	result, err := p.Run(context.Background(), domain.SourceConfig{Arxiv: true, HackerNews: true}, domain.ModeDigest)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.EntriesCreated)
	assert.Len(t, repo.published, 2)
	assert.False(t, p.busy.Load())
}

func TestRunRecordsMarkError(t *testing.T) {
	t.Parallel()

	source := &fakeSource{signals: []domain.RawSignal{
		rawSignal(domain.SourceBlog, "Post", "https://blog.example.com/p"),
	}}
	repo := &fakeRepo{markErr: errors.New("deadlock detected")}
	p := newTestPipeline(source, repo, &fakeContent{})

	result, err := p.Run(context.Background(), domain.SourceConfig{Blogs: true}, domain.ModeDigest)

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "mark published")
}

func TestPublishPendingUsesSnapshot(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{pending: []domain.ScoredSignal{
		scoredSignal(domain.SourceArxiv, "First", "https://arxiv.org/abs/1", 3),
		scoredSignal(domain.SourceArxiv, "Second", "https://arxiv.org/abs/2", 2),
		scoredSignal(domain.SourceArxiv, "Third", "https://arxiv.org/abs/3", 1),
	}}
	content := &fakeContent{}
	p := newTestPipeline(&fakeSource{}, repo, content)

	result, err := p.PublishPending(context.Background(), 2, domain.ModePerItem)

	require.NoError(t, err)
	assert.Equal(t, 2, result.EntriesCreated)
	assert.Len(t, repo.published, 2)
}

func TestPublishPendingListError(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{pendingErr: errors.New("relation does not exist")}
	p := newTestPipeline(&fakeSource{}, repo, &fakeContent{})

	result, err := p.PublishPending(context.Background(), 0, domain.ModeDigest)

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "list pending")
}

func TestGenerateReleasesBusyFlag(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{topics: []domain.Topic{{Title: "Topic", Summary: "s"}}}
	p := NewPipeline(PipelineDeps{
		Publisher: newTestPublisher(&fakeContent{}, &fakeIdentity{}, chat),
	})

	result, err := p.Generate(context.Background(), 1)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, p.busy.Load())
}
