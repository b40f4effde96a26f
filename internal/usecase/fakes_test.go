package usecase

import (
	"context"
	"fmt"

	"SignalScanner/internal/domain"
)

type fakeSource struct {
	signals []domain.RawSignal
	lastCfg domain.SourceConfig
}

func (f *fakeSource) Aggregate(_ context.Context, cfg domain.SourceConfig) []domain.RawSignal {
	f.lastCfg = cfg
	return f.signals
}

type fakeRepo struct {
	seen        map[string]bool
	existsErr   error
	saved       []domain.ScoredSignal
	savedStatus domain.SignalStatus
	saveErrs    []string
	pending     []domain.ScoredSignal
	pendingErr  error
	published   map[string]domain.PublishRef
	markErr     error
}

func (f *fakeRepo) SaveBatch(_ context.Context, signals []domain.ScoredSignal, status domain.SignalStatus) (int, []string) {
	f.saved = append(f.saved, signals...)
	f.savedStatus = status
	return len(signals) - len(f.saveErrs), f.saveErrs
}

func (f *fakeRepo) ListPending(_ context.Context, limit int) ([]domain.ScoredSignal, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	if limit > 0 && len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeRepo) MarkPublished(_ context.Context, refs map[string]domain.PublishRef) error {
	f.published = refs
	return f.markErr
}

func (f *fakeRepo) ExistsByURL(_ context.Context, canonicalURL string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.seen[canonicalURL], nil
}

// fakeContent scripts per-call failures by 1-based call index.
type fakeContent struct {
	titleCalls  int
	entryCalls  int
	failTitleAt map[int]bool
	failEntryAt map[int]bool
	titles      []domain.ArticleFields
	entries     []domain.EntryFields
}

func (f *fakeContent) CreateTitle(_ context.Context, fields domain.ArticleFields) (string, error) {
	f.titleCalls++
	if f.failTitleAt[f.titleCalls] {
		return "", fmt.Errorf("backend rejected title")
	}
	f.titles = append(f.titles, fields)
	return fmt.Sprintf("article-%d", len(f.titles)), nil
}

func (f *fakeContent) CreateEntry(_ context.Context, fields domain.EntryFields) (string, error) {
	f.entryCalls++
	if f.failEntryAt[f.entryCalls] {
		return "", fmt.Errorf("backend rejected entry")
	}
	f.entries = append(f.entries, fields)
	return fmt.Sprintf("entry-%d", len(f.entries)), nil
}

type fakeIdentity struct {
	initErr error
	signErr error
}

func (f *fakeIdentity) InitializeAutomatedIdentity(context.Context) (domain.Identity, error) {
	if f.initErr != nil {
		return domain.Identity{}, f.initErr
	}
	return domain.Identity{ID: "bot-1", Name: "signalbot"}, nil
}

func (f *fakeIdentity) SignInAs(context.Context, domain.Identity) error {
	return f.signErr
}

type fakeChat struct {
	topics    []domain.Topic
	topicsErr error
	sups      map[string][]string
	supErrs   map[string]error
}

func (f *fakeChat) GenerateTopics(context.Context, int) ([]domain.Topic, error) {
	return f.topics, f.topicsErr
}

func (f *fakeChat) GenerateSupplementary(_ context.Context, topic domain.Topic) ([]string, error) {
	if err := f.supErrs[topic.Title]; err != nil {
		return nil, err
	}
	return f.sups[topic.Title], nil
}

type memoryStatusStore struct {
	status  domain.ScheduleStatus
	saves   int
	loadErr error
	saveErr error
}

func (m *memoryStatusStore) Load(context.Context) (domain.ScheduleStatus, error) {
	return m.status, m.loadErr
}

func (m *memoryStatusStore) Save(_ context.Context, status domain.ScheduleStatus) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.status = status
	m.saves++
	return nil
}

func newTestPublisher(content *fakeContent, identity *fakeIdentity, chat *fakeChat) *Publisher {
	deps := PublisherDeps{
		Content:  content,
		Identity: identity,
		Category: "ai-signals",
	}
	if chat != nil {
		deps.Chat = chat
	}
	return NewPublisher(deps)
}

func rawSignal(source domain.Source, title, url string) domain.RawSignal {
	return domain.NewRawSignal(source, title, url)
}

func scoredSignal(source domain.Source, title, url string, score float64) domain.ScoredSignal {
	return domain.ScoredSignal{RawSignal: rawSignal(source, title, url), Score: score}
}
