package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/media"
	"SignalScanner/internal/ports"
)

const maxSupplementaryEntries = 3

// PublisherDeps wires the content-store collaborators into the publisher.
type PublisherDeps struct {
	Content  ports.ContentStore
	Identity ports.IdentityProvider
	Chat     ports.ChatClient
	Logger   *slog.Logger
	Category string
	// WriteDelay is slept between consecutive content-store writes to
	// avoid backend write-rate spikes.
	WriteDelay time.Duration
}

// Publisher converts a batch of signals or generated topics into
// content-store records. Per-item failures are collected, they never
// stop the remaining items.
type Publisher struct {
	content    ports.ContentStore
	identity   ports.IdentityProvider
	chat       ports.ChatClient
	logger     *slog.Logger
	category   string
	writeDelay time.Duration
	now        func() time.Time
}

// NewPublisher constructs the publish component.
func NewPublisher(deps PublisherDeps) *Publisher {
	return &Publisher{
		content:    deps.Content,
		identity:   deps.Identity,
		chat:       deps.Chat,
		logger:     deps.Logger,
		category:   deps.Category,
		writeDelay: deps.WriteDelay,
		now:        time.Now,
	}
}

// PublishSignals writes the batch in the requested mode and returns the
// run outcome plus the signal-to-content back-references for the ledger.
func (p *Publisher) PublishSignals(ctx context.Context, signals []domain.ScoredSignal, mode domain.PublishMode) (domain.RunResult, map[string]domain.PublishRef) {
	result := domain.RunResult{RunID: uuid.NewString()}
	refs := map[string]domain.PublishRef{}

	if len(signals) == 0 {
		result.Success = true
		result.FinishedAt = p.now()
		return result, refs
	}

	identity, err := p.signIn(ctx)
	if err != nil {
		return p.fail(result, err), refs
	}

	if mode == domain.ModeDigest {
		p.publishDigest(ctx, signals, identity, &result, refs)
	} else {
		p.publishPerItem(ctx, signals, identity, &result, refs)
	}

	result.Success = result.EntriesCreated > 0
	result.FinishedAt = p.now()
	return result, refs
}

func (p *Publisher) publishDigest(ctx context.Context, signals []domain.ScoredSignal, identity domain.Identity, result *domain.RunResult, refs map[string]domain.PublishRef) {
	title := fmt.Sprintf("Signal Digest %s", p.now().Format("2006-01-02"))
	articleID, err := p.content.CreateTitle(ctx, domain.ArticleFields{
		Title:    title,
		Category: p.category,
		AuthorID: identity.ID,
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("create digest title: %v", err))
		return
	}
	result.ArticlesCreated++

	for _, sig := range signals {
		p.pause()
		entryID, err := p.content.CreateEntry(ctx, p.entryFields(articleID, sig, identity))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("publish %q: %v", sig.Title, err))
			continue
		}
		result.EntriesCreated++
		result.Processed = append(result.Processed, sig.Title)
		refs[sig.ID] = domain.PublishRef{ArticleID: articleID, EntryID: entryID}
	}
}

func (p *Publisher) publishPerItem(ctx context.Context, signals []domain.ScoredSignal, identity domain.Identity, result *domain.RunResult, refs map[string]domain.PublishRef) {
	for i, sig := range signals {
		if i > 0 {
			p.pause()
		}

		articleID, err := p.content.CreateTitle(ctx, domain.ArticleFields{
			Title:    sig.Title,
			Category: p.category,
			AuthorID: identity.ID,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("publish %q: %v", sig.Title, err))
			continue
		}
		result.ArticlesCreated++

		p.pause()
		entryID, err := p.content.CreateEntry(ctx, p.entryFields(articleID, sig, identity))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("publish %q: %v", sig.Title, err))
			continue
		}
		result.EntriesCreated++
		result.Processed = append(result.Processed, sig.Title)
		refs[sig.ID] = domain.PublishRef{ArticleID: articleID, EntryID: entryID}
	}
}

// GenerateAndPublish asks the chat client for n synthetic topics and
// publishes each as its own title with a primary entry plus up to three
// supplementary entries from a second generation call. Every write and
// every supplementary generation is independently fallible.
func (p *Publisher) GenerateAndPublish(ctx context.Context, n int) domain.RunResult {
	result := domain.RunResult{RunID: uuid.NewString()}

	if p.chat == nil {
		return p.fail(result, fmt.Errorf("chat client is not configured"))
	}

	topics, err := p.chat.GenerateTopics(ctx, n)
	if err != nil {
		return p.fail(result, fmt.Errorf("generate topics: %w", err))
	}
	if len(topics) == 0 {
		result.Success = true
		result.FinishedAt = p.now()
		return result
	}

	identity, err := p.signIn(ctx)
	if err != nil {
		return p.fail(result, err)
	}

	for i, topic := range topics {
		if i > 0 {
			p.pause()
		}

		category := topic.Category
		if category == "" {
			category = p.category
		}
		articleID, err := p.content.CreateTitle(ctx, domain.ArticleFields{
			Title:    topic.Title,
			Category: category,
			AuthorID: identity.ID,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("publish topic %q: %v", topic.Title, err))
			continue
		}
		result.ArticlesCreated++

		p.pause()
		if _, err := p.content.CreateEntry(ctx, domain.EntryFields{
			ArticleID: articleID,
			Body:      topic.Summary,
			AuthorID:  identity.ID,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("publish topic %q: %v", topic.Title, err))
			continue
		}
		result.EntriesCreated++
		result.Processed = append(result.Processed, topic.Title)

		p.supplement(ctx, topic, articleID, identity, &result)
	}

	result.Success = result.EntriesCreated > 0
	result.FinishedAt = p.now()
	return result
}

func (p *Publisher) supplement(ctx context.Context, topic domain.Topic, articleID string, identity domain.Identity, result *domain.RunResult) {
	bodies, err := p.chat.GenerateSupplementary(ctx, topic)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("supplementary for %q: %v", topic.Title, err))
		return
	}
	if len(bodies) > maxSupplementaryEntries {
		bodies = bodies[:maxSupplementaryEntries]
	}

	for _, body := range bodies {
		p.pause()
		if _, err := p.content.CreateEntry(ctx, domain.EntryFields{
			ArticleID: articleID,
			Body:      body,
			AuthorID:  identity.ID,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("supplementary for %q: %v", topic.Title, err))
			continue
		}
		result.EntriesCreated++
	}
}

// entryFields renders one signal into an entry payload. Video-hosting
// URLs become media entries, a presentation decision made here, not at
// fetch time.
func (p *Publisher) entryFields(articleID string, sig domain.ScoredSignal, identity domain.Identity) domain.EntryFields {
	body := sig.Summary
	if body == "" {
		body = sig.Title
	}
	body = fmt.Sprintf("%s\n\n%s", body, sig.URL)

	fields := domain.EntryFields{
		ArticleID: articleID,
		Body:      body,
		AuthorID:  identity.ID,
	}
	if descriptor, ok := media.DetectVideo(sig.URL); ok {
		fields.Media = &descriptor
	}
	return fields
}

func (p *Publisher) signIn(ctx context.Context) (domain.Identity, error) {
	identity, err := p.identity.InitializeAutomatedIdentity(ctx)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("provision automated identity: %w", err)
	}
	if err := p.identity.SignInAs(ctx, identity); err != nil {
		return domain.Identity{}, fmt.Errorf("sign in as %s: %w", identity.Name, err)
	}
	return identity, nil
}

func (p *Publisher) fail(result domain.RunResult, err error) domain.RunResult {
	if p.logger != nil {
		p.logger.Error("publish run failed", "error", err)
	}
	result.Errors = append(result.Errors, err.Error())
	result.Success = false
	result.FinishedAt = p.now()
	return result
}

func (p *Publisher) pause() {
	if p.writeDelay > 0 {
		time.Sleep(p.writeDelay)
	}
}
