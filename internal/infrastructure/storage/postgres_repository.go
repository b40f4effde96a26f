// Package storage persists signal records in Postgres.
//
// Expected table:
//
//	signals (
//	    id text primary key,
//	    source text, title text, url text, canonical_url text,
//	    author text, summary text, tags text[],
//	    published_at timestamptz, score double precision,
//	    status text, published_article_id text, published_entry_id text,
//	    created_at timestamptz default now(),
//	    updated_at timestamptz default now()
//	)
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/ports"
)

const signalsTable = "signals"

// PostgresRepository is the durable signal ledger.
type PostgresRepository struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger *slog.Logger
}

var _ ports.SignalRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}
}

// SaveBatch inserts each signal as a new record, best effort per item:
// one failing write does not abort the batch. Re-inserting a known id
// is a no-op, which keeps snapshots idempotent across runs.
func (r *PostgresRepository) SaveBatch(ctx context.Context, signals []domain.ScoredSignal, status domain.SignalStatus) (int, []string) {
	if r.db == nil || len(signals) == 0 {
		return 0, nil
	}

	var (
		saved int
		errs  []string
	)
	for _, sig := range signals {
		query := r.sb.Insert(signalsTable).
			Columns("id", "source", "title", "url", "canonical_url", "author",
				"summary", "tags", "published_at", "score", "status").
			Values(sig.ID, string(sig.Source), sig.Title, sig.URL,
				domain.CanonicalURL(sig.URL), sig.Author, sig.Summary,
				pq.Array(sig.Tags), sig.PublishedAt, sig.Score, string(status)).
			Suffix("ON CONFLICT (id) DO NOTHING")

		sqlStr, args, err := query.ToSql()
		if err != nil {
			errs = append(errs, fmt.Sprintf("build insert %s: %v", sig.ID, err))
			continue
		}
		if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
			errs = append(errs, fmt.Sprintf("save %s: %v", sig.ID, err))
			continue
		}
		saved++
	}
	return saved, errs
}

// ListPending returns status=new records, top-scored and most recent
// first.
func (r *PostgresRepository) ListPending(ctx context.Context, limit int) ([]domain.ScoredSignal, error) {
	if r.db == nil {
		return nil, nil
	}

	query := r.sb.Select("id", "source", "title", "url", "author", "summary",
		"tags", "published_at", "score").
		From(signalsTable).
		Where(sq.Eq{"status": string(domain.StatusNew)}).
		OrderBy("score DESC", "created_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var signals []domain.ScoredSignal
	for rows.Next() {
		var (
			sig    domain.ScoredSignal
			source string
		)
		if err := rows.Scan(&sig.ID, &source, &sig.Title, &sig.URL, &sig.Author,
			&sig.Summary, pq.Array(&sig.Tags), &sig.PublishedAt, &sig.Score); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		sig.Source = domain.Source(source)
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending rows: %w", err)
	}
	return signals, nil
}

// MarkPublished transitions the matched records to status=published and
// stamps the article/entry back-references. Per-id failures are joined;
// the remaining ids are still updated.
func (r *PostgresRepository) MarkPublished(ctx context.Context, refs map[string]domain.PublishRef) error {
	if r.db == nil || len(refs) == 0 {
		return nil
	}

	var errs []error
	for id, ref := range refs {
		query := r.sb.Update(signalsTable).
			Set("status", string(domain.StatusPublished)).
			Set("published_article_id", ref.ArticleID).
			Set("published_entry_id", ref.EntryID).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": id})

		sqlStr, args, err := query.ToSql()
		if err != nil {
			errs = append(errs, fmt.Errorf("build update %s: %w", id, err))
			continue
		}
		if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
			errs = append(errs, fmt.Errorf("mark %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ExistsByURL reports whether any record with the canonical URL exists,
// whatever its status.
func (r *PostgresRepository) ExistsByURL(ctx context.Context, canonicalURL string) (bool, error) {
	if r.db == nil {
		return false, nil
	}

	sqlStr, args, err := r.sb.Select("1").
		From(signalsTable).
		Where(sq.Eq{"canonical_url": canonicalURL}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return true, nil
}
