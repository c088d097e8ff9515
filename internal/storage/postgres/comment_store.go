// Package postgres provides the Postgres-backed comment store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
	"github.com/JakeFAU/social-comment-harvester/internal/storage"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// CommentStore implements storage.Store on Postgres.
type CommentStore struct {
	pool  pool
	table string
}

var _ storage.Store = (*CommentStore)(nil)

// New connects a pool and returns a CommentStore. Call Migrate to create the table.
func New(ctx context.Context, cfg Config) (*CommentStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*CommentStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	if table == "" {
		table = "comments"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &CommentStore{pool: p, table: table}, nil
}

// Close releases the pool.
func (s *CommentStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ping checks the pool can reach the server.
func (s *CommentStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Migrate creates the comments table and its indexes when missing.
func (s *CommentStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id                TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL,
	platform          TEXT NOT NULL,
	content_url       TEXT NOT NULL,
	content_hash      TEXT NOT NULL,
	username          TEXT NOT NULL,
	comment_text      TEXT NOT NULL,
	comment_timestamp TEXT NOT NULL DEFAULT '',
	likes             INTEGER NOT NULL DEFAULT 0,
	avatar_url        TEXT,
	is_pinned         BOOLEAN NOT NULL DEFAULT FALSE,
	has_creator_heart BOOLEAN NOT NULL DEFAULT FALSE,
	replies           JSONB NOT NULL DEFAULT '[]',
	sentiment_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	sentiment_label   TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	UNIQUE (platform, content_url, content_hash)
);
CREATE INDEX IF NOT EXISTS %[1]s_url_idx ON %[1]s (content_url, platform);
CREATE INDEX IF NOT EXISTS %[1]s_created_idx ON %[1]s (created_at)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate comments: %w", err)
	}
	return nil
}

// CreateMany inserts records in one transaction. Rows whose content hash already exists for
// the URL are skipped.
func (s *CommentStore) CreateMany(ctx context.Context, records []storage.CommentRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	run_id,
	platform,
	content_url,
	content_hash,
	username,
	comment_text,
	comment_timestamp,
	likes,
	avatar_url,
	is_pinned,
	has_creator_heart,
	replies,
	sentiment_score,
	sentiment_label,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
) ON CONFLICT (platform, content_url, content_hash) DO NOTHING`, s.table)

	inserted := 0
	for _, rec := range records {
		replies, err := encodeReplies(rec.Replies)
		if err != nil {
			return 0, rollback(ctx, tx, err)
		}
		tag, err := tx.Exec(ctx, query,
			rec.ID,
			rec.RunID,
			rec.Platform,
			rec.ContentURL,
			rec.ContentHash,
			rec.Username,
			rec.Text,
			rec.Timestamp,
			rec.Likes,
			rec.AvatarURL,
			rec.IsPinned,
			rec.HasCreatorHeart,
			replies,
			rec.SentimentScore,
			rec.SentimentLabel,
			rec.CreatedAt,
		)
		if err != nil {
			return 0, rollback(ctx, tx, fmt.Errorf("insert comment: %w", err))
		}
		inserted += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

// DeleteByURL removes every record of url on platform.
func (s *CommentStore) DeleteByURL(ctx context.Context, url, platform string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE content_url = $1 AND platform = $2`, s.table)
	tag, err := s.pool.Exec(ctx, query, url, platform)
	if err != nil {
		return 0, fmt.Errorf("delete comments: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindByURL returns stored records for url in insertion order.
func (s *CommentStore) FindByURL(ctx context.Context, url, platform string, limit int) ([]storage.CommentRecord, error) {
	query := fmt.Sprintf(`
SELECT id, run_id, platform, content_url, content_hash, username, comment_text, comment_timestamp,
	likes, avatar_url, is_pinned, has_creator_heart, replies, sentiment_score, sentiment_label, created_at
FROM %s
WHERE content_url = $1 AND platform = $2
ORDER BY created_at, id`, s.table)
	args := []any{url, platform}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	out := []storage.CommentRecord{}
	for rows.Next() {
		var (
			rec     storage.CommentRecord
			replies []byte
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Platform,
			&rec.ContentURL,
			&rec.ContentHash,
			&rec.Username,
			&rec.Text,
			&rec.Timestamp,
			&rec.Likes,
			&rec.AvatarURL,
			&rec.IsPinned,
			&rec.HasCreatorHeart,
			&replies,
			&rec.SentimentScore,
			&rec.SentimentLabel,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if rec.Replies, err = decodeReplies(replies); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

const countColumns = `
	COUNT(*),
	COUNT(*) FILTER (WHERE sentiment_label = 'positive'),
	COUNT(*) FILTER (WHERE sentiment_label = 'neutral'),
	COUNT(*) FILTER (WHERE sentiment_label = 'negative'),
	COALESCE(AVG(sentiment_score), 0)::float8`

// Summary aggregates the records matching f.
func (s *CommentStore) Summary(ctx context.Context, f storage.StatsFilter) (storage.Counts, error) {
	where, args := filterClause(f)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`, countColumns, s.table, where)
	var c storage.Counts
	if err := s.pool.QueryRow(ctx, query, args...).Scan(
		&c.Total, &c.Positive, &c.Neutral, &c.Negative, &c.AverageSentiment,
	); err != nil {
		return storage.Counts{}, fmt.Errorf("query summary: %w", err)
	}
	return c, nil
}

// TimeSeries aggregates the records matching f per UTC day.
func (s *CommentStore) TimeSeries(ctx context.Context, f storage.StatsFilter) ([]storage.DayCounts, error) {
	where, args := filterClause(f)
	query := fmt.Sprintf(`
SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, %s
FROM %s
WHERE %s
GROUP BY day
ORDER BY day`, countColumns, s.table, where)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query time series: %w", err)
	}
	defer rows.Close()

	out := []storage.DayCounts{}
	for rows.Next() {
		var d storage.DayCounts
		if err := rows.Scan(&d.Date, &d.Total, &d.Positive, &d.Neutral, &d.Negative, &d.AverageSentiment); err != nil {
			return nil, fmt.Errorf("scan time series: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time series: %w", err)
	}
	return out, nil
}

// PlatformOverview aggregates every stored record per platform.
func (s *CommentStore) PlatformOverview(ctx context.Context) ([]storage.PlatformCounts, error) {
	query := fmt.Sprintf(`SELECT platform, %s FROM %s GROUP BY platform ORDER BY platform`, countColumns, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query platform overview: %w", err)
	}
	defer rows.Close()

	out := []storage.PlatformCounts{}
	for rows.Next() {
		var p storage.PlatformCounts
		if err := rows.Scan(&p.Platform, &p.Total, &p.Positive, &p.Neutral, &p.Negative, &p.AverageSentiment); err != nil {
			return nil, fmt.Errorf("scan platform overview: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platform overview: %w", err)
	}
	return out, nil
}

func filterClause(f storage.StatsFilter) (string, []any) {
	conds := []string{"content_url = $1", "platform = $2"}
	args := []any{f.URL, f.Platform}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func rollback(ctx context.Context, tx pgx.Tx, cause error) error {
	if err := tx.Rollback(ctx); err != nil {
		return errors.Join(cause, fmt.Errorf("rollback: %w", err))
	}
	return cause
}

func encodeReplies(replies []scraper.Comment) ([]byte, error) {
	if replies == nil {
		replies = []scraper.Comment{}
	}
	b, err := json.Marshal(replies)
	if err != nil {
		return nil, fmt.Errorf("marshal replies: %w", err)
	}
	return b, nil
}

func decodeReplies(raw []byte) ([]scraper.Comment, error) {
	replies := []scraper.Comment{}
	if len(raw) == 0 {
		return replies, nil
	}
	if err := json.Unmarshal(raw, &replies); err != nil {
		return nil, fmt.Errorf("unmarshal replies: %w", err)
	}
	return replies, nil
}
