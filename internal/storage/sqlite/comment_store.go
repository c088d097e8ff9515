// Package sqlite provides the SQLite-backed comment store used for local runs.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
	"github.com/JakeFAU/social-comment-harvester/internal/storage"
)

//go:embed schema.sql
var schema string

// timeLayout is fixed width so that text comparison orders like time.
const timeLayout = "2006-01-02T15:04:05.000Z"

// CommentStore implements storage.Store on SQLite.
type CommentStore struct {
	db *sql.DB
}

var _ storage.Store = (*CommentStore)(nil)

// Open opens dsn (e.g. "file:harvester.db" or ":memory:") and applies the schema.
func Open(ctx context.Context, dsn string) (*CommentStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db.dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	store, err := NewWithDB(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an open handle and applies the schema.
func NewWithDB(ctx context.Context, db *sql.DB) (*CommentStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &CommentStore{db: db}, nil
}

// Ping checks the database handle.
func (s *CommentStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *CommentStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// CreateMany inserts records in one transaction, skipping content hashes already stored.
func (s *CommentStore) CreateMany(ctx context.Context, records []storage.CommentRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO comments (
	id, run_id, platform, content_url, content_hash, username, comment_text, comment_timestamp,
	likes, avatar_url, is_pinned, has_creator_heart, replies, sentiment_score, sentiment_label, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		replies := rec.Replies
		if replies == nil {
			replies = []scraper.Comment{}
		}
		raw, err := json.Marshal(replies)
		if err != nil {
			return 0, fmt.Errorf("marshal replies: %w", err)
		}
		res, err := stmt.ExecContext(ctx,
			rec.ID, rec.RunID, rec.Platform, rec.ContentURL, rec.ContentHash, rec.Username, rec.Text,
			rec.Timestamp, rec.Likes, rec.AvatarURL, rec.IsPinned, rec.HasCreatorHeart, string(raw),
			rec.SentimentScore, rec.SentimentLabel, rec.CreatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return 0, fmt.Errorf("insert comment: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

// DeleteByURL removes every record of url on platform.
func (s *CommentStore) DeleteByURL(ctx context.Context, url, platform string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE content_url = ? AND platform = ?`, url, platform)
	if err != nil {
		return 0, fmt.Errorf("delete comments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// FindByURL returns stored records for url in insertion order.
func (s *CommentStore) FindByURL(ctx context.Context, url, platform string, limit int) ([]storage.CommentRecord, error) {
	query := `
SELECT id, run_id, platform, content_url, content_hash, username, comment_text, comment_timestamp,
	likes, avatar_url, is_pinned, has_creator_heart, replies, sentiment_score, sentiment_label, created_at
FROM comments
WHERE content_url = ? AND platform = ?
ORDER BY created_at, id`
	args := []any{url, platform}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	out := []storage.CommentRecord{}
	for rows.Next() {
		var (
			rec     storage.CommentRecord
			avatar  sql.NullString
			replies string
			created string
		)
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Platform, &rec.ContentURL, &rec.ContentHash, &rec.Username,
			&rec.Text, &rec.Timestamp, &rec.Likes, &avatar, &rec.IsPinned, &rec.HasCreatorHeart,
			&replies, &rec.SentimentScore, &rec.SentimentLabel, &created,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if avatar.Valid {
			rec.AvatarURL = &avatar.String
		}
		rec.Replies = []scraper.Comment{}
		if err := json.Unmarshal([]byte(replies), &rec.Replies); err != nil {
			return nil, fmt.Errorf("unmarshal replies: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
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
	COALESCE(SUM(sentiment_label = 'positive'), 0),
	COALESCE(SUM(sentiment_label = 'neutral'), 0),
	COALESCE(SUM(sentiment_label = 'negative'), 0),
	COALESCE(AVG(sentiment_score), 0.0)`

// Summary aggregates the records matching f.
func (s *CommentStore) Summary(ctx context.Context, f storage.StatsFilter) (storage.Counts, error) {
	where, args := filterClause(f)
	var c storage.Counts
	err := s.db.QueryRowContext(ctx, `SELECT `+countColumns+` FROM comments WHERE `+where, args...).Scan(
		&c.Total, &c.Positive, &c.Neutral, &c.Negative, &c.AverageSentiment,
	)
	if err != nil {
		return storage.Counts{}, fmt.Errorf("query summary: %w", err)
	}
	return c, nil
}

// TimeSeries aggregates the records matching f per UTC day.
func (s *CommentStore) TimeSeries(ctx context.Context, f storage.StatsFilter) ([]storage.DayCounts, error) {
	where, args := filterClause(f)
	rows, err := s.db.QueryContext(ctx, `
SELECT substr(created_at, 1, 10) AS day, `+countColumns+`
FROM comments
WHERE `+where+`
GROUP BY day
ORDER BY day`, args...)
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
	rows, err := s.db.QueryContext(ctx, `SELECT platform, `+countColumns+` FROM comments GROUP BY platform ORDER BY platform`)
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
	conds := []string{"content_url = ?", "platform = ?"}
	args := []any{f.URL, f.Platform}
	if f.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From.UTC().Format(timeLayout))
	}
	if f.To != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, f.To.UTC().Format(timeLayout))
	}
	return strings.Join(conds, " AND "), args
}
