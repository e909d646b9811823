package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/aka-Rakesh/Xbot/pkg/models"
)

// PostgresStore is the managed-backend implementation of Store, built
// on a pgx connection pool shared with the job queue.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Pool exposes the underlying pool so the job queue can share it.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS seen_opportunities (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			seen_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			opportunity_id TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT 'bounty',
			posted_at TIMESTAMPTZ NOT NULL,
			root_message_id TEXT NOT NULL,
			message_ids TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts (posted_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

// IsSeen reports whether the id has been handled. Storage failures
// degrade to false with a warning so the cycle can continue.
func (s *PostgresStore) IsSeen(ctx context.Context, id string) bool {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM seen_opportunities WHERE id = $1)`
	if err := s.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		log.Warn().Err(err).Str("opportunity_id", id).Msg("seen lookup failed, treating as unseen")
		return false
	}
	return exists
}

// MarkSeen inserts the seen record. Duplicate ids are a no-op.
func (s *PostgresStore) MarkSeen(ctx context.Context, opp models.Opportunity) error {
	query := `
		INSERT INTO seen_opportunities (id, title, url, description, seen_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query, opp.ID, opp.Title, opp.URL, opp.Description, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark opportunity %s seen: %w", opp.ID, err)
	}

	return nil
}

// RecordPost appends a post record.
func (s *PostgresStore) RecordPost(ctx context.Context, rec models.PostRecord) error {
	postedAt := rec.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now()
	}

	contentType := rec.ContentType
	if contentType == "" {
		contentType = models.ContentTypeBounty
	}

	query := `
		INSERT INTO posts (opportunity_id, content_type, posted_at, root_message_id, message_ids)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, rec.OpportunityID, contentType, postedAt, rec.RootMessageID, joinMessageIDs(rec.MessageIDs))
	if err != nil {
		return fmt.Errorf("failed to record post for opportunity %s: %w", rec.OpportunityID, err)
	}

	return nil
}

// CountPostsToday counts posts since local midnight. Storage failures
// degrade to zero with a warning.
func (s *PostgresStore) CountPostsToday(ctx context.Context) int {
	var count int
	query := `SELECT COUNT(*) FROM posts WHERE posted_at >= $1`
	if err := s.pool.QueryRow(ctx, query, dayStart(time.Now())).Scan(&count); err != nil {
		log.Warn().Err(err).Msg("daily post count failed, reporting zero")
		return 0
	}
	return count
}

// RecentPosts returns posts from the last window. Storage failures
// degrade to an empty list with a warning.
func (s *PostgresStore) RecentPosts(ctx context.Context, window time.Duration, contentType string) []models.PostRecord {
	cutoff := time.Now().Add(-window)

	query := `
		SELECT id, opportunity_id, content_type, posted_at, root_message_id, message_ids
		FROM posts
		WHERE posted_at >= $1
	`
	args := []interface{}{cutoff}

	if contentType != "" {
		query += ` AND content_type = $2`
		args = append(args, contentType)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		log.Warn().Err(err).Msg("recent posts query failed, reporting none")
		return nil
	}
	defer rows.Close()

	var records []models.PostRecord
	for rows.Next() {
		var rec models.PostRecord
		var messageIDs string
		if err := rows.Scan(&rec.ID, &rec.OpportunityID, &rec.ContentType, &rec.PostedAt, &rec.RootMessageID, &messageIDs); err != nil {
			log.Warn().Err(err).Msg("recent posts scan failed")
			return nil
		}
		rec.MessageIDs = splitMessageIDs(messageIDs)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		log.Warn().Err(err).Msg("recent posts iteration failed")
		return nil
	}

	return records
}

// Ping verifies connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
