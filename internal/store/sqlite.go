package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/aka-Rakesh/Xbot/pkg/models"
)

// SQLiteStore is the local file-based implementation of Store, for
// deployments without a managed Postgres. Timestamps are stored as
// unix seconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database file and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// The orchestrator is strictly sequential; a single connection
	// avoids sqlite write contention entirely.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS seen_opportunities (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			seen_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			opportunity_id TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT 'bounty',
			posted_at INTEGER NOT NULL,
			root_message_id TEXT NOT NULL,
			message_ids TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts (posted_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) IsSeen(ctx context.Context, id string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM seen_opportunities WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("opportunity_id", id).Msg("seen lookup failed, treating as unseen")
		return false
	}
	return true
}

func (s *SQLiteStore) MarkSeen(ctx context.Context, opp models.Opportunity) error {
	query := `
		INSERT OR IGNORE INTO seen_opportunities (id, title, url, description, seen_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, opp.ID, opp.Title, opp.URL, opp.Description, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to mark opportunity %s seen: %w", opp.ID, err)
	}

	return nil
}

func (s *SQLiteStore) RecordPost(ctx context.Context, rec models.PostRecord) error {
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
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, rec.OpportunityID, contentType, postedAt.Unix(), rec.RootMessageID, joinMessageIDs(rec.MessageIDs))
	if err != nil {
		return fmt.Errorf("failed to record post for opportunity %s: %w", rec.OpportunityID, err)
	}

	return nil
}

func (s *SQLiteStore) CountPostsToday(ctx context.Context) int {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE posted_at >= ?`, dayStart(time.Now()).Unix()).Scan(&count)
	if err != nil {
		log.Warn().Err(err).Msg("daily post count failed, reporting zero")
		return 0
	}
	return count
}

func (s *SQLiteStore) RecentPosts(ctx context.Context, window time.Duration, contentType string) []models.PostRecord {
	cutoff := time.Now().Add(-window).Unix()

	query := `
		SELECT id, opportunity_id, content_type, posted_at, root_message_id, message_ids
		FROM posts
		WHERE posted_at >= ?
	`
	args := []interface{}{cutoff}

	if contentType != "" {
		query += ` AND content_type = ?`
		args = append(args, contentType)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Warn().Err(err).Msg("recent posts query failed, reporting none")
		return nil
	}
	defer rows.Close()

	var records []models.PostRecord
	for rows.Next() {
		var rec models.PostRecord
		var postedAt int64
		var messageIDs string
		if err := rows.Scan(&rec.ID, &rec.OpportunityID, &rec.ContentType, &postedAt, &rec.RootMessageID, &messageIDs); err != nil {
			log.Warn().Err(err).Msg("recent posts scan failed")
			return nil
		}
		rec.PostedAt = time.Unix(postedAt, 0)
		rec.MessageIDs = splitMessageIDs(messageIDs)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		log.Warn().Err(err).Msg("recent posts iteration failed")
		return nil
	}

	return records
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}
