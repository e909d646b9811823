// Package store owns the durable dedup set and the posted-thread log.
// The orchestrator never touches the tables directly; every mutation
// goes through the Store interface so backends stay interchangeable.
//
// Failure semantics: read operations that cannot reach storage return
// an empty/false result and log a warning, so a cycle can proceed
// conservatively. Write operations propagate errors - silently losing
// a seen marking risks a duplicate post on the next cycle, which is
// the one invariant this package must protect.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/aka-Rakesh/Xbot/pkg/models"
)

// Store is the persistence contract used by the orchestrator.
type Store interface {
	// IsSeen reports whether the opportunity id has already been
	// handled. Pure lookup, no side effect.
	IsSeen(ctx context.Context, id string) bool

	// MarkSeen records an opportunity as handled. Idempotent: marking
	// an id that already exists is a no-op, never an error.
	MarkSeen(ctx context.Context, opp models.Opportunity) error

	// RecordPost appends a record for a successfully posted thread.
	RecordPost(ctx context.Context, rec models.PostRecord) error

	// CountPostsToday counts posts whose posted_at falls within the
	// current calendar day in the process's local time zone.
	CountPostsToday(ctx context.Context) int

	// RecentPosts returns posts from the last window. contentType
	// filters when non-empty. Ordering is not guaranteed; callers
	// that need it must sort.
	RecentPosts(ctx context.Context, window time.Duration, contentType string) []models.PostRecord

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close()
}

// dayStart returns local midnight for the given instant. The quota
// window is wall-clock days, not UTC days.
func dayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// joinMessageIDs flattens an ordered id list for storage.
func joinMessageIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// splitMessageIDs restores an ordered id list from storage.
func splitMessageIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
