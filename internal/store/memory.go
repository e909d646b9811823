package store

import (
	"context"
	"sync"
	"time"

	"github.com/aka-Rakesh/Xbot/pkg/models"
)

// InMemoryStore is a map-backed Store for tests and local dry runs.
type InMemoryStore struct {
	mu     sync.Mutex
	seen   map[string]models.SeenRecord
	posts  []models.PostRecord
	nextID int64
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		seen:   make(map[string]models.SeenRecord),
		nextID: 1,
	}
}

func (s *InMemoryStore) IsSeen(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

func (s *InMemoryStore) MarkSeen(ctx context.Context, opp models.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[opp.ID]; ok {
		return nil
	}

	s.seen[opp.ID] = models.SeenRecord{
		ID:          opp.ID,
		Title:       opp.Title,
		URL:         opp.URL,
		Description: opp.Description,
		SeenAt:      time.Now(),
	}
	return nil
}

func (s *InMemoryStore) RecordPost(ctx context.Context, rec models.PostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if rec.PostedAt.IsZero() {
		rec.PostedAt = time.Now()
	}
	if rec.ContentType == "" {
		rec.ContentType = models.ContentTypeBounty
	}

	s.posts = append(s.posts, rec)
	return nil
}

func (s *InMemoryStore) CountPostsToday(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := dayStart(time.Now())
	count := 0
	for _, p := range s.posts {
		if !p.PostedAt.Before(start) {
			count++
		}
	}
	return count
}

func (s *InMemoryStore) RecentPosts(ctx context.Context, window time.Duration, contentType string) []models.PostRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-window)
	var records []models.PostRecord
	for _, p := range s.posts {
		if p.PostedAt.Before(cutoff) {
			continue
		}
		if contentType != "" && p.ContentType != contentType {
			continue
		}
		records = append(records, p)
	}
	return records
}

// SeenCount reports the number of seen records. Test helper.
func (s *InMemoryStore) SeenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// AllPosts returns a copy of every post record. Test helper.
func (s *InMemoryStore) AllPosts() []models.PostRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PostRecord, len(s.posts))
	copy(out, s.posts)
	return out
}

func (s *InMemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *InMemoryStore) Close() {}
