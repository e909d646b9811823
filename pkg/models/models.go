package models

import "time"

// ContentTypeBounty is the only content type the pipeline currently
// produces. PostRecord keeps the column so read-side filters keep
// working if more types are added.
const ContentTypeBounty = "bounty"

// Opportunity is one discovered item that may be turned into a thread.
// It is transient: only its ID and metadata are persisted once the
// item has been processed.
type Opportunity struct {
	// ID is stable across runs: derived from the URL path segment, or
	// a content hash of the title when the URL carries no usable slug.
	// Dedup depends on this stability.
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Description  string    `json:"description"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// SeenRecord marks an opportunity as handled. At most one record
// exists per opportunity ID; inserts are idempotent.
type SeenRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	SeenAt      time.Time `json:"seen_at"`
}

// PostRecord is the durable log entry for one successfully posted
// thread. It feeds read-side aggregates only and is never consulted
// for dedup decisions.
type PostRecord struct {
	ID            int64     `json:"id"`
	OpportunityID string    `json:"opportunity_id"`
	ContentType   string    `json:"content_type"`
	PostedAt      time.Time `json:"posted_at"`
	RootMessageID string    `json:"root_message_id"`
	// MessageIDs is ordered, root first.
	MessageIDs []string `json:"message_ids"`
}
