// Package memory is the persistent record store behind the agent: every
// task, plan, action result, and approval lands here, and similarity queries
// over past records drive auto-approval and knowledge retrieval.
package memory

import (
	"context"
	"time"
)

// Record kinds written by the system. The column is free-form text; these
// constants cover the kinds the agent itself produces.
const (
	KindTask       = "task"
	KindPlan       = "plan"
	KindAction     = "action"
	KindApproval   = "approval"
	KindTaskResult = "task_result"
	KindPersona    = "persona"
	KindVoice      = "voice"
	KindNote       = "note"
	KindTypedInput = "typed_input"
)

// Record is one append-only memory row. Embedding is nil when no embedding
// backend was available at write time; it may be backfilled later, which is
// the only mutation a record ever sees.
type Record struct {
	ID        int64          `json:"id"`
	Kind      string         `json:"type"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float64      `json:"embedding,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Scored is a record with a similarity score attached by QuerySimilar.
type Scored struct {
	Record
	Score float64 `json:"score"`
}

// Store is the persistence interface for memory records.
// Implementations: *SQLiteStore (default, local file) and postgres.Store.
type Store interface {
	// Add appends a record, computing an embedding when a backend is
	// configured (nil embedding otherwise). Returns the new record id.
	Add(ctx context.Context, kind, text string, metadata map[string]any) (int64, error)
	// All returns up to limit records, most recent first.
	All(ctx context.Context, limit int) ([]Record, error)
	// QuerySimilar ranks records against text by embedding cosine
	// similarity, or by case-insensitive substring match (score 1.0) when
	// no embedding can be computed.
	QuerySimilar(ctx context.Context, text string, topK int) ([]Scored, error)
	// RebuildMissingEmbeddings backfills embeddings for up to limit
	// records that have none, returning how many were updated.
	RebuildMissingEmbeddings(ctx context.Context, limit int) (int, error)
	Close() error
}

// LatestOfKind returns the text of the most recent record of the given kind
// within the last `scan` records, or "" when none exists. Used for persona
// and preferred-voice lookups.
func LatestOfKind(ctx context.Context, s Store, kind string, scan int) (string, error) {
	recs, err := s.All(ctx, scan)
	if err != nil {
		return "", err
	}
	for _, r := range recs {
		if r.Kind == kind {
			return r.Text, nil
		}
	}
	return "", nil
}
