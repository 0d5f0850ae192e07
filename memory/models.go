package memory

import (
	"context"
	"time"

	"github.com/serenitylabs/recall/analytics"
	"github.com/serenitylabs/recall/conversations"
	"github.com/serenitylabs/recall/journal"
)

// SemanticMemory is a single long-term memory record. Records are immutable
// once written and strictly user-owned.
type SemanticMemory struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ConversationID int64     `json:"conversation_id,omitempty"`
	TurnID         int64     `json:"turn_id,omitempty"`
	Content        string    `json:"content"`
	Embedding      []float32 `json:"embedding,omitempty"`
	EmotionLabel   string    `json:"emotion_label,omitempty"`
	Importance     float64   `json:"importance"`
	Source         string    `json:"source"` // "chat", "seed", ...
	CreatedAt      time.Time `json:"created_at"`
}

// Match is one semantic-memory retrieval result.
type Match struct {
	Content      string  `json:"content"`
	EmotionLabel string  `json:"emotion_label,omitempty"`
	Importance   float64 `json:"importance"`
	MatchScore   float64 `json:"match_score"`
	Source       string  `json:"source"`
}

// ContextCacheEntry is the cached summarization state of one conversation.
// At most one row exists per conversation.
type ContextCacheEntry struct {
	ConversationID int64     `json:"conversation_id"`
	Summary        string    `json:"summary,omitempty"`
	LastTurnID     int64     `json:"last_turn_id,omitempty"`
	TurnCount      int       `json:"turn_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ShortTermContext is the token-bounded slice of a conversation handed to
// response generation.
type ShortTermContext struct {
	Summary     string               `json:"summary,omitempty"`
	RecentTurns []conversations.Turn `json:"recent_turns"`
}

// ProfileSummary is the compact emotional-profile view exposed in a bundle.
type ProfileSummary struct {
	DominantEmotion string    `json:"dominant_emotion,omitempty"`
	DominancePct    float64   `json:"dominance_pct"`
	VolatilityIndex float64   `json:"volatility_index"`
	ResilienceScore float64   `json:"resilience_score"`
	LogCount        int       `json:"log_count"`
	Trend           string    `json:"trend,omitempty"`
	ComputedAt      time.Time `json:"computed_at"`
}

// ReflectionSummary is the compact meta-reflection view exposed in a bundle.
type ReflectionSummary struct {
	Summary          string                 `json:"summary"`
	DetectedPatterns map[string]interface{} `json:"detected_patterns,omitempty"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// MemoryBundle is the transient composition handed to response generation
// for one chat turn. It is never persisted.
type MemoryBundle struct {
	ShortTerm       ShortTermContext   `json:"short_term"`
	SemanticMatches []Match            `json:"semantic_matches"`
	Profile         *ProfileSummary    `json:"profile,omitempty"`
	Reflection      *ReflectionSummary `json:"reflection,omitempty"`
}

// InsightProvider computes windowed emotional insights. Implemented by the
// analytics package; stubbed in tests.
type InsightProvider interface {
	ComputeInsight(ctx context.Context, userID int64, days int) (*analytics.Insight, error)
}

// JournalSource supplies recent journal entries for reflection synthesis.
// Implemented by the journal package; stubbed in tests.
type JournalSource interface {
	RecentEntries(ctx context.Context, userID int64, limit int) ([]journal.Entry, error)
}
