package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertContextCache records the latest summarization state for a
// conversation. One row per conversation; repeat calls overwrite.
func (s *Store) UpsertContextCache(
	ctx context.Context,
	conversationID int64,
	summary string,
	lastTurnID int64,
	turnCount int,
) error {
	query := StatementBuilder().
		Insert("conversation_context_cache").
		Columns("conversation_id", "summary", "last_turn_id", "turn_count", "updated_at").
		Values(conversationID, summary, nullableID(lastTurnID), turnCount, s.now().Unix()).
		Suffix(`ON CONFLICT(conversation_id) DO UPDATE SET
summary = excluded.summary,
last_turn_id = excluded.last_turn_id,
turn_count = excluded.turn_count,
updated_at = excluded.updated_at`)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("upsert context cache: %w", err)
	}

	s.logger.Debug().
		Str("method", "UpsertContextCache").
		Int64("conversation_id", conversationID).
		Int("turn_count", turnCount).
		Msg("context cache updated")
	return nil
}

// GetContextCache returns the cached state for a conversation, or nil when
// the conversation has never been summarized.
func (s *Store) GetContextCache(ctx context.Context, conversationID int64) (*ContextCacheEntry, error) {
	query := StatementBuilder().
		Select("conversation_id", "summary", "last_turn_id", "turn_count", "updated_at").
		From("conversation_context_cache").
		Where("conversation_id = ?", conversationID)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	var (
		entry      ContextCacheEntry
		summary    sql.NullString
		lastTurnID sql.NullInt64
		updatedAt  int64
	)
	row := s.db.QueryRowContext(ctx, queryStr, args...)
	if err := row.Scan(&entry.ConversationID, &summary, &lastTurnID, &entry.TurnCount, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query context cache: %w", err)
	}
	if summary.Valid {
		entry.Summary = summary.String
	}
	if lastTurnID.Valid {
		entry.LastTurnID = lastTurnID.Int64
	}
	entry.UpdatedAt = time.Unix(updatedAt, 0)
	return &entry, nil
}
