package memory

import (
	sq "github.com/Masterminds/squirrel"
)

// StatementBuilder returns a Squirrel StatementBuilder configured for SQLite.
// SQLite uses '?' as placeholders, which is Squirrel's default.
func StatementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder
}

// SelectSemanticMemoryColumns returns the standard column list for
// semantic_memories SELECT queries.
func SelectSemanticMemoryColumns() []string {
	return []string{
		"id", "user_id", "conversation_id", "turn_id", "content",
		"embedding", "emotion_label", "importance", "source", "created_at",
	}
}
