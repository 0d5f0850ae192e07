package conversations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Turn roles. The memory subsystem only ever reads these; classification and
// response generation happen upstream.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is a single conversation message, ordered by creation time.
type Turn struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	EmotionLabel   string    `json:"emotion_label,omitempty"` // supplied by the upstream classifier
	CreatedAt      time.Time `json:"created_at"`
}

// Store handles persistence of conversations and their turns.
type Store struct {
	db *sql.DB
}

// NewStore creates a new conversation Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateConversation inserts a new conversation for a user and returns its id.
func (s *Store) CreateConversation(ctx context.Context, userID int64, title string) (int64, error) {
	now := time.Now().Unix()
	query := sq.Insert("conversations").
		Columns("user_id", "title", "created_at").
		Values(userID, title, now)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return 0, fmt.Errorf("insert conversation: %w", err)
	}
	return res.LastInsertId()
}

// AppendTurn saves a turn to the conversation history and returns its id.
// emotionLabel may be empty when no classification is available.
func (s *Store) AppendTurn(ctx context.Context, conversationID int64, role, content, emotionLabel string) (int64, error) {
	now := time.Now().Unix()

	var emotionVal interface{}
	if emotionLabel != "" {
		emotionVal = emotionLabel
	}

	query := sq.Insert("turns").
		Columns("conversation_id", "role", "content", "emotion_label", "created_at").
		Values(conversationID, role, content, emotionVal, now)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return 0, fmt.Errorf("insert turn: %w", err)
	}
	return res.LastInsertId()
}

// ListTurns returns all turns of a conversation in chronological order.
func (s *Store) ListTurns(ctx context.Context, conversationID int64) ([]Turn, error) {
	query := sq.Select("id", "conversation_id", "role", "content", "emotion_label", "created_at").
		From("turns").
		Where(sq.Eq{"conversation_id": conversationID}).
		OrderBy("created_at ASC", "id ASC")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close() //nolint:errcheck // no remedy for rows close error

	var turns []Turn
	for rows.Next() {
		var (
			t         Turn
			emotion   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Role, &t.Content, &emotion, &createdAt); err != nil {
			return nil, err
		}
		if emotion.Valid {
			t.EmotionLabel = emotion.String
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}

// DeleteConversation removes a conversation; turns and the context cache row
// go with it via ON DELETE CASCADE.
func (s *Store) DeleteConversation(ctx context.Context, conversationID int64) error {
	query := sq.Delete("conversations").Where(sq.Eq{"id": conversationID})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}
