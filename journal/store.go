// Package journal persists and qualifies journal entries extracted from
// conversations. Failures here must never block a chat turn; callers treat
// every operation as advisory.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Entry is one journal entry with its topical tags.
type Entry struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ConversationID int64     `json:"conversation_id,omitempty"`
	TurnID         int64     `json:"turn_id,omitempty"`
	Title          string    `json:"title,omitempty"`
	Content        string    `json:"content"`
	Emotion        string    `json:"emotion,omitempty"`
	Mood           string    `json:"mood,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store handles journal entry persistence.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	nowFn  func() time.Time
}

// NewStore creates a journal Store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "journal_store").Logger(),
		nowFn:  time.Now,
	}
}

func (s *Store) now() time.Time {
	return s.nowFn()
}

// CreateEntry writes a journal entry derived from a turn. Tags are always
// stored as a JSON array; the legacy comma-delimited form is read-only.
func (s *Store) CreateEntry(ctx context.Context, entry Entry) (int64, error) {
	if strings.TrimSpace(entry.Content) == "" {
		return 0, fmt.Errorf("journal entry content is empty")
	}

	var tagsJSON []byte
	if len(entry.Tags) > 0 {
		var err error
		tagsJSON, err = json.Marshal(entry.Tags)
		if err != nil {
			return 0, fmt.Errorf("marshal tags: %w", err)
		}
	}

	var conversationVal, turnVal interface{}
	if entry.ConversationID != 0 {
		conversationVal = entry.ConversationID
	}
	if entry.TurnID != 0 {
		turnVal = entry.TurnID
	}

	query := sq.Insert("journal_entries").
		Columns("user_id", "conversation_id", "turn_id", "title", "content",
			"emotion", "mood", "tags_json", "created_at").
		Values(entry.UserID, conversationVal, turnVal, entry.Title, entry.Content,
			entry.Emotion, entry.Mood, tagsJSON, s.now().Unix())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return 0, fmt.Errorf("insert journal entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Int64("id", id).
		Int64("user_id", entry.UserID).
		Str("mood", entry.Mood).
		Strs("tags", entry.Tags).
		Msg("Journal entry created")
	return id, nil
}

// RecentEntries returns the newest entries for a user, newest first.
func (s *Store) RecentEntries(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 5
	}

	query := sq.Select("id", "user_id", "conversation_id", "turn_id", "title",
		"content", "emotion", "mood", "tags_json", "created_at").
		From("journal_entries").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)) //nolint:gosec // limit is validated above

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // no remedy for rows close error

	var entries []Entry
	for rows.Next() {
		var (
			entry          Entry
			conversationID sql.NullInt64
			turnID         sql.NullInt64
			title          sql.NullString
			emotion        sql.NullString
			mood           sql.NullString
			tagsRaw        sql.NullString
			createdAt      int64
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &conversationID, &turnID, &title,
			&entry.Content, &emotion, &mood, &tagsRaw, &createdAt); err != nil {
			return nil, err
		}
		entry.ConversationID = conversationID.Int64
		entry.TurnID = turnID.Int64
		entry.Title = title.String
		entry.Emotion = emotion.String
		entry.Mood = mood.String
		entry.CreatedAt = time.Unix(createdAt, 0)
		if tagsRaw.Valid {
			entry.Tags = NormalizeTags(tagsRaw.String)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// NormalizeTags parses a persisted tag value into the canonical ordered list
// of strings. New rows store a JSON array, but rows written by older versions
// may carry a comma-delimited string; both forms are accepted on read.
func NormalizeTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		tags = strings.Split(raw, ",")
	}

	cleaned := lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = strings.TrimSpace(tag)
		return tag, tag != ""
	})
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}
