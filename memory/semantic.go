package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/serenitylabs/recall/embedding"
)

// candidateLimit bounds the importance-ordered pool scanned during
// retrieval. Similarity is computed in process, so the pool stays small.
const candidateLimit = 50

// MaybeStoreSemanticMemory scores a turn for long-term retention and stores
// it when the score clears the configured threshold. Returns whether a
// record was written. An empty source defaults to "chat". Turns that fail to
// embed are skipped, not errored: storage is advisory and must never block
// the chat path.
func (s *Store) MaybeStoreSemanticMemory(
	ctx context.Context,
	userID, conversationID, turnID int64,
	content, emotionLabel, source string,
) (bool, error) {
	if strings.TrimSpace(content) == "" {
		return false, nil
	}
	if source == "" {
		source = "chat"
	}

	importance := ScoreImportance(content, emotionLabel)
	if importance < s.opts.StoreThreshold {
		s.logger.Debug().
			Str("method", "MaybeStoreSemanticMemory").
			Int64("user_id", userID).
			Float64("importance", importance).
			Msg("below storage threshold, skipping")
		return false, nil
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.logger.Warn().
			Str("method", "MaybeStoreSemanticMemory").
			Int64("user_id", userID).
			Err(err).
			Msg("embedding failed, skipping storage")
		return false, nil
	}
	if len(vec) == 0 {
		return false, nil
	}

	query := StatementBuilder().
		Insert("semantic_memories").
		Columns("user_id", "conversation_id", "turn_id", "content",
			"embedding", "emotion_label", "importance", "source", "created_at").
		Values(userID, nullableID(conversationID), nullableID(turnID), content,
			embedding.EncodeVector(vec), emotionLabel, importance, source, s.now().Unix())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return false, fmt.Errorf("insert semantic_memory: %w", err)
	}

	s.logger.Info().
		Str("method", "MaybeStoreSemanticMemory").
		Int64("user_id", userID).
		Int64("conversation_id", conversationID).
		Str("content", truncateString(content, 40)).
		Float64("importance", importance).
		Msg("semantic memory stored")
	return true, nil
}

// StoreSeedMemory writes a memory directly, bypassing the importance gate.
// Used for operator-provided facts about a user.
func (s *Store) StoreSeedMemory(
	ctx context.Context,
	userID int64,
	content, emotionLabel string,
	importance float64,
) (SemanticMemory, error) {
	if strings.TrimSpace(content) == "" {
		return SemanticMemory{}, fmt.Errorf("content is empty")
	}
	if importance <= 0 {
		importance = 0.8
	}
	if importance > 1 {
		importance = 1
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return SemanticMemory{}, fmt.Errorf("embed seed memory: %w", err)
	}
	if len(vec) == 0 {
		return SemanticMemory{}, fmt.Errorf("empty embedding for seed memory")
	}

	nowTime := s.now()
	query := StatementBuilder().
		Insert("semantic_memories").
		Columns("user_id", "conversation_id", "turn_id", "content",
			"embedding", "emotion_label", "importance", "source", "created_at").
		Values(userID, nil, nil, content,
			embedding.EncodeVector(vec), emotionLabel, importance, "seed", nowTime.Unix())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return SemanticMemory{}, fmt.Errorf("build insert query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return SemanticMemory{}, fmt.Errorf("insert seed memory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return SemanticMemory{}, err
	}

	s.logger.Info().
		Str("method", "StoreSeedMemory").
		Int64("user_id", userID).
		Int64("id", id).
		Msg("seed memory stored")

	return SemanticMemory{
		ID:           id,
		UserID:       userID,
		Content:      content,
		Embedding:    vec,
		EmotionLabel: emotionLabel,
		Importance:   importance,
		Source:       "seed",
		CreatedAt:    nowTime,
	}, nil
}

// RetrieveSemanticMemories embeds the query text and returns the user's
// most similar memories, best first. Similarity is cosine clamped to [0, 1];
// non-positive matches are dropped.
func (s *Store) RetrieveSemanticMemories(
	ctx context.Context,
	userID int64,
	queryText string,
	limit int,
) ([]Match, error) {
	if limit <= 0 {
		limit = s.opts.RetrieveLimit
	}
	if strings.TrimSpace(queryText) == "" {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVec) == 0 {
		return nil, nil
	}

	query := StatementBuilder().
		Select(SelectSemanticMemoryColumns()...).
		From("semantic_memories").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("importance DESC", "created_at DESC").
		Limit(uint64(candidateLimit))

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query semantic_memories: %w", err)
	}
	defer rows.Close() //nolint:errcheck // no remedy for rows close error

	var matches []Match
	scanned := 0
	for rows.Next() {
		mem, err := loadSemanticMemoryFromRow(rows)
		if err != nil {
			return nil, err
		}
		scanned++

		if len(mem.Embedding) == 0 {
			continue
		}
		score := clampUnit(embedding.CosineSimilarity(queryVec, mem.Embedding))
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{
			Content:      mem.Content,
			EmotionLabel: mem.EmotionLabel,
			Importance:   mem.Importance,
			MatchScore:   score,
			Source:       mem.Source,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	s.logger.Debug().
		Str("method", "RetrieveSemanticMemories").
		Int64("user_id", userID).
		Int("scanned", scanned).
		Int("returned", len(matches)).
		Msg("semantic retrieval done")
	return matches, nil
}

func loadSemanticMemoryFromRow(rows *sql.Rows) (*SemanticMemory, error) {
	var (
		id             int64
		userID         int64
		conversationID sql.NullInt64
		turnID         sql.NullInt64
		content        string
		embBlob        []byte
		emotionLabel   sql.NullString
		importance     float64
		source         string
		createdAt      int64
	)
	if err := rows.Scan(&id, &userID, &conversationID, &turnID, &content,
		&embBlob, &emotionLabel, &importance, &source, &createdAt); err != nil {
		return nil, err
	}

	vec, err := embedding.DecodeVector(embBlob)
	if err != nil {
		return nil, err
	}

	mem := &SemanticMemory{
		ID:         id,
		UserID:     userID,
		Content:    content,
		Embedding:  vec,
		Importance: importance,
		Source:     source,
		CreatedAt:  time.Unix(createdAt, 0),
	}
	if conversationID.Valid {
		mem.ConversationID = conversationID.Int64
	}
	if turnID.Valid {
		mem.TurnID = turnID.Int64
	}
	if emotionLabel.Valid {
		mem.EmotionLabel = emotionLabel.String
	}
	return mem, nil
}

func nullableID(id int64) interface{} {
	if id <= 0 {
		return nil
	}
	return id
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
