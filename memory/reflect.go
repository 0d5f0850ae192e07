package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"
)

// reflectionJournalLimit is how many recent journal entries feed a reflection.
const reflectionJournalLimit = 5

// GetOrSynthesizeReflection returns the user's meta reflection, serving the
// cached row while fresh and synthesizing a new one from recent journal
// entries and the given profile once stale. Synthesis is deterministic and
// always yields a non-empty summary, even with zero journal entries.
func (s *Store) GetOrSynthesizeReflection(
	ctx context.Context,
	userID int64,
	profile *ProfileSummary,
) (*ReflectionSummary, error) {
	nowTime := s.now()
	ttl := time.Duration(s.opts.ReflectionTTLHours) * time.Hour

	cached, err := s.latestReflection(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cached != nil && nowTime.Sub(cached.GeneratedAt) <= ttl {
		s.logger.Debug().
			Str("method", "GetOrSynthesizeReflection").
			Int64("user_id", userID).
			Time("generated_at", cached.GeneratedAt).
			Msg("serving fresh reflection")
		return cached, nil
	}

	synthesized, err := s.synthesizeReflection(ctx, userID, profile, nowTime)
	if err != nil {
		return nil, err
	}

	patternsJSON, err := json.Marshal(synthesized.DetectedPatterns)
	if err != nil {
		return nil, fmt.Errorf("marshal patterns: %w", err)
	}

	query := StatementBuilder().
		Insert("meta_reflections").
		Columns("user_id", "reflection_summary", "detected_patterns_json", "generated_at").
		Values(userID, synthesized.Summary, string(patternsJSON), nowTime.Unix())
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return nil, fmt.Errorf("insert meta_reflection: %w", err)
	}

	s.logger.Info().
		Str("method", "GetOrSynthesizeReflection").
		Int64("user_id", userID).
		Str("summary", truncateString(synthesized.Summary, 60)).
		Msg("meta reflection synthesized")
	return synthesized, nil
}

func (s *Store) synthesizeReflection(
	ctx context.Context,
	userID int64,
	profile *ProfileSummary,
	nowTime time.Time,
) (*ReflectionSummary, error) {
	entries, err := s.journals.RecentEntries(ctx, userID, reflectionJournalLimit)
	if err != nil {
		return nil, fmt.Errorf("load journal entries: %w", err)
	}

	var tags []string
	for _, entry := range entries {
		tags = append(tags, entry.Tags...)
	}
	uniqueTags := lo.Uniq(lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = strings.TrimSpace(tag)
		return tag, tag != ""
	}))
	sort.Strings(uniqueTags)

	tagSummary := strings.Join(uniqueTags, ", ")
	if tagSummary == "" {
		tagSummary = "No tags logged recently."
	}

	dominant := "neutral"
	dominancePct := 0
	resiliencePct := 0
	trend := ""
	if profile != nil {
		if profile.DominantEmotion != "" {
			dominant = profile.DominantEmotion
		}
		dominancePct = int(math.Round(profile.DominancePct * 100))
		resiliencePct = int(math.Round(profile.ResilienceScore * 100))
		trend = profile.Trend
	}

	summary := fmt.Sprintf(
		"Dominant emotion over the last month: %s (%d%% of logs). "+
			"Resilience indicators sit near %d%%. "+
			"Recent entries mention: %s.",
		dominant, dominancePct, resiliencePct, tagSummary,
	)

	patterns := map[string]interface{}{
		"dominant_emotion": dominant,
		"trend":            trend,
		"journal_tags":     uniqueTags,
	}

	return &ReflectionSummary{
		Summary:          summary,
		DetectedPatterns: patterns,
		GeneratedAt:      nowTime,
	}, nil
}

func (s *Store) latestReflection(ctx context.Context, userID int64) (*ReflectionSummary, error) {
	query := StatementBuilder().
		Select("reflection_summary", "detected_patterns_json", "generated_at").
		From("meta_reflections").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("generated_at DESC").
		Limit(1)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	var (
		summary      string
		patternsJSON sql.NullString
		generatedAt  int64
	)
	row := s.db.QueryRowContext(ctx, queryStr, args...)
	if err := row.Scan(&summary, &patternsJSON, &generatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query meta_reflection: %w", err)
	}

	var patterns map[string]interface{}
	if patternsJSON.Valid && patternsJSON.String != "" {
		if err := json.Unmarshal([]byte(patternsJSON.String), &patterns); err != nil {
			s.logger.Warn().
				Str("method", "latestReflection").
				Err(err).
				Msg("malformed detected patterns, returning reflection without them")
			patterns = nil
		}
	}
	return &ReflectionSummary{
		Summary:          summary,
		DetectedPatterns: patterns,
		GeneratedAt:      time.Unix(generatedAt, 0),
	}, nil
}
