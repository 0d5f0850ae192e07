package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// GetOrComputeProfile returns the user's emotional profile, serving the
// cached row while it is fresh and recomputing from the analytics window
// once it goes stale. Recomputes update the existing row in place, so reads
// always see exactly one current profile per user.
func (s *Store) GetOrComputeProfile(ctx context.Context, userID int64) (*ProfileSummary, error) {
	nowTime := s.now()
	ttl := time.Duration(s.opts.ProfileTTLHours) * time.Hour

	rowID, cached, err := s.latestProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cached != nil && nowTime.Sub(cached.ComputedAt) <= ttl {
		s.logger.Debug().
			Str("method", "GetOrComputeProfile").
			Int64("user_id", userID).
			Time("computed_at", cached.ComputedAt).
			Msg("serving fresh profile")
		return cached, nil
	}

	insight, err := s.insights.ComputeInsight(ctx, userID, s.opts.ProfileWindowDays)
	if err != nil {
		return nil, fmt.Errorf("compute insight: %w", err)
	}

	anxiety := insight.Distribution["fear"] + insight.Distribution["anxious"]
	sadness := insight.Distribution["sadness"]
	volatility := 0.0
	resilience := 1.0
	if insight.VolatilityFlag {
		volatility = 1.0
		resilience = 0.5
	}

	distJSON, err := json.Marshal(insight.Distribution)
	if err != nil {
		return nil, fmt.Errorf("marshal distribution: %w", err)
	}

	windowStart := nowTime.Add(-time.Duration(insight.PeriodDays) * 24 * time.Hour)
	if rowID > 0 {
		query := StatementBuilder().
			Update("emotional_profiles").
			Set("period_days", insight.PeriodDays).
			Set("window_start", windowStart.Unix()).
			Set("window_end", nowTime.Unix()).
			Set("dominant_emotion", insight.DominantEmotion).
			Set("dominance_pct", insight.DominancePct).
			Set("anxiety_score", anxiety).
			Set("sadness_score", sadness).
			Set("resilience_score", resilience).
			Set("volatility_index", volatility).
			Set("log_count", insight.LogCount).
			Set("distribution_json", string(distJSON)).
			Set("trend", insight.Trend).
			Set("computed_at", nowTime.Unix()).
			Where(sq.Eq{"id": rowID})
		queryStr, args, err := query.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build update query: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
			return nil, fmt.Errorf("update emotional_profile: %w", err)
		}
	} else {
		query := StatementBuilder().
			Insert("emotional_profiles").
			Columns("user_id", "period_days", "window_start", "window_end",
				"dominant_emotion", "dominance_pct", "anxiety_score", "sadness_score",
				"resilience_score", "volatility_index", "log_count",
				"distribution_json", "trend", "computed_at").
			Values(userID, insight.PeriodDays, windowStart.Unix(), nowTime.Unix(),
				insight.DominantEmotion, insight.DominancePct, anxiety, sadness,
				resilience, volatility, insight.LogCount,
				string(distJSON), insight.Trend, nowTime.Unix())
		queryStr, args, err := query.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert query: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
			return nil, fmt.Errorf("insert emotional_profile: %w", err)
		}
	}

	s.logger.Info().
		Str("method", "GetOrComputeProfile").
		Int64("user_id", userID).
		Str("dominant", insight.DominantEmotion).
		Int("log_count", insight.LogCount).
		Msg("emotional profile recomputed")

	return &ProfileSummary{
		DominantEmotion: insight.DominantEmotion,
		DominancePct:    insight.DominancePct,
		VolatilityIndex: volatility,
		ResilienceScore: resilience,
		LogCount:        insight.LogCount,
		Trend:           insight.Trend,
		ComputedAt:      nowTime,
	}, nil
}

// latestProfile loads the most-recently-computed profile row for a user.
// Returns (0, nil, nil) when none exists.
func (s *Store) latestProfile(ctx context.Context, userID int64) (int64, *ProfileSummary, error) {
	query := StatementBuilder().
		Select("id", "dominant_emotion", "dominance_pct", "volatility_index",
			"resilience_score", "log_count", "trend", "computed_at").
		From("emotional_profiles").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("computed_at DESC").
		Limit(1)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return 0, nil, fmt.Errorf("build select query: %w", err)
	}

	var (
		rowID      int64
		dominant   sql.NullString
		trend      sql.NullString
		summary    ProfileSummary
		computedAt int64
	)
	row := s.db.QueryRowContext(ctx, queryStr, args...)
	if err := row.Scan(&rowID, &dominant, &summary.DominancePct, &summary.VolatilityIndex,
		&summary.ResilienceScore, &summary.LogCount, &trend, &computedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, nil
		}
		return 0, nil, fmt.Errorf("query emotional_profile: %w", err)
	}
	if dominant.Valid {
		summary.DominantEmotion = dominant.String
	}
	if trend.Valid {
		summary.Trend = trend.String
	}
	summary.ComputedAt = time.Unix(computedAt, 0)
	return rowID, &summary, nil
}
