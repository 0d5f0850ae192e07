// Package analytics aggregates raw emotion logs into structured insights.
// It is purely statistical; no model calls are involved.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
)

// BaseEmotions is the closed set of emotions the upstream classifier emits.
var BaseEmotions = []string{"sadness", "joy", "anger", "fear", "neutral", "surprise", "disgust"}

// minLogs is the number of logs below which an insight is not meaningful.
const minLogs = 3

// volatilityThreshold is the confidence-stddev above which a mood is flagged volatile.
const volatilityThreshold = 0.25

// Insight is a time-windowed statistical summary of a user's emotion logs.
type Insight struct {
	UserID           int64              `json:"user_id"`
	PeriodDays       int                `json:"period_days"`
	LogCount         int                `json:"log_count"`
	InsufficientData bool               `json:"insufficient_data"`
	DominantEmotion  string             `json:"dominant_emotion"`
	DominancePct     float64            `json:"dominance_pct"`
	AvgConfidence    float64            `json:"avg_confidence"`
	Distribution     map[string]float64 `json:"emotion_distribution"`
	Trend            string             `json:"trend"` // "stable", "changing", "unknown"
	TrendDescription string             `json:"trend_description"`
	VolatilityFlag   bool               `json:"volatility_flag"`
	ComputedAt       time.Time          `json:"computed_at"`
}

type emotionLog struct {
	emotion    string
	confidence float64
}

// Service computes insights from the emotion_logs table.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates an analytics Service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "analytics").Logger(),
		now:    time.Now,
	}
}

// AddEmotionLog records one classified emotion observation for a user.
func (s *Service) AddEmotionLog(ctx context.Context, userID int64, emotion string, confidence float64) error {
	query := sq.Insert("emotion_logs").
		Columns("user_id", "primary_emotion", "confidence", "created_at").
		Values(userID, emotion, confidence, s.now().Unix())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// ComputeInsight aggregates the user's emotion logs over the trailing window.
// Fewer than three logs yields a safe neutral default rather than an error;
// storage failures are returned to the caller.
func (s *Service) ComputeInsight(ctx context.Context, userID int64, days int) (*Insight, error) {
	logs, err := s.recentLogs(ctx, userID, days)
	if err != nil {
		return nil, fmt.Errorf("fetch emotion logs: %w", err)
	}

	if len(logs) < minLogs {
		s.logger.Debug().
			Int64("user_id", userID).
			Int("log_count", len(logs)).
			Msg("Insufficient emotion logs, returning neutral insight")
		return s.defaultInsight(userID, days), nil
	}

	distribution := computeDistribution(logs)
	dominant, dominancePct := dominantEmotion(distribution)
	trend, trendDesc := detectTrend(logs)
	volatility := confidenceStddev(logs)

	var confidenceSum float64
	for _, log := range logs {
		confidenceSum += log.confidence
	}

	insight := &Insight{
		UserID:           userID,
		PeriodDays:       days,
		LogCount:         len(logs),
		InsufficientData: false,
		DominantEmotion:  dominant,
		DominancePct:     dominancePct,
		AvgConfidence:    confidenceSum / float64(len(logs)),
		Distribution:     distribution,
		Trend:            trend,
		TrendDescription: trendDesc,
		VolatilityFlag:   volatility > volatilityThreshold,
		ComputedAt:       s.now(),
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int("log_count", insight.LogCount).
		Str("dominant", insight.DominantEmotion).
		Str("trend", insight.Trend).
		Bool("volatile", insight.VolatilityFlag).
		Msg("Computed emotional insight")
	return insight, nil
}

func (s *Service) recentLogs(ctx context.Context, userID int64, days int) ([]emotionLog, error) {
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour).Unix()

	query := sq.Select("primary_emotion", "confidence").
		From("emotion_logs").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"created_at": cutoff}).
		OrderBy("created_at ASC")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // no remedy for rows close error

	var logs []emotionLog
	for rows.Next() {
		var log emotionLog
		if err := rows.Scan(&log.emotion, &log.confidence); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// computeDistribution returns per-emotion frequencies over the base set.
// Values sum to 1 across the emotions actually observed.
func computeDistribution(logs []emotionLog) map[string]float64 {
	counts := make(map[string]int)
	for _, log := range logs {
		counts[log.emotion]++
	}

	distribution := make(map[string]float64, len(BaseEmotions))
	total := float64(len(logs))
	for _, emotion := range BaseEmotions {
		distribution[emotion] = float64(counts[emotion]) / total
	}
	return distribution
}

func dominantEmotion(distribution map[string]float64) (string, float64) {
	dominant := "neutral"
	best := -1.0
	// Iterate the fixed list so ties resolve deterministically.
	for _, emotion := range BaseEmotions {
		if distribution[emotion] > best {
			dominant = emotion
			best = distribution[emotion]
		}
	}
	return dominant, best
}

// detectTrend compares the dominant emotion of the first and second half of
// the window.
func detectTrend(logs []emotionLog) (string, string) {
	if len(logs) < minLogs {
		return "unknown", "Insufficient data for trend"
	}

	mid := len(logs) / 2
	firstDominant, _ := dominantEmotion(computeDistribution(logs[:mid]))
	secondDominant, _ := dominantEmotion(computeDistribution(logs[mid:]))

	if firstDominant == secondDominant {
		return "stable", fmt.Sprintf("Consistent %s throughout period", firstDominant)
	}
	return "changing", fmt.Sprintf("Shifted from %s to %s", firstDominant, secondDominant)
}

// confidenceStddev is the sample standard deviation of classifier confidences.
func confidenceStddev(logs []emotionLog) float64 {
	if len(logs) < 2 {
		return 0
	}
	var sum float64
	for _, log := range logs {
		sum += log.confidence
	}
	mean := sum / float64(len(logs))

	var variance float64
	for _, log := range logs {
		d := log.confidence - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(logs)-1))
}

func (s *Service) defaultInsight(userID int64, days int) *Insight {
	distribution := make(map[string]float64, len(BaseEmotions))
	for _, emotion := range BaseEmotions {
		distribution[emotion] = 0
	}
	distribution["neutral"] = 1.0

	return &Insight{
		UserID:           userID,
		PeriodDays:       days,
		LogCount:         0,
		InsufficientData: true,
		DominantEmotion:  "neutral",
		DominancePct:     0,
		AvgConfidence:    0.5,
		Distribution:     distribution,
		Trend:            "unknown",
		TrendDescription: "No emotional data available",
		VolatilityFlag:   false,
		ComputedAt:       s.now(),
	}
}
