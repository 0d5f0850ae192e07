package analytics

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/serenitylabs/recall/migrations"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := migrations.RunMigrations(db, filepath.Join(cwd, "..", "migrations"), zerolog.Nop()); err != nil {
		_ = db.Close() //nolint:errcheck // Cleanup on error
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *sql.DB) *Service {
	t.Helper()
	return NewService(db, zerolog.Nop())
}

func addLogs(t *testing.T, svc *Service, userID int64, logs []struct {
	emotion    string
	confidence float64
}) {
	t.Helper()
	ctx := context.Background()
	for _, log := range logs {
		if err := svc.AddEmotionLog(ctx, userID, log.emotion, log.confidence); err != nil {
			t.Fatalf("AddEmotionLog: %v", err)
		}
	}
}

func TestComputeInsight_InsufficientData(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	svc := newTestService(t, db)
	addLogs(t, svc, 1, []struct {
		emotion    string
		confidence float64
	}{
		{"sadness", 0.9},
		{"joy", 0.8},
	})

	insight, err := svc.ComputeInsight(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("ComputeInsight: %v", err)
	}
	if !insight.InsufficientData {
		t.Errorf("two logs should be insufficient")
	}
	if insight.DominantEmotion != "neutral" {
		t.Errorf("default dominant = %q, want neutral", insight.DominantEmotion)
	}
	if insight.Distribution["neutral"] != 1.0 {
		t.Errorf("default distribution should concentrate on neutral: %+v", insight.Distribution)
	}
	if insight.Trend != "unknown" {
		t.Errorf("default trend = %q, want unknown", insight.Trend)
	}
}

func TestComputeInsight_DominantAndDistribution(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	svc := newTestService(t, db)
	addLogs(t, svc, 1, []struct {
		emotion    string
		confidence float64
	}{
		{"sadness", 0.9},
		{"sadness", 0.9},
		{"sadness", 0.9},
		{"joy", 0.9},
	})

	insight, err := svc.ComputeInsight(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("ComputeInsight: %v", err)
	}
	if insight.InsufficientData {
		t.Fatalf("four logs should be sufficient")
	}
	if insight.DominantEmotion != "sadness" {
		t.Errorf("dominant = %q, want sadness", insight.DominantEmotion)
	}
	if insight.DominancePct != 0.75 {
		t.Errorf("dominance = %.2f, want 0.75", insight.DominancePct)
	}
	if insight.Distribution["joy"] != 0.25 {
		t.Errorf("joy share = %.2f, want 0.25", insight.Distribution["joy"])
	}
	if insight.LogCount != 4 {
		t.Errorf("log count = %d, want 4", insight.LogCount)
	}
}

func TestComputeInsight_TrendDetection(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	svc := newTestService(t, db)
	addLogs(t, svc, 1, []struct {
		emotion    string
		confidence float64
	}{
		{"sadness", 0.9},
		{"sadness", 0.9},
		{"joy", 0.9},
		{"joy", 0.9},
	})

	insight, err := svc.ComputeInsight(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("ComputeInsight: %v", err)
	}
	if insight.Trend != "changing" {
		t.Errorf("trend = %q, want changing", insight.Trend)
	}
	if insight.TrendDescription != "Shifted from sadness to joy" {
		t.Errorf("unexpected trend description: %q", insight.TrendDescription)
	}
}

func TestComputeInsight_Volatility(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	svc := newTestService(t, db)
	addLogs(t, svc, 1, []struct {
		emotion    string
		confidence float64
	}{
		{"neutral", 0.1},
		{"neutral", 0.9},
		{"neutral", 0.1},
		{"neutral", 0.9},
	})

	insight, err := svc.ComputeInsight(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("ComputeInsight: %v", err)
	}
	if !insight.VolatilityFlag {
		t.Errorf("wide confidence swings should flag volatility")
	}

	addLogs(t, svc, 2, []struct {
		emotion    string
		confidence float64
	}{
		{"neutral", 0.8},
		{"neutral", 0.8},
		{"neutral", 0.8},
	})
	steady, err := svc.ComputeInsight(context.Background(), 2, 30)
	if err != nil {
		t.Fatalf("ComputeInsight: %v", err)
	}
	if steady.VolatilityFlag {
		t.Errorf("constant confidence should not flag volatility")
	}
}

func TestComputeInsight_WindowExcludesOldLogs(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	svc := newTestService(t, db)
	old := time.Now().Add(-40 * 24 * time.Hour).Unix()
	for i := 0; i < 5; i++ {
		if _, err := db.Exec(
			"INSERT INTO emotion_logs (user_id, primary_emotion, confidence, created_at) VALUES (?, ?, ?, ?)",
			1, "anger", 0.9, old,
		); err != nil {
			t.Fatalf("insert old log: %v", err)
		}
	}

	insight, err := svc.ComputeInsight(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("ComputeInsight: %v", err)
	}
	if !insight.InsufficientData {
		t.Errorf("logs outside the window should not count")
	}
}

func TestConfidenceStddev(t *testing.T) {
	logs := []emotionLog{
		{confidence: 0.5}, {confidence: 0.5}, {confidence: 0.5},
	}
	if got := confidenceStddev(logs); got != 0 {
		t.Errorf("constant series stddev = %f, want 0", got)
	}
	if got := confidenceStddev([]emotionLog{{confidence: 0.9}}); got != 0 {
		t.Errorf("single sample stddev = %f, want 0", got)
	}
}

func TestDominantEmotion_DeterministicTies(t *testing.T) {
	distribution := map[string]float64{"sadness": 0.5, "joy": 0.5}
	dominant, pct := dominantEmotion(distribution)
	if dominant != "sadness" {
		t.Errorf("ties should resolve in base-emotion order, got %q", dominant)
	}
	if pct != 0.5 {
		t.Errorf("pct = %.2f, want 0.5", pct)
	}
}
