package memory

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestGetOrComputeProfile_ComputesAndCaches(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	insights := &stubInsights{insight: happyInsight()}
	store := NewStore(db, newSemanticEmbedder(64), insights, &stubJournals{}, Options{}, zerolog.Nop())
	ctx := context.Background()

	profile, err := store.GetOrComputeProfile(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrComputeProfile: %v", err)
	}
	if profile.DominantEmotion != "sadness" {
		t.Errorf("dominant emotion = %q, want sadness", profile.DominantEmotion)
	}
	if profile.DominancePct != 0.5 {
		t.Errorf("dominance pct = %.2f, want 0.50", profile.DominancePct)
	}
	if profile.ResilienceScore != 1.0 || profile.VolatilityIndex != 0.0 {
		t.Errorf("non-volatile insight should give resilience 1.0 / volatility 0.0, got %.1f / %.1f",
			profile.ResilienceScore, profile.VolatilityIndex)
	}
	if insights.calls != 1 {
		t.Fatalf("expected 1 analytics call, got %d", insights.calls)
	}

	// Second call inside the TTL serves the cached row.
	if _, err := store.GetOrComputeProfile(ctx, 1); err != nil {
		t.Fatalf("GetOrComputeProfile (cached): %v", err)
	}
	if insights.calls != 1 {
		t.Errorf("fresh profile should not recompute, analytics calls = %d", insights.calls)
	}
}

func TestGetOrComputeProfile_StaleRecomputesInPlace(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	insights := &stubInsights{insight: happyInsight()}
	store := NewStore(db, newSemanticEmbedder(64), insights, &stubJournals{}, Options{}, zerolog.Nop())
	ctx := context.Background()

	base := time.Now()
	store.nowFn = func() time.Time { return base }
	if _, err := store.GetOrComputeProfile(ctx, 1); err != nil {
		t.Fatalf("GetOrComputeProfile: %v", err)
	}

	// Past the 12h staleness window the profile recomputes, updating the
	// existing row rather than accumulating history.
	insights.insight.DominantEmotion = "joy"
	insights.insight.VolatilityFlag = true
	store.nowFn = func() time.Time { return base.Add(13 * time.Hour) }

	profile, err := store.GetOrComputeProfile(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrComputeProfile (stale): %v", err)
	}
	if insights.calls != 2 {
		t.Fatalf("stale profile should recompute, analytics calls = %d", insights.calls)
	}
	if profile.DominantEmotion != "joy" {
		t.Errorf("dominant emotion = %q, want joy", profile.DominantEmotion)
	}
	if profile.ResilienceScore != 0.5 || profile.VolatilityIndex != 1.0 {
		t.Errorf("volatile insight should give resilience 0.5 / volatility 1.0, got %.1f / %.1f",
			profile.ResilienceScore, profile.VolatilityIndex)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM emotional_profiles WHERE user_id = 1").Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Errorf("recompute should upsert in place, got %d rows", count)
	}
}

func TestGetOrComputeProfile_PerUserRows(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	insights := &stubInsights{insight: happyInsight()}
	store := NewStore(db, newSemanticEmbedder(64), insights, &stubJournals{}, Options{}, zerolog.Nop())
	ctx := context.Background()

	if _, err := store.GetOrComputeProfile(ctx, 1); err != nil {
		t.Fatalf("GetOrComputeProfile user 1: %v", err)
	}
	if _, err := store.GetOrComputeProfile(ctx, 2); err != nil {
		t.Fatalf("GetOrComputeProfile user 2: %v", err)
	}
	if insights.calls != 2 {
		t.Errorf("each user gets an independent profile, analytics calls = %d", insights.calls)
	}
}
