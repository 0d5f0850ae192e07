package conversations

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

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

func TestStore_AppendAndListTurns(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	store := NewStore(db)
	ctx := context.Background()

	conversationID, err := store.CreateConversation(ctx, 1, "evening check-in")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	for i := 0; i < 4; i++ {
		role := RoleUser
		emotion := "sadness"
		if i%2 == 1 {
			role = RoleAssistant
			emotion = ""
		}
		if _, err := store.AppendTurn(ctx, conversationID, role, fmt.Sprintf("turn %d", i+1), emotion); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	turns, err := store.ListTurns(ctx, conversationID)
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		if turn.Content != fmt.Sprintf("turn %d", i+1) {
			t.Errorf("turn %d out of order: %q", i, turn.Content)
		}
	}
	if turns[0].EmotionLabel != "sadness" {
		t.Errorf("expected emotion label on user turn, got %q", turns[0].EmotionLabel)
	}
	if turns[1].EmotionLabel != "" {
		t.Errorf("expected empty emotion label on assistant turn, got %q", turns[1].EmotionLabel)
	}
}

func TestStore_ListTurnsEmptyConversation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	store := NewStore(db)
	turns, err := store.ListTurns(context.Background(), 12345)
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected no turns, got %d", len(turns))
	}
}

func TestStore_DeleteConversationCascades(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}

	store := NewStore(db)
	ctx := context.Background()

	conversationID, err := store.CreateConversation(ctx, 1, "to be deleted")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if _, err := store.AppendTurn(ctx, conversationID, RoleUser, "hello", ""); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	if err := store.DeleteConversation(ctx, conversationID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM turns WHERE conversation_id = ?", conversationID).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 0 {
		t.Errorf("expected turns to cascade on delete, %d remain", count)
	}
}
