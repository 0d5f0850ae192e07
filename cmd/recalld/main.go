package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/serenitylabs/recall/analytics"
	"github.com/serenitylabs/recall/config"
	"github.com/serenitylabs/recall/conversations"
	"github.com/serenitylabs/recall/embedding"
	"github.com/serenitylabs/recall/embedding/ollamaembed"
	"github.com/serenitylabs/recall/embedding/openaiembed"
	"github.com/serenitylabs/recall/journal"
	recalllogger "github.com/serenitylabs/recall/logger"
	"github.com/serenitylabs/recall/memory"
	"github.com/serenitylabs/recall/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", config.GetConfigPath(), "Path to config file")
		dbPath     = flag.String("db", "", "Path to SQLite database file (overrides config)")
		logFile    = flag.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty     = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		userID     = flag.Int64("user", 1, "User ID for this session")
		title      = flag.String("title", "recall session", "Title for the new conversation")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *logFile == "" {
		*logFile = cfg.Log.File
	}

	logger, err := recalllogger.InitWithOptions(*logFile, *pretty || cfg.Log.Pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info().
		Str("config", *configPath).
		Str("db", cfg.Database.Path).
		Int64("user", *userID).
		Msg("recalld starting")

	db, err := sql.Open("sqlite3", cfg.Database.Path+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // No remedy for db close errors

	if err := migrations.RunMigrations(db, cfg.MigrationsPath, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	embedder := resolveEmbedder(cfg, logger)

	analyticsService := analytics.NewService(db, logger)
	journalStore := journal.NewStore(db, logger)
	conversationStore := conversations.NewStore(db)
	memoryStore := memory.NewStore(db, embedder, analyticsService, journalStore, memory.Options{
		RecentLimit:        cfg.Memory.RecentLimit,
		ImportantLimit:     cfg.Memory.ImportantLimit,
		SummaryThreshold:   cfg.Memory.SummaryThreshold,
		RetrieveLimit:      cfg.Memory.SemanticLimit,
		StoreThreshold:     cfg.Memory.StoreThreshold,
		ProfileTTLHours:    cfg.Memory.ProfileTTLHours,
		ReflectionTTLHours: cfg.Memory.ReflectionTTLHours,
		ProfileWindowDays:  cfg.Memory.ProfileWindowDays,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conversationID, err := conversationStore.CreateConversation(ctx, *userID, *title)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	logger.Info().Int64("conversation_id", conversationID).Msg("conversation created")

	session := &session{
		userID:         *userID,
		conversationID: conversationID,
		conversations:  conversationStore,
		memory:         memoryStore,
		analytics:      analyticsService,
		journals:       journalStore,
		logger:         logger,
	}
	return session.loop(ctx)
}

// resolveEmbedder builds the provider preference list from config and lets
// the registry pick the first available one.
func resolveEmbedder(cfg *config.Config, logger zerolog.Logger) embedding.Embedder {
	var candidates []embedding.Candidate
	for _, name := range cfg.Embedding.Providers {
		switch name {
		case "openai":
			openaiCfg := cfg.Embedding.OpenAI
			candidates = append(candidates, embedding.Candidate{
				Name: "openai",
				New: func(ctx context.Context) (embedding.Embedder, error) {
					return openaiembed.New(openaiCfg.APIKey, openaiCfg.BaseURL, openaiCfg.Model)
				},
			})
		case "ollama":
			ollamaCfg := cfg.Embedding.Ollama
			candidates = append(candidates, embedding.Candidate{
				Name: "ollama",
				New: func(ctx context.Context) (embedding.Embedder, error) {
					return ollamaembed.New(ctx, ollamaCfg.Host, ollamaCfg.Model,
						time.Duration(ollamaCfg.Timeout)*time.Second)
				},
			})
		case "hash":
			candidates = append(candidates, embedding.Candidate{
				Name: "hash",
				New: func(ctx context.Context) (embedding.Embedder, error) {
					return embedding.NewHashEmbedder(), nil
				},
			})
		default:
			logger.Warn().Str("provider", name).Msg("Unknown embedding provider in config, skipping")
		}
	}
	return embedding.Resolve(context.Background(), candidates, logger)
}

// session drives one interactive conversation over stdin. Each input line is
// treated as a user turn; an optional "@emotion " prefix attaches a
// classifier label (normally supplied by an upstream emotion classifier).
type session struct {
	userID         int64
	conversationID int64
	conversations  *conversations.Store
	memory         *memory.Store
	analytics      *analytics.Service
	journals       *journal.Store
	logger         zerolog.Logger
}

func (s *session) loop(ctx context.Context) error {
	fmt.Println("recalld interactive session. Type a message, or '@<emotion> message' to tag it. Ctrl-D to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		emotionLabel, message := parseLine(line)
		if err := s.handleTurn(ctx, message, emotionLabel); err != nil {
			s.logger.Error().Err(err).Msg("turn failed")
			fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	s.logger.Info().Msg("recalld session ended")
	return nil
}

func (s *session) handleTurn(ctx context.Context, message, emotionLabel string) error {
	history, err := s.conversations.ListTurns(ctx, s.conversationID)
	if err != nil {
		return fmt.Errorf("list turns: %w", err)
	}

	bundle := s.memory.BuildBundle(ctx, s.userID, s.conversationID, history, message)
	if rendered := memory.RenderPromptContext(bundle); rendered != "" {
		fmt.Println("--- memory context ---")
		fmt.Println(strings.TrimSpace(rendered))
		fmt.Println("----------------------")
	}

	turnID, err := s.conversations.AppendTurn(ctx, s.conversationID, conversations.RoleUser, message, emotionLabel)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	if emotionLabel != "" {
		if err := s.analytics.AddEmotionLog(ctx, s.userID, emotionLabel, 0.9); err != nil {
			s.logger.Warn().Err(err).Msg("emotion log write failed")
		}
	}

	// Post-turn work is best effort and never blocks the turn result.
	stored, err := s.memory.MaybeStoreSemanticMemory(ctx, s.userID, s.conversationID, turnID, message, emotionLabel, "chat")
	if err != nil {
		s.logger.Warn().Err(err).Msg("semantic memory storage failed")
	} else if stored {
		fmt.Println("(stored as long-term memory)")
	}

	if journal.ShouldCreateEntry(message, emotionLabel) {
		entry := journal.Entry{
			UserID:         s.userID,
			ConversationID: s.conversationID,
			TurnID:         turnID,
			Title:          journal.ExtractSummary(message, 60),
			Content:        message,
			Emotion:        emotionLabel,
			Mood:           journal.MoodFor(emotionLabel),
			Tags:           journal.ExtractTags(message),
		}
		if _, err := s.journals.CreateEntry(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Msg("journal entry write failed")
		} else {
			fmt.Println("(journal entry created)")
		}
	}
	return nil
}

// parseLine splits an optional "@emotion " prefix off an input line.
func parseLine(line string) (emotionLabel, message string) {
	if !strings.HasPrefix(line, "@") {
		return "", line
	}
	parts := strings.SplitN(line[1:], " ", 2)
	if len(parts) != 2 {
		return "", line
	}
	return strings.ToLower(parts[0]), strings.TrimSpace(parts[1])
}
