package memory

import (
	"context"
	"strings"

	"github.com/serenitylabs/recall/conversations"
)

// BuildBundle assembles the full memory bundle for one chat turn: the
// short-term context selection (with its summary persisted to the context
// cache), semantic matches for the current message, the emotional profile,
// and the meta reflection.
//
// Every step is independently failure-tolerant. A failed step logs and
// leaves its field empty; the bundle itself is always returned so a memory
// outage can never fail the chat turn.
func (s *Store) BuildBundle(
	ctx context.Context,
	userID, conversationID int64,
	history []conversations.Turn,
	currentMessage string,
) *MemoryBundle {
	bundle := &MemoryBundle{}

	selected := s.selector.Select(history)
	summary, remaining := splitSummary(selected)
	bundle.ShortTerm = ShortTermContext{
		Summary:     summary,
		RecentTurns: remaining,
	}

	lastTurnID := int64(0)
	if len(remaining) > 0 {
		lastTurnID = remaining[len(remaining)-1].ID
	}
	if err := s.UpsertContextCache(ctx, conversationID, summary, lastTurnID, len(remaining)); err != nil {
		s.logger.Warn().
			Str("method", "BuildBundle").
			Int64("conversation_id", conversationID).
			Err(err).
			Msg("context cache upsert failed")
	}

	matches, err := s.RetrieveSemanticMemories(ctx, userID, currentMessage, s.opts.RetrieveLimit)
	if err != nil {
		s.logger.Warn().
			Str("method", "BuildBundle").
			Int64("user_id", userID).
			Err(err).
			Msg("semantic retrieval failed")
	} else {
		bundle.SemanticMatches = matches
	}

	profile, err := s.GetOrComputeProfile(ctx, userID)
	if err != nil {
		s.logger.Warn().
			Str("method", "BuildBundle").
			Int64("user_id", userID).
			Err(err).
			Msg("profile computation failed")
	} else {
		bundle.Profile = profile
	}

	reflection, err := s.GetOrSynthesizeReflection(ctx, userID, bundle.Profile)
	if err != nil {
		s.logger.Warn().
			Str("method", "BuildBundle").
			Int64("user_id", userID).
			Err(err).
			Msg("reflection synthesis failed")
	} else {
		bundle.Reflection = reflection
	}

	return bundle
}

// splitSummary separates the selector's synthetic summary turn from the
// verbatim turns. The prefix is stripped from the returned summary text.
func splitSummary(selected []conversations.Turn) (string, []conversations.Turn) {
	summary := ""
	remaining := make([]conversations.Turn, 0, len(selected))
	for _, turn := range selected {
		if turn.Role == conversations.RoleSystem && strings.HasPrefix(turn.Content, SummaryPrefix) {
			summary = strings.TrimSpace(strings.TrimPrefix(turn.Content, SummaryPrefix))
			continue
		}
		remaining = append(remaining, turn)
	}
	return summary, remaining
}
