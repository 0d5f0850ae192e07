package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/serenitylabs/recall/conversations"
)

// SummaryPrefix marks the synthetic system turn carrying the collapsed
// history of a long conversation.
const SummaryPrefix = "[CONTEXT SUMMARY]"

// emotionalWords is the salience lexicon for short-term importance scoring.
// Deliberately separate from the long-term storage lexicon in importance.go.
var emotionalWords = []string{
	"sad", "happy", "anxious", "afraid", "angry", "excited",
	"worried", "stressed", "joy", "love", "help", "important",
}

// Selector chooses a token-bounded subset of a conversation's history:
// verbatim recent turns, heuristically important older turns, and one
// synthetic summary of everything older still. Select is a pure function;
// persistence of the summary happens in the orchestrator.
type Selector struct {
	RecentLimit      int // last N turns kept verbatim
	ImportantLimit   int // important older turns kept verbatim
	SummaryThreshold int // summarize only above this many total turns
}

// NewSelector returns a Selector with the default window sizes.
func NewSelector() *Selector {
	return &Selector{
		RecentLimit:      5,
		ImportantLimit:   2,
		SummaryThreshold: 15,
	}
}

// Select returns the context subset for history, ordered as
// [summary if present] + [important older turns, chronological] + [recent turns].
func (s *Selector) Select(history []conversations.Turn) []conversations.Turn {
	if len(history) <= s.RecentLimit {
		return append([]conversations.Turn(nil), history...)
	}

	recent := history[len(history)-s.RecentLimit:]
	if len(history) <= s.SummaryThreshold {
		return append([]conversations.Turn(nil), recent...)
	}

	// Important turns come strictly from the older remainder so they can
	// never overlap the recent window.
	older := history[:len(history)-s.RecentLimit]
	important := s.pickImportant(older)

	discarded := len(older) - len(important)
	result := make([]conversations.Turn, 0, 1+len(important)+len(recent))
	if discarded > 0 {
		result = append(result, summarize(older[:discarded]))
	}
	result = append(result, important...)
	result = append(result, recent...)
	return result
}

// pickImportant scores every older turn and returns the top-scored ones in
// their original chronological order.
func (s *Selector) pickImportant(older []conversations.Turn) []conversations.Turn {
	if s.ImportantLimit <= 0 || len(older) == 0 {
		return nil
	}

	type scored struct {
		index int
		score float64
	}
	scores := make([]scored, len(older))
	for i, turn := range older {
		scores[i] = scored{index: i, score: scoreTurn(turn)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	limit := s.ImportantLimit
	if limit > len(scores) {
		limit = len(scores)
	}
	top := scores[:limit]
	sort.Slice(top, func(i, j int) bool { return top[i].index < top[j].index })

	picked := make([]conversations.Turn, 0, limit)
	for _, t := range top {
		picked = append(picked, older[t.index])
	}
	return picked
}

// scoreTurn estimates how much context a turn carries: length (capped),
// emotionally salient vocabulary, and a bonus for assistant turns.
func scoreTurn(turn conversations.Turn) float64 {
	score := float64(len(turn.Content)) / 200
	if score > 2 {
		score = 2
	}

	lower := strings.ToLower(turn.Content)
	for _, word := range emotionalWords {
		if strings.Contains(lower, word) {
			score++
			break
		}
	}

	if turn.Role == conversations.RoleAssistant {
		score += 0.5
	}
	return score
}

// summarize collapses discarded turns into one synthetic system turn built
// from the first user-authored excerpts.
func summarize(discarded []conversations.Turn) conversations.Turn {
	var userContents []string
	for _, turn := range discarded {
		if turn.Role == conversations.RoleUser {
			userContents = append(userContents, turn.Content)
		}
	}

	const excerpts = 2
	shown := userContents
	if len(shown) > excerpts {
		shown = shown[:excerpts]
	}

	summary := "Earlier in this conversation, the user discussed: " + strings.Join(shown, ", ")
	if extra := len(userContents) - excerpts; extra > 0 {
		summary += fmt.Sprintf(" ...and %d more topics", extra)
	}

	return conversations.Turn{
		Role:    conversations.RoleSystem,
		Content: SummaryPrefix + " " + summary,
	}
}
