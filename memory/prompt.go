package memory

import (
	"fmt"
	"strings"
)

// memoryExcerptLen bounds each long-term memory line in the rendered context.
const memoryExcerptLen = 180

// RenderPromptContext formats a bundle into the prompt-context block appended
// to the response generator's system prompt. Empty bundle fields render
// nothing; an entirely empty bundle renders an empty string.
func RenderPromptContext(bundle *MemoryBundle) string {
	if bundle == nil {
		return ""
	}

	var b strings.Builder

	if bundle.ShortTerm.Summary != "" {
		b.WriteString("\n\nSHORT TERM CONTEXT\n")
		b.WriteString(bundle.ShortTerm.Summary)
	}

	if len(bundle.SemanticMatches) > 0 {
		b.WriteString("\n\nLONG TERM MEMORIES\nUse only if relevant:")
		for _, match := range bundle.SemanticMatches {
			b.WriteString(fmt.Sprintf("\n- (%.2f) %s", match.MatchScore, clipRunes(match.Content, memoryExcerptLen)))
		}
	}

	if bundle.Profile != nil {
		b.WriteString(fmt.Sprintf(
			"\n\nEMOTIONAL PROFILE\nDominant emotion: %s (%.0f%%). Resilience: %.0f%%. Trend: %s.",
			bundle.Profile.DominantEmotion,
			bundle.Profile.DominancePct*100,
			bundle.Profile.ResilienceScore*100,
			bundle.Profile.Trend,
		))
	}

	if bundle.Reflection != nil && bundle.Reflection.Summary != "" {
		b.WriteString("\n\nMETA REFLECTION\n")
		b.WriteString(bundle.Reflection.Summary)
	}

	return b.String()
}

func clipRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) > n {
		return string(rs[:n])
	}
	return s
}
