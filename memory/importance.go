package memory

import "strings"

// Long-term storage lexicons. These intentionally differ from the selector's
// short-term salience lexicon; the two heuristics evolved for different
// retention horizons and are kept independent.
var (
	strongEmotions = map[string]bool{
		"sadness":  true,
		"fear":     true,
		"anger":    true,
		"hopeless": true,
	}

	significanceMarkers = []string{
		"always", "never", "i feel", "i've been", "no one", "worthless",
	}

	crisisMarkers = []string{
		"suicide", "harm myself",
	}
)

// ScoreImportance rates how much a turn deserves long-term retention,
// in [0, 1]. Length contributes up to 0.4, a strong detected emotion 0.25,
// personal-significance phrasing 0.25, and crisis language 0.4 before the cap.
func ScoreImportance(content, emotionLabel string) float64 {
	score := float64(len(content)) / 400
	if score > 0.4 {
		score = 0.4
	}

	if strongEmotions[strings.ToLower(emotionLabel)] {
		score += 0.25
	}

	lower := strings.ToLower(content)
	for _, marker := range significanceMarkers {
		if strings.Contains(lower, marker) {
			score += 0.25
			break
		}
	}
	for _, marker := range crisisMarkers {
		if strings.Contains(lower, marker) {
			score += 0.4
			break
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}
