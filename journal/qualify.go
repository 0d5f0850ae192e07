package journal

import (
	"strings"
)

// minEntryLength is the shortest message considered journal-worthy.
const minEntryLength = 100

// reflectionMarkers are first-person phrases suggesting self-reflection.
var reflectionMarkers = []string{
	"i feel", "i felt", "i have been", "i've been",
	"lately", "recently", "because", "i think", "i realize",
	"i noticed", "i'm struggling", "i'm dealing with",
}

// strongEmotionWords auto-qualify a message regardless of markers.
var strongEmotionWords = []string{
	"sad", "depressed", "anxious", "overwhelmed", "stressed",
	"devastated", "heartbroken", "angry", "frustrated", "scared",
}

// tagCategories maps a topical tag to its trigger keywords.
//
// Note: this lexicon intentionally differs from the semantic-memory
// importance lexicon in the memory package. They look like drifted copies of
// one another but are tuned independently; do not merge without product
// sign-off.
var tagCategories = map[string][]string{
	"academic":     {"exam", "school", "college", "university", "study", "test", "homework", "assignment"},
	"work":         {"job", "work", "boss", "career", "meeting", "project", "deadline", "office"},
	"relationship": {"partner", "boyfriend", "girlfriend", "husband", "wife", "dating", "relationship"},
	"family":       {"mother", "father", "family", "parent", "sibling", "brother", "sister", "home"},
	"health":       {"sleep", "diet", "exercise", "health", "sick", "illness", "pain", "tired"},
	"crisis":       {"hurt", "kill", "suicide", "overdose", "self-harm"},
}

// tagOrder keeps ExtractTags deterministic.
var tagOrder = []string{"academic", "work", "relationship", "family", "health", "crisis"}

var moodMap = map[string]string{
	"sadness":  "sad",
	"joy":      "happy",
	"anger":    "angry",
	"fear":     "anxious",
	"surprise": "surprised",
	"disgust":  "disgusted",
	"neutral":  "neutral",
}

// ShouldCreateEntry reports whether a message qualifies for a journal entry.
// A message qualifies when it is long enough and shows a reflection marker,
// strong emotional vocabulary, a trailing question, or a strong classifier
// label.
func ShouldCreateEntry(text, emotionLabel string) bool {
	text = strings.TrimSpace(text)
	if len(text) < minEntryLength {
		return false
	}

	lower := strings.ToLower(text)

	for _, marker := range reflectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, word := range strongEmotionWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	if strings.HasSuffix(text, "?") {
		return true
	}

	switch emotionLabel {
	case "sadness", "fear", "anger":
		return true
	}
	return false
}

// ExtractSummary clips text to its first complete sentences up to maxLength
// characters. Deterministic; no model involved.
func ExtractSummary(text string, maxLength int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = 200
	}
	if len(text) <= maxLength {
		return text
	}

	var summary string
	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		candidate := sentence + "."
		if summary != "" {
			candidate = summary + " " + candidate
		}
		if len(candidate) > maxLength {
			break
		}
		summary = candidate
	}

	if summary == "" {
		clipped := text[:maxLength]
		if idx := strings.LastIndex(clipped, " "); idx > 0 {
			clipped = clipped[:idx]
		}
		summary = clipped + "..."
	}
	return strings.TrimSpace(summary)
}

// ExtractTags returns the topical categories whose keywords appear in text.
func ExtractTags(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var tags []string
	for _, category := range tagOrder {
		for _, keyword := range tagCategories[category] {
			if strings.Contains(lower, keyword) {
				tags = append(tags, category)
				break
			}
		}
	}
	return tags
}

// MoodFor maps a classifier emotion label to the stored mood string.
func MoodFor(emotionLabel string) string {
	if mood, ok := moodMap[emotionLabel]; ok {
		return mood
	}
	return "neutral"
}
