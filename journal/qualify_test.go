package journal

import (
	"strings"
	"testing"
)

func TestShouldCreateEntry(t *testing.T) {
	long := strings.Repeat("some ordinary words about the day and the weather outside ", 3)

	tests := []struct {
		name    string
		text    string
		emotion string
		want    bool
	}{
		{"too short", "i feel sad", "sadness", false},
		{"long with reflection marker", long + "i feel like things are changing", "", true},
		{"long with strong emotion word", long + "it left me completely overwhelmed", "", true},
		{"long trailing question", long + "what should I do", "", false},
		{"long trailing question mark", long + "what should I do?", "", true},
		{"long with strong label", long + "nothing else to add here", "sadness", true},
		{"long plain neutral", long + "nothing else to add here", "neutral", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldCreateEntry(tc.text, tc.emotion); got != tc.want {
				t.Errorf("ShouldCreateEntry(%q, %q) = %v, want %v",
					tc.text[:min(len(tc.text), 40)], tc.emotion, got, tc.want)
			}
		})
	}
}

func TestExtractSummary(t *testing.T) {
	short := "Just a short note."
	if got := ExtractSummary(short, 200); got != short {
		t.Errorf("short text should pass through, got %q", got)
	}

	text := "First sentence here. Second sentence is a bit longer than the first. Third sentence should not fit at all."
	got := ExtractSummary(text, 60)
	if got != "First sentence here." {
		t.Errorf("expected first complete sentence, got %q", got)
	}

	unbroken := strings.Repeat("word ", 60)
	got = ExtractSummary(unbroken, 50)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("sentence-less text should be clipped with ellipsis, got %q", got)
	}
	if len(got) > 54 {
		t.Errorf("clipped summary too long: %d chars", len(got))
	}
}

func TestExtractTags(t *testing.T) {
	tags := ExtractTags("my exam went badly and my boss moved the project deadline")
	if len(tags) != 2 || tags[0] != "academic" || tags[1] != "work" {
		t.Errorf("tags = %v, want [academic work]", tags)
	}

	if tags := ExtractTags("a perfectly tagless sentence"); tags != nil {
		t.Errorf("expected no tags, got %v", tags)
	}

	// Order is fixed by category, not by keyword position in the text.
	tags = ExtractTags("my sister keeps asking about my university test")
	if len(tags) != 2 || tags[0] != "academic" || tags[1] != "family" {
		t.Errorf("tags = %v, want [academic family]", tags)
	}
}

func TestMoodFor(t *testing.T) {
	if got := MoodFor("fear"); got != "anxious" {
		t.Errorf("MoodFor(fear) = %q, want anxious", got)
	}
	if got := MoodFor("unmapped-label"); got != "neutral" {
		t.Errorf("unknown labels should map to neutral, got %q", got)
	}
}
