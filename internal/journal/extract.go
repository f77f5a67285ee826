// Package journal implements the journal subsystem: slot extraction from free
// text and the action engine that executes one persistence action per message.
package journal

import (
	"regexp"
	"strings"

	"tradementor/internal/types"
)

// Field extraction is table-driven: one pattern per slot, each independent,
// each falling back to the carried-forward draft when the new text has no
// match. Patterns capture up to the next sentence terminator.
type fieldPattern struct {
	field string
	re    *regexp.Regexp
}

var entryPatterns = []fieldPattern{
	{"emotions", regexp.MustCompile(`(?i)\b(?:feel(?:ing)?|emotions?|moods?)\b\s*:?\s*([^.!?\n]+)`)},
	{"mistakes", regexp.MustCompile(`(?i)\b(?:mistakes?|errors?|wrong)\b\s*:?\s*([^.!?\n]+)`)},
	{"lessons", regexp.MustCompile(`(?i)\b(?:lessons?|learn(?:ed|ing)?|takeaways?)\b\s*:?\s*([^.!?\n]+)`)},
	{"market", regexp.MustCompile(`(?i)\b(?:market|trading|btc|eth|crypto)\b\s*:?\s*([^.!?\n]+)`)},
}

var tagsPattern = regexp.MustCompile(`(?i)\btags?\s*:?\s*([^.!?\n]+)`)

var tagSplitter = regexp.MustCompile(`[,\s]+`)

// ExtractDraft derives an entry draft from free text, carrying forward any
// existing draft values for slots the new text does not mention. Extraction
// is best-effort: a missing pattern is an empty field, never an error. Date
// is left nil; ADD_ENTRY fills it at write time.
func ExtractDraft(text string, existing *types.EntryDraft) types.EntryDraft {
	draft := types.EntryDraft{}
	if existing != nil {
		draft = *existing
	}

	for _, p := range entryPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		switch p.field {
		case "emotions":
			draft.Emotions = value
		case "mistakes":
			draft.Mistakes = value
		case "lessons":
			draft.Lessons = value
		case "market":
			draft.Market = value
		}
	}

	if tags := extractTags(text); len(tags) > 0 {
		draft.Tags = tags
	}

	return draft
}

// extractTags pulls the token list after "tag(s):", split on commas and
// whitespace with empty tokens discarded.
func extractTags(text string) []string {
	m := tagsPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var tags []string
	for _, tok := range tagSplitter.Split(m[1], -1) {
		tok = strings.TrimSpace(strings.TrimPrefix(tok, "#"))
		if tok != "" {
			tags = append(tags, tok)
		}
	}
	return tags
}
