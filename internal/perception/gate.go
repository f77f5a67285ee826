package perception

import "strings"

// journalKeywords is the cheap pre-filter vocabulary. Substring matching is
// intentional: the gate exists to avoid provider calls for obviously
// unrelated chatter, and the classifier behind it tolerates false positives.
var journalKeywords = []string{
	"journal",
	"log",
	"diary",
	"entry",
	"entries",
	"review",
	"goal",
	"goals",
	"check-in",
	"checkin",
	"check in",
	"streak",
	"win rate",
	"winrate",
	"lesson",
	"lessons",
	"mistake",
	"mistakes",
	"takeaway",
	"tags:",
	"summary",
	"progress",
	"trade",
	"traded",
}

// JournalKeywordGate decides whether a message is journal-shaped at all.
type JournalKeywordGate struct {
	keywords []string
}

// NewJournalKeywordGate returns a gate over the fixed keyword set.
func NewJournalKeywordGate() *JournalKeywordGate {
	return &JournalKeywordGate{keywords: journalKeywords}
}

// LooksLikeJournal reports whether any journal-domain keyword appears in the
// lower-cased text. Pure, deterministic.
func (g *JournalKeywordGate) LooksLikeJournal(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range g.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
