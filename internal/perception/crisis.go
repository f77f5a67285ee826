package perception

import (
	"regexp"
	"strings"

	"tradementor/internal/logging"
)

// crisisKeywords is the fixed trigger list. Single words are matched on word
// boundaries so "die" cannot fire inside "diet"; multi-word phrases are
// matched as case-insensitive substrings.
var crisisKeywords = []string{
	// Self-harm / suicide
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"end it all",
	"want to die",
	"better off dead",
	"self-harm",
	"self harm",
	"hurt myself",
	"die",
	// Hopelessness
	"hopeless",
	"worthless",
	"no reason to live",
	"no way out",
	"can't go on",
	"cant go on",
	"give up on life",
	// Finance-ruin idioms
	"lost everything",
	"blew up my account",
	"financially ruined",
	"ruined my life",
	"drowning in debt",
}

// CrisisResult is the outcome of a crisis scan.
type CrisisResult struct {
	IsCrisis     bool
	TriggerWords []string
}

// CrisisDetector scans raw message text for crisis language. Pure and
// deterministic; no provider call is ever made on this path.
type CrisisDetector struct {
	phrases []string
	words   []wordPattern
}

type wordPattern struct {
	keyword string
	re      *regexp.Regexp
}

// NewCrisisDetector compiles the fixed keyword list.
func NewCrisisDetector() *CrisisDetector {
	d := &CrisisDetector{}
	for _, kw := range crisisKeywords {
		if strings.ContainsAny(kw, " \t") {
			d.phrases = append(d.phrases, strings.ToLower(kw))
			continue
		}
		// Whole-word boundary match for bare words
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		d.words = append(d.words, wordPattern{keyword: kw, re: re})
	}
	return d
}

// Detect reports whether the text contains crisis language and which
// triggers fired, in keyword-list order.
func (d *CrisisDetector) Detect(text string) CrisisResult {
	lower := strings.ToLower(text)

	var triggers []string
	for _, wp := range d.words {
		if wp.re.MatchString(text) {
			triggers = append(triggers, wp.keyword)
		}
	}
	for _, phrase := range d.phrases {
		if strings.Contains(lower, phrase) {
			triggers = append(triggers, phrase)
		}
	}

	if len(triggers) > 0 {
		logging.Crisis("crisis language detected: triggers=%v", triggers)
	}

	return CrisisResult{
		IsCrisis:     len(triggers) > 0,
		TriggerWords: triggers,
	}
}
