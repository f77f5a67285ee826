package perception

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"tradementor/internal/logging"
	"tradementor/internal/types"
)

// classifierSystemPrompt is the fixed instruction sent with every
// classification call. The provider must answer with raw JSON only.
const classifierSystemPrompt = `You classify a trader's chat message into a journal intent.

Intents:
- ADD_ENTRY: the user is logging a trading journal entry (emotions, mistakes, lessons, market notes, tags)
- GET_ENTRIES: the user wants to read back past entries, optionally by date range or tag
- SET_GOAL: the user is declaring a goal or target, optionally with a due date
- GET_GOALS: the user wants to see their goals and check-ins
- CHECKIN: the user is reporting progress against a goal
- SUMMARY: the user wants aggregate statistics or a review over a period
- NONE: none of the above

Respond with raw JSON only. No markdown fences, no commentary. Schema:
{
  "intent": "ADD_ENTRY|GET_ENTRIES|SET_GOAL|GET_GOALS|CHECKIN|SUMMARY|NONE",
  "confidence": 0.0-1.0,
  "date": "YYYY-MM-DD (optional)",
  "range": {"from": "YYYY-MM-DD", "to": "YYYY-MM-DD"} (optional, either bound may be omitted),
  "tags": ["tag", ...] (optional),
  "goal_text": "the goal as stated (SET_GOAL only)",
  "goal_due": "YYYY-MM-DD (optional)",
  "goal_target": "numeric or textual target (optional)",
  "crisis_flag": true if the message suggests self-harm risk or acute despair,
  "rationale": "one short sentence"
}
The confidence field is required.`

// ClassifierConfig holds classifier defaults.
type ClassifierConfig struct {
	// DefaultConfidenceNone is assigned when the provider omits confidence
	// on a NONE verdict (default: 0.2).
	DefaultConfidenceNone float64

	// DefaultConfidence is assigned when the provider omits confidence on
	// any other verdict (default: 0.85).
	DefaultConfidence float64
}

// DefaultClassifierConfig returns sensible defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		DefaultConfidenceNone: 0.2,
		DefaultConfidence:     0.85,
	}
}

// IntentClassifier asks the completion provider for a structured intent and
// enforces a strict validated-or-rejected parse boundary. Classify never
// fails: every provider or parse problem collapses to the NONE/0 fallback.
type IntentClassifier struct {
	client LLMClient
	config ClassifierConfig
}

// NewIntentClassifier creates a classifier over the given provider.
func NewIntentClassifier(client LLMClient) *IntentClassifier {
	return &IntentClassifier{
		client: client,
		config: DefaultClassifierConfig(),
	}
}

// SetConfig overrides the classifier defaults.
func (c *IntentClassifier) SetConfig(cfg ClassifierConfig) {
	c.config = cfg
}

// fallback is the deterministic result for any unrecoverable provider or
// parse failure. Partially-valid payloads never leak past this boundary.
func (c *IntentClassifier) fallback(reason string) types.IntentResult {
	return types.IntentResult{
		Intent:     types.IntentNone,
		Confidence: 0,
		CrisisFlag: false,
		Rationale:  reason,
	}
}

// Classify sends the message to the provider and returns the validated
// intent. On any error it returns the NONE/0 fallback with a reason tag.
func (c *IntentClassifier) Classify(ctx context.Context, text string) types.IntentResult {
	timer := logging.StartTimer(logging.CategoryClassifier, "IntentClassifier.Classify")
	defer timer.Stop()

	response, err := c.client.CompleteWithSystem(ctx, classifierSystemPrompt, text)
	if err != nil {
		logging.Get(logging.CategoryClassifier).Warn("provider call failed: %v", err)
		return c.fallback("llm_error")
	}

	result, ok := c.parse(response)
	if !ok {
		return result
	}

	logging.ClassifierDebug("classified intent=%s confidence=%.2f crisis=%v",
		result.Intent, result.Confidence, result.CrisisFlag)
	return result
}

// rawPayload is the lenient decode target. Confidence stays raw so a missing
// field can be distinguished from a present-but-wrong one.
type rawPayload struct {
	Intent     *string         `json:"intent"`
	Confidence json.RawMessage `json:"confidence"`
	Date       string          `json:"date"`
	Range      *rawRange       `json:"range"`
	Tags       []string        `json:"tags"`
	GoalText   string          `json:"goal_text"`
	GoalDue    string          `json:"goal_due"`
	GoalTarget string          `json:"goal_target"`
	CrisisFlag bool            `json:"crisis_flag"`
	Rationale  string          `json:"rationale"`
}

type rawRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// parse validates the provider response all-or-nothing. The bool result is
// false when the returned IntentResult is a fallback.
func (c *IntentClassifier) parse(response string) (types.IntentResult, bool) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		logging.Get(logging.CategoryClassifier).Warn("no JSON object in provider response")
		return c.fallback("json_parse_error"), false
	}

	var raw rawPayload
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		logging.Get(logging.CategoryClassifier).Warn("JSON parse failed: %v", err)
		return c.fallback("json_parse_error"), false
	}

	// Intent: missing defaults to NONE, unknown values are rejected
	intent := types.IntentNone
	if raw.Intent != nil {
		parsed, ok := types.ParseIntent(*raw.Intent)
		if !ok {
			logging.Get(logging.CategoryClassifier).Warn("unknown intent %q", *raw.Intent)
			return c.fallback("parse_error"), false
		}
		intent = parsed
	}

	// Confidence: missing or non-numeric defaults by intent; out-of-range
	// values are rejected outright
	confidence, ok := c.resolveConfidence(raw.Confidence, intent)
	if !ok {
		return c.fallback("parse_error"), false
	}

	result := types.IntentResult{
		Intent:     intent,
		Confidence: confidence,
		Tags:       raw.Tags,
		GoalText:   strings.TrimSpace(raw.GoalText),
		GoalTarget: strings.TrimSpace(raw.GoalTarget),
		CrisisFlag: raw.CrisisFlag,
		Rationale:  raw.Rationale,
	}

	if raw.Date != "" {
		d, err := parseISODate(raw.Date)
		if err != nil {
			return c.fallback("parse_error"), false
		}
		result.Date = &d
	}
	if raw.GoalDue != "" {
		d, err := parseISODate(raw.GoalDue)
		if err != nil {
			return c.fallback("parse_error"), false
		}
		result.GoalDue = &d
	}
	if raw.Range != nil && (raw.Range.From != "" || raw.Range.To != "") {
		r := &types.DateRange{}
		if raw.Range.From != "" {
			d, err := parseISODate(raw.Range.From)
			if err != nil {
				return c.fallback("parse_error"), false
			}
			r.From = &d
		}
		if raw.Range.To != "" {
			d, err := parseISODate(raw.Range.To)
			if err != nil {
				return c.fallback("parse_error"), false
			}
			r.To = &d
		}
		result.Range = r
	}

	return result, true
}

// resolveConfidence applies the defaulting and range rules. A missing or
// non-numeric confidence gets the per-intent default; a numeric value
// outside [0,1] fails validation.
func (c *IntentClassifier) resolveConfidence(raw json.RawMessage, intent types.Intent) (float64, bool) {
	defaultFor := func() float64 {
		if intent == types.IntentNone {
			return c.config.DefaultConfidenceNone
		}
		return c.config.DefaultConfidence
	}

	if len(raw) == 0 || string(raw) == "null" {
		return defaultFor(), true
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return defaultFor(), true
	}
	if v < 0 || v > 1 {
		logging.Get(logging.CategoryClassifier).Warn("confidence %v out of range", v)
		return 0, false
	}
	return v, true
}

// extractJSON finds the JSON object in a response, tolerating markdown code
// fences and surrounding prose. Returns "" if no balanced object exists.
func extractJSON(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return cleaned[start : i+1]
				}
			}
		}
	}
	return ""
}

// parseISODate accepts YYYY-MM-DD and full RFC3339 timestamps.
func parseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
