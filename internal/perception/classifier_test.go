package perception

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradementor/internal/types"
)

// mockClient is a scripted completion provider for classifier tests.
type mockClient struct {
	response string
	err      error
	calls    int
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.calls++
	return m.response, m.err
}

func (m *mockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls++
	return m.response, m.err
}

func TestClassifyValidResponse(t *testing.T) {
	client := &mockClient{response: `{"intent": "SET_GOAL", "confidence": 0.92, "goal_text": "improve win rate to 70%", "goal_due": "2025-12-31", "crisis_flag": false, "rationale": "explicit goal statement"}`}
	c := NewIntentClassifier(client)

	res := c.Classify(context.Background(), "My goal is to improve win rate to 70%, due 2025-12-31")

	assert.Equal(t, types.IntentSetGoal, res.Intent)
	assert.InDelta(t, 0.92, res.Confidence, 1e-9)
	assert.Equal(t, "improve win rate to 70%", res.GoalText)
	require.NotNil(t, res.GoalDue)
	assert.Equal(t, "2025-12-31", res.GoalDue.Format("2006-01-02"))
	assert.False(t, res.CrisisFlag)
}

func TestClassifyStripsMarkdownFences(t *testing.T) {
	client := &mockClient{response: "```json\n{\"intent\": \"GET_ENTRIES\", \"confidence\": 0.8}\n```"}
	c := NewIntentClassifier(client)

	res := c.Classify(context.Background(), "show my entries")

	assert.Equal(t, types.IntentGetEntries, res.Intent)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
}

func TestClassifyFallbackIsDeterministic(t *testing.T) {
	// Whatever garbage the provider returns, the fallback is identical.
	payloads := []string{
		"not json at all",
		"{truncated",
		`["an", "array"]`,
		"",
	}

	for _, payload := range payloads {
		client := &mockClient{response: payload}
		c := NewIntentClassifier(client)

		res := c.Classify(context.Background(), "journal something")

		assert.Equal(t, types.IntentNone, res.Intent, "payload %q", payload)
		assert.Zero(t, res.Confidence, "payload %q", payload)
		assert.False(t, res.CrisisFlag, "payload %q", payload)
		assert.Equal(t, "json_parse_error", res.Rationale, "payload %q", payload)
	}
}

func TestClassifyProviderError(t *testing.T) {
	client := &mockClient{err: fmt.Errorf("connection refused")}
	c := NewIntentClassifier(client)

	res := c.Classify(context.Background(), "journal something")

	assert.Equal(t, types.IntentNone, res.Intent)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, "llm_error", res.Rationale)
}

func TestClassifyConfidenceDefaults(t *testing.T) {
	tests := []struct {
		name     string
		response string
		intent   types.Intent
		want     float64
	}{
		{"missing on NONE", `{"intent": "NONE"}`, types.IntentNone, 0.2},
		{"missing on action", `{"intent": "ADD_ENTRY"}`, types.IntentAddEntry, 0.85},
		{"missing intent and confidence", `{}`, types.IntentNone, 0.2},
		{"non-numeric confidence", `{"intent": "CHECKIN", "confidence": "high"}`, types.IntentCheckIn, 0.85},
		{"null confidence", `{"intent": "SUMMARY", "confidence": null}`, types.IntentSummary, 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewIntentClassifier(&mockClient{response: tt.response})
			res := c.Classify(context.Background(), "journal")

			assert.Equal(t, tt.intent, res.Intent)
			assert.InDelta(t, tt.want, res.Confidence, 1e-9)
		})
	}
}

func TestClassifyRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"unknown intent", `{"intent": "DELETE_EVERYTHING", "confidence": 0.9}`},
		{"confidence above range", `{"intent": "ADD_ENTRY", "confidence": 1.5}`},
		{"confidence below range", `{"intent": "ADD_ENTRY", "confidence": -0.1}`},
		{"malformed date", `{"intent": "GET_ENTRIES", "confidence": 0.9, "date": "yesterday"}`},
		{"malformed range", `{"intent": "SUMMARY", "confidence": 0.9, "range": {"from": "last week"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewIntentClassifier(&mockClient{response: tt.response})
			res := c.Classify(context.Background(), "journal")

			// Strict boundary: nothing partially valid leaks through.
			assert.Equal(t, types.IntentNone, res.Intent)
			assert.Zero(t, res.Confidence)
			assert.Equal(t, "parse_error", res.Rationale)
		})
	}
}

func TestClassifyCrisisFlagPassesThrough(t *testing.T) {
	client := &mockClient{response: `{"intent": "ADD_ENTRY", "confidence": 0.9, "crisis_flag": true}`}
	c := NewIntentClassifier(client)

	res := c.Classify(context.Background(), "journal: I can't take this anymore")

	assert.True(t, res.CrisisFlag)
}

func TestClassifyParsesRange(t *testing.T) {
	client := &mockClient{response: `{"intent": "GET_ENTRIES", "confidence": 0.9, "range": {"from": "2024-01-15", "to": "2024-02-15"}, "tags": ["patience"]}`}
	c := NewIntentClassifier(client)

	res := c.Classify(context.Background(), "show entries tagged patience from mid january to mid february")

	require.NotNil(t, res.Range)
	require.NotNil(t, res.Range.From)
	require.NotNil(t, res.Range.To)
	assert.Equal(t, "2024-01-15", res.Range.From.Format("2006-01-02"))
	assert.Equal(t, "2024-02-15", res.Range.To.Format("2006-01-02"))
	assert.Equal(t, []string{"patience"}, res.Tags)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding prose", `Here you go: {"a": 1} hope that helps`, `{"a": 1}`},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"brace inside string", `{"a": "}"}`, `{"a": "}"}`},
		{"no object", "nothing here", ""},
		{"unbalanced", `{"a": 1`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
