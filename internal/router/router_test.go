package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradementor/internal/perception"
	"tradementor/internal/types"
)

// stubClassifier returns a scripted result and counts invocations, so tests
// can assert that short-circuit paths never reach the provider.
type stubClassifier struct {
	result types.IntentResult
	calls  int
}

func (s *stubClassifier) Classify(ctx context.Context, text string) types.IntentResult {
	s.calls++
	return s.result
}

func newTestRouter(c Classifier) *Router {
	return New(perception.NewCrisisDetector(), perception.NewJournalKeywordGate(), c, DefaultConfig())
}

func TestRouteCrisisShortCircuits(t *testing.T) {
	stub := &stubClassifier{result: types.IntentResult{Intent: types.IntentAddEntry, Confidence: 0.9}}
	r := newTestRouter(stub)

	// Journal keywords present, but crisis wins and the classifier is
	// never consulted.
	decision := r.Route(context.Background(), "journal entry: I want to kill myself after this trade")

	assert.Equal(t, types.RouteCrisis, decision.Route)
	assert.Nil(t, decision.Classification)
	assert.Zero(t, stub.calls, "crisis route must not invoke the classifier")
}

func TestRouteNonJournalSkipsClassifier(t *testing.T) {
	stub := &stubClassifier{result: types.IntentResult{Intent: types.IntentAddEntry, Confidence: 0.9}}
	r := newTestRouter(stub)

	decision := r.Route(context.Background(), "nice weather today, isn't it")

	assert.Equal(t, types.RouteNonJournal, decision.Route)
	assert.Nil(t, decision.Classification)
	assert.Zero(t, stub.calls, "non-journal route must not invoke the classifier")
}

func TestRouteClassifierCrisisFlag(t *testing.T) {
	stub := &stubClassifier{result: types.IntentResult{
		Intent:     types.IntentAddEntry,
		Confidence: 0.95,
		CrisisFlag: true,
	}}
	r := newTestRouter(stub)

	decision := r.Route(context.Background(), "journal: everything is pointless")

	assert.Equal(t, types.RouteCrisis, decision.Route)
	require.NotNil(t, decision.Classification)
	assert.True(t, decision.Classification.CrisisFlag)
	assert.Equal(t, 1, stub.calls)
}

func TestRouteConfidenceGateFallback(t *testing.T) {
	// Keyword evidence overrides a low-confidence NONE verdict: the message
	// is captured as an entry rather than dropped.
	stub := &stubClassifier{result: types.IntentResult{Intent: types.IntentNone, Confidence: 0.1}}
	r := newTestRouter(stub)

	decision := r.Route(context.Background(), "journal: rough day in the market")

	assert.Equal(t, types.RouteJournal, decision.Route)
	require.NotNil(t, decision.Classification)
	assert.Equal(t, types.IntentAddEntry, decision.Classification.Intent)
	assert.InDelta(t, 0.7, decision.Classification.Confidence, 1e-9)
}

func TestRouteLowConfidenceIntentForced(t *testing.T) {
	stub := &stubClassifier{result: types.IntentResult{Intent: types.IntentSummary, Confidence: 0.3}}
	r := newTestRouter(stub)

	decision := r.Route(context.Background(), "journal review maybe?")

	assert.Equal(t, types.RouteJournal, decision.Route)
	require.NotNil(t, decision.Classification)
	assert.Equal(t, types.IntentAddEntry, decision.Classification.Intent)
	assert.InDelta(t, 0.7, decision.Classification.Confidence, 1e-9)
}

func TestRouteTrustsConfidentVerdict(t *testing.T) {
	stub := &stubClassifier{result: types.IntentResult{Intent: types.IntentGetGoals, Confidence: 0.88}}
	r := newTestRouter(stub)

	decision := r.Route(context.Background(), "show me my goals")

	assert.Equal(t, types.RouteJournal, decision.Route)
	require.NotNil(t, decision.Classification)
	assert.Equal(t, types.IntentGetGoals, decision.Classification.Intent)
	assert.InDelta(t, 0.88, decision.Classification.Confidence, 1e-9)
	assert.Equal(t, 1, stub.calls)
}

func TestRouteExactlyAtGatePasses(t *testing.T) {
	// The gate is strict less-than: confidence == threshold is trusted.
	stub := &stubClassifier{result: types.IntentResult{Intent: types.IntentCheckIn, Confidence: 0.6}}
	r := newTestRouter(stub)

	decision := r.Route(context.Background(), "goal check-in: 40% there")

	assert.Equal(t, types.RouteJournal, decision.Route)
	assert.Equal(t, types.IntentCheckIn, decision.Classification.Intent)
}
