// Package router composes the crisis detector, the journal keyword gate, and
// the intent classifier into the three-way routing decision for every inbound
// message.
package router

import (
	"context"

	"tradementor/internal/logging"
	"tradementor/internal/perception"
	"tradementor/internal/types"
)

// Classifier is the slice of the intent classifier the router needs.
type Classifier interface {
	Classify(ctx context.Context, text string) types.IntentResult
}

// Config holds the routing thresholds.
type Config struct {
	// ConfidenceGate: classifications below this are distrusted in favor of
	// the keyword-based default.
	ConfidenceGate float64

	// FallbackConfidence is assigned to the forced ADD_ENTRY verdict when
	// keyword evidence overrides the classifier.
	FallbackConfidence float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ConfidenceGate:     0.6,
		FallbackConfidence: 0.7,
	}
}

// Router runs the ordered decision cascade. Each step short-circuits:
//
//  1. keyword crisis scan (no provider call)
//  2. journal keyword gate (no provider call)
//  3. LLM classification; crisis_flag wins over intent
//  4. confidence gate: weak or NONE verdicts become ADD_ENTRY
//  5. classifier verdict passes through
type Router struct {
	crisis     *perception.CrisisDetector
	gate       *perception.JournalKeywordGate
	classifier Classifier
	config     Config
}

// New creates a router with the given classifier and thresholds.
func New(crisis *perception.CrisisDetector, gate *perception.JournalKeywordGate, classifier Classifier, cfg Config) *Router {
	return &Router{
		crisis:     crisis,
		gate:       gate,
		classifier: classifier,
		config:     cfg,
	}
}

// Route decides which subsystem handles the message.
func (r *Router) Route(ctx context.Context, text string) types.RouteDecision {
	timer := logging.StartTimer(logging.CategoryRouter, "Router.Route")
	defer timer.Stop()

	// 1. Keyword crisis scan. Highest severity, cheapest check: no
	// classification call is made on this path.
	if res := r.crisis.Detect(text); res.IsCrisis {
		logging.Router("route=crisis triggers=%v", res.TriggerWords)
		return types.RouteDecision{Route: types.RouteCrisis}
	}

	// 2. Journal gate. Unrelated chatter never reaches the provider.
	if !r.gate.LooksLikeJournal(text) {
		logging.RouterDebug("route=non_journal (gate)")
		return types.RouteDecision{Route: types.RouteNonJournal}
	}

	// 3. LLM classification. A semantic crisis flag the keyword scanner
	// missed still wins over everything else.
	classification := r.classifier.Classify(ctx, text)
	if classification.CrisisFlag {
		logging.Router("route=crisis (classifier flag)")
		return types.RouteDecision{Route: types.RouteCrisis, Classification: &classification}
	}

	// 4. Confidence gate. The keyword gate already said journal, so a weak
	// or unresolved verdict is overridden toward capturing the entry
	// rather than dropping it.
	if classification.Intent == types.IntentNone || classification.Confidence < r.config.ConfidenceGate {
		logging.Router("route=journal forced=ADD_ENTRY (intent=%s confidence=%.2f gate=%.2f)",
			classification.Intent, classification.Confidence, r.config.ConfidenceGate)
		classification.Intent = types.IntentAddEntry
		classification.Confidence = r.config.FallbackConfidence
		return types.RouteDecision{Route: types.RouteJournal, Classification: &classification}
	}

	// 5. Trusted classifier verdict.
	logging.Router("route=journal intent=%s confidence=%.2f", classification.Intent, classification.Confidence)
	return types.RouteDecision{Route: types.RouteJournal, Classification: &classification}
}
