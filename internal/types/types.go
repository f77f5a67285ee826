// Package types provides shared type definitions used across tradementor packages.
// This package exists to break import cycles between perception, router, journal,
// and store. Types in this package should be foundational data structures with no
// complex dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// ROUTING TYPES
// =============================================================================

// Route identifies which subsystem handles an inbound message.
type Route string

const (
	// RouteCrisis is the safety-critical path. It bypasses all other
	// classification and must never be downgraded by later steps.
	RouteCrisis Route = "crisis"

	// RouteJournal hands the message to the journal action engine.
	RouteJournal Route = "journal"

	// RouteNonJournal hands the message back to the general conversation
	// collaborator with no further payload.
	RouteNonJournal Route = "non_journal"
)

// Intent is the closed set of journal actions the classifier can resolve.
// Adding a new action means adding a constant here and a case to the action
// engine's switch; the compiler flags any handler left unwritten.
type Intent string

const (
	IntentAddEntry   Intent = "ADD_ENTRY"
	IntentGetEntries Intent = "GET_ENTRIES"
	IntentSetGoal    Intent = "SET_GOAL"
	IntentGetGoals   Intent = "GET_GOALS"
	IntentCheckIn    Intent = "CHECKIN"
	IntentSummary    Intent = "SUMMARY"
	IntentNone       Intent = "NONE"
)

// ParseIntent maps a raw string to an Intent. Returns false for anything
// outside the closed set; callers must treat that as a validation failure,
// never as a passthrough.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(strings.ToUpper(strings.TrimSpace(s))) {
	case IntentAddEntry:
		return IntentAddEntry, true
	case IntentGetEntries:
		return IntentGetEntries, true
	case IntentSetGoal:
		return IntentSetGoal, true
	case IntentGetGoals:
		return IntentGetGoals, true
	case IntentCheckIn:
		return IntentCheckIn, true
	case IntentSummary:
		return IntentSummary, true
	case IntentNone:
		return IntentNone, true
	}
	return IntentNone, false
}

// Message is the input unit: one inbound chat message. Ephemeral, never
// persisted by the core.
type Message struct {
	UserID    string
	Text      string
	Timestamp time.Time
}

// DateRange is an optional window filter. Either bound may be nil for an
// open-ended range.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// IntentResult is the validated output of the intent classifier.
// Confidence is always set: the classifier defaults it when the provider
// omits the field (0.2 for NONE, 0.85 otherwise). If CrisisFlag is true the
// router short-circuits to RouteCrisis regardless of Intent.
type IntentResult struct {
	Intent     Intent
	Confidence float64
	Date       *time.Time
	Range      *DateRange
	Tags       []string
	GoalText   string
	GoalDue    *time.Time
	GoalTarget string
	CrisisFlag bool
	Rationale  string
}

// RouteDecision is produced fresh per message and never stored.
// Classification is nil for decisions made before the classifier ran
// (keyword-detected crisis, non-journal chatter).
type RouteDecision struct {
	Route          Route
	Classification *IntentResult
}

// =============================================================================
// JOURNAL RECORDS
// =============================================================================

// TradeDirection is long or short.
type TradeDirection string

const (
	DirectionLong  TradeDirection = "long"
	DirectionShort TradeDirection = "short"
)

// Trade is one logged trade inside a journal entry. Size, R, and PnL are
// pointers because "not recorded" is distinct from zero: win-rate and
// average-R statistics only count trades with a numeric R.
type Trade struct {
	Symbol    string         `json:"symbol"`
	Direction TradeDirection `json:"direction"`
	Size      *float64       `json:"size,omitempty"`
	R         *float64       `json:"r,omitempty"`
	PnL       *float64       `json:"pnl,omitempty"`
}

// JournalEntry is one persisted journal record. Created by ADD_ENTRY, never
// mutated, never deleted by the core.
type JournalEntry struct {
	ID        string
	UserID    string
	Date      time.Time
	Market    string
	Emotions  string
	Mistakes  string
	Lessons   string
	Tags      []string
	Trades    []Trade
	CreatedAt time.Time
}

// HasTag reports whether the entry carries the given tag (case-insensitive).
func (e *JournalEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "ACTIVE"
	GoalCompleted GoalStatus = "COMPLETED"
	GoalAbandoned GoalStatus = "ABANDONED"
)

// JournalGoal is a user-declared target. Created by SET_GOAL with
// status ACTIVE and progress 0. Only CHECKIN mutates it, and only progress
// and status. There is no transition out of COMPLETED.
type JournalGoal struct {
	ID        string
	UserID    string
	Text      string
	Target    string
	Due       *time.Time
	Status    GoalStatus
	Progress  int // 0-100
	CreatedAt time.Time
}

// JournalCheckIn is one immutable progress report against a goal. Deleting
// a goal cascades to its check-ins (a store invariant the core relies on).
type JournalCheckIn struct {
	ID        string
	UserID    string
	GoalID    string
	Note      string
	Score     *int
	CreatedAt time.Time
}

// GoalWithCheckIns pairs a goal with its check-ins for GET_GOALS display.
type GoalWithCheckIns struct {
	Goal     JournalGoal
	CheckIns []JournalCheckIn
}

// =============================================================================
// DRAFTS AND FILTERS
// =============================================================================

// EntryDraft is the transient accumulator built by slot extraction. It is
// consumed once by ADD_ENTRY and then discarded. Date stays nil until the
// write executes so the draft remains reusable across a multi-turn exchange.
type EntryDraft struct {
	Date     *time.Time
	Market   string
	Emotions string
	Mistakes string
	Lessons  string
	Tags     []string
}

// IsEmpty reports whether extraction found nothing worth persisting.
func (d *EntryDraft) IsEmpty() bool {
	return d.Market == "" && d.Emotions == "" && d.Mistakes == "" &&
		d.Lessons == "" && len(d.Tags) == 0
}

// EntryFilter selects entries for list queries. From and To are inclusive;
// either may be nil for an open-ended bound. Limit 0 means no cap.
type EntryFilter struct {
	From  *time.Time
	To    *time.Time
	Tag   string
	Limit int
}
