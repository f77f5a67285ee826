package journal

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tradementor/internal/logging"
	"tradementor/internal/perception"
	"tradementor/internal/types"
)

// Store is the persistence collaborator the action engine needs. Implemented
// by store.JournalStore and store.CachedStore.
type Store interface {
	CreateEntry(ctx context.Context, e *types.JournalEntry) error
	ListEntries(ctx context.Context, userID string, f types.EntryFilter) ([]types.JournalEntry, error)
	CreateGoal(ctx context.Context, g *types.JournalGoal) error
	FindActiveGoal(ctx context.Context, userID string) (*types.JournalGoal, int, error)
	ListGoalsWithCheckIns(ctx context.Context, userID string) ([]types.GoalWithCheckIns, error)
	UpdateGoalProgress(ctx context.Context, goalID string, progress int, status types.GoalStatus) error
	CreateCheckIn(ctx context.Context, ci *types.JournalCheckIn) error
}

// Outcome is what one action transition produces: always a human-readable
// response, plus whatever structured result the action created or read.
type Outcome struct {
	Response string
	Entry    *types.JournalEntry
	Entries  []types.JournalEntry
	Goal     *types.JournalGoal
	Goals    []types.GoalWithCheckIns
	CheckIn  *types.JournalCheckIn
	Stats    *SummaryStats
}

const (
	entriesLimit  = 10
	summaryWindow = 30 * 24 * time.Hour

	retryResponse = "Sorry, I couldn't save that just now. Please try again in a moment."
)

var (
	percentRe = regexp.MustCompile(`(\d{1,3})\s*%`)
	scoreRe   = regexp.MustCompile(`(?i)\bscore\s*:?\s*(\d+)`)
)

// ActionEngine executes exactly one journal action per message. Every action
// is a terminal one-shot transition selected by the router's resolved intent;
// there is no inter-action sequencing. All failures become plain-language
// responses, never errors past this boundary.
type ActionEngine struct {
	store  Store
	client perception.LLMClient
	now    func() time.Time
}

// NewActionEngine creates the engine. The client is only used by SUMMARY.
func NewActionEngine(store Store, client perception.LLMClient) *ActionEngine {
	return &ActionEngine{
		store:  store,
		client: client,
		now:    time.Now,
	}
}

// SetClock overrides the time source (tests).
func (e *ActionEngine) SetClock(now func() time.Time) {
	e.now = now
}

// Run executes the transition for the resolved intent. The switch is
// exhaustive over the closed Intent set: a new action constant without a
// handler here is a bug caught in review, not a silent string-map miss.
func (e *ActionEngine) Run(ctx context.Context, userID string, res types.IntentResult, text string) Outcome {
	timer := logging.StartTimer(logging.CategoryJournal, "ActionEngine.Run")
	defer timer.Stop()

	logging.Journal("running action=%s user=%s", res.Intent, userID)

	switch res.Intent {
	case types.IntentAddEntry:
		return e.addEntry(ctx, userID, res, text)
	case types.IntentGetEntries:
		return e.getEntries(ctx, userID, res)
	case types.IntentSetGoal:
		return e.setGoal(ctx, userID, res)
	case types.IntentGetGoals:
		return e.getGoals(ctx, userID)
	case types.IntentCheckIn:
		return e.checkIn(ctx, userID, text)
	case types.IntentSummary:
		return e.summary(ctx, userID, res)
	case types.IntentNone:
		// The router never forwards NONE; answered defensively anyway.
		return Outcome{Response: "I wasn't sure what you wanted to do with your journal. You can log an entry, set a goal, check in, or ask for a summary."}
	}

	return Outcome{Response: "I don't know how to do that with your journal yet."}
}

// =============================================================================
// ADD_ENTRY
// =============================================================================

func (e *ActionEngine) addEntry(ctx context.Context, userID string, res types.IntentResult, text string) Outcome {
	draft := ExtractDraft(text, nil)
	if res.Date != nil {
		draft.Date = res.Date
	}
	if len(draft.Tags) == 0 && len(res.Tags) > 0 {
		draft.Tags = res.Tags
	}

	if draft.IsEmpty() {
		return Outcome{Response: "I couldn't find anything to log yet. Tell me how you felt, what went wrong, or what you learned - for example: \"feeling anxious after the BTC trade, lesson: wait for confirmation, tags: patience\"."}
	}

	// Date defaults to now at write time, not extraction time, so a draft
	// carried across a multi-turn exchange stays reusable.
	date := e.now()
	if draft.Date != nil {
		date = *draft.Date
	}

	entry := &types.JournalEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		Market:    draft.Market,
		Emotions:  draft.Emotions,
		Mistakes:  draft.Mistakes,
		Lessons:   draft.Lessons,
		Tags:      draft.Tags,
		CreatedAt: e.now(),
	}

	if err := e.store.CreateEntry(ctx, entry); err != nil {
		logging.Get(logging.CategoryJournal).Error("ADD_ENTRY store failure for %s: %v", userID, err)
		return Outcome{Response: retryResponse}
	}

	var parts []string
	if entry.Emotions != "" {
		parts = append(parts, "emotions: "+entry.Emotions)
	}
	if entry.Mistakes != "" {
		parts = append(parts, "mistakes: "+entry.Mistakes)
	}
	if entry.Lessons != "" {
		parts = append(parts, "lessons: "+entry.Lessons)
	}
	if len(entry.Tags) > 0 {
		parts = append(parts, "tags: "+strings.Join(entry.Tags, ", "))
	}

	response := fmt.Sprintf("Journal entry saved for %s.", entry.Date.Format("2006-01-02"))
	if len(parts) > 0 {
		response += " Captured " + strings.Join(parts, "; ") + "."
	}
	return Outcome{Response: response, Entry: entry}
}

// =============================================================================
// GET_ENTRIES
// =============================================================================

func (e *ActionEngine) getEntries(ctx context.Context, userID string, res types.IntentResult) Outcome {
	filter := types.EntryFilter{Limit: entriesLimit}
	if res.Range != nil {
		filter.From = res.Range.From
		filter.To = endOfDay(res.Range.To)
	}
	if len(res.Tags) > 0 {
		filter.Tag = res.Tags[0]
	}

	entries, err := e.store.ListEntries(ctx, userID, filter)
	if err != nil {
		logging.Get(logging.CategoryJournal).Error("GET_ENTRIES store failure for %s: %v", userID, err)
		return Outcome{Response: "Sorry, I couldn't read your journal just now. Please try again in a moment."}
	}

	if len(entries) == 0 {
		return Outcome{Response: "No journal entries found for that filter."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Your last %d journal entr%s:\n", len(entries), pluralY(len(entries)))
	for _, entry := range entries {
		fmt.Fprintf(&sb, "- %s", entry.Date.Format("2006-01-02"))
		if entry.Market != "" {
			fmt.Fprintf(&sb, " | %s", entry.Market)
		}
		if entry.Emotions != "" {
			fmt.Fprintf(&sb, " | felt %s", entry.Emotions)
		}
		if len(entry.Tags) > 0 {
			fmt.Fprintf(&sb, " [%s]", strings.Join(entry.Tags, ", "))
		}
		sb.WriteString("\n")
	}

	return Outcome{Response: strings.TrimRight(sb.String(), "\n"), Entries: entries}
}

// =============================================================================
// SET_GOAL
// =============================================================================

func (e *ActionEngine) setGoal(ctx context.Context, userID string, res types.IntentResult) Outcome {
	goalText := strings.TrimSpace(res.GoalText)
	if goalText == "" {
		return Outcome{Response: "Tell me the goal itself, for example: \"my goal is to risk at most 1% per trade, due 2025-12-31\"."}
	}

	goal := &types.JournalGoal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      goalText,
		Target:    res.GoalTarget,
		Due:       res.GoalDue,
		Status:    types.GoalActive,
		Progress:  0,
		CreatedAt: e.now(),
	}

	if err := e.store.CreateGoal(ctx, goal); err != nil {
		logging.Get(logging.CategoryJournal).Error("SET_GOAL store failure for %s: %v", userID, err)
		return Outcome{Response: retryResponse}
	}

	response := fmt.Sprintf("Goal set: %q.", goal.Text)
	if goal.Due != nil {
		response = fmt.Sprintf("Goal set: %q, due %s.", goal.Text, goal.Due.Format("2006-01-02"))
	}
	response += " Check in any time with your progress."
	return Outcome{Response: response, Goal: goal}
}

// =============================================================================
// GET_GOALS
// =============================================================================

func (e *ActionEngine) getGoals(ctx context.Context, userID string) Outcome {
	goals, err := e.store.ListGoalsWithCheckIns(ctx, userID)
	if err != nil {
		logging.Get(logging.CategoryJournal).Error("GET_GOALS store failure for %s: %v", userID, err)
		return Outcome{Response: "Sorry, I couldn't read your goals just now. Please try again in a moment."}
	}

	if len(goals) == 0 {
		return Outcome{Response: "You have no goals yet. Say \"my goal is ...\" to set one."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Your goals (%d):\n", len(goals))
	for _, g := range goals {
		fmt.Fprintf(&sb, "- [%s] %s (%d%%", strings.ToLower(string(g.Goal.Status)), g.Goal.Text, g.Goal.Progress)
		if g.Goal.Due != nil {
			fmt.Fprintf(&sb, ", due %s", g.Goal.Due.Format("2006-01-02"))
		}
		fmt.Fprintf(&sb, ", %d check-in%s)\n", len(g.CheckIns), plural(len(g.CheckIns)))
	}

	return Outcome{Response: strings.TrimRight(sb.String(), "\n"), Goals: goals}
}

// =============================================================================
// CHECKIN
// =============================================================================

func (e *ActionEngine) checkIn(ctx context.Context, userID string, text string) Outcome {
	goal, activeCount, err := e.store.FindActiveGoal(ctx, userID)
	if err != nil {
		logging.Get(logging.CategoryJournal).Error("CHECKIN store failure for %s: %v", userID, err)
		return Outcome{Response: retryResponse}
	}
	if goal == nil {
		return Outcome{Response: "You don't have an active goal to check in against. Set one first with \"my goal is ...\"."}
	}
	if activeCount > 1 {
		// Known gap: with several ACTIVE goals the user's intended target is
		// ambiguous and the newest one wins.
		logging.Get(logging.CategoryJournal).Warn("CHECKIN: user %s has %d active goals, using newest (%s)", userID, activeCount, goal.ID)
	}

	checkIn := &types.JournalCheckIn{
		ID:        uuid.NewString(),
		UserID:    userID,
		GoalID:    goal.ID,
		Note:      strings.TrimSpace(text),
		CreatedAt: e.now(),
	}
	if m := scoreRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			checkIn.Score = &v
		}
	}

	if err := e.store.CreateCheckIn(ctx, checkIn); err != nil {
		logging.Get(logging.CategoryJournal).Error("CHECKIN store failure for %s: %v", userID, err)
		return Outcome{Response: retryResponse}
	}

	response := fmt.Sprintf("Checked in on %q.", goal.Text)

	if m := percentRe.FindStringSubmatch(text); m != nil {
		percent, err := strconv.Atoi(m[1])
		if err == nil {
			progress := percent
			if progress > 100 {
				progress = 100
			}
			status := types.GoalActive
			if progress >= 100 {
				status = types.GoalCompleted
			}

			if err := e.store.UpdateGoalProgress(ctx, goal.ID, progress, status); err != nil {
				logging.Get(logging.CategoryJournal).Error("CHECKIN progress update failure for goal %s: %v", goal.ID, err)
				return Outcome{Response: "Your check-in was saved, but I couldn't update the goal's progress. Please try again.", CheckIn: checkIn}
			}
			goal.Progress = progress
			goal.Status = status

			if status == types.GoalCompleted {
				response = fmt.Sprintf("Goal completed: %q. Well done!", goal.Text)
			} else {
				response = fmt.Sprintf("Checked in on %q - progress now %d%%.", goal.Text, progress)
			}
		}
	}

	return Outcome{Response: response, Goal: goal, CheckIn: checkIn}
}

// =============================================================================
// SUMMARY
// =============================================================================

func (e *ActionEngine) summary(ctx context.Context, userID string, res types.IntentResult) Outcome {
	to := e.now()
	from := to.Add(-summaryWindow)
	if res.Range != nil {
		if res.Range.From != nil {
			from = *res.Range.From
		}
		if res.Range.To != nil {
			to = *endOfDay(res.Range.To)
		}
	}

	var entries []types.JournalEntry
	var goals []types.GoalWithCheckIns

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = e.store.ListEntries(gctx, userID, types.EntryFilter{From: &from, To: &to})
		return err
	})
	g.Go(func() error {
		var err error
		goals, err = e.store.ListGoalsWithCheckIns(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		logging.Get(logging.CategoryJournal).Error("SUMMARY store failure for %s: %v", userID, err)
		return Outcome{Response: "Sorry, I couldn't read your journal just now. Please try again in a moment."}
	}

	stats := ComputeStats(entries, goals)
	if stats.IsEmpty() {
		return Outcome{Response: "No journal data to summarize yet. Log a few entries first and I'll pull the patterns together for you.", Stats: &stats}
	}

	fromStr := from.Format("2006-01-02")
	toStr := to.Format("2006-01-02")

	prompt := BuildSummaryPrompt(stats, fromStr, toStr)
	prose, err := e.client.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(prose) == "" {
		logging.Get(logging.CategoryJournal).Warn("SUMMARY provider failure for %s: %v", userID, err)
		return Outcome{Response: formatStatsFallback(stats, fromStr, toStr), Stats: &stats}
	}

	return Outcome{Response: strings.TrimSpace(prose), Stats: &stats}
}

// endOfDay pushes a date-only upper bound to the end of that day so the
// range stays inclusive.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 {
		return t
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
