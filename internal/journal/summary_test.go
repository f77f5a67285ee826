package journal

import (
	"strings"
	"testing"

	"tradementor/internal/types"
)

func f(v float64) *float64 { return &v }

func TestComputeStatsWinRate(t *testing.T) {
	// 4 trades with R values [2, -1, 0.5, -0.5]: 2 winners of 4 scored.
	entries := []types.JournalEntry{
		{Trades: []types.Trade{
			{Symbol: "BTC", Direction: types.DirectionLong, R: f(2)},
			{Symbol: "ETH", Direction: types.DirectionShort, R: f(-1)},
		}},
		{Trades: []types.Trade{
			{Symbol: "BTC", Direction: types.DirectionLong, R: f(0.5)},
			{Symbol: "SOL", Direction: types.DirectionLong, R: f(-0.5)},
		}},
	}

	stats := ComputeStats(entries, nil)

	if stats.TradeCount != 4 {
		t.Errorf("TradeCount = %d, want 4", stats.TradeCount)
	}
	if stats.ScoredTrades != 4 {
		t.Errorf("ScoredTrades = %d, want 4", stats.ScoredTrades)
	}
	if stats.WinRate != 50.0 {
		t.Errorf("WinRate = %v, want 50.0", stats.WinRate)
	}
	if stats.AvgR != 0.25 {
		t.Errorf("AvgR = %v, want 0.25", stats.AvgR)
	}
}

func TestComputeStatsIgnoresUnscoredTrades(t *testing.T) {
	entries := []types.JournalEntry{
		{Trades: []types.Trade{
			{Symbol: "BTC", Direction: types.DirectionLong, R: f(1)},
			{Symbol: "ETH", Direction: types.DirectionLong}, // no R recorded
		}},
	}

	stats := ComputeStats(entries, nil)

	if stats.TradeCount != 2 {
		t.Errorf("TradeCount = %d, want 2", stats.TradeCount)
	}
	if stats.ScoredTrades != 1 {
		t.Errorf("ScoredTrades = %d, want 1", stats.ScoredTrades)
	}
	if stats.WinRate != 100.0 {
		t.Errorf("WinRate = %v, want 100.0", stats.WinRate)
	}
}

func TestComputeStatsNoScoredTrades(t *testing.T) {
	entries := []types.JournalEntry{{Trades: []types.Trade{{Symbol: "BTC"}}}}

	stats := ComputeStats(entries, nil)

	if stats.WinRate != 0 || stats.AvgR != 0 {
		t.Errorf("expected zero win rate and avg R, got %v / %v", stats.WinRate, stats.AvgR)
	}
}

func TestComputeStatsRecentMistakesAndLessons(t *testing.T) {
	// Entries arrive newest first; caps at 3, skips empties.
	entries := []types.JournalEntry{
		{Mistakes: "m1", Lessons: "l1"},
		{Mistakes: "", Lessons: "l2"},
		{Mistakes: "m2", Lessons: ""},
		{Mistakes: "m3", Lessons: "l3"},
		{Mistakes: "m4", Lessons: "l4"},
	}

	stats := ComputeStats(entries, nil)

	wantMistakes := []string{"m1", "m2", "m3"}
	wantLessons := []string{"l1", "l2", "l3"}
	if len(stats.RecentMistakes) != 3 || stats.RecentMistakes[0] != wantMistakes[0] ||
		stats.RecentMistakes[1] != wantMistakes[1] || stats.RecentMistakes[2] != wantMistakes[2] {
		t.Errorf("RecentMistakes = %v, want %v", stats.RecentMistakes, wantMistakes)
	}
	if len(stats.RecentLessons) != 3 || stats.RecentLessons[0] != wantLessons[0] ||
		stats.RecentLessons[1] != wantLessons[1] || stats.RecentLessons[2] != wantLessons[2] {
		t.Errorf("RecentLessons = %v, want %v", stats.RecentLessons, wantLessons)
	}
}

func TestComputeStatsGoalCounts(t *testing.T) {
	goals := []types.GoalWithCheckIns{
		{Goal: types.JournalGoal{Status: types.GoalActive}},
		{Goal: types.JournalGoal{Status: types.GoalActive}},
		{Goal: types.JournalGoal{Status: types.GoalCompleted}},
		{Goal: types.JournalGoal{Status: types.GoalAbandoned}},
	}

	stats := ComputeStats(nil, goals)

	if stats.ActiveGoals != 2 {
		t.Errorf("ActiveGoals = %d, want 2", stats.ActiveGoals)
	}
	if stats.CompletedGoals != 1 {
		t.Errorf("CompletedGoals = %d, want 1", stats.CompletedGoals)
	}
	// Abandoned goals are not reported; IsEmpty looks at entries plus the
	// active and completed counts only.
	empty := ComputeStats(nil, nil)
	if !empty.IsEmpty() {
		t.Error("no data should be empty")
	}
}

func TestBuildSummaryPromptIncludesStats(t *testing.T) {
	stats := SummaryStats{
		EntryCount:     5,
		TradeCount:     8,
		ScoredTrades:   4,
		WinRate:        50,
		AvgR:           0.25,
		RecentMistakes: []string{"revenge traded"},
		RecentLessons:  []string{"size down"},
		ActiveGoals:    1,
	}

	prompt := BuildSummaryPrompt(stats, "2024-01-01", "2024-01-31")

	for _, want := range []string{
		"2024-01-01", "2024-01-31",
		"Journal entries: 5",
		"Trades logged: 8",
		"Win rate: 50.0%",
		"Average R: 0.25",
		"revenge traded",
		"size down",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
