package journal

import (
	"fmt"
	"strings"

	"tradementor/internal/types"
)

// SummaryStats aggregates a window of entries and goals for the SUMMARY
// action. Win rate and average R only count trades that recorded a numeric R.
type SummaryStats struct {
	EntryCount     int
	TradeCount     int
	ScoredTrades   int
	WinRate        float64 // percent, 0 when no scored trades
	AvgR           float64 // 0 when no scored trades
	RecentMistakes []string
	RecentLessons  []string
	ActiveGoals    int
	CompletedGoals int
}

// IsEmpty reports whether there is nothing to summarize. When true the
// engine answers directly and never calls the completion provider.
func (s *SummaryStats) IsEmpty() bool {
	return s.EntryCount == 0 && s.ActiveGoals == 0 && s.CompletedGoals == 0
}

// ComputeStats derives summary statistics. Entries are expected newest
// first, as the store returns them; recent mistakes and lessons keep that
// order and cap at three each.
func ComputeStats(entries []types.JournalEntry, goals []types.GoalWithCheckIns) SummaryStats {
	stats := SummaryStats{EntryCount: len(entries)}

	var sumR float64
	var wins int
	for _, e := range entries {
		stats.TradeCount += len(e.Trades)
		for _, t := range e.Trades {
			if t.R == nil {
				continue
			}
			stats.ScoredTrades++
			sumR += *t.R
			if *t.R > 0 {
				wins++
			}
		}

		if e.Mistakes != "" && len(stats.RecentMistakes) < 3 {
			stats.RecentMistakes = append(stats.RecentMistakes, e.Mistakes)
		}
		if e.Lessons != "" && len(stats.RecentLessons) < 3 {
			stats.RecentLessons = append(stats.RecentLessons, e.Lessons)
		}
	}

	if stats.ScoredTrades > 0 {
		stats.WinRate = float64(wins) / float64(stats.ScoredTrades) * 100
		stats.AvgR = sumR / float64(stats.ScoredTrades)
	}

	for _, g := range goals {
		switch g.Goal.Status {
		case types.GoalActive:
			stats.ActiveGoals++
		case types.GoalCompleted:
			stats.CompletedGoals++
		}
	}

	return stats
}

// BuildSummaryPrompt renders the statistics into the fixed-format prompt
// handed to the completion provider.
func BuildSummaryPrompt(stats SummaryStats, from, to string) string {
	var sb strings.Builder

	sb.WriteString("You are a supportive trading-psychology coach. ")
	sb.WriteString("Write a short, encouraging review of this trader's journal period. ")
	sb.WriteString("Be concrete about the numbers, gentle about the mistakes, and end with one actionable suggestion.\n\n")

	fmt.Fprintf(&sb, "Period: %s to %s\n", from, to)
	fmt.Fprintf(&sb, "Journal entries: %d\n", stats.EntryCount)
	fmt.Fprintf(&sb, "Trades logged: %d\n", stats.TradeCount)
	if stats.ScoredTrades > 0 {
		fmt.Fprintf(&sb, "Win rate: %.1f%% (%d trades with R recorded)\n", stats.WinRate, stats.ScoredTrades)
		fmt.Fprintf(&sb, "Average R: %.2f\n", stats.AvgR)
	} else {
		sb.WriteString("Win rate: no trades with R recorded\n")
	}
	fmt.Fprintf(&sb, "Active goals: %d, completed goals: %d\n", stats.ActiveGoals, stats.CompletedGoals)

	if len(stats.RecentMistakes) > 0 {
		sb.WriteString("Recent mistakes:\n")
		for _, m := range stats.RecentMistakes {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
	}
	if len(stats.RecentLessons) > 0 {
		sb.WriteString("Recent lessons:\n")
		for _, l := range stats.RecentLessons {
			fmt.Fprintf(&sb, "- %s\n", l)
		}
	}

	return sb.String()
}

// formatStatsFallback is the deterministic response used when the provider
// is unavailable; the numbers still reach the user.
func formatStatsFallback(stats SummaryStats, from, to string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summary for %s to %s: %d entries, %d trades logged.", from, to, stats.EntryCount, stats.TradeCount)
	if stats.ScoredTrades > 0 {
		fmt.Fprintf(&sb, " Win rate %.1f%%, average R %.2f.", stats.WinRate, stats.AvgR)
	}
	fmt.Fprintf(&sb, " Goals: %d active, %d completed.", stats.ActiveGoals, stats.CompletedGoals)
	return sb.String()
}
