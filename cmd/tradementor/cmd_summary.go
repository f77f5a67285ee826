package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradementor/internal/types"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the trailing 30 days of journal data",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		outcome := a.engine.Run(cmd.Context(), userID, types.IntentResult{
			Intent:     types.IntentSummary,
			Confidence: 1.0,
		}, "")

		fmt.Println(outcome.Response)
		if s := outcome.Stats; s != nil && !s.IsEmpty() {
			fmt.Printf("\n(entries=%d trades=%d active_goals=%d completed_goals=%d)\n",
				s.EntryCount, s.TradeCount, s.ActiveGoals, s.CompletedGoals)
		}
		return nil
	},
}
