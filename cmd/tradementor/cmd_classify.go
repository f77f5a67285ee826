package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [message]",
	Short: "Show the routing decision for a message without executing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		text := strings.Join(args, " ")
		decision := a.router.Route(cmd.Context(), text)

		fmt.Printf("route: %s\n", decision.Route)
		if c := decision.Classification; c != nil {
			fmt.Printf("intent: %s\n", c.Intent)
			fmt.Printf("confidence: %.2f\n", c.Confidence)
			fmt.Printf("crisis_flag: %v\n", c.CrisisFlag)
			if len(c.Tags) > 0 {
				fmt.Printf("tags: %s\n", strings.Join(c.Tags, ", "))
			}
			if c.GoalText != "" {
				fmt.Printf("goal_text: %s\n", c.GoalText)
			}
			if c.Rationale != "" {
				fmt.Printf("rationale: %s\n", c.Rationale)
			}
		}
		return nil
	},
}
