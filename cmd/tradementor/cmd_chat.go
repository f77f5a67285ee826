package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tradementor/internal/types"
)

// crisisResponse is the fixed reply on the crisis route. Reply generation is
// deliberately not delegated to the provider here: this path must never
// depend on an external call succeeding.
const crisisResponse = `It sounds like you're going through something really heavy right now, and I'm glad you said it out loud.

Please reach out to someone who can properly support you - a trusted person close to you, or a crisis line (in the US, call or text 988; elsewhere, findahelpline.com lists local services). Markets and money are never worth your life.

I'm here to keep talking whenever you want.`

// nonJournalResponse stands in for the general-conversation collaborator,
// which is outside this module.
const nonJournalResponse = "Tell me what's on your mind about your trading - or say \"journal\" and I'll help you log it."

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive journal session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		fmt.Println("tradementor ready. Type your message, or 'exit' to quit.")

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if text == "exit" || text == "quit" {
				break
			}

			fmt.Println(handleMessage(ctx, a, userID, text))

			if ctx.Err() != nil {
				break
			}
		}
		return scanner.Err()
	},
}

// handleMessage runs one message through the route cascade and, on the
// journal route, the action engine.
func handleMessage(ctx context.Context, a *app, userID, text string) string {
	decision := a.router.Route(ctx, text)

	switch decision.Route {
	case types.RouteCrisis:
		return crisisResponse
	case types.RouteJournal:
		outcome := a.engine.Run(ctx, userID, *decision.Classification, text)
		return outcome.Response
	case types.RouteNonJournal:
		return nonJournalResponse
	}

	return nonJournalResponse
}
