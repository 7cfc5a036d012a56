// ABOUTME: CLI command to send text to ChatGPT through an action
// ABOUTME: Dispatches like a menu click and waits for the composer outcome
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/delivery"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/menu"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

var (
	askAction string
	askURL    string
	askTitle  string
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [text...]",
		Short: "Send text to ChatGPT",
		Long: `Send text to ChatGPT.

The text is expanded through an action and typed into the composer of a
new ChatGPT tab. Without --action the default action is used (see
'h2c default'). With no text arguments, or "-", the text is read from stdin.

Run 'h2c menu' to see the available action IDs.`,
		Example: `  h2c ask "What is a monad?"
  h2c ask --action fixed:tldr < article.txt
  pbpaste | h2c ask -a fixed:explain --url https://example.com --title "Example"`,
		RunE: runAsk,
	}

	cmd.Flags().StringVarP(&askAction, "action", "a", models.MenuDefaultID, "Action ID (ask, fixed:<id>, saved:<id> or default)")
	cmd.Flags().StringVar(&askURL, "url", "", "URL of the page the text came from (for history)")
	cmd.Flags().StringVar(&askTitle, "title", "", "Title of the page the text came from (for history)")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	text, err := readText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.dispatcher(ctx, cmd.ErrOrStderr()).Dispatch(ctx, menu.Trigger{
		MenuID:       askAction,
		SelectedText: text,
		PageURL:      askURL,
		PageTitle:    askTitle,
	})
	if err != nil {
		return err
	}

	switch res.Status {
	case menu.StatusUnknown:
		return fmt.Errorf("unknown action %q (run 'h2c menu' to list actions)", askAction)
	case menu.StatusIgnored:
		if !quiet {
			fmt.Fprintln(cmd.ErrOrStderr(), "Nothing to send: the text is empty")
		}
		return nil
	case menu.StatusUpgrade:
		return fmt.Errorf("%s: %w", askAction, models.ErrEntitlementDenied)
	}

	if !quiet && !jsonOutput() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Sending %q to ChatGPT...\n", res.Action.Label)
	}

	outcome, err := res.Run.Wait(ctx)
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted before the text reached ChatGPT")
	}

	if jsonOutput() {
		out := map[string]interface{}{
			"action":     res.Action.MenuID(),
			"request_id": res.Run.Request.RequestID,
			"prompt":     res.Prompt,
			"outcome":    outcome,
			"attempts":   res.Run.Attempts(),
		}
		if perr := printJSON(cmd.OutOrStdout(), out); perr != nil {
			return perr
		}
	}

	return describeOutcome(cmd, outcome, err)
}

func describeOutcome(cmd *cobra.Command, outcome delivery.Outcome, err error) error {
	switch outcome {
	case delivery.OutcomeInserted:
		if !quiet && !jsonOutput() {
			fmt.Fprintln(cmd.OutOrStdout(), "Inserted into ChatGPT")
		}
		return nil
	case delivery.OutcomeAlreadyHasContent:
		if !quiet && !jsonOutput() {
			fmt.Fprintln(cmd.OutOrStdout(), "The composer already had a draft; left it untouched")
		}
		return nil
	case delivery.OutcomeAbandoned:
		return errors.New("the ChatGPT tab was closed before the text could be inserted")
	case delivery.OutcomeExhausted:
		return errors.New("could not find the ChatGPT composer; is the page signed in?")
	default:
		if err != nil {
			return fmt.Errorf("delivery failed: %w", err)
		}
		return fmt.Errorf("delivery ended with %s", outcome)
	}
}
