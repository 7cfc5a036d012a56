// ABOUTME: CLI commands for the default action used by 'h2c ask' and the MCP ask tool
// ABOUTME: Saved-template defaults need Pro and fall back to plain ask without it
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// NewDefaultCmd creates the default command group
func NewDefaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "default",
		Short: "Show or change the default action",
		Long: `Show or change the default action.

The default action is what 'h2c ask' uses without --action. It is either
plain ask or one of your saved templates (Pro). If Pro lapses the default
falls back to plain ask.`,
	}

	cmd.AddCommand(newDefaultShowCmd())
	cmd.AddCommand(newDefaultSetCmd())

	return cmd
}

func newDefaultShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the default action",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			fa, err := a.gate.DefaultAction(ctx)
			if err != nil {
				return err
			}

			label := "Ask"
			if fa.IsSaved() {
				if s, ok, err := a.catalog.SavedInstruction(ctx, fa.ID); err == nil && ok {
					label = s.Action().Label
				} else {
					label = "(missing template)"
				}
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"type":  fa.Type,
					"id":    fa.ID,
					"menu":  fa.MenuID(),
					"label": label,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", label, fa.MenuID())
			return nil
		},
	}
}

func newDefaultSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set ACTION",
		Short: "Set the default action",
		Long: `Set the default action.

ACTION is "ask" or a saved template, given as "saved:<id>" or just "<id>".

Examples:
  h2c default set ask
  h2c default set saved:3f0c2a4e-...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			fa := models.DefaultFloatingAction()
			if arg := strings.TrimSpace(args[0]); arg != models.MenuAskID && arg != models.FloatingPassThrough {
				id := strings.TrimPrefix(arg, "saved:")
				if _, ok, err := a.catalog.SavedInstruction(ctx, id); err != nil {
					return err
				} else if !ok {
					return fmt.Errorf("no saved template with id %q (see 'h2c instructions list')", id)
				}
				fa = models.FloatingAction{Type: models.FloatingSaved, ID: id}
			}

			if err := a.gate.SetDefaultAction(ctx, fa); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Default action set to %s\n", fa.MenuID())
			}
			return nil
		},
	}
}
