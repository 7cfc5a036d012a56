// ABOUTME: CLI commands for saved instruction templates
// ABOUTME: Templates live in the synced scope and need Pro to create
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// NewInstructionsCmd creates the instructions command group
func NewInstructionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instructions",
		Aliases: []string{"templates"},
		Short:   "Manage saved instruction templates",
		Long: `Manage saved instruction templates (Pro).

A template is free-form text. Put {{text}} where the selection should go;
without it the selection is appended after a blank line. Templates sync
across devices through Charm.`,
	}

	cmd.AddCommand(newInstructionsListCmd())
	cmd.AddCommand(newInstructionsAddCmd())
	cmd.AddCommand(newInstructionsRemoveCmd())

	return cmd
}

func newInstructionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.catalog.ListSavedInstructions(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput() {
				if saved == nil {
					saved = []models.SavedInstruction{}
				}
				return printJSON(cmd.OutOrStdout(), saved)
			}

			if len(saved) == 0 {
				if !quiet {
					fmt.Fprintln(cmd.OutOrStdout(), "No saved templates")
				}
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tNAME\tTEMPLATE\n")
			fmt.Fprintf(w, "--\t----\t--------\n")
			for _, s := range saved {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, truncate(s.Name, 30), truncate(oneLine(s.Template), 50))
			}
			w.Flush()

			if !quiet && !a.gate.IsEntitled(cmd.Context()) {
				fmt.Fprintf(cmd.OutOrStdout(), "\nThese templates are hidden from the menu until Pro is active\n")
			}
			return nil
		},
	}
}

func newInstructionsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME [TEMPLATE]",
		Short: "Save a new template",
		Long: `Save a new template. When TEMPLATE is omitted it is read from stdin.

Examples:
  h2c instructions add "Rewrite" "Rewrite this more clearly: {{text}}"
  h2c instructions add "Review" < review-prompt.txt`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := readText(args[1:], cmd.InOrStdin())
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.gate.Require(cmd.Context(), "Templates"); err != nil {
				return err
			}

			id, err := a.catalog.AddSavedInstruction(cmd.Context(), args[0], template)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"id": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved template %s (use with: h2c ask -a saved:%s)\n", id, id)
			return nil
		},
	}
}

func newInstructionsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Delete a saved template",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.catalog.RemoveSavedInstruction(cmd.Context(), args[0]); err != nil {
				return err
			}
			// A default pointing at the removed template falls back to plain ask
			fa, err := a.gate.DefaultAction(cmd.Context())
			if err != nil {
				logger.Warn("failed to read default action", zap.Error(err))
			} else if fa.IsSaved() && fa.ID == args[0] {
				if err := a.gate.SetDefaultAction(cmd.Context(), models.DefaultFloatingAction()); err != nil {
					return err
				}
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			}
			return nil
		},
	}
}
