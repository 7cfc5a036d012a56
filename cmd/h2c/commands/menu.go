// ABOUTME: CLI command to show the action menu
// ABOUTME: Runs one orchestrated rebuild into an in-memory registry and prints it
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/menu"
)

// NewMenuCmd creates the menu command
func NewMenuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Show the available actions",
		Long: `Show the action menu as it currently stands.

Built-in instructions are always listed. Saved templates are listed with
Pro; without it a single upgrade entry takes their place.

Examples:
  h2c menu
  h2c menu --format json`,
		RunE: runMenu,
	}
	return cmd
}

func runMenu(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	registry := menu.NewMemoryRegistry()
	o := menu.NewOrchestrator(registry, a.gate, a.catalog, 0, logger)
	defer o.Close()

	o.RequestRebuild()
	select {
	case <-o.Settled():
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}

	items := registry.Items()
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), items)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tACTION\n")
	fmt.Fprintf(w, "--\t------\n")
	for _, item := range items {
		if item.ParentID == "" {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", truncate(item.ID, 44), item.Label)
	}
	w.Flush()

	if !quiet && !a.gate.IsEntitled(cmd.Context()) {
		fmt.Fprintf(cmd.OutOrStdout(), "\nSaved templates need Pro: h2c pro buy\n")
	}
	return nil
}
