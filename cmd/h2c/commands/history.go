// ABOUTME: CLI commands for the local history of sent prompts
// ABOUTME: List and clear are free; search and export need Pro
package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/history"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

var (
	historyLimit int
)

// NewHistoryCmd creates the history command group
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse the history of sent prompts",
		Long: `Browse the history of sent prompts.

History is kept on this device only, newest first. The free tier keeps
the most recent 200 entries; Pro keeps 2000 and adds search and export.`,
	}

	cmd.PersistentFlags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries to show")

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistorySearchCmd())
	cmd.AddCommand(newHistoryClearCmd())
	cmd.AddCommand(newHistoryExportCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recent entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePositiveInt(historyLimit, "--limit"); err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.ledger.List(cmd.Context())
			if err != nil {
				return err
			}
			return printEntries(cmd, entries)
		},
	}
}

func newHistorySearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search entries (Pro)",
		Long: `Search entries (Pro).

Matches case-insensitively against the action, page title, page URL,
selected text and prompt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePositiveInt(historyLimit, "--limit"); err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.gate.Require(cmd.Context(), "History search"); err != nil {
				return err
			}

			entries, err := a.ledger.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printEntries(cmd, entries)
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Fprintln(cmd.OutOrStdout(), "This will delete the whole history!")
				fmt.Fprintln(cmd.OutOrStdout(), "Run with --confirm to proceed")
				return nil
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ledger.Clear(cmd.Context()); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the clear operation")

	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var (
		format string
		output string
		query  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entries (Pro)",
		Long: `Export entries (Pro) as JSONL, TSV, YAML or Markdown.

Without --output the export is written to stdout. The format defaults to
the output file extension, or JSONL.

Examples:
  h2c history export -o history.md
  h2c history export -f tsv --query golang > golang.tsv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = string(history.FormatJSONL)
				if ext := filepath.Ext(output); ext != "" {
					format = ext
				}
			}
			f, err := history.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.gate.Require(cmd.Context(), "History export"); err != nil {
				return err
			}

			if output == "" {
				data, err := a.ledger.Export(cmd.Context(), query)
				if err != nil {
					return err
				}
				return history.Write(cmd.OutOrStdout(), f, data)
			}

			n, err := a.ledger.ExportToFile(cmd.Context(), output, f, query)
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries to %s\n", n, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "export-format", "f", "", "jsonl, tsv, yaml or markdown")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&query, "query", "", "Only export entries matching this text")

	return cmd
}

func printEntries(cmd *cobra.Command, entries []models.HistoryEntry) error {
	if len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	if jsonOutput() {
		if entries == nil {
			entries = []models.HistoryEntry{}
		}
		return printJSON(cmd.OutOrStdout(), entries)
	}

	if len(entries) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "No history found")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WHEN\tACTION\tPAGE\tTEXT\n")
	fmt.Fprintf(w, "----\t------\t----\t----\n")
	for _, e := range entries {
		page := e.PageTitle
		if page == "" {
			page = e.PageURL
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			formatTime(e.Timestamp),
			truncate(e.ActionLabel, 24),
			truncate(oneLine(page), 30),
			truncate(oneLine(e.SelectedText), 50))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d entr%s\n", len(entries), pluralY(len(entries)))
	}
	return nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
