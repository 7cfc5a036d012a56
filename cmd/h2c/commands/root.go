// ABOUTME: Root command for the h2c CLI with global flags and logging setup
// ABOUTME: Registers every subcommand and owns the process-wide zap logger
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string

	logger = zap.NewNop()
)

const banner = `
██╗  ██╗██████╗  ██████╗
██║  ██║╚════██╗██╔════╝
███████║ █████╔╝██║
██╔══██║██╔═══╝ ██║
██║  ██║███████╗╚██████╗
╚═╝  ╚═╝╚══════╝ ╚═════╝
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "h2c",
		Short: "Send highlighted text to ChatGPT",
		Long: banner + `
Highlight to ChatGPT: send text to ChatGPT through an action.

Text is expanded through an action (plain ask, a built-in instruction
such as TL;DR, or one of your saved templates with Pro) and typed into
the composer of a new ChatGPT tab in Chrome. Every send is recorded in
a local history.

Run 'h2c serve' to expose the same actions to LLM agents over MCP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "auto", "table", "json":
			default:
				return fmt.Errorf("--format must be auto, table or json, got %q", outputFormat)
			}
			return setupLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress informational output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table or json")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewMenuCmd())
	cmd.AddCommand(NewInstructionsCmd())
	cmd.AddCommand(NewDefaultCmd())
	cmd.AddCommand(NewProCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogger builds the stderr logger. Info and debug only show with --verbose.
func setupLogger() error {
	if quiet {
		logger = zap.NewNop()
		return nil
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

func jsonOutput() bool {
	return outputFormat == "json"
}
