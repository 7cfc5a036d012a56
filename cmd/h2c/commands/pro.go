// ABOUTME: CLI commands for the Pro entitlement
// ABOUTME: License activation, purchase restore, status and the developer override
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/delivery"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/entitlement"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/menu"
)

// NewProCmd creates the pro command group
func NewProCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pro",
		Short: "Manage h2c Pro",
		Long: `Manage h2c Pro.

Pro is a one-time $2.99 purchase. It unlocks saved templates, template
defaults, history search and export, and a larger history. Activation
verifies the license key once; the result is stored on this device.`,
	}

	cmd.AddCommand(newProStatusCmd())
	cmd.AddCommand(newProActivateCmd())
	cmd.AddCommand(newProRestoreCmd())
	cmd.AddCommand(newProBuyCmd())
	cmd.AddCommand(newProOverrideCmd())

	return cmd
}

func newProStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether Pro is active",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			entitled := a.gate.IsEntitled(ctx)
			key, err := a.gate.LastCredential(ctx)
			if err != nil {
				logger.Warn("failed to read saved license key", zap.Error(err))
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"pro":         entitled,
					"history_cap": a.gate.HistoryCap(ctx),
					"license_key": maskCredential(key),
				})
			}

			if entitled {
				fmt.Fprintln(cmd.OutOrStdout(), "Pro: active")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Pro: not active")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "History keeps: %d entries\n", a.gate.HistoryCap(ctx))
			if key != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "License key: %s\n", maskCredential(key))
			}
			return nil
		},
	}
}

func newProActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate LICENSE_KEY",
		Short: "Activate Pro with a license key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.gate.Activate(cmd.Context(), args[0]); err != nil {
				return activationError(err)
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Pro unlocked. Thank you!")
			}
			return nil
		},
	}
}

func newProRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [LICENSE_KEY]",
		Short: "Restore a purchase",
		Long: `Restore a purchase on this device.

Uses the given license key, or the key saved by the last successful
activation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			typed := ""
			if len(args) == 1 {
				typed = args[0]
			}
			if err := a.gate.Restore(cmd.Context(), typed); err != nil {
				return activationError(err)
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Purchase restored. Pro is active.")
			}
			return nil
		},
	}
}

func newProBuyCmd() *cobra.Command {
	var noOpen bool

	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Open the Pro checkout page",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var opener delivery.Opener
			if !noOpen {
				opener = a.browser
			}
			prompter := menu.NewCheckoutPrompter(a.cfg.CheckoutURL, cmd.OutOrStdout(), opener, logger)
			return prompter.Checkout(cmd.Context(), "Templates")
		},
	}

	cmd.Flags().BoolVar(&noOpen, "no-open", false, "Only print the checkout link")

	return cmd
}

func newProOverrideCmd() *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:    "override on|off",
		Short:  "Force Pro on or off (development)",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entitled bool
			switch args[0] {
			case "on":
				entitled = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.gate.SetOverride(cmd.Context(), passphrase, entitled); err != nil {
				if errors.Is(err, entitlement.ErrOverrideDisabled) {
					return fmt.Errorf("%w (set H2C_DEV_PASSPHRASE to enable it)", err)
				}
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Pro override: %s\n", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Developer passphrase (H2C_DEV_PASSPHRASE)")

	return cmd
}

// activationError points at the activate command when no key is known.
// Verification errors already read as user-facing messages.
func activationError(err error) error {
	if errors.Is(err, entitlement.ErrNoCredential) {
		return errors.New("enter a license key: h2c pro activate LICENSE_KEY")
	}
	return err
}
