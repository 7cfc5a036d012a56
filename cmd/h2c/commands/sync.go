// ABOUTME: Sync commands for Charm cloud synchronization of settings
// ABOUTME: Provides status, manual sync and wiping the local charm cache
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNoCharm = errors.New("charm sync is not in use (H2C_SYNC=local or charm unavailable)")

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization with Charm cloud.

Saved templates and the default action sync across devices through Charm
using your SSH keys. Entitlement and history stay local to each device.
With H2C_SYNC=local everything is kept in the local SQLite database.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncWipeCmd())

	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if a.charm == nil {
				fmt.Fprintln(out, "Backend: local SQLite")
				fmt.Fprintf(out, "Data: %s\n", a.dataDir)
				return nil
			}

			fmt.Fprintln(out, "Backend: Charm")
			fmt.Fprintf(out, "Host: %s\n", a.cfg.CharmHost)
			id, err := a.charm.ID()
			if err != nil {
				fmt.Fprintln(out, "Status: Not connected")
				return nil
			}
			fmt.Fprintln(out, "Status: Connected")
			fmt.Fprintf(out, "User ID: %s\n", id)
			if keys, err := a.charm.Keys(); err == nil {
				fmt.Fprintf(out, "Synced keys: %d\n", len(keys))
			}
			return nil
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.charm == nil {
				return errNoCharm
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Syncing...")
			}
			if err := a.charm.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			}
			return nil
		},
	}
}

func newSyncWipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Wipe the local Charm cache (nuclear option)",
		Long: `Completely wipe the locally cached Charm data.

WARNING: This deletes the local copy of synced settings. Your cloud data
remains intact and will be re-synced on next access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Fprintln(cmd.OutOrStdout(), "This will wipe ALL locally cached synced settings!")
				fmt.Fprintln(cmd.OutOrStdout(), "Run with --confirm to proceed")
				return nil
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.charm == nil {
				return errNoCharm
			}
			if err := a.charm.Reset(); err != nil {
				return fmt.Errorf("failed to wipe data: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Local data wiped successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")

	return cmd
}
