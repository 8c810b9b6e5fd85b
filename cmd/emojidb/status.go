package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Start the engine and report its status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, stop, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer stop()

		status := c.Status()
		b := c.Binary()
		details := fmt.Sprintf("State:    %s\nPID:      %d\nPlatform: %s/%s\nBinary:   %s",
			status.State, status.PID, b.Platform, b.Architecture, c.EnginePath())
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("EmojiDB Engine")).
			WithPadding(1).
			Println(details)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
