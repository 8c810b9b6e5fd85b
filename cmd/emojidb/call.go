package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	dbPath string
	dbKey  string
)

var callCmd = &cobra.Command{
	Use:   "call <method> [params-json]",
	Short: "Send one request to the engine and print its result",
	Long: `The call command starts the engine, optionally opens a database with
--db and --key, sends a single request and prints the JSON result.

Example:
  emojidb call --db app.db --key secret query '{"table":"users","match":{}}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := json.RawMessage(`{}`)
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("params must be valid JSON: %s", args[1])
			}
			params = json.RawMessage(args[1])
		}

		ctx := cmd.Context()
		c, stop, err := connect(ctx)
		if err != nil {
			return err
		}
		defer stop()

		if dbPath != "" {
			if _, err := c.Open(ctx, dbPath, dbKey); err != nil {
				return fmt.Errorf("open %s: %w", dbPath, err)
			}
		}

		data, err := c.Call(ctx, args[0], params)
		if err != nil {
			return err
		}

		var out bytes.Buffer
		if len(data) == 0 {
			data = json.RawMessage(`null`)
		}
		if err := json.Indent(&out, data, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())
		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&dbPath, "db", "", "database file to open before the call")
	callCmd.Flags().StringVar(&dbKey, "key", "", "encryption key for --db")
	rootCmd.AddCommand(callCmd)
}
