package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	emojidb "github.com/emojidb/emojidb-sdk/go"
)

var (
	exportFields string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <table>",
	Short: "Write the rows of a table as an Arrow IPC stream",
	Long: `The export command queries every row of a table and writes them to a
file as an Arrow IPC stream. --fields gives the column layout as JSON, using
the same shape as define_schema:

  emojidb export users --db app.db --key secret \
    --fields '[{"Name":"id","Type":0},{"Name":"name","Type":1}]' --out users.arrow`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fields []emojidb.Field
		if err := json.Unmarshal([]byte(exportFields), &fields); err != nil {
			return fmt.Errorf("invalid --fields: %w", err)
		}
		if dbPath == "" {
			return fmt.Errorf("--db is required")
		}

		ctx := cmd.Context()
		c, stop, err := connect(ctx)
		if err != nil {
			return err
		}
		defer stop()

		if _, err := c.Open(ctx, dbPath, dbKey); err != nil {
			return fmt.Errorf("open %s: %w", dbPath, err)
		}

		rec, err := c.Table(args[0], fields...).QueryAsArrow(ctx, nil, nil)
		if err != nil {
			return err
		}
		defer rec.Release()

		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		if err := emojidb.WriteArrowIPC(f, rec); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		pterm.Success.Printfln("Exported %d rows from %s to %s", rec.NumRows(), args[0], exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFields, "fields", "", "table fields as JSON")
	exportCmd.Flags().StringVar(&exportOut, "out", "export.arrow", "output file")
	exportCmd.Flags().StringVar(&dbPath, "db", "", "database file to open")
	exportCmd.Flags().StringVar(&dbKey, "key", "", "encryption key for --db")
	_ = exportCmd.MarkFlagRequired("fields")
	rootCmd.AddCommand(exportCmd)
}
