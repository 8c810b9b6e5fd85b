package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	emojidb "github.com/emojidb/emojidb-sdk/go"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the engine for this platform",
	Long: `The fetch command resolves the engine binary for this platform and
downloads it into the cache directory if it is not there yet. The path of the
binary is printed on success.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		c := emojidb.NewClient(config)
		b := c.Binary()

		spinner, _ := pterm.DefaultSpinner.Start("Resolving " + b.FileName)
		path, err := c.EnsureBinary(cmd.Context())
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		spinner.Success(path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
