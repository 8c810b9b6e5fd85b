package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	emojidb "github.com/emojidb/emojidb-sdk/go"
	"github.com/spf13/cobra"
)

var (
	configPath string
	enginePath string
	verbose    bool
)

// rootCmd is the entry point of the emojidb CLI.
var rootCmd = &cobra.Command{
	Use:   "emojidb",
	Short: "Provision and call an EmojiDB engine",
	Long: `emojidb downloads the EmojiDB engine for this platform, starts it and
issues requests to it over its line-delimited JSON protocol.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file (comments allowed)")
	rootCmd.PersistentFlags().StringVar(&enginePath, "engine", "", "engine executable to run instead of the downloaded one")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine lifecycle and stderr")
}

// loadConfig merges the config file, EMOJIDB_* variables and flags, in that order.
func loadConfig() (*emojidb.Config, error) {
	config := &emojidb.Config{}
	if configPath != "" {
		var err error
		if config, err = emojidb.LoadConfigFile(configPath); err != nil {
			return nil, err
		}
	}
	config.ApplyEnv()
	if enginePath != "" {
		config.EnginePath = enginePath
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	config.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return config, nil
}

// connect starts an engine and returns a function that stops it.
func connect(ctx context.Context) (*emojidb.Client, func(), error) {
	config, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	c := emojidb.NewClient(config)
	if _, err := c.Connect(ctx); err != nil {
		return nil, nil, err
	}

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// The engine refuses close when no database was opened.
		var engineErr *emojidb.Error
		if err := c.Close(ctx); err != nil && !errors.As(err, &engineErr) {
			fmt.Fprintln(os.Stderr, "close:", err)
		}
	}
	return c, stop, nil
}
