package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-finder/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "face-finder",
	Short: "Find where a face appears in Reddit posts",
	Long: `Face Finder takes a reference photo and a Reddit link (subreddit or post),
detects the most prominent face in every image it finds there and streams
back the ones that look like the person in the reference photo.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newLogger builds the process logger from the persistent log flags.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("reading --log-level: %w", err)
	}
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, fmt.Errorf("reading --log-format: %w", err)
	}
	return logging.New(level, format)
}
