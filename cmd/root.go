// Package cmd implements the coursechat command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/coursechat/coursechat/internal/config"
	"github.com/coursechat/coursechat/internal/log"
)

var debugLogging bool

var rootCmd = &cobra.Command{
	Use:   "coursechat",
	Short: "Question answering over indexed course materials",
	Long: `coursechat answers natural-language questions about indexed course
materials. The model decides per query whether to search course content
or fetch a course outline, and answers are returned with cited sources.

Run 'coursechat serve' to expose the HTTP API, 'coursechat ingest' to
index transcripts, or 'coursechat ask' for a one-shot question.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger honoring the --debug flag.
// Logs go to stderr so command output stays clean on stdout.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if debugLogging || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// loadConfig loads configuration for commands that need the full
// application. Validation happens inside Load.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
