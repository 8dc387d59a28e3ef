package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coursechat/coursechat/internal/app"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index course transcripts from a folder",
	Long: `Parses every .txt and .md transcript in the folder and indexes new
courses. Courses whose titles are already in the catalog are skipped.
With no argument the configured docs_dir is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	dir := cfg.DocsDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no folder given and docs_dir is not configured")
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	courses, chunks, err := a.RAG.AddCourseFolder(ctx, dir)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", dir, err)
	}

	fmt.Printf("Indexed %d new course(s), %d chunk(s).\n", courses, chunks)
	return nil
}
