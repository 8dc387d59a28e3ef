package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coursechat/coursechat/internal/app"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question about the indexed courses",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

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

	question := strings.Join(args, " ")
	answer, sources, err := a.RAG.Query(ctx, question, nil)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(answer)
	if len(sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, s := range sources {
			if s.URL != "" {
				fmt.Printf("  - %s (%s)\n", s.Text, s.URL)
			} else {
				fmt.Printf("  - %s\n", s.Text)
			}
		}
	}
	return nil
}
