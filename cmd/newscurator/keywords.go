package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deusflow/newscurator/internal/app"
	"github.com/deusflow/newscurator/internal/topics"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Print today's search keywords",
	Long:  "Generate keywords from the configured source and merge them with the static keywords.",
	RunE:  runKeywords,
}

var keywordsDryRun bool

func init() {
	keywordsCmd.Flags().BoolVar(&keywordsDryRun, "dry-run", false, "Do not record keyword history")

	rootCmd.AddCommand(keywordsCmd)
}

func runKeywords(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	gen, cleanup, err := app.BuildGenerator(ctx, cfg, log, app.Options{DryRun: keywordsDryRun})
	if err != nil {
		return err
	}
	defer cleanup()

	generated, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate keywords: %w", err)
	}

	_, err = fmt.Fprintln(os.Stdout, strings.Join(topics.Merge(generated, cfg.Topics.StaticKeywords), "\n"))
	return err
}
