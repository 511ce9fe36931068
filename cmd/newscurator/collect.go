package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deusflow/newscurator/internal/app"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Search and deduplicate news for the given keywords",
	Long:  "Run only the collection stage for --keyword values and print the deduplicated candidates as JSON.",
	RunE:  runCollect,
}

var collectKeywords []string

func init() {
	collectCmd.Flags().StringSliceVarP(&collectKeywords, "keyword", "k", nil, "Search keyword (repeatable)")
	_ = collectCmd.MarkFlagRequired("keyword")

	rootCmd.AddCommand(collectCmd)
}

func runCollect(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	collector, cleanup := app.BuildCollector(cfg, log)
	defer cleanup()

	items := collector.Collect(ctx, collectKeywords)
	if len(items) == 0 {
		return app.ErrNoCandidates
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	return nil
}
