package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deusflow/newscurator/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full curation pipeline once",
	Long:  "Generate keywords, collect and deduplicate search results, scrape article details, score them and save the top items per category.",
	RunE:  runPipeline,
}

var (
	runOutPath string
	runDryRun  bool
	runJSON    bool
)

func init() {
	runCmd.Flags().StringVarP(&runOutPath, "out", "o", "", "Save curated items to this JSON file instead of the configured store")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Do not persist anything")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the report as JSON")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pipeline, cleanup, err := app.Build(ctx, cfg, log, app.Options{OutPath: runOutPath, DryRun: runDryRun})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer cleanup()

	report, err := pipeline.Run(ctx)
	if report != nil {
		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return fmt.Errorf("failed to encode report: %w", encErr)
			}
		} else if writeErr := app.WriteReport(os.Stdout, report); writeErr != nil {
			return writeErr
		}
	}
	return err
}
