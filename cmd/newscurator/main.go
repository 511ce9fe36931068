// Package main provides the newscurator command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/deusflow/newscurator/internal/config"
	"github.com/deusflow/newscurator/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "newscurator",
	Short: "Curated Korean news digest",
	Long:  "newscurator searches Naver News for the day's keywords, scrapes the articles, scores them with an LLM and keeps the best per category.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
			go startMonitoringServer()
		}
	},
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and the logger shared by every command.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.Init(cfg.LogLevel), nil
}

// signalContext is cancelled on SIGINT or SIGTERM so stages return partial results.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
