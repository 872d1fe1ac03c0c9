/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/nexas/pkg/api"
	"github.com/ssargent/nexas/pkg/batch"
	"github.com/ssargent/nexas/pkg/config"
	"github.com/ssargent/nexas/pkg/di"
	"github.com/ssargent/nexas/pkg/logger"
	"github.com/ssargent/nexas/pkg/metrics"
)

// serverFactory replaces the container's server factory when set
var serverFactory api.ServerFactory

// SetServerFactory overrides how `serve` starts the API server (for testing)
func SetServerFactory(factory api.ServerFactory) {
	serverFactory = factory
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nexas",
	Short: "NeXAS script and config table converter",
	Long: `nexas converts the compiled scripts (*.bin) and configuration tables (*.dat)
of the NeXAS engine into editable JSON or CSV and back again.

Every conversion command accepts files or directories. Directories are scanned
(non-recursively) for the matching extension and each file is converted on its
own: a file that fails is logged and the rest of the batch carries on.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to configuration file (default ~/.config/nexas/config.yaml when present)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.IntP("workers", "w", 0, "Number of files converted in parallel")
	flags.Duration("timeout", 0, "Deadline for converting a single file (0 disables)")
	flags.String("encoding", "", "Text encoding of script strings (utf-8, shift-jis, euc-jp, gbk, big5)")
	flags.String("journal", "", "Directory of the run journal")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file after each run")
	flags.Bool("strict", false, "Exit with an error when any file fails")
}

// loadConfig resolves the configuration file and applies explicitly set flags
// on top of it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("workers") {
		cfg.Batch.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("timeout") {
		cfg.Batch.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("strict") {
		cfg.Batch.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("encoding") {
		cfg.Codec.TextEncoding, _ = flags.GetString("encoding")
	}
	if flags.Changed("journal") {
		cfg.Journal.Dir, _ = flags.GetString("journal")
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile, _ = flags.GetString("metrics-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newContainer loads the configuration, installs the logger and builds the
// dependency container. The caller closes it.
func newContainer(cmd *cobra.Command, metricOpts ...metrics.Option) (*di.Container, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg.Logging.Level); err != nil {
		return nil, err
	}

	container, err := di.NewContainer(cfg, logger.GetLogger(), metricOpts...)
	if err != nil {
		return nil, err
	}
	if serverFactory != nil {
		container.SetServerFactory(serverFactory)
	}
	return container, nil
}

// runOperation converts every file under paths and prints a summary. Per-file
// failures only fail the command in strict mode.
func runOperation(cmd *cobra.Command, container *di.Container, op batch.Operation, paths []string) error {
	report, err := container.Runner().Run(cmd.Context(), op, paths...)
	if err != nil {
		return err
	}

	if err := container.WriteMetrics(); err != nil {
		container.Logger().Error("Failed to write metrics", "error", err)
	}

	printReport(cmd.OutOrStdout(), report)

	if container.Config().Batch.Strict && report.Failed() > 0 {
		return fmt.Errorf("%d of %d files failed", report.Failed(), len(report.Results))
	}
	return nil
}
