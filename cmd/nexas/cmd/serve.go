/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/nexas/pkg/metrics"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the nexas REST API server. Scripts and tables can be converted over
HTTP, runs recorded in the journal can be listed, and Prometheus metrics are
served on /metrics.

When an API key is configured every conversion and run endpoint requires the
X-API-Key header. Health, metrics and the Swagger document stay open.

Examples:
  nexas serve
  nexas serve --addr 0.0.0.0:9000 --api-key mysecretkey --journal ./runs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := newContainer(cmd, metrics.WithRuntimeCollectors())
		if err != nil {
			return err
		}
		defer container.Close()

		serverConfig := container.ServerConfig()
		if cmd.Flags().Changed("addr") {
			serverConfig.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("api-key") {
			serverConfig.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if serverConfig.APIKey == "" {
			container.Logger().Warn("No API key configured; conversion endpoints are open")
		}

		cmd.Printf("🚀 Starting nexas server on %s\n", serverConfig.Addr)

		starter := container.GetServerFactory().CreateServerStarter()
		if err := starter.StartServer(cmd.Context(), container.Converter(), container.RunStore(),
			serverConfig, container.Metrics()); err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().String("api-key", "", "API key required on conversion endpoints")
}
