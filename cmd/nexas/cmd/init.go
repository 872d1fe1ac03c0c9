/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/nexas/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a configuration file with default settings, a run journal directory and
a generated API key for the REST server.

Without --config the file is written to ~/.config/nexas/config.yaml, which every
other command reads when no --config is given. The journal lives next to the
config file unless --journal says otherwise.

Examples:
  nexas init
  nexas init --config ./nexas.yaml --journal ./runs --print-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		journalDir, _ := cmd.Flags().GetString("journal")
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if journalDir == "" {
			journalDir = filepath.Join(filepath.Dir(configPath), "journal")
		}

		if config.ConfigExists(configPath) && !force {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		cfg, err := config.BootstrapConfig(configPath, journalDir)
		if err != nil {
			return err
		}

		cmd.Printf("✅ Configuration created at %s\n", configPath)
		cmd.Printf("📁 Run journal: %s\n", cfg.Journal.Dir)
		if printKey {
			cmd.Printf("\n🔑 Server API key: %s\n", cfg.Server.APIKey)
			cmd.Printf("⚠️  Store this key securely! It is also saved in %s\n", configPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}
