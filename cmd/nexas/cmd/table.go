/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/nexas/pkg/convert"
)

// tableCmd groups the config table conversions
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Convert configuration tables",
	Long:  `Convert the engine's binary configuration tables (*.dat) to JSON or CSV and back.`,
}

var tableExtractCmd = &cobra.Command{
	Use:   "extract <file|dir>...",
	Short: "Convert binary tables to JSON or CSV",
	Long: `Convert binary tables (*.dat) to JSON (*.json) or CSV (*.csv).

Examples:
  nexas table extract system.dat
  nexas table extract ./data --format csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		container, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		op, err := container.Converter().TableExtract(format)
		if err != nil {
			return err
		}
		return runOperation(cmd, container, op, args)
	},
}

var tableRebuildCmd = &cobra.Command{
	Use:   "rebuild <file|dir>...",
	Short: "Convert JSON or CSV tables back to binary",
	Long: `Convert JSON (*.json) and CSV (*.csv) tables back into binary tables written
as *.new. The input format follows each file's extension.

Examples:
  nexas table rebuild system.csv
  nexas table rebuild ./data`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		return runOperation(cmd, container, container.Converter().TableRebuild(), args)
	},
}

func init() {
	rootCmd.AddCommand(tableCmd)
	tableCmd.AddCommand(tableExtractCmd)
	tableCmd.AddCommand(tableRebuildCmd)

	tableExtractCmd.Flags().StringP("format", "f", convert.FormatJSON, "Output format: json or csv")
}
