/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file|dir>...",
	Short: "Convert compiled scripts to JSON documents",
	Long: `Convert compiled scripts (*.bin) into JSON documents (*.json) written next
to each source file.

Examples:
  nexas extract scene01.bin
  nexas extract ./script --workers 4 --encoding shift-jis`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		return runOperation(cmd, container, container.Converter().Extract(), args)
	},
}

// rebuildCmd represents the rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild <file|dir>...",
	Short: "Convert JSON documents back to compiled scripts",
	Long: `Convert JSON documents (*.json) produced by extract back into compiled
scripts. Output is written as *.new so the original *.bin files are kept.

Examples:
  nexas rebuild scene01.json
  nexas rebuild ./script --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		return runOperation(cmd, container, container.Converter().Rebuild(), args)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(rebuildCmd)
}
