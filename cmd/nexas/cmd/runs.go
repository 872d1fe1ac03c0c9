/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/nexas/pkg/di"
	"github.com/ssargent/nexas/pkg/storage"
)

// runsCmd groups the run journal commands
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run journal",
	Long: `Inspect batch runs recorded in the run journal. Runs are only recorded when
a journal directory is configured (journal.dir or --journal).`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Long: `List recorded runs, newest first.

Examples:
  nexas runs list --journal ./runs
  nexas runs list --limit 5 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		container, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		reports, err := container.Journal().List(limit)
		if err != nil {
			return err
		}
		if format == "json" {
			return outputJSON(cmd.OutOrStdout(), reports)
		}
		return outputRunsTable(cmd.OutOrStdout(), reports)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the per-file results of a run",
	Long: `Show the per-file results of a recorded run.

Examples:
  nexas runs show 2nSb6qBrWdmNBzcUBWpWuGtgWbm --journal ./runs`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		container, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer container.Close()

		report, err := container.Journal().Get(args[0])
		if errors.Is(err, storage.ErrRunNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		if err != nil {
			return err
		}
		if format == "json" {
			return outputJSON(cmd.OutOrStdout(), report)
		}
		return outputRunTable(cmd.OutOrStdout(), report)
	},
}

func openJournal(cmd *cobra.Command) (*di.Container, error) {
	container, err := newContainer(cmd)
	if err != nil {
		return nil, err
	}
	if container.Journal() == nil {
		container.Close()
		return nil, errors.New("run journal is not configured (set journal.dir or --journal)")
	}
	return container, nil
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs (0 lists all)")
	for _, c := range []*cobra.Command{runsListCmd, runsShowCmd} {
		c.Flags().StringP("format", "f", "table", "Output format: table or json")
	}
}
