/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ssargent/nexas/pkg/batch"
)

// printReport prints the outcome of a run and every failing file
func printReport(w io.Writer, report *batch.Report) {
	fmt.Fprintf(w, "%s: %d succeeded, %d failed in %s (run %s)\n",
		report.Operation, report.Succeeded(), report.Failed(),
		report.Duration.Round(time.Millisecond), report.ID)
	for _, res := range report.Failures() {
		fmt.Fprintf(w, "  %s: %s\n", res.Source, res.Error)
	}
}

// outputRunsTable lists runs in table format
func outputRunsTable(out io.Writer, reports []*batch.Report) error {
	if len(reports) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOPERATION\tSTARTED\tFILES\tFAILED\tDURATION")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID,
			r.Operation,
			r.Started.Local().Format("2006-01-02 15:04:05"),
			len(r.Results),
			r.Failed(),
			r.Duration.Round(time.Millisecond))
	}
	return w.Flush()
}

// outputRunTable shows one run with its per-file results
func outputRunTable(out io.Writer, r *batch.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "ID:\t%s\n", r.ID)
	fmt.Fprintf(w, "Operation:\t%s\n", r.Operation)
	fmt.Fprintf(w, "Started:\t%s\n", r.Started.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:\t%s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Succeeded:\t%d\n", r.Succeeded())
	fmt.Fprintf(w, "Failed:\t%d\n", r.Failed())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SOURCE\tTARGET\tSTATUS\tBYTES IN\tBYTES OUT")
	for _, res := range r.Results {
		status := "ok"
		if !res.OK() {
			status = res.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", res.Source, res.Target, status, res.BytesIn, res.BytesOut)
	}
	return w.Flush()
}

// outputJSON writes v as indented JSON
func outputJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
