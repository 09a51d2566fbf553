package main

import (
	"fmt"
	"io"
	"time"
)

// report holds the final import summary.
type report struct {
	Source        string
	Target        string
	TasksRead     int
	TasksInserted int
	TasksVerified int
	LogsRead      int
	LogsInserted  int
	LogsVerified  int
	Skipped       []skippedRow
	Duration      time.Duration
	DryRun        bool
	Err           error
}

// printReport writes the import summary to w.
func printReport(w io.Writer, r *report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== tasktrail import report ===")
	if r.DryRun {
		fmt.Fprintln(w, "MODE: DRY RUN (no changes made)")
	}
	fmt.Fprintf(w, "Source: %s\n", r.Source)
	if r.Target != "" {
		fmt.Fprintf(w, "Target: %s\n", r.Target)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Tasks: %d read -> %d inserted -> %d verified\n",
		r.TasksRead, r.TasksInserted, r.TasksVerified)
	fmt.Fprintf(w, "Logs:  %d read -> %d inserted -> %d verified\n",
		r.LogsRead, r.LogsInserted, r.LogsVerified)

	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped rows (%d):\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  - %s #%d: %s\n", s.Table, s.ID, s.Reason)
		}
	}

	fmt.Fprintf(w, "\nDuration: %.1fs\n", r.Duration.Seconds())
	if r.Err != nil {
		fmt.Fprintf(w, "Status: FAILED (%v)\n", r.Err)
	} else {
		fmt.Fprintln(w, "Status: SUCCESS")
	}
}
