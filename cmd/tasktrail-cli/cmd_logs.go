package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Show your task audit log, oldest first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := apiClient.Logs.List(context.Background())
			if err != nil {
				fatal("list logs", err)
			}
			switch flagFmt {
			case "table":
				formatTable(logHeaders, logRows(entries))
			case "quiet":
				for _, e := range entries {
					fmt.Println(e.ID)
				}
			default:
				output(entries, "")
			}
		},
	}
}
