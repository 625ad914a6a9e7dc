package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type statsResponse struct {
	TotalProcessed int64                        `json:"total_processed"`
	ActiveClients  int                          `json:"active_clients"`
	ActiveRuns     int64                        `json:"active_runs"`
	Clients        map[string]statsClientDetail `json:"clients"`
}

type statsClientDetail struct {
	Sites []string `json:"sites"`
	Stats struct {
		TotalProcessed int64 `json:"total_processed"`
		TotalErrors    int64 `json:"total_errors"`
	} `json:"stats"`
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-client processing statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats statsResponse
			if err := ctx.getJSON("/api/stats", &stats); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Clients: %d  Images processed: %d  Active runs: %d\n",
				stats.ActiveClients, stats.TotalProcessed, stats.ActiveRuns)
			if len(stats.Clients) == 0 {
				fmt.Fprintln(out, "No clients registered yet.")
				return nil
			}

			ids := make([]string, 0, len(stats.Clients))
			for id := range stats.Clients {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				client := stats.Clients[id]
				rows = append(rows, []string{
					id,
					strings.Join(client.Sites, "\n"),
					strconv.FormatInt(client.Stats.TotalProcessed, 10),
					strconv.FormatInt(client.Stats.TotalErrors, 10),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Client", "Sites", "Processed", "Errors"},
				rows, 2, 3))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
