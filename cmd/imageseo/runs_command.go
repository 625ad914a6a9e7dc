package main

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type runEntry struct {
	ID           string    `json:"ID"`
	ClientID     string    `json:"ClientID"`
	SiteURL      string    `json:"SiteURL"`
	Trigger      string    `json:"Trigger"`
	Processed    int       `json:"Processed"`
	Errors       int       `json:"Errors"`
	Total        int       `json:"Total"`
	ErrorSummary string    `json:"ErrorSummary"`
	StartedAt    time.Time `json:"StartedAt"`
	FinishedAt   time.Time `json:"FinishedAt"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var clientID string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if clientID != "" {
				query.Set("client_id", clientID)
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/runs"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}

			var resp struct {
				Runs []runEntry `json:"runs"`
			}
			if err := ctx.getJSON(path, &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			rows := make([][]string, 0, len(resp.Runs))
			for _, run := range resp.Runs {
				status := "ok"
				if run.ErrorSummary != "" {
					status = run.ErrorSummary
				} else if run.Errors > 0 {
					status = fmt.Sprintf("%d errors", run.Errors)
				}
				rows = append(rows, []string{
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.ClientID,
					run.SiteURL,
					run.Trigger,
					strconv.Itoa(run.Processed),
					strconv.Itoa(run.Total),
					status,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Client", "Site", "Trigger", "Updated", "Candidates", "Status"},
				rows, 4, 5))
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "Only show runs for this client")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
