package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type processResult struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Errors    int    `json:"errors"`
	Total     int    `json:"total"`
}

type processResponse struct {
	Status   string        `json:"status"`
	ClientID string        `json:"client_id"`
	Result   processResult `json:"result"`
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var user string
	var password string
	var async bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process <client-id> <site-url>",
		Short: "Register a WordPress site and process its images",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID := strings.TrimSpace(args[0])
			siteURL := strings.TrimSpace(args[1])
			if strings.TrimSpace(user) == "" || password == "" {
				return errors.New("--user and --password are required")
			}

			payload := map[string]any{
				"client_id":   clientID,
				"wp_url":      siteURL,
				"wp_user":     user,
				"wp_password": password,
				"wait":        !async,
			}
			var resp processResponse
			if err := ctx.postJSON("/api/process", payload, &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if async {
				fmt.Fprintf(out, "Processing started for %s (%s)\n", clientID, siteURL)
				fmt.Fprintln(out, "Check progress with `imageseo stats` or `imageseo runs`.")
				return nil
			}
			fmt.Fprintf(out, "Run %s finished for %s\n", resp.Result.RunID, siteURL)
			fmt.Fprintf(out, "  candidates: %d\n", resp.Result.Total)
			fmt.Fprintf(out, "  updated:    %d\n", resp.Result.Processed)
			fmt.Fprintf(out, "  errors:     %d\n", resp.Result.Errors)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "WordPress username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "WordPress application password")
	cmd.Flags().BoolVar(&async, "async", false, "Return immediately instead of waiting for the run")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
