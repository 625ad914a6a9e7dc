package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type statusResponse struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	RegistryPath string `json:"registry_path"`
	RunLogPath   string `json:"run_log_path"`
	LockFilePath string `json:"lock_file_path"`
	ActiveRuns   int64  `json:"active_runs"`
	Generator    string `json:"generator"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status statusResponse
			if err := ctx.getJSON("/api/status", &status); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			runningKind := statusError
			if status.Running {
				runningKind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, "pid "+strconv.Itoa(status.PID), colorize))
			fmt.Fprintln(out, renderStatusLine("Generator", statusInfo, status.Generator, colorize))
			fmt.Fprintln(out, renderStatusLine("Active runs", statusInfo, strconv.FormatInt(status.ActiveRuns, 10), colorize))
			fmt.Fprintln(out, renderStatusLine("Registry", statusInfo, status.RegistryPath, colorize))
			if status.RunLogPath != "" {
				fmt.Fprintln(out, renderStatusLine("Run log", statusInfo, status.RunLogPath, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
