package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reeldesk/internal/api"
	"reeldesk/internal/ipc"
	"reeldesk/internal/preflight"
	"reeldesk/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and support desk status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := loadStatus(cmd, ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			writeLines(stdout, renderSectionHeader("Daemon", colorize))
			if status.Running {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("HTTP API", statusInfo, status.APIBind, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Feed", statusInfo,
					fmt.Sprintf("%d subscribers, sequence %d", status.FeedSubscribers, status.FeedSequence), colorize))
				relayKind := statusInfo
				if status.RelayEnabled {
					relayKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Redis relay", relayKind, yesNo(status.RelayEnabled), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("Billing", statusInfo, yesNo(status.BillingEnabled), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
			fmt.Fprintln(stdout)

			writeLines(stdout, renderSectionHeader("Checks", colorize))
			for _, check := range status.Checks {
				fmt.Fprintln(stdout, apiCheckLine(check, colorize))
			}
			fmt.Fprintln(stdout)

			writeLines(stdout, renderSectionHeader("Support Desk", colorize))
			fmt.Fprint(stdout, renderTable(
				[]columnSpec{{Header: "Metric"}, {Header: "Count", Align: alignRight}},
				deskStatsRows(status.Stats),
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

// loadStatus asks the daemon and falls back to reading the database directly.
func loadStatus(cmd *cobra.Command, ctx *commandContext) (*api.DaemonStatus, error) {
	client, err := ipc.Dial(ctx.socketPath())
	if err == nil {
		defer client.Close()
		return client.Status()
	}
	if !daemonOffline(err) {
		return nil, wrapDialError(err, ctx.socketPath())
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	status := &api.DaemonStatus{
		DatabasePath:   cfg.DatabasePath(),
		LockFilePath:   cfg.LockPath(),
		SocketPath:     cfg.SocketPath(),
		APIBind:        cfg.Paths.APIBind,
		BillingEnabled: cfg.Billing.Enabled,
	}
	for _, result := range preflight.RunAll(cmd.Context(), cfg) {
		status.Checks = append(status.Checks, api.CheckStatus{Name: result.Name, Passed: result.Passed, Detail: result.Detail})
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	stats, err := st.Stats(cmd.Context())
	if err != nil {
		return nil, err
	}
	status.Stats = api.FromStats(stats)
	return status, nil
}
