package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reeldesk/internal/ipc"
	"reeldesk/internal/preflight"
	"reeldesk/internal/store"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run environment checks and inspect database health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			lines := renderSectionHeader("Checks", colorize)
			for _, result := range results {
				lines = append(lines, checkLine(result, colorize))
			}

			health, source, err := loadDatabaseHealth(cmd, ctx)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Database", colorize)...)
			lines = append(lines, databaseLines(health, source, err, colorize)...)
			writeLines(out, lines)

			failed := len(preflight.Failed(results))
			if err != nil || !databaseHealthy(health) {
				failed++
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

// loadDatabaseHealth asks the daemon first so the check does not contend
// with its connection, then falls back to opening the database directly.
func loadDatabaseHealth(cmd *cobra.Command, ctx *commandContext) (*ipc.DatabaseHealthResponse, string, error) {
	client, dialErr := ipc.Dial(ctx.socketPath())
	if dialErr == nil {
		defer client.Close()
		resp, err := client.DatabaseHealth()
		return resp, "daemon", err
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "direct", err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, "direct", fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	health, err := st.CheckHealth(cmd.Context())
	resp := &ipc.DatabaseHealthResponse{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		SchemaVersion:    health.SchemaVersion,
		MissingTables:    health.MissingTables,
		IntegrityCheck:   health.IntegrityCheck,
		Error:            health.Error,
	}
	return resp, "direct", err
}

func databaseHealthy(health *ipc.DatabaseHealthResponse) bool {
	return health != nil &&
		health.DatabaseExists &&
		health.DatabaseReadable &&
		health.IntegrityCheck &&
		len(health.MissingTables) == 0
}

func databaseLines(health *ipc.DatabaseHealthResponse, source string, err error, colorize bool) []string {
	if health == nil {
		if err == nil {
			err = errors.New("no health report")
		}
		return []string{renderStatusLine("Database", statusError, err.Error(), colorize)}
	}
	lines := []string{
		renderStatusLine("Source", statusInfo, source, colorize),
		renderStatusLine("Path", statusInfo, health.DBPath, colorize),
		boolLine("Exists", health.DatabaseExists, colorize),
		boolLine("Readable", health.DatabaseReadable, colorize),
		renderStatusLine("Schema version", statusInfo, fmt.Sprint(health.SchemaVersion), colorize),
		boolLine("Integrity", health.IntegrityCheck, colorize),
	}
	if len(health.MissingTables) > 0 {
		lines = append(lines, renderStatusLine("Missing tables", statusError, strings.Join(health.MissingTables, ", "), colorize))
	}
	switch {
	case health.Error != "":
		lines = append(lines, renderStatusLine("Error", statusError, health.Error, colorize))
	case err != nil:
		lines = append(lines, renderStatusLine("Error", statusError, err.Error(), colorize))
	}
	return lines
}

func boolLine(label string, ok bool, colorize bool) string {
	if ok {
		return renderStatusLine(label, statusOK, "", colorize)
	}
	return renderStatusLine(label, statusError, "", colorize)
}
