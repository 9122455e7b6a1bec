package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audiopress/internal/deps"
	"audiopress/internal/services/runner"
)

func newToolsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Check the external tools on this machine",
		Long: "Probes the extraction and encoding executables directly on this " +
			"machine, without contacting the daemon.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.ProbeBinaries(cmd.Context(), runner.New(), deps.ExtractorTools(), cfg.ProbeTimeout())
			statuses = append(statuses, deps.CheckFFmpeg(cfg.Tools.FFmpegPath))
			statuses = append(statuses, deps.CheckFFprobe(cfg.Tools.FFprobePath))

			rows := make([][]string, 0, len(statuses))
			allRequired := true
			for _, status := range statuses {
				state := "missing"
				if status.Available {
					state = "ok"
				} else if !status.Optional {
					allRequired = false
				}
				rows = append(rows, []string{status.Name, state, status.Version, status.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "State", "Version", "Detail"}, rows))
			if !allRequired {
				return fmt.Errorf("required tools are missing")
			}
			return nil
		},
	}
}
