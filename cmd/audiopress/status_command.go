package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and conversion counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resp, err := newDaemonClient(cfg).status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon running (pid %d)\n", resp.PID)
			fmt.Fprintf(out, "Completed: %d  Failed: %d\n", resp.Completed, resp.Failed)
			if len(resp.Dependencies) > 0 {
				rows := make([][]string, 0, len(resp.Dependencies))
				for _, dep := range resp.Dependencies {
					state := "missing"
					if dep.Available {
						state = "ok"
					}
					rows = append(rows, []string{dep.Name, state, dep.Version, dep.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Tool", "State", "Version", "Detail"}, rows))
			}
			return nil
		},
	}
}
