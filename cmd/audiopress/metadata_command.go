package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <url>",
		Short: "Resolve and print video details without converting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resp, err := newDaemonClient(cfg).metadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			duration := time.Duration(resp.DurationSeconds) * time.Second
			rows := [][]string{
				{"Title", resp.Title},
				{"Duration", duration.String()},
			}
			if resp.AuthorName != "" {
				rows = append(rows, []string{"Channel", resp.AuthorName})
			}
			if resp.ViewCount > 0 {
				rows = append(rows, []string{"Views", fmt.Sprintf("%d", resp.ViewCount)})
			}
			if resp.ThumbnailURL != "" {
				rows = append(rows, []string{"Thumbnail", resp.ThumbnailURL})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}
