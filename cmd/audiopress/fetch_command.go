package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audiopress/internal/api"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var quality string
	var title string

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Convert a video to MP3 and report the download link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := newDaemonClient(cfg)
			resp, err := client.convert(cmd.Context(), api.ConvertRequest{
				URL:     args[0],
				Quality: quality,
				Title:   title,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Converted: %s\n", resp.Title)
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Quality", "Size", "Expires"},
				[][]string{{
					resp.FileName,
					resp.Quality + " kbps",
					formatSize(resp.FileSizeBytes),
					resp.ExpiresAt,
				}},
				2,
			))
			fmt.Fprintf(out, "Download: %s%s\n", client.baseURL, resp.DownloadURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&quality, "quality", "q", "128", "Target bitrate in kbps (128 or 320)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Override the resolved title")
	return cmd
}

func formatSize(bytes int64) string {
	const mb = 1 << 20
	if bytes >= mb {
		return fmt.Sprintf("%.1f MiB", float64(bytes)/mb)
	}
	return fmt.Sprintf("%d B", bytes)
}
