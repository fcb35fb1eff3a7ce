package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Gherucu/gloload/internal/model"
	"github.com/Gherucu/gloload/internal/platform"
	"github.com/Gherucu/gloload/internal/ui"
)

func newDownloadCmd(app **App) *cobra.Command {
	return &cobra.Command{
		Use:   "download URL",
		Short: "Download one video as WAV and analyze it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			url := platform.CleanURL(args[0])
			if !platform.IsVideoURL(url) {
				return fmt.Errorf("%s: %s", ui.MsgInvalidVideoURL, url)
			}
			return a.Download(cmd.Context(), NewPrinter(cmd.OutOrStdout()), model.DownloadRequest{
				URL:       url,
				OutputDir: a.Config.OutputDir,
				Format:    model.FormatWAV,
			})
		},
	}
}

func newPlaylistCmd(app **App) *cobra.Command {
	return &cobra.Command{
		Use:   "playlist URL",
		Short: "Download every video of a playlist without analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			url := platform.CleanURL(args[0])
			if !platform.IsPlaylistURL(url) {
				return fmt.Errorf("%s", ui.MsgNotPlaylistURL)
			}
			return a.Download(cmd.Context(), NewPrinter(cmd.OutOrStdout()), model.DownloadRequest{
				URL:       url,
				OutputDir: a.Config.OutputDir,
				Format:    a.Config.Format,
				Playlist:  true,
			})
		},
	}
}

func newBatchCmd(app **App) *cobra.Command {
	var listFile string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Download and analyze the videos listed in a YAML file, one after another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			entries, err := ReadBatchList(listFile, a.Config.OutputDir)
			if err != nil {
				return err
			}

			p := NewPrinter(cmd.OutOrStdout())
			failed := 0
			for _, entry := range entries {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				err := a.Download(cmd.Context(), p, model.DownloadRequest{
					URL:       entry.URL,
					OutputDir: entry.Output,
					Format:    model.FormatWAV,
				})
				if err != nil {
					p.Error(err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", failed, len(entries))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&listFile, "list", "l", "", "YAML file with url and optional output entries")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}

func newAnalyzeCmd(app **App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze FILE",
		Short: "Estimate tempo and key of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return model.NewError(model.KindIO, "analyze", err)
			}
			return a.Analyze(cmd.Context(), NewPrinter(cmd.OutOrStdout()), ui.AnalysisIDPrefix+uuid.NewString(), path)
		},
	}
}
