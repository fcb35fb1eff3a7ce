package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/Gherucu/gloload/internal/config"
	"github.com/Gherucu/gloload/internal/logging"
	"github.com/Gherucu/gloload/internal/platform"
	"github.com/Gherucu/gloload/internal/ui"
)

// AppID identifies the application to Fyne
const AppID = "com.gherucu.gloload"

// Execute runs the command line and exits non-zero on failure
func Execute(version string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(version, platform.NewExecLauncher()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. launcher runs every subprocess.
func NewRootCmd(version string, launcher platform.Launcher) *cobra.Command {
	cfg := config.New()
	var (
		playlist bool
		app      *App
	)

	root := &cobra.Command{
		Use:           "gloload",
		Short:         "Download YouTube audio and detect its tempo and key",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Finalize(); err != nil {
				return err
			}
			logging.Init(cfg.Debug)
			app = NewApp(cfg, launcher)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(cmd.Context(), app, playlist)
		},
	}
	cfg.BindFlags(root.PersistentFlags())
	root.Flags().BoolVar(&playlist, "playlist", false, "Open the playlist downloader")

	gui := &cobra.Command{
		Use:   "gui",
		Short: "Open the downloader window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(cmd.Context(), app, playlist)
		},
	}
	gui.Flags().BoolVar(&playlist, "playlist", false, "Open the playlist downloader")

	root.AddCommand(
		gui,
		newDownloadCmd(&app),
		newPlaylistCmd(&app),
		newBatchCmd(&app),
		newAnalyzeCmd(&app),
	)
	return root
}

func runGUI(ctx context.Context, app *App, playlist bool) error {
	mode := ui.ModeSingle
	if playlist {
		mode = ui.ModePlaylist
	}
	app.logger.Info().Bool("playlist", playlist).Msg("opening window")

	fyneApp := fyneapp.NewWithID(AppID)
	ui.Run(ctx, fyneApp, app.Config, app.Coordinator, mode)
	return nil
}
