package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Gherucu/gloload/internal/analysis"
	"github.com/Gherucu/gloload/internal/config"
	"github.com/Gherucu/gloload/internal/download"
	"github.com/Gherucu/gloload/internal/logging"
	"github.com/Gherucu/gloload/internal/model"
	"github.com/Gherucu/gloload/internal/platform"
	"github.com/Gherucu/gloload/internal/thumbnail"
	"github.com/Gherucu/gloload/internal/workflow"
)

// App holds the components built from one configuration
type App struct {
	Config      *config.Config
	Launcher    platform.Launcher
	Downloads   *download.Service
	Thumbnails  *thumbnail.Resolver
	Analyzer    *analysis.Analyzer
	Inspector   *platform.PlaylistInspector
	Coordinator *workflow.Coordinator

	logger zerolog.Logger
}

// NewApp builds every component from cfg. launcher runs yt-dlp and the
// optional Python interpreter.
func NewApp(cfg *config.Config, launcher platform.Launcher) *App {
	logger := logging.For("cli")

	ytdlp := cfg.YTDLPPath
	if ytdlp == config.DefaultYTDLPPath {
		if found, err := platform.FindYTDLP(); err == nil {
			ytdlp = found
		} else {
			logger.Debug().Err(err).Msg("yt-dlp not located, relying on PATH at launch")
		}
	}
	if _, err := platform.FindFFmpeg(); err != nil {
		logger.Warn().Err(err).Msg("yt-dlp needs ffmpeg to extract audio")
	}

	downloads := download.NewService(download.NewController(launcher, ytdlp))

	thumbs := thumbnail.NewResolver(launcher, ytdlp)
	thumbs.SetProbeTimeout(cfg.ThumbnailTimeout)
	thumbs.SetHTTPTimeout(cfg.HTTPTimeout)
	thumbs.SetPlaceholderOptions(thumbnail.PlaceholderOptions{
		Text:     cfg.PlaceholderText,
		Width:    cfg.ThumbnailWidth,
		Height:   cfg.ThumbnailHeight,
		FontPath: cfg.FontPath,
		FontSize: cfg.FontSize,
	})

	var extractor analysis.FeatureExtractor = analysis.NewNativeExtractor()
	if cfg.Analyzer == config.AnalyzerLibrosa {
		extractor = analysis.NewFallbackExtractor(analysis.NewExternalExtractor(launcher, cfg.PythonPath), extractor)
	}
	analyzer := analysis.NewAnalyzer(extractor)

	inspector := platform.NewPlaylistInspector()
	inspector.SetTimeout(cfg.ThumbnailTimeout)

	logger.Debug().
		Str("yt-dlp", ytdlp).
		Str("analyzer", string(cfg.Analyzer)).
		Str("output", cfg.OutputDir).
		Msg("components ready")

	return &App{
		Config:      cfg,
		Launcher:    launcher,
		Downloads:   downloads,
		Thumbnails:  thumbs,
		Analyzer:    analyzer,
		Inspector:   inspector,
		Coordinator: workflow.NewCoordinator(downloads, thumbs, analyzer, inspector),
		logger:      logger,
	}
}

// Download runs one request headless, printing its events until the
// workflow is finished
func (a *App) Download(ctx context.Context, p *Printer, req model.DownloadRequest) error {
	if err := platform.CreateDirectoryIfNotExists(req.OutputDir); err != nil {
		return model.NewError(model.KindIO, "download", err)
	}
	done, err := a.Coordinator.StartDownload(ctx, req)
	if err != nil {
		return err
	}
	return a.follow(p, done)
}

// Analyze estimates tempo and key for path headless
func (a *App) Analyze(ctx context.Context, p *Printer, id, path string) error {
	done, err := a.Coordinator.Analyze(ctx, id, path)
	if err != nil {
		return err
	}
	return a.follow(p, done)
}

// follow prints events until done is closed, then drains what is left
// without blocking. It returns the error of the last failed step.
func (a *App) follow(p *Printer, done <-chan struct{}) error {
	var failure error
	handle := func(ev model.Event) {
		p.Print(ev)
		switch e := ev.(type) {
		case model.Failed:
			failure = e.Err
			if failure == nil {
				failure = errors.New(e.Reason)
			}
		case model.AnalysisFailed:
			failure = e.Err
		}
	}

	events := a.Coordinator.Events()
	for {
		select {
		case ev := <-events:
			handle(ev)
		case <-done:
			for {
				select {
				case ev := <-events:
					handle(ev)
				default:
					return failure
				}
			}
		}
	}
}
