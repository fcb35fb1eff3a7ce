package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Gherucu/gloload/internal/download"
	"github.com/Gherucu/gloload/internal/logging"
	"github.com/Gherucu/gloload/internal/model"
)

// Log messages
const (
	MsgStartingDownload   = "Starting download..."
	MsgStartingPlaylist   = "Starting playlist download..."
	MsgExecutingCommand   = "Executing command: "
	MsgDownloadCompleted  = "Download completed successfully!"
	MsgPlaylistCompleted  = "All downloads completed successfully!"
	MsgFetchingThumbnail  = "Fetching..."
	MsgThumbnailFailed    = "Failed to fetch thumbnail."
	MsgAnalyzing          = "Analyzing audio..."
	MsgAnalysisComplete   = "Complete"
	MsgAnalysisError      = "Error analyzing audio: "
	MsgPlaylistEntries    = "Playlist %q contains %d videos"
	MsgPlaylistInspectErr = "Could not inspect playlist: %v"
	MsgPlaylistProgress   = "Downloaded %d/%d (%.0f%%): %s"
)

// EventBufferSize is the capacity of the coordinator's event channel
const EventBufferSize = 256

// Downloader runs one download at a time
type Downloader interface {
	Start(ctx context.Context, req model.DownloadRequest) (<-chan model.Event, error)
	Cancel() error
	Busy() bool
	CommandLine(req model.DownloadRequest) string
}

// ThumbnailResolver produces a preview image path for a URL
type ThumbnailResolver interface {
	Resolve(ctx context.Context, sourceURL, dir string) (string, bool, error)
}

// AudioAnalyzer estimates tempo and key of a file
type AudioAnalyzer interface {
	Analyze(ctx context.Context, path string) (*model.AnalysisResult, error)
}

// PlaylistInspector lists the entries of a playlist URL
type PlaylistInspector interface {
	Inspect(ctx context.Context, url string) (*model.Playlist, error)
}

// Coordinator starts workers and funnels their events into one channel.
// At most one download and one analysis run at any time.
type Coordinator struct {
	downloader Downloader
	resolver   ThumbnailResolver
	analyzer   AudioAnalyzer
	inspector  PlaylistInspector

	events      chan model.Event
	downloading atomic.Bool
	analyzing   atomic.Bool

	mu             sync.Mutex
	cancelThumb    context.CancelFunc
	thumbSeq       uint64
	cancelDownload context.CancelFunc

	logger zerolog.Logger
}

// NewCoordinator wires the workers. resolver, analyzer and inspector may be
// nil when the variant does not use them.
func NewCoordinator(downloader Downloader, resolver ThumbnailResolver, analyzer AudioAnalyzer, inspector PlaylistInspector) *Coordinator {
	return &Coordinator{
		downloader: downloader,
		resolver:   resolver,
		analyzer:   analyzer,
		inspector:  inspector,
		events:     make(chan model.Event, EventBufferSize),
		logger:     logging.For("workflow"),
	}
}

// Events returns the channel every worker reports on. It is never closed.
func (c *Coordinator) Events() <-chan model.Event {
	return c.events
}

// DownloadBusy reports whether a download is in flight, including a
// playlist that is still being inspected
func (c *Coordinator) DownloadBusy() bool {
	return c.downloading.Load() || c.downloader.Busy()
}

// AnalysisBusy reports whether an analysis is in flight
func (c *Coordinator) AnalysisBusy() bool {
	return c.analyzing.Load()
}

// StartDownload launches req. Single-video requests are analyzed after a
// successful download. Playlists are inspected before yt-dlp starts. The
// returned channel is closed once every event of the workflow has been
// queued on Events.
func (c *Coordinator) StartDownload(ctx context.Context, req model.DownloadRequest) (<-chan struct{}, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if c.downloader.Busy() || !c.downloading.CompareAndSwap(false, true) {
		return nil, model.Errorf(model.KindBusy, "download", "a download is already running")
	}
	if req.ID == "" {
		req.ID = download.NewRequestID()
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelDownload = cancel
	c.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			c.mu.Lock()
			c.cancelDownload = nil
			c.mu.Unlock()
			cancel()
			c.downloading.Store(false)
		})
	}

	// Single downloads start right away so launch errors reach the caller.
	var stream <-chan model.Event
	if !req.Playlist {
		var err error
		if stream, err = c.downloader.Start(runCtx, req); err != nil {
			release()
			return nil, err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer release()

		op := model.Op{ID: req.ID}
		playlist := c.begin(runCtx, op, req)
		if stream == nil {
			var err error
			if stream, err = c.startPlaylist(runCtx, op, req); err != nil {
				return
			}
		}
		c.runDownload(ctx, op, req, playlist, stream, release)
	}()
	return done, nil
}

// startPlaylist launches yt-dlp once inspection is over. A failure is
// reported as the terminal event of the operation.
func (c *Coordinator) startPlaylist(ctx context.Context, op model.Op, req model.DownloadRequest) (<-chan model.Event, error) {
	if err := ctx.Err(); err != nil {
		c.emit(model.Failed{Op: op, Reason: download.ReasonCancelled, Err: model.NewError(model.KindDownloadProcess, "run", err)})
		return nil, err
	}
	stream, err := c.downloader.Start(ctx, req)
	if err != nil {
		c.logger.Error().Str("op", op.ID).Err(err).Msg("playlist download not started")
		c.emit(model.Failed{Op: op, Reason: err.Error(), Err: err})
		return nil, err
	}
	return stream, nil
}

// CancelDownload stops the running download, or the playlist inspection
// that precedes it
func (c *Coordinator) CancelDownload() error {
	c.mu.Lock()
	cancel := c.cancelDownload
	c.mu.Unlock()

	if cancel == nil {
		return c.downloader.Cancel()
	}
	cancel()
	return nil
}

// runDownload forwards the stream. release frees the download slot before a
// single download is analyzed; ctx bounds the analysis.
func (c *Coordinator) runDownload(ctx context.Context, op model.Op, req model.DownloadRequest, playlist *model.Playlist, stream <-chan model.Event, release func()) {
	for ev := range stream {
		c.emit(ev)

		switch e := ev.(type) {
		case model.DestinationResolved:
			if playlist != nil && strings.EqualFold(filepath.Ext(e.Path), "."+string(req.Format)) {
				playlist.MarkDownloaded(e.Path)
				c.emit(model.Notice{Op: op, Text: fmt.Sprintf(MsgPlaylistProgress,
					playlist.Downloaded, playlist.TotalVideos, playlist.GetDownloadProgress(), model.DisplayName(e.Path))})
			}
		case model.Completed:
			if req.Playlist {
				if playlist != nil {
					playlist.UpdateStatus(model.PlaylistStatusCompleted)
				}
				c.emit(model.Notice{Op: op, Text: MsgPlaylistCompleted})
				continue
			}
			c.emit(model.Notice{Op: op, Text: MsgDownloadCompleted})
			release()
			c.runAnalysis(ctx, op, e.Path)
		case model.Failed:
			if playlist != nil {
				playlist.Error = e.Reason
				playlist.UpdateStatus(model.PlaylistStatusError)
			}
			c.logger.Warn().Str("op", op.ID).Err(e.Err).Msg(e.Reason)
		}
	}
}

// begin queues the events that open a download in the log. For playlists
// it returns the inspected playlist when it has entries to track.
func (c *Coordinator) begin(ctx context.Context, op model.Op, req model.DownloadRequest) *model.Playlist {
	c.emit(model.DownloadStarted{Op: op, URL: req.URL, Playlist: req.Playlist})
	if !req.Playlist {
		c.emit(model.Notice{Op: op, Text: MsgStartingDownload})
		return nil
	}

	c.emit(model.Notice{Op: op, Text: MsgStartingPlaylist})
	var tracked *model.Playlist
	if c.inspector != nil {
		playlist, err := c.inspector.Inspect(ctx, req.URL)
		switch {
		case err != nil:
			c.emit(model.Notice{Op: op, Text: fmt.Sprintf(MsgPlaylistInspectErr, err)})
		case playlist.IsReadyForDownload():
			c.emit(model.Notice{Op: op, Text: fmt.Sprintf(MsgPlaylistEntries, playlist.Title, playlist.TotalVideos)})
			playlist.UpdateStatus(model.PlaylistStatusDownloading)
			tracked = playlist
		}
	}
	c.emit(model.Notice{Op: op, Text: MsgExecutingCommand + c.downloader.CommandLine(req)})
	return tracked
}

// Analyze estimates tempo and key for path outside of a download, for
// example a file picked by the user. The returned channel is closed when
// the result has been queued.
func (c *Coordinator) Analyze(ctx context.Context, id, path string) (<-chan struct{}, error) {
	if c.analyzer == nil {
		return nil, fmt.Errorf("analysis is not available")
	}
	if !c.analyzing.CompareAndSwap(false, true) {
		return nil, model.Errorf(model.KindBusy, "analyze", "an analysis is already running")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer c.analyzing.Store(false)
		c.analyze(ctx, model.Op{ID: id}, path)
	}()
	return done, nil
}

// runAnalysis runs on the download worker after a successful download
func (c *Coordinator) runAnalysis(ctx context.Context, op model.Op, path string) {
	if c.analyzer == nil {
		return
	}
	if !c.analyzing.CompareAndSwap(false, true) {
		c.emit(model.AnalysisFailed{Op: op, Err: model.Errorf(model.KindBusy, "analyze", "an analysis is already running")})
		return
	}
	defer c.analyzing.Store(false)
	c.analyze(ctx, op, path)
}

func (c *Coordinator) analyze(ctx context.Context, op model.Op, path string) {
	c.emit(model.AnalysisStarted{Op: op, Path: path})

	result, err := c.analyzer.Analyze(ctx, path)
	if err != nil {
		c.logger.Error().Str("op", op.ID).Str("path", path).Err(err).Msg("analysis failed")
		c.emit(model.AnalysisFailed{Op: op, Err: err})
		return
	}
	c.logger.Info().Str("op", op.ID).Int("bpm", result.BPM).Str("key", result.Key).Msg("analysis finished")
	c.emit(model.AnalysisCompleted{Op: op, Result: *result})
}

// ResolveThumbnail fetches the preview for url into dir. A newer request
// cancels the previous probe, so only the latest URL reports a result.
func (c *Coordinator) ResolveThumbnail(ctx context.Context, id, url, dir string) <-chan struct{} {
	done := make(chan struct{})
	if c.resolver == nil {
		close(done)
		return done
	}

	c.mu.Lock()
	if c.cancelThumb != nil {
		c.cancelThumb()
	}
	thumbCtx, cancel := context.WithCancel(ctx)
	c.cancelThumb = cancel
	c.thumbSeq++
	seq := c.thumbSeq
	c.mu.Unlock()

	op := model.Op{ID: id}
	c.emit(model.Notice{Op: op, Text: MsgFetchingThumbnail})

	go func() {
		defer close(done)
		defer cancel()

		path, placeholder, err := c.resolver.Resolve(thumbCtx, url, dir)
		if err != nil {
			c.logger.Warn().Str("url", url).Err(err).Msg("thumbnail fallback")
		}
		if !c.isLatestThumb(seq) {
			return
		}
		c.emit(model.ThumbnailResolved{Op: op, Path: path, Placeholder: placeholder, Err: err})
	}()
	return done
}

func (c *Coordinator) isLatestThumb(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seq == c.thumbSeq
}

func (c *Coordinator) emit(ev model.Event) {
	c.events <- ev
}
