package download

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Gherucu/gloload/internal/logging"
	"github.com/Gherucu/gloload/internal/model"
	"github.com/Gherucu/gloload/internal/platform"
)

// yt-dlp arguments
const (
	NewlineFlag      = "--newline"
	FormatFlag       = "-f"
	BestAudioFormat  = "bestaudio"
	ExtractAudioFlag = "--extract-audio"
	AudioFormatFlag  = "--audio-format"
	OutputFlag       = "-o"
	OutputTemplate   = "%(title)s.%(ext)s"
	YesPlaylistFlag  = "--yes-playlist"
	NoPlaylistFlag   = "--no-playlist"
)

// Output markers recognised in yt-dlp lines
const (
	DownloadMarker    = "[download]"
	DestinationMarker = "Destination:"
	PlaylistLogPrefix = "yt-dlp: "
)

// Failure reasons reported in model.Failed
const (
	ReasonMissingDestination = "destination path not found"
	ReasonCancelled          = "download cancelled"
)

// Size limits for the line scanner. yt-dlp may print long JSON fragments
// in verbose mode.
const (
	scanBufferSize = 64 * 1024
	maxLineSize    = 1024 * 1024
)

var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// Controller runs one yt-dlp download and reports it as events
type Controller struct {
	launcher  platform.Launcher
	ytdlpPath string
	logger    zerolog.Logger
}

// NewController creates a controller that starts ytdlpPath through launcher
func NewController(launcher platform.Launcher, ytdlpPath string) *Controller {
	if ytdlpPath == "" {
		ytdlpPath = platform.YTDLPCommand
	}
	return &Controller{
		launcher:  launcher,
		ytdlpPath: ytdlpPath,
		logger:    logging.For("download"),
	}
}

// BuildArgs builds the yt-dlp command arguments for req
func BuildArgs(req model.DownloadRequest) []string {
	args := []string{
		NewlineFlag,
		FormatFlag, BestAudioFormat,
		ExtractAudioFlag,
		AudioFormatFlag, string(req.Format),
		OutputFlag, filepath.Join(req.OutputDir, OutputTemplate),
	}
	if req.Playlist {
		args = append(args, YesPlaylistFlag)
	} else {
		args = append(args, NoPlaylistFlag)
	}
	return append(args, req.URL)
}

// CommandLine returns the command that Run executes, for display
func (c *Controller) CommandLine(req model.DownloadRequest) string {
	return c.ytdlpPath + " " + strings.Join(BuildArgs(req), " ")
}

// Run starts the download described by req. The returned channel yields the
// events of the run in output order and is closed after exactly one
// model.Completed or model.Failed. The caller must drain it.
func (c *Controller) Run(ctx context.Context, req model.DownloadRequest) <-chan model.Event {
	events := make(chan model.Event)
	go func() {
		defer close(events)
		c.run(ctx, req, events)
	}()
	return events
}

func (c *Controller) run(ctx context.Context, req model.DownloadRequest, events chan<- model.Event) {
	op := model.Op{ID: req.ID}
	logger := c.logger.With().Str("op", req.ID).Logger()

	if err := req.Validate(); err != nil {
		events <- model.Failed{Op: op, Reason: err.Error(), Err: model.NewError(model.KindDownloadProcess, "validate", err)}
		return
	}

	args := BuildArgs(req)
	logger.Debug().Str("cmd", c.ytdlpPath).Strs("args", args).Msg("starting yt-dlp")

	proc, err := c.launcher.Launch(ctx, c.ytdlpPath, args...)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start yt-dlp")
		events <- model.Failed{Op: op, Reason: err.Error(), Err: model.NewError(model.KindDownloadProcess, "launch", err)}
		return
	}

	classifier := NewClassifier(op)
	if req.Playlist {
		classifier.LogPrefix = PlaylistLogPrefix
	}

	scanner := bufio.NewScanner(proc.Output())
	scanner.Buffer(make([]byte, scanBufferSize), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug().Msg(line)
		for _, ev := range classifier.Classify(line) {
			events <- ev
		}
	}
	scanErr := scanner.Err()

	exitCode, waitErr := proc.Wait()

	if ctx.Err() != nil {
		logger.Info().Msg(ReasonCancelled)
		events <- model.Failed{Op: op, Reason: ReasonCancelled, Err: model.NewError(model.KindDownloadProcess, "run", ctx.Err())}
		return
	}
	if waitErr != nil || scanErr != nil {
		err := errors.Join(scanErr, waitErr)
		logger.Error().Err(err).Msg("yt-dlp output could not be read")
		events <- model.Failed{Op: op, Reason: err.Error(), Err: model.NewError(model.KindDownloadProcess, "run", err)}
		return
	}

	events <- c.finish(op, req, exitCode, classifier.Paths())
}

func (c *Controller) finish(op model.Op, req model.DownloadRequest, exitCode int, paths []string) model.Event {
	if exitCode != 0 {
		err := model.Errorf(model.KindDownloadProcess, "yt-dlp", "exited with code %d", exitCode)
		return model.Failed{
			Op:       op,
			Reason:   fmt.Sprintf("yt-dlp failed with code %d", exitCode),
			ExitCode: exitCode,
			Err:      err,
		}
	}

	var last string
	if len(paths) > 0 {
		last = paths[len(paths)-1]
	}
	if last == "" && !req.Playlist {
		return model.Failed{
			Op:     op,
			Reason: ReasonMissingDestination,
			Err:    model.NewError(model.KindMissingDestination, "yt-dlp", errors.New(ReasonMissingDestination)),
		}
	}
	return model.Completed{Op: op, Path: last, Paths: paths}
}

// Classifier turns yt-dlp output lines into events. It remembers the last
// emitted percentage and every destination seen.
type Classifier struct {
	// LogPrefix is prepended to the text of every LogLine
	LogPrefix string

	op          model.Op
	lastPercent int
	paths       []string
}

// NewClassifier returns a classifier for the operation op
func NewClassifier(op model.Op) *Classifier {
	return &Classifier{op: op, lastPercent: -1}
}

// Classify returns the events for one output line. The LogLine always comes
// first, followed by a PercentUpdate when the percentage changed and a
// DestinationResolved when the line names a file.
func (c *Classifier) Classify(line string) []model.Event {
	events := []model.Event{model.LogLine{Op: c.op, Text: c.LogPrefix + strings.TrimSpace(line)}}

	if percent, ok := ParsePercent(line); ok && percent != c.lastPercent {
		c.lastPercent = percent
		events = append(events, model.PercentUpdate{Op: c.op, Percent: percent})
	}

	if path, ok := ParseDestination(line); ok {
		c.paths = append(c.paths, path)
		events = append(events, model.DestinationResolved{Op: c.op, Path: path})
	}

	return events
}

// Path returns the most recent destination, or "" if none was seen
func (c *Classifier) Path() string {
	if len(c.paths) == 0 {
		return ""
	}
	return c.paths[len(c.paths)-1]
}

// Paths returns every destination seen, in order
func (c *Classifier) Paths() []string {
	return append([]string(nil), c.paths...)
}

// ParsePercent extracts the progress percentage from a [download] line,
// truncated toward zero. Values outside 0..100 are rejected.
func ParsePercent(line string) (int, bool) {
	if !strings.Contains(line, DownloadMarker) {
		return 0, false
	}
	match := percentPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || value < 0 || value > 100 {
		return 0, false
	}
	return int(value), true
}

// ParseDestination returns the trimmed text after the last Destination:
// marker in line
func ParseDestination(line string) (string, bool) {
	idx := strings.LastIndex(line, DestinationMarker)
	if idx < 0 {
		return "", false
	}
	path := strings.TrimSpace(line[idx+len(DestinationMarker):])
	if path == "" {
		return "", false
	}
	return path, true
}
