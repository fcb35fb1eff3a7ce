package workflow

import (
	"fmt"

	"github.com/Gherucu/gloload/internal/model"
)

// DefaultMaxLogLines bounds the log kept in State
const DefaultMaxLogLines = 5000

// LogSeparator divides the log of consecutive downloads
const LogSeparator = "------------"

// State is what the presentation layer displays. It is owned by the single
// event consumer and changed only through Apply.
type State struct {
	Status      model.OperationStatus
	Percent     int
	Log         []string
	Thumbnail   string
	Placeholder bool
	File        string
	Result      *model.AnalysisResult
	LastError   error
	MaxLogLines int
}

// NewState returns the initial state: idle with tempo and key not detected
func NewState() *State {
	return &State{
		Status:      model.StatusIdle,
		MaxLogLines: DefaultMaxLogLines,
	}
}

// BPMText returns the tempo label
func (s *State) BPMText() string {
	return s.Result.BPMLabel()
}

// KeyText returns the key label
func (s *State) KeyText() string {
	return s.Result.KeyLabel()
}

// CanDownload reports whether the download trigger may be enabled. It stays
// off while the thumbnail probe, a download or an analysis is running.
func (s *State) CanDownload() bool {
	return !s.Status.IsActive()
}

// Apply folds ev into the state
func (s *State) Apply(ev model.Event) {
	switch e := ev.(type) {
	case model.DownloadStarted:
		if len(s.Log) > 0 {
			s.appendLog(LogSeparator)
		}
		s.Percent = 0
		s.File = ""
		s.LastError = nil
		s.Status = model.StatusDownloading
	case model.PercentUpdate:
		s.Percent = e.Percent
	case model.LogLine:
		s.appendLog(e.Text)
	case model.DestinationResolved:
		// tracked by Completed
	case model.Completed:
		s.File = e.Path
		s.Status = model.StatusCompleted
	case model.Failed:
		s.LastError = e.Err
		s.Status = model.StatusFailed
		if e.ExitCode != 0 {
			s.appendLog(e.Reason)
		} else {
			s.appendLog("Error: " + e.Reason)
		}
	case model.ThumbnailResolved:
		s.Thumbnail = e.Path
		s.Placeholder = e.Placeholder
		if e.Err != nil {
			s.appendLog(MsgThumbnailFailed)
		}
		if s.Status == model.StatusResolving {
			s.Status = model.StatusIdle
		}
	case model.AnalysisStarted:
		s.Status = model.StatusAnalyzing
		s.appendLog(MsgAnalyzing)
	case model.AnalysisCompleted:
		result := e.Result
		s.Result = &result
		s.Status = model.StatusCompleted
		s.appendLog(fmt.Sprintf("BPM: %d, Key: %s.", result.BPM, result.Key))
		s.appendLog(MsgAnalysisComplete)
	case model.AnalysisFailed:
		// The download stays completed; only the labels are reset.
		s.Result = nil
		s.LastError = e.Err
		s.Status = model.StatusCompleted
		s.appendLog(fmt.Sprintf("%s%v", MsgAnalysisError, e.Err))
	case model.Notice:
		if e.Text == MsgFetchingThumbnail && !s.Status.IsActive() {
			s.Status = model.StatusResolving
		}
		s.appendLog(e.Text)
	}
}

func (s *State) appendLog(line string) {
	s.Log = append(s.Log, line)
	if s.MaxLogLines > 0 && len(s.Log) > s.MaxLogLines {
		s.Log = s.Log[len(s.Log)-s.MaxLogLines:]
	}
}
