package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Gherucu/gloload/internal/model"
)

func TestNewState(t *testing.T) {
	s := NewState()

	assert.Equal(t, model.StatusIdle, s.Status)
	assert.Equal(t, "BPM: Not detected", s.BPMText())
	assert.Equal(t, "Key: Not detected", s.KeyText())
	assert.True(t, s.CanDownload())
}

func TestState_DownloadStartedResets(t *testing.T) {
	s := NewState()
	s.Apply(model.LogLine{Text: "old line"})
	s.Apply(model.PercentUpdate{Percent: 80})
	s.Apply(model.Completed{Path: "/tmp/old.wav"})

	s.Apply(model.DownloadStarted{URL: "https://youtu.be/new"})

	assert.Equal(t, []string{"old line", LogSeparator}, s.Log)
	assert.Equal(t, 0, s.Percent)
	assert.Empty(t, s.File)
	assert.Equal(t, model.StatusDownloading, s.Status)
	assert.False(t, s.CanDownload())
}

func TestState_FailedMessages(t *testing.T) {
	tests := []struct {
		name string
		ev   model.Failed
		want string
	}{
		{"exit code", model.Failed{Reason: "yt-dlp failed with code 137", ExitCode: 137}, "yt-dlp failed with code 137"},
		{"missing destination", model.Failed{Reason: "destination path not found"}, "Error: destination path not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			s.Apply(model.DownloadStarted{})
			s.Apply(tt.ev)

			assert.Equal(t, model.StatusFailed, s.Status)
			assert.Equal(t, []string{tt.want}, s.Log)
			assert.Equal(t, "BPM: Not detected", s.BPMText(), "failed download leaves labels alone")
		})
	}
}

func TestState_Analysis(t *testing.T) {
	s := NewState()
	s.Apply(model.AnalysisStarted{Path: "/tmp/a.wav"})
	assert.Equal(t, model.StatusAnalyzing, s.Status)

	s.Apply(model.AnalysisCompleted{Result: model.AnalysisResult{BPM: 128, Key: "F# Minor"}})
	assert.Equal(t, "BPM: 128", s.BPMText())
	assert.Equal(t, "Key: F# Minor", s.KeyText())
	assert.Equal(t, []string{MsgAnalyzing, "BPM: 128, Key: F# Minor.", MsgAnalysisComplete}, s.Log)

	s.Apply(model.AnalysisFailed{Err: errors.New("boom")})
	assert.Equal(t, "BPM: Not detected", s.BPMText())
	assert.Equal(t, "Key: Not detected", s.KeyText())
	assert.Equal(t, MsgAnalysisError+"boom", s.Log[len(s.Log)-1])
}

func TestState_Thumbnail(t *testing.T) {
	s := NewState()
	s.Apply(model.Notice{Text: MsgFetchingThumbnail})
	assert.Equal(t, model.StatusResolving, s.Status)
	assert.False(t, s.CanDownload(), "download waits for the probe")

	s.Apply(model.ThumbnailResolved{Path: "/tmp/placeholder.jpg", Placeholder: true, Err: model.ErrFetch})
	assert.Equal(t, model.StatusIdle, s.Status)
	assert.True(t, s.Placeholder)
	assert.Equal(t, "/tmp/placeholder.jpg", s.Thumbnail)
	assert.Equal(t, []string{MsgFetchingThumbnail, MsgThumbnailFailed}, s.Log)
	assert.True(t, s.CanDownload())
}

func TestState_ThumbnailDuringDownloadKeepsStatus(t *testing.T) {
	s := NewState()
	s.Apply(model.DownloadStarted{})
	s.Apply(model.Notice{Text: MsgFetchingThumbnail})
	s.Apply(model.ThumbnailResolved{Path: "/tmp/thumbnail.jpg"})

	assert.Equal(t, model.StatusDownloading, s.Status)
}

func TestState_LogIsBounded(t *testing.T) {
	s := NewState()
	s.MaxLogLines = 3
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		s.Apply(model.LogLine{Text: line})
	}
	assert.Equal(t, []string{"c", "d", "e"}, s.Log)
}
