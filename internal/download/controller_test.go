package download

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gherucu/gloload/internal/model"
	"github.com/Gherucu/gloload/internal/platform/platformtest"
)

func testRequest() model.DownloadRequest {
	return model.DownloadRequest{
		ID:        "dl-test",
		URL:       "https://www.youtube.com/watch?v=abc",
		OutputDir: "/tmp/out",
		Format:    model.FormatWAV,
	}
}

func collect(t *testing.T, events <-chan model.Event) []model.Event {
	t.Helper()
	var out []model.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("event stream was not closed")
			return nil
		}
	}
}

func terminal(t *testing.T, events []model.Event) model.Event {
	t.Helper()
	require.NotEmpty(t, events)
	count := 0
	for _, ev := range events {
		if model.IsTerminal(ev) {
			count++
		}
	}
	require.Equal(t, 1, count, "exactly one terminal event")
	last := events[len(events)-1]
	require.True(t, model.IsTerminal(last), "terminal event comes last")
	return last
}

func TestBuildArgs(t *testing.T) {
	req := testRequest()
	args := BuildArgs(req)

	expected := []string{
		"--newline",
		"-f", "bestaudio",
		"--extract-audio",
		"--audio-format", "wav",
		"-o", filepath.Join("/tmp/out", "%(title)s.%(ext)s"),
		"--no-playlist",
		"https://www.youtube.com/watch?v=abc",
	}
	assert.Equal(t, expected, args)

	req.Playlist = true
	req.Format = model.FormatMP3
	args = BuildArgs(req)
	assert.Contains(t, args, YesPlaylistFlag)
	assert.NotContains(t, args, NoPlaylistFlag)
	assert.Equal(t, req.URL, args[len(args)-1], "URL is the last argument")
	assert.Equal(t, "mp3", args[6])
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		line   string
		want   int
		wantOK bool
	}{
		{"[download]  10.0% of 3.50MiB at 1.00MiB/s ETA 00:03", 10, true},
		{"[download]  55.9% of 3.50MiB", 55, true},
		{"[download] 100% of 3.50MiB", 100, true},
		{"[download] 0.4%", 0, true},
		{"[ExtractAudio] 50%", 0, false},
		{"[download] Destination: /tmp/out/Song.webm", 0, false},
		{"[download] 150.0%", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParsePercent(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDestination(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"[ExtractAudio] Destination: /tmp/out/Song.wav", "/tmp/out/Song.wav", true},
		{"Destination:   /tmp/out/Song.wav  \r", "/tmp/out/Song.wav", true},
		{"Destination: a Destination: /tmp/b.wav", "/tmp/b.wav", true},
		{"[download] Destination: C:\\Music\\Song.webm", "C:\\Music\\Song.webm", true},
		{"Destination:", "", false},
		{"[download] 10%", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseDestination(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifier_PercentOnlyOnChange(t *testing.T) {
	c := NewClassifier(model.Op{ID: "op"})

	var percents []int
	for _, line := range []string{
		"[download]   0.0%",
		"[download]   0.5%",
		"[download]  10.2%",
		"[download]  10.9%",
		"[download]  11.0%",
		"[download]  11.0%",
	} {
		events := c.Classify(line)
		require.IsType(t, model.LogLine{}, events[0], "log line comes first")
		for _, ev := range events[1:] {
			if p, ok := ev.(model.PercentUpdate); ok {
				percents = append(percents, p.Percent)
			}
		}
	}

	assert.Equal(t, []int{0, 10, 11}, percents)
}

func TestClassifier_LogPrefix(t *testing.T) {
	c := NewClassifier(model.Op{ID: "op"})
	c.LogPrefix = PlaylistLogPrefix

	events := c.Classify("[youtube] abc: Downloading webpage\n")
	require.Len(t, events, 1)
	assert.Equal(t, "yt-dlp: [youtube] abc: Downloading webpage", events[0].(model.LogLine).Text)
}

func TestController_EndToEnd(t *testing.T) {
	launcher := &platformtest.Launcher{
		Lines: []string{
			"[download]  10.0%",
			"[download]  55.5%",
			"Destination: /tmp/out/Song.wav",
			"[download] 100.0%",
		},
	}
	controller := NewController(launcher, "yt-dlp")

	events := collect(t, controller.Run(context.Background(), testRequest()))

	op := model.Op{ID: "dl-test"}
	expected := []model.Event{
		model.LogLine{Op: op, Text: "[download]  10.0%"},
		model.PercentUpdate{Op: op, Percent: 10},
		model.LogLine{Op: op, Text: "[download]  55.5%"},
		model.PercentUpdate{Op: op, Percent: 55},
		model.LogLine{Op: op, Text: "Destination: /tmp/out/Song.wav"},
		model.DestinationResolved{Op: op, Path: "/tmp/out/Song.wav"},
		model.LogLine{Op: op, Text: "[download] 100.0%"},
		model.PercentUpdate{Op: op, Percent: 100},
		model.Completed{Op: op, Path: "/tmp/out/Song.wav", Paths: []string{"/tmp/out/Song.wav"}},
	}
	assert.Equal(t, expected, events)

	calls := launcher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "yt-dlp", calls[0].Name)
	assert.Equal(t, BuildArgs(testRequest()), calls[0].Args)
}

func TestController_LastDestinationWins(t *testing.T) {
	launcher := &platformtest.Launcher{
		Lines: []string{
			"[download] Destination: /tmp/out/Song.webm",
			"[ExtractAudio] Destination: /tmp/out/Song.wav",
		},
	}
	events := collect(t, NewController(launcher, "").Run(context.Background(), testRequest()))

	completed, ok := terminal(t, events).(model.Completed)
	require.True(t, ok)
	assert.Equal(t, "/tmp/out/Song.wav", completed.Path)
	assert.Equal(t, []string{"/tmp/out/Song.webm", "/tmp/out/Song.wav"}, completed.Paths)
}

func TestController_MissingDestination(t *testing.T) {
	launcher := &platformtest.Launcher{Lines: []string{"[download] 100%"}}
	events := collect(t, NewController(launcher, "yt-dlp").Run(context.Background(), testRequest()))

	failed, ok := terminal(t, events).(model.Failed)
	require.True(t, ok)
	assert.Equal(t, ReasonMissingDestination, failed.Reason)
	assert.ErrorIs(t, failed.Err, model.ErrMissingDestination)
}

func TestController_PlaylistCompletesWithoutDestination(t *testing.T) {
	launcher := &platformtest.Launcher{Lines: []string{"[download] 100%"}}
	req := testRequest()
	req.Playlist = true

	events := collect(t, NewController(launcher, "yt-dlp").Run(context.Background(), req))

	completed, ok := terminal(t, events).(model.Completed)
	require.True(t, ok)
	assert.Empty(t, completed.Path)
	assert.Equal(t, "yt-dlp: [download] 100%", events[0].(model.LogLine).Text)
}

func TestController_NonZeroExit(t *testing.T) {
	launcher := &platformtest.Launcher{
		Lines:    []string{"Destination: /tmp/out/Song.wav", "ERROR: killed"},
		ExitCode: 137,
	}
	events := collect(t, NewController(launcher, "yt-dlp").Run(context.Background(), testRequest()))

	failed, ok := terminal(t, events).(model.Failed)
	require.True(t, ok, "a captured destination does not rescue a failed exit")
	assert.Equal(t, 137, failed.ExitCode)
	assert.Equal(t, "yt-dlp failed with code 137", failed.Reason)
	assert.ErrorIs(t, failed.Err, model.ErrDownloadProcess)
}

func TestController_LaunchError(t *testing.T) {
	launcher := &platformtest.Launcher{LaunchErr: errors.New("exec: \"yt-dlp\": executable file not found in $PATH")}
	events := collect(t, NewController(launcher, "yt-dlp").Run(context.Background(), testRequest()))

	require.Len(t, events, 1)
	failed, ok := events[0].(model.Failed)
	require.True(t, ok)
	assert.Contains(t, failed.Reason, "executable file not found")
	assert.ErrorIs(t, failed.Err, model.ErrDownloadProcess)
}

func TestController_WaitError(t *testing.T) {
	launcher := &platformtest.Launcher{WaitErr: errors.New("broken pipe")}
	events := collect(t, NewController(launcher, "yt-dlp").Run(context.Background(), testRequest()))

	failed, ok := terminal(t, events).(model.Failed)
	require.True(t, ok)
	assert.Contains(t, failed.Reason, "broken pipe")
}

func TestController_InvalidRequest(t *testing.T) {
	launcher := &platformtest.Launcher{}
	req := testRequest()
	req.URL = ""

	events := collect(t, NewController(launcher, "yt-dlp").Run(context.Background(), req))

	_, ok := terminal(t, events).(model.Failed)
	assert.True(t, ok)
	assert.Empty(t, launcher.Calls(), "nothing is launched for an invalid request")
}

func TestController_Cancel(t *testing.T) {
	launcher := &platformtest.Launcher{
		Lines:          []string{"[download]   5.0%"},
		BlockUntilDone: true,
	}
	ctx, cancel := context.WithCancel(context.Background())
	events := NewController(launcher, "yt-dlp").Run(ctx, testRequest())

	first := <-events
	require.IsType(t, model.LogLine{}, first)
	cancel()

	rest := collect(t, events)
	failed, ok := terminal(t, rest).(model.Failed)
	require.True(t, ok)
	assert.Equal(t, ReasonCancelled, failed.Reason)
}

func TestController_CommandLine(t *testing.T) {
	controller := NewController(&platformtest.Launcher{}, "/usr/local/bin/yt-dlp")
	line := controller.CommandLine(testRequest())

	assert.True(t, len(line) > 0)
	assert.Contains(t, line, "/usr/local/bin/yt-dlp --newline -f bestaudio")
	assert.Contains(t, line, "https://www.youtube.com/watch?v=abc")
}
