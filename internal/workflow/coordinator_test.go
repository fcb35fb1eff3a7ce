package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gherucu/gloload/internal/download"
	"github.com/Gherucu/gloload/internal/model"
	"github.com/Gherucu/gloload/internal/platform/platformtest"
)

type fakeAnalyzer struct {
	result  *model.AnalysisResult
	err     error
	release chan struct{}

	mu    sync.Mutex
	paths []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, path string) (*model.AnalysisResult, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type fakeResolver struct {
	delay time.Duration
}

func (f fakeResolver) Resolve(ctx context.Context, url, dir string) (string, bool, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return dir + "/placeholder.jpg", true, ctx.Err()
		}
	}
	if url == "bad" {
		return dir + "/placeholder.jpg", true, model.ErrResolution
	}
	return dir + "/thumbnail.jpg", false, nil
}

type fakeInspector struct {
	playlist *model.Playlist
	err      error
}

func (f fakeInspector) Inspect(ctx context.Context, url string) (*model.Playlist, error) {
	return f.playlist, f.err
}

// blockingInspector records how many yt-dlp launches happened before it
// was consulted, then waits for delay or cancellation
type blockingInspector struct {
	launcher *platformtest.Launcher
	delay    time.Duration
	playlist *model.Playlist

	mu             sync.Mutex
	launchesBefore int
}

func (b *blockingInspector) Inspect(ctx context.Context, url string) (*model.Playlist, error) {
	b.mu.Lock()
	b.launchesBefore = len(b.launcher.Calls())
	b.mu.Unlock()

	select {
	case <-time.After(b.delay):
		return b.playlist, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newService(launcher *platformtest.Launcher) *download.Service {
	return download.NewService(download.NewController(launcher, "yt-dlp"))
}

func singleRequest() model.DownloadRequest {
	return model.DownloadRequest{
		ID:        "dl-1",
		URL:       "https://youtu.be/abc",
		OutputDir: "/tmp/out",
		Format:    model.FormatWAV,
	}
}

// drain collects the events queued until done is closed
func drain(t *testing.T, c *Coordinator, done <-chan struct{}) []model.Event {
	t.Helper()
	var events []model.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			events = append(events, ev)
		case <-done:
			for {
				select {
				case ev := <-c.Events():
					events = append(events, ev)
				default:
					return events
				}
			}
		case <-timeout:
			t.Fatal("workflow did not finish")
			return nil
		}
	}
}

func notices(events []model.Event) []string {
	var out []string
	for _, ev := range events {
		if n, ok := ev.(model.Notice); ok {
			out = append(out, n.Text)
		}
	}
	return out
}

func TestCoordinator_DownloadThenAnalyze(t *testing.T) {
	launcher := &platformtest.Launcher{Lines: []string{
		"[download]  50.0%",
		"[ExtractAudio] Destination: /tmp/out/Song.wav",
	}}
	analyzer := &fakeAnalyzer{result: &model.AnalysisResult{Path: "/tmp/out/Song.wav", Tempo: 127.8, BPM: 127, Key: "A Minor"}}
	c := NewCoordinator(newService(launcher), nil, analyzer, nil)

	done, err := c.StartDownload(context.Background(), singleRequest())
	require.NoError(t, err)
	events := drain(t, c, done)

	require.IsType(t, model.DownloadStarted{}, events[0])
	assert.Equal(t, []string{MsgStartingDownload, MsgDownloadCompleted}, notices(events))

	var completedAt, startedAt, resultAt int
	for i, ev := range events {
		switch ev.(type) {
		case model.Completed:
			completedAt = i
		case model.AnalysisStarted:
			startedAt = i
		case model.AnalysisCompleted:
			resultAt = i
		}
		assert.Equal(t, "dl-1", ev.Operation())
	}
	assert.Less(t, completedAt, startedAt)
	assert.Less(t, startedAt, resultAt)
	assert.Equal(t, []string{"/tmp/out/Song.wav"}, analyzer.paths)
	assert.False(t, c.AnalysisBusy())
	assert.False(t, c.DownloadBusy())

	state := NewState()
	for _, ev := range events {
		state.Apply(ev)
	}
	assert.Equal(t, "BPM: 127", state.BPMText())
	assert.Equal(t, "Key: A Minor", state.KeyText())
	assert.Equal(t, 50, state.Percent)
	assert.Equal(t, "/tmp/out/Song.wav", state.File)
}

func TestCoordinator_FailedDownloadSkipsAnalysis(t *testing.T) {
	launcher := &platformtest.Launcher{Lines: []string{"ERROR: video unavailable"}, ExitCode: 1}
	analyzer := &fakeAnalyzer{}
	c := NewCoordinator(newService(launcher), nil, analyzer, nil)

	done, err := c.StartDownload(context.Background(), singleRequest())
	require.NoError(t, err)
	events := drain(t, c, done)

	failed, ok := events[len(events)-1].(model.Failed)
	require.True(t, ok)
	assert.Equal(t, 1, failed.ExitCode)
	assert.Empty(t, analyzer.paths)
}

func TestCoordinator_AnalysisFailure(t *testing.T) {
	launcher := &platformtest.Launcher{Lines: []string{"Destination: /tmp/out/Song.wav"}}
	analyzer := &fakeAnalyzer{err: model.Errorf(model.KindAnalysis, "extract features", "decode failed")}
	c := NewCoordinator(newService(launcher), nil, analyzer, nil)

	done, err := c.StartDownload(context.Background(), singleRequest())
	require.NoError(t, err)
	events := drain(t, c, done)

	last, ok := events[len(events)-1].(model.AnalysisFailed)
	require.True(t, ok)
	assert.ErrorIs(t, last.Err, model.ErrAnalysis)

	state := NewState()
	for _, ev := range events {
		state.Apply(ev)
	}
	assert.Equal(t, model.StatusCompleted, state.Status, "download stays completed")
	assert.Equal(t, "BPM: Not detected", state.BPMText())
	assert.Equal(t, "/tmp/out/Song.wav", state.File)
}

func TestCoordinator_PlaylistDownload(t *testing.T) {
	launcher := &platformtest.Launcher{Lines: []string{
		"[download] Destination: /tmp/out/Song A.webm",
		"[ExtractAudio] Destination: /tmp/out/Song A.wav",
		"[download] Destination: /tmp/out/Song B.webm",
		"[ExtractAudio] Destination: /tmp/out/Song B.wav",
	}}
	playlist := model.NewPlaylist("https://www.youtube.com/playlist?list=PL1")
	playlist.Title = "Songs"
	playlist.AddVideo(&model.PlaylistVideo{ID: "a", Title: "Song A"})
	playlist.AddVideo(&model.PlaylistVideo{ID: "b", Title: "Song B"})
	playlist.UpdateStatus(model.PlaylistStatusReady)

	analyzer := &fakeAnalyzer{}
	c := NewCoordinator(newService(launcher), nil, analyzer, fakeInspector{playlist: playlist})

	req := singleRequest()
	req.URL = playlist.URL
	req.Playlist = true
	done, err := c.StartDownload(context.Background(), req)
	require.NoError(t, err)
	events := drain(t, c, done)

	texts := notices(events)
	require.Len(t, texts, 6)
	assert.Equal(t, MsgStartingPlaylist, texts[0])
	assert.Equal(t, `Playlist "Songs" contains 2 videos`, texts[1])
	assert.Contains(t, texts[2], MsgExecutingCommand+"yt-dlp --newline")
	assert.Equal(t, "Downloaded 1/2 (50%): Song A", texts[3])
	assert.Equal(t, "Downloaded 2/2 (100%): Song B", texts[4])
	assert.Equal(t, MsgPlaylistCompleted, texts[5])

	assert.Empty(t, analyzer.paths, "playlists are not analyzed")
	assert.Equal(t, model.PlaylistStatusCompleted, playlist.Status)
	assert.True(t, playlist.Videos[1].Downloaded)
}

func TestCoordinator_PlaylistInspectFailureIsNotFatal(t *testing.T) {
	launcher := &platformtest.Launcher{Lines: []string{"[download] 100%"}}
	c := NewCoordinator(newService(launcher), nil, nil, fakeInspector{err: errors.New("offline")})

	req := singleRequest()
	req.Playlist = true
	done, err := c.StartDownload(context.Background(), req)
	require.NoError(t, err)
	events := drain(t, c, done)

	assert.Contains(t, notices(events), "Could not inspect playlist: offline")
	assert.IsType(t, model.Notice{}, events[len(events)-1])
	assert.Contains(t, notices(events), MsgPlaylistCompleted)
}

func TestCoordinator_OneDownloadAtATime(t *testing.T) {
	launcher := &platformtest.Launcher{BlockUntilDone: true}
	c := NewCoordinator(newService(launcher), nil, nil, nil)

	done, err := c.StartDownload(context.Background(), singleRequest())
	require.NoError(t, err)
	assert.True(t, c.DownloadBusy())

	_, err = c.StartDownload(context.Background(), singleRequest())
	assert.ErrorIs(t, err, model.ErrBusy)

	require.NoError(t, c.CancelDownload())
	events := drain(t, c, done)
	failed, ok := events[len(events)-1].(model.Failed)
	require.True(t, ok)
	assert.Equal(t, download.ReasonCancelled, failed.Reason)
}

func TestCoordinator_OneAnalysisAtATime(t *testing.T) {
	analyzer := &fakeAnalyzer{
		result:  &model.AnalysisResult{BPM: 90, Key: "D Major"},
		release: make(chan struct{}),
	}
	c := NewCoordinator(newService(&platformtest.Launcher{}), nil, analyzer, nil)

	done, err := c.Analyze(context.Background(), "an-1", "/tmp/a.wav")
	require.NoError(t, err)
	require.Eventually(t, c.AnalysisBusy, time.Second, 5*time.Millisecond)

	_, err = c.Analyze(context.Background(), "an-2", "/tmp/b.wav")
	assert.ErrorIs(t, err, model.ErrBusy)

	close(analyzer.release)
	events := drain(t, c, done)
	require.Len(t, events, 2)
	assert.IsType(t, model.AnalysisStarted{}, events[0])
	assert.IsType(t, model.AnalysisCompleted{}, events[1])
	assert.False(t, c.AnalysisBusy())
}

func TestCoordinator_AnalyzeWithoutAnalyzer(t *testing.T) {
	c := NewCoordinator(newService(&platformtest.Launcher{}), nil, nil, nil)
	_, err := c.Analyze(context.Background(), "an-1", "/tmp/a.wav")
	assert.Error(t, err)
}

func TestCoordinator_ResolveThumbnail(t *testing.T) {
	c := NewCoordinator(newService(&platformtest.Launcher{}), fakeResolver{}, nil, nil)

	events := drain(t, c, c.ResolveThumbnail(context.Background(), "th-1", "https://youtu.be/abc", "/tmp/out"))
	require.Len(t, events, 2)
	assert.Equal(t, model.Notice{Op: model.Op{ID: "th-1"}, Text: MsgFetchingThumbnail}, events[0])
	resolved, ok := events[1].(model.ThumbnailResolved)
	require.True(t, ok)
	assert.Equal(t, "/tmp/out/thumbnail.jpg", resolved.Path)
	assert.False(t, resolved.Placeholder)

	events = drain(t, c, c.ResolveThumbnail(context.Background(), "th-2", "bad", "/tmp/out"))
	resolved = events[1].(model.ThumbnailResolved)
	assert.True(t, resolved.Placeholder)
	assert.ErrorIs(t, resolved.Err, model.ErrResolution)
}

func TestCoordinator_NewerThumbnailWins(t *testing.T) {
	c := NewCoordinator(newService(&platformtest.Launcher{}), fakeResolver{delay: time.Second}, nil, nil)

	first := c.ResolveThumbnail(context.Background(), "th-1", "https://youtu.be/old", "/tmp/out")
	second := c.ResolveThumbnail(context.Background(), "th-2", "https://youtu.be/new", "/tmp/out")

	done := make(chan struct{})
	go func() {
		<-first
		<-second
		close(done)
	}()
	events := drain(t, c, done)

	var resolved []model.ThumbnailResolved
	for _, ev := range events {
		if r, ok := ev.(model.ThumbnailResolved); ok {
			resolved = append(resolved, r)
		}
	}
	require.Len(t, resolved, 1)
	assert.Equal(t, "th-2", resolved[0].Operation())
}

func TestCoordinator_PlaylistInspectedBeforeLaunch(t *testing.T) {
	launcher := &platformtest.Launcher{Lines: []string{
		"[download] Destination: /tmp/out/Song A.wav",
		"[download] 100%",
	}}
	playlist := model.NewPlaylist("https://www.youtube.com/playlist?list=PL1")
	playlist.AddVideo(&model.PlaylistVideo{ID: "a", Title: "Song A"})
	playlist.UpdateStatus(model.PlaylistStatusReady)
	inspector := &blockingInspector{launcher: launcher, delay: 200 * time.Millisecond, playlist: playlist}
	c := NewCoordinator(newService(launcher), nil, nil, inspector)

	req := singleRequest()
	req.ID = ""
	req.URL = playlist.URL
	req.Playlist = true
	done, err := c.StartDownload(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, c.DownloadBusy(), "inspection holds the download slot")

	events := drain(t, c, done)
	assert.Equal(t, 0, inspector.launchesBefore, "yt-dlp must not run while the playlist is inspected")
	require.Len(t, launcher.Calls(), 1)

	entriesAt, firstLineAt := -1, -1
	for i, ev := range events {
		switch e := ev.(type) {
		case model.Notice:
			if strings.HasPrefix(e.Text, "Playlist ") && entriesAt < 0 {
				entriesAt = i
			}
		case model.LogLine:
			if firstLineAt < 0 {
				firstLineAt = i
			}
		}
		assert.True(t, strings.HasPrefix(ev.Operation(), download.RequestIDPrefix), "generated id on every event")
	}
	require.GreaterOrEqual(t, entriesAt, 0)
	assert.Less(t, entriesAt, firstLineAt)
	assert.False(t, c.DownloadBusy())
}

func TestCoordinator_CancelDuringPlaylistInspection(t *testing.T) {
	launcher := &platformtest.Launcher{Lines: []string{"[download] 100%"}}
	inspector := &blockingInspector{launcher: launcher, delay: time.Minute}
	c := NewCoordinator(newService(launcher), nil, nil, inspector)

	req := singleRequest()
	req.Playlist = true
	done, err := c.StartDownload(context.Background(), req)
	require.NoError(t, err)

	_, err = c.StartDownload(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrBusy)

	require.NoError(t, c.CancelDownload())
	events := drain(t, c, done)

	failed, ok := events[len(events)-1].(model.Failed)
	require.True(t, ok)
	assert.Equal(t, download.ReasonCancelled, failed.Reason)
	assert.Empty(t, launcher.Calls())
	assert.False(t, c.DownloadBusy())
}
