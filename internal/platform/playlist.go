package platform

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Gherucu/gloload/internal/model"
	"github.com/ytget/ytdlp/v2"
)

// Timeout constants
const (
	DefaultInspectTimeout = 60 * time.Second
)

// Default values
const (
	DefaultPlaylistTitle = "Untitled Playlist"
	PlaylistSuffix       = " Playlist"
	MinPrefixLength      = 10
	MaxTitleLength       = 50
	TitleTruncateSuffix  = "..."
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// PlaylistEntry is one item returned by the playlist listing backend
type PlaylistEntry struct {
	VideoID string
	Title   string
}

// PlaylistFetcher lists the entries of a playlist by id
type PlaylistFetcher func(ctx context.Context, playlistID string) ([]PlaylistEntry, error)

// PlaylistInspector lists a playlist before a batch download so the user can
// see how many entries yt-dlp is about to fetch
type PlaylistInspector struct {
	timeout time.Duration
	fetch   PlaylistFetcher
}

// NewPlaylistInspector creates an inspector backed by the ytdlp library
func NewPlaylistInspector() *PlaylistInspector {
	return &PlaylistInspector{
		timeout: DefaultInspectTimeout,
		fetch:   fetchWithLibrary,
	}
}

// SetTimeout sets the timeout for inspection
func (p *PlaylistInspector) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// SetFetcher replaces the listing backend
func (p *PlaylistInspector) SetFetcher(fetch PlaylistFetcher) {
	p.fetch = fetch
}

// Inspect lists the playlist referenced by url
func (p *PlaylistInspector) Inspect(ctx context.Context, url string) (*model.Playlist, error) {
	playlistID := ExtractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("invalid playlist URL: %s", url)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	playlist := model.NewPlaylist(url)
	playlist.ID = playlistID

	entries, err := p.fetch(ctx, playlistID)
	if err != nil {
		playlist.Error = err.Error()
		playlist.UpdateStatus(model.PlaylistStatusError)
		return playlist, fmt.Errorf("failed to get playlist items: %w", err)
	}

	for _, entry := range entries {
		playlist.AddVideo(&model.PlaylistVideo{
			ID:    entry.VideoID,
			Title: entry.Title,
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, entry.VideoID),
		})
	}
	playlist.Title = playlistTitle(playlist.Videos)
	playlist.UpdateStatus(model.PlaylistStatusReady)

	return playlist, nil
}

func fetchWithLibrary(ctx context.Context, playlistID string) ([]PlaylistEntry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]PlaylistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, PlaylistEntry{VideoID: it.VideoID, Title: it.Title})
	}
	return entries, nil
}

// playlistTitle derives a title from the common prefix of the first two
// entries, or from the first entry alone
func playlistTitle(videos []*model.PlaylistVideo) string {
	if len(videos) == 0 {
		return DefaultPlaylistTitle
	}
	if len(videos) > 1 {
		prefix := commonPrefix(videos[0].Title, videos[1].Title)
		if utf8.RuneCountInString(prefix) > MinPrefixLength {
			return strings.TrimSpace(prefix) + PlaylistSuffix
		}
	}
	title := []rune(videos[0].Title)
	if len(title) > MaxTitleLength {
		return string(title[:MaxTitleLength]) + TitleTruncateSuffix + PlaylistSuffix
	}
	return string(title) + PlaylistSuffix
}

// commonPrefix returns the longest shared prefix, ending on a rune boundary
func commonPrefix(s1, s2 string) string {
	r1, r2 := []rune(s1), []rune(s2)
	n := min(len(r1), len(r2))
	for i := 0; i < n; i++ {
		if r1[i] != r2[i] {
			return string(r1[:i])
		}
	}
	return string(r1[:n])
}
