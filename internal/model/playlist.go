package model

import (
	"strings"
	"time"
)

// PlaylistStatus represents the current status of a playlist
type PlaylistStatus string

const (
	PlaylistStatusParsing     PlaylistStatus = "parsing"
	PlaylistStatusReady       PlaylistStatus = "ready"
	PlaylistStatusDownloading PlaylistStatus = "downloading"
	PlaylistStatusCompleted   PlaylistStatus = "completed"
	PlaylistStatusError       PlaylistStatus = "error"
)

// PlaylistVideo represents a single entry of an inspected playlist
type PlaylistVideo struct {
	ID         string
	Title      string
	URL        string
	Downloaded bool
	OutputPath string
}

// Playlist is the result of inspecting a playlist URL before a batch download
type Playlist struct {
	ID          string
	Title       string
	URL         string
	Videos      []*PlaylistVideo
	Status      PlaylistStatus
	TotalVideos int
	Downloaded  int
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPlaylist creates a new playlist instance
func NewPlaylist(url string) *Playlist {
	now := time.Now()
	return &Playlist{
		URL:       url,
		Status:    PlaylistStatusParsing,
		Videos:    make([]*PlaylistVideo, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddVideo adds a video to the playlist
func (p *Playlist) AddVideo(video *PlaylistVideo) {
	p.Videos = append(p.Videos, video)
	p.TotalVideos = len(p.Videos)
	p.UpdatedAt = time.Now()
}

// UpdateStatus updates the playlist status
func (p *Playlist) UpdateStatus(status PlaylistStatus) {
	p.Status = status
	p.UpdatedAt = time.Now()
}

// MarkDownloaded records a destination announced during the batch download.
// The entry is matched by title against the file name; unmatched paths still
// count toward Downloaded. It returns the matched entry or nil.
func (p *Playlist) MarkDownloaded(path string) *PlaylistVideo {
	p.Downloaded++
	if p.TotalVideos > 0 && p.Downloaded > p.TotalVideos {
		p.Downloaded = p.TotalVideos
	}
	p.UpdatedAt = time.Now()

	name := strings.ToLower(DisplayName(path))
	for _, video := range p.Videos {
		if video.Downloaded || video.Title == "" {
			continue
		}
		if strings.Contains(name, strings.ToLower(video.Title)) {
			video.Downloaded = true
			video.OutputPath = path
			return video
		}
	}
	return nil
}

// GetDownloadProgress returns overall download progress as percentage
func (p *Playlist) GetDownloadProgress() float64 {
	if p.TotalVideos == 0 {
		return 0
	}
	return float64(p.Downloaded) / float64(p.TotalVideos) * 100
}

// IsReadyForDownload checks if playlist is ready to start downloading
func (p *Playlist) IsReadyForDownload() bool {
	return p.Status == PlaylistStatusReady && p.TotalVideos > 0
}
