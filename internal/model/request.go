package model

import (
	"fmt"
	"strings"
)

// AudioFormat is the target container passed to yt-dlp --audio-format
type AudioFormat string

const (
	FormatWAV  AudioFormat = "wav"
	FormatFLAC AudioFormat = "flac"
	FormatMP3  AudioFormat = "mp3"
	FormatM4A  AudioFormat = "m4a"
)

// NotDetected is shown for tempo and key until an analysis succeeds
const NotDetected = "Not detected"

// SupportedFormats lists formats accepted by ParseAudioFormat
var SupportedFormats = []AudioFormat{FormatWAV, FormatFLAC, FormatMP3, FormatM4A}

// ParseAudioFormat validates a user supplied format name
func ParseAudioFormat(s string) (AudioFormat, error) {
	f := AudioFormat(strings.ToLower(strings.TrimSpace(s)))
	for _, supported := range SupportedFormats {
		if f == supported {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported audio format: %q", s)
}

// DownloadRequest describes a single download operation. It must not be
// modified once the subprocess has been started.
type DownloadRequest struct {
	ID        string
	URL       string
	OutputDir string
	Format    AudioFormat
	Playlist  bool // batch variant: no destination required, no analysis
}

// Validate checks that the request can be handed to the controller
func (r DownloadRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("download request has empty URL")
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		return fmt.Errorf("download request has empty output directory")
	}
	if r.Format == "" {
		return fmt.Errorf("download request has no audio format")
	}
	return nil
}

// AnalysisResult holds the tempo and key estimated for one downloaded file
type AnalysisResult struct {
	Path  string
	Tempo float64 // raw estimator output in beats per minute
	BPM   int     // Tempo truncated toward zero
	Key   string  // one of the 24 key labels
}

// BPMLabel returns the text shown in the tempo label
func (r *AnalysisResult) BPMLabel() string {
	if r == nil || r.BPM <= 0 {
		return "BPM: " + NotDetected
	}
	return fmt.Sprintf("BPM: %d", r.BPM)
}

// KeyLabel returns the text shown in the key label
func (r *AnalysisResult) KeyLabel() string {
	if r == nil || r.Key == "" {
		return "Key: " + NotDetected
	}
	return "Key: " + r.Key
}

// DisplayName returns the file name without directory and extension,
// supporting both / and \ separators
func DisplayName(path string) string {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	if len(parts) == 0 {
		return ""
	}
	filename := parts[len(parts)-1]
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		filename = filename[:idx]
	}
	return filename
}
