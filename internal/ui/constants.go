package ui

import "time"

// Window titles
const (
	TitleSingle   = "ayglø beat downloader"
	TitlePlaylist = "ayglø playlist downloader"
)

// Labels and button texts
const (
	LabelURL            = "YouTube URL:"
	PlaceholderURL      = "https://www.youtube.com/watch?v=..."
	PlaceholderPlaylist = "https://www.youtube.com/playlist?list=..."
	LabelOutputFolder   = "Output Folder: "
	ButtonChooseFolder  = "Choose Folder"
	ButtonDownload      = "Download"
	ButtonCancel        = "Cancel"
	ButtonReveal        = "Show in Folder"
	MenuFile            = "File"
	MenuChooseFolder    = "Choose Folder..."
	MenuOpenFile        = "Open Downloaded File"
	MenuAnalyzeFile     = "Analyze File..."
	MenuSettings        = "Settings..."
	MsgNotPlaylistURL   = "Not a playlist URL. Please provide a valid playlist URL."
	MsgInvalidVideoURL  = "Please enter a valid YouTube URL."
)

// Layout sizing
const (
	ThumbnailWidth  float32 = 320
	ThumbnailHeight float32 = 180
	WindowWidth     float32 = 640
	WindowHeight    float32 = 720
	LogMinHeight    float32 = 200
)

// Timing
const (
	DefaultURLDebounce = 1 * time.Second
)

// Operation id prefixes for events that do not come from a download
const (
	ThumbnailIDPrefix = "th-"
	AnalysisIDPrefix  = "an-"
)
