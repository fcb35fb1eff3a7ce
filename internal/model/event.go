package model

import "fmt"

// Event is a message sent from a worker to the presentation layer. The set of
// implementations is closed; consumers dispatch with a type switch.
type Event interface {
	// Operation returns the id of the operation that produced the event
	Operation() string
	isEvent()
}

// Op carries the operation id shared by all events of one operation
type Op struct {
	ID string
}

// Operation returns the operation id
func (o Op) Operation() string { return o.ID }

func (Op) isEvent() {}

// DownloadStarted is sent before the yt-dlp subprocess is launched. The
// presentation layer separates the log and resets progress on receipt.
type DownloadStarted struct {
	Op
	URL      string
	Playlist bool
}

// PercentUpdate reports a new integer download percentage (0 to 100).
// Consecutive updates of one operation never repeat the same value.
type PercentUpdate struct {
	Op
	Percent int
}

// LogLine is one line of subprocess output or a workflow message
type LogLine struct {
	Op
	Text string
}

// DestinationResolved reports a file path announced by yt-dlp
type DestinationResolved struct {
	Op
	Path string
}

// Completed is the successful terminal event of a download
type Completed struct {
	Op
	Path  string   // last captured destination
	Paths []string // every captured destination, in order
}

// Failed is the unsuccessful terminal event of a download
type Failed struct {
	Op
	Reason   string
	ExitCode int // process exit status, 0 when the process never exited normally
	Err      error
}

// ThumbnailResolved reports the preview image to show. Placeholder is true
// when the fetched thumbnail was unavailable and a generated image is used.
type ThumbnailResolved struct {
	Op
	Path        string
	Placeholder bool
	Err         error
}

// AnalysisStarted is sent when tempo and key estimation begins
type AnalysisStarted struct {
	Op
	Path string
}

// AnalysisCompleted carries the analysis result
type AnalysisCompleted struct {
	Op
	Result AnalysisResult
}

// AnalysisFailed reports a failed analysis. The download it belongs to stays completed.
type AnalysisFailed struct {
	Op
	Err error
}

// Notice is an informational message for the log view
type Notice struct {
	Op
	Text string
}

// IsTerminal reports whether ev ends a download event sequence
func IsTerminal(ev Event) bool {
	switch ev.(type) {
	case Completed, Failed:
		return true
	}
	return false
}

// Describe returns a one-line human readable form of ev
func Describe(ev Event) string {
	switch e := ev.(type) {
	case DownloadStarted:
		return "download " + e.URL
	case PercentUpdate:
		return fmt.Sprintf("progress %d%%", e.Percent)
	case LogLine:
		return e.Text
	case DestinationResolved:
		return "destination " + e.Path
	case Completed:
		return "completed " + e.Path
	case Failed:
		if e.ExitCode != 0 {
			return fmt.Sprintf("failed (exit %d): %s", e.ExitCode, e.Reason)
		}
		return "failed: " + e.Reason
	case ThumbnailResolved:
		if e.Placeholder {
			return "placeholder thumbnail " + e.Path
		}
		return "thumbnail " + e.Path
	case AnalysisStarted:
		return "analyzing " + e.Path
	case AnalysisCompleted:
		return fmt.Sprintf("BPM: %d, Key: %s", e.Result.BPM, e.Result.Key)
	case AnalysisFailed:
		return fmt.Sprintf("analysis failed: %v", e.Err)
	case Notice:
		return e.Text
	default:
		return fmt.Sprintf("%T", ev)
	}
}
