package model

// OperationStatus represents the lifecycle state of the current operation
type OperationStatus string

const (
	// StatusIdle means nothing is running and the trigger control is enabled
	StatusIdle OperationStatus = "Idle"

	// StatusResolving means the thumbnail metadata probe is running
	StatusResolving OperationStatus = "Resolving"

	// StatusDownloading means the yt-dlp subprocess is running
	StatusDownloading OperationStatus = "Downloading"

	// StatusAnalyzing means tempo and key estimation is running
	StatusAnalyzing OperationStatus = "Analyzing"

	// StatusCompleted means the last operation finished successfully
	StatusCompleted OperationStatus = "Completed"

	// StatusFailed means the last operation ended with an error
	StatusFailed OperationStatus = "Failed"
)

// String returns the string representation of OperationStatus
func (s OperationStatus) String() string {
	return string(s)
}

// IsActive returns true if a worker is currently running for this status
func (s OperationStatus) IsActive() bool {
	return s == StatusResolving || s == StatusDownloading || s == StatusAnalyzing
}

// IsFinished returns true if the status is terminal (completed or failed)
func (s OperationStatus) IsFinished() bool {
	return s == StatusCompleted || s == StatusFailed
}
