package platform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Executable names
const (
	YTDLPCommand  = "yt-dlp"
	FFmpegCommand = "ffmpeg"
)

// FindYTDLP locates yt-dlp on PATH or next to the running executable
func FindYTDLP() (string, error) {
	return findTool(YTDLPCommand)
}

// FindFFmpeg locates ffmpeg, which yt-dlp needs for audio extraction
func FindFFmpeg() (string, error) {
	return findTool(FFmpegCommand)
}

func findTool(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	execPath, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), name)
		if runtime.GOOS == OSWindows {
			candidate += ".exe"
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH, please install it", name)
}
