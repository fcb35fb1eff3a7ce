package analysis

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Gherucu/gloload/internal/platform"
)

// Python invocation
const (
	DefaultPython    = "python3"
	PythonScriptFlag = "-c"
	maxErrorLines    = 5
)

//go:embed librosa_features.py
var librosaScript string

// ExternalExtractor runs the embedded librosa script with a Python
// interpreter. The script prints one JSON object as its last output line.
type ExternalExtractor struct {
	launcher platform.Launcher
	python   string
}

// NewExternalExtractor creates an extractor that runs python through launcher
func NewExternalExtractor(launcher platform.Launcher, python string) *ExternalExtractor {
	if python == "" {
		python = DefaultPython
	}
	return &ExternalExtractor{launcher: launcher, python: python}
}

type librosaOutput struct {
	Tempo      []float64   `json:"tempo"`
	Chroma     [][]float64 `json:"chroma"`
	SampleRate int         `json:"sample_rate"`
}

// Extract implements FeatureExtractor
func (e *ExternalExtractor) Extract(ctx context.Context, path string) (*Features, error) {
	proc, err := e.launcher.Launch(ctx, e.python, PythonScriptFlag, librosaScript, path)
	if err != nil {
		return nil, fmt.Errorf("failed to start analyzer: %w", err)
	}

	raw, readErr := io.ReadAll(proc.Output())
	exitCode, waitErr := proc.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read analyzer output: %w", readErr)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("analyzer did not finish: %w", waitErr)
	}

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if exitCode != 0 {
		return nil, fmt.Errorf("analyzer failed with code %d: %s", exitCode, tail(lines, maxErrorLines))
	}

	var out librosaOutput
	last := strings.TrimSpace(lines[len(lines)-1])
	if err := json.Unmarshal([]byte(last), &out); err != nil {
		return nil, fmt.Errorf("invalid json from analyzer: %w | out: %s", err, tail(lines, maxErrorLines))
	}

	return &Features{
		TempoCandidates: out.Tempo,
		Chroma:          out.Chroma,
		SampleRate:      out.SampleRate,
	}, nil
}

func tail(lines []string, n int) string {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
