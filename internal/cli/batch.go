package cli

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Gherucu/gloload/internal/platform"
)

// BatchEntry is one download in a batch list file
type BatchEntry struct {
	URL    string `yaml:"url"`
	Output string `yaml:"output,omitempty"`
}

// ReadBatchList loads a YAML list of entries. Entries without an output
// folder use defaultDir.
func ReadBatchList(path, defaultDir string) ([]BatchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading batch file: %w", err)
	}

	var entries []BatchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("error parsing batch file: %w", err)
	}

	for i := range entries {
		entries[i].URL = platform.CleanURL(entries[i].URL)
		if entries[i].URL == "" {
			return nil, fmt.Errorf("missing url for entry %d", i+1)
		}
		if err := platform.ValidateURL(entries[i].URL); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		if !platform.IsVideoURL(entries[i].URL) {
			return nil, fmt.Errorf("entry %d: %q is not a video URL", i+1, entries[i].URL)
		}
		if strings.TrimSpace(entries[i].Output) == "" {
			entries[i].Output = defaultDir
		}
	}
	return entries, nil
}
