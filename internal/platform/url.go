package platform

import (
	"fmt"
	"net/url"
	"strings"
)

// URL fragments recognized as video hosting links
var (
	VideoHostPatterns = []string{"youtube.com", "youtu.be"}
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// IsVideoURL reports whether input points at a recognized video host
func IsVideoURL(input string) bool {
	input = strings.TrimSpace(input)
	for _, pattern := range VideoHostPatterns {
		if strings.Contains(input, pattern) {
			return true
		}
	}
	return false
}

// IsPlaylistURL reports whether input carries a playlist parameter
func IsPlaylistURL(input string) bool {
	return ExtractPlaylistID(input) != ""
}

// ExtractPlaylistID returns the value of the first list= parameter
func ExtractPlaylistID(input string) string {
	parts := strings.SplitN(input, PlaylistParam, 2)
	if len(parts) < 2 {
		return ""
	}
	id := parts[1]
	if idx := strings.Index(id, ParamSeparator); idx >= 0 {
		id = id[:idx]
	}
	return strings.TrimSpace(id)
}

// ValidateURL checks that input is an absolute http(s) URL. Empty input is allowed.
func ValidateURL(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parsed, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	return nil
}

// CleanURL strips control whitespace that may be pasted along with a URL
func CleanURL(input string) string {
	cleaned := strings.ReplaceAll(input, "\n", "")
	cleaned = strings.ReplaceAll(cleaned, "\r", "")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return strings.TrimSpace(cleaned)
}
