package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Gherucu/gloload/internal/model"
	"github.com/Gherucu/gloload/internal/platform"
)

// AnalyzerBackend selects the feature extractor used for tempo and key.
// AnalyzerLibrosa falls back to the native estimator when Python or librosa
// is unavailable.
type AnalyzerBackend string

const (
	AnalyzerNative  AnalyzerBackend = "native"
	AnalyzerLibrosa AnalyzerBackend = "librosa"
)

// Default values
const (
	DefaultFormat           = model.FormatWAV
	DefaultYTDLPPath        = platform.YTDLPCommand
	DefaultThumbnailTimeout = 30 * time.Second
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultDebounce         = 1 * time.Second
	DefaultFontPath         = "/Library/Fonts/OldLondon.ttf"
	DefaultFontSize         = 24
	DefaultPlaceholderText  = "ayglø beat downloader"
	DefaultThumbnailWidth   = 320
	DefaultThumbnailHeight  = 180
	DefaultAnalyzer         = AnalyzerLibrosa
	DefaultPythonPath       = "python3"
)

// Limits applied by the clamping setters
const (
	MinTimeout  = 1 * time.Second
	MaxTimeout  = 10 * time.Minute
	MinDebounce = 100 * time.Millisecond
	MaxDebounce = 10 * time.Second
)

// Config holds the settings of one run. Nothing is persisted between runs.
type Config struct {
	OutputDir        string
	Format           model.AudioFormat
	YTDLPPath        string
	ThumbnailTimeout time.Duration
	HTTPTimeout      time.Duration
	Debounce         time.Duration
	FontPath         string
	FontSize         float64
	PlaceholderText  string
	ThumbnailWidth   int
	ThumbnailHeight  int
	Analyzer         AnalyzerBackend
	PythonPath       string
	Debug            bool

	format   string
	analyzer string
}

// New returns a Config populated with defaults
func New() *Config {
	return &Config{
		OutputDir:        platform.DefaultOutputDir(),
		Format:           DefaultFormat,
		YTDLPPath:        DefaultYTDLPPath,
		ThumbnailTimeout: DefaultThumbnailTimeout,
		HTTPTimeout:      DefaultHTTPTimeout,
		Debounce:         DefaultDebounce,
		FontPath:         DefaultFontPath,
		FontSize:         DefaultFontSize,
		PlaceholderText:  DefaultPlaceholderText,
		ThumbnailWidth:   DefaultThumbnailWidth,
		ThumbnailHeight:  DefaultThumbnailHeight,
		Analyzer:         DefaultAnalyzer,
		PythonPath:       DefaultPythonPath,
		format:           string(DefaultFormat),
		analyzer:         string(DefaultAnalyzer),
	}
}

// BindFlags registers the configuration flags on fs
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.OutputDir, "output", "o", c.OutputDir, "Output folder for downloaded audio")
	fs.StringVarP(&c.format, "format", "f", c.format, "Audio format passed to yt-dlp (wav, flac, mp3, m4a)")
	fs.StringVar(&c.YTDLPPath, "yt-dlp", c.YTDLPPath, "Path to the yt-dlp executable")
	fs.DurationVar(&c.ThumbnailTimeout, "thumbnail-timeout", c.ThumbnailTimeout, "Timeout for the thumbnail metadata probe")
	fs.DurationVar(&c.HTTPTimeout, "http-timeout", c.HTTPTimeout, "Timeout for the thumbnail HTTP fetch")
	fs.DurationVar(&c.Debounce, "debounce", c.Debounce, "Quiet period before a typed URL is probed")
	fs.StringVar(&c.FontPath, "font", c.FontPath, "TrueType font used for the placeholder image")
	fs.StringVar(&c.analyzer, "analyzer", c.analyzer, "Feature extractor: librosa (falls back to native) or native")
	fs.StringVar(&c.PythonPath, "python", c.PythonPath, "Python interpreter for the librosa analyzer")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
}

// Finalize applies flag values that need parsing and validates the result
func (c *Config) Finalize() error {
	if c.format != "" {
		format, err := model.ParseAudioFormat(c.format)
		if err != nil {
			return err
		}
		c.Format = format
	}
	if c.analyzer != "" {
		c.Analyzer = AnalyzerBackend(strings.ToLower(strings.TrimSpace(c.analyzer)))
	}
	c.SetThumbnailTimeout(c.ThumbnailTimeout)
	c.SetHTTPTimeout(c.HTTPTimeout)
	c.SetDebounce(c.Debounce)
	return c.Validate()
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	if strings.TrimSpace(c.YTDLPPath) == "" {
		return fmt.Errorf("yt-dlp path must not be empty")
	}
	if _, err := model.ParseAudioFormat(string(c.Format)); err != nil {
		return err
	}
	switch c.Analyzer {
	case AnalyzerNative, AnalyzerLibrosa:
	default:
		return fmt.Errorf("unknown analyzer %q (want native or librosa)", c.Analyzer)
	}
	if c.ThumbnailWidth <= 0 || c.ThumbnailHeight <= 0 {
		return fmt.Errorf("thumbnail size must be positive, got %dx%d", c.ThumbnailWidth, c.ThumbnailHeight)
	}
	return nil
}

// SetOutputDir sets the output folder chosen by the user
func (c *Config) SetOutputDir(dir string) {
	if strings.TrimSpace(dir) != "" {
		c.OutputDir = dir
	}
}

// SetThumbnailTimeout sets the probe timeout, clamped to [MinTimeout, MaxTimeout]
func (c *Config) SetThumbnailTimeout(d time.Duration) {
	c.ThumbnailTimeout = clamp(d, MinTimeout, MaxTimeout)
}

// SetHTTPTimeout sets the fetch timeout, clamped to [MinTimeout, MaxTimeout]
func (c *Config) SetHTTPTimeout(d time.Duration) {
	c.HTTPTimeout = clamp(d, MinTimeout, MaxTimeout)
}

// SetDebounce sets the URL quiet period, clamped to [MinDebounce, MaxDebounce]
func (c *Config) SetDebounce(d time.Duration) {
	c.Debounce = clamp(d, MinDebounce, MaxDebounce)
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
