package thumbnail

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"github.com/Gherucu/gloload/internal/logging"
	"github.com/Gherucu/gloload/internal/model"
	"github.com/Gherucu/gloload/internal/platform"
)

// yt-dlp probe arguments
const (
	SkipDownloadFlag = "--skip-download"
	GetThumbnailFlag = "--get-thumbnail"
)

// Resolver defaults
const (
	DefaultProbeTimeout = 30 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
	ThumbnailFileName   = "thumbnail.jpg"
	PlaceholderFileName = "placeholder.jpg"
	UserAgent           = "gloload"
	jpegFormat          = "jpeg"
)

// Resolver finds and downloads the thumbnail of a video URL
type Resolver struct {
	launcher     platform.Launcher
	ytdlpPath    string
	client       *resty.Client
	probeTimeout time.Duration
	placeholder  PlaceholderOptions
	logger       zerolog.Logger
}

// NewResolver creates a resolver that probes with ytdlpPath through launcher
func NewResolver(launcher platform.Launcher, ytdlpPath string) *Resolver {
	if ytdlpPath == "" {
		ytdlpPath = platform.YTDLPCommand
	}
	return &Resolver{
		launcher:     launcher,
		ytdlpPath:    ytdlpPath,
		client:       resty.New().SetTimeout(DefaultHTTPTimeout).SetHeader("User-Agent", UserAgent),
		probeTimeout: DefaultProbeTimeout,
		placeholder:  DefaultPlaceholderOptions(),
		logger:       logging.For("thumbnail"),
	}
}

// SetProbeTimeout bounds the yt-dlp metadata probe
func (r *Resolver) SetProbeTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.probeTimeout = timeout
	}
}

// SetHTTPTimeout bounds the image download
func (r *Resolver) SetHTTPTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.client.SetTimeout(timeout)
	}
}

// SetPlaceholderOptions configures the image used when resolution fails
func (r *Resolver) SetPlaceholderOptions(opts PlaceholderOptions) {
	r.placeholder = opts
}

// Fetch returns the thumbnail bytes for sourceURL as JPEG. Errors are
// classified as model.ErrTimeout, model.ErrResolution or model.ErrFetch.
func (r *Resolver) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	thumbURL, err := r.ProbeURL(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.R().SetContext(ctx).Get(thumbURL)
	if err != nil {
		return nil, model.NewError(model.KindFetch, "get thumbnail", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, model.Errorf(model.KindFetch, "get thumbnail", "unexpected status %s", resp.Status())
	}

	data, err := toJPEG(resp.Body())
	if err != nil {
		return nil, model.NewError(model.KindFetch, "decode thumbnail", err)
	}
	return data, nil
}

// ProbeURL asks yt-dlp for the thumbnail URL of sourceURL
func (r *Resolver) ProbeURL(ctx context.Context, sourceURL string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	proc, err := r.launcher.Launch(probeCtx, r.ytdlpPath, SkipDownloadFlag, GetThumbnailFlag, sourceURL)
	if err != nil {
		return "", model.NewError(model.KindResolution, "probe thumbnail", err)
	}

	var thumbURL string
	scanner := bufio.NewScanner(proc.Output())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if thumbURL == "" && isHTTPURL(line) {
			thumbURL = line
			continue
		}
		if line != "" {
			r.logger.Debug().Str("url", sourceURL).Msg(line)
		}
	}

	exitCode, waitErr := proc.Wait()

	if errors.Is(probeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", model.Errorf(model.KindTimeout, "probe thumbnail", "yt-dlp did not answer within %s", r.probeTimeout)
	}
	if waitErr != nil {
		return "", model.NewError(model.KindResolution, "probe thumbnail", waitErr)
	}
	if exitCode != 0 {
		return "", model.Errorf(model.KindResolution, "probe thumbnail", "yt-dlp failed with code %d", exitCode)
	}
	if thumbURL == "" {
		return "", model.Errorf(model.KindResolution, "probe thumbnail", "yt-dlp returned no thumbnail URL")
	}
	return thumbURL, nil
}

// Resolve writes the preview image for sourceURL into dir and returns its
// path. On any failure a placeholder is written instead, placeholder is true
// and err carries the cause. An empty path means not even the placeholder
// could be written.
func (r *Resolver) Resolve(ctx context.Context, sourceURL, dir string) (path string, placeholder bool, err error) {
	data, fetchErr := r.Fetch(ctx, sourceURL)
	if fetchErr == nil {
		path = filepath.Join(dir, ThumbnailFileName)
		writeErr := os.WriteFile(path, data, 0644)
		if writeErr == nil {
			return path, false, nil
		}
		fetchErr = model.NewError(model.KindIO, "write thumbnail", writeErr)
	}

	r.logger.Warn().Err(fetchErr).Str("url", sourceURL).Msg("thumbnail unavailable, using placeholder")

	path = filepath.Join(dir, PlaceholderFileName)
	if genErr := GeneratePlaceholder(r.placeholder, path); genErr != nil {
		return "", true, errors.Join(fetchErr, genErr)
	}
	return path, true, fetchErr
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// toJPEG checks that data is an image and re-encodes anything that is not
// already JPEG
func toJPEG(data []byte) ([]byte, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not an image: %w", err)
	}
	if format == jpegFormat {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
