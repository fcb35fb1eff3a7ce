package thumbnail

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/Gherucu/gloload/internal/logging"
	"github.com/Gherucu/gloload/internal/model"
)

// Placeholder defaults
const (
	DefaultText     = "ayglø beat downloader"
	DefaultWidth    = 320
	DefaultHeight   = 180
	DefaultFontPath = "/Library/Fonts/OldLondon.ttf"
	DefaultFontSize = 24
	DefaultDPI      = 72
	JPEGQuality     = 90
	PNGExtension    = ".png"
)

// Placeholder colors
var (
	BackgroundColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	TextColor       = color.White
)

// PlaceholderOptions controls the generated image. Zero values fall back to
// the defaults.
type PlaceholderOptions struct {
	Text     string
	Width    int
	Height   int
	FontPath string
	FontSize float64
}

// DefaultPlaceholderOptions returns the standard placeholder settings
func DefaultPlaceholderOptions() PlaceholderOptions {
	return PlaceholderOptions{
		Text:     DefaultText,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FontPath: DefaultFontPath,
		FontSize: DefaultFontSize,
	}
}

func (o PlaceholderOptions) withDefaults() PlaceholderOptions {
	if o.Text == "" {
		o.Text = DefaultText
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FontSize <= 0 {
		o.FontSize = DefaultFontSize
	}
	return o
}

// GeneratePlaceholder renders the text centred on a dark background and
// writes it to outputPath, replacing any existing file. A .png path is
// written as PNG, anything else as JPEG. If the font cannot be loaded the
// built-in bitmap face is used.
func GeneratePlaceholder(opts PlaceholderOptions, outputPath string) error {
	opts = opts.withDefaults()

	img := RenderPlaceholder(opts)

	file, err := os.Create(outputPath)
	if err != nil {
		return model.NewError(model.KindIO, "create placeholder", err)
	}

	if strings.EqualFold(filepath.Ext(outputPath), PNGExtension) {
		err = png.Encode(file, img)
	} else {
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return model.NewError(model.KindIO, "write placeholder", err)
	}
	return nil
}

// RenderPlaceholder draws the placeholder image in memory
func RenderPlaceholder(opts PlaceholderOptions) *image.RGBA {
	opts = opts.withDefaults()

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: BackgroundColor}, image.Point{}, draw.Src)

	face := loadFace(opts.FontPath, opts.FontSize)
	defer face.Close()

	textWidth := font.MeasureString(face, opts.Text).Ceil()
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	x := (opts.Width - textWidth) / 2
	y := (opts.Height + ascent - descent) / 2

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(TextColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(opts.Text)

	return img
}

// loadFace returns the TrueType face at path, or basicfont.Face7x13 when the
// file is missing or unusable
func loadFace(path string, size float64) font.Face {
	logger := logging.For("thumbnail")

	if path == "" {
		return basicfont.Face7x13
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug().Err(err).Str("font", path).Msg("font unavailable, using built-in face")
		return basicfont.Face7x13
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		logger.Debug().Err(err).Str("font", path).Msg("font unreadable, using built-in face")
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     DefaultDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		logger.Debug().Err(err).Str("font", path).Msgf("cannot size font at %.0fpt, using built-in face", size)
		return basicfont.Face7x13
	}
	return face
}
