package ui

import (
	"bytes"
	"image/png"

	"fyne.io/fyne/v2"

	"github.com/Gherucu/gloload/internal/thumbnail"
)

// AppIconName is the resource name of the window icon
const AppIconName = "gloload.png"

// AppIcon renders the placeholder artwork as the application icon
func AppIcon(opts thumbnail.PlaceholderOptions) (fyne.Resource, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, thumbnail.RenderPlaceholder(opts)); err != nil {
		return nil, err
	}
	return fyne.NewStaticResource(AppIconName, buf.Bytes()), nil
}
