package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
)

// RenderedFrame is one decoded raster frame: the in-memory bitmap plus its
// encoded data URL. Frames are transient; they only outlive the encode as
// the slideshow fallback.
type RenderedFrame struct {
	Name    string
	Image   image.Image
	DataURL string
}

// NewRenderedFrame encodes the bitmap into a PNG data URL.
func NewRenderedFrame(name string, img image.Image) (RenderedFrame, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return RenderedFrame{}, fmt.Errorf("encode frame %s: %w", name, err)
	}
	return RenderedFrame{
		Name:    name,
		Image:   img,
		DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
