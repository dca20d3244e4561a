package render

import (
	"fmt"
	"image"
	"os"

	"golang.org/x/image/draw"
)

// Surface is the offscreen composition surface for one encode operation:
// a single canvas all frames are drawn into, plus a scratch directory for
// intermediate artifacts. It is exclusive to one in-flight encode; callers
// must not share it across concurrent operations.
type Surface struct {
	canvas *image.RGBA
	dir    string
}

// WithSurface acquires a surface, runs fn, and releases the surface on
// every exit path, including panic. This is the guaranteed-cleanup contract
// for the offscreen surface: nothing fn does can leak it.
func WithSurface(fn func(*Surface) error) error {
	if err := EnsureInitialized(); err != nil {
		return err
	}

	dir, err := os.MkdirTemp(scratchRoot(), "surface-*")
	if err != nil {
		return fmt.Errorf("acquire surface: %w", err)
	}
	s := &Surface{dir: dir}
	defer s.release()

	return fn(s)
}

// release removes the surface's scratch space and drops the canvas.
func (s *Surface) release() {
	if s.dir != "" {
		_ = os.RemoveAll(s.dir)
		s.dir = ""
	}
	s.canvas = nil
}

// Dir returns the surface's scratch directory.
func (s *Surface) Dir() string {
	return s.dir
}

// EnsureCanvas sizes the canvas once, to the given dimensions. Dimensions
// are rounded up to even values because video pixel formats require them.
// Subsequent calls keep the original canvas regardless of arguments: the
// canvas is sized to the first decoded frame and reused for every frame
// after it.
func (s *Surface) EnsureCanvas(width, height int) *image.RGBA {
	if s.canvas != nil {
		return s.canvas
	}
	s.canvas = image.NewRGBA(image.Rect(0, 0, width+width%2, height+height%2))
	return s.canvas
}

// Canvas returns the current canvas, or nil before EnsureCanvas.
func (s *Surface) Canvas() *image.RGBA {
	return s.canvas
}

// DrawFrame scales img to fill the canvas and draws it over the previous
// content. Frames are never resized individually beforehand; scaling
// happens only here, at composition time.
func (s *Surface) DrawFrame(img image.Image) error {
	if s.canvas == nil {
		return fmt.Errorf("draw frame: canvas not sized")
	}
	Scaler().Scale(s.canvas, s.canvas.Bounds(), img, img.Bounds(), draw.Src, nil)
	return nil
}
