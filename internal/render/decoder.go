package render

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	// Raster scan previews arrive as PNG or JPEG; register their decoders.
	_ "image/jpeg"
	_ "image/png"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/avelier/scancine/internal/classify"
)

// Decoder turns one scan file into a raster frame. Each batch kind carries
// its own decode strategy behind this capability interface.
type Decoder interface {
	DecodeFrame(ctx context.Context, f classify.File) (image.Image, error)
}

// DecoderFor resolves the decode strategy for a classified batch kind.
func DecoderFor(k classify.Kind) Decoder {
	if k == classify.KindDICOM {
		return DICOMDecoder{}
	}
	return RasterDecoder{}
}

// DICOMDecoder decodes the first pixel frame of a structured-imaging file.
type DICOMDecoder struct{}

// DecodeFrame parses the file's dataset and renders its first pixel frame.
func (DICOMDecoder) DecodeFrame(ctx context.Context, f classify.File) (image.Image, error) {
	if err := EnsureInitialized(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := dicom.ParseFile(f.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Name, err)
	}

	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("%s has no pixel data: %w", f.Name, err)
	}

	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("%s: pixel data holds no frames", f.Name)
	}

	img, err := info.Frames[0].GetImage()
	if err != nil {
		return nil, fmt.Errorf("render pixel frame of %s: %w", f.Name, err)
	}
	return img, nil
}

// RasterDecoder decodes a generic raster image (PNG, JPEG).
type RasterDecoder struct{}

// DecodeFrame reads and decodes the file with the standard image decoders.
func (RasterDecoder) DecodeFrame(ctx context.Context, f classify.File) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() { _ = r.Close() }()

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return img, nil
}

// DecodeWithTimeout races the decode against a timer. A decode that does
// not resolve within the timeout is treated as failed; the decode goroutine
// is left to finish on its own and its result is dropped.
func DecodeWithTimeout(ctx context.Context, d Decoder, f classify.File, timeout time.Duration) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)

	go func() {
		img, err := d.DecodeFrame(ctx, f)
		ch <- result{img: img, err: err}
	}()

	select {
	case r := <-ch:
		return r.img, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("decode %s: %w", f.Name, ctx.Err())
	}
}
