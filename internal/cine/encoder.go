package cine

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avelier/scancine/internal/classify"
	"github.com/avelier/scancine/internal/metrics"
	"github.com/avelier/scancine/internal/observability"
	"github.com/avelier/scancine/internal/render"
)

// Timing model: the capture stream runs at a fixed frame rate, while each
// decoded frame is displayed for a fixed delay and the last frame is held
// for an extra settle period so the container flushes it. Display timing
// and capture timing stay decoupled: changing the capture rate does not
// change how long a frame is shown.
const (
	DefaultCaptureFPS    = 30
	DefaultFrameDelay    = 200 * time.Millisecond
	DefaultSettleDelay   = 800 * time.Millisecond
	DefaultDecodeTimeout = 5 * time.Second
)

// Options configures the sequence encoder.
type Options struct {
	CaptureFPS    int
	FrameDelay    time.Duration
	SettleDelay   time.Duration
	DecodeTimeout time.Duration
	BitrateKbps   int

	// MimePreferences is the container negotiation order.
	MimePreferences []string

	// OutputDir receives the finished video file. Empty means a fresh
	// temporary directory per encode.
	OutputDir string

	// NewRecorder and Negotiate exist for injection; the defaults use the
	// ffmpeg backend.
	NewRecorder RecorderFactory
	Negotiate   func(preferences []string) (string, error)
}

func (o *Options) applyDefaults() {
	if o.CaptureFPS <= 0 {
		o.CaptureFPS = DefaultCaptureFPS
	}
	if o.FrameDelay <= 0 {
		o.FrameDelay = DefaultFrameDelay
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.DecodeTimeout <= 0 {
		o.DecodeTimeout = DefaultDecodeTimeout
	}
	if len(o.MimePreferences) == 0 {
		o.MimePreferences = DefaultMimePreferences
	}
	if o.NewRecorder == nil {
		o.NewRecorder = NewFFmpegRecorder
	}
	if o.Negotiate == nil {
		o.Negotiate = NegotiateMimeType
	}
}

// EncodedSequence is the encode output: the video as a local file and as an
// embeddable base64 data URI, plus the ordered frame list retained as the
// slideshow fallback. It is non-empty only if at least one frame decoded.
type EncodedSequence struct {
	VideoPath string
	MimeType  string
	Base64    string
	Frames    []render.RenderedFrame
}

// Release removes the sequence's video file. Call it when a newer sequence
// supersedes this one.
func (s *EncodedSequence) Release() error {
	if s == nil || s.VideoPath == "" {
		return nil
	}
	err := os.Remove(s.VideoPath)
	s.VideoPath = ""
	return err
}

// Encoder turns a sorted multi-file batch into an EncodedSequence.
type Encoder struct {
	opts Options
	log  *observability.Logger
}

// NewEncoder creates a sequence encoder.
func NewEncoder(opts Options, log *observability.Logger) *Encoder {
	opts.applyDefaults()
	if log == nil {
		log = observability.Nop()
	}
	return &Encoder{opts: opts, log: log}
}

// Encode runs the full sequence pipeline: per-file decode in canonical
// order, canvas composition, recording, and assembly. progress, when not
// nil, is invoked after every file as completed/total whether or not that
// file decoded.
//
// Concurrent Encode calls are not supported; the caller serializes encodes
// per upload.
func (e *Encoder) Encode(ctx context.Context, batch classify.Batch, progress func(completed, total int)) (*EncodedSequence, error) {
	if batch.Empty() {
		return nil, encodingErr("empty batch", nil)
	}

	decoder := render.DecoderFor(batch.Kind)
	if batch.Kind == classify.KindDICOM {
		// Toolkit setup is idempotent; repeated encodes re-enter it freely.
		if err := render.EnsureInitialized(); err != nil {
			return nil, encodingErr("toolkit initialization", err)
		}
	}

	started := time.Now()
	var seq *EncodedSequence

	err := render.WithSurface(func(s *render.Surface) error {
		total := len(batch.Files)
		frames := make([]render.RenderedFrame, 0, total)

		// Strictly sequential: file i+1 does not start until file i's
		// attempt resolves, so draw order matches file name order and the
		// surface stays single-owner.
		for i, f := range batch.Files {
			if err := ctx.Err(); err != nil {
				return encodingErr("cancelled", err)
			}
			img, err := render.DecodeWithTimeout(ctx, decoder, f, e.opts.DecodeTimeout)
			if err != nil {
				e.log.FrameSkipped(f.Name, err)
				metrics.FramesSkipped.Inc()
			} else {
				rf, err := render.NewRenderedFrame(f.Name, img)
				if err != nil {
					e.log.FrameSkipped(f.Name, err)
					metrics.FramesSkipped.Inc()
				} else {
					frames = append(frames, rf)
					metrics.FramesDecoded.Inc()
				}
			}

			if progress != nil {
				progress(i+1, total)
			}
			e.log.DecodeProgress(i+1, total)
		}

		if len(frames) == 0 {
			return encodingErr("no frames", ErrNoFrames)
		}

		first := frames[0].Image.Bounds()
		canvas := s.EnsureCanvas(first.Dx(), first.Dy())

		mimeType, err := e.opts.Negotiate(e.opts.MimePreferences)
		if err != nil {
			return encodingErr("container negotiation", err)
		}

		rec, err := e.opts.NewRecorder(RecorderConfig{
			Width:       canvas.Bounds().Dx(),
			Height:      canvas.Bounds().Dy(),
			FPS:         e.opts.CaptureFPS,
			MimeType:    mimeType,
			BitrateKbps: e.opts.BitrateKbps,
			WorkDir:     s.Dir(),
		})
		if err != nil {
			return encodingErr("recorder construction", err)
		}
		if err := rec.Start(); err != nil {
			return encodingErr("recorder start", err)
		}

		// Captures per displayed frame and for the final settle hold.
		perFrame := captureCount(e.opts.FrameDelay, e.opts.CaptureFPS)
		settle := captureCount(e.opts.SettleDelay, e.opts.CaptureFPS)

		for _, rf := range frames {
			if err := ctx.Err(); err != nil {
				return encodingErr("cancelled", err)
			}
			if err := s.DrawFrame(rf.Image); err != nil {
				return encodingErr("canvas composition", err)
			}
			for c := 0; c < perFrame; c++ {
				if err := rec.WriteFrame(canvas); err != nil {
					return encodingErr("recording", err)
				}
			}
		}
		for c := 0; c < settle; c++ {
			if err := rec.WriteFrame(canvas); err != nil {
				return encodingErr("recording settle", err)
			}
		}

		data, err := rec.Stop()
		if err != nil {
			return encodingErr("recorder stop", err)
		}
		if len(data) == 0 {
			return encodingErr("recorder emitted no data", nil)
		}

		videoPath, err := e.writeVideo(data, ExtensionFor(mimeType))
		if err != nil {
			return encodingErr("write video", err)
		}

		seq = &EncodedSequence{
			VideoPath: videoPath,
			MimeType:  mimeType,
			Base64:    "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
			Frames:    frames,
		}
		return nil
	})

	if err != nil {
		metrics.EncodesFailed.Inc()
		return nil, err
	}

	metrics.EncodesSucceeded.Inc()
	e.log.EncodeCompleted(seq.MimeType, len(seq.Frames), time.Since(started))
	return seq, nil
}

// writeVideo lands the finished container outside the surface scratch
// space so it outlives the encode operation.
func (e *Encoder) writeVideo(data []byte, ext string) (string, error) {
	dir := e.opts.OutputDir
	if dir == "" {
		d, err := os.MkdirTemp("", "scancine-seq-*")
		if err != nil {
			return "", err
		}
		dir = d
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("sequence-%d%s", time.Now().UnixNano(), ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// captureCount converts a display duration into a number of captured
// frames at the given capture rate, at least one per displayed frame.
func captureCount(d time.Duration, fps int) int {
	n := int(d.Seconds() * float64(fps))
	if n < 1 {
		n = 1
	}
	return n
}
