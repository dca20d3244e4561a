package cine

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// RecorderConfig describes one recording: fixed frame geometry, the capture
// frame rate, the negotiated container MIME type, and where the recorder may
// place its working file.
type RecorderConfig struct {
	Width       int
	Height      int
	FPS         int
	MimeType    string
	BitrateKbps int
	WorkDir     string
}

// Recorder captures a stream of canvas frames into a video container. The
// lifecycle is Start, any number of WriteFrame calls, then Stop, which
// returns the assembled container bytes.
type Recorder interface {
	Start() error
	WriteFrame(img *image.RGBA) error
	Stop() ([]byte, error)
}

// RecorderFactory builds a recorder for one encode operation.
type RecorderFactory func(cfg RecorderConfig) (Recorder, error)

// codecProfile maps a container MIME type onto an ffmpeg encoder.
type codecProfile struct {
	encoder string
	ext     string
	args    []string
}

// Preference order: the primary container first, then a lower-overhead
// codec, then a generic container that any ffmpeg build can produce.
var DefaultMimePreferences = []string{"video/mp4", "video/webm", "video/avi"}

var codecProfiles = map[string]codecProfile{
	"video/mp4":  {encoder: "libx264", ext: ".mp4", args: []string{"-pix_fmt", "yuv420p", "-movflags", "+faststart"}},
	"video/webm": {encoder: "libvpx", ext: ".webm", args: []string{"-pix_fmt", "yuv420p", "-deadline", "realtime"}},
	"video/avi":  {encoder: "mjpeg", ext: ".avi", args: []string{"-pix_fmt", "yuvj420p", "-q:v", "4"}},
}

// ExtensionFor returns the container file extension for a MIME type.
func ExtensionFor(mimeType string) string {
	if p, ok := codecProfiles[mimeType]; ok {
		return p.ext
	}
	return ".bin"
}

// listEncoders is the encoder probe, replaceable in tests.
var listEncoders = func() (string, error) {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		return "", fmt.Errorf("probe ffmpeg encoders: %w", err)
	}
	return string(out), nil
}

var probe struct {
	once     sync.Once
	encoders string
	err      error
}

// NegotiateMimeType walks the preference list and returns the first MIME
// type whose codec the installed runtime supports. The encoder set is
// probed once per process.
func NegotiateMimeType(preferences []string) (string, error) {
	probe.once.Do(func() {
		probe.encoders, probe.err = listEncoders()
	})
	if probe.err != nil {
		return "", probe.err
	}
	return negotiateFrom(probe.encoders, preferences)
}

// negotiateFrom picks the first preference whose encoder appears in the
// probed encoder listing.
func negotiateFrom(encoders string, preferences []string) (string, error) {
	for _, m := range preferences {
		p, ok := codecProfiles[m]
		if !ok {
			continue
		}
		if strings.Contains(encoders, p.encoder) {
			return m, nil
		}
	}
	return "", fmt.Errorf("no supported container among %v", preferences)
}

// ffmpegRecorder pipes raw RGBA canvas frames into an ffmpeg child process
// and reads the finished container back when the stream is stopped.
type ffmpegRecorder struct {
	cfg     RecorderConfig
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  bytes.Buffer
	outPath string
}

// NewFFmpegRecorder is the default RecorderFactory.
func NewFFmpegRecorder(cfg RecorderConfig) (Recorder, error) {
	p, ok := codecProfiles[cfg.MimeType]
	if !ok {
		return nil, fmt.Errorf("unsupported mime type %q", cfg.MimeType)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.BitrateKbps <= 0 {
		cfg.BitrateKbps = 2500
	}

	outPath := filepath.Join(cfg.WorkDir, "sequence"+p.ext)

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", fmt.Sprintf("%d", cfg.FPS),
		"-i", "pipe:0",
		"-c:v", p.encoder,
		"-b:v", fmt.Sprintf("%dk", cfg.BitrateKbps),
		"-r", fmt.Sprintf("%d", cfg.FPS),
	}
	args = append(args, p.args...)
	args = append(args, outPath)

	r := &ffmpegRecorder{
		cfg:     cfg,
		cmd:     exec.Command("ffmpeg", args...),
		outPath: outPath,
	}
	r.cmd.Stderr = &r.stderr
	return r, nil
}

func (r *ffmpegRecorder) Start() error {
	stdin, err := r.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("recorder stdin: %w", err)
	}
	r.stdin = stdin

	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}
	return nil
}

// WriteFrame streams one canvas frame. The image must match the geometry
// the recorder was constructed with.
func (r *ffmpegRecorder) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != r.cfg.Width || b.Dy() != r.cfg.Height {
		return fmt.Errorf("frame is %dx%d, recorder expects %dx%d", b.Dx(), b.Dy(), r.cfg.Width, r.cfg.Height)
	}
	if _, err := r.stdin.Write(img.Pix); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Stop closes the frame stream, waits for the container to be finalized,
// and returns its bytes.
func (r *ffmpegRecorder) Stop() ([]byte, error) {
	if err := r.stdin.Close(); err != nil {
		return nil, fmt.Errorf("close recorder stream: %w", err)
	}
	if err := r.cmd.Wait(); err != nil {
		return nil, fmt.Errorf("recorder exited: %w: %s", err, strings.TrimSpace(r.stderr.String()))
	}
	data, err := os.ReadFile(r.outPath)
	if err != nil {
		return nil, fmt.Errorf("read container: %w", err)
	}
	return data, nil
}
