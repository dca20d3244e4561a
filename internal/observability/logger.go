// Package observability provides structured logging for the ingestion pipeline.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new structured logger.
func NewLogger(service, version string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()

	return &Logger{logger: logger}
}

// SetVerbose switches the process-wide level between info and debug.
func SetVerbose(on bool) {
	if on {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Info logs an info message.
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(err error, msg string) {
	l.logger.Error().Err(err).Msg(msg)
}

// FrameSkipped logs a recovered per-file decode failure.
func (l *Logger) FrameSkipped(fileName string, err error) {
	l.logger.Warn().
		Str("file", fileName).
		Err(err).
		Msg("frame decode failed, skipping")
}

// DecodeProgress logs per-file decode progress.
func (l *Logger) DecodeProgress(completed, total int) {
	l.logger.Debug().
		Int("completed", completed).
		Int("total", total).
		Msg("sequence decode progress")
}

// EncodeCompleted logs a successful sequence encode.
func (l *Logger) EncodeCompleted(mimeType string, frames int, duration time.Duration) {
	l.logger.Info().
		Str("mime_type", mimeType).
		Int("frames", frames).
		Float64("duration_seconds", duration.Seconds()).
		Msg("sequence encode completed")
}

// MetadataSkipped logs a recovered metadata extraction failure.
func (l *Logger) MetadataSkipped(fileName string, err error) {
	l.logger.Warn().
		Str("file", fileName).
		Err(err).
		Msg("metadata extraction failed, continuing without metadata")
}

// DiagnosisReceived logs a successful endpoint submission.
func (l *Logger) DiagnosisReceived(recordID, status string) {
	l.logger.Info().
		Str("record_id", recordID).
		Str("status", status).
		Msg("diagnosis received")
}

// PersistFailed logs a durable-store write failure.
func (l *Logger) PersistFailed(recordID string, err error) {
	l.logger.Error().
		Str("record_id", recordID).
		Err(err).
		Msg("durable persistence failed, record kept in memory only")
}
