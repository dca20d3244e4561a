// Package metrics exposes Prometheus counters for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesDecoded counts frames successfully decoded during sequence encoding.
	FramesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scancine_frames_decoded_total",
		Help: "Number of frames successfully decoded.",
	})

	// FramesSkipped counts per-file decode failures that were recovered by skipping.
	FramesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scancine_frames_skipped_total",
		Help: "Number of frames skipped due to decode failure or timeout.",
	})

	// EncodesSucceeded counts completed sequence encodes.
	EncodesSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scancine_encodes_succeeded_total",
		Help: "Number of sequence encodes that produced a video.",
	})

	// EncodesFailed counts fatal sequence encode failures.
	EncodesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scancine_encodes_failed_total",
		Help: "Number of sequence encodes that failed outright.",
	})

	// StoreWriteFailures counts durable-store write failures that were swallowed.
	StoreWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scancine_store_write_failures_total",
		Help: "Number of durable record-store writes that failed.",
	})
)
