// Package pipeline wires the ingestion stages together: classification,
// metadata extraction, sequence encoding, submission, and record storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/avelier/scancine/internal/cine"
	"github.com/avelier/scancine/internal/classify"
	"github.com/avelier/scancine/internal/config"
	"github.com/avelier/scancine/internal/diagnosis"
	"github.com/avelier/scancine/internal/observability"
	"github.com/avelier/scancine/internal/render"
	"github.com/avelier/scancine/internal/scanmeta"
	"github.com/avelier/scancine/internal/store"
)

// ErrIngestInFlight rejects a second Ingest while one is running. Encodes
// share the rendering surface and must be serialized per upload.
var ErrIngestInFlight = errors.New("an ingest is already in flight")

// ErrMixedBatch rejects batches whose files disagree on type when the
// configuration does not allow them.
var ErrMixedBatch = errors.New("batch mixes structured-imaging and raster files")

// Submitter abstracts the analysis endpoint: the HTTP client in
// production, the in-process mock when no endpoint is configured.
type Submitter interface {
	Submit(ctx context.Context, sub diagnosis.Submission) (*diagnosis.DiagnosisRecord, error)
}

// SequenceEncoder abstracts the video encoder for injection in tests.
type SequenceEncoder interface {
	Encode(ctx context.Context, batch classify.Batch, progress func(completed, total int)) (*cine.EncodedSequence, error)
}

// Result is everything one completed ingest produced.
type Result struct {
	Batch    classify.Batch
	Metadata *scanmeta.ScanMetadata
	// Warning carries a recovered metadata extraction failure; the
	// workflow continued without metadata.
	Warning string
	// Sequence is set only when a video was encoded. It stays owned by
	// the pipeline and is released when a later ingest supersedes it.
	Sequence *cine.EncodedSequence
	Form     PatientForm
	Record   *diagnosis.DiagnosisRecord
}

// Options configures a Pipeline.
type Options struct {
	Config    *config.Config
	Encoder   SequenceEncoder
	Submitter Submitter
	Store     store.RecordStore
	Log       *observability.Logger
	// OutputDir receives encoded sequence videos. Empty means a
	// temporary directory per encode.
	OutputDir string
}

// Pipeline runs the upload workflow. One ingest at a time.
type Pipeline struct {
	cfg    *config.Config
	vol    classify.VolumetricSet
	enc    SequenceEncoder
	submit Submitter
	store  store.RecordStore
	log    *observability.Logger

	busy atomic.Bool

	mu       sync.Mutex
	status   Status
	lastSeq  *cine.EncodedSequence
	onStatus func(Status)
}

// New creates a pipeline. Config defaults apply when nil.
func New(opts Options) *Pipeline {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Log
	if log == nil {
		log = observability.Nop()
	}
	enc := opts.Encoder
	if enc == nil {
		enc = cine.NewEncoder(cine.Options{
			CaptureFPS:      cfg.CaptureFPS,
			FrameDelay:      cfg.FrameDelay(),
			SettleDelay:     cfg.SettleDelay(),
			DecodeTimeout:   cfg.DecodeTimeout(),
			BitrateKbps:     cfg.BitrateKbps,
			MimePreferences: cfg.MimePreferences,
			OutputDir:       opts.OutputDir,
		}, log)
	}
	return &Pipeline{
		cfg:    cfg,
		vol:    classify.NewVolumetricSet(cfg.VolumetricModalities),
		enc:    enc,
		submit: opts.Submitter,
		store:  opts.Store,
		log:    log,
		status: StatusPending,
	}
}

// OnStatus registers a callback invoked on every status transition.
func (p *Pipeline) OnStatus(fn func(Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStatus = fn
}

// Status returns the current workflow status.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) setStatus(s Status) {
	p.mu.Lock()
	p.status = s
	fn := p.onStatus
	p.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Reset clears derived state and releases any held sequence.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	seq := p.lastSeq
	p.lastSeq = nil
	p.mu.Unlock()
	if err := seq.Release(); err != nil {
		p.log.Error(err, "releasing superseded sequence")
	}
	p.setStatus(StatusPending)
}

// supersede releases the previously held sequence and retains the new one.
func (p *Pipeline) supersede(seq *cine.EncodedSequence) {
	p.mu.Lock()
	old := p.lastSeq
	p.lastSeq = seq
	p.mu.Unlock()
	if err := old.Release(); err != nil {
		p.log.Error(err, "releasing superseded sequence")
	}
}

// Ingest runs the full workflow over a file selection. An empty selection
// is a reset, not an error. The progress callback, when not nil, receives
// per-file decode progress during sequence encoding.
func (p *Pipeline) Ingest(ctx context.Context, files []classify.File, form PatientForm, progress func(completed, total int)) (*Result, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrIngestInFlight
	}
	defer p.busy.Store(false)

	p.setStatus(StatusClassifying)
	batch := classify.Classify(files)
	if batch.Empty() {
		p.Reset()
		return nil, nil
	}
	if batch.Mixed && !p.cfg.AllowMixedBatches {
		p.setStatus(StatusError)
		return nil, ErrMixedBatch
	}

	res := &Result{Batch: batch, Form: form}

	if batch.Kind == classify.KindDICOM {
		p.setStatus(StatusExtracting)
		md, err := scanmeta.ExtractFile(batch.Leading().Path)
		if err != nil {
			// Recovered locally: the upload continues without metadata.
			p.log.MetadataSkipped(batch.Leading().Name, err)
			res.Warning = fmt.Sprintf("could not read scan metadata from %s", batch.Leading().Name)
		} else {
			res.Metadata = md
			res.Form.AutoFill(md)
		}
	}

	image, err := p.renderPayload(ctx, batch, res, progress)
	if err != nil {
		p.setStatus(StatusError)
		return nil, err
	}

	p.setStatus(StatusSubmitting)
	rec, err := p.submit.Submit(ctx, diagnosis.Submission{
		PatientInfo: res.Form.patientInfo(),
		Image:       image,
	})
	if err != nil {
		p.setStatus(StatusError)
		return nil, fmt.Errorf("submitting study: %w", err)
	}
	res.Record = rec

	if p.store != nil {
		if err := p.store.Store(rec); err != nil {
			p.setStatus(StatusError)
			return nil, fmt.Errorf("storing record %s: %w", rec.ID, err)
		}
	}

	p.setStatus(StatusDone)
	return res, nil
}

// renderPayload produces the image payload for submission: an encoded
// video for multi-file volumetric studies, a single rendered frame
// otherwise. A failed video encode is fatal; a still frame is never
// silently substituted.
func (p *Pipeline) renderPayload(ctx context.Context, batch classify.Batch, res *Result, progress func(completed, total int)) (string, error) {
	if batch.MultiFrame && p.isVolumetric(res.Metadata) {
		p.setStatus(StatusEncoding)
		seq, err := p.enc.Encode(ctx, batch, progress)
		if err != nil {
			return "", fmt.Errorf("encoding sequence: %w", err)
		}
		p.supersede(seq)
		res.Sequence = seq
		return seq.Base64, nil
	}

	// Single-file selections bypass sequence encoding regardless of
	// modality; so do non-volumetric multi-file batches.
	decoder := render.DecoderFor(batch.Kind)
	img, err := render.DecodeWithTimeout(ctx, decoder, batch.Leading(), p.cfg.DecodeTimeout())
	if err != nil {
		return "", fmt.Errorf("rendering preview frame: %w", err)
	}
	frame, err := render.NewRenderedFrame(batch.Leading().Name, img)
	if err != nil {
		return "", fmt.Errorf("rendering preview frame: %w", err)
	}
	if progress != nil {
		progress(1, 1)
	}
	return frame.DataURL, nil
}

// isVolumetric checks the extracted modality against the configured
// volumetric set. Raster batches and batches without metadata are never
// volumetric.
func (p *Pipeline) isVolumetric(md *scanmeta.ScanMetadata) bool {
	if md == nil || scanmeta.IsSentinel(md.Modality) {
		return false
	}
	return p.vol.IsVolumetric(classify.ParseModality(md.Modality))
}
