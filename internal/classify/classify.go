// Package classify partitions uploaded scan files by type and establishes
// the canonical processing order for a batch.
package classify

import (
	"sort"
	"strings"
)

// Kind identifies the decode strategy for a batch. It is resolved once per
// batch from the leading file; downstream code selects a decoder from it
// instead of re-inspecting file types.
type Kind int

const (
	// KindRaster marks files decodable by a plain image decoder (PNG, JPEG).
	KindRaster Kind = iota
	// KindDICOM marks structured-imaging files carrying a self-describing
	// dataset (pixel data plus study/patient attributes).
	KindDICOM
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindDICOM {
		return "dicom"
	}
	return "raster"
}

// File is a single uploaded scan file.
type File struct {
	Name        string // base name used for ordering
	ContentType string // declared MIME type, may be empty
	Path        string // location on disk
}

// Batch is a classified, canonically ordered file selection.
type Batch struct {
	Files []File
	Kind  Kind
	// MultiFrame is true only when the batch holds more than one file.
	// A single-file selection is never a multi-frame sequence, regardless
	// of modality.
	MultiFrame bool
	// Mixed is true when at least one file does not match the leading
	// file's kind. The classifier reports it; policy belongs to the caller.
	Mixed bool
}

// Empty reports whether the batch holds no files.
func (b Batch) Empty() bool {
	return len(b.Files) == 0
}

// Leading returns the first file in canonical order.
func (b Batch) Leading() File {
	return b.Files[0]
}

// isDICOM checks a single file against the structured-imaging signature:
// a recognized filename suffix or a declared DICOM content type.
func isDICOM(f File) bool {
	name := strings.ToLower(f.Name)
	if strings.HasSuffix(name, ".dcm") || strings.HasSuffix(name, ".dicom") {
		return true
	}
	return strings.EqualFold(f.ContentType, "application/dicom")
}

// Classify sorts the files lexicographically by name and classifies the
// batch by its leading file. Selection order is never preserved: ordering
// is always re-derived here before any further processing.
//
// An empty selection yields an empty batch and no error; the caller treats
// it as a reset.
func Classify(files []File) Batch {
	if len(files) == 0 {
		return Batch{}
	}

	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	kind := KindRaster
	if isDICOM(sorted[0]) {
		kind = KindDICOM
	}

	mixed := false
	for _, f := range sorted[1:] {
		fk := KindRaster
		if isDICOM(f) {
			fk = KindDICOM
		}
		if fk != kind {
			mixed = true
			break
		}
	}

	return Batch{
		Files:      sorted,
		Kind:       kind,
		MultiFrame: len(sorted) > 1,
		Mixed:      mixed,
	}
}
