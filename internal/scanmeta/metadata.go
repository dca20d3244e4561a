// Package scanmeta extracts a normalized metadata record from a
// structured-imaging file header.
package scanmeta

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Sentinel values substituted for missing or unparseable attributes.
const (
	SentinelAnonymized = "Anonymized"
	SentinelUnknown    = "Unknown"
)

// ScanMetadata is a flat record of the study attributes the review workflow
// cares about. Every field is populated; absent source attributes carry a
// sentinel instead of an empty string.
type ScanMetadata struct {
	PatientName       string
	PatientID         string
	StudyDate         string
	Modality          string
	Manufacturer      string
	StudyDescription  string
	SeriesDescription string
	InstanceNumber    string
}

// ParseError reports a failed metadata extraction. Callers recover from it
// locally: the upload continues without metadata.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse scan metadata from %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// getStringByTag extracts the first string value for the given tag from the
// dataset, so we store clean values like "CT" instead of the verbose
// Element.String() representation.
func getStringByTag(ds *dicom.Dataset, t tag.Tag) string {
	if ds == nil {
		return ""
	}
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return ""
	}
	vals := dicom.MustGetStrings(el.Value)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// orSentinel substitutes the sentinel for an absent value.
func orSentinel(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}

// FormatDate reformats an 8-digit compact DICOM date (YYYYMMDD) to a
// hyphenated YYYY-MM-DD. Anything else is returned unchanged: partial dates
// occur in the wild and are better shown raw than mangled.
func FormatDate(d string) string {
	if len(d) != 8 {
		return d
	}
	for _, c := range d {
		if c < '0' || c > '9' {
			return d
		}
	}
	return d[0:4] + "-" + d[4:6] + "-" + d[6:8]
}

// Extract parses the file header and maps well-known attributes onto a
// ScanMetadata record. Pixel data is skipped; only the dataset attributes
// are read. Any decode failure surfaces as a *ParseError.
func Extract(name string, r io.Reader, size int64) (*ScanMetadata, error) {
	ds, err := dicom.Parse(r, size, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}

	date := getStringByTag(&ds, tag.StudyDate)
	if date != "" {
		date = FormatDate(date)
	}

	return &ScanMetadata{
		PatientName:       orSentinel(getStringByTag(&ds, tag.PatientName), SentinelAnonymized),
		PatientID:         orSentinel(getStringByTag(&ds, tag.PatientID), SentinelUnknown),
		StudyDate:         orSentinel(date, SentinelUnknown),
		Modality:          orSentinel(getStringByTag(&ds, tag.Modality), SentinelUnknown),
		Manufacturer:      orSentinel(getStringByTag(&ds, tag.Manufacturer), SentinelUnknown),
		StudyDescription:  orSentinel(getStringByTag(&ds, tag.StudyDescription), SentinelUnknown),
		SeriesDescription: orSentinel(getStringByTag(&ds, tag.SeriesDescription), SentinelUnknown),
		InstanceNumber:    orSentinel(getStringByTag(&ds, tag.InstanceNumber), SentinelUnknown),
	}, nil
}

// ExtractFile is Extract for a file on disk.
func ExtractFile(path string) (*ScanMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Name: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, &ParseError{Name: path, Err: err}
	}

	return Extract(path, f, info.Size())
}

// IsSentinel reports whether a value is one of the defined placeholders.
func IsSentinel(v string) bool {
	return v == SentinelAnonymized || v == SentinelUnknown
}
