// Package dicomgen writes small synthetic DICOM series. It exists for test
// fixtures and the e2e suite: the pipeline needs real parseable instances
// with controllable attributes, without shipping binary test data.
package dicomgen

import (
	"fmt"
	"math"
	randv2 "math/rand/v2"
	"os"
	"path/filepath"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// StudyOptions contains all parameters needed to generate a synthetic study.
type StudyOptions struct {
	OutputDir string
	NumImages int
	Width     int
	Height    int
	Seed      int64

	Modality          string
	PatientName       string // empty = tag omitted entirely
	PatientID         string
	StudyDate         string // DICOM compact form, e.g. "20240115"
	StudyDescription  string
	SeriesDescription string
	Manufacturer      string
}

// applyDefaults fills zero-valued options with usable defaults.
func (o *StudyOptions) applyDefaults() {
	if o.Width <= 0 {
		o.Width = 64
	}
	if o.Height <= 0 {
		o.Height = 64
	}
	if o.NumImages <= 0 {
		o.NumImages = 1
	}
	if o.Modality == "" {
		o.Modality = "MR"
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
}

// mustNewElement creates a new DICOM element, panicking on error.
func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// writeDatasetToFile writes a DICOM dataset to a file.
func writeDatasetToFile(filename string, ds dicom.Dataset) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return dicom.Write(f, ds)
}

// GenerateStudy writes NumImages DICOM instances into OutputDir, named
// slice_000.dcm, slice_001.dcm, ... so they sort in slice order. It returns
// the written file paths in that order.
func GenerateStudy(opts StudyOptions) ([]string, error) {
	opts.applyDefaults()

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	rng := randv2.New(randv2.NewPCG(uint64(opts.Seed), uint64(opts.Seed)))

	studyUID := fmt.Sprintf("1.2.826.0.1.3680043.9.7405.%d", rng.Uint64()%1e12)
	seriesUID := studyUID + ".1"

	paths := make([]string, 0, opts.NumImages)
	for i := 0; i < opts.NumImages; i++ {
		path := filepath.Join(opts.OutputDir, fmt.Sprintf("slice_%03d.dcm", i))

		elements := []*dicom.Element{
			mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
			mustNewElement(tag.StudyInstanceUID, []string{studyUID}),
			mustNewElement(tag.SeriesInstanceUID, []string{seriesUID}),
			mustNewElement(tag.SOPInstanceUID, []string{fmt.Sprintf("%s.%d", seriesUID, i+1)}),
			mustNewElement(tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
			mustNewElement(tag.Modality, []string{opts.Modality}),
			mustNewElement(tag.InstanceNumber, []string{fmt.Sprintf("%d", i+1)}),
			mustNewElement(tag.Rows, []int{opts.Height}),
			mustNewElement(tag.Columns, []int{opts.Width}),
			mustNewElement(tag.BitsAllocated, []int{16}),
			mustNewElement(tag.BitsStored, []int{12}),
			mustNewElement(tag.HighBit, []int{11}),
			mustNewElement(tag.PixelRepresentation, []int{0}),
			mustNewElement(tag.SamplesPerPixel, []int{1}),
			mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		}

		if opts.PatientName != "" {
			elements = append(elements, mustNewElement(tag.PatientName, []string{opts.PatientName}))
		}
		if opts.PatientID != "" {
			elements = append(elements, mustNewElement(tag.PatientID, []string{opts.PatientID}))
		}
		if opts.StudyDate != "" {
			elements = append(elements, mustNewElement(tag.StudyDate, []string{opts.StudyDate}))
		}
		if opts.StudyDescription != "" {
			elements = append(elements, mustNewElement(tag.StudyDescription, []string{opts.StudyDescription}))
		}
		if opts.SeriesDescription != "" {
			elements = append(elements, mustNewElement(tag.SeriesDescription, []string{opts.SeriesDescription}))
		}
		if opts.Manufacturer != "" {
			elements = append(elements, mustNewElement(tag.Manufacturer, []string{opts.Manufacturer}))
		}

		elements = append(elements, mustNewElement(tag.PixelData, generatePixels(opts.Width, opts.Height, rng)))

		if err := writeDatasetToFile(path, dicom.Dataset{Elements: elements}); err != nil {
			return nil, fmt.Errorf("write instance %d: %w", i, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// generatePixels builds one frame of deterministic 12-bit noise with a
// radial intensity falloff, so rendered slices are visually distinct.
func generatePixels(width, height int, rng *randv2.Rand) dicom.PixelDataInfo {
	pixelsPerFrame := width * height
	nativeFrame := frame.NewNativeFrame[uint16](16, height, width, pixelsPerFrame, 1)

	centerX, centerY := float64(width)/2, float64(height)/2
	maxDist := math.Sqrt(centerX*centerX + centerY*centerY)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x) - centerX
			dy := float64(y) - centerY
			dist := math.Sqrt(dx*dx + dy*dy)

			base := 2048.0 + (1.0-dist/maxDist)*1024.0
			noise := (rng.Float64() - 0.5) * 512.0
			value := math.Max(0, math.Min(4095, base+noise))
			nativeFrame.RawData[y*width+x] = uint16(value)
		}
	}

	return dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}
}
