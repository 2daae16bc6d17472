// Package dicom extracts a single preview frame and header metadata from
// DICOM files.
//
// It provides:
//   - Part 10 and bare dataset parsing (explicit/implicit VR, big endian, deflate)
//   - Frame 0 pixel extraction for native and RLE Lossless data
//   - A flat metadata projection with display defaults
//   - Linear window/level rendering to RGBA
//
// Basic usage:
//
//	// Load a preview
//	p, err := dicom.Load("/path/to/file.dcm")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Display pixels
//	img := p.Image()
//
//	// Or work with the parsed dataset directly
//	ds, err := dicom.ReadFile("/path/to/file.dcm", dicom.WithSkipPixelData())
package dicom

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomview.go/pkg/dicom/transfer"
)

// ReadFile reads a DICOM file from disk
func ReadFile(path string, opts ...ReadOption) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return Parse(f, opts...)
}

// ReadBuffer parses a DICOM dataset from a byte slice
func ReadBuffer(data []byte, opts ...ReadOption) (*Dataset, error) {
	return Parse(bytes.NewReader(data), opts...)
}

// GetModality returns the modality (CT, MR, ...) from the dataset
func GetModality(ds *Dataset) string {
	if s, ok := ds.GetString(tag.Modality); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// GetTransferSyntax returns the transfer syntax the dataset was read with
func GetTransferSyntax(ds *Dataset) transfer.Syntax {
	if ds.TransferSyntax != "" {
		return ds.TransferSyntax
	}
	if s, ok := ds.GetString(tag.TransferSyntaxUID); ok {
		return transfer.FromUID(s)
	}
	return transfer.ExplicitVRLittleEndian
}

// IsEncapsulated returns true if the pixel data is encapsulated (compressed)
func IsEncapsulated(ds *Dataset) bool {
	return GetTransferSyntax(ds).IsEncapsulated()
}

// GetRows returns the number of rows in the image
func GetRows(ds *Dataset) int {
	if v, ok := ds.GetInt(tag.Rows); ok {
		return v
	}
	return 0
}

// GetColumns returns the number of columns in the image
func GetColumns(ds *Dataset) int {
	if v, ok := ds.GetInt(tag.Columns); ok {
		return v
	}
	return 0
}

// GetNumberOfFrames returns the number of frames in the image
func GetNumberOfFrames(ds *Dataset) int {
	if v, ok := ds.GetInt(tag.NumberOfFrames); ok && v > 0 {
		return v
	}
	return 1
}

// GetBitsAllocated returns the bits allocated per sample
func GetBitsAllocated(ds *Dataset) int {
	if v, ok := ds.GetInt(tag.BitsAllocated); ok {
		return v
	}
	return 16
}

// GetSamplesPerPixel returns 1 for grayscale, 3 for color
func GetSamplesPerPixel(ds *Dataset) int {
	if v, ok := ds.GetInt(tag.SamplesPerPixel); ok && v > 0 {
		return v
	}
	return 1
}

// GetPixelRepresentation returns 0 for unsigned, 1 for signed
func GetPixelRepresentation(ds *Dataset) int {
	if v, ok := ds.GetInt(tag.PixelRepresentation); ok {
		return v
	}
	return 0
}
