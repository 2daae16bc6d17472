package dicom

import (
	"errors"
	"fmt"

	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomview.go/pkg/dicom/transfer"
)

// Common errors; every failure returned by this package matches one of them
// through errors.Is
var (
	ErrNotDicom                  = errors.New("dicom: not a DICOM file")
	ErrUnsupportedTransferSyntax = errors.New("dicom: unsupported transfer syntax")
	ErrMalformedDataset          = errors.New("dicom: malformed dataset")
	ErrMalformedSequence         = errors.New("dicom: malformed sequence")
	ErrUnsupportedPixelEncoding  = errors.New("dicom: unsupported pixel encoding")
)

// TransferSyntaxError reports a transfer syntax UID the reader cannot decode
type TransferSyntaxError struct {
	UID string
}

func (e *TransferSyntaxError) Error() string {
	return fmt.Sprintf("dicom: unsupported transfer syntax %q", e.UID)
}

func (e *TransferSyntaxError) Is(target error) bool {
	return target == ErrUnsupportedTransferSyntax
}

// MalformedDatasetError reports a truncated or inconsistent byte run.
// Offset is the position in the (inflated) input where the failing element starts.
type MalformedDatasetError struct {
	Offset int64
	Tag    tag.Tag
	Err    error
}

func (e *MalformedDatasetError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dicom: malformed dataset at offset %d %v", e.Offset, e.Tag)
	}
	return fmt.Sprintf("dicom: malformed dataset at offset %d %v: %v", e.Offset, e.Tag, e.Err)
}

func (e *MalformedDatasetError) Is(target error) bool {
	return target == ErrMalformedDataset
}

func (e *MalformedDatasetError) Unwrap() error {
	return e.Err
}

// MalformedSequenceError reports a nesting limit or delimiter violation
type MalformedSequenceError struct {
	Offset int64
	Depth  int
	Reason string
}

func (e *MalformedSequenceError) Error() string {
	return fmt.Sprintf("dicom: malformed sequence at offset %d (depth %d): %s", e.Offset, e.Depth, e.Reason)
}

func (e *MalformedSequenceError) Is(target error) bool {
	return target == ErrMalformedSequence
}

// UnsupportedPixelEncodingError names a pixel encoding the extractor does not decode
type UnsupportedPixelEncodingError struct {
	Syntax transfer.Syntax
	Reason string
}

func (e *UnsupportedPixelEncodingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("dicom: unsupported pixel encoding %s: %s", e.Syntax.Name(), e.Reason)
	}
	return fmt.Sprintf("dicom: unsupported pixel encoding %s", e.Syntax.Name())
}

func (e *UnsupportedPixelEncodingError) Is(target error) bool {
	return target == ErrUnsupportedPixelEncoding
}
