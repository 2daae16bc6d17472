// Package transfer defines DICOM Transfer Syntaxes
package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Syntax represents a DICOM Transfer Syntax UID
type Syntax string

// Standard Transfer Syntaxes
const (
	// Uncompressed
	ImplicitVRLittleEndian    Syntax = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian    Syntax = "1.2.840.10008.1.2.1"
	ExplicitVRLittleEndianExt Syntax = "1.2.840.10008.1.2.1.64" // Encapsulated uncompressed
	DeflatedExplicitVR        Syntax = "1.2.840.10008.1.2.1.99"
	ExplicitVRBigEndian       Syntax = "1.2.840.10008.1.2.2" // Retired

	// JPEG Lossy
	JPEGBaseline Syntax = "1.2.840.10008.1.2.4.50"
	JPEGExtended Syntax = "1.2.840.10008.1.2.4.51"

	// JPEG Lossless
	JPEGLossless           Syntax = "1.2.840.10008.1.2.4.57"
	JPEGLosslessFirstOrder Syntax = "1.2.840.10008.1.2.4.70" // Most common

	// JPEG-LS
	JPEGLSLossless     Syntax = "1.2.840.10008.1.2.4.80"
	JPEGLSNearLossless Syntax = "1.2.840.10008.1.2.4.81"

	// JPEG 2000
	JPEG2000Lossless Syntax = "1.2.840.10008.1.2.4.90"
	JPEG2000         Syntax = "1.2.840.10008.1.2.4.91"

	// High-Throughput JPEG 2000
	HTJ2KLossless     Syntax = "1.2.840.10008.1.2.4.201"
	HTJ2KLosslessRPCL Syntax = "1.2.840.10008.1.2.4.202"
	HTJ2K             Syntax = "1.2.840.10008.1.2.4.203"

	// MPEG / HEVC video
	MPEG2MainProfile Syntax = "1.2.840.10008.1.2.4.100"
	MPEG4AVCH264     Syntax = "1.2.840.10008.1.2.4.102"
	HEVCH265         Syntax = "1.2.840.10008.1.2.4.107"

	// Other
	RLELossless Syntax = "1.2.840.10008.1.2.5"
)

// ErrUnknown is returned by Lookup for UIDs outside the registry
var ErrUnknown = errors.New("unknown transfer syntax")

// Encoding is the decoded meaning of a transfer syntax: how the dataset
// after the meta group is laid out and whether pixel data is encapsulated.
type Encoding struct {
	Syntax       Syntax
	ByteOrder    binary.ByteOrder
	ExplicitVR   bool
	Encapsulated bool
	Deflated     bool
}

// BigEndian returns true if multi-byte values use big endian order
func (e Encoding) BigEndian() bool {
	return e.ByteOrder == binary.BigEndian
}

var registry = map[Syntax]Encoding{
	ImplicitVRLittleEndian:    {ImplicitVRLittleEndian, binary.LittleEndian, false, false, false},
	ExplicitVRLittleEndian:    {ExplicitVRLittleEndian, binary.LittleEndian, true, false, false},
	ExplicitVRLittleEndianExt: {ExplicitVRLittleEndianExt, binary.LittleEndian, true, true, false},
	DeflatedExplicitVR:        {DeflatedExplicitVR, binary.LittleEndian, true, false, true},
	ExplicitVRBigEndian:       {ExplicitVRBigEndian, binary.BigEndian, true, false, false},
	JPEGBaseline:              {JPEGBaseline, binary.LittleEndian, true, true, false},
	JPEGExtended:              {JPEGExtended, binary.LittleEndian, true, true, false},
	JPEGLossless:              {JPEGLossless, binary.LittleEndian, true, true, false},
	JPEGLosslessFirstOrder:    {JPEGLosslessFirstOrder, binary.LittleEndian, true, true, false},
	JPEGLSLossless:            {JPEGLSLossless, binary.LittleEndian, true, true, false},
	JPEGLSNearLossless:        {JPEGLSNearLossless, binary.LittleEndian, true, true, false},
	JPEG2000Lossless:          {JPEG2000Lossless, binary.LittleEndian, true, true, false},
	JPEG2000:                  {JPEG2000, binary.LittleEndian, true, true, false},
	HTJ2KLossless:             {HTJ2KLossless, binary.LittleEndian, true, true, false},
	HTJ2KLosslessRPCL:         {HTJ2KLosslessRPCL, binary.LittleEndian, true, true, false},
	HTJ2K:                     {HTJ2K, binary.LittleEndian, true, true, false},
	MPEG2MainProfile:          {MPEG2MainProfile, binary.LittleEndian, true, true, false},
	MPEG4AVCH264:              {MPEG4AVCH264, binary.LittleEndian, true, true, false},
	HEVCH265:                  {HEVCH265, binary.LittleEndian, true, true, false},
	RLELossless:               {RLELossless, binary.LittleEndian, true, true, false},
}

// Lookup resolves a transfer syntax UID. UID values are commonly padded with
// a trailing NUL or space, which is ignored.
func Lookup(uid string) (Encoding, error) {
	s := FromUID(uid)
	if enc, ok := registry[s]; ok {
		return enc, nil
	}
	return Encoding{}, fmt.Errorf("%w: %q", ErrUnknown, string(s))
}

// IsExplicitVR returns true if this transfer syntax uses explicit VR
func (s Syntax) IsExplicitVR() bool {
	if enc, ok := registry[s]; ok {
		return enc.ExplicitVR
	}
	return s != ImplicitVRLittleEndian
}

// IsLittleEndian returns true if this transfer syntax uses little endian byte order
func (s Syntax) IsLittleEndian() bool {
	return s != ExplicitVRBigEndian
}

// IsEncapsulated returns true if pixel data is encapsulated (compressed)
func (s Syntax) IsEncapsulated() bool {
	if enc, ok := registry[s]; ok {
		return enc.Encapsulated
	}
	return false
}

// IsKnown returns true if the syntax is in the registry
func (s Syntax) IsKnown() bool {
	_, ok := registry[s]
	return ok
}

// IsJPEGLS returns true if this is a JPEG-LS transfer syntax
func (s Syntax) IsJPEGLS() bool {
	return s == JPEGLSLossless || s == JPEGLSNearLossless
}

// IsJPEGLossless returns true if this is a JPEG Lossless transfer syntax
func (s Syntax) IsJPEGLossless() bool {
	return s == JPEGLossless || s == JPEGLosslessFirstOrder
}

// IsJPEG2000 returns true for the JPEG 2000 and HTJ2K families
func (s Syntax) IsJPEG2000() bool {
	switch s {
	case JPEG2000Lossless, JPEG2000, HTJ2KLossless, HTJ2KLosslessRPCL, HTJ2K:
		return true
	}
	return false
}

// Name returns a human-readable name for the transfer syntax
func (s Syntax) Name() string {
	switch s {
	case ImplicitVRLittleEndian:
		return "Implicit VR Little Endian"
	case ExplicitVRLittleEndian:
		return "Explicit VR Little Endian"
	case ExplicitVRLittleEndianExt:
		return "Encapsulated Uncompressed Explicit VR Little Endian"
	case DeflatedExplicitVR:
		return "Deflated Explicit VR Little Endian"
	case ExplicitVRBigEndian:
		return "Explicit VR Big Endian"
	case JPEGBaseline:
		return "JPEG Baseline (Process 1)"
	case JPEGExtended:
		return "JPEG Extended (Process 2 & 4)"
	case JPEGLossless:
		return "JPEG Lossless (Process 14)"
	case JPEGLosslessFirstOrder:
		return "JPEG Lossless First-Order (Process 14, SV1)"
	case JPEGLSLossless:
		return "JPEG-LS Lossless"
	case JPEGLSNearLossless:
		return "JPEG-LS Near-Lossless"
	case JPEG2000Lossless:
		return "JPEG 2000 Lossless"
	case JPEG2000:
		return "JPEG 2000"
	case HTJ2KLossless:
		return "High-Throughput JPEG 2000 Lossless"
	case HTJ2KLosslessRPCL:
		return "High-Throughput JPEG 2000 with RPCL Options Lossless"
	case HTJ2K:
		return "High-Throughput JPEG 2000"
	case MPEG2MainProfile:
		return "MPEG2 Main Profile"
	case MPEG4AVCH264:
		return "MPEG-4 AVC/H.264 High Profile"
	case HEVCH265:
		return "HEVC/H.265 Main Profile"
	case RLELossless:
		return "RLE Lossless"
	default:
		return string(s)
	}
}

// FromUID converts a UID string to a Syntax, dropping value padding
func FromUID(uid string) Syntax {
	return Syntax(strings.TrimRight(uid, "\x00 "))
}
