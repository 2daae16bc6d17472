// Package rle implements the DICOM RLE Lossless frame codec (PS3.5 Annex G)
package rle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize  = 64
	maxSegments = 15
)

// Frame is one image frame with samples interleaved per pixel
// (R, G, B, R, G, B, ... for color)
type Frame struct {
	Width           int
	Height          int
	SamplesPerPixel int
	BitsAllocated   int
	Samples         []uint16
}

// segmentCount returns the number of byte planes the frame is split into
func segmentCount(samplesPerPixel, bitsAllocated int) (int, error) {
	if samplesPerPixel != 1 && samplesPerPixel != 3 {
		return 0, fmt.Errorf("rle: unsupported samples per pixel %d", samplesPerPixel)
	}
	if bitsAllocated != 8 && bitsAllocated != 16 {
		return 0, fmt.Errorf("rle: unsupported bits allocated %d", bitsAllocated)
	}
	return samplesPerPixel * bitsAllocated / 8, nil
}

// Decode decodes one DICOM RLE compressed frame.
// The geometry must be provided as the RLE stream does not carry it.
func Decode(data []byte, width, height, samplesPerPixel, bitsAllocated int) (*Frame, error) {
	want, err := segmentCount(samplesPerPixel, bitsAllocated)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("rle: invalid frame size %dx%d", width, height)
	}
	if len(data) < headerSize {
		return nil, errors.New("rle: data too short for header")
	}

	numSegments := int(binary.LittleEndian.Uint32(data[0:4]))
	if numSegments == 0 || numSegments > maxSegments {
		return nil, fmt.Errorf("rle: invalid segment count %d", numSegments)
	}
	if numSegments != want {
		return nil, fmt.Errorf("rle: %d segments, expected %d for %d samples of %d bits", numSegments, want, samplesPerPixel, bitsAllocated)
	}
	offsets := make([]uint32, maxSegments)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(data[4+i*4:])
	}

	numPixels := width * height
	segments := make([][]byte, numSegments)
	for i := 0; i < numSegments; i++ {
		start := offsets[i]
		end := uint32(len(data))
		if i < numSegments-1 {
			end = offsets[i+1]
		}
		if start < headerSize || start > end || end > uint32(len(data)) {
			return nil, fmt.Errorf("rle: invalid offset for segment %d", i)
		}
		decoded, err := decodePackBits(data[start:end], numPixels)
		if err != nil {
			return nil, fmt.Errorf("rle: segment %d: %w", i, err)
		}
		if len(decoded) < numPixels {
			return nil, fmt.Errorf("rle: segment %d decoded %d bytes, expected %d", i, len(decoded), numPixels)
		}
		segments[i] = decoded[:numPixels]
	}

	// segments are ordered sample by sample, most significant byte first
	f := &Frame{
		Width:           width,
		Height:          height,
		SamplesPerPixel: samplesPerPixel,
		BitsAllocated:   bitsAllocated,
		Samples:         make([]uint16, numPixels*samplesPerPixel),
	}
	bytesPerSample := bitsAllocated / 8
	for s := 0; s < samplesPerPixel; s++ {
		for p := 0; p < numPixels; p++ {
			var v uint16
			for b := 0; b < bytesPerSample; b++ {
				v = v<<8 | uint16(segments[s*bytesPerSample+b][p])
			}
			f.Samples[p*samplesPerPixel+s] = v
		}
	}
	return f, nil
}

// Encode writes a frame in DICOM RLE format, one segment per byte plane
func Encode(w io.Writer, f *Frame) error {
	numSegments, err := segmentCount(f.SamplesPerPixel, f.BitsAllocated)
	if err != nil {
		return err
	}
	numPixels := f.Width * f.Height
	if len(f.Samples) != numPixels*f.SamplesPerPixel {
		return fmt.Errorf("rle: %d samples for a %dx%dx%d frame", len(f.Samples), f.Width, f.Height, f.SamplesPerPixel)
	}

	bytesPerSample := f.BitsAllocated / 8
	segments := make([][]byte, 0, numSegments)
	for s := 0; s < f.SamplesPerPixel; s++ {
		for b := 0; b < bytesPerSample; b++ {
			shift := uint(8 * (bytesPerSample - 1 - b))
			plane := make([]byte, numPixels)
			for p := range plane {
				plane[p] = byte(f.Samples[p*f.SamplesPerPixel+s] >> shift)
			}
			seg := encodePackBits(plane)
			// segments are padded to even length
			if len(seg)%2 != 0 {
				seg = append(seg, 0x00)
			}
			segments = append(segments, seg)
		}
	}

	offsets := make([]uint32, maxSegments)
	current := uint32(headerSize)
	for i, seg := range segments {
		offsets[i] = current
		current += uint32(len(seg))
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(numSegments)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, offsets); err != nil {
		return err
	}
	for _, seg := range segments {
		if _, err := w.Write(seg); err != nil {
			return err
		}
	}
	return nil
}
