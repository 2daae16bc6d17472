package dicom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jpfielding/dicomview.go/pkg/compress/rle"
	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomview.go/pkg/dicom/transfer"
)

const (
	maxDimension = 65535
	// maxBlankPixels bounds the zero frame synthesized when pixel data is absent
	maxBlankPixels = 1 << 24
)

// PixelInfo is the Image Pixel module of a dataset
type PixelInfo struct {
	Rows                int
	Columns             int
	BitsAllocated       int
	BitsStored          int
	SamplesPerPixel     int
	PixelRepresentation int
	PlanarConfiguration int
	NumberOfFrames      int
	Photometric         string
}

// Signed reports a two's complement pixel representation
func (pi PixelInfo) Signed() bool {
	return pi.PixelRepresentation == 1
}

// GetPixelInfo reads the Image Pixel module with defaults for absent tags
func GetPixelInfo(ds *Dataset) PixelInfo {
	info := PixelInfo{
		Rows:                GetRows(ds),
		Columns:             GetColumns(ds),
		BitsAllocated:       GetBitsAllocated(ds),
		SamplesPerPixel:     GetSamplesPerPixel(ds),
		PixelRepresentation: GetPixelRepresentation(ds),
		NumberOfFrames:      GetNumberOfFrames(ds),
		Photometric:         "MONOCHROME2",
	}
	info.BitsStored = info.BitsAllocated
	if v, ok := ds.GetInt(tag.BitsStored); ok {
		info.BitsStored = v
	}
	if v, ok := ds.GetInt(tag.PlanarConfiguration); ok {
		info.PlanarConfiguration = v
	}
	if s, ok := ds.GetString(tag.PhotometricInterpretation); ok && s != "" {
		info.Photometric = strings.ToUpper(strings.TrimSpace(s))
	}
	return info
}

// PixelSamples is frame 0 decoded to one unsigned value per sample,
// interleaved per pixel for color data
type PixelSamples struct {
	Width           int
	Height          int
	SamplesPerPixel int
	BitsAllocated   int
	Signed          bool
	Photometric     string
	Data            []uint16
	// Blank is set when the dataset had no pixel data and Data is all zero
	Blank bool

	WindowCenter float64
	WindowWidth  float64
}

// IsColor returns true for three sample (RGB/YBR) frames
func (px *PixelSamples) IsColor() bool {
	return px.SamplesPerPixel == 3
}

// At returns the samples of the pixel at (x, y)
func (px *PixelSamples) At(x, y int) []uint16 {
	if x < 0 || y < 0 || x >= px.Width || y >= px.Height {
		return nil
	}
	i := (y*px.Width + x) * px.SamplesPerPixel
	return px.Data[i : i+px.SamplesPerPixel]
}

// DefaultWindow returns the display window used when a dataset carries none
func DefaultWindow(signed bool) (center, width float64) {
	if signed {
		return 0, 256
	}
	return 128, 256
}

// GetWindow returns the first Window Center/Width values, or the default
// window for the pixel representation
func GetWindow(ds *Dataset) (center, width float64) {
	center, width = DefaultWindow(GetPixelRepresentation(ds) == 1)
	if c, ok := ds.GetFloat(tag.WindowCenter); ok {
		center = c
	}
	if w, ok := ds.GetFloat(tag.WindowWidth); ok {
		width = w
	}
	return center, width
}

// ExtractPixels decodes frame 0 of the dataset's pixel data
func ExtractPixels(ds *Dataset) (*PixelSamples, error) {
	info := GetPixelInfo(ds)
	px := &PixelSamples{
		Width:           info.Columns,
		Height:          info.Rows,
		SamplesPerPixel: info.SamplesPerPixel,
		BitsAllocated:   info.BitsAllocated,
		Signed:          info.Signed(),
		Photometric:     info.Photometric,
	}
	px.WindowCenter, px.WindowWidth = GetWindow(ds)
	syntax := GetTransferSyntax(ds)

	slog.Debug("extracting pixel data",
		slog.Int("rows", info.Rows),
		slog.Int("cols", info.Columns),
		slog.Int("samplesPerPixel", info.SamplesPerPixel),
		slog.Int("bitsAllocated", info.BitsAllocated),
		slog.String("syntax", syntax.Name()))

	if info.SamplesPerPixel != 1 && info.SamplesPerPixel != 3 {
		return nil, &UnsupportedPixelEncodingError{Syntax: syntax, Reason: fmt.Sprintf("%d samples per pixel", info.SamplesPerPixel)}
	}
	if err := checkDimension(ds, tag.Rows, info.Rows); err != nil {
		return nil, err
	}
	if err := checkDimension(ds, tag.Columns, info.Columns); err != nil {
		return nil, err
	}

	elem, ok := ds.Get(tag.PixelData)
	if !ok {
		if info.Rows*info.Columns > maxBlankPixels {
			rows, _ := ds.Get(tag.Rows)
			return nil, &MalformedDatasetError{
				Offset: rows.Offset,
				Tag:    tag.Rows,
				Err:    fmt.Errorf("%dx%d frame has no pixel data", info.Columns, info.Rows),
			}
		}
		px.Data = make([]uint16, info.Rows*info.Columns*info.SamplesPerPixel)
		px.Blank = true
		return px, nil
	}

	if info.Rows == 0 || info.Columns == 0 {
		return nil, &MalformedDatasetError{Offset: elem.Offset, Tag: elem.Tag, Err: fmt.Errorf("pixel data with %dx%d geometry", info.Columns, info.Rows)}
	}
	if info.BitsAllocated != 8 && info.BitsAllocated != 16 {
		return nil, &UnsupportedPixelEncodingError{Syntax: syntax, Reason: fmt.Sprintf("%d bits allocated", info.BitsAllocated)}
	}

	// the transfer syntax decides the decode path, the value type must agree
	var err error
	pd, encapsulated := elem.Value.(*EncapsulatedPixelData)
	switch {
	case syntax.IsEncapsulated() && encapsulated:
		px.Data, err = decodeEncapsulated(elem, pd, syntax, info)
	case syntax.IsEncapsulated():
		if syntax == transfer.RLELossless || syntax == transfer.ExplicitVRLittleEndianExt {
			err = &MalformedDatasetError{Offset: elem.Offset, Tag: elem.Tag, Err: fmt.Errorf("%s pixel data is not encapsulated", syntax.Name())}
		} else {
			err = &UnsupportedPixelEncodingError{Syntax: syntax, Reason: "compressed pixel data"}
		}
	case encapsulated:
		err = &MalformedDatasetError{Offset: elem.Offset, Tag: elem.Tag, Err: fmt.Errorf("encapsulated pixel data in %s", syntax.Name())}
	default:
		raw, ok := elem.Value.([]byte)
		if !ok {
			err = &MalformedDatasetError{Offset: elem.Offset, Tag: elem.Tag, Err: fmt.Errorf("pixel data has unexpected type %T", elem.Value)}
			break
		}
		px.Data, err = decodeNative(elem, raw, syntax, info)
	}
	if err != nil {
		return nil, err
	}
	return px, nil
}

// checkDimension rejects Rows/Columns values outside the US range
func checkDimension(ds *Dataset, t Tag, v int) error {
	if v >= 0 && v <= maxDimension {
		return nil
	}
	elem, _ := ds.Get(t)
	return &MalformedDatasetError{Offset: elem.Offset, Tag: t, Err: fmt.Errorf("%s %d out of range", t.LookupName(), v)}
}

// decodeNative reads frame 0 of uncompressed pixel data
func decodeNative(elem *Element, raw []byte, syntax transfer.Syntax, info PixelInfo) ([]uint16, error) {
	bytesPerSample := info.BitsAllocated / 8
	numSamples := info.Rows * info.Columns * info.SamplesPerPixel
	frameSize := numSamples * bytesPerSample
	if len(raw) < frameSize {
		return nil, &MalformedDatasetError{
			Offset: elem.Offset,
			Tag:    elem.Tag,
			Err:    fmt.Errorf("pixel data has %d bytes, frame 0 needs %d", len(raw), frameSize),
		}
	}

	var order binary.ByteOrder = binary.LittleEndian
	if !syntax.IsLittleEndian() {
		order = binary.BigEndian
	}

	data := make([]uint16, numSamples)
	if bytesPerSample == 2 {
		for i := range data {
			data[i] = order.Uint16(raw[i*2:])
		}
	} else {
		for i := range data {
			data[i] = uint16(raw[i])
		}
	}

	if info.SamplesPerPixel == 3 && info.PlanarConfiguration == 1 {
		data = interleave(data, info.Rows*info.Columns)
	}
	return data, nil
}

// interleave converts planar RRR..GGG..BBB.. samples to RGBRGB..
func interleave(planar []uint16, numPixels int) []uint16 {
	out := make([]uint16, len(planar))
	for p := 0; p < numPixels; p++ {
		for s := 0; s < 3; s++ {
			out[p*3+s] = planar[s*numPixels+p]
		}
	}
	return out
}

// decodeEncapsulated decodes frame 0 of encapsulated pixel data. RLE
// Lossless and encapsulated uncompressed frames are supported.
func decodeEncapsulated(elem *Element, pd *EncapsulatedPixelData, syntax transfer.Syntax, info PixelInfo) ([]uint16, error) {
	if syntax != transfer.RLELossless && syntax != transfer.ExplicitVRLittleEndianExt {
		return nil, &UnsupportedPixelEncodingError{Syntax: syntax, Reason: "compressed pixel data"}
	}
	frame := firstFrame(pd, info.NumberOfFrames)
	if len(frame) == 0 {
		return nil, &MalformedDatasetError{Offset: elem.Offset, Tag: elem.Tag, Err: errors.New("no pixel data fragments")}
	}
	if syntax == transfer.ExplicitVRLittleEndianExt {
		return decodeNative(elem, frame, syntax, info)
	}
	f, err := rle.Decode(frame, info.Columns, info.Rows, info.SamplesPerPixel, info.BitsAllocated)
	if err != nil {
		return nil, &MalformedDatasetError{Offset: elem.Offset, Tag: elem.Tag, Err: err}
	}
	return f.Samples, nil
}

// firstFrame gathers the fragments of frame 0. The Basic Offset Table is used
// when present; otherwise a single frame spans every fragment and a
// multi-frame image is assumed to use one fragment per frame.
func firstFrame(pd *EncapsulatedPixelData, numFrames int) []byte {
	if len(pd.Fragments) == 0 {
		return nil
	}
	var end int64 = -1
	switch {
	case len(pd.Offsets) > 1:
		end = int64(pd.Offsets[1])
	case numFrames > 1:
		return pd.Fragments[0]
	}

	var frame []byte
	var pos int64
	for _, frag := range pd.Fragments {
		if end >= 0 && pos >= end {
			break
		}
		frame = append(frame, frag...)
		pos += 8 + int64(len(frag)) // item tag + length precede each fragment
	}
	return frame
}
