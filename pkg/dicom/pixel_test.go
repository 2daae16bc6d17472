package dicom

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/dicomview.go/pkg/compress/rle"
	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomview.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomview.go/pkg/dicom/vr"
)

func TestExtractPixels_Native16(t *testing.T) {
	ds, err := ReadBuffer(part10(t, transfer.ExplicitVRLittleEndian, mrBody))
	require.NoError(t, err)

	px, err := ExtractPixels(ds)
	require.NoError(t, err)
	assert.Equal(t, 2, px.Width)
	assert.Equal(t, 2, px.Height)
	assert.Equal(t, 16, px.BitsAllocated)
	assert.False(t, px.Blank)
	assert.Equal(t, []uint16{0, 100, 1000, 4000}, px.Data)
	assert.Equal(t, 40.0, px.WindowCenter)
	assert.Equal(t, 400.0, px.WindowWidth)
}

func TestExtractPixels_Native8(t *testing.T) {
	data := part10(t, transfer.ExplicitVRLittleEndian, func(e *testEncoder) {
		e.image(2, 3, 1, 8, 0)
		e.raw(tag.PixelData, vr.OB, []byte{0, 1, 2, 3, 4, 255})
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	px, err := ExtractPixels(ds)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 1, 2, 3, 4, 255}, px.Data)
	assert.Equal(t, 128.0, px.WindowCenter)
	assert.Equal(t, 256.0, px.WindowWidth)
}

func TestExtractPixels_SignedDecodedUnsigned(t *testing.T) {
	data := part10(t, transfer.ExplicitVRLittleEndian, func(e *testEncoder) {
		e.image(1, 2, 1, 16, 1)
		e.pixels16(0xFFFF, 0x0001)
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	px, err := ExtractPixels(ds)
	require.NoError(t, err)
	assert.True(t, px.Signed)
	assert.Equal(t, []uint16{0xFFFF, 1}, px.Data)
	assert.Equal(t, 0.0, px.WindowCenter)
	assert.Equal(t, 256.0, px.WindowWidth)
}

func TestExtractPixels_OnlyFirstFrame(t *testing.T) {
	data := part10(t, transfer.ExplicitVRLittleEndian, func(e *testEncoder) {
		e.image(1, 2, 1, 16, 0)
		e.str(tag.NumberOfFrames, vr.IS, "3")
		e.pixels16(1, 2, 3, 4, 5, 6)
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	px, err := ExtractPixels(ds)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2}, px.Data)
}

func TestExtractPixels_MissingPixelData(t *testing.T) {
	data := part10(t, transfer.ExplicitVRLittleEndian, func(e *testEncoder) {
		e.image(3, 4, 1, 16, 0)
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	px, err := ExtractPixels(ds)
	require.NoError(t, err)
	assert.True(t, px.Blank)
	require.Len(t, px.Data, 12)
	for _, v := range px.Data {
		assert.Zero(t, v)
	}
}

func TestExtractPixels_ShortData(t *testing.T) {
	data := part10(t, transfer.ExplicitVRLittleEndian, func(e *testEncoder) {
		e.image(2, 2, 1, 16, 0)
		e.pixels16(1, 2, 3)
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	_, err = ExtractPixels(ds)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedDataset)

	var dsErr *MalformedDatasetError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, tag.PixelData, dsErr.Tag)
	elem, _ := ds.Get(tag.PixelData)
	assert.Equal(t, elem.Offset, dsErr.Offset)
}

func TestExtractPixels_UnsupportedBitDepth(t *testing.T) {
	data := part10(t, transfer.ExplicitVRLittleEndian, func(e *testEncoder) {
		e.image(1, 1, 1, 32, 0)
		e.raw(tag.PixelData, vr.OB, []byte{1, 2, 3, 4})
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	_, err = ExtractPixels(ds)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedPixelEncoding)
}

func TestExtractPixels_PlanarRGB(t *testing.T) {
	data := part10(t, transfer.ExplicitVRLittleEndian, func(e *testEncoder) {
		e.image(1, 2, 3, 8, 0)
		e.us(tag.PlanarConfiguration, 1)
		// R plane, G plane, B plane
		e.raw(tag.PixelData, vr.OB, []byte{10, 11, 20, 21, 30, 31})
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	px, err := ExtractPixels(ds)
	require.NoError(t, err)
	assert.True(t, px.IsColor())
	assert.Equal(t, []uint16{10, 20, 30, 11, 21, 31}, px.Data)
	assert.Equal(t, []uint16{11, 21, 31}, px.At(1, 0))
}

func TestExtractPixels_RLE(t *testing.T) {
	tests := []struct {
		name string
		spp  int
		bits int
		data []uint16
	}{
		{"Gray8", 1, 8, []uint16{0, 64, 128, 255}},
		{"Gray16", 1, 16, []uint16{0, 1000, 40000, 65535}},
		{"RGB8", 3, 8, []uint16{255, 0, 0, 0, 255, 0, 0, 0, 255, 9, 9, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var frame bytes.Buffer
			require.NoError(t, rle.Encode(&frame, &rle.Frame{
				Width: 2, Height: 2, SamplesPerPixel: tt.spp, BitsAllocated: tt.bits, Samples: tt.data,
			}))

			data := part10(t, transfer.RLELossless, func(e *testEncoder) {
				e.image(2, 2, tt.spp, tt.bits, 0)
				e.encapsulated(nil, frame.Bytes())
			})
			ds, err := ReadBuffer(data)
			require.NoError(t, err)

			px, err := ExtractPixels(ds)
			require.NoError(t, err)
			assert.Equal(t, tt.data, px.Data)
		})
	}
}

func TestExtractPixels_RLESplitFragments(t *testing.T) {
	var frame bytes.Buffer
	require.NoError(t, rle.Encode(&frame, &rle.Frame{
		Width: 2, Height: 2, SamplesPerPixel: 1, BitsAllocated: 8, Samples: []uint16{1, 2, 3, 4},
	}))
	b := frame.Bytes()

	data := part10(t, transfer.RLELossless, func(e *testEncoder) {
		e.image(2, 2, 1, 8, 0)
		e.encapsulated([]uint32{0}, b[:40], b[40:])
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	px, err := ExtractPixels(ds)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2, 3, 4}, px.Data)
}

func TestExtractPixels_RLECorrupt(t *testing.T) {
	data := part10(t, transfer.RLELossless, func(e *testEncoder) {
		e.image(2, 2, 1, 8, 0)
		e.encapsulated(nil, []byte{1, 2, 3, 4})
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	_, err = ExtractPixels(ds)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedDataset)
}

func TestExtractPixels_UnsupportedCompression(t *testing.T) {
	for _, ts := range []transfer.Syntax{transfer.JPEGBaseline, transfer.JPEGLSLossless, transfer.JPEG2000} {
		t.Run(ts.Name(), func(t *testing.T) {
			data := part10(t, ts, func(e *testEncoder) {
				e.image(2, 2, 1, 8, 0)
				e.encapsulated(nil, []byte{0xFF, 0xD8, 0xFF, 0xD9})
			})
			ds, err := ReadBuffer(data)
			require.NoError(t, err)

			px, err := ExtractPixels(ds)
			require.Error(t, err)
			assert.Nil(t, px)
			assert.ErrorIs(t, err, ErrUnsupportedPixelEncoding)

			var pixErr *UnsupportedPixelEncodingError
			require.True(t, errors.As(err, &pixErr))
			assert.Equal(t, ts, pixErr.Syntax)
			assert.Contains(t, err.Error(), ts.Name())
		})
	}
}

func TestExtractPixels_InvalidGeometry(t *testing.T) {
	le16 := []byte{0xFF, 0xFF}
	tests := []struct {
		name string
		body func(*testEncoder)
		want error
		tag  Tag
	}{
		{"NegativeRows", func(e *testEncoder) {
			e.us(tag.SamplesPerPixel, 1)
			e.raw(tag.Rows, vr.SS, le16)
			e.us(tag.Columns, 2)
			e.us(tag.BitsAllocated, 16)
			e.pixels16(1, 2, 3, 4)
		}, ErrMalformedDataset, tag.Rows},
		{"NegativeRowsNoPixelData", func(e *testEncoder) {
			e.raw(tag.Rows, vr.SS, le16)
			e.us(tag.Columns, 2)
		}, ErrMalformedDataset, tag.Rows},
		{"ColumnsBeyondUS", func(e *testEncoder) {
			e.us(tag.Rows, 2)
			e.ul(tag.Columns, 0x10000)
			e.pixels16(1, 2, 3, 4)
		}, ErrMalformedDataset, tag.Columns},
		{"HugeSamplesPerPixel", func(e *testEncoder) {
			e.us(tag.SamplesPerPixel, 65535)
			e.us(tag.Rows, 65535)
			e.us(tag.Columns, 65535)
		}, ErrUnsupportedPixelEncoding, Tag{}},
		{"HugeBlankFrame", func(e *testEncoder) {
			e.us(tag.Rows, 65535)
			e.us(tag.Columns, 65535)
		}, ErrMalformedDataset, tag.Rows},
		{"ZeroRowsWithPixelData", func(e *testEncoder) {
			e.image(0, 2, 1, 16, 0)
			e.pixels16(1, 2)
		}, ErrMalformedDataset, tag.PixelData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := part10(t, transfer.ExplicitVRLittleEndian, tt.body)
			ds, err := ReadBuffer(data)
			require.NoError(t, err)

			px, err := ExtractPixels(ds)
			require.Error(t, err)
			assert.Nil(t, px)
			assert.ErrorIs(t, err, tt.want)
			var dsErr *MalformedDatasetError
			if errors.As(err, &dsErr) {
				assert.Equal(t, tt.tag, dsErr.Tag)
			}

			assert.NotPanics(t, func() {
				_, err = LoadBytes(data)
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractPixels_NativeValueUnderCompressedSyntax(t *testing.T) {
	tests := []struct {
		syntax transfer.Syntax
		want   error
	}{
		{transfer.JPEGBaseline, ErrUnsupportedPixelEncoding},
		{transfer.JPEG2000, ErrUnsupportedPixelEncoding},
		{transfer.RLELossless, ErrMalformedDataset},
		{transfer.ExplicitVRLittleEndianExt, ErrMalformedDataset},
	}
	for _, tt := range tests {
		t.Run(tt.syntax.Name(), func(t *testing.T) {
			data := part10(t, tt.syntax, func(e *testEncoder) {
				e.image(2, 2, 1, 16, 0)
				e.pixels16(0xFFD8, 0xFFE0, 0x1234, 0x5678)
			})
			ds, err := ReadBuffer(data)
			require.NoError(t, err)

			px, err := ExtractPixels(ds)
			require.Error(t, err)
			assert.Nil(t, px)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractPixels_EncapsulatedUnderNativeSyntax(t *testing.T) {
	data := part10(t, transfer.ExplicitVRLittleEndian, func(e *testEncoder) {
		e.image(2, 2, 1, 8, 0)
		e.encapsulated(nil, []byte{1, 2, 3, 4})
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	_, err = ExtractPixels(ds)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedDataset)
}

func TestExtractPixels_EncapsulatedUncompressed(t *testing.T) {
	data := part10(t, transfer.ExplicitVRLittleEndianExt, func(e *testEncoder) {
		e.image(2, 2, 1, 16, 0)
		e.str(tag.NumberOfFrames, vr.IS, "2")
		e.encapsulated([]uint32{0, 16},
			[]byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x01},
			[]byte{9, 9, 9, 9, 9, 9, 9, 9})
	})
	ds, err := ReadBuffer(data)
	require.NoError(t, err)

	px, err := ExtractPixels(ds)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2, 3, 0x0104}, px.Data)
}

func TestFirstFrame(t *testing.T) {
	pd := &EncapsulatedPixelData{
		Offsets:   []uint32{0, 12},
		Fragments: [][]byte{{1, 2}, {3, 4}, {5, 6}},
	}
	// fragments at offsets 0 and 10 belong to frame 0
	assert.Equal(t, []byte{1, 2, 3, 4}, firstFrame(pd, 2))

	pd.Offsets = nil
	assert.Equal(t, []byte{1, 2}, firstFrame(pd, 3))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, firstFrame(pd, 1))
	assert.Nil(t, firstFrame(&EncapsulatedPixelData{}, 1))
}

func TestGetPixelInfo_Defaults(t *testing.T) {
	ds, err := NewDataset()
	require.NoError(t, err)

	info := GetPixelInfo(ds)
	assert.Equal(t, 0, info.Rows)
	assert.Equal(t, 16, info.BitsAllocated)
	assert.Equal(t, 16, info.BitsStored)
	assert.Equal(t, 1, info.SamplesPerPixel)
	assert.Equal(t, 1, info.NumberOfFrames)
	assert.Equal(t, "MONOCHROME2", info.Photometric)
	assert.False(t, info.Signed())
}
