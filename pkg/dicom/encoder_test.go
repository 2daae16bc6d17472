package dicom

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomview.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomview.go/pkg/dicom/vr"
)

// testEncoder writes dataset elements for test fixtures
type testEncoder struct {
	order    binary.ByteOrder
	explicit bool
	buf      bytes.Buffer
}

func newEncoder(t *testing.T, ts transfer.Syntax) *testEncoder {
	t.Helper()
	enc, err := transfer.Lookup(string(ts))
	require.NoError(t, err)
	return &testEncoder{order: enc.ByteOrder, explicit: enc.ExplicitVR}
}

func (e *testEncoder) sub() *testEncoder {
	return &testEncoder{order: e.order, explicit: e.explicit}
}

func (e *testEncoder) bytes() []byte {
	return e.buf.Bytes()
}

func (e *testEncoder) writeTag(t Tag) {
	var b [4]byte
	e.order.PutUint16(b[0:], t.Group)
	e.order.PutUint16(b[2:], t.Element)
	e.buf.Write(b[:])
}

func (e *testEncoder) writeU32(v uint32) {
	var b [4]byte
	e.order.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

// header writes a tag, VR (explicit only) and value length
func (e *testEncoder) header(t Tag, v vr.VR, length uint32) {
	e.writeTag(t)
	if !e.explicit {
		e.writeU32(length)
		return
	}
	e.buf.WriteString(string(v))
	if v.IsLongLength() {
		e.buf.Write([]byte{0, 0})
		e.writeU32(length)
		return
	}
	var b [2]byte
	e.order.PutUint16(b[:], uint16(length))
	e.buf.Write(b[:])
}

// raw writes an element with the value bytes as given
func (e *testEncoder) raw(t Tag, v vr.VR, value []byte) *testEncoder {
	e.header(t, v, uint32(len(value)))
	e.buf.Write(value)
	return e
}

// str writes a string element padded to even length
func (e *testEncoder) str(t Tag, v vr.VR, s string) *testEncoder {
	if len(s)%2 != 0 {
		if v == vr.UI {
			s += "\x00"
		} else {
			s += " "
		}
	}
	return e.raw(t, v, []byte(s))
}

func (e *testEncoder) us(t Tag, vals ...uint16) *testEncoder {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		e.order.PutUint16(b[i*2:], v)
	}
	return e.raw(t, vr.US, b)
}

func (e *testEncoder) ul(t Tag, vals ...uint32) *testEncoder {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		e.order.PutUint32(b[i*4:], v)
	}
	return e.raw(t, vr.UL, b)
}

func (e *testEncoder) fd(t Tag, vals ...float64) *testEncoder {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		e.order.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return e.raw(t, vr.FD, b)
}

// image writes the Image Pixel module for a grayscale or RGB frame
func (e *testEncoder) image(rows, cols, spp, bits, pixelRep int) *testEncoder {
	e.us(tag.SamplesPerPixel, uint16(spp))
	if spp == 3 {
		e.str(tag.PhotometricInterpretation, vr.CS, "RGB")
	} else {
		e.str(tag.PhotometricInterpretation, vr.CS, "MONOCHROME2")
	}
	e.us(tag.Rows, uint16(rows))
	e.us(tag.Columns, uint16(cols))
	e.us(tag.BitsAllocated, uint16(bits))
	e.us(tag.BitsStored, uint16(bits))
	e.us(tag.HighBit, uint16(bits-1))
	e.us(tag.PixelRepresentation, uint16(pixelRep))
	return e
}

// pixels16 writes native 16-bit pixel data in the encoder's byte order
func (e *testEncoder) pixels16(vals ...uint16) *testEncoder {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		e.order.PutUint16(b[i*2:], v)
	}
	return e.raw(tag.PixelData, vr.OW, b)
}

// sequence writes a sequence whose items are produced by the given funcs,
// using defined lengths for the sequence and items when defined is set
func (e *testEncoder) sequence(t Tag, defined bool, items ...func(*testEncoder)) *testEncoder {
	bodies := make([][]byte, len(items))
	for i, fill := range items {
		item := e.sub()
		fill(item)
		bodies[i] = item.bytes()
	}

	if !defined {
		e.header(t, vr.SQ, undefinedLength)
		for _, body := range bodies {
			e.writeTag(tag.Item)
			e.writeU32(undefinedLength)
			e.buf.Write(body)
			e.writeTag(tag.ItemDelimitationItem)
			e.writeU32(0)
		}
		e.writeTag(tag.SequenceDelimitationItem)
		e.writeU32(0)
		return e
	}

	var total uint32
	for _, body := range bodies {
		total += 8 + uint32(len(body))
	}
	e.header(t, vr.SQ, total)
	for _, body := range bodies {
		e.writeTag(tag.Item)
		e.writeU32(uint32(len(body)))
		e.buf.Write(body)
	}
	return e
}

// encapsulated writes undefined length pixel data with a Basic Offset Table
func (e *testEncoder) encapsulated(offsets []uint32, fragments ...[]byte) *testEncoder {
	e.header(tag.PixelData, vr.OB, undefinedLength)
	e.writeTag(tag.Item)
	e.writeU32(uint32(4 * len(offsets)))
	for _, o := range offsets {
		e.writeU32(o)
	}
	for _, frag := range fragments {
		e.writeTag(tag.Item)
		e.writeU32(uint32(len(frag)))
		e.buf.Write(frag)
	}
	e.writeTag(tag.SequenceDelimitationItem)
	e.writeU32(0)
	return e
}

// part10 wraps a dataset body in a preamble, magic and meta group
func part10(t *testing.T, ts transfer.Syntax, body func(*testEncoder)) []byte {
	t.Helper()
	meta := &testEncoder{order: binary.LittleEndian, explicit: true}
	meta.raw(tag.FileMetaInformationVersion, vr.OB, []byte{0x00, 0x01})
	meta.str(tag.MediaStorageSOPClassUID, vr.UI, "1.2.840.10008.5.1.4.1.1.4")
	meta.str(tag.MediaStorageSOPInstanceUID, vr.UI, "1.2.3.4.5")
	meta.str(tag.TransferSyntaxUID, vr.UI, string(ts))

	var out bytes.Buffer
	out.Write(make([]byte, preambleLength))
	out.WriteString(magic)
	groupLength := &testEncoder{order: binary.LittleEndian, explicit: true}
	groupLength.ul(tag.FileMetaInformationGroupLength, uint32(len(meta.bytes())))
	out.Write(groupLength.bytes())
	out.Write(meta.bytes())

	enc := newEncoder(t, ts)
	body(enc)
	data := enc.bytes()

	if ts == transfer.DeflatedExplicitVR {
		var z bytes.Buffer
		w, err := flate.NewWriter(&z, flate.DefaultCompression)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		data = z.Bytes()
	}
	out.Write(data)
	return out.Bytes()
}

// mrBody writes a small MR-like dataset with a 2x2 16-bit frame
func mrBody(e *testEncoder) {
	e.str(tag.StudyDate, vr.DA, "20240131")
	e.str(tag.StudyTime, vr.TM, "093015.25")
	e.str(tag.Modality, vr.CS, "MR")
	e.str(tag.InstitutionName, vr.LO, "General Hospital")
	e.str(tag.SeriesDescription, vr.LO, "T1 AX")
	e.str(tag.PatientName, vr.PN, "Doe^Jane")
	e.str(tag.PatientID, vr.LO, "PID-001")
	e.str(tag.SliceThickness, vr.DS, "5.0")
	e.str(tag.RepetitionTime, vr.DS, "500")
	e.str(tag.EchoTime, vr.DS, "14.5")
	e.str(tag.StudyInstanceUID, vr.UI, "1.2.3.4")
	e.str(tag.ImageOrientationPatient, vr.DS, `1\0\0\0\1\0`)
	e.str(tag.SliceLocation, vr.DS, "-12.5")
	e.image(2, 2, 1, 16, 0)
	e.str(tag.PixelSpacing, vr.DS, `0.5\0.75`)
	e.str(tag.WindowCenter, vr.DS, `40\80`)
	e.str(tag.WindowWidth, vr.DS, `400\800`)
	e.pixels16(0, 100, 1000, 4000)
}
