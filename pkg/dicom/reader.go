package dicom

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
	"golang.org/x/text/encoding"

	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomview.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomview.go/pkg/dicom/vr"
)

const (
	preambleLength = 128
	magic          = "DICM"

	// DefaultMaxSequenceDepth bounds sequence nesting on untrusted input
	DefaultMaxSequenceDepth = 64

	undefinedLength uint32 = 0xFFFFFFFF

	// values larger than this are copied incrementally so allocation follows
	// the bytes actually present rather than the declared length
	directReadLimit = 1 << 16
)

var explicitVRLittleEndian = transfer.Encoding{
	Syntax:     transfer.ExplicitVRLittleEndian,
	ByteOrder:  binary.LittleEndian,
	ExplicitVR: true,
}

var implicitVRLittleEndian = transfer.Encoding{
	Syntax:    transfer.ImplicitVRLittleEndian,
	ByteOrder: binary.LittleEndian,
}

// ReadOption configures a Reader
type ReadOption func(*Reader)

// WithMaxSequenceDepth sets the deepest sequence nesting accepted before the
// parse fails with ErrMalformedSequence
func WithMaxSequenceDepth(depth int) ReadOption {
	return func(r *Reader) {
		r.maxDepth = depth
	}
}

// WithSkipPixelData drops the pixel data value while parsing (metadata only)
func WithSkipPixelData() ReadOption {
	return func(r *Reader) {
		r.skipPixelData = true
	}
}

// Reader reads DICOM Part 10 files and bare datasets
type Reader struct {
	src     *bufio.Reader
	r       io.Reader
	pos     int64
	enc     transfer.Encoding
	charset encoding.Encoding

	maxDepth      int
	skipPixelData bool
}

// NewReader creates a new DICOM reader
func NewReader(r io.Reader, opts ...ReadOption) *Reader {
	src := bufio.NewReader(r)
	reader := &Reader{
		src:      src,
		r:        src,
		enc:      explicitVRLittleEndian,
		maxDepth: DefaultMaxSequenceDepth,
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Parse reads a complete DICOM stream
func Parse(r io.Reader, opts ...ReadOption) (*Dataset, error) {
	return NewReader(r, opts...).ReadDataset()
}

// ReadDataset reads the complete dataset
func (r *Reader) ReadDataset() (*Dataset, error) {
	// 1. preamble and magic, or a bare dataset
	hasMagic, err := r.readHeader()
	if err != nil {
		return nil, err
	}

	// 2. file meta information, always explicit VR little endian
	ds := newDataset(transfer.ExplicitVRLittleEndian)
	enc, err := r.readMeta(ds, hasMagic)
	if err != nil {
		return nil, err
	}
	ds.TransferSyntax = enc.Syntax
	r.enc = enc
	slog.Debug("resolved transfer syntax",
		slog.String("uid", string(enc.Syntax)),
		slog.String("name", enc.Syntax.Name()),
		slog.Int64("offset", r.pos))

	// 3. deflated datasets are inflated after the meta group
	if enc.Deflated {
		fr := flate.NewReader(r.src)
		defer fr.Close()
		r.r = fr
	}

	// 4. main dataset
	if _, err := r.readElements(ds, -1, 0); err != nil {
		return nil, err
	}
	return ds, nil
}

// readHeader consumes the preamble and magic when present and rejects input
// that is neither a Part 10 file nor a plausible bare dataset
func (r *Reader) readHeader() (bool, error) {
	head, _ := r.src.Peek(preambleLength + len(magic))
	switch {
	case len(head) >= preambleLength+len(magic) && string(head[preambleLength:]) == magic:
		return true, r.discard(preambleLength + len(magic))
	case len(head) >= len(magic) && string(head[:len(magic)]) == magic:
		return true, r.discard(len(magic))
	case len(head) >= 8 && plausibleElement(head):
		return false, nil
	}
	return false, ErrNotDicom
}

// plausibleElement reports whether head starts with a little endian element
// header: an even group up to pixel data followed by an explicit VR code, or
// a dictionary tag when the VR is implicit
func plausibleElement(head []byte) bool {
	t := Tag{Group: binary.LittleEndian.Uint16(head[0:2]), Element: binary.LittleEndian.Uint16(head[2:4])}
	switch {
	case t.Group == 0x0002 || t.Group == 0x0008:
		return true
	case t.Group < 0x0002 || t.Group > 0x7FE0 || t.Group%2 != 0:
		return false
	}
	if _, ok := vr.Parse(string(head[4:6])); ok {
		return true
	}
	_, ok := tag.Lookup(t)
	return ok
}

// readMeta reads the group 0002 elements and resolves the transfer syntax for
// the rest of the stream
func (r *Reader) readMeta(ds *Dataset, hasMagic bool) (transfer.Encoding, error) {
	r.enc = explicitVRLittleEndian
	var sawMeta bool
	for {
		peek, err := r.src.Peek(2)
		if err != nil || binary.LittleEndian.Uint16(peek) != 0x0002 {
			break
		}
		sawMeta = true
		start := r.pos
		t, err := r.readTag()
		if err != nil {
			return transfer.Encoding{}, r.malformed(start, t, err)
		}
		elem, err := r.readElementWithTag(t, start, 0)
		if err != nil {
			return transfer.Encoding{}, err
		}
		if elem != nil {
			ds.Put(elem)
		}
	}

	if elem, ok := ds.Get(tag.TransferSyntaxUID); ok {
		uid, _ := elem.GetString()
		enc, err := transfer.Lookup(uid)
		if err != nil {
			return transfer.Encoding{}, &TransferSyntaxError{UID: string(transfer.FromUID(uid))}
		}
		return enc, nil
	}
	if sawMeta {
		return implicitVRLittleEndian, nil
	}

	// no meta group: sniff for an explicit VR code after the first tag
	head, _ := r.src.Peek(6)
	if len(head) == 6 {
		if _, ok := vr.Parse(string(head[4:6])); ok {
			return explicitVRLittleEndian, nil
		}
	} else if !hasMagic && len(head) == 0 {
		return transfer.Encoding{}, ErrNotDicom
	}
	return implicitVRLittleEndian, nil
}

// readElements reads elements into ds until the stream ends (top level), the
// byte bound end is reached (defined length item) or an item delimiter is
// read (undefined length item). The returned flag reports a delimiter.
func (r *Reader) readElements(ds *Dataset, end int64, depth int) (bool, error) {
	undefinedItem := end < 0 && depth > 0
	for {
		if end >= 0 && r.pos >= end {
			if r.pos > end {
				return false, &MalformedSequenceError{Offset: r.pos, Depth: depth, Reason: "item overran its declared length"}
			}
			return false, nil
		}

		start := r.pos
		t, err := r.readTag()
		if err == io.EOF && end < 0 && depth == 0 {
			return false, nil
		}
		if err != nil {
			return false, r.malformed(start, t, err)
		}

		switch t {
		case tag.ItemDelimitationItem:
			if _, err := r.readUint32(); err != nil {
				return false, r.malformed(start, t, err)
			}
			if undefinedItem {
				return true, nil
			}
			return false, &MalformedSequenceError{Offset: start, Depth: depth, Reason: "item delimiter outside an undefined length item"}
		case tag.Item, tag.SequenceDelimitationItem:
			return false, &MalformedSequenceError{Offset: start, Depth: depth, Reason: fmt.Sprintf("unexpected %v outside a sequence", t)}
		}

		elem, err := r.readElementWithTag(t, start, depth)
		if err != nil {
			return false, err
		}
		if elem != nil {
			ds.Put(elem)
		}
	}
}

// readElementWithTag reads a DICOM element after the tag has been read.
// A nil element with a nil error means the value was skipped.
func (r *Reader) readElementWithTag(t Tag, start int64, depth int) (*Element, error) {
	var v vr.VR
	var vl uint32

	if r.enc.ExplicitVR {
		var code [2]byte
		if err := r.readFull(code[:]); err != nil {
			return nil, r.malformed(start, t, err)
		}
		var ok bool
		if v, ok = vr.Parse(string(code[:])); !ok {
			return nil, r.malformed(start, t, fmt.Errorf("invalid VR %q", code[:]))
		}
		if v.IsLongLength() {
			var reserved [2]byte
			if err := r.readFull(reserved[:]); err != nil {
				return nil, r.malformed(start, t, err)
			}
			n, err := r.readUint32()
			if err != nil {
				return nil, r.malformed(start, t, err)
			}
			vl = n
		} else {
			n, err := r.readUint16()
			if err != nil {
				return nil, r.malformed(start, t, err)
			}
			vl = uint32(n)
		}
	} else {
		v = tag.VROf(t)
		n, err := r.readUint32()
		if err != nil {
			return nil, r.malformed(start, t, err)
		}
		vl = n
	}

	elem := &Element{Tag: t, VR: v, Offset: start}

	if vl == undefinedLength {
		switch {
		case t == tag.PixelData:
			pd, err := r.readEncapsulatedPixelData(start)
			if err != nil {
				return nil, err
			}
			if r.skipPixelData {
				return nil, nil
			}
			elem.Value = pd
			return elem, nil
		case v == vr.SQ:
			items, err := r.readSequence(start, vl, depth+1)
			if err != nil {
				return nil, err
			}
			elem.Value = items
			return elem, nil
		case v == vr.UN:
			// UN with undefined length is a sequence encoded implicit VR little endian
			saved := r.enc
			r.enc = implicitVRLittleEndian
			items, err := r.readSequence(start, vl, depth+1)
			r.enc = saved
			if err != nil {
				return nil, err
			}
			elem.VR = vr.SQ
			elem.Value = items
			return elem, nil
		default:
			return nil, r.malformed(start, t, fmt.Errorf("undefined length for VR %s", v))
		}
	}

	if v == vr.SQ {
		items, err := r.readSequence(start, vl, depth+1)
		if err != nil {
			return nil, err
		}
		elem.Value = items
		return elem, nil
	}

	if t == tag.PixelData && r.skipPixelData {
		if err := r.discard(int(vl)); err != nil {
			return nil, r.malformed(start, t, err)
		}
		return nil, nil
	}

	data, err := r.readBytes(vl)
	if err != nil {
		return nil, r.malformed(start, t, err)
	}
	value, err := r.parseValue(v, data)
	if err != nil {
		return nil, r.malformed(start, t, err)
	}
	elem.Value = value

	if t == tag.SpecificCharacterSet {
		terms, _ := elem.GetStrings()
		r.charset = lookupCharset(terms)
	}
	return elem, nil
}

// readSequence reads the items of a sequence with defined or undefined length
func (r *Reader) readSequence(start int64, length uint32, depth int) ([]*Dataset, error) {
	if depth > r.maxDepth {
		return nil, &MalformedSequenceError{Offset: start, Depth: depth, Reason: fmt.Sprintf("nesting exceeds limit of %d", r.maxDepth)}
	}

	end := int64(-1)
	if length != undefinedLength {
		end = r.pos + int64(length)
	}

	items := []*Dataset{}
	for {
		if end >= 0 && r.pos >= end {
			if r.pos > end {
				return nil, &MalformedSequenceError{Offset: r.pos, Depth: depth, Reason: "sequence overran its declared length"}
			}
			return items, nil
		}

		itemStart := r.pos
		t, err := r.readTag()
		if err != nil {
			return nil, r.malformed(itemStart, t, err)
		}
		itemLength, err := r.readUint32()
		if err != nil {
			return nil, r.malformed(itemStart, t, err)
		}

		switch t {
		case tag.SequenceDelimitationItem:
			if end >= 0 {
				return nil, &MalformedSequenceError{Offset: itemStart, Depth: depth, Reason: "sequence delimiter in a defined length sequence"}
			}
			return items, nil
		case tag.Item:
			item := newDataset(r.enc.Syntax)
			if itemLength == undefinedLength {
				if _, err := r.readElements(item, -1, depth); err != nil {
					return nil, err
				}
			} else {
				if _, err := r.readElements(item, r.pos+int64(itemLength), depth); err != nil {
					return nil, err
				}
			}
			items = append(items, item)
		default:
			return nil, &MalformedSequenceError{Offset: itemStart, Depth: depth, Reason: fmt.Sprintf("expected item tag, got %v", t)}
		}
	}
}

// readEncapsulatedPixelData reads encapsulated (compressed) pixel data fragments.
// The first item is the Basic Offset Table.
func (r *Reader) readEncapsulatedPixelData(start int64) (*EncapsulatedPixelData, error) {
	pd := &EncapsulatedPixelData{}
	first := true
	for {
		itemStart := r.pos
		t, err := r.readTag()
		if err != nil {
			return nil, r.malformed(itemStart, t, err)
		}
		length, err := r.readUint32()
		if err != nil {
			return nil, r.malformed(itemStart, t, err)
		}

		switch t {
		case tag.SequenceDelimitationItem:
			return pd, nil
		case tag.Item:
		default:
			return nil, &MalformedSequenceError{Offset: itemStart, Depth: 1, Reason: fmt.Sprintf("expected pixel data item, got %v", t)}
		}
		if length == undefinedLength {
			return nil, r.malformed(itemStart, tag.PixelData, errors.New("undefined length pixel data fragment"))
		}

		if r.skipPixelData {
			if err := r.discard(int(length)); err != nil {
				return nil, r.malformed(itemStart, tag.PixelData, err)
			}
			continue
		}

		data, err := r.readBytes(length)
		if err != nil {
			return nil, r.malformed(itemStart, tag.PixelData, err)
		}
		if first {
			first = false
			pd.Offsets = make([]uint32, len(data)/4)
			for i := range pd.Offsets {
				pd.Offsets[i] = binary.LittleEndian.Uint32(data[i*4:])
			}
			continue
		}
		pd.Fragments = append(pd.Fragments, data)
	}
}

// parseValue converts raw bytes to a typed value based on VR
func (r *Reader) parseValue(v vr.VR, data []byte) (any, error) {
	order := r.enc.ByteOrder

	switch v {
	case vr.DS:
		strs := splitValues(v, string(data))
		values := make([]float64, 0, len(strs))
		for _, s := range strs {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return strs, nil
			}
			values = append(values, f)
		}
		return values, nil
	case vr.IS:
		strs := splitValues(v, string(data))
		values := make([]int64, 0, len(strs))
		for _, s := range strs {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return strs, nil
			}
			values = append(values, n)
		}
		return values, nil
	case vr.US, vr.SS, vr.UL, vr.SL, vr.UV, vr.SV, vr.FL, vr.FD:
		size := v.ValueSize()
		if len(data)%size != 0 {
			return nil, fmt.Errorf("%s value length %d is not a multiple of %d", v, len(data), size)
		}
		n := len(data) / size
		if v == vr.FL || v == vr.FD {
			values := make([]float64, n)
			for i := range values {
				if v == vr.FL {
					values[i] = float64(math.Float32frombits(order.Uint32(data[i*4:])))
				} else {
					values[i] = math.Float64frombits(order.Uint64(data[i*8:]))
				}
			}
			return values, nil
		}
		values := make([]int64, n)
		for i := range values {
			switch v {
			case vr.US:
				values[i] = int64(order.Uint16(data[i*2:]))
			case vr.SS:
				values[i] = int64(int16(order.Uint16(data[i*2:])))
			case vr.UL:
				values[i] = int64(order.Uint32(data[i*4:]))
			case vr.SL:
				values[i] = int64(int32(order.Uint32(data[i*4:])))
			case vr.UV, vr.SV:
				values[i] = int64(order.Uint64(data[i*8:]))
			}
		}
		return values, nil
	}

	if v.IsString() {
		s := string(data)
		if v.IsCharsetSensitive() {
			s = decodeText(data, r.charset)
		}
		return splitValues(v, s), nil
	}
	return data, nil
}

// splitValues trims value padding and splits multi-valued strings on backslash
func splitValues(v vr.VR, s string) []string {
	s = strings.TrimRight(s, "\x00 ")
	if s == "" {
		return []string{}
	}
	if !v.IsMultiValued() {
		return []string{s}
	}
	parts := strings.Split(s, `\`)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.TrimRight(p, "\x00"))
	}
	return parts
}

// readTag reads a DICOM tag in the current byte order; group 0002 is always
// little endian
func (r *Reader) readTag() (Tag, error) {
	var buf [4]byte
	if err := r.readFull(buf[:]); err != nil {
		return Tag{}, err
	}
	order := r.enc.ByteOrder
	if binary.LittleEndian.Uint16(buf[0:2]) == 0x0002 {
		order = binary.LittleEndian
	}
	return Tag{Group: order.Uint16(buf[0:2]), Element: order.Uint16(buf[2:4])}, nil
}

func (r *Reader) readUint16() (uint16, error) {
	var buf [2]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return r.enc.ByteOrder.Uint16(buf[:]), nil
}

func (r *Reader) readUint32() (uint32, error) {
	var buf [4]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return r.enc.ByteOrder.Uint32(buf[:]), nil
}

// readFull fills buf, returning io.EOF only if nothing was read
func (r *Reader) readFull(buf []byte) error {
	n, err := io.ReadFull(r.r, buf)
	r.pos += int64(n)
	return err
}

// readBytes reads a value of n bytes
func (r *Reader) readBytes(n uint32) ([]byte, error) {
	if n <= directReadLimit {
		buf := make([]byte, n)
		if err := r.readFull(buf); err != nil {
			return nil, unexpected(err)
		}
		return buf, nil
	}
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r.r, int64(n))
	r.pos += copied
	if err != nil {
		return nil, unexpected(err)
	}
	return buf.Bytes(), nil
}

func (r *Reader) discard(n int) error {
	copied, err := io.CopyN(io.Discard, r.r, int64(n))
	r.pos += copied
	return unexpected(err)
}

func (r *Reader) malformed(start int64, t Tag, err error) error {
	var seqErr *MalformedSequenceError
	var dsErr *MalformedDatasetError
	if errors.As(err, &seqErr) || errors.As(err, &dsErr) {
		return err
	}
	return &MalformedDatasetError{Offset: start, Tag: t, Err: unexpected(err)}
}

// unexpected maps a bare EOF inside an element to io.ErrUnexpectedEOF
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
