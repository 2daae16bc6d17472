package dicom

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomview.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomview.go/pkg/dicom/vr"
)

// Tag alias to avoid duplication
type Tag = tag.Tag

// Dataset represents a parsed DICOM dataset. It holds at most one element per
// tag; a duplicate tag in the stream replaces the earlier element.
type Dataset struct {
	Elements       map[Tag]*Element
	TransferSyntax transfer.Syntax
}

// Element represents a single DICOM element.
//
// Value holds []string for string, date, time and UID VRs, []int64 for
// integer VRs, []float64 for decimal VRs, []byte for binary VRs, []*Dataset
// for sequences and *EncapsulatedPixelData for undefined length pixel data.
type Element struct {
	Tag    Tag
	VR     vr.VR
	Value  any
	Offset int64 // stream position of the element's tag
}

// EncapsulatedPixelData holds the fragments of compressed pixel data
type EncapsulatedPixelData struct {
	Offsets   []uint32 // Basic Offset Table, may be empty
	Fragments [][]byte
}

func newDataset(ts transfer.Syntax) *Dataset {
	return &Dataset{Elements: make(map[Tag]*Element), TransferSyntax: ts}
}

// Len returns the number of elements in the dataset
func (ds *Dataset) Len() int {
	return len(ds.Elements)
}

// Put stores an element, replacing any element with the same tag
func (ds *Dataset) Put(elem *Element) {
	ds.Elements[elem.Tag] = elem
}

// Tags returns the dataset's tags in ascending order
func (ds *Dataset) Tags() []Tag {
	keys := make([]Tag, 0, len(ds.Elements))
	for k := range ds.Elements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// FindElement returns an element by tag
func (ds *Dataset) FindElement(group, element uint16) (*Element, bool) {
	return ds.Get(Tag{Group: group, Element: element})
}

// Get returns an element by tag
func (ds *Dataset) Get(t Tag) (*Element, bool) {
	if ds == nil {
		return nil, false
	}
	elem, ok := ds.Elements[t]
	return elem, ok
}

// GetString returns the first string value of a tag
func (ds *Dataset) GetString(t Tag) (string, bool) {
	if elem, ok := ds.Get(t); ok {
		return elem.GetString()
	}
	return "", false
}

// GetInt returns the first integer value of a tag
func (ds *Dataset) GetInt(t Tag) (int, bool) {
	if elem, ok := ds.Get(t); ok {
		return elem.GetInt()
	}
	return 0, false
}

// GetFloat returns the first numeric value of a tag
func (ds *Dataset) GetFloat(t Tag) (float64, bool) {
	if elem, ok := ds.Get(t); ok {
		if fs, ok := elem.GetFloats(); ok && len(fs) > 0 {
			return fs[0], true
		}
	}
	return 0, false
}

// GetFloats returns all numeric values of a tag
func (ds *Dataset) GetFloats(t Tag) ([]float64, bool) {
	if elem, ok := ds.Get(t); ok {
		return elem.GetFloats()
	}
	return nil, false
}

// GetItems returns the items of a sequence element
func (ds *Dataset) GetItems(t Tag) ([]*Dataset, bool) {
	if elem, ok := ds.Get(t); ok {
		return elem.GetItems()
	}
	return nil, false
}

// GetStrings returns all string values from an element
func (elem *Element) GetStrings() ([]string, bool) {
	s, ok := elem.Value.([]string)
	return s, ok
}

// GetString returns the first string value from an element
func (elem *Element) GetString() (string, bool) {
	switch v := elem.Value.(type) {
	case []string:
		if len(v) == 0 {
			return "", true
		}
		return v[0], true
	case string:
		return v, true
	}
	return "", false
}

// GetInts returns a slice of ints from an element
func (elem *Element) GetInts() ([]int, bool) {
	switch v := elem.Value.(type) {
	case []int64:
		res := make([]int, len(v))
		for i, val := range v {
			res[i] = int(val)
		}
		return res, true
	case []string:
		res := make([]int, 0, len(v))
		for _, s := range v {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, false
			}
			res = append(res, n)
		}
		return res, true
	}
	return nil, false
}

// GetInt returns the first int value from an element
func (elem *Element) GetInt() (int, bool) {
	if v, ok := elem.GetInts(); ok && len(v) > 0 {
		return v[0], true
	}
	return 0, false
}

// GetFloats returns a slice of float64s from an element
func (elem *Element) GetFloats() ([]float64, bool) {
	switch v := elem.Value.(type) {
	case []float64:
		return v, true
	case []int64:
		res := make([]float64, len(v))
		for i, val := range v {
			res[i] = float64(val)
		}
		return res, true
	case []string:
		res := make([]float64, 0, len(v))
		for _, s := range v {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, false
			}
			res = append(res, f)
		}
		return res, true
	}
	return nil, false
}

// GetBytes returns the raw value of a binary element
func (elem *Element) GetBytes() ([]byte, bool) {
	b, ok := elem.Value.([]byte)
	return b, ok
}

// GetItems returns the items of a sequence element
func (elem *Element) GetItems() ([]*Dataset, bool) {
	items, ok := elem.Value.([]*Dataset)
	return items, ok
}

// GetEncapsulated returns encapsulated pixel data from an element
func (elem *Element) GetEncapsulated() (*EncapsulatedPixelData, bool) {
	pd, ok := elem.Value.(*EncapsulatedPixelData)
	return pd, ok
}
