package dicom

import (
	"encoding/json"
	"fmt"
	"strings"
)

// binaries longer than this print as a length
const maxInlineBytes = 20

// String returns a string representation of the Element
func (e *Element) String() string {
	// Format: [Tag] [VR] (Name) ... : Value
	tagName := e.Tag.LookupName()
	if tagName != "" {
		tagName = " " + tagName
	}

	var valStr string
	switch v := e.Value.(type) {
	case *EncapsulatedPixelData:
		valStr = fmt.Sprintf("Encapsulated Pixel Data (%d fragments)", len(v.Fragments))
	case []*Dataset:
		valStr = fmt.Sprintf("Sequence (%d items)", len(v))
	case []byte:
		if len(v) > maxInlineBytes {
			valStr = fmt.Sprintf("Binary Data (%d bytes)", len(v))
		} else {
			valStr = fmt.Sprintf("%v", v)
		}
	case []string:
		valStr = strings.Join(v, `\`)
	default:
		valStr = fmt.Sprintf("%v", v)
	}

	return fmt.Sprintf("[%s] %s%s: %s", e.Tag, e.VR, tagName, valStr)
}

// MarshalJSON returns a JSON representation of the Element
func (e *Element) MarshalJSON() ([]byte, error) {
	var value any = e.Value
	switch v := e.Value.(type) {
	case *EncapsulatedPixelData:
		value = map[string]any{"offsets": v.Offsets, "fragments": len(v.Fragments)}
	case []byte:
		if len(v) > maxInlineBytes {
			value = map[string]int{"length": len(v)}
		}
	}
	return json.Marshal(&struct {
		Tag   string `json:"tag"`
		Name  string `json:"name,omitempty"`
		VR    string `json:"vr"`
		Value any    `json:"value"`
	}{
		Tag:   e.Tag.String(),
		Name:  e.Tag.LookupName(),
		VR:    string(e.VR),
		Value: value,
	})
}

// String returns a string representation of the Dataset, one element per
// line in tag order with sequence items indented
func (ds *Dataset) String() string {
	if ds == nil {
		return "<nil>"
	}
	var b strings.Builder
	ds.write(&b, "")
	return b.String()
}

func (ds *Dataset) write(b *strings.Builder, indent string) {
	for _, k := range ds.Tags() {
		elem := ds.Elements[k]
		b.WriteString(indent)
		b.WriteString(elem.String())
		b.WriteString("\n")
		if items, ok := elem.GetItems(); ok {
			for i, item := range items {
				fmt.Fprintf(b, "%s  > Item %d\n", indent, i+1)
				item.write(b, indent+"    ")
			}
		}
	}
}

// MarshalJSON returns a JSON representation of the Dataset
// It returns a sorted array of Elements instead of a Map
func (ds *Dataset) MarshalJSON() ([]byte, error) {
	elements := []*Element{}
	for _, k := range ds.Tags() {
		elements = append(elements, ds.Elements[k])
	}
	return json.Marshal(elements)
}
