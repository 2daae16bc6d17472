package dicom

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomview.go/pkg/dicom/vr"
)

func TestNewDataset(t *testing.T) {
	item, err := NewDataset(WithElement(tag.ReferencedSOPInstanceUID, "1.2.3"))
	require.NoError(t, err)

	ds, err := NewDataset(
		WithElement(tag.Modality, "CT"),
		WithElement(tag.Rows, 512),
		WithElement(tag.WindowCenter, []float64{40, 400}),
		WithElement(tag.ImageType, []string{"ORIGINAL", "PRIMARY"}),
		WithSequence(tag.ReferencedImageSequence, item),
		WithPixelData([]byte{1, 0, 2, 0}),
	)
	require.NoError(t, err)
	assert.Equal(t, 6, ds.Len())

	elem, ok := ds.Get(tag.Rows)
	require.True(t, ok)
	assert.Equal(t, vr.US, elem.VR)
	assert.Equal(t, []int64{512}, elem.Value)

	center, ok := ds.GetFloat(tag.WindowCenter)
	require.True(t, ok)
	assert.Equal(t, 40.0, center)

	items, ok := ds.GetItems(tag.ReferencedImageSequence)
	require.True(t, ok)
	uid, _ := items[0].GetString(tag.ReferencedSOPInstanceUID)
	assert.Equal(t, "1.2.3", uid)

	_, err = NewDataset(WithElement(tag.Rows, struct{}{}))
	assert.Error(t, err)
}

func TestDataset_Tags(t *testing.T) {
	ds, err := NewDataset(
		WithElement(tag.PatientName, "B"),
		WithElement(tag.Modality, "CT"),
		WithElement(tag.Rows, 1),
		WithElement(tag.SOPInstanceUID, "1.2"),
	)
	require.NoError(t, err)
	assert.Equal(t, []Tag{tag.SOPInstanceUID, tag.Modality, tag.PatientName, tag.Rows}, ds.Tags())

	elem, found := ds.FindElement(0x0008, 0x0060)
	require.True(t, found)
	assert.Equal(t, tag.Modality, elem.Tag)

	var nilDS *Dataset
	_, found = nilDS.Get(tag.Rows)
	assert.False(t, found)
}

func TestElement_Accessors(t *testing.T) {
	e := &Element{Value: []string{" 12", "7"}}
	ints, ok := e.GetInts()
	require.True(t, ok)
	assert.Equal(t, []int{12, 7}, ints)
	fs, ok := e.GetFloats()
	require.True(t, ok)
	assert.Equal(t, []float64{12, 7}, fs)

	e = &Element{Value: []string{"x"}}
	_, ok = e.GetFloats()
	assert.False(t, ok)

	e = &Element{Value: []string{}}
	s, ok := e.GetString()
	assert.True(t, ok)
	assert.Equal(t, "", s)
	_, ok = e.GetInt()
	assert.False(t, ok)

	e = &Element{Value: []byte{1}}
	_, ok = e.GetString()
	assert.False(t, ok)
}

func TestDataset_String(t *testing.T) {
	item, err := NewDataset(WithElement(tag.ReferencedSOPInstanceUID, "1.2.3"))
	require.NoError(t, err)
	ds, err := NewDataset(
		WithElement(tag.PixelSpacing, []float64{0.5, 0.5}),
		WithElement(tag.ImageType, []string{"ORIGINAL", "PRIMARY"}),
		WithSequence(tag.ReferencedImageSequence, item),
		WithPixelData(make([]byte, 64)),
	)
	require.NoError(t, err)

	out := ds.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, `[(0008,0008)] CS ImageType: ORIGINAL\PRIMARY`, lines[0])
	assert.Contains(t, lines[1], "Sequence (1 items)")
	assert.Contains(t, lines[2], "> Item 1")
	assert.Contains(t, lines[3], "1.2.3")
	assert.True(t, strings.HasPrefix(lines[3], "    "))
	assert.Contains(t, lines[4], "[0.5 0.5]")
	assert.Contains(t, lines[5], "Binary Data (64 bytes)")

	var nilDS *Dataset
	assert.Equal(t, "<nil>", nilDS.String())
}

func TestDataset_MarshalJSON(t *testing.T) {
	ds, err := NewDataset(
		WithElement(tag.Modality, "MR"),
		WithEncapsulatedPixelData([]byte{1, 2}, []byte{3, 4}),
	)
	require.NoError(t, err)

	raw, err := json.Marshal(ds)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out, 2)
	assert.Equal(t, "(0008,0060)", out[0]["tag"])
	assert.Equal(t, "Modality", out[0]["name"])
	assert.Equal(t, []any{"MR"}, out[0]["value"])
	assert.Equal(t, "PixelData", out[1]["name"])
	assert.Equal(t, 2.0, out[1]["value"].(map[string]any)["fragments"])
}
