package dicom

import (
	"fmt"

	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomview.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomview.go/pkg/dicom/vr"
)

// Option configures a Dataset during construction
type Option func(*Dataset) error

// NewDataset creates a Dataset with the given options
func NewDataset(opts ...Option) (*Dataset, error) {
	ds := newDataset(transfer.ExplicitVRLittleEndian)
	for _, opt := range opts {
		if err := opt(ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// WithTransferSyntax sets the syntax the dataset is treated as read with
func WithTransferSyntax(ts transfer.Syntax) Option {
	return func(ds *Dataset) error {
		ds.TransferSyntax = ts
		return nil
	}
}

// WithElement adds a single element to the dataset, with the VR taken from
// the tag dictionary. Scalars are stored as one element slices so values
// match what the reader produces.
func WithElement(t tag.Tag, value any) Option {
	return func(ds *Dataset) error {
		v, err := normalizeValue(value)
		if err != nil {
			return fmt.Errorf("element %v: %w", t, err)
		}
		ds.Put(&Element{Tag: t, VR: tag.VROf(t), Value: v})
		return nil
	}
}

// WithSequence adds a sequence element to the dataset
func WithSequence(t tag.Tag, items ...*Dataset) Option {
	return func(ds *Dataset) error {
		ds.Put(&Element{Tag: t, VR: vr.SQ, Value: items})
		return nil
	}
}

// WithPixelData adds native pixel data bytes (already in the dataset's byte order)
func WithPixelData(data []byte) Option {
	return func(ds *Dataset) error {
		ds.Put(&Element{Tag: tag.PixelData, VR: vr.OW, Value: data})
		return nil
	}
}

// WithEncapsulatedPixelData adds compressed pixel data fragments
func WithEncapsulatedPixelData(fragments ...[]byte) Option {
	return func(ds *Dataset) error {
		ds.Put(&Element{Tag: tag.PixelData, VR: vr.OB, Value: &EncapsulatedPixelData{Fragments: fragments}})
		return nil
	}
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string, []int64, []float64, []byte, []*Dataset, *EncapsulatedPixelData:
		return v, nil
	case int:
		return []int64{int64(v)}, nil
	case uint16:
		return []int64{int64(v)}, nil
	case int64:
		return []int64{v}, nil
	case []int:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, nil
	case float64:
		return []float64{v}, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", value)
}
