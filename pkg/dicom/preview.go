package dicom

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"github.com/jpfielding/dicomview.go/pkg/util"
)

// Preview is one displayable frame with its metadata. The RGBA pixels and raw
// samples are excluded from JSON.
type Preview struct {
	ID string `json:"id"`
	ImageMetadata

	Pixels  []byte        `json:"-"` // RGBA, row-major
	Samples *PixelSamples `json:"-"`
}

// Image wraps the rendered pixels without copying
func (p *Preview) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    p.Pixels,
		Stride: p.Width * 4,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}

// PixelValue returns the raw samples under (x, y) for hover readout
func (p *Preview) PixelValue(x, y int) ([]uint16, bool) {
	if p.Samples == nil {
		return nil, false
	}
	v := p.Samples.At(x, y)
	return v, v != nil
}

// Load reads a DICOM file and builds its preview
func Load(path string, opts ...ReadOption) (*Preview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return LoadReader(f, opts...)
}

// LoadReader builds a preview from a DICOM stream
func LoadReader(r io.Reader, opts ...ReadOption) (*Preview, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}
	return LoadBytes(data, opts...)
}

// LoadBytes builds a preview from an in-memory DICOM file:
// parse, extract frame 0, project metadata and render with the default window
func LoadBytes(data []byte, opts ...ReadOption) (*Preview, error) {
	ds, err := ReadBuffer(data, opts...)
	if err != nil {
		return nil, err
	}
	px, err := ExtractPixels(ds)
	if err != nil {
		return nil, err
	}
	md := Project(ds, px)
	img := Render(px, md.WindowCenter, md.WindowWidth)

	p := &Preview{
		ID:            util.ContentID(data),
		ImageMetadata: md,
		Pixels:        img.Pix,
		Samples:       px,
	}
	slog.Debug("built preview",
		slog.String("id", p.ID),
		slog.Int("width", p.Width),
		slog.Int("height", p.Height),
		slog.Bool("blank", px.Blank))
	return p, nil
}
