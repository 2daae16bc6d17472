package dicom

import (
	"image"
)

// Render maps samples through a linear window to 8-bit RGBA. Gray samples
// are replicated to R, G and B; color samples are windowed per channel.
// A width of zero or less is treated as 1.
func Render(px *PixelSamples, center, width float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, px.Width, px.Height))
	if width <= 0 {
		width = 1
	}
	low := center - width/2

	lut := func(s uint16) uint8 {
		v := (float64(s) - low) / width * 255
		switch {
		case v <= 0:
			return 0
		case v >= 255:
			return 255
		}
		return uint8(v)
	}

	spp := px.SamplesPerPixel
	if spp < 1 {
		spp = 1
	}
	numPixels := px.Width * px.Height
	for p := 0; p < numPixels && (p+1)*spp <= len(px.Data); p++ {
		o := p * 4
		if spp == 3 {
			img.Pix[o] = lut(px.Data[p*3])
			img.Pix[o+1] = lut(px.Data[p*3+1])
			img.Pix[o+2] = lut(px.Data[p*3+2])
		} else {
			g := lut(px.Data[p*spp])
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = g, g, g
		}
		img.Pix[o+3] = 0xFF
	}
	return img
}
