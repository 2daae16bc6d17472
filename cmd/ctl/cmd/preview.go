package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpfielding/dicomview.go/pkg/dicom"
)

// NewPreviewCmd renders frame 0 of a file to an image and prints its metadata
func NewPreviewCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Render a DICOM preview image",
		Long:  "Renders frame 0 with the dataset window (or --center/--width) to png, tiff or bmp and prints the metadata record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			format, _ := cmd.Flags().GetString("format")
			maxSize, _ := cmd.Flags().GetInt("max-size")
			asJSON, _ := cmd.Flags().GetBool("json")

			format, err := imageFormat(format, out)
			if err != nil {
				return err
			}

			p, err := dicom.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}

			var img image.Image = p.Image()
			if cmd.Flags().Changed("center") || cmd.Flags().Changed("width") {
				center, _ := cmd.Flags().GetFloat64("center")
				width, _ := cmd.Flags().GetFloat64("width")
				if !cmd.Flags().Changed("center") {
					center = p.WindowCenter
				}
				if !cmd.Flags().Changed("width") {
					width = p.WindowWidth
				}
				img = dicom.Render(p.Samples, center, width)
			}
			img = fit(img, maxSize)

			if out != "" {
				if err := writeImageFile(out, img, format); err != nil {
					return err
				}
				slog.InfoContext(ctx, "wrote preview",
					slog.String("file", args[0]),
					slog.String("out", out),
					slog.String("id", p.ID))
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			fmt.Fprintf(w, "ID: %s\n", p.ID)
			fmt.Fprintf(w, "Size: %dx%d\n", p.Width, p.Height)
			fmt.Fprintf(w, "Patient: %s (%s)\n", p.PatientName, p.PatientID)
			fmt.Fprintf(w, "Study: %s %s\n", p.FormattedStudyDate(), p.FormattedStudyTime())
			fmt.Fprintf(w, "Institution: %s\n", p.Institution)
			fmt.Fprintf(w, "Modality: %s\n", p.Modality)
			fmt.Fprintf(w, "Series: %s\n", p.SeriesDescription)
			fmt.Fprintf(w, "Transfer Syntax: %s\n", p.FormattedTransferSyntax())
			fmt.Fprintf(w, "TE/TR: %g / %g\n", p.EchoTime, p.RepetitionTime)
			fmt.Fprintf(w, "Slice: location %g thickness %g\n", p.SliceLocation, p.SliceThickness)
			fmt.Fprintf(w, "Pixel Spacing: %g x %g\n", p.PixelSpacingX, p.PixelSpacingY)
			fmt.Fprintf(w, "Orientation: %s\n", p.OrientationDescription)
			fmt.Fprintf(w, "Window: center=%g width=%g\n", p.WindowCenter, p.WindowWidth)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "", "Output image path")
	pf.String("format", "", "Image format (png|tiff|bmp), default from --out extension")
	pf.Int("max-size", 0, "Downscale so neither side exceeds this many pixels (0 keeps the size)")
	pf.Float64("center", 0, "Override window center")
	pf.Float64("width", 0, "Override window width")
	pf.Bool("json", false, "Print the metadata record as JSON")
	return cmd
}

func writeImageFile(path string, img image.Image, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := encodeImage(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
