package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpfielding/dicomview.go/pkg/dicom"
	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
)

// NewAnalyzeCmd creates the analyze cobra command
func NewAnalyzeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze DICOM file structure",
		Long:  "Parses and displays the image pixel module, display metadata and frame 0 statistics of a DICOM file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			dump, _ := cmd.Flags().GetString("dump")

			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}

			if filePath == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}

			slog.DebugContext(ctx, "analyzing", slog.String("file", filePath))
			return runAnalyze(cmd.OutOrStdout(), filePath, dump)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file path to analyze")
	pf.String("dump", "", "Output path for the raw frame 0 samples (uint16 little endian)")

	return cmd
}

// runAnalyze prints the analysis of one file
func runAnalyze(w io.Writer, filePath, dumpPath string) error {
	ds, err := dicom.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	fmt.Fprintf(w, "Total elements: %d\n\n", ds.Len())

	fmt.Fprintln(w, "=== Key Metadata ===")
	info := dicom.GetPixelInfo(ds)
	md := dicom.Project(ds, nil)
	fmt.Fprintf(w, "Modality: %s\n", md.Modality)
	fmt.Fprintf(w, "Patient: %s (%s)\n", md.PatientName, md.PatientID)
	fmt.Fprintf(w, "Study: %s %s\n", md.FormattedStudyDate(), md.FormattedStudyTime())
	fmt.Fprintf(w, "Series: %s\n", md.SeriesDescription)
	fmt.Fprintf(w, "Rows: %d\n", info.Rows)
	fmt.Fprintf(w, "Columns: %d\n", info.Columns)
	fmt.Fprintf(w, "SamplesPerPixel: %d (%s)\n", info.SamplesPerPixel, info.Photometric)
	fmt.Fprintf(w, "BitsAllocated: %d (stored %d)\n", info.BitsAllocated, info.BitsStored)
	fmt.Fprintf(w, "PixelRepresentation: %d (0=unsigned, 1=signed)\n", info.PixelRepresentation)
	fmt.Fprintf(w, "NumberOfFrames: %d\n", info.NumberOfFrames)
	syntax := dicom.GetTransferSyntax(ds)
	fmt.Fprintf(w, "TransferSyntax: %s (%s)\n", syntax, md.FormattedTransferSyntax())
	fmt.Fprintf(w, "PixelSpacing: %g x %g\n", md.PixelSpacingX, md.PixelSpacingY)
	fmt.Fprintf(w, "Orientation: %s\n", md.OrientationDescription)
	fmt.Fprintf(w, "Window: center=%g width=%g\n", md.WindowCenter, md.WindowWidth)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Pixel Data ===")
	if elem, ok := ds.Get(tag.PixelData); ok {
		if pd, ok := elem.GetEncapsulated(); ok {
			fmt.Fprintf(w, "Fragments: %d\n", len(pd.Fragments))
			if len(pd.Offsets) > 0 {
				fmt.Fprintf(w, "BOT Offsets: %v\n", pd.Offsets)
			}
		}
	}

	px, err := dicom.ExtractPixels(ds)
	if err != nil {
		fmt.Fprintf(w, "Frame 0 decode error: %v\n", err)
		return nil
	}
	if px.Blank {
		fmt.Fprintln(w, "No pixel data (blank frame)")
	}
	fmt.Fprintf(w, "Frame 0 samples: %d\n", len(px.Data))
	if len(px.Data) > 0 {
		minVal, maxVal := px.Data[0], px.Data[0]
		var sum float64
		for _, v := range px.Data {
			minVal = min(minVal, v)
			maxVal = max(maxVal, v)
			sum += float64(v)
		}
		fmt.Fprintf(w, "Pixel range: min=%d, max=%d, mean=%.2f\n", minVal, maxVal, sum/float64(len(px.Data)))
	}

	if dumpPath != "" {
		data := make([]byte, len(px.Data)*2)
		for i, v := range px.Data {
			binary.LittleEndian.PutUint16(data[i*2:], v)
		}
		fmt.Fprintf(w, "Dumping frame 0 (%d bytes) to %s\n", len(data), dumpPath)
		return os.WriteFile(dumpPath, data, 0644)
	}
	return nil
}
