package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jpfielding/dicomview.go/pkg/dicom"
	"github.com/jpfielding/dicomview.go/pkg/logging"
	"github.com/jpfielding/dicomview.go/pkg/util"
)

// batchResult is one JSON line of batch output
type batchResult struct {
	File    string         `json:"file"`
	MD5     string         `json:"md5,omitempty"`
	Image   string         `json:"image,omitempty"`
	Error   string         `json:"error,omitempty"`
	Preview *dicom.Preview `json:"preview,omitempty"`
}

// NewBatchCmd previews many files concurrently
func NewBatchCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <files...>",
		Short: "Render previews for many DICOM files",
		Long:  "Loads files concurrently and prints one JSON line per file; a failing file is reported and does not stop the others.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			outDir, _ := cmd.Flags().GetString("out-dir")
			format, _ := cmd.Flags().GetString("format")
			maxSize, _ := cmd.Flags().GetInt("max-size")

			format, err := imageFormat(format, "")
			if err != nil {
				return err
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("creating %s: %w", outDir, err)
				}
			}
			return runBatch(ctx, cmd.OutOrStdout(), args, batchOptions{
				workers: workers,
				outDir:  outDir,
				format:  format,
				maxSize: maxSize,
			})
		},
	}

	pf := cmd.PersistentFlags()
	pf.IntP("workers", "w", runtime.NumCPU(), "Number of files processed concurrently")
	pf.String("out-dir", "", "Directory for rendered previews (omit to skip writing images)")
	pf.String("format", "png", "Image format (png|tiff|bmp)")
	pf.Int("max-size", 0, "Downscale so neither side exceeds this many pixels (0 keeps the size)")
	return cmd
}

type batchOptions struct {
	workers int
	outDir  string
	format  string
	maxSize int
}

// runBatch processes files with at most opts.workers in flight. It only
// fails when the context is cancelled; per-file errors are written as results.
func runBatch(ctx context.Context, w io.Writer, files []string, opts batchOptions) error {
	var mu sync.Mutex
	enc := json.NewEncoder(w)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.workers))
	for _, file := range files {
		if gctx.Err() != nil {
			break
		}
		file := file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := previewOne(logging.AppendCtx(gctx, slog.String("file", file)), file, opts)

			mu.Lock()
			defer mu.Unlock()
			return enc.Encode(res)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func previewOne(ctx context.Context, file string, opts batchOptions) batchResult {
	res := batchResult{File: file}
	data, err := os.ReadFile(file)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.MD5 = util.Md5ThenHex(data)

	p, err := dicom.LoadBytes(data)
	if err != nil {
		slog.WarnContext(ctx, "preview failed", slog.String("error", err.Error()))
		res.Error = err.Error()
		return res
	}
	res.Preview = p

	if opts.outDir != "" {
		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		res.Image = filepath.Join(opts.outDir, fmt.Sprintf("%s_%s.%s", base, p.ID[:8], opts.format))
		if err := writeImageFile(res.Image, fit(p.Image(), opts.maxSize), opts.format); err != nil {
			res.Error = err.Error()
			res.Image = ""
		}
	}
	slog.DebugContext(ctx, "preview done", slog.String("id", p.ID))
	return res
}
