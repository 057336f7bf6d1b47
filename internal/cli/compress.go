package cli

import (
	"context"
	"fmt"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/dunamismax/pixelsmith/internal/engine"
	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/spf13/cobra"
)

func newCompressCommand(r *runner) *cobra.Command {
	var (
		format        string
		targetKB      int
		quality       int
		maxIterations int
		req           = domain.CompressRequest{}
	)

	cmd := &cobra.Command{
		Use:   "compress <files...>",
		Short: "Re-encode images, optionally searching for a target size",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "" {
				req.OutputFormat = &format
			}
			if cmd.Flags().Changed("target-kb") {
				req.TargetSizeKB = &targetKB
			}
			req.Quality = &quality
			req.MaxIterations = &maxIterations
			if err := req.Normalize(); err != nil {
				return err
			}

			compressor := engine.NewCompressor(r.encoder)
			plan := func(name string) (codec.Format, error) {
				ec, err := req.Engine(name, 0)
				return ec.Format, err
			}
			return r.run(cmd.Context(), cmd.OutOrStdout(), "compressed", args, plan,
				func(ctx context.Context, name string, src *raster.Raster, srcBytes int64) ([]byte, string, error) {
					ec, err := req.Engine(name, srcBytes)
					if err != nil {
						return nil, "", err
					}
					res, err := compressor.Compress(ctx, src, ec)
					if err != nil {
						return nil, "", err
					}
					summary := fmt.Sprintf("%s %d -> %d bytes (%.1f%%, %d attempts)",
						res.Label, res.OriginalSize, res.CompressedSize, res.Ratio, res.Iterations)
					if !res.TargetMet {
						summary += " target not met"
					}
					return res.Data, summary, nil
				})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&quality, "quality", 100, "Starting quality 1-100")
	flags.StringVar(&req.Method, "method", "HUFFMAN", "Compression method; illegal methods fall back to the format default")
	flags.StringVar(&format, "format", "", "Output format; derived from the file name when empty")
	flags.IntVar(&targetKB, "target-kb", 0, "Search for the highest quality that fits this size")
	flags.IntVar(&maxIterations, "max-iterations", 10, "Maximum encode attempts for a target search")
	flags.BoolVar(&req.Progressive, "progressive", false, "Progressive JPEG when the backend supports it")
	flags.IntVar(&req.SmoothingFactor, "smoothing", 0, "Smoothing factor 0-100")
	return cmd
}
