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

func newResizeCommand(r *runner) *cobra.Command {
	var (
		width, height int
		scale         float64
		format        string
		quality       int
		req           = domain.ResizeRequest{}
		keepAspect    = true
	)

	cmd := &cobra.Command{
		Use:   "resize <files...>",
		Short: "Resize images to explicit dimensions or a scale",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("width") {
				req.Width = &width
			}
			if flags.Changed("height") {
				req.Height = &height
			}
			if flags.Changed("scale") {
				req.ScalePercent = &scale
			}
			if format != "" {
				req.OutputFormat = &format
			}
			req.MaintainAspectRatio = &keepAspect
			req.Quality = &quality
			if err := req.Normalize(); err != nil {
				return err
			}

			resizer := engine.NewResizer(r.encoder)
			plan := func(name string) (codec.Format, error) {
				er, err := req.Engine(name)
				return er.Format, err
			}
			return r.run(cmd.Context(), cmd.OutOrStdout(), "resized", args, plan,
				func(ctx context.Context, name string, src *raster.Raster, _ int64) ([]byte, string, error) {
					er, err := req.Engine(name)
					if err != nil {
						return nil, "", err
					}
					er.MaxPixels = r.maxPixels()
					res, err := resizer.Resize(ctx, src, er)
					if err != nil {
						return nil, "", err
					}
					summary := fmt.Sprintf("%dx%d %s %d bytes", res.Width, res.Height, engine.ResizeLabel(res.Algorithm, res.Quality), len(res.Data))
					return res.Data, summary, nil
				})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&width, "width", 0, "Target width in pixels")
	flags.IntVar(&height, "height", 0, "Target height in pixels")
	flags.Float64Var(&scale, "scale", 0, "Scale percentage, overrides width and height")
	flags.StringVar(&req.Algorithm, "algorithm", "LANCZOS", "NEAREST_NEIGHBOR, BILINEAR, BICUBIC, PROGRESSIVE_BILINEAR or LANCZOS")
	flags.BoolVar(&keepAspect, "keep-aspect", true, "Fit within the requested box instead of stretching")
	flags.StringVar(&format, "format", "", "Output format; derived from the file name when empty")
	flags.IntVar(&quality, "quality", 90, "Encoder quality 1-100")
	return cmd
}
