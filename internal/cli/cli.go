// Package cli implements the pixelsmith command line tool, which runs the
// resize and compress engines directly on local files.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/logging"
	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errOutputCollision = errors.New("output collision")

type globalOptions struct {
	out       string
	jobs      int
	maxMP     int
	logLevel  string
	logFormat string
}

type runner struct {
	opts    *globalOptions
	logger  *zap.Logger
	encoder *codec.Encoder
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:           "pixelsmith",
		Short:         "Resize and compress images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Config{Level: opts.logLevel, Format: opts.logFormat})
			if err != nil {
				return err
			}
			r.logger = logger
			if err := codec.Startup(); err != nil {
				return fmt.Errorf("start codec runtime: %w", err)
			}
			r.encoder = codec.NewEncoder()
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			codec.Shutdown()
			_ = r.logger.Sync()
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.out, "out", "o", ".", "Output directory")
	flags.IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "Files processed concurrently")
	flags.IntVar(&opts.maxMP, "max-megapixels", 100, "Reject sources larger than this; 0 disables the check")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	flags.StringVar(&opts.logFormat, "log-format", "console", "Log format: console or json")

	root.AddCommand(newResizeCommand(r), newCompressCommand(r))
	return root
}

// Execute runs the root command with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

type fileResult struct {
	input  string
	output string
	// summary is printed after the output path.
	summary string
}

// transformFunc turns one decoded source into encoded bytes.
type transformFunc func(ctx context.Context, name string, src *raster.Raster, srcBytes int64) ([]byte, string, error)

// planFunc resolves the output format for a source name before any file is
// read.
type planFunc func(name string) (codec.Format, error)

// run processes files concurrently and prints one line per file in input
// order. Output paths are resolved up front so two inputs never write the
// same file.
func (r *runner) run(ctx context.Context, w io.Writer, suffix string, files []string, plan planFunc, fn transformFunc) error {
	targets, err := r.outputPaths(suffix, files, plan)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.opts.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	results := make([]fileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.opts.jobs))
	for i, file := range files {
		g.Go(func() error {
			res, err := r.processFile(ctx, file, targets[i], fn)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = res
			return nil
		})
	}
	err = g.Wait()

	for _, res := range results {
		if res.output == "" {
			continue
		}
		fmt.Fprintf(w, "%s -> %s %s\n", res.input, res.output, res.summary)
	}
	return err
}

func (r *runner) outputPaths(suffix string, files []string, plan planFunc) ([]string, error) {
	targets := make([]string, len(files))
	owners := make(map[string]string, len(files))
	for i, file := range files {
		format, err := plan(filepath.Base(file))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		target := filepath.Join(r.opts.out, base+"-"+suffix+"."+format.Extension())
		if prev, ok := owners[target]; ok {
			return nil, fmt.Errorf("%w: %s and %s both write %s", errOutputCollision, prev, file, target)
		}
		owners[target] = file
		targets[i] = target
	}
	return targets, nil
}

// maxPixels is the decode and target bound from --max-megapixels.
func (r *runner) maxPixels() int {
	return r.opts.maxMP * 1_000_000
}

func (r *runner) processFile(ctx context.Context, file, target string, fn transformFunc) (fileResult, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return fileResult{}, err
	}
	src, info, err := raster.Decode(data, r.maxPixels())
	if err != nil {
		return fileResult{}, err
	}
	r.logger.Debug("decoded",
		zap.String("file", file),
		zap.String("format", info.Format),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
	)

	out, summary, err := fn(ctx, filepath.Base(file), src, int64(len(data)))
	if err != nil {
		return fileResult{}, err
	}

	if err := os.WriteFile(target, out, 0o644); err != nil {
		return fileResult{}, fmt.Errorf("write output: %w", err)
	}
	r.logger.Info("wrote", zap.String("file", target), zap.Int("bytes", len(out)))
	return fileResult{input: file, output: target, summary: summary}, nil
}
