// Package pipeline runs transforms against stored images: fetch the source,
// decode it, run the engine and, for jobs, emit the output back to storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/dunamismax/pixelsmith/internal/engine"
	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/dunamismax/pixelsmith/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrInvalidKind = errors.New("invalid job kind")

// Source is a fetched and decoded source image.
type Source struct {
	FileName string
	Key      string
	Size     int64
	Info     raster.Info
	Raster   *raster.Raster
}

type Request struct {
	JobID    string
	Kind     string
	FileName string
	Resize   *domain.ResizeRequest
	Compress *domain.CompressRequest
}

type Processor struct {
	store      storage.Store
	resizer    *engine.Resizer
	compressor *engine.Compressor
	maxPixels  int
	tracer     trace.Tracer
}

func NewProcessor(store storage.Store, encoder engine.Encoder, maxPixels int) (*Processor, error) {
	if store == nil {
		return nil, errors.New("storage is required")
	}
	if encoder == nil {
		return nil, errors.New("encoder is required")
	}
	return &Processor{
		store:      store,
		resizer:    engine.NewResizer(encoder),
		compressor: engine.NewCompressor(encoder),
		maxPixels:  maxPixels,
		tracer:     otel.Tracer("pixelsmith/pipeline"),
	}, nil
}

// Load fetches and decodes the stored source named fileName.
func (p *Processor) Load(ctx context.Context, fileName string) (Source, error) {
	key, err := storage.SourceKey(fileName)
	if err != nil {
		return Source{}, err
	}

	data, err := p.store.Get(ctx, key)
	if err != nil {
		return Source{}, fmt.Errorf("fetch stage: %w", err)
	}

	img, info, err := raster.Decode(data, p.maxPixels)
	if err != nil {
		return Source{}, err
	}

	return Source{
		FileName: fileName,
		Key:      key,
		Size:     int64(len(data)),
		Info:     info,
		Raster:   img,
	}, nil
}

func (p *Processor) Resize(ctx context.Context, src Source, req domain.ResizeRequest) (engine.ResizeResult, error) {
	er, err := req.Engine(src.FileName)
	if err != nil {
		return engine.ResizeResult{}, err
	}
	er.MaxPixels = p.maxPixels

	ctx, span := p.tracer.Start(ctx, "engine.resize")
	defer span.End()
	span.SetAttributes(
		attribute.String("image.file_name", src.FileName),
		attribute.String("resize.algorithm", er.Algorithm.String()),
		attribute.String("resize.format", er.Format.String()),
		attribute.Int("resize.quality", er.Quality),
	)

	res, err := p.resizer.Resize(ctx, src.Raster, er)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resize failed")
		return engine.ResizeResult{}, err
	}
	span.SetAttributes(
		attribute.Int("resize.width", res.Width),
		attribute.Int("resize.height", res.Height),
		attribute.Int("resize.bytes", len(res.Data)),
	)
	return res, nil
}

func (p *Processor) Compress(ctx context.Context, src Source, req domain.CompressRequest) (engine.CompressResult, error) {
	ec, err := req.Engine(src.FileName, src.Size)
	if err != nil {
		return engine.CompressResult{}, err
	}

	ctx, span := p.tracer.Start(ctx, "engine.compress")
	defer span.End()
	span.SetAttributes(
		attribute.String("image.file_name", src.FileName),
		attribute.String("compress.format", ec.Format.String()),
		attribute.String("compress.method", ec.Options.Method.String()),
		attribute.Int("compress.quality", ec.Options.Quality),
	)
	if ec.TargetSizeKB != nil {
		span.SetAttributes(attribute.Int("compress.target_kb", *ec.TargetSizeKB))
	}

	res, err := p.compressor.Compress(ctx, src.Raster, ec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compress failed")
		return engine.CompressResult{}, err
	}
	span.SetAttributes(
		attribute.String("compress.label", res.Label),
		attribute.Int("compress.iterations", res.Iterations),
		attribute.Bool("compress.target_met", res.TargetMet),
		attribute.Int64("compress.bytes", res.CompressedSize),
	)
	return res, nil
}

// Output describes an emitted job result.
type Output struct {
	Key          string
	MimeType     string
	Format       codec.Format
	Width        int
	Height       int
	SourceBytes  int64
	Bytes        int64
	Ratio        float64
	Label        string
	Iterations   int
	SourcePixels int64
}

// Process runs one job: fetch, transform, emit.
func (p *Processor) Process(ctx context.Context, req Request) (Output, error) {
	if strings.TrimSpace(req.JobID) == "" {
		return Output{}, errors.New("job_id is required")
	}

	src, err := p.Load(ctx, req.FileName)
	if err != nil {
		return Output{}, err
	}

	var (
		out  Output
		data []byte
	)
	switch req.Kind {
	case domain.JobKindResize:
		if req.Resize == nil {
			return Output{}, fmt.Errorf("%w: resize settings missing", ErrInvalidKind)
		}
		res, err := p.Resize(ctx, src, *req.Resize)
		if err != nil {
			return Output{}, fmt.Errorf("transform stage: %w", err)
		}
		data = res.Data
		out = Output{
			MimeType: res.MimeType,
			Format:   res.Format,
			Width:    res.Width,
			Height:   res.Height,
			Label:    engine.ResizeLabel(res.Algorithm, res.Quality),
		}
	case domain.JobKindCompress:
		if req.Compress == nil {
			return Output{}, fmt.Errorf("%w: compress settings missing", ErrInvalidKind)
		}
		res, err := p.Compress(ctx, src, *req.Compress)
		if err != nil {
			return Output{}, fmt.Errorf("transform stage: %w", err)
		}
		data = res.Data
		out = Output{
			MimeType:   res.MimeType,
			Format:     res.Format,
			Width:      res.Width,
			Height:     res.Height,
			Label:      res.Label,
			Iterations: res.Iterations,
		}
	default:
		return Output{}, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}

	key, err := storage.OutputKey(req.JobID, req.Kind, out.Format.Extension())
	if err != nil {
		return Output{}, fmt.Errorf("emit stage: %w", err)
	}
	if err := p.store.Put(ctx, key, data, out.MimeType); err != nil {
		return Output{}, fmt.Errorf("emit stage: %w", err)
	}

	out.Key = key
	out.SourceBytes = src.Size
	out.Bytes = int64(len(data))
	out.Ratio = engine.Ratio(src.Size, out.Bytes)
	out.SourcePixels = int64(src.Raster.Pixels())
	return out, nil
}
