package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/dunamismax/pixelsmith/internal/storage"
)

func BenchmarkProcessorResize(b *testing.B) {
	processor := benchmarkProcessor(b)
	width := 640

	req := Request{
		Kind:     domain.JobKindResize,
		FileName: "source.png",
		Resize:   &domain.ResizeRequest{Width: &width, Algorithm: "LANCZOS", Quality: intPtr(82)},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req.JobID = fmt.Sprintf("bench-resize-%d", i)
		if _, err := processor.Process(context.Background(), req); err != nil {
			b.Fatalf("process: %v", err)
		}
	}
}

func BenchmarkProcessorCompressTarget(b *testing.B) {
	processor := benchmarkProcessor(b)
	target := 40

	req := Request{
		Kind:     domain.JobKindCompress,
		FileName: "source.png",
		Compress: &domain.CompressRequest{Quality: intPtr(100), Method: "HUFFMAN", TargetSizeKB: &target, MaxIterations: intPtr(10)},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req.JobID = fmt.Sprintf("bench-compress-%d", i)
		if _, err := processor.Process(context.Background(), req); err != nil {
			b.Fatalf("process: %v", err)
		}
	}
}

func benchmarkProcessor(b *testing.B) *Processor {
	b.Helper()
	store := &discardStore{sources: map[string][]byte{"sources/source.png": testPNG(b, 1920, 1080)}}
	processor, err := NewProcessor(store, codec.NewEncoder(), 0)
	if err != nil {
		b.Fatalf("new processor: %v", err)
	}
	return processor
}

// discardStore serves fixed sources and drops writes.
type discardStore struct {
	mu      sync.RWMutex
	sources map[string][]byte
}

func (s *discardStore) Put(context.Context, string, []byte, string) error {
	return nil
}

func (s *discardStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.sources[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (s *discardStore) Stat(_ context.Context, key string) (storage.Object, error) {
	data, err := s.Get(context.Background(), key)
	if err != nil {
		return storage.Object{}, err
	}
	return storage.Object{Key: key, Size: int64(len(data)), ContentType: "image/png"}, nil
}
