package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/dunamismax/pixelsmith/internal/id"
	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/dunamismax/pixelsmith/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

func uploadExtension(original string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(original), "."))
	if !extPattern.MatchString(ext) {
		return "png"
	}
	return ext
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload: " + err.Error()})
		return
	}

	info, err := raster.DecodeConfig(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	imageID := id.New()
	fileName := imageID + "." + uploadExtension(header.Filename)
	key, err := storage.SourceKey(fileName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.storage.Put(r.Context(), key, data, http.DetectContentType(data)); err != nil {
		s.writeError(w, r, err)
		return
	}

	out := domain.ImageInfo{
		ID:            imageID,
		FileName:      fileName,
		Width:         info.Width,
		Height:        info.Height,
		Format:        info.Format,
		FileSizeBytes: int64(len(data)),
	}
	s.infoCache.Add(fileName, out)
	s.logger.Info("image stored",
		zap.String("image_id", imageID),
		zap.String("file_name", fileName),
		zap.String("format", info.Format),
		zap.Int("bytes", len(data)),
	)
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	key, err := storage.SourceKey(chi.URLParam(r, "fileName"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.storage.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImageInfo(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")
	if info, ok := s.infoCache.Get(fileName); ok {
		writeJSON(w, http.StatusOK, info)
		return
	}

	key, err := storage.SourceKey(fileName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.storage.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cfg, err := raster.DecodeConfig(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	info := domain.ImageInfo{
		ID:            strings.TrimSuffix(fileName, path.Ext(fileName)),
		FileName:      fileName,
		Width:         cfg.Width,
		Height:        cfg.Height,
		Format:        cfg.Format,
		FileSizeBytes: int64(len(data)),
	}
	s.infoCache.Add(fileName, info)
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req domain.ResizeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Normalize(); err != nil {
		s.writeError(w, r, err)
		return
	}

	src, err := s.processor.Load(r.Context(), chi.URLParam(r, "fileName"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.processor.Resize(r.Context(), src, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.ResizeResponse{
		Base64:    base64.StdEncoding.EncodeToString(res.Data),
		MimeType:  res.MimeType,
		Width:     res.Width,
		Height:    res.Height,
		Algorithm: res.Algorithm.String(),
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	var req domain.CompressRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Normalize(); err != nil {
		s.writeError(w, r, err)
		return
	}

	src, err := s.processor.Load(r.Context(), chi.URLParam(r, "fileName"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.processor.Compress(r.Context(), src, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.encodeAttempts.WithLabelValues(res.Format.String()).Observe(float64(res.Iterations))

	writeJSON(w, http.StatusOK, domain.CompressResponse{
		Base64:              base64.StdEncoding.EncodeToString(res.Data),
		MimeType:            res.MimeType,
		Width:               res.Width,
		Height:              res.Height,
		OriginalSizeBytes:   res.OriginalSize,
		CompressedSizeBytes: res.CompressedSize,
		CompressionRatio:    res.Ratio,
		Method:              res.Label,
		Quality:             res.Quality,
		Iterations:          res.Iterations,
		TargetMet:           res.TargetMet,
	})
}
