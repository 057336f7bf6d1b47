// Package storage persists source images and transform outputs as keyed
// objects, either on the local filesystem or in a MinIO bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

const (
	sourcePrefix = "sources/"
	outputPrefix = "outputs/"
)

type Object struct {
	Key         string
	Size        int64
	ContentType string
}

type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (Object, error)
}

var fileNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,254}$`)

// ValidateFileName accepts a single path token with no separators and no
// parent references.
func ValidateFileName(name string) error {
	if !fileNamePattern.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	return nil
}

// SourceKey is the object key of an uploaded source image.
func SourceKey(fileName string) (string, error) {
	if err := ValidateFileName(fileName); err != nil {
		return "", err
	}
	return sourcePrefix + fileName, nil
}

// OutputKey is the object key of a job output, e.g. outputs/<job>/compress.jpg.
func OutputKey(jobID, kind, ext string) (string, error) {
	for _, part := range []string{jobID, kind, ext} {
		if err := ValidateFileName(part); err != nil {
			return "", err
		}
	}
	return outputPrefix + jobID + "/" + kind + "." + ext, nil
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if err := ValidateFileName(part); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
