package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFileName(t *testing.T) {
	for _, ok := range []string{"a.png", "3f9c-11.jpeg", "IMG_0001.JPG"} {
		assert.NoError(t, ValidateFileName(ok), ok)
	}
	for _, bad := range []string{"", "../etc/passwd", "a/b.png", ".hidden", "a..png", "a b.png", `a\b.png`} {
		assert.ErrorIs(t, ValidateFileName(bad), ErrInvalidKey, bad)
	}
}

func TestKeys(t *testing.T) {
	key, err := SourceKey("a.png")
	require.NoError(t, err)
	assert.Equal(t, "sources/a.png", key)

	key, err = OutputKey("job-1", "compress", "jpg")
	require.NoError(t, err)
	assert.Equal(t, "outputs/job-1/compress.jpg", key)

	_, err = OutputKey("../x", "compress", "jpg")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocalStoreRoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "sources/a.png", []byte("png-bytes"), "image/png"))

	data, err := s.Get(ctx, "sources/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	obj, err := s.Stat(ctx, "sources/a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(9), obj.Size)
	assert.Equal(t, "image/png", obj.ContentType)
}

func TestLocalStoreErrors(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Get(ctx, "sources/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Stat(ctx, "sources")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, key := range []string{"../escape.png", "/abs.png", "sources/../../x", "sources//a.png"} {
		assert.ErrorIs(t, s.Put(ctx, key, []byte("x"), ""), ErrInvalidKey, key)
	}
}
