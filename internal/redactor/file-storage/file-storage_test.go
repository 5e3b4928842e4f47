package filestorage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	id := uuid.Must(uuid.NewV4())
	ok, err := storage.Exist(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = storage.LoadReader(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, storage.Save(ctx, []byte("data"), id, "image/png"))
	ok, err = storage.Exist(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	r, info, err := storage.LoadReader(ctx, id)
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	r.Close()
	assert.Equal(t, "data", string(data))
	assert.Equal(t, "image/png", info.ContentType)
	assert.EqualValues(t, 4, info.Size)

	var names []string
	require.NoError(t, storage.ListRoot(ctx, func(fi FileInfo) error {
		names = append(names, fi.Name)
		return nil
	}))
	assert.Equal(t, []string{id.String()}, names)

	require.NoError(t, storage.Delete(ctx, id))
	require.NoError(t, storage.Delete(ctx, id))
	ok, _ = storage.Exist(ctx, id)
	assert.False(t, ok)
}

func TestDecodeImage(t *testing.T) {
	_, ct, err := DecodeImage(pngBytes(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, _, err = DecodeImage([]byte("<svg/>"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestThumbnail(t *testing.T) {
	img, _, err := DecodeImage(pngBytes(t, 2048, 1024))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Thumbnail(&buf, img))
	thumb, format, err := image.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, ThumbnailSize, thumb.Bounds().Dx())
	assert.Equal(t, ThumbnailSize/2, thumb.Bounds().Dy())
}
