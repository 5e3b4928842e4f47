package filestorage

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const (
	ThumbnailSize = 512
	MaxImageSize  = 5 << 20
)

var ErrNotImage = errors.New("not an image")

// DecodeImage проверяет, что данные картинка, и возвращает ее тип.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", ErrNotImage
	}
	return img, "image/" + format, nil
}

// Thumbnail уменьшает картинку до ThumbnailSize по большей стороне и кодирует в jpeg.
func Thumbnail(w io.Writer, img image.Image) error {
	thumb := resize.Thumbnail(ThumbnailSize, ThumbnailSize, img, resize.Lanczos3)
	return jpeg.Encode(w, thumb, &jpeg.Options{Quality: 85})
}
