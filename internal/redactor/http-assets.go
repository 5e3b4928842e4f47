// Картинки документов: загрузка, отдача оригинала и миниатюры.
package redactor

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/dao"
	filestorage "github.com/aisa-it/redactor/internal/redactor/file-storage"
	errStack "github.com/aisa-it/redactor/internal/redactor/stack-error"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

type AssetResponse struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	ContentType  string    `json:"content_type"`
	Size         int       `json:"size"`
}

func (s *Services) AddAssetServices(g *echo.Group) {
	g.POST("assets/", s.uploadAsset)
	g.GET("assets/:assetId/", s.getAsset)
	g.GET("assets/:assetId/thumbnail/", s.getAssetThumbnail)
}

func assetURL(id uuid.UUID) string {
	return "/api/assets/" + id.String() + "/"
}

// uploadAsset принимает картинку из поля формы file. Файлы, которые не декодируются как картинка, отклоняются.
func (s *Services) uploadAsset(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if fileHeader.Size > filestorage.MaxImageSize {
		return EErrorDefined(c, apierrors.ErrEntityToLarge)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return EError(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, filestorage.MaxImageSize+1))
	if err != nil {
		return EError(c, err)
	}
	if len(data) > filestorage.MaxImageSize {
		return EErrorDefined(c, apierrors.ErrEntityToLarge)
	}

	_, contentType, err := filestorage.DecodeImage(data)
	if err != nil {
		return EErrorDefined(c, apierrors.ErrNotAnImage)
	}

	id := dao.GenUUID()
	if err := s.storage.Save(c.Request().Context(), data, id, contentType); err != nil {
		return EError(c, errStack.TrackErrorStack(err).AddContext("asset", id))
	}

	return c.JSON(http.StatusCreated, AssetResponse{
		ID:           id,
		URL:          assetURL(id),
		ThumbnailURL: assetURL(id) + "thumbnail/",
		ContentType:  contentType,
		Size:         len(data),
	})
}

func (s *Services) loadAsset(c echo.Context) (io.ReadCloser, *filestorage.FileInfo, error) {
	id, err := uuid.FromString(c.Param("assetId"))
	if err != nil {
		return nil, nil, apierrors.ErrAssetNotFound
	}
	r, info, err := s.storage.LoadReader(c.Request().Context(), id)
	if errors.Is(err, filestorage.ErrNotFound) {
		return nil, nil, apierrors.ErrAssetNotFound
	}
	return r, info, err
}

func (s *Services) getAsset(c echo.Context) error {
	r, info, err := s.loadAsset(c)
	if err != nil {
		return EError(c, err)
	}
	defer r.Close()

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Stream(http.StatusOK, info.ContentType, r)
}

func (s *Services) getAssetThumbnail(c echo.Context) error {
	r, _, err := s.loadAsset(c)
	if err != nil {
		return EError(c, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return EError(c, err)
	}
	img, _, err := filestorage.DecodeImage(data)
	if err != nil {
		return EErrorDefined(c, apierrors.ErrNotAnImage)
	}

	var buf bytes.Buffer
	if err := filestorage.Thumbnail(&buf, img); err != nil {
		return EError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, "image/jpeg", buf.Bytes())
}
