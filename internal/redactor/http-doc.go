// Документы: список, создание, изменение, удаление, теги документа, экспорт и синхронизация.
package redactor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/dao"
	"github.com/aisa-it/redactor/internal/redactor/export"
	errStack "github.com/aisa-it/redactor/internal/redactor/stack-error"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

type DocContext struct {
	echo.Context
	Doc dao.Document
}

type documentRequest struct {
	Title   *string  `json:"title" validate:"omitempty,docTitle"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags" validate:"max=20,dive,tagName"`
}

type documentTagsRequest struct {
	Tags []string `json:"tags" validate:"max=20,dive,tagName"`
}

type syncResponse struct {
	Status    dao.SyncStatus `json:"status"`
	Documents []dao.Document `json:"documents"`
}

func (s *Services) AddDocServices(g *echo.Group) {
	g.GET("documents/", s.getDocumentList)
	g.POST("documents/", s.createDocument)

	docGroup := g.Group("documents/:docId/", s.DocMiddleware)
	docGroup.GET("", s.getDocument)
	docGroup.PATCH("", s.updateDocument)
	docGroup.DELETE("", s.deleteDocument)
	docGroup.PUT("tags/", s.updateDocumentTags)
	docGroup.GET("export/:format/", s.exportDocument)

	g.GET("sync/", s.getSyncStatus)
	g.POST("sync/", s.syncDocuments)
}

func (s *Services) DocMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := uuid.FromString(c.Param("docId"))
		if err != nil {
			return EErrorDefined(c, apierrors.ErrDocumentNotFound)
		}
		doc, err := s.docs.Get(c.Request().Context(), id)
		if err != nil {
			return EError(c, err)
		}
		return next(DocContext{c, *doc})
	}
}

func (s *Services) getDocumentList(c echo.Context) error {
	docs, err := s.docs.List(c.Request().Context())
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Services) getDocument(c echo.Context) error {
	return c.JSON(http.StatusOK, c.(DocContext).Doc)
}

func (s *Services) createDocument(c echo.Context) error {
	var req documentRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}

	doc := dao.NewDocument("")
	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}
	tags := dao.NormalizeTags(req.Tags)
	doc.Tags = tags
	if err := s.saveDocument(c.Request().Context(), doc); err != nil {
		return EError(c, err)
	}

	if len(tags) > 0 {
		if err := s.tags.UpdateDocumentTags(c.Request().Context(), doc.ID, nil, tags); err != nil {
			return EError(c, err)
		}
	}
	return c.JSON(http.StatusCreated, doc)
}

func (s *Services) updateDocument(c echo.Context) error {
	doc := c.(DocContext).Doc

	var req documentRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}

	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}
	doc.Touch()
	if err := s.saveDocument(c.Request().Context(), doc); err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Services) deleteDocument(c echo.Context) error {
	doc := c.(DocContext).Doc
	ctx := c.Request().Context()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	all, err := s.docs.List(ctx)
	if err != nil {
		return EError(c, err)
	}
	if err := s.tags.UpdateDocumentTags(ctx, doc.ID, doc.Tags, nil); err != nil {
		return EError(c, err)
	}
	if _, err := s.docs.Delete(ctx, doc.ID, all); err != nil {
		return EError(c, errStack.TrackErrorStack(err).AddContext("doc_id", doc.ID))
	}
	s.sessions.dropDocument(doc.ID)
	return c.NoContent(http.StatusOK)
}

// updateDocumentTags заменяет теги документа, счетчики тегов меняются по разнице старого и нового списка.
func (s *Services) updateDocumentTags(c echo.Context) error {
	doc := c.(DocContext).Doc
	ctx := c.Request().Context()

	var req documentTagsRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}

	newTags := dao.NormalizeTags(req.Tags)
	if err := s.tags.UpdateDocumentTags(ctx, doc.ID, doc.Tags, newTags); err != nil {
		return EError(c, err)
	}
	doc.Tags = newTags
	doc.Touch()
	if err := s.saveDocument(c.Request().Context(), doc); err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Services) exportDocument(c echo.Context) error {
	doc := c.(DocContext).Doc

	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		return EError(c, err)
	}

	var buf bytes.Buffer
	if err := s.exporter.Export(c.Request().Context(), format, doc.Title, doc.Content, &buf); err != nil {
		var defined apierrors.DefinedError
		if errors.As(err, &defined) {
			return EErrorDefined(c, defined)
		}
		return EError(c, errStack.TrackErrorStack(err).AddContext("format", format).AddContext("doc_id", doc.ID))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, contentDisposition(doc.Title, format))
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

func contentDisposition(title string, format export.Format) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "document"
	}
	name += format.Ext()
	return fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name))
}

func (s *Services) getSyncStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": s.docs.State().Status(),
	})
}

// syncDocuments сливает локальные документы с удаленными. Недоступность удаленного хранилища
// не ошибка: ответ содержит локальные документы и статус offline.
func (s *Services) syncDocuments(c echo.Context) error {
	ctx := c.Request().Context()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	local, err := s.docs.List(ctx)
	if err != nil {
		return EError(c, err)
	}
	docs, err := s.docs.SyncRemote(ctx, local)
	if err != nil {
		return EError(c, errStack.TrackErrorStack(err))
	}
	return c.JSON(http.StatusOK, syncResponse{
		Status:    s.docs.State().Status(),
		Documents: docs,
	})
}

// saveDocument сохраняет документ вместе с текущим списком документов.
func (s *Services) saveDocument(ctx context.Context, doc dao.Document) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	all, err := s.docs.List(ctx)
	if err != nil {
		return err
	}
	if err := s.docs.Save(ctx, doc, all); err != nil {
		return errStack.TrackErrorStack(err).AddContext("doc_id", doc.ID)
	}
	return nil
}
