package redactor

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type tagRequest struct {
	Name  string `json:"name" validate:"tagName"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func (s *Services) AddTagServices(g *echo.Group) {
	g.GET("tags/", s.getTagList)
	g.POST("tags/", s.createTag)
	g.DELETE("tags/:name/", s.deleteTag)
}

func (s *Services) getTagList(c echo.Context) error {
	tags, err := s.tags.ListTags(c.Request().Context())
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, tags)
}

func (s *Services) createTag(c echo.Context) error {
	var req tagRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}

	tag, err := s.tags.CreateTag(c.Request().Context(), req.Name, req.Color)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, tag)
}

func (s *Services) deleteTag(c echo.Context) error {
	if err := s.tags.DeleteTag(c.Request().Context(), c.Param("name")); err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusOK)
}
