package redactor

import (
	"net/http"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/config"
	"github.com/aisa-it/redactor/internal/redactor/cronmanager"
	"github.com/aisa-it/redactor/internal/redactor/notifications"
	"github.com/labstack/echo/v4"
)

// AutosaveSettings настройки автосохранения, интервал в секундах.
type AutosaveSettings struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval"`
}

func (s *Services) AddSettingsServices(g *echo.Group) {
	g.GET("settings/autosave/", s.getAutosaveSettings)
	g.PUT("settings/autosave/", s.updateAutosaveSettings)
}

func (s *Services) getAutosaveSettings(c echo.Context) error {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return c.JSON(http.StatusOK, s.settings)
}

// updateAutosaveSettings меняет расписание автосохранения без перезапуска сервера.
func (s *Services) updateAutosaveSettings(c echo.Context) error {
	var req AutosaveSettings
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if req.Interval < config.MinAutosaveInterval || req.Interval > config.MaxAutosaveInterval {
		return EErrorDefined(c, apierrors.ErrAutosaveInvalid)
	}

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	if req.Enabled {
		if err := s.cron.Reschedule(autosaveJob, cronmanager.Every(req.Interval)); err != nil {
			return EError(c, err)
		}
	} else {
		s.cron.RemoveJob(autosaveJob)
	}
	s.settings = req
	s.hub.Broadcast(notifications.TypeSettings, req)
	return c.JSON(http.StatusOK, req)
}
