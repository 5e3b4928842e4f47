// Утилиты ответа с ошибкой для HTTP API редактора.
//
// Основные возможности:
//   - Единый формат ответа с ошибкой.
//   - Логирование ошибок с методом, адресом и местом вызова.
//   - Подмена неизвестных ошибок универсальной.
package redactor

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	errStack "github.com/aisa-it/redactor/internal/redactor/stack-error"
	"github.com/labstack/echo/v4"
)

// Возврат определенной ошибки как есть, остальные логируются и отдаются как ErrGeneric
func EError(c echo.Context, err error) error {
	var defined apierrors.DefinedError
	if errors.As(err, &defined) {
		return EErrorDefined(c, defined)
	}
	if err == nil {
		slog.Error("Unknown API error",
			"method", c.Request().Method,
			"url", c.Request().URL,
			getCallerFile(),
		)
		return EErrorDefined(c, apierrors.ErrGeneric)
	}

	var te *errStack.TrackerError
	if errors.As(err, &te) {
		errStack.LogError(c, err)
	} else {
		slog.Error("API error",
			"err", err,
			"method", c.Request().Method,
			"url", c.Request().URL,
			getCallerFile(),
		)
	}
	er := apierrors.ErrGeneric
	er.StatusCode = http.StatusInternalServerError
	return EErrorDefined(c, er)
}

// Возврат ошибки <status>, 404 не логируется
func EErrorMsgStatus(c echo.Context, err error, status int) error {
	if status == http.StatusRequestEntityTooLarge {
		return EErrorDefined(c, apierrors.ErrEntityToLarge)
	}

	er := apierrors.ErrGeneric
	er.StatusCode = status
	if err != nil {
		if status != http.StatusNotFound {
			slog.Error("API error",
				"err", err,
				"method", c.Request().Method,
				slog.Int("status", status),
				"url", c.Request().URL,
				getCallerFile(),
			)
		}
		er.Err = err.Error()
	}
	return EErrorDefined(c, er)
}

// EErrorDefined отдает ошибку в JSON. Неизвестный статус заменяется на 400.
func EErrorDefined(c echo.Context, err apierrors.DefinedError) error {
	if http.StatusText(err.StatusCode) == "" {
		err.StatusCode = http.StatusBadRequest
	}
	return c.JSON(err.StatusCode, err)
}

func getCallerFile() slog.Attr {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return slog.Attr{}
	}
	_, file := filepath.Split(path)
	return slog.String("caller", fmt.Sprintf("%s:%d", file, no))
}
