// Ошибки с контекстом для логов: где ошибка прошла по стеку вызовов и к какому документу или сессии относится.
package stack_error

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/labstack/echo/v4"
)

type TrackerError struct {
	Context  map[string]any
	ErrStack []slog.Attr
	cause    error
}

// TrackErrorStack добавляет место вызова к ошибке. Уже отслеживаемая ошибка дополняется, а не оборачивается повторно.
func TrackErrorStack(err error) *TrackerError {
	var te *TrackerError
	if errors.As(err, &te) {
		te.ErrStack = append(te.ErrStack, callerAttr(err))
		return te
	}

	te = &TrackerError{
		Context:  make(map[string]any),
		ErrStack: make([]slog.Attr, 0, 2),
		cause:    err,
	}
	te.ErrStack = append(te.ErrStack, callerAttr(err))
	return te
}

// AddContext первое значение ключа побеждает.
func (te *TrackerError) AddContext(k string, v any) *TrackerError {
	if _, ok := te.Context[k]; !ok {
		te.Context[k] = v
	}
	return te
}

func (te *TrackerError) Error() string {
	if te.cause != nil {
		return te.cause.Error()
	}
	return "TrackerError"
}

func (te *TrackerError) Unwrap() error {
	return te.cause
}

// LogError пишет ошибку со всем собранным контекстом и трассой. c может быть nil для фоновых задач.
func LogError(c echo.Context, err error) {
	var te *TrackerError
	attrs := []any{slog.String("err", err.Error())}

	if errors.As(err, &te) {
		for k, v := range te.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		trace := make([]any, 0, len(te.ErrStack))
		for _, a := range te.ErrStack {
			trace = append(trace, a.Value.String())
		}
		attrs = append(attrs, slog.Any("trace", trace))
	}

	if c != nil {
		attrs = append(attrs,
			slog.String("method", c.Request().Method),
			slog.String("url", c.Request().URL.String()))
	}

	slog.Error("stack error", attrs...)
}

func callerAttr(err error) slog.Attr {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return slog.String("trace", "unknown")
	}
	_, file := filepath.Split(path)
	return slog.String("trace", fmt.Sprintf("%s:%d %s", file, no, err.Error()))
}
