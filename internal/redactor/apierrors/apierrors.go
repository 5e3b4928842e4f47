// Пакет содержит определения ошибок редактора, которые показываются пользователю: операции над таблицами,
// ссылки, экспорт, работа с документами и тегами. У каждой ошибки есть код, HTTP-статус и сообщение на
// английском и русском языках.
//
// Основные возможности:
//   - Коды ошибок, сгруппированные по подсистемам (1*** редактор, 2*** документы и теги, 3*** экспорт и синхронизация, 5*** общие).
//   - Соответствие ошибок HTTP-статусам.
//   - Форматирование сообщений с аргументами.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

// Is сравнивает ошибки по коду, чтобы отформатированные копии совпадали с исходной.
func (e DefinedError) Is(target error) bool {
	var t DefinedError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

var (
	// 1*** - editor errors
	ErrMergeNeedsMultipleCells = DefinedError{Code: 1001, StatusCode: http.StatusBadRequest, Err: "please select multiple cells to merge", RuErr: "Выберите несколько ячеек для объединения"}
	ErrCellCannotSplit         = DefinedError{Code: 1002, StatusCode: http.StatusBadRequest, Err: "this cell cannot be split further", RuErr: "Эту ячейку нельзя разделить"}
	ErrLinkURLRequired         = DefinedError{Code: 1003, StatusCode: http.StatusBadRequest, Err: "link URL is required", RuErr: "Необходимо указать адрес ссылки"}
	ErrUnknownCommand          = DefinedError{Code: 1004, StatusCode: http.StatusBadRequest, Err: "unknown format command %s", RuErr: "Неизвестная команда форматирования %s"}
	ErrNotInTable              = DefinedError{Code: 1005, StatusCode: http.StatusBadRequest, Err: "cursor is not inside a table", RuErr: "Курсор находится вне таблицы"}
	ErrImageURLRequired        = DefinedError{Code: 1006, StatusCode: http.StatusBadRequest, Err: "image URL is required", RuErr: "Необходимо указать адрес изображения"}
	ErrNoPendingDialog         = DefinedError{Code: 1007, StatusCode: http.StatusConflict, Err: "no dialog is waiting for confirmation", RuErr: "Нет диалога, ожидающего подтверждения"}
	ErrSessionNotFound         = DefinedError{Code: 1008, StatusCode: http.StatusNotFound, Err: "editing session not found", RuErr: "Сессия редактирования не найдена"}
	ErrUnknownTableOperation   = DefinedError{Code: 1009, StatusCode: http.StatusBadRequest, Err: "unknown table operation %s", RuErr: "Неизвестная операция с таблицей %s"}
	ErrCommandValueRequired    = DefinedError{Code: 1010, StatusCode: http.StatusBadRequest, Err: "command %s requires a value", RuErr: "Для команды %s требуется значение"}
	ErrNotAnImage              = DefinedError{Code: 1011, StatusCode: http.StatusBadRequest, Err: "please select an image file", RuErr: "Выберите файл изображения"}

	// 2*** - documents and tags
	ErrDocumentNotFound   = DefinedError{Code: 2001, StatusCode: http.StatusNotFound, Err: "document not found", RuErr: "Документ не найден"}
	ErrTagNameRequired    = DefinedError{Code: 2002, StatusCode: http.StatusBadRequest, Err: "tag name is required", RuErr: "Имя тега не может быть пустым"}
	ErrDocumentIDRequired = DefinedError{Code: 2003, StatusCode: http.StatusBadRequest, Err: "document id is required", RuErr: "Не указан идентификатор документа"}
	ErrAssetNotFound      = DefinedError{Code: 2004, StatusCode: http.StatusNotFound, Err: "image not found", RuErr: "Изображение не найдено"}

	// 3*** - export and sync
	ErrExportTimeout           = DefinedError{Code: 3001, StatusCode: http.StatusGatewayTimeout, Err: "export timed out after %s", RuErr: "Экспорт не завершился за %s"}
	ErrUnsupportedExportFormat = DefinedError{Code: 3002, StatusCode: http.StatusBadRequest, Err: "unsupported export format %s", RuErr: "Неподдерживаемый формат экспорта %s"}
	ErrRemoteSyncFailed        = DefinedError{Code: 3003, StatusCode: http.StatusServiceUnavailable, Err: "remote sync failed, working offline", RuErr: "Синхронизация недоступна, работа в автономном режиме"}
	ErrExportFailed            = DefinedError{Code: 3004, StatusCode: http.StatusInternalServerError, Err: "export failed", RuErr: "Не удалось экспортировать документ"}

	// 5*** - validation and other errors
	ErrGeneric         = DefinedError{Code: 5000, StatusCode: http.StatusBadRequest, Err: "Something went wrong. Please try again later or contact the support team.", RuErr: "Что-то пошло не так. Повторите попытку позже или обратитесь в службу поддержки"}
	ErrInvalidRequest  = DefinedError{Code: 5001, StatusCode: http.StatusBadRequest, Err: "invalid request: %s", RuErr: "Некорректный запрос: %s"}
	ErrEntityToLarge   = DefinedError{Code: 5002, StatusCode: http.StatusRequestEntityTooLarge, Err: "size exceeds the allowed limit", RuErr: "Размер превышает допустимый."}
	ErrAutosaveInvalid = DefinedError{Code: 5003, StatusCode: http.StatusBadRequest, Err: "autosave interval must be between 5 and 3600 seconds", RuErr: "Интервал автосохранения должен быть от 5 до 3600 секунд"}
)

func (e DefinedError) WithFormattedMessage(args ...interface{}) DefinedError {
	if len(args) > 0 {
		e.Err = fmt.Sprintf(e.Err, args...)
		e.RuErr = fmt.Sprintf(e.RuErr, args...)
	} else {
		e.Err = strings.Replace(e.Err, "%s", "", -1)
		e.RuErr = strings.Replace(e.RuErr, "%s", "", -1)
	}
	return e
}
