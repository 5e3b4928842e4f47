package editor

import (
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/editor/commands"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
	"github.com/aisa-it/redactor/internal/redactor/editor/table"
)

// SaveSelection запоминает выделение перед открытием диалога: пока диалог открыт, фокус уходит из редактора.
func (s *Session) SaveSelection() {
	r := selection.Snapshot(s.root, s.sel)
	s.saved = &r
}

func (s *Session) restoreSaved() {
	if s.saved != nil {
		s.sel = selection.Restore(s.root, *s.saved)
		s.saved = nil
	}
}

func (s *Session) openDialog(kind commands.DialogKind) commands.Result {
	s.SaveSelection()
	s.pending = kind
	return commands.Result{Dialog: &commands.DialogRequest{Kind: kind}}
}

// PendingDialog диалог, ожидающий подтверждения.
func (s *Session) PendingDialog() (commands.DialogKind, bool) {
	return s.pending, s.pending != ""
}

// CancelDialog закрывает диалог без вставки и возвращает сохраненное выделение.
func (s *Session) CancelDialog() {
	s.pending = ""
	s.restoreSaved()
}

// InsertTable вставляет таблицу по параметрам диалога в сохраненную позицию курсора.
func (s *Session) InsertTable(rows, cols int, headerRow, headerCol bool) {
	s.restoreSaved()
	s.pending = ""
	s.plainText()
	table.Insert(s.root, &s.sel, rows, cols, headerRow, headerCol)
	s.log.Debug("table inserted", "session", s.ID, "rows", rows, "cols", cols)
	s.HandleInput()
}

// InsertImage вставляет картинку по параметрам диалога в сохраненную позицию курсора.
func (s *Session) InsertImage(spec commands.ImageSpec) error {
	if strings.TrimSpace(spec.URL) == "" {
		return apierrors.ErrImageURLRequired
	}
	s.restoreSaved()
	s.pending = ""
	_, err := s.Exec(commands.InsertImage{Image: spec})
	return err
}

// Table выполняет операцию над таблицей под курсором.
func (s *Session) Table(op table.Operation) error {
	s.plainText()
	if err := table.Apply(s.root, &s.sel, op); err != nil {
		s.refresh()
		return err
	}
	s.HandleInput()
	return nil
}
