package editor

import (
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/editor/commands"
)

// Shortcut результат обработки сочетания клавиш. Handled означает, что стандартное поведение
// браузера для сочетания нужно отменить.
type Shortcut struct {
	Handled bool   `json:"handled"`
	Save    bool   `json:"save,omitempty"`
	Command string `json:"command,omitempty"`
}

var shortcutCommands = map[string]commands.Command{
	"b": commands.Bold{},
	"i": commands.Italic{},
	"u": commands.Underline{},
	"l": commands.InsertUnorderedList{},
	"o": commands.InsertOrderedList{},
}

// HandleShortcut обрабатывает Ctrl/Cmd+B/I/U/L/O как команды и Ctrl/Cmd+S как сохранение.
// Само сохранение выполняет вызывающая сторона.
func (s *Session) HandleShortcut(key string, ctrl, meta bool) (Shortcut, error) {
	if !ctrl && !meta {
		return Shortcut{}, nil
	}
	key = strings.ToLower(key)
	if key == "s" {
		return Shortcut{Handled: true, Save: true}, nil
	}
	cmd, ok := shortcutCommands[key]
	if !ok {
		return Shortcut{}, nil
	}
	if _, err := s.Exec(cmd); err != nil {
		return Shortcut{Handled: true, Command: cmd.Name()}, err
	}
	return Shortcut{Handled: true, Command: cmd.Name()}, nil
}
