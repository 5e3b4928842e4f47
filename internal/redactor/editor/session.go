// Сессия редактирования одного документа: дерево, выделение, подсветка синтаксиса и диалоги.
//
// Любая правка проходит один конвейер: снимок выделения, мутация, структурные исправления,
// подсветка (если включена), восстановление выделения.
//
// Основные возможности:
//   - Команды форматирования и операции с таблицами.
//   - Ввод текста, Backspace, Enter, вставка из буфера обмена.
//   - Включение и выключение подсветки с точным восстановлением исходной разметки.
//   - Сохранение выделения на время диалогов вставки таблицы и картинки.
//   - Горячие клавиши, счетчики символов и строк.
package editor

import (
	"log/slog"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/editor/commands"
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/aisa-it/redactor/internal/redactor/editor/fixups"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
	"github.com/aisa-it/redactor/internal/redactor/editor/syntax"
)

type Session struct {
	ID         string
	DocumentID string

	root *doctree.Node
	sel  selection.Endpoints

	saved   *selection.Range
	pending commands.DialogKind

	highlight bool
	// разметка до включения подсветки и ревизия, на которой она снята
	plain    string
	plainRev int

	rev int
	log *slog.Logger
}

type Option func(s *Session)

func WithHighlighting(on bool) Option {
	return func(s *Session) {
		s.highlight = on
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

func WithDocument(id string) Option {
	return func(s *Session) {
		s.DocumentID = id
	}
}

// New открывает сессию над сохраненной разметкой. Выделения нет, только фокус.
func New(id, content string, opts ...Option) *Session {
	s := &Session{
		ID:  id,
		sel: selection.FocusOnly(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Load(content)
	return s
}

// Load заменяет содержимое документа. Ссылки, картинки и таблицы приводятся к каноническому виду.
func (s *Session) Load(content string) {
	s.root = doctree.Parse(content)
	syntax.DeannotateTree(s.root)
	fixups.ApplyOnLoad(s.root)
	s.sel = selection.FocusOnly()
	s.saved = nil
	s.pending = ""
	if s.highlight {
		s.plain = doctree.Render(s.root)
		s.plainRev = s.rev
		s.root = syntax.AnnotateTree(s.root)
	}
}

// Root живое дерево документа. Изменять его можно только через методы сессии.
func (s *Session) Root() *doctree.Node {
	return s.root
}

func (s *Session) Selection() selection.Endpoints {
	return s.sel
}

func (s *Session) SetSelection(sel selection.Endpoints) {
	s.sel = sel
}

// Select выделяет диапазон символов. Отрицательное начало снимает выделение.
func (s *Session) Select(start, end int) {
	s.sel = selection.Restore(s.root, selection.Range{Start: start, End: end})
}

// SelectionRange текущее выделение в символьных смещениях.
func (s *Session) SelectionRange() selection.Range {
	return selection.Snapshot(s.root, s.sel)
}

// Revision растет с каждой правкой содержимого.
func (s *Session) Revision() int {
	return s.rev
}

// HandleInput общий обработчик после любого ввода: исправления структуры, подсветка, выделение.
func (s *Session) HandleInput() {
	s.refresh()
	s.rev++
}

func (s *Session) refresh() {
	s.preserve(func() {
		fixups.Apply(s.root)
		if s.highlight {
			s.root = syntax.AnnotateTree(s.root)
		}
	})
}

// preserve выполняет преобразование, не меняющее текст документа, и возвращает курсор на место.
// Курсор в пустом элементе смещением не выражается и сохраняется по пути, если элемент уцелел.
func (s *Session) preserve(transform func()) {
	r := selection.Snapshot(s.root, s.sel)
	empty := emptyContainer(s.root, s.sel) != nil
	ep := s.sel.Start
	// курсор в начале текстового узла относится к правому узлу, а не к концу левого
	forward := false
	if s.sel.Valid && s.sel.Collapsed() && ep.Offset == 0 {
		n, ok := selection.Resolve(s.root, ep)
		forward = ok && n.IsText()
	}

	transform()

	if empty {
		if n, ok := selection.Resolve(s.root, ep); ok && n.IsElement() && doctree.TextLength(n) == 0 {
			s.sel = selection.Caret(ep)
			return
		}
	}
	if forward {
		if t, in, ok := doctree.LocateTextForward(s.root, r.Start); ok && t.IsText() {
			s.sel = selection.Caret(selection.Endpoint{Path: doctree.PathOf(s.root, t), Offset: in})
			return
		}
	}
	s.sel = selection.Restore(s.root, r)
}

// emptyContainer пустой элемент под схлопнутым курсором.
func emptyContainer(root *doctree.Node, sel selection.Endpoints) *doctree.Node {
	if !sel.Valid || !sel.Collapsed() {
		return nil
	}
	n, ok := selection.Resolve(root, sel.Start)
	if !ok || !n.IsElement() || n == root || doctree.TextLength(n) > 0 {
		return nil
	}
	return n
}

// edit правка содержимого. mutate может вернуть точку курсора, которая заменит восстановленное выделение.
func (s *Session) edit(mutate func(r *selection.Range) (*selection.Endpoint, error)) error {
	s.plainText()

	var direct *selection.Endpoint
	err := selection.Track(s.root, &s.sel, func(r *selection.Range) error {
		ep, err := mutate(r)
		direct = ep
		return err
	})
	if err != nil {
		s.refresh()
		return err
	}
	if direct != nil {
		s.sel = selection.Caret(*direct)
	}
	s.HandleInput()
	return nil
}

// plainText снимает подсветку перед мутацией. Она будет построена заново в HandleInput.
func (s *Session) plainText() {
	if s.highlight {
		s.preserve(func() { syntax.DeannotateTree(s.root) })
	}
}

// Exec выполняет команду форматирования. Без выделения команда применяется ко всему документу,
// кроме вставки картинки, ссылки и линии. insertTable и insertImage без адреса открывают диалог.
func (s *Session) Exec(cmd commands.Command) (commands.Result, error) {
	switch c := cmd.(type) {
	case commands.InsertTable:
		return s.openDialog(commands.TableDialog), nil
	case commands.InsertImage:
		if strings.TrimSpace(c.Image.URL) == "" {
			return s.openDialog(commands.ImageDialog), nil
		}
	}

	if !s.sel.Valid {
		switch cmd.(type) {
		case commands.InsertImage, commands.CreateLink, commands.InsertHorizontalRule:
		default:
			s.sel = selection.SelectAll(s.root)
		}
	}

	s.plainText()
	res, err := commands.Execute(s.root, &s.sel, cmd)
	if err != nil {
		s.log.Debug("format command rejected", "session", s.ID, "command", cmd.Name(), "err", err)
		s.refresh()
		return res, err
	}
	s.HandleInput()
	return res, nil
}

// SetHighlighting включает или выключает подсветку. При выключении без правок возвращается
// разметка, снятая при включении, иначе подсветка снимается с текущего дерева.
func (s *Session) SetHighlighting(on bool) {
	if on == s.highlight {
		return
	}
	if on {
		s.plain = s.Content()
		s.plainRev = s.rev
		s.highlight = true
		s.refresh()
		return
	}

	s.highlight = false
	if s.plainRev == s.rev && s.plain != "" {
		plain := s.plain
		s.preserve(func() { s.root = doctree.Parse(plain) })
	} else {
		s.preserve(func() { syntax.DeannotateTree(s.root) })
	}
	s.plain = ""
}

func (s *Session) Highlighting() bool {
	return s.highlight
}

// Content разметка для хранилища документов, без подсветки.
func (s *Session) Content() string {
	if !s.highlight {
		return doctree.Render(s.root)
	}
	c := s.root.Clone()
	syntax.DeannotateTree(c)
	return doctree.Render(c)
}

// CharacterCount число символов текста без разметки.
func (s *Session) CharacterCount() int {
	return doctree.TextLength(s.root)
}

// LineCount число строк видимого текста: блоки и переводы строк начинают новую строку.
func (s *Session) LineCount() int {
	text := strings.TrimRight(innerText(s.root), "\n")
	return strings.Count(text, "\n") + 1
}

func innerText(root *doctree.Node) string {
	var sb strings.Builder
	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}
	var walk func(n *doctree.Node)
	walk = func(n *doctree.Node) {
		switch {
		case n.IsText():
			sb.WriteString(n.Data)
		case n.IsElement("br"):
			sb.WriteByte('\n')
		default:
			block := n != root && doctree.IsBlock(n) && !n.IsElement("td", "th")
			if block {
				newline()
			}
			for _, c := range n.Children {
				walk(c)
			}
			if block {
				newline()
			}
		}
	}
	walk(root)
	return sb.String()
}
