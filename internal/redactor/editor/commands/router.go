package commands

import (
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
)

type DialogKind string

const (
	TableDialog DialogKind = "table"
	ImageDialog DialogKind = "image"
)

// DialogRequest просьба к внешнему диалогу собрать параметры. Выделение до подтверждения
// должно быть сохранено вызывающей стороной.
type DialogRequest struct {
	Kind DialogKind `json:"kind"`
}

type Result struct {
	Dialog *DialogRequest `json:"dialog,omitempty"`
}

type state struct {
	root *doctree.Node
	rng  selection.Range
}

// Execute применяет команду к дереву. Выделение переводится в смещения до мутации
// и восстанавливается после нее.
func Execute(root *doctree.Node, sel *selection.Endpoints, cmd Command) (Result, error) {
	if _, ok := cmd.(InsertTable); ok {
		return Result{Dialog: &DialogRequest{Kind: TableDialog}}, nil
	}

	err := selection.Track(root, sel, func(r *selection.Range) error {
		s := &state{root: root, rng: *r}
		if err := cmd.apply(s); err != nil {
			return err
		}
		*r = s.rng
		return nil
	})
	return Result{}, err
}

func (s *state) hasSelection() bool {
	return s.rng.Start >= 0
}

func (s *state) collapsed() bool {
	return !s.hasSelection() || s.rng.Start == s.rng.End
}

// span диапазон для команд, которым нужно непустое выделение. Без выделения команда
// работает по всему документу, и выделение после команды охватывает весь документ.
func (s *state) span() (int, int) {
	if s.collapsed() {
		s.rng = selection.Range{Start: 0, End: doctree.TextLength(s.root)}
	}
	return s.rng.Start, s.rng.End
}

// caret точка вставки для команд, не требующих выделения. Без выделения - конец документа.
func (s *state) caret() int {
	if !s.hasSelection() {
		return doctree.TextLength(s.root)
	}
	return s.rng.Start
}

// phrasing текстовый узел, в который можно вставлять inline-разметку.
// Пробелы между строками таблицы или пунктами списка к тексту документа не относятся.
func phrasing(t *doctree.Node) bool {
	p := t.Parent
	return p != nil && !p.IsElement("table", "thead", "tbody", "tfoot", "tr", "ul", "ol", "colgroup")
}

func (s *state) textsInSpan() []*doctree.Node {
	start, end := s.span()
	var res []*doctree.Node
	for _, t := range doctree.TextNodesInRange(s.root, start, end) {
		if phrasing(t) {
			res = append(res, t)
		}
	}
	return res
}

// blockTexts текстовые узлы, определяющие затронутые блоки. Для схлопнутого курсора
// это узел под курсором, без выделения - весь документ.
func (s *state) blockTexts() []*doctree.Node {
	if !s.hasSelection() {
		return filterPhrasing(doctree.TextNodes(s.root))
	}
	if s.rng.Start == s.rng.End {
		if t, _, ok := doctree.LocateText(s.root, s.rng.Start); ok && phrasing(t) {
			return []*doctree.Node{t}
		}
		return nil
	}
	var res []*doctree.Node
	acc := 0
	for _, t := range doctree.TextNodes(s.root) {
		l := doctree.RuneLen(t.Data)
		if acc+l > s.rng.Start && acc < s.rng.End && phrasing(t) {
			res = append(res, t)
		}
		acc += l
	}
	return res
}

func filterPhrasing(nodes []*doctree.Node) []*doctree.Node {
	var res []*doctree.Node
	for _, t := range nodes {
		if phrasing(t) {
			res = append(res, t)
		}
	}
	return res
}

// blocks блоки, затронутые выделением, в порядке документа. Inline-содержимое корня
// сначала оборачивается в абзац. В пустом документе создается пустой абзац.
func (s *state) blocks() []*doctree.Node {
	var res []*doctree.Node
	seen := make(map[*doctree.Node]bool)
	for _, t := range s.blockTexts() {
		b := doctree.EnsureBlock(s.root, t)
		if b == nil || seen[b] {
			continue
		}
		seen[b] = true
		res = append(res, b)
	}
	if len(res) == 0 && len(doctree.TextNodes(s.root)) == 0 {
		p := doctree.NewElement("p")
		p.AppendChild(doctree.NewElement("br"))
		s.root.AppendChild(p)
		res = append(res, p)
	}
	return res
}

// enclosing ближайший элемент, содержащий все выделенные текстовые узлы.
func (s *state) enclosing(texts []*doctree.Node) *doctree.Node {
	if len(texts) == 0 {
		if t, _, ok := doctree.LocateText(s.root, s.caret()); ok {
			return t.Parent
		}
		return s.root
	}
	anc := doctree.CommonAncestor(texts...)
	if anc == nil {
		return s.root
	}
	return anc.ParentElement()
}

// nearestBlock ближайший блок над общим предком выделения, как его видит formatBlock.
func (s *state) nearestBlock() *doctree.Node {
	texts := s.blockTexts()
	var anc *doctree.Node
	if len(texts) > 0 {
		anc = doctree.CommonAncestor(texts...)
	}
	for cur := anc; cur != nil && cur != s.root; cur = cur.Parent {
		if cur.IsElement("p", "h1", "h2", "h3", "h4", "h5", "h6", "div", "blockquote", "pre") {
			return cur
		}
	}
	return nil
}
