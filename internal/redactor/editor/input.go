package editor

import (
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/aisa-it/redactor/internal/redactor/editor/fixups"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
	policy "github.com/aisa-it/redactor/internal/redactor/redactor-policy"
)

const (
	MimeHTML = "text/html"
	MimeText = "text/plain"
)

// InsertText печатает текст в позицию курсора, заменяя выделение. Без выделения текст дописывается в конец.
func (s *Session) InsertText(text string) {
	if text == "" {
		return
	}
	s.insert([]*doctree.Node{doctree.NewText(text)})
}

// Paste вставляет содержимое буфера обмена. HTML очищается политикой редактора, с него снимаются
// цвета и цветовые классы, ссылки открываются в новой вкладке. Остальные типы вставляются как текст.
func (s *Session) Paste(mime, data string) {
	if data == "" {
		return
	}
	if !strings.HasPrefix(strings.ToLower(mime), MimeHTML) {
		s.InsertText(data)
		return
	}

	frag := doctree.Parse(policy.EditorPolicy.Sanitize(data))
	fixups.CleanPasted(frag)
	nodes := append([]*doctree.Node(nil), frag.Children...)
	if len(nodes) == 0 {
		return
	}
	s.log.Debug("paste", "session", s.ID, "nodes", len(nodes))
	s.insert(nodes)
}

// insert вставляет узлы в позицию курсора, курсор встает после вставленного текста.
func (s *Session) insert(nodes []*doctree.Node) {
	length := 0
	inline := true
	for _, n := range nodes {
		length += doctree.TextLength(n)
		if doctree.IsBlock(n) {
			inline = false
		}
	}

	s.edit(func(r *selection.Range) (*selection.Endpoint, error) {
		if container := emptyContainer(s.root, s.sel); container != nil {
			placeIntoEmpty(container, nodes, inline)
			r.End = r.Start + length
			r.Start = r.End
			return nil, nil
		}

		if inline && s.sel.Valid && s.sel.Collapsed() {
			if t, ok := selection.Resolve(s.root, s.sel.Start); ok && t.IsText() {
				insertIntoText(t, s.sel.Start.Offset, nodes)
				doctree.Normalize(s.root)
				r.Start += length
				r.End = r.Start
				return nil, nil
			}
		}

		at := r.Start
		if at < 0 {
			at = doctree.TextLength(s.root)
		} else if r.End > r.Start {
			doctree.DeleteSpan(s.root, r.Start, r.End)
		}

		if len(nodes) == 1 && nodes[0].IsText() {
			at = doctree.InsertText(s.root, at, nodes[0].Data)
		} else {
			doctree.InsertNodesAt(s.root, at, nodes...)
			doctree.Normalize(s.root)
			at += length
		}
		r.Start, r.End = at, at
		return nil, nil
	})
}

// insertIntoText вставляет строчные узлы в текстовый узел под курсором. Смещение в символах
// неоднозначно на границе блоков, точка курсора нет.
func insertIntoText(t *doctree.Node, offset int, nodes []*doctree.Node) {
	if len(nodes) == 1 && nodes[0].IsText() {
		doctree.InsertTextAt(t, offset, nodes[0].Data)
		return
	}
	switch {
	case offset <= 0:
		t.Before(nodes...)
	case offset >= doctree.RuneLen(t.Data):
		t.After(nodes...)
	default:
		doctree.SplitText(t, offset).Before(nodes...)
	}
}

// placeIntoEmpty заполняет пустой блок. Заглушка <br> удаляется, блочные узлы заменяют абзац целиком.
func placeIntoEmpty(container *doctree.Node, nodes []*doctree.Node, inline bool) {
	if !inline && container.IsElement("p", "div", "h1", "h2", "h3", "h4", "h5", "h6") {
		container.ReplaceWith(nodes...)
		return
	}
	for _, br := range container.FindAll("br") {
		br.Remove()
	}
	container.AppendChild(nodes...)
}

// Backspace удаляет выделение или символ перед курсором. Картинка или контейнер с картинкой прямо
// перед курсором удаляются целиком. В начале блока блок склеивается с предыдущим.
func (s *Session) Backspace() {
	s.edit(func(r *selection.Range) (*selection.Endpoint, error) {
		if r.Start < 0 {
			return nil, nil
		}
		if r.End > r.Start {
			doctree.DeleteSpan(s.root, r.Start, r.End)
			r.End = r.Start
			return nil, nil
		}

		if img := imageBefore(s.root, s.sel.Start); img != nil {
			img.Remove()
			return nil, nil
		}

		if container := emptyContainer(s.root, s.sel); container != nil {
			block := doctree.NearestBlock(s.root, container)
			if block == nil {
				block = container
			}
			prev := prevBlock(block)
			if prev == nil || block.IsElement("td", "th", "li") {
				return nil, nil
			}
			block.Remove()
			ep := selection.EndOf(s.root, prev)
			return &ep, nil
		}

		if r.Start == 0 {
			return nil, nil
		}
		left, _, okLeft := doctree.LocateText(s.root, r.Start)
		right, okRight := s.caretTextStart(r.Start)
		if okLeft && okRight && left != right {
			lb, rb := doctree.NearestBlock(s.root, left), doctree.NearestBlock(s.root, right)
			if lb != nil && rb != nil && lb != rb && !lb.IsElement("td", "th") && !rb.IsElement("td", "th") {
				doctree.MergeBlocks(lb, rb)
				doctree.Normalize(s.root)
				return nil, nil
			}
		}
		if t, ok := selection.Resolve(s.root, s.sel.Start); ok && t.IsText() && doctree.RuneLen(t.Data) > 1 {
			if off := min(s.sel.Start.Offset, doctree.RuneLen(t.Data)); off > 0 {
				rs := []rune(t.Data)
				t.Data = string(rs[:off-1]) + string(rs[off:])
				ep := selection.Endpoint{Path: s.sel.Start.Path, Offset: off - 1}
				return &ep, nil
			}
		}
		doctree.DeleteSpan(s.root, r.Start-1, r.Start)
		r.Start--
		r.End = r.Start
		return nil, nil
	})
}

// caretTextStart текстовый узел, в начале которого стоит курсор. Курсор в середине текста
// не считается началом, даже если смещение совпадает с границей блоков.
func (s *Session) caretTextStart(at int) (*doctree.Node, bool) {
	if n, ok := selection.Resolve(s.root, s.sel.Start); ok && n.IsText() {
		return n, s.sel.Start.Offset == 0
	}
	t, in, ok := doctree.LocateTextForward(s.root, at)
	return t, ok && in == 0
}

func prevBlock(b *doctree.Node) *doctree.Node {
	for cur := b.PrevSibling(); cur != nil; cur = cur.PrevSibling() {
		if cur.IsElement() {
			return cur
		}
	}
	return nil
}

// imageBefore картинка или контейнер с картинкой непосредственно перед курсором.
func imageBefore(root *doctree.Node, ep selection.Endpoint) *doctree.Node {
	n, ok := selection.Resolve(root, ep)
	if !ok {
		return nil
	}
	var prev *doctree.Node
	switch {
	case n.IsText():
		if ep.Offset != 0 {
			return nil
		}
		prev = n.PrevSibling()
		if prev == nil && n.Parent != nil && n.Parent != root {
			prev = n.Parent.PrevSibling()
		}
	case ep.Offset > 0 && ep.Offset <= len(n.Children):
		prev = n.Children[ep.Offset-1]
	case n != root:
		prev = n.PrevSibling()
	}
	if prev == nil {
		return nil
	}
	if prev.IsElement("img") {
		return prev
	}
	if prev.IsElement("span", "div") && len(prev.FindAll("img")) > 0 {
		return prev
	}
	return nil
}

// Enter в конце цитаты выводит курсор в новый абзац после нее, в остальных случаях делит блок.
func (s *Session) Enter() {
	s.edit(func(r *selection.Range) (*selection.Endpoint, error) {
		at := r.Start
		if at < 0 {
			at = doctree.TextLength(s.root)
		} else if r.End > r.Start {
			doctree.DeleteSpan(s.root, r.Start, r.End)
		}

		if q := s.quoteEndingAt(at); q != nil {
			p := emptyParagraph()
			q.After(p)
			ep := selection.StartOf(s.root, p)
			return &ep, nil
		}

		if t, ok := s.caretTextStart(at); ok && r.Start == r.End {
			if block := doctree.NearestBlock(s.root, t); block != nil && !block.IsElement("td", "th", "li") && at > 0 {
				if start, _ := doctree.Span(s.root, block); start == at {
					block.Before(emptyParagraph())
					ep := selection.StartOf(s.root, t)
					return &ep, nil
				}
			}
		}

		if container := emptyContainer(s.root, s.sel); container != nil {
			if block := doctree.NearestBlock(s.root, container); block != nil && !block.IsElement("td", "th") {
				p := emptyParagraph()
				block.After(p)
				ep := selection.StartOf(s.root, p)
				return &ep, nil
			}
		}

		right := doctree.SplitBlockAt(s.root, at)
		r.Start, r.End = at, at
		if right == nil {
			return nil, nil
		}
		ep := selection.StartOf(s.root, right)
		return &ep, nil
	})
}

// quoteEndingAt цитата, в конце текста которой стоит курсор.
func (s *Session) quoteEndingAt(at int) *doctree.Node {
	var n *doctree.Node
	if ep := s.sel.Start; s.sel.Valid {
		n, _ = selection.Resolve(s.root, ep)
	}
	if n == nil {
		t, _, ok := doctree.LocateText(s.root, at)
		if !ok {
			return nil
		}
		n = t
	}
	q := n.Closest(s.root, "blockquote")
	if q == nil {
		return nil
	}
	if _, end := doctree.Span(s.root, q); end != at {
		return nil
	}
	return q
}

func emptyParagraph() *doctree.Node {
	p := doctree.NewElement("p")
	p.AppendChild(doctree.NewElement("br"))
	return p
}
