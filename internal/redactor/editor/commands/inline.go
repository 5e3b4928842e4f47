package commands

import (
	"regexp"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
)

type matcher func(n *doctree.Node) bool

func tagMatcher(tags ...string) matcher {
	return func(n *doctree.Node) bool {
		return n.IsElement(tags...)
	}
}

func (Bold) apply(s *state) error          { return toggleInline(s, tagMatcher("b", "strong"), "b") }
func (Italic) apply(s *state) error        { return toggleInline(s, tagMatcher("i", "em"), "i") }
func (Underline) apply(s *state) error     { return toggleInline(s, tagMatcher("u"), "u") }
func (StrikeThrough) apply(s *state) error { return toggleInline(s, tagMatcher("s", "strike", "del"), "strike") }
func (Superscript) apply(s *state) error   { return toggleScript(s, "sup") }
func (Subscript) apply(s *state) error     { return toggleScript(s, "sub") }

// closestMatching ближайший предок текстового узла, подходящий под m, в пределах root.
func closestMatching(root, t *doctree.Node, m matcher) *doctree.Node {
	for cur := t.Parent; cur != nil && cur != root; cur = cur.Parent {
		if m(cur) {
			return cur
		}
	}
	return nil
}

func allCovered(root *doctree.Node, texts []*doctree.Node, m matcher) bool {
	if len(texts) == 0 {
		return false
	}
	for _, t := range texts {
		if closestMatching(root, t, m) == nil {
			return false
		}
	}
	return true
}

// toggleInline снимает форматирование, если оно покрывает весь выделенный текст, иначе применяет его
// к непокрытым участкам.
func toggleInline(s *state, m matcher, tag string) error {
	texts := s.textsInSpan()
	if len(texts) == 0 {
		return nil
	}
	if allCovered(s.root, texts, m) {
		unwrapAround(s.root, texts, m)
	} else {
		wrapTexts(texts, m, s.root, func() *doctree.Node { return doctree.NewElement(tag) })
	}
	doctree.Normalize(s.root)
	return nil
}

// toggleScript: sup/sub активны, если ближайший общий элемент выделения уже sup/sub.
func toggleScript(s *state, tag string) error {
	texts := s.textsInSpan()
	if len(texts) == 0 {
		return nil
	}
	m := tagMatcher(tag)
	if s.enclosing(texts).IsElement(tag) || allCovered(s.root, texts, m) {
		unwrapAround(s.root, texts, m)
	} else {
		wrapTexts(texts, m, s.root, func() *doctree.Node { return doctree.NewElement(tag) })
	}
	doctree.Normalize(s.root)
	return nil
}

// wrapTexts оборачивает непокрытые текстовые узлы новыми элементами и склеивает соседние одинаковые.
func wrapTexts(texts []*doctree.Node, covered matcher, root *doctree.Node, factory func() *doctree.Node) []*doctree.Node {
	var created []*doctree.Node
	for _, t := range texts {
		if covered != nil && closestMatching(root, t, covered) != nil {
			continue
		}
		el := factory()
		t.Wrap(el)
		created = append(created, el)
	}
	return mergeCreated(created)
}

// mergeCreated склеивает созданные элементы с соседями той же формы.
func mergeCreated(created []*doctree.Node) []*doctree.Node {
	var alive []*doctree.Node
	for _, el := range created {
		if el.Parent == nil {
			continue
		}
		if prev := el.PrevSibling(); prev != nil && sameShape(prev, el) {
			prev.AppendChild(append([]*doctree.Node(nil), el.Children...)...)
			el.Remove()
			el = prev
		}
		if next := el.NextSibling(); next != nil && sameShape(next, el) {
			el.AppendChild(append([]*doctree.Node(nil), next.Children...)...)
			next.Remove()
		}
		if len(alive) == 0 || alive[len(alive)-1] != el {
			alive = append(alive, el)
		}
	}
	return alive
}

func sameShape(a, b *doctree.Node) bool {
	if !a.IsElement() || !b.IsElement() || a.Data != b.Data || len(a.Attr) != len(b.Attr) {
		return false
	}
	for i := range a.Attr {
		if a.Attr[i] != b.Attr[i] {
			return false
		}
	}
	return true
}

// unwrapAround вырезает каждый текстовый узел из всех предков, подходящих под m.
func unwrapAround(root *doctree.Node, texts []*doctree.Node, m matcher) {
	for _, t := range texts {
		for anc := closestMatching(root, t, m); anc != nil; anc = closestMatching(root, t, m) {
			doctree.Isolate(anc, t)
			anc.Unwrap()
		}
	}
}

func sameColor(a, b string) bool {
	norm := func(c string) string {
		return strings.ToLower(strings.Join(strings.Fields(c), ""))
	}
	return a != "" && norm(a) == norm(b)
}

func (c BackColor) apply(s *state) error {
	texts := s.textsInSpan()
	if len(texts) == 0 {
		return nil
	}
	m := func(n *doctree.Node) bool {
		return n.IsElement("span", "mark", "font") && sameColor(n.Style("background-color"), c.Color)
	}
	active := m(s.enclosing(texts)) || allCovered(s.root, texts, m)
	if active {
		for _, t := range texts {
			for anc := closestMatching(s.root, t, m); anc != nil; anc = closestMatching(s.root, t, m) {
				doctree.Isolate(anc, t)
				anc.RemoveStyle("background-color")
				if len(anc.Attr) == 0 && anc.IsElement("span", "font") {
					anc.Unwrap()
				}
			}
		}
	} else {
		wrapTexts(texts, m, s.root, func() *doctree.Node {
			return doctree.NewElement("span", doctree.A("style", "background-color: "+c.Color+";"))
		})
	}
	doctree.Normalize(s.root)
	return nil
}

// restyle ставит атрибут на единственную обертку текста или создает новую.
func restyle(s *state, wrapperTag string, set func(n *doctree.Node), factory func() *doctree.Node) {
	var created []*doctree.Node
	for _, t := range s.textsInSpan() {
		if p := t.Parent; p != s.root && p.IsElement(wrapperTag) && len(p.Children) == 1 {
			set(p)
			continue
		}
		el := factory()
		t.Wrap(el)
		created = append(created, el)
	}
	mergeCreated(created)
	doctree.Normalize(s.root)
}

func (c ForeColor) apply(s *state) error {
	set := func(n *doctree.Node) { n.SetStyle("color", c.Color) }
	restyle(s, "span", set, func() *doctree.Node {
		return doctree.NewElement("span", doctree.A("style", "color: "+c.Color+";"))
	})
	return nil
}

var legacyFontSize = regexp.MustCompile(`^[1-7]$`)

func (c FontSize) apply(s *state) error {
	if c.Size == "" {
		return nil
	}
	if legacyFontSize.MatchString(c.Size) {
		restyle(s, "font", func(n *doctree.Node) { n.SetAttr("size", c.Size) }, func() *doctree.Node {
			return doctree.NewElement("font", doctree.A("size", c.Size))
		})
		return nil
	}
	restyle(s, "span", func(n *doctree.Node) { n.SetStyle("font-size", c.Size) }, func() *doctree.Node {
		return doctree.NewElement("span", doctree.A("style", "font-size: "+c.Size+";"))
	})
	return nil
}

func (c FontName) apply(s *state) error {
	if c.Face == "" {
		return nil
	}
	restyle(s, "font", func(n *doctree.Node) { n.SetAttr("face", c.Face) }, func() *doctree.Node {
		return doctree.NewElement("font", doctree.A("face", c.Face))
	})
	return nil
}
