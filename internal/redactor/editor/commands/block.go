package commands

import (
	"strconv"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
)

// Оформление цитаты, которое получает каждая blockquote без левой границы.
var quoteStamp = [][2]string{
	{"border-left", "4px solid #e5e7eb"},
	{"padding-left", "1rem"},
	{"margin-left", "0"},
	{"font-style", "italic"},
	{"color", "inherit"},
}

const indentStep = 40

func (f FormatBlock) apply(s *state) error {
	blocks := s.blocks()
	if len(blocks) == 0 {
		return nil
	}

	active := true
	for _, b := range blocks {
		if b.Data != f.Tag {
			active = false
			break
		}
	}
	if nb := s.nearestBlock(); nb != nil && nb.Data == f.Tag {
		active = true
	}

	if active {
		for _, b := range blocks {
			if b.Data == f.Tag {
				retag(b, "p")
			}
		}
		if nb := s.nearestBlock(); nb != nil && nb.Data == f.Tag {
			retag(nb, "p")
		}
		return nil
	}

	for _, b := range blocks {
		retag(b, f.Tag)
	}
	if f.Tag == "blockquote" {
		StampQuotes(s.root)
	}
	return nil
}

// retag меняет тег блока. Ячейки и пункты списка сохраняются, а их содержимое оборачивается в новый блок.
func retag(b *doctree.Node, tag string) {
	if b.IsElement("li", "td", "th") {
		inner := doctree.NewElement(tag)
		inner.AppendChild(append([]*doctree.Node(nil), b.Children...)...)
		b.AppendChild(inner)
		return
	}
	if b.Data == "blockquote" && tag != "blockquote" {
		unstampQuote(b)
	}
	b.Data = tag
}

// Атрибут со списком свойств, добавленных оформлением цитаты.
const quoteStampAttr = "data-quote-stamp"

// StampQuotes оформляет все цитаты без левой границы. Свойства, которые у блока уже есть, не трогаются.
func StampQuotes(root *doctree.Node) {
	for _, q := range root.FindAll("blockquote") {
		if q.HasStyle("border-left") {
			continue
		}
		var added []string
		for _, d := range quoteStamp {
			if q.HasStyle(d[0]) {
				continue
			}
			q.SetStyle(d[0], d[1])
			added = append(added, d[0])
		}
		q.SetAttr(quoteStampAttr, strings.Join(added, " "))
	}
}

// unstampQuote снимает только добавленные оформлением свойства, если их значение не менялось.
func unstampQuote(q *doctree.Node) {
	added, ok := q.GetAttr(quoteStampAttr)
	if !ok {
		for _, d := range quoteStamp {
			if q.Style(d[0]) == d[1] {
				q.RemoveStyle(d[0])
			}
		}
		return
	}
	q.RemoveAttr(quoteStampAttr)
	for _, prop := range strings.Fields(added) {
		for _, d := range quoteStamp {
			if d[0] == prop && q.Style(prop) == d[1] {
				q.RemoveStyle(prop)
			}
		}
	}
}

func (InsertUnorderedList) apply(s *state) error { return toggleList(s, "ul") }
func (InsertOrderedList) apply(s *state) error   { return toggleList(s, "ol") }

// listItem пункт списка, которому принадлежит блок.
func listItem(root, b *doctree.Node) *doctree.Node {
	li := b.Closest(root, "li")
	if li == nil || li.Parent == nil || !li.Parent.IsElement("ul", "ol") {
		return nil
	}
	return li
}

// toggleList: если все блоки уже в списке нужного типа, пункты становятся абзацами;
// если в списке другого типа, тип списка меняется; иначе блоки собираются в список.
func toggleList(s *state, tag string) error {
	blocks := s.blocks()
	if len(blocks) == 0 {
		return nil
	}

	var items []*doctree.Node
	seen := make(map[*doctree.Node]bool)
	allListed, sameType := true, true
	for _, b := range blocks {
		li := listItem(s.root, b)
		if li == nil {
			allListed = false
			continue
		}
		if !li.Parent.IsElement(tag) {
			sameType = false
		}
		if !seen[li] {
			seen[li] = true
			items = append(items, li)
		}
	}

	switch {
	case allListed && sameType:
		for _, li := range items {
			unlist(li)
		}
	case allListed:
		for _, li := range items {
			li.Parent.Data = tag
		}
	default:
		wrapInList(s.root, blocks, tag)
	}
	doctree.Normalize(s.root)
	return nil
}

// unlist вынимает пункт из списка. Список разрезается вокруг пункта, inline-содержимое становится абзацем.
func unlist(li *doctree.Node) {
	list := li.Parent
	doctree.Isolate(list, li)

	children := append([]*doctree.Node(nil), li.Children...)
	inline := true
	for _, c := range children {
		if doctree.IsBlock(c) {
			inline = false
			break
		}
	}
	if inline {
		p := doctree.NewElement("p")
		p.AppendChild(children...)
		if len(children) == 0 {
			p.AppendChild(doctree.NewElement("br"))
		}
		list.ReplaceWith(p)
		return
	}
	list.ReplaceWith(children...)
}

func wrapInList(root *doctree.Node, blocks []*doctree.Node, tag string) {
	var current *doctree.Node
	for _, b := range blocks {
		if li := listItem(root, b); li != nil {
			li.Parent.Data = tag
			current = nil
			continue
		}
		li := doctree.NewElement("li")
		switch {
		case b.IsElement("td", "th"):
			// список внутри ячейки, сама ячейка остается на месте
			li.AppendChild(append([]*doctree.Node(nil), b.Children...)...)
			list := doctree.NewElement(tag)
			list.AppendChild(li)
			b.AppendChild(list)
			current = nil
		default:
			if current == nil || prevElement(b) != current {
				current = doctree.NewElement(tag)
				b.Before(current)
			}
			current.AppendChild(li)
			if b.IsElement("p", "div") {
				li.AppendChild(append([]*doctree.Node(nil), b.Children...)...)
				b.Remove()
			} else {
				li.AppendChild(b)
			}
		}
		if len(li.Children) == 0 {
			li.AppendChild(doctree.NewElement("br"))
		}
	}
}

// prevElement предыдущий сосед, пропуская пробельный текст.
func prevElement(n *doctree.Node) *doctree.Node {
	for cur := n.PrevSibling(); cur != nil; cur = cur.PrevSibling() {
		if cur.IsText() && strings.TrimSpace(cur.Data) == "" {
			continue
		}
		return cur
	}
	return nil
}

func (Indent) apply(s *state) error {
	for _, b := range s.blocks() {
		if li := listItem(s.root, b); li != nil {
			if prev := prevElement(li); prev != nil && prev.IsElement("li") {
				nest(prev, li)
				continue
			}
		}
		shiftMargin(b, indentStep)
	}
	doctree.Normalize(s.root)
	return nil
}

// nest переносит пункт во вложенный список предыдущего пункта.
func nest(prev, li *doctree.Node) {
	tag := li.Parent.Data
	sub := prev.LastChild()
	if sub == nil || !sub.IsElement(tag) {
		sub = doctree.NewElement(tag)
		prev.AppendChild(sub)
	}
	sub.AppendChild(li)
}

func (Outdent) apply(s *state) error {
	for _, b := range s.blocks() {
		li := listItem(s.root, b)
		if li == nil {
			shiftMargin(b, -indentStep)
			continue
		}
		list := li.Parent
		parentItem := list.Parent
		if parentItem != nil && parentItem.IsElement("li") {
			rest := doctree.SplitAfter(list, li)
			parentItem.After(li)
			if rest != nil {
				li.AppendChild(rest)
			}
			if len(list.Children) == 0 {
				list.Remove()
			}
			continue
		}
		if marginOf(b) > 0 {
			shiftMargin(b, -indentStep)
			continue
		}
		unlist(li)
	}
	doctree.Normalize(s.root)
	return nil
}

func marginOf(b *doctree.Node) int {
	v := strings.TrimSuffix(strings.TrimSpace(b.Style("margin-left")), "px")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func shiftMargin(b *doctree.Node, delta int) {
	m := marginOf(b) + delta
	if m <= 0 {
		b.RemoveStyle("margin-left")
		return
	}
	b.SetStyle("margin-left", strconv.Itoa(m)+"px")
}

func (j Justify) apply(s *state) error {
	for _, b := range s.blocks() {
		b.SetStyle("text-align", string(j.Align))
	}
	return nil
}
