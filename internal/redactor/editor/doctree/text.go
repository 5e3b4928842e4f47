package doctree

import (
	"strings"
	"unicode/utf8"
)

// RuneLen длина строки в символах. Все смещения в дереве считаются в символах, а не в байтах.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// TextLength количество символов во всех текстовых потомках узла.
func TextLength(n *Node) int {
	if n == nil {
		return 0
	}
	if n.Type == TextNode {
		return RuneLen(n.Data)
	}
	total := 0
	for _, c := range n.Children {
		total += TextLength(c)
	}
	return total
}

// TextContent конкатенация текста потомков в порядке документа.
func TextContent(n *Node) string {
	if n == nil {
		return ""
	}
	if n.Type == TextNode {
		return n.Data
	}
	var sb strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Type == TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

// TextNodes все текстовые узлы поддерева в порядке документа.
func TextNodes(n *Node) []*Node {
	var res []*Node
	n.Walk(func(c *Node) bool {
		if c.Type == TextNode {
			res = append(res, c)
		}
		return true
	})
	return res
}

// OffsetOf символьное смещение начала узла относительно корня root.
func OffsetOf(root, target *Node) int {
	acc := 0
	found := false
	var walk func(n *Node)
	walk = func(n *Node) {
		if found {
			return
		}
		if n == target {
			found = true
			return
		}
		if n.Type == TextNode {
			acc += RuneLen(n.Data)
			return
		}
		for _, c := range n.Children {
			walk(c)
			if found {
				return
			}
		}
	}
	walk(root)
	return acc
}

// Span символьный интервал [start, end), который занимает узел в документе.
func Span(root, n *Node) (int, int) {
	start := OffsetOf(root, n)
	return start, start + TextLength(n)
}

// LocateText находит текстовый узел, в котором лежит смещение offset, и смещение внутри него.
// Выбирается первый узел, для которого накопленная длина достигает offset, поэтому граница
// между узлами относится к концу левого узла.
func LocateText(root *Node, offset int) (*Node, int, bool) {
	if offset < 0 {
		return nil, 0, false
	}
	acc := 0
	for _, t := range TextNodes(root) {
		l := RuneLen(t.Data)
		if acc+l >= offset {
			return t, offset - acc, true
		}
		acc += l
	}
	return nil, 0, false
}

// LocateTextForward как LocateText, но граница между узлами относится к началу правого
// непустого узла.
func LocateTextForward(root *Node, offset int) (*Node, int, bool) {
	if offset < 0 {
		return nil, 0, false
	}
	acc := 0
	for _, t := range TextNodes(root) {
		l := RuneLen(t.Data)
		if l > 0 && acc+l > offset {
			return t, offset - acc, true
		}
		acc += l
	}
	return LocateText(root, offset)
}

// SplitText разбивает текстовый узел по символьному смещению и возвращает правую часть.
// Если смещение на краю узла, разбиения не происходит и возвращается nil.
func SplitText(t *Node, at int) *Node {
	if t.Type != TextNode || at <= 0 || at >= RuneLen(t.Data) {
		return nil
	}
	left, right := splitRunes(t.Data, at)
	t.Data = left
	rightNode := NewText(right)
	t.After(rightNode)
	return rightNode
}

// SplitAt гарантирует границу текстовых узлов в смещении offset.
func SplitAt(root *Node, offset int) {
	acc := 0
	for _, t := range TextNodes(root) {
		l := RuneLen(t.Data)
		if offset > acc && offset < acc+l {
			SplitText(t, offset-acc)
			return
		}
		acc += l
		if acc >= offset {
			return
		}
	}
}

// TextNodesInRange разбивает текст по границам диапазона и возвращает непустые текстовые узлы,
// целиком лежащие в [start, end).
func TextNodesInRange(root *Node, start, end int) []*Node {
	if end < start {
		start, end = end, start
	}
	SplitAt(root, start)
	SplitAt(root, end)
	var res []*Node
	acc := 0
	for _, t := range TextNodes(root) {
		l := RuneLen(t.Data)
		if l > 0 && acc >= start && acc+l <= end {
			res = append(res, t)
		}
		acc += l
	}
	return res
}

func splitRunes(s string, at int) (string, string) {
	i := 0
	for pos := range s {
		if i == at {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// SliceRunes подстрока по символьным индексам.
func SliceRunes(s string, from, to int) string {
	r := []rune(s)
	if from < 0 {
		from = 0
	}
	if to > len(r) {
		to = len(r)
	}
	if from >= to {
		return ""
	}
	return string(r[from:to])
}

// InsertText вставляет текст в смещение offset. В документе без текста создается абзац.
// Возвращает смещение сразу после вставленного текста.
func InsertText(root *Node, offset int, text string) int {
	if text == "" {
		return offset
	}
	t, in, ok := LocateText(root, offset)
	if !ok {
		target := lastBlockOrRoot(root)
		target.AppendChild(NewText(text))
		return TextLength(root)
	}
	r := []rune(t.Data)
	t.Data = string(r[:in]) + text + string(r[in:])
	return offset + RuneLen(text)
}

// InsertTextAt вставляет текст в позицию, заданную контейнером и смещением внутри него.
func InsertTextAt(container *Node, offset int, text string) *Node {
	if container.Type == TextNode {
		r := []rune(container.Data)
		if offset > len(r) {
			offset = len(r)
		}
		container.Data = string(r[:offset]) + text + string(r[offset:])
		return container
	}
	if offset > 0 && offset <= len(container.Children) {
		if prev := container.Children[offset-1]; prev.IsText() {
			prev.Data += text
			return prev
		}
	}
	if offset < len(container.Children) {
		if next := container.Children[offset]; next.IsText() {
			next.Data = text + next.Data
			return next
		}
	}
	t := NewText(text)
	container.InsertAt(offset, t)
	return t
}

func lastBlockOrRoot(root *Node) *Node {
	last := root.LastChild()
	if last != nil && last.IsElement("p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre", "li") {
		return last
	}
	p := NewElement("p")
	root.AppendChild(p)
	return p
}

// DeleteRange удаляет текст в диапазоне [start, end). Опустевшие inline-элементы удаляются,
// пустые блоки сохраняются, чтобы в них оставалась позиция курсора.
func DeleteRange(root *Node, start, end int) {
	if end <= start {
		return
	}
	for _, t := range TextNodesInRange(root, start, end) {
		parent := t.Parent
		t.Remove()
		pruneEmptyInline(parent, root)
	}
	Normalize(root)
}

func pruneEmptyInline(n, root *Node) {
	for n != nil && n != root && n.Type == ElementNode && len(n.Children) == 0 && !IsBlock(n) && !IsVoid(n.Data) {
		p := n.Parent
		n.Remove()
		n = p
	}
}
