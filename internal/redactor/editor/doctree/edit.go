package doctree

// NearestBlock ближайший блочный предок узла, не выходя за пределы root. Сам root не возвращается.
func NearestBlock(root, n *Node) *Node {
	for cur := n; cur != nil && cur != root; cur = cur.Parent {
		if IsBlock(cur) {
			return cur
		}
	}
	return nil
}

// CommonAncestor наименьший общий предок набора узлов.
func CommonAncestor(nodes ...*Node) *Node {
	if len(nodes) == 0 {
		return nil
	}
	anc := nodes[0]
	for _, n := range nodes[1:] {
		for anc != nil && !anc.Contains(n) {
			anc = anc.Parent
		}
	}
	return anc
}

// EnsureBlock оборачивает непрерывную последовательность inline-узлов вокруг n в абзац,
// если n не лежит внутри блока. Возвращает блок, содержащий n.
func EnsureBlock(root, n *Node) *Node {
	if b := NearestBlock(root, n); b != nil {
		return b
	}
	top := n
	for top.Parent != nil && top.Parent != root {
		top = top.Parent
	}
	if top.Parent != root {
		return nil
	}
	idx := root.IndexOf(top)
	from, to := idx, idx
	for from > 0 && !IsBlock(root.Children[from-1]) {
		from--
	}
	for to+1 < len(root.Children) && !IsBlock(root.Children[to+1]) {
		to++
	}
	run := append([]*Node(nil), root.Children[from:to+1]...)
	p := NewElement("p")
	root.InsertAt(from, p)
	p.AppendChild(run...)
	return p
}

// SplitBefore разрезает предка anc так, что все, что лежит перед at, уходит в копию anc слева.
// Возвращает левую копию или nil, если перед at ничего не было.
func SplitBefore(anc, at *Node) *Node {
	if at == anc || !anc.Contains(at) {
		return nil
	}
	cur := at
	for {
		parent := cur.Parent
		idx := parent.IndexOf(cur)
		if idx > 0 {
			clone := parent.ShallowClone()
			clone.AppendChild(append([]*Node(nil), parent.Children[:idx]...)...)
			if parent == anc {
				anc.Before(clone)
				return clone
			}
			parent.Before(clone)
		}
		if parent == anc {
			return nil
		}
		cur = parent
	}
}

// SplitAfter разрезает предка anc так, что все, что лежит после at, уходит в копию anc справа.
func SplitAfter(anc, at *Node) *Node {
	if at == anc || !anc.Contains(at) {
		return nil
	}
	cur := at
	for {
		parent := cur.Parent
		idx := parent.IndexOf(cur)
		if idx < len(parent.Children)-1 {
			clone := parent.ShallowClone()
			clone.AppendChild(append([]*Node(nil), parent.Children[idx+1:]...)...)
			if parent == anc {
				anc.After(clone)
				return clone
			}
			parent.After(clone)
		}
		if parent == anc {
			return nil
		}
		cur = parent
	}
}

// Isolate вырезает из anc фрагмент, содержащий только node: левое и правое окружение
// остаются в копиях anc. После вызова anc содержит ровно цепочку до node.
func Isolate(anc, node *Node) {
	SplitBefore(anc, node)
	SplitAfter(anc, node)
}

// SplitBlockAt делит блок, в котором находится смещение, на два и возвращает новый правый блок.
// Правый блок получает тот же тег и атрибуты. Пустые половины получают <br>, чтобы в них был курсор.
func SplitBlockAt(root *Node, offset int) *Node {
	SplitAt(root, offset)
	t, in, ok := LocateText(root, offset)
	if !ok {
		p := NewElement("p")
		p.AppendChild(NewElement("br"))
		root.AppendChild(p)
		return p
	}
	block := EnsureBlock(root, t)
	if block == nil || block.IsElement("td", "th", "tr", "tbody", "thead", "table", "ul", "ol") {
		// внутри ячейки разрыв блока заменяется переводом строки
		br := NewElement("br")
		if in >= RuneLen(t.Data) {
			t.After(br)
		} else {
			t.Before(br)
		}
		return nil
	}
	var right *Node
	if in >= RuneLen(t.Data) {
		right = SplitAfter(block, t)
	} else {
		// смещение 0 внутри узла: разрез проходит перед ним
		left := SplitBefore(block, t)
		if left == nil {
			left = block.ShallowClone()
			block.Before(left)
		}
		right = block
		block = left
	}
	if right == nil {
		right = block.ShallowClone()
		block.After(right)
	}
	ensureCaretSlot(block)
	ensureCaretSlot(right)
	return right
}

func ensureCaretSlot(block *Node) {
	if TextLength(block) == 0 && len(block.FindAll("br", "img", "hr")) == 0 {
		block.AppendChild(NewElement("br"))
	}
}

// InsertNodesAt вставляет узлы в позицию смещения. Блочные узлы разрезают текущий блок,
// inline-узлы вставляются прямо в текст. Возвращает последний вставленный узел.
func InsertNodesAt(root *Node, offset int, nodes ...*Node) *Node {
	if len(nodes) == 0 {
		return nil
	}
	hasBlock := false
	for _, n := range nodes {
		if IsBlock(n) {
			hasBlock = true
			break
		}
	}
	SplitAt(root, offset)
	t, in, ok := LocateText(root, offset)
	if !ok {
		if hasBlock {
			root.AppendChild(nodes...)
		} else {
			lastBlockOrRoot(root).AppendChild(nodes...)
		}
		return nodes[len(nodes)-1]
	}
	if !hasBlock {
		if in == 0 {
			t.Before(nodes...)
		} else {
			t.After(nodes...)
		}
		return nodes[len(nodes)-1]
	}
	block := NearestBlock(root, t)
	if block == nil || block.IsElement("td", "th", "li") {
		anchor := t
		for anchor.Parent != root && anchor.Parent != nil && anchor.Parent != block {
			anchor = anchor.Parent
		}
		if in == 0 && TextLength(t) > 0 {
			anchor.Before(nodes...)
		} else {
			anchor.After(nodes...)
		}
		return nodes[len(nodes)-1]
	}
	// блоки верхнего уровня вставляются между половинами текущего блока
	top := block
	for top.Parent != nil && top.Parent != root && !top.Parent.IsElement("td", "th", "li", "blockquote") {
		top = top.Parent
	}
	start, end := Span(root, top)
	switch {
	case TextLength(top) == 0 || offset >= end:
		top.After(nodes...)
		if TextLength(top) == 0 && len(top.FindAll("img", "hr")) == 0 {
			top.Remove()
		}
	case offset <= start:
		top.Before(nodes...)
	default:
		right := SplitBlockAt(root, offset)
		if right != nil {
			right.Before(nodes...)
		} else {
			top.After(nodes...)
		}
	}
	return nodes[len(nodes)-1]
}

// MergeBlocks переносит содержимое блока right в конец блока left и удаляет right.
func MergeBlocks(left, right *Node) {
	if left == nil || right == nil || left == right || left.Contains(right) || right.Contains(left) {
		return
	}
	if last := left.LastChild(); last.IsElement("br") && TextLength(left) == 0 {
		last.Remove()
	}
	children := append([]*Node(nil), right.Children...)
	for _, c := range children {
		if c.IsElement("br") && len(children) == 1 {
			continue
		}
		left.AppendChild(c)
	}
	parent := right.Parent
	right.Remove()
	for parent != nil && parent.Parent != nil && len(parent.Children) == 0 {
		p := parent.Parent
		parent.Remove()
		parent = p
	}
}

// DeleteSpan удаляет текст в диапазоне и склеивает блоки, если диапазон пересекал их границу.
func DeleteSpan(root *Node, start, end int) {
	if end <= start {
		return
	}
	var startBlock, endBlock *Node
	if t, _, ok := LocateTextForward(root, start); ok {
		startBlock = NearestBlock(root, t)
	}
	if t, _, ok := LocateText(root, end); ok {
		endBlock = NearestBlock(root, t)
	}
	DeleteRange(root, start, end)
	if startBlock != nil && endBlock != nil && startBlock != endBlock &&
		startBlock.Parent != nil && endBlock.Parent != nil &&
		!startBlock.IsElement("td", "th", "tr") && !endBlock.IsElement("td", "th", "tr") {
		MergeBlocks(startBlock, endBlock)
	}
	Normalize(root)
}
