package doctree

// Path адрес узла как последовательность индексов детей от корня.
type Path []int

// PathOf строит путь от root до n. Для узла вне дерева возвращает nil.
func PathOf(root, n *Node) Path {
	var rev []int
	cur := n
	for cur != root {
		if cur == nil || cur.Parent == nil {
			return nil
		}
		rev = append(rev, cur.Parent.IndexOf(cur))
		cur = cur.Parent
	}
	p := make(Path, len(rev))
	for i := range rev {
		p[i] = rev[len(rev)-1-i]
	}
	return p
}

// NodeAt разрешает путь. Второе значение false, если путь больше не существует.
func NodeAt(root *Node, p Path) (*Node, bool) {
	cur := root
	for _, idx := range p {
		if cur == nil || idx < 0 || idx >= len(cur.Children) {
			return nil, false
		}
		cur = cur.Children[idx]
	}
	return cur, cur != nil
}

// LongestPrefix возвращает самый глубокий существующий узел на пути p.
func LongestPrefix(root *Node, p Path) (*Node, Path) {
	cur := root
	for i, idx := range p {
		if idx < 0 || idx >= len(cur.Children) {
			return cur, p[:i]
		}
		cur = cur.Children[idx]
	}
	return cur, p
}

func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}
