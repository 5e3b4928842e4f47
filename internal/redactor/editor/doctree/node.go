// Дерево форматированного текста, которым владеет сессия редактора.
//
// Основные возможности:
//   - Разбор HTML-разметки в дерево узлов (Text | Element) без ошибок на некорректном вводе.
//   - Каноническая сериализация дерева обратно в разметку (стабильный round-trip).
//   - Подсчет длины текста в символах, который служит системой координат для выделения.
//   - Адресация узлов путем индексов от корня, разбиение и слияние текстовых узлов.
//   - Работа с inline-стилями через парсер CSS-деклараций.
package doctree

import (
	"strings"

	"golang.org/x/net/html"
)

type NodeType int

const (
	TextNode NodeType = iota
	ElementNode
)

// Node узел дерева. Для TextNode Data хранит текст, для ElementNode имя тега в нижнем регистре.
type Node struct {
	Type     NodeType
	Data     string
	Attr     []html.Attribute
	Children []*Node
	Parent   *Node
}

func NewText(text string) *Node {
	return &Node{Type: TextNode, Data: text}
}

func NewElement(tag string, attrs ...html.Attribute) *Node {
	return &Node{Type: ElementNode, Data: strings.ToLower(tag), Attr: attrs}
}

// NewRoot создает пустой редактируемый корень документа.
func NewRoot() *Node {
	return NewElement("div")
}

func A(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func (n *Node) IsText() bool {
	return n != nil && n.Type == TextNode
}

func (n *Node) IsElement(tags ...string) bool {
	if n == nil || n.Type != ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

func (n *Node) GetAttr(key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) AttrOr(key, def string) string {
	if v, ok := n.GetAttr(key); ok {
		return v
	}
	return def
}

// SetAttr заменяет значение атрибута, сохраняя его позицию, либо добавляет в конец.
func (n *Node) SetAttr(key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func (n *Node) RemoveAttr(key string) {
	res := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			res = append(res, a)
		}
	}
	n.Attr = res
}

func (n *Node) IndexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) FirstChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

func (n *Node) LastChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

func (n *Node) NextSibling() *Node {
	if n.Parent == nil {
		return nil
	}
	i := n.Parent.IndexOf(n)
	if i < 0 || i+1 >= len(n.Parent.Children) {
		return nil
	}
	return n.Parent.Children[i+1]
}

func (n *Node) PrevSibling() *Node {
	if n.Parent == nil {
		return nil
	}
	i := n.Parent.IndexOf(n)
	if i <= 0 {
		return nil
	}
	return n.Parent.Children[i-1]
}

// NextElementSibling пропускает текстовые узлы, как nextElementSibling в DOM.
func (n *Node) NextElementSibling() *Node {
	for s := n.NextSibling(); s != nil; s = s.NextSibling() {
		if s.Type == ElementNode {
			return s
		}
	}
	return nil
}

func (n *Node) AppendChild(children ...*Node) {
	for _, c := range children {
		c.detach()
		c.Parent = n
		n.Children = append(n.Children, c)
	}
}

// InsertAt вставляет узлы перед позицией idx в списке детей.
func (n *Node) InsertAt(idx int, children ...*Node) {
	if idx < 0 {
		idx = 0
	}
	for _, c := range children {
		if c.Parent == n {
			if i := n.IndexOf(c); i >= 0 && i < idx {
				idx--
			}
		}
		c.detach()
		if idx > len(n.Children) {
			idx = len(n.Children)
		}
		c.Parent = n
		n.Children = append(n.Children, nil)
		copy(n.Children[idx+1:], n.Children[idx:])
		n.Children[idx] = c
		idx++
	}
}

// Before вставляет узлы перед n.
func (n *Node) Before(nodes ...*Node) {
	if n.Parent == nil {
		return
	}
	n.Parent.InsertAt(n.Parent.IndexOf(n), nodes...)
}

// After вставляет узлы сразу после n.
func (n *Node) After(nodes ...*Node) {
	if n.Parent == nil {
		return
	}
	n.Parent.InsertAt(n.Parent.IndexOf(n)+1, nodes...)
}

// Remove отцепляет узел от родителя.
func (n *Node) Remove() {
	n.detach()
}

func (n *Node) detach() {
	if n.Parent == nil {
		return
	}
	p := n.Parent
	if i := p.IndexOf(n); i >= 0 {
		p.Children = append(p.Children[:i], p.Children[i+1:]...)
	}
	n.Parent = nil
}

// ReplaceWith ставит узлы на место n.
func (n *Node) ReplaceWith(nodes ...*Node) {
	p := n.Parent
	if p == nil {
		return
	}
	idx := p.IndexOf(n)
	n.detach()
	p.InsertAt(idx, nodes...)
}

// Unwrap заменяет элемент его детьми.
func (n *Node) Unwrap() {
	children := append([]*Node(nil), n.Children...)
	n.ReplaceWith(children...)
}

// Wrap оборачивает узел в элемент wrapper.
func (n *Node) Wrap(wrapper *Node) *Node {
	n.ReplaceWith(wrapper)
	wrapper.AppendChild(n)
	return wrapper
}

// ShallowClone копирует тип, тег и атрибуты без детей.
func (n *Node) ShallowClone() *Node {
	c := &Node{Type: n.Type, Data: n.Data}
	if len(n.Attr) > 0 {
		c.Attr = append([]html.Attribute(nil), n.Attr...)
	}
	return c
}

func (n *Node) Clone() *Node {
	c := n.ShallowClone()
	for _, ch := range n.Children {
		c.AppendChild(ch.Clone())
	}
	return c
}

// Walk обходит поддерево в порядке документа. Если fn возвращает false, потомки узла пропускаются.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range append([]*Node(nil), n.Children...) {
		c.Walk(fn)
	}
}

// FindAll возвращает элементы поддерева с указанными тегами в порядке документа.
func (n *Node) FindAll(tags ...string) []*Node {
	var res []*Node
	n.Walk(func(c *Node) bool {
		if c != n && c.IsElement(tags...) {
			res = append(res, c)
		}
		return true
	})
	return res
}

// Closest ищет ближайшего предка (включая сам узел) с одним из тегов, не поднимаясь выше stop.
func (n *Node) Closest(stop *Node, tags ...string) *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.IsElement(tags...) {
			return cur
		}
		if cur == stop {
			return nil
		}
	}
	return nil
}

// ParentElement возвращает ближайший элемент, содержащий узел.
func (n *Node) ParentElement() *Node {
	if n.Type == ElementNode {
		return n
	}
	return n.Parent
}

func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}

func (n *Node) Root() *Node {
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// Equal сравнивает поддеревья структурно.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type || a.Data != b.Data || len(a.Attr) != len(b.Attr) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Attr {
		if a.Attr[i].Key != b.Attr[i].Key || a.Attr[i].Val != b.Attr[i].Val {
			return false
		}
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
