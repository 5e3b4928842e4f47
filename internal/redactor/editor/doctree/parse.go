package doctree

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Теги, которые дерево хранит как элементы. Остальные теги разворачиваются в свое текстовое содержимое.
var knownTags = map[string]bool{
	"p": true, "div": true, "span": true, "br": true, "hr": true,
	"b": true, "strong": true, "i": true, "em": true, "u": true, "s": true, "strike": true, "del": true,
	"sup": true, "sub": true, "mark": true, "font": true, "small": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "pre": true, "code": true,
	"a": true, "img": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "th": true, "td": true,
	"caption": true, "colgroup": true, "col": true,
	"figure": true, "figcaption": true, "section": true, "article": true,
}

// Содержимое этих тегов отбрасывается целиком.
var droppedTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true, "template": true,
	"noscript": true, "iframe": true, "object": true, "embed": true, "svg": true, "math": true,
}

var voidTags = map[string]bool{
	"br": true, "hr": true, "img": true, "col": true, "wbr": true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "pre": true, "hr": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "th": true, "td": true,
	"caption": true, "figure": true, "figcaption": true, "section": true, "article": true,
}

func IsVoid(tag string) bool {
	return voidTags[tag]
}

func IsBlock(n *Node) bool {
	return n != nil && n.Type == ElementNode && blockTags[n.Data]
}

func IsKnownTag(tag string) bool {
	return knownTags[strings.ToLower(tag)]
}

// Parse разбирает разметку в дерево с корнем div. Ошибок не бывает: то, что не удалось разобрать, становится текстом.
func Parse(markup string) *Node {
	root := NewRoot()
	AppendMarkup(root, markup)
	return root
}

// ParseFragment разбирает разметку в список узлов верхнего уровня без корня.
func ParseFragment(markup string) []*Node {
	tmp := Parse(markup)
	res := append([]*Node(nil), tmp.Children...)
	for _, c := range res {
		c.Remove()
	}
	return res
}

// AppendMarkup разбирает разметку и добавляет результат в конец детей parent.
func AppendMarkup(parent *Node, markup string) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		if markup != "" {
			parent.AppendChild(NewText(markup))
		}
		return
	}
	for _, hn := range nodes {
		convert(parent, hn)
	}
	mergeText(parent)
}

func convert(parent *Node, hn *html.Node) {
	switch hn.Type {
	case html.TextNode:
		if hn.Data == "" {
			return
		}
		if last := parent.LastChild(); last.IsText() {
			last.Data += hn.Data
			return
		}
		parent.AppendChild(NewText(hn.Data))
	case html.ElementNode:
		tag := strings.ToLower(hn.Data)
		if hn.Namespace != "" || droppedTags[tag] {
			return
		}
		target := parent
		if knownTags[tag] {
			el := NewElement(tag)
			for _, a := range hn.Attr {
				if a.Namespace != "" {
					continue
				}
				el.Attr = append(el.Attr, html.Attribute{Key: strings.ToLower(a.Key), Val: a.Val})
			}
			parent.AppendChild(el)
			target = el
		}
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			convert(target, c)
		}
	case html.DocumentNode:
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			convert(parent, c)
		}
	}
}

// mergeText склеивает соседние текстовые узлы, которые появляются после разворачивания неизвестных тегов.
func mergeText(n *Node) {
	out := n.Children[:0]
	for _, c := range n.Children {
		if c.IsText() && len(out) > 0 && out[len(out)-1].IsText() {
			out[len(out)-1].Data += c.Data
			c.Parent = nil
			continue
		}
		out = append(out, c)
	}
	n.Children = out
	for _, c := range n.Children {
		if c.Type == ElementNode {
			mergeText(c)
		}
	}
}

// Normalize удаляет пустые текстовые узлы и склеивает соседние.
func Normalize(n *Node) {
	n.Walk(func(c *Node) bool {
		if c.IsText() && c.Data == "" {
			c.Remove()
		}
		return true
	})
	mergeText(n)
}

// Render сериализует детей корня в каноническую разметку.
func Render(root *Node) string {
	if root == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range root.Children {
		render(&sb, c)
	}
	return sb.String()
}

// OuterHTML сериализует узел вместе с его собственным тегом.
func OuterHTML(n *Node) string {
	var sb strings.Builder
	render(&sb, n)
	return sb.String()
}

func render(sb *strings.Builder, n *Node) {
	if n.Type == TextNode {
		sb.WriteString(escapeText(n.Data))
		return
	}
	sb.WriteByte('<')
	sb.WriteString(n.Data)
	for _, a := range n.Attr {
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(escapeAttr(a.Val))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	if voidTags[n.Data] {
		return
	}
	// Парсер съедает первый перевод строки внутри pre
	if n.Data == "pre" {
		if first := n.FirstChild(); first.IsText() && strings.HasPrefix(first.Data, "\n") {
			sb.WriteByte('\n')
		}
	}
	for _, c := range n.Children {
		render(sb, c)
	}
	sb.WriteString("</")
	sb.WriteString(n.Data)
	sb.WriteByte('>')
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
var attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
