// Экспорт документов редактора в PDF, Markdown и самостоятельный HTML-файл.
//
// Разметка документа сначала разбирается в типизированную модель (абзацы, заголовки, списки,
// цитаты, код, таблицы), по которой строятся PDF и Markdown. HTML-экспорт работает с разметкой напрямую.
//
// Основные возможности:
//   - Разбор разметки редактора в модель документа с учетом inline-форматирования и стилей.
//   - PDF через fpdf со встроенными шрифтами Go, замена неподдерживаемых цветовых пространств.
//   - Markdown с заголовком документа.
//   - HTML-документ с подсветкой блоков кода и минификацией.
//   - Ограничение времени PDF-экспорта и метрики Prometheus.
package export

import (
	"strconv"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
)

type TextAlign int

const (
	LeftAlign TextAlign = iota
	CenterAlign
	RightAlign
	JustifyAlign
)

type Document struct {
	Elements []any
}

type Paragraph struct {
	Content []any
	Indent  int
	Align   TextAlign
}

type Heading struct {
	Level int
	Paragraph
}

type Text struct {
	Content string
	// размер в пунктах, 0 - размер по умолчанию
	Size float64
	Font string

	Strong        bool
	Italic        bool
	Underlined    bool
	Strikethrough bool
	Sup           bool
	Sub           bool
	Mono          bool

	Color   *Color
	BgColor *Color

	URL string
}

type HardBreak struct{}

type Image struct {
	Src string
	Alt string
}

type List struct {
	Elements []ListElement
	Numbered bool
}

// ListElement содержимое пункта: абзацы и вложенные списки.
type ListElement struct {
	Content []any
}

type Quote struct {
	Content []any
}

type Code struct {
	Content string
}

type Rule struct{}

type Table struct {
	Rows [][]TableCell
}

type TableCell struct {
	Content []Paragraph
	ColSpan int
	RowSpan int
	Header  bool
}

// fontSizes шкала размеров <font size> в пунктах.
var fontSizes = map[string]float64{"1": 8, "2": 10, "3": 12, "4": 14, "5": 18, "6": 24, "7": 36}

// ParseDocument разбирает разметку редактора в модель документа.
func ParseDocument(markup string) *Document {
	return DocumentFromTree(doctree.Parse(markup))
}

func DocumentFromTree(root *doctree.Node) *Document {
	return &Document{Elements: parseBlocks(root.Children)}
}

func parseBlocks(nodes []*doctree.Node) []any {
	var elements []any
	var pending *Paragraph

	flush := func() {
		if pending != nil && hasText(pending.Content) {
			elements = append(elements, *pending)
		}
		pending = nil
	}

	for _, n := range nodes {
		if !doctree.IsBlock(n) {
			if pending == nil {
				pending = &Paragraph{}
			}
			collectInline(n, Text{}, pending)
			continue
		}
		flush()

		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level, _ := strconv.Atoi(n.Data[1:])
			elements = append(elements, Heading{Level: level, Paragraph: parseParagraph(n)})
		case "blockquote":
			elements = append(elements, Quote{Content: parseBlocks(n.Children)})
		case "pre":
			elements = append(elements, Code{Content: doctree.TextContent(n)})
		case "ul", "ol":
			elements = append(elements, parseList(n))
		case "table":
			elements = append(elements, parseTable(n))
		case "hr":
			elements = append(elements, Rule{})
		default:
			if hasBlockChild(n) {
				elements = append(elements, parseBlocks(n.Children)...)
				continue
			}
			if p := parseParagraph(n); len(p.Content) > 0 {
				elements = append(elements, p)
			}
		}
	}
	flush()
	return elements
}

func parseParagraph(block *doctree.Node) Paragraph {
	p := Paragraph{Align: toTextAlign(block.Style("text-align"))}
	if margin := sizeToPt(block.Style("margin-left")); margin > 0 {
		p.Indent = int(margin / 30)
	}
	for _, c := range block.Children {
		collectInline(c, Text{}, &p)
	}
	return p
}

func collectInline(n *doctree.Node, style Text, p *Paragraph) {
	if n.IsText() {
		if n.Data == "" {
			return
		}
		t := style
		t.Content = n.Data
		p.Content = append(p.Content, t)
		return
	}

	switch n.Data {
	case "br":
		p.Content = append(p.Content, HardBreak{})
		return
	case "img":
		if src := n.AttrOr("src", ""); src != "" {
			p.Content = append(p.Content, Image{Src: src, Alt: n.AttrOr("alt", "")})
		}
		return
	case "b", "strong":
		style.Strong = true
	case "i", "em":
		style.Italic = true
	case "u":
		style.Underlined = true
	case "s", "strike", "del":
		style.Strikethrough = true
	case "sup":
		style.Sup = true
	case "sub":
		style.Sub = true
	case "code":
		style.Mono = true
	case "a":
		style.URL = n.AttrOr("href", "")
	case "font":
		if size, ok := fontSizes[n.AttrOr("size", "")]; ok {
			style.Size = size
		}
		if face := n.AttrOr("face", ""); face != "" {
			style.Font = face
		}
		if c := ParseColor(n.AttrOr("color", "")); c != nil {
			style.Color = c
		}
	}
	parseTextStyles(n, &style)

	for _, c := range n.Children {
		if doctree.IsBlock(c) {
			// блок внутри inline-элемента, например div в span: переносим строку
			p.Content = append(p.Content, HardBreak{})
		}
		collectInline(c, style, p)
	}
}

func parseTextStyles(n *doctree.Node, text *Text) {
	for _, d := range doctree.Styles(n) {
		val := strings.TrimSpace(d.Value)
		if val == "inherit" || val == "" {
			continue
		}
		switch d.Property {
		case "font-size":
			if size := sizeToPt(val); size > 0 {
				text.Size = size
			}
		case "font-family":
			text.Font = strings.Trim(strings.Split(val, ",")[0], `"' `)
		case "font-weight":
			text.Strong = val == "bold" || val == "bolder" || val == "600" || val == "700" || val == "800" || val == "900"
		case "font-style":
			text.Italic = val == "italic" || val == "oblique"
		case "text-decoration", "text-decoration-line":
			text.Underlined = text.Underlined || strings.Contains(val, "underline")
			text.Strikethrough = text.Strikethrough || strings.Contains(val, "line-through")
		case "color":
			if c := ParseColor(val); c != nil {
				text.Color = c
			}
		case "background-color":
			if c := ParseColor(val); c != nil {
				text.BgColor = c
			}
		}
	}
}

func parseList(root *doctree.Node) List {
	list := List{Numbered: root.Data == "ol"}
	for _, li := range root.Children {
		if !li.IsElement("li") {
			continue
		}
		list.Elements = append(list.Elements, ListElement{Content: parseBlocks(li.Children)})
	}
	return list
}

func parseTable(root *doctree.Node) Table {
	var table Table
	var rows []*doctree.Node
	for _, c := range root.Children {
		switch {
		case c.IsElement("tr"):
			rows = append(rows, c)
		case c.IsElement("thead", "tbody", "tfoot"):
			for _, tr := range c.Children {
				if tr.IsElement("tr") {
					rows = append(rows, tr)
				}
			}
		}
	}

	for _, tr := range rows {
		var row []TableCell
		for _, td := range tr.Children {
			if !td.IsElement("td", "th") {
				continue
			}
			cell := TableCell{
				ColSpan: atoiOr(td.AttrOr("colspan", ""), 1),
				RowSpan: atoiOr(td.AttrOr("rowspan", ""), 1),
				Header:  td.Data == "th",
			}
			for _, el := range parseBlocks(td.Children) {
				switch e := el.(type) {
				case Paragraph:
					cell.Content = append(cell.Content, e)
				case Heading:
					cell.Content = append(cell.Content, e.Paragraph)
				case Code:
					cell.Content = append(cell.Content, Paragraph{Content: []any{Text{Content: e.Content, Mono: true}}})
				}
			}
			row = append(row, cell)
		}
		if len(row) > 0 {
			table.Rows = append(table.Rows, row)
		}
	}
	return table
}

// PlainText текст абзаца без форматирования.
func (p Paragraph) PlainText() string {
	var sb strings.Builder
	for _, c := range p.Content {
		switch t := c.(type) {
		case Text:
			sb.WriteString(t.Content)
		case HardBreak:
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func hasText(content []any) bool {
	for _, c := range content {
		switch t := c.(type) {
		case Text:
			if strings.TrimSpace(t.Content) != "" {
				return true
			}
		case Image:
			return true
		}
	}
	return false
}

func hasBlockChild(n *doctree.Node) bool {
	for _, c := range n.Children {
		if doctree.IsBlock(c) {
			return true
		}
	}
	return false
}

func toTextAlign(raw string) TextAlign {
	switch strings.TrimSpace(raw) {
	case "center":
		return CenterAlign
	case "right":
		return RightAlign
	case "justify":
		return JustifyAlign
	}
	return LeftAlign
}

// sizeToPt переводит px, pt, em и rem в пункты. Единица по умолчанию px.
func sizeToPt(raw string) float64 {
	raw = strings.TrimSpace(strings.ToLower(raw))
	mult := 0.75
	switch {
	case strings.HasSuffix(raw, "pt"):
		mult = 1
		raw = strings.TrimSuffix(raw, "pt")
	case strings.HasSuffix(raw, "rem"):
		mult = 12
		raw = strings.TrimSuffix(raw, "rem")
	case strings.HasSuffix(raw, "em"):
		mult = 12
		raw = strings.TrimSuffix(raw, "em")
	default:
		raw = strings.TrimSuffix(raw, "px")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v * mult
}

func atoiOr(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return def
	}
	return v
}
