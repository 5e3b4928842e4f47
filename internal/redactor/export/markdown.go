package export

import (
	"io"
	"strconv"
	"strings"

	md "github.com/nao1215/markdown"
)

// RenderMarkdown пишет документ в Markdown: заголовок документа первым уровнем, затем содержимое.
func RenderMarkdown(title, content string, out io.Writer) error {
	doc := ParseDocument(content)

	m := md.NewMarkdown(out)
	if title = strings.TrimSpace(title); title != "" {
		m.H1(title)
	}
	for _, el := range doc.Elements {
		writeMarkdown(m, el)
	}
	return m.Build()
}

func writeMarkdown(m *md.Markdown, rawElement any) {
	switch el := rawElement.(type) {
	case Heading:
		text := inlineMarkdown(el.Content)
		switch el.Level {
		case 1:
			m.H1(text)
		case 2:
			m.H2(text)
		case 3:
			m.H3(text)
		case 4:
			m.H4(text)
		case 5:
			m.H5(text)
		default:
			m.H6(text)
		}
	case Paragraph:
		if text := inlineMarkdown(el.Content); strings.TrimSpace(text) != "" {
			// пустая строка разделяет абзацы
			m.PlainText(text + "\n")
		}
	case Quote:
		var parts []string
		for _, c := range el.Content {
			parts = append(parts, blockText(c))
		}
		m.Blockquote(strings.Join(parts, "\n"))
	case List:
		if nested(el) {
			m.PlainText(strings.Join(listLines(el, 0), "\n") + "\n")
			return
		}
		items := make([]string, 0, len(el.Elements))
		for _, e := range el.Elements {
			items = append(items, itemText(e))
		}
		if el.Numbered {
			m.OrderedList(items...)
		} else {
			m.BulletList(items...)
		}
	case Code:
		m.CodeBlocks(md.SyntaxHighlight(""), strings.TrimRight(el.Content, "\n"))
	case Rule:
		m.HorizontalRule()
	case Table:
		if set, ok := tableSet(el); ok {
			m.CustomTable(set, md.TableOptions{AutoWrapText: false})
		}
	}
}

func inlineMarkdown(content []any) string {
	var sb strings.Builder
	for _, c := range content {
		switch t := c.(type) {
		case Text:
			sb.WriteString(inlineText(t))
		case HardBreak:
			sb.WriteString("  \n")
		case Image:
			sb.WriteString(md.Image(t.Alt, t.Src))
		}
	}
	return sb.String()
}

// inlineText оборачивает текст в маркеры. Пробелы по краям остаются снаружи маркеров,
// иначе Markdown их не распознает.
func inlineText(t Text) string {
	core := strings.TrimSpace(t.Content)
	if core == "" {
		return t.Content
	}
	lead := t.Content[:strings.Index(t.Content, core)]
	trail := t.Content[len(lead)+len(core):]

	switch {
	case t.Mono:
		core = md.Code(core)
	case t.Strong && t.Italic:
		core = md.BoldItalic(core)
	case t.Strong:
		core = md.Bold(core)
	case t.Italic:
		core = md.Italic(core)
	}
	if t.Strikethrough {
		core = md.Strikethrough(core)
	}
	if t.URL != "" {
		core = md.Link(core, t.URL)
	}
	return lead + core + trail
}

func blockText(el any) string {
	switch e := el.(type) {
	case Heading:
		return strings.Repeat("#", e.Level) + " " + inlineMarkdown(e.Content)
	case Paragraph:
		return inlineMarkdown(e.Content)
	case Code:
		return md.Code(e.Content)
	case List:
		return strings.Join(listLines(e, 0), "\n")
	case Quote:
		var parts []string
		for _, c := range e.Content {
			parts = append(parts, blockText(c))
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

func itemText(e ListElement) string {
	var parts []string
	for _, c := range e.Content {
		if _, ok := c.(List); ok {
			continue
		}
		if text := strings.TrimSpace(blockText(c)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func nested(l List) bool {
	for _, e := range l.Elements {
		for _, c := range e.Content {
			if _, ok := c.(List); ok {
				return true
			}
		}
	}
	return false
}

func listLines(l List, level int) []string {
	var lines []string
	indent := strings.Repeat("  ", level)
	for i, e := range l.Elements {
		marker := "-"
		if l.Numbered {
			marker = strconv.Itoa(i+1) + "."
		}
		lines = append(lines, indent+marker+" "+itemText(e))
		for _, c := range e.Content {
			if sub, ok := c.(List); ok {
				lines = append(lines, listLines(sub, level+1)...)
			}
		}
	}
	return lines
}

// tableSet первая строка таблицы становится заголовком, строки дополняются до ширины заголовка.
func tableSet(t Table) (md.TableSet, bool) {
	if len(t.Rows) == 0 {
		return md.TableSet{}, false
	}
	width := 0
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		var cells []string
		for _, cell := range row {
			var parts []string
			for _, p := range cell.Content {
				parts = append(parts, strings.TrimSpace(inlineMarkdown(p.Content)))
			}
			cells = append(cells, strings.Join(parts, " "))
			for range cell.ColSpan - 1 {
				cells = append(cells, "")
			}
		}
		width = max(width, len(cells))
		rows = append(rows, cells)
	}
	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}
	return md.TableSet{Header: rows[0], Rows: rows[1:]}, true
}
