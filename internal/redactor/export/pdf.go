package export

import (
	"io"
	"strconv"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	policy "github.com/aisa-it/redactor/internal/redactor/redactor-policy"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	fontFamily = "Go"
	monoFamily = "GoMono"

	baseFontSize = 11.0
	lineFactor   = 0.5
	listIndent   = 6.0
)

var headingSizes = map[int]float64{1: 20, 2: 17, 3: 15, 4: 13, 5: 12, 6: 11}

type pdfWriter struct {
	pdf *fpdf.Fpdf

	defaultMargins Margins
}

type Margins struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

func (m *Margins) GetMargins(pdf fpdf.Pdf) {
	m.Left, m.Top, m.Right, m.Bottom = pdf.GetMargins()
}

// RenderPDF строит PDF документа. Картинки заменяются текстовыми заглушками, цвета
// в неподдерживаемых цветовых пространствах нейтрализуются.
func RenderPDF(title, content string, out io.Writer) error {
	root := doctree.Parse(policy.ReplaceImages(content))
	NeutralizeColors(root)
	doc := DocumentFromTree(root)

	pdf := fpdf.New("P", "mm", "A4", "") // 210*297 mm
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 15)

	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "I", goitalic.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "BI", gobolditalic.TTF)
	pdf.AddUTF8FontFromBytes(monoFamily, "", gomono.TTF)

	w := pdfWriter{pdf: pdf}
	w.defaultMargins.GetMargins(pdf)

	pdf.AddPage()
	if title != "" {
		pdf.SetFont(fontFamily, "B", 20)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 10, cleanUnsupportedSymbols(title), "", "C", false)
		pdf.Bookmark(title, 0, -1)
		pdf.Ln(4)
	}

	w.writeElements(doc.Elements)

	return pdf.Output(out)
}

func (w *pdfWriter) writeElements(elements []any) {
	for _, rawElement := range elements {
		switch el := rawElement.(type) {
		case Heading:
			w.pdf.Ln(2)
			w.writeParagraph(el.Paragraph, headingSizes[el.Level], true)
			w.pdf.Ln(1)
		case Paragraph:
			w.writeParagraph(el, 0, false)
		case Quote:
			w.writeQuote(el)
		case List:
			w.writeList(el, 0)
		case Code:
			w.writeCode(el)
		case Table:
			w.writeTable(el)
		case Rule:
			w.pdf.Ln(2)
			pW, _ := w.pdf.GetPageSize()
			w.pdf.SetDrawColor(229, 231, 235)
			w.pdf.SetLineWidth(0.3)
			w.pdf.Line(w.defaultMargins.Left, w.pdf.GetY(), pW-w.defaultMargins.Right, w.pdf.GetY())
			w.pdf.Ln(3)
		}
	}
}

func (w *pdfWriter) writeParagraph(p Paragraph, size float64, strong bool) {
	left, _, _, _ := w.pdf.GetMargins()
	if p.Indent > 0 {
		w.pdf.SetLeftMargin(left + float64(p.Indent)*listIndent*2)
		w.pdf.SetX(left + float64(p.Indent)*listIndent*2)
	}

	if text, ok := singleRun(p); ok && p.Align != LeftAlign {
		if size > 0 {
			text.Size = size
		}
		text.Strong = text.Strong || strong
		w.prepareText(&text)
		w.pdf.MultiCell(0, w.lineHeight(), text.Content, "", alignStr(p.Align), false)
	} else {
		for _, c := range p.Content {
			switch t := c.(type) {
			case Text:
				if size > 0 && t.Size == 0 {
					t.Size = size
				}
				t.Strong = t.Strong || strong
				w.writeText(t)
			case HardBreak:
				w.pdf.Ln(-1)
			}
		}
		w.pdf.Ln(-1)
	}

	w.pdf.SetLeftMargin(left)
}

func (w *pdfWriter) writeQuote(q Quote) {
	w.pdf.Ln(2)
	y1 := w.pdf.GetY()
	left, _, _, _ := w.pdf.GetMargins()
	w.pdf.SetLeftMargin(left + 5)
	w.pdf.SetX(left + 5)
	w.writeElements(q.Content)
	w.pdf.SetLeftMargin(left)

	w.pdf.SetLineWidth(1)
	w.pdf.SetDrawColor(229, 231, 235)
	w.pdf.Line(left+1, y1, left+1, w.pdf.GetY())
	w.pdf.Ln(2)
}

func (w *pdfWriter) writeList(l List, level int) {
	left, _, _, _ := w.pdf.GetMargins()
	indent := left + listIndent*float64(level+1)
	for i, e := range l.Elements {
		w.pdf.SetFont(fontFamily, "", baseFontSize)
		w.pdf.SetTextColor(0, 0, 0)
		w.pdf.SetX(indent - listIndent + 1)
		marker := "•"
		if l.Numbered {
			marker = strconv.Itoa(i+1) + "."
		}
		w.pdf.Write(w.lineHeight(), marker)

		w.pdf.SetLeftMargin(indent)
		w.pdf.SetX(indent)
		wrote := false
		for _, c := range e.Content {
			switch el := c.(type) {
			case List:
				if !wrote {
					w.pdf.Ln(-1)
				}
				w.writeList(el, level+1)
			default:
				w.writeElements([]any{el})
			}
			wrote = true
		}
		if !wrote {
			w.pdf.Ln(-1)
		}
		w.pdf.SetLeftMargin(left)
	}
}

func (w *pdfWriter) writeCode(c Code) {
	w.pdf.Ln(1)
	w.pdf.SetFont(monoFamily, "", 9)
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.SetFillColor(243, 244, 246)
	w.pdf.MultiCell(0, 4.5, cleanUnsupportedSymbols(c.Content), "", "L", true)
	w.pdf.Ln(2)
}

func (w *pdfWriter) writeTable(t Table) {
	cols := 0
	for _, row := range t.Rows {
		n := 0
		for _, cell := range row {
			n += cell.ColSpan
		}
		cols = max(cols, n)
	}
	if cols == 0 {
		return
	}

	const padding = 1.5
	left, _, right, bottom := w.pdf.GetMargins()
	pW, pH := w.pdf.GetPageSize()
	colWidth := (pW - left - right) / float64(cols)
	lineH := 5.0

	w.pdf.Ln(2)
	for _, row := range t.Rows {
		// высота строки по самой высокой ячейке
		height := lineH
		for _, cell := range row {
			w.setCellFont(cell)
			lines := 0
			for _, p := range cell.Content {
				lines += max(1, len(w.pdf.SplitText(cleanUnsupportedSymbols(p.PlainText()), colWidth*float64(cell.ColSpan)-padding*2)))
			}
			height = max(height, float64(lines)*lineH)
		}
		height += padding * 2

		if w.pdf.GetY()+height > pH-bottom {
			w.pdf.AddPage()
		}

		x, y := left, w.pdf.GetY()
		for _, cell := range row {
			cw := colWidth * float64(cell.ColSpan)
			w.pdf.SetDrawColor(221, 221, 221)
			w.pdf.SetLineWidth(0.2)
			if cell.Header {
				w.pdf.SetFillColor(243, 244, 246)
				w.pdf.Rect(x, y, cw, height, "FD")
			} else {
				w.pdf.Rect(x, y, cw, height, "D")
			}

			w.setCellFont(cell)
			w.pdf.SetXY(x+padding, y+padding)
			for _, p := range cell.Content {
				w.pdf.SetX(x + padding)
				w.pdf.MultiCell(cw-padding*2, lineH, cleanUnsupportedSymbols(p.PlainText()), "", alignStr(p.Align), false)
			}
			x += cw
		}
		w.pdf.SetXY(left, y+height)
	}
	w.pdf.Ln(3)
}

func (w *pdfWriter) setCellFont(cell TableCell) {
	style := ""
	if cell.Header {
		style = "B"
	}
	w.pdf.SetFont(fontFamily, style, 10)
	w.pdf.SetTextColor(0, 0, 0)
}

func (w *pdfWriter) writeText(t Text) {
	w.prepareText(&t)
	if t.Content == "" {
		return
	}
	h := w.lineHeight()

	if t.BgColor != nil {
		x := w.pdf.GetX()
		w.pdf.CellFormat(w.pdf.GetStringWidth(t.Content), h, "", "", 0, "L", true, 0, "")
		w.pdf.SetX(x)
	}

	switch {
	case t.Sup || t.Sub:
		ptSize, _ := w.pdf.GetFontSize()
		offset := ptSize * 0.35
		if t.Sub {
			offset = -offset
		}
		w.pdf.SubWrite(h, t.Content, ptSize*0.7, offset, 0, t.URL)
	default:
		w.pdf.WriteLinkString(h, t.Content, t.URL)
	}
}

func (w *pdfWriter) prepareText(t *Text) {
	t.Content = cleanUnsupportedSymbols(t.Content)

	styleStr := ""
	family := fontFamily
	if t.Mono {
		family = monoFamily
	} else {
		if t.Strong {
			styleStr += "B"
		}
		if t.Italic {
			styleStr += "I"
		}
	}
	if t.Strikethrough {
		styleStr += "S"
	}
	if t.Underlined || t.URL != "" {
		styleStr += "U"
	}
	if t.Size == 0 {
		t.Size = baseFontSize
	}
	w.pdf.SetFont(family, styleStr, t.Size)

	switch {
	case t.Color != nil:
		w.pdf.SetTextColor(t.Color.R, t.Color.G, t.Color.B)
	case t.URL != "":
		w.pdf.SetTextColor(37, 99, 235)
	default:
		w.pdf.SetTextColor(0, 0, 0)
	}

	if t.BgColor != nil {
		w.pdf.SetFillColor(t.BgColor.R, t.BgColor.G, t.BgColor.B)
	}
}

func (w *pdfWriter) lineHeight() float64 {
	_, unitSize := w.pdf.GetFontSize()
	return unitSize + unitSize*lineFactor
}

func singleRun(p Paragraph) (Text, bool) {
	if len(p.Content) != 1 {
		return Text{}, false
	}
	t, ok := p.Content[0].(Text)
	return t, ok
}

func alignStr(a TextAlign) string {
	switch a {
	case CenterAlign:
		return "C"
	case RightAlign:
		return "R"
	case JustifyAlign:
		return "J"
	}
	return "L"
}

// cleanUnsupportedSymbols убирает символы вне базовой плоскости Unicode, которых нет в шрифтах.
func cleanUnsupportedSymbols(text string) string {
	return strings.Map(func(r rune) rune {
		if r >= 65536 {
			return -1
		}
		return r
	}, text)
}
