package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<h2>Title</h2>` +
	`<p>plain <b>bold</b> <a href="https://example.com">link</a></p>` +
	`<ul><li>one</li><li>two<ul><li>nested</li></ul></li></ul>` +
	`<blockquote><p>quote</p></blockquote>` +
	`<pre>func main() {}</pre>` +
	`<hr>` +
	`<table><tbody><tr><th>h</th><td colspan="2">c</td></tr><tr><td>1</td><td>2</td><td>3</td></tr></tbody></table>`

func TestParseDocument(t *testing.T) {
	doc := ParseDocument(sample)
	require.Len(t, doc.Elements, 7)

	h, ok := doc.Elements[0].(Heading)
	require.True(t, ok)
	assert.Equal(t, 2, h.Level)
	assert.Equal(t, "Title", h.PlainText())

	p := doc.Elements[1].(Paragraph)
	require.Len(t, p.Content, 4)
	assert.True(t, p.Content[1].(Text).Strong)
	assert.Equal(t, "https://example.com", p.Content[3].(Text).URL)

	list := doc.Elements[2].(List)
	assert.False(t, list.Numbered)
	require.Len(t, list.Elements, 2)
	require.Len(t, list.Elements[1].Content, 2)
	assert.IsType(t, List{}, list.Elements[1].Content[1])

	assert.IsType(t, Quote{}, doc.Elements[3])
	assert.Equal(t, Code{Content: "func main() {}"}, doc.Elements[4])
	assert.IsType(t, Rule{}, doc.Elements[5])

	table := doc.Elements[6].(Table)
	require.Len(t, table.Rows, 2)
	assert.True(t, table.Rows[0][0].Header)
	assert.Equal(t, 2, table.Rows[0][1].ColSpan)
	assert.Equal(t, 1, table.Rows[1][2].RowSpan)
}

func TestParseInlineStyles(t *testing.T) {
	doc := ParseDocument(`<p style="text-align: center"><span style="color: #ff0000; font-size: 16px">a</span><font size="5" color="blue">b</font><sup>c</sup></p>`)
	p := doc.Elements[0].(Paragraph)
	assert.Equal(t, CenterAlign, p.Align)

	a := p.Content[0].(Text)
	assert.Equal(t, &Color{255, 0, 0}, a.Color)
	assert.Equal(t, 12.0, a.Size)

	b := p.Content[1].(Text)
	assert.Equal(t, 18.0, b.Size)
	assert.Equal(t, &Color{0, 0, 255}, b.Color)

	assert.True(t, p.Content[2].(Text).Sup)
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want *Color
	}{
		{"#ff0000", &Color{255, 0, 0}},
		{"#0F0", &Color{0, 255, 0}},
		{"rgb(0, 128, 255)", &Color{0, 128, 255}},
		{"rgba(10,20,30,0.5)", &Color{10, 20, 30}},
		{"Red", &Color{255, 0, 0}},
		{"inherit", nil},
		{"oklch(0.7 0.1 200)", nil},
		{"", nil},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			assert.Equal(t, c.want, ParseColor(c.in))
		})
	}
}

func TestNeutralizeColors(t *testing.T) {
	for _, space := range []string{"oklch(0.7 0.1 200)", "oklab(0.5 0.1 0.1)", "lab(50% 40 59)", "lch(50% 30 120)", "color(display-p3 1 0 0)", "hwb(0 0% 0%)"} {
		assert.True(t, UnsupportedColorSpace(space), space)
	}
	assert.False(t, UnsupportedColorSpace("#fff"))
	assert.False(t, UnsupportedColorSpace("rgb(1, 2, 3)"))

	root := doctree.Parse(`<p style="color: oklch(0.7 0.1 200); background-color: lab(50% 40 59); text-align: right">x</p><font color="hwb(0 0% 0%)">y</font><span style="color: #123456">z</span>`)
	NeutralizeColors(root)

	p := root.Children[0]
	assert.Equal(t, "#000000", p.Style("color"))
	assert.Equal(t, "#ffffff", p.Style("background-color"))
	assert.Equal(t, "right", p.Style("text-align"))
	assert.Equal(t, "#000000", root.Children[1].AttrOr("color", ""))
	assert.Equal(t, "#123456", root.Children[2].Style("color"))
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown("Doc", `<p>Hello <b>world</b> and <i>more</i></p><ol><li>a</li><li>b</li></ol><pre>x := 1</pre>`, &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Doc"), out)
	assert.Contains(t, out, "Hello **world** and *more*")
	assert.Contains(t, out, "1. a")
	assert.Contains(t, out, "```")
	assert.Contains(t, out, "x := 1")
}

func TestRenderMarkdownNestedList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown("", `<ul><li>one<ul><li>inner</li></ul></li></ul>`, &buf))
	assert.Contains(t, buf.String(), "- one\n  - inner")
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML("Doc", `<p>hi</p><img src="a.png" contenteditable="false"><pre>package main</pre><script>alert(1)</script>`, &buf))
	out := buf.String()

	assert.Contains(t, strings.ToLower(out), "<!doctype html>")
	assert.Contains(t, out, "<title>Doc</title>")
	assert.Contains(t, out, "hi")
	assert.Contains(t, out, "a.png")
	assert.Contains(t, out, "package")
	assert.NotContains(t, out, "contenteditable")
	assert.NotContains(t, out, "alert")
}

func TestRenderPDF(t *testing.T) {
	var buf bytes.Buffer
	content := sample + `<p style="color: oklch(0.7 0.1 200)">Привет, мир</p><p><img src="cat.png" alt="cat"></p>`
	require.NoError(t, RenderPDF("Документ", content, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFTimeout(t *testing.T) {
	e := NewExporter(20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	e.renderPDF = func(title, content string, out io.Writer) error {
		<-release
		return nil
	}

	var buf bytes.Buffer
	err := e.PDF(context.Background(), "t", "<p>x</p>", &buf)
	assert.ErrorIs(t, err, apierrors.ErrExportTimeout)
	assert.Zero(t, buf.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(e.exports.WithLabelValues("pdf", "timeout")))
}

func TestPDFRenderError(t *testing.T) {
	e := NewExporter(time.Second)
	e.renderPDF = func(title, content string, out io.Writer) error {
		return errors.New("broken font")
	}
	err := e.PDF(context.Background(), "t", "<p>x</p>", io.Discard)
	assert.ErrorIs(t, err, apierrors.ErrExportFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.exports.WithLabelValues("pdf", "error")))
}

func TestExport(t *testing.T) {
	e := NewExporter(0)

	var buf bytes.Buffer
	require.NoError(t, e.Export(context.Background(), FormatPDF, "t", "<p>x</p>", &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, e.Export(context.Background(), FormatMarkdown, "t", "<p>x</p>", &buf))
	assert.Contains(t, buf.String(), "# t")

	err := e.Export(context.Background(), Format("docx"), "t", "", io.Discard)
	assert.ErrorIs(t, err, apierrors.ErrUnsupportedExportFormat)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Markdown")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)
	assert.Equal(t, ".md", f.Ext())

	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, apierrors.ErrUnsupportedExportFormat)
}
