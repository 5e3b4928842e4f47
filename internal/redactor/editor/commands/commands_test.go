package commands

import (
	"testing"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepare(markup string, start, end int) (*doctree.Node, selection.Endpoints) {
	root := doctree.Parse(markup)
	sel := selection.Restore(root, selection.Range{Start: start, End: end})
	return root, sel
}

func run(t *testing.T, markup string, start, end int, cmd Command) (string, selection.Range) {
	t.Helper()
	root, sel := prepare(markup, start, end)
	_, err := Execute(root, &sel, cmd)
	require.NoError(t, err)
	return doctree.Render(root), selection.Snapshot(root, sel)
}

func TestToggleSymmetry(t *testing.T) {
	toggles := []Command{
		Bold{}, Italic{}, Underline{}, StrikeThrough{}, Superscript{}, Subscript{},
		BackColor{Color: "yellow"},
	}
	for _, tag := range []string{"p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre", "div"} {
		toggles = append(toggles, FormatBlock{Tag: tag})
	}

	cases := []struct {
		markup     string
		start, end int
	}{
		{"<p>hello world</p>", 6, 11},
		{"<p>hello world</p>", 0, 11},
		{"<p>hello world</p>", 3, 3},
		{"<p>one</p><p>two</p>", 1, 5},
		{`<p style="margin-left: 40px;">hello</p>`, 0, 5},
		{`<p style="color: red;">hello</p>`, 2, 2},
		{`<p style="font-style: italic; text-align: center;">hello</p>`, 1, 4},
	}

	for _, cmd := range toggles {
		for _, c := range cases {
			root, sel := prepare(c.markup, c.start, c.end)
			before := doctree.Render(root)

			_, err := Execute(root, &sel, cmd)
			require.NoError(t, err)
			once := doctree.Render(root)

			_, err = Execute(root, &sel, cmd)
			require.NoError(t, err)
			assert.Equal(t, before, doctree.Render(root), "%s on %s [%d,%d], after first apply: %s", cmd.Name(), c.markup, c.start, c.end, once)
		}
	}
}

func TestToggleWithNestedFormatting(t *testing.T) {
	for _, cmd := range []Command{Bold{}, Superscript{}, Underline{}} {
		root, sel := prepare("<p>a<i>bc</i>d</p>", 0, 4)
		_, err := Execute(root, &sel, cmd)
		require.NoError(t, err)
		_, err = Execute(root, &sel, cmd)
		require.NoError(t, err)
		assert.Equal(t, "<p>a<i>bc</i>d</p>", doctree.Render(root), cmd.Name())
	}
}

func TestBold(t *testing.T) {
	got, rng := run(t, "<p>hello world</p>", 6, 11, Bold{})
	assert.Equal(t, "<p>hello <b>world</b></p>", got)
	assert.Equal(t, 6, rng.Start)
	assert.Equal(t, 11, rng.End)

	got, _ = run(t, "<p>hello <strong>world</strong></p>", 6, 11, Bold{})
	assert.Equal(t, "<p>hello world</p>", got)

	got, _ = run(t, "<p><b>hello world</b></p>", 0, 5, Bold{})
	assert.Equal(t, "<p>hello<b> world</b></p>", got)
}

func TestNoSelectionAppliesToDocument(t *testing.T) {
	got, rng := run(t, "<p>hello</p><p>world</p>", -1, -1, Italic{})
	assert.Equal(t, "<p><i>hello</i></p><p><i>world</i></p>", got)
	assert.Equal(t, 0, rng.Start)
	assert.Equal(t, 10, rng.End)

	got, _ = run(t, "<p>hello</p>", 2, 2, Bold{})
	assert.Equal(t, "<p><b>hello</b></p>", got)
}

func TestColorsAndFonts(t *testing.T) {
	root, sel := prepare("<p>hello</p>", 0, 5)
	_, err := Execute(root, &sel, ForeColor{Color: "red"})
	require.NoError(t, err)
	assert.Equal(t, `<p><span style="color: red;">hello</span></p>`, doctree.Render(root))

	_, err = Execute(root, &sel, ForeColor{Color: "blue"})
	require.NoError(t, err)
	assert.Equal(t, `<p><span style="color: blue;">hello</span></p>`, doctree.Render(root))

	got, _ := run(t, "<p>hello</p>", 0, 5, FontSize{Size: "5"})
	assert.Equal(t, `<p><font size="5">hello</font></p>`, got)

	got, _ = run(t, "<p>hello</p>", 0, 5, FontName{Face: "Georgia"})
	assert.Equal(t, `<p><font face="Georgia">hello</font></p>`, got)

	got, _ = run(t, "<p>hello</p>", 0, 5, BackColor{Color: "yellow"})
	assert.Equal(t, `<p><span style="background-color: yellow;">hello</span></p>`, got)
}

func TestFormatBlock(t *testing.T) {
	got, _ := run(t, "<p>title</p>", 2, 2, FormatBlock{Tag: "h2"})
	assert.Equal(t, "<h2>title</h2>", got)

	got, _ = run(t, "<h2>title</h2>", 2, 2, FormatBlock{Tag: "h2"})
	assert.Equal(t, "<p>title</p>", got)

	got, _ = run(t, "<p>quote</p>", 1, 1, FormatBlock{Tag: "blockquote"})
	assert.Equal(t, `<blockquote style="border-left: 4px solid #e5e7eb; padding-left: 1rem; margin-left: 0; font-style: italic; color: inherit;" data-quote-stamp="border-left padding-left margin-left font-style color">quote</blockquote>`, got)

	// собственные свойства блока остаются как есть
	got, _ = run(t, `<p style="margin-left: 40px; color: red;">quote</p>`, 1, 1, FormatBlock{Tag: "blockquote"})
	assert.Equal(t, `<blockquote style="margin-left: 40px; color: red; border-left: 4px solid #e5e7eb; padding-left: 1rem; font-style: italic;" data-quote-stamp="border-left padding-left font-style">quote</blockquote>`, got)

	// цитата без отметки снимает только совпадающее оформление
	got, _ = run(t, `<blockquote style="border-left: 4px solid #e5e7eb; color: red;">quote</blockquote>`, 1, 1, FormatBlock{Tag: "blockquote"})
	assert.Equal(t, `<p style="color: red;">quote</p>`, got)

	// голый текст сначала оборачивается в абзац
	got, _ = run(t, "plain", 1, 1, FormatBlock{Tag: "h1"})
	assert.Equal(t, "<h1>plain</h1>", got)
}

func TestIndentThenQuoteToggle(t *testing.T) {
	root, sel := prepare("<p>a</p>", 1, 1)
	_, err := Execute(root, &sel, Indent{})
	require.NoError(t, err)
	indented := doctree.Render(root)
	require.Equal(t, `<p style="margin-left: 40px;">a</p>`, indented)

	_, err = Execute(root, &sel, FormatBlock{Tag: "blockquote"})
	require.NoError(t, err)
	assert.Equal(t, "40px", root.FindAll("blockquote")[0].Style("margin-left"))

	_, err = Execute(root, &sel, FormatBlock{Tag: "blockquote"})
	require.NoError(t, err)
	assert.Equal(t, indented, doctree.Render(root))
}

func TestLists(t *testing.T) {
	root, sel := prepare("<p>a</p><p>b</p>", 0, 2)
	_, err := Execute(root, &sel, InsertUnorderedList{})
	require.NoError(t, err)
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", doctree.Render(root))

	_, err = Execute(root, &sel, InsertOrderedList{})
	require.NoError(t, err)
	assert.Equal(t, "<ol><li>a</li><li>b</li></ol>", doctree.Render(root))

	_, err = Execute(root, &sel, InsertOrderedList{})
	require.NoError(t, err)
	assert.Equal(t, "<p>a</p><p>b</p>", doctree.Render(root))

	got, _ := run(t, "<ul><li>a</li><li>b</li><li>c</li></ul>", 2, 2, InsertUnorderedList{})
	assert.Equal(t, "<ul><li>a</li></ul><p>b</p><ul><li>c</li></ul>", got)
}

func TestIndentOutdent(t *testing.T) {
	root, sel := prepare("<ul><li>a</li><li>b</li></ul>", 2, 2)
	_, err := Execute(root, &sel, Indent{})
	require.NoError(t, err)
	assert.Equal(t, "<ul><li>a<ul><li>b</li></ul></li></ul>", doctree.Render(root))

	_, err = Execute(root, &sel, Outdent{})
	require.NoError(t, err)
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", doctree.Render(root))

	root, sel = prepare("<p>a</p>", 1, 1)
	_, err = Execute(root, &sel, Indent{})
	require.NoError(t, err)
	assert.Equal(t, `<p style="margin-left: 40px;">a</p>`, doctree.Render(root))

	_, err = Execute(root, &sel, Outdent{})
	require.NoError(t, err)
	assert.Equal(t, "<p>a</p>", doctree.Render(root))
}

func TestJustify(t *testing.T) {
	got, _ := run(t, "<p>a</p>", 1, 1, Justify{Align: AlignCenter})
	assert.Equal(t, `<p style="text-align: center;">a</p>`, got)

	got, _ = run(t, "hello", 1, 1, Justify{Align: AlignRight})
	assert.Equal(t, `<p style="text-align: right;">hello</p>`, got)
}

func TestCreateLink(t *testing.T) {
	got, _ := run(t, "<p>www.example.com</p>", 0, 15, CreateLink{URL: "www.example.com"})
	assert.Equal(t, `<p><a href="https://www.example.com" target="_blank" rel="noopener noreferrer">www.example.com</a></p>`, got)

	got, rng := run(t, "<p>go </p>", 3, 3, CreateLink{URL: "example.com"})
	assert.Equal(t, `<p>go <a href="https://example.com" target="_blank" rel="noopener noreferrer">example.com</a></p>`, got)
	assert.Equal(t, 3, rng.Start)
	assert.Equal(t, 14, rng.End)

	root, sel := prepare("<p>text</p>", 0, 4)
	_, err := Execute(root, &sel, CreateLink{URL: "  "})
	assert.ErrorIs(t, err, apierrors.ErrLinkURLRequired)
	assert.Equal(t, "<p>text</p>", doctree.Render(root))
}

func TestInsertHorizontalRule(t *testing.T) {
	got, _ := run(t, "<p>ab</p>", 1, 1, InsertHorizontalRule{})
	assert.Equal(t, "<p>a</p><hr><p>b</p>", got)

	got, _ = run(t, "<p>ab</p>", -1, -1, InsertHorizontalRule{})
	assert.Equal(t, "<p>ab</p><hr><p><br></p>", got)
}

func TestInsertImage(t *testing.T) {
	got, _ := run(t, "<p>ab</p>", -1, -1, InsertImage{Image: ImageSpec{URL: "x.png", Alignment: ImageCenter}})
	assert.Contains(t, got, `<div style="text-align: center; margin: 10px 0; clear: both;"><img src="x.png" alt="" width="300" height="200" style="max-width: 100%;" contenteditable="false"></div><p></p>`)

	got, _ = run(t, "<p>ab</p>", 1, 1, InsertImage{Image: ImageSpec{URL: "x.png", Width: 50, Height: 40, Alignment: ImageRight}})
	assert.Contains(t, got, `width="50" height="40" style="float: right;`)
	assert.Contains(t, got, "<p>a<img")

	root, sel := prepare("<p>ab</p>", 1, 1)
	_, err := Execute(root, &sel, InsertImage{})
	assert.ErrorIs(t, err, apierrors.ErrImageURLRequired)
	assert.Equal(t, "<p>ab</p>", doctree.Render(root))
}

func TestInsertTableRequestsDialog(t *testing.T) {
	root, sel := prepare("<p>ab</p>", 1, 1)
	res, err := Execute(root, &sel, InsertTable{})
	require.NoError(t, err)
	require.NotNil(t, res.Dialog)
	assert.Equal(t, TableDialog, res.Dialog.Kind)
	assert.Equal(t, "<p>ab</p>", doctree.Render(root))
}

func TestParse(t *testing.T) {
	cmd, err := Parse("formatBlock:h2", "")
	require.NoError(t, err)
	assert.Equal(t, FormatBlock{Tag: "h2"}, cmd)

	cmd, err = Parse("formatBlock", "<H3>")
	require.NoError(t, err)
	assert.Equal(t, FormatBlock{Tag: "h3"}, cmd)

	cmd, err = Parse("hiliteColor", "yellow")
	require.NoError(t, err)
	assert.Equal(t, BackColor{Color: "yellow"}, cmd)

	cmd, err = Parse("fontName:Georgia", "")
	require.NoError(t, err)
	assert.Equal(t, FontName{Face: "Georgia"}, cmd)
	assert.Equal(t, "fontName", cmd.Name())

	cmd, err = Parse("justifyFull", "")
	require.NoError(t, err)
	assert.Equal(t, "justifyFull", cmd.Name())

	_, err = Parse("explode", "")
	assert.ErrorIs(t, err, apierrors.ErrUnknownCommand)

	_, err = Parse("formatBlock", "table")
	assert.ErrorIs(t, err, apierrors.ErrUnknownCommand)

	_, err = Parse("foreColor", "")
	assert.ErrorIs(t, err, apierrors.ErrCommandValueRequired)
}
