package editor

import (
	"strings"
	"testing"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/editor/commands"
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
	"github.com/aisa-it/redactor/internal/redactor/editor/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func caretAt(path ...int) selection.Endpoints {
	return selection.Caret(selection.Endpoint{Path: doctree.Path(path)})
}

func TestTypingInEmptyDocument(t *testing.T) {
	s := New("s1", "")
	s.InsertText("hi")
	assert.Equal(t, "<p>hi</p>", s.Content())
	assert.Equal(t, 1, s.Revision())
	assert.Equal(t, selection.Range{Start: 2, End: 2}, rangeOnly(s.SelectionRange()))
}

func TestEnterAndBackspace(t *testing.T) {
	s := New("s1", "<p>hello</p>")
	s.Select(2, 2)

	s.Enter()
	assert.Equal(t, "<p>he</p><p>llo</p>", s.Content())

	s.InsertText("X")
	assert.Equal(t, "<p>he</p><p>Xllo</p>", s.Content())

	s.Backspace()
	assert.Equal(t, "<p>he</p><p>llo</p>", s.Content())

	// курсор остался в начале второго абзаца, блоки склеиваются
	s.Backspace()
	assert.Equal(t, "<p>hello</p>", s.Content())

	s.Backspace()
	assert.Equal(t, "<p>hllo</p>", s.Content())
}

func TestEnterAtBlockStart(t *testing.T) {
	s := New("s1", "<p>ab</p><p>cd</p>")
	s.SetSelection(caretAt(1, 0))

	s.Enter()
	s.InsertText("Z")
	assert.Equal(t, "<p>ab</p><p><br></p><p>Zcd</p>", s.Content())
}

func TestEnterLeavesQuote(t *testing.T) {
	s := New("s1", "<blockquote><p>q</p></blockquote>")
	s.Select(1, 1)

	s.Enter()
	s.InsertText("n")
	assert.True(t, strings.HasSuffix(s.Content(), "</blockquote><p>n</p>"), s.Content())
}

func TestBackspaceRemovesImage(t *testing.T) {
	s := New("s1", `<p>a<img src="x.png">b</p>`)
	s.SetSelection(caretAt(0, 2))

	s.Backspace()
	assert.Equal(t, "<p>ab</p>", s.Content())
	assert.Equal(t, 2, s.CharacterCount())
}

func TestBackspaceSelection(t *testing.T) {
	s := New("s1", "<p>hello world</p>")
	s.Select(5, 11)
	s.Backspace()
	assert.Equal(t, "<p>hello</p>", s.Content())
	assert.True(t, s.Selection().Collapsed())
}

func TestPasteStripsColors(t *testing.T) {
	s := New("s1", "<p>ab</p>")
	s.Select(1, 1)

	s.Paste("text/html; charset=utf-8", `<p style="color:red" class="text-red-500">Red</p>`)
	got := s.Content()
	assert.NotContains(t, got, "color")
	assert.NotContains(t, got, "class")
	assert.Contains(t, got, "<p>Red</p>")
	assert.Equal(t, "aRedb", doctree.TextContent(s.Root()))
}

func TestPasteInline(t *testing.T) {
	s := New("s1", "<p>ab</p>")
	s.Select(1, 1)

	s.Paste(MimeHTML, `<span style="font-size: 12px; background-color: yellow" class="bg-white">X</span><script>alert(1)</script>`)
	got := s.Content()
	assert.Contains(t, got, "font-size: 12px;")
	assert.NotContains(t, got, "background")
	assert.NotContains(t, got, "script")
	assert.Equal(t, "aXb", doctree.TextContent(s.Root()))
}

func TestPasteLinksOpenInNewTab(t *testing.T) {
	s := New("s1", "<p>ab</p>")
	s.Select(2, 2)

	s.Paste(MimeHTML, `<a href="example.com">site</a>`)
	got := s.Content()
	assert.Contains(t, got, `href="https://example.com"`)
	assert.Contains(t, got, `target="_blank"`)
}

func TestPastePlainText(t *testing.T) {
	s := New("s1", "<p>ab</p>")
	s.Select(1, 1)

	s.Paste(MimeText, "<b>x</b>")
	assert.Equal(t, "<p>a&lt;b&gt;x&lt;/b&gt;b</p>", s.Content())
}

func TestHighlightingRoundTrip(t *testing.T) {
	const plain = "<p>const x = 1;</p>"
	s := New("s1", plain)

	s.SetHighlighting(true)
	assert.True(t, s.Highlighting())
	assert.Contains(t, doctree.Render(s.Root()), `class="syntax-keyword"`)
	assert.Equal(t, plain, s.Content())

	s.SetHighlighting(false)
	assert.Equal(t, plain, doctree.Render(s.Root()))
}

func TestHighlightingSurvivesEdits(t *testing.T) {
	s := New("s1", "<p>const x = 1;</p>", WithHighlighting(true))
	assert.Contains(t, doctree.Render(s.Root()), "syntax-")

	s.Select(12, 12)
	s.InsertText(" 2")
	assert.Equal(t, "<p>const x = 1; 2</p>", s.Content())
	assert.Contains(t, doctree.Render(s.Root()), `<span class="syntax-number">2</span>`)

	s.SetHighlighting(false)
	assert.Equal(t, "<p>const x = 1; 2</p>", doctree.Render(s.Root()))
}

func TestExecWithoutSelectionAppliesToDocument(t *testing.T) {
	s := New("s1", "<p>a</p><p>b</p>")
	_, err := s.Exec(commands.Bold{})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(s.Content(), "<b>"))
}

func TestExecError(t *testing.T) {
	s := New("s1", "<p>ab</p>")
	s.Select(0, 2)
	_, err := s.Exec(commands.CreateLink{URL: " "})
	assert.ErrorIs(t, err, apierrors.ErrLinkURLRequired)
	assert.Equal(t, "<p>ab</p>", s.Content())
	assert.Equal(t, 0, s.Revision())
}

func TestTableDialog(t *testing.T) {
	s := New("s1", "<p>ab</p>")
	s.Select(1, 1)

	res, err := s.Exec(commands.InsertTable{})
	require.NoError(t, err)
	require.NotNil(t, res.Dialog)
	assert.Equal(t, commands.TableDialog, res.Dialog.Kind)
	kind, ok := s.PendingDialog()
	assert.True(t, ok)
	assert.Equal(t, commands.TableDialog, kind)

	// фокус ушел в диалог
	s.SetSelection(selection.FocusOnly())

	s.InsertTable(2, 2, false, false)
	_, ok = s.PendingDialog()
	assert.False(t, ok)

	got := s.Content()
	assert.Equal(t, 2, strings.Count(got, "<tr"))
	assert.True(t, strings.HasPrefix(got, "<p>a</p><table"), got)
	assert.Contains(t, got, "<p>b</p>")
}

func TestImageDialog(t *testing.T) {
	s := New("s1", "<p>ab</p>")
	s.Select(2, 2)

	res, err := s.Exec(commands.InsertImage{})
	require.NoError(t, err)
	require.NotNil(t, res.Dialog)
	assert.Equal(t, commands.ImageDialog, res.Dialog.Kind)

	assert.ErrorIs(t, s.InsertImage(commands.ImageSpec{}), apierrors.ErrImageURLRequired)

	require.NoError(t, s.InsertImage(commands.ImageSpec{URL: "cat.png", Alt: "cat"}))
	got := s.Content()
	assert.Contains(t, got, `src="cat.png"`)
	assert.Contains(t, got, `contenteditable="false"`)
}

func TestCancelDialogRestoresSelection(t *testing.T) {
	s := New("s1", "<p>abc</p>")
	s.Select(1, 2)
	_, err := s.Exec(commands.InsertTable{})
	require.NoError(t, err)

	s.SetSelection(selection.FocusOnly())
	s.CancelDialog()
	assert.Equal(t, selection.Range{Start: 1, End: 2}, rangeOnly(s.SelectionRange()))
}

func TestTableOperations(t *testing.T) {
	s := New("s1", "<table><tbody><tr><td>a</td><td>b</td></tr></tbody></table><p>x</p>")
	s.Select(1, 1)

	require.NoError(t, s.Table(table.AddRowBelow))
	assert.Equal(t, 2, strings.Count(s.Content(), "<tr"))

	s.Select(3, 3)
	assert.ErrorIs(t, s.Table(table.AddRowBelow), apierrors.ErrNotInTable)
}

func TestShortcuts(t *testing.T) {
	s := New("s1", "<p>ab</p>")
	s.Select(0, 2)

	sc, err := s.HandleShortcut("B", true, false)
	require.NoError(t, err)
	assert.Equal(t, Shortcut{Handled: true, Command: "bold"}, sc)
	assert.Equal(t, "<p><b>ab</b></p>", s.Content())

	sc, err = s.HandleShortcut("s", false, true)
	require.NoError(t, err)
	assert.True(t, sc.Save)

	sc, _ = s.HandleShortcut("b", false, false)
	assert.False(t, sc.Handled)
	sc, _ = s.HandleShortcut("x", true, false)
	assert.False(t, sc.Handled)
}

func TestCounters(t *testing.T) {
	s := New("s1", "<p>a</p><p>b<br>c</p>")
	assert.Equal(t, 3, s.CharacterCount())
	assert.Equal(t, 3, s.LineCount())

	s = New("s2", "")
	assert.Equal(t, 0, s.CharacterCount())
	assert.Equal(t, 1, s.LineCount())
}

func rangeOnly(r selection.Range) selection.Range {
	return selection.Range{Start: r.Start, End: r.End}
}
