package table

import (
	"fmt"
	"testing"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const grid = `<table><tbody><tr><td>a</td><td>b</td></tr><tr><td>c</td><td>d</td></tr></tbody></table><p>x</p>`

func at(markup string, start, end int) (*doctree.Node, selection.Endpoints) {
	root := doctree.Parse(markup)
	return root, selection.Restore(root, selection.Range{Start: start, End: end})
}

func TestInsertScenario(t *testing.T) {
	root := doctree.Parse("")
	sel := selection.FocusOnly()
	table := Insert(root, &sel, 3, 3, true, false)

	rows := Rows(table)
	require.Len(t, rows, 3)
	assert.Equal(t, "thead", rows[0].Parent.Data)
	for _, c := range Cells(rows[0]) {
		assert.Equal(t, "th", c.Data)
	}
	assert.Equal(t, "Header 1", doctree.TextContent(Cells(rows[0])[0]))
	for _, tr := range rows[1:] {
		cells := Cells(tr)
		require.Len(t, cells, 3)
		for _, c := range cells {
			assert.Equal(t, "td", c.Data)
		}
	}

	next := table.NextElementSibling()
	require.NotNil(t, next)
	assert.Equal(t, "<p><br></p>", doctree.OuterHTML(next))

	n, ok := selection.Resolve(root, sel.Start)
	require.True(t, ok)
	assert.Same(t, next, n)
}

func TestBuildInvariants(t *testing.T) {
	for rows := 0; rows <= 22; rows += 3 {
		for cols := 0; cols <= 12; cols += 3 {
			for _, hr := range []bool{false, true} {
				for _, hc := range []bool{false, true} {
					name := fmt.Sprintf("%dx%d/%v/%v", rows, cols, hr, hc)
					root := doctree.Parse("<p>text</p>")
					sel := selection.FocusOnly()
					table := Insert(root, &sel, rows, cols, hr, hc)

					wantRows := clamp(rows, 1, MaxRows)
					wantCols := clamp(cols, 1, MaxCols)
					trs := Rows(table)
					require.Len(t, trs, wantRows, name)
					for _, tr := range trs {
						cells := Cells(tr)
						require.Len(t, cells, wantCols, name)
						for _, c := range cells {
							cs, rs := Span(c)
							assert.GreaterOrEqual(t, cs, 1, name)
							assert.GreaterOrEqual(t, rs, 1, name)
						}
					}
					next := table.NextElementSibling()
					require.NotNil(t, next, name)
					assert.True(t, doctree.IsBlock(next), name)
				}
			}
		}
	}
}

func TestBuildHeaderColumn(t *testing.T) {
	table := Build(3, 2, true, true)
	rows := Rows(table)
	assert.Equal(t, "", doctree.TextContent(Cells(rows[0])[0]))
	assert.Equal(t, "Header 2", doctree.TextContent(Cells(rows[0])[1]))
	assert.Equal(t, "th", Cells(rows[1])[0].Data)
	assert.Equal(t, "Row 2", doctree.TextContent(Cells(rows[1])[0]))
	assert.Equal(t, "td", Cells(rows[1])[1].Data)
}

func TestInsertSplitsParagraph(t *testing.T) {
	root, sel := at("<p>ab</p>", 1, 1)
	Insert(root, &sel, 1, 1, false, false)
	assert.Equal(t, `<p>a</p><table style="border-collapse: collapse; width: 100%; margin: 1rem 0;"><tbody><tr><td style="border: 1px solid #ddd; padding: 8px;"><br></td></tr></tbody></table><p><br></p><p>b</p>`, doctree.Render(root))
}

func TestLocate(t *testing.T) {
	root, sel := at(grid, 3, 3)
	pos, ok := Locate(root, sel)
	require.True(t, ok)
	assert.Equal(t, "c", doctree.TextContent(pos.Cell))
	assert.Equal(t, "tr", pos.Row.Data)
	assert.Equal(t, "table", pos.Table.Data)

	root, sel = at(grid, 5, 5)
	_, ok = Locate(root, sel)
	assert.False(t, ok)

	_, ok = Locate(root, selection.FocusOnly())
	assert.False(t, ok)
}

func TestRows(t *testing.T) {
	root, sel := at(grid, 1, 1)
	require.NoError(t, Apply(root, &sel, AddRowBelow))
	table := root.FindAll("table")[0]
	rows := Rows(table)
	require.Len(t, rows, 3)
	assert.Equal(t, `<tr><td style="border: 1px solid #ddd; padding: 8px;"><br></td><td style="border: 1px solid #ddd; padding: 8px;"><br></td></tr>`, doctree.OuterHTML(rows[1]))

	require.NoError(t, Apply(root, &sel, AddRowAbove))
	assert.Len(t, Rows(table), 4)
	assert.Equal(t, "ab", doctree.TextContent(Rows(table)[1]))
	assert.Equal(t, "a", doctree.TextContent(Cells(Rows(table)[1])[0]))

	require.NoError(t, Apply(root, &sel, DeleteRow))
	assert.Len(t, Rows(table), 3)
}

func TestDeleteLastRowRemovesTable(t *testing.T) {
	root, sel := at(`<table><tbody><tr><td>a</td><td>b</td></tr></tbody></table><p>x</p>`, 1, 1)
	require.NoError(t, Apply(root, &sel, DeleteRow))
	assert.Equal(t, "<p>x</p>", doctree.Render(root))
	assert.True(t, sel.Focused)
}

func TestColumns(t *testing.T) {
	root, sel := at(grid, 1, 1)
	require.NoError(t, Apply(root, &sel, AddColumnRight))
	table := root.FindAll("table")[0]
	for _, tr := range Rows(table) {
		cells := Cells(tr)
		require.Len(t, cells, 3)
		assert.Equal(t, 0, doctree.TextLength(cells[1]))
	}

	require.NoError(t, Apply(root, &sel, AddColumnLeft))
	for _, tr := range Rows(table) {
		cells := Cells(tr)
		require.Len(t, cells, 4)
		assert.Equal(t, 0, doctree.TextLength(cells[0]))
	}

	require.NoError(t, Apply(root, &sel, DeleteColumn))
	assert.Equal(t, "bd", doctree.TextContent(table))

	root, sel = at(`<table><tbody><tr><td>a</td></tr><tr><td>b</td></tr></tbody></table><p>x</p>`, 1, 1)
	require.NoError(t, Apply(root, &sel, DeleteColumn))
	assert.Equal(t, "<p>x</p>", doctree.Render(root))
}

func TestMerge(t *testing.T) {
	root, sel := at(grid, 1, 1)
	before := doctree.Render(root)
	err := Apply(root, &sel, MergeCells)
	assert.ErrorIs(t, err, apierrors.ErrMergeNeedsMultipleCells)
	assert.Equal(t, before, doctree.Render(root))

	root, sel = at(grid, 0, 2)
	require.NoError(t, Apply(root, &sel, MergeCells))
	assert.Equal(t, `<table><tbody><tr><td colspan="2" rowspan="1">a b</td></tr><tr><td>c</td><td>d</td></tr></tbody></table><p>x</p>`, doctree.Render(root))

	root, sel = at(grid, 0, 4)
	require.NoError(t, Apply(root, &sel, MergeCells))
	assert.Equal(t, `<table><tbody><tr><td colspan="2" rowspan="2">a b c d</td></tr><tr></tr></tbody></table><p>x</p>`, doctree.Render(root))
}

func TestSplit(t *testing.T) {
	root, sel := at(`<table><tbody><tr><td colspan="2" rowspan="1">ab</td></tr></tbody></table>`, 1, 1)
	require.NoError(t, Apply(root, &sel, SplitCell))
	assert.Equal(t, `<table><tbody><tr><td>ab</td></tr></tbody></table>`, doctree.Render(root))

	err := Apply(root, &sel, SplitCell)
	assert.ErrorIs(t, err, apierrors.ErrCellCannotSplit)
	assert.Equal(t, `<table><tbody><tr><td>ab</td></tr></tbody></table>`, doctree.Render(root))
}

func TestApplyErrors(t *testing.T) {
	root, sel := at("<p>text</p>", 1, 1)
	assert.ErrorIs(t, Apply(root, &sel, DeleteRow), apierrors.ErrNotInTable)

	_, err := ParseOperation("explode")
	assert.ErrorIs(t, err, apierrors.ErrUnknownTableOperation)

	op, err := ParseOperation("mergeCells")
	require.NoError(t, err)
	assert.Equal(t, MergeCells, op)
}
