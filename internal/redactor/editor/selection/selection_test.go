package selection

import (
	"testing"

	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestore(t *testing.T) {
	root := doctree.Parse("<p>hello <b>world</b></p><p>second</p>")

	sel := Endpoints{
		Start: Endpoint{Path: doctree.Path{0, 0}, Offset: 2},
		End:   Endpoint{Path: doctree.Path{1, 0}, Offset: 3},
		Valid: true,
	}
	r := Snapshot(root, sel)
	assert.Equal(t, 2, r.Start)
	assert.Equal(t, 14, r.End)

	back := Restore(root, r)
	require.True(t, back.Valid)
	assert.Equal(t, sel.Start, back.Start)
	assert.Equal(t, sel.End, back.End)
}

func TestSnapshotElementContainer(t *testing.T) {
	root := doctree.Parse("<p>ab<img src=x>cd</p>")
	// курсор между картинкой и "cd"
	sel := Caret(Endpoint{Path: doctree.Path{0}, Offset: 2})
	r := Snapshot(root, sel)
	assert.Equal(t, 2, r.Start)
	assert.True(t, r.Collapsed())
}

func TestSnapshotSurvivesRestructure(t *testing.T) {
	root := doctree.Parse("<p>hello world</p>")
	sel := Endpoints{
		Start: Endpoint{Path: doctree.Path{0, 0}, Offset: 6},
		End:   Endpoint{Path: doctree.Path{0, 0}, Offset: 11},
		Valid: true,
	}
	err := Track(root, &sel, func(r *Range) error {
		for _, n := range doctree.TextNodesInRange(root, r.Start, r.End) {
			n.Wrap(doctree.NewElement("b"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>hello <b>world</b></p>", doctree.Render(root))

	r := Snapshot(root, sel)
	assert.Equal(t, 6, r.Start)
	assert.Equal(t, 11, r.End)
}

func TestRestoreFallbacks(t *testing.T) {
	t.Run("nearest surviving ancestor", func(t *testing.T) {
		root := doctree.Parse("<p>abc</p><p>de</p>")
		r := Range{Start: 40, End: 40, Anchor: doctree.Path{0, 3}}
		sel := Restore(root, r)
		require.True(t, sel.Valid)
		assert.Equal(t, Endpoint{Path: doctree.Path{0, 0}, Offset: 3}, sel.Start)
	})

	t.Run("end of document", func(t *testing.T) {
		root := doctree.Parse("<p>abc</p><p>de</p>")
		sel := Restore(root, Range{Start: 40, End: 40})
		require.True(t, sel.Valid)
		assert.Equal(t, Endpoint{Path: doctree.Path{1, 0}, Offset: 2}, sel.Start)
	})

	t.Run("empty document", func(t *testing.T) {
		root := doctree.Parse("")
		sel := Restore(root, Range{Start: 0, End: 0})
		require.True(t, sel.Valid)
		assert.Equal(t, Endpoint{Path: doctree.Path{}, Offset: 0}, sel.Start)
	})

	t.Run("focus only", func(t *testing.T) {
		sel := Restore(nil, Range{Start: 1, End: 1})
		assert.False(t, sel.Valid)
		assert.True(t, sel.Focused)
	})

	t.Run("end collapses to start", func(t *testing.T) {
		root := doctree.Parse("<p>abc</p>")
		sel := Restore(root, Range{Start: 1, End: 10})
		assert.Equal(t, sel.Start, sel.End)
	})
}

func TestSelectionStability(t *testing.T) {
	mutations := map[string]func(root *doctree.Node){
		"delete everything": func(root *doctree.Node) {
			root.Children = nil
		},
		"delete tail": func(root *doctree.Node) {
			doctree.DeleteSpan(root, 3, doctree.TextLength(root))
		},
		"split block": func(root *doctree.Node) {
			doctree.SplitBlockAt(root, 4)
		},
		"wrap all text": func(root *doctree.Node) {
			for _, n := range doctree.TextNodes(root) {
				n.Wrap(doctree.NewElement("i"))
			}
		},
	}
	for name, m := range mutations {
		t.Run(name, func(t *testing.T) {
			for end := 0; end <= 12; end++ {
				root := doctree.Parse("<p>first</p><p>second <b>x</b></p>")
				sel := Restore(root, Range{Start: end / 2, End: end})
				r := Snapshot(root, sel)
				m(root)
				after := Snapshot(root, Restore(root, r))
				total := doctree.TextLength(root)
				assert.LessOrEqual(t, after.Start, total)
				assert.LessOrEqual(t, after.End, total)
			}
		})
	}
}
