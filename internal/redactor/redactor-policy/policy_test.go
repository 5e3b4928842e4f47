package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditorPolicy(t *testing.T) {
	got := EditorPolicy.Sanitize(`<p onclick="x()">hi<script>alert(1)</script></p>`)
	assert.Equal(t, "<p>hi</p>", got)

	got = EditorPolicy.Sanitize(`<span class="syntax-keyword">const</span><span class="evil">x</span>`)
	assert.Contains(t, got, `class="syntax-keyword"`)
	assert.NotContains(t, got, "evil")

	got = EditorPolicy.Sanitize(`<td colspan="2" rowspan="x">a</td>`)
	assert.NotContains(t, got, "rowspan")

	got = EditorPolicy.Sanitize(`<font face="Georgia" size="5">a</font>`)
	assert.Contains(t, got, `face="Georgia"`)
	assert.Contains(t, got, `size="5"`)

	got = EditorPolicy.Sanitize(`<p style="color: red; position: fixed">a</p>`)
	assert.Contains(t, got, "color: red")
	assert.NotContains(t, got, "position")
}

func TestStripTagsPolicy(t *testing.T) {
	assert.Equal(t, "Title", StripTagsPolicy.Sanitize("<b>Title</b>"))
}

func TestReplaceImages(t *testing.T) {
	assert.Equal(t, "", ReplaceImages(""))
	assert.Equal(t, "<p>a&lt;изображение: cat&gt;b</p>", ReplaceImages(`<p>a<img src="c.png" alt="cat">b</p>`))
	assert.Equal(t, "<p>&lt;изображение: c.png&gt;</p>", ReplaceImages(`<p><img src="c.png"></p>`))
	assert.Equal(t, "<div>&lt;изображение&gt;</div>", ReplaceImages(`<div><img src="data:image/png;base64,AAA"></div>`))
}
