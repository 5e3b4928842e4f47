package fixups

import (
	"testing"

	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/stretchr/testify/assert"
)

func run(f func(*doctree.Node), in string) string {
	root := doctree.Parse(in)
	f(root)
	return doctree.Render(root)
}

func TestFixImages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"plain image",
			`<p><img src="a.png"></p>`,
			`<p><img src="a.png" contenteditable="false"></p>`,
		},
		{
			"center wrapper",
			`<span contenteditable="false" style="display: block; text-align: center"><img src="a.png"></span>`,
			`<div style="text-align: center; margin: 10px 0; clear: both;"><img src="a.png" contenteditable="false"></div><p></p>`,
		},
		{
			"right wrapper",
			`<p>x<span contenteditable="false" style="float: right"><img src="a.png"></span>y</p>`,
			`<p>x<img src="a.png" contenteditable="false" style="float: right; margin: 10px 0 10px 10px; max-width: 100%;">y</p>`,
		},
		{
			"left wrapper",
			`<p><span contenteditable="false"><img src="a.png" style="width: 10px"></span></p>`,
			`<p><img src="a.png" style="float: left; margin: 10px 10px 10px 0; max-width: 100%;" contenteditable="false"></p>`,
		},
		{
			"editable span untouched",
			`<span style="text-align: center"><img src="a.png"></span>`,
			`<span style="text-align: center"><img src="a.png" contenteditable="false"></span>`,
		},
		{"no images", `<p>text</p>`, `<p>text</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(FixImages, tt.in))
		})
	}
}

func TestFixLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare domain", `<a href="www.example.com">x</a>`, `<a href="https://www.example.com" target="_blank" rel="noopener noreferrer">x</a>`},
		{"http kept", `<a href="http://a.b">x</a>`, `<a href="http://a.b" target="_blank" rel="noopener noreferrer">x</a>`},
		{"relative", `<a href="/docs">x</a>`, `<a href="/docs">x</a>`},
		{"fragment", `<a href="#top">x</a>`, `<a href="#top">x</a>`},
		{"no href", `<a name="x">x</a>`, `<a name="x">x</a>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(FixLinks, tt.in))
		})
	}
}

func TestFixTables(t *testing.T) {
	got := run(FixTables, `<table><tr><td>a</td><td style="border: 2px solid red">b</td></tr></table>`)
	assert.Equal(t,
		`<table style="border-collapse: collapse; width: 100%; margin: 1rem 0;"><tbody><tr>`+
			`<td style="border: 1px solid #ddd; padding: 8px;">a</td>`+
			`<td style="border: 2px solid red">b</td>`+
			`</tr></tbody></table><p><br></p>`, got)

	// абзац уже есть
	got = run(FixTables, `<table style="border-collapse: separate"><tr><td>a</td></tr></table><p>after</p>`)
	assert.Equal(t,
		`<table style="border-collapse: separate"><tbody><tr><td style="border: 1px solid #ddd; padding: 8px;">a</td></tr></tbody></table><p>after</p>`, got)

	// за таблицей заголовок, а не абзац
	got = run(FixTables, `<table style="border-collapse: collapse"><tr><td style="border: 0">a</td></tr></table><h1>t</h1>`)
	assert.Contains(t, got, `</table><p><br></p><h1>t</h1>`)
}

func TestIdempotence(t *testing.T) {
	inputs := []string{
		"",
		"<p>plain</p>",
		`<span contenteditable="false" style="text-align: center"><img src="a"></span><p>x</p>`,
		`<p><span contenteditable="false" style="float:right"><img src="a"></span></p>`,
		`<a href="example.com">e</a><a href="/r">r</a><a href="#f">f</a><a href="mailto:x@y">m</a>`,
		`<table><tr><td>1</td></tr></table>`,
		`<table><tr><td>1</td></tr></table>text after<table><tr><th>2</th></tr></table>`,
		`<div><table><tr><td><table><tr><td>nested</td></tr></table></td></tr></table></div>`,
	}
	passes := map[string]func(*doctree.Node){
		"images": FixImages,
		"links":  FixLinks,
		"tables": FixTables,
		"apply":  Apply,
		"load":   ApplyOnLoad,
		"paste":  CleanPasted,
	}
	for name, pass := range passes {
		for _, in := range inputs {
			once := run(pass, in)
			twice := run(pass, once)
			assert.Equal(t, once, twice, "%s: %s", name, in)
		}
	}
}

func TestCleanPasted(t *testing.T) {
	got := run(CleanPasted, `<p style="color:red; font-weight: bold" class="text-red-500 lead bg-gray color-x">`+
		`<font color="blue">x</font><span style="background-color: yellow">y</span>`+
		`<a href="example.com">l</a><a href="/local">r</a></p>`)
	assert.Equal(t, `<p style="font-weight: bold;" class="lead"><font>x</font><span>y</span>`+
		`<a href="https://example.com" target="_blank" rel="noopener noreferrer">l</a>`+
		`<a href="/local" target="_blank" rel="noopener noreferrer">r</a></p>`, got)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://www.example.com", NormalizeURL("www.example.com"))
	assert.Equal(t, "HTTPS://x.y", NormalizeURL("HTTPS://x.y"))
	assert.Equal(t, "/a", NormalizeURL(" /a "))
	assert.Equal(t, "#b", NormalizeURL("#b"))
}
