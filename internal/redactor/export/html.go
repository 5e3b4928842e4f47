package export

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"log/slog"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	policy "github.com/aisa-it/redactor/internal/redactor/redactor-policy"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	mhtml "github.com/tdewolff/minify/v2/html"
)

const codeStyle = "github"

var (
	//go:embed templates
	templates embed.FS

	documentTemplate = template.Must(template.ParseFS(templates, "templates/document.html"))

	minifier = minify.New()
)

func init() {
	minifier.AddFunc("text/html", mhtml.Minify)
	minifier.AddFunc("text/css", css.Minify)
}

type htmlDocument struct {
	Title   string
	Content template.HTML
}

// RenderHTML пишет самостоятельный HTML-документ. Блоки кода подсвечиваются inline-стилями,
// служебные атрибуты редактора удаляются, результат минифицируется.
func RenderHTML(title, content string, out io.Writer) error {
	root := doctree.Parse(policy.EditorPolicy.Sanitize(content))
	for _, n := range root.FindAll() {
		n.RemoveAttr("contenteditable")
	}
	highlightCode(root)

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, htmlDocument{
		Title:   title,
		Content: template.HTML(doctree.Render(root)),
	}); err != nil {
		return err
	}
	return minifier.Minify("text/html", out, &buf)
}

// highlightCode заменяет каждый pre подсвеченной версией. Язык определяется по содержимому.
func highlightCode(root *doctree.Node) {
	for _, pre := range root.FindAll("pre") {
		code := doctree.TextContent(pre)
		if code == "" {
			continue
		}
		highlighted, err := highlight(code)
		if err != nil {
			slog.Warn("Highlight code block", "err", err)
			continue
		}
		nodes := doctree.ParseFragment(highlighted)
		if len(nodes) == 0 {
			continue
		}
		pre.ReplaceWith(nodes...)
	}
}

func highlight(code string) (string, error) {
	lexer := lexers.Analyse(code)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(false))
	if err := formatter.Format(&buf, styles.Get(codeStyle), iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}
