// Обратимая подсветка синтаксиса поверх разметки документа.
//
// Разметка режется на сегменты: теги форматирования заменяются непрозрачными заглушками,
// остальной текст проходит через фиксированную последовательность проходов. Каждый проход
// работает только с еще не размеченными сегментами, поэтому более поздний проход не может
// сработать внутри span, созданного ранее.
//
// Основные возможности:
//   - Annotate: разметка -> разметка со span class="syntax-*".
//   - Deannotate / DeannotateTree: удаление span подсветки с заменой на их текст.
//   - LooksLikeCode: признак кода по набору ключевых слов нескольких языков.
package syntax

import (
	"regexp"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"golang.org/x/net/html"
)

type Category string

const (
	Keyword   Category = "keyword"
	String    Category = "string"
	Number    Category = "number"
	Comment   Category = "comment"
	Tag       Category = "tag"
	Attr      Category = "attr"
	Function  Category = "function"
	Decorator Category = "decorator"
)

var Categories = []Category{Tag, Keyword, String, Number, Comment, Function, Decorator, Attr}

const classPrefix = "syntax-"

func (c Category) Class() string {
	return classPrefix + string(c)
}

var (
	// Теги форматирования, которые не участвуют в подсветке и восстанавливаются как есть.
	protectedTagRegexp = regexp.MustCompile(`(?i)</?(?:b|strong|i|em|u|s|strike|del|sup|sub|mark|small|h[1-6]|p|div|span|ul|ol|li|blockquote|pre|code|a|font|br|hr|img|table|thead|tbody|tfoot|tr|th|td|caption|colgroup|col|figure|figcaption|section|article)(?:\s+(?:[^>"']|"[^"]*"|'[^']*')*)?\s*/?>`)

	codeIndicatorRegexp = regexp.MustCompile(`\b(?:function|class|import|export|const|let|var|if|else|for|while|return|public|private|def|fn|func)\b`)

	tagRegexp      = regexp.MustCompile(`<(/?[a-zA-Z0-9_:-]+)(?:\s+[^<>&]+)*>`)
	attrRegexp     = regexp.MustCompile(`(\s+)([a-zA-Z0-9_:-]+)(\s*=\s*)(?:"([^"]*)"|'([^']*)')`)
	keywordRegexp  = regexp.MustCompile(`\b(` + strings.Join(keywords(), "|") + `)\b`)
	stringRegexp   = regexp.MustCompile("(?s)(\"(?:\\\\.|[^\"\\\\])*\"|'(?:\\\\.|[^'\\\\])*'|`(?:\\\\.|[^`\\\\])*`)")
	numberRegexp   = regexp.MustCompile(`\b(0[xX][0-9a-fA-F]+|0[oO][0-7]+|0[bB][01]+|\d+\.?\d*(?:[eE][+-]?\d+)?)\b`)
	commentRegexp  = regexp.MustCompile(`(?m)(//.*?$|/\*[\s\S]*?\*/|#.*?$)`)
	functionRegexp = regexp.MustCompile(`\b([a-zA-Z_$][a-zA-Z0-9_$]*)\s*\(`)
	decoratorRegex = regexp.MustCompile(`(@[a-zA-Z_$][a-zA-Z0-9_$]*)`)
)

var keywordSets = [][]string{
	// JavaScript / TypeScript
	{"const", "let", "var", "function", "return", "if", "else", "for", "while", "do", "switch", "case", "break", "continue",
		"class", "interface", "type", "extends", "implements", "import", "export", "from", "as", "default", "async", "await",
		"try", "catch", "finally", "throw", "new", "this", "super", "static", "public", "private", "protected", "readonly",
		"typeof", "instanceof", "in", "of", "null", "undefined", "true", "false", "void", "yield"},
	// Python
	{"def", "class", "if", "elif", "else", "for", "while", "try", "except", "finally", "with", "as", "import", "from",
		"return", "raise", "assert", "pass", "break", "continue", "global", "nonlocal", "lambda", "True", "False", "None"},
	// Rust
	{"fn", "let", "mut", "const", "if", "else", "match", "for", "while", "loop", "break", "continue", "struct", "enum",
		"trait", "impl", "pub", "use", "mod", "crate", "self", "Self", "super", "where", "async", "await", "move", "static",
		"unsafe", "type", "ref", "true", "false"},
	// Go
	{"func", "var", "const", "type", "struct", "interface", "map", "chan", "package", "import", "if", "else", "for",
		"range", "switch", "case", "default", "break", "continue", "return", "go", "defer", "select", "make", "new",
		"true", "false", "nil"},
}

func keywords() []string {
	seen := make(map[string]bool)
	var res []string
	for _, set := range keywordSets {
		for _, k := range set {
			if !seen[k] {
				seen[k] = true
				res = append(res, k)
			}
		}
	}
	return res
}

type segmentKind int

const (
	rawSegment segmentKind = iota
	protectedSegment
	annotatedSegment
)

type segment struct {
	kind     segmentKind
	text     string
	category Category
}

// LooksLikeCode проверяет наличие ключевых слов в тексте разметки вне тегов форматирования.
func LooksLikeCode(markup string) bool {
	for _, s := range split(markup) {
		if s.kind == rawSegment && codeIndicatorRegexp.MatchString(s.text) {
			return true
		}
	}
	return false
}

// Annotate размечает токены кода. Если в тексте нет ни одного ключевого слова, возвращается
// экранированный текст без подсветки. Теги форматирования переносятся в результат без изменений.
func Annotate(markup string) string {
	segs := split(markup)

	code := false
	for _, s := range segs {
		if s.kind == rawSegment && codeIndicatorRegexp.MatchString(s.text) {
			code = true
			break
		}
	}

	if code {
		segs = applyPass(segs, tagRegexp, wrapWhole(Tag))
		segs = applyPass(segs, attrRegexp, attrPieces)
		segs = applyPass(segs, keywordRegexp, wrapGroup(Keyword))
		segs = applyPass(segs, stringRegexp, wrapGroup(String))
		segs = applyPass(segs, numberRegexp, wrapGroup(Number))
		segs = applyPass(segs, commentRegexp, wrapGroup(Comment))
		segs = applyPass(segs, functionRegexp, wrapGroup(Function))
		segs = applyPass(segs, decoratorRegex, wrapGroup(Decorator))
	}

	var sb strings.Builder
	for _, s := range segs {
		switch s.kind {
		case protectedSegment:
			sb.WriteString(s.text)
		case annotatedSegment:
			sb.WriteString(`<span class="`)
			sb.WriteString(s.category.Class())
			sb.WriteString(`">`)
			sb.WriteString(escape(s.text))
			sb.WriteString(`</span>`)
		default:
			sb.WriteString(escape(s.text))
		}
	}
	return sb.String()
}

// split режет разметку на заглушки тегов и текст. Текст декодируется из сущностей,
// экранирование возвращается при сборке результата.
func split(markup string) []segment {
	var segs []segment
	last := 0
	for _, loc := range protectedTagRegexp.FindAllStringIndex(markup, -1) {
		if loc[0] > last {
			segs = append(segs, segment{kind: rawSegment, text: html.UnescapeString(markup[last:loc[0]])})
		}
		segs = append(segs, segment{kind: protectedSegment, text: markup[loc[0]:loc[1]]})
		last = loc[1]
	}
	if last < len(markup) {
		segs = append(segs, segment{kind: rawSegment, text: html.UnescapeString(markup[last:])})
	}
	return segs
}

type pieceBuilder func(text string, loc []int) []segment

func applyPass(segs []segment, re *regexp.Regexp, build pieceBuilder) []segment {
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if s.kind != rawSegment {
			out = append(out, s)
			continue
		}
		matches := re.FindAllStringSubmatchIndex(s.text, -1)
		if len(matches) == 0 {
			out = append(out, s)
			continue
		}
		last := 0
		for _, loc := range matches {
			if loc[1] == loc[0] {
				continue
			}
			if loc[0] > last {
				out = append(out, segment{kind: rawSegment, text: s.text[last:loc[0]]})
			}
			out = append(out, build(s.text, loc)...)
			last = loc[1]
		}
		if last < len(s.text) {
			out = append(out, segment{kind: rawSegment, text: s.text[last:]})
		}
	}
	return out
}

func wrapWhole(c Category) pieceBuilder {
	return func(text string, loc []int) []segment {
		return []segment{{kind: annotatedSegment, text: text[loc[0]:loc[1]], category: c}}
	}
}

// wrapGroup размечает первую группу, остаток совпадения остается сырым текстом.
func wrapGroup(c Category) pieceBuilder {
	return func(text string, loc []int) []segment {
		var res []segment
		if loc[2] > loc[0] {
			res = append(res, segment{kind: rawSegment, text: text[loc[0]:loc[2]]})
		}
		res = append(res, segment{kind: annotatedSegment, text: text[loc[2]:loc[3]], category: c})
		if loc[1] > loc[3] {
			res = append(res, segment{kind: rawSegment, text: text[loc[3]:loc[1]]})
		}
		return res
	}
}

// attrPieces: пробел, имя атрибута, знак равенства, кавычка, значение, кавычка.
func attrPieces(text string, loc []int) []segment {
	res := []segment{
		{kind: rawSegment, text: text[loc[2]:loc[3]]},
		{kind: annotatedSegment, text: text[loc[4]:loc[5]], category: Attr},
		{kind: rawSegment, text: text[loc[6]:loc[7]]},
	}
	valStart, valEnd := loc[8], loc[9]
	if valStart < 0 {
		valStart, valEnd = loc[10], loc[11]
	}
	quote := text[valStart-1 : valStart]
	res = append(res, segment{kind: rawSegment, text: quote})
	if valEnd > valStart {
		res = append(res, segment{kind: annotatedSegment, text: text[valStart:valEnd], category: String})
	}
	res = append(res, segment{kind: rawSegment, text: quote})
	return res
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string {
	return escaper.Replace(s)
}

// IsSyntaxSpan span, созданный подсветкой.
func IsSyntaxSpan(n *doctree.Node) bool {
	if !n.IsElement("span") {
		return false
	}
	for _, cls := range n.Classes() {
		for _, c := range Categories {
			if cls == c.Class() {
				return true
			}
		}
	}
	return false
}

// DeannotateTree заменяет все span подсветки их текстом.
func DeannotateTree(root *doctree.Node) {
	var spans []*doctree.Node
	root.Walk(func(n *doctree.Node) bool {
		if n != root && IsSyntaxSpan(n) {
			spans = append(spans, n)
			return false
		}
		return true
	})
	for _, s := range spans {
		s.ReplaceWith(doctree.NewText(doctree.TextContent(s)))
	}
	doctree.Normalize(root)
}

// Deannotate снимает подсветку с разметки.
func Deannotate(markup string) string {
	root := doctree.Parse(markup)
	DeannotateTree(root)
	return doctree.Render(root)
}

// AnnotateTree подсвечивает дерево целиком и возвращает новое дерево.
// Старая подсветка снимается заранее, иначе span вкладывались бы друг в друга.
func AnnotateTree(root *doctree.Node) *doctree.Node {
	clean := root.Clone()
	DeannotateTree(clean)
	return doctree.Parse(Annotate(doctree.Render(clean)))
}
