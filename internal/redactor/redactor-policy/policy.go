// Определяет политики безопасности для разметки документов редактора. Политики применяются к вставленному
// из буфера обмена HTML и к содержимому, которое приходит через API, и оставляют только то, что умеет
// показывать и редактировать сам редактор.
//
// Основные возможности:
//   - EditorPolicy: форматирование редактора (цвета, шрифты, выравнивание, отступы, таблицы, картинки, цитаты).
//   - StripTagsPolicy: только текст, для заголовков документов и имен тегов.
//   - Ограничение допустимых значений стилей регулярными выражениями.
//   - ReplaceImages: замена картинок текстовой подписью для форматов без поддержки изображений.
package policy

import (
	"container/list"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/microcosm-cc/bluemonday"
)

var StripTagsPolicy *bluemonday.Policy = bluemonday.StrictPolicy()
var EditorPolicy *bluemonday.Policy = bluemonday.UGCPolicy()

func init() {
	colorRegexp := regexp.MustCompile(`^(#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|rgba?\([\d\s.,%]+\)|hsla?\([\d\s.,%deg]+\)|[a-zA-Z]+)$`)
	sizeRegexp := regexp.MustCompile(`^(-?\d+(\.\d+)?(px|em|rem|ex|pt|in|pc|mm|cm|Q|vh|vw|vmax|vmin|%)?|auto|max-content|min-content|fit-content|inherit|initial|unset)$`)
	spacingRegexp := regexp.MustCompile(`^(-?\d+(\.\d+)?(px|em|rem|pt|%)?|auto)(\s+(-?\d+(\.\d+)?(px|em|rem|pt|%)?|auto)){0,3}$`)
	borderRegexp := regexp.MustCompile(`^(\d+(\.\d+)?(px|em|rem|pt)?\s+(solid|dashed|dotted|double|none)(\s+(#[0-9a-fA-F]{3,8}|[a-zA-Z]+|rgba?\([\d\s.,%]+\)))?|none)$`)
	fontRegexp := regexp.MustCompile(`^[\w\s,"'-]+$`)
	floatRegexp := regexp.MustCompile(`^(right|left|none)$`)
	fontStyleRegexp := regexp.MustCompile(`^(normal|italic|oblique|inherit)$`)
	clearRegexp := regexp.MustCompile(`^(both|left|right|none)$`)
	collapseRegexp := regexp.MustCompile(`^(collapse|separate)$`)
	syntaxClassRegexp := regexp.MustCompile(`^syntax-(keyword|string|number|comment|tag|attr|function|decorator)$`)
	fontSizeAttrRegexp := regexp.MustCompile(`^[1-7]$`)

	EditorPolicy.AllowElements("font", "u", "s", "strike", "mark", "sup", "sub")
	EditorPolicy.AllowAttrs("face").Matching(fontRegexp).OnElements("font")
	EditorPolicy.AllowAttrs("size").Matching(fontSizeAttrRegexp).OnElements("font")
	EditorPolicy.AllowAttrs("color").Matching(colorRegexp).OnElements("font")

	EditorPolicy.AllowAttrs("class").Matching(syntaxClassRegexp).OnElements("span")
	EditorPolicy.AllowAttrs("contenteditable").Matching(regexp.MustCompile(`^(true|false)$`)).OnElements("img", "span", "div")
	EditorPolicy.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	EditorPolicy.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")

	EditorPolicy.AllowStyles("color", "background-color").Matching(colorRegexp).Globally()
	EditorPolicy.AllowStyles("width", "height", "max-width", "font-size").Matching(sizeRegexp).Globally()
	EditorPolicy.AllowStyles("text-align").Matching(bluemonday.CellAlign).Globally()
	EditorPolicy.AllowStyles("font-family").Matching(fontRegexp).Globally()
	EditorPolicy.AllowStyles("font-style").Matching(fontStyleRegexp).Globally()
	EditorPolicy.AllowStyles("margin", "margin-left", "padding", "padding-left").Matching(spacingRegexp).Globally()
	EditorPolicy.AllowStyles("border", "border-left").Matching(borderRegexp).Globally()
	EditorPolicy.AllowStyles("border-collapse").Matching(collapseRegexp).OnElements("table")
	EditorPolicy.AllowStyles("float").Matching(floatRegexp).OnElements("img")
	EditorPolicy.AllowStyles("clear").Matching(clearRegexp).OnElements("div", "p")

	EditorPolicy.RequireNoFollowOnLinks(false)
	EditorPolicy.AllowDataURIImages()
}

// ReplaceImages заменяет каждую картинку подписью вида <изображение: alt>.
func ReplaceImages(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	queue := list.New()
	queue.PushBack(doc)

	for queue.Len() > 0 {
		element := queue.Front()
		queue.Remove(element)
		node := element.Value.(*html.Node)

		var next *html.Node

		for child := node.FirstChild; child != nil; child = next {
			next = child.NextSibling
			if child.Type == html.ElementNode && child.Data == "img" {
				replaceImageNode(child)
			} else if child.FirstChild != nil {
				queue.PushBack(child)
			}
		}
	}

	body := findBody(doc)
	if body == nil {
		body = doc
	}
	var result strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&result, c)
	}
	return result.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func replaceImageNode(node *html.Node) {
	var alt, src string
	for _, attr := range node.Attr {
		switch attr.Key {
		case "alt":
			alt = attr.Val
		case "src":
			src = attr.Val
		}
	}
	label := alt
	if label == "" {
		label = src
	}
	if strings.HasPrefix(label, "data:") {
		label = ""
	}

	replacementText := "<изображение>"
	if label != "" {
		replacementText = fmt.Sprintf("<изображение: %s>", label)
	}
	node.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: replacementText}, node)
	node.Parent.RemoveChild(node)
}
