// Идемпотентные проходы нормализации дерева: картинки, ссылки, таблицы и вставленный контент.
//
// Основные возможности:
//   - FixImages: картинки становятся атомарными (contenteditable=false), служебные обертки
//     с выравниванием заменяются канонической формой.
//   - FixLinks: относительные адреса без протокола получают https://, внешние ссылки открываются в новой вкладке.
//   - FixTables: оформление таблиц и ячеек, абзац после каждой таблицы.
//   - CleanPasted: удаление цветовых стилей и классов из вставленной разметки.
//
// Повторный запуск любого прохода не меняет результат.
package fixups

import (
	"regexp"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
)

const (
	CenterImageWrapperStyle = "text-align: center; margin: 10px 0; clear: both;"
	RightImageStyle         = "float: right; margin: 10px 0 10px 10px; max-width: 100%;"
	LeftImageStyle          = "float: left; margin: 10px 10px 10px 0; max-width: 100%;"

	CellBorder  = "1px solid #ddd"
	CellPadding = "8px"
)

var schemeRegexp = regexp.MustCompile(`(?i)^https?://`)

// Apply проход, который выполняется после каждого ввода: картинки, затем таблицы.
func Apply(root *doctree.Node) {
	FixImages(root)
	FixTables(root)
}

// ApplyOnLoad проход при загрузке содержимого документа: ссылки, картинки, таблицы.
func ApplyOnLoad(root *doctree.Node) {
	FixLinks(root)
	FixImages(root)
	FixTables(root)
}

// FixImages делает картинки атомарными и разворачивает нередактируемые span-обертки.
func FixImages(root *doctree.Node) {
	for _, img := range root.FindAll("img") {
		img.SetAttr("contenteditable", "false")

		wrapper := img.Parent
		if wrapper == nil || wrapper == root || !wrapper.IsElement("span") || wrapper.AttrOr("contenteditable", "") != "false" {
			continue
		}

		style := wrapper.AttrOr("style", "")
		switch {
		case strings.Contains(style, "center"):
			div := doctree.NewElement("div", doctree.A("style", CenterImageWrapperStyle))
			wrapper.ReplaceWith(div)
			div.AppendChild(img)
			div.After(doctree.NewElement("p"))
		case strings.Contains(style, "right"):
			img.SetAttr("style", RightImageStyle)
			wrapper.ReplaceWith(img)
		default:
			img.SetAttr("style", LeftImageStyle)
			wrapper.ReplaceWith(img)
		}
	}
}

// NormalizeURL добавляет https:// адресам без протокола, кроме относительных и якорей.
func NormalizeURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || IsLocalURL(href) || schemeRegexp.MatchString(href) {
		return href
	}
	return "https://" + href
}

// IsLocalURL относительный адрес или якорь внутри документа.
func IsLocalURL(href string) bool {
	return strings.HasPrefix(href, "/") || strings.HasPrefix(href, "#")
}

// MarkExternal открывает ссылку в новой вкладке без доступа к opener.
func MarkExternal(a *doctree.Node) {
	a.SetAttr("target", "_blank")
	a.SetAttr("rel", "noopener noreferrer")
}

// FixLinks нормализует адреса ссылок и помечает внешние.
func FixLinks(root *doctree.Node) {
	for _, a := range root.FindAll("a") {
		href, ok := a.GetAttr("href")
		if !ok || href == "" {
			continue
		}
		fixed := NormalizeURL(href)
		if fixed != href {
			a.SetAttr("href", fixed)
		}
		if !IsLocalURL(href) {
			MarkExternal(a)
		}
	}
}

// FixTables оформляет таблицы и гарантирует абзац после каждой из них.
func FixTables(root *doctree.Node) {
	for _, table := range root.FindAll("table") {
		if !table.HasStyle("border-collapse") {
			table.SetStyle("border-collapse", "collapse")
			table.SetStyle("width", "100%")
			table.SetStyle("margin", "1rem 0")
		}

		for _, cell := range table.FindAll("td", "th") {
			if !cell.HasStyle("border") {
				cell.SetStyle("border", CellBorder)
				cell.SetStyle("padding", CellPadding)
			}
		}

		next := table.NextElementSibling()
		if next == nil || !next.IsElement("p", "div") {
			p := doctree.NewElement("p")
			p.AppendChild(doctree.NewElement("br"))
			table.After(p)
		}
	}
}

// CleanPasted удаляет со всех элементов цветовые стили, атрибут color и классы
// с text-, bg- или color, нормализует ссылки. Все вставленные ссылки открываются в новой вкладке.
func CleanPasted(root *doctree.Node) {
	root.Walk(func(n *doctree.Node) bool {
		if n == root || !n.IsElement() {
			return true
		}
		n.RemoveStyle("color", "background-color")
		n.RemoveAttr("color")
		if _, ok := n.GetAttr("class"); ok {
			var keep []string
			for _, cls := range n.Classes() {
				if strings.Contains(cls, "text-") || strings.Contains(cls, "bg-") || strings.Contains(cls, "color") {
					continue
				}
				keep = append(keep, cls)
			}
			n.SetClasses(keep)
		}
		if n.IsElement("a") {
			if href, ok := n.GetAttr("href"); ok && href != "" {
				n.SetAttr("href", NormalizeURL(href))
			}
			MarkExternal(n)
		}
		return true
	})
}
