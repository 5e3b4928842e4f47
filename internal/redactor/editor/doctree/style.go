package doctree

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Styles разбирает атрибут style в список деклараций в исходном порядке.
func Styles(n *Node) []*css.Declaration {
	raw, ok := n.GetAttr("style")
	if !ok {
		return nil
	}
	return ParseStyle(raw)
}

// ParseStyle разбирает inline-стиль. Некорректные фрагменты пропускаются.
func ParseStyle(raw string) []*css.Declaration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	// douceur теряет значение последней декларации без завершающей точки с запятой
	if !strings.HasSuffix(raw, ";") {
		raw += ";"
	}
	decls, err := parser.ParseDeclarations(raw)
	if err != nil {
		return nil
	}
	res := decls[:0]
	for _, d := range decls {
		d.Property = strings.ToLower(strings.TrimSpace(d.Property))
		d.Value = strings.TrimSpace(d.Value)
		if d.Property == "" || d.Value == "" {
			continue
		}
		res = append(res, d)
	}
	return res
}

// FormatStyle собирает декларации обратно в канонический вид "prop: value; prop: value;".
func FormatStyle(decls []*css.Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}

// Style значение CSS-свойства из атрибута style.
func (n *Node) Style(prop string) string {
	prop = strings.ToLower(prop)
	var val string
	for _, d := range Styles(n) {
		if d.Property == prop {
			val = d.Value
		}
	}
	return val
}

func (n *Node) HasStyle(prop string) bool {
	return n.Style(prop) != ""
}

// SetStyle задает свойство, сохраняя порядок существующих деклараций.
func (n *Node) SetStyle(prop, value string) {
	prop = strings.ToLower(prop)
	decls := Styles(n)
	found := false
	for _, d := range decls {
		if d.Property == prop {
			d.Value = value
			found = true
		}
	}
	if !found {
		decls = append(decls, &css.Declaration{Property: prop, Value: value})
	}
	n.SetAttr("style", FormatStyle(decls))
}

// RemoveStyle удаляет свойства. Если стилей не осталось, атрибут style удаляется.
func (n *Node) RemoveStyle(props ...string) {
	if _, ok := n.GetAttr("style"); !ok {
		return
	}
	decls := Styles(n)
	res := decls[:0]
	for _, d := range decls {
		keep := true
		for _, p := range props {
			if d.Property == strings.ToLower(p) {
				keep = false
				break
			}
		}
		if keep {
			res = append(res, d)
		}
	}
	if len(res) == 0 {
		n.RemoveAttr("style")
		return
	}
	n.SetAttr("style", FormatStyle(res))
}

// Classes список классов элемента.
func (n *Node) Classes() []string {
	return strings.Fields(n.AttrOr("class", ""))
}

func (n *Node) SetClasses(classes []string) {
	if len(classes) == 0 {
		n.RemoveAttr("class")
		return
	}
	n.SetAttr("class", strings.Join(classes, " "))
}
