package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/lucasb-eyer/go-colorful"
)

type Color struct {
	R, G, B int
}

var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}

	rgbReg = regexp.MustCompile(`^rgba?\(\s*([\d.]+)[\s,]+([\d.]+)[\s,]+([\d.]+)`)
	// цветовые пространства, которые не понимает PDF-рендер
	unsupportedColorReg = regexp.MustCompile(`(?i)\b(oklch|oklab|lab|lch|color|hwb)\(`)
)

var namedColors = map[string]string{
	"black": "#000000", "white": "#ffffff", "red": "#ff0000", "green": "#008000", "blue": "#0000ff",
	"yellow": "#ffff00", "orange": "#ffa500", "purple": "#800080", "gray": "#808080", "grey": "#808080",
	"silver": "#c0c0c0", "maroon": "#800000", "navy": "#000080", "teal": "#008080", "lime": "#00ff00",
	"aqua": "#00ffff", "cyan": "#00ffff", "fuchsia": "#ff00ff", "magenta": "#ff00ff", "olive": "#808000",
	"pink": "#ffc0cb", "brown": "#a52a2a",
}

// ParseColor разбирает hex, rgb()/rgba() и именованные цвета. Для остального возвращает nil.
func ParseColor(raw string) *Color {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil
	}
	if hex, ok := namedColors[raw]; ok {
		raw = hex
	}

	if strings.HasPrefix(raw, "#") {
		c, err := colorful.Hex(raw)
		if err != nil {
			return nil
		}
		r, g, b := c.RGB255()
		return &Color{int(r), int(g), int(b)}
	}

	if m := rgbReg.FindStringSubmatch(raw); m != nil {
		var c [3]int
		for i := range c {
			v, err := strconv.ParseFloat(m[i+1], 64)
			if err != nil {
				return nil
			}
			c[i] = min(255, max(0, int(v)))
		}
		return &Color{c[0], c[1], c[2]}
	}
	return nil
}

// UnsupportedColorSpace значение в oklch, oklab, lab, lch, color() или hwb.
func UnsupportedColorSpace(raw string) bool {
	return unsupportedColorReg.MatchString(raw)
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NeutralizeColors заменяет цвета в неподдерживаемых цветовых пространствах:
// цвет текста становится черным, фон белым.
func NeutralizeColors(root *doctree.Node) {
	root.Walk(func(n *doctree.Node) bool {
		if !n.IsElement() {
			return true
		}
		if UnsupportedColorSpace(n.Style("color")) {
			n.SetStyle("color", Black.Hex())
		}
		for _, prop := range []string{"background-color", "background"} {
			if UnsupportedColorSpace(n.Style(prop)) {
				n.RemoveStyle(prop)
				n.SetStyle("background-color", White.Hex())
			}
		}
		if n.IsElement("font") && UnsupportedColorSpace(n.AttrOr("color", "")) {
			n.SetAttr("color", Black.Hex())
		}
		return true
	})
}
