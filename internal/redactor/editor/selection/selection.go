// Отслеживание курсора и выделения поверх перестраиваемого дерева документа.
//
// Живое выделение хранится как пара точек (путь до контейнера + смещение в нем). Перед любой
// структурной мутацией оно переводится в символьные смещения, после мутации восстанавливается
// обратно. Идентичность узлов не используется.
//
// Основные возможности:
//   - Snapshot: точки выделения -> символьный диапазон.
//   - Restore: символьный диапазон -> точки выделения с цепочкой отката.
//   - Track: обертка snapshot -> мутация -> restore для всех структурных правок.
package selection

import (
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
)

// Endpoint точка выделения. Для текстового контейнера Offset считается в символах,
// для элемента это индекс ребенка, перед которым стоит курсор.
type Endpoint struct {
	Path   doctree.Path `json:"path"`
	Offset int          `json:"offset"`
}

// Endpoints живое выделение редактора. Valid=false означает фокус без выделения.
type Endpoints struct {
	Start   Endpoint `json:"start"`
	End     Endpoint `json:"end"`
	Focused bool     `json:"focused"`
	Valid   bool     `json:"valid"`
}

// Range символьный диапазон выделения. Anchor путь до начального контейнера на момент снимка,
// используется только для отката, когда смещение перестало существовать.
type Range struct {
	Start  int          `json:"start"`
	End    int          `json:"end"`
	Anchor doctree.Path `json:"-"`
}

func (r Range) Collapsed() bool {
	return r.Start == r.End
}

func (e Endpoints) Collapsed() bool {
	return e.Start.Offset == e.End.Offset && e.Start.Path.Equal(e.End.Path)
}

// Caret схлопнутое выделение в точке.
func Caret(ep Endpoint) Endpoints {
	return Endpoints{Start: ep, End: ep, Focused: true, Valid: true}
}

// FocusOnly фокус без выделения, последняя ступень отката.
func FocusOnly() Endpoints {
	return Endpoints{Focused: true}
}

// Snapshot переводит точки выделения в символьные смещения.
func Snapshot(root *doctree.Node, sel Endpoints) Range {
	if root == nil || !sel.Valid {
		return Range{Start: -1, End: -1}
	}
	start := EndpointOffset(root, sel.Start)
	end := EndpointOffset(root, sel.End)
	if end < start {
		start, end = end, start
	}
	return Range{Start: start, End: end, Anchor: sel.Start.Path.Clone()}
}

// EndpointOffset символьное смещение точки. Несуществующий путь зажимается до самого
// глубокого существующего предка.
func EndpointOffset(root *doctree.Node, ep Endpoint) int {
	node, ok := doctree.NodeAt(root, ep.Path)
	if !ok {
		node, _ = doctree.LongestPrefix(root, ep.Path)
		return doctree.OffsetOf(root, node) + doctree.TextLength(node)
	}
	base := doctree.OffsetOf(root, node)
	if node.IsText() {
		return base + clamp(ep.Offset, 0, doctree.RuneLen(node.Data))
	}
	k := clamp(ep.Offset, 0, len(node.Children))
	for _, c := range node.Children[:k] {
		base += doctree.TextLength(c)
	}
	return base
}

// Restore переводит символьный диапазон обратно в точки выделения.
// Если смещения больше не существует, курсор ставится в конец ближайшего сохранившегося
// предка, затем в конец документа, затем остается только фокус.
func Restore(root *doctree.Node, r Range) Endpoints {
	if root == nil {
		return FocusOnly()
	}
	if r.Start < 0 {
		return FocusOnly()
	}
	start, ok := Locate(root, r.Start)
	if !ok {
		if ep, ok := fallback(root, r.Anchor); ok {
			return Caret(ep)
		}
		return FocusOnly()
	}
	end, ok := Locate(root, r.End)
	if !ok {
		// контейнеры конца удалены, выделение схлопывается к началу
		end = start
	}
	return Endpoints{Start: start, End: end, Focused: true, Valid: true}
}

// Locate ищет первый текстовый узел, на котором накопленная длина достигает offset.
func Locate(root *doctree.Node, offset int) (Endpoint, bool) {
	t, in, ok := doctree.LocateText(root, offset)
	if !ok {
		return Endpoint{}, false
	}
	return Endpoint{Path: doctree.PathOf(root, t), Offset: in}, true
}

func fallback(root *doctree.Node, anchor doctree.Path) (Endpoint, bool) {
	if len(anchor) > 0 {
		if node, _ := doctree.LongestPrefix(root, anchor); node != root {
			return EndOf(root, node), true
		}
	}
	return EndOfDocument(root), true
}

// EndOf точка в конце узла.
func EndOf(root, n *doctree.Node) Endpoint {
	if n.IsText() {
		return Endpoint{Path: doctree.PathOf(root, n), Offset: doctree.RuneLen(n.Data)}
	}
	// конец последнего текстового потомка ближе к ожиданиям пользователя, чем позиция между детьми
	if texts := doctree.TextNodes(n); len(texts) > 0 {
		last := texts[len(texts)-1]
		return Endpoint{Path: doctree.PathOf(root, last), Offset: doctree.RuneLen(last.Data)}
	}
	return Endpoint{Path: doctree.PathOf(root, n), Offset: len(n.Children)}
}

// StartOf точка в начале узла.
func StartOf(root, n *doctree.Node) Endpoint {
	if texts := doctree.TextNodes(n); len(texts) > 0 {
		return Endpoint{Path: doctree.PathOf(root, texts[0]), Offset: 0}
	}
	if n.IsText() {
		return Endpoint{Path: doctree.PathOf(root, n)}
	}
	return Endpoint{Path: doctree.PathOf(root, n), Offset: 0}
}

func EndOfDocument(root *doctree.Node) Endpoint {
	return EndOf(root, root)
}

// SelectAll выделение всего содержимого корня.
func SelectAll(root *doctree.Node) Endpoints {
	return Endpoints{
		Start:   Endpoint{Path: doctree.Path{}, Offset: 0},
		End:     Endpoint{Path: doctree.Path{}, Offset: len(root.Children)},
		Focused: true,
		Valid:   true,
	}
}

// Track оборачивает мутацию дерева снимком и восстановлением выделения.
// Мутация может сдвинуть диапазон, например после вставки текста.
func Track(root *doctree.Node, sel *Endpoints, mutate func(r *Range) error) error {
	r := Snapshot(root, *sel)
	err := mutate(&r)
	*sel = Restore(root, r)
	return err
}

// Resolve возвращает контейнер точки, если он существует.
func Resolve(root *doctree.Node, ep Endpoint) (*doctree.Node, bool) {
	return doctree.NodeAt(root, ep.Path)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
