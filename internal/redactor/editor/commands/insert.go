package commands

import (
	"strconv"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/aisa-it/redactor/internal/redactor/editor/fixups"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
)

const (
	DefaultImageWidth  = 300
	DefaultImageHeight = 200
)

func (c CreateLink) apply(s *state) error {
	url := strings.TrimSpace(c.URL)
	if url == "" {
		return apierrors.ErrLinkURLRequired
	}
	href := fixups.NormalizeURL(url)

	if s.collapsed() {
		a := doctree.NewElement("a", doctree.A("href", href))
		a.AppendChild(doctree.NewText(url))
		fixups.MarkExternal(a)
		at := s.caret()
		doctree.InsertNodesAt(s.root, at, a)
		doctree.Normalize(s.root)
		s.rng = rangeAt(at, at+doctree.RuneLen(url))
		return nil
	}

	var created []*doctree.Node
	for _, t := range s.textsInSpan() {
		if a := t.Closest(s.root, "a"); a != nil {
			a.SetAttr("href", href)
			fixups.MarkExternal(a)
			continue
		}
		a := doctree.NewElement("a", doctree.A("href", href))
		fixups.MarkExternal(a)
		t.Wrap(a)
		created = append(created, a)
	}
	mergeCreated(created)
	doctree.Normalize(s.root)
	return nil
}

func (InsertHorizontalRule) apply(s *state) error {
	at := s.caret()
	if !s.collapsed() {
		doctree.DeleteSpan(s.root, s.rng.Start, s.rng.End)
	}
	hr := doctree.InsertNodesAt(s.root, at, doctree.NewElement("hr"))
	ensureFollowingBlock(hr)
	doctree.Normalize(s.root)
	s.rng = rangeAt(at, at)
	return nil
}

// ensureFollowingBlock добавляет пустой абзац после узла, если за ним нет блока для курсора.
func ensureFollowingBlock(n *doctree.Node) {
	if n == nil || n.Parent == nil {
		return
	}
	next := n.NextElementSibling()
	if next != nil && doctree.IsBlock(next) && !next.IsElement("hr") {
		return
	}
	p := doctree.NewElement("p")
	p.AppendChild(doctree.NewElement("br"))
	n.After(p)
}

func (c InsertImage) apply(s *state) error {
	nodes, err := ImageNodes(c.Image)
	if err != nil {
		return err
	}
	at := s.caret()
	if !s.collapsed() {
		doctree.DeleteSpan(s.root, s.rng.Start, s.rng.End)
	}
	doctree.InsertNodesAt(s.root, at, nodes...)
	doctree.Normalize(s.root)
	s.rng = rangeAt(at, at)
	return nil
}

// ImageNodes строит разметку картинки по параметрам диалога. Картинка по центру оборачивается
// в div и получает пустой абзац следом, картинки по краям обтекаются текстом.
func ImageNodes(spec ImageSpec) ([]*doctree.Node, error) {
	url := strings.TrimSpace(spec.URL)
	if url == "" {
		return nil, apierrors.ErrImageURLRequired
	}
	width, height := spec.Width, spec.Height
	if width <= 0 {
		width = DefaultImageWidth
	}
	if height <= 0 {
		height = DefaultImageHeight
	}

	img := doctree.NewElement("img",
		doctree.A("src", url),
		doctree.A("alt", spec.Alt),
		doctree.A("width", strconv.Itoa(width)),
		doctree.A("height", strconv.Itoa(height)),
	)

	switch spec.Alignment {
	case ImageLeft:
		img.SetAttr("style", fixups.LeftImageStyle)
		img.SetAttr("contenteditable", "false")
		return []*doctree.Node{img}, nil
	case ImageRight:
		img.SetAttr("style", fixups.RightImageStyle)
		img.SetAttr("contenteditable", "false")
		return []*doctree.Node{img}, nil
	}

	img.SetAttr("style", "max-width: 100%;")
	img.SetAttr("contenteditable", "false")
	div := doctree.NewElement("div", doctree.A("style", fixups.CenterImageWrapperStyle))
	div.AppendChild(img)
	return []*doctree.Node{div, doctree.NewElement("p")}, nil
}

// InsertTable применяется через диалог, Execute не доходит до этого обработчика.
func (InsertTable) apply(*state) error { return nil }

func rangeAt(start, end int) selection.Range {
	return selection.Range{Start: start, End: end}
}
