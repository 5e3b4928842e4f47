// Маршрутизация команд форматирования в мутации дерева документа.
//
// Набор команд закрыт: каждая команда - отдельный тип с собственным обработчиком apply,
// поэтому команда без обработчика не скомпилируется. Parse переводит строковые имена
// (bold, formatBlock:h1 и т.д.) в эти типы.
//
// Основные возможности:
//   - Переключаемые inline-команды (bold, italic, underline, strikeThrough, superscript, subscript, backColor).
//   - Блочные команды (formatBlock, списки, отступы, выравнивание) с предварительной гарантией блока.
//   - Ссылки с нормализацией адреса, горизонтальная линия, картинки.
//   - insertTable не меняет дерево, а возвращает запрос диалога.
package commands

import (
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
)

// Command одна команда форматирования.
type Command interface {
	Name() string
	apply(s *state) error
}

type Bold struct{}
type Italic struct{}
type Underline struct{}
type StrikeThrough struct{}
type Superscript struct{}
type Subscript struct{}

type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
	AlignFull   Alignment = "justify"
)

type Justify struct {
	Align Alignment
}

type InsertUnorderedList struct{}
type InsertOrderedList struct{}
type Indent struct{}
type Outdent struct{}

// FormatBlock превращает блок в p, h1-h6, blockquote, pre или div.
type FormatBlock struct {
	Tag string
}

// FontSize размер шрифта в шкале 1-7.
type FontSize struct {
	Size string
}

type FontName struct {
	Face string
}

type ForeColor struct {
	Color string
}

// BackColor цвет выделения (hiliteColor).
type BackColor struct {
	Color string
}

type CreateLink struct {
	URL string
}

type InsertHorizontalRule struct{}

type ImageAlignment string

const (
	ImageLeft   ImageAlignment = "left"
	ImageCenter ImageAlignment = "center"
	ImageRight  ImageAlignment = "right"
)

// ImageSpec параметры картинки из диалога вставки.
type ImageSpec struct {
	URL       string         `json:"url" validate:"required"`
	Alt       string         `json:"alt"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Alignment ImageAlignment `json:"alignment"`
}

type InsertImage struct {
	Image ImageSpec
}

// InsertTable запрашивает диалог таблицы. Вставка выполняется пакетом table после подтверждения.
type InsertTable struct{}

func (Bold) Name() string                 { return "bold" }
func (Italic) Name() string               { return "italic" }
func (Underline) Name() string            { return "underline" }
func (StrikeThrough) Name() string        { return "strikeThrough" }
func (Superscript) Name() string          { return "superscript" }
func (Subscript) Name() string            { return "subscript" }
func (InsertUnorderedList) Name() string  { return "insertUnorderedList" }
func (InsertOrderedList) Name() string    { return "insertOrderedList" }
func (Indent) Name() string               { return "indent" }
func (Outdent) Name() string              { return "outdent" }
func (FormatBlock) Name() string          { return "formatBlock" }
func (FontSize) Name() string             { return "fontSize" }
func (FontName) Name() string             { return "fontName" }
func (ForeColor) Name() string            { return "foreColor" }
func (BackColor) Name() string            { return "backColor" }
func (CreateLink) Name() string           { return "createLink" }
func (InsertHorizontalRule) Name() string { return "insertHorizontalRule" }
func (InsertImage) Name() string          { return "insertImage" }
func (InsertTable) Name() string          { return "insertTable" }

func (j Justify) Name() string {
	switch j.Align {
	case AlignCenter:
		return "justifyCenter"
	case AlignRight:
		return "justifyRight"
	case AlignFull:
		return "justifyFull"
	}
	return "justifyLeft"
}

// Parse разбирает команду в виде имени и значения, как их присылает панель инструментов.
// Значение может быть передано и через двоеточие: "formatBlock:h2".
func Parse(name, value string) (Command, error) {
	if value == "" {
		if i := strings.IndexByte(name, ':'); i > 0 {
			name, value = name[:i], name[i+1:]
		}
	}
	value = strings.TrimSpace(value)

	requireValue := func(cmd Command) (Command, error) {
		if value == "" {
			return nil, apierrors.ErrCommandValueRequired.WithFormattedMessage(name)
		}
		return cmd, nil
	}

	switch name {
	case "bold":
		return Bold{}, nil
	case "italic":
		return Italic{}, nil
	case "underline":
		return Underline{}, nil
	case "strikeThrough":
		return StrikeThrough{}, nil
	case "superscript":
		return Superscript{}, nil
	case "subscript":
		return Subscript{}, nil
	case "justifyLeft":
		return Justify{Align: AlignLeft}, nil
	case "justifyCenter":
		return Justify{Align: AlignCenter}, nil
	case "justifyRight":
		return Justify{Align: AlignRight}, nil
	case "justifyFull":
		return Justify{Align: AlignFull}, nil
	case "insertUnorderedList":
		return InsertUnorderedList{}, nil
	case "insertOrderedList":
		return InsertOrderedList{}, nil
	case "indent":
		return Indent{}, nil
	case "outdent":
		return Outdent{}, nil
	case "formatBlock":
		tag := strings.ToLower(strings.Trim(value, "<>/ "))
		if !formattableBlocks[tag] {
			return nil, apierrors.ErrUnknownCommand.WithFormattedMessage(name + ":" + value)
		}
		return FormatBlock{Tag: tag}, nil
	case "fontSize":
		return requireValue(FontSize{Size: value})
	case "fontName":
		return requireValue(FontName{Face: value})
	case "foreColor":
		return requireValue(ForeColor{Color: value})
	case "hiliteColor", "backColor":
		return requireValue(BackColor{Color: value})
	case "createLink":
		return CreateLink{URL: value}, nil
	case "insertHorizontalRule":
		return InsertHorizontalRule{}, nil
	case "insertImage":
		return InsertImage{Image: ImageSpec{URL: value, Alignment: ImageCenter}}, nil
	case "insertTable":
		return InsertTable{}, nil
	}
	return nil, apierrors.ErrUnknownCommand.WithFormattedMessage(name)
}

var formattableBlocks = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "div": true,
}
