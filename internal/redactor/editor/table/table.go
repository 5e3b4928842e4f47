// Структурные операции над таблицами документа.
//
// Активная таблица и ячейка не хранятся: Locate вычисляет их заново от текущего выделения
// при каждом вызове.
//
// Основные возможности:
//   - Вставка канонической таблицы с заголовками по строке и/или столбцу.
//   - Добавление и удаление строк и столбцов. Удаление последней строки или столбца удаляет таблицу.
//   - Объединение выделенных ячеек и снятие объединения.
package table

import (
	"strconv"
	"strings"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/editor/doctree"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
)

const (
	MaxRows = 20
	MaxCols = 10

	TableStyle      = "border-collapse: collapse; width: 100%; margin: 1rem 0;"
	CellStyle       = "border: 1px solid #ddd; padding: 8px;"
	HeaderCellStyle = "border: 1px solid #ddd; padding: 8px; text-align: left;"
)

type Operation string

const (
	AddRowAbove    Operation = "addRowAbove"
	AddRowBelow    Operation = "addRowBelow"
	DeleteRow      Operation = "deleteRow"
	AddColumnLeft  Operation = "addColumnLeft"
	AddColumnRight Operation = "addColumnRight"
	DeleteColumn   Operation = "deleteColumn"
	DeleteTable    Operation = "deleteTable"
	MergeCells     Operation = "mergeCells"
	SplitCell      Operation = "splitCell"
)

var operations = map[Operation]bool{
	AddRowAbove: true, AddRowBelow: true, DeleteRow: true,
	AddColumnLeft: true, AddColumnRight: true, DeleteColumn: true,
	DeleteTable: true, MergeCells: true, SplitCell: true,
}

func ParseOperation(name string) (Operation, error) {
	op := Operation(name)
	if !operations[op] {
		return "", apierrors.ErrUnknownTableOperation.WithFormattedMessage(name)
	}
	return op, nil
}

// Position таблица, строка и ячейка под курсором. Cell и Row могут быть nil,
// если курсор стоит в таблице, но вне ячейки.
type Position struct {
	Table *doctree.Node
	Row   *doctree.Node
	Cell  *doctree.Node
}

// Locate поднимается от начала выделения до ближайшей ячейки и таблицы, не выходя за корень.
func Locate(root *doctree.Node, sel selection.Endpoints) (Position, bool) {
	if !sel.Valid {
		return Position{}, false
	}
	node, ok := selection.Resolve(root, sel.Start)
	if !ok {
		return Position{}, false
	}
	if node.IsElement() && sel.Start.Offset < len(node.Children) {
		node = node.Children[sel.Start.Offset]
	}

	var pos Position
	for cur := node; cur != nil && cur != root; cur = cur.Parent {
		if pos.Cell == nil && cur.IsElement("td", "th") {
			pos.Cell = cur
			pos.Row = cur.Parent
		}
		if cur.IsElement("table") {
			pos.Table = cur
			break
		}
	}
	if pos.Table == nil {
		return Position{}, false
	}
	return pos, true
}

// Build строит таблицу. rows включает строку заголовка, размеры приводятся к [1,20]x[1,10].
func Build(rows, cols int, headerRow, headerCol bool) *doctree.Node {
	rows = clamp(rows, 1, MaxRows)
	cols = clamp(cols, 1, MaxCols)

	table := doctree.NewElement("table", doctree.A("style", TableStyle))
	start := 0
	if headerRow {
		thead := doctree.NewElement("thead")
		tr := doctree.NewElement("tr")
		for j := 0; j < cols; j++ {
			label := "Header " + strconv.Itoa(j+1)
			if headerCol && j == 0 {
				label = ""
			}
			tr.AppendChild(newCell("th", label))
		}
		thead.AppendChild(tr)
		table.AppendChild(thead)
		start = 1
	}

	if start < rows {
		tbody := doctree.NewElement("tbody")
		for i := start; i < rows; i++ {
			tr := doctree.NewElement("tr")
			for j := 0; j < cols; j++ {
				if headerCol && j == 0 {
					tr.AppendChild(newCell("th", "Row "+strconv.Itoa(i+1)))
					continue
				}
				tr.AppendChild(newCell("td", ""))
			}
			tbody.AppendChild(tr)
		}
		table.AppendChild(tbody)
	}
	return table
}

// Insert вставляет таблицу в позицию курсора (без выделения - в конец документа), выделенный текст
// заменяется таблицей. Курсор ставится в пустой абзац после таблицы.
func Insert(root *doctree.Node, sel *selection.Endpoints, rows, cols int, headerRow, headerCol bool) *doctree.Node {
	r := selection.Snapshot(root, *sel)
	at := r.Start
	if at < 0 {
		at = doctree.TextLength(root)
	} else if r.End > r.Start {
		doctree.DeleteSpan(root, r.Start, r.End)
	}

	table := Build(rows, cols, headerRow, headerCol)
	after := doctree.NewElement("p")
	after.AppendChild(doctree.NewElement("br"))
	doctree.InsertNodesAt(root, at, table, after)

	*sel = selection.Caret(selection.StartOf(root, after))
	return table
}

// Apply выполняет операцию над таблицей под курсором. Ошибки-уведомления (объединение одной
// ячейки, разделение необъединенной) не меняют дерево.
func Apply(root *doctree.Node, sel *selection.Endpoints, op Operation) error {
	if !operations[op] {
		return apierrors.ErrUnknownTableOperation.WithFormattedMessage(string(op))
	}
	pos, ok := Locate(root, *sel)
	if !ok {
		return apierrors.ErrNotInTable
	}
	if pos.Cell == nil && op != DeleteTable && op != MergeCells {
		return apierrors.ErrNotInTable
	}

	var selected []*doctree.Node
	if op == MergeCells {
		selected = SelectedCells(root, pos.Table, *sel)
	}

	return selection.Track(root, sel, func(*selection.Range) error {
		switch op {
		case AddRowAbove:
			pos.Row.Before(emptyRowLike(pos.Row))
		case AddRowBelow:
			pos.Row.After(emptyRowLike(pos.Row))
		case DeleteRow:
			removeRow(pos)
		case AddColumnLeft:
			addColumn(pos, 0)
		case AddColumnRight:
			addColumn(pos, 1)
		case DeleteColumn:
			removeColumn(pos)
		case DeleteTable:
			pos.Table.Remove()
		case MergeCells:
			return Merge(selected)
		case SplitCell:
			return Split(pos.Cell)
		}
		return nil
	})
}

func newCell(tag, text string) *doctree.Node {
	style := CellStyle
	if tag == "th" {
		style = HeaderCellStyle
	}
	c := doctree.NewElement(tag, doctree.A("style", style))
	if text == "" {
		c.AppendChild(doctree.NewElement("br"))
	} else {
		c.AppendChild(doctree.NewText(text))
	}
	return c
}

// Rows строки таблицы без строк вложенных таблиц.
func Rows(table *doctree.Node) []*doctree.Node {
	var res []*doctree.Node
	for _, tr := range table.FindAll("tr") {
		if tr.Parent.Closest(table, "table") == table {
			res = append(res, tr)
		}
	}
	return res
}

// Cells ячейки строки.
func Cells(row *doctree.Node) []*doctree.Node {
	var res []*doctree.Node
	for _, c := range row.Children {
		if c.IsElement("td", "th") {
			res = append(res, c)
		}
	}
	return res
}

func columnIndex(pos Position) int {
	for i, c := range Cells(pos.Row) {
		if c == pos.Cell {
			return i
		}
	}
	return -1
}

// emptyRowLike строка с тем же числом ячеек и теми же тегами, каждая ячейка пуста.
func emptyRowLike(row *doctree.Node) *doctree.Node {
	tr := doctree.NewElement("tr")
	for _, c := range Cells(row) {
		tr.AppendChild(newCell(c.Data, ""))
	}
	return tr
}

func removeRow(pos Position) {
	if len(Rows(pos.Table)) <= 1 {
		pos.Table.Remove()
		return
	}
	section := pos.Row.Parent
	pos.Row.Remove()
	if section != pos.Table && len(section.FindAll("tr")) == 0 {
		section.Remove()
	}
}

// addColumn вставляет ячейку в каждую строку таблицы: shift=0 - слева от текущего столбца, 1 - справа.
func addColumn(pos Position, shift int) {
	idx := columnIndex(pos)
	if idx < 0 {
		return
	}
	for _, tr := range Rows(pos.Table) {
		cells := Cells(tr)
		tag := "td"
		if idx < len(cells) {
			tag = cells[idx].Data
		}
		cell := newCell(tag, "")
		if at := idx + shift; at < len(cells) {
			cells[at].Before(cell)
		} else {
			tr.AppendChild(cell)
		}
	}
}

func removeColumn(pos Position) {
	idx := columnIndex(pos)
	if len(Cells(pos.Row)) <= 1 {
		pos.Table.Remove()
		return
	}
	for _, tr := range Rows(pos.Table) {
		if cells := Cells(tr); idx >= 0 && idx < len(cells) {
			cells[idx].Remove()
		}
	}
}

// SelectedCells ячейки таблицы, пересекающиеся с выделением. Для схлопнутого курсора это одна ячейка.
func SelectedCells(root, table *doctree.Node, sel selection.Endpoints) []*doctree.Node {
	r := selection.Snapshot(root, sel)
	var res []*doctree.Node
	for _, tr := range Rows(table) {
		for _, c := range Cells(tr) {
			cs, ce := doctree.Span(root, c)
			switch {
			case r.Start < 0:
			case r.Collapsed():
				if pos, ok := Locate(root, sel); ok && pos.Cell == c {
					res = append(res, c)
				}
			case cs == ce:
				if cs > r.Start && cs < r.End {
					res = append(res, c)
				}
			case cs < r.End && ce > r.Start:
				res = append(res, c)
			}
		}
	}
	return res
}

// Merge объединяет ячейки в первую. colspan - число выбранных ячеек в первой строке, rowspan - число
// затронутых строк. Прямоугольность выделения не проверяется.
func Merge(cells []*doctree.Node) error {
	if len(cells) < 2 {
		return apierrors.ErrMergeNeedsMultipleCells
	}
	first := cells[0]
	firstRow := first.Parent

	colspan := 0
	rows := make(map[*doctree.Node]bool)
	for _, c := range cells {
		if c.Parent == firstRow {
			colspan++
		}
		rows[c.Parent] = true
	}

	if isBlankCell(first) {
		for _, c := range append([]*doctree.Node(nil), first.Children...) {
			c.Remove()
		}
	}
	for _, c := range cells[1:] {
		if isBlankCell(c) {
			c.Remove()
			continue
		}
		if len(first.Children) > 0 {
			first.AppendChild(doctree.NewText(" "))
		}
		first.AppendChild(append([]*doctree.Node(nil), c.Children...)...)
		c.Remove()
	}
	if len(first.Children) == 0 {
		first.AppendChild(doctree.NewElement("br"))
	}
	doctree.Normalize(first)

	first.SetAttr("colspan", strconv.Itoa(colspan))
	first.SetAttr("rowspan", strconv.Itoa(len(rows)))
	return nil
}

func isBlankCell(c *doctree.Node) bool {
	return doctree.TextLength(c) == 0 && len(c.FindAll("img", "hr", "table")) == 0
}

// Span размер объединения ячейки. Некорректные значения считаются единицей.
func Span(cell *doctree.Node) (colspan, rowspan int) {
	return spanAttr(cell, "colspan"), spanAttr(cell, "rowspan")
}

func spanAttr(cell *doctree.Node, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr(key, "1")))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// Split снимает объединение. Освободившиеся позиции сетки не восстанавливаются.
func Split(cell *doctree.Node) error {
	colspan, rowspan := Span(cell)
	if colspan == 1 && rowspan == 1 {
		return apierrors.ErrCellCannotSplit
	}
	cell.RemoveAttr("colspan")
	cell.RemoveAttr("rowspan")
	return nil
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
