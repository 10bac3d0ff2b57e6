// Package source reads the STB input documents: spreadsheet workbooks, the
// Turtle ontology and N-Quads dumps.
package source

import (
	"math"
	"strconv"
	"strings"
)

// HeaderSentinel is the value of the first column in the header row.
const HeaderSentinel = "code"

// ColumnCount is the number of columns of an STB row.
const ColumnCount = 22

// Value is a raw cell as read from a workbook. Numeric is set for cells the
// workbook stores as numbers; Text then holds their canonical decimal form.
type Value struct {
	Text    string
	Number  float64
	Numeric bool
}

// TextValue returns a text cell.
func TextValue(s string) Value {
	return Value{Text: s}
}

// NumberValue returns a numeric cell.
func NumberValue(f float64) Value {
	return Value{Text: FormatNumber(f), Number: f, Numeric: true}
}

// TextValues wraps plain strings as text cells.
func TextValues(cells []string) []Value {
	vals := make([]Value, len(cells))
	for i, c := range cells {
		vals[i] = TextValue(c)
	}
	return vals
}

// FormatNumber renders f the way numbers appear in literals: integers
// without a fraction, other values in their shortest decimal form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CellKind tells text cells from numeric ones.
type CellKind uint8

// Cell kinds.
const (
	CellText CellKind = iota
	CellInteger
	CellDouble
)

// Cell is one spreadsheet cell. Valid is false when the cell is missing or
// empty. Numeric cells carry their value in Number as well as in Value.
type Cell struct {
	Value  string
	Valid  bool
	Kind   CellKind
	Number float64
}

// NewCell trims raw and marks it absent when nothing is left.
func NewCell(raw string) Cell {
	v := strings.TrimSpace(raw)
	return Cell{Value: v, Valid: v != ""}
}

// NewValueCell converts a workbook value. Text is trimmed like NewCell;
// numbers keep their kind.
func NewValueCell(v Value) Cell {
	if !v.Numeric || math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
		return NewCell(v.Text)
	}
	kind := CellDouble
	if v.Number == math.Trunc(v.Number) {
		kind = CellInteger
	}
	return Cell{Value: FormatNumber(v.Number), Valid: true, Kind: kind, Number: v.Number}
}

// Is reports whether the cell holds exactly v.
func (c Cell) Is(v string) bool {
	return c.Valid && c.Value == v
}

// Numeric reports whether the cell holds a number.
func (c Cell) Numeric() bool {
	return c.Valid && c.Kind != CellText
}

// Truthy reports whether the cell counts as set for optional columns: it is
// present and not the number zero. The text "0" is truthy.
func (c Cell) Truthy() bool {
	return c.Valid && !(c.Numeric() && c.Number == 0)
}

// Record is one parsed STB row. Field names follow the spreadsheet columns.
type Record struct {
	Code                Cell
	TaskNumber          Cell // taaknr
	TaskDescription     Cell // taakomschrijving
	PhaseNumber         Cell // fasenr
	PhaseDescription    Cell // faseomschrijving
	ThemeNumber         Cell // themanr
	ThemeDescription    Cell // themaomschrijving
	Necessity           Cell // noodzaak
	OrderInTheme        Cell // volgorde_in_thema
	OrderInCluster      Cell // volgorde_in_cluster
	TaskCluster         Cell // taakcluster
	PartOfTaskCluster   Cell // onderdeel_van_taakcluster
	MTask               Cell // Mtaak
	Remark              Cell // opm
	ActivityNumber      Cell // activiteitnr
	ActivityOrder       Cell // activiteitvolgorde
	ActivityDescription Cell // tblActiviteiten_omschr
	DocumentNumber      Cell // documentnr
	DocumentDescription Cell // documentomschrijving
	DocumentType        Cell // documenttype
	DocumentKind        Cell // documentsoort
	DocumentContent     Cell // documentinhoud
}

// ParseRow maps text cells onto a Record by position. Every cell is trimmed
// of surrounding whitespace and a cell left empty is absent. Short rows leave
// the trailing fields absent; extra cells are ignored.
func ParseRow(cells []string) Record {
	return ParseValues(TextValues(cells))
}

// ParseValues is ParseRow for workbook values. Numeric cells keep their kind
// so literals can be typed.
func ParseValues(cells []Value) Record {
	at := func(i int) Cell {
		if i >= len(cells) {
			return Cell{}
		}
		return NewValueCell(cells[i])
	}

	return Record{
		Code:                at(0),
		TaskNumber:          at(1),
		TaskDescription:     at(2),
		PhaseNumber:         at(3),
		PhaseDescription:    at(4),
		ThemeNumber:         at(5),
		ThemeDescription:    at(6),
		Necessity:           at(7),
		OrderInTheme:        at(8),
		OrderInCluster:      at(9),
		TaskCluster:         at(10),
		PartOfTaskCluster:   at(11),
		MTask:               at(12),
		Remark:              at(13),
		ActivityNumber:      at(14),
		ActivityOrder:       at(15),
		ActivityDescription: at(16),
		DocumentNumber:      at(17),
		DocumentDescription: at(18),
		DocumentType:        at(19),
		DocumentKind:        at(20),
		DocumentContent:     at(21),
	}
}

// IsHeader reports whether r is the column header row.
func (r Record) IsHeader() bool {
	return r.Code.Is(HeaderSentinel)
}

// IsBlank reports whether every field of r is absent. Spreadsheet readers
// report such rows for formatted but empty ranges.
func (r Record) IsBlank() bool {
	return r == Record{}
}
