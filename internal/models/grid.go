package models

import (
	"strconv"
	"strings"
)

// CellKind discriminates the value carried by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is a single raw spreadsheet value. Exactly one of the payload fields is
// meaningful depending on Kind.
type Cell struct {
	Kind   CellKind
	Str    string
	Number float64
}

// TextCell builds a text cell. Blank strings collapse to an empty cell.
func TextCell(s string) Cell {
	if s == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Str: s}
}

// NumberCell builds a numeric cell.
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// EmptyCell builds an empty cell.
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// CellFromValue converts a loosely typed value handed over by a spreadsheet
// binding into a Cell.
func CellFromValue(v interface{}) Cell {
	switch val := v.(type) {
	case nil:
		return EmptyCell()
	case string:
		return TextCell(val)
	case float64:
		return NumberCell(val)
	case float32:
		return NumberCell(float64(val))
	case int:
		return NumberCell(float64(val))
	case int64:
		return NumberCell(float64(val))
	case bool:
		return TextCell(strconv.FormatBool(val))
	default:
		return EmptyCell()
	}
}

// IsText reports whether the cell holds text.
func (c Cell) IsText() bool {
	return c.Kind == CellText
}

// Text renders the cell the way it reads in the sheet.
func (c Cell) Text() string {
	switch c.Kind {
	case CellText:
		return c.Str
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Row is one spreadsheet row; rows may have different lengths.
type Row []Cell

// First returns the first cell of the row or an empty cell.
func (r Row) First() Cell {
	if len(r) == 0 {
		return EmptyCell()
	}
	return r[0]
}

// JoinedText concatenates the text of every cell in the row.
func (r Row) JoinedText() string {
	var b strings.Builder
	for _, cell := range r {
		b.WriteString(cell.Text())
	}
	return b.String()
}

// Grid is a row-major snapshot of a worksheet.
type Grid []Row

// GridFromValues converts the [][]interface{} shape returned by spreadsheet
// APIs into a Grid.
func GridFromValues(values [][]interface{}) Grid {
	grid := make(Grid, 0, len(values))
	for _, raw := range values {
		row := make(Row, len(raw))
		for i, v := range raw {
			row[i] = CellFromValue(v)
		}
		grid = append(grid, row)
	}
	return grid
}

// GridFromStrings converts string rows (as produced by xlsx readers) into a Grid.
func GridFromStrings(values [][]string) Grid {
	grid := make(Grid, 0, len(values))
	for _, raw := range values {
		row := make(Row, len(raw))
		for i, v := range raw {
			row[i] = TextCell(v)
		}
		grid = append(grid, row)
	}
	return grid
}
