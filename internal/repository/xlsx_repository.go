package repository

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

// XLSXGridRepository reads the reservation grid from a local workbook, e.g.
// an export of the shared spreadsheet.
type XLSXGridRepository struct {
	path  string
	sheet string
}

// NewXLSXGridRepository reads sheet from path; an empty sheet means the
// first worksheet.
func NewXLSXGridRepository(path, sheet string) *XLSXGridRepository {
	return &XLSXGridRepository{path: path, sheet: sheet}
}

// FetchGrid opens the workbook on every call so edits are picked up.
func (r *XLSXGridRepository) FetchGrid(_ context.Context) (models.Grid, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", r.path, err)
	}
	defer f.Close() //nolint:errcheck

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no worksheets", r.path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", sheet, err)
	}

	grid := make(models.Grid, 0, len(rows))
	for _, raw := range rows {
		row := make(models.Row, len(raw))
		for i, value := range raw {
			row[i] = xlsxCell(value)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// xlsxCell keeps excelize's formatted value verbatim, so "007" or "1.50"
// read back the way the sheet displays them.
func xlsxCell(value string) models.Cell {
	if value == "" {
		return models.EmptyCell()
	}
	return models.TextCell(value)
}
