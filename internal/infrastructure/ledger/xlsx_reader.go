package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	ports "github.com/damon-houk/georgia-tax-declaration/internal/domain/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/middleware"
	"github.com/xuri/excelize/v2"
)

// DataSheet is the worksheet read when a workbook has one by that name
const DataSheet = "Data"

var _ ports.LedgerFileReader = (*XLSXReader)(nil)

// XLSXReader reads a ledger from an uploaded .xlsx workbook
type XLSXReader struct {
	logger logger.Logger
}

// NewXLSXReader creates a new workbook reader
func NewXLSXReader(log logger.Logger) *XLSXReader {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &XLSXReader{logger: log}
}

// Read returns the cells of the Data sheet, or of the first sheet when the
// workbook has no Data sheet. Text cells are returned as typed; numeric
// amount and date cells by value, ignoring their number format.
func (x *XLSXReader) Read(ctx context.Context, r io.Reader) (entity.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return entity.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList())
	if err != nil {
		return entity.Table{}, err
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return entity.Table{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		return entity.Table{}, fmt.Errorf("failed to read workbook properties: %w", err)
	}
	date1904 := props.Date1904 != nil && *props.Date1904

	for i := 1; i < len(rows); i++ {
		for _, col := range []int{amountColumn, dateColumn} {
			if col >= len(rows[i]) || rows[i][col] == "" {
				continue
			}
			value, err := typedCell(f, sheet, col, i, rows[i][col], date1904)
			if err != nil {
				return entity.Table{}, err
			}
			rows[i][col] = value
		}
	}

	table := toTable(rows)
	x.logger.Debug("Workbook read", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"sheet":      sheet,
		"rows":       len(table.Rows),
	})
	return table, nil
}

// typedCell re-renders a raw cell value according to its stored type. Text
// stays as the user typed it.
func typedCell(f *excelize.File, sheet string, col, row int, raw string, date1904 bool) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return "", err
	}
	cellType, err := f.GetCellType(sheet, cell)
	if err != nil {
		return "", fmt.Errorf("failed to read cell %s: %w", cell, err)
	}

	switch cellType {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return numericCell(col, v, date1904), nil
		}
	case excelize.CellTypeDate:
		// ISO 8601 timestamp
		if col == dateColumn && len(raw) >= 10 {
			if d, err := civil.ParseDate(raw[:10]); err == nil {
				return d.In(time.UTC).Format(cellDateLayout), nil
			}
		}
	}
	return raw, nil
}

func pickSheet(sheets []string) (string, error) {
	if len(sheets) == 0 {
		return "", errors.New("workbook has no sheets")
	}
	for _, s := range sheets {
		if s == DataSheet {
			return s, nil
		}
	}
	return sheets[0], nil
}
