// Package ledger reads income ledgers from spreadsheet files and shared online sheets
package ledger

import (
	"strconv"
	"strings"

	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/xuri/excelize/v2"
)

// cellDateLayout is how date cells stored as serial numbers are handed on
const cellDateLayout = "02.01.2006"

var (
	amountColumn = fieldColumn(entity.FieldAmount)
	dateColumn   = fieldColumn(entity.FieldDate)
)

func fieldColumn(field entity.Field) int {
	for i, f := range entity.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

// numericCell renders a number stored in data column col. Amounts keep their
// exact value, never a display format; dates are spreadsheet serial numbers.
func numericCell(col int, v float64, date1904 bool) string {
	if col == dateColumn {
		if t, err := excelize.ExcelDateToTime(v, date1904); err == nil {
			return t.Format(cellDateLayout)
		}
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// toTable splits raw spreadsheet rows into header and data rows. Trailing rows
// whose first cell is blank are dropped; blank rows in between are kept.
func toTable(rows [][]string) entity.Table {
	if len(rows) == 0 {
		return entity.Table{}
	}

	data := rows[1:]
	end := len(data)
	for end > 0 && blankFirstCell(data[end-1]) {
		end--
	}

	return entity.Table{
		Header: rows[0],
		Rows:   data[:end],
	}
}

func blankFirstCell(row []string) bool {
	return len(row) == 0 || strings.TrimSpace(row[0]) == ""
}
