package entity

// Field is a canonical ledger column name
type Field string

const (
	FieldAmount       Field = "Transaction amount"
	FieldCurrency     Field = "Currency"
	FieldDate         Field = "Transaction date"
	FieldIncomeSource Field = "Income source"
)

// Fields is the fixed column order of a ledger
var Fields = []Field{FieldAmount, FieldCurrency, FieldDate, FieldIncomeSource}

// Table is a ledger as read from a spreadsheet: the header row and the data rows
// below it. Numeric amount and date cells are already rendered by value.
type Table struct {
	Header []string
	Rows   [][]string
}

// Row is one data row keyed by canonical field
type Row struct {
	// Number is the 1-based spreadsheet row, the header being row 1
	Number int
	Cells  map[Field]string
}

// Get returns the cell for field or an empty string
func (r Row) Get(field Field) string {
	return r.Cells[field]
}

// NormalizedTable holds rows whose headers were mapped to canonical fields
type NormalizedTable struct {
	// Language is the header set the input matched, e.g. "en" or "ru"
	Language string
	Rows     []Row
}
