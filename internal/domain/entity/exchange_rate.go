package entity

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// RateQuery identifies one rate lookup
type RateQuery struct {
	Currency Currency
	Date     civil.Date
}

// Key returns the cache and archive key for the query
func (q RateQuery) Key() string {
	return fmt.Sprintf("%s:%s", q.Currency, q.Date)
}

// ExchangeRate converts one unit of Currency into the reporting currency.
// Date is the day the rate was published for, which may precede the queried date.
type ExchangeRate struct {
	Currency Currency        `json:"currency"`
	Date     civil.Date      `json:"date"`
	Rate     decimal.Decimal `json:"rate"`
}

// UnitRate is the rate of the reporting currency against itself
func UnitRate(date civil.Date) *ExchangeRate {
	return &ExchangeRate{
		Currency: ReportingCurrency,
		Date:     date,
		Rate:     decimal.NewFromInt(1),
	}
}
