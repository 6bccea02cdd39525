package entity

import (
	"errors"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one validated ledger row
type Transaction struct {
	Row          int             `json:"row"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     Currency        `json:"currency"`
	Date         civil.Date      `json:"date"`
	IncomeSource IncomeSource    `json:"income_source"`
}

// Validate ensures the transaction meets all requirements
func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return errors.New("amount must be a positive value")
	}

	if !t.Currency.IsSupported() {
		return &UnsupportedCurrencyError{Code: string(t.Currency)}
	}

	if !t.Date.IsValid() {
		return errors.New("date is not a valid calendar date")
	}

	if t.IncomeSource.index() < 0 {
		return errors.New("income source is not a known category")
	}

	return nil
}

// ConvertedTransaction is a transaction with its amount in the reporting currency.
// ReportingAmount is Amount * Rate rounded to two places, and is never rounded again.
type ConvertedTransaction struct {
	Transaction
	Rate            decimal.Decimal `json:"rate"`
	RateDate        civil.Date      `json:"rate_date"`
	ReportingAmount decimal.Decimal `json:"reporting_amount"`
}
