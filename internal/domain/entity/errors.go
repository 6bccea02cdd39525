package entity

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// SchemaError reports a ledger whose header row is wrong, missing or misordered
type SchemaError struct {
	Column   int
	Header   string
	Expected string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("schema error: column %d: %s: got %q, expected %q", e.Column, e.Reason, e.Header, e.Expected)
	}
	return fmt.Sprintf("schema error: column %d: %s: %q", e.Column, e.Reason, e.Header)
}

// ValidationError reports the first offending cell of a submission
type ValidationError struct {
	Row    int
	Field  Field
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UnsupportedCurrencyError reports a currency code outside the supported set.
// Row validation wraps it in a ValidationError.
type UnsupportedCurrencyError struct {
	Code string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency %q: must be one of %v", e.Code, SupportedCurrencies)
}

// RateUnavailableError reports that no rate was published inside the lookback
// window or that the rate source could not be reached
type RateUnavailableError struct {
	Currency Currency
	Date     civil.Date
	Lookback int
	Err      error
}

func (e *RateUnavailableError) Error() string {
	msg := fmt.Sprintf("no exchange rate available for %s on %s or the %d days before", e.Currency, e.Date, e.Lookback)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateUnavailableError) Unwrap() error {
	return e.Err
}
