package entity

// Currency is an ISO 4217 code accepted in a ledger
type Currency string

const (
	// GEL is the reporting currency of the declaration
	GEL Currency = "GEL"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// ReportingCurrency is the single currency every transaction is converted into
const ReportingCurrency = GEL

// SupportedCurrencies lists the codes a ledger may use, reporting currency first
var SupportedCurrencies = []Currency{GEL, EUR, USD}

// ParseCurrency returns the supported currency matching code exactly
func ParseCurrency(code string) (Currency, error) {
	for _, c := range SupportedCurrencies {
		if string(c) == code {
			return c, nil
		}
	}
	return "", &UnsupportedCurrencyError{Code: code}
}

// IsSupported reports whether c is one of the supported currencies
func (c Currency) IsSupported() bool {
	_, err := ParseCurrency(string(c))
	return err == nil
}

// IsReporting reports whether c is the reporting currency
func (c Currency) IsReporting() bool {
	return c == ReportingCurrency
}
