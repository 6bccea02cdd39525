package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
)

// DateLayout is the ledger date format, DD.MM.YYYY with optional leading zeros
const DateLayout = "2.1.2006"

var numberJunk = regexp.MustCompile(`[^\d,.\-]`)

// RowConverter validates a normalized row and converts it into the reporting currency
type RowConverter struct {
	resolver *RateResolver
	now      func() time.Time
	logger   logger.Logger
}

// NewRowConverter creates a converter resolving rates through resolver
func NewRowConverter(resolver *RateResolver, now func() time.Time, log logger.Logger) *RowConverter {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RowConverter{
		resolver: resolver,
		now:      now,
		logger:   log,
	}
}

// ParseRow validates every cell of row and builds the transaction.
// The first failing cell is reported, in column order.
func (c *RowConverter) ParseRow(row entity.Row) (entity.Transaction, error) {
	rawAmount := row.Get(entity.FieldAmount)
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return entity.Transaction{}, invalid(row, entity.FieldAmount, rawAmount, err)
	}

	rawCurrency := row.Get(entity.FieldCurrency)
	currency, err := entity.ParseCurrency(strings.TrimSpace(rawCurrency))
	if err != nil {
		return entity.Transaction{}, invalid(row, entity.FieldCurrency, rawCurrency, err)
	}

	rawDate := row.Get(entity.FieldDate)
	date, err := ParseDate(rawDate)
	if err != nil {
		return entity.Transaction{}, invalid(row, entity.FieldDate, rawDate, err)
	}
	if date.After(civil.DateOf(c.now())) {
		return entity.Transaction{}, invalid(row, entity.FieldDate, rawDate, errors.New("date is in the future"))
	}

	rawSource := row.Get(entity.FieldIncomeSource)
	source, ok := entity.ParseIncomeSource(rawSource)
	if !ok {
		return entity.Transaction{}, invalid(row, entity.FieldIncomeSource, rawSource,
			errors.New("must be copied exactly from the list of income sources"))
	}

	tx := entity.Transaction{
		Row:          row.Number,
		Amount:       amount,
		Currency:     currency,
		Date:         date,
		IncomeSource: source,
	}
	if err := tx.Validate(); err != nil {
		return entity.Transaction{}, invalid(row, entity.FieldAmount, rawAmount, err)
	}

	return tx, nil
}

// Convert parses row and converts its amount with the rate for its date
func (c *RowConverter) Convert(ctx context.Context, row entity.Row) (*entity.ConvertedTransaction, error) {
	tx, err := c.ParseRow(row)
	if err != nil {
		return nil, err
	}

	rate, err := c.resolver.Resolve(ctx, tx.Currency, tx.Date)
	if err != nil {
		return nil, err
	}

	converted := &entity.ConvertedTransaction{
		Transaction:     tx,
		Rate:            rate.Rate,
		RateDate:        rate.Date,
		ReportingAmount: tx.Amount.Mul(rate.Rate).Round(2),
	}

	c.logger.Debug("Row converted", map[string]interface{}{
		"request_id":       middleware.GetRequestID(ctx),
		"row":              tx.Row,
		"currency":         tx.Currency,
		"amount":           tx.Amount.String(),
		"rate":             rate.Rate.String(),
		"rate_date":        rate.Date.String(),
		"reporting_amount": converted.ReportingAmount.StringFixed(2),
	})

	return converted, nil
}

// ParseAmount reads a positive amount. Currency symbols and spaces are dropped;
// a single comma is a decimal comma; when commas and dots are mixed, the last
// one is the decimal separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := parseNumber(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.New("amount must be a positive value")
	}
	return d, nil
}

func parseNumber(raw string) (decimal.Decimal, error) {
	s := numberJunk.ReplaceAllString(raw, "")
	if s == "" {
		return decimal.Zero, errors.New("a number is required")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0 && strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("not a number")
	}
	return d, nil
}

// ParseDate reads a DD.MM.YYYY calendar date, rejecting impossible days
func ParseDate(raw string) (civil.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return civil.Date{}, errors.New("a date is required")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		if strings.Contains(err.Error(), "out of range") {
			return civil.Date{}, errors.New("date is out of range")
		}
		return civil.Date{}, errors.New("date must be DD.MM.YYYY")
	}
	return civil.DateOf(t), nil
}

func invalid(row entity.Row, field entity.Field, value string, err error) *entity.ValidationError {
	return &entity.ValidationError{
		Row:    row.Number,
		Field:  field,
		Value:  value,
		Reason: err.Error(),
		Err:    err,
	}
}
