package service

import (
	"errors"
	"strings"

	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
)

// FieldPriorAmount names the prior-period amount in validation errors
const FieldPriorAmount entity.Field = "prior_amount"

// Aggregator sums converted transactions by income source and derives the
// declaration fields
type Aggregator struct {
	logger logger.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Aggregator{logger: log}
}

// Totals groups reporting amounts by income source without intermediate rounding
func (a *Aggregator) Totals(converted []entity.ConvertedTransaction) entity.CategoryTotals {
	var totals entity.CategoryTotals
	for _, tx := range converted {
		totals = totals.Add(tx.IncomeSource, tx.ReportingAmount)
	}
	return totals
}

// Aggregate builds the declaration report from converted transactions and the
// amount declared in field 15 of the previous period
func (a *Aggregator) Aggregate(converted []entity.ConvertedTransaction, prior decimal.Decimal) (entity.DeclarationReport, error) {
	if prior.IsNegative() {
		return entity.DeclarationReport{}, &entity.ValidationError{
			Field:  FieldPriorAmount,
			Value:  prior.String(),
			Reason: "prior-period amount cannot be negative",
		}
	}

	report := entity.NewDeclarationReport(a.Totals(converted), prior, len(converted))

	fields := map[string]interface{}{
		"transactions":         report.TransactionCount,
		"current_period_total": report.CurrentPeriodTotal.StringFixed(2),
		"prior_period_amount":  report.PriorPeriodAmount.StringFixed(2),
	}
	for _, f := range report.Fields() {
		fields[strings.ToLower(strings.ReplaceAll(f.Name, " ", "_"))] = f.Value.StringFixed(2)
	}
	a.logger.Info("Declaration aggregated", fields)

	return report, nil
}

// ParsePriorAmount reads the user-supplied prior-period amount. Blank means zero.
func ParsePriorAmount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := parseNumber(raw)
	if err == nil && d.IsNegative() {
		err = errors.New("prior-period amount cannot be negative")
	}
	if err != nil {
		return decimal.Zero, &entity.ValidationError{
			Field:  FieldPriorAmount,
			Value:  raw,
			Reason: err.Error(),
			Err:    err,
		}
	}
	return d, nil
}
