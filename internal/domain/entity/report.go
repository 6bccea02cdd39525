package entity

import (
	"github.com/shopspring/decimal"
)

// CategoryTotals holds the summed reporting amount of every income source.
// It is a value type: every known category is always present, zero if unused.
type CategoryTotals struct {
	totals [categoryCount]decimal.Decimal
}

// CategoryTotal is one entry of CategoryTotals in canonical order
type CategoryTotal struct {
	Category IncomeSource
	Amount   decimal.Decimal
}

// Add returns a copy of t with amount added to source
func (t CategoryTotals) Add(source IncomeSource, amount decimal.Decimal) CategoryTotals {
	i := source.index()
	if i < 0 {
		return t
	}
	t.totals[i] = t.totals[i].Add(amount)
	return t
}

// Get returns the total for source
func (t CategoryTotals) Get(source IncomeSource) decimal.Decimal {
	i := source.index()
	if i < 0 {
		return decimal.Zero
	}
	return t.totals[i]
}

// Sum returns the total across all categories
func (t CategoryTotals) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range t.totals {
		sum = sum.Add(v)
	}
	return sum
}

// Ordered lists every category in canonical order
func (t CategoryTotals) Ordered() []CategoryTotal {
	out := make([]CategoryTotal, 0, categoryCount)
	for i, s := range IncomeSources {
		out = append(out, CategoryTotal{Category: s, Amount: t.totals[i]})
	}
	return out
}

// DeclarationReport carries the figures of the monthly declaration.
// Field 15 is cumulative: the current period plus the prior-period amount.
// Fields 18 to 21 are the Cash, POS terminal, bank and payment system totals.
type DeclarationReport struct {
	CategoryTotals     CategoryTotals
	CurrentPeriodTotal decimal.Decimal
	PriorPeriodAmount  decimal.Decimal
	Field15            decimal.Decimal
	Field18            decimal.Decimal
	Field19            decimal.Decimal
	Field20            decimal.Decimal
	Field21            decimal.Decimal
	TransactionCount   int
}

// NewDeclarationReport derives every declaration field from the category totals
// and the prior-period amount
func NewDeclarationReport(totals CategoryTotals, prior decimal.Decimal, count int) DeclarationReport {
	current := totals.Sum()
	return DeclarationReport{
		CategoryTotals:     totals,
		CurrentPeriodTotal: current,
		PriorPeriodAmount:  prior,
		Field15:            current.Add(prior),
		Field18:            totals.Get(Cash),
		Field19:            totals.Get(POSTerminal),
		Field20:            totals.Get(BankTransaction),
		Field21:            totals.Get(PaymentSystem),
		TransactionCount:   count,
	}
}

// DeclarationField is a named output line of the report
type DeclarationField struct {
	Name  string
	Value decimal.Decimal
}

// Fields lists the declaration lines in form order
func (r DeclarationReport) Fields() []DeclarationField {
	return []DeclarationField{
		{Name: "Field 15", Value: r.Field15},
		{Name: "Field 18", Value: r.Field18},
		{Name: "Field 19", Value: r.Field19},
		{Name: "Field 20", Value: r.Field20},
		{Name: "Field 21", Value: r.Field21},
	}
}
