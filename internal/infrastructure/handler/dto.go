package handler

import (
	"github.com/damon-houk/georgia-tax-declaration/internal/application/service"
)

// SheetDeclarationRequest represents the request body for declaring from a shared sheet
type SheetDeclarationRequest struct {
	Link        string `json:"link"`
	PriorAmount string `json:"prior_amount"`
}

// CategoryTotalResponse is one income source total in GEL
type CategoryTotalResponse struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// DeclarationResponse represents the response for the declaration endpoints.
// Amounts are GEL with two decimal places.
type DeclarationResponse struct {
	RunID              string                  `json:"run_id"`
	TransactionCount   int                     `json:"transaction_count"`
	CategoryTotals     []CategoryTotalResponse `json:"category_totals"`
	CurrentPeriodTotal string                  `json:"current_period_total"`
	PriorPeriodAmount  string                  `json:"prior_period_amount"`
	Field15            string                  `json:"field_15"`
	Field18            string                  `json:"field_18"`
	Field19            string                  `json:"field_19"`
	Field20            string                  `json:"field_20"`
	Field21            string                  `json:"field_21"`
}

// RateResponse represents the response for the rate endpoint
type RateResponse struct {
	Currency string `json:"currency"`
	Date     string `json:"date"`
	RateDate string `json:"rate_date"`
	Rate     string `json:"rate"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	Row         int    `json:"row,omitempty"`
	Field       string `json:"field,omitempty"`
}

func newDeclarationResponse(run *service.Run) DeclarationResponse {
	report := run.Report()

	totals := make([]CategoryTotalResponse, 0, 4)
	for _, t := range report.CategoryTotals.Ordered() {
		totals = append(totals, CategoryTotalResponse{
			Category: string(t.Category),
			Amount:   t.Amount.StringFixed(2),
		})
	}

	return DeclarationResponse{
		RunID:              run.ID,
		TransactionCount:   report.TransactionCount,
		CategoryTotals:     totals,
		CurrentPeriodTotal: report.CurrentPeriodTotal.StringFixed(2),
		PriorPeriodAmount:  report.PriorPeriodAmount.StringFixed(2),
		Field15:            report.Field15.StringFixed(2),
		Field18:            report.Field18.StringFixed(2),
		Field19:            report.Field19.StringFixed(2),
		Field20:            report.Field20.StringFixed(2),
		Field21:            report.Field21.StringFixed(2),
	}
}
