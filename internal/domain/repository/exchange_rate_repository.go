// Package repository internal/domain/repository/exchange_rate_repository.go
package repository

import (
	"context"
	"errors"

	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
)

// ErrRateNotArchived is returned when the archive holds no rate for the query
var ErrRateNotArchived = errors.New("rate not archived")

// ExchangeRateRepository defines the interface for the archive of published rates
type ExchangeRateRepository interface {
	// FindRate finds the rate archived for a currency and date
	FindRate(ctx context.Context, query entity.RateQuery) (*entity.ExchangeRate, error)

	// StoreRate archives a rate under the date it was queried for
	StoreRate(ctx context.Context, query entity.RateQuery, rate *entity.ExchangeRate) error
}
