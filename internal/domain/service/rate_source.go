package service

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
)

// ErrRateNotPublished is returned by a RateSource that has no rate for the exact date
var ErrRateNotPublished = errors.New("no rate published for date")

// RateSource defines the interface for the external exchange rate provider
type RateSource interface {
	// FetchRate retrieves the rate of currency to the reporting currency published for date.
	// It returns ErrRateNotPublished when the provider has nothing for that day.
	FetchRate(ctx context.Context, currency entity.Currency, date civil.Date) (*entity.ExchangeRate, error)
}
