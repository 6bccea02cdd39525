// Package service internal/application/service/rate_resolver.go
package service

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	ports "github.com/damon-houk/georgia-tax-declaration/internal/domain/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/cache"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/middleware"
)

// DefaultLookbackDays is how many days before a transaction date are searched
// when no rate is published for the date itself
const DefaultLookbackDays = 7

// RateResolver answers the reporting-currency rate of a currency on a date.
// A resolver belongs to one submission: its cache dies with the run.
type RateResolver struct {
	source   ports.RateSource
	cache    *cache.ExchangeRateCache
	lookback int
	logger   logger.Logger
}

// NewRateResolver creates a resolver with an empty cache
func NewRateResolver(source ports.RateSource, lookback int, log logger.Logger) *RateResolver {
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RateResolver{
		source:   source,
		cache:    cache.NewExchangeRateCache(),
		lookback: lookback,
		logger:   log,
	}
}

// Resolve returns the rate converting one unit of currency into the reporting
// currency on date. The reporting currency answers 1 without a lookup. When the
// source has nothing for date, earlier days are tried up to the lookback window.
func (r *RateResolver) Resolve(ctx context.Context, currency entity.Currency, date civil.Date) (*entity.ExchangeRate, error) {
	if !currency.IsSupported() {
		return nil, &entity.UnsupportedCurrencyError{Code: string(currency)}
	}
	if currency.IsReporting() {
		return entity.UnitRate(date), nil
	}

	requestID := middleware.GetRequestID(ctx)
	original := entity.RateQuery{Currency: currency, Date: date}

	for back := 0; back <= r.lookback; back++ {
		query := entity.RateQuery{Currency: currency, Date: date.AddDays(-back)}

		if entry, ok := r.cache.Get(query); ok {
			if entry.Miss {
				continue
			}
			if back > 0 {
				r.cache.Put(original, entry.Rate)
			}
			return entry.Rate, nil
		}

		rate, err := r.source.FetchRate(ctx, currency, query.Date)
		if errors.Is(err, ports.ErrRateNotPublished) {
			r.logger.Debug("No rate published, looking further back", map[string]interface{}{
				"request_id": requestID,
				"currency":   currency,
				"date":       query.Date.String(),
				"days_back":  back,
			})
			r.cache.PutMiss(query)
			continue
		}
		if err != nil {
			r.logger.Error("Rate source failed", map[string]interface{}{
				"request_id": requestID,
				"currency":   currency,
				"date":       query.Date.String(),
				"error":      err.Error(),
			})
			return nil, &entity.RateUnavailableError{Currency: currency, Date: date, Lookback: r.lookback, Err: err}
		}

		r.cache.Put(query, rate)
		if back > 0 {
			r.cache.Put(original, rate)
		}
		return rate, nil
	}

	r.logger.Warn("No rate inside lookback window", map[string]interface{}{
		"request_id": requestID,
		"currency":   currency,
		"date":       date.String(),
		"lookback":   r.lookback,
	})
	return nil, &entity.RateUnavailableError{Currency: currency, Date: date, Lookback: r.lookback}
}

// CacheStats reports how many lookups the run cache answered
func (r *RateResolver) CacheStats() (hits, misses int) {
	return r.cache.Stats()
}
