// Package db internal/infrastructure/db/archived_rate_source.go
package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/repository"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"golang.org/x/sync/singleflight"
)

// ArchivedRateSource serves rates from the archive and falls back to the upstream
// provider, archiving what it answers. Identical upstream calls in flight from
// concurrent submissions are collapsed into one.
type ArchivedRateSource struct {
	upstream service.RateSource
	archive  repository.ExchangeRateRepository
	group    singleflight.Group
	logger   logger.Logger
}

var _ service.RateSource = (*ArchivedRateSource)(nil)

// NewArchivedRateSource creates a rate source backed by archive
func NewArchivedRateSource(upstream service.RateSource, archive repository.ExchangeRateRepository, log logger.Logger) *ArchivedRateSource {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ArchivedRateSource{
		upstream: upstream,
		archive:  archive,
		logger:   log,
	}
}

// FetchRate finds a rate for a specific currency and date
func (s *ArchivedRateSource) FetchRate(ctx context.Context, currency entity.Currency, date civil.Date) (*entity.ExchangeRate, error) {
	query := entity.RateQuery{Currency: currency, Date: date}

	rate, err := s.archive.FindRate(ctx, query)
	if err == nil {
		s.logger.Debug("Exchange rate served from archive", map[string]interface{}{
			"currency": currency,
			"date":     date.String(),
			"rate":     rate.Rate.String(),
		})
		return rate, nil
	}
	if !errors.Is(err, repository.ErrRateNotArchived) {
		// A broken archive should not block declarations
		s.logger.Warn("Rate archive read failed", map[string]interface{}{
			"currency": currency,
			"date":     date.String(),
			"error":    err.Error(),
		})
	}

	// The shared fetch outlives any single caller; each caller still stops
	// waiting when its own context ends.
	fetch := context.WithoutCancel(ctx)
	ch := s.group.DoChan(query.Key(), func() (interface{}, error) {
		return s.upstream.FetchRate(fetch, currency, date)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to retrieve exchange rate: %w", ctx.Err())
	}
	if res.Err != nil {
		return nil, fmt.Errorf("failed to retrieve exchange rate: %w", res.Err)
	}
	rate = res.Val.(*entity.ExchangeRate)
	shared := res.Shared

	if storeErr := s.archive.StoreRate(ctx, query, rate); storeErr != nil {
		s.logger.Warn("Failed to archive exchange rate", map[string]interface{}{
			"currency": currency,
			"date":     date.String(),
			"error":    storeErr.Error(),
		})
	}

	s.logger.Info("Exchange rate fetched from upstream", map[string]interface{}{
		"currency":  currency,
		"date":      date.String(),
		"rate":      rate.Rate.String(),
		"rate_date": rate.Date.String(),
		"shared":    shared,
	})

	return rate, nil
}
