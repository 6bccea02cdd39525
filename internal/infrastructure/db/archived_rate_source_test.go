// internal/infrastructure/db/archived_rate_source_test.go
package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestArchivedRateSource(t *testing.T) {
	ctx := context.Background()
	testDate := civil.Date{Year: 2023, Month: 4, Day: 14}
	expectedRate := &entity.ExchangeRate{
		Currency: entity.EUR,
		Date:     testDate,
		Rate:     decimal.RequireFromString("2.8203"),
	}

	t.Run("Fetches upstream once then serves from archive", func(t *testing.T) {
		upstream := new(mocks.MockRateSource)
		source := NewArchivedRateSource(upstream, NewBadgerRateArchive(openTestDB(t)), logger.Nop())

		upstream.On("FetchRate", mock.Anything, entity.EUR, testDate).Return(expectedRate, nil).Once()

		rate, err := source.FetchRate(ctx, entity.EUR, testDate)
		require.NoError(t, err)
		assert.Equal(t, expectedRate, rate)

		rate, err = source.FetchRate(ctx, entity.EUR, testDate)
		require.NoError(t, err)
		assert.True(t, expectedRate.Rate.Equal(rate.Rate))

		upstream.AssertExpectations(t)
	})

	t.Run("Misses are not archived", func(t *testing.T) {
		upstream := new(mocks.MockRateSource)
		archive := NewBadgerRateArchive(openTestDB(t))
		source := NewArchivedRateSource(upstream, archive, logger.Nop())

		upstream.On("FetchRate", mock.Anything, entity.EUR, testDate).
			Return(nil, service.ErrRateNotPublished).Twice()

		_, err := source.FetchRate(ctx, entity.EUR, testDate)
		assert.ErrorIs(t, err, service.ErrRateNotPublished)
		_, err = source.FetchRate(ctx, entity.EUR, testDate)
		assert.ErrorIs(t, err, service.ErrRateNotPublished)

		count, err := archive.Count()
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		upstream.AssertExpectations(t)
	})

	t.Run("Archive failures fall through to upstream", func(t *testing.T) {
		upstream := new(mocks.MockRateSource)
		archive := new(mocks.MockExchangeRateRepository)
		source := NewArchivedRateSource(upstream, archive, logger.Nop())

		query := entity.RateQuery{Currency: entity.EUR, Date: testDate}
		archive.On("FindRate", mock.Anything, query).Return(nil, errors.New("disk on fire")).Once()
		archive.On("StoreRate", mock.Anything, query, expectedRate).Return(errors.New("disk on fire")).Once()
		upstream.On("FetchRate", mock.Anything, entity.EUR, testDate).Return(expectedRate, nil).Once()

		rate, err := source.FetchRate(ctx, entity.EUR, testDate)
		require.NoError(t, err)
		assert.Equal(t, expectedRate, rate)

		archive.AssertExpectations(t)
		upstream.AssertExpectations(t)
	})

	t.Run("Archived entry short-circuits upstream", func(t *testing.T) {
		upstream := new(mocks.MockRateSource)
		archive := new(mocks.MockExchangeRateRepository)
		source := NewArchivedRateSource(upstream, archive, logger.Nop())

		archive.On("FindRate", mock.Anything, entity.RateQuery{Currency: entity.EUR, Date: testDate}).
			Return(expectedRate, nil).Once()

		rate, err := source.FetchRate(ctx, entity.EUR, testDate)
		require.NoError(t, err)
		assert.Equal(t, expectedRate, rate)
		upstream.AssertNotCalled(t, "FetchRate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Cancelled caller does not cancel the shared fetch", func(t *testing.T) {
		upstream := &gatedRateSource{rate: expectedRate, started: make(chan struct{}), release: make(chan struct{})}
		source := NewArchivedRateSource(upstream, NewBadgerRateArchive(openTestDB(t)), logger.Nop())

		firstCtx, cancelFirst := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := source.FetchRate(firstCtx, entity.EUR, testDate)
			firstErr <- err
		}()
		<-upstream.started

		type result struct {
			rate *entity.ExchangeRate
			err  error
		}
		second := make(chan result, 1)
		go func() {
			rate, err := source.FetchRate(ctx, entity.EUR, testDate)
			second <- result{rate, err}
		}()

		cancelFirst()
		select {
		case err := <-firstErr:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("cancelled caller kept waiting on the upstream fetch")
		}

		close(upstream.release)
		res := <-second
		require.NoError(t, res.err)
		assert.True(t, expectedRate.Rate.Equal(res.rate.Rate))

		for _, err := range upstream.contextErrors() {
			assert.NoError(t, err)
		}
	})
}

// gatedRateSource blocks every fetch until release is closed and records the
// state of the context it was given
type gatedRateSource struct {
	rate    *entity.ExchangeRate
	started chan struct{}
	release chan struct{}

	once sync.Once
	mu   sync.Mutex
	errs []error
}

func (g *gatedRateSource) FetchRate(ctx context.Context, _ entity.Currency, _ civil.Date) (*entity.ExchangeRate, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release

	g.mu.Lock()
	g.errs = append(g.errs, ctx.Err())
	g.mu.Unlock()
	return g.rate, nil
}

func (g *gatedRateSource) contextErrors() []error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]error(nil), g.errs...)
}
