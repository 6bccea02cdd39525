package db

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/repository"
	"github.com/dgraph-io/badger/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBadgerRateArchive(t *testing.T) {
	archive := NewBadgerRateArchive(openTestDB(t))
	ctx := context.Background()

	sunday := civil.Date{Year: 2024, Month: 1, Day: 7}
	query := entity.RateQuery{Currency: entity.USD, Date: sunday}

	_, err := archive.FindRate(ctx, query)
	assert.ErrorIs(t, err, repository.ErrRateNotArchived)

	rate := &entity.ExchangeRate{
		Currency: entity.USD,
		Date:     civil.Date{Year: 2024, Month: 1, Day: 6},
		Rate:     decimal.RequireFromString("2.6871"),
	}
	require.NoError(t, archive.StoreRate(ctx, query, rate))

	found, err := archive.FindRate(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, entity.USD, found.Currency)
	assert.Equal(t, rate.Date, found.Date)
	assert.True(t, rate.Rate.Equal(found.Rate))

	// Stored under the queried date, not the publication date
	_, err = archive.FindRate(ctx, entity.RateQuery{Currency: entity.USD, Date: rate.Date})
	assert.ErrorIs(t, err, repository.ErrRateNotArchived)

	count, err := archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
