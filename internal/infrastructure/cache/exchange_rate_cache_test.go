package cache

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestExchangeRateCache(t *testing.T) {
	cache := NewExchangeRateCache()

	assert.Equal(t, 0, cache.Size())

	date := civil.Date{Year: 2023, Month: 1, Day: 15}
	query := entity.RateQuery{Currency: entity.EUR, Date: date}
	rate := &entity.ExchangeRate{
		Currency: entity.EUR,
		Date:     date,
		Rate:     decimal.RequireFromString("2.8512"),
	}

	_, ok := cache.Get(query)
	assert.False(t, ok)

	cache.Put(query, rate)
	assert.Equal(t, 1, cache.Size())

	entry, ok := cache.Get(query)
	assert.True(t, ok)
	assert.False(t, entry.Miss)
	assert.Same(t, rate, entry.Rate)

	// Same date, other currency is a separate key
	_, ok = cache.Get(entity.RateQuery{Currency: entity.USD, Date: date})
	assert.False(t, ok)

	sunday := entity.RateQuery{Currency: entity.EUR, Date: date.AddDays(-1)}
	cache.PutMiss(sunday)
	entry, ok = cache.Get(sunday)
	assert.True(t, ok)
	assert.True(t, entry.Miss)
	assert.Nil(t, entry.Rate)

	hits, misses := cache.Stats()
	assert.Equal(t, 2, hits)
	assert.Equal(t, 2, misses)
	assert.Equal(t, 2, cache.Size())
}

func TestExchangeRateCacheIsolation(t *testing.T) {
	a := NewExchangeRateCache()
	b := NewExchangeRateCache()

	query := entity.RateQuery{Currency: entity.USD, Date: civil.Date{Year: 2024, Month: 3, Day: 1}}
	a.Put(query, &entity.ExchangeRate{Currency: entity.USD, Date: query.Date, Rate: decimal.NewFromInt(3)})

	_, ok := b.Get(query)
	assert.False(t, ok)
}
