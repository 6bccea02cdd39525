package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/repository"
	"github.com/dgraph-io/badger/v3"
)

const rateKeyPrefix = "rate:"

// BadgerRateArchive implements the exchange rate repository interface using BadgerDB.
// It keeps published NBG rates only; ledgers are never written here.
type BadgerRateArchive struct {
	db *badger.DB
}

var _ repository.ExchangeRateRepository = (*BadgerRateArchive)(nil)

// NewBadgerRateArchive creates a new BadgerDB rate archive
func NewBadgerRateArchive(db *badger.DB) *BadgerRateArchive {
	return &BadgerRateArchive{db: db}
}

func rateKey(query entity.RateQuery) []byte {
	return []byte(rateKeyPrefix + query.Key())
}

// StoreRate archives the rate answered for query
func (r *BadgerRateArchive) StoreRate(ctx context.Context, query entity.RateQuery, rate *entity.ExchangeRate) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange rate: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rateKey(query), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store exchange rate: %w", err)
	}

	return nil
}

// FindRate returns the archived rate for query or repository.ErrRateNotArchived
func (r *BadgerRateArchive) FindRate(ctx context.Context, query entity.RateQuery) (*entity.ExchangeRate, error) {
	var rate entity.ExchangeRate

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(rateKey(query))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rate)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, repository.ErrRateNotArchived
	}

	if err != nil {
		return nil, fmt.Errorf("failed to retrieve exchange rate: %w", err)
	}

	return &rate, nil
}

// Count returns the number of archived rates
func (r *BadgerRateArchive) Count() (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(rateKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
