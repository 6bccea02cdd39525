// Package service internal/application/service/declaration_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	ports "github.com/damon-houk/georgia-tax-declaration/internal/domain/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunState is a step of the submission pipeline
type RunState string

const (
	StateReceived   RunState = "received"
	StateNormalized RunState = "normalized"
	StateConverting RunState = "converting"
	StateAggregated RunState = "aggregated"
	StateReported   RunState = "reported"
	StateFailed     RunState = "failed"
)

var (
	// ErrReaderNotConfigured is returned when an ingest surface has no reader wired
	ErrReaderNotConfigured = errors.New("ledger reader not configured")
	// ErrUnreadableLedger wraps every reader failure
	ErrUnreadableLedger = errors.New("ledger could not be read")
)

// Run is one submission going through the pipeline.
// A failed run never exposes a report.
type Run struct {
	ID string

	mu      sync.Mutex
	state   RunState
	history []RunState
	err     error
	report  *entity.DeclarationReport
}

func newRun() *Run {
	return &Run{
		ID:      uuid.New().String(),
		state:   StateReceived,
		history: []RunState{StateReceived},
	}
}

// State returns the current step
func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// History returns every state the run went through, in order
func (r *Run) History() []RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RunState(nil), r.history...)
}

// Err returns the failure reason of a failed run
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Report returns the declaration of a reported run, nil otherwise
func (r *Run) Report() *entity.DeclarationReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReported {
		return nil
	}
	return r.report
}

func (r *Run) advance(state RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.history = append(r.history, state)
}

func (r *Run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateFailed
	r.history = append(r.history, StateFailed)
	r.err = err
	r.report = nil
}

// DeclarationServiceConfig configures the pipeline
type DeclarationServiceConfig struct {
	// LookbackDays bounds the search for an earlier published rate
	LookbackDays int
	// Now is the clock used to reject future-dated rows
	Now         func() time.Time
	FileReader  ports.LedgerFileReader
	SheetReader ports.LedgerSheetReader
}

// DeclarationService runs submissions through normalize, convert and aggregate
type DeclarationService struct {
	source     ports.RateSource
	normalizer *SchemaNormalizer
	aggregator *Aggregator
	cfg        DeclarationServiceConfig
	logger     logger.Logger
}

// NewDeclarationService creates a new declaration service
func NewDeclarationService(source ports.RateSource, cfg DeclarationServiceConfig, log logger.Logger) *DeclarationService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &DeclarationService{
		source:     source,
		normalizer: NewSchemaNormalizer(log),
		aggregator: NewAggregator(log),
		cfg:        cfg,
		logger:     log,
	}
}

// Process runs one submission. The returned run is never nil; on error it is
// in StateFailed and carries no report.
func (s *DeclarationService) Process(ctx context.Context, table entity.Table, prior decimal.Decimal) (*Run, error) {
	run := newRun()
	log := s.logger.WithFields(map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"run_id":     run.ID,
	})

	log.Info("Processing declaration", map[string]interface{}{
		"rows":  len(table.Rows),
		"prior": prior.StringFixed(2),
	})

	err := s.process(ctx, run, log, table, prior)
	if err != nil {
		run.fail(err)
		log.Warn("Declaration failed", map[string]interface{}{
			"state_history": run.History(),
			"error":         err.Error(),
		})
		return run, err
	}

	report := run.Report()
	log.Info("Declaration reported", map[string]interface{}{
		"transactions": report.TransactionCount,
		"field_15":     report.Field15.StringFixed(2),
	})
	return run, nil
}

func (s *DeclarationService) process(ctx context.Context, run *Run, log logger.Logger, table entity.Table, prior decimal.Decimal) error {
	if prior.IsNegative() {
		return &entity.ValidationError{Field: FieldPriorAmount, Value: prior.String(), Reason: "prior-period amount cannot be negative"}
	}

	normalized, err := s.normalizer.Normalize(table)
	if err != nil {
		return err
	}
	run.advance(StateNormalized)
	log.Debug("Run state changed", map[string]interface{}{"state": StateNormalized, "language": normalized.Language})

	run.advance(StateConverting)
	resolver := NewRateResolver(s.source, s.cfg.LookbackDays, log)
	converter := NewRowConverter(resolver, s.cfg.Now, log)

	converted := make([]entity.ConvertedTransaction, 0, len(normalized.Rows))
	for _, row := range normalized.Rows {
		tx, err := converter.Convert(ctx, row)
		if err != nil {
			return err
		}
		converted = append(converted, *tx)
	}

	hits, misses := resolver.CacheStats()
	log.Debug("Rows converted", map[string]interface{}{
		"rows":         len(converted),
		"cache_hits":   hits,
		"cache_misses": misses,
	})
	if len(converted) == 0 {
		log.Warn("Ledger has no transactions", nil)
	}

	report, err := s.aggregator.Aggregate(converted, prior)
	if err != nil {
		return err
	}
	run.advance(StateAggregated)

	run.mu.Lock()
	run.report = &report
	run.mu.Unlock()
	run.advance(StateReported)

	return nil
}

// ProcessFile reads an uploaded spreadsheet and processes it
func (s *DeclarationService) ProcessFile(ctx context.Context, r io.Reader, prior decimal.Decimal) (*Run, error) {
	if s.cfg.FileReader == nil {
		return failedRun(fmt.Errorf("file upload: %w", ErrReaderNotConfigured))
	}
	table, err := s.cfg.FileReader.Read(ctx, r)
	if err != nil {
		return failedRun(fmt.Errorf("%w: file upload: %w", ErrUnreadableLedger, err))
	}
	return s.Process(ctx, table, prior)
}

// ProcessSheet reads a shared online spreadsheet and processes it
func (s *DeclarationService) ProcessSheet(ctx context.Context, link string, prior decimal.Decimal) (*Run, error) {
	if s.cfg.SheetReader == nil {
		return failedRun(fmt.Errorf("shared sheet: %w", ErrReaderNotConfigured))
	}
	table, err := s.cfg.SheetReader.Read(ctx, link)
	if err != nil {
		return failedRun(fmt.Errorf("%w: shared sheet: %w", ErrUnreadableLedger, err))
	}
	return s.Process(ctx, table, prior)
}

// Rate resolves a single rate outside of any submission
func (s *DeclarationService) Rate(ctx context.Context, currency entity.Currency, date civil.Date) (*entity.ExchangeRate, error) {
	return NewRateResolver(s.source, s.cfg.LookbackDays, s.logger).Resolve(ctx, currency, date)
}

func failedRun(err error) (*Run, error) {
	run := newRun()
	run.fail(err)
	return run, err
}
