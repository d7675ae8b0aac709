// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics provides business metrics for the ledger engine.
// It tracks stock movements, document lifecycle, payment activity,
// financial postings and summary cache effectiveness.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	movementRecordedTotal  *Counter
	documentConfirmedTotal *Counter
	documentVoidedTotal    *Counter
	paymentTotal           *Counter
	paymentAmountTotal     *Counter
	paymentReversedTotal   *Counter
	advanceAdjustedTotal   *Counter
	financialPostedTotal   *Counter
	summaryCacheHits       *Counter
	summaryCacheMisses     *Counter

	// Gauge metrics (point-in-time values)
	lowStockCount    *Gauge
	outstandingDrift *FloatGauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	stockProvider StockMetricsProvider
}

// StockMetricsProvider provides stock data for periodic metrics collection.
// This interface lets the telemetry layer query stock health without
// depending on the stock domain directly.
type StockMetricsProvider interface {
	// GetLowStockCount returns the number of items at or below their reorder level
	GetLowStockCount(ctx context.Context) (int64, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StockProvider   StockMetricsProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		stockProvider: cfg.StockProvider,
	}

	var err error

	// Stock metrics
	lm.movementRecordedTotal, err = NewCounter(
		cfg.Meter,
		"karkhana_stock_movement_total",
		"Total number of stock movements recorded",
		"{movements}",
	)
	if err != nil {
		return nil, err
	}

	// Document metrics
	lm.documentConfirmedTotal, err = NewCounter(
		cfg.Meter,
		"karkhana_document_confirmed_total",
		"Total number of documents confirmed",
		"{documents}",
	)
	if err != nil {
		return nil, err
	}

	lm.documentVoidedTotal, err = NewCounter(
		cfg.Meter,
		"karkhana_document_voided_total",
		"Total number of documents voided",
		"{documents}",
	)
	if err != nil {
		return nil, err
	}

	// Payment metrics
	lm.paymentTotal, err = NewCounter(
		cfg.Meter,
		"karkhana_payment_total",
		"Total number of payment transactions",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	lm.paymentAmountTotal, err = NewCounter(
		cfg.Meter,
		"karkhana_payment_amount_total",
		"Total payment amount in paise",
		"{paise}",
	)
	if err != nil {
		return nil, err
	}

	lm.paymentReversedTotal, err = NewCounter(
		cfg.Meter,
		"karkhana_payment_reversed_total",
		"Total number of payments reversed",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	lm.advanceAdjustedTotal, err = NewCounter(
		cfg.Meter,
		"karkhana_advance_adjustment_total",
		"Total number of advance adjustments applied",
		"{adjustments}",
	)
	if err != nil {
		return nil, err
	}

	// Finance metrics
	lm.financialPostedTotal, err = NewCounter(
		cfg.Meter,
		"karkhana_financial_transaction_total",
		"Total number of financial transactions posted",
		"{transactions}",
	)
	if err != nil {
		return nil, err
	}

	// Cache metrics
	lm.summaryCacheHits, err = NewCounter(
		cfg.Meter,
		"karkhana_summary_cache_hits_total",
		"Summary cache hits",
		"{hits}",
	)
	if err != nil {
		return nil, err
	}

	lm.summaryCacheMisses, err = NewCounter(
		cfg.Meter,
		"karkhana_summary_cache_misses_total",
		"Summary cache misses",
		"{misses}",
	)
	if err != nil {
		return nil, err
	}

	// Gauges
	lm.lowStockCount, err = NewGauge(
		cfg.Meter,
		"karkhana_low_stock_count",
		"Number of items at or below their reorder level",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	lm.outstandingDrift, err = NewFloatGauge(
		cfg.Meter,
		"karkhana_party_outstanding_drift",
		"Absolute drift between stored and recomputed party outstanding",
		"{rupees}",
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// =============================================================================
// Stock Metrics
// =============================================================================

// RecordMovement records a stock movement event.
func (lm *LedgerMetrics) RecordMovement(ctx context.Context, itemType, movementType string) {
	lm.movementRecordedTotal.Inc(ctx,
		AttrItemType.String(itemType),
		AttrMovementType.String(movementType),
	)
}

// RecordLowStockCount records the number of items below reorder level.
// This is a gauge metric updated periodically.
func (lm *LedgerMetrics) RecordLowStockCount(ctx context.Context, count int64) {
	lm.lowStockCount.Record(ctx, count)
}

// =============================================================================
// Document Metrics
// =============================================================================

// RecordDocumentConfirmed records a document confirmation.
func (lm *LedgerMetrics) RecordDocumentConfirmed(ctx context.Context, documentType string) {
	lm.documentConfirmedTotal.Inc(ctx, AttrDocumentType.String(documentType))
}

// RecordDocumentVoided records a document void.
func (lm *LedgerMetrics) RecordDocumentVoided(ctx context.Context, documentType string) {
	lm.documentVoidedTotal.Inc(ctx, AttrDocumentType.String(documentType))
}

// =============================================================================
// Payment Metrics
// =============================================================================

// FundingSource labels where a payment was funded from.
type FundingSource string

const (
	FundingSourceAccount FundingSource = "account"
	FundingSourceAdvance FundingSource = "advance"
)

// RecordPayment records a payment transaction with its amount.
// The amount is converted to paise for the counter.
func (lm *LedgerMetrics) RecordPayment(ctx context.Context, paymentType string, funding FundingSource, amount decimal.Decimal) {
	lm.paymentTotal.Inc(ctx,
		AttrPaymentType.String(paymentType),
		AttrFundingSource.String(string(funding)),
	)

	amountPaise := amount.Mul(decimal.NewFromInt(100)).IntPart()
	lm.paymentAmountTotal.Add(ctx, amountPaise,
		AttrPaymentType.String(paymentType),
	)
}

// RecordPaymentReversed records a payment reversal.
func (lm *LedgerMetrics) RecordPaymentReversed(ctx context.Context, paymentType string) {
	lm.paymentReversedTotal.Inc(ctx, AttrPaymentType.String(paymentType))
}

// RecordAdvanceAdjusted records an advance adjustment.
func (lm *LedgerMetrics) RecordAdvanceAdjusted(ctx context.Context) {
	lm.advanceAdjustedTotal.Inc(ctx)
}

// =============================================================================
// Finance Metrics
// =============================================================================

// RecordFinancialPosted records a posted financial transaction.
func (lm *LedgerMetrics) RecordFinancialPosted(ctx context.Context, transactionType string) {
	lm.financialPostedTotal.Inc(ctx, AttrTransactionType.String(transactionType))
}

// =============================================================================
// Cache Metrics
// =============================================================================

// RecordCacheHit records a summary cache hit.
func (lm *LedgerMetrics) RecordCacheHit(ctx context.Context, key string) {
	lm.summaryCacheHits.Inc(ctx, AttrCacheKey.String(key))
}

// RecordCacheMiss records a summary cache miss.
func (lm *LedgerMetrics) RecordCacheMiss(ctx context.Context, key string) {
	lm.summaryCacheMisses.Inc(ctx, AttrCacheKey.String(key))
}

// =============================================================================
// Recalculation Metrics
// =============================================================================

// RecordOutstandingDrift records the absolute drift found for a party
// during recalculation.
func (lm *LedgerMetrics) RecordOutstandingDrift(ctx context.Context, drift decimal.Decimal) {
	lm.outstandingDrift.Record(ctx, drift.Abs().InexactFloat64())
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects stock health metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go lm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	lm.collectStockMetrics(ctx)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectStockMetrics(ctx)
		}
	}
}

// collectStockMetrics collects stock gauge metrics.
func (lm *LedgerMetrics) collectStockMetrics(ctx context.Context) {
	if lm.stockProvider == nil {
		lm.logger.Debug("No stock provider configured, skipping stock metrics collection")
		return
	}

	lowStockCount, err := lm.stockProvider.GetLowStockCount(ctx)
	if err != nil {
		lm.logger.Warn("Failed to get low stock count", zap.Error(err))
		return
	}

	lm.RecordLowStockCount(ctx, lowStockCount)
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
