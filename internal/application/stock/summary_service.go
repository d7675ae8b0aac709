package stock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
	"github.com/karkhana-erp/backend/internal/infrastructure/telemetry"
)

// SummaryService serves the precomputed stock overview. Cache entries
// are disposable: a miss recomputes everything from the movement ledger
// and item masters, collapsed through singleflight so a cold cache under
// concurrent readers runs the expensive aggregation once.
type SummaryService struct {
	movements stock.MovementRepository
	items     stock.ItemRepository
	cache     shared.SummaryCache
	ttl       time.Duration
	group     singleflight.Group
	metrics   *telemetry.LedgerMetrics
	logger    *zap.Logger
}

// DefaultSummaryTTL is used when no TTL is configured.
const DefaultSummaryTTL = 5 * time.Minute

// NewSummaryService creates a SummaryService. Cache and metrics are
// optional; without a cache every call recomputes.
func NewSummaryService(
	movements stock.MovementRepository,
	items stock.ItemRepository,
	cache shared.SummaryCache,
	ttl time.Duration,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
) *SummaryService {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{
		movements: movements,
		items:     items,
		cache:     cache,
		ttl:       ttl,
		metrics:   metrics,
		logger:    logger,
	}
}

// StockSummary returns the stock overview, from cache when possible.
func (s *SummaryService) StockSummary(ctx context.Context) (*StockSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_summary", "stock_summary")
	defer span.End()

	if cached := s.fromCache(ctx); cached != nil {
		telemetry.SetAttributes(span, "cache_hit", true)
		return cached, nil
	}

	v, err, sharedCall := s.group.Do(shared.CacheKeyStockSummary, func() (any, error) {
		summary, err := s.compute(ctx)
		if err != nil {
			return nil, err
		}
		s.store(ctx, summary)
		return summary, nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "singleflight_shared", sharedCall)

	return v.(*StockSummary), nil
}

// InvalidateStockSummary drops the cached stock summary.
func (s *SummaryService) InvalidateStockSummary(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, shared.CacheKeyStockSummary)
}

// InvalidateDashboardKPIs drops the cached dashboard payload.
func (s *SummaryService) InvalidateDashboardKPIs(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, shared.CacheKeyDashboard)
}

// GetLowStockCount implements telemetry.StockMetricsProvider for the
// periodic gauge collector.
func (s *SummaryService) GetLowStockCount(ctx context.Context) (int64, error) {
	summary, err := s.StockSummary(ctx)
	if err != nil {
		return 0, err
	}
	return int64(summary.LowStockCount), nil
}

func (s *SummaryService) fromCache(ctx context.Context) *StockSummary {
	if s.cache == nil {
		return nil
	}
	payload, ok, err := s.cache.Get(ctx, shared.CacheKeyStockSummary)
	if err != nil {
		s.logger.Warn("Stock summary cache read failed, recomputing", zap.Error(err))
		return nil
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.RecordCacheMiss(ctx, shared.CacheKeyStockSummary)
		}
		return nil
	}

	var summary StockSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		s.logger.Warn("Stock summary cache entry is corrupt, recomputing", zap.Error(err))
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheHit(ctx, shared.CacheKeyStockSummary)
	}
	summary.FromCache = true
	return &summary
}

func (s *SummaryService) store(ctx context.Context, summary *StockSummary) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		s.logger.Warn("Failed to marshal stock summary for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, shared.CacheKeyStockSummary, payload, s.ttl); err != nil {
		s.logger.Warn("Failed to cache stock summary", zap.Error(err))
	}
}

// compute rebuilds the summary from the ledger: one grouped aggregate
// per item type plus one movement-type totals pass for the WIP and
// consigned figures.
func (s *SummaryService) compute(ctx context.Context) (*StockSummary, error) {
	var (
		summary *StockSummary
		err     error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.RegionLabels("summary_rebuild", nil), func(c context.Context) {
		summary, err = s.aggregate(c)
	})
	return summary, err
}

func (s *SummaryService) aggregate(ctx context.Context) (*StockSummary, error) {
	rawEntries, lowRaw, err := s.entriesFor(ctx, stock.ItemTypeRawMaterial)
	if err != nil {
		return nil, err
	}
	fgEntries, lowFG, err := s.entriesFor(ctx, stock.ItemTypeFinishedProduct)
	if err != nil {
		return nil, err
	}

	totals, err := s.movements.TotalsByMovementType(ctx)
	if err != nil {
		return nil, err
	}

	return &StockSummary{
		RawMaterials:      rawEntries,
		FinishedProducts:  fgEntries,
		LowStockCount:     lowRaw + lowFG,
		WIPQuantity:       wipQuantity(totals),
		ConsignedQuantity: consignedQuantity(totals),
		GeneratedAt:       time.Now(),
	}, nil
}

func (s *SummaryService) entriesFor(ctx context.Context, itemType stock.ItemType) ([]ItemStockEntry, int, error) {
	items, err := s.items.FindAllItems(ctx, itemType)
	if err != nil {
		return nil, 0, err
	}
	grouped, err := s.movements.StockByItem(ctx, itemType)
	if err != nil {
		return nil, 0, err
	}

	byItem := make(map[uuid.UUID]decimal.Decimal, len(grouped))
	for _, g := range grouped {
		byItem[g.ItemID] = g.Quantity
	}

	entries := make([]ItemStockEntry, 0, len(items))
	lowCount := 0
	for _, item := range items {
		qty, ok := byItem[item.ID]
		if !ok {
			qty = decimal.Zero
		}
		low := item.ReorderLevel.IsPositive() && qty.LessThanOrEqual(item.ReorderLevel)
		if low {
			lowCount++
		}
		entries = append(entries, ItemStockEntry{
			ItemID:       item.ID,
			ItemType:     itemType,
			Code:         item.Code,
			Name:         item.Name,
			Unit:         item.Unit,
			Quantity:     qty,
			ReorderLevel: item.ReorderLevel,
			LowStock:     low,
		})
	}
	return entries, lowCount, nil
}

// wipQuantity is material issued to production and not yet received
// back as output: issues minus receipts, floored at zero since early
// receipts can transiently exceed recorded issues.
func wipQuantity(totals []stock.MovementTypeTotal) decimal.Decimal {
	issued, received := decimal.Zero, decimal.Zero
	for _, t := range totals {
		switch t.MovementType {
		case stock.MovementTypeRawOut, stock.MovementTypeProductionOut:
			issued = issued.Add(t.TotalOut)
		case stock.MovementTypeProductionIn:
			received = received.Add(t.TotalIn)
		}
	}
	wip := issued.Sub(received)
	if wip.IsNegative() {
		return decimal.Zero
	}
	return wip
}

// consignedQuantity is goods sitting with third parties as samples:
// sample issues net of sample returns.
func consignedQuantity(totals []stock.MovementTypeTotal) decimal.Decimal {
	consigned := decimal.Zero
	for _, t := range totals {
		if t.MovementType == stock.MovementTypeSampleOut {
			consigned = consigned.Add(t.TotalOut).Sub(t.TotalIn)
		}
	}
	if consigned.IsNegative() {
		return decimal.Zero
	}
	return consigned
}
