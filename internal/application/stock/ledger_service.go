package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/karkhana-erp/backend/internal/application/validation"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
	"github.com/karkhana-erp/backend/internal/infrastructure/telemetry"
)

// LedgerService owns the append-only stock ledger. Current stock is
// always the sum of quantity in minus quantity out over an item's
// movements; no table stores it.
type LedgerService struct {
	scope   TransactionScope
	cache   shared.SummaryCache
	events  shared.EventPublisher
	metrics *telemetry.LedgerMetrics
	logger  *zap.Logger
}

// NewLedgerService creates a LedgerService. Cache, events and metrics
// are optional.
func NewLedgerService(
	scope TransactionScope,
	cache shared.SummaryCache,
	events shared.EventPublisher,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		scope:   scope,
		cache:   cache,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// CurrentStock returns the authoritative stock of one item.
func (s *LedgerService) CurrentStock(ctx context.Context, itemType stock.ItemType, itemID uuid.UUID) (decimal.Decimal, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "current_stock")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrItemType, itemType.String(),
		telemetry.SpanAttrItemID, itemID.String(),
	)

	if !itemType.IsValid() {
		err := shared.NewValidationError("invalid item type: %s", itemType)
		telemetry.RecordError(span, err)
		return decimal.Zero, err
	}

	var qty decimal.Decimal
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		qty, err = repos.Movements().CurrentStock(ctx, itemType, itemID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return decimal.Zero, err
	}
	return qty, nil
}

// RecordMovement validates and appends one movement. The running
// balance is computed inside the transaction; outbound movements are
// guarded against driving stock negative while holding the per-item
// lock, so two concurrent sells cannot both pass a stale check.
func (s *LedgerService) RecordMovement(ctx context.Context, req RecordMovementRequest) (*MovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "record_movement")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrItemType, string(req.ItemType),
		telemetry.SpanAttrMovementType, string(req.MovementType),
		telemetry.SpanAttrReferenceType, string(req.ReferenceType),
		telemetry.SpanAttrReferenceID, req.ReferenceID,
	)

	var movement *stock.Movement
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("record_movement", nil), func(c context.Context) {
		if err := validation.Struct(req); err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		m, err := stock.NewMovement(
			req.ItemType, req.ItemRef(), req.MovementType,
			req.QuantityIn, req.QuantityOut,
			req.ReferenceType, req.ReferenceID, req.ReferenceCode,
		)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}
		if req.Remarks != "" {
			m.WithRemarks(req.Remarks)
		}
		if req.MovementDate != nil {
			m.WithMovementDate(*req.MovementDate)
		}

		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			return AppendMovement(c, repos.Movements(), m)
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
			return
		}
		movement = m
	})
	if operationErr != nil {
		return nil, operationErr
	}

	s.afterLedgerWrite(ctx, stock.NewMovementRecordedEvent(movement))
	if s.metrics != nil {
		s.metrics.RecordMovement(ctx, movement.ItemType.String(), movement.MovementType.String())
	}
	telemetry.AddEvent(span, "movement_recorded",
		"movement_id", movement.ID.String(),
		"running_balance", movement.RunningBalance.String(),
	)

	return NewMovementResponse(movement), nil
}

// ValidateAvailability reports whether an item can cover a required
// outbound quantity. Read-only; it never takes the item lock, so a
// passing check can still lose the race and the write path re-checks.
func (s *LedgerService) ValidateAvailability(ctx context.Context, itemType stock.ItemType, itemID uuid.UUID, required decimal.Decimal) (*AvailabilityResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "validate_availability")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrItemType, itemType.String(),
		telemetry.SpanAttrItemID, itemID.String(),
		telemetry.SpanAttrQuantity, required.String(),
	)

	if required.IsNegative() {
		err := shared.NewValidationError("required quantity cannot be negative")
		telemetry.RecordError(span, err)
		return nil, err
	}

	available, err := s.CurrentStock(ctx, itemType, itemID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &AvailabilityResult{
		Available: available,
		Required:  required,
		Shortfall: decimal.Zero,
	}
	if available.GreaterThanOrEqual(required) {
		result.IsValid = true
	} else {
		result.Shortfall = required.Sub(available)
	}
	return result, nil
}

// AllItemsWithStock computes current stock for every item of a type in
// one grouped pass. Items without movements report zero.
func (s *LedgerService) AllItemsWithStock(ctx context.Context, itemType stock.ItemType) ([]stock.ItemStock, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "all_items_with_stock")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrItemType, itemType.String())

	if !itemType.IsValid() {
		err := shared.NewValidationError("invalid item type: %s", itemType)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result []stock.ItemStock
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		grouped, err := repos.Movements().StockByItem(ctx, itemType)
		if err != nil {
			return err
		}
		items, err := repos.Items().FindAllItems(ctx, itemType)
		if err != nil {
			return err
		}

		byItem := make(map[uuid.UUID]decimal.Decimal, len(grouped))
		for _, g := range grouped {
			byItem[g.ItemID] = g.Quantity
		}
		result = make([]stock.ItemStock, 0, len(items))
		for _, item := range items {
			qty, ok := byItem[item.ID]
			if !ok {
				qty = decimal.Zero
			}
			result = append(result, stock.ItemStock{ItemType: itemType, ItemID: item.ID, Quantity: qty})
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// RecordReversalMovements appends one compensating row per movement of
// a reference. Nothing is deleted; a voided document keeps its original
// rows and gains mirrored ones.
func (s *LedgerService) RecordReversalMovements(ctx context.Context, refType stock.ReferenceType, refID string, reversalType stock.MovementType) ([]*MovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "record_reversal_movements")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrReferenceType, refType.String(),
		telemetry.SpanAttrReferenceID, refID,
		telemetry.SpanAttrMovementType, reversalType.String(),
	)

	var reversals []*stock.Movement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		reversals, err = AppendReversalMovements(ctx, repos.Movements(), refType, refID, reversalType)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterLedgerWrite(ctx, stock.NewMovementsReversedEvent(refType, refID, len(reversals)))

	responses := make([]*MovementResponse, 0, len(reversals))
	for _, m := range reversals {
		responses = append(responses, NewMovementResponse(m))
	}
	return responses, nil
}

// afterLedgerWrite runs the post-commit glue shared by every ledger
// write: cache invalidation and event publication. Failures are logged,
// never surfaced; the ledger row is already durable.
func (s *LedgerService) afterLedgerWrite(ctx context.Context, event shared.DomainEvent) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, shared.CacheKeyStockSummary, shared.CacheKeyDashboard); err != nil {
			s.logger.Warn("Failed to invalidate summary cache after ledger write", zap.Error(err))
		}
	}
	if s.events != nil && event != nil {
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish ledger event", zap.Error(err))
		}
	}
}

// AppendMovement computes the running balance and appends a movement
// within the caller's transaction. Outbound movements re-read current
// stock under the item's write lock and fail with InsufficientStockError
// when the ledger cannot cover the quantity. Document confirmation uses
// this directly so its movements share the document transaction.
func AppendMovement(ctx context.Context, movements stock.MovementRepository, m *stock.Movement) error {
	var current decimal.Decimal
	var err error
	if m.IsInbound() {
		current, err = movements.CurrentStock(ctx, m.ItemType, m.ItemID())
	} else {
		current, err = movements.CurrentStockForUpdate(ctx, m.ItemType, m.ItemID())
	}
	if err != nil {
		return fmt.Errorf("failed to compute current stock: %w", err)
	}

	// Reversal rows may legitimately drive stock below zero when the
	// goods were already re-sold; only regular outbound movements guard.
	if !m.IsInbound() && !m.MovementType.IsReversal() && current.LessThan(m.QuantityOut) {
		return shared.NewInsufficientStockError(current, m.QuantityOut)
	}

	m.WithRunningBalance(current.Add(m.Delta()))
	return movements.Create(ctx, m)
}

// AppendReversalMovements appends the compensating rows for every
// movement of a reference within the caller's transaction and returns
// the new rows. References without movements reverse to nothing.
func AppendReversalMovements(ctx context.Context, movements stock.MovementRepository, refType stock.ReferenceType, refID string, reversalType stock.MovementType) ([]*stock.Movement, error) {
	originals, err := movements.FindByReference(ctx, refType, refID)
	if err != nil {
		return nil, fmt.Errorf("failed to load movements for %s %s: %w", refType, refID, err)
	}

	reversals := make([]*stock.Movement, 0, len(originals))
	for i := range originals {
		orig := &originals[i]
		if orig.MovementType.IsReversal() {
			continue
		}
		rev, err := orig.Reversed(reversalType)
		if err != nil {
			return nil, err
		}
		if err := AppendMovement(ctx, movements, rev); err != nil {
			return nil, err
		}
		reversals = append(reversals, rev)
	}
	return reversals, nil
}
