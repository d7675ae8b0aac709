// Package recalc rebuilds party outstanding figures from the underlying
// documents and advances. It is the only sanctioned path that writes
// outstanding outside the document and payment engines, kept for drift
// introduced by historical bugs or manual database surgery.
package recalc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/infrastructure/telemetry"
)

// partyPageSize is how many parties one recalculation batch loads.
const partyPageSize = 200

// PartyDrift reports one party's stored versus recomputed outstanding.
type PartyDrift struct {
	PartyID    uuid.UUID       `json:"party_id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Stored     decimal.Decimal `json:"stored"`
	Recomputed decimal.Decimal `json:"recomputed"`
	Drift      decimal.Decimal `json:"drift"` // stored − recomputed
	Corrected  bool            `json:"corrected"`
}

// HasDrift reports whether the stored figure diverges at all.
func (d PartyDrift) HasDrift() bool {
	return !d.Drift.IsZero()
}

// RecalcService recomputes party outstanding as the sum of confirmed
// document balances minus unconsumed advance credit, floored at zero to
// match the clamp the forward paths apply.
type RecalcService struct {
	scope   TransactionScope
	events  shared.EventPublisher
	metrics *telemetry.LedgerMetrics
	logger  *zap.Logger
}

// NewRecalcService creates a RecalcService. Events and metrics are optional.
func NewRecalcService(scope TransactionScope, events shared.EventPublisher, metrics *telemetry.LedgerMetrics, logger *zap.Logger) *RecalcService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecalcService{scope: scope, events: events, metrics: metrics, logger: logger}
}

// RecalculateParty rebuilds one party's outstanding. With dryRun the
// drift is reported but nothing is written.
func (s *RecalcService) RecalculateParty(ctx context.Context, partyID uuid.UUID, dryRun bool) (*PartyDrift, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recalc", "recalculate_party")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPartyID, partyID.String(),
		"dry_run", dryRun,
	)

	var drift *PartyDrift
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Parties().FindByID(ctx, partyID)
		if err != nil {
			if shared.IsNotFoundError(err) {
				return shared.NewNotFoundError("party", partyID)
			}
			return fmt.Errorf("failed to load party: %w", err)
		}
		drift, err = s.recalculateOne(ctx, repos, p, dryRun)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return drift, nil
}

// RecalculateAll rebuilds every party's outstanding, page by page. Each
// page runs in its own transaction so one bad party does not hold locks
// across the whole ledger.
func (s *RecalcService) RecalculateAll(ctx context.Context, dryRun bool) ([]PartyDrift, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recalc", "recalculate_all")
	defer span.End()

	telemetry.SetAttributes(span, "dry_run", dryRun)

	var drifts []PartyDrift
	for page := 1; ; page++ {
		filter := shared.Filter{Page: page, PageSize: partyPageSize, OrderBy: "code", OrderDir: "asc"}

		var batch []party.Party
		err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			batch, err = repos.Parties().FindAll(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list parties: %w", err)
			}
			for i := range batch {
				drift, err := s.recalculateOne(ctx, repos, &batch[i], dryRun)
				if err != nil {
					return err
				}
				drifts = append(drifts, *drift)
			}
			return nil
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if len(batch) < partyPageSize {
			break
		}
	}

	drifted := 0
	for _, d := range drifts {
		if d.HasDrift() {
			drifted++
		}
	}
	telemetry.SetAttributes(span, "parties_checked", len(drifts), "parties_drifted", drifted)
	s.logger.Info("Party outstanding recalculation finished",
		zap.Int("checked", len(drifts)),
		zap.Int("drifted", drifted),
		zap.Bool("dry_run", dryRun),
	)

	return drifts, nil
}

// recalculateOne recomputes a single party inside the caller's
// transaction and corrects the stored figure unless dryRun is set.
func (s *RecalcService) recalculateOne(ctx context.Context, repos TransactionalRepositories, p *party.Party, dryRun bool) (*PartyDrift, error) {
	openBalances, err := repos.Documents().SumOpenBalanceByParty(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum document balances for %s: %w", p.Code, err)
	}
	advances, err := repos.Payments().SumAdvanceBalanceByParty(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum advance balances for %s: %w", p.Code, err)
	}

	recomputed := openBalances.Sub(advances)
	if recomputed.IsNegative() {
		recomputed = decimal.Zero
	}

	drift := &PartyDrift{
		PartyID:    p.ID,
		Code:       p.Code,
		Name:       p.Name,
		Stored:     p.Outstanding,
		Recomputed: recomputed,
		Drift:      p.Outstanding.Sub(recomputed),
	}

	if s.metrics != nil && drift.HasDrift() {
		s.metrics.RecordOutstandingDrift(ctx, drift.Drift)
	}
	if drift.HasDrift() {
		s.logger.Warn("Party outstanding drift detected",
			zap.String("party", p.Code),
			zap.String("stored", drift.Stored.StringFixed(2)),
			zap.String("recomputed", drift.Recomputed.StringFixed(2)),
		)
	}

	if dryRun || !drift.HasDrift() {
		return drift, nil
	}

	if err := repos.Parties().SetOutstanding(ctx, p.ID, recomputed); err != nil {
		return nil, fmt.Errorf("failed to correct outstanding for %s: %w", p.Code, err)
	}
	drift.Corrected = true

	if s.events != nil {
		event := party.NewPartyOutstandingChangedEvent(p, drift.Stored, recomputed, party.OutstandingChangeRecalculated)
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish recalculation event", zap.Error(err))
		}
	}

	return drift, nil
}
