package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/karkhana-erp/backend/internal/application/billing"
	"github.com/karkhana-erp/backend/internal/application/validation"
	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/payment"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/shared/valueobject"
	"github.com/karkhana-erp/backend/internal/infrastructure/telemetry"
)

// Idempotency key namespaces. The same client key may be reused across
// different operations without colliding.
const (
	idempotencyPrefixCreate = "payment:create:"
	idempotencyPrefixAdjust = "payment:adjust:"
)

// voucherPrefix scopes the daily general ledger voucher sequence.
const voucherPrefix = "VCH"

// PaymentService is the single entry point for money movement against
// parties: payment creation, advance consumption and reversal. Every
// operation mutates the payment, its documents, the party outstanding,
// the funding account and the general ledger in one transaction.
type PaymentService struct {
	scope       TransactionScope
	idempotency shared.IdempotencyStore
	idemCfg     shared.IdempotencyConfig
	cache       shared.SummaryCache
	events      shared.EventPublisher
	metrics     *telemetry.LedgerMetrics
	logger      *zap.Logger
}

// NewPaymentService creates a PaymentService. The idempotency store,
// cache, events and metrics are optional.
func NewPaymentService(
	scope TransactionScope,
	idempotency shared.IdempotencyStore,
	idemCfg shared.IdempotencyConfig,
	cache shared.SummaryCache,
	events shared.EventPublisher,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
) *PaymentService {
	if idemCfg.TTL <= 0 {
		idemCfg = shared.DefaultIdempotencyConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		scope:       scope,
		idempotency: idempotency,
		idemCfg:     idemCfg,
		cache:       cache,
		events:      events,
		metrics:     metrics,
		logger:      logger,
	}
}

// CreatePayment records a receipt or payment with its allocations.
// The party outstanding drops by the full amount exactly once; any
// overshoot beyond the allocations is retained as an advance.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payments", "create_payment")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentType, string(req.Type),
		telemetry.SpanAttrPartyID, req.PartyID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		"funding", string(req.Funding),
	)

	var p *payment.Payment
	var voucherNumber string
	var events []shared.DomainEvent
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("create_payment", nil), func(c context.Context) {
		if err := s.validateCreateRequest(req); err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}
		if err := s.checkIdempotency(c, idempotencyPrefixCreate, req.IdempotencyKey); err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		paymentDate := time.Now()
		if req.PaymentDate != nil {
			paymentDate = *req.PaymentDate
		}

		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			pty, err := findParty(c, repos.Parties(), req.PartyID)
			if err != nil {
				return err
			}
			if pty.Type != req.Type.PartySide() {
				return shared.NewValidationError("%s payments settle against %s parties, %s is a %s",
					req.Type, req.Type.PartySide(), pty.Code, pty.Type)
			}

			seq, err := repos.Sequences().Next(c, shared.DailyScope(req.Type.Prefix(), paymentDate))
			if err != nil {
				return fmt.Errorf("failed to allocate payment number: %w", err)
			}
			number := shared.FormatDocumentNumber(req.Type.Prefix(), paymentDate, seq)
			amount := valueobject.NewMoneyINR(req.Amount)

			var fundingAccount *account.Account
			var sourceAdvance *payment.Payment
			switch req.Funding {
			case FundingAccount:
				fundingAccount, err = findAccount(c, repos.Accounts(), *req.AccountID)
				if err != nil {
					return err
				}
				p, err = payment.NewPayment(number, req.Type, req.Mode, pty.ID, pty.Name, fundingAccount.ID, amount, paymentDate)
			case FundingAdvance:
				sourceAdvance, err = s.loadSourceAdvance(c, repos.Payments(), *req.SourceAdvanceID, req)
				if err != nil {
					return err
				}
				p, err = payment.NewAdvanceFundedPayment(number, req.Type, req.Mode, pty.ID, pty.Name, sourceAdvance.ID, amount, paymentDate)
			}
			if err != nil {
				return err
			}
			if req.ReferenceNumber != "" {
				p.WithReferenceNumber(req.ReferenceNumber)
			}
			if req.Remarks != "" {
				p.WithRemarks(req.Remarks)
			}

			for _, alloc := range req.Allocations {
				doc, err := s.loadAllocationTarget(c, repos.Documents(), alloc.DocumentID, req.Type, pty.ID)
				if err != nil {
					return err
				}
				if _, err := p.Allocate(doc.ID, doc.DocumentNumber, valueobject.NewMoneyINR(alloc.Amount)); err != nil {
					return err
				}
				if _, err := billing.ApplyPaymentToDocument(c, repos.Documents(), doc.ID, alloc.Amount); err != nil {
					return err
				}
			}

			if err := p.Finalize(); err != nil {
				return err
			}
			if err := repos.Payments().Save(c, p); err != nil {
				return fmt.Errorf("failed to save payment: %w", err)
			}

			if sourceAdvance != nil {
				if err := s.drawDownSource(c, repos.Payments(), sourceAdvance, p); err != nil {
					return err
				}
			}

			oldOutstanding := pty.Outstanding
			newOutstanding, err := repos.Parties().AdjustOutstanding(c, pty.ID, req.Amount.Neg())
			if err != nil {
				return fmt.Errorf("failed to settle party outstanding: %w", err)
			}

			if fundingAccount != nil {
				if _, err := repos.Accounts().AdjustBalance(c, fundingAccount.ID, p.SignedAmount()); err != nil {
					return fmt.Errorf("failed to adjust account balance: %w", err)
				}
			}

			voucherNumber, err = postPaymentLedger(c, repos, p, fundingAccount, paymentDate, false)
			if err != nil {
				return err
			}

			events = append(events, p.GetDomainEvents()...)
			events = append(events, party.NewPartyOutstandingChangedEvent(pty, oldOutstanding, newOutstanding, party.OutstandingChangeSettlement))
			p.ClearDomainEvents()
			return nil
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
		}
	})
	if operationErr != nil {
		return nil, operationErr
	}

	s.afterPaymentWrite(ctx, events)
	if s.metrics != nil {
		funding := telemetry.FundingSourceAccount
		if req.Funding == FundingAdvance {
			funding = telemetry.FundingSourceAdvance
		}
		s.metrics.RecordPayment(ctx, p.Type.String(), funding, p.Amount)
	}
	telemetry.AddEvent(span, "payment_created",
		telemetry.SpanAttrPaymentNumber, p.PaymentNumber,
		telemetry.SpanAttrVoucherNumber, voucherNumber,
	)

	return NewPaymentResponse(p, voucherNumber), nil
}

// AdjustAdvance consumes part of an advance's remaining credit against
// a later document of the same party. The advance gains a FromAdvance
// allocation, the document is settled and the party outstanding drops
// by the consumed amount; an audit row records the consumption.
func (s *PaymentService) AdjustAdvance(ctx context.Context, req AdjustAdvanceRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payments", "adjust_advance")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, req.PaymentID.String(),
		telemetry.SpanAttrDocumentID, req.DocumentID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	var p *payment.Payment
	var events []shared.DomainEvent
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("adjust_advance", nil), func(c context.Context) {
		if err := validation.Struct(req); err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}
		if !req.Amount.IsPositive() {
			err := shared.NewValidationError("adjustment amount must be positive")
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}
		if err := s.checkIdempotency(c, idempotencyPrefixAdjust, req.IdempotencyKey); err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			p, err = findPayment(c, repos.Payments(), req.PaymentID)
			if err != nil {
				return err
			}
			pty, err := findParty(c, repos.Parties(), p.PartyID)
			if err != nil {
				return err
			}
			doc, err := findDocument(c, repos.Documents(), req.DocumentID)
			if err != nil {
				return err
			}
			if doc.PartyID != p.PartyID {
				return shared.NewValidationError("document %s does not belong to party %s", doc.DocumentNumber, p.PartyName)
			}

			_, adjustment, err := p.ConsumeAdvance(doc.ID, doc.DocumentNumber, valueobject.NewMoneyINR(req.Amount), req.Remarks)
			if err != nil {
				return err
			}
			if _, err := billing.ApplyPaymentToDocument(c, repos.Documents(), doc.ID, req.Amount); err != nil {
				return err
			}
			if err := repos.Payments().SaveWithLock(c, p); err != nil {
				return err
			}
			if err := repos.Payments().CreateAdjustment(c, adjustment); err != nil {
				return fmt.Errorf("failed to record advance adjustment: %w", err)
			}

			oldOutstanding := pty.Outstanding
			newOutstanding, err := repos.Parties().AdjustOutstanding(c, pty.ID, req.Amount.Neg())
			if err != nil {
				return fmt.Errorf("failed to settle party outstanding: %w", err)
			}

			events = append(events, p.GetDomainEvents()...)
			events = append(events, party.NewPartyOutstandingChangedEvent(pty, oldOutstanding, newOutstanding, party.OutstandingChangeSettlement))
			p.ClearDomainEvents()
			return nil
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
		}
	})
	if operationErr != nil {
		return nil, operationErr
	}

	s.afterPaymentWrite(ctx, events)
	if s.metrics != nil {
		s.metrics.RecordAdvanceAdjusted(ctx)
	}
	telemetry.AddEvent(span, "advance_adjusted",
		telemetry.SpanAttrPaymentNumber, p.PaymentNumber,
		"advance_balance", p.AdvanceBalance.String(),
	)

	return NewPaymentResponse(p, ""), nil
}

// ReversePayment reverses a completed payment: every allocation is
// backed out of its document, the party outstanding is restored by the
// full amount, the account movement is negated and compensating general
// ledger rows are posted under a fresh voucher. The status guard makes
// a repeated reversal fail instead of double-compensating. Advances of
// this payment that were already consumed elsewhere are not unwound.
func (s *PaymentService) ReversePayment(ctx context.Context, paymentID uuid.UUID, reason string) (*ReversalResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payments", "reverse_payment")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, paymentID.String())

	var p *payment.Payment
	var result *payment.ReversalResult
	var voucherNumber string
	var events []shared.DomainEvent
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("reverse_payment", nil), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			p, err = findPayment(c, repos.Payments(), paymentID)
			if err != nil {
				return err
			}
			pty, err := findParty(c, repos.Parties(), p.PartyID)
			if err != nil {
				return err
			}

			var fundingAccount *account.Account
			if p.AccountID != nil {
				fundingAccount, err = findAccount(c, repos.Accounts(), *p.AccountID)
				if err != nil {
					return err
				}
			}

			result, err = p.Reverse(reason)
			if err != nil {
				return err
			}

			for _, alloc := range result.AllocationsUndone {
				if _, err := billing.RemovePaymentFromDocument(c, repos.Documents(), alloc.DocumentID, alloc.Amount); err != nil {
					return err
				}
			}

			oldOutstanding := pty.Outstanding
			newOutstanding, err := repos.Parties().AdjustOutstanding(c, pty.ID, result.OutstandingRestore)
			if err != nil {
				return fmt.Errorf("failed to restore party outstanding: %w", err)
			}

			if result.AccountID != nil {
				if _, err := repos.Accounts().AdjustBalance(c, *result.AccountID, result.AccountDelta); err != nil {
					return fmt.Errorf("failed to restore account balance: %w", err)
				}
			}

			if err := repos.Payments().SaveWithLock(c, p); err != nil {
				return err
			}

			voucherNumber, err = postPaymentLedger(c, repos, p, fundingAccount, time.Now(), true)
			if err != nil {
				return err
			}

			events = append(events, p.GetDomainEvents()...)
			events = append(events, party.NewPartyOutstandingChangedEvent(pty, oldOutstanding, newOutstanding, party.OutstandingChangeRestore))
			p.ClearDomainEvents()
			return nil
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
		}
	})
	if operationErr != nil {
		return nil, operationErr
	}

	s.afterPaymentWrite(ctx, events)
	if s.metrics != nil {
		s.metrics.RecordPaymentReversed(ctx, p.Type.String())
	}
	telemetry.AddEvent(span, "payment_reversed",
		telemetry.SpanAttrPaymentNumber, p.PaymentNumber,
		telemetry.SpanAttrVoucherNumber, voucherNumber,
	)

	accountRestored := decimal.Zero
	if result.AccountID != nil {
		accountRestored = result.AccountDelta
	}
	return &ReversalResponse{
		PaymentID:          p.ID,
		PaymentNumber:      p.PaymentNumber,
		AllocationsUndone:  len(result.AllocationsUndone),
		OutstandingRestore: result.OutstandingRestore,
		AdvanceForfeited:   result.AdvanceForfeited,
		AccountRestored:    accountRestored,
		VoucherNumber:      voucherNumber,
	}, nil
}

// GetPayment loads one payment with its allocations.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	var p *payment.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		p, err = findPayment(ctx, repos.Payments(), paymentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewPaymentResponse(p, ""), nil
}

// validateCreateRequest checks the request shape including the funding
// variant coherence before any repository is touched.
func (s *PaymentService) validateCreateRequest(req CreatePaymentRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if !req.Amount.IsPositive() {
		return shared.NewValidationError("payment amount must be positive")
	}

	switch req.Funding {
	case FundingAccount:
		if req.AccountID == nil || *req.AccountID == uuid.Nil {
			return shared.NewValidationError("account-funded payments require an account ID")
		}
	case FundingAdvance:
		if req.SourceAdvanceID == nil || *req.SourceAdvanceID == uuid.Nil {
			return shared.NewValidationError("advance-funded payments require a source advance ID")
		}
	default:
		return shared.NewValidationError("invalid funding source: %s", req.Funding)
	}

	allocated := decimal.Zero
	seen := make(map[uuid.UUID]struct{}, len(req.Allocations))
	for _, alloc := range req.Allocations {
		if !alloc.Amount.IsPositive() {
			return shared.NewValidationError("allocation amount must be positive")
		}
		if _, dup := seen[alloc.DocumentID]; dup {
			return shared.NewValidationError("document %s is allocated twice", alloc.DocumentID)
		}
		seen[alloc.DocumentID] = struct{}{}
		allocated = allocated.Add(alloc.Amount)
	}
	if allocated.GreaterThan(req.Amount) {
		return shared.NewValidationError("allocations %s exceed payment amount %s",
			allocated.StringFixed(2), req.Amount.StringFixed(2))
	}
	// An advance funding another advance would just move credit between
	// rows; the draw-down must land on documents in full.
	if req.Funding == FundingAdvance && !allocated.Equal(req.Amount) {
		return shared.NewValidationError("advance-funded payments must allocate the full amount to documents")
	}
	return nil
}

// checkIdempotency marks the request key as processed and rejects the
// call when it already was. An empty key or absent store disables the
// check.
func (s *PaymentService) checkIdempotency(ctx context.Context, prefix, key string) error {
	if key == "" || s.idempotency == nil || !s.idemCfg.Enabled {
		return nil
	}
	fresh, err := s.idempotency.MarkProcessed(ctx, prefix+key, s.idemCfg.TTL)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if !fresh {
		return shared.NewDuplicateRequestError(key)
	}
	return nil
}

// loadSourceAdvance loads and validates the advance a new payment is
// funded from. The balance check here produces the error figures; the
// guarded draw-down statement protects against the race.
func (s *PaymentService) loadSourceAdvance(ctx context.Context, payments payment.Repository, id uuid.UUID, req CreatePaymentRequest) (*payment.Payment, error) {
	source, err := findPayment(ctx, payments, id)
	if err != nil {
		return nil, err
	}
	if source.PartyID != req.PartyID {
		return nil, shared.NewValidationError("advance %s belongs to a different party", source.PaymentNumber)
	}
	if !source.HasAdvance() {
		return nil, shared.NewInvalidStateError("payment %s has no remaining advance credit", source.PaymentNumber)
	}
	if source.AdvanceBalance.LessThan(req.Amount) {
		return nil, shared.NewInsufficientFundsError(source.AdvanceBalance, req.Amount)
	}
	return source, nil
}

// drawDownSource decrements the source advance's remaining credit and
// writes one audit row per funded document.
func (s *PaymentService) drawDownSource(ctx context.Context, payments payment.Repository, source, funded *payment.Payment) error {
	if err := payments.DrawDownAdvance(ctx, source.ID, funded.Amount); err != nil {
		return fmt.Errorf("failed to draw down advance %s: %w", source.PaymentNumber, err)
	}
	now := time.Now()
	for _, alloc := range funded.Allocations {
		adjustment := &payment.AdvanceAdjustment{
			ID:             uuid.New(),
			PaymentID:      source.ID,
			DocumentID:     alloc.DocumentID,
			DocumentNumber: alloc.DocumentNumber,
			Amount:         alloc.Amount,
			Remarks:        fmt.Sprintf("consumed to fund %s", funded.PaymentNumber),
			AdjustedAt:     now,
			CreatedAt:      now,
		}
		if err := payments.CreateAdjustment(ctx, adjustment); err != nil {
			return fmt.Errorf("failed to record advance draw-down: %w", err)
		}
	}
	return nil
}

// loadAllocationTarget loads a document and checks it can be settled by
// this payment: right party, right document kind for the direction.
func (s *PaymentService) loadAllocationTarget(ctx context.Context, docs document.Repository, id uuid.UUID, pType payment.Type, partyID uuid.UUID) (*document.Document, error) {
	doc, err := findDocument(ctx, docs, id)
	if err != nil {
		return nil, err
	}
	if doc.PartyID != partyID {
		return nil, shared.NewValidationError("document %s does not belong to the paying party", doc.DocumentNumber)
	}
	expected := document.TypeSalesInvoice
	if pType == payment.TypePayment {
		expected = document.TypePurchaseBill
	}
	if doc.Type != expected {
		return nil, shared.NewValidationError("%s payments settle %s documents, %s is a %s",
			pType, expected, doc.DocumentNumber, doc.Type)
	}
	return doc, nil
}

// postPaymentLedger writes the two-leg general ledger projection of a
// payment under a fresh daily voucher: funding side against party side.
// Reversals mirror the original legs with IsReversal set.
func postPaymentLedger(
	ctx context.Context,
	repos TransactionalRepositories,
	p *payment.Payment,
	fundingAccount *account.Account,
	entryDate time.Time,
	reversal bool,
) (string, error) {
	seq, err := repos.Sequences().Next(ctx, shared.DailyScope(voucherPrefix, entryDate))
	if err != nil {
		return "", fmt.Errorf("failed to allocate voucher number: %w", err)
	}
	voucher := shared.FormatDocumentNumber(voucherPrefix, entryDate, seq)

	legs := paymentLegs(p, fundingAccount, reversal)
	refType := finance.GLReferencePayment
	narration := fmt.Sprintf("%s %s", p.Type, p.PaymentNumber)
	if reversal {
		refType = finance.GLReferencePaymentReversal
		narration = fmt.Sprintf("Reversal of %s %s", p.Type, p.PaymentNumber)
	}

	entries := make([]finance.GeneralLedgerEntry, 0, len(legs))
	for _, leg := range legs {
		entry := finance.NewGeneralLedgerEntry(voucher, entryDate, leg, refType, p.ID, narration)
		if reversal {
			entry.AsReversal()
		}
		entries = append(entries, *entry)
	}
	if err := repos.GeneralLedger().Create(ctx, entries); err != nil {
		return "", fmt.Errorf("failed to post general ledger rows: %w", err)
	}
	return voucher, nil
}

// paymentLegs derives the double entry of a payment: receipts debit the
// funding side and credit the party, payments out do the opposite.
// Advance-funded payments post their funding leg against the party's
// advance head instead of a bank account.
func paymentLegs(p *payment.Payment, fundingAccount *account.Account, reversal bool) []finance.Leg {
	fundingSide, partySide := finance.SideDebit, finance.SideCredit
	if p.Type == payment.TypePayment {
		fundingSide, partySide = finance.SideCredit, finance.SideDebit
	}
	if reversal {
		fundingSide, partySide = partySide, fundingSide
	}

	fundingType := finance.LedgerTypeBank
	fundingHead := ""
	if fundingAccount != nil {
		fundingHead = fundingAccount.Name
	} else {
		fundingType = finance.LedgerTypeLiability
		fundingHead = fmt.Sprintf("ADVANCES - %s", p.PartyName)
	}

	partyType := finance.LedgerTypeAsset
	if p.Type == payment.TypePayment {
		partyType = finance.LedgerTypeLiability
	}

	return []finance.Leg{
		{Side: fundingSide, LedgerType: fundingType, AccountHead: fundingHead, Amount: p.Amount},
		{Side: partySide, LedgerType: partyType, AccountHead: p.PartyName, Amount: p.Amount},
	}
}

func (s *PaymentService) afterPaymentWrite(ctx context.Context, events []shared.DomainEvent) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, shared.CacheKeyDashboard); err != nil {
			s.logger.Warn("Failed to invalidate dashboard cache after payment write", zap.Error(err))
		}
	}
	if s.events != nil && len(events) > 0 {
		if err := s.events.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish payment events", zap.Error(err))
		}
	}
}

func findPayment(ctx context.Context, payments payment.Repository, id uuid.UUID) (*payment.Payment, error) {
	p, err := payments.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFoundError(err) {
			return nil, shared.NewNotFoundError("payment", id)
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return p, nil
}

func findDocument(ctx context.Context, docs document.Repository, id uuid.UUID) (*document.Document, error) {
	doc, err := docs.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFoundError(err) {
			return nil, shared.NewNotFoundError("document", id)
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

func findParty(ctx context.Context, parties party.Repository, id uuid.UUID) (*party.Party, error) {
	p, err := parties.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFoundError(err) {
			return nil, shared.NewNotFoundError("party", id)
		}
		return nil, fmt.Errorf("failed to load party: %w", err)
	}
	return p, nil
}

func findAccount(ctx context.Context, accounts account.Repository, id uuid.UUID) (*account.Account, error) {
	a, err := accounts.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFoundError(err) {
			return nil, shared.NewNotFoundError("account", id)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !a.IsActive() {
		return nil, shared.NewInvalidStateError("account %s is inactive", a.Code)
	}
	return a, nil
}
