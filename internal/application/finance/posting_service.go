package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/karkhana-erp/backend/internal/application/validation"
	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/shared/valueobject"
	"github.com/karkhana-erp/backend/internal/infrastructure/telemetry"
)

// Sequence prefixes for financial postings.
const (
	transactionPrefix = "FT"
	voucherPrefix     = "VCH"
)

// PostFinancialTransactionRequest posts a loan, investment, borrowing
// or repayment. Principal and interest apply to REPAYMENT only and must
// add up to the amount within the tolerance of 0.01.
type PostFinancialTransactionRequest struct {
	Type            finance.TransactionType `json:"type" validate:"required"`
	PartyName       string                  `json:"party_name" validate:"required,max=200"`
	AccountID       uuid.UUID               `json:"account_id" validate:"required"`
	Amount          decimal.Decimal         `json:"amount" validate:"required"`
	Principal       decimal.Decimal         `json:"principal"`
	Interest        decimal.Decimal         `json:"interest"`
	TransactionDate *time.Time              `json:"transaction_date"`
	Remarks         string                  `json:"remarks" validate:"max=1000"`
}

// PostFinancialTransactionResponse is the posted transaction
type PostFinancialTransactionResponse struct {
	TransactionID     uuid.UUID               `json:"transaction_id"`
	TransactionNumber string                  `json:"transaction_number"`
	Type              finance.TransactionType `json:"type"`
	VoucherNumber     string                  `json:"voucher_number"`
	Amount            decimal.Decimal         `json:"amount"`
	BankImpact        decimal.Decimal         `json:"bank_impact"`
	LegCount          int                     `json:"leg_count"`
}

// PostingService posts financial transactions as balanced double
// entries: the bank leg moves the account balance, the derived legs are
// materialized on the transaction and projected into the general ledger
// under a fresh voucher, all in one transaction.
type PostingService struct {
	scope   TransactionScope
	cache   shared.SummaryCache
	events  shared.EventPublisher
	metrics *telemetry.LedgerMetrics
	logger  *zap.Logger
}

// NewPostingService creates a PostingService. Cache, events and metrics
// are optional.
func NewPostingService(
	scope TransactionScope,
	cache shared.SummaryCache,
	events shared.EventPublisher,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
) *PostingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostingService{
		scope:   scope,
		cache:   cache,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// PostFinancialTransaction validates, derives the leg table and posts
// atomically. The derivation is verified to balance before anything is
// written; a diverging derivation is a ConsistencyError and nothing
// commits.
func (s *PostingService) PostFinancialTransaction(ctx context.Context, req PostFinancialTransactionRequest) (*PostFinancialTransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance", "post_financial_transaction")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTransactionType, string(req.Type),
		telemetry.SpanAttrAccountID, req.AccountID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	var tx *finance.FinancialTransaction
	var events []shared.DomainEvent
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("post_financial_transaction", nil), func(c context.Context) {
		if err := validation.Struct(req); err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}
		if !req.Type.IsValid() {
			err := shared.NewValidationError("invalid transaction type: %s", req.Type)
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		txDate := time.Now()
		if req.TransactionDate != nil {
			txDate = *req.TransactionDate
		}

		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			acct, err := repos.Accounts().FindByID(c, req.AccountID)
			if err != nil {
				if shared.IsNotFoundError(err) {
					return shared.NewNotFoundError("account", req.AccountID)
				}
				return fmt.Errorf("failed to load account: %w", err)
			}
			if !acct.IsActive() {
				return shared.NewInvalidStateError("account %s is inactive", acct.Code)
			}

			numSeq, err := repos.Sequences().Next(c, shared.DailyScope(transactionPrefix, txDate))
			if err != nil {
				return fmt.Errorf("failed to allocate transaction number: %w", err)
			}
			number := shared.FormatDocumentNumber(transactionPrefix, txDate, numSeq)

			amount := valueobject.NewMoneyINR(req.Amount)
			if req.Type == finance.TransactionTypeRepayment {
				tx, err = finance.NewRepayment(number, req.PartyName, acct.ID, acct.Name,
					amount, valueobject.NewMoneyINR(req.Principal), valueobject.NewMoneyINR(req.Interest), txDate)
			} else {
				tx, err = finance.NewFinancialTransaction(number, req.Type, req.PartyName, acct.ID, acct.Name, amount, txDate)
			}
			if err != nil {
				return err
			}
			if req.Remarks != "" {
				tx.WithRemarks(req.Remarks)
			}

			vchSeq, err := repos.Sequences().Next(c, shared.DailyScope(voucherPrefix, txDate))
			if err != nil {
				return fmt.Errorf("failed to allocate voucher number: %w", err)
			}
			voucher := shared.FormatDocumentNumber(voucherPrefix, txDate, vchSeq)

			glEntries, err := tx.Post(voucher)
			if err != nil {
				return err
			}

			if _, err := repos.Accounts().AdjustBalance(c, acct.ID, tx.BankImpact()); err != nil {
				return fmt.Errorf("failed to adjust account balance: %w", err)
			}
			if err := repos.FinancialTransactions().Save(c, tx); err != nil {
				return fmt.Errorf("failed to save financial transaction: %w", err)
			}
			if err := repos.GeneralLedger().Create(c, glEntries); err != nil {
				return fmt.Errorf("failed to post general ledger rows: %w", err)
			}

			events = append(events, tx.GetDomainEvents()...)
			tx.ClearDomainEvents()
			return nil
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
		}
	})
	if operationErr != nil {
		return nil, operationErr
	}

	s.afterPosting(ctx, events)
	if s.metrics != nil {
		s.metrics.RecordFinancialPosted(ctx, tx.TransactionType.String())
	}
	telemetry.AddEvent(span, "financial_transaction_posted",
		telemetry.SpanAttrVoucherNumber, tx.VoucherNumber,
		"transaction_number", tx.TransactionNumber,
	)

	return &PostFinancialTransactionResponse{
		TransactionID:     tx.ID,
		TransactionNumber: tx.TransactionNumber,
		Type:              tx.TransactionType,
		VoucherNumber:     tx.VoucherNumber,
		Amount:            tx.Amount,
		BankImpact:        tx.BankImpact(),
		LegCount:          len(tx.Ledgers),
	}, nil
}

func (s *PostingService) afterPosting(ctx context.Context, events []shared.DomainEvent) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, shared.CacheKeyDashboard); err != nil {
			s.logger.Warn("Failed to invalidate dashboard cache after posting", zap.Error(err))
		}
	}
	if s.events != nil && len(events) > 0 {
		if err := s.events.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish posting events", zap.Error(err))
		}
	}
}
