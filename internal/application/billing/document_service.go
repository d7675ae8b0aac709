package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	stockapp "github.com/karkhana-erp/backend/internal/application/stock"
	"github.com/karkhana-erp/backend/internal/application/validation"
	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
	"github.com/karkhana-erp/backend/internal/infrastructure/telemetry"
)

// DocumentService owns the document lifecycle and its side effects on
// the stock ledger and the party ledger. Confirmation and voiding are
// the only paths that move documents between states; settlement fields
// are written exclusively through the payment engine helpers below.
type DocumentService struct {
	scope   TransactionScope
	cache   shared.SummaryCache
	events  shared.EventPublisher
	metrics *telemetry.LedgerMetrics
	logger  *zap.Logger
}

// NewDocumentService creates a DocumentService. Cache, events and
// metrics are optional.
func NewDocumentService(
	scope TransactionScope,
	cache shared.SummaryCache,
	events shared.EventPublisher,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		scope:   scope,
		cache:   cache,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateDocument creates a draft document with its lines. The number
// comes from the daily sequence, never from a row count.
func (s *DocumentService) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "create_document")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentType, string(req.Type),
		telemetry.SpanAttrPartyID, req.PartyID.String(),
	)

	if err := validation.Struct(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !req.Type.IsValid() {
		err := shared.NewValidationError("invalid document type: %s", req.Type)
		telemetry.RecordError(span, err)
		return nil, err
	}

	docDate := time.Now()
	if req.DocumentDate != nil {
		docDate = *req.DocumentDate
	}

	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := findParty(ctx, repos.Parties(), req.PartyID)
		if err != nil {
			return err
		}
		if err := partyMatchesDocument(p, req.Type); err != nil {
			return err
		}

		seq, err := repos.Sequences().Next(ctx, shared.DailyScope(req.Type.Prefix(), docDate))
		if err != nil {
			return fmt.Errorf("failed to allocate document number: %w", err)
		}
		number := shared.FormatDocumentNumber(req.Type.Prefix(), docDate, seq)

		doc, err = document.NewDocument(number, req.Type, p.ID, p.Name, docDate)
		if err != nil {
			return err
		}
		for _, line := range req.Lines {
			if _, err := doc.AddLine(line.RawMaterialID, line.FinishedProductID, line.ItemName, line.Quantity, line.Rate); err != nil {
				return err
			}
		}
		if req.TaxAmount.IsPositive() {
			if err := doc.SetTaxAmount(req.TaxAmount); err != nil {
				return err
			}
		}
		if req.Remarks != "" {
			doc.SetRemarks(req.Remarks)
		}

		return repos.Documents().Save(ctx, doc)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, document.NewDocumentCreatedEvent(doc))
	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentNumber, doc.DocumentNumber)

	return NewDocumentResponse(doc), nil
}

// ConfirmDocument confirms a draft document: for a sales invoice every
// line is validated against current stock before anything is written,
// then one movement per line, the status flip and the party outstanding
// accrual all happen in one transaction.
func (s *DocumentService) ConfirmDocument(ctx context.Context, documentID uuid.UUID) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "confirm_document")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentID, documentID.String())

	var doc *document.Document
	var events []shared.DomainEvent
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("confirm_document", nil), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			doc, err = findDocument(c, repos.Documents(), documentID)
			if err != nil {
				return err
			}
			p, err := findParty(c, repos.Parties(), doc.PartyID)
			if err != nil {
				return err
			}

			// Sales invoices dispatch goods: every line must be
			// coverable before the first movement is written.
			if doc.Type == document.TypeSalesInvoice {
				if err := checkLineAvailability(c, repos.Movements(), doc.Lines); err != nil {
					return err
				}
			}

			if err := doc.Confirm(); err != nil {
				return err
			}

			for i := range doc.Lines {
				m, err := movementForLine(doc, &doc.Lines[i])
				if err != nil {
					return err
				}
				if err := stockapp.AppendMovement(c, repos.Movements(), m); err != nil {
					return err
				}
			}

			if err := repos.Documents().SaveWithLock(c, doc); err != nil {
				return err
			}

			oldOutstanding := p.Outstanding
			newOutstanding, err := repos.Parties().AdjustOutstanding(c, p.ID, doc.GrandTotal)
			if err != nil {
				return fmt.Errorf("failed to accrue party outstanding: %w", err)
			}

			events = append(events, doc.GetDomainEvents()...)
			events = append(events, party.NewPartyOutstandingChangedEvent(p, oldOutstanding, newOutstanding, party.OutstandingChangeAccrual))
			doc.ClearDomainEvents()
			return nil
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
		}
	})
	if operationErr != nil {
		return nil, operationErr
	}

	s.afterDocumentWrite(ctx, events)
	if s.metrics != nil {
		s.metrics.RecordDocumentConfirmed(ctx, doc.Type.String())
	}
	telemetry.AddEvent(span, "document_confirmed",
		telemetry.SpanAttrDocumentNumber, doc.DocumentNumber,
		telemetry.SpanAttrAmount, doc.GrandTotal.String(),
	)

	return NewDocumentResponse(doc), nil
}

// VoidDocument voids a confirmed document: compensating stock movements
// are appended, the party outstanding drops by the still-open balance
// (clamped at zero) and the document is tombstoned with its lines kept.
// Paid documents cannot be voided; the payment must be reversed first.
func (s *DocumentService) VoidDocument(ctx context.Context, documentID uuid.UUID, reason string) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "void_document")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentID, documentID.String())

	var doc *document.Document
	var events []shared.DomainEvent
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("void_document", nil), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			doc, err = findDocument(c, repos.Documents(), documentID)
			if err != nil {
				return err
			}
			p, err := findParty(c, repos.Parties(), doc.PartyID)
			if err != nil {
				return err
			}

			openBalance := doc.BalanceAmount

			if err := doc.Void(reason); err != nil {
				return err
			}

			refType, reversalType := referenceFor(doc.Type)
			if _, err := stockapp.AppendReversalMovements(c, repos.Movements(), refType, doc.ID.String(), reversalType); err != nil {
				return err
			}

			if err := repos.Documents().SaveWithLock(c, doc); err != nil {
				return err
			}

			oldOutstanding := p.Outstanding
			newOutstanding, err := repos.Parties().AdjustOutstanding(c, p.ID, openBalance.Neg())
			if err != nil {
				return fmt.Errorf("failed to settle party outstanding: %w", err)
			}

			events = append(events, doc.GetDomainEvents()...)
			events = append(events, party.NewPartyOutstandingChangedEvent(p, oldOutstanding, newOutstanding, party.OutstandingChangeSettlement))
			doc.ClearDomainEvents()
			return nil
		})
		if operationErr != nil {
			telemetry.RecordError(span, operationErr)
		}
	})
	if operationErr != nil {
		return nil, operationErr
	}

	s.afterDocumentWrite(ctx, events)
	if s.metrics != nil {
		s.metrics.RecordDocumentVoided(ctx, doc.Type.String())
	}
	telemetry.AddEvent(span, "document_voided", telemetry.SpanAttrDocumentNumber, doc.DocumentNumber)

	return NewDocumentResponse(doc), nil
}

// GetDocument loads one document with its lines.
func (s *DocumentService) GetDocument(ctx context.Context, documentID uuid.UUID) (*DocumentResponse, error) {
	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		doc, err = findDocument(ctx, repos.Documents(), documentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewDocumentResponse(doc), nil
}

func (s *DocumentService) afterDocumentWrite(ctx context.Context, events []shared.DomainEvent) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, shared.CacheKeyStockSummary, shared.CacheKeyDashboard); err != nil {
			s.logger.Warn("Failed to invalidate summary cache after document write", zap.Error(err))
		}
	}
	s.publish(ctx, events...)
}

func (s *DocumentService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish document events", zap.Error(err))
	}
}

// ApplyPaymentToDocument settles part of a document's open balance
// within the caller's transaction. Only the payment engine calls this;
// no other path writes paid amount, balance or payment status.
func ApplyPaymentToDocument(ctx context.Context, docs document.Repository, documentID uuid.UUID, amount decimal.Decimal) (*document.Document, error) {
	doc, err := findDocument(ctx, docs, documentID)
	if err != nil {
		return nil, err
	}
	if err := doc.ApplyPayment(amount); err != nil {
		return nil, err
	}
	if err := docs.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RemovePaymentFromDocument backs a settlement out of a document within
// the caller's transaction. Used by the payment reversal path; balance
// and payment status are re-derived by the same forward rule.
func RemovePaymentFromDocument(ctx context.Context, docs document.Repository, documentID uuid.UUID, amount decimal.Decimal) (*document.Document, error) {
	doc, err := findDocument(ctx, docs, documentID)
	if err != nil {
		return nil, err
	}
	if err := doc.RemovePayment(amount); err != nil {
		return nil, err
	}
	if err := docs.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
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

func partyMatchesDocument(p *party.Party, docType document.Type) error {
	if docType == document.TypeSalesInvoice && !p.IsCustomer() {
		return shared.NewValidationError("sales invoices require a customer party, %s is a %s", p.Code, p.Type)
	}
	if docType == document.TypePurchaseBill && !p.IsSupplier() {
		return shared.NewValidationError("purchase bills require a supplier party, %s is a %s", p.Code, p.Type)
	}
	return nil
}

// checkLineAvailability fails with the first line whose item cannot
// cover the outbound quantity. Nothing has been written at this point.
func checkLineAvailability(ctx context.Context, movements stock.MovementRepository, lines []document.Line) error {
	for i := range lines {
		line := &lines[i]
		itemType := stock.ItemTypeFinishedProduct
		if line.IsRawMaterial() {
			itemType = stock.ItemTypeRawMaterial
		}
		available, err := movements.CurrentStock(ctx, itemType, line.ItemID())
		if err != nil {
			return fmt.Errorf("failed to check stock for %s: %w", line.ItemName, err)
		}
		if available.LessThan(line.Quantity) {
			return shared.NewInsufficientStockError(available, line.Quantity)
		}
	}
	return nil
}

// movementForLine builds the ledger row a confirmed document line
// causes: sales invoices move goods out, purchase bills move goods in.
func movementForLine(doc *document.Document, line *document.Line) (*stock.Movement, error) {
	var itemType stock.ItemType
	var ref stock.ItemRef
	if line.IsRawMaterial() {
		itemType = stock.ItemTypeRawMaterial
		ref = stock.NewRawMaterialRef(*line.RawMaterialID)
	} else {
		itemType = stock.ItemTypeFinishedProduct
		ref = stock.NewFinishedProductRef(*line.FinishedProductID)
	}

	var movementType stock.MovementType
	quantityIn, quantityOut := decimal.Zero, decimal.Zero
	if doc.Type == document.TypeSalesInvoice {
		quantityOut = line.Quantity
		movementType = stock.MovementTypeFGOut
		if line.IsRawMaterial() {
			movementType = stock.MovementTypeRawOut
		}
	} else {
		quantityIn = line.Quantity
		movementType = stock.MovementTypeFGIn
		if line.IsRawMaterial() {
			movementType = stock.MovementTypeRawIn
		}
	}

	refType, _ := referenceFor(doc.Type)
	m, err := stock.NewMovement(itemType, ref, movementType, quantityIn, quantityOut, refType, doc.ID.String(), doc.DocumentNumber)
	if err != nil {
		return nil, err
	}
	return m.WithMovementDate(doc.DocumentDate), nil
}

// referenceFor maps a document type to its movement reference type and
// the reversal movement type used when the document is voided.
func referenceFor(docType document.Type) (stock.ReferenceType, stock.MovementType) {
	if docType == document.TypeSalesInvoice {
		return stock.ReferenceTypeSalesInvoice, stock.MovementTypeSIReversal
	}
	return stock.ReferenceTypePurchaseBill, stock.MovementTypePBReversal
}
