package document

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeDocument = "Document"

// Event type constants
const (
	EventTypeDocumentCreated   = "DocumentCreated"
	EventTypeDocumentConfirmed = "DocumentConfirmed"
	EventTypeDocumentVoided    = "DocumentVoided"
)

// DocumentCreatedEvent is published when a draft document is created
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID `json:"document_id"`
	DocumentNumber string    `json:"document_number"`
	DocumentType   Type      `json:"document_type"`
	PartyID        uuid.UUID `json:"party_id"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(d *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateTypeDocument, d.ID),
		DocumentID:      d.ID,
		DocumentNumber:  d.DocumentNumber,
		DocumentType:    d.Type,
		PartyID:         d.PartyID,
	}
}

// DocumentConfirmedEvent is published when a document is confirmed
type DocumentConfirmedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID       `json:"document_id"`
	DocumentNumber string          `json:"document_number"`
	DocumentType   Type            `json:"document_type"`
	PartyID        uuid.UUID       `json:"party_id"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// NewDocumentConfirmedEvent creates a new DocumentConfirmedEvent
func NewDocumentConfirmedEvent(d *Document) *DocumentConfirmedEvent {
	return &DocumentConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentConfirmed, AggregateTypeDocument, d.ID),
		DocumentID:      d.ID,
		DocumentNumber:  d.DocumentNumber,
		DocumentType:    d.Type,
		PartyID:         d.PartyID,
		GrandTotal:      d.GrandTotal,
	}
}

// DocumentVoidedEvent is published when a document is voided
type DocumentVoidedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID       `json:"document_id"`
	DocumentNumber string          `json:"document_number"`
	DocumentType   Type            `json:"document_type"`
	PartyID        uuid.UUID       `json:"party_id"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Reason         string          `json:"reason"`
}

// NewDocumentVoidedEvent creates a new DocumentVoidedEvent
func NewDocumentVoidedEvent(d *Document, reason string) *DocumentVoidedEvent {
	return &DocumentVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentVoided, AggregateTypeDocument, d.ID),
		DocumentID:      d.ID,
		DocumentNumber:  d.DocumentNumber,
		DocumentType:    d.Type,
		PartyID:         d.PartyID,
		GrandTotal:      d.GrandTotal,
		Reason:          reason,
	}
}
