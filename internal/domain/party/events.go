package party

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeParty = "Party"

// Event type constants
const (
	EventTypePartyCreated            = "PartyCreated"
	EventTypePartyUpdated            = "PartyUpdated"
	EventTypePartyOutstandingChanged = "PartyOutstandingChanged"
)

// OutstandingChangeReason describes why a party's outstanding moved
type OutstandingChangeReason string

const (
	OutstandingChangeAccrual      OutstandingChangeReason = "accrual"
	OutstandingChangeSettlement   OutstandingChangeReason = "settlement"
	OutstandingChangeRestore      OutstandingChangeReason = "restore"
	OutstandingChangeRecalculated OutstandingChangeReason = "recalculated"
)

// PartyCreatedEvent is published when a new party is created
type PartyCreatedEvent struct {
	shared.BaseDomainEvent
	PartyID uuid.UUID `json:"party_id"`
	Code    string    `json:"code"`
	Name    string    `json:"name"`
	Type    PartyType `json:"type"`
}

// NewPartyCreatedEvent creates a new PartyCreatedEvent
func NewPartyCreatedEvent(p *Party) *PartyCreatedEvent {
	return &PartyCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePartyCreated, AggregateTypeParty, p.ID),
		PartyID:         p.ID,
		Code:            p.Code,
		Name:            p.Name,
		Type:            p.Type,
	}
}

// PartyUpdatedEvent is published when a party's basic information changes
type PartyUpdatedEvent struct {
	shared.BaseDomainEvent
	PartyID uuid.UUID `json:"party_id"`
	Code    string    `json:"code"`
	Name    string    `json:"name"`
}

// NewPartyUpdatedEvent creates a new PartyUpdatedEvent
func NewPartyUpdatedEvent(p *Party) *PartyUpdatedEvent {
	return &PartyUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePartyUpdated, AggregateTypeParty, p.ID),
		PartyID:         p.ID,
		Code:            p.Code,
		Name:            p.Name,
	}
}

// PartyOutstandingChangedEvent is published when a party's outstanding moves
type PartyOutstandingChangedEvent struct {
	shared.BaseDomainEvent
	PartyID        uuid.UUID               `json:"party_id"`
	Code           string                  `json:"code"`
	OldOutstanding decimal.Decimal         `json:"old_outstanding"`
	NewOutstanding decimal.Decimal         `json:"new_outstanding"`
	Reason         OutstandingChangeReason `json:"reason"`
}

// NewPartyOutstandingChangedEvent creates a new PartyOutstandingChangedEvent
func NewPartyOutstandingChangedEvent(p *Party, oldValue, newValue decimal.Decimal, reason OutstandingChangeReason) *PartyOutstandingChangedEvent {
	return &PartyOutstandingChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePartyOutstandingChanged, AggregateTypeParty, p.ID),
		PartyID:         p.ID,
		Code:            p.Code,
		OldOutstanding:  oldValue,
		NewOutstanding:  newValue,
		Reason:          reason,
	}
}
