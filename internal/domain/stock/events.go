package stock

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeMovement = "StockMovement"

// Event type constants
const (
	EventTypeMovementRecorded  = "StockMovementRecorded"
	EventTypeMovementsReversed = "StockMovementsReversed"
)

// MovementRecordedEvent is raised after a movement row is committed
type MovementRecordedEvent struct {
	shared.BaseDomainEvent
	ItemType     ItemType        `json:"item_type"`
	ItemID       uuid.UUID       `json:"item_id"`
	MovementType MovementType    `json:"movement_type"`
	QuantityIn   decimal.Decimal `json:"quantity_in"`
	QuantityOut  decimal.Decimal `json:"quantity_out"`
	ReferenceID  string          `json:"reference_id"`
}

// NewMovementRecordedEvent creates a new MovementRecordedEvent
func NewMovementRecordedEvent(m *Movement) *MovementRecordedEvent {
	return &MovementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementRecorded, AggregateTypeMovement, m.ID),
		ItemType:        m.ItemType,
		ItemID:          m.ItemID(),
		MovementType:    m.MovementType,
		QuantityIn:      m.QuantityIn,
		QuantityOut:     m.QuantityOut,
		ReferenceID:     m.ReferenceID,
	}
}

// EventType returns the event type name
func (e *MovementRecordedEvent) EventType() string {
	return EventTypeMovementRecorded
}

// MovementsReversedEvent is raised after compensating rows are written for a reference
type MovementsReversedEvent struct {
	shared.BaseDomainEvent
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   string        `json:"reference_id"`
	Count         int           `json:"count"`
}

// NewMovementsReversedEvent creates a new MovementsReversedEvent
func NewMovementsReversedEvent(refType ReferenceType, refID string, count int) *MovementsReversedEvent {
	return &MovementsReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementsReversed, AggregateTypeMovement, uuid.New()),
		ReferenceType:   refType,
		ReferenceID:     refID,
		Count:           count,
	}
}

// EventType returns the event type name
func (e *MovementsReversedEvent) EventType() string {
	return EventTypeMovementsReversed
}
