package account

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeAccount = "Account"

// Event type constants
const (
	EventTypeAccountCreated        = "AccountCreated"
	EventTypeAccountBalanceChanged = "AccountBalanceChanged"
)

// AccountCreatedEvent is published when a new account is created
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	AccountID      uuid.UUID       `json:"account_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	AccountType    Type            `json:"account_type"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// NewAccountCreatedEvent creates a new AccountCreatedEvent
func NewAccountCreatedEvent(a *Account) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountCreated, AggregateTypeAccount, a.ID),
		AccountID:       a.ID,
		Code:            a.Code,
		Name:            a.Name,
		AccountType:     a.Type,
		OpeningBalance:  a.OpeningBalance,
	}
}

// AccountBalanceChangedEvent is published when an account balance moves
type AccountBalanceChangedEvent struct {
	shared.BaseDomainEvent
	AccountID  uuid.UUID       `json:"account_id"`
	Code       string          `json:"code"`
	OldBalance decimal.Decimal `json:"old_balance"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// NewAccountBalanceChangedEvent creates a new AccountBalanceChangedEvent
func NewAccountBalanceChangedEvent(a *Account, oldBalance, newBalance decimal.Decimal) *AccountBalanceChangedEvent {
	return &AccountBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountBalanceChanged, AggregateTypeAccount, a.ID),
		AccountID:       a.ID,
		Code:            a.Code,
		OldBalance:      oldBalance,
		NewBalance:      newBalance,
	}
}
