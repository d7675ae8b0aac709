package account

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Type represents the kind of money account
type Type string

const (
	// TypeCash is a physical cash book
	TypeCash Type = "CASH"
	// TypeBank is a bank account
	TypeBank Type = "BANK"
)

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the account type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeCash, TypeBank:
		return true
	}
	return false
}

// Status represents the status of an account
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Account represents a cash or bank account whose balance moves in
// lockstep with payments and financial postings. The balance field is
// only ever mutated through Credit/Debit here or through the
// repository's atomic AdjustBalance; nothing reads then writes it.
type Account struct {
	shared.BaseAggregateRoot
	Code           string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name           string          `gorm:"type:varchar(200);not null"`
	Type           Type            `gorm:"type:varchar(10);not null;index"`
	Status         Status          `gorm:"type:varchar(20);not null;default:'active'"`
	BankName       string          `gorm:"type:varchar(200)"`
	AccountNumber  string          `gorm:"type:varchar(50)"`
	IFSC           string          `gorm:"type:varchar(20)"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Balance        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a new account with an opening balance
func NewAccount(code, name string, accountType Type, openingBalance decimal.Decimal) (*Account, error) {
	if code == "" {
		return nil, shared.NewValidationError("account code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewValidationError("account code cannot exceed 50 characters")
	}
	if name == "" {
		return nil, shared.NewValidationError("account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewValidationError("account type must be CASH or BANK")
	}

	a := &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Type:              accountType,
		Status:            StatusActive,
		OpeningBalance:    openingBalance,
		Balance:           openingBalance,
	}

	a.AddDomainEvent(NewAccountCreatedEvent(a))

	return a, nil
}

// NewCashAccount creates a new cash account
func NewCashAccount(code, name string, openingBalance decimal.Decimal) (*Account, error) {
	return NewAccount(code, name, TypeCash, openingBalance)
}

// NewBankAccount creates a new bank account with bank details
func NewBankAccount(code, name, bankName, accountNumber, ifsc string, openingBalance decimal.Decimal) (*Account, error) {
	a, err := NewAccount(code, name, TypeBank, openingBalance)
	if err != nil {
		return nil, err
	}

	a.BankName = bankName
	a.AccountNumber = accountNumber
	a.IFSC = strings.ToUpper(ifsc)

	return a, nil
}

// Credit increases the account balance. Balances may go negative only
// through Debit (overdraft on the book side is tolerated, see Debit).
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("credit amount must be positive")
	}

	old := a.Balance
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountBalanceChangedEvent(a, old, a.Balance))

	return nil
}

// Debit decreases the account balance. A negative result is allowed:
// the book balance of a cash-credit facility routinely runs below zero
// and the posting layer does not enforce funding limits.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("debit amount must be positive")
	}

	old := a.Balance
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountBalanceChangedEvent(a, old, a.Balance))

	return nil
}

// Deactivate deactivates the account
func (a *Account) Deactivate() error {
	if a.Status == StatusInactive {
		return shared.NewInvalidStateError("account is already inactive")
	}

	a.Status = StatusInactive
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// Activate activates the account
func (a *Account) Activate() error {
	if a.Status == StatusActive {
		return shared.NewInvalidStateError("account is already active")
	}

	a.Status = StatusActive
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// IsActive returns true if the account is active
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// IsBank returns true for bank accounts
func (a *Account) IsBank() bool {
	return a.Type == TypeBank
}
