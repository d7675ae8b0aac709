package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared/valueobject"
)

// LedgerEntry is one persisted debit or credit leg of a financial
// transaction. Rows are immutable once written.
type LedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LedgerType    LedgerType      `gorm:"type:varchar(20);not null"`
	AccountHead   string          `gorm:"type:varchar(200);not null"`
	Debit         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Credit        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt     time.Time
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "financial_transaction_ledgers"
}

// NewLedgerEntry materializes a derived leg as a ledger row
func NewLedgerEntry(transactionID uuid.UUID, leg Leg) *LedgerEntry {
	e := &LedgerEntry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		LedgerType:    leg.LedgerType,
		AccountHead:   leg.AccountHead,
		Debit:         decimal.Zero,
		Credit:        decimal.Zero,
		CreatedAt:     time.Now(),
	}
	if leg.Side == SideDebit {
		e.Debit = leg.Amount
	} else {
		e.Credit = leg.Amount
	}
	return e
}

// GLReference identifies what kind of posting produced a general
// ledger row.
type GLReference string

const (
	// GLReferencePayment marks rows posted by a payment or receipt
	GLReferencePayment GLReference = "PAYMENT"
	// GLReferencePaymentReversal marks compensating rows of a reversal
	GLReferencePaymentReversal GLReference = "PAYMENT_REVERSAL"
	// GLReferenceFinancialTransaction marks rows posted by a financial transaction
	GLReferenceFinancialTransaction GLReference = "FINANCIAL_TRANSACTION"
)

// GeneralLedgerEntry is the audit-trail projection of one leg, keyed by
// voucher number. Each posting event writes its legs under one fresh
// voucher; reversals get their own voucher and point back at the
// original posting through ReferenceID with IsReversal set. Rows are
// immutable once written and are never deleted.
type GeneralLedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VoucherNumber string          `gorm:"type:varchar(50);not null;index"`
	EntryDate     time.Time       `gorm:"type:timestamptz;not null;index"`
	AccountHead   string          `gorm:"type:varchar(200);not null;index"`
	LedgerType    LedgerType      `gorm:"type:varchar(20);not null"`
	Debit         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Credit        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReferenceType GLReference     `gorm:"type:varchar(30);not null;index"`
	ReferenceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	IsReversal    bool            `gorm:"not null;default:false"`
	Narration     string          `gorm:"type:varchar(500)"`
	CreatedAt     time.Time
}

// TableName returns the table name for GORM
func (GeneralLedgerEntry) TableName() string {
	return "general_ledgers"
}

// NewGeneralLedgerEntry creates a general ledger row from a derived leg
func NewGeneralLedgerEntry(
	voucherNumber string,
	entryDate time.Time,
	leg Leg,
	refType GLReference,
	refID uuid.UUID,
	narration string,
) *GeneralLedgerEntry {
	e := &GeneralLedgerEntry{
		ID:            uuid.New(),
		VoucherNumber: voucherNumber,
		EntryDate:     entryDate,
		AccountHead:   leg.AccountHead,
		LedgerType:    leg.LedgerType,
		Debit:         decimal.Zero,
		Credit:        decimal.Zero,
		ReferenceType: refType,
		ReferenceID:   refID,
		Narration:     narration,
		CreatedAt:     time.Now(),
	}
	if leg.Side == SideDebit {
		e.Debit = leg.Amount
	} else {
		e.Credit = leg.Amount
	}
	return e
}

// AsReversal flags the row as a compensating entry (builder pattern)
func (e *GeneralLedgerEntry) AsReversal() *GeneralLedgerEntry {
	e.IsReversal = true
	return e
}

// Side returns which side of the books the row sits on
func (e *GeneralLedgerEntry) Side() EntrySide {
	if e.Debit.IsPositive() {
		return SideDebit
	}
	return SideCredit
}

// GetDebitMoney returns the debit as Money value object
func (e *GeneralLedgerEntry) GetDebitMoney() valueobject.Money {
	return valueobject.NewMoneyINR(e.Debit)
}

// GetCreditMoney returns the credit as Money value object
func (e *GeneralLedgerEntry) GetCreditMoney() valueobject.Money {
	return valueobject.NewMoneyINR(e.Credit)
}
