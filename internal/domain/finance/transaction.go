package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/shared/valueobject"
)

// TransactionType classifies a financial transaction
type TransactionType string

const (
	// TransactionTypeLoanTaken records a loan received from a lender
	TransactionTypeLoanTaken TransactionType = "LOAN_TAKEN"
	// TransactionTypeLoanGiven records a loan extended to someone
	TransactionTypeLoanGiven TransactionType = "LOAN_GIVEN"
	// TransactionTypeInvestmentReceived records capital brought in by an investor
	TransactionTypeInvestmentReceived TransactionType = "INVESTMENT_RECEIVED"
	// TransactionTypeInvestmentMade records capital placed outside the business
	TransactionTypeInvestmentMade TransactionType = "INVESTMENT_MADE"
	// TransactionTypeBorrowing records short-term hand borrowing
	TransactionTypeBorrowing TransactionType = "BORROWING"
	// TransactionTypeRepayment records a repayment of a loan or borrowing
	TransactionTypeRepayment TransactionType = "REPAYMENT"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeLoanTaken,
		TransactionTypeLoanGiven,
		TransactionTypeInvestmentReceived,
		TransactionTypeInvestmentMade,
		TransactionTypeBorrowing,
		TransactionTypeRepayment:
		return true
	}
	return false
}

// IsInbound returns true for types where money enters the bank account
func (t TransactionType) IsInbound() bool {
	switch t {
	case TransactionTypeLoanTaken, TransactionTypeInvestmentReceived, TransactionTypeBorrowing:
		return true
	}
	return false
}

// EntrySide distinguishes debit from credit legs
type EntrySide string

const (
	// SideDebit is the debit side of an entry
	SideDebit EntrySide = "DEBIT"
	// SideCredit is the credit side of an entry
	SideCredit EntrySide = "CREDIT"
)

// LedgerType classifies what kind of ledger head a leg posts to
type LedgerType string

const (
	// LedgerTypeBank is the cash/bank side of every transaction
	LedgerTypeBank LedgerType = "BANK"
	// LedgerTypeLiability is money the business owes
	LedgerTypeLiability LedgerType = "LIABILITY"
	// LedgerTypeAsset is money owed to the business or placed by it
	LedgerTypeAsset LedgerType = "ASSET"
	// LedgerTypeCapital is owner/investor capital
	LedgerTypeCapital LedgerType = "CAPITAL"
	// LedgerTypeExpense is cost written off, e.g. interest paid
	LedgerTypeExpense LedgerType = "EXPENSE"
)

// String returns the string representation of LedgerType
func (t LedgerType) String() string {
	return string(t)
}

// Leg is one derived debit or credit of a financial transaction. Legs
// are a pure derivation result; LedgerEntry and GeneralLedgerEntry are
// the persisted forms.
type Leg struct {
	Side        EntrySide
	LedgerType  LedgerType
	AccountHead string
	Amount      decimal.Decimal
}

// repaymentTolerance is how far principal + interest may drift from the
// repayment amount before the split is rejected.
var repaymentTolerance = decimal.New(1, -2)

// FinancialTransaction represents a loan, investment, borrowing or
// repayment aggregate root. Posting one derives a fixed set of
// double-entry legs whose debits and credits both sum to the amount.
type FinancialTransaction struct {
	shared.BaseAggregateRoot
	TransactionNumber string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	TransactionType   TransactionType `gorm:"type:varchar(30);not null;index"`
	PartyName         string          `gorm:"type:varchar(200);not null"` // Lender, borrower or investor; free text, not a ledger party
	AccountID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountName       string          `gorm:"type:varchar(200);not null"` // Denormalized for ledger heads
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Principal         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // REPAYMENT only
	Interest          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // REPAYMENT only
	VoucherNumber     string          `gorm:"type:varchar(50);not null;index"`
	TransactionDate   time.Time       `gorm:"type:timestamptz;not null;index"`
	Remarks           string          `gorm:"type:text"`
	Ledgers           []LedgerEntry   `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (FinancialTransaction) TableName() string {
	return "financial_transactions"
}

// NewFinancialTransaction creates a financial transaction of any type
// except REPAYMENT, which carries a principal/interest split and has
// its own constructor.
func NewFinancialTransaction(
	number string,
	txType TransactionType,
	partyName string,
	accountID uuid.UUID,
	accountName string,
	amount valueobject.Money,
	transactionDate time.Time,
) (*FinancialTransaction, error) {
	if txType == TransactionTypeRepayment {
		return nil, shared.NewValidationError("repayments require a principal/interest split, use NewRepayment")
	}
	return newFinancialTransaction(number, txType, partyName, accountID, accountName,
		amount, decimal.Zero, decimal.Zero, transactionDate)
}

// NewRepayment creates a REPAYMENT transaction. The principal and
// interest must add up to the amount within a tolerance of 0.01.
func NewRepayment(
	number string,
	partyName string,
	accountID uuid.UUID,
	accountName string,
	amount valueobject.Money,
	principal valueobject.Money,
	interest valueobject.Money,
	transactionDate time.Time,
) (*FinancialTransaction, error) {
	if principal.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("repayment principal must be positive")
	}
	if interest.IsNegative() {
		return nil, shared.NewValidationError("repayment interest cannot be negative")
	}
	gap := principal.Amount().Add(interest.Amount()).Sub(amount.Amount()).Abs()
	if gap.GreaterThan(repaymentTolerance) {
		return nil, shared.NewValidationError(
			"principal %s + interest %s does not add up to amount %s",
			principal.Amount().StringFixed(2), interest.Amount().StringFixed(2), amount.Amount().StringFixed(2))
	}
	return newFinancialTransaction(number, TransactionTypeRepayment, partyName, accountID, accountName,
		amount, principal.Amount(), interest.Amount(), transactionDate)
}

func newFinancialTransaction(
	number string,
	txType TransactionType,
	partyName string,
	accountID uuid.UUID,
	accountName string,
	amount valueobject.Money,
	principal decimal.Decimal,
	interest decimal.Decimal,
	transactionDate time.Time,
) (*FinancialTransaction, error) {
	if number == "" {
		return nil, shared.NewValidationError("transaction number cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewValidationError("invalid transaction type: %s", txType)
	}
	if partyName == "" {
		return nil, shared.NewValidationError("party name cannot be empty")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewValidationError("account ID cannot be empty")
	}
	if accountName == "" {
		return nil, shared.NewValidationError("account name cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("amount must be positive")
	}
	if transactionDate.IsZero() {
		return nil, shared.NewValidationError("transaction date is required")
	}

	return &FinancialTransaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TransactionNumber: number,
		TransactionType:   txType,
		PartyName:         partyName,
		AccountID:         accountID,
		AccountName:       accountName,
		Amount:            amount.Amount(),
		Principal:         principal,
		Interest:          interest,
		TransactionDate:   transactionDate,
		Ledgers:           make([]LedgerEntry, 0),
	}, nil
}

// WithRemarks sets the remarks (builder pattern)
func (t *FinancialTransaction) WithRemarks(remarks string) *FinancialTransaction {
	t.Remarks = remarks
	return t
}

// BankImpact returns the signed effect on the bank account balance:
// positive where the bank leg is a debit (money in), negative where it
// is a credit (money out).
func (t *FinancialTransaction) BankImpact() decimal.Decimal {
	if t.TransactionType.IsInbound() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// DeriveLegs derives the double-entry legs for this transaction from
// the fixed per-type table:
//
//	LOAN_TAKEN           bank Dr          party Cr  LIABILITY
//	LOAN_GIVEN           bank Cr          party Dr  ASSET
//	INVESTMENT_RECEIVED  bank Dr          party Cr  CAPITAL
//	INVESTMENT_MADE      bank Cr          party Dr  ASSET
//	BORROWING            bank Dr          party Cr  LIABILITY
//	REPAYMENT            bank Cr          party Dr principal LIABILITY,
//	                                      interest Dr EXPENSE when > 0
//
// For repayments the interest leg absorbs the tolerated rounding gap
// (it is derived as amount minus principal) so the legs always balance
// exactly. The derivation is verified before returning: the debit and
// credit totals must both equal the amount.
func (t *FinancialTransaction) DeriveLegs() ([]Leg, error) {
	bankSide := SideCredit
	partySide := SideDebit
	if t.TransactionType.IsInbound() {
		bankSide = SideDebit
		partySide = SideCredit
	}

	var partyLedger LedgerType
	switch t.TransactionType {
	case TransactionTypeLoanTaken, TransactionTypeBorrowing, TransactionTypeRepayment:
		partyLedger = LedgerTypeLiability
	case TransactionTypeLoanGiven, TransactionTypeInvestmentMade:
		partyLedger = LedgerTypeAsset
	case TransactionTypeInvestmentReceived:
		partyLedger = LedgerTypeCapital
	default:
		return nil, shared.NewValidationError("invalid transaction type: %s", t.TransactionType)
	}

	legs := []Leg{
		{Side: bankSide, LedgerType: LedgerTypeBank, AccountHead: t.AccountName, Amount: t.Amount},
	}

	if t.TransactionType == TransactionTypeRepayment {
		legs = append(legs, Leg{
			Side:        partySide,
			LedgerType:  partyLedger,
			AccountHead: t.PartyName,
			Amount:      t.Principal,
		})
		if interest := t.Amount.Sub(t.Principal); interest.IsPositive() {
			legs = append(legs, Leg{
				Side:        partySide,
				LedgerType:  LedgerTypeExpense,
				AccountHead: "INTEREST PAID",
				Amount:      interest,
			})
		}
	} else {
		legs = append(legs, Leg{
			Side:        partySide,
			LedgerType:  partyLedger,
			AccountHead: t.PartyName,
			Amount:      t.Amount,
		})
	}

	if err := verifyBalanced(legs, t.Amount); err != nil {
		return nil, err
	}
	return legs, nil
}

// verifyBalanced checks that debit and credit totals both equal amount.
func verifyBalanced(legs []Leg, amount decimal.Decimal) error {
	debits, credits := decimal.Zero, decimal.Zero
	for _, leg := range legs {
		if leg.Side == SideDebit {
			debits = debits.Add(leg.Amount)
		} else {
			credits = credits.Add(leg.Amount)
		}
	}
	if !debits.Equal(credits) || !debits.Equal(amount) {
		return shared.NewConsistencyError(
			"derived legs do not balance: debits %s, credits %s, amount %s",
			debits.StringFixed(2), credits.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

// Post derives the legs, materializes them as ledger rows on the
// aggregate under the given voucher number and returns the matching
// general ledger projection rows. It fails with ConsistencyError if
// the derivation does not balance, and with InvalidStateError when
// called twice.
func (t *FinancialTransaction) Post(voucherNumber string) ([]GeneralLedgerEntry, error) {
	if voucherNumber == "" {
		return nil, shared.NewValidationError("voucher number cannot be empty")
	}
	if t.VoucherNumber != "" {
		return nil, shared.NewInvalidStateError("transaction %s is already posted under voucher %s", t.TransactionNumber, t.VoucherNumber)
	}

	legs, err := t.DeriveLegs()
	if err != nil {
		return nil, err
	}

	t.VoucherNumber = voucherNumber
	t.Ledgers = make([]LedgerEntry, 0, len(legs))
	gl := make([]GeneralLedgerEntry, 0, len(legs))
	for _, leg := range legs {
		t.Ledgers = append(t.Ledgers, *NewLedgerEntry(t.ID, leg))
		gl = append(gl, *NewGeneralLedgerEntry(
			voucherNumber, t.TransactionDate, leg,
			GLReferenceFinancialTransaction, t.ID,
			t.narration(),
		))
	}

	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	t.AddDomainEvent(NewFinancialTransactionPostedEvent(t, len(legs)))

	return gl, nil
}

func (t *FinancialTransaction) narration() string {
	if t.Remarks != "" {
		return t.Remarks
	}
	return string(t.TransactionType) + " " + t.PartyName
}

// IsPosted returns true once the transaction has a voucher
func (t *FinancialTransaction) IsPosted() bool {
	return t.VoucherNumber != ""
}

// GetAmountMoney returns the amount as Money value object
func (t *FinancialTransaction) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(t.Amount)
}

// GetPrincipalMoney returns the principal as Money value object
func (t *FinancialTransaction) GetPrincipalMoney() valueobject.Money {
	return valueobject.NewMoneyINR(t.Principal)
}

// GetInterestMoney returns the interest as Money value object
func (t *FinancialTransaction) GetInterestMoney() valueobject.Money {
	return valueobject.NewMoneyINR(t.Interest)
}
