package party

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// PartyType represents the role a party plays in trade
type PartyType string

const (
	// PartyTypeCustomer buys from us; outstanding is receivable
	PartyTypeCustomer PartyType = "CUSTOMER"
	// PartyTypeSupplier sells to us; outstanding is payable
	PartyTypeSupplier PartyType = "SUPPLIER"
)

// String returns the string representation of PartyType
func (t PartyType) String() string {
	return string(t)
}

// IsValid returns true if the party type is valid
func (t PartyType) IsValid() bool {
	switch t {
	case PartyTypeCustomer, PartyTypeSupplier:
		return true
	}
	return false
}

// PartyStatus represents the status of a party
type PartyStatus string

const (
	PartyStatusActive   PartyStatus = "active"
	PartyStatusInactive PartyStatus = "inactive"
)

// Party represents a customer or supplier ledger account.
// It is the aggregate root for outstanding-balance operations: every
// accrual, settlement and restore of a party's outstanding goes through
// this type so the clamp-at-zero rule lives in exactly one place.
type Party struct {
	shared.BaseAggregateRoot
	Code        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Type        PartyType       `gorm:"type:varchar(20);not null;index"`
	Status      PartyStatus     `gorm:"type:varchar(20);not null;default:'active'"`
	Phone       string          `gorm:"type:varchar(50);index"`
	Email       string          `gorm:"type:varchar(200)"`
	Address     string          `gorm:"type:text"`
	GSTIN       string          `gorm:"type:varchar(15)"`
	Outstanding decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Never negative
	Notes       string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Party) TableName() string {
	return "parties"
}

// NewParty creates a new party with required fields
func NewParty(code, name string, partyType PartyType) (*Party, error) {
	if err := validatePartyCode(code); err != nil {
		return nil, err
	}
	if err := validatePartyName(name); err != nil {
		return nil, err
	}
	if !partyType.IsValid() {
		return nil, shared.NewValidationError("party type must be CUSTOMER or SUPPLIER")
	}

	p := &Party{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Type:              partyType,
		Status:            PartyStatusActive,
		Outstanding:       decimal.Zero,
	}

	p.AddDomainEvent(NewPartyCreatedEvent(p))

	return p, nil
}

// NewCustomer creates a new customer party
func NewCustomer(code, name string) (*Party, error) {
	return NewParty(code, name, PartyTypeCustomer)
}

// NewSupplier creates a new supplier party
func NewSupplier(code, name string) (*Party, error) {
	return NewParty(code, name, PartyTypeSupplier)
}

// Update updates the party's basic information
func (p *Party) Update(name string) error {
	if err := validatePartyName(name); err != nil {
		return err
	}

	p.Name = name
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPartyUpdatedEvent(p))

	return nil
}

// SetContact sets the party's contact information
func (p *Party) SetContact(phone, email string) error {
	if phone != "" {
		if err := validatePhone(phone); err != nil {
			return err
		}
	}
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}

	p.Phone = phone
	p.Email = email
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetAddress sets the party's address
func (p *Party) SetAddress(address string) error {
	if address != "" && len(address) > 500 {
		return shared.NewValidationError("address cannot exceed 500 characters")
	}

	p.Address = address
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetGSTIN sets the party's GST identification number
func (p *Party) SetGSTIN(gstin string) error {
	if gstin != "" {
		if err := validateGSTIN(gstin); err != nil {
			return err
		}
	}

	p.GSTIN = strings.ToUpper(gstin)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetNotes sets the party's notes
func (p *Party) SetNotes(notes string) {
	p.Notes = notes
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// Activate activates the party
func (p *Party) Activate() error {
	if p.Status == PartyStatusActive {
		return shared.NewInvalidStateError("party is already active")
	}

	p.Status = PartyStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Deactivate deactivates the party
func (p *Party) Deactivate() error {
	if p.Status == PartyStatusInactive {
		return shared.NewInvalidStateError("party is already inactive")
	}

	p.Status = PartyStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// AddOutstanding accrues against the party, typically when a document
// is confirmed. The amount must be positive.
func (p *Party) AddOutstanding(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("outstanding accrual must be positive")
	}

	old := p.Outstanding
	p.Outstanding = p.Outstanding.Add(amount)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPartyOutstandingChangedEvent(p, old, p.Outstanding, OutstandingChangeAccrual))

	return nil
}

// ReduceOutstanding settles part of the party's outstanding, typically
// on payment allocation. The reduction clamps at zero: it returns the
// amount actually absorbed, which is less than the requested amount when
// the stored outstanding was smaller. Callers must not clamp themselves.
func (p *Party) ReduceOutstanding(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, shared.NewValidationError("outstanding reduction must be positive")
	}

	absorbed := decimal.Min(amount, p.Outstanding)
	if absorbed.IsZero() {
		return decimal.Zero, nil
	}

	old := p.Outstanding
	p.Outstanding = p.Outstanding.Sub(absorbed)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPartyOutstandingChangedEvent(p, old, p.Outstanding, OutstandingChangeSettlement))

	return absorbed, nil
}

// RestoreOutstanding adds back a previously settled amount, typically
// when a payment is reversed or a document void is undone.
func (p *Party) RestoreOutstanding(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("outstanding restore must be positive")
	}

	old := p.Outstanding
	p.Outstanding = p.Outstanding.Add(amount)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPartyOutstandingChangedEvent(p, old, p.Outstanding, OutstandingChangeRestore))

	return nil
}

// SetOutstanding overwrites the outstanding with a recomputed value.
// Used by the recalculation service after deriving the true figure from
// source documents and payments.
func (p *Party) SetOutstanding(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewValidationError("outstanding cannot be negative")
	}

	old := p.Outstanding
	p.Outstanding = amount
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPartyOutstandingChangedEvent(p, old, p.Outstanding, OutstandingChangeRecalculated))

	return nil
}

// IsActive returns true if the party is active
func (p *Party) IsActive() bool {
	return p.Status == PartyStatusActive
}

// IsCustomer returns true if the party is a customer
func (p *Party) IsCustomer() bool {
	return p.Type == PartyTypeCustomer
}

// IsSupplier returns true if the party is a supplier
func (p *Party) IsSupplier() bool {
	return p.Type == PartyTypeSupplier
}

// HasOutstanding returns true if the party owes or is owed anything
func (p *Party) HasOutstanding() bool {
	return p.Outstanding.IsPositive()
}

// Validation functions

func validatePartyCode(code string) error {
	if code == "" {
		return shared.NewValidationError("party code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewValidationError("party code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewValidationError("party code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validatePartyName(name string) error {
	if name == "" {
		return shared.NewValidationError("party name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("party name cannot exceed 200 characters")
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewValidationError("phone number cannot exceed 50 characters")
	}
	validPhone := regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	if !validPhone.MatchString(phone) {
		return shared.NewValidationError("invalid phone number format")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewValidationError("email cannot exceed 200 characters")
	}
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return shared.NewValidationError("invalid email format")
	}
	return nil
}

// gstinRegex matches the 15-character GST identification number:
// state code, PAN, entity number, default 'Z', checksum.
var gstinRegex = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][0-9A-Z]Z[0-9A-Z]$`)

func validateGSTIN(gstin string) error {
	if !gstinRegex.MatchString(strings.ToUpper(gstin)) {
		return shared.NewValidationError("invalid GSTIN format")
	}
	return nil
}
