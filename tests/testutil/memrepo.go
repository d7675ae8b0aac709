package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/payment"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
)

// InMemorySequenceGenerator hands out numbers from per-scope counters.
type InMemorySequenceGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewInMemorySequenceGenerator creates an empty sequence generator.
func NewInMemorySequenceGenerator() *InMemorySequenceGenerator {
	return &InMemorySequenceGenerator{counters: make(map[string]int64)}
}

// Next returns the next number for the scope, starting at 1.
func (g *InMemorySequenceGenerator) Next(_ context.Context, scope string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[scope]++
	return g.counters[scope], nil
}

var _ shared.SequenceGenerator = (*InMemorySequenceGenerator)(nil)

// checkVersion mimics the guarded UPDATE of the real SaveWithLock: the
// incoming aggregate must be exactly one version ahead of the stored row.
func checkVersion(stored, incoming int) error {
	if incoming-1 != stored {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// InMemoryPartyRepository is a map-backed party store for service tests.
type InMemoryPartyRepository struct {
	mu      sync.Mutex
	parties map[uuid.UUID]party.Party
}

// NewInMemoryPartyRepository creates an empty party repository.
func NewInMemoryPartyRepository() *InMemoryPartyRepository {
	return &InMemoryPartyRepository{parties: make(map[uuid.UUID]party.Party)}
}

func (r *InMemoryPartyRepository) FindByID(_ context.Context, id uuid.UUID) (*party.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parties[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *InMemoryPartyRepository) FindByCode(_ context.Context, code string) (*party.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code = strings.ToUpper(code)
	for _, p := range r.parties {
		if p.Code == code {
			found := p
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *InMemoryPartyRepository) FindAll(_ context.Context, _ shared.Filter) ([]party.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]party.Party, 0, len(r.parties))
	for _, p := range r.parties {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (r *InMemoryPartyRepository) FindByType(ctx context.Context, partyType party.PartyType, filter shared.Filter) ([]party.Party, error) {
	all, _ := r.FindAll(ctx, filter)
	result := make([]party.Party, 0)
	for _, p := range all {
		if p.Type == partyType {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *InMemoryPartyRepository) FindWithOutstanding(ctx context.Context, partyType party.PartyType, filter shared.Filter) ([]party.Party, error) {
	byType, _ := r.FindByType(ctx, partyType, filter)
	result := make([]party.Party, 0)
	for _, p := range byType {
		if p.Outstanding.IsPositive() {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *InMemoryPartyRepository) Save(_ context.Context, p *party.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parties[p.ID] = *p
	return nil
}

func (r *InMemoryPartyRepository) SaveWithLock(_ context.Context, p *party.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.parties[p.ID]
	if !ok {
		return shared.ErrConcurrencyConflict
	}
	if err := checkVersion(stored.Version, p.Version); err != nil {
		return err
	}
	r.parties[p.ID] = *p
	return nil
}

func (r *InMemoryPartyRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.parties[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.parties, id)
	return nil
}

func (r *InMemoryPartyRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *InMemoryPartyRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByCode(ctx, code)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *InMemoryPartyRepository) AdjustOutstanding(_ context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parties[id]
	if !ok {
		return decimal.Zero, shared.ErrNotFound
	}
	p.Outstanding = decimal.Max(decimal.Zero, p.Outstanding.Add(delta))
	r.parties[id] = p
	return p.Outstanding, nil
}

func (r *InMemoryPartyRepository) SetOutstanding(_ context.Context, id uuid.UUID, value decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parties[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Outstanding = value
	r.parties[id] = p
	return nil
}

var _ party.Repository = (*InMemoryPartyRepository)(nil)

// InMemoryDocumentRepository is a map-backed document store.
type InMemoryDocumentRepository struct {
	mu   sync.Mutex
	docs map[uuid.UUID]document.Document
}

// NewInMemoryDocumentRepository creates an empty document repository.
func NewInMemoryDocumentRepository() *InMemoryDocumentRepository {
	return &InMemoryDocumentRepository{docs: make(map[uuid.UUID]document.Document)}
}

func copyDocument(d document.Document) document.Document {
	lines := make([]document.Line, len(d.Lines))
	copy(lines, d.Lines)
	d.Lines = lines
	return d
}

func (r *InMemoryDocumentRepository) FindByID(_ context.Context, id uuid.UUID) (*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	found := copyDocument(d)
	return &found, nil
}

func (r *InMemoryDocumentRepository) FindByNumber(_ context.Context, number string) (*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.DocumentNumber == number {
			found := copyDocument(d)
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *InMemoryDocumentRepository) FindAll(_ context.Context, _ shared.Filter) ([]document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]document.Document, 0, len(r.docs))
	for _, d := range r.docs {
		result = append(result, copyDocument(d))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DocumentNumber < result[j].DocumentNumber })
	return result, nil
}

func (r *InMemoryDocumentRepository) FindByParty(ctx context.Context, partyID uuid.UUID, filter shared.Filter) ([]document.Document, error) {
	all, _ := r.FindAll(ctx, filter)
	result := make([]document.Document, 0)
	for _, d := range all {
		if d.PartyID == partyID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (r *InMemoryDocumentRepository) FindByTypeAndStatus(ctx context.Context, docType document.Type, status document.Status, filter shared.Filter) ([]document.Document, error) {
	all, _ := r.FindAll(ctx, filter)
	result := make([]document.Document, 0)
	for _, d := range all {
		if d.Type == docType && d.Status == status {
			result = append(result, d)
		}
	}
	return result, nil
}

func (r *InMemoryDocumentRepository) FindOpenByParty(ctx context.Context, partyID uuid.UUID, docType document.Type) ([]document.Document, error) {
	all, _ := r.FindAll(ctx, shared.Filter{})
	result := make([]document.Document, 0)
	for _, d := range all {
		if d.PartyID == partyID && d.Type == docType && d.Status == document.StatusConfirmed && d.BalanceAmount.IsPositive() {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DocumentDate.Equal(result[j].DocumentDate) {
			return result[i].DocumentDate.Before(result[j].DocumentDate)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryDocumentRepository) FindByDateRange(ctx context.Context, from, to time.Time, filter shared.Filter) ([]document.Document, error) {
	all, _ := r.FindAll(ctx, filter)
	result := make([]document.Document, 0)
	for _, d := range all {
		if !d.DocumentDate.Before(from) && !d.DocumentDate.After(to) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (r *InMemoryDocumentRepository) Save(_ context.Context, d *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[d.ID] = copyDocument(*d)
	return nil
}

func (r *InMemoryDocumentRepository) SaveWithLock(_ context.Context, d *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[d.ID]
	if !ok {
		return shared.ErrConcurrencyConflict
	}
	if err := checkVersion(stored.Version, d.Version); err != nil {
		return err
	}
	r.docs[d.ID] = copyDocument(*d)
	return nil
}

func (r *InMemoryDocumentRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *InMemoryDocumentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *InMemoryDocumentRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	_, err := r.FindByNumber(ctx, number)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *InMemoryDocumentRepository) SumOpenBalanceByParty(_ context.Context, partyID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, d := range r.docs {
		if d.PartyID == partyID && d.Status == document.StatusConfirmed {
			total = total.Add(d.BalanceAmount)
		}
	}
	return total, nil
}

var _ document.Repository = (*InMemoryDocumentRepository)(nil)

// InMemoryPaymentRepository is a map-backed payment store.
type InMemoryPaymentRepository struct {
	mu          sync.Mutex
	payments    map[uuid.UUID]payment.Payment
	adjustments []payment.AdvanceAdjustment
}

// NewInMemoryPaymentRepository creates an empty payment repository.
func NewInMemoryPaymentRepository() *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{payments: make(map[uuid.UUID]payment.Payment)}
}

func copyPayment(p payment.Payment) payment.Payment {
	allocs := make([]payment.Allocation, len(p.Allocations))
	copy(allocs, p.Allocations)
	p.Allocations = allocs
	return p
}

func (r *InMemoryPaymentRepository) FindByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	found := copyPayment(p)
	return &found, nil
}

func (r *InMemoryPaymentRepository) FindByNumber(_ context.Context, number string) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.PaymentNumber == number {
			found := copyPayment(p)
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *InMemoryPaymentRepository) FindAll(_ context.Context, _ shared.Filter) ([]payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]payment.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		result = append(result, copyPayment(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PaymentNumber < result[j].PaymentNumber })
	return result, nil
}

func (r *InMemoryPaymentRepository) FindByParty(ctx context.Context, partyID uuid.UUID, filter shared.Filter) ([]payment.Payment, error) {
	all, _ := r.FindAll(ctx, filter)
	result := make([]payment.Payment, 0)
	for _, p := range all {
		if p.PartyID == partyID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *InMemoryPaymentRepository) FindAdvancesByParty(ctx context.Context, partyID uuid.UUID) ([]payment.Payment, error) {
	byParty, _ := r.FindByParty(ctx, partyID, shared.Filter{})
	result := make([]payment.Payment, 0)
	for _, p := range byParty {
		if p.Status == payment.StatusCompleted && p.AdvanceBalance.IsPositive() {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PaymentDate.Before(result[j].PaymentDate) })
	return result, nil
}

func (r *InMemoryPaymentRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]payment.Payment, error) {
	all, _ := r.FindAll(ctx, shared.Filter{})
	result := make([]payment.Payment, 0)
	for _, p := range all {
		for _, alloc := range p.Allocations {
			if alloc.DocumentID == documentID {
				result = append(result, p)
				break
			}
		}
	}
	return result, nil
}

func (r *InMemoryPaymentRepository) Save(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = copyPayment(*p)
	return nil
}

func (r *InMemoryPaymentRepository) SaveWithLock(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.payments[p.ID]
	if !ok {
		return shared.ErrConcurrencyConflict
	}
	if err := checkVersion(stored.Version, p.Version); err != nil {
		return err
	}
	r.payments[p.ID] = copyPayment(*p)
	return nil
}

func (r *InMemoryPaymentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *InMemoryPaymentRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	_, err := r.FindByNumber(ctx, number)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *InMemoryPaymentRepository) DrawDownAdvance(_ context.Context, id uuid.UUID, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != payment.StatusCompleted || p.AdvanceBalance.LessThan(amount) {
		return shared.ErrConcurrencyConflict
	}
	p.AdvanceBalance = p.AdvanceBalance.Sub(amount)
	r.payments[id] = p
	return nil
}

func (r *InMemoryPaymentRepository) CreateAdjustment(_ context.Context, adjustment *payment.AdvanceAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjustments = append(r.adjustments, *adjustment)
	return nil
}

func (r *InMemoryPaymentRepository) FindAdjustmentsByPayment(_ context.Context, paymentID uuid.UUID) ([]payment.AdvanceAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]payment.AdvanceAdjustment, 0)
	for _, a := range r.adjustments {
		if a.PaymentID == paymentID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AdjustedAt.Before(result[j].AdjustedAt) })
	return result, nil
}

func (r *InMemoryPaymentRepository) SumAdvanceBalanceByParty(_ context.Context, partyID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, p := range r.payments {
		if p.PartyID == partyID && p.Status == payment.StatusCompleted {
			total = total.Add(p.AdvanceBalance)
		}
	}
	return total, nil
}

var _ payment.Repository = (*InMemoryPaymentRepository)(nil)

// InMemoryAccountRepository is a map-backed account store.
type InMemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]account.Account
}

// NewInMemoryAccountRepository creates an empty account repository.
func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{accounts: make(map[uuid.UUID]account.Account)}
}

func (r *InMemoryAccountRepository) FindByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r *InMemoryAccountRepository) FindByCode(_ context.Context, code string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code = strings.ToUpper(code)
	for _, a := range r.accounts {
		if a.Code == code {
			found := a
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *InMemoryAccountRepository) FindAll(_ context.Context, _ shared.Filter) ([]account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]account.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (r *InMemoryAccountRepository) FindActive(ctx context.Context) ([]account.Account, error) {
	all, _ := r.FindAll(ctx, shared.Filter{})
	result := make([]account.Account, 0)
	for _, a := range all {
		if a.Status == account.StatusActive {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *InMemoryAccountRepository) Save(_ context.Context, a *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = *a
	return nil
}

func (r *InMemoryAccountRepository) SaveWithLock(_ context.Context, a *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[a.ID]
	if !ok {
		return shared.ErrConcurrencyConflict
	}
	if err := checkVersion(stored.Version, a.Version); err != nil {
		return err
	}
	r.accounts[a.ID] = *a
	return nil
}

func (r *InMemoryAccountRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByCode(ctx, code)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *InMemoryAccountRepository) AdjustBalance(_ context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return decimal.Zero, shared.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	r.accounts[id] = a
	return a.Balance, nil
}

var _ account.Repository = (*InMemoryAccountRepository)(nil)

// InMemoryFinanceRepository is a map-backed financial transaction store.
type InMemoryFinanceRepository struct {
	mu  sync.Mutex
	txs map[uuid.UUID]finance.FinancialTransaction
}

// NewInMemoryFinanceRepository creates an empty finance repository.
func NewInMemoryFinanceRepository() *InMemoryFinanceRepository {
	return &InMemoryFinanceRepository{txs: make(map[uuid.UUID]finance.FinancialTransaction)}
}

func copyTransaction(t finance.FinancialTransaction) finance.FinancialTransaction {
	ledgers := make([]finance.LedgerEntry, len(t.Ledgers))
	copy(ledgers, t.Ledgers)
	t.Ledgers = ledgers
	return t
}

func (r *InMemoryFinanceRepository) FindByID(_ context.Context, id uuid.UUID) (*finance.FinancialTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	found := copyTransaction(t)
	return &found, nil
}

func (r *InMemoryFinanceRepository) FindByNumber(_ context.Context, number string) (*finance.FinancialTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.txs {
		if t.TransactionNumber == number {
			found := copyTransaction(t)
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *InMemoryFinanceRepository) FindAll(_ context.Context, _ shared.Filter) ([]finance.FinancialTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]finance.FinancialTransaction, 0, len(r.txs))
	for _, t := range r.txs {
		result = append(result, copyTransaction(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TransactionNumber < result[j].TransactionNumber })
	return result, nil
}

func (r *InMemoryFinanceRepository) FindByType(ctx context.Context, txType finance.TransactionType, filter shared.Filter) ([]finance.FinancialTransaction, error) {
	all, _ := r.FindAll(ctx, filter)
	result := make([]finance.FinancialTransaction, 0)
	for _, t := range all {
		if t.TransactionType == txType {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *InMemoryFinanceRepository) Save(_ context.Context, t *finance.FinancialTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[t.ID] = copyTransaction(*t)
	return nil
}

func (r *InMemoryFinanceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *InMemoryFinanceRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	_, err := r.FindByNumber(ctx, number)
	if err != nil {
		return false, nil
	}
	return true, nil
}

var _ finance.Repository = (*InMemoryFinanceRepository)(nil)

// InMemoryGeneralLedgerRepository is a slice-backed append-only GL store.
type InMemoryGeneralLedgerRepository struct {
	mu      sync.Mutex
	entries []finance.GeneralLedgerEntry
}

// NewInMemoryGeneralLedgerRepository creates an empty general ledger.
func NewInMemoryGeneralLedgerRepository() *InMemoryGeneralLedgerRepository {
	return &InMemoryGeneralLedgerRepository{}
}

func (r *InMemoryGeneralLedgerRepository) Create(_ context.Context, entries []finance.GeneralLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *InMemoryGeneralLedgerRepository) FindByVoucher(_ context.Context, voucherNumber string) ([]finance.GeneralLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]finance.GeneralLedgerEntry, 0)
	for _, e := range r.entries {
		if e.VoucherNumber == voucherNumber {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *InMemoryGeneralLedgerRepository) FindByReference(_ context.Context, refType finance.GLReference, refID uuid.UUID) ([]finance.GeneralLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]finance.GeneralLedgerEntry, 0)
	for _, e := range r.entries {
		if e.ReferenceType == refType && e.ReferenceID == refID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *InMemoryGeneralLedgerRepository) FindByAccountHead(_ context.Context, accountHead string, _ shared.Filter) ([]finance.GeneralLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]finance.GeneralLedgerEntry, 0)
	for _, e := range r.entries {
		if e.AccountHead == accountHead {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EntryDate.Before(result[j].EntryDate) })
	return result, nil
}

// All returns every row written so far, for conservation assertions.
func (r *InMemoryGeneralLedgerRepository) All() []finance.GeneralLedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]finance.GeneralLedgerEntry, len(r.entries))
	copy(result, r.entries)
	return result
}

var _ finance.GeneralLedgerRepository = (*InMemoryGeneralLedgerRepository)(nil)

// InMemoryMovementRepository is a slice-backed append-only stock ledger.
// Sums are computed the same way the SQL aggregates do.
type InMemoryMovementRepository struct {
	mu        sync.Mutex
	movements []stock.Movement
}

// NewInMemoryMovementRepository creates an empty movement ledger.
func NewInMemoryMovementRepository() *InMemoryMovementRepository {
	return &InMemoryMovementRepository{}
}

func (r *InMemoryMovementRepository) Create(_ context.Context, movement *stock.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *InMemoryMovementRepository) CreateBatch(ctx context.Context, movements []*stock.Movement) error {
	for _, m := range movements {
		if err := r.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *InMemoryMovementRepository) FindByID(_ context.Context, id uuid.UUID) (*stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movements {
		if m.ID == id {
			found := m
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *InMemoryMovementRepository) FindByItem(_ context.Context, itemType stock.ItemType, itemID uuid.UUID, _ shared.Filter) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]stock.Movement, 0)
	for _, m := range r.movements {
		if m.ItemType == itemType && m.ItemID() == itemID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *InMemoryMovementRepository) FindByReference(_ context.Context, refType stock.ReferenceType, refID string) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]stock.Movement, 0)
	for _, m := range r.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *InMemoryMovementRepository) CountByItem(_ context.Context, itemType stock.ItemType, itemID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.movements {
		if m.ItemType == itemType && m.ItemID() == itemID {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryMovementRepository) CurrentStock(_ context.Context, itemType stock.ItemType, itemID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, m := range r.movements {
		if m.ItemType == itemType && m.ItemID() == itemID {
			total = total.Add(m.Delta())
		}
	}
	return total, nil
}

func (r *InMemoryMovementRepository) CurrentStockForUpdate(ctx context.Context, itemType stock.ItemType, itemID uuid.UUID) (decimal.Decimal, error) {
	return r.CurrentStock(ctx, itemType, itemID)
}

func (r *InMemoryMovementRepository) StockByItem(_ context.Context, itemType stock.ItemType) ([]stock.ItemStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byItem := make(map[uuid.UUID]decimal.Decimal)
	for _, m := range r.movements {
		if m.ItemType == itemType {
			byItem[m.ItemID()] = byItem[m.ItemID()].Add(m.Delta())
		}
	}
	result := make([]stock.ItemStock, 0, len(byItem))
	for id, qty := range byItem {
		result = append(result, stock.ItemStock{ItemType: itemType, ItemID: id, Quantity: qty})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ItemID.String() < result[j].ItemID.String()
	})
	return result, nil
}

func (r *InMemoryMovementRepository) TotalsByMovementType(_ context.Context) ([]stock.MovementTypeTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byType := make(map[stock.MovementType]*stock.MovementTypeTotal)
	order := make([]stock.MovementType, 0)
	for i := range r.movements {
		m := &r.movements[i]
		t, ok := byType[m.MovementType]
		if !ok {
			t = &stock.MovementTypeTotal{MovementType: m.MovementType, TotalIn: decimal.Zero, TotalOut: decimal.Zero}
			byType[m.MovementType] = t
			order = append(order, m.MovementType)
		}
		t.TotalIn = t.TotalIn.Add(m.QuantityIn)
		t.TotalOut = t.TotalOut.Add(m.QuantityOut)
	}
	result := make([]stock.MovementTypeTotal, 0, len(order))
	for _, mt := range order {
		result = append(result, *byType[mt])
	}
	return result, nil
}

var _ stock.MovementRepository = (*InMemoryMovementRepository)(nil)

// InMemoryItemRepository serves item master records from a slice.
type InMemoryItemRepository struct {
	items []stock.Item
}

// NewInMemoryItemRepository creates an item repository over the given items.
func NewInMemoryItemRepository(items ...stock.Item) *InMemoryItemRepository {
	return &InMemoryItemRepository{items: items}
}

func (r *InMemoryItemRepository) FindItem(_ context.Context, itemType stock.ItemType, id uuid.UUID) (*stock.Item, error) {
	for _, item := range r.items {
		if item.ItemType == itemType && item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *InMemoryItemRepository) FindAllItems(_ context.Context, itemType stock.ItemType) ([]stock.Item, error) {
	result := make([]stock.Item, 0)
	for _, item := range r.items {
		if item.ItemType == itemType {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

var _ stock.ItemRepository = (*InMemoryItemRepository)(nil)
