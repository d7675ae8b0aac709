package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/payment"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/infrastructure/cache"
	"github.com/karkhana-erp/backend/tests/testutil"
)

var testDate = time.Date(2026, 8, 26, 11, 0, 0, 0, time.UTC)

type paymentsFixture struct {
	svc       *PaymentService
	payments  *testutil.InMemoryPaymentRepository
	documents *testutil.InMemoryDocumentRepository
	parties   *testutil.InMemoryPartyRepository
	accounts  *testutil.InMemoryAccountRepository
	ledger    *testutil.InMemoryGeneralLedgerRepository
	events    *testutil.CapturingEventPublisher
	customer  *party.Party
	supplier  *party.Party
	bank      *account.Account
	docSeq    int
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()
	ctx := context.Background()

	customer, err := party.NewParty("CUST-001", "Sharma Traders", party.PartyTypeCustomer)
	require.NoError(t, err)
	supplier, err := party.NewParty("SUPP-001", "Mehta Steel", party.PartyTypeSupplier)
	require.NoError(t, err)
	bank, err := account.NewAccount("BANK-001", "HDFC Current", account.TypeBank, decimal.Zero)
	require.NoError(t, err)

	f := &paymentsFixture{
		payments:  testutil.NewInMemoryPaymentRepository(),
		documents: testutil.NewInMemoryDocumentRepository(),
		parties:   testutil.NewInMemoryPartyRepository(),
		accounts:  testutil.NewInMemoryAccountRepository(),
		ledger:    testutil.NewInMemoryGeneralLedgerRepository(),
		events:    testutil.NewCapturingEventPublisher(),
		customer:  customer,
		supplier:  supplier,
		bank:      bank,
	}
	require.NoError(t, f.parties.Save(ctx, customer))
	require.NoError(t, f.parties.Save(ctx, supplier))
	require.NoError(t, f.accounts.Save(ctx, bank))

	idem := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idem.Close() })

	scope := NewNoOpTransactionScope(f.payments, f.documents, f.parties, f.accounts, f.ledger, testutil.NewInMemorySequenceGenerator())
	f.svc = NewPaymentService(scope, idem, shared.DefaultIdempotencyConfig(), nil, f.events, nil, nil)
	return f
}

// confirmedInvoice seeds a confirmed sales invoice and accrues its total
// on the customer, mirroring what document confirmation does.
func (f *paymentsFixture) confirmedInvoice(t *testing.T, total int64) *document.Document {
	t.Helper()
	return f.confirmedDocument(t, document.TypeSalesInvoice, f.customer, total)
}

func (f *paymentsFixture) confirmedDocument(t *testing.T, docType document.Type, pty *party.Party, total int64) *document.Document {
	t.Helper()
	ctx := context.Background()
	f.docSeq++
	number := fmt.Sprintf("%s-20260826-%05d", docType.Prefix(), f.docSeq)
	itemID := uuid.New()

	doc, err := document.NewDocument(number, docType, pty.ID, pty.Name, testDate)
	require.NoError(t, err)
	_, err = doc.AddLine(nil, &itemID, "Bracket", decimal.NewFromInt(1), decimal.NewFromInt(total))
	require.NoError(t, err)
	require.NoError(t, doc.Confirm())
	doc.ClearDomainEvents()
	require.NoError(t, f.documents.Save(ctx, doc))

	_, err = f.parties.AdjustOutstanding(ctx, pty.ID, doc.GrandTotal)
	require.NoError(t, err)
	return doc
}

func (f *paymentsFixture) outstanding(t *testing.T, partyID uuid.UUID) decimal.Decimal {
	t.Helper()
	p, err := f.parties.FindByID(context.Background(), partyID)
	require.NoError(t, err)
	return p.Outstanding
}

func (f *paymentsFixture) bankBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	a, err := f.accounts.FindByID(context.Background(), f.bank.ID)
	require.NoError(t, err)
	return a.Balance
}

func (f *paymentsFixture) receiptRequest(amount int64, allocations ...AllocationRequest) CreatePaymentRequest {
	date := testDate
	return CreatePaymentRequest{
		Type:        payment.TypeReceipt,
		Mode:        payment.ModeBankTransfer,
		PartyID:     f.customer.ID,
		Funding:     FundingAccount,
		AccountID:   &f.bank.ID,
		Amount:      decimal.NewFromInt(amount),
		Allocations: allocations,
		PaymentDate: &date,
	}
}

func TestPaymentService_CreatePayment_SettlesInvoice(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()
	invoice := f.confirmedInvoice(t, 1180)

	resp, err := f.svc.CreatePayment(ctx, f.receiptRequest(500,
		AllocationRequest{DocumentID: invoice.ID, Amount: decimal.NewFromInt(500)}))
	require.NoError(t, err)

	assert.Equal(t, "RCP-20260826-00001", resp.PaymentNumber)
	assert.Equal(t, payment.StatusCompleted, resp.Status)
	assert.Equal(t, payment.ReferenceTypeInvoice, resp.ReferenceType)
	assert.True(t, resp.AllocatedAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, resp.AdvanceBalance.IsZero())
	assert.False(t, resp.IsAdvance)

	doc, err := f.documents.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusPartial, doc.PaymentStatus)
	assert.True(t, doc.BalanceAmount.Equal(decimal.NewFromInt(680)))

	assert.True(t, f.outstanding(t, f.customer.ID).Equal(decimal.NewFromInt(680)))
	assert.True(t, f.bankBalance(t).Equal(decimal.NewFromInt(500)))

	types := f.events.EventTypes()
	assert.Contains(t, types, payment.EventTypePaymentCreated)
	assert.Contains(t, types, party.EventTypePartyOutstandingChanged)
}

func TestPaymentService_CreatePayment_PostsBalancedLedger(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()
	invoice := f.confirmedInvoice(t, 1180)

	resp, err := f.svc.CreatePayment(ctx, f.receiptRequest(500,
		AllocationRequest{DocumentID: invoice.ID, Amount: decimal.NewFromInt(500)}))
	require.NoError(t, err)
	assert.Equal(t, "VCH-20260826-00001", resp.VoucherNumber)

	rows, err := f.ledger.FindByVoucher(ctx, resp.VoucherNumber)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	debit, credit := decimal.Zero, decimal.Zero
	for _, row := range rows {
		debit = debit.Add(row.Debit)
		credit = credit.Add(row.Credit)
		assert.Equal(t, finance.GLReferencePayment, row.ReferenceType)
		assert.Equal(t, resp.PaymentID, row.ReferenceID)
		assert.False(t, row.IsReversal)
	}
	assert.True(t, debit.Equal(credit))
	assert.True(t, debit.Equal(decimal.NewFromInt(500)))

	// Receipts debit the bank and credit the customer's receivable head
	assert.Equal(t, "HDFC Current", rows[0].AccountHead)
	assert.Equal(t, finance.LedgerTypeBank, rows[0].LedgerType)
	assert.True(t, rows[0].Debit.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, f.customer.Name, rows[1].AccountHead)
	assert.Equal(t, finance.LedgerTypeAsset, rows[1].LedgerType)
	assert.True(t, rows[1].Credit.Equal(decimal.NewFromInt(500)))
}

func TestPaymentService_CreatePayment_OvershootBecomesAdvance(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()
	invoice := f.confirmedInvoice(t, 1180)

	resp, err := f.svc.CreatePayment(ctx, f.receiptRequest(2000,
		AllocationRequest{DocumentID: invoice.ID, Amount: decimal.NewFromInt(1180)}))
	require.NoError(t, err)

	assert.True(t, resp.IsAdvance)
	assert.True(t, resp.AdvanceBalance.Equal(decimal.NewFromInt(820)))
	assert.Equal(t, payment.ReferenceTypeInvoice, resp.ReferenceType)

	doc, err := f.documents.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusPaid, doc.PaymentStatus)

	// The full amount was settled against an outstanding of 1180; the
	// overshoot clamps at zero instead of going negative
	assert.True(t, f.outstanding(t, f.customer.ID).IsZero())
	assert.True(t, f.bankBalance(t).Equal(decimal.NewFromInt(2000)))
}

func TestPaymentService_CreatePayment_OnAccountReceipt(t *testing.T) {
	f := newPaymentsFixture(t)

	resp, err := f.svc.CreatePayment(context.Background(), f.receiptRequest(1000))
	require.NoError(t, err)

	assert.Equal(t, payment.ReferenceTypeOnAccount, resp.ReferenceType)
	assert.True(t, resp.IsAdvance)
	assert.True(t, resp.AdvanceBalance.Equal(decimal.NewFromInt(1000)))
	assert.Empty(t, resp.Allocations)
}

func TestPaymentService_CreatePayment_RejectsWrongPartySide(t *testing.T) {
	f := newPaymentsFixture(t)

	req := f.receiptRequest(100)
	req.PartyID = f.supplier.ID
	_, err := f.svc.CreatePayment(context.Background(), req)
	require.Error(t, err)
	assert.True(t, shared.IsValidationError(err))
}

func TestPaymentService_CreatePayment_RejectsOverAllocation(t *testing.T) {
	f := newPaymentsFixture(t)
	invoice := f.confirmedInvoice(t, 1180)

	_, err := f.svc.CreatePayment(context.Background(), f.receiptRequest(100,
		AllocationRequest{DocumentID: invoice.ID, Amount: decimal.NewFromInt(200)}))
	require.Error(t, err)
	assert.True(t, shared.IsValidationError(err))
}

func TestPaymentService_CreatePayment_IdempotencyRejectsReplay(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	req := f.receiptRequest(1000)
	req.IdempotencyKey = "req-42"
	_, err := f.svc.CreatePayment(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.CreatePayment(ctx, req)
	require.Error(t, err)
	assert.True(t, shared.IsDuplicateRequestError(err))

	// Only the first request moved money
	assert.True(t, f.bankBalance(t).Equal(decimal.NewFromInt(1000)))
}

func TestPaymentService_AdjustAdvance_ConsumesCreditAgainstLaterInvoice(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	advance, err := f.svc.CreatePayment(ctx, f.receiptRequest(820))
	require.NoError(t, err)

	invoice := f.confirmedInvoice(t, 500)

	resp, err := f.svc.AdjustAdvance(ctx, AdjustAdvanceRequest{
		PaymentID:  advance.PaymentID,
		DocumentID: invoice.ID,
		Amount:     decimal.NewFromInt(500),
		Remarks:    "applied to invoice",
	})
	require.NoError(t, err)

	assert.True(t, resp.AdvanceBalance.Equal(decimal.NewFromInt(320)))
	assert.True(t, resp.AllocatedAmount.Equal(decimal.NewFromInt(500)))
	require.Len(t, resp.Allocations, 1)
	assert.True(t, resp.Allocations[0].FromAdvance)

	doc, err := f.documents.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusPaid, doc.PaymentStatus)
	assert.True(t, f.outstanding(t, f.customer.ID).IsZero())

	adjustments, err := f.payments.FindAdjustmentsByPayment(ctx, advance.PaymentID)
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.True(t, adjustments[0].Amount.Equal(decimal.NewFromInt(500)))
	assert.Contains(t, f.events.EventTypes(), payment.EventTypeAdvanceAdjusted)
}

func TestPaymentService_AdjustAdvance_RejectsMoreThanRemaining(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	advance, err := f.svc.CreatePayment(ctx, f.receiptRequest(300))
	require.NoError(t, err)
	invoice := f.confirmedInvoice(t, 500)

	_, err = f.svc.AdjustAdvance(ctx, AdjustAdvanceRequest{
		PaymentID:  advance.PaymentID,
		DocumentID: invoice.ID,
		Amount:     decimal.NewFromInt(400),
	})
	require.Error(t, err)
	assert.True(t, shared.IsInsufficientFundsError(err))
}

func TestPaymentService_CreatePayment_AdvanceFunded(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	source, err := f.svc.CreatePayment(ctx, f.receiptRequest(1000))
	require.NoError(t, err)
	invoice := f.confirmedInvoice(t, 600)

	date := testDate
	resp, err := f.svc.CreatePayment(ctx, CreatePaymentRequest{
		Type:            payment.TypeReceipt,
		Mode:            payment.ModeCash,
		PartyID:         f.customer.ID,
		Funding:         FundingAdvance,
		SourceAdvanceID: &source.PaymentID,
		Amount:          decimal.NewFromInt(600),
		Allocations:     []AllocationRequest{{DocumentID: invoice.ID, Amount: decimal.NewFromInt(600)}},
		PaymentDate:     &date,
	})
	require.NoError(t, err)

	// The source advance was drawn down, no account money moved
	reloaded, err := f.payments.FindByID(ctx, source.PaymentID)
	require.NoError(t, err)
	assert.True(t, reloaded.AdvanceBalance.Equal(decimal.NewFromInt(400)))
	assert.True(t, f.bankBalance(t).Equal(decimal.NewFromInt(1000)))

	doc, err := f.documents.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusPaid, doc.PaymentStatus)

	// The draw-down is audited on the source advance
	adjustments, err := f.payments.FindAdjustmentsByPayment(ctx, source.PaymentID)
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.True(t, adjustments[0].Amount.Equal(decimal.NewFromInt(600)))

	// The funding ledger leg hits the advance head, not a bank account
	rows, err := f.ledger.FindByVoucher(ctx, resp.VoucherNumber)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, finance.LedgerTypeLiability, rows[0].LedgerType)
	assert.Equal(t, fmt.Sprintf("ADVANCES - %s", f.customer.Name), rows[0].AccountHead)
}

func TestPaymentService_CreatePayment_AdvanceFundedMustAllocateFully(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	source, err := f.svc.CreatePayment(ctx, f.receiptRequest(1000))
	require.NoError(t, err)
	invoice := f.confirmedInvoice(t, 600)

	_, err = f.svc.CreatePayment(ctx, CreatePaymentRequest{
		Type:            payment.TypeReceipt,
		Mode:            payment.ModeCash,
		PartyID:         f.customer.ID,
		Funding:         FundingAdvance,
		SourceAdvanceID: &source.PaymentID,
		Amount:          decimal.NewFromInt(300),
		Allocations:     []AllocationRequest{{DocumentID: invoice.ID, Amount: decimal.NewFromInt(200)}},
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidationError(err))
}

func TestPaymentService_CreatePayment_AdvanceFundedRejectsInsufficientCredit(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	source, err := f.svc.CreatePayment(ctx, f.receiptRequest(100))
	require.NoError(t, err)
	invoice := f.confirmedInvoice(t, 600)

	_, err = f.svc.CreatePayment(ctx, CreatePaymentRequest{
		Type:            payment.TypeReceipt,
		Mode:            payment.ModeCash,
		PartyID:         f.customer.ID,
		Funding:         FundingAdvance,
		SourceAdvanceID: &source.PaymentID,
		Amount:          decimal.NewFromInt(600),
		Allocations:     []AllocationRequest{{DocumentID: invoice.ID, Amount: decimal.NewFromInt(600)}},
	})
	require.Error(t, err)
	assert.True(t, shared.IsInsufficientFundsError(err))
}

func TestPaymentService_ReversePayment_CompensatesEverything(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()
	invoice := f.confirmedInvoice(t, 1180)

	created, err := f.svc.CreatePayment(ctx, f.receiptRequest(2000,
		AllocationRequest{DocumentID: invoice.ID, Amount: decimal.NewFromInt(1180)}))
	require.NoError(t, err)

	result, err := f.svc.ReversePayment(ctx, created.PaymentID, "bounced cheque")
	require.NoError(t, err)

	assert.Equal(t, 1, result.AllocationsUndone)
	assert.True(t, result.OutstandingRestore.Equal(decimal.NewFromInt(2000)))
	assert.True(t, result.AdvanceForfeited.Equal(decimal.NewFromInt(820)))
	assert.True(t, result.AccountRestored.Equal(decimal.NewFromInt(-2000)))

	// Document reopened, outstanding restored, money backed out
	doc, err := f.documents.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusUnpaid, doc.PaymentStatus)
	assert.True(t, doc.BalanceAmount.Equal(decimal.NewFromInt(1180)))
	assert.True(t, f.outstanding(t, f.customer.ID).Equal(decimal.NewFromInt(2000)))
	assert.True(t, f.bankBalance(t).IsZero())

	reversed, err := f.payments.FindByID(ctx, created.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusReversed, reversed.Status)
	assert.True(t, reversed.AdvanceBalance.IsZero())

	// Compensating rows are marked and posted under a fresh voucher
	rows, err := f.ledger.FindByReference(ctx, finance.GLReferencePaymentReversal, created.PaymentID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.NotEqual(t, created.VoucherNumber, rows[0].VoucherNumber)
	for _, row := range rows {
		assert.True(t, row.IsReversal)
	}
	assert.Contains(t, f.events.EventTypes(), payment.EventTypePaymentReversed)
}

func TestPaymentService_ReversePayment_SecondAttemptFails(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreatePayment(ctx, f.receiptRequest(1000))
	require.NoError(t, err)

	_, err = f.svc.ReversePayment(ctx, created.PaymentID, "duplicate entry")
	require.NoError(t, err)

	_, err = f.svc.ReversePayment(ctx, created.PaymentID, "duplicate entry")
	require.Error(t, err)
	assert.True(t, shared.IsInvalidStateError(err))

	// No double compensation
	assert.True(t, f.bankBalance(t).IsZero())
}

func TestPaymentService_PaymentToSupplierMovesMoneyOut(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()
	bill := f.confirmedDocument(t, document.TypePurchaseBill, f.supplier, 750)

	date := testDate
	resp, err := f.svc.CreatePayment(ctx, CreatePaymentRequest{
		Type:        payment.TypePayment,
		Mode:        payment.ModeBankTransfer,
		PartyID:     f.supplier.ID,
		Funding:     FundingAccount,
		AccountID:   &f.bank.ID,
		Amount:      decimal.NewFromInt(750),
		Allocations: []AllocationRequest{{DocumentID: bill.ID, Amount: decimal.NewFromInt(750)}},
		PaymentDate: &date,
	})
	require.NoError(t, err)

	assert.Equal(t, "PAY-20260826-00001", resp.PaymentNumber)
	assert.Equal(t, payment.ReferenceTypePurchaseBill, resp.ReferenceType)
	assert.True(t, f.bankBalance(t).Equal(decimal.NewFromInt(-750)))
	assert.True(t, f.outstanding(t, f.supplier.ID).IsZero())

	// Payments out credit the bank and debit the supplier's payable head
	rows, err := f.ledger.FindByVoucher(ctx, resp.VoucherNumber)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Credit.Equal(decimal.NewFromInt(750)))
	assert.Equal(t, finance.LedgerTypeLiability, rows[1].LedgerType)
	assert.True(t, rows[1].Debit.Equal(decimal.NewFromInt(750)))
}
