package integration

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karkhana-erp/backend/internal/application/billing"
	paymentsapp "github.com/karkhana-erp/backend/internal/application/payments"
	stockapp "github.com/karkhana-erp/backend/internal/application/stock"
	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/payment"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
	"github.com/karkhana-erp/backend/internal/infrastructure/cache"
	"github.com/karkhana-erp/backend/internal/infrastructure/persistence"
)

// ledgerEnv wires the document, payment and stock services over one
// shared database, the same way the binaries wire them over the real
// one.
type ledgerEnv struct {
	tdb       *TestDB
	documents *billing.DocumentService
	payments  *paymentsapp.PaymentService
	stock     *stockapp.LedgerService
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	pdb := tdb.Persistence()

	return &ledgerEnv{
		tdb: tdb,
		documents: billing.NewDocumentService(
			persistence.NewBillingTransactionScope(pdb), nil, nil, nil, nil),
		payments: paymentsapp.NewPaymentService(
			persistence.NewPaymentTransactionScope(pdb),
			cache.NewInMemoryIdempotencyStore(), shared.DefaultIdempotencyConfig(),
			nil, nil, nil, nil),
		stock: stockapp.NewLedgerService(
			persistence.NewStockTransactionScope(pdb), nil, nil, nil, nil),
	}
}

// seedFinishedStock books an opening balance for a finished product
// through the ledger service so later dispatches have cover.
func (e *ledgerEnv) seedFinishedStock(t *testing.T, fp *stock.FinishedProduct, qty int64) {
	t.Helper()

	_, err := e.stock.RecordMovement(context.Background(), stockapp.RecordMovementRequest{
		ItemType:          stock.ItemTypeFinishedProduct,
		FinishedProductID: &fp.ID,
		MovementType:      stock.MovementTypeFGIn,
		QuantityIn:        decimal.NewFromInt(qty),
		ReferenceType:     stock.ReferenceTypeAdjustment,
		ReferenceID:       "OPENING",
	})
	require.NoError(t, err)
}

func (e *ledgerEnv) confirmedInvoice(t *testing.T, p *party.Party, fp *stock.FinishedProduct, qty, rate int64) *billing.DocumentResponse {
	t.Helper()
	ctx := context.Background()

	draft, err := e.documents.CreateDocument(ctx, billing.CreateDocumentRequest{
		Type:    document.TypeSalesInvoice,
		PartyID: p.ID,
		Lines: []billing.CreateDocumentLineRequest{{
			FinishedProductID: &fp.ID,
			ItemName:          fp.Name,
			Quantity:          decimal.NewFromInt(qty),
			Rate:              decimal.NewFromInt(rate),
		}},
	})
	require.NoError(t, err)

	confirmed, err := e.documents.ConfirmDocument(ctx, draft.DocumentID)
	require.NoError(t, err)
	return confirmed
}

// glTotals sums both sides of the general ledger; they must always
// agree because every poster writes balanced vouchers.
func (e *ledgerEnv) glTotals(t *testing.T) (debit, credit decimal.Decimal) {
	t.Helper()

	var row struct {
		Debit  string
		Credit string
	}
	err := e.tdb.DB.Raw(`
		SELECT COALESCE(SUM(debit), 0)::text AS debit,
		       COALESCE(SUM(credit), 0)::text AS credit
		FROM general_ledgers
	`).Scan(&row).Error
	require.NoError(t, err)
	return decimal.RequireFromString(row.Debit), decimal.RequireFromString(row.Credit)
}

func TestSalesInvoiceLifecycle(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()

	cust := env.tdb.SeedParty("CUST-001", "Sharma Traders", party.PartyTypeCustomer)
	fp := env.tdb.SeedFinishedProduct("FG-001", "Steel Bracket", "pcs", decimal.NewFromInt(5))
	env.seedFinishedStock(t, fp, 50)

	draft, err := env.documents.CreateDocument(ctx, billing.CreateDocumentRequest{
		Type:    document.TypeSalesInvoice,
		PartyID: cust.ID,
		Lines: []billing.CreateDocumentLineRequest{{
			FinishedProductID: &fp.ID,
			ItemName:          fp.Name,
			Quantity:          decimal.NewFromInt(10),
			Rate:              decimal.NewFromInt(150),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, document.StatusDraft, draft.Status)
	assert.True(t, draft.GrandTotal.Equal(decimal.NewFromInt(1500)))

	// Drafts have no ledger effect
	assert.True(t, env.tdb.PartyOutstanding(cust.ID).IsZero())

	confirmed, err := env.documents.ConfirmDocument(ctx, draft.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusConfirmed, confirmed.Status)

	assert.True(t, env.tdb.PartyOutstanding(cust.ID).Equal(decimal.NewFromInt(1500)))
	onHand, err := env.stock.CurrentStock(ctx, stock.ItemTypeFinishedProduct, fp.ID)
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.NewFromInt(40)), "dispatch must reduce stock, got %s", onHand)

	voided, err := env.documents.VoidDocument(ctx, draft.DocumentID, "billed to wrong party")
	require.NoError(t, err)
	assert.Equal(t, document.StatusVoided, voided.Status)

	assert.True(t, env.tdb.PartyOutstanding(cust.ID).IsZero())
	onHand, err = env.stock.CurrentStock(ctx, stock.ItemTypeFinishedProduct, fp.ID)
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.NewFromInt(50)), "void must restore stock, got %s", onHand)
}

func TestConfirmRejectsUncoveredDispatch(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()

	cust := env.tdb.SeedParty("CUST-001", "Sharma Traders", party.PartyTypeCustomer)
	fp := env.tdb.SeedFinishedProduct("FG-001", "Steel Bracket", "pcs", decimal.Zero)
	env.seedFinishedStock(t, fp, 3)

	draft, err := env.documents.CreateDocument(ctx, billing.CreateDocumentRequest{
		Type:    document.TypeSalesInvoice,
		PartyID: cust.ID,
		Lines: []billing.CreateDocumentLineRequest{{
			FinishedProductID: &fp.ID,
			ItemName:          fp.Name,
			Quantity:          decimal.NewFromInt(10),
			Rate:              decimal.NewFromInt(100),
		}},
	})
	require.NoError(t, err)

	_, err = env.documents.ConfirmDocument(ctx, draft.DocumentID)
	require.Error(t, err)

	// Nothing may leak out of the rolled-back transaction
	assert.True(t, env.tdb.PartyOutstanding(cust.ID).IsZero())
	onHand, err := env.stock.CurrentStock(ctx, stock.ItemTypeFinishedProduct, fp.ID)
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.NewFromInt(3)))
}

func TestReceiptSettlesInvoiceAndRetainsAdvance(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()

	cust := env.tdb.SeedParty("CUST-001", "Sharma Traders", party.PartyTypeCustomer)
	cash := env.tdb.SeedAccount("CASH", "Cash Drawer", account.TypeCash, decimal.NewFromInt(5000))
	fp := env.tdb.SeedFinishedProduct("FG-001", "Steel Bracket", "pcs", decimal.Zero)
	env.seedFinishedStock(t, fp, 50)

	inv := env.confirmedInvoice(t, cust, fp, 10, 150) // 1500

	rcp, err := env.payments.CreatePayment(ctx, paymentsapp.CreatePaymentRequest{
		Type:      payment.TypeReceipt,
		Mode:      payment.ModeCash,
		PartyID:   cust.ID,
		Funding:   paymentsapp.FundingAccount,
		AccountID: &cash.ID,
		Amount:    decimal.NewFromInt(1000),
		Allocations: []paymentsapp.AllocationRequest{
			{DocumentID: inv.DocumentID, Amount: decimal.NewFromInt(600)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, payment.StatusCompleted, rcp.Status)
	assert.True(t, rcp.AllocatedAmount.Equal(decimal.NewFromInt(600)))
	assert.True(t, rcp.AdvanceBalance.Equal(decimal.NewFromInt(400)))
	assert.True(t, rcp.IsAdvance)
	assert.NotEmpty(t, rcp.VoucherNumber)

	// Outstanding drops by the full receipt, the account gains it
	assert.True(t, env.tdb.PartyOutstanding(cust.ID).Equal(decimal.NewFromInt(500)))
	assert.True(t, env.tdb.AccountBalance(cash.ID).Equal(decimal.NewFromInt(6000)))

	doc, err := env.documents.GetDocument(ctx, inv.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusPartial, doc.PaymentStatus)
	assert.True(t, doc.PaidAmount.Equal(decimal.NewFromInt(600)))
	assert.True(t, doc.BalanceAmount.Equal(decimal.NewFromInt(900)))

	// Consume the retained advance against the same invoice
	adjusted, err := env.payments.AdjustAdvance(ctx, paymentsapp.AdjustAdvanceRequest{
		PaymentID:  rcp.PaymentID,
		DocumentID: inv.DocumentID,
		Amount:     decimal.NewFromInt(400),
		Remarks:    "applied leftover advance",
	})
	require.NoError(t, err)
	assert.True(t, adjusted.AdvanceBalance.IsZero())

	assert.True(t, env.tdb.PartyOutstanding(cust.ID).Equal(decimal.NewFromInt(100)))

	doc, err = env.documents.GetDocument(ctx, inv.DocumentID)
	require.NoError(t, err)
	assert.True(t, doc.PaidAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, doc.BalanceAmount.Equal(decimal.NewFromInt(500)))

	debit, credit := env.glTotals(t)
	assert.True(t, debit.Equal(credit), "general ledger out of balance: debit=%s credit=%s", debit, credit)
	assert.True(t, debit.IsPositive())
}

func TestReversePaymentRestoresLedger(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()

	cust := env.tdb.SeedParty("CUST-001", "Sharma Traders", party.PartyTypeCustomer)
	cash := env.tdb.SeedAccount("CASH", "Cash Drawer", account.TypeCash, decimal.NewFromInt(5000))
	fp := env.tdb.SeedFinishedProduct("FG-001", "Steel Bracket", "pcs", decimal.Zero)
	env.seedFinishedStock(t, fp, 50)

	inv := env.confirmedInvoice(t, cust, fp, 10, 150) // 1500

	rcp, err := env.payments.CreatePayment(ctx, paymentsapp.CreatePaymentRequest{
		Type:      payment.TypeReceipt,
		Mode:      payment.ModeCash,
		PartyID:   cust.ID,
		Funding:   paymentsapp.FundingAccount,
		AccountID: &cash.ID,
		Amount:    decimal.NewFromInt(1000),
		Allocations: []paymentsapp.AllocationRequest{
			{DocumentID: inv.DocumentID, Amount: decimal.NewFromInt(600)},
		},
	})
	require.NoError(t, err)

	rev, err := env.payments.ReversePayment(ctx, rcp.PaymentID, "bounced cheque")
	require.NoError(t, err)
	assert.Equal(t, 1, rev.AllocationsUndone)
	assert.True(t, rev.OutstandingRestore.Equal(decimal.NewFromInt(1000)))
	assert.True(t, rev.AdvanceForfeited.Equal(decimal.NewFromInt(400)))
	assert.True(t, rev.AccountRestored.Equal(decimal.NewFromInt(-1000)))
	assert.NotEmpty(t, rev.VoucherNumber)

	assert.True(t, env.tdb.PartyOutstanding(cust.ID).Equal(decimal.NewFromInt(1500)))
	assert.True(t, env.tdb.AccountBalance(cash.ID).Equal(decimal.NewFromInt(5000)))

	doc, err := env.documents.GetDocument(ctx, inv.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusUnpaid, doc.PaymentStatus)
	assert.True(t, doc.PaidAmount.IsZero())
	assert.True(t, doc.BalanceAmount.Equal(decimal.NewFromInt(1500)))

	got, err := env.payments.GetPayment(ctx, rcp.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusReversed, got.Status)
	assert.True(t, got.AdvanceBalance.IsZero())

	// A second reversal must fail instead of double-compensating
	_, err = env.payments.ReversePayment(ctx, rcp.PaymentID, "again")
	require.Error(t, err)

	var reversalRows int64
	require.NoError(t, env.tdb.DB.Raw(
		"SELECT COUNT(*) FROM general_ledgers WHERE is_reversal").Scan(&reversalRows).Error)
	assert.Positive(t, reversalRows)

	debit, credit := env.glTotals(t)
	assert.True(t, debit.Equal(credit), "general ledger out of balance: debit=%s credit=%s", debit, credit)
}
