package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
	"github.com/karkhana-erp/backend/tests/testutil"
)

type billingFixture struct {
	svc       *DocumentService
	documents *testutil.InMemoryDocumentRepository
	parties   *testutil.InMemoryPartyRepository
	movements *testutil.InMemoryMovementRepository
	events    *testutil.CapturingEventPublisher
	customer  *party.Party
	supplier  *party.Party
	product   stock.Item
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()

	customer, err := party.NewParty("CUST-001", "Sharma Traders", party.PartyTypeCustomer)
	require.NoError(t, err)
	supplier, err := party.NewParty("SUPP-001", "Mehta Steel", party.PartyTypeSupplier)
	require.NoError(t, err)

	product := stock.Item{ID: uuid.New(), ItemType: stock.ItemTypeFinishedProduct, Code: "FG-001", Name: "Bracket", Unit: "pcs"}

	f := &billingFixture{
		documents: testutil.NewInMemoryDocumentRepository(),
		parties:   testutil.NewInMemoryPartyRepository(),
		movements: testutil.NewInMemoryMovementRepository(),
		events:    testutil.NewCapturingEventPublisher(),
		customer:  customer,
		supplier:  supplier,
		product:   product,
	}
	ctx := context.Background()
	require.NoError(t, f.parties.Save(ctx, customer))
	require.NoError(t, f.parties.Save(ctx, supplier))

	items := testutil.NewInMemoryItemRepository(product)
	scope := NewNoOpTransactionScope(f.documents, f.parties, f.movements, items, testutil.NewInMemorySequenceGenerator())
	f.svc = NewDocumentService(scope, nil, f.events, nil, nil)
	return f
}

func (f *billingFixture) seedStock(t *testing.T, qty int64) {
	t.Helper()
	m, err := stock.NewMovement(stock.ItemTypeFinishedProduct, f.product.Ref(), stock.MovementTypeFGIn,
		decimal.NewFromInt(qty), decimal.Zero, stock.ReferenceTypeProductionBatch, "BATCH-1", "")
	require.NoError(t, err)
	require.NoError(t, f.movements.Create(context.Background(), m))
}

func (f *billingFixture) createInvoice(t *testing.T, qty, rate int64) *DocumentResponse {
	t.Helper()
	docDate := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	resp, err := f.svc.CreateDocument(context.Background(), CreateDocumentRequest{
		Type:         document.TypeSalesInvoice,
		PartyID:      f.customer.ID,
		DocumentDate: &docDate,
		Lines: []CreateDocumentLineRequest{
			{FinishedProductID: &f.product.ID, ItemName: f.product.Name, Quantity: decimal.NewFromInt(qty), Rate: decimal.NewFromInt(rate)},
		},
	})
	require.NoError(t, err)
	return resp
}

func (f *billingFixture) outstanding(t *testing.T, partyID uuid.UUID) decimal.Decimal {
	t.Helper()
	p, err := f.parties.FindByID(context.Background(), partyID)
	require.NoError(t, err)
	return p.Outstanding
}

func TestDocumentService_CreateDocument_NumbersFromDailySequence(t *testing.T) {
	f := newBillingFixture(t)

	first := f.createInvoice(t, 5, 100)
	assert.Equal(t, "SI-20260826-00001", first.DocumentNumber)
	assert.Equal(t, document.StatusDraft, first.Status)
	assert.True(t, first.GrandTotal.Equal(decimal.NewFromInt(500)))
	assert.True(t, first.BalanceAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, document.PaymentStatusUnpaid, first.PaymentStatus)

	second := f.createInvoice(t, 2, 50)
	assert.Equal(t, "SI-20260826-00002", second.DocumentNumber)

	assert.Contains(t, f.events.EventTypes(), document.EventTypeDocumentCreated)
}

func TestDocumentService_CreateDocument_TaxRaisesGrandTotal(t *testing.T) {
	f := newBillingFixture(t)
	docDate := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	resp, err := f.svc.CreateDocument(context.Background(), CreateDocumentRequest{
		Type:         document.TypeSalesInvoice,
		PartyID:      f.customer.ID,
		DocumentDate: &docDate,
		Lines: []CreateDocumentLineRequest{
			{FinishedProductID: &f.product.ID, ItemName: "Bracket", Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(100)},
		},
		TaxAmount: decimal.NewFromInt(180),
	})
	require.NoError(t, err)
	assert.True(t, resp.GrandTotal.Equal(decimal.NewFromInt(1180)))
}

func TestDocumentService_CreateDocument_RejectsPartyTypeMismatch(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateDocument(ctx, CreateDocumentRequest{
		Type:    document.TypeSalesInvoice,
		PartyID: f.supplier.ID,
		Lines: []CreateDocumentLineRequest{
			{FinishedProductID: &f.product.ID, ItemName: "Bracket", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(10)},
		},
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidationError(err))

	_, err = f.svc.CreateDocument(ctx, CreateDocumentRequest{
		Type:    document.TypePurchaseBill,
		PartyID: f.customer.ID,
		Lines: []CreateDocumentLineRequest{
			{FinishedProductID: &f.product.ID, ItemName: "Bracket", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(10)},
		},
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidationError(err))
}

func TestDocumentService_ConfirmDocument_MovesStockAndAccruesOutstanding(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.seedStock(t, 20)

	draft := f.createInvoice(t, 5, 100)

	confirmed, err := f.svc.ConfirmDocument(ctx, draft.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusConfirmed, confirmed.Status)
	assert.True(t, confirmed.BalanceAmount.Equal(decimal.NewFromInt(500)))

	// One outbound ledger row per line, referenced by the document ID
	rows, err := f.movements.FindByReference(ctx, stock.ReferenceTypeSalesInvoice, draft.DocumentID.String())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stock.MovementTypeFGOut, rows[0].MovementType)
	assert.True(t, rows[0].QuantityOut.Equal(decimal.NewFromInt(5)))

	current, err := f.movements.CurrentStock(ctx, stock.ItemTypeFinishedProduct, f.product.ID)
	require.NoError(t, err)
	assert.True(t, current.Equal(decimal.NewFromInt(15)))

	assert.True(t, f.outstanding(t, f.customer.ID).Equal(decimal.NewFromInt(500)))

	types := f.events.EventTypes()
	assert.Contains(t, types, document.EventTypeDocumentConfirmed)
	assert.Contains(t, types, party.EventTypePartyOutstandingChanged)
}

func TestDocumentService_ConfirmDocument_RejectsInsufficientStock(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.seedStock(t, 3)

	draft := f.createInvoice(t, 5, 100)

	_, err := f.svc.ConfirmDocument(ctx, draft.DocumentID)
	require.Error(t, err)
	assert.True(t, shared.IsInsufficientStockError(err))

	// Nothing was written: the document stays draft, stock and
	// outstanding are untouched
	reloaded, err := f.svc.GetDocument(ctx, draft.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusDraft, reloaded.Status)

	rows, err := f.movements.FindByReference(ctx, stock.ReferenceTypeSalesInvoice, draft.DocumentID.String())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.True(t, f.outstanding(t, f.customer.ID).IsZero())
}

func TestDocumentService_ConfirmDocument_PurchaseBillReceivesStock(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	docDate := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	draft, err := f.svc.CreateDocument(ctx, CreateDocumentRequest{
		Type:         document.TypePurchaseBill,
		PartyID:      f.supplier.ID,
		DocumentDate: &docDate,
		Lines: []CreateDocumentLineRequest{
			{FinishedProductID: &f.product.ID, ItemName: "Bracket", Quantity: decimal.NewFromInt(30), Rate: decimal.NewFromInt(40)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "PB-20260826-00001", draft.DocumentNumber)

	// No availability guard on inbound documents: confirm with zero stock
	confirmed, err := f.svc.ConfirmDocument(ctx, draft.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusConfirmed, confirmed.Status)

	current, err := f.movements.CurrentStock(ctx, stock.ItemTypeFinishedProduct, f.product.ID)
	require.NoError(t, err)
	assert.True(t, current.Equal(decimal.NewFromInt(30)))

	assert.True(t, f.outstanding(t, f.supplier.ID).Equal(decimal.NewFromInt(1200)))
}

func TestDocumentService_ConfirmDocument_RejectsDoubleConfirm(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.seedStock(t, 20)

	draft := f.createInvoice(t, 5, 100)
	_, err := f.svc.ConfirmDocument(ctx, draft.DocumentID)
	require.NoError(t, err)

	_, err = f.svc.ConfirmDocument(ctx, draft.DocumentID)
	require.Error(t, err)
	assert.True(t, shared.IsInvalidStateError(err))
}

func TestDocumentService_VoidDocument_ReversesStockAndReleasesOutstanding(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.seedStock(t, 20)

	draft := f.createInvoice(t, 5, 100)
	_, err := f.svc.ConfirmDocument(ctx, draft.DocumentID)
	require.NoError(t, err)

	voided, err := f.svc.VoidDocument(ctx, draft.DocumentID, "wrong party")
	require.NoError(t, err)
	assert.Equal(t, document.StatusVoided, voided.Status)
	assert.Equal(t, 1, voided.LineCount, "lines are kept as a tombstone")

	// The dispatch is mirrored by a compensating inbound row
	rows, err := f.movements.FindByReference(ctx, stock.ReferenceTypeSalesInvoice, draft.DocumentID.String())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	current, err := f.movements.CurrentStock(ctx, stock.ItemTypeFinishedProduct, f.product.ID)
	require.NoError(t, err)
	assert.True(t, current.Equal(decimal.NewFromInt(20)))

	assert.True(t, f.outstanding(t, f.customer.ID).IsZero())
	assert.Contains(t, f.events.EventTypes(), document.EventTypeDocumentVoided)
}

func TestDocumentService_VoidDocument_RejectsPaidDocument(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.seedStock(t, 20)

	draft := f.createInvoice(t, 5, 100)
	_, err := f.svc.ConfirmDocument(ctx, draft.DocumentID)
	require.NoError(t, err)

	_, err = ApplyPaymentToDocument(ctx, f.documents, draft.DocumentID, decimal.NewFromInt(500))
	require.NoError(t, err)

	_, err = f.svc.VoidDocument(ctx, draft.DocumentID, "mistake")
	require.Error(t, err)
	assert.True(t, shared.IsInvalidStateError(err))
}

func TestDocumentService_VoidDocument_PartiallyPaidReleasesOpenBalanceOnly(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.seedStock(t, 20)

	draft := f.createInvoice(t, 5, 100)
	_, err := f.svc.ConfirmDocument(ctx, draft.DocumentID)
	require.NoError(t, err)

	// 200 of 500 settled; assume the settlement also dropped outstanding
	_, err = ApplyPaymentToDocument(ctx, f.documents, draft.DocumentID, decimal.NewFromInt(200))
	require.NoError(t, err)
	_, err = f.parties.AdjustOutstanding(ctx, f.customer.ID, decimal.NewFromInt(-200))
	require.NoError(t, err)

	_, err = f.svc.VoidDocument(ctx, draft.DocumentID, "short shipped")
	require.NoError(t, err)

	// Only the 300 still open is released
	assert.True(t, f.outstanding(t, f.customer.ID).IsZero())
}

func TestApplyPaymentToDocument_DerivesBalanceAndStatus(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.seedStock(t, 20)

	draft := f.createInvoice(t, 5, 100)
	_, err := f.svc.ConfirmDocument(ctx, draft.DocumentID)
	require.NoError(t, err)

	partial, err := ApplyPaymentToDocument(ctx, f.documents, draft.DocumentID, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusPartial, partial.PaymentStatus)
	assert.True(t, partial.BalanceAmount.Equal(decimal.NewFromInt(300)))

	// Over-allocation against the remaining balance is refused
	_, err = ApplyPaymentToDocument(ctx, f.documents, draft.DocumentID, decimal.NewFromInt(400))
	require.Error(t, err)
	assert.True(t, shared.IsValidationError(err))

	paid, err := ApplyPaymentToDocument(ctx, f.documents, draft.DocumentID, decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusPaid, paid.PaymentStatus)
	assert.True(t, paid.BalanceAmount.IsZero())

	reopened, err := RemovePaymentFromDocument(ctx, f.documents, draft.DocumentID, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, document.PaymentStatusUnpaid, reopened.PaymentStatus)
	assert.True(t, reopened.BalanceAmount.Equal(decimal.NewFromInt(500)))
}
