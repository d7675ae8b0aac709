package document

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T) *Document {
	t.Helper()

	doc, err := NewDocument("SI-20250825-00001", TypeSalesInvoice, uuid.New(), "Sharma Textiles", time.Now())
	require.NoError(t, err)

	fgID := uuid.New()
	_, err = doc.AddLine(nil, &fgID, "Cotton Shirt 40s", decimal.NewFromInt(100), decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, doc.SetTaxAmount(decimal.NewFromInt(180)))

	return doc
}

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		docType  Type
		expected bool
	}{
		{"SALES_INVOICE is valid", TypeSalesInvoice, true},
		{"PURCHASE_BILL is valid", TypePurchaseBill, true},
		{"INVALID is not valid", Type("INVALID"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.docType.IsValid())
		})
	}
}

func TestType_Prefix(t *testing.T) {
	assert.Equal(t, "SI", TypeSalesInvoice.Prefix())
	assert.Equal(t, "PB", TypePurchaseBill.Prefix())
	assert.Equal(t, "", Type("INVALID").Prefix())
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{"draft to confirmed", StatusDraft, StatusConfirmed, true},
		{"draft to voided", StatusDraft, StatusVoided, false},
		{"confirmed to voided", StatusConfirmed, StatusVoided, true},
		{"confirmed to draft", StatusConfirmed, StatusDraft, false},
		{"voided is terminal", StatusVoided, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewDocument(t *testing.T) {
	partyID := uuid.New()

	t.Run("creates draft sales invoice", func(t *testing.T) {
		doc, err := NewDocument("SI-20250825-00001", TypeSalesInvoice, partyID, "Sharma Textiles", time.Now())

		require.NoError(t, err)
		assert.Equal(t, "SI-20250825-00001", doc.DocumentNumber)
		assert.Equal(t, TypeSalesInvoice, doc.Type)
		assert.Equal(t, partyID, doc.PartyID)
		assert.Equal(t, StatusDraft, doc.Status)
		assert.Equal(t, PaymentStatusUnpaid, doc.PaymentStatus)
		assert.True(t, doc.GrandTotal.IsZero())
		assert.True(t, doc.BalanceAmount.IsZero())
		assert.Len(t, doc.GetDomainEvents(), 1)
	})

	t.Run("fails with empty number", func(t *testing.T) {
		doc, err := NewDocument("", TypeSalesInvoice, partyID, "Sharma Textiles", time.Now())

		assert.Error(t, err)
		assert.Nil(t, doc)
	})

	t.Run("fails with invalid type", func(t *testing.T) {
		doc, err := NewDocument("X-001", Type("INVALID"), partyID, "Sharma Textiles", time.Now())

		assert.Error(t, err)
		assert.Nil(t, doc)
	})

	t.Run("fails with nil party", func(t *testing.T) {
		doc, err := NewDocument("SI-001", TypeSalesInvoice, uuid.Nil, "Sharma Textiles", time.Now())

		assert.Error(t, err)
		assert.Nil(t, doc)
	})

	t.Run("fails with empty party name", func(t *testing.T) {
		doc, err := NewDocument("SI-001", TypeSalesInvoice, partyID, "", time.Now())

		assert.Error(t, err)
		assert.Nil(t, doc)
	})
}

func TestNewLine(t *testing.T) {
	docID := uuid.New()
	rawID := uuid.New()
	fgID := uuid.New()

	t.Run("creates raw material line", func(t *testing.T) {
		line, err := NewLine(docID, &rawID, nil, "Cotton Yarn 40s", decimal.NewFromInt(50), decimal.NewFromFloat(12.5))

		require.NoError(t, err)
		assert.True(t, line.IsRawMaterial())
		assert.Equal(t, rawID, line.ItemID())
		assert.True(t, line.Amount.Equal(decimal.NewFromInt(625)))
	})

	t.Run("fails with both item references", func(t *testing.T) {
		_, err := NewLine(docID, &rawID, &fgID, "Ambiguous", decimal.NewFromInt(1), decimal.NewFromInt(1))
		assert.Error(t, err)
	})

	t.Run("fails with no item reference", func(t *testing.T) {
		_, err := NewLine(docID, nil, nil, "Nothing", decimal.NewFromInt(1), decimal.NewFromInt(1))
		assert.Error(t, err)
	})

	t.Run("fails with zero quantity", func(t *testing.T) {
		_, err := NewLine(docID, &rawID, nil, "Cotton Yarn", decimal.Zero, decimal.NewFromInt(1))
		assert.Error(t, err)
	})

	t.Run("fails with negative rate", func(t *testing.T) {
		_, err := NewLine(docID, &rawID, nil, "Cotton Yarn", decimal.NewFromInt(1), decimal.NewFromInt(-1))
		assert.Error(t, err)
	})
}

func TestDocumentAddLine(t *testing.T) {
	doc, err := NewDocument("SI-20250825-00001", TypeSalesInvoice, uuid.New(), "Sharma Textiles", time.Now())
	require.NoError(t, err)

	fgID := uuid.New()

	t.Run("adds line and recalculates totals", func(t *testing.T) {
		line, err := doc.AddLine(nil, &fgID, "Cotton Shirt 40s", decimal.NewFromInt(100), decimal.NewFromInt(10))

		require.NoError(t, err)
		assert.NotNil(t, line)
		assert.Equal(t, 1, doc.LineCount())
		assert.True(t, doc.Subtotal.Equal(decimal.NewFromInt(1000)))
		assert.True(t, doc.GrandTotal.Equal(decimal.NewFromInt(1000)))
		assert.True(t, doc.BalanceAmount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("tax is added on top of subtotal", func(t *testing.T) {
		require.NoError(t, doc.SetTaxAmount(decimal.NewFromInt(180)))

		assert.True(t, doc.GrandTotal.Equal(decimal.NewFromInt(1180)))
		assert.True(t, doc.BalanceAmount.Equal(decimal.NewFromInt(1180)))
	})

	t.Run("fails on confirmed document", func(t *testing.T) {
		require.NoError(t, doc.Confirm())

		otherID := uuid.New()
		_, err := doc.AddLine(nil, &otherID, "Another Item", decimal.NewFromInt(1), decimal.NewFromInt(1))
		assert.Error(t, err)
	})
}

func TestDocumentLineEditing(t *testing.T) {
	doc, err := NewDocument("SI-20250825-00001", TypeSalesInvoice, uuid.New(), "Sharma Textiles", time.Now())
	require.NoError(t, err)

	fgID := uuid.New()
	line, err := doc.AddLine(nil, &fgID, "Cotton Shirt 40s", decimal.NewFromInt(10), decimal.NewFromInt(5))
	require.NoError(t, err)

	t.Run("updates quantity and recalculates", func(t *testing.T) {
		require.NoError(t, doc.UpdateLineQuantity(line.ID, decimal.NewFromInt(20)))

		assert.True(t, doc.Subtotal.Equal(decimal.NewFromInt(100)))
	})

	t.Run("fails for unknown line", func(t *testing.T) {
		err := doc.UpdateLineQuantity(uuid.New(), decimal.NewFromInt(1))
		assert.Error(t, err)
	})

	t.Run("removes line and recalculates", func(t *testing.T) {
		require.NoError(t, doc.RemoveLine(line.ID))

		assert.Equal(t, 0, doc.LineCount())
		assert.True(t, doc.Subtotal.IsZero())
	})
}

func TestDocumentConfirm(t *testing.T) {
	t.Run("confirms draft with lines", func(t *testing.T) {
		doc := newTestInvoice(t)
		doc.ClearDomainEvents()

		require.NoError(t, doc.Confirm())

		assert.Equal(t, StatusConfirmed, doc.Status)
		assert.NotNil(t, doc.ConfirmedAt)
		assert.True(t, doc.GrandTotal.Equal(decimal.NewFromInt(1180)))
		assert.Equal(t, PaymentStatusUnpaid, doc.PaymentStatus)

		events := doc.GetDomainEvents()
		require.Len(t, events, 1)
		confirmed, ok := events[0].(*DocumentConfirmedEvent)
		require.True(t, ok)
		assert.True(t, confirmed.GrandTotal.Equal(decimal.NewFromInt(1180)))
	})

	t.Run("fails without lines", func(t *testing.T) {
		doc, err := NewDocument("SI-20250825-00002", TypeSalesInvoice, uuid.New(), "Sharma Textiles", time.Now())
		require.NoError(t, err)

		assert.Error(t, doc.Confirm())
	})

	t.Run("fails when already confirmed", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())

		assert.Error(t, doc.Confirm())
	})
}

func TestDocumentApplyPayment(t *testing.T) {
	t.Run("partial payment", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())

		require.NoError(t, doc.ApplyPayment(decimal.NewFromInt(500)))

		assert.True(t, doc.PaidAmount.Equal(decimal.NewFromInt(500)))
		assert.True(t, doc.BalanceAmount.Equal(decimal.NewFromInt(680)))
		assert.Equal(t, PaymentStatusPartial, doc.PaymentStatus)
	})

	t.Run("full payment", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())

		require.NoError(t, doc.ApplyPayment(decimal.NewFromInt(1180)))

		assert.True(t, doc.BalanceAmount.IsZero())
		assert.Equal(t, PaymentStatusPaid, doc.PaymentStatus)
		assert.True(t, doc.IsFullyPaid())
		assert.False(t, doc.HasOpenBalance())
	})

	t.Run("fails beyond open balance", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())
		require.NoError(t, doc.ApplyPayment(decimal.NewFromInt(1000)))

		err := doc.ApplyPayment(decimal.NewFromInt(200))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds document balance")
	})

	t.Run("fails on draft document", func(t *testing.T) {
		doc := newTestInvoice(t)

		assert.Error(t, doc.ApplyPayment(decimal.NewFromInt(100)))
	})

	t.Run("fails with non-positive amount", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())

		assert.Error(t, doc.ApplyPayment(decimal.Zero))
		assert.Error(t, doc.ApplyPayment(decimal.NewFromInt(-10)))
	})
}

func TestDocumentRemovePayment(t *testing.T) {
	doc := newTestInvoice(t)
	require.NoError(t, doc.Confirm())
	require.NoError(t, doc.ApplyPayment(decimal.NewFromInt(500)))

	t.Run("restores balance and status", func(t *testing.T) {
		require.NoError(t, doc.RemovePayment(decimal.NewFromInt(500)))

		assert.True(t, doc.PaidAmount.IsZero())
		assert.True(t, doc.BalanceAmount.Equal(decimal.NewFromInt(1180)))
		assert.Equal(t, PaymentStatusUnpaid, doc.PaymentStatus)
	})

	t.Run("fails when removing more than paid", func(t *testing.T) {
		err := doc.RemovePayment(decimal.NewFromInt(1))
		assert.Error(t, err)
	})
}

func TestDocumentVoid(t *testing.T) {
	t.Run("voids unpaid confirmed document", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())
		doc.ClearDomainEvents()

		require.NoError(t, doc.Void("entered against the wrong party"))

		assert.Equal(t, StatusVoided, doc.Status)
		assert.NotNil(t, doc.VoidedAt)
		assert.Equal(t, "entered against the wrong party", doc.VoidReason)

		events := doc.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*DocumentVoidedEvent)
		assert.True(t, ok)
	})

	t.Run("voids partially paid document", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())
		require.NoError(t, doc.ApplyPayment(decimal.NewFromInt(100)))

		require.NoError(t, doc.Void("short shipped, rebilling"))
		assert.Equal(t, StatusVoided, doc.Status)
	})

	t.Run("fails when fully paid", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())
		require.NoError(t, doc.ApplyPayment(doc.GrandTotal))

		err := doc.Void("mistake")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "reverse the payments first")
	})

	t.Run("fails on draft", func(t *testing.T) {
		doc := newTestInvoice(t)

		assert.Error(t, doc.Void("mistake"))
	})

	t.Run("fails without reason", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())

		assert.Error(t, doc.Void(""))
	})
}

func TestDocumentCanDelete(t *testing.T) {
	t.Run("draft can be deleted", func(t *testing.T) {
		doc := newTestInvoice(t)
		assert.True(t, doc.CanDelete())
	})

	t.Run("confirmed cannot be deleted", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())
		assert.False(t, doc.CanDelete())
	})

	t.Run("voided can be deleted", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())
		require.NoError(t, doc.Void("duplicate entry"))
		assert.True(t, doc.CanDelete())
	})

	t.Run("paid document can never be deleted", func(t *testing.T) {
		doc := newTestInvoice(t)
		require.NoError(t, doc.Confirm())
		require.NoError(t, doc.ApplyPayment(decimal.NewFromInt(1180)))
		assert.False(t, doc.CanDelete())
	})
}
