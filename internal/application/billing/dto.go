package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/document"
)

// CreateDocumentLineRequest is one line of a new draft document
type CreateDocumentLineRequest struct {
	RawMaterialID     *uuid.UUID      `json:"raw_material_id"`
	FinishedProductID *uuid.UUID      `json:"finished_product_id"`
	ItemName          string          `json:"item_name" validate:"required,max=200"`
	Quantity          decimal.Decimal `json:"quantity" validate:"required"`
	Rate              decimal.Decimal `json:"rate"`
}

// CreateDocumentRequest creates a draft sales invoice or purchase bill.
// The document number is assigned from the daily sequence.
type CreateDocumentRequest struct {
	Type         document.Type               `json:"type" validate:"required"`
	PartyID      uuid.UUID                   `json:"party_id" validate:"required"`
	DocumentDate *time.Time                  `json:"document_date"`
	Lines        []CreateDocumentLineRequest `json:"lines" validate:"required,min=1,dive"`
	TaxAmount    decimal.Decimal             `json:"tax_amount"`
	Remarks      string                      `json:"remarks" validate:"max=1000"`
}

// DocumentResponse is the document state returned by billing operations
type DocumentResponse struct {
	DocumentID     uuid.UUID              `json:"document_id"`
	DocumentNumber string                 `json:"document_number"`
	Type           document.Type          `json:"type"`
	Status         document.Status        `json:"status"`
	PaymentStatus  document.PaymentStatus `json:"payment_status"`
	PartyID        uuid.UUID              `json:"party_id"`
	PartyName      string                 `json:"party_name"`
	GrandTotal     decimal.Decimal        `json:"grand_total"`
	PaidAmount     decimal.Decimal        `json:"paid_amount"`
	BalanceAmount  decimal.Decimal        `json:"balance_amount"`
	LineCount      int                    `json:"line_count"`
}

// NewDocumentResponse maps a document aggregate to its response
func NewDocumentResponse(d *document.Document) *DocumentResponse {
	return &DocumentResponse{
		DocumentID:     d.ID,
		DocumentNumber: d.DocumentNumber,
		Type:           d.Type,
		Status:         d.Status,
		PaymentStatus:  d.PaymentStatus,
		PartyID:        d.PartyID,
		PartyName:      d.PartyName,
		GrandTotal:     d.GrandTotal,
		PaidAmount:     d.PaidAmount,
		BalanceAmount:  d.BalanceAmount,
		LineCount:      d.LineCount(),
	}
}
