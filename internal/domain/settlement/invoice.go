package settlement

import (
	"github.com/arbo/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the read-only view of an outstanding invoice as sourced from
// the external invoice store. The settlement engine never mutates it; all
// in-session edits live on the PaymentDraft layered over it.
type Invoice struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceNumber   string          `json:"invoice_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalPaidAmount decimal.Decimal `json:"total_paid_amount"`
	// Discount is the previously committed discount on the invoice record.
	Discount decimal.Decimal `json:"discount"`
	// BalanceToReceive = TotalAmount - TotalPaidAmount - Discount.
	BalanceToReceive decimal.Decimal `json:"balance_to_receive"`
}

// PaymentDraft is the user-editable, in-session override for one selected
// invoice. It is created on selection and destroyed on deselection.
type PaymentDraft struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	// OriginalDiscount snapshots the invoice discount at selection time and
	// never changes for the life of the draft. Lowering Discount below it
	// frees up exactly that much additional payable balance; raising it
	// shrinks the ceiling by the same delta.
	OriginalDiscount decimal.Decimal `json:"original_discount"`
	Discount         decimal.Decimal `json:"discount"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
}

// AmountCeiling returns the maximum payable amount for the draft given its
// current discount: max(0, balanceToReceive + (originalDiscount - discount)).
func AmountCeiling(inv Invoice, draft PaymentDraft) decimal.Decimal {
	delta := draft.OriginalDiscount.Sub(draft.Discount)
	return valueobject.NonNegative(inv.BalanceToReceive.Add(delta))
}
