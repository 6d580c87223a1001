package settlement

import (
	"fmt"

	"github.com/arbo/backend/internal/domain/shared"
	"github.com/arbo/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// selectionEntry pairs a draft with the immutable invoice it overrides.
// Entries are stored by value in an id-indexed arena so that deselecting and
// reselecting an invoice never aliases a stale draft.
type selectionEntry struct {
	invoice Invoice
	draft   PaymentDraft
}

// InvoiceSelectionSet holds the working set of invoices the user has chosen
// to pay, one PaymentDraft per invoice, in insertion order for stable
// display. It is a pure in-memory state machine: range-invalid edits are
// clamped, type-invalid edits are rejected with the value left unchanged,
// and nothing here performs I/O.
type InvoiceSelectionSet struct {
	order   []uuid.UUID
	entries map[uuid.UUID]*selectionEntry
}

// NewInvoiceSelectionSet creates an empty selection set
func NewInvoiceSelectionSet() *InvoiceSelectionSet {
	return &InvoiceSelectionSet{
		order:   make([]uuid.UUID, 0),
		entries: make(map[uuid.UUID]*selectionEntry),
	}
}

// Select adds an invoice to the working set, creating its draft with the
// discount snapshot and the full balance pre-filled as the payment amount.
// Selecting an already-selected invoice is a no-op.
func (s *InvoiceSelectionSet) Select(inv Invoice) bool {
	if _, ok := s.entries[inv.ID]; ok {
		return false
	}
	s.entries[inv.ID] = &selectionEntry{
		invoice: inv,
		draft: PaymentDraft{
			InvoiceID:        inv.ID,
			OriginalDiscount: inv.Discount,
			Discount:         inv.Discount,
			Amount:           valueobject.NonNegative(inv.BalanceToReceive),
		},
	}
	s.order = append(s.order, inv.ID)
	return true
}

// Deselect removes the invoice's draft from the working set
func (s *InvoiceSelectionSet) Deselect(invoiceID uuid.UUID) bool {
	if _, ok := s.entries[invoiceID]; !ok {
		return false
	}
	delete(s.entries, invoiceID)
	for i, id := range s.order {
		if id == invoiceID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// SelectAll selects every invoice in the list with per-invoice Select semantics
func (s *InvoiceSelectionSet) SelectAll(invoices []Invoice) int {
	selected := 0
	for _, inv := range invoices {
		if s.Select(inv) {
			selected++
		}
	}
	return selected
}

// ClearAll removes every draft from the working set
func (s *InvoiceSelectionSet) ClearAll() {
	s.order = s.order[:0]
	s.entries = make(map[uuid.UUID]*selectionEntry)
}

// SetDiscount sets the draft discount, clamped to [0, invoice total]. The
// draft amount is then clamped down to the recomputed payable ceiling if it
// now exceeds it.
func (s *InvoiceSelectionSet) SetDiscount(invoiceID uuid.UUID, discount decimal.Decimal) error {
	entry, ok := s.entries[invoiceID]
	if !ok {
		return shared.NewDomainError("INVOICE_NOT_SELECTED", fmt.Sprintf("Invoice %s is not in the selection", invoiceID))
	}

	entry.draft.Discount = valueobject.Clamp(discount, decimal.Zero, entry.invoice.TotalAmount)

	ceiling := AmountCeiling(entry.invoice, entry.draft)
	if entry.draft.Amount.GreaterThan(ceiling) {
		entry.draft.Amount = ceiling
	}
	return nil
}

// SetAmount sets the draft payment amount, clamped to [0, ceiling] where the
// ceiling follows the draft's current discount.
func (s *InvoiceSelectionSet) SetAmount(invoiceID uuid.UUID, amount decimal.Decimal) error {
	entry, ok := s.entries[invoiceID]
	if !ok {
		return shared.NewDomainError("INVOICE_NOT_SELECTED", fmt.Sprintf("Invoice %s is not in the selection", invoiceID))
	}

	ceiling := AmountCeiling(entry.invoice, entry.draft)
	entry.draft.Amount = valueobject.Clamp(amount, decimal.Zero, ceiling)
	return nil
}

// SetDescription stores the per-line description verbatim, no clamping
func (s *InvoiceSelectionSet) SetDescription(invoiceID uuid.UUID, description string) error {
	entry, ok := s.entries[invoiceID]
	if !ok {
		return shared.NewDomainError("INVOICE_NOT_SELECTED", fmt.Sprintf("Invoice %s is not in the selection", invoiceID))
	}
	entry.draft.Description = description
	return nil
}

// Contains reports whether the invoice is currently selected
func (s *InvoiceSelectionSet) Contains(invoiceID uuid.UUID) bool {
	_, ok := s.entries[invoiceID]
	return ok
}

// Count returns the number of selected invoices
func (s *InvoiceSelectionSet) Count() int {
	return len(s.order)
}

// Draft returns a copy of the draft for the given invoice
func (s *InvoiceSelectionSet) Draft(invoiceID uuid.UUID) (PaymentDraft, bool) {
	entry, ok := s.entries[invoiceID]
	if !ok {
		return PaymentDraft{}, false
	}
	return entry.draft, true
}

// Invoice returns a copy of the selected invoice record
func (s *InvoiceSelectionSet) Invoice(invoiceID uuid.UUID) (Invoice, bool) {
	entry, ok := s.entries[invoiceID]
	if !ok {
		return Invoice{}, false
	}
	return entry.invoice, true
}

// Drafts returns copies of all drafts in insertion order
func (s *InvoiceSelectionSet) Drafts() []PaymentDraft {
	drafts := make([]PaymentDraft, 0, len(s.order))
	for _, id := range s.order {
		drafts = append(drafts, s.entries[id].draft)
	}
	return drafts
}

// PaymentsTotal returns the sum of all draft amounts
func (s *InvoiceSelectionSet) PaymentsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, id := range s.order {
		total = total.Add(s.entries[id].draft.Amount)
	}
	return total
}
