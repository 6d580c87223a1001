package settlement

import (
	"fmt"
	"time"

	"github.com/arbo/backend/internal/domain/shared"
	"github.com/arbo/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditNote is the read-only view of an eligible standalone credit note.
// Only independent notes with a remaining balance are eligible as funding
// sources; notes tied to a specific invoice are filtered out server-side.
type CreditNote struct {
	ID               uuid.UUID       `json:"id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	Description      string          `json:"description"`
	Date             time.Time       `json:"date"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// CreditNoteDeduction tracks how much of one attached note's remaining
// balance is applied to the current settlement. Amount may be blank
// (AmountEntered false) while the user is still typing.
type CreditNoteDeduction struct {
	CreditNoteID     uuid.UUID       `json:"credit_note_id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Amount           decimal.Decimal `json:"amount"`
	AmountEntered    bool            `json:"amount_entered"`
}

// EffectiveAmount returns the amount this deduction contributes to the
// settlement; a blank amount contributes nothing.
func (d CreditNoteDeduction) EffectiveAmount() decimal.Decimal {
	if !d.AmountEntered {
		return decimal.Zero
	}
	return d.Amount
}

// DeductionList tracks the credit-note deductions attached to a settlement,
// in attach order. Like the invoice selection it is a pure in-memory state
// machine keyed by credit-note id.
type DeductionList struct {
	order   []uuid.UUID
	entries map[uuid.UUID]*CreditNoteDeduction
}

// NewDeductionList creates an empty deduction list
func NewDeductionList() *DeductionList {
	return &DeductionList{
		order:   make([]uuid.UUID, 0),
		entries: make(map[uuid.UUID]*CreditNoteDeduction),
	}
}

// Attach adds a credit note with a suggested initial amount:
// min(remainingBalance, max(0, paymentsTotal - deductions so far)). Notes
// attached in sequence therefore share the invoice headroom instead of each
// greedily claiming the full total. A zero suggestion leaves the amount
// blank. Attaching an already-attached note is a no-op.
func (l *DeductionList) Attach(note CreditNote, paymentsTotal decimal.Decimal) bool {
	if _, ok := l.entries[note.ID]; ok {
		return false
	}

	headroom := valueobject.NonNegative(paymentsTotal.Sub(l.Total()))
	suggested := valueobject.Min(note.RemainingBalance, headroom)

	deduction := &CreditNoteDeduction{
		CreditNoteID:     note.ID,
		CreditNoteNumber: note.CreditNoteNumber,
		RemainingBalance: note.RemainingBalance,
	}
	if suggested.IsPositive() {
		deduction.Amount = suggested
		deduction.AmountEntered = true
	}

	l.entries[note.ID] = deduction
	l.order = append(l.order, note.ID)
	return true
}

// Detach removes the deduction for the given credit note
func (l *DeductionList) Detach(creditNoteID uuid.UUID) bool {
	if _, ok := l.entries[creditNoteID]; !ok {
		return false
	}
	delete(l.entries, creditNoteID)
	for i, id := range l.order {
		if id == creditNoteID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// SetAmount stores the user-entered amount verbatim. An amount exceeding the
// note's remaining balance or below zero is rejected and the deduction left
// unchanged; zero is allowed while the user types.
func (l *DeductionList) SetAmount(creditNoteID uuid.UUID, amount decimal.Decimal) error {
	entry, ok := l.entries[creditNoteID]
	if !ok {
		return shared.NewDomainError("CREDIT_NOTE_NOT_ATTACHED", fmt.Sprintf("Credit note %s is not attached", creditNoteID))
	}
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Deduction amount cannot be negative")
	}
	if amount.GreaterThan(entry.RemainingBalance) {
		return shared.NewDomainError("EXCEEDS_REMAINING",
			fmt.Sprintf("Deduction %s exceeds remaining balance %s of credit note %s",
				amount.StringFixed(2), entry.RemainingBalance.StringFixed(2), entry.CreditNoteNumber))
	}
	entry.Amount = amount
	entry.AmountEntered = true
	return nil
}

// ClearAmount blanks the amount while the user edits the field
func (l *DeductionList) ClearAmount(creditNoteID uuid.UUID) error {
	entry, ok := l.entries[creditNoteID]
	if !ok {
		return shared.NewDomainError("CREDIT_NOTE_NOT_ATTACHED", fmt.Sprintf("Credit note %s is not attached", creditNoteID))
	}
	entry.Amount = decimal.Zero
	entry.AmountEntered = false
	return nil
}

// Contains reports whether the credit note is attached
func (l *DeductionList) Contains(creditNoteID uuid.UUID) bool {
	_, ok := l.entries[creditNoteID]
	return ok
}

// Count returns the number of attached credit notes
func (l *DeductionList) Count() int {
	return len(l.order)
}

// Deduction returns a copy of the deduction for the given credit note
func (l *DeductionList) Deduction(creditNoteID uuid.UUID) (CreditNoteDeduction, bool) {
	entry, ok := l.entries[creditNoteID]
	if !ok {
		return CreditNoteDeduction{}, false
	}
	return *entry, true
}

// Deductions returns copies of all deductions in attach order
func (l *DeductionList) Deductions() []CreditNoteDeduction {
	deductions := make([]CreditNoteDeduction, 0, len(l.order))
	for _, id := range l.order {
		deductions = append(deductions, *l.entries[id])
	}
	return deductions
}

// Total returns the sum of the effective deduction amounts
func (l *DeductionList) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range l.order {
		total = total.Add(l.entries[id].EffectiveAmount())
	}
	return total
}

// ClearAll detaches every credit note
func (l *DeductionList) ClearAll() {
	l.order = l.order[:0]
	l.entries = make(map[uuid.UUID]*CreditNoteDeduction)
}
