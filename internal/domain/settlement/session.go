package settlement

import (
	"fmt"
	"time"

	"github.com/arbo/backend/internal/domain/shared"
	"github.com/arbo/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentSession is the aggregate root for one settlement: one customer, one
// invoice batch, its credit-note deductions, the balance toggle and the cash
// field. Every mutating operation synchronously recomputes the full
// AllocationResult before returning, so no partial state is ever observable.
// Sessions are single-user; abandoning one simply discards it.
type PaymentSession struct {
	shared.BaseAggregateRoot
	CustomerID        uuid.UUID
	CustomerName      string
	BankAccountID     uuid.UUID
	PaymentDate       *time.Time
	GlobalDescription string
	SubmittedAt       *time.Time

	selection  *InvoiceSelectionSet
	deductions *DeductionList
	balance    CustomerBalanceState
	cash       CashEntryState
	allocation AllocationResult
}

// NewPaymentSession creates an empty settlement session
func NewPaymentSession() *PaymentSession {
	s := &PaymentSession{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		selection:         NewInvoiceSelectionSet(),
		deductions:        NewDeductionList(),
		cash:              NewCashEntryState(),
	}
	s.allocation = ComputeAllocation(nil, s.balance, nil, s.cash)
	return s
}

// recalculate re-derives the allocation after a mutation. Full recompute,
// never incremental; the cash state machine is the only carried state.
func (s *PaymentSession) recalculate() {
	s.allocation = ComputeAllocation(s.selection.Drafts(), s.balance, s.deductions.Deductions(), s.cash)
	s.Touch()
	s.IncrementVersion()
}

func (s *PaymentSession) guardOpen() error {
	if s.SubmittedAt != nil {
		return shared.ErrSessionSubmitted
	}
	return nil
}

// SetCustomer binds the session to a customer and their stored balance.
// Switching to a different customer discards the working set, since the
// selected invoices and attached notes belong to the previous one.
func (s *PaymentSession) SetCustomer(customer CustomerHit) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	if s.CustomerID != uuid.Nil && s.CustomerID != customer.ID {
		s.selection.ClearAll()
		s.deductions.ClearAll()
		s.cash = s.cash.Reset()
	}
	s.CustomerID = customer.ID
	s.CustomerName = customer.Name
	s.balance = CustomerBalanceState{
		CustomerID:    customer.ID,
		StoredBalance: customer.Balance,
	}
	s.recalculate()
	return nil
}

// SelectInvoice adds an invoice to the working set
func (s *PaymentSession) SelectInvoice(inv Invoice) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	if s.CustomerID != uuid.Nil && inv.CustomerID != s.CustomerID {
		return shared.NewDomainError("CUSTOMER_MISMATCH",
			fmt.Sprintf("Invoice %s belongs to another customer", inv.InvoiceNumber))
	}
	s.selection.Select(inv)
	s.recalculate()
	return nil
}

// DeselectInvoice removes an invoice's draft
func (s *PaymentSession) DeselectInvoice(invoiceID uuid.UUID) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.selection.Deselect(invoiceID)
	s.recalculate()
	return nil
}

// SelectAllInvoices selects a batch with per-invoice SelectInvoice semantics
func (s *PaymentSession) SelectAllInvoices(invoices []Invoice) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	for _, inv := range invoices {
		if s.CustomerID != uuid.Nil && inv.CustomerID != s.CustomerID {
			return shared.NewDomainError("CUSTOMER_MISMATCH",
				fmt.Sprintf("Invoice %s belongs to another customer", inv.InvoiceNumber))
		}
	}
	s.selection.SelectAll(invoices)
	s.recalculate()
	return nil
}

// ClearInvoiceSelection empties the working set
func (s *PaymentSession) ClearInvoiceSelection() error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.selection.ClearAll()
	s.recalculate()
	return nil
}

// SetDraftDiscount edits a draft discount, with the clamp semantics of the
// selection set, then recomputes.
func (s *PaymentSession) SetDraftDiscount(invoiceID uuid.UUID, discount decimal.Decimal) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	if err := s.selection.SetDiscount(invoiceID, discount); err != nil {
		return err
	}
	s.recalculate()
	return nil
}

// SetDraftAmount edits a draft payment amount
func (s *PaymentSession) SetDraftAmount(invoiceID uuid.UUID, amount decimal.Decimal) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	if err := s.selection.SetAmount(invoiceID, amount); err != nil {
		return err
	}
	s.recalculate()
	return nil
}

// SetDraftDescription edits a draft description
func (s *PaymentSession) SetDraftDescription(invoiceID uuid.UUID, description string) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	if err := s.selection.SetDescription(invoiceID, description); err != nil {
		return err
	}
	s.recalculate()
	return nil
}

// AttachCreditNote attaches a standalone credit note as a funding source
func (s *PaymentSession) AttachCreditNote(note CreditNote) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	if s.deductions.Attach(note, s.allocation.PaymentsTotal) {
		deduction, _ := s.deductions.Deduction(note.ID)
		s.AddDomainEvent(NewCreditNoteAttachedEvent(s, deduction))
	}
	s.recalculate()
	return nil
}

// DetachCreditNote removes a credit-note deduction
func (s *PaymentSession) DetachCreditNote(creditNoteID uuid.UUID) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.deductions.Detach(creditNoteID)
	s.recalculate()
	return nil
}

// SetDeductionAmount edits an attached note's deduction amount. Over-limit
// values are rejected with the deduction left unchanged.
func (s *PaymentSession) SetDeductionAmount(creditNoteID uuid.UUID, amount decimal.Decimal) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	if err := s.deductions.SetAmount(creditNoteID, amount); err != nil {
		return err
	}
	s.recalculate()
	return nil
}

// ClearDeductionAmount blanks an attached note's amount while the user types
func (s *PaymentSession) ClearDeductionAmount(creditNoteID uuid.UUID) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	if err := s.deductions.ClearAmount(creditNoteID); err != nil {
		return err
	}
	s.recalculate()
	return nil
}

// SetUseBalance toggles drawing on the stored customer balance. Turning it
// off zeroes the contribution so the cash field re-autofills.
func (s *PaymentSession) SetUseBalance(use bool) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.balance.UseBalance = use
	if !use {
		s.balance.Contribution = decimal.Zero
	}
	s.recalculate()
	return nil
}

// SetBalanceContribution sets how much stored balance to apply, clamped to
// [0, min(storedBalance, paymentsTotal)].
func (s *PaymentSession) SetBalanceContribution(amount decimal.Decimal) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	ceiling := valueobject.NonNegative(valueobject.Min(s.balance.StoredBalance, s.allocation.PaymentsTotal))
	s.balance.Contribution = valueobject.Clamp(amount, decimal.Zero, ceiling)
	s.recalculate()
	return nil
}

// UseFullBalance applies as much stored balance as the invoices allow and
// returns the cash field to AUTO so it re-tracks the shrunken requirement.
func (s *PaymentSession) UseFullBalance() error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.balance.UseBalance = true
	s.balance.Contribution = valueobject.NonNegative(valueobject.Min(s.balance.StoredBalance, s.allocation.PaymentsTotal))
	s.cash = s.cash.Reset()
	s.recalculate()
	return nil
}

// OverrideReceivedAmount freezes the cash field at the user's value (MANUAL)
func (s *PaymentSession) OverrideReceivedAmount(amount decimal.Decimal) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.cash = s.cash.Override(amount)
	s.recalculate()
	return nil
}

// ResetReceivedAmount returns the cash field to AUTO; clearing the field in
// the UI maps here as well.
func (s *PaymentSession) ResetReceivedAmount() error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.cash = s.cash.Reset()
	s.recalculate()
	return nil
}

// SetBankAccount selects the deposit account for the cash portion
func (s *PaymentSession) SetBankAccount(accountID uuid.UUID) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.BankAccountID = accountID
	s.recalculate()
	return nil
}

// SetPaymentDate sets the settlement date
func (s *PaymentSession) SetPaymentDate(date time.Time) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.PaymentDate = &date
	s.recalculate()
	return nil
}

// SetGlobalDescription sets the session-wide fallback description
func (s *PaymentSession) SetGlobalDescription(description string) error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	s.GlobalDescription = description
	s.recalculate()
	return nil
}

// MarkSubmitted latches the session after the payment service accepted the
// submission. A submitted session rejects every further mutation.
func (s *PaymentSession) MarkSubmitted() error {
	if err := s.guardOpen(); err != nil {
		return err
	}
	now := time.Now()
	s.SubmittedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()
	s.AddDomainEvent(NewSettlementSubmittedEvent(s))
	return nil
}

// IsSubmitted reports whether the session has been settled
func (s *PaymentSession) IsSubmitted() bool {
	return s.SubmittedAt != nil
}

// Allocation returns the current derived allocation
func (s *PaymentSession) Allocation() AllocationResult {
	return s.allocation
}

// Drafts returns the current payment drafts in insertion order
func (s *PaymentSession) Drafts() []PaymentDraft {
	return s.selection.Drafts()
}

// Draft returns the draft for one selected invoice
func (s *PaymentSession) Draft(invoiceID uuid.UUID) (PaymentDraft, bool) {
	return s.selection.Draft(invoiceID)
}

// SelectedCount returns the number of selected invoices
func (s *PaymentSession) SelectedCount() int {
	return s.selection.Count()
}

// Deductions returns the attached credit-note deductions in attach order
func (s *PaymentSession) Deductions() []CreditNoteDeduction {
	return s.deductions.Deductions()
}

// Balance returns the current customer balance state
func (s *PaymentSession) Balance() CustomerBalanceState {
	return s.balance
}

// Cash returns the cash-field state machine
func (s *PaymentSession) Cash() CashEntryState {
	return s.cash
}
