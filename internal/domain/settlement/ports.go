package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditNoteFilter narrows an eligible-credit-note search. Implementations
// must apply the eligibility contract server-side: only notes with a
// remaining balance, only independent (standalone) notes, fuzzy match on
// Term, at most PageSize candidates.
type CreditNoteFilter struct {
	CustomerID *uuid.UUID
	Term       string
	PageSize   int
}

// CreditNoteSearcher looks up standalone credit notes eligible as funding
// sources for a settlement.
type CreditNoteSearcher interface {
	SearchEligible(ctx context.Context, filter CreditNoteFilter) ([]CreditNote, error)
}

// CustomerHit is one customer search result, including the stored credit
// balance the settlement can draw on.
type CustomerHit struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Code    string          `json:"code"`
	Balance decimal.Decimal `json:"balance"`
}

// CustomerSearcher looks up customers by fuzzy term
type CustomerSearcher interface {
	Search(ctx context.Context, term string, pageSize int) ([]CustomerHit, error)
}

// InvoiceStore lists a customer's outstanding invoices, newest first.
// Fully paid invoices are filtered out server-side.
type InvoiceStore interface {
	ListOutstanding(ctx context.Context, customerID uuid.UUID) ([]Invoice, error)
}

// BankAccount is a selectable deposit account for the cash portion
type BankAccount struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// BankAccountLister lists the bank accounts the cash portion can be booked to
type BankAccountLister interface {
	List(ctx context.Context) ([]BankAccount, error)
}

// PaymentResponse is the external payment service's answer to a submission
type PaymentResponse struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Customer *CustomerHit `json:"customer,omitempty"`
}

// PaymentService is the external, non-idempotent payment endpoint. It must
// be called exactly once per user action; the application layer guards
// against duplicate in-flight submissions.
type PaymentService interface {
	SubmitPayment(ctx context.Context, req *PaymentRequest) (*PaymentResponse, error)
}
