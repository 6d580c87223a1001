package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/arbo/backend/internal/domain/shared"
	"github.com/arbo/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentLine is one per-invoice line of the external payment request
type PaymentLine struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Discount      decimal.Decimal `json:"discount"`
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
}

// DeductionLine is one credit-note deduction of the external payment request
type DeductionLine struct {
	CreditNoteID     uuid.UUID       `json:"credit_note_id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	Amount           decimal.Decimal `json:"amount"`
}

// PaymentRequest is the request shape of the external payment service. All
// monetary fields are canonical 2-decimal amounts.
type PaymentRequest struct {
	Payments                  []PaymentLine   `json:"payments"`
	CustomerID                uuid.UUID       `json:"customer_id"`
	ReceivedAmount            decimal.Decimal `json:"received_amount"`
	BalanceDeductionAmount    decimal.Decimal `json:"balance_deduction_amount"`
	DeductFromCustomerBalance bool            `json:"deduct_from_customer_balance"`
	ExcessAmount              decimal.Decimal `json:"excess_amount"`
	CreditNoteDeductions      []DeductionLine `json:"credit_note_deductions"`
}

// SubmissionBuilder validates a session's allocation plus the ancillary
// required fields and converts the working set into the external payment
// request shape. It refuses to build anything inconsistent: validation
// failures are user-recoverable domain errors, contract violations are not.
type SubmissionBuilder struct{}

// NewSubmissionBuilder creates a new SubmissionBuilder
func NewSubmissionBuilder() *SubmissionBuilder {
	return &SubmissionBuilder{}
}

// Validate runs the pre-submit checks in fixed order; the first failure wins
// and is reported as a distinct domain error.
func (b *SubmissionBuilder) Validate(s *PaymentSession) error {
	alloc := s.Allocation()

	if s.SelectedCount() == 0 {
		return shared.NewDomainError("EMPTY_SELECTION", "Select at least one invoice to pay")
	}
	if (alloc.CashRequired.IsPositive() || alloc.ReceivedAmount.IsPositive()) && s.BankAccountID == uuid.Nil {
		return shared.NewDomainError("BANK_ACCOUNT_REQUIRED", "A bank account is required for the cash portion")
	}
	if s.PaymentDate == nil {
		return shared.NewDomainError("PAYMENT_DATE_REQUIRED", "A payment date is required")
	}
	if !alloc.CoverageValid {
		return shared.NewDomainError("COVERAGE_INVALID",
			fmt.Sprintf("Funding sources fall short of the invoice total by %s", alloc.RemainingAmount.StringFixed(2)))
	}
	for _, d := range s.Deductions() {
		if !d.AmountEntered || !d.Amount.IsPositive() || d.Amount.GreaterThan(d.RemainingBalance) {
			return shared.NewDomainError("INVALID_DEDUCTION_AMOUNT",
				fmt.Sprintf("Credit note %s needs an amount between 0 and %s",
					d.CreditNoteNumber, d.RemainingBalance.StringFixed(2)))
		}
	}
	paymentsPlusTolerance := alloc.PaymentsTotal.Add(valueobject.DeductionTolerance)
	if alloc.TotalCreditNoteDeduction.GreaterThan(paymentsPlusTolerance) {
		return shared.NewDomainError("DEDUCTIONS_EXCEED_PAYMENTS",
			"Credit-note deductions exceed the selected invoice total")
	}
	if alloc.TotalCreditNoteDeduction.Add(alloc.ClampedBalanceDeduction).GreaterThan(paymentsPlusTolerance) {
		return shared.NewDomainError("SOURCES_EXCEED_PAYMENTS",
			"Credit-note and balance deductions together exceed the selected invoice total")
	}
	if alloc.ClampedBalanceDeduction.IsPositive() && s.CustomerID == uuid.Nil {
		return shared.NewDomainError("CUSTOMER_REQUIRED",
			"A customer is required to deduct from a stored balance")
	}
	return nil
}

// Build validates the session and assembles the external request, one line
// per draft, blank per-line descriptions falling back to the session-wide
// one. Monetary fields are rounded to 2 decimals at this boundary.
func (b *SubmissionBuilder) Build(s *PaymentSession) (*PaymentRequest, error) {
	if err := b.Validate(s); err != nil {
		return nil, err
	}

	alloc := s.Allocation()

	lines := make([]PaymentLine, 0, s.SelectedCount())
	for _, draft := range s.Drafts() {
		description := strings.TrimSpace(draft.Description)
		if description == "" {
			description = s.GlobalDescription
		}
		lines = append(lines, PaymentLine{
			InvoiceID:     draft.InvoiceID,
			Discount:      valueobject.Round2(draft.Discount),
			Amount:        valueobject.Round2(draft.Amount),
			BankAccountID: s.BankAccountID,
			Date:          *s.PaymentDate,
			Description:   description,
		})
	}

	deductions := make([]DeductionLine, 0, len(s.Deductions()))
	for _, d := range s.Deductions() {
		deductions = append(deductions, DeductionLine{
			CreditNoteID:     d.CreditNoteID,
			CreditNoteNumber: d.CreditNoteNumber,
			Amount:           valueobject.Round2(d.Amount),
		})
	}

	req := &PaymentRequest{
		Payments:                  lines,
		CustomerID:                s.CustomerID,
		ReceivedAmount:            valueobject.Round2(alloc.ReceivedAmount),
		BalanceDeductionAmount:    valueobject.Round2(alloc.ClampedBalanceDeduction),
		DeductFromCustomerBalance: alloc.ClampedBalanceDeduction.IsPositive(),
		ExcessAmount:              valueobject.Round2(alloc.ExcessAmount),
		CreditNoteDeductions:      deductions,
	}

	if err := checkRequestConsistency(req); err != nil {
		return nil, err
	}
	return req, nil
}

// checkRequestConsistency is the last defensive gate before the external
// call: a malformed request here is a programmer error, not user input, so
// the builder refuses rather than sending inconsistent data.
func checkRequestConsistency(req *PaymentRequest) error {
	if req.ReceivedAmount.IsNegative() || req.BalanceDeductionAmount.IsNegative() || req.ExcessAmount.IsNegative() {
		return shared.ErrInconsistentRequest
	}
	linesTotal := decimal.Zero
	for _, line := range req.Payments {
		if line.Amount.IsNegative() || line.Discount.IsNegative() {
			return shared.ErrInconsistentRequest
		}
		linesTotal = linesTotal.Add(line.Amount)
	}
	deductionsTotal := decimal.Zero
	for _, d := range req.CreditNoteDeductions {
		if !d.Amount.IsPositive() {
			return shared.ErrInconsistentRequest
		}
		deductionsTotal = deductionsTotal.Add(d.Amount)
	}
	// coverage - excess must land back on the lines total within the cent
	// tolerance used everywhere else
	coverage := req.ReceivedAmount.Add(req.BalanceDeductionAmount).Add(deductionsTotal).Sub(req.ExcessAmount)
	if coverage.Sub(linesTotal).Abs().GreaterThanOrEqual(valueobject.CoverageEpsilon) {
		return shared.ErrInconsistentRequest
	}
	return nil
}
