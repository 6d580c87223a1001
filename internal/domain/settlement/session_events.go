package settlement

import (
	"time"

	"github.com/arbo/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditNoteAttachedEvent is raised when a standalone credit note is
// attached to a settlement as a funding source
type CreditNoteAttachedEvent struct {
	shared.BaseDomainEvent
	SessionID        uuid.UUID       `json:"session_id"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	CreditNoteID     uuid.UUID       `json:"credit_note_id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	SuggestedAmount  decimal.Decimal `json:"suggested_amount"`
}

// EventType returns the event type name
func (e *CreditNoteAttachedEvent) EventType() string {
	return "CreditNoteAttached"
}

// NewCreditNoteAttachedEvent creates a new CreditNoteAttachedEvent
func NewCreditNoteAttachedEvent(s *PaymentSession, deduction CreditNoteDeduction) *CreditNoteAttachedEvent {
	return &CreditNoteAttachedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("CreditNoteAttached", "PaymentSession", s.ID),
		SessionID:        s.ID,
		CustomerID:       s.CustomerID,
		CreditNoteID:     deduction.CreditNoteID,
		CreditNoteNumber: deduction.CreditNoteNumber,
		SuggestedAmount:  deduction.EffectiveAmount(),
	}
}

// SettlementSubmittedEvent is raised when the payment service accepted the
// session's single submission
type SettlementSubmittedEvent struct {
	shared.BaseDomainEvent
	SessionID               uuid.UUID       `json:"session_id"`
	CustomerID              uuid.UUID       `json:"customer_id"`
	CustomerName            string          `json:"customer_name"`
	PaymentsTotal           decimal.Decimal `json:"payments_total"`
	ReceivedAmount          decimal.Decimal `json:"received_amount"`
	BalanceDeduction        decimal.Decimal `json:"balance_deduction"`
	CreditNoteDeduction     decimal.Decimal `json:"credit_note_deduction"`
	ExcessAmount            decimal.Decimal `json:"excess_amount"`
	ProjectedBalanceAfter   decimal.Decimal `json:"projected_balance_after"`
	SubmittedInvoiceCount   int             `json:"submitted_invoice_count"`
	SubmittedAt             time.Time       `json:"submitted_at"`
}

// EventType returns the event type name
func (e *SettlementSubmittedEvent) EventType() string {
	return "SettlementSubmitted"
}

// NewSettlementSubmittedEvent creates a new SettlementSubmittedEvent
func NewSettlementSubmittedEvent(s *PaymentSession) *SettlementSubmittedEvent {
	submittedAt := time.Now()
	if s.SubmittedAt != nil {
		submittedAt = *s.SubmittedAt
	}
	alloc := s.Allocation()
	return &SettlementSubmittedEvent{
		BaseDomainEvent:       shared.NewBaseDomainEvent("SettlementSubmitted", "PaymentSession", s.ID),
		SessionID:             s.ID,
		CustomerID:            s.CustomerID,
		CustomerName:          s.CustomerName,
		PaymentsTotal:         alloc.PaymentsTotal,
		ReceivedAmount:        alloc.ReceivedAmount,
		BalanceDeduction:      alloc.ClampedBalanceDeduction,
		CreditNoteDeduction:   alloc.TotalCreditNoteDeduction,
		ExcessAmount:          alloc.ExcessAmount,
		ProjectedBalanceAfter: alloc.ProjectedBalanceAfter,
		SubmittedInvoiceCount: s.SelectedCount(),
		SubmittedAt:           submittedAt,
	}
}
