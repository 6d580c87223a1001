package settlement

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arbo/backend/internal/domain/settlement"
	"github.com/arbo/backend/internal/domain/shared"
	"github.com/arbo/backend/internal/domain/shared/valueobject"
	applog "github.com/arbo/backend/internal/infrastructure/logger"
)

// SessionService orchestrates settlement sessions: it parses raw operator
// input into domain edits, builds the outbound payment request and owns the
// single-submission guard. Raw strings stop here; the domain only ever sees
// parsed decimals.
type SessionService struct {
	payments settlement.PaymentService
	invoices settlement.InvoiceStore
	accounts settlement.BankAccountLister
	builder  *settlement.SubmissionBuilder
	logger   *zap.Logger

	inFlight sync.Map // session id -> struct{}
}

// NewSessionService creates a new SessionService
func NewSessionService(
	payments settlement.PaymentService,
	invoices settlement.InvoiceStore,
	accounts settlement.BankAccountLister,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		payments: payments,
		invoices: invoices,
		accounts: accounts,
		builder:  settlement.NewSubmissionBuilder(),
		logger:   logger.Named("settlement"),
	}
}

// log resolves the request-scoped logger, falling back to the service
// logger when the transport attached none to the context.
func (s *SessionService) log(ctx context.Context) *zap.Logger {
	return applog.Resolve(ctx, s.logger)
}

// StartSession opens a fresh session for a customer and loads their
// outstanding invoices for the picker.
func (s *SessionService) StartSession(ctx context.Context, customer settlement.CustomerHit) (*settlement.PaymentSession, []settlement.Invoice, error) {
	session := settlement.NewPaymentSession()
	if err := session.SetCustomer(customer); err != nil {
		return nil, nil, err
	}
	invoices, err := s.LoadOutstandingInvoices(ctx, customer.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, invoices, nil
}

// LoadOutstandingInvoices returns the customer's payable invoices
func (s *SessionService) LoadOutstandingInvoices(ctx context.Context, customerID uuid.UUID) ([]settlement.Invoice, error) {
	invoices, err := s.invoices.ListOutstanding(ctx, customerID)
	if err != nil {
		s.log(ctx).Warn("Outstanding invoice lookup failed",
			zap.String("customer_id", customerID.String()), zap.Error(err))
		return nil, shared.ErrServiceUnavailable
	}
	return invoices, nil
}

// SubmissionResult reports the outcome of a successful submission
type SubmissionResult struct {
	SessionID      uuid.UUID       `json:"session_id"`
	Message        string          `json:"message"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	ExcessAmount   decimal.Decimal `json:"excess_amount"`
	UpdatedBalance *decimal.Decimal `json:"updated_balance,omitempty"`
}

// EnterDraftDiscount parses a raw discount string and applies it to a draft.
// Blank input means zero.
func (s *SessionService) EnterDraftDiscount(session *settlement.PaymentSession, invoiceID uuid.UUID, raw string) error {
	amount, err := parseOrZero(raw)
	if err != nil {
		return err
	}
	return session.SetDraftDiscount(invoiceID, amount)
}

// EnterDraftAmount parses a raw amount string and applies it to a draft.
// Blank input means zero.
func (s *SessionService) EnterDraftAmount(session *settlement.PaymentSession, invoiceID uuid.UUID, raw string) error {
	amount, err := parseOrZero(raw)
	if err != nil {
		return err
	}
	return session.SetDraftAmount(invoiceID, amount)
}

// EnterDeductionAmount parses a raw deduction string. Blank input blanks the
// field rather than zeroing it, so validation can tell the difference.
func (s *SessionService) EnterDeductionAmount(session *settlement.PaymentSession, creditNoteID uuid.UUID, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return session.ClearDeductionAmount(creditNoteID)
	}
	amount, err := valueobject.ParseAmount(raw)
	if err != nil {
		return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("%q is not a valid amount", raw))
	}
	return session.SetDeductionAmount(creditNoteID, amount)
}

// EnterBalanceContribution parses a raw balance contribution. Blank means zero.
func (s *SessionService) EnterBalanceContribution(session *settlement.PaymentSession, raw string) error {
	amount, err := parseOrZero(raw)
	if err != nil {
		return err
	}
	return session.SetBalanceContribution(amount)
}

// EnterReceivedAmount parses a raw cash amount. Clearing the field returns
// the cash state to auto-tracking instead of freezing it at zero.
func (s *SessionService) EnterReceivedAmount(session *settlement.PaymentSession, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return session.ResetReceivedAmount()
	}
	amount, err := valueobject.ParseAmount(raw)
	if err != nil {
		return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("%q is not a valid amount", raw))
	}
	return session.OverrideReceivedAmount(amount)
}

// ListBankAccounts returns the selectable deposit accounts
func (s *SessionService) ListBankAccounts(ctx context.Context) ([]settlement.BankAccount, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		s.log(ctx).Warn("Bank account lookup failed", zap.Error(err))
		return nil, shared.ErrServiceUnavailable
	}
	return accounts, nil
}

// Submit validates and sends the session to the payment service. At most one
// submission per session may be in flight: a second call while the first is
// pending fails fast instead of double-paying. The guard is released on
// failure so the operator can retry; success latches the session for good.
func (s *SessionService) Submit(ctx context.Context, session *settlement.PaymentSession) (*SubmissionResult, error) {
	if _, loaded := s.inFlight.LoadOrStore(session.ID, struct{}{}); loaded {
		return nil, shared.ErrSubmissionInFlight
	}
	defer s.inFlight.Delete(session.ID)

	if session.IsSubmitted() {
		return nil, shared.ErrSessionSubmitted
	}

	req, err := s.builder.Build(session)
	if err != nil {
		return nil, err
	}

	// each submission gets a correlation id; it travels on the context so
	// the gateway's log lines carry it too
	ctx, log := applog.WithRequestID(ctx, s.log(ctx), uuid.New().String())
	log = log.With(
		zap.String("session_id", session.ID.String()),
		zap.String("customer_id", session.CustomerID.String()),
		zap.Int("invoice_count", len(req.Payments)),
		zap.String("received_amount", req.ReceivedAmount.StringFixed(2)),
	)
	log.Info("Submitting settlement")

	resp, err := s.payments.SubmitPayment(ctx, req)
	if err != nil {
		log.Error("Payment service request failed", zap.Error(err))
		return nil, shared.ErrServiceUnavailable
	}
	if !resp.Success {
		log.Warn("Payment service rejected the submission", zap.String("reason", resp.Message))
		return nil, shared.NewDomainError("SUBMISSION_REJECTED", resp.Message)
	}

	if err := session.MarkSubmitted(); err != nil {
		return nil, err
	}
	log.Info("Settlement submitted")

	result := &SubmissionResult{
		SessionID:      session.ID,
		Message:        resp.Message,
		ReceivedAmount: req.ReceivedAmount,
		ExcessAmount:   req.ExcessAmount,
	}
	if resp.Customer != nil {
		balance := resp.Customer.Balance
		result.UpdatedBalance = &balance
	}
	return result, nil
}

// parseOrZero parses a raw amount where a blank field means zero
func parseOrZero(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	amount, err := valueobject.ParseAmount(raw)
	if err != nil {
		return decimal.Decimal{}, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("%q is not a valid amount", raw))
	}
	return amount, nil
}
