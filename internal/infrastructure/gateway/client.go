package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arbo/backend/internal/domain/settlement"
	"github.com/arbo/backend/internal/infrastructure/config"
	applog "github.com/arbo/backend/internal/infrastructure/logger"
)

const defaultTimeout = 30 * time.Second

// Client talks to the payment service's HTTP API. It implements the
// settlement ports for payment submission and reference-data lookups.
// Amounts travel as fixed 2-decimal strings; the client never retries a
// submission because the endpoint is not idempotent.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewClient creates a new payment service client
func NewClient(cfg config.GatewayConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway: base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("gateway: invalid base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
		logger:     logger.Named("gateway"),
	}, nil
}

// paymentLineDTO is one invoice line on the wire
type paymentLineDTO struct {
	InvoiceID     string `json:"invoice_id" validate:"required,uuid"`
	Discount      string `json:"discount" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	BankAccountID string `json:"bank_account_id" validate:"required,uuid"`
	Date          string `json:"date" validate:"required"`
	Description   string `json:"description"`
}

// deductionLineDTO is one credit-note deduction on the wire
type deductionLineDTO struct {
	CreditNoteID     string `json:"credit_note_id" validate:"required,uuid"`
	CreditNoteNumber string `json:"credit_note_number" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
}

// paymentRequestDTO is the full submission payload
type paymentRequestDTO struct {
	Payments                  []paymentLineDTO   `json:"payments" validate:"required,min=1,dive"`
	CustomerID                string             `json:"customer_id" validate:"required,uuid"`
	ReceivedAmount            string             `json:"received_amount" validate:"required"`
	BalanceDeductionAmount    string             `json:"balance_deduction_amount"`
	DeductFromCustomerBalance bool               `json:"deduct_from_customer_balance"`
	ExcessAmount              string             `json:"excess_amount"`
	CreditNoteDeductions      []deductionLineDTO `json:"credit_note_deductions" validate:"dive"`
}

type customerDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Balance string `json:"balance"`
}

type paymentResponseDTO struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Customer *customerDTO `json:"customer,omitempty"`
}

type creditNoteDTO struct {
	ID               string `json:"id"`
	CreditNoteNumber string `json:"credit_note_number"`
	Description      string `json:"description"`
	Date             string `json:"date"`
	RemainingBalance string `json:"remaining_balance"`
}

type bankAccountDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type invoiceDTO struct {
	ID               string `json:"id"`
	InvoiceNumber    string `json:"invoice_number"`
	CustomerID       string `json:"customer_id"`
	TotalAmount      string `json:"total_amount"`
	TotalPaidAmount  string `json:"total_paid_amount"`
	Discount         string `json:"discount"`
	BalanceToReceive string `json:"balance_to_receive"`
}

// SubmitPayment sends the settlement to the payment service exactly once
func (c *Client) SubmitPayment(ctx context.Context, req *settlement.PaymentRequest) (*settlement.PaymentResponse, error) {
	dto := toPaymentRequestDTO(req)
	if err := c.validate.Struct(dto); err != nil {
		return nil, fmt.Errorf("gateway: request failed validation: %w", err)
	}

	body, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to build request: %w", err)
	}
	c.setHeaders(httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway: payment request failed: %w", err)
	}
	defer resp.Body.Close()

	applog.Resolve(ctx, c.logger).Debug("Payment request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway: payment service returned status %d", resp.StatusCode)
	}

	var respDTO paymentResponseDTO
	if err := json.Unmarshal(respBody, &respDTO); err != nil {
		return nil, fmt.Errorf("gateway: failed to decode response: %w", err)
	}

	result := &settlement.PaymentResponse{
		Success: respDTO.Success,
		Message: respDTO.Message,
	}
	if respDTO.Customer != nil {
		hit, err := toCustomerHit(*respDTO.Customer)
		if err != nil {
			return nil, err
		}
		result.Customer = &hit
	}
	return result, nil
}

// Search implements settlement.CustomerSearcher against /customers
func (c *Client) Search(ctx context.Context, term string, pageSize int) ([]settlement.CustomerHit, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("limit", strconv.Itoa(pageSize))

	var dtos []customerDTO
	if err := c.getJSON(ctx, "/customers", q, &dtos); err != nil {
		return nil, err
	}

	hits := make([]settlement.CustomerHit, 0, len(dtos))
	for _, dto := range dtos {
		hit, err := toCustomerHit(dto)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// SearchEligible implements settlement.CreditNoteSearcher against
// /credit-notes. The service applies the eligibility contract: standalone
// notes with a remaining balance only.
func (c *Client) SearchEligible(ctx context.Context, filter settlement.CreditNoteFilter) ([]settlement.CreditNote, error) {
	q := url.Values{}
	q.Set("term", filter.Term)
	q.Set("limit", strconv.Itoa(filter.PageSize))
	q.Set("standalone", "true")
	if filter.CustomerID != nil {
		q.Set("customer_id", filter.CustomerID.String())
	}

	var dtos []creditNoteDTO
	if err := c.getJSON(ctx, "/credit-notes", q, &dtos); err != nil {
		return nil, err
	}

	notes := make([]settlement.CreditNote, 0, len(dtos))
	for _, dto := range dtos {
		note, err := toCreditNote(dto)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// ListOutstanding implements settlement.InvoiceStore against /invoices
func (c *Client) ListOutstanding(ctx context.Context, customerID uuid.UUID) ([]settlement.Invoice, error) {
	q := url.Values{}
	q.Set("customer_id", customerID.String())
	q.Set("outstanding", "true")

	var dtos []invoiceDTO
	if err := c.getJSON(ctx, "/invoices", q, &dtos); err != nil {
		return nil, err
	}

	invoices := make([]settlement.Invoice, 0, len(dtos))
	for _, dto := range dtos {
		invoice, err := toInvoice(dto)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

// List implements settlement.BankAccountLister against /bank-accounts
func (c *Client) List(ctx context.Context) ([]settlement.BankAccount, error) {
	var dtos []bankAccountDTO
	if err := c.getJSON(ctx, "/bank-accounts", nil, &dtos); err != nil {
		return nil, err
	}

	accounts := make([]settlement.BankAccount, 0, len(dtos))
	for _, dto := range dtos {
		id, err := uuid.Parse(dto.ID)
		if err != nil {
			return nil, fmt.Errorf("gateway: invalid bank account id %q: %w", dto.ID, err)
		}
		accounts = append(accounts, settlement.BankAccount{ID: id, Name: dto.Name})
	}
	return accounts, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("gateway: failed to build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func toPaymentRequestDTO(req *settlement.PaymentRequest) paymentRequestDTO {
	lines := make([]paymentLineDTO, 0, len(req.Payments))
	for _, line := range req.Payments {
		lines = append(lines, paymentLineDTO{
			InvoiceID:     line.InvoiceID.String(),
			Discount:      line.Discount.StringFixed(2),
			Amount:        line.Amount.StringFixed(2),
			BankAccountID: line.BankAccountID.String(),
			Date:          line.Date.Format("2006-01-02"),
			Description:   line.Description,
		})
	}

	deductions := make([]deductionLineDTO, 0, len(req.CreditNoteDeductions))
	for _, d := range req.CreditNoteDeductions {
		deductions = append(deductions, deductionLineDTO{
			CreditNoteID:     d.CreditNoteID.String(),
			CreditNoteNumber: d.CreditNoteNumber,
			Amount:           d.Amount.StringFixed(2),
		})
	}

	return paymentRequestDTO{
		Payments:                  lines,
		CustomerID:                req.CustomerID.String(),
		ReceivedAmount:            req.ReceivedAmount.StringFixed(2),
		BalanceDeductionAmount:    req.BalanceDeductionAmount.StringFixed(2),
		DeductFromCustomerBalance: req.DeductFromCustomerBalance,
		ExcessAmount:              req.ExcessAmount.StringFixed(2),
		CreditNoteDeductions:      deductions,
	}
}

func toCustomerHit(dto customerDTO) (settlement.CustomerHit, error) {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return settlement.CustomerHit{}, fmt.Errorf("gateway: invalid customer id %q: %w", dto.ID, err)
	}
	balance := decimal.Zero
	if dto.Balance != "" {
		balance, err = decimal.NewFromString(dto.Balance)
		if err != nil {
			return settlement.CustomerHit{}, fmt.Errorf("gateway: invalid customer balance %q: %w", dto.Balance, err)
		}
	}
	return settlement.CustomerHit{
		ID:      id,
		Name:    dto.Name,
		Code:    dto.Code,
		Balance: balance,
	}, nil
}

func toInvoice(dto invoiceDTO) (settlement.Invoice, error) {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return settlement.Invoice{}, fmt.Errorf("gateway: invalid invoice id %q: %w", dto.ID, err)
	}
	customerID, err := uuid.Parse(dto.CustomerID)
	if err != nil {
		return settlement.Invoice{}, fmt.Errorf("gateway: invalid invoice customer id %q: %w", dto.CustomerID, err)
	}
	amounts := make([]decimal.Decimal, 4)
	for i, raw := range []string{dto.TotalAmount, dto.TotalPaidAmount, dto.Discount, dto.BalanceToReceive} {
		if raw == "" {
			continue
		}
		amounts[i], err = decimal.NewFromString(raw)
		if err != nil {
			return settlement.Invoice{}, fmt.Errorf("gateway: invalid invoice amount %q: %w", raw, err)
		}
	}
	return settlement.Invoice{
		ID:               id,
		InvoiceNumber:    dto.InvoiceNumber,
		CustomerID:       customerID,
		TotalAmount:      amounts[0],
		TotalPaidAmount:  amounts[1],
		Discount:         amounts[2],
		BalanceToReceive: amounts[3],
	}, nil
}

func toCreditNote(dto creditNoteDTO) (settlement.CreditNote, error) {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return settlement.CreditNote{}, fmt.Errorf("gateway: invalid credit note id %q: %w", dto.ID, err)
	}
	remaining, err := decimal.NewFromString(dto.RemainingBalance)
	if err != nil {
		return settlement.CreditNote{}, fmt.Errorf("gateway: invalid remaining balance %q: %w", dto.RemainingBalance, err)
	}
	var date time.Time
	if dto.Date != "" {
		date, err = time.Parse("2006-01-02", dto.Date)
		if err != nil {
			return settlement.CreditNote{}, fmt.Errorf("gateway: invalid credit note date %q: %w", dto.Date, err)
		}
	}
	return settlement.CreditNote{
		ID:               id,
		CreditNoteNumber: dto.CreditNoteNumber,
		Description:      dto.Description,
		Date:             date,
		RemainingBalance: remaining,
	}, nil
}
