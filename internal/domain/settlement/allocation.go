package settlement

import (
	"github.com/arbo/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashEntryMode represents the state of the cash-received field
type CashEntryMode string

const (
	// CashEntryAuto tracks the cash still required after all other funding
	// sources are applied; every upstream change updates the field.
	CashEntryAuto CashEntryMode = "AUTO"
	// CashEntryManual freezes the field at the user's last typed value
	// until an explicit reset or clear returns it to AUTO.
	CashEntryManual CashEntryMode = "MANUAL"
)

// IsValid checks if the mode is a valid CashEntryMode
func (m CashEntryMode) IsValid() bool {
	return m == CashEntryAuto || m == CashEntryManual
}

// String returns the string representation of CashEntryMode
func (m CashEntryMode) String() string {
	return string(m)
}

// CashEntryState is the two-state machine behind the cash-received field.
// Amount is only meaningful in MANUAL mode; in AUTO mode the calculator
// derives the received amount from the other funding sources.
type CashEntryState struct {
	Mode   CashEntryMode   `json:"mode"`
	Amount decimal.Decimal `json:"amount"`
}

// NewCashEntryState returns the initial AUTO state
func NewCashEntryState() CashEntryState {
	return CashEntryState{Mode: CashEntryAuto}
}

// Override moves to MANUAL, freezing the field at the user's value
func (c CashEntryState) Override(amount decimal.Decimal) CashEntryState {
	return CashEntryState{Mode: CashEntryManual, Amount: amount}
}

// Reset returns to AUTO; the field re-tracks the required cash
func (c CashEntryState) Reset() CashEntryState {
	return CashEntryState{Mode: CashEntryAuto}
}

// IsManual reports whether the user has overridden the field
func (c CashEntryState) IsManual() bool {
	return c.Mode == CashEntryManual
}

// CustomerBalanceState carries the customer's stored credit balance and the
// user's choice of how much of it to apply to this settlement.
type CustomerBalanceState struct {
	CustomerID    uuid.UUID       `json:"customer_id"`
	StoredBalance decimal.Decimal `json:"stored_balance"`
	Contribution  decimal.Decimal `json:"contribution"`
	UseBalance    bool            `json:"use_balance"`
}

// AllocationResult is the complete derived state of a settlement. It is a
// deterministic function of the drafts, balance state, deductions and cash
// state; it is recomputed from scratch on every change and never patched.
// Validity is a field, not an exception.
type AllocationResult struct {
	PaymentsTotal            decimal.Decimal `json:"payments_total"`
	TotalCreditNoteDeduction decimal.Decimal `json:"total_credit_note_deduction"`
	ClampedBalanceDeduction  decimal.Decimal `json:"clamped_balance_deduction"`
	// CashRequired is the cash that, combined with the balance and
	// credit-note deductions, exactly covers the invoices. It is the
	// auto-fill value for the received-amount field.
	CashRequired           decimal.Decimal `json:"cash_required"`
	ReceivedAmount         decimal.Decimal `json:"received_amount"`
	TotalCoverage          decimal.Decimal `json:"total_coverage"`
	ExcessAmount           decimal.Decimal `json:"excess_amount"`
	RemainingAmount        decimal.Decimal `json:"remaining_amount"`
	ProjectedBalanceAfter  decimal.Decimal `json:"projected_balance_after"`
	CoverageValid          bool            `json:"coverage_valid"`
	ReceivedAmountIsManual bool            `json:"received_amount_is_manual"`
}

// ComputeAllocation splits a settlement across the three funding sources:
// incoming cash, the stored customer balance, and the attached credit notes.
// Pure function, no I/O; it always returns a complete, internally consistent
// result, including invalid ones (CoverageValid false).
func ComputeAllocation(
	drafts []PaymentDraft,
	balance CustomerBalanceState,
	deductions []CreditNoteDeduction,
	cash CashEntryState,
) AllocationResult {
	paymentsTotal := decimal.Zero
	for _, d := range drafts {
		paymentsTotal = paymentsTotal.Add(d.Amount)
	}

	safeMaxBalanceUsage := valueobject.NonNegative(valueobject.Min(balance.StoredBalance, paymentsTotal))

	clampedBalance := decimal.Zero
	if balance.UseBalance {
		clampedBalance = valueobject.Min(valueobject.NonNegative(balance.Contribution), safeMaxBalanceUsage)
	}

	totalDeduction := decimal.Zero
	for _, d := range deductions {
		totalDeduction = totalDeduction.Add(d.EffectiveAmount())
	}

	cashRequired := valueobject.NonNegative(paymentsTotal.Sub(clampedBalance).Sub(totalDeduction))

	received := cashRequired
	if cash.IsManual() {
		received = cash.Amount
	}

	totalCoverage := received.Add(clampedBalance).Add(totalDeduction)
	excess := valueobject.NonNegative(totalCoverage.Sub(paymentsTotal))
	remaining := valueobject.NonNegative(paymentsTotal.Sub(totalCoverage))

	// Money received beyond what the invoices need is not rejected; it is
	// banked back onto the customer's stored balance.
	projected := valueobject.NonNegative(balance.StoredBalance.Sub(clampedBalance).Add(excess))

	return AllocationResult{
		PaymentsTotal:            paymentsTotal,
		TotalCreditNoteDeduction: totalDeduction,
		ClampedBalanceDeduction:  clampedBalance,
		CashRequired:             cashRequired,
		ReceivedAmount:           received,
		TotalCoverage:            totalCoverage,
		ExcessAmount:             excess,
		RemainingAmount:          remaining,
		CoverageValid:            remaining.LessThan(valueobject.CoverageEpsilon),
		ProjectedBalanceAfter:    projected,
		ReceivedAmountIsManual:   cash.IsManual(),
	}
}
