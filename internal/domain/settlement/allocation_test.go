package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func draftWithAmount(amount string) PaymentDraft {
	return PaymentDraft{InvoiceID: uuid.New(), Amount: dec(amount)}
}

func enteredDeduction(amount, remaining string) CreditNoteDeduction {
	return CreditNoteDeduction{
		CreditNoteID:     uuid.New(),
		RemainingBalance: dec(remaining),
		Amount:           dec(amount),
		AmountEntered:    true,
	}
}

// ============================================
// CashEntryMode Tests
// ============================================

func TestCashEntryMode_IsValid(t *testing.T) {
	tests := []struct {
		mode    CashEntryMode
		isValid bool
	}{
		{CashEntryAuto, true},
		{CashEntryManual, true},
		{CashEntryMode("FROZEN"), false},
		{CashEntryMode(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.mode.IsValid())
		})
	}
}

func TestCashEntryState_Transitions(t *testing.T) {
	state := NewCashEntryState()
	assert.Equal(t, CashEntryAuto, state.Mode)
	assert.False(t, state.IsManual())

	state = state.Override(dec("600"))
	assert.True(t, state.IsManual())
	assert.True(t, state.Amount.Equal(dec("600")))

	state = state.Reset()
	assert.False(t, state.IsManual())
}

// ============================================
// ComputeAllocation Tests
// ============================================

func TestComputeAllocation_EmptySelection(t *testing.T) {
	result := ComputeAllocation(nil, CustomerBalanceState{}, nil, NewCashEntryState())

	assert.True(t, result.PaymentsTotal.IsZero())
	assert.True(t, result.CashRequired.IsZero())
	assert.True(t, result.ReceivedAmount.IsZero())
	assert.True(t, result.TotalCoverage.IsZero())
	assert.True(t, result.ExcessAmount.IsZero())
	assert.True(t, result.RemainingAmount.IsZero())
	assert.True(t, result.CoverageValid, "zero selection is trivially covered")
	assert.False(t, result.ReceivedAmountIsManual)
}

func TestComputeAllocation_CashOnly(t *testing.T) {
	// one invoice of 500, no discount change, no other sources
	result := ComputeAllocation(
		[]PaymentDraft{draftWithAmount("500")},
		CustomerBalanceState{},
		nil,
		NewCashEntryState(),
	)

	assert.True(t, result.PaymentsTotal.Equal(dec("500")))
	assert.True(t, result.CashRequired.Equal(dec("500")))
	assert.True(t, result.ReceivedAmount.Equal(dec("500")), "auto-fill tracks required cash")
	assert.True(t, result.CoverageValid)
	assert.True(t, result.ExcessAmount.IsZero())
	assert.True(t, result.RemainingAmount.IsZero())
}

func TestComputeAllocation_WithStoredBalance(t *testing.T) {
	// 500 invoice, 200 stored balance fully applied
	balance := CustomerBalanceState{
		CustomerID:    uuid.New(),
		StoredBalance: dec("200"),
		Contribution:  dec("200"),
		UseBalance:    true,
	}

	result := ComputeAllocation([]PaymentDraft{draftWithAmount("500")}, balance, nil, NewCashEntryState())

	assert.True(t, result.ClampedBalanceDeduction.Equal(dec("200")))
	assert.True(t, result.CashRequired.Equal(dec("300")))
	assert.True(t, result.ReceivedAmount.Equal(dec("300")))
	assert.True(t, result.ProjectedBalanceAfter.IsZero())
	assert.True(t, result.CoverageValid)
}

func TestComputeAllocation_BalanceClamping(t *testing.T) {
	tests := []struct {
		name          string
		stored        string
		contribution  string
		useBalance    bool
		paymentsTotal string
		wantClamped   string
	}{
		{"contribution within bounds", "200", "150", true, "500", "150"},
		{"contribution above stored balance", "200", "400", true, "500", "200"},
		{"contribution above payments total", "800", "700", true, "500", "500"},
		{"negative contribution treated as zero", "200", "-50", true, "500", "0"},
		{"toggle off forces zero", "200", "200", false, "500", "0"},
		{"negative stored balance", "-100", "50", true, "500", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance := CustomerBalanceState{
				StoredBalance: dec(tt.stored),
				Contribution:  dec(tt.contribution),
				UseBalance:    tt.useBalance,
			}
			result := ComputeAllocation([]PaymentDraft{draftWithAmount(tt.paymentsTotal)}, balance, nil, NewCashEntryState())

			assert.True(t, result.ClampedBalanceDeduction.Equal(dec(tt.wantClamped)),
				"clamped = %s, want %s", result.ClampedBalanceDeduction, tt.wantClamped)
			// property: clamped is always within [0, min(stored, paymentsTotal)]
			assert.False(t, result.ClampedBalanceDeduction.IsNegative())
		})
	}
}

func TestComputeAllocation_CreditNoteDeduction(t *testing.T) {
	// 100 credit note against a 500 settlement
	result := ComputeAllocation(
		[]PaymentDraft{draftWithAmount("500")},
		CustomerBalanceState{},
		[]CreditNoteDeduction{enteredDeduction("100", "100")},
		NewCashEntryState(),
	)

	assert.True(t, result.TotalCreditNoteDeduction.Equal(dec("100")))
	assert.True(t, result.CashRequired.Equal(dec("400")))
	assert.True(t, result.ReceivedAmount.Equal(dec("400")))
	assert.True(t, result.CoverageValid)
}

func TestComputeAllocation_BlankDeductionContributesNothing(t *testing.T) {
	blank := CreditNoteDeduction{CreditNoteID: uuid.New(), RemainingBalance: dec("100")}

	result := ComputeAllocation(
		[]PaymentDraft{draftWithAmount("500")},
		CustomerBalanceState{},
		[]CreditNoteDeduction{blank},
		NewCashEntryState(),
	)

	assert.True(t, result.TotalCreditNoteDeduction.IsZero())
	assert.True(t, result.CashRequired.Equal(dec("500")))
}

func TestComputeAllocation_ManualOverpayment(t *testing.T) {
	// received manually set to 600 against 500 of invoices
	result := ComputeAllocation(
		[]PaymentDraft{draftWithAmount("500")},
		CustomerBalanceState{StoredBalance: dec("80")},
		nil,
		NewCashEntryState().Override(dec("600")),
	)

	assert.True(t, result.ReceivedAmount.Equal(dec("600")))
	assert.True(t, result.ExcessAmount.Equal(dec("100")))
	assert.True(t, result.RemainingAmount.IsZero())
	assert.True(t, result.CoverageValid)
	assert.True(t, result.ProjectedBalanceAfter.Equal(dec("180")), "excess banked onto stored balance")
	assert.True(t, result.ReceivedAmountIsManual)
}

func TestComputeAllocation_ManualShortfall(t *testing.T) {
	// received manually set to 400 against 500 of invoices
	result := ComputeAllocation(
		[]PaymentDraft{draftWithAmount("500")},
		CustomerBalanceState{},
		nil,
		NewCashEntryState().Override(dec("400")),
	)

	assert.True(t, result.RemainingAmount.Equal(dec("100")))
	assert.True(t, result.ExcessAmount.IsZero())
	assert.False(t, result.CoverageValid)
}

func TestComputeAllocation_CoverageEpsilon(t *testing.T) {
	tests := []struct {
		name      string
		received  string
		wantValid bool
	}{
		{"exact coverage", "500", true},
		{"sub-cent shortfall absorbed", "499.995", true},
		{"one-cent shortfall rejected", "499.99", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeAllocation(
				[]PaymentDraft{draftWithAmount("500")},
				CustomerBalanceState{},
				nil,
				NewCashEntryState().Override(dec(tt.received)),
			)
			assert.Equal(t, tt.wantValid, result.CoverageValid)
		})
	}
}

func TestComputeAllocation_ExcessAndRemainingMutuallyExclusive(t *testing.T) {
	amounts := []string{"0", "250", "499.99", "500", "500.01", "750", "1200"}
	for _, received := range amounts {
		t.Run(received, func(t *testing.T) {
			result := ComputeAllocation(
				[]PaymentDraft{draftWithAmount("500")},
				CustomerBalanceState{StoredBalance: dec("100")},
				nil,
				NewCashEntryState().Override(dec(received)),
			)
			bothPositive := result.ExcessAmount.IsPositive() && result.RemainingAmount.IsPositive()
			assert.False(t, bothPositive, "excess and remaining must never both be positive")
		})
	}
}

func TestComputeAllocation_Idempotent(t *testing.T) {
	drafts := []PaymentDraft{draftWithAmount("300"), draftWithAmount("450.25")}
	balance := CustomerBalanceState{StoredBalance: dec("120"), Contribution: dec("100"), UseBalance: true}
	deductions := []CreditNoteDeduction{enteredDeduction("75.50", "90")}
	cash := NewCashEntryState().Override(dec("500"))

	first := ComputeAllocation(drafts, balance, deductions, cash)
	second := ComputeAllocation(drafts, balance, deductions, cash)

	assert.Equal(t, first, second, "pure function must be idempotent on identical inputs")
}

func TestComputeAllocation_PaymentsTotalMatchesDrafts(t *testing.T) {
	drafts := []PaymentDraft{draftWithAmount("100.10"), draftWithAmount("0"), draftWithAmount("99.90")}

	result := ComputeAllocation(drafts, CustomerBalanceState{}, nil, NewCashEntryState())

	expected := decimal.Zero
	for _, d := range drafts {
		expected = expected.Add(d.Amount)
	}
	assert.True(t, result.PaymentsTotal.Equal(expected), "no drift between drafts and calculator")
}

func TestComputeAllocation_AllThreeSources(t *testing.T) {
	balance := CustomerBalanceState{
		StoredBalance: dec("150"),
		Contribution:  dec("150"),
		UseBalance:    true,
	}
	deductions := []CreditNoteDeduction{
		enteredDeduction("100", "100"),
		enteredDeduction("50", "200"),
	}

	result := ComputeAllocation([]PaymentDraft{draftWithAmount("500")}, balance, deductions, NewCashEntryState())

	assert.True(t, result.ClampedBalanceDeduction.Equal(dec("150")))
	assert.True(t, result.TotalCreditNoteDeduction.Equal(dec("150")))
	assert.True(t, result.CashRequired.Equal(dec("200")))
	assert.True(t, result.TotalCoverage.Equal(dec("500")))
	assert.True(t, result.CoverageValid)
	assert.True(t, result.ProjectedBalanceAfter.IsZero())
}

func TestComputeAllocation_SourcesExceedInvoicesNeedNoCash(t *testing.T) {
	balance := CustomerBalanceState{
		StoredBalance: dec("1000"),
		Contribution:  dec("1000"),
		UseBalance:    true,
	}

	result := ComputeAllocation([]PaymentDraft{draftWithAmount("300")}, balance, nil, NewCashEntryState())

	assert.True(t, result.ClampedBalanceDeduction.Equal(dec("300")), "clamped to payments total")
	assert.True(t, result.CashRequired.IsZero())
	assert.True(t, result.ReceivedAmount.IsZero())
	assert.True(t, result.CoverageValid)
	assert.True(t, result.ProjectedBalanceAfter.Equal(dec("700")))
}
