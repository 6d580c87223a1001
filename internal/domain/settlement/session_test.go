package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCustomer(balance string) CustomerHit {
	return CustomerHit{
		ID:      uuid.New(),
		Name:    "Acme Trading",
		Code:    "CUST-001",
		Balance: dec(balance),
	}
}

func customerInvoice(customerID uuid.UUID, number, balance string) Invoice {
	b := dec(balance)
	return Invoice{
		ID:               uuid.New(),
		InvoiceNumber:    number,
		CustomerID:       customerID,
		TotalAmount:      b,
		BalanceToReceive: b,
	}
}

func TestPaymentSession_CustomerBinding(t *testing.T) {
	t.Run("set customer loads stored balance", func(t *testing.T) {
		session := NewPaymentSession()
		customer := testCustomer("250")

		require.NoError(t, session.SetCustomer(customer))

		assert.Equal(t, customer.ID, session.CustomerID)
		assert.Equal(t, "Acme Trading", session.CustomerName)
		assert.True(t, session.Balance().StoredBalance.Equal(dec("250")))
		assert.False(t, session.Balance().UseBalance)
	})

	t.Run("switching customers discards the working set", func(t *testing.T) {
		session := NewPaymentSession()
		first := testCustomer("100")
		require.NoError(t, session.SetCustomer(first))
		require.NoError(t, session.SelectInvoice(customerInvoice(first.ID, "INV-100", "500")))
		require.NoError(t, session.AttachCreditNote(testCreditNote("CN-100", "50")))
		require.NoError(t, session.OverrideReceivedAmount(dec("600")))

		require.NoError(t, session.SetCustomer(testCustomer("900")))

		assert.Equal(t, 0, session.SelectedCount())
		assert.Empty(t, session.Deductions())
		assert.False(t, session.Cash().IsManual(), "cash field returns to auto")
		assert.True(t, session.Allocation().PaymentsTotal.IsZero())
		assert.True(t, session.Balance().StoredBalance.Equal(dec("900")))
	})

	t.Run("re-setting the same customer keeps the working set", func(t *testing.T) {
		session := NewPaymentSession()
		customer := testCustomer("100")
		require.NoError(t, session.SetCustomer(customer))
		require.NoError(t, session.SelectInvoice(customerInvoice(customer.ID, "INV-100", "500")))

		require.NoError(t, session.SetCustomer(customer))

		assert.Equal(t, 1, session.SelectedCount())
	})

	t.Run("foreign invoice rejected", func(t *testing.T) {
		session := NewPaymentSession()
		require.NoError(t, session.SetCustomer(testCustomer("0")))

		err := session.SelectInvoice(customerInvoice(uuid.New(), "INV-999", "100"))

		assert.Error(t, err)
		assert.Equal(t, 0, session.SelectedCount())
	})

	t.Run("select all rejects the whole batch on one foreign invoice", func(t *testing.T) {
		session := NewPaymentSession()
		customer := testCustomer("0")
		require.NoError(t, session.SetCustomer(customer))

		err := session.SelectAllInvoices([]Invoice{
			customerInvoice(customer.ID, "INV-001", "100"),
			customerInvoice(uuid.New(), "INV-002", "100"),
		})

		assert.Error(t, err)
		assert.Equal(t, 0, session.SelectedCount())
	})
}

func TestPaymentSession_AutoCashTracksEdits(t *testing.T) {
	session := NewPaymentSession()
	customer := testCustomer("200")
	require.NoError(t, session.SetCustomer(customer))
	invoice := customerInvoice(customer.ID, "INV-200", "500")
	require.NoError(t, session.SelectInvoice(invoice))

	assert.True(t, session.Allocation().ReceivedAmount.Equal(dec("500")))

	require.NoError(t, session.SetDraftAmount(invoice.ID, dec("300")))
	assert.True(t, session.Allocation().ReceivedAmount.Equal(dec("300")), "auto cash follows the edited draft")

	require.NoError(t, session.SetUseBalance(true))
	require.NoError(t, session.SetBalanceContribution(dec("200")))
	assert.True(t, session.Allocation().ReceivedAmount.Equal(dec("100")), "auto cash shrinks by the balance contribution")

	require.NoError(t, session.OverrideReceivedAmount(dec("150")))
	require.NoError(t, session.SetBalanceContribution(dec("50")))
	assert.True(t, session.Allocation().ReceivedAmount.Equal(dec("150")), "manual cash ignores later edits")
	assert.True(t, session.Allocation().ReceivedAmountIsManual)

	require.NoError(t, session.ResetReceivedAmount())
	assert.True(t, session.Allocation().ReceivedAmount.Equal(dec("250")), "reset resumes tracking the requirement")
	assert.False(t, session.Allocation().ReceivedAmountIsManual)
}

func TestPaymentSession_UseFullBalance(t *testing.T) {
	session := NewPaymentSession()
	customer := testCustomer("800")
	require.NoError(t, session.SetCustomer(customer))
	require.NoError(t, session.SelectInvoice(customerInvoice(customer.ID, "INV-300", "500")))
	require.NoError(t, session.OverrideReceivedAmount(dec("999")))

	require.NoError(t, session.UseFullBalance())

	balance := session.Balance()
	assert.True(t, balance.UseBalance)
	assert.True(t, balance.Contribution.Equal(dec("500")), "contribution capped by the invoice total")
	allocation := session.Allocation()
	assert.True(t, allocation.CashRequired.IsZero())
	assert.True(t, allocation.ReceivedAmount.IsZero(), "cash field back to auto after the override")
	assert.True(t, allocation.CoverageValid)
	assert.True(t, allocation.ProjectedBalanceAfter.Equal(dec("300")))
}

func TestPaymentSession_BalanceContributionClamped(t *testing.T) {
	session := NewPaymentSession()
	customer := testCustomer("200")
	require.NoError(t, session.SetCustomer(customer))
	require.NoError(t, session.SelectInvoice(customerInvoice(customer.ID, "INV-400", "500")))
	require.NoError(t, session.SetUseBalance(true))

	require.NoError(t, session.SetBalanceContribution(dec("9999")))
	assert.True(t, session.Balance().Contribution.Equal(dec("200")), "clamped to the stored balance")

	require.NoError(t, session.SetBalanceContribution(dec("-5")))
	assert.True(t, session.Balance().Contribution.IsZero())

	require.NoError(t, session.SetUseBalance(false))
	assert.True(t, session.Balance().Contribution.IsZero(), "toggling off zeroes the contribution")
	assert.True(t, session.Allocation().ReceivedAmount.Equal(dec("500")))
}

func TestPaymentSession_CreditNoteLifecycle(t *testing.T) {
	session := NewPaymentSession()
	customer := testCustomer("0")
	require.NoError(t, session.SetCustomer(customer))
	require.NoError(t, session.SelectInvoice(customerInvoice(customer.ID, "INV-500", "500")))

	note := testCreditNote("CN-500", "100")
	require.NoError(t, session.AttachCreditNote(note))

	allocation := session.Allocation()
	assert.True(t, allocation.TotalCreditNoteDeduction.Equal(dec("100")))
	assert.True(t, allocation.CashRequired.Equal(dec("400")))

	events := session.GetDomainEvents()
	require.NotEmpty(t, events)
	attached, ok := events[len(events)-1].(*CreditNoteAttachedEvent)
	require.True(t, ok)
	assert.Equal(t, note.ID, attached.CreditNoteID)

	require.NoError(t, session.SetDeductionAmount(note.ID, dec("60")))
	assert.True(t, session.Allocation().CashRequired.Equal(dec("440")))

	require.NoError(t, session.ClearDeductionAmount(note.ID))
	assert.True(t, session.Allocation().CashRequired.Equal(dec("500")), "blank deduction contributes nothing")

	require.NoError(t, session.DetachCreditNote(note.ID))
	assert.Empty(t, session.Deductions())
}

func TestPaymentSession_SubmittedGuard(t *testing.T) {
	session := NewPaymentSession()
	customer := testCustomer("0")
	require.NoError(t, session.SetCustomer(customer))
	invoice := customerInvoice(customer.ID, "INV-600", "500")
	require.NoError(t, session.SelectInvoice(invoice))
	require.NoError(t, session.SetBankAccount(uuid.New()))
	require.NoError(t, session.SetPaymentDate(time.Now()))

	require.NoError(t, session.MarkSubmitted())
	require.True(t, session.IsSubmitted())

	assert.Error(t, session.SelectInvoice(customerInvoice(customer.ID, "INV-601", "100")))
	assert.Error(t, session.SetDraftAmount(invoice.ID, dec("1")))
	assert.Error(t, session.SetUseBalance(true))
	assert.Error(t, session.OverrideReceivedAmount(dec("1")))
	assert.Error(t, session.SetCustomer(testCustomer("0")))
	assert.Error(t, session.MarkSubmitted(), "double submit rejected")

	var found bool
	for _, event := range session.GetDomainEvents() {
		if _, ok := event.(*SettlementSubmittedEvent); ok {
			found = true
		}
	}
	assert.True(t, found, "submission raises its event")
}

func TestPaymentSession_VersionAdvancesPerMutation(t *testing.T) {
	session := NewPaymentSession()
	customer := testCustomer("0")
	before := session.GetVersion()

	require.NoError(t, session.SetCustomer(customer))
	require.NoError(t, session.SelectInvoice(customerInvoice(customer.ID, "INV-700", "100")))
	require.NoError(t, session.SetGlobalDescription("August settlement"))

	assert.Equal(t, before+3, session.GetVersion())
}

func TestPaymentSession_ZeroStateAllocation(t *testing.T) {
	session := NewPaymentSession()

	allocation := session.Allocation()
	assert.True(t, allocation.PaymentsTotal.IsZero())
	assert.True(t, allocation.ReceivedAmount.Equal(decimal.Zero))
	assert.True(t, allocation.CoverageValid, "an empty session owes nothing")
}

func TestPaymentSession_EditsTouchTimestamp(t *testing.T) {
	session := NewPaymentSession()
	created := session.GetCreatedAt()

	require.NoError(t, session.SetGlobalDescription("monthly settlement"))

	assert.False(t, session.GetUpdatedAt().Before(created), "edits move the update timestamp forward")
	assert.Equal(t, created, session.GetCreatedAt(), "creation timestamp never moves")
}
