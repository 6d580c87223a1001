package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arbo/backend/internal/domain/settlement"
)

// CustomerModel maps the customers table
type CustomerModel struct {
	ID      uuid.UUID       `gorm:"type:uuid;primary_key"`
	Code    string          `gorm:"not null;index"`
	Name    string          `gorm:"not null;index"`
	Balance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
}

// TableName returns the table name
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the model to a customer hit
func (m *CustomerModel) ToDomain() settlement.CustomerHit {
	return settlement.CustomerHit{
		ID:      m.ID,
		Name:    m.Name,
		Code:    m.Code,
		Balance: m.Balance,
	}
}

// InvoiceModel maps the invoices table
type InvoiceModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceNumber   string          `gorm:"not null;uniqueIndex"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	TotalPaidAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	Discount        decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	IssuedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model to an invoice read model. The balance to
// receive is derived here so the domain never sees raw ledger columns.
func (m *InvoiceModel) ToDomain() settlement.Invoice {
	return settlement.Invoice{
		ID:               m.ID,
		InvoiceNumber:    m.InvoiceNumber,
		CustomerID:       m.CustomerID,
		TotalAmount:      m.TotalAmount,
		TotalPaidAmount:  m.TotalPaidAmount,
		Discount:         m.Discount,
		BalanceToReceive: m.TotalAmount.Sub(m.TotalPaidAmount).Sub(m.Discount),
	}
}

// CreditNoteModel maps the credit_notes table. InvoiceID is set for notes
// tied to a specific invoice; only standalone notes (NULL InvoiceID) are
// eligible as settlement funding sources.
type CreditNoteModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	CreditNoteNumber string          `gorm:"not null;uniqueIndex"`
	CustomerID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID        *uuid.UUID      `gorm:"type:uuid;index"`
	Description      string
	Date             time.Time       `gorm:"not null"`
	RemainingBalance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
}

// TableName returns the table name
func (CreditNoteModel) TableName() string {
	return "credit_notes"
}

// ToDomain converts the model to a credit note read model
func (m *CreditNoteModel) ToDomain() settlement.CreditNote {
	return settlement.CreditNote{
		ID:               m.ID,
		CreditNoteNumber: m.CreditNoteNumber,
		Description:      m.Description,
		Date:             m.Date,
		RemainingBalance: m.RemainingBalance,
	}
}

// BankAccountModel maps the bank_accounts table
type BankAccountModel struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key"`
	Name   string    `gorm:"not null"`
	Active bool      `gorm:"not null;default:true"`
}

// TableName returns the table name
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the model to a bank account read model
func (m *BankAccountModel) ToDomain() settlement.BankAccount {
	return settlement.BankAccount{
		ID:   m.ID,
		Name: m.Name,
	}
}
