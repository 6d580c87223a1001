package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arbo/backend/internal/domain/settlement"
	"github.com/arbo/backend/internal/infrastructure/persistence/models"
)

// GormCustomerSearcher implements settlement.CustomerSearcher against the
// receivables database
type GormCustomerSearcher struct {
	db *gorm.DB
}

// NewGormCustomerSearcher creates a new GormCustomerSearcher
func NewGormCustomerSearcher(db *gorm.DB) *GormCustomerSearcher {
	return &GormCustomerSearcher{db: db}
}

// Search finds customers whose name or code matches the term
func (r *GormCustomerSearcher) Search(ctx context.Context, term string, pageSize int) ([]settlement.CustomerHit, error) {
	var rows []models.CustomerModel
	pattern := "%" + term + "%"
	if err := r.db.WithContext(ctx).
		Where("name ILIKE ? OR code ILIKE ?", pattern, pattern).
		Order("name ASC").
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	hits := make([]settlement.CustomerHit, 0, len(rows))
	for i := range rows {
		hits = append(hits, rows[i].ToDomain())
	}
	return hits, nil
}

// GormInvoiceStore implements settlement.InvoiceStore
type GormInvoiceStore struct {
	db *gorm.DB
}

// NewGormInvoiceStore creates a new GormInvoiceStore
func NewGormInvoiceStore(db *gorm.DB) *GormInvoiceStore {
	return &GormInvoiceStore{db: db}
}

// ListOutstanding returns the customer's invoices that still carry a balance
func (r *GormInvoiceStore) ListOutstanding(ctx context.Context, customerID uuid.UUID) ([]settlement.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Where("total_amount - total_paid_amount - discount > 0").
		Order("issued_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	invoices := make([]settlement.Invoice, 0, len(rows))
	for i := range rows {
		invoices = append(invoices, rows[i].ToDomain())
	}
	return invoices, nil
}

// GormCreditNoteSearcher implements settlement.CreditNoteSearcher. The
// eligibility contract lives in the query: standalone notes only, with a
// remaining balance.
type GormCreditNoteSearcher struct {
	db *gorm.DB
}

// NewGormCreditNoteSearcher creates a new GormCreditNoteSearcher
func NewGormCreditNoteSearcher(db *gorm.DB) *GormCreditNoteSearcher {
	return &GormCreditNoteSearcher{db: db}
}

// SearchEligible finds standalone credit notes matching the filter
func (r *GormCreditNoteSearcher) SearchEligible(ctx context.Context, filter settlement.CreditNoteFilter) ([]settlement.CreditNote, error) {
	query := r.db.WithContext(ctx).
		Where("invoice_id IS NULL").
		Where("remaining_balance > 0")

	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Term != "" {
		query = query.Where("credit_note_number ILIKE ?", "%"+filter.Term+"%")
	}

	var rows []models.CreditNoteModel
	if err := query.
		Order("date DESC").
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	notes := make([]settlement.CreditNote, 0, len(rows))
	for i := range rows {
		notes = append(notes, rows[i].ToDomain())
	}
	return notes, nil
}

// GormBankAccountLister implements settlement.BankAccountLister
type GormBankAccountLister struct {
	db *gorm.DB
}

// NewGormBankAccountLister creates a new GormBankAccountLister
func NewGormBankAccountLister(db *gorm.DB) *GormBankAccountLister {
	return &GormBankAccountLister{db: db}
}

// List returns the active bank accounts
func (r *GormBankAccountLister) List(ctx context.Context) ([]settlement.BankAccount, error) {
	var rows []models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	accounts := make([]settlement.BankAccount, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].ToDomain())
	}
	return accounts, nil
}
