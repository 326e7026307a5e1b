package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/agentdesk/admin-platform/internal/model"
)

// CRMStore persists the billing entities: customers, products, invoices,
// and payments.
type CRMStore struct {
	db *gorm.DB
}

// --- Customers ---

func (s *CRMStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("store: create customer: %w", err)
	}
	return nil
}

func (s *CRMStore) CustomerByID(ctx context.Context, id uint) (*model.Customer, error) {
	var c model.Customer
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: customer %d: %w", id, err)
	}
	return &c, nil
}

func (s *CRMStore) ListCustomers(ctx context.Context, search string, limit, offset int) ([]model.Customer, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Customer{})
	if search != "" {
		like := "%" + search + "%"
		db = db.Where("name LIKE ? OR email LIKE ? OR company LIKE ?", like, like, like)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("store: count customers: %w", err)
	}

	var customers []model.Customer
	err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&customers).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store: list customers: %w", err)
	}
	return customers, total, nil
}

func (s *CRMStore) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	err := s.db.WithContext(ctx).Model(c).
		Select("name", "email", "phone", "company", "notes").
		Updates(c).Error
	if err != nil {
		return fmt.Errorf("store: update customer %d: %w", c.ID, err)
	}
	return nil
}

func (s *CRMStore) DeleteCustomer(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Customer{}, id)
	if res.Error != nil {
		return fmt.Errorf("store: delete customer %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Products ---

func (s *CRMStore) CreateProduct(ctx context.Context, p *model.Product) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: create product: %w", err)
	}
	return nil
}

func (s *CRMStore) ProductByID(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: product %d: %w", id, err)
	}
	return &p, nil
}

func (s *CRMStore) ListProducts(ctx context.Context, limit, offset int) ([]model.Product, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Product{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("store: count products: %w", err)
	}

	var products []model.Product
	err := db.Order("name ASC").Limit(limit).Offset(offset).Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store: list products: %w", err)
	}
	return products, total, nil
}

func (s *CRMStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	err := s.db.WithContext(ctx).Model(p).
		Select("name", "sku", "description", "unit_cents", "active").
		Updates(p).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: update product %d: %w", p.ID, err)
	}
	return nil
}

func (s *CRMStore) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return fmt.Errorf("store: delete product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Invoices ---

func (s *CRMStore) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	inv.TotalCents = inv.Items.TotalCents()
	if err := s.db.WithContext(ctx).Create(inv).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: create invoice: %w", err)
	}
	return nil
}

func (s *CRMStore) InvoiceByID(ctx context.Context, id uint) (*model.Invoice, error) {
	var inv model.Invoice
	err := s.db.WithContext(ctx).First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: invoice %d: %w", id, err)
	}
	return &inv, nil
}

func (s *CRMStore) ListInvoices(ctx context.Context, customerID *uint, status model.InvoiceStatus, limit, offset int) ([]model.Invoice, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Invoice{})
	if customerID != nil {
		db = db.Where("customer_id = ?", *customerID)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("store: count invoices: %w", err)
	}

	var invoices []model.Invoice
	err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&invoices).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store: list invoices: %w", err)
	}
	return invoices, total, nil
}

// UpdateInvoiceStatus transitions an invoice's billing state.
func (s *CRMStore) UpdateInvoiceStatus(ctx context.Context, id uint, status model.InvoiceStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("store: update invoice %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Payments ---

// CreatePayment records a payment and marks the invoice paid once the sum
// of payments covers its total.
func (s *CRMStore) CreatePayment(ctx context.Context, p *model.Payment) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv model.Invoice
		if err := tx.First(&inv, p.InvoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}

		var paid int64
		if err := tx.Model(&model.Payment{}).
			Where("invoice_id = ?", p.InvoiceID).
			Select("COALESCE(SUM(amount_cents), 0)").
			Scan(&paid).Error; err != nil {
			return err
		}
		if paid >= inv.TotalCents {
			return tx.Model(&inv).Update("status", model.InvoicePaid).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("store: create payment: %w", err)
	}
	return nil
}

func (s *CRMStore) ListPayments(ctx context.Context, invoiceID *uint, limit, offset int) ([]model.Payment, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Payment{})
	if invoiceID != nil {
		db = db.Where("invoice_id = ?", *invoiceID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("store: count payments: %w", err)
	}

	var payments []model.Payment
	err := db.Order("paid_at DESC").Limit(limit).Offset(offset).Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store: list payments: %w", err)
	}
	return payments, total, nil
}
