package service

import (
	"context"
	"errors"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/pagination"
	"github.com/agentdesk/admin-platform/internal/store"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

// CRMService manages the billing entities. All authenticated users share
// the CRM workspace; there is no per-row ownership.
type CRMService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewCRMService creates a CRM service.
func NewCRMService(st *store.Store, log *logger.Logger) *CRMService {
	return &CRMService{store: st, logger: log}
}

// --- Customers ---

func (s *CRMService) CreateCustomer(ctx context.Context, c *model.Customer) error {
	if err := s.store.CRM.CreateCustomer(ctx, c); err != nil {
		return apperr.Internal("failed to create customer", err)
	}
	return nil
}

func (s *CRMService) GetCustomer(ctx context.Context, id uint) (*model.Customer, error) {
	c, err := s.store.CRM.CustomerByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("customer")
	}
	if err != nil {
		return nil, apperr.Internal("failed to fetch customer", err)
	}
	return c, nil
}

func (s *CRMService) ListCustomers(ctx context.Context, search string, params pagination.Params) ([]model.Customer, pagination.Response, error) {
	customers, total, err := s.store.CRM.ListCustomers(ctx, search, params.Limit, params.Offset)
	if err != nil {
		return nil, pagination.Response{}, apperr.Internal("failed to list customers", err)
	}
	return customers, pagination.NewResponse(total, params), nil
}

func (s *CRMService) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	if _, err := s.GetCustomer(ctx, c.ID); err != nil {
		return err
	}
	if err := s.store.CRM.UpdateCustomer(ctx, c); err != nil {
		return apperr.Internal("failed to update customer", err)
	}
	return nil
}

func (s *CRMService) DeleteCustomer(ctx context.Context, id uint) error {
	if err := s.store.CRM.DeleteCustomer(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("customer")
		}
		return apperr.Internal("failed to delete customer", err)
	}
	return nil
}

// --- Products ---

func (s *CRMService) CreateProduct(ctx context.Context, p *model.Product) error {
	if err := s.store.CRM.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("SKU already exists")
		}
		return apperr.Internal("failed to create product", err)
	}
	return nil
}

func (s *CRMService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	p, err := s.store.CRM.ProductByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("product")
	}
	if err != nil {
		return nil, apperr.Internal("failed to fetch product", err)
	}
	return p, nil
}

func (s *CRMService) ListProducts(ctx context.Context, params pagination.Params) ([]model.Product, pagination.Response, error) {
	products, total, err := s.store.CRM.ListProducts(ctx, params.Limit, params.Offset)
	if err != nil {
		return nil, pagination.Response{}, apperr.Internal("failed to list products", err)
	}
	return products, pagination.NewResponse(total, params), nil
}

func (s *CRMService) UpdateProduct(ctx context.Context, p *model.Product) error {
	if _, err := s.GetProduct(ctx, p.ID); err != nil {
		return err
	}
	if err := s.store.CRM.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("SKU already exists")
		}
		return apperr.Internal("failed to update product", err)
	}
	return nil
}

func (s *CRMService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.store.CRM.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("product")
		}
		return apperr.Internal("failed to delete product", err)
	}
	return nil
}

// --- Invoices ---

// CreateInvoice validates the customer and line items, then persists the
// invoice with its derived total.
func (s *CRMService) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	if len(inv.Items) == 0 {
		return apperr.Validation("invoice requires at least one line item")
	}
	for _, item := range inv.Items {
		if item.Quantity <= 0 {
			return apperr.Validation("line item quantity must be positive")
		}
	}
	if _, err := s.GetCustomer(ctx, inv.CustomerID); err != nil {
		return err
	}
	if inv.Status == "" {
		inv.Status = model.InvoiceDraft
	}

	if err := s.store.CRM.CreateInvoice(ctx, inv); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("invoice number already exists")
		}
		return apperr.Internal("failed to create invoice", err)
	}
	return nil
}

func (s *CRMService) GetInvoice(ctx context.Context, id uint) (*model.Invoice, error) {
	inv, err := s.store.CRM.InvoiceByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("invoice")
	}
	if err != nil {
		return nil, apperr.Internal("failed to fetch invoice", err)
	}
	return inv, nil
}

func (s *CRMService) ListInvoices(ctx context.Context, customerID *uint, status model.InvoiceStatus, params pagination.Params) ([]model.Invoice, pagination.Response, error) {
	invoices, total, err := s.store.CRM.ListInvoices(ctx, customerID, status, params.Limit, params.Offset)
	if err != nil {
		return nil, pagination.Response{}, apperr.Internal("failed to list invoices", err)
	}
	return invoices, pagination.NewResponse(total, params), nil
}

// UpdateInvoiceStatus transitions an invoice between draft, sent, and paid.
func (s *CRMService) UpdateInvoiceStatus(ctx context.Context, id uint, status model.InvoiceStatus) error {
	switch status {
	case model.InvoiceDraft, model.InvoiceSent, model.InvoicePaid:
	default:
		return apperr.Validation("status must be draft, sent, or paid")
	}

	if err := s.store.CRM.UpdateInvoiceStatus(ctx, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("invoice")
		}
		return apperr.Internal("failed to update invoice", err)
	}
	return nil
}

// --- Payments ---

// RecordPayment persists a payment and lets the store mark the invoice
// paid once payments cover its total.
func (s *CRMService) RecordPayment(ctx context.Context, p *model.Payment) error {
	if p.AmountCents <= 0 {
		return apperr.Validation("payment amount must be positive")
	}
	if p.PaidAt.IsZero() {
		return apperr.Validation("paid_at is required")
	}

	if err := s.store.CRM.CreatePayment(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("invoice")
		}
		return apperr.Internal("failed to record payment", err)
	}
	return nil
}

func (s *CRMService) ListPayments(ctx context.Context, invoiceID *uint, params pagination.Params) ([]model.Payment, pagination.Response, error) {
	payments, total, err := s.store.CRM.ListPayments(ctx, invoiceID, params.Limit, params.Offset)
	if err != nil {
		return nil, pagination.Response{}, apperr.Internal("failed to list payments", err)
	}
	return payments, pagination.NewResponse(total, params), nil
}
