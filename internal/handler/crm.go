package handler

import (
	"net/http"

	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/service"
	"github.com/agentdesk/admin-platform/internal/validate"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

// CRMHandler handles the billing endpoints: customers, products,
// invoices, and payments.
type CRMHandler struct {
	crm    *service.CRMService
	logger *logger.Logger
}

// NewCRMHandler creates a CRM handler.
func NewCRMHandler(crm *service.CRMService, log *logger.Logger) *CRMHandler {
	return &CRMHandler{crm: crm, logger: log}
}

// --- Customers ---

// CreateCustomer handles POST /api/customers.
func (h *CRMHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var customer model.Customer
	if err := decodeBody(r, &customer); err != nil {
		writeError(w, err)
		return
	}
	if res := validate.Required(map[string]string{"name": customer.Name}); !res.Valid {
		writeValidation(w, res.Errors)
		return
	}
	customer.ID = 0

	if err := h.crm.CreateCustomer(r.Context(), &customer); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, customer)
}

// GetCustomer handles GET /api/customers/{id}.
func (h *CRMHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	customer, err := h.crm.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, customer)
}

// ListCustomers handles GET /api/customers with optional ?search=.
func (h *CRMHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, page, err := h.crm.ListCustomers(r.Context(), r.URL.Query().Get("search"), pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, customers, page)
}

// UpdateCustomer handles PUT /api/customers/{id}.
func (h *CRMHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var customer model.Customer
	if err := decodeBody(r, &customer); err != nil {
		writeError(w, err)
		return
	}
	customer.ID = id

	if err := h.crm.UpdateCustomer(r.Context(), &customer); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, customer)
}

// DeleteCustomer handles DELETE /api/customers/{id}.
func (h *CRMHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.crm.DeleteCustomer(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "customer deleted", nil)
}

// --- Products ---

// CreateProduct handles POST /api/products.
func (h *CRMHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product model.Product
	if err := decodeBody(r, &product); err != nil {
		writeError(w, err)
		return
	}
	if res := validate.Required(map[string]string{
		"name": product.Name,
		"sku":  product.SKU,
	}); !res.Valid {
		writeValidation(w, res.Errors)
		return
	}
	product.ID = 0

	if err := h.crm.CreateProduct(r.Context(), &product); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, product)
}

// GetProduct handles GET /api/products/{id}.
func (h *CRMHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.crm.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, product)
}

// ListProducts handles GET /api/products.
func (h *CRMHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, page, err := h.crm.ListProducts(r.Context(), pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, products, page)
}

// UpdateProduct handles PUT /api/products/{id}.
func (h *CRMHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var product model.Product
	if err := decodeBody(r, &product); err != nil {
		writeError(w, err)
		return
	}
	product.ID = id

	if err := h.crm.UpdateProduct(r.Context(), &product); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/{id}.
func (h *CRMHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.crm.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "product deleted", nil)
}

// --- Invoices ---

// CreateInvoice handles POST /api/invoices.
func (h *CRMHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var invoice model.Invoice
	if err := decodeBody(r, &invoice); err != nil {
		writeError(w, err)
		return
	}
	if invoice.CustomerID == 0 {
		writeValidation(w, []string{"customer_id must be a positive integer"})
		return
	}
	if res := validate.Required(map[string]string{"number": invoice.Number}); !res.Valid {
		writeValidation(w, res.Errors)
		return
	}
	invoice.ID = 0

	if err := h.crm.CreateInvoice(r.Context(), &invoice); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, invoice)
}

// GetInvoice handles GET /api/invoices/{id}.
func (h *CRMHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	invoice, err := h.crm.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, invoice)
}

// ListInvoices handles GET /api/invoices with optional customerId and
// status filters.
func (h *CRMHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	var customerID *uint
	if raw := r.URL.Query().Get("customerId"); raw != "" {
		id, res := validate.ID(raw)
		if !res.Valid {
			writeValidation(w, []string{"customerId must be a positive integer"})
			return
		}
		customerID = &id
	}
	status := model.InvoiceStatus(r.URL.Query().Get("status"))

	invoices, page, err := h.crm.ListInvoices(r.Context(), customerID, status, pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, invoices, page)
}

type invoiceStatusRequest struct {
	Status string `json:"status"`
}

// UpdateInvoiceStatus handles PUT /api/invoices/{id}/status.
func (h *CRMHandler) UpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req invoiceStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.crm.UpdateInvoiceStatus(r.Context(), id, model.InvoiceStatus(req.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "invoice status updated", nil)
}

// --- Payments ---

// RecordPayment handles POST /api/payments.
func (h *CRMHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var payment model.Payment
	if err := decodeBody(r, &payment); err != nil {
		writeError(w, err)
		return
	}
	if payment.InvoiceID == 0 {
		writeValidation(w, []string{"invoice_id must be a positive integer"})
		return
	}
	payment.ID = 0

	if err := h.crm.RecordPayment(r.Context(), &payment); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, payment)
}

// ListPayments handles GET /api/payments with optional ?invoiceId=.
func (h *CRMHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	var invoiceID *uint
	if raw := r.URL.Query().Get("invoiceId"); raw != "" {
		id, res := validate.ID(raw)
		if !res.Valid {
			writeValidation(w, []string{"invoiceId must be a positive integer"})
			return
		}
		invoiceID = &id
	}

	payments, page, err := h.crm.ListPayments(r.Context(), invoiceID, pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, payments, page)
}
