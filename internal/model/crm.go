package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Customer is a CRM contact.
type Customer struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	Email     string    `json:"email" gorm:"size:255;index"`
	Phone     string    `json:"phone" gorm:"size:32"`
	Company   string    `json:"company" gorm:"size:128"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }

// Product is a billable item.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"size:128;not null"`
	SKU         string    `json:"sku" gorm:"size:64;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	UnitCents   int64     `json:"unit_cents" gorm:"not null;default:0"`
	Active      bool      `json:"active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
)

// LineItem is one invoice line.
type LineItem struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitCents int64  `json:"unit_cents"`
}

// LineItems is stored as a JSON column.
type LineItems []LineItem

// Value implements driver.Valuer.
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("model: marshal line items: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *LineItems) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("model: scan line items: unsupported type %T", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// TotalCents sums quantity times unit price over all lines.
func (l LineItems) TotalCents() int64 {
	var total int64
	for _, item := range l {
		total += int64(item.Quantity) * item.UnitCents
	}
	return total
}

// Invoice bills a customer for a set of line items.
type Invoice struct {
	ID         uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	CustomerID uint          `json:"customer_id" gorm:"not null;index"`
	Number     string        `json:"number" gorm:"size:32;uniqueIndex"`
	Items      LineItems     `json:"items" gorm:"type:json"`
	TotalCents int64         `json:"total_cents" gorm:"not null;default:0"`
	Status     InvoiceStatus `json:"status" gorm:"size:16;default:draft;index"`
	DueAt      *time.Time    `json:"due_at"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	Customer Customer `json:"-" gorm:"foreignKey:CustomerID"`
}

// TableName returns the database table name for Invoice.
func (Invoice) TableName() string { return "invoices" }

// Payment records money received against an invoice.
type Payment struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	InvoiceID   uint      `json:"invoice_id" gorm:"not null;index"`
	AmountCents int64     `json:"amount_cents" gorm:"not null"`
	Method      string    `json:"method" gorm:"size:32"`
	Reference   string    `json:"reference" gorm:"size:64"`
	PaidAt      time.Time `json:"paid_at"`
	CreatedAt   time.Time `json:"created_at"`

	Invoice Invoice `json:"-" gorm:"foreignKey:InvoiceID"`
}

// TableName returns the database table name for Payment.
func (Payment) TableName() string { return "payments" }
