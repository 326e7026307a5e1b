package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/pagination"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

func newCRMService(t *testing.T) *CRMService {
	t.Helper()
	return NewCRMService(newTestStore(t), logger.NewNop())
}

func TestInvoiceTotals(t *testing.T) {
	svc := newCRMService(t)
	ctx := context.Background()

	customer := &model.Customer{Name: "Acme Corp", Email: "billing@acme.test"}
	require.NoError(t, svc.CreateCustomer(ctx, customer))

	t.Run("total derived from line items", func(t *testing.T) {
		inv := &model.Invoice{
			CustomerID: customer.ID,
			Number:     "INV-001",
			Items: model.LineItems{
				{ProductID: 1, Name: "Seat", Quantity: 3, UnitCents: 1000},
				{ProductID: 2, Name: "Support", Quantity: 1, UnitCents: 5000},
			},
		}
		require.NoError(t, svc.CreateInvoice(ctx, inv))
		assert.Equal(t, int64(8000), inv.TotalCents)
		assert.Equal(t, model.InvoiceDraft, inv.Status)
	})

	t.Run("empty items rejected", func(t *testing.T) {
		inv := &model.Invoice{CustomerID: customer.ID, Number: "INV-002"}
		err := svc.CreateInvoice(ctx, inv)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("unknown customer rejected", func(t *testing.T) {
		inv := &model.Invoice{
			CustomerID: 9999,
			Number:     "INV-003",
			Items:      model.LineItems{{Quantity: 1, UnitCents: 100}},
		}
		err := svc.CreateInvoice(ctx, inv)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("duplicate number conflicts", func(t *testing.T) {
		inv := &model.Invoice{
			CustomerID: customer.ID,
			Number:     "INV-001",
			Items:      model.LineItems{{Quantity: 1, UnitCents: 100}},
		}
		err := svc.CreateInvoice(ctx, inv)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

func TestPaymentsMarkInvoicePaid(t *testing.T) {
	svc := newCRMService(t)
	ctx := context.Background()

	customer := &model.Customer{Name: "Acme Corp"}
	require.NoError(t, svc.CreateCustomer(ctx, customer))

	inv := &model.Invoice{
		CustomerID: customer.ID,
		Number:     "INV-100",
		Items:      model.LineItems{{Quantity: 2, UnitCents: 2500}},
		Status:     model.InvoiceSent,
	}
	require.NoError(t, svc.CreateInvoice(ctx, inv))

	now := time.Now().UTC()

	t.Run("partial payment leaves invoice open", func(t *testing.T) {
		err := svc.RecordPayment(ctx, &model.Payment{
			InvoiceID: inv.ID, AmountCents: 2000, Method: "card", PaidAt: now,
		})
		require.NoError(t, err)

		got, err := svc.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceSent, got.Status)
	})

	t.Run("covering payment marks paid", func(t *testing.T) {
		err := svc.RecordPayment(ctx, &model.Payment{
			InvoiceID: inv.ID, AmountCents: 3000, Method: "card", PaidAt: now,
		})
		require.NoError(t, err)

		got, err := svc.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, model.InvoicePaid, got.Status)
	})

	t.Run("invalid payments rejected", func(t *testing.T) {
		err := svc.RecordPayment(ctx, &model.Payment{InvoiceID: inv.ID, AmountCents: 0, PaidAt: now})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))

		err = svc.RecordPayment(ctx, &model.Payment{InvoiceID: inv.ID, AmountCents: 100})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("payments list filters by invoice", func(t *testing.T) {
		rows, page, err := svc.ListPayments(ctx, &inv.ID, pagination.Params{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		assert.Len(t, rows, 2)
	})
}
