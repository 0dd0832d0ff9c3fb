package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/noloji/payments-service/internal/domain/audit"
	"github.com/noloji/payments-service/internal/domain/billing"
	"github.com/noloji/payments-service/internal/domain/payment"
)

func TestTrailService_GetPaymentTrail(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("completed payment with billing and callbacks", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		billingRepo := new(MockBillingRepository)
		auditRepo := new(MockAuditRepository)

		txID := uuid.New()
		billingID := uuid.New()
		tx := &payment.Transaction{ID: txID, CheckoutRequestID: "ws_CO_1", Status: payment.StatusCompleted}
		bp := &billing.Payment{ID: billingID, TransactionID: txID, Receipt: "NLJ7X92M"}
		records := []*audit.CallbackRecord{
			{CheckoutRequestID: "ws_CO_1", Outcome: audit.OutcomeProcessed, ReceivedAt: time.Now()},
		}

		txRepo.On("GetByCheckoutID", ctx, "ws_CO_1").Return(tx, nil)
		billingRepo.On("GetByTransactionID", ctx, txID).Return(bp, nil)
		auditRepo.On("GetByCheckoutID", ctx, "ws_CO_1").Return(records, nil)

		svc := NewTrailService(logger, txRepo, billingRepo, auditRepo)
		trail, err := svc.GetPaymentTrail(ctx, "ws_CO_1")

		require.NoError(t, err)
		assert.Equal(t, tx, trail.Transaction)
		assert.Equal(t, bp, trail.Billing)
		assert.Len(t, trail.Callbacks, 1)
	})

	t.Run("pending payment has nil billing", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		billingRepo := new(MockBillingRepository)
		auditRepo := new(MockAuditRepository)

		txID := uuid.New()
		tx := &payment.Transaction{ID: txID, CheckoutRequestID: "ws_CO_2", Status: payment.StatusPending}

		txRepo.On("GetByCheckoutID", ctx, "ws_CO_2").Return(tx, nil)
		billingRepo.On("GetByTransactionID", ctx, txID).Return(nil, billing.ErrPaymentNotFound{TransactionID: txID})
		auditRepo.On("GetByCheckoutID", ctx, "ws_CO_2").Return([]*audit.CallbackRecord{}, nil)

		svc := NewTrailService(logger, txRepo, billingRepo, auditRepo)
		trail, err := svc.GetPaymentTrail(ctx, "ws_CO_2")

		require.NoError(t, err)
		assert.Nil(t, trail.Billing)
		assert.Empty(t, trail.Callbacks)
	})

	t.Run("unknown checkout id", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		billingRepo := new(MockBillingRepository)
		auditRepo := new(MockAuditRepository)

		txRepo.On("GetByCheckoutID", ctx, "ws_CO_missing").
			Return(nil, payment.ErrTransactionNotFound{CheckoutRequestID: "ws_CO_missing"})

		svc := NewTrailService(logger, txRepo, billingRepo, auditRepo)
		trail, err := svc.GetPaymentTrail(ctx, "ws_CO_missing")

		assert.Nil(t, trail)
		assert.ErrorIs(t, err, payment.ErrTransactionNotFound{})
		billingRepo.AssertNotCalled(t, "GetByTransactionID", mock.Anything, mock.Anything)
	})

	t.Run("audit store failure propagates", func(t *testing.T) {
		txRepo := new(MockTransactionRepository)
		billingRepo := new(MockBillingRepository)
		auditRepo := new(MockAuditRepository)

		txID := uuid.New()
		tx := &payment.Transaction{ID: txID, CheckoutRequestID: "ws_CO_3", Status: payment.StatusFailed}
		auditErr := errors.New("mongo unavailable")

		txRepo.On("GetByCheckoutID", ctx, "ws_CO_3").Return(tx, nil)
		billingRepo.On("GetByTransactionID", ctx, txID).Return(nil, billing.ErrPaymentNotFound{TransactionID: txID})
		auditRepo.On("GetByCheckoutID", ctx, "ws_CO_3").Return(nil, auditErr)

		svc := NewTrailService(logger, txRepo, billingRepo, auditRepo)
		trail, err := svc.GetPaymentTrail(ctx, "ws_CO_3")

		assert.Nil(t, trail)
		assert.ErrorIs(t, err, auditErr)
	})
}
