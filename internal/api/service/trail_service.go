package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/noloji/payments-service/internal/domain/audit"
	"github.com/noloji/payments-service/internal/domain/billing"
	"github.com/noloji/payments-service/internal/domain/payment"
)

// TrailServiceImpl implements the TrailService interface
type TrailServiceImpl struct {
	txRepo      payment.Repository
	billingRepo billing.Repository
	auditRepo   audit.Repository
	logger      *slog.Logger
}

// NewTrailService creates a new trail service
func NewTrailService(logger *slog.Logger, txRepo payment.Repository, billingRepo billing.Repository, auditRepo audit.Repository) TrailService {
	return &TrailServiceImpl{
		txRepo:      txRepo,
		billingRepo: billingRepo,
		auditRepo:   auditRepo,
		logger:      logger,
	}
}

// GetPaymentTrail assembles the transaction, its billing payment and the raw
// callback records for one checkout request id. Operators use it to reconcile
// a payment against provider statements, in particular the ones whose
// callbacks ended up orphaned or billing_failed.
func (s *TrailServiceImpl) GetPaymentTrail(ctx context.Context, checkoutRequestID string) (*PaymentTrail, error) {
	tx, err := s.txRepo.GetByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}

	trail := &PaymentTrail{Transaction: tx}

	bp, err := s.billingRepo.GetByTransactionID(ctx, tx.ID)
	switch {
	case err == nil:
		trail.Billing = bp
	case errors.Is(err, billing.ErrPaymentNotFound{}):
		// Pending or failed pushes have no billing row.
	default:
		return nil, err
	}

	records, err := s.auditRepo.GetByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		s.logger.Error("Failed to load callback audit trail",
			"checkout_request_id", checkoutRequestID,
			"error", err,
		)
		return nil, err
	}
	trail.Callbacks = records

	return trail, nil
}
