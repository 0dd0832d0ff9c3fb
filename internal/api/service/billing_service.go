package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noloji/payments-service/internal/domain/billing"
	"github.com/noloji/payments-service/internal/domain/payment"
	"github.com/noloji/payments-service/internal/platform/daraja"
	"github.com/noloji/payments-service/internal/platform/messaging/producers"
)

// transactionDateLayout is the provider's callback metadata timestamp format
const transactionDateLayout = "20060102150405"

// BillingServiceImpl implements the BillingService interface
type BillingServiceImpl struct {
	db          TxRunner
	billingRepo billing.Repository
	txRepo      payment.Repository
	producer    producers.MessagePublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewBillingService creates a new billing service. producer may be nil when
// event publishing is disabled.
func NewBillingService(logger *slog.Logger, db TxRunner, billingRepo billing.Repository, txRepo payment.Repository, producer producers.MessagePublisher) BillingService {
	return &BillingServiceImpl{
		db:          db,
		billingRepo: billingRepo,
		txRepo:      txRepo,
		producer:    producer,
		logger:      logger,
		now:         time.Now,
	}
}

// RecordPayment inserts the billing payment, links it back on the transaction,
// and publishes the payment completed event. Callers invoke it only after
// winning the guarded terminal update, which is what makes it at-most-once.
func (s *BillingServiceImpl) RecordPayment(ctx context.Context, tx *payment.Transaction, result *daraja.CallbackResult) (*billing.Payment, error) {
	amount := result.Amount
	if amount == 0 {
		amount = tx.Amount
	}

	paidAt := s.now()
	if result.TransactionDate != "" {
		if t, err := time.ParseInLocation(transactionDateLayout, result.TransactionDate, time.Local); err == nil {
			paidAt = t
		}
	}

	phone := result.PhoneNumber
	if phone == "" {
		phone = tx.PhoneNumber
	}

	p := &billing.Payment{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		CustomerID:    tx.CustomerID,
		LandlordID:    tx.LandlordID,
		Amount:        amount,
		Receipt:       result.ReceiptNumber,
		PhoneNumber:   phone,
		PaidAt:        paidAt,
	}

	// The billing row and the link on the transaction commit together: a
	// billing record that nothing points at is invisible to reconciliation.
	err := s.db.ExecuteTx(ctx, func(dbTx pgx.Tx) error {
		if err := s.billingRepo.WithTx(dbTx).Create(ctx, p); err != nil {
			return err
		}
		return s.txRepo.WithTx(dbTx).LinkBillingPayment(ctx, tx.ID, p.ID)
	})
	if err != nil {
		return nil, err
	}

	s.publishCompleted(ctx, tx, p)

	s.logger.Info("Billing payment recorded",
		"transaction_id", tx.ID.String(),
		"billing_payment_id", p.ID.String(),
		"receipt", p.Receipt,
		"amount", p.Amount,
	)

	return p, nil
}

func (s *BillingServiceImpl) publishCompleted(ctx context.Context, tx *payment.Transaction, p *billing.Payment) {
	if s.producer == nil {
		return
	}

	event := &producers.PaymentEvent{
		TransactionID:     tx.ID.String(),
		CustomerID:        tx.CustomerID.String(),
		LandlordID:        tx.LandlordID.String(),
		CheckoutRequestID: tx.CheckoutRequestID,
		Amount:            p.Amount,
		ReceiptNumber:     p.Receipt,
		PhoneNumber:       p.PhoneNumber,
		CompletedAt:       p.PaidAt,
	}

	if err := s.producer.Publish(ctx, tx.CheckoutRequestID, event); err != nil {
		// The financial record is already durable; the event is best-effort.
		s.logger.Error("Failed to publish payment completed event",
			"checkout_request_id", tx.CheckoutRequestID,
			"error", err,
		)
	}
}
