package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/noloji/payments-service/internal/config"
	"github.com/noloji/payments-service/internal/domain/customer"
	"github.com/noloji/payments-service/internal/domain/payment"
	"github.com/noloji/payments-service/internal/platform/daraja"
)

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	gateway      DarajaGateway
	txRepo       payment.Repository
	customerRepo customer.Repository
	cfg          config.DarajaConfig
	logger       *slog.Logger
	now          func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(logger *slog.Logger, cfg config.DarajaConfig, gateway DarajaGateway, txRepo payment.Repository, customerRepo customer.Repository) PaymentService {
	return &PaymentServiceImpl{
		gateway:      gateway,
		txRepo:       txRepo,
		customerRepo: customerRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// InitiatePayment triggers an STK push and records the pending transaction.
// The pending row is inserted only after the provider accepts the push, so a
// rejected or failed initiation leaves no trace in the transactions table.
func (s *PaymentServiceImpl) InitiatePayment(ctx context.Context, customerID uuid.UUID, phoneNumber string, amount float64, accountReference, description string) (*InitiationResult, error) {
	if !s.gateway.Configured() {
		return nil, ErrProviderNotConfigured
	}

	ceiling := s.cfg.AmountCeiling
	if amount < 1 || amount > float64(ceiling) {
		return nil, ErrAmountOutOfRange{Amount: amount, Ceiling: ceiling}
	}
	// M-Pesa only accepts whole currency units; fractional amounts round up
	// so the tenant is never under-billed.
	units := int64(math.Ceil(amount))

	cust, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	// The caller may push to a phone other than the one on file, for example
	// when a relative pays on the tenant's behalf.
	if phoneNumber == "" {
		phoneNumber = cust.PhoneNumber
	}
	phone := daraja.NormalizePhone(phoneNumber, s.cfg.CountryCode)

	if accountReference == "" {
		accountReference = cust.AccountNumber
	}

	resp, err := s.gateway.InitiateSTKPush(ctx, phone, units, accountReference, description)
	if err != nil {
		s.logger.Error("STK push initiation failed",
			"customer_id", customerID.String(),
			"amount", units,
			"error", err,
		)
		return nil, err
	}

	tx := payment.NewPending(cust.ID, cust.LandlordID, phone, units, accountReference, resp.CheckoutRequestID, resp.MerchantRequestID)
	if err := s.txRepo.InsertPending(ctx, tx); err != nil {
		// The push is already in flight on the customer's handset. The
		// callback for it will be recorded as orphaned in the audit trail.
		s.logger.Error("Failed to persist pending transaction for accepted push",
			"checkout_request_id", resp.CheckoutRequestID,
			"customer_id", customerID.String(),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("STK push initiated",
		"checkout_request_id", tx.CheckoutRequestID,
		"customer_id", customerID.String(),
		"amount", units,
	)

	return &InitiationResult{
		Transaction:     tx,
		CustomerMessage: resp.CustomerMessage,
	}, nil
}

// GetPaymentStatus returns the current view of a transaction, querying the
// provider only when the local row is still pending
func (s *PaymentServiceImpl) GetPaymentStatus(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error) {
	tx, err := s.txRepo.GetByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}

	if tx.Status.Terminal() {
		return tx, nil
	}

	resp, err := s.gateway.QuerySTKStatus(ctx, checkoutRequestID)
	if err != nil {
		// Query failures leave the row pending; the caller sees the current
		// view and the reconciler retries later.
		s.logger.Warn("Provider status query failed, returning pending view",
			"checkout_request_id", checkoutRequestID,
			"error", err,
		)
		return tx, nil
	}

	code, ok := resp.TerminalResultCode()
	if !ok {
		return tx, nil
	}

	update := payment.TerminalUpdate{
		ResultCode:        code,
		ResultDescription: resp.ResultDesc,
		CompletedAt:       s.now(),
	}
	if _, err := s.txRepo.UpdateTerminal(ctx, checkoutRequestID, update); err != nil {
		s.logger.Error("Failed to apply polled terminal state",
			"checkout_request_id", checkoutRequestID,
			"result_code", code,
			"error", err,
		)
		return tx, nil
	}

	// Re-read rather than patching the in-memory struct: a concurrent
	// callback may have won the guarded update with richer data.
	return s.txRepo.GetByCheckoutID(ctx, checkoutRequestID)
}

// GetCustomerPayments retrieves paginated transactions for a customer
func (s *PaymentServiceImpl) GetCustomerPayments(ctx context.Context, customerID uuid.UUID, page, perPage int) ([]*payment.Transaction, int64, error) {
	offset := (page - 1) * perPage

	transactions, err := s.txRepo.GetByCustomerID(ctx, customerID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.txRepo.CountByCustomerID(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}
