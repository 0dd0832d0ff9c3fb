package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/noloji/payments-service/internal/domain/audit"
	"github.com/noloji/payments-service/internal/domain/payment"
	"github.com/noloji/payments-service/internal/platform/daraja"
)

// CallbackServiceImpl implements the CallbackService interface
type CallbackServiceImpl struct {
	txRepo    payment.Repository
	billing   BillingService
	auditRepo audit.Repository
	logger    *slog.Logger
	now       func() time.Time
}

// NewCallbackService creates a new callback service
func NewCallbackService(logger *slog.Logger, txRepo payment.Repository, billingService BillingService, auditRepo audit.Repository) CallbackService {
	return &CallbackServiceImpl{
		txRepo:    txRepo,
		billing:   billingService,
		auditRepo: auditRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessCallback parses a provider callback, applies the guarded terminal
// update, and on a winning successful transition records the billing payment.
// Every path is recorded in the audit trail; no outcome propagates as an HTTP
// failure to the provider.
func (s *CallbackServiceImpl) ProcessCallback(ctx context.Context, envelope *daraja.STKCallbackEnvelope, rawPayload []byte) audit.Outcome {
	result, err := daraja.ParseCallback(envelope)
	if err != nil {
		s.logger.Error("Failed to parse STK callback", "error", err)
		s.record(ctx, &audit.CallbackRecord{
			Outcome:    audit.OutcomeParseError,
			Detail:     err.Error(),
			RawPayload: rawPayload,
			ReceivedAt: s.now(),
		})
		return audit.OutcomeParseError
	}

	record := &audit.CallbackRecord{
		CheckoutRequestID: result.CheckoutRequestID,
		MerchantRequestID: result.MerchantRequestID,
		ResultCode:        &result.ResultCode,
		ResultDescription: result.ResultDescription,
		RawPayload:        rawPayload,
		ReceivedAt:        s.now(),
	}

	update := payment.TerminalUpdate{
		ResultCode:        result.ResultCode,
		ResultDescription: result.ResultDescription,
		ReceiptNumber:     result.ReceiptNumber,
		CompletedAt:       s.now(),
	}

	transitioned, err := s.txRepo.UpdateTerminal(ctx, result.CheckoutRequestID, update)
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound{}) {
			s.logger.Error("Callback for unknown checkout request id",
				"checkout_request_id", result.CheckoutRequestID,
			)
			record.Outcome = audit.OutcomeOrphaned
			record.Detail = err.Error()
			s.record(ctx, record)
			return audit.OutcomeOrphaned
		}
		s.logger.Error("Failed to apply callback terminal update",
			"checkout_request_id", result.CheckoutRequestID,
			"error", err,
		)
		record.Outcome = audit.OutcomeOrphaned
		record.Detail = err.Error()
		s.record(ctx, record)
		return audit.OutcomeOrphaned
	}

	if !transitioned {
		// The row was already terminal: a duplicate delivery or the poller
		// won the race. The first writer's outcome stands.
		s.logger.Info("Duplicate callback ignored",
			"checkout_request_id", result.CheckoutRequestID,
			"result_code", result.ResultCode,
		)
		record.Outcome = audit.OutcomeDuplicate
		s.record(ctx, record)
		return audit.OutcomeDuplicate
	}

	if result.Success() {
		tx, err := s.txRepo.GetByCheckoutID(ctx, result.CheckoutRequestID)
		if err != nil {
			s.logger.Error("Failed to load transaction for billing",
				"checkout_request_id", result.CheckoutRequestID,
				"error", err,
			)
			record.Outcome = audit.OutcomeBillingFailed
			record.Detail = err.Error()
			s.record(ctx, record)
			return audit.OutcomeBillingFailed
		}

		if _, err := s.billing.RecordPayment(ctx, tx, result); err != nil {
			// The transaction stays completed; billing is repaired manually
			// from the audit trail.
			s.logger.Error("Failed to record billing payment",
				"checkout_request_id", result.CheckoutRequestID,
				"receipt", result.ReceiptNumber,
				"error", err,
			)
			record.Outcome = audit.OutcomeBillingFailed
			record.Detail = err.Error()
			s.record(ctx, record)
			return audit.OutcomeBillingFailed
		}
	}

	s.logger.Info("STK callback processed",
		"checkout_request_id", result.CheckoutRequestID,
		"result_code", result.ResultCode,
		"receipt", result.ReceiptNumber,
	)
	record.Outcome = audit.OutcomeProcessed
	s.record(ctx, record)
	return audit.OutcomeProcessed
}

func (s *CallbackServiceImpl) record(ctx context.Context, record *audit.CallbackRecord) {
	if err := s.auditRepo.Record(ctx, record); err != nil {
		s.logger.Error("Failed to write callback audit record",
			"checkout_request_id", record.CheckoutRequestID,
			"outcome", string(record.Outcome),
			"error", err,
		)
	}
}
