package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noloji/payments-service/internal/domain/audit"
	"github.com/noloji/payments-service/internal/domain/billing"
	"github.com/noloji/payments-service/internal/domain/payment"
	"github.com/noloji/payments-service/internal/platform/daraja"
)

// DarajaGateway abstracts the provider client so services can be tested
// without network access
type DarajaGateway interface {
	Configured() bool
	Environment() string
	InitiateSTKPush(ctx context.Context, phoneNumber string, amount int64, accountReference, description string) (*daraja.STKPushResponse, error)
	QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*daraja.STKQueryResponse, error)
}

// TxRunner executes a function inside a single database transaction,
// rolling back when the function returns an error
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// InitiationResult is what a successful STK push initiation returns to the API
type InitiationResult struct {
	Transaction     *payment.Transaction
	CustomerMessage string // Provider text shown to the paying customer
}

// PaymentService defines the payment initiation and status operations
type PaymentService interface {
	// InitiatePayment triggers an STK push for the customer and records the
	// pending transaction. An empty phoneNumber or accountReference falls back
	// to the customer record; a caller-supplied phone is normalized before the
	// push. Returns ErrProviderNotConfigured when Daraja credentials are
	// absent, ErrAmountOutOfRange on an invalid amount, and
	// customer.ErrCustomerNotFound for an unknown customer. Provider-side
	// failures (auth, rejection, transport) pass through from the gateway and
	// leave no row behind.
	InitiatePayment(ctx context.Context, customerID uuid.UUID, phoneNumber string, amount float64, accountReference, description string) (*InitiationResult, error)

	// GetPaymentStatus returns the current view of a transaction. A terminal
	// row is returned as-is without contacting the provider. A pending row
	// triggers a provider status query; a terminal result is applied through
	// the guarded update before the refreshed row is returned, and a query
	// failure or still-in-flight result returns the pending row unchanged.
	GetPaymentStatus(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error)

	// GetCustomerPayments retrieves a customer's transactions, newest first,
	// with the total count for pagination.
	GetCustomerPayments(ctx context.Context, customerID uuid.UUID, page, perPage int) ([]*payment.Transaction, int64, error)
}

// CallbackService processes provider STK callbacks. The returned outcome is
// what was recorded in the audit trail; the webhook handler acknowledges the
// provider with 200 regardless.
type CallbackService interface {
	ProcessCallback(ctx context.Context, envelope *daraja.STKCallbackEnvelope, rawPayload []byte) audit.Outcome
}

// BillingService records the billing side of a completed payment
type BillingService interface {
	// RecordPayment inserts the billing payment row and links it on the
	// transaction in one database transaction, then publishes the payment
	// completed event. The event publish is best-effort; a failure there does
	// not fail the call.
	RecordPayment(ctx context.Context, tx *payment.Transaction, result *daraja.CallbackResult) (*billing.Payment, error)
}

// PaymentTrail is the operator view of everything recorded for one push: the
// transaction, its billing payment when one exists, and the raw callback
// audit trail.
type PaymentTrail struct {
	Transaction *payment.Transaction
	Billing     *billing.Payment
	Callbacks   []*audit.CallbackRecord
}

// TrailService assembles the reconciliation view of a payment across the
// transactional store and the callback audit trail
type TrailService interface {
	// GetPaymentTrail returns the trail for a checkout request id. Returns
	// payment.ErrTransactionNotFound when no transaction matches; a missing
	// billing row leaves Billing nil.
	GetPaymentTrail(ctx context.Context, checkoutRequestID string) (*PaymentTrail, error)
}

// ErrProviderNotConfigured indicates Daraja credentials are missing and STK
// initiation cannot proceed
var ErrProviderNotConfigured = errors.New("payment provider is not configured")

// ErrAmountOutOfRange indicates the requested amount is outside the accepted range
type ErrAmountOutOfRange struct {
	Amount  float64
	Ceiling int64
}

func (e ErrAmountOutOfRange) Error() string {
	return fmt.Sprintf("amount %.2f is outside the accepted range [1, %d]", e.Amount, e.Ceiling)
}

// Is implements the errors.Is interface for ErrAmountOutOfRange
func (e ErrAmountOutOfRange) Is(target error) bool {
	_, ok := target.(ErrAmountOutOfRange)
	return ok
}
