package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages transaction persistence. All mutation goes through
// "write only if still pending": UpdateTerminal reports whether it actually
// transitioned the row, which is what makes the callback path and the poller
// path race benignly.
type Repository interface {
	// InsertPending stores a freshly initiated transaction.
	// Returns ErrDuplicateCheckoutID if the checkout request id already exists.
	InsertPending(ctx context.Context, tx *Transaction) error

	// GetByCheckoutID retrieves a transaction by its provider correlation key.
	// Returns ErrTransactionNotFound if no row matches.
	GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*Transaction, error)

	// UpdateTerminal applies a terminal outcome to a still-pending row.
	// Returns (true, nil) when the row transitioned, (false, nil) when the row
	// exists but is already terminal, and ErrTransactionNotFound when there is
	// no row for the checkout request id.
	UpdateTerminal(ctx context.Context, checkoutRequestID string, update TerminalUpdate) (bool, error)

	// LinkBillingPayment records the billing payment created for a completed
	// transaction.
	LinkBillingPayment(ctx context.Context, id uuid.UUID, billingPaymentID uuid.UUID) error

	// GetByCustomerID retrieves paginated transactions for a customer, newest
	// first.
	GetByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error)

	// GetStalePending retrieves pending transactions created before the cutoff,
	// oldest first, for the reconciliation sweep.
	GetStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Transaction, error)

	// WithTx returns a repository bound to the given transaction, for
	// operations that must commit atomically with other writes.
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates no transaction matches the checkout request id
type ErrTransactionNotFound struct {
	CheckoutRequestID string
}

func (e ErrTransactionNotFound) Error() string {
	return "payment transaction not found: " + e.CheckoutRequestID
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	// An empty target checkout id matches any ErrTransactionNotFound
	if t.CheckoutRequestID == "" {
		return true
	}
	return e.CheckoutRequestID == t.CheckoutRequestID
}

// ErrDuplicateCheckoutID indicates checkout request id uniqueness violation
type ErrDuplicateCheckoutID struct {
	CheckoutRequestID string
}

func (e ErrDuplicateCheckoutID) Error() string {
	return "duplicate checkout request id: " + e.CheckoutRequestID
}

// Is implements the errors.Is interface for ErrDuplicateCheckoutID
func (e ErrDuplicateCheckoutID) Is(target error) bool {
	t, ok := target.(ErrDuplicateCheckoutID)
	if !ok {
		return false
	}
	if t.CheckoutRequestID == "" {
		return true
	}
	return e.CheckoutRequestID == t.CheckoutRequestID
}
