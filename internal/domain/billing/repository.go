package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists billing payment records
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Payment, error)

	// WithTx returns a repository bound to the given transaction, for
	// operations that must commit atomically with other writes.
	WithTx(tx pgx.Tx) Repository
}

// ErrPaymentNotFound indicates missing billing payment
type ErrPaymentNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrPaymentNotFound) Error() string {
	return "billing payment not found for transaction: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrPaymentNotFound
func (e ErrPaymentNotFound) Is(target error) bool {
	t, ok := target.(ErrPaymentNotFound)
	if !ok {
		return false
	}
	// A zero target transaction id matches any ErrPaymentNotFound
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
