package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noloji/payments-service/internal/domain/billing"
	"github.com/noloji/payments-service/internal/platform/persistence"
)

// BillingRepository implements the billing.Repository interface for PostgreSQL
type BillingRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBillingRepository creates a new PostgreSQL billing payment repository
func NewBillingRepository(logger *slog.Logger, db *persistence.PostgresDB) billing.Repository {
	return &BillingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *BillingRepository) WithTx(tx pgx.Tx) billing.Repository {
	return &BillingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new billing payment record
func (r *BillingRepository) Create(ctx context.Context, p *billing.Payment) error {
	query := `
		INSERT INTO billing_payments (id, transaction_id, customer_id, landlord_id, amount, receipt, phone_number, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.TransactionID,
		p.CustomerID,
		p.LandlordID,
		p.Amount,
		p.Receipt,
		p.PhoneNumber,
		p.PaidAt,
	)
	if err != nil {
		r.logger.Error("Failed to create billing payment",
			"transaction_id", p.TransactionID.String(),
			"receipt", p.Receipt,
			"error", err,
		)
		return fmt.Errorf("failed to create billing payment: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves the billing payment recorded for a transaction
func (r *BillingRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*billing.Payment, error) {
	query := `
		SELECT id, transaction_id, customer_id, landlord_id, amount, receipt, phone_number, paid_at
		FROM billing_payments
		WHERE transaction_id = $1
	`

	var p billing.Payment
	err := r.querier.QueryRow(ctx, query, transactionID).Scan(
		&p.ID,
		&p.TransactionID,
		&p.CustomerID,
		&p.LandlordID,
		&p.Amount,
		&p.Receipt,
		&p.PhoneNumber,
		&p.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrPaymentNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get billing payment", "transaction_id", transactionID.String(), "error", err)
		return nil, fmt.Errorf("failed to get billing payment: %w", err)
	}

	return &p, nil
}
