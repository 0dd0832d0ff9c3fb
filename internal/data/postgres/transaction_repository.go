// Package postgres provides PostgreSQL implementations of the domain
// repositories. The payment transaction table is the system of record for the
// STK push lifecycle; rows are inserted once in pending state and mutated at
// most once by a guarded terminal update.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/noloji/payments-service/internal/domain/payment"
	"github.com/noloji/payments-service/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

// TransactionRepository implements the payment.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransactionRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const transactionColumns = `id, customer_id, landlord_id, phone_number, amount, account_reference,
		       checkout_request_id, merchant_request_id, status, result_code, result_description,
		       mpesa_receipt_number, billing_payment_id, created_at, completed_at`

// InsertPending stores a freshly initiated transaction in pending state
func (r *TransactionRepository) InsertPending(ctx context.Context, tx *payment.Transaction) error {
	query := `
		INSERT INTO payment_transactions (id, customer_id, landlord_id, phone_number, amount, account_reference, checkout_request_id, merchant_request_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID,
		tx.CustomerID,
		tx.LandlordID,
		tx.PhoneNumber,
		tx.Amount,
		tx.AccountReference,
		tx.CheckoutRequestID,
		tx.MerchantRequestID,
		tx.Status,
		tx.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return payment.ErrDuplicateCheckoutID{CheckoutRequestID: tx.CheckoutRequestID}
		}
		r.logger.Error("Failed to insert payment transaction",
			"checkout_request_id", tx.CheckoutRequestID,
			"error", err,
		)
		return fmt.Errorf("failed to insert payment transaction: %w", err)
	}

	return nil
}

// GetByCheckoutID retrieves a transaction by its provider correlation key
func (r *TransactionRepository) GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE checkout_request_id = $1
	`

	tx, err := r.scanOne(r.querier.QueryRow(ctx, query, checkoutRequestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound{CheckoutRequestID: checkoutRequestID}
		}
		r.logger.Error("Failed to get payment transaction",
			"checkout_request_id", checkoutRequestID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}

	return tx, nil
}

// UpdateTerminal applies a terminal outcome to a still-pending row. The
// status guard in the WHERE clause is what makes repeated callbacks and the
// callback/poller race idempotent: a row that already reached a terminal
// state is never rewritten.
func (r *TransactionRepository) UpdateTerminal(ctx context.Context, checkoutRequestID string, update payment.TerminalUpdate) (bool, error) {
	query := `
		UPDATE payment_transactions
		SET status = $1, result_code = $2, result_description = $3, mpesa_receipt_number = $4, completed_at = $5
		WHERE checkout_request_id = $6 AND status = $7
	`

	result, err := r.querier.Exec(ctx, query,
		update.Status(),
		update.ResultCode,
		update.ResultDescription,
		update.ReceiptNumber,
		update.CompletedAt,
		checkoutRequestID,
		payment.StatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to update payment transaction",
			"checkout_request_id", checkoutRequestID,
			"error", err,
		)
		return false, fmt.Errorf("failed to update payment transaction: %w", err)
	}

	if result.RowsAffected() > 0 {
		return true, nil
	}

	// No pending row matched: either the transaction does not exist or it is
	// already terminal. Distinguish so callers can report reconciliation
	// errors for unknown ids.
	if _, err := r.GetByCheckoutID(ctx, checkoutRequestID); err != nil {
		return false, err
	}

	return false, nil
}

// LinkBillingPayment records the billing payment created for a completed transaction
func (r *TransactionRepository) LinkBillingPayment(ctx context.Context, id uuid.UUID, billingPaymentID uuid.UUID) error {
	query := `
		UPDATE payment_transactions
		SET billing_payment_id = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, billingPaymentID, id)
	if err != nil {
		r.logger.Error("Failed to link billing payment",
			"transaction_id", id.String(),
			"billing_payment_id", billingPaymentID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to link billing payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payment.ErrTransactionNotFound{}
	}

	return nil
}

// GetByCustomerID retrieves paginated transactions for a customer, newest first
func (r *TransactionRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*payment.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get transactions by customer", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transactions by customer: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// CountByCustomerID counts all transactions for a customer
func (r *TransactionRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM payment_transactions
		WHERE customer_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, customerID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions by customer", "customer_id", customerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions by customer: %w", err)
	}

	return count, nil
}

// GetStalePending retrieves pending transactions created before the cutoff,
// oldest first, for the reconciliation sweep
func (r *TransactionRepository) GetStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*payment.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, payment.StatusPending, olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to get stale pending transactions", "error", err)
		return nil, fmt.Errorf("failed to get stale pending transactions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *TransactionRepository) scanOne(row pgx.Row) (*payment.Transaction, error) {
	var tx payment.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.CustomerID,
		&tx.LandlordID,
		&tx.PhoneNumber,
		&tx.Amount,
		&tx.AccountReference,
		&tx.CheckoutRequestID,
		&tx.MerchantRequestID,
		&tx.Status,
		&tx.ResultCode,
		&tx.ResultDescription,
		&tx.MpesaReceiptNumber,
		&tx.BillingPaymentID,
		&tx.CreatedAt,
		&tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) scanAll(rows pgx.Rows) ([]*payment.Transaction, error) {
	var transactions []*payment.Transaction
	for rows.Next() {
		tx, err := r.scanOne(rows)
		if err != nil {
			r.logger.Error("Failed to scan payment transaction", "error", err)
			return nil, fmt.Errorf("failed to scan payment transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over payment transactions", "error", err)
		return nil, fmt.Errorf("error iterating over payment transactions: %w", err)
	}

	return transactions, nil
}
