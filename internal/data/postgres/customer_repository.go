package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noloji/payments-service/internal/domain/customer"
	"github.com/noloji/payments-service/internal/platform/persistence"
)

// CustomerRepository implements the customer.Repository interface for PostgreSQL
type CustomerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCustomerRepository creates a new PostgreSQL customer repository
func NewCustomerRepository(logger *slog.Logger, db *persistence.PostgresDB) customer.Repository {
	return &CustomerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a customer by its ID
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	query := `
		SELECT id, landlord_id, full_name, phone_number, account_number, created_at
		FROM customers
		WHERE id = $1
	`

	var c customer.Customer
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.LandlordID,
		&c.FullName,
		&c.PhoneNumber,
		&c.AccountNumber,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound{CustomerID: id}
		}
		r.logger.Error("Failed to get customer", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &c, nil
}
