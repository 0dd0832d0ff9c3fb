package customer

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines customer lookup operations
type Repository interface {
	// GetByID retrieves a customer by id.
	// Returns ErrCustomerNotFound if the customer doesn't exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
}

// ErrCustomerNotFound indicates missing customer
type ErrCustomerNotFound struct {
	CustomerID uuid.UUID
}

func (e ErrCustomerNotFound) Error() string {
	return "customer not found: " + e.CustomerID.String()
}

// Is implements the errors.Is interface for ErrCustomerNotFound
func (e ErrCustomerNotFound) Is(target error) bool {
	t, ok := target.(ErrCustomerNotFound)
	if !ok {
		return false
	}
	if t.CustomerID == uuid.Nil {
		return true
	}
	return e.CustomerID == t.CustomerID
}
