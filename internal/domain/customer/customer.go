// Package customer holds the tenant entity a payment is initiated for.
package customer

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a billable subscriber belonging to a landlord tenant
type Customer struct {
	ID            uuid.UUID `json:"id"`
	LandlordID    uuid.UUID `json:"landlord_id"`
	FullName      string    `json:"full_name"`
	PhoneNumber   string    `json:"phone_number"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
}
