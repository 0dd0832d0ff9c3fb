// Package billing holds the billing payment record created when an STK push
// completes. One record per completed transaction; creation is at-most-once,
// guarded by the transaction's single terminal transition.
package billing

import (
	"time"

	"github.com/google/uuid"
)

// Payment is the billing-side record of a collected M-Pesa payment
type Payment struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	LandlordID    uuid.UUID `json:"landlord_id"`
	Amount        int64     `json:"amount"` // As reported by the provider callback
	Receipt       string    `json:"receipt"`
	PhoneNumber   string    `json:"phone_number"`
	PaidAt        time.Time `json:"paid_at"`
}
