// Package payment defines the STK push transaction entity and its lifecycle.
// A transaction is created exactly once in pending state at initiation time and
// transitions at most once, to completed or failed. Rows are never deleted;
// the table is the financial audit trail.
package payment

import (
	"time"

	"github.com/google/uuid"
)

// Status defines transaction processing states
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction represents a single STK push attempt. CheckoutRequestID is the
// provider-issued correlation key that joins the initiation record with the
// later callback or status query.
type Transaction struct {
	ID                 uuid.UUID  `json:"id"`
	CustomerID         uuid.UUID  `json:"customer_id"`
	LandlordID         uuid.UUID  `json:"landlord_id"`
	PhoneNumber        string     `json:"phone_number"` // Normalized, digits only
	Amount             int64      `json:"amount"`       // Whole currency units
	AccountReference   string     `json:"account_reference"`
	CheckoutRequestID  string     `json:"checkout_request_id"`
	MerchantRequestID  string     `json:"merchant_request_id"`
	Status             Status     `json:"status"`
	ResultCode         *int       `json:"result_code,omitempty"`
	ResultDescription  string     `json:"result_description,omitempty"`
	MpesaReceiptNumber string     `json:"mpesa_receipt_number,omitempty"`
	BillingPaymentID   *uuid.UUID `json:"billing_payment_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// NewPending creates a transaction in pending state for a freshly accepted
// STK push.
func NewPending(customerID, landlordID uuid.UUID, phoneNumber string, amount int64, accountReference, checkoutRequestID, merchantRequestID string) *Transaction {
	return &Transaction{
		ID:                uuid.New(),
		CustomerID:        customerID,
		LandlordID:        landlordID,
		PhoneNumber:       phoneNumber,
		Amount:            amount,
		AccountReference:  accountReference,
		CheckoutRequestID: checkoutRequestID,
		MerchantRequestID: merchantRequestID,
		Status:            StatusPending,
		CreatedAt:         time.Now(),
	}
}

// TerminalUpdate captures the outcome of a provider callback or status query.
// ReceiptNumber is only meaningful when ResultCode is 0.
type TerminalUpdate struct {
	ResultCode        int
	ResultDescription string
	ReceiptNumber     string
	CompletedAt       time.Time
}

// Status derives the terminal status for the update: result code 0 means the
// customer authorized the payment, anything else is a failure.
func (u TerminalUpdate) Status() Status {
	if u.ResultCode == 0 {
		return StatusCompleted
	}
	return StatusFailed
}
