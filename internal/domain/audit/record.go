// Package audit holds the raw webhook audit trail. Every STK callback the
// provider delivers is recorded with its outcome, including the ones the
// service could not process; the HTTP acknowledgment to the provider is
// unconditional, so this trail is the only place those failures are visible.
package audit

import (
	"time"
)

// Outcome classifies what happened when a callback was processed
type Outcome string

const (
	OutcomeProcessed     Outcome = "processed"
	OutcomeDuplicate     Outcome = "duplicate"      // Terminal update was a no-op, row already terminal
	OutcomeParseError    Outcome = "parse_error"    // Envelope missing the expected nested structure
	OutcomeOrphaned      Outcome = "orphaned"       // No transaction matches the checkout request id
	OutcomeBillingFailed Outcome = "billing_failed" // Transaction completed but billing record failed
)

// CallbackRecord is an append-only record of a received provider callback
type CallbackRecord struct {
	CheckoutRequestID string    `bson:"checkout_request_id,omitempty"`
	MerchantRequestID string    `bson:"merchant_request_id,omitempty"`
	ResultCode        *int      `bson:"result_code,omitempty"`
	ResultDescription string    `bson:"result_description,omitempty"`
	Outcome           Outcome   `bson:"outcome"`
	Detail            string    `bson:"detail,omitempty"` // Error text for non-processed outcomes
	RawPayload        []byte    `bson:"raw_payload,omitempty"`
	ReceivedAt        time.Time `bson:"received_at"`
}
