package audit

import (
	"context"
)

// Repository records received callbacks. Implementations must tolerate being
// called with partially populated records; the webhook path never fails
// because auditing failed.
type Repository interface {
	Record(ctx context.Context, record *CallbackRecord) error
	GetByCheckoutID(ctx context.Context, checkoutRequestID string) ([]*CallbackRecord, error)
}
