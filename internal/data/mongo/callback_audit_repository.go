package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noloji/payments-service/internal/domain/audit"
)

const (
	// CallbackCollectionName is the name of the callback audit collection in MongoDB
	CallbackCollectionName = "stk_callbacks"
)

// CallbackAuditRepository implements the audit.Repository interface for MongoDB
type CallbackAuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewCallbackAuditRepository creates a new MongoDB callback audit repository
func NewCallbackAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &CallbackAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends a callback record to the audit trail. The trail is
// append-only; duplicate deliveries produce one record each.
func (r *CallbackAuditRepository) Record(ctx context.Context, record *audit.CallbackRecord) error {
	collection := r.db.Collection(CallbackCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to record callback",
			"checkout_request_id", record.CheckoutRequestID,
			"outcome", string(record.Outcome),
			"error", err)
		return fmt.Errorf("failed to record callback: %w", err)
	}

	return nil
}

// GetByCheckoutID retrieves every recorded callback for a checkout request,
// oldest first. An empty slice means no callback has been received.
func (r *CallbackAuditRepository) GetByCheckoutID(ctx context.Context, checkoutRequestID string) ([]*audit.CallbackRecord, error) {
	collection := r.db.Collection(CallbackCollectionName)

	filter := bson.M{"checkout_request_id": checkoutRequestID}
	opts := options.Find().SetSort(bson.M{"received_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get callback records",
			"checkout_request_id", checkoutRequestID,
			"error", err)
		return nil, fmt.Errorf("failed to get callback records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.CallbackRecord
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode callback records",
			"checkout_request_id", checkoutRequestID,
			"error", err)
		return nil, fmt.Errorf("failed to decode callback records: %w", err)
	}

	return records, nil
}
