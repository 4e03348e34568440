package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditRepository wraps the audit_log collection. It never returns an
// error the caller is expected to propagate as a request failure — the
// audit sink is best-effort by design (spec §9: audit_service "swallows
// failures" in the original).
type AuditRepository struct {
	coll *mongo.Collection
}

// Insert appends rec to the audit log.
func (r *AuditRepository) Insert(ctx context.Context, rec *AuditRecord) error {
	_, err := r.coll.InsertOne(ctx, rec)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListByActor returns the most recent audit entries for an actor, used by
// admin-facing audit-review tooling.
func (r *AuditRepository) ListByActor(ctx context.Context, actorID string, limit int64) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := r.coll.Find(ctx, bson.M{"actor_id": actorID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer cur.Close(ctx)

	var records []AuditRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode audit records: %w", err)
	}
	return records, nil
}
