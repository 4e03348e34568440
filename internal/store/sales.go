package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by repository lookups that find nothing,
// mirroring the teacher's internal/registry/repository/agent.go sentinel.
var ErrNotFound = fmt.Errorf("not found")

// ErrIdempotentConflict signals a duplicate (client_id, idempotency_key)
// write — the unique index, limited to sales that carry an idempotency_key,
// backing spec §4.4's idempotency_key path.
var ErrIdempotentConflict = fmt.Errorf("idempotent conflict")

// SaleRepository wraps the sales collection.
type SaleRepository struct {
	coll *mongo.Collection
}

// Create inserts sale, using sessCtx when running inside a transaction
// (spec §4.4 step 4). A duplicate idempotency_key collision surfaces as
// ErrIdempotentConflict so the orchestrator can fetch-and-return instead
// of re-executing.
func (r *SaleRepository) Create(ctx context.Context, sale *Sale) error {
	sale.ID = primitive.NewObjectID()
	res, err := r.coll.InsertOne(ctx, sale)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrIdempotentConflict
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	sale.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByIdempotencyKey looks up a previously committed sale for
// (clientID, key), used to make repeated calls with the same
// idempotency_key return the same sale without re-executing steps 3–4.
func (r *SaleRepository) FindByIdempotencyKey(ctx context.Context, clientID, key string) (*Sale, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	var sale Sale
	err := r.coll.FindOne(ctx, bson.M{"client_id": clientID, "idempotency_key": key}).Decode(&sale)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find sale by idempotency key: %w", err)
	}
	return &sale, nil
}

// GetByID fetches a sale by its hex ObjectID.
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*Sale, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var sale Sale
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&sale)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &sale, nil
}

// FindRecentByAgentAndClient scans sales within window for duplicate-intent
// detection (spec §4.4 step 1), excluding cancelled sales.
func (r *SaleRepository) FindRecentByAgentAndClient(ctx context.Context, agentID, clientID string, window time.Duration) ([]Sale, error) {
	since := time.Now().UTC().Add(-window)
	cur, err := r.coll.Find(ctx, bson.M{
		"agent_id":   agentID,
		"client_id":  clientID,
		"created_at": bson.M{"$gte": since},
		"status":     bson.M{"$ne": SaleStatusCancelled},
	}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find recent sales: %w", err)
	}
	defer cur.Close(ctx)

	var sales []Sale
	if err := cur.All(ctx, &sales); err != nil {
		return nil, fmt.Errorf("decode recent sales: %w", err)
	}
	return sales, nil
}

// ListRecentForUser returns the most recent sales visible to agentID,
// newest first, for the `list_recent_sales` agent action.
func (r *SaleRepository) ListRecentForUser(ctx context.Context, agentID string, limit int64) ([]Sale, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := r.coll.Find(ctx, bson.M{"agent_id": agentID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer cur.Close(ctx)

	var sales []Sale
	if err := cur.All(ctx, &sales); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}
	return sales, nil
}

// AppendStatus atomically pushes a new status_history entry and updates
// Status/UpdatedAt — append-only, monotonic per spec §3 invariants.
func (r *SaleRepository) AppendStatus(ctx context.Context, id primitive.ObjectID, event SaleStatusEvent) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":  bson.M{"status": event.Status, "updated_at": event.At},
			"$push": bson.M{"status_history": event},
		},
	)
	if err != nil {
		return fmt.Errorf("append sale status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
