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

// DeliveryRepository wraps the deliveries collection.
type DeliveryRepository struct {
	coll *mongo.Collection
}

// Create inserts a new delivery.
func (r *DeliveryRepository) Create(ctx context.Context, d *Delivery) error {
	d.ID = primitive.NewObjectID()
	res, err := r.coll.InsertOne(ctx, d)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	d.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID fetches a delivery by its hex ObjectID.
func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*Delivery, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var d Delivery
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return &d, nil
}

// GetBySaleID looks up the delivery created for a sale.
func (r *DeliveryRepository) GetBySaleID(ctx context.Context, saleID primitive.ObjectID) (*Delivery, error) {
	var d Delivery
	err := r.coll.FindOne(ctx, bson.M{"sale_id": saleID}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery by sale: %w", err)
	}
	return &d, nil
}

// ApplyTransition atomically appends a tracking_history entry and updates
// CurrentStatus/UpdatedAt/CurrentLocation/ExpireAt — the single write that
// backs every Delivery state-machine transition (spec §4.5).
func (r *DeliveryRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, event TrackingEvent, expireAt *time.Time) error {
	set := bson.M{
		"current_status": event.Status,
		"updated_at":      event.At,
	}
	if event.Location != nil {
		set["current_location"] = event.Location
	}
	if expireAt != nil {
		set["expire_at"] = *expireAt
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":  set,
			"$push": bson.M{"tracking_history": event},
		},
	)
	if err != nil {
		return fmt.Errorf("apply delivery transition: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignCourier sets courier_profile_id without otherwise touching state,
// called from the delivery agent's assign_courier action.
func (r *DeliveryRepository) AssignCourier(ctx context.Context, id primitive.ObjectID, courierProfileID string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"courier_profile_id": courierProfileID}})
	if err != nil {
		return fmt.Errorf("assign courier: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByStatus returns deliveries in a given status, newest first.
func (r *DeliveryRepository) ListByStatus(ctx context.Context, status DeliveryStatus, limit int64) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := r.coll.Find(ctx, bson.M{"current_status": status},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer cur.Close(ctx)

	var deliveries []Delivery
	if err := cur.All(ctx, &deliveries); err != nil {
		return nil, fmt.Errorf("decode deliveries: %w", err)
	}
	return deliveries, nil
}
