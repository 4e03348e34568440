package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductRepository wraps the products collection.
type ProductRepository struct {
	coll *mongo.Collection
}

// GetBySKU reads a product by SKU within the calling transaction's
// session context (spec §4.4 step 3: "Read product by SKU (within the
// transaction)").
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	var p Product
	err := r.coll.FindOne(ctx, bson.M{"sku": sku}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product by sku: %w", err)
	}
	return &p, nil
}

// ErrVersionConflict is returned by TryAllocateStock when the observed
// version no longer matches — the caller retries with a fresh read.
var ErrVersionConflict = fmt.Errorf("product version conflict")

// TryAllocateStock performs the conditional update at the heart of
// optimistic stock allocation (spec §4.4 step 3 / §5's
// "Product.version ... optimistic: compare-and-set with bounded retry"):
// decrement available_stock by quantity and bump version, but only if the
// document's version still equals observedVersion. Returns
// ErrVersionConflict on a CAS miss so the orchestrator can re-read and retry.
func (r *ProductRepository) TryAllocateStock(ctx context.Context, productID primitive.ObjectID, observedVersion int64, quantity int) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": productID, "version": observedVersion},
		bson.M{
			"$inc": bson.M{"available_stock": -quantity, "version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("allocate stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

// RestoreStock reverses a prior allocation. Called from
// sales.Service.CancelSale, which runs outside the create-sale transaction
// and so must explicitly compensate each line item's stock decrement.
func (r *ProductRepository) RestoreStock(ctx context.Context, productID primitive.ObjectID, quantity int) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": productID}, bson.M{"$inc": bson.M{"available_stock": quantity}})
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

// ListActive returns active products, for catalog-browsing agent actions.
func (r *ProductRepository) ListActive(ctx context.Context, limit int64) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := r.coll.Find(ctx, bson.M{"active": true}, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer cur.Close(ctx)

	var products []Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}
