package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// serverSelectionTimeout matches spec §5's "Store operations: 5 s server
// selection".
const serverSelectionTimeout = 5 * time.Second

// Client wraps a *mongo.Database and exposes one repository per collection.
// It is built once at boot and shared (read-mostly) across every request,
// the same way the teacher's cmd/registry/main.go builds one *pgxpool.Pool
// and hands it to every repository constructor.
type Client struct {
	db     *mongo.Database
	logger *zap.Logger

	Sales     *SaleRepository
	Products  *ProductRepository
	Profiles  *ProfileRepository
	Deliveries *DeliveryRepository
	Audit     *AuditRepository
	Chat      *ChatRepository
}

// Connect dials the document store at uri/dbName and verifies reachability
// with Ping before returning, mirroring the teacher's pgxpool.New + Ping
// boot-time check in cmd/registry/main.go.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Client, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelectionTimeout)

	mc, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, serverSelectionTimeout)
	defer cancel()
	if err := mc.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}

	db := mc.Database(dbName)
	c := &Client{
		db:         db,
		logger:     logger,
		Sales:      &SaleRepository{coll: db.Collection("sales")},
		Products:   &ProductRepository{coll: db.Collection("products")},
		Profiles:   &ProfileRepository{coll: db.Collection("profiles")},
		Deliveries: &DeliveryRepository{coll: db.Collection("deliveries")},
		Audit:      &AuditRepository{coll: db.Collection("audit_log")},
		Chat:       &ChatRepository{coll: db.Collection("chat_messages")},
	}
	return c, nil
}

// Disconnect releases the underlying connection pool.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.db.Client().Disconnect(ctx)
}

// Ping reports whether the store is reachable — used by GET /status.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, serverSelectionTimeout)
	defer cancel()
	return c.db.Client().Ping(pingCtx, nil)
}

// WithTransaction runs fn inside a multi-document transaction, aborting on
// any returned error — the backbone of the sale-creation orchestrator
// (spec §4.4 step 2/5: "Begin multi-document transaction" / "Any exception
// during 3–4 aborts the transaction; no partial stock changes survive").
func (c *Client) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) (any, error)) (any, error) {
	session, err := c.db.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	return session.WithTransaction(ctx, fn)
}

// EnsureIndexes creates every index named in spec §6. Run from
// `cmd/gateway migrate`.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	if _, err := c.Sales.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "client_id", Value: 1}}},
		{Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$exists": true}})},
	}); err != nil {
		return fmt.Errorf("sales indexes: %w", err)
	}

	if _, err := c.Products.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("products index: %w", err)
	}

	if _, err := c.Profiles.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "whatsapp_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}); err != nil {
		return fmt.Errorf("profiles indexes: %w", err)
	}

	if _, err := c.Deliveries.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sale_id", Value: 1}}},
		{Keys: bson.D{{Key: "current_status", Value: 1}}},
		{Keys: bson.D{{Key: "expire_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}); err != nil {
		return fmt.Errorf("deliveries indexes: %w", err)
	}

	if _, err := c.Chat.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("chat_messages indexes: %w", err)
	}

	if _, err := c.Audit.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("audit_log indexes: %w", err)
	}

	c.logger.Info("store indexes ensured")
	return nil
}
