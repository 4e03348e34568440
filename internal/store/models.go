// Package store holds the document-store repositories: sales, products,
// profiles, deliveries, audit log, and chat messages. Each repository
// wraps a *mongo.Collection and exposes domain-shaped queries; optimistic
// concurrency on Product.version is implemented here via a conditional
// update keyed on the caller's observed version (TryAllocateStock).
package store

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"github.com/shopspring/decimal"
)

// SaleStatus enumerates the lifecycle of a Sale.
type SaleStatus string

const (
	SaleStatusPendingPayment SaleStatus = "pending_payment"
	SaleStatusProcessing     SaleStatus = "processing"
	SaleStatusCompleted      SaleStatus = "completed"
	SaleStatusShipping       SaleStatus = "shipping"
	SaleStatusDelivered      SaleStatus = "delivered"
	SaleStatusCancelled      SaleStatus = "cancelled"
	SaleStatusRefunded       SaleStatus = "refunded"
	SaleStatusError          SaleStatus = "error"
)

// AgentType is the kind of actor that created a Sale.
type AgentType string

const (
	AgentTypeHuman  AgentType = "human"
	AgentTypeBot    AgentType = "bot"
	AgentTypeSystem AgentType = "system"
)

// SaleItem is a single line item on a Sale.
type SaleItem struct {
	ProductID  primitive.ObjectID `bson:"product_id" json:"product_id"`
	SKU        string             `bson:"sku" json:"sku"`
	Name       string             `bson:"name" json:"name"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal    `bson:"unit_price" json:"unit_price"`
	TotalPrice decimal.Decimal    `bson:"total_price" json:"total_price"`
}

// SaleStatusEvent is one entry in a Sale's append-only status_history.
type SaleStatusEvent struct {
	Status  SaleStatus `bson:"status" json:"status"`
	At      time.Time  `bson:"at" json:"at"`
	Actor   string     `bson:"actor" json:"actor"`
	Comment string     `bson:"comment,omitempty" json:"comment,omitempty"`
}

// Sale is the exemplar transactional domain entity (spec §3).
type Sale struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID       string             `bson:"client_id" json:"client_id"`
	AgentID        string             `bson:"agent_id" json:"agent_id"`
	AgentType      AgentType          `bson:"agent_type" json:"agent_type"`
	Items          []SaleItem         `bson:"items" json:"items"`
	TotalAmount    decimal.Decimal    `bson:"total_amount" json:"total_amount"`
	Currency       string             `bson:"currency" json:"currency"`
	Status         SaleStatus         `bson:"status" json:"status"`
	StatusHistory  []SaleStatusEvent  `bson:"status_history" json:"status_history"`
	PaymentStatus  string             `bson:"payment_status" json:"payment_status"`
	DeliveryID     *primitive.ObjectID `bson:"delivery_id,omitempty" json:"delivery_id,omitempty"`
	IdempotencyKey string             `bson:"idempotency_key,omitempty" json:"-"`
	OriginChannel  string             `bson:"origin_channel,omitempty" json:"origin_channel,omitempty"`
	Note           string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// Product is referenced by Sale creation; Version enables optimistic
// concurrency on stock allocation.
type Product struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SKU                 string             `bson:"sku" json:"sku"`
	Name                string             `bson:"name" json:"name"`
	Active              bool               `bson:"active" json:"active"`
	AvailableStock      int                `bson:"available_stock" json:"available_stock"`
	StandardSellingPrice decimal.Decimal   `bson:"standard_selling_price" json:"standard_selling_price"`
	Version             int64              `bson:"version" json:"version"`
	CreatedAt           time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at" json:"updated_at"`
}

// ProfileType enumerates the kind of a Profile.
type ProfileType string

const (
	ProfileTypeClient   ProfileType = "client"
	ProfileTypeVendor   ProfileType = "vendor"
	ProfileTypeReseller ProfileType = "reseller"
	ProfileTypeCourier  ProfileType = "courier"
	ProfileTypeAdmin    ProfileType = "admin"
	ProfileTypeSystem   ProfileType = "system"
	ProfileTypeBot      ProfileType = "bot"
)

// Profile is a party known to the system (spec §3).
type Profile struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     *string            `bson:"user_id,omitempty" json:"user_id,omitempty"`
	ExternalID *string            `bson:"external_id,omitempty" json:"external_id,omitempty"`
	WhatsAppID *string            `bson:"whatsapp_id,omitempty" json:"whatsapp_id,omitempty"`
	Email      *string            `bson:"email,omitempty" json:"email,omitempty"`
	Phone      *string            `bson:"phone,omitempty" json:"phone,omitempty"`
	FirstName  string             `bson:"first_name" json:"first_name"`
	LastName   string             `bson:"last_name" json:"last_name"`
	FullName   string             `bson:"full_name" json:"full_name"`
	Type       ProfileType        `bson:"type" json:"type"`
	Roles      []string           `bson:"roles" json:"roles"`
	Active     bool               `bson:"active" json:"active"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// DeliveryStatus enumerates the Delivery state machine's states.
type DeliveryStatus string

const (
	DeliveryPendingAssignment DeliveryStatus = "pending_assignment"
	DeliveryAssigned          DeliveryStatus = "assigned"
	DeliveryPickingUp         DeliveryStatus = "picking_up"
	DeliveryInTransit         DeliveryStatus = "in_transit"
	DeliveryNearDestination   DeliveryStatus = "near_destination"
	DeliveryDelivered         DeliveryStatus = "delivered"
	DeliveryFailedAttempt     DeliveryStatus = "failed_attempt"
	DeliveryFailedDelivery    DeliveryStatus = "failed_delivery"
	DeliveryCancelled         DeliveryStatus = "cancelled"
	DeliveryReturned          DeliveryStatus = "returned"
)

// GeoPoint is a coordinate pair used for current/tracked location.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// TrackingEvent is one entry in a Delivery's tracking_history.
type TrackingEvent struct {
	At          time.Time      `bson:"at" json:"at"`
	Status      DeliveryStatus `bson:"status" json:"status"`
	Description string         `bson:"description,omitempty" json:"description,omitempty"`
	Location    *GeoPoint      `bson:"location,omitempty" json:"location,omitempty"`
	ActorID     string         `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
}

// Delivery tracks a Sale's physical fulfillment (spec §3, §4.5).
type Delivery struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SaleID           primitive.ObjectID `bson:"sale_id" json:"sale_id"`
	ClientProfileID  string             `bson:"client_profile_id" json:"client_profile_id"`
	CourierProfileID *string            `bson:"courier_profile_id,omitempty" json:"courier_profile_id,omitempty"`
	Items            []SaleItem         `bson:"items" json:"items"`
	PickupAddress    string             `bson:"pickup_address" json:"pickup_address"`
	DeliveryAddress  string             `bson:"delivery_address" json:"delivery_address"`
	CurrentStatus    DeliveryStatus     `bson:"current_status" json:"current_status"`
	TrackingHistory  []TrackingEvent    `bson:"tracking_history" json:"tracking_history"`
	CurrentLocation  *GeoPoint          `bson:"current_location,omitempty" json:"current_location,omitempty"`
	ExpireAt         *time.Time         `bson:"expire_at,omitempty" json:"expire_at,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// AuditRecord is a sanitized, append-only entry in the audit log (spec §3).
type AuditRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TraceID    string             `bson:"trace_id" json:"trace_id"`
	At         time.Time          `bson:"timestamp" json:"at"`
	ActorID    string             `bson:"actor_id" json:"actor_id"`
	Roles      []string           `bson:"roles" json:"roles"`
	Action     string             `bson:"action" json:"action"`
	EntityType string             `bson:"entity_type,omitempty" json:"entity_type,omitempty"`
	EntityID   string             `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	Success    bool               `bson:"success" json:"success"`
	Params     any                `bson:"params,omitempty" json:"params,omitempty"`
	Result     any                `bson:"result,omitempty" json:"result,omitempty"`
	Error      string             `bson:"error,omitempty" json:"error,omitempty"`
	DurationMS int64              `bson:"duration_ms" json:"duration_ms"`
}

// ChatMessage backs the supplemented conversational-memory feature.
type ChatMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID    string             `bson:"chat_id" json:"chat_id"`
	Role      string             `bson:"role" json:"role"`
	Content   string             `bson:"content" json:"content"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
