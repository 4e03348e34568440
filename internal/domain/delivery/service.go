// Package delivery implements the Delivery state machine (spec §4.5),
// grounded on original_source/backend/app/modules/delivery/service.py.
package delivery

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/audit"
	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/events"
	"github.com/nexusgateway/mcp-gateway/internal/identity"
	"github.com/nexusgateway/mcp-gateway/internal/store"
)

// RetentionDays is the default terminal-status TTL window (spec §3, §6).
const RetentionDays = 90 * 24 * time.Hour

// transitions is the fixed transition table from spec §4.5. A transition
// not listed here is rejected with InvalidDeliveryStatus (409).
var transitions = map[store.DeliveryStatus]map[store.DeliveryStatus]bool{
	store.DeliveryPendingAssignment: {store.DeliveryAssigned: true, store.DeliveryCancelled: true},
	store.DeliveryAssigned: {
		store.DeliveryPickingUp: true,
		store.DeliveryCancelled: true,
		store.DeliveryReturned:  true,
	},
	store.DeliveryPickingUp: {
		store.DeliveryInTransit:     true,
		store.DeliveryFailedAttempt: true,
		store.DeliveryCancelled:     true,
	},
	store.DeliveryInTransit: {
		store.DeliveryNearDestination: true,
		store.DeliveryFailedAttempt:   true,
		store.DeliveryCancelled:       true,
	},
	store.DeliveryNearDestination: {
		store.DeliveryDelivered:      true,
		store.DeliveryFailedDelivery: true,
		store.DeliveryCancelled:      true,
	},
	store.DeliveryFailedAttempt: {
		store.DeliveryInTransit: true,
		store.DeliveryCancelled: true,
	},
	store.DeliveryFailedDelivery: {
		store.DeliveryReturned: true,
	},
}

var terminalStatuses = map[store.DeliveryStatus]bool{
	store.DeliveryDelivered:      true,
	store.DeliveryFailedDelivery: true,
	store.DeliveryCancelled:      true,
	store.DeliveryReturned:       true,
}

// courierOnlyTransitions lists transitions that only the assigned courier
// may emit (spec §4.5: "Only a principal with role courier whose id equals
// courier_profile_id may emit update_location or transition to
// delivered/failed_attempt").
var courierOnlyTransitions = map[store.DeliveryStatus]bool{
	store.DeliveryDelivered:     true,
	store.DeliveryFailedAttempt: true,
}

// Service implements delivery creation and status transitions.
type Service struct {
	client    *store.Client
	publisher *events.Publisher
	auditSink *audit.Sink
	logger    *zap.Logger
}

// NewService wires a Service from the shared-services bundle.
func NewService(client *store.Client, publisher *events.Publisher, auditSink *audit.Sink, logger *zap.Logger) *Service {
	return &Service{client: client, publisher: publisher, auditSink: auditSink, logger: logger}
}

// CreateDeliveryInput groups the fields needed to open a delivery for a
// committed sale.
type CreateDeliveryInput struct {
	SaleID          string
	ClientProfileID string
	Items           []store.SaleItem
	PickupAddress   string
	DeliveryAddress string
}

// CreateDelivery opens a delivery in pending_assignment.
func (s *Service) CreateDelivery(ctx context.Context, traceID string, in CreateDeliveryInput) (*store.Delivery, error) {
	saleOID, err := primitive.ObjectIDFromHex(in.SaleID)
	if err != nil {
		return nil, errorsx.ValidationFailed(map[string]string{"sale_id": "invalid id"})
	}

	now := time.Now().UTC()
	d := &store.Delivery{
		SaleID:          saleOID,
		ClientProfileID: in.ClientProfileID,
		Items:           in.Items,
		PickupAddress:   in.PickupAddress,
		DeliveryAddress: in.DeliveryAddress,
		CurrentStatus:   store.DeliveryPendingAssignment,
		CreatedAt:       now,
		UpdatedAt:       now,
		TrackingHistory: []store.TrackingEvent{
			{At: now, Status: store.DeliveryPendingAssignment, Description: "delivery created"},
		},
	}

	if err := s.client.Deliveries.Create(ctx, d); err != nil {
		return nil, errorsx.InternalWrap(err)
	}

	s.auditSink.LogEvent(ctx, audit.LogEventInput{
		TraceID: traceID, ActorID: "system", Action: "create_delivery",
		EntityType: "delivery", EntityID: d.ID.Hex(), Success: true,
	})

	return d, nil
}

// UpdateStatusInput groups a requested transition.
type UpdateStatusInput struct {
	DeliveryID  string
	NewStatus   store.DeliveryStatus
	Description string
	Location    *store.GeoPoint
}

// UpdateStatus validates and applies a transition, enforcing the role/id
// check for courier-only transitions, then emits delivery.status_changed
// (and delivery.location_update for location-bearing updates), targeted at
// the delivery's client_profile_id (spec §4.5).
func (s *Service) UpdateStatus(ctx context.Context, traceID string, principal identity.Principal, in UpdateStatusInput) (*store.Delivery, error) {
	d, err := s.client.Deliveries.GetByID(ctx, in.DeliveryID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errorsx.EntityNotFound("delivery", in.DeliveryID)
		}
		return nil, errorsx.DependencyUnavailable("delivery lookup failed")
	}

	if err := authorizeStatusUpdate(principal, d.CourierProfileID, in.NewStatus); err != nil {
		return nil, err
	}

	allowed := transitions[d.CurrentStatus]
	if !allowed[in.NewStatus] {
		return nil, errorsx.ConflictWithDetails("invalid delivery status transition", map[string]any{
			"from": d.CurrentStatus,
			"to":   in.NewStatus,
		})
	}

	now := time.Now().UTC()
	event := store.TrackingEvent{
		At:          now,
		Status:      in.NewStatus,
		Description: in.Description,
		Location:    in.Location,
		ActorID:     principal.ID,
	}

	var expireAt *time.Time
	if terminalStatuses[in.NewStatus] {
		t := now.Add(RetentionDays)
		expireAt = &t
	}

	oid, err := primitive.ObjectIDFromHex(in.DeliveryID)
	if err != nil {
		return nil, errorsx.EntityNotFound("delivery", in.DeliveryID)
	}
	if err := s.client.Deliveries.ApplyTransition(ctx, oid, event, expireAt); err != nil {
		if err == store.ErrNotFound {
			return nil, errorsx.EntityNotFound("delivery", in.DeliveryID)
		}
		return nil, errorsx.InternalWrap(err)
	}

	d.CurrentStatus = in.NewStatus
	d.UpdatedAt = now
	d.TrackingHistory = append(d.TrackingHistory, event)
	if expireAt != nil {
		d.ExpireAt = expireAt
	}

	s.publisher.Publish(ctx, events.ChannelDeliveryStatusChange, events.TargetUser, d.ClientProfileID,
		"delivery_status_changed", map[string]any{"delivery_id": d.ID.Hex(), "status": in.NewStatus}, traceID)
	if in.Location != nil {
		d.CurrentLocation = in.Location
		s.publisher.Publish(ctx, events.ChannelDeliveryLocation, events.TargetUser, d.ClientProfileID,
			"delivery_location_update", map[string]any{"delivery_id": d.ID.Hex(), "location": *in.Location}, traceID)
	}

	s.auditSink.LogEvent(ctx, audit.LogEventInput{
		TraceID: traceID, ActorID: principal.ID, Action: "update_delivery_status",
		EntityType: "delivery", EntityID: d.ID.Hex(), Success: true,
		Result: map[string]any{"status": in.NewStatus},
	})

	return d, nil
}

// UpdateCourierLocationInput groups a courier's live-location report.
type UpdateCourierLocationInput struct {
	DeliveryID string
	Location   store.GeoPoint
}

// UpdateCourierLocation validates the principal is the assigned courier and
// the delivery is in an active (non-terminal) status,
// then writes current_location and emits delivery.location_update.
func (s *Service) UpdateCourierLocation(ctx context.Context, traceID string, principal identity.Principal, in UpdateCourierLocationInput) (*store.Delivery, error) {
	d, err := s.client.Deliveries.GetByID(ctx, in.DeliveryID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errorsx.EntityNotFound("delivery", in.DeliveryID)
		}
		return nil, errorsx.DependencyUnavailable("delivery lookup failed")
	}

	if d.CourierProfileID == nil || *d.CourierProfileID != principal.ID {
		return nil, errorsx.Forbidden("courier does not own this delivery")
	}
	if !isActiveStatus(d.CurrentStatus) {
		return nil, errorsx.Conflict("delivery is not in an active status")
	}

	oid, err := primitive.ObjectIDFromHex(in.DeliveryID)
	if err != nil {
		return nil, errorsx.EntityNotFound("delivery", in.DeliveryID)
	}

	now := time.Now().UTC()
	event := store.TrackingEvent{At: now, Status: d.CurrentStatus, Location: &in.Location, ActorID: principal.ID, Description: "location update"}
	if err := s.client.Deliveries.ApplyTransition(ctx, oid, event, nil); err != nil {
		return nil, errorsx.InternalWrap(err)
	}

	d.CurrentLocation = &in.Location
	d.UpdatedAt = now

	s.publisher.Publish(ctx, events.ChannelDeliveryLocation, events.TargetUser, d.ClientProfileID,
		"delivery_location_update", map[string]any{"delivery_id": d.ID.Hex(), "location": in.Location}, traceID)

	return d, nil
}

func isActiveStatus(status store.DeliveryStatus) bool {
	return !terminalStatuses[status]
}

// authorizeStatusUpdate implements spec §4.5's courier authorization rule:
// any update_status call from a courier principal is scoped to their own
// assigned delivery (not just the terminal courierOnlyTransitions), and
// courierOnlyTransitions additionally bars non-courier principals from
// emitting delivered/failed_attempt.
func authorizeStatusUpdate(principal identity.Principal, courierProfileID *string, newStatus store.DeliveryStatus) error {
	if principal.HasRole("courier") {
		if courierProfileID == nil || *courierProfileID != principal.ID {
			return errorsx.Forbidden("courier does not own this delivery")
		}
		return nil
	}
	if courierOnlyTransitions[newStatus] {
		return errorsx.Forbidden("only the assigned courier may perform this transition")
	}
	return nil
}

// AssignCourier sets courierProfileID on the delivery and, when the
// delivery is in pending_assignment, transitions it to `assigned`. A
// delivery in any other status gets the new courier and keeps its status.
func (s *Service) AssignCourier(ctx context.Context, traceID, deliveryID, courierProfileID string) (*store.Delivery, error) {
	oid, err := primitive.ObjectIDFromHex(deliveryID)
	if err != nil {
		return nil, errorsx.EntityNotFound("delivery", deliveryID)
	}
	if err := s.client.Deliveries.AssignCourier(ctx, oid, courierProfileID); err != nil {
		if err == store.ErrNotFound {
			return nil, errorsx.EntityNotFound("delivery", deliveryID)
		}
		return nil, errorsx.InternalWrap(err)
	}

	d, err := s.client.Deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, errorsx.InternalWrap(err)
	}
	if !transitions[d.CurrentStatus][store.DeliveryAssigned] {
		return d, nil
	}

	now := time.Now().UTC()
	event := store.TrackingEvent{At: now, Status: store.DeliveryAssigned, Description: "courier assigned", ActorID: courierProfileID}
	if err := s.client.Deliveries.ApplyTransition(ctx, oid, event, nil); err != nil {
		return nil, errorsx.InternalWrap(err)
	}
	d.CurrentStatus = store.DeliveryAssigned
	d.TrackingHistory = append(d.TrackingHistory, event)

	s.publisher.Publish(ctx, events.ChannelDeliveryStatusChange, events.TargetUser, d.ClientProfileID,
		"delivery_status_changed", map[string]any{"delivery_id": d.ID.Hex(), "status": store.DeliveryAssigned}, traceID)

	return d, nil
}
