// Package delivery implements the "agentos_delivery" agent façade over
// internal/domain/delivery.Service.
package delivery

import (
	"context"

	"github.com/nexusgateway/mcp-gateway/internal/agents"
	"github.com/nexusgateway/mcp-gateway/internal/domain/delivery"
	"github.com/nexusgateway/mcp-gateway/internal/registry"
	"github.com/nexusgateway/mcp-gateway/internal/store"
)

// Name is this agent's registry key.
const Name = "agentos_delivery"

// Agent is the delivery domain's façade.
type Agent struct {
	svc   *delivery.Service
	table agents.Table
}

type createDeliveryPayload struct {
	SaleID          string `mapstructure:"sale_id" validate:"required"`
	ClientProfileID string `mapstructure:"client_profile_id" validate:"required"`
	PickupAddress   string `mapstructure:"pickup_address" validate:"required"`
	DeliveryAddress string `mapstructure:"delivery_address" validate:"required"`
}

type updateStatusPayload struct {
	DeliveryID  string `mapstructure:"delivery_id" validate:"required"`
	NewStatus   string `mapstructure:"new_status" validate:"required"`
	Description string `mapstructure:"description"`
}

type updateLocationPayload struct {
	DeliveryID string  `mapstructure:"delivery_id" validate:"required"`
	Lat        float64 `mapstructure:"lat" validate:"required"`
	Lng        float64 `mapstructure:"lng" validate:"required"`
}

type assignCourierPayload struct {
	DeliveryID       string `mapstructure:"delivery_id" validate:"required"`
	CourierProfileID string `mapstructure:"courier_profile_id" validate:"required"`
}

// New builds the delivery Agent and wires its action table.
func New(svc *delivery.Service) *Agent {
	a := &Agent{svc: svc}
	a.table = agents.Table{
		AgentName: Name,
		Actions: map[string]agents.Action{
			"create_delivery": {
				Payload:       &createDeliveryPayload{},
				RequiredRoles: []string{"sales_agent", "admin", "system"},
				Handler:       a.createDelivery,
			},
			"update_status": {
				Payload: &updateStatusPayload{},
				Handler: a.updateStatus,
			},
			"update_location": {
				Payload:       &updateLocationPayload{},
				RequiredRoles: []string{"courier"},
				Handler:       a.updateLocation,
			},
			"assign_courier": {
				Payload:       &assignCourierPayload{},
				RequiredRoles: []string{"admin", "system"},
				Handler:       a.assignCourier,
			},
		},
	}
	return a
}

// Name implements registry.Agent.
func (a *Agent) Name() string { return Name }

// Execute implements registry.Agent.
func (a *Agent) Execute(ctx context.Context, action string, data map[string]any, rc registry.RequestContext) (any, error) {
	return a.table.Dispatch(ctx, action, data, rc)
}

func (a *Agent) createDelivery(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*createDeliveryPayload)
	return a.svc.CreateDelivery(ctx, rc.Trace.TraceID, delivery.CreateDeliveryInput{
		SaleID:          p.SaleID,
		ClientProfileID: p.ClientProfileID,
		PickupAddress:   p.PickupAddress,
		DeliveryAddress: p.DeliveryAddress,
	})
}

func (a *Agent) updateStatus(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*updateStatusPayload)
	return a.svc.UpdateStatus(ctx, rc.Trace.TraceID, rc.Principal, delivery.UpdateStatusInput{
		DeliveryID:  p.DeliveryID,
		NewStatus:   store.DeliveryStatus(p.NewStatus),
		Description: p.Description,
	})
}

func (a *Agent) updateLocation(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*updateLocationPayload)
	return a.svc.UpdateCourierLocation(ctx, rc.Trace.TraceID, rc.Principal, delivery.UpdateCourierLocationInput{
		DeliveryID: p.DeliveryID,
		Location:   store.GeoPoint{Lat: p.Lat, Lng: p.Lng},
	})
}

func (a *Agent) assignCourier(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*assignCourierPayload)
	return a.svc.AssignCourier(ctx, rc.Trace.TraceID, p.DeliveryID, p.CourierProfileID)
}
