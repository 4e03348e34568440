// Package sales implements the "agentos_sales" agent façade: the static
// action table for sale-creation and sale-lookup actions, wrapping
// internal/domain/sales.Service per the Agent contract (spec §4.3).
package sales

import (
	"context"

	"github.com/nexusgateway/mcp-gateway/internal/agents"
	"github.com/nexusgateway/mcp-gateway/internal/domain/sales"
	"github.com/nexusgateway/mcp-gateway/internal/registry"
	"github.com/nexusgateway/mcp-gateway/internal/store"
)

// Name is this agent's registry key.
const Name = "agentos_sales"

// Agent is the sales domain's façade.
type Agent struct {
	svc   *sales.Service
	table agents.Table
}

// createSalePayload is the create_sale action's schema.
type createSalePayload struct {
	ClientID       string            `mapstructure:"client_id" validate:"required"`
	AgentType      string            `mapstructure:"agent_type" validate:"omitempty,oneof=human bot system"`
	Items          []itemPayload     `mapstructure:"items" validate:"required,min=1,dive"`
	OriginChannel  string            `mapstructure:"origin_channel"`
	Note           string            `mapstructure:"note"`
	Currency       string            `mapstructure:"currency" validate:"required,max=3"`
	IdempotencyKey string            `mapstructure:"idempotency_key"`
}

type itemPayload struct {
	SKU      string `mapstructure:"sku" validate:"required"`
	Quantity int    `mapstructure:"quantity" validate:"required,gt=0"`
}

type getSalePayload struct {
	SaleID string `mapstructure:"sale_id" validate:"required"`
}

type listRecentPayload struct {
	Limit int64 `mapstructure:"limit"`
}

type cancelSalePayload struct {
	SaleID string `mapstructure:"sale_id" validate:"required"`
}

// New builds the sales Agent and wires its action table.
func New(svc *sales.Service) *Agent {
	a := &Agent{svc: svc}
	a.table = agents.Table{
		AgentName: Name,
		Actions: map[string]agents.Action{
			"create_sale": {
				Payload:       &createSalePayload{},
				RequiredRoles: []string{"sales_agent", "admin"},
				Handler:       a.createSale,
			},
			"get_sale_status": {
				Payload: &getSalePayload{},
				Handler: a.getSaleStatus,
			},
			"list_recent_sales": {
				Payload: &listRecentPayload{},
				Handler: a.listRecentSales,
			},
			"cancel_sale": {
				Payload:       &cancelSalePayload{},
				RequiredRoles: []string{"sales_agent", "admin"},
				Handler:       a.cancelSale,
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

func (a *Agent) createSale(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*createSalePayload)

	items := make([]sales.ItemInput, len(p.Items))
	for i, it := range p.Items {
		items[i] = sales.ItemInput{SKU: it.SKU, Quantity: it.Quantity}
	}

	agentType := store.AgentType(p.AgentType)
	if agentType == "" {
		agentType = store.AgentTypeHuman
	}

	sale, err := a.svc.CreateSale(ctx, rc.Trace.TraceID, sales.CreateSaleInput{
		ClientID:       p.ClientID,
		AgentID:        rc.Principal.ID,
		AgentType:      agentType,
		Items:          items,
		OriginChannel:  p.OriginChannel,
		Note:           p.Note,
		Currency:       p.Currency,
		IdempotencyKey: p.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (a *Agent) getSaleStatus(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*getSalePayload)
	sale, err := a.svc.GetSaleByID(ctx, p.SaleID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"sale_id": sale.ID.Hex(), "status": sale.Status}, nil
}

func (a *Agent) listRecentSales(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*listRecentPayload)
	sales_, err := a.svc.ListRecentSalesForUser(ctx, rc.Principal.ID, p.Limit)
	if err != nil {
		return nil, err
	}
	return sales_, nil
}

func (a *Agent) cancelSale(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*cancelSalePayload)
	return a.svc.CancelSale(ctx, p.SaleID, rc.Principal.ID)
}
