// Package people implements the "agentos_people" agent façade over
// internal/domain/people.Service.
package people

import (
	"context"

	"github.com/nexusgateway/mcp-gateway/internal/agents"
	"github.com/nexusgateway/mcp-gateway/internal/domain/people"
	"github.com/nexusgateway/mcp-gateway/internal/registry"
	"github.com/nexusgateway/mcp-gateway/internal/store"
)

// Name is this agent's registry key.
const Name = "agentos_people"

// Agent is the people/profile domain's façade.
type Agent struct {
	svc   *people.Service
	table agents.Table
}

type createProfilePayload struct {
	UserID     string   `mapstructure:"user_id"`
	ExternalID string   `mapstructure:"external_id"`
	WhatsAppID string   `mapstructure:"whatsapp_id"`
	Email      string   `mapstructure:"email" validate:"omitempty,email"`
	Phone      string   `mapstructure:"phone"`
	FirstName  string   `mapstructure:"first_name" validate:"required"`
	LastName   string   `mapstructure:"last_name"`
	Type       string   `mapstructure:"type" validate:"required,oneof=client vendor reseller courier admin system bot"`
	Roles      []string `mapstructure:"roles"`
}

type getProfilePayload struct {
	ProfileID string `mapstructure:"profile_id" validate:"required"`
}

type mutateRolePayload struct {
	ProfileID string `mapstructure:"profile_id" validate:"required"`
	Role      string `mapstructure:"role" validate:"required"`
}

type lookupProfilePayload struct {
	IdentifierType string `mapstructure:"identifier_type" validate:"required,oneof=email whatsapp_id user_id"`
	Value          string `mapstructure:"value" validate:"required"`
}

// New builds the people Agent and wires its action table.
func New(svc *people.Service) *Agent {
	a := &Agent{svc: svc}
	a.table = agents.Table{
		AgentName: Name,
		Actions: map[string]agents.Action{
			"create_profile": {
				Payload:       &createProfilePayload{},
				RequiredRoles: []string{"admin", "system"},
				Handler:       a.createProfile,
			},
			"get_profile": {
				Payload: &getProfilePayload{},
				Handler: a.getProfile,
			},
			"lookup_profile": {
				Payload: &lookupProfilePayload{},
				Handler: a.lookupProfile,
			},
			"add_role": {
				Payload:       &mutateRolePayload{},
				RequiredRoles: []string{"admin"},
				Handler:       a.addRole,
			},
			"remove_role": {
				Payload:       &mutateRolePayload{},
				RequiredRoles: []string{"admin"},
				Handler:       a.removeRole,
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

func (a *Agent) createProfile(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*createProfilePayload)
	return a.svc.CreateProfile(ctx, people.CreateProfileInput{
		UserID:     strPtr(p.UserID),
		ExternalID: strPtr(p.ExternalID),
		WhatsAppID: strPtr(p.WhatsAppID),
		Email:      strPtr(p.Email),
		Phone:      strPtr(p.Phone),
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Type:       store.ProfileType(p.Type),
		Roles:      p.Roles,
	})
}

func (a *Agent) getProfile(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*getProfilePayload)
	return a.svc.GetByID(ctx, p.ProfileID)
}

func (a *Agent) lookupProfile(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*lookupProfilePayload)
	return a.svc.LookupProfile(ctx, people.IdentifierType(p.IdentifierType), p.Value)
}

func (a *Agent) addRole(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*mutateRolePayload)
	return a.svc.AddRole(ctx, p.ProfileID, p.Role)
}

func (a *Agent) removeRole(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*mutateRolePayload)
	return a.svc.RemoveRole(ctx, p.ProfileID, p.Role)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
