// Package agents provides the shared Agent-contract scaffolding (spec
// §4.3) used by every per-domain façade: a static action table mapping
// action name to {schema validator, handler, required roles}, with
// decode/validate/authorize/dispatch done once, uniformly, here.
package agents

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/registry"
)

var validate = validator.New()

// HandlerFunc executes one action given its decoded, schema-validated
// payload and the gateway's authoritative request context.
type HandlerFunc func(ctx context.Context, rc registry.RequestContext, payload any) (any, error)

// Action is one entry in an agent's static action table (spec §4.3).
// Payload, when non-nil, is a pointer to a zero-value struct carrying
// `mapstructure`/`validate` tags; Data is decoded into a fresh copy of it
// before Handler runs. RequiredRoles, when non-empty, must intersect the
// caller's roles or the action is denied with Forbidden (403).
type Action struct {
	Payload       any
	Handler       HandlerFunc
	RequiredRoles []string
}

// Table is an agent's immutable action table plus its logical name.
type Table struct {
	AgentName string
	Actions   map[string]Action
}

// Dispatch implements the fixed steps from spec §4.3:
//  1. Reject unknown action → AgentError(400).
//  2. Decode+validate payload.data against the action's schema →
//     AgentError(400, details).
//  3. Enforce RequiredRoles → AgentError(403).
//  4. Invoke the handler.
func (t Table) Dispatch(ctx context.Context, action string, data map[string]any, rc registry.RequestContext) (any, error) {
	entry, ok := t.Actions[action]
	if !ok {
		return nil, errorsx.UnsupportedAction(fmt.Sprintf("%s has no action %q", t.AgentName, action))
	}

	var payload any
	if entry.Payload != nil {
		decoded, err := decodeAndValidate(entry.Payload, data)
		if err != nil {
			return nil, err
		}
		payload = decoded
	}

	if len(entry.RequiredRoles) > 0 && !rc.Principal.HasAnyRole(entry.RequiredRoles) {
		return nil, errorsx.Forbidden(fmt.Sprintf("action %q requires one of roles %v", action, entry.RequiredRoles))
	}

	return entry.Handler(ctx, rc, payload)
}

// decodeAndValidate mapstructure-decodes data into a fresh copy of shape
// (a pointer to a zero-value struct) and runs go-playground/validator
// over the result, producing per-field error descriptions on failure —
// the "small schema-compile step" named in spec §9's Validation note.
func decodeAndValidate(shape any, data map[string]any) (any, error) {
	target := newLike(shape)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, errorsx.InternalWrap(err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, errorsx.ValidationFailed(map[string]string{"payload": err.Error()})
	}

	if err := validate.Struct(target); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			return nil, errorsx.ValidationFailed(details)
		}
		return nil, errorsx.ValidationFailed(map[string]string{"payload": err.Error()})
	}

	return target, nil
}
