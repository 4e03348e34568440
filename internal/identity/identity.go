// Package identity implements the gateway's authentication layer.
//
// It provides:
//   - Principal     — the authenticated caller (id + roles), immutable per request
//   - TraceContext   — per-request correlation object propagated through every call
//   - Authenticator  — issues and verifies HS256 Bearer tokens
//   - RequireAuth    — Gin middleware that authenticates a request and injects
//     a Principal and TraceContext into the Gin context
package identity

import (
	"context"
	"time"
)

// Principal is the authenticated caller. It is immutable once constructed;
// handlers and services must never mutate its Roles set in place.
type Principal struct {
	ID    string
	Roles map[string]struct{}
}

// NewPrincipal builds a Principal from an id and a role list.
func NewPrincipal(id string, roles []string) Principal {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return Principal{ID: id, Roles: set}
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool {
	_, ok := p.Roles[role]
	return ok
}

// HasAnyRole reports whether the principal carries at least one of the given
// roles. An empty allowed set means "no role requirement" and always returns true.
func (p Principal) HasAnyRole(allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// RoleSlice returns the principal's roles as a slice, for embedding into
// logs, audit records, and enriched MCP contexts.
func (p Principal) RoleSlice() []string {
	out := make([]string, 0, len(p.Roles))
	for r := range p.Roles {
		out = append(out, r)
	}
	return out
}

// TraceContext carries per-request correlation data through every call —
// store operations, broker publishes, outbound HTTP — and is attached to
// every emitted log line, audit record, and event.
type TraceContext struct {
	TraceID   string
	StartedAt time.Time
	Deadline  *time.Time
}

// WithDeadline returns a context.Context bound to tc.Deadline, or ctx
// unchanged (with a no-op cancel) when no deadline was set.
func (tc TraceContext) WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if tc.Deadline == nil {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, *tc.Deadline)
}

type ctxKey int

const (
	ctxKeyPrincipal ctxKey = iota
	ctxKeyTrace
)

// ContextWithPrincipal returns a copy of ctx carrying p.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext retrieves the Principal stored by ContextWithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}

// ContextWithTrace returns a copy of ctx carrying tc.
func ContextWithTrace(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, ctxKeyTrace, tc)
}

// TraceFromContext retrieves the TraceContext stored by ContextWithTrace.
func TraceFromContext(ctx context.Context) (TraceContext, bool) {
	tc, ok := ctx.Value(ctxKeyTrace).(TraceContext)
	return tc, ok
}
