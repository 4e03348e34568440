// Package registry implements the Agent Registry (spec §4.1): a
// name→Agent map populated once at startup and read-mostly thereafter,
// plus the SharedServices bundle injected into every agent at
// construction. Grounded on original_source's agent_registry.py
// (register_agent/execute_agent_action), redesigned per spec §9 to use
// explicit static registration instead of runtime module discovery.
package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/audit"
	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/events"
	"github.com/nexusgateway/mcp-gateway/internal/identity"
	"github.com/nexusgateway/mcp-gateway/internal/store"
	"github.com/nexusgateway/mcp-gateway/internal/tasks"
)

// reservedName cannot be used by any registered agent.
const reservedName = "base"

// SharedServices is the immutable handle bundle every agent is
// constructed with — store, publisher, dispatcher, audit sink. There are
// no back-references from services to agents (spec §9).
type SharedServices struct {
	Store      *store.Client
	Publisher  *events.Publisher
	Dispatcher *tasks.Dispatcher
	Audit      *audit.Sink
	Logger     *zap.Logger
}

// Agent is the per-domain façade contract (spec §4.3). Execute receives
// the already-authenticated, already-enriched request context.
type Agent interface {
	Name() string
	Execute(ctx context.Context, action string, data map[string]any, rc RequestContext) (any, error)
}

// RequestContext is the authoritative, gateway-enriched per-request
// context handed to every agent — caller-supplied context fields never
// reach the agent unfiltered (spec §4.2 step 4).
type RequestContext struct {
	Principal identity.Principal
	Trace     identity.TraceContext
	SessionID string
}

// Registry holds the authoritative name→Agent map.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	logger *zap.Logger
}

// New builds an empty Registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{agents: make(map[string]Agent), logger: logger}
}

// Register adds agent to the map. Rejects empty or reserved names; warns
// (but still succeeds) on overwrite, matching agent_registry.py's
// register_agent behavior.
func (r *Registry) Register(agent Agent) error {
	name := agent.Name()
	if name == "" {
		return fmt.Errorf("agent name must not be empty")
	}
	if name == reservedName {
		return fmt.Errorf("agent name %q is reserved", reservedName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; exists {
		r.logger.Warn("overwriting already-registered agent", zap.String("agent", name))
	}
	r.agents[name] = agent
	return nil
}

// RegisterFunc is the constructor shape RegisterAll takes — cmd/gateway
// wraps each agent package's New in one of these, wiring services at
// startup with no reflection at request time (spec §9).
type RegisterFunc func(services SharedServices) Agent

// RegisterAll runs ctors against services and registers each result. This
// is the explicit replacement for the source's dynamic
// discover_and_register/importlib scan.
func (r *Registry) RegisterAll(services SharedServices, ctors ...RegisterFunc) error {
	for _, ctor := range ctors {
		agent := ctor(services)
		if err := r.Register(agent); err != nil {
			return err
		}
	}
	return nil
}

// Names lists every registered agent name, for GET /mcp/tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Execute looks up name, delegates to its Execute, and translates
// failures per spec §4.1: AgentNotFound → 404, *errorsx.AgentError →
// propagated unchanged, anything else → wrapped Internal(500) and logged.
func (r *Registry) Execute(ctx context.Context, name, action string, data map[string]any, rc RequestContext) (any, error) {
	r.mu.RLock()
	agent, ok := r.agents[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errorsx.AgentNotFound(fmt.Sprintf("agent %q not found", name))
	}

	result, err := agent.Execute(ctx, action, data, rc)
	if err == nil {
		return result, nil
	}

	ae := errorsx.AsAgentError(err)
	if ae.Kind == errorsx.KindInternal {
		r.logger.Error("agent execution failed unexpectedly",
			zap.String("agent", name), zap.String("action", action),
			zap.String("trace_id", rc.Trace.TraceID), zap.Error(err))
	}
	return nil, ae
}
