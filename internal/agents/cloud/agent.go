// Package cloud implements the "agentos_cloud" agent façade over the
// bounded Semantic LLM Executor (spec §4.7): interpret_objective asks the
// oracle to name a (service, action, params) triple; execute_action
// dispatches that triple against the executor's static, allow-listed
// handler table.
package cloud

import (
	"context"
	"strings"

	"github.com/nexusgateway/mcp-gateway/internal/agents"
	"github.com/nexusgateway/mcp-gateway/internal/domain/memory"
	"github.com/nexusgateway/mcp-gateway/internal/llm"
	"github.com/nexusgateway/mcp-gateway/internal/registry"
	"github.com/nexusgateway/mcp-gateway/internal/store"
)

// Name is this agent's registry key.
const Name = "agentos_cloud"

// Agent is the Semantic LLM Executor's façade.
type Agent struct {
	exec   *llm.Executor
	memory *memory.Service // optional; nil disables chat-history context
	table  agents.Table
}

// SetMemory enables seeding interpret_objective's context from recent
// conversation turns (nil-able Set*-configuration pattern).
func (a *Agent) SetMemory(m *memory.Service) { a.memory = m }

type interpretPayload struct {
	Objective   string   `mapstructure:"objective" validate:"required"`
	Context     string   `mapstructure:"context"`
	ChatID      string   `mapstructure:"chat_id"`
	Constraints []string `mapstructure:"constraints"`
}

type executePayload struct {
	Service string         `mapstructure:"service" validate:"required"`
	Action  string         `mapstructure:"action" validate:"required"`
	Params  map[string]any `mapstructure:"params"`
}

// New builds the cloud Agent and wires its action table.
func New(exec *llm.Executor) *Agent {
	a := &Agent{exec: exec}
	a.table = agents.Table{
		AgentName: Name,
		Actions: map[string]agents.Action{
			"interpret_objective": {
				Payload:       &interpretPayload{},
				RequiredRoles: []string{"admin", "system"},
				Handler:       a.interpretObjective,
			},
			"execute_action": {
				Payload:       &executePayload{},
				RequiredRoles: []string{"admin", "system"},
				Handler:       a.executeAction,
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

func (a *Agent) interpretObjective(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*interpretPayload)

	context_ := p.Context
	if a.memory != nil && p.ChatID != "" {
		history, err := a.memory.RecentMessages(ctx, p.ChatID, int64(memory.DefaultWindow))
		if err == nil && len(history) > 0 {
			context_ = strings.TrimSpace(context_ + "\n" + renderHistory(history))
		}
		_ = a.memory.AppendMessage(ctx, p.ChatID, "user", p.Objective)
	}

	return a.exec.Interpret(ctx, p.Objective, context_, p.Constraints)
}

func renderHistory(msgs []store.ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Agent) executeAction(ctx context.Context, rc registry.RequestContext, payload any) (any, error) {
	p := payload.(*executePayload)
	return a.exec.Execute(ctx, &llm.Interpretation{Service: p.Service, Action: p.Action, Params: p.Params})
}
