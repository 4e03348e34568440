// Package llm implements the bounded Semantic LLM Executor (spec §4.7):
// interpret() asks an opaque text-in/JSON-out oracle to name a
// (service, action, params) triple; execute() dispatches against a static
// table and validates params per-handler against an allow-list. The LLM
// is never trusted to widen the permitted surface.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
)

// Oracle is the opaque LLM provider client — out of scope per spec §1;
// modeled here as a narrow interface so a stub can satisfy it in tests.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Interpretation is the oracle's parsed decision.
type Interpretation struct {
	Service string         `json:"service"`
	Action  string         `json:"action"`
	Params  map[string]any `json:"params"`
}

// Handler validates and executes one (service, action) pair's params.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Executor holds the oracle and the static dispatch table.
type Executor struct {
	oracle   Oracle
	handlers map[string]Handler
}

// NewExecutor builds an Executor with an empty dispatch table; call
// Register for each supported (service, action) pair at startup — no
// reflection or dynamic lookup at request time, per spec §9's
// "explicit registration step called at startup".
func NewExecutor(oracle Oracle) *Executor {
	return &Executor{oracle: oracle, handlers: make(map[string]Handler)}
}

// Register wires a handler for (service, action). Re-registering the same
// pair overwrites the prior handler — callers do this once at boot.
func (e *Executor) Register(service, action string, h Handler) {
	e.handlers[dispatchKey(service, action)] = h
}

func dispatchKey(service, action string) string { return service + "." + action }

// Interpret builds a constrained prompt instructing the oracle to reply
// with a single JSON object {service, action, params}, then parses it
// with markdown-fence stripping. Missing required keys produce
// InterpretationError (mapped here to ValidationFailed, 400).
func (e *Executor) Interpret(ctx context.Context, objective, context_ string, constraints []string) (*Interpretation, error) {
	prompt := buildPrompt(objective, context_, constraints)

	raw, err := e.oracle.Complete(ctx, prompt)
	if err != nil {
		return nil, errorsx.UpstreamUnavailable("llm oracle request failed")
	}

	cleaned := stripMarkdownFence(raw)

	var interp Interpretation
	if err := json.Unmarshal([]byte(cleaned), &interp); err != nil {
		return nil, errorsx.ValidationFailed(map[string]string{"response": "not a valid JSON object"})
	}
	if interp.Service == "" || interp.Action == "" {
		return nil, errorsx.ValidationFailed(map[string]string{"response": "missing required keys service/action"})
	}
	if interp.Params == nil {
		interp.Params = map[string]any{}
	}
	return &interp, nil
}

// Execute dispatches interp against the static table. Unknown pairs
// produce UnsupportedAction (400); the handler itself is responsible for
// validating interp.Params against its own allow-list.
func (e *Executor) Execute(ctx context.Context, interp *Interpretation) (any, error) {
	h, ok := e.handlers[dispatchKey(interp.Service, interp.Action)]
	if !ok {
		return nil, errorsx.UnsupportedAction(fmt.Sprintf("no handler registered for %s.%s", interp.Service, interp.Action))
	}
	return h(ctx, interp.Params)
}

func buildPrompt(objective, context_ string, constraints []string) string {
	var b strings.Builder
	b.WriteString("You are a constrained action planner. Reply with exactly one JSON object ")
	b.WriteString(`of the shape {"service": string, "action": string, "params": object}. `)
	b.WriteString("No prose, no markdown fences, no additional keys.\n\n")
	fmt.Fprintf(&b, "Objective: %s\n", objective)
	if context_ != "" {
		fmt.Fprintf(&b, "Context: %s\n", context_)
	}
	if len(constraints) > 0 {
		b.WriteString("Constraints:\n")
		for _, c := range constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
