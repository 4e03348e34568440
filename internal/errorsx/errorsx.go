// Package errorsx implements the gateway's error taxonomy: typed domain
// errors that carry an HTTP-equivalent status code and are rendered
// uniformly by the MCP Gateway into both the HTTP response and
// MCPResponse.error*.
package errorsx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a taxonomy entry, independent of the message text.
type Kind string

const (
	KindEnvelopeInvalid       Kind = "envelope_invalid"
	KindUnauthenticated       Kind = "unauthenticated"
	KindForbidden             Kind = "forbidden"
	KindAgentNotFound         Kind = "agent_not_found"
	KindUnsupportedAction     Kind = "unsupported_action"
	KindValidationFailed      Kind = "validation_failed"
	KindEntityNotFound        Kind = "entity_not_found"
	KindConflict              Kind = "conflict"
	KindUpstreamUnavailable   Kind = "upstream_unavailable"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindInternal              Kind = "internal"
)

// statusByKind is the fixed Kind → HTTP status mapping from spec §7.
var statusByKind = map[Kind]int{
	KindEnvelopeInvalid:       http.StatusUnprocessableEntity,
	KindUnauthenticated:       http.StatusUnauthorized,
	KindForbidden:             http.StatusForbidden,
	KindAgentNotFound:         http.StatusNotFound,
	KindUnsupportedAction:     http.StatusBadRequest,
	KindValidationFailed:      http.StatusBadRequest,
	KindEntityNotFound:        http.StatusNotFound,
	KindConflict:              http.StatusConflict,
	KindUpstreamUnavailable:   http.StatusBadGateway,
	KindDependencyUnavailable: http.StatusServiceUnavailable,
	KindInternal:              http.StatusInternalServerError,
}

// AgentError is the single error type that crosses the
// Service → Agent → Registry → Gateway boundary. Services raise typed
// domain errors (constructors below); agents and the registry translate
// anything else into AgentError{500} at the boundary they own.
type AgentError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Details    any
	cause      error
}

func (e *AgentError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AgentError) Unwrap() error { return e.cause }

// New builds an AgentError for kind with the given message.
func New(kind Kind, message string) *AgentError {
	return &AgentError{Kind: kind, StatusCode: statusByKind[kind], Message: message}
}

// Wrap builds an AgentError for kind, chaining cause for %w-style inspection.
func Wrap(kind Kind, message string, cause error) *AgentError {
	return &AgentError{Kind: kind, StatusCode: statusByKind[kind], Message: message, cause: cause}
}

// WithDetails attaches structured details (e.g. validation field errors,
// or {sku, requested, available} for InsufficientStock) and returns e.
func (e *AgentError) WithDetails(details any) *AgentError {
	e.Details = details
	return e
}

// Constructors for each taxonomy entry — used throughout services/agents
// so call sites read as the domain concept rather than a raw status code.

func EnvelopeInvalid(msg string) *AgentError   { return New(KindEnvelopeInvalid, msg) }
func Unauthenticated(msg string) *AgentError   { return New(KindUnauthenticated, msg) }
func Forbidden(msg string) *AgentError         { return New(KindForbidden, msg) }
func AgentNotFound(msg string) *AgentError     { return New(KindAgentNotFound, msg) }
func UnsupportedAction(msg string) *AgentError { return New(KindUnsupportedAction, msg) }

func ValidationFailed(details any) *AgentError {
	return New(KindValidationFailed, "validation failed").WithDetails(details)
}

func EntityNotFound(entity, id string) *AgentError {
	return New(KindEntityNotFound, fmt.Sprintf("%s %q not found", entity, id))
}

func Conflict(msg string) *AgentError { return New(KindConflict, msg) }

func ConflictWithDetails(msg string, details any) *AgentError {
	return New(KindConflict, msg).WithDetails(details)
}

func UpstreamUnavailable(msg string) *AgentError   { return New(KindUpstreamUnavailable, msg) }
func DependencyUnavailable(msg string) *AgentError { return New(KindDependencyUnavailable, msg) }

func Internal(msg string) *AgentError { return New(KindInternal, msg) }

func InternalWrap(cause error) *AgentError {
	return Wrap(KindInternal, "internal error", cause)
}

// AsAgentError extracts an *AgentError from err, wrapping unrecognized
// errors as Internal(500) — this is the registry/gateway-boundary rule
// from spec §4.1: "anything else → wrapped as AgentError(500) and logged".
func AsAgentError(err error) *AgentError {
	if err == nil {
		return nil
	}
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae
	}
	return InternalWrap(err)
}
