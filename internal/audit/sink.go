package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/store"
)

// Sink appends sanitized action records to the audit log. LogEvent never
// raises: it logs a write failure and returns, matching the original
// audit_service.py's "lazy collection init... swallows failures" contract.
type Sink struct {
	repo   *store.AuditRepository
	logger *zap.Logger
}

// NewSink builds a Sink over repo.
func NewSink(repo *store.AuditRepository, logger *zap.Logger) *Sink {
	return &Sink{repo: repo, logger: logger}
}

// LogEventInput groups the fields of one audit record.
type LogEventInput struct {
	TraceID    string
	ActorID    string
	Roles      []string
	Action     string
	EntityType string
	EntityID   string
	Success    bool
	Params     any
	Result     any
	Err        error
	Duration   time.Duration
}

// LogEvent sanitizes in.Params/in.Result and appends a record. Failures
// are logged, never propagated.
func (s *Sink) LogEvent(ctx context.Context, in LogEventInput) {
	rec := &store.AuditRecord{
		TraceID:    in.TraceID,
		At:         time.Now().UTC(),
		ActorID:    in.ActorID,
		Roles:      in.Roles,
		Action:     in.Action,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Success:    in.Success,
		Params:     Sanitize(in.Params),
		Result:     Sanitize(in.Result),
		DurationMS: in.Duration.Milliseconds(),
	}
	if in.Err != nil {
		rec.Error = in.Err.Error()
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		s.logger.Error("audit write failed", zap.Error(err), zap.String("action", in.Action), zap.String("trace_id", in.TraceID))
	}
}
