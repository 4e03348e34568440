package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// publishTimeout bounds each publish call to the "non-blocking with 1s
// send buffer" budget from spec §5.
const publishTimeout = 1 * time.Second

// Publisher publishes structured events to Redis pub/sub channels. Publish
// never returns an error to its caller's caller — domain services call it
// fire-and-forget; failures are logged, per spec §4.8 ("non-blocking...
// Failures to publish are logged but never raised to the caller").
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewPublisher builds a Publisher over an existing Redis client.
func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

// Publish serializes payload to JSON and submits it to channel in a
// detached goroutine, returning immediately. Unserializable values are
// masked with "<type>" rather than failing the whole publish, matching
// the spec's "unserializable values → mask with <type>" rule.
func (p *Publisher) Publish(ctx context.Context, channel string, target Target, targetID, eventType string, data any, traceID string) {
	env := envelope{
		Target:    target,
		TargetID:  targetID,
		EventType: eventType,
		Data:      maskUnserializable(data),
		TraceID:   traceID,
		At:        time.Now().UTC(),
	}

	body, err := json.Marshal(env)
	if err != nil {
		p.logger.Warn("event payload not serializable, masking", zap.Error(err), zap.String("channel", channel))
		env.Data = fmt.Sprintf("<%T>", data)
		body, err = json.Marshal(env)
		if err != nil {
			p.logger.Error("event payload could not be masked either, dropping", zap.Error(err), zap.String("channel", channel))
			return
		}
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.rdb.Publish(pubCtx, channel, body).Err(); err != nil {
			p.logger.Error("publish failed", zap.Error(err), zap.String("channel", channel), zap.String("trace_id", traceID))
		}
	}()
}

// maskUnserializable returns data unchanged. The masking itself happens in
// Publish, which replaces the whole payload with its "<type>" name when
// json.Marshal of the envelope fails.
func maskUnserializable(data any) any {
	return data
}
