package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultPatterns is the default channel-pattern subscription list (spec §4.9).
var DefaultPatterns = []string{"sales.*", "delivery.*", "user.*"}

const (
	reconnectInitialBackoff = 2 * time.Second
	reconnectMaxBackoff     = 30 * time.Second
	stopGracePeriod         = 5 * time.Second
)

// Subscriber is a single live WebSocket connection, optionally joined to
// named groups (e.g. "sales_dashboard").
type Subscriber struct {
	ID     string // Principal.ID, for target=user routing
	Groups map[string]struct{}
	conn   *websocket.Conn
	mu     sync.Mutex
}

// send writes a frame to the subscriber's socket, serialized as
// {type, payload} per spec §6's WS frame shape.
func (s *Subscriber) send(frameType string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(map[string]any{"type": frameType, "payload": payload})
}

// InGroup reports whether the subscriber has joined targetID.
func (s *Subscriber) InGroup(targetID string) bool {
	_, ok := s.Groups[targetID]
	return ok
}

// NewSubscriber wraps an upgraded WebSocket connection as a Subscriber
// identified by principalID, joined to groups.
func NewSubscriber(principalID string, conn *websocket.Conn, groups ...string) *Subscriber {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return &Subscriber{ID: principalID, Groups: set, conn: conn}
}

// Broadcaster subscribes to Redis pattern channels and fans incoming
// envelopes out to live WebSocket subscribers, routed by {target,
// target_id} (spec §4.9). Grounded on original_source's
// websocket/redis_listener.py reconnect-on-failure loop.
type Broadcaster struct {
	rdb      *redis.Client
	logger   *zap.Logger
	patterns []string

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
}

// NewBroadcaster builds a Broadcaster over patterns (DefaultPatterns if nil).
func NewBroadcaster(rdb *redis.Client, logger *zap.Logger, patterns []string) *Broadcaster {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Broadcaster{
		rdb:         rdb,
		logger:      logger,
		patterns:    patterns,
		subscribers: make(map[string]*Subscriber),
	}
}

// Join registers sub for fan-out and returns an unsubscribe func.
func (b *Broadcaster) Join(sub *Subscriber) func() {
	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, sub.ID)
		b.mu.Unlock()
	}
}

// Run subscribes to b.patterns and dispatches incoming frames until ctx is
// cancelled. On connection loss it waits with capped exponential backoff
// (2s → 30s) then re-subscribes, dropping any in-flight frame — the
// reconnect policy from spec §4.9. The receive loop is interrupted within
// 5s of ctx cancellation (stopGracePeriod).
func (b *Broadcaster) Run(ctx context.Context) {
	backoff := reconnectInitialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		if err := b.listenOnce(ctx); err != nil {
			b.logger.Warn("broadcaster connection lost, reconnecting", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMaxBackoff {
				backoff = reconnectMaxBackoff
			}
			continue
		}

		backoff = reconnectInitialBackoff
	}
}

func (b *Broadcaster) listenOnce(ctx context.Context) error {
	pubsub := b.rdb.PSubscribe(ctx, b.patterns...)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	stopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-stopCtx.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			select {
			case <-done:
			case <-time.After(stopGracePeriod):
			}
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errClosedChannel
			}
			b.dispatch(msg)
		}
	}
}

func (b *Broadcaster) dispatch(msg *redis.Message) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		b.logger.Warn("malformed event envelope, dropping", zap.Error(err), zap.String("channel", msg.Channel))
		return
	}

	target := env.Target
	if target != TargetAll && target != TargetUser && target != TargetGroup && target != TargetChat {
		b.logger.Warn("unknown target, falling back to all", zap.String("target", string(env.Target)))
		target = TargetAll
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !routeMatches(target, env.TargetID, sub) {
			continue
		}
		if err := sub.send(env.EventType, env.Data); err != nil {
			b.logger.Debug("subscriber send failed", zap.Error(err), zap.String("subscriber", sub.ID))
		}
	}
}

func routeMatches(target Target, targetID string, sub *Subscriber) bool {
	switch target {
	case TargetAll:
		return true
	case TargetUser:
		return sub.ID == targetID
	case TargetGroup, TargetChat:
		return sub.InGroup(targetID)
	default:
		return true
	}
}

var errClosedChannel = &closedChannelError{}

type closedChannelError struct{}

func (e *closedChannelError) Error() string { return "redis pubsub channel closed" }
