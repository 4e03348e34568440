// Package events implements the Event Fan-Out Plane: a non-blocking
// Publisher that pushes structured events onto Redis pub/sub channels, and
// a Stream Broadcaster that subscribes to channel patterns and demultiplexes
// incoming frames to live WebSocket subscribers by {target, target_id}.
//
// Grounded on the original_source notification_service.py / redis_listener.py
// pair and on the teacher pack's go-redis Streams broker
// (other_examples/.../agent_message_broker.go), adapted from Streams/XADD
// consumer groups down to the simpler pub/sub primitive this spec calls for.
package events

import "time"

// Target is the routing discriminator for an Event (spec §3).
type Target string

const (
	TargetAll   Target = "all"
	TargetUser  Target = "user"
	TargetGroup Target = "group"
	TargetChat  Target = "chat"
)

// Event is the structured message published to a channel and, downstream,
// delivered to subscribers.
type Event struct {
	Channel   string    `json:"channel"`
	Target    Target    `json:"target"`
	TargetID  string    `json:"target_id,omitempty"`
	EventType string    `json:"event_type"`
	Data      any       `json:"data"`
	TraceID   string    `json:"trace_id"`
	At        time.Time `json:"at"`
}

// envelope is the wire shape pushed onto the Redis channel: the broadcaster
// reads {target, target_id, event_type, data} directly off of it, same
// shape as the original's publish_websocket_update envelope.
type envelope struct {
	Target    Target `json:"target"`
	TargetID  string `json:"target_id,omitempty"`
	EventType string `json:"event_type"`
	Data      any    `json:"data"`
	TraceID   string `json:"trace_id"`
	At        time.Time `json:"at"`
}

// Well-known channels (spec §6).
const (
	ChannelSalesCreated         = "sales.created"
	ChannelDeliveryStatusChange = "delivery.status_changed"
	ChannelDeliveryLocation     = "delivery.location_update"
	ChannelBackendEvents        = "backend.events"
	ChannelSystemAudit          = "system.audit"
)
