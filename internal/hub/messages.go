package hub

import "encoding/json"

// Outbound event names. These are the wire-level event identifiers clients
// subscribe to; changing one is a breaking protocol change.
const (
	EventConnected        = "connected"
	EventError            = "error"
	EventUserJoined       = "user_joined"
	EventRoomUsers        = "room_users"
	EventUserLeft         = "user_left"
	EventUserDisconnected = "user_disconnected"
	EventSignal           = "signal"
	EventBroadcast        = "broadcast"
)

// Message is one outbound signaling message: an event name plus its payload.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ConnectedPayload tells a freshly accepted client its transport-assigned
// connection id, which peers will see in userId fields.
type ConnectedPayload struct {
	UserID string `json:"userId"`
}

type UserJoinedPayload struct {
	UserID    string `json:"userId"`
	UserCount int    `json:"userCount"`
}

// RoomUsersPayload lists a room's members in join order, including the
// recipient itself.
type RoomUsersPayload struct {
	Users     []string `json:"users"`
	UserCount int      `json:"userCount"`
}

type UserLeftPayload struct {
	UserID string `json:"userId"`
}

type UserDisconnectedPayload struct {
	UserID string `json:"userId"`
}

// SignalPayload carries an opaque negotiation payload (offer/answer/candidate)
// from one specific peer. The relay never inspects Signal.
type SignalPayload struct {
	UserID string          `json:"userId"`
	Signal json.RawMessage `json:"signal"`
}

// BroadcastPayload carries an opaque room-wide payload from one peer.
type BroadcastPayload struct {
	UserID string          `json:"userId"`
	Data   json.RawMessage `json:"data"`
}

func errorMessage(text string) Message {
	return Message{Event: EventError, Data: ErrorPayload{Message: text}}
}
