package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/wilsonzlin/aero/proxy/webrtc-signaling/internal/metrics"
)

// Sender delivers outbound messages to the transport layer.
//
// Delivery is fire-and-forget: implementations must not block (a slow client
// must not stall event handling for everyone else) and errors are not
// reported back to the hub.
type Sender interface {
	Send(connID string, msg Message)
}

// Hub coordinates the connection registry and the room directory.
//
// Every event handler runs as one critical section under a single mutex so
// the two structures stay mutually consistent: a connection's room field
// matches the directory's member lists at all times, and racing joins or
// disconnects cannot produce duplicate members or lost updates. Outbound
// sends are collected under the lock and delivered after it is released.
type Hub struct {
	log     *slog.Logger
	sender  Sender
	metrics *metrics.Metrics

	mu    sync.Mutex
	conns *connRegistry
	rooms *roomDirectory
}

func New(logger *slog.Logger, sender Sender, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m == nil {
		m = metrics.New()
	}
	return &Hub{
		log:     logger,
		sender:  sender,
		metrics: m,
		conns:   newConnRegistry(),
		rooms:   newRoomDirectory(),
	}
}

// outbound is one deferred send, queued while the lock is held and delivered
// after release.
type outbound struct {
	to  string
	msg Message
}

func (h *Hub) deliver(sends []outbound) {
	if h.sender == nil {
		return
	}
	for _, s := range sends {
		h.sender.Send(s.to, s.msg)
	}
}

// Connect registers a new connection with no room.
//
// ErrAlreadyRegistered means the transport handed out a duplicate id; the
// caller must reject the new connection rather than continue, or it would
// corrupt the existing connection's state.
func (h *Hub) Connect(id string) error {
	h.mu.Lock()
	err := h.conns.register(id)
	h.mu.Unlock()

	if err != nil {
		h.log.Error("duplicate connection id", "conn_id", id)
		return err
	}
	h.metrics.Inc(metrics.EventConnect)
	h.log.Info("client connected", "conn_id", id)
	return nil
}

// Disconnect removes the connection and cleans up its room membership.
// Remaining room members are told via user_disconnected. Unknown ids are a
// no-op: disconnects for connections that never completed Connect, or that
// were already cleaned up, must not fail.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	room, ok := h.conns.unregister(id)
	var remaining []string
	if ok && room != "" {
		h.rooms.leave(room, id)
		remaining = h.rooms.members(room)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	h.metrics.Inc(metrics.EventDisconnect)
	h.log.Info("client disconnected", "conn_id", id, "room_id", room)

	sends := make([]outbound, 0, len(remaining))
	for _, m := range remaining {
		sends = append(sends, outbound{to: m, msg: Message{
			Event: EventUserDisconnected,
			Data:  UserDisconnectedPayload{UserID: id},
		}})
	}
	h.deliver(sends)
}

// JoinRoom puts the connection into roomID.
//
// The joiner gets room_users with the full member list (itself included);
// everyone else in the room gets user_joined. A join with an empty room id
// produces an error message to the requester and no state change. A
// connection that is already in a different room implicitly leaves it first,
// so the one-room-per-connection rule and the registry/directory consistency
// both hold.
func (h *Hub) JoinRoom(id, roomID string) error {
	if roomID == "" {
		h.deliver([]outbound{{to: id, msg: errorMessage("Room ID is required")}})
		return ErrRoomRequired
	}

	h.mu.Lock()
	prev, ok := h.conns.room(id)
	if !ok {
		h.mu.Unlock()
		h.log.Error("join_room for unknown connection", "conn_id", id, "room_id", roomID)
		return ErrUnknownConnection
	}
	if prev == roomID {
		// Duplicate join: idempotent, but re-send the member list so the client
		// can resynchronize.
		users := h.rooms.members(roomID)
		h.mu.Unlock()
		h.deliver([]outbound{{to: id, msg: Message{
			Event: EventRoomUsers,
			Data:  RoomUsersPayload{Users: users, UserCount: len(users)},
		}}})
		return nil
	}

	var sends []outbound
	if prev != "" {
		h.rooms.leave(prev, id)
		for _, m := range h.rooms.members(prev) {
			sends = append(sends, outbound{to: m, msg: Message{
				Event: EventUserLeft,
				Data:  UserLeftPayload{UserID: id},
			}})
		}
	}

	h.rooms.join(roomID, id)
	_ = h.conns.setRoom(id, roomID)
	users := h.rooms.members(roomID)
	h.mu.Unlock()

	h.metrics.Inc(metrics.EventRoomJoin)
	h.log.Info("client joined room", "conn_id", id, "room_id", roomID, "user_count", len(users))

	for _, m := range users {
		if m == id {
			continue
		}
		sends = append(sends, outbound{to: m, msg: Message{
			Event: EventUserJoined,
			Data:  UserJoinedPayload{UserID: id, UserCount: len(users)},
		}})
	}
	sends = append(sends, outbound{to: id, msg: Message{
		Event: EventRoomUsers,
		Data:  RoomUsersPayload{Users: users, UserCount: len(users)},
	}})
	h.deliver(sends)
	return nil
}

// LeaveRoom removes the connection from roomID. An empty roomID means "the
// room the connection is currently in". When no room resolves, or the
// connection is not actually a member of the resolved room, nothing happens.
func (h *Hub) LeaveRoom(id, roomID string) {
	h.mu.Lock()
	current, ok := h.conns.room(id)
	if !ok {
		h.mu.Unlock()
		return
	}
	if roomID == "" {
		roomID = current
	}
	if roomID == "" || roomID != current {
		h.mu.Unlock()
		return
	}

	h.rooms.leave(roomID, id)
	_ = h.conns.setRoom(id, "")
	remaining := h.rooms.members(roomID)
	h.mu.Unlock()

	h.metrics.Inc(metrics.EventRoomLeave)
	h.log.Info("client left room", "conn_id", id, "room_id", roomID)

	sends := make([]outbound, 0, len(remaining))
	for _, m := range remaining {
		sends = append(sends, outbound{to: m, msg: Message{
			Event: EventUserLeft,
			Data:  UserLeftPayload{UserID: id},
		}})
	}
	h.deliver(sends)
}

// Signal relays an opaque negotiation payload from one peer to another.
//
// Signaling is best-effort: a target that disconnected between the sender
// observing it and the relay is expected, so an unknown target is dropped and
// logged at low severity rather than surfaced to the sender.
func (h *Hub) Signal(from, target string, payload json.RawMessage) {
	h.mu.Lock()
	known := h.conns.registered(target)
	h.mu.Unlock()

	if !known {
		h.metrics.Inc(metrics.DropReasonUnknownTarget)
		h.log.Debug("dropping signal for unknown target", "conn_id", from, "target_id", target)
		return
	}
	h.metrics.Inc(metrics.EventSignal)
	h.deliver([]outbound{{to: target, msg: Message{
		Event: EventSignal,
		Data:  SignalPayload{UserID: from, Signal: payload},
	}}})
}

// Broadcast relays an opaque payload to every other member of the sender's
// room. Senders in no room are a no-op.
func (h *Hub) Broadcast(from string, data json.RawMessage) {
	h.mu.Lock()
	room, ok := h.conns.room(from)
	var members []string
	if ok && room != "" {
		members = h.rooms.members(room)
	}
	h.mu.Unlock()

	if room == "" || !ok {
		return
	}
	h.metrics.Inc(metrics.EventBroadcast)

	sends := make([]outbound, 0, len(members))
	for _, m := range members {
		if m == from {
			continue
		}
		sends = append(sends, outbound{to: m, msg: Message{
			Event: EventBroadcast,
			Data:  BroadcastPayload{UserID: from, Data: data},
		}})
	}
	h.deliver(sends)
}

// Stats reports the current number of registered connections and live rooms.
func (h *Hub) Stats() (conns, rooms int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns.len(), h.rooms.len()
}

// RoomMembers returns the member list of a room in join order, or nil when
// the room does not exist.
func (h *Hub) RoomMembers(roomID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms.members(roomID)
}

// ConnRoom returns the room the connection is currently in ("" when none)
// and whether the connection is registered.
func (h *Hub) ConnRoom(id string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns.room(id)
}
