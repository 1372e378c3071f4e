package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type messageType string

const (
	messageTypeAuth      messageType = "auth"
	messageTypeJoinRoom  messageType = "join_room"
	messageTypeLeaveRoom messageType = "leave_room"
	messageTypeSignal    messageType = "signal"
	messageTypeBroadcast messageType = "broadcast"
)

// clientMessage is the inbound wire format. One struct covers every message
// type; validate rejects fields that don't belong to the declared type so a
// malformed client fails fast instead of being half-interpreted.
type clientMessage struct {
	Type messageType `json:"type"`

	RoomID   string          `json:"roomId,omitempty"`
	TargetID string          `json:"targetId,omitempty"`
	Signal   json.RawMessage `json:"signal,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`

	APIKey string `json:"apiKey,omitempty"`
	Token  string `json:"token,omitempty"`
}

func parseClientMessage(data []byte) (clientMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg clientMessage
	if err := dec.Decode(&msg); err != nil {
		return clientMessage{}, err
	}
	if err := msg.validate(); err != nil {
		return clientMessage{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return clientMessage{}, fmt.Errorf("unexpected trailing data")
	}
	return msg, nil
}

func (m clientMessage) validate() error {
	switch m.Type {
	case messageTypeAuth:
		if m.APIKey == "" && m.Token == "" {
			return fmt.Errorf("auth message missing apiKey/token")
		}
		if m.RoomID != "" || m.TargetID != "" || m.Signal != nil || m.Data != nil {
			return fmt.Errorf("auth message has unexpected fields")
		}
	case messageTypeJoinRoom:
		// A missing roomId is deliberately NOT rejected here: the hub answers it
		// with an in-band error message to the requester.
		if m.TargetID != "" || m.Signal != nil || m.Data != nil || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("join_room message has unexpected fields")
		}
	case messageTypeLeaveRoom:
		// roomId is optional; it defaults to the connection's current room.
		if m.TargetID != "" || m.Signal != nil || m.Data != nil || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("leave_room message has unexpected fields")
		}
	case messageTypeSignal:
		if m.RoomID != "" || m.Data != nil || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("signal message has unexpected fields")
		}
	case messageTypeBroadcast:
		if m.RoomID != "" || m.TargetID != "" || m.Signal != nil || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("broadcast message has unexpected fields")
		}
	default:
		return fmt.Errorf("unsupported message type %q", m.Type)
	}
	return nil
}
