package hub

import "errors"

var (
	// ErrAlreadyRegistered is returned when Connect is invoked for a connection
	// id that is already registered.
	//
	// The transport layer assigns unique ids, so this indicates an identifier
	// reuse bug in the transport rather than bad client input. The offending
	// connection must be rejected rather than overwriting the existing record.
	ErrAlreadyRegistered = errors.New("connection already registered")

	// ErrUnknownConnection is returned when an event references a connection id
	// that is not registered.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrRoomRequired is returned for a join without a room id.
	ErrRoomRequired = errors.New("room id is required")
)
