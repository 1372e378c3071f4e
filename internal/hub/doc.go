// Package hub contains the room/connection state machine at the heart of the
// signaling relay: which connection is in which room, and which outbound
// messages each inbound event produces.
//
// The hub never touches the network. It depends on a Sender capability for
// outbound delivery, which lets the WebSocket transport be swapped or mocked
// in tests.
package hub
