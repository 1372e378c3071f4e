// Package signaling implements the WebSocket transport for the relay.
//
// It owns connection upgrade, authentication, per-connection write queues and
// keepalive, and the strict inbound message grammar. Room and peer semantics
// live in the hub package; this package only translates between WebSocket
// frames and hub events.
package signaling
