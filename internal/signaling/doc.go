// Package signaling relays WebRTC handshake messages, room chat and presence
// between browser clients connected over WebSocket.
//
// Every WebSocket text message, in both directions, is a JSON envelope:
//
//	{"event": "<name>", "data": {...}}
//
// The Coordinator owns room membership and per-connection identity and emits
// outbound frames through a Transport. Hub is the WebSocket Transport; Server
// upgrades GET /socket and pumps frames between the socket and the
// Coordinator. SDP offers, answers and ICE candidates are forwarded as opaque
// JSON and never inspected.
package signaling
