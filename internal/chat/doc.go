// Package chat implements real-time signaling for customer support
// conversations.
//
// It keeps WebSocket lifecycle, room state transitions, and event fan-out
// isolated from the storefront so the shop only has to speak the wire
// protocol and read finished transcripts.
package chat
