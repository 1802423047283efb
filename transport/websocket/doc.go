// Package websocket provides the realtime broadcast transport for the
// Buckshot Roulette VR backend.
//
// Architecture:
//
// The package uses a hub-and-spoke model. The Hub owns one subscriber set
// per named channel ("game" and "chat" in the current protocol) and a
// single run loop that serializes subscribe, unsubscribe, and broadcast.
// Each connection gets a read pump and a write pump goroutine plus a
// buffered outbound channel, so one slow peer never blocks the others.
//
// Message Protocol:
//
// Clients send one JSON value per logical event. The server relays every
// inbound payload to all current subscribers of the same channel,
// including the sender, wrapped in an envelope:
//   - game channel: {"from": "server", "event": <payload>}
//   - chat channel: {"from": "server", "message": <payload>}
//
// Payload content is opaque to this layer; the game rule engine is the
// one that interprets it.
//
// Connection Lifecycle:
//
// 1. Client connects to /ws/game or /ws/chat
// 2. Connection is registered with that channel
// 3. Inbound messages are fanned out to the channel's subscribers
// 4. Close or read error unregisters the connection, on every exit path
//
// There is no reconnect or replay: a reconnecting client is a brand-new
// subscriber and only sees frames broadcast after it joined.
package websocket
