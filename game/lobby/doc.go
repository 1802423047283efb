// Package lobby implements the in-memory lobby store for the Buckshot
// Roulette VR backend.
//
// A lobby groups players waiting for a game to start. The store enforces
// two invariants:
//   - a lobby always contains between 1 and max_players members, with the
//     host as the first entrant
//   - membership mutations to a single lobby are serialized, so concurrent
//     joins can never push a lobby past its capacity
//
// Lobby IDs come from a monotonic counter (lobby_1, lobby_2, ...). Lobbies
// are never removed; there is no leave or delete operation at this layer.
package lobby
