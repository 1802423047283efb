// Package session manages the lobby-to-game transition. A session is an
// immutable snapshot of a lobby's membership taken at start time, keyed by
// the lobby ID. The game rule engine plugs in on top of this record; the
// backend itself only tracks that a game was started and with whom.
package session
