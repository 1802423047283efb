// Package leaderboard is a small in-memory scoreboard. The realtime core
// never reads it; it exists behind the read-only leaderboard endpoint.
package leaderboard
