// Package mcp exposes the lobby API as MCP tools.
//
// The Client here is deliberately thin: every tool call is proxied to the
// REST API over HTTP, so MCP agents and REST clients always see the same
// state and the same validation. It can run against an already-running
// server or the internal one the stdio mode spins up.
package mcp
