// Package service provides the business logic layer for the Buckshot
// Roulette VR backend.
//
// GameService is the facade the transport layers talk to. It sits between
// the REST/MCP surfaces and the lobby store and session manager, so the
// handlers never reach into storage directly and tests can substitute a
// mock service.
//
// Usage:
//
//	lobbies := lobby.NewStore(logger)
//	sessions := session.NewManager(lobbies, logger)
//	svc := service.NewGameService(lobbies, sessions, logger)
//
//	lob, err := svc.CreateLobby(ctx, "host-1", 4)
package service
