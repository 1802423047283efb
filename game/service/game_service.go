package service

import (
	"context"

	"github.com/buckshotvr/backend/game/lobby"
	"github.com/buckshotvr/backend/game/session"
)

// GameService defines all lobby and session operations exposed to the
// transport layers (REST, WebSocket info, MCP).
type GameService interface {
	// Lobby management
	CreateLobby(ctx context.Context, hostID string, maxPlayers int) (lobby.Lobby, error)
	JoinLobby(ctx context.Context, lobbyID, userID string) (lobby.Lobby, error)
	GetLobby(ctx context.Context, lobbyID string) (lobby.Lobby, error)
	ListLobbies(ctx context.Context) ([]lobby.Lobby, error)

	// Session lifecycle
	StartGame(ctx context.Context, lobbyID string) (session.Session, error)
	GetSession(ctx context.Context, lobbyID string) (session.Session, error)
}
