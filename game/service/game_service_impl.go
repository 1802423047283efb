package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/buckshotvr/backend/game/lobby"
	"github.com/buckshotvr/backend/game/session"
)

// gameServiceImpl implements GameService on top of the lobby store and
// session manager.
type gameServiceImpl struct {
	lobbies  *lobby.Store
	sessions *session.Manager
	logger   *zap.Logger
}

// NewGameService creates the game service.
func NewGameService(lobbies *lobby.Store, sessions *session.Manager, logger *zap.Logger) GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gameServiceImpl{
		lobbies:  lobbies,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *gameServiceImpl) CreateLobby(ctx context.Context, hostID string, maxPlayers int) (lobby.Lobby, error) {
	return s.lobbies.Create(hostID, maxPlayers)
}

func (s *gameServiceImpl) JoinLobby(ctx context.Context, lobbyID, userID string) (lobby.Lobby, error) {
	return s.lobbies.Join(lobbyID, userID)
}

func (s *gameServiceImpl) GetLobby(ctx context.Context, lobbyID string) (lobby.Lobby, error) {
	return s.lobbies.Get(lobbyID)
}

func (s *gameServiceImpl) ListLobbies(ctx context.Context) ([]lobby.Lobby, error) {
	return s.lobbies.List(), nil
}

func (s *gameServiceImpl) StartGame(ctx context.Context, lobbyID string) (session.Session, error) {
	return s.sessions.Start(lobbyID)
}

func (s *gameServiceImpl) GetSession(ctx context.Context, lobbyID string) (session.Session, error) {
	return s.sessions.Get(lobbyID)
}
