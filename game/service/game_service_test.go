package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buckshotvr/backend/game/lobby"
	"github.com/buckshotvr/backend/game/session"
)

func newTestService() GameService {
	lobbies := lobby.NewStore(nil)
	sessions := session.NewManager(lobbies, nil)
	return NewGameService(lobbies, sessions, nil)
}

// Full lobby lifecycle through the facade: create, fill to capacity,
// reject the overflow join, start, and read back the snapshot.
func TestGameService_LobbyLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	lob, err := svc.CreateLobby(ctx, "h1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, lob.Players)

	lob, err = svc.JoinLobby(ctx, lob.ID, "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "p2"}, lob.Players)

	_, err = svc.JoinLobby(ctx, lob.ID, "p3")
	assert.ErrorIs(t, err, lobby.ErrLobbyFull)

	sess, err := svc.StartGame(ctx, lob.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateStarted, sess.State)
	assert.Equal(t, []string{"h1", "p2"}, sess.Players)

	got, err := svc.GetSession(ctx, lob.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Players, got.Players)
}

func TestGameService_Lookups(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.GetLobby(ctx, "lobby_404")
	assert.ErrorIs(t, err, lobby.ErrLobbyNotFound)

	_, err = svc.StartGame(ctx, "lobby_404")
	assert.ErrorIs(t, err, lobby.ErrLobbyNotFound)

	_, err = svc.GetSession(ctx, "lobby_404")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	lobbies, err := svc.ListLobbies(ctx)
	require.NoError(t, err)
	assert.Empty(t, lobbies)

	_, err = svc.CreateLobby(ctx, "h1", 4)
	require.NoError(t, err)

	lobbies, err = svc.ListLobbies(ctx)
	require.NoError(t, err)
	assert.Len(t, lobbies, 1)
}
