package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buckshotvr/backend/game/lobby"
	"github.com/buckshotvr/backend/game/service"
	"github.com/buckshotvr/backend/game/session"
	"github.com/buckshotvr/backend/leaderboard"
	"github.com/buckshotvr/backend/transport/websocket"
	"github.com/buckshotvr/backend/user"
)

// mockGameService lets individual tests override just the calls they need.
type mockGameService struct {
	createLobbyFunc func(ctx context.Context, hostID string, maxPlayers int) (lobby.Lobby, error)
	joinLobbyFunc   func(ctx context.Context, lobbyID, userID string) (lobby.Lobby, error)
	getLobbyFunc    func(ctx context.Context, lobbyID string) (lobby.Lobby, error)
	listLobbiesFunc func(ctx context.Context) ([]lobby.Lobby, error)
	startGameFunc   func(ctx context.Context, lobbyID string) (session.Session, error)
	getSessionFunc  func(ctx context.Context, lobbyID string) (session.Session, error)
}

func (m *mockGameService) CreateLobby(ctx context.Context, hostID string, maxPlayers int) (lobby.Lobby, error) {
	return m.createLobbyFunc(ctx, hostID, maxPlayers)
}

func (m *mockGameService) JoinLobby(ctx context.Context, lobbyID, userID string) (lobby.Lobby, error) {
	return m.joinLobbyFunc(ctx, lobbyID, userID)
}

func (m *mockGameService) GetLobby(ctx context.Context, lobbyID string) (lobby.Lobby, error) {
	return m.getLobbyFunc(ctx, lobbyID)
}

func (m *mockGameService) ListLobbies(ctx context.Context) ([]lobby.Lobby, error) {
	return m.listLobbiesFunc(ctx)
}

func (m *mockGameService) StartGame(ctx context.Context, lobbyID string) (session.Session, error) {
	return m.startGameFunc(ctx, lobbyID)
}

func (m *mockGameService) GetSession(ctx context.Context, lobbyID string) (session.Session, error) {
	return m.getSessionFunc(ctx, lobbyID)
}

// newTestServer wires the API against the real in-memory stores.
func newTestServer() *Server {
	lobbies := lobby.NewStore(nil)
	sessions := session.NewManager(lobbies, nil)
	svc := service.NewGameService(lobbies, sessions, nil)
	return NewServer(svc, user.NewRegistry(nil), leaderboard.NewStore(), websocket.NewHub(nil), nil)
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doJSON(t, newTestServer(), "GET", "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Healthy"}`, rec.Body.String())
}

func TestLobbyEndpoints(t *testing.T) {
	srv := newTestServer()

	rec := doJSON(t, srv, "POST", "/game/lobby/create", map[string]interface{}{
		"host_id":     "h1",
		"max_players": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created lobby.Lobby
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, []string{"h1"}, created.Players)

	t.Run("join requires user_id", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", fmt.Sprintf("/game/lobby/%s/join", created.ID), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("join adds the player", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", fmt.Sprintf("/game/lobby/%s/join?user_id=p2", created.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var joined lobby.Lobby
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))
		assert.Equal(t, []string{"h1", "p2"}, joined.Players)
	})

	t.Run("join full lobby", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", fmt.Sprintf("/game/lobby/%s/join?user_id=p3", created.ID), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("start snapshots the lobby", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", fmt.Sprintf("/game/lobby/%s/start", created.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"started","players":["h1","p2"]}`, rec.Body.String())
	})

	t.Run("session is readable after start", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", fmt.Sprintf("/game/lobby/%s/session", created.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var sess session.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
		assert.Equal(t, session.StateStarted, sess.State)
		assert.Equal(t, []string{"h1", "p2"}, sess.Players)
	})

	t.Run("get lobby", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/game/lobby/"+created.ID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("list lobbies", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/game/lobbies", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Count   int           `json:"count"`
			Lobbies []lobby.Lobby `json:"lobbies"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("invalid create body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/game/lobby/create", bytes.NewBufferString("not json"))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"lobby not found", lobby.ErrLobbyNotFound, http.StatusNotFound},
		{"session not found", session.ErrSessionNotFound, http.StatusNotFound},
		{"lobby full", lobby.ErrLobbyFull, http.StatusBadRequest},
		{"invalid max players", lobby.ErrInvalidMaxPlayers, http.StatusBadRequest},
		{"email taken", user.ErrEmailTaken, http.StatusConflict},
		{"bad credentials", user.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestLobbyEndpoints_ServiceErrors(t *testing.T) {
	svc := &mockGameService{
		getLobbyFunc: func(ctx context.Context, lobbyID string) (lobby.Lobby, error) {
			return lobby.Lobby{}, lobby.ErrLobbyNotFound
		},
		startGameFunc: func(ctx context.Context, lobbyID string) (session.Session, error) {
			return session.Session{}, lobby.ErrLobbyNotFound
		},
	}
	srv := NewServer(svc, user.NewRegistry(nil), leaderboard.NewStore(), websocket.NewHub(nil), nil)

	rec := doJSON(t, srv, "GET", "/game/lobby/lobby_404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, "POST", "/game/lobby/lobby_404/start", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	srv := newTestServer()

	rec := doJSON(t, srv, "POST", "/user/register", map[string]string{
		"email":    "alice@example.com",
		"username": "alice",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var profile user.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.NotEmpty(t, profile.ID)

	t.Run("duplicate registration", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/user/register", map[string]string{
			"email":    "alice@example.com",
			"username": "alice2",
			"password": "hunter22",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("login", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/user/login", map[string]string{
			"email":    "alice@example.com",
			"password": "hunter22",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/user/login", map[string]string{
			"email":    "alice@example.com",
			"password": "wrong999",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("profile lookup", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/user/profile/"+profile.ID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, srv, "GET", "/user/profile/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLeaderboardEndpoints(t *testing.T) {
	srv := newTestServer()

	rec := doJSON(t, srv, "POST", "/leaderboard", leaderboard.Entry{Username: "alice", Score: 42})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, "POST", "/leaderboard", leaderboard.Entry{Username: "", Score: 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, "GET", "/leaderboard?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []leaderboard.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Username)
}

func TestWSInfoEndpoint(t *testing.T) {
	rec := doJSON(t, newTestServer(), "GET", "/ws/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		WSURL       string         `json:"ws_url"`
		Handlers    []string       `json:"handlers"`
		Subscribers map[string]int `json:"subscribers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/ws/game", resp.WSURL)
	assert.Len(t, resp.Handlers, 2)
	assert.Empty(t, resp.Subscribers)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/game/lobbies", nil)
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
