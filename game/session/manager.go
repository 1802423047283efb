package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/buckshotvr/backend/game/lobby"
)

var ErrSessionNotFound = errors.New("session not found")

// State is the lifecycle state of a game session. The state machine is a
// stub with a single state for now; round resolution will extend it.
type State string

const StateStarted State = "started"

// Session is the started-game record for a lobby. Players is a snapshot of
// the lobby membership taken at start time; later lobby joins do not
// affect it.
type Session struct {
	LobbyID   string    `json:"lobby_id"`
	State     State     `json:"state"`
	Players   []string  `json:"players"`
	StartedAt time.Time `json:"started_at"`
}

// LobbyGetter is the slice of the lobby store the manager needs.
type LobbyGetter interface {
	Get(lobbyID string) (lobby.Lobby, error)
}

// Manager owns the lobby-to-session transition and the table of started
// sessions, keyed by the originating lobby ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Session
	lobbies  LobbyGetter
	logger   *zap.Logger
}

// NewManager creates a session manager backed by the given lobby store.
func NewManager(lobbies LobbyGetter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]Session),
		lobbies:  lobbies,
		logger:   logger,
	}
}

// Start transitions a lobby into a started session, snapshotting its
// current membership. Starting an already-started lobby re-snapshots the
// membership rather than failing.
func (m *Manager) Start(lobbyID string) (Session, error) {
	lob, err := m.lobbies.Get(lobbyID)
	if err != nil {
		return Session{}, fmt.Errorf("starting session: %w", err)
	}

	sess := Session{
		LobbyID:   lob.ID,
		State:     StateStarted,
		Players:   lob.Players,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[lob.ID] = sess
	m.mu.Unlock()

	m.logger.Info("session started",
		zap.String("lobby_id", lob.ID),
		zap.Int("players", len(sess.Players)))

	return sess, nil
}

// Get returns the started session for a lobby.
func (m *Manager) Get(lobbyID string) (Session, error) {
	m.mu.RLock()
	sess, exists := m.sessions[lobbyID]
	m.mu.RUnlock()

	if !exists {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, lobbyID)
	}
	return sess, nil
}

// List returns all started sessions.
func (m *Manager) List() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Count returns the number of started sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
