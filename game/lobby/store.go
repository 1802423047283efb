package lobby

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrLobbyNotFound     = errors.New("lobby not found")
	ErrLobbyFull         = errors.New("lobby is full")
	ErrInvalidMaxPlayers = errors.New("max players must be positive")
)

// Lobby is a read-only snapshot of a lobby's state. Mutations go through
// the Store; a snapshot handed out to callers never changes afterwards.
type Lobby struct {
	ID         string    `json:"lobby_id"`
	HostID     string    `json:"host_id"`
	Players    []string  `json:"players"`
	MaxPlayers int       `json:"max_players"`
	CreatedAt  time.Time `json:"created_at"`
}

// record is the mutable lobby state held by the store. Membership is
// guarded by the record's own mutex so joins to different lobbies don't
// serialize against each other.
type record struct {
	mu         sync.Mutex
	id         string
	hostID     string
	players    []string
	maxPlayers int
	createdAt  time.Time
}

// snapshot copies the record into an immutable Lobby. Callers must hold r.mu.
func (r *record) snapshot() Lobby {
	players := make([]string, len(r.players))
	copy(players, r.players)
	return Lobby{
		ID:         r.id,
		HostID:     r.hostID,
		Players:    players,
		MaxPlayers: r.maxPlayers,
		CreatedAt:  r.createdAt,
	}
}

// Store holds all lobbies in memory and enforces the capacity and
// membership invariants.
type Store struct {
	mu      sync.RWMutex
	lobbies map[string]*record
	nextID  int
	logger  *zap.Logger
}

// NewStore creates an empty lobby store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		lobbies: make(map[string]*record),
		logger:  logger,
	}
}

// Create registers a new lobby with the host as its first player.
// Lobby IDs are assigned from a monotonic counter, so no two calls ever
// produce the same ID.
func (s *Store) Create(hostID string, maxPlayers int) (Lobby, error) {
	if maxPlayers <= 0 {
		return Lobby{}, fmt.Errorf("%w: got %d", ErrInvalidMaxPlayers, maxPlayers)
	}

	s.mu.Lock()
	s.nextID++
	rec := &record{
		id:         fmt.Sprintf("lobby_%d", s.nextID),
		hostID:     hostID,
		players:    []string{hostID},
		maxPlayers: maxPlayers,
		createdAt:  time.Now(),
	}
	s.lobbies[rec.id] = rec
	s.mu.Unlock()

	s.logger.Info("lobby created",
		zap.String("lobby_id", rec.id),
		zap.String("host_id", hostID),
		zap.Int("max_players", maxPlayers))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(), nil
}

// Join adds a player to a lobby, preserving join order. Joining a lobby
// the player is already in succeeds without changing membership. Joins to
// the same lobby are serialized by the record mutex, so a full lobby can
// never exceed its capacity regardless of concurrent callers.
func (s *Store) Join(lobbyID, userID string) (Lobby, error) {
	rec, err := s.lookup(lobbyID)
	if err != nil {
		return Lobby{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	for _, p := range rec.players {
		if p == userID {
			return rec.snapshot(), nil
		}
	}

	if len(rec.players) >= rec.maxPlayers {
		return Lobby{}, fmt.Errorf("%w: %s has %d/%d players",
			ErrLobbyFull, lobbyID, len(rec.players), rec.maxPlayers)
	}

	rec.players = append(rec.players, userID)

	s.logger.Info("player joined lobby",
		zap.String("lobby_id", lobbyID),
		zap.String("user_id", userID),
		zap.Int("players", len(rec.players)))

	return rec.snapshot(), nil
}

// Get returns a snapshot of the lobby.
func (s *Store) Get(lobbyID string) (Lobby, error) {
	rec, err := s.lookup(lobbyID)
	if err != nil {
		return Lobby{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(), nil
}

// List returns snapshots of all lobbies, oldest first.
func (s *Store) List() []Lobby {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.lobbies))
	for _, rec := range s.lobbies {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	result := make([]Lobby, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		result = append(result, rec.snapshot())
		rec.mu.Unlock()
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}

// Count returns the number of lobbies.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobbies)
}

func (s *Store) lookup(lobbyID string) (*record, error) {
	s.mu.RLock()
	rec, exists := s.lobbies[lobbyID]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrLobbyNotFound, lobbyID)
	}
	return rec, nil
}
