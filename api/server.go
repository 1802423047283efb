package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/buckshotvr/backend/game/lobby"
	"github.com/buckshotvr/backend/game/service"
	"github.com/buckshotvr/backend/game/session"
	"github.com/buckshotvr/backend/leaderboard"
	"github.com/buckshotvr/backend/transport/websocket"
	"github.com/buckshotvr/backend/user"
)

// Server is the REST and WebSocket entry point.
type Server struct {
	service service.GameService
	users   *user.Registry
	scores  *leaderboard.Store
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates the API server and wires all routes.
func NewServer(gameService service.GameService, users *user.Registry, scores *leaderboard.Store, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		users:   users,
		scores:  scores,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health
	s.router.HandleFunc("/", s.handleHealth).Methods("GET")

	// Lobby and session management
	game := s.router.PathPrefix("/game").Subrouter()
	game.HandleFunc("/lobby/create", s.handleCreateLobby).Methods("POST")
	game.HandleFunc("/lobbies", s.handleListLobbies).Methods("GET")
	game.HandleFunc("/lobby/{id}/join", s.handleJoinLobby).Methods("POST")
	game.HandleFunc("/lobby/{id}/start", s.handleStartGame).Methods("POST")
	game.HandleFunc("/lobby/{id}/session", s.handleGetSession).Methods("GET")
	game.HandleFunc("/lobby/{id}", s.handleGetLobby).Methods("GET")

	// Users
	usr := s.router.PathPrefix("/user").Subrouter()
	usr.HandleFunc("/register", s.handleRegister).Methods("POST")
	usr.HandleFunc("/login", s.handleLogin).Methods("POST")
	usr.HandleFunc("/profile/{id}", s.handleGetProfile).Methods("GET")

	// Leaderboard
	s.router.HandleFunc("/leaderboard", s.handleGetLeaderboard).Methods("GET")
	s.router.HandleFunc("/leaderboard", s.handleSubmitScore).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws/info", s.handleWSInfo).Methods("GET")
	s.router.HandleFunc("/ws/game", func(w http.ResponseWriter, r *http.Request) {
		s.hub.ServeWS(w, r, "game", websocket.KeyEvent)
	})
	s.router.HandleFunc("/ws/chat", func(w http.ResponseWriter, r *http.Request) {
		s.hub.ServeWS(w, r, "chat", websocket.KeyMessage)
	})
}

// ServeHTTP implements http.Handler. CORS wraps the whole router so
// preflight requests are answered even for method-restricted routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corsMiddleware(s.router).ServeHTTP(w, r)
}

// corsMiddleware mirrors the permissive CORS setup the VR frontend and
// browser tooling rely on during development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps domain errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, lobby.ErrLobbyFull),
		errors.Is(err, lobby.ErrInvalidMaxPlayers),
		errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, leaderboard.ErrInvalidEntry):
		return http.StatusBadRequest
	case errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Health

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Healthy"})
}

// Lobby Handlers

func (s *Server) handleCreateLobby(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HostID     string `json:"host_id"`
		MaxPlayers int    `json:"max_players"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	lob, err := s.service.CreateLobby(r.Context(), req.HostID, req.MaxPlayers)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, lob)
}

func (s *Server) handleJoinLobby(w http.ResponseWriter, r *http.Request) {
	lobbyID := mux.Vars(r)["id"]

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id query parameter required")
		return
	}

	lob, err := s.service.JoinLobby(r.Context(), lobbyID, userID)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, lob)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	lobbyID := mux.Vars(r)["id"]

	sess, err := s.service.StartGame(r.Context(), lobbyID)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  sess.State,
		"players": sess.Players,
	})
}

func (s *Server) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	lobbyID := mux.Vars(r)["id"]

	lob, err := s.service.GetLobby(r.Context(), lobbyID)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, lob)
}

func (s *Server) handleListLobbies(w http.ResponseWriter, r *http.Request) {
	lobbies, err := s.service.ListLobbies(r.Context())
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(lobbies),
		"lobbies": lobbies,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	lobbyID := mux.Vars(r)["id"]

	sess, err := s.service.GetSession(r.Context(), lobbyID)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, sess)
}

// User Handlers

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := s.users.Register(req.Email, req.Username, req.Password)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := s.users.Login(req.Email, req.Password)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	profile, err := s.users.GetProfile(userID)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// Leaderboard Handlers

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	respondJSON(w, http.StatusOK, s.scores.Top(limit))
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var req leaderboard.Entry

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.scores.Submit(req.Username, req.Score); err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, req)
}

// WebSocket info

func (s *Server) handleWSInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ws_url":      "/ws/game",
		"description": "Connect via WebSocket for lobby, chat, and real-time game events. Send/receive JSON.",
		"handlers": []string{
			"/ws/game - Lobby and game events",
			"/ws/chat - Global/chatroom events",
		},
		"subscribers": s.hub.ChannelCounts(),
	})
}
