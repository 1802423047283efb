package user

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid registration input")
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 6
)

// Profile is the public view of an account. Password material never leaves
// the registry.
type Profile struct {
	ID       string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type account struct {
	id           string
	email        string
	username     string
	passwordHash []byte
}

// Registry is the in-memory account store. Emails are unique; user IDs are
// random UUIDs handed to the game core as opaque keys.
type Registry struct {
	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account
	logger  *zap.Logger
}

// NewRegistry creates an empty user registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
		logger:  logger,
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (r *Registry) Register(email, username, password string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if err := validateRegistration(email, username, password); err != nil {
		return Profile{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Profile{}, fmt.Errorf("hashing password: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return Profile{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	}

	acct := &account{
		id:           uuid.NewString(),
		email:        email,
		username:     username,
		passwordHash: hash,
	}
	r.byEmail[email] = acct
	r.byID[acct.id] = acct

	r.logger.Info("user registered",
		zap.String("user_id", acct.id),
		zap.String("username", username))

	return acct.profile(), nil
}

// Login verifies the credentials and returns the matching profile.
func (r *Registry) Login(email, password string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	r.mu.RLock()
	acct, exists := r.byEmail[email]
	r.mu.RUnlock()

	if !exists {
		return Profile{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return Profile{}, ErrInvalidCredentials
	}

	return acct.profile(), nil
}

// GetProfile fetches a profile by user ID.
func (r *Registry) GetProfile(userID string) (Profile, error) {
	r.mu.RLock()
	acct, exists := r.byID[userID]
	r.mu.RUnlock()

	if !exists {
		return Profile{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return acct.profile(), nil
}

func (a *account) profile() Profile {
	return Profile{ID: a.id, Email: a.email, Username: a.username}
}

func validateRegistration(email, username, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d-%d characters",
			ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters",
			ErrInvalidInput, minPasswordLen)
	}
	return nil
}
