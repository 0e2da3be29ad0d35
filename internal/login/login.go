package login

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/taskbook/internal/auth"
	"github.com/wolfeidau/taskbook/internal/store"
	"github.com/wolfeidau/taskbook/internal/telemetry"
	"golang.org/x/crypto/bcrypt"
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	User *auth.Identity `json:"user"`
}

// Handlers serves the login, logout and session endpoints.
type Handlers struct {
	users store.UserStore
	gate  *auth.Gate
}

// NewHandlers creates the login handlers.
func NewHandlers(users store.UserStore, gate *auth.Gate) *Handlers {
	return &Handlers{
		users: users,
		gate:  gate,
	}
}

// LoginHandler checks the credentials and sets the session cookie.
// An unknown user and a wrong password produce the same 401 response.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	metrics := telemetry.GetMetrics()

	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" || creds.Password == "" {
		writeJSON(w, r, http.StatusBadRequest, messageResponse{Message: "Username and password are required"})
		return
	}

	user, err := h.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Spend the same bcrypt work as a real comparison.
			_ = bcrypt.CompareHashAndPassword(getDummyHash(), []byte(creds.Password))
			logger.Debug().Str("username", creds.Username).Msg("Login failed: unknown user")
			metrics.RecordLoginAttempt(ctx, "invalid")
			writeJSON(w, r, http.StatusUnauthorized, messageResponse{Message: "Invalid credentials"})
			return
		}

		logger.Error().Err(err).Msg("Failed to look up user")
		metrics.RecordLoginAttempt(ctx, "error")
		writeJSON(w, r, http.StatusInternalServerError, messageResponse{Message: "Internal Server Error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		logger.Debug().Str("username", creds.Username).Msg("Login failed: wrong password")
		metrics.RecordLoginAttempt(ctx, "invalid")
		writeJSON(w, r, http.StatusUnauthorized, messageResponse{Message: "Invalid credentials"})
		return
	}

	token, err := h.gate.Tokens().Issue(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Name:     user.Name,
	})
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue session token")
		metrics.RecordLoginAttempt(ctx, "error")
		writeJSON(w, r, http.StatusInternalServerError, messageResponse{Message: "Internal Server Error"})
		return
	}

	h.gate.SetSessionCookie(w, token)
	metrics.RecordLoginAttempt(ctx, "success")

	logger.Info().
		Int64("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("User logged in")

	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Login successful"})
}

// LogoutHandler clears the session cookie. It always succeeds.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.gate.ClearSessionCookie(w)
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Logout successful"})
}

// SessionHandler returns the identity of the current session.
// It must be mounted behind the API guard.
func (h *Handlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.WriteUnauthorized(w)
		return
	}
	writeJSON(w, r, http.StatusOK, sessionResponse{User: identity})
}

func getDummyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("taskbook-dummy-password"), bcrypt.DefaultCost)
	})
	return dummyHash
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
	}
}
