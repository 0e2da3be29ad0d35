package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/taskbook/internal/telemetry"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "auth_token"

// DefaultSiteAllowList holds the paths the site guard lets through without a session,
// in addition to the login page. Entries ending in "/" match as prefixes.
var DefaultSiteAllowList = []string{"/static/", "/api/", "/healthz"}

type contextKey string

const identityContextKey contextKey = "identity"

// WithIdentity adds the authenticated identity to the context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the authenticated identity from the context
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok && identity != nil
}

// Gate authenticates requests from the session cookie.
type Gate struct {
	tokens *TokenService
	secure bool
}

// NewGate creates a gate verifying cookies with tokens. secure controls the
// Secure attribute of cookies written by the gate and should only be off in development.
func NewGate(tokens *TokenService, secure bool) *Gate {
	return &Gate{
		tokens: tokens,
		secure: secure,
	}
}

// Tokens returns the token service used by the gate.
func (g *Gate) Tokens() *TokenService {
	return g.tokens
}

// Authenticate extracts and verifies the session cookie.
// Any failure is returned as ErrUnauthenticated, wrapping the verification error when there is one.
func (g *Gate) Authenticate(r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrUnauthenticated
	}

	identity, err := g.tokens.Verify(cookie.Value)
	if err != nil {
		kind := "unknown"
		var verr *VerificationError
		if errors.As(err, &verr) {
			kind = verr.Kind.String()
		}

		zerolog.Ctx(r.Context()).Debug().
			Str("kind", kind).
			Str("path", r.URL.Path).
			Msg("Session token rejected")
		telemetry.GetMetrics().RecordTokenFailure(r.Context(), kind)

		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	return identity, nil
}

// SiteGuard protects page routes. Requests without a valid session are redirected to
// loginPath, clearing a stale cookie if one was sent. loginPath and the allow list pass through.
func (g *Gate) SiteGuard(loginPath string, allow ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == loginPath || isAllowed(r.URL.Path, allow) {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := g.Authenticate(r)
			if err != nil {
				if _, cerr := r.Cookie(SessionCookieName); cerr == nil {
					g.ClearSessionCookie(w)
				}
				zerolog.Ctx(r.Context()).Debug().Str("path", r.URL.Path).Msg("No valid session, redirecting to login")
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// APIGuard protects API routes. Requests without a valid session get a 401 JSON body.
func (g *Gate) APIGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := g.Authenticate(r)
			if err != nil {
				WriteUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WriteUnauthorized writes the 401 JSON response used by the API.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
}

// SetSessionCookie writes the session cookie, it lives as long as the token.
func (g *Gate) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func (g *Gate) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func isAllowed(path string, allow []string) bool {
	for _, prefix := range allow {
		if strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == prefix {
			return true
		}
	}
	return false
}
