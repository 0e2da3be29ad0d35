package http

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const clientIPContextKey contextKey = "client_ip"

// ClientIPResolver works out the address of the caller.
// Forwarding headers are only honoured when TrustProxy is set, otherwise any client
// could claim an arbitrary address in the request log.
type ClientIPResolver struct {
	TrustProxy bool
}

// Resolve returns the client IP for r.
// With TrustProxy it checks X-Forwarded-For first, then X-Real-IP, finally RemoteAddr.
func (c ClientIPResolver) Resolve(r *http.Request) string {
	if c.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// The first entry is the original client
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIPFromContext extracts the client IP from the request context.
// This should be called from handlers wrapped by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// ClientIPMiddleware stores the resolved client IP in the request context for request logging.
func ClientIPMiddleware(resolver ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPContextKey, resolver.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
