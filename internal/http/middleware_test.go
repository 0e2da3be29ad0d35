package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIPResolver_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.168.1.1:12345",
			expected:   "192.168.1.1",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:8080",
			expected:   "2001:db8::1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.1",
			expected:   "192.168.1.1",
		},
		{
			name:       "forwarded header ignored without trust",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			expected:   "10.0.0.1",
		},
		{
			name:       "single forwarded IP",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1"},
			expected:   "192.168.1.1",
		},
		{
			name:       "multiple forwarded IPs take first",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1  ,  198.51.100.1"},
			expected:   "203.0.113.1",
		},
		{
			name:       "real ip header",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			expected:   "198.51.100.7",
		},
		{
			name:       "forwarded for wins over real ip",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1",
				"X-Real-IP":       "198.51.100.7",
			},
			expected: "203.0.113.1",
		},
		{
			name:       "blank forwarded header falls back",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": " , 198.51.100.1"},
			expected:   "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			require.Equal(t, tt.expected, ClientIPResolver{TrustProxy: tt.trustProxy}.Resolve(req))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	var captured string
	handler := ClientIPMiddleware(ClientIPResolver{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ClientIPFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:4321"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "192.0.2.10", captured)
}

func TestClientIPFromContext_missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, ClientIPFromContext(req.Context()))
}
