package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/taskbook/internal/models"
)

var testSecret = []byte("test-secret-key-min-32-bytes-long")

func testIdentity() Identity {
	return Identity{
		UserID:   42,
		Username: "alice",
		Role:     models.RoleUser,
		Name:     "Alice",
	}
}

// fixedClock returns a clock that can be moved forward by the test.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func signClaims(t *testing.T, method jwt.SigningMethod, claims jwt.Claims, key any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestNewTokenService(t *testing.T) {
	t.Run("empty secret", func(t *testing.T) {
		svc, err := NewTokenService(nil, time.Hour)
		require.ErrorIs(t, err, ErrEmptySecret)
		require.Nil(t, svc)
	})

	t.Run("non positive ttl", func(t *testing.T) {
		svc, err := NewTokenService(testSecret, 0)
		require.Error(t, err)
		require.Nil(t, svc)
	})

	t.Run("sub second ttl", func(t *testing.T) {
		svc, err := NewTokenService(testSecret, 999*time.Millisecond)
		require.Error(t, err)
		require.Nil(t, svc)
	})

	t.Run("valid", func(t *testing.T) {
		svc, err := NewTokenService(testSecret, time.Hour)
		require.NoError(t, err)
		require.Equal(t, time.Hour, svc.TTL())
	})
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	clock, _ := fixedClock(start)

	svc, err := NewTokenService(testSecret, time.Hour, WithClock(clock))
	require.NoError(t, err)

	token, err := svc.Issue(testIdentity())
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), identity.UserID)
	require.Equal(t, "alice", identity.Username)
	require.Equal(t, models.RoleUser, identity.Role)
	require.Equal(t, "Alice", identity.Name)
	require.True(t, identity.IssuedAt.Equal(start))
	require.True(t, identity.ExpiresAt.Equal(start.Add(time.Hour)))
	require.False(t, identity.IsAdmin())
}

func TestPackageLevelIssueVerify(t *testing.T) {
	id := testIdentity()
	id.Role = models.RoleAdmin

	token, err := IssueToken(id, testSecret, time.Minute)
	require.NoError(t, err)

	identity, err := VerifyToken(token, testSecret)
	require.NoError(t, err)
	require.True(t, identity.IsAdmin())
	require.True(t, identity.ExpiresAt.After(identity.IssuedAt))
}

func TestIssueToken_Errors(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		secret   []byte
		ttl      time.Duration
		wantErr  error
	}{
		{name: "empty secret", identity: testIdentity(), secret: nil, ttl: time.Hour, wantErr: ErrEmptySecret},
		{name: "missing user id", identity: Identity{Username: "a", Role: models.RoleUser}, secret: testSecret, ttl: time.Hour, wantErr: ErrInvalidIdentity},
		{name: "missing username", identity: Identity{UserID: 1, Role: models.RoleUser}, secret: testSecret, ttl: time.Hour, wantErr: ErrInvalidIdentity},
		{name: "unknown role", identity: Identity{UserID: 1, Username: "a", Role: "ROOT"}, secret: testSecret, ttl: time.Hour, wantErr: ErrInvalidIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IssueToken(tt.identity, tt.secret, tt.ttl)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("zero ttl", func(t *testing.T) {
		_, err := IssueToken(testIdentity(), testSecret, 0)
		require.Error(t, err)
	})

	t.Run("sub second ttl", func(t *testing.T) {
		_, err := IssueToken(testIdentity(), testSecret, 500*time.Millisecond)
		require.Error(t, err)
	})
}

func TestIssueToken_MinimumTTLVerifies(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 999_000_000, time.UTC)
	clock, _ := fixedClock(start)

	svc, err := NewTokenService(testSecret, time.Second, WithClock(clock))
	require.NoError(t, err)

	token, err := svc.Issue(testIdentity())
	require.NoError(t, err)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, time.Second, identity.ExpiresAt.Sub(identity.IssuedAt))
}

func TestVerify_SecretRotation(t *testing.T) {
	token, err := IssueToken(testIdentity(), testSecret, time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken(token, []byte("rotated-secret-key-min-32-bytes-long"))
	require.ErrorIs(t, err, ErrBadSignature)

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, BadSignature, verr.Kind)
}

func TestVerify_Tampering(t *testing.T) {
	token, err := IssueToken(testIdentity(), testSecret, time.Hour)
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	t.Run("flipped signature byte", func(t *testing.T) {
		sig, err := base64.RawURLEncoding.DecodeString(parts[2])
		require.NoError(t, err)
		sig[0] ^= 0x01

		tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)
		_, err = VerifyToken(tampered, testSecret)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("modified payload", func(t *testing.T) {
		payload := base64.RawURLEncoding.EncodeToString([]byte(`{"userId":1,"username":"admin","role":"ADMIN","iat":1,"exp":9999999999}`))
		_, err := VerifyToken(parts[0]+"."+payload+"."+parts[2], testSecret)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("truncated payload", func(t *testing.T) {
		truncated := parts[0] + "." + parts[1][:len(parts[1])/2] + "." + parts[2]
		_, err := VerifyToken(truncated, testSecret)
		require.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("missing signature segment", func(t *testing.T) {
		_, err := VerifyToken(parts[0]+"."+parts[1], testSecret)
		require.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := VerifyToken("not-a-token", testSecret)
		require.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := VerifyToken("", testSecret)
		require.ErrorIs(t, err, ErrMalformedToken)
	})
}

func TestVerify_Expiry(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	clock, advance := fixedClock(start)

	svc, err := NewTokenService(testSecret, time.Hour, WithClock(clock))
	require.NoError(t, err)

	token, err := svc.Issue(testIdentity())
	require.NoError(t, err)

	advance(59 * time.Minute)
	_, err = svc.Verify(token)
	require.NoError(t, err)

	// exp is exclusive
	advance(time.Minute)
	_, err = svc.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.NotErrorIs(t, err, ErrBadSignature)

	advance(24 * time.Hour)
	_, err = svc.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_ClosedClaims(t *testing.T) {
	now := time.Now()
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(time.Hour))
	uid := int64(7)

	tests := []struct {
		name   string
		claims jwt.Claims
	}{
		{
			name: "missing user id",
			claims: &identityClaims{
				Username:         "bob",
				Role:             models.RoleUser,
				RegisteredClaims: jwt.RegisteredClaims{IssuedAt: iat, ExpiresAt: exp},
			},
		},
		{
			name: "missing username",
			claims: &identityClaims{
				UserID:           &uid,
				Role:             models.RoleUser,
				RegisteredClaims: jwt.RegisteredClaims{IssuedAt: iat, ExpiresAt: exp},
			},
		},
		{
			name: "unknown role",
			claims: &identityClaims{
				UserID:           &uid,
				Username:         "bob",
				Role:             "SUPERUSER",
				RegisteredClaims: jwt.RegisteredClaims{IssuedAt: iat, ExpiresAt: exp},
			},
		},
		{
			name: "missing exp",
			claims: &identityClaims{
				UserID:           &uid,
				Username:         "bob",
				Role:             models.RoleUser,
				RegisteredClaims: jwt.RegisteredClaims{IssuedAt: iat},
			},
		},
		{
			name: "missing iat",
			claims: &identityClaims{
				UserID:           &uid,
				Username:         "bob",
				Role:             models.RoleUser,
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp},
			},
		},
		{
			name:   "foreign claim shape",
			claims: jwt.MapClaims{"sub": "7", "iat": iat.Unix(), "exp": exp.Unix()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signClaims(t, jwt.SigningMethodHS256, tt.claims, testSecret)

			_, err := VerifyToken(token, testSecret)
			require.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	uid := int64(7)
	claims := &identityClaims{
		UserID:   &uid,
		Username: "bob",
		Role:     models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("HS512", func(t *testing.T) {
		token := signClaims(t, jwt.SigningMethodHS512, claims, testSecret)
		_, err := VerifyToken(token, testSecret)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("none", func(t *testing.T) {
		token := signClaims(t, jwt.SigningMethodNone, claims, jwt.UnsafeAllowNoneSignatureType)
		_, err := VerifyToken(token, testSecret)
		require.ErrorIs(t, err, ErrBadSignature)
	})
}

func TestVerificationErrorKind_String(t *testing.T) {
	require.Equal(t, "malformed", Malformed.String())
	require.Equal(t, "bad_signature", BadSignature.String())
	require.Equal(t, "expired", Expired.String())
}
