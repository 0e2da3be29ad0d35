package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wolfeidau/taskbook/internal/models"
)

var (
	// ErrEmptySecret is returned when a token is issued or verified without a signing secret.
	ErrEmptySecret = errors.New("token signing secret is empty")

	// ErrInvalidIdentity is returned by Issue when the identity is incomplete.
	ErrInvalidIdentity = errors.New("invalid identity")

	// Matched by errors.Is against a *VerificationError of the same kind.
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("bad token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// Identity is the claim carried by a session token.
// It is valid in [IssuedAt, ExpiresAt) and is never stored server side.
type Identity struct {
	UserID    int64       `json:"userId"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	Name      string      `json:"name"`
	IssuedAt  time.Time   `json:"issuedAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// IsAdmin reports whether the identity carries the ADMIN role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// identityClaims is the JWT payload. UserID is a pointer so a missing claim
// can be told apart from a zero value.
type identityClaims struct {
	UserID   *int64      `json:"userId"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	Name     string      `json:"name"`
	jwt.RegisteredClaims
}

// VerificationErrorKind classifies why a token was rejected.
type VerificationErrorKind int

const (
	Malformed VerificationErrorKind = iota + 1
	BadSignature
	Expired
)

func (k VerificationErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case BadSignature:
		return "bad_signature"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// VerificationError is returned by VerifyToken and TokenService.Verify.
type VerificationError struct {
	Kind VerificationErrorKind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return "token rejected: " + e.Kind.String()
	}
	return fmt.Sprintf("token rejected: %s: %v", e.Kind, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind.
func (e *VerificationError) Is(target error) bool {
	switch target {
	case ErrMalformedToken:
		return e.Kind == Malformed
	case ErrBadSignature:
		return e.Kind == BadSignature
	case ErrTokenExpired:
		return e.Kind == Expired
	}
	return false
}

// IssueToken signs an HS256 token for identity that expires after ttl.
func IssueToken(identity Identity, secret []byte, ttl time.Duration) (string, error) {
	token, _, err := issueToken(identity, secret, ttl, time.Now())
	return token, err
}

// VerifyToken checks the signature and expiry of token and returns the identity it carries.
func VerifyToken(token string, secret []byte) (*Identity, error) {
	return verifyToken(token, secret, time.Now)
}

// minTTL is the claim precision, a shorter ttl would give exp == iat.
const minTTL = time.Second

func issueToken(identity Identity, secret []byte, ttl time.Duration, now time.Time) (string, *Identity, error) {
	if len(secret) == 0 {
		return "", nil, ErrEmptySecret
	}
	if ttl < minTTL {
		return "", nil, fmt.Errorf("token ttl must be at least %s, got %s", minTTL, ttl)
	}
	if identity.UserID <= 0 || identity.Username == "" || !identity.Role.Valid() {
		return "", nil, ErrInvalidIdentity
	}

	// NumericDate has second precision, keep the returned identity in step with the token.
	now = now.Truncate(time.Second)
	identity.IssuedAt = now
	identity.ExpiresAt = now.Add(ttl)

	userID := identity.UserID
	claims := &identityClaims{
		UserID:   &userID,
		Username: identity.Username,
		Role:     identity.Role,
		Name:     identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(identity.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(identity.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, &identity, nil
}

func verifyToken(token string, secret []byte, now func() time.Time) (*Identity, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	claims := &identityClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, classifyJWTError(err)
	}

	if err := claims.validate(); err != nil {
		return nil, &VerificationError{Kind: Malformed, Err: err}
	}

	return &Identity{
		UserID:    *claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		Name:      claims.Name,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// validate enforces the closed claim structure on a token whose signature has verified.
func (c *identityClaims) validate() error {
	switch {
	case c.UserID == nil || *c.UserID <= 0:
		return errors.New("missing userId claim")
	case c.Username == "":
		return errors.New("missing username claim")
	case !c.Role.Valid():
		return fmt.Errorf("invalid role claim %q", c.Role)
	case c.IssuedAt == nil:
		return errors.New("missing iat claim")
	case c.ExpiresAt == nil:
		return errors.New("missing exp claim")
	case !c.ExpiresAt.After(c.IssuedAt.Time):
		return errors.New("exp must be after iat")
	}
	return nil
}

func classifyJWTError(err error) *VerificationError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerificationError{Kind: Expired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &VerificationError{Kind: BadSignature, Err: err}
	default:
		// ErrTokenMalformed, ErrTokenRequiredClaimMissing, ErrTokenUsedBeforeIssued
		// and anything else the parser rejects.
		return &VerificationError{Kind: Malformed, Err: err}
	}
}

// TokenService issues and verifies session tokens with a fixed secret and ttl.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source, used by tests to move past expiry.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a token service. The secret must be non-empty and ttl at least a second.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl < minTTL {
		return nil, fmt.Errorf("token ttl must be at least %s, got %s", minTTL, ttl)
	}

	s := &TokenService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for identity. IssuedAt and ExpiresAt are set from the service clock.
func (s *TokenService) Issue(identity Identity) (string, error) {
	token, _, err := issueToken(identity, s.secret, s.ttl, s.now())
	return token, err
}

// IssueIdentity signs a token and also returns the identity as it was encoded.
func (s *TokenService) IssueIdentity(identity Identity) (string, *Identity, error) {
	return issueToken(identity, s.secret, s.ttl, s.now())
}

// Verify checks token against the service secret and clock.
func (s *TokenService) Verify(token string) (*Identity, error) {
	return verifyToken(token, s.secret, s.now)
}
