package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures callers react to differently: an expired token means
// the client should re-authenticate or refresh, a bad signature or malformed
// token means the request is hostile or corrupt and gets no such courtesy.
var (
	ErrTokenExpired          = errors.New("session token expired")
	ErrTokenMalformed        = errors.New("session token malformed")
	ErrTokenSignatureInvalid = errors.New("session token signature invalid")
)

// DefaultSessionTTL is used by CreateSessionToken
const DefaultSessionTTL = 24 * time.Hour

// SessionClaims are the signed, tamper-evident claims carried in a session token
type SessionClaims struct {
	UserID    string            `json:"uid"`
	SessionID string            `json:"sid"`
	Role      string            `json:"role,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig holds signing configuration
type TokenIssuerConfig struct {
	Secret string // HMAC signing secret
	Issuer string // Issuer identity bound into every token
}

// TokenIssuer signs and verifies session tokens (HS256)
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(config TokenIssuerConfig) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(config.Secret),
		issuer: config.Issuer,
		now:    time.Now,
	}
}

// Sign produces a signed token carrying the claims, valid for ttl
func (ti *TokenIssuer) Sign(claims SessionClaims, ttl time.Duration) (string, error) {
	now := ti.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    ti.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims. Failures map to
// exactly one of ErrTokenExpired, ErrTokenSignatureInvalid, or
// ErrTokenMalformed.
func (ti *TokenIssuer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignatureInvalid
		default:
			return nil, ErrTokenMalformed
		}
	}

	return claims, nil
}

// CreateSessionToken signs a standard 24h session for the user with a freshly
// generated session ID. extra claims ride along untouched.
func (ti *TokenIssuer) CreateSessionToken(userID, role string, extra map[string]string) (string, error) {
	claims := SessionClaims{
		UserID:    userID,
		SessionID: uuid.New().String(),
		Role:      role,
		Extra:     extra,
	}
	return ti.Sign(claims, DefaultSessionTTL)
}
