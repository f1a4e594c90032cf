package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
)

// ErrTokenInvalid covers malformed, tampered and expired session tokens.
var ErrTokenInvalid = errors.New("security: session token invalid")

// sessionClaims is the wire shape of a LocalSession. The identity fields are
// a cache; validation re-derives them from the authoritative rows.
type sessionClaims struct {
	UserID      int64  `json:"uid"`
	AccountID   int64  `json:"acc"`
	RecordID    int64  `json:"sid"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	jwt.RegisteredClaims
}

// SessionTokenCodec signs and verifies the client-held session token. HMAC
// with one shared server secret keeps the original deployment model: no key
// distribution, tokens die with a secret rotation.
type SessionTokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewSessionTokenCodec builds a codec around the configured secret.
func NewSessionTokenCodec(secret string) *SessionTokenCodec {
	return &SessionTokenCodec{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (c *SessionTokenCodec) WithClock(now func() time.Time) *SessionTokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Mint signs the session into a compact token.
func (c *SessionTokenCodec) Mint(session domain.LocalSession) (string, error) {
	claims := sessionClaims{
		UserID:      session.UserID,
		AccountID:   session.AccountID,
		RecordID:    session.RecordID,
		Role:        string(session.Role),
		DisplayName: session.DisplayName,
		Email:       session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses the token, rejecting bad signatures and expired sessions.
func (c *SessionTokenCodec) Verify(token string) (*domain.LocalSession, error) {
	return c.parse(token, true)
}

// Decode parses the token ignoring expiry; the signature must still hold.
// Logout accepts expired tokens so a lapsed browser session can still close
// its persisted record.
func (c *SessionTokenCodec) Decode(token string) (*domain.LocalSession, error) {
	return c.parse(token, false)
}

func (c *SessionTokenCodec) parse(token string, checkExpiry bool) (*domain.LocalSession, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	}
	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	session := &domain.LocalSession{
		UserID:      claims.UserID,
		AccountID:   claims.AccountID,
		RecordID:    claims.RecordID,
		Role:        domain.Role(claims.Role),
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	if session.UserID == 0 || !session.Role.Valid() {
		return nil, ErrTokenInvalid
	}

	return session, nil
}
