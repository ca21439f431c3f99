package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"videotube-accounts/internal/observability"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// ErrInvalidToken covers bad signatures, malformed tokens and expiry alike.
var ErrInvalidToken = errors.New("invalid token")

// Payload is what a token asserts. Refresh tokens carry only UserID.
type Payload struct {
	UserID   string
	Username string
	Email    string
}

type claims struct {
	UserID   string    `json:"id"`
	Username string    `json:"username,omitempty"`
	Email    string    `json:"email,omitempty"`
	Type     TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and verifies one kind of token with one secret.
type Codec struct {
	kind   TokenKind
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *observability.Logger
}

func NewCodec(kind TokenKind, secret string, ttl time.Duration, logger *observability.Logger) *Codec {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Codec{
		kind:   kind,
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue returns a signed token for p and its expiry.
func (c *Codec) Issue(p Payload) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)

	tokenClaims := claims{
		UserID: p.UserID,
		Type:   c.kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if c.kind == AccessToken {
		tokenClaims.Username = p.Username
		tokenClaims.Email = p.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	encoded, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", c.kind, err)
	}

	return encoded, expiresAt, nil
}

// Verify returns the payload of a valid token or ErrInvalidToken. The
// specific reason is logged.
func (c *Codec) Verify(tokenStr string) (Payload, error) {
	var tokenClaims claims
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		c.reject(rejectReason(err))
		return Payload{}, ErrInvalidToken
	}
	if tokenClaims.Type != c.kind {
		c.reject("wrong_type")
		return Payload{}, ErrInvalidToken
	}
	if tokenClaims.UserID == "" {
		c.reject("missing_subject")
		return Payload{}, ErrInvalidToken
	}

	return Payload{
		UserID:   tokenClaims.UserID,
		Username: tokenClaims.Username,
		Email:    tokenClaims.Email,
	}, nil
}

func (c *Codec) reject(reason string) {
	c.logger.Warn("token_rejected", map[string]any{"kind": string(c.kind), "reason": reason})
}

func rejectReason(err error) string {
	switch {
	case err == nil:
		return "invalid"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	default:
		return "malformed"
	}
}
