package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidfriends/vidvault/internal/config"
)

var (
	// ErrInvalidToken indicates an access or refresh token failed verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidEmailToken indicates an email verification token failed verification.
	ErrInvalidEmailToken = errors.New("invalid email token")
	// ErrUnknownTokenKind indicates a token kind with no configured key.
	ErrUnknownTokenKind = errors.New("unknown token kind")
)

// TokenKind names one of the independently keyed token families.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
	TokenEmail   TokenKind = "email"
)

// Subject is the identity a token is issued for.
type Subject struct {
	ID    string
	Email string
	Name  string
}

// Claims is the signed token payload.
type Claims struct {
	UserID string    `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Identity returns the subject carried by the claims.
func (c Claims) Identity() Subject {
	return Subject{ID: c.UserID, Email: c.Email, Name: c.Name}
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// Authority issues and verifies HS256 tokens, one secret per kind.
type Authority struct {
	keys map[TokenKind]signingKey
	now  func() time.Time
}

// NewAuthority builds an Authority from the token configuration.
func NewAuthority(cfg config.TokenConfig) (*Authority, error) {
	secrets := map[TokenKind]string{
		TokenAccess:  cfg.AccessSecret,
		TokenRefresh: cfg.RefreshSecret,
		TokenEmail:   cfg.EmailSecret,
	}

	seen := make(map[string]TokenKind, len(secrets))
	for kind, secret := range secrets {
		if strings.TrimSpace(secret) == "" {
			return nil, fmt.Errorf("auth: %s token secret is required", kind)
		}
		if other, ok := seen[secret]; ok {
			return nil, fmt.Errorf("auth: %s and %s tokens must use distinct secrets", other, kind)
		}
		seen[secret] = kind
	}

	return &Authority{
		keys: map[TokenKind]signingKey{
			TokenAccess:  {secret: []byte(cfg.AccessSecret), ttl: durationOr(cfg.AccessTTL, time.Hour)},
			TokenRefresh: {secret: []byte(cfg.RefreshSecret), ttl: durationOr(cfg.RefreshTTL, 14*24*time.Hour)},
			TokenEmail:   {secret: []byte(cfg.EmailSecret), ttl: durationOr(cfg.EmailTTL, 24*time.Hour)},
		},
		now: time.Now,
	}, nil
}

// WithNowFunc overrides the clock used for issuing and validating tokens.
func (a *Authority) WithNowFunc(now func() time.Time) {
	a.now = now
}

// Issue signs a token of the given kind for subject.
func (a *Authority) Issue(kind TokenKind, subject Subject) (string, error) {
	key, ok := a.keys[kind]
	if !ok {
		return "", fmt.Errorf("issue %q: %w", kind, ErrUnknownTokenKind)
	}
	if subject.ID == "" {
		return "", errors.New("issue token: subject id is required")
	}

	now := a.now()
	claims := Claims{
		UserID: subject.ID,
		Email:  subject.Email,
		Name:   subject.Name,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature, expiry and kind, returning the decoded claims.
// Expired, tampered and malformed tokens all yield the same error.
func (a *Authority) Verify(kind TokenKind, token string) (Claims, error) {
	key, ok := a.keys[kind]
	if !ok {
		return Claims{}, fmt.Errorf("verify %q: %w", kind, ErrUnknownTokenKind)
	}

	invalid := ErrInvalidToken
	if kind == TokenEmail {
		invalid = ErrInvalidEmailToken
	}

	token = StripBearer(token)
	if token == "" {
		return Claims{}, invalid
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return key.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, invalid
	}
	if claims.Kind != kind || claims.UserID == "" {
		return Claims{}, invalid
	}

	return claims, nil
}

// StripBearer removes an optional "Bearer " scheme prefix.
// A bare scheme with no credential yields "".
func StripBearer(header string) string {
	fields := strings.Fields(header)
	if len(fields) > 0 && strings.EqualFold(fields[0], "bearer") {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
