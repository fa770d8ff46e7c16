package session

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token has expired")
)

const (
	DefaultIssuer   = "carbontrack"
	DefaultAudience = "carbontrack-web"
)

// Claims is the payload of a session token. The session ID is carried both
// as the subject and as "sid".
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

type TokenConfig struct {
	SigningKey string // HMAC secret
	Issuer     string
	Audience   string
}

// TokenService signs and checks HS256 session tokens.
type TokenService struct {
	key      []byte
	issuer   string
	audience string
	parser   *jwt.Parser
}

func NewTokenService(cfg TokenConfig) *TokenService {
	s := &TokenService{
		key:      []byte(cfg.SigningKey),
		issuer:   cmp.Or(cfg.Issuer, DefaultIssuer),
		audience: cmp.Or(cfg.Audience, DefaultAudience),
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	return s
}

// Issue signs a token for sessionID that is valid from issuedAt until
// expiresAt.
func (s *TokenService) Issue(sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and registered claims of raw. An expired
// token yields ErrTokenExpired and every other failure ErrInvalidToken.
func (s *TokenService) Validate(raw string) (*Claims, error) {
	var claims Claims
	_, err := s.parser.ParseWithClaims(raw, &claims, s.signingKey)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	case claims.SessionID == "":
		return nil, fmt.Errorf("%w: no session ID", ErrInvalidToken)
	}
	return &claims, nil
}

func (s *TokenService) signingKey(*jwt.Token) (any, error) {
	return s.key, nil
}
