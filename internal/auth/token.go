package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pipecrm/internal/models"
)

var (
	// ErrTokenInvalid covers bad signatures, malformed tokens and
	// unexpected signing methods.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when the embedded expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// TokenPayload is the decoded content of a signed token.
type TokenPayload struct {
	Subject string
	Kind    models.TokenKind
}

// IssueToken signs a compact HS256 token carrying the subject, issue and
// expiry instants, and the token kind.
func IssueToken(subject string, expires time.Time, kind models.TokenKind, secret string) (string, error) {
	// jti keeps tokens minted within the same second distinct; the
	// tokens table has a unique index on the signed value.
	claims := jwt.MapClaims{
		"sub":  subject,
		"iat":  time.Now().Unix(),
		"exp":  expires.Unix(),
		"jti":  uuid.NewString(),
		"type": string(kind),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// DecodeToken verifies signature and expiry and returns the payload.
// It is pure: no store lookup happens here, so ACCESS tokens verify
// without a database round trip.
func DecodeToken(tokenStr, secret string) (TokenPayload, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPayload{}, ErrTokenExpired
		}
		return TokenPayload{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return TokenPayload{}, ErrTokenInvalid
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenPayload{}, ErrTokenInvalid
	}
	sub, _ := mapc["sub"].(string)
	kind, _ := mapc["type"].(string)
	if sub == "" || kind == "" {
		return TokenPayload{}, ErrTokenInvalid
	}
	return TokenPayload{Subject: sub, Kind: models.TokenKind(kind)}, nil
}
