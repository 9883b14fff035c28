package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidIdentity = errors.New("invalid identity token")

// Identity is what the identity provider knows about a signed-in user.
type Identity struct {
	UID         string
	DisplayName string
	AvatarRef   string
	Email       string
}

// Event is one identity provider session change. A nil Identity means
// signed out.
type Event struct {
	Identity *Identity
	Token    string
}

func SignedOutEvent() Event { return Event{} }

type IdentityClaims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type IdentityVerifier struct {
	Secret []byte
}

func NewIdentityVerifier(secret []byte) *IdentityVerifier {
	return &IdentityVerifier{Secret: secret}
}

// Verify turns a raw identity provider ID token into a sign-in event.
func (v *IdentityVerifier) Verify(raw string) (Event, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Event{}, fmt.Errorf("empty token: %w", ErrInvalidIdentity)
	}

	var claims IdentityClaims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return v.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if !tkn.Valid {
		return Event{}, ErrInvalidIdentity
	}

	uid := strings.TrimSpace(claims.Subject)
	if uid == "" {
		return Event{}, fmt.Errorf("token has no subject: %w", ErrInvalidIdentity)
	}

	return Event{
		Identity: &Identity{
			UID:         uid,
			DisplayName: strings.TrimSpace(claims.Name),
			AvatarRef:   claims.Picture,
			Email:       strings.TrimSpace(claims.Email),
		},
		Token: raw,
	}, nil
}
