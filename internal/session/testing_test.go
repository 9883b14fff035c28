package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-identity-secret")

func signIdentity(t *testing.T, secret []byte, claims IdentityClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return tok
}

func validClaims(uid string) IdentityClaims {
	return IdentityClaims{
		Name:    "Ada",
		Picture: "https://img/ada.png",
		Email:   "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

type stubFetcher struct {
	mu      sync.Mutex
	profile *Profile
	err     error
	gate    chan struct{}
	calls   int
}

func (s *stubFetcher) FetchProfile(ctx context.Context, uid, token string) (*Profile, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, s.err
}

func waitSettled(t *testing.T, p *Provider) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := p.Wait(ctx)
	require.NoError(t, err)
	return st
}
