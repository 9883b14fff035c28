package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Profile is the backend's view of a user, fetched after sign-in.
type Profile struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	AvatarRef   string `json:"photo"`
}

type ProfileFetcher interface {
	FetchProfile(ctx context.Context, uid, token string) (*Profile, error)
}

const defaultLookupTimeout = 5 * time.Second

// Provider holds one browser profile's session. It is Resolving until the
// first identity event settles, and it is the only writer of that state.
type Provider struct {
	fetcher       ProfileFetcher
	verifier      *IdentityVerifier
	log           *slog.Logger
	lookupTimeout time.Duration

	mu      sync.RWMutex
	state   State
	seq     uint64
	changed chan struct{}
	subs    map[chan State]struct{}
	closed  bool
}

func NewProvider(fetcher ProfileFetcher, verifier *IdentityVerifier, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	return &Provider{
		fetcher:       fetcher,
		verifier:      verifier,
		log:           log.With("component", "session"),
		lookupTimeout: defaultLookupTimeout,
		state:         resolving(),
		changed:       make(chan struct{}),
		subs:          make(map[chan State]struct{}),
	}
}

func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Handle applies an identity provider event. Sign-out settles immediately;
// sign-in goes through Resolving while the backend profile is fetched.
func (p *Provider) Handle(ctx context.Context, ev Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.seq++
	seq := p.seq
	if ev.Identity == nil {
		p.setLocked(signedOut())
		p.mu.Unlock()
		return
	}
	p.setLocked(resolving())
	p.mu.Unlock()

	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.lookupTimeout)
	go func() {
		defer cancel()
		p.resolve(lookupCtx, seq, ev)
	}()
}

func (p *Provider) resolve(ctx context.Context, seq uint64, ev Event) {
	id := ev.Identity
	principal := Principal{
		ID:          id.UID,
		Role:        RoleCustomer,
		DisplayName: id.DisplayName,
		AvatarRef:   id.AvatarRef,
		AccessToken: ev.Token,
	}

	prof, err := p.fetcher.FetchProfile(ctx, id.UID, ev.Token)
	if err != nil {
		p.log.Warn("profile_lookup_error", "uid", id.UID, "error", err)
	} else if prof != nil {
		principal.Role = ParseRole(prof.Role).OrDefault()
		if principal.DisplayName == "" {
			principal.DisplayName = strings.TrimSpace(prof.DisplayName)
		}
		if principal.AvatarRef == "" {
			principal.AvatarRef = prof.AvatarRef
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || seq != p.seq {
		p.log.Debug("stale session resolution dropped", "uid", id.UID)
		return
	}
	p.setLocked(signedIn(principal))
	p.log.Info("session resolved", "uid", id.UID, "role", principal.Role.String())
}

// SignIn verifies a raw identity token and handles it as a sign-in event.
// A bad token leaves the current state untouched.
func (p *Provider) SignIn(ctx context.Context, rawToken string) error {
	ev, err := p.verifier.Verify(rawToken)
	if err != nil {
		return err
	}
	p.Handle(ctx, ev)
	return nil
}

func (p *Provider) SignOut(ctx context.Context) {
	p.Handle(ctx, SignedOutEvent())
}

// Restore settles the initial Resolving state from a remembered token.
// No token, or one that no longer verifies, means signed out.
func (p *Provider) Restore(ctx context.Context, rawToken string) {
	if rawToken == "" {
		p.SignOut(ctx)
		return
	}
	ev, err := p.verifier.Verify(rawToken)
	if err != nil {
		p.log.Info("session restore failed", "error", err)
		p.SignOut(ctx)
		return
	}
	p.Handle(ctx, ev)
}

// Wait blocks until the session is no longer resolving.
func (p *Provider) Wait(ctx context.Context) (State, error) {
	for {
		p.mu.RLock()
		st, ch := p.state, p.changed
		p.mu.RUnlock()
		if !st.Loading() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ch:
		}
	}
}

// Subscribe returns a channel carrying the latest state after each change.
// Slow readers only see the most recent state.
func (p *Provider) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.subs[ch]; ok {
				delete(p.subs, ch)
				close(ch)
			}
		})
	}
}

func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for ch := range p.subs {
		delete(p.subs, ch)
		close(ch)
	}
}

func (p *Provider) setLocked(s State) {
	p.state = s
	close(p.changed)
	p.changed = make(chan struct{})
	for ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
