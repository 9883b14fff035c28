// Package profile keeps the per-browser-profile state the storefront holds
// between requests: the cart, the session and pending notices.
package profile

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/kvstore"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/session"
)

// IdentityKey holds the raw identity token so a profile reopened after
// eviction or restart restores its session.
const IdentityKey = "identity"

type Profile struct {
	ID      string
	Cart    *cart.Manager
	Session *session.Provider
	Inbox   *notify.Inbox

	store    kvstore.Store
	log      *slog.Logger
	lastSeen atomic.Int64
}

// SignIn verifies the token, starts session resolution and remembers the
// token for later restores.
func (p *Profile) SignIn(ctx context.Context, rawToken string) error {
	if err := p.Session.SignIn(ctx, rawToken); err != nil {
		return err
	}
	if err := p.store.Set(IdentityKey, rawToken); err != nil {
		p.log.Warn("identity_persist_error", "error", err)
	}
	return nil
}

func (p *Profile) SignOut(ctx context.Context) {
	p.Session.SignOut(ctx)
	if err := p.store.Remove(IdentityKey); err != nil {
		p.log.Warn("identity_remove_error", "error", err)
	}
}

func (p *Profile) restore(ctx context.Context) {
	raw, _, err := p.store.Get(IdentityKey)
	if err != nil {
		p.log.Warn("identity_load_error", "error", err)
	}
	p.Session.Restore(ctx, raw)
}

func (p *Profile) touch(now time.Time) { p.lastSeen.Store(now.UnixNano()) }

func (p *Profile) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, p.lastSeen.Load()))
}

func (p *Profile) close() {
	p.Cart.Flush()
	p.Cart.Close()
	p.Session.Close()
}

type StoreFunc func(profileID string) kvstore.Store

type Options struct {
	Stores    StoreFunc
	Fetcher   session.ProfileFetcher
	Verifier  *session.IdentityVerifier
	Publisher notify.Publisher
	Debounce  time.Duration
	IdleTTL   time.Duration
	Log       *slog.Logger
}

type Registry struct {
	opts Options
	log  *slog.Logger
	now  func() time.Time

	mu       sync.Mutex
	profiles map[string]*Profile
}

func NewRegistry(opts Options) *Registry {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Stores == nil {
		opts.Stores = kvstore.NewSpaces().For
	}
	if opts.Publisher == nil {
		opts.Publisher = notify.Nop{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = cart.DefaultDebounce
	}
	return &Registry{
		opts:     opts,
		log:      opts.Log.With("component", "profiles"),
		now:      time.Now,
		profiles: make(map[string]*Profile),
	}
}

// Get returns the live profile for id, opening it on first use.
func (r *Registry) Get(ctx context.Context, id string) *Profile {
	r.mu.Lock()
	p, ok := r.profiles[id]
	if !ok {
		p = r.open(id)
		r.profiles[id] = p
	}
	p.touch(r.now())
	r.mu.Unlock()

	if !ok {
		p.restore(ctx)
	}
	return p
}

func (r *Registry) open(id string) *Profile {
	log := r.opts.Log.With("profile", id)
	store := r.opts.Stores(id)
	inbox := notify.NewInbox(notify.DefaultInboxSize)
	notifier := &notify.CartNotifier{ProfileID: id, Inbox: inbox, Publisher: r.opts.Publisher, Log: log}

	return &Profile{
		ID: id,
		Cart: cart.NewManager(store,
			cart.WithDebounce(r.opts.Debounce),
			cart.WithNotifier(notifier),
			cart.WithLogger(log),
		),
		Session: session.NewProvider(r.opts.Fetcher, r.opts.Verifier, log),
		Inbox:   inbox,
		store:   store,
		log:     log,
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.profiles)
}

// Sweep flushes and closes profiles idle longer than the TTL.
func (r *Registry) Sweep() int {
	if r.opts.IdleTTL <= 0 {
		return 0
	}
	now := r.now()
	var idle []*Profile

	r.mu.Lock()
	for id, p := range r.profiles {
		if p.idleSince(now) > r.opts.IdleTTL {
			delete(r.profiles, id)
			idle = append(idle, p)
		}
	}
	r.mu.Unlock()

	for _, p := range idle {
		p.close()
	}
	if len(idle) > 0 {
		r.log.Info("idle profiles evicted", "count", len(idle))
	}
	return len(idle)
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// Shutdown writes every pending cart and closes all profiles.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]*Profile, 0, len(r.profiles))
	for id, p := range r.profiles {
		all = append(all, p)
		delete(r.profiles, id)
	}
	r.mu.Unlock()

	for _, p := range all {
		p.close()
	}
	r.log.Info("profiles flushed", "count", len(all))
}
