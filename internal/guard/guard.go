// Package guard decides whether a protected view may render for the current
// session. It holds no state of its own.
package guard

import (
	"net/url"
	"slices"

	"github.com/Skotchmaster/storefront/internal/session"
)

const (
	NoticeSignInRequired = "You must be signed in to view this page"
	NoticeNotPermitted   = "You don't have access to that page"
	NoticeForbidden      = "You don't have enough rights to do that"
	NoticeSessionExpired = "Your session has expired, please sign in again"
)

type Paths struct {
	SignIn    string
	Landing   string
	Forbidden string
}

func DefaultPaths() Paths {
	return Paths{SignIn: "/signin", Landing: "/dashboard", Forbidden: "/forbidden"}
}

func (p Paths) withDefaults() Paths {
	def := DefaultPaths()
	if p.SignIn == "" {
		p.SignIn = def.SignIn
	}
	if p.Landing == "" {
		p.Landing = def.Landing
	}
	if p.Forbidden == "" {
		p.Forbidden = def.Forbidden
	}
	return p
}

// SignInURL is the sign-in path carrying the location to return to.
func (p Paths) SignInURL(requested string) string {
	p = p.withDefaults()
	if requested == "" {
		return p.SignIn
	}
	return p.SignIn + "?" + url.Values{"redirect": {requested}}.Encode()
}

// Policy lists the roles allowed through. Empty means any signed-in user.
type Policy struct {
	Allowed []session.Role
}

func AnyRole() Policy { return Policy{} }

func Roles(roles ...session.Role) Policy { return Policy{Allowed: roles} }

func (p Policy) permits(r session.Role) bool {
	return len(p.Allowed) == 0 || slices.Contains(p.Allowed, r.OrDefault())
}

type Kind int

const (
	Loading Kind = iota
	RedirectSignIn
	RedirectLanding
	Render
)

func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case RedirectSignIn:
		return "redirect_signin"
	case RedirectLanding:
		return "redirect_landing"
	case Render:
		return "render"
	default:
		return "unknown"
	}
}

type Decision struct {
	Kind     Kind
	Location string
	Notice   string
}

// Evaluate maps session state to a decision. Resolving is checked first so
// no redirect is ever decided before the principal is known.
func Evaluate(st session.State, policy Policy, paths Paths, requested string) Decision {
	paths = paths.withDefaults()

	if st.Loading() {
		return Decision{Kind: Loading}
	}
	if st.Status != session.StatusAuthenticated || st.Principal == nil {
		return Decision{
			Kind:     RedirectSignIn,
			Location: paths.SignInURL(requested),
			Notice:   NoticeSignInRequired,
		}
	}
	if !policy.permits(st.Principal.Role) {
		return Decision{
			Kind:     RedirectLanding,
			Location: paths.Landing,
			Notice:   NoticeNotPermitted,
		}
	}
	return Decision{Kind: Render}
}
