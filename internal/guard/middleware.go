package guard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

const CtxPrincipal = "principal"

type StateFunc func(c echo.Context) session.State

type NoticeFunc func(c echo.Context, msg string)

type Guard struct {
	Paths  Paths
	State  StateFunc
	Notify NoticeFunc
}

func New(paths Paths, state StateFunc, notify NoticeFunc) *Guard {
	return &Guard{Paths: paths.withDefaults(), State: state, Notify: notify}
}

// RequireAuth lets any signed-in principal through.
func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return g.require(AnyRole(), next)
}

func (g *Guard) RequireRole(roles ...session.Role) echo.MiddlewareFunc {
	policy := Roles(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return g.require(policy, next)
	}
}

func (g *Guard) require(policy Policy, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("mw", "guard")

		st := g.State(c)
		d := Evaluate(st, policy, g.Paths, c.Request().URL.RequestURI())
		switch d.Kind {
		case Render:
			c.Set(CtxPrincipal, st.Principal)
			return next(c)
		case Loading:
			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusAccepted, echo.Map{"state": session.StatusResolving})
		default:
			l.Info("guard redirect", "decision", d.Kind.String(), "location", d.Location)
			return g.Redirect(c, d.Location, d.Notice)
		}
	}
}

// Redirect sends a 303 the SPA shell follows. The notice is queued for the
// next response rather than carried in this one.
func (g *Guard) Redirect(c echo.Context, location, notice string) error {
	if notice != "" && g.Notify != nil {
		g.Notify(c, notice)
	}
	c.Response().Header().Set(echo.HeaderLocation, location)
	return c.JSON(http.StatusSeeOther, echo.Map{"redirect": location})
}

func PrincipalFrom(c echo.Context) (*session.Principal, bool) {
	p, ok := c.Get(CtxPrincipal).(*session.Principal)
	return p, ok && p != nil
}
