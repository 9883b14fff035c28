package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/backend"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/guard"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/profile"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/session"
)

const (
	SessionCookie = "sid"
	ctxProfile    = "profile"
)

// Backend is the part of the backend REST API the handlers call.
type Backend interface {
	ListProducts(ctx context.Context, page, size int, category string) (*backend.ProductPage, error)
	GetProduct(ctx context.Context, id string) (*backend.Product, error)
	ListOrders(ctx context.Context, caller backend.Caller) ([]backend.Order, error)
	ApplyVendor(ctx context.Context, caller backend.Caller, app backend.VendorApplication) (*backend.Application, error)
	SubmitAdRequest(ctx context.Context, caller backend.Caller, req backend.AdRequest) (*backend.Application, error)
	VendorAnalytics(ctx context.Context, caller backend.Caller) (*backend.Analytics, error)
	AdminOverview(ctx context.Context, caller backend.Caller) (*backend.Overview, error)
}

type Handler struct {
	Profiles     *profile.Registry
	Backend      Backend
	Search       *search.Client
	Payments     *checkout.Service
	Guard        *guard.Guard
	CookieSecure bool
	// SessionWait bounds how long sign-in and state reads wait for the
	// profile lookup before answering with the resolving state.
	SessionWait time.Duration
}

func New(profiles *profile.Registry, b Backend, paths guard.Paths, cookieSecure bool) *Handler {
	h := &Handler{
		Profiles:     profiles,
		Backend:      b,
		CookieSecure: cookieSecure,
		SessionWait:  3 * time.Second,
	}
	h.Guard = guard.New(paths, h.sessionState, h.pushNotice)
	return h
}

// WithProfile attaches the browser profile named by the sid cookie, issuing
// a new one when the cookie is missing or malformed.
func (h *Handler) WithProfile(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := ""
		if ck, err := c.Cookie(SessionCookie); err == nil {
			if _, err := uuid.Parse(ck.Value); err == nil {
				id = ck.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   h.CookieSecure,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			})
		}
		c.Set(ctxProfile, h.Profiles.Get(c.Request().Context(), id))
		return next(c)
	}
}

func profileOf(c echo.Context) *profile.Profile {
	p, _ := c.Get(ctxProfile).(*profile.Profile)
	return p
}

func (h *Handler) sessionState(c echo.Context) session.State {
	p := profileOf(c)
	if p == nil {
		return session.State{Status: session.StatusUnauthenticated}
	}
	return p.Session.State()
}

func (h *Handler) pushNotice(c echo.Context, msg string) {
	if p := profileOf(c); p != nil {
		p.Inbox.Error(msg)
	}
}

func callerOf(c echo.Context) backend.Caller {
	p, _ := guard.PrincipalFrom(c)
	return backend.CallerOf(p)
}

// respond writes data together with every notice queued for the profile.
func respond(c echo.Context, code int, data any) error {
	notices := []notify.Notice{}
	if p := profileOf(c); p != nil {
		if queued := p.Inbox.Drain(); len(queued) > 0 {
			notices = queued
		}
	}
	return c.JSON(code, echo.Map{"data": data, "notices": notices})
}

// fail answers with msg, also surfaced as the last error notice.
func fail(c echo.Context, code int, msg string) error {
	notices := []notify.Notice{{Level: notify.LevelError, Message: msg}}
	if p := profileOf(c); p != nil {
		notices = append(p.Inbox.Drain(), notices...)
	}
	return c.JSON(code, echo.Map{"error": msg, "notices": notices})
}

// backendError maps a backend failure to a response. 401 forces a sign-out
// and a redirect to sign-in; 403 redirects to the forbidden view.
func (h *Handler) backendError(c echo.Context, l *slog.Logger, op string, err error) error {
	var se *backend.StatusError
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		l.Warn(op+"_error", "status", http.StatusUnauthorized, "error", err)
		if p := profileOf(c); p != nil {
			p.SignOut(c.Request().Context())
		}
		return h.Guard.Redirect(c, h.Guard.Paths.SignInURL(c.Request().URL.RequestURI()), guard.NoticeSessionExpired)
	case errors.Is(err, backend.ErrForbidden):
		l.Warn(op+"_error", "status", http.StatusForbidden, "error", err)
		return h.Guard.Redirect(c, h.Guard.Paths.Forbidden, guard.NoticeForbidden)
	case errors.Is(err, backend.ErrNotFound):
		l.Warn(op+"_error", "status", http.StatusNotFound, "error", err)
		return fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, backend.ErrValidation):
		l.Warn(op+"_error", "status", http.StatusBadRequest, "error", err)
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &se):
		l.Error(op+"_error", "status", http.StatusBadGateway, "upstream", se.Code, "error", err)
		return fail(c, http.StatusBadGateway, "upstream error")
	case errors.Is(err, context.DeadlineExceeded):
		l.Error(op+"_error", "status", http.StatusGatewayTimeout, "error", err)
		return fail(c, http.StatusGatewayTimeout, "upstream timeout")
	default:
		l.Error(op+"_error", "status", http.StatusBadGateway, "error", err)
		return fail(c, http.StatusBadGateway, "upstream unavailable")
	}
}

func Health(c echo.Context) error { return c.NoContent(http.StatusOK) }
