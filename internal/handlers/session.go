package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

// settled waits up to SessionWait for the session to leave Resolving.
func (h *Handler) settled(c echo.Context) session.State {
	p := profileOf(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.SessionWait)
	defer cancel()
	st, _ := p.Session.Wait(ctx)
	return st
}

func stateCode(st session.State) int {
	if st.Loading() {
		return http.StatusAccepted
	}
	return http.StatusOK
}

func (h *Handler) GetSession(c echo.Context) error {
	p := profileOf(c)
	st := p.Session.State()
	if c.QueryParam("wait") != "" {
		st = h.settled(c)
	}
	return respond(c, stateCode(st), st)
}

// SignIn takes the identity provider's ID token and resolves the session.
func (h *Handler) SignIn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.signin")

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("signin_error", "status", http.StatusBadRequest, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	p := profileOf(c)
	if err := p.SignIn(ctx, req.Token); err != nil {
		if errors.Is(err, session.ErrInvalidIdentity) {
			l.Warn("signin_error", "status", http.StatusUnauthorized, "error", err)
			return fail(c, http.StatusUnauthorized, "sign-in failed")
		}
		l.Error("signin_error", "status", http.StatusInternalServerError, "error", err)
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	st := h.settled(c)
	if st.Principal != nil {
		l.Info("signed in", "uid", st.Principal.ID, "role", st.Principal.Role.String())
	}
	return respond(c, stateCode(st), st)
}

func (h *Handler) SignOut(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "session.signout")
	p := profileOf(c)
	p.SignOut(c.Request().Context())
	p.Inbox.Info("Signed out")
	l.Info("signed out")
	return respond(c, http.StatusOK, p.Session.State())
}
