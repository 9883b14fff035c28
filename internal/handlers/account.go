package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/backend"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/guard"
	"github.com/Skotchmaster/storefront/internal/logging"
)

// Dashboard is the signed-in landing view.
func (h *Handler) Dashboard(c echo.Context) error {
	principal, _ := guard.PrincipalFrom(c)
	return respond(c, http.StatusOK, echo.Map{
		"principal": principal,
		"cart":      viewOf(profileOf(c).Cart.Lines()),
	})
}

func (h *Handler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout")

	if h.Payments == nil {
		return fail(c, http.StatusServiceUnavailable, "payments are unavailable")
	}
	var req struct {
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", http.StatusBadRequest, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	p := profileOf(c)
	order, err := h.Payments.Checkout(ctx, p.ID, callerOf(c), p.Cart, req.PaymentMethod)
	switch {
	case err == nil:
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrMethod):
		l.Warn("checkout_error", "status", http.StatusBadRequest, "error", err)
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrInProgress):
		l.Warn("checkout_error", "status", http.StatusConflict, "error", err)
		return fail(c, http.StatusConflict, "Checkout already in progress")
	case errors.Is(err, checkout.ErrPaymentFailed):
		l.Warn("checkout_error", "status", http.StatusPaymentRequired, "error", err)
		return fail(c, http.StatusPaymentRequired, "Payment failed, your card was not charged")
	default:
		return h.backendError(c, l, "checkout", err)
	}

	p.Inbox.Success("Order placed")
	l.Info("order placed", "order_id", order.ID)
	return respond(c, http.StatusCreated, order)
}

func (h *Handler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	orders, err := h.Backend.ListOrders(ctx, callerOf(c))
	if err != nil {
		return h.backendError(c, l, "list_orders", err)
	}
	if orders == nil {
		orders = []backend.Order{}
	}
	return respond(c, http.StatusOK, orders)
}

func (h *Handler) ApplyVendor(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vendor.apply")

	var req backend.VendorApplication
	if err := c.Bind(&req); err != nil {
		l.Warn("apply_vendor_error", "status", http.StatusBadRequest, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	app, err := h.Backend.ApplyVendor(ctx, callerOf(c), req)
	if err != nil {
		return h.backendError(c, l, "apply_vendor", err)
	}

	profileOf(c).Inbox.Success("Vendor application submitted")
	return respond(c, http.StatusCreated, app)
}

func (h *Handler) SubmitAd(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ads.submit")

	var req struct {
		ProductID string    `json:"product_id"`
		Title     string    `json:"title"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("submit_ad_error", "status", http.StatusBadRequest, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	app, err := h.Backend.SubmitAdRequest(ctx, callerOf(c), backend.AdRequest{
		ProductID: req.ProductID,
		Title:     req.Title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		return h.backendError(c, l, "submit_ad", err)
	}

	profileOf(c).Inbox.Success("Ad request submitted")
	return respond(c, http.StatusCreated, app)
}

func (h *Handler) VendorDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "dashboard.vendor")

	stats, err := h.Backend.VendorAnalytics(ctx, callerOf(c))
	if err != nil {
		return h.backendError(c, l, "vendor_analytics", err)
	}
	return respond(c, http.StatusOK, stats)
}

func (h *Handler) AdminDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "dashboard.admin")

	overview, err := h.Backend.AdminOverview(ctx, callerOf(c))
	if err != nil {
		return h.backendError(c, l, "admin_overview", err)
	}
	return respond(c, http.StatusOK, overview)
}
