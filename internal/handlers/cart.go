package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/logging"
)

type cartView struct {
	Lines []cart.Line `json:"items"`
	Total string      `json:"total"`
	Count int         `json:"count"`
}

func viewOf(lines []cart.Line) cartView {
	if lines == nil {
		lines = []cart.Line{}
	}
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return cartView{Lines: lines, Total: cart.Total(lines), Count: n}
}

func (h *Handler) GetCart(c echo.Context) error {
	return respond(c, http.StatusOK, viewOf(profileOf(c).Cart.Lines()))
}

func (h *Handler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req struct {
		Product  cart.Product `json:"product"`
		Quantity *int         `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", http.StatusBadRequest, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	lines, err := profileOf(c).Cart.Add(req.Product, qty)
	if err != nil {
		if errors.Is(err, cart.ErrValidation) {
			l.Warn("add_to_cart_error", "status", http.StatusBadRequest, "error", err)
			return fail(c, http.StatusBadRequest, err.Error())
		}
		l.Error("add_to_cart_error", "status", http.StatusInternalServerError, "error", err)
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	l.Info("item added to cart", "product_id", req.Product.ID, "quantity", qty)
	return respond(c, http.StatusOK, viewOf(lines))
}

func (h *Handler) UpdateQuantity(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.update")

	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil || req.Quantity == nil {
		l.Warn("update_cart_error", "status", http.StatusBadRequest, "error", err)
		return fail(c, http.StatusBadRequest, "quantity required")
	}

	lines := profileOf(c).Cart.UpdateQuantity(c.Param("id"), *req.Quantity)
	return respond(c, http.StatusOK, viewOf(lines))
}

func (h *Handler) RemoveFromCart(c echo.Context) error {
	lines := profileOf(c).Cart.Remove(c.Param("id"))
	return respond(c, http.StatusOK, viewOf(lines))
}

func (h *Handler) ClearCart(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.clear")
	profileOf(c).Cart.Clear()
	l.Info("cart cleared")
	return respond(c, http.StatusOK, viewOf(nil))
}
