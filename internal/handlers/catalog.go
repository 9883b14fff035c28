package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/util"
)

func parseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *Handler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.list")

	page, size := util.Normalize(
		parseIntDefault(c.QueryParam("page"), 1),
		parseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
	)
	out, err := h.Backend.ListProducts(ctx, page, size, strings.TrimSpace(c.QueryParam("category")))
	if err != nil {
		return h.backendError(c, l, "list_products", err)
	}
	return respond(c, http.StatusOK, out)
}

func (h *Handler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.get")

	out, err := h.Backend.GetProduct(ctx, c.Param("id"))
	if err != nil {
		return h.backendError(c, l, "get_product", err)
	}
	return respond(c, http.StatusOK, out)
}

func (h *Handler) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.search")

	if h.Search == nil {
		return fail(c, http.StatusServiceUnavailable, "search is unavailable")
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return fail(c, http.StatusBadRequest, "query required")
	}

	res, err := h.Search.Search(ctx, search.Query{
		Text:     q,
		Category: strings.TrimSpace(c.QueryParam("category")),
		Page:     parseIntDefault(c.QueryParam("page"), 1),
		Size:     parseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
	})
	if err != nil {
		if errors.Is(err, search.ErrUnavailable) {
			l.Error("search_error", "status", http.StatusServiceUnavailable, "error", err)
			return fail(c, http.StatusServiceUnavailable, "search is unavailable")
		}
		l.Error("search_error", "status", http.StatusInternalServerError, "error", err)
		return fail(c, http.StatusInternalServerError, "search failed")
	}
	return respond(c, http.StatusOK, res)
}
