package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/handlers"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

type Deps struct {
	Handler      *handlers.Handler
	Log          *slog.Logger
	AllowOrigins []string
	CookieSecure bool
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(d.Log))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	if len(d.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     d.AllowOrigins,
			AllowCredentials: true,
			AllowHeaders:     []string{echo.HeaderContentType, "X-CSRF-Token"},
			ExposeHeaders:    []string{"X-CSRF-Token", echo.HeaderLocation},
		}))
	}

	e.GET("/health/live", handlers.Health)
	e.GET("/health/ready", handlers.Health)

	h := d.Handler
	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = d.CookieSecure

	v1 := e.Group("/api/v1", h.WithProfile, csrf.Middleware(csrfCfg))

	v1.GET("/session", h.GetSession)
	v1.POST("/session", h.SignIn)
	v1.DELETE("/session", h.SignOut)

	cart := v1.Group("/cart")
	cart.GET("", h.GetCart)
	cart.DELETE("", h.ClearCart)
	cart.POST("/items", h.AddToCart)
	cart.PATCH("/items/:id", h.UpdateQuantity)
	cart.DELETE("/items/:id", h.RemoveFromCart)

	products := v1.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)
	v1.GET("/search", h.SearchProducts)

	g := h.Guard
	v1.GET("/dashboard", h.Dashboard, g.RequireAuth)
	v1.POST("/checkout", h.Checkout, g.RequireAuth)
	v1.GET("/orders", h.ListOrders, g.RequireAuth)
	v1.POST("/vendor/apply", h.ApplyVendor, g.RequireRole(session.RoleCustomer))
	v1.GET("/dashboard/vendor", h.VendorDashboard, g.RequireRole(session.RoleVendor))
	v1.POST("/ads", h.SubmitAd, g.RequireRole(session.RoleVendor))
	v1.GET("/dashboard/admin", h.AdminDashboard, g.RequireRole(session.RoleAdmin))

	e.RouteNotFound("/api/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	})
}
