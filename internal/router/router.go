package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework for routing
	"github.com/redis/go-redis/v9"

	"github.com/kioskconnect/backend/internal/config"
	"github.com/kioskconnect/backend/internal/handler"
	"github.com/kioskconnect/backend/internal/middleware"
)

// Deps carries everything the route tree needs.  Rdb may be nil, in
// which case rate limiting and response caching quietly disable
// themselves.
type Deps struct {
	Cfg         config.Config
	Auth        *handler.AuthHandler
	Calls       *handler.CallHandler
	Restaurants *handler.RestaurantHandler
	Screens     *handler.ScreenHandler
	Rdb         *redis.Client
}

// Register wires the full route tree.
//
// Public (no token): health, kiosk call creation and polling, the
// restaurant grid and screen configuration.  Kiosks are unattended
// devices and do not authenticate; call creation is rate limited
// per IP instead.
//
// Staff (JWT): call listing, accept and end.
//
// Admin (JWT + ADMIN role): restaurant and screen management plus
// account provisioning.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	// --- kiosk-facing ---
	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), d.Rdb)

	e.POST("/v1/calls", d.Calls.CreateCall, rl)
	e.GET("/v1/calls/:id", d.Calls.GetCall)
	e.GET("/v1/restaurants", d.Restaurants.List, cache)
	e.GET("/v1/restaurants/:id", d.Restaurants.Get)
	e.GET("/v1/screens/:id", d.Screens.Get)

	// --- auth ---
	g := e.Group("/v1/auth")
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/refresh-access", d.Auth.RefreshAccess)
	g.POST("/logout", d.Auth.Logout)

	// --- staff dashboard ---
	staff := e.Group("/v1")
	staff.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	staff.Use(middleware.RequireRole("STAFF", "ADMIN"))
	staff.GET("/me", d.Auth.Me)
	staff.GET("/calls", d.Calls.ListCalls)
	staff.POST("/calls/:id/accept", d.Calls.AcceptCall)
	staff.POST("/calls/:id/end", d.Calls.EndCall)

	// --- admin ---
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/users", d.Auth.Register)
	admin.POST("/restaurants", d.Restaurants.Create)
	admin.PUT("/restaurants/:id", d.Restaurants.Update)
	admin.DELETE("/restaurants/:id", d.Restaurants.Delete)
	admin.GET("/screens", d.Screens.List)
	admin.POST("/screens", d.Screens.Create)
	admin.PUT("/screens/:id", d.Screens.Update)
	admin.DELETE("/screens/:id", d.Screens.Delete)
	admin.PUT("/screens/:id/restaurants", d.Screens.Assign)
}
