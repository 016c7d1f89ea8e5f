package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/config"
	"github.com/iliyamo/user-management/internal/handler"
	"github.com/iliyamo/user-management/internal/middleware"
	"github.com/iliyamo/user-management/internal/model"
)

// RegisterRoutes registers the routes that carry no authentication at all.
// Currently that is the health check only.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the credential endpoints and their middleware. The open
// group under /v1/auth (register, login, refresh, recovery) is rate limited
// per client; logout needs a valid access token and lives behind JWTAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, signer *auth.Signer, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/auth")
	g.Use(middleware.NewTokenBucket(rlCfg, rdb))

	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh-token", a.Refresh)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	// Logout revokes every refresh token of the caller, so the caller must
	// prove who they are first.
	g.POST("/logout", a.Logout, middleware.JWTAuth(signer))
}

// RegisterUsers wires the profile and administrative endpoints. Everything
// under /v1/users requires a valid access token; the administrative subset
// additionally requires the ADMIN role.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, signer *auth.Signer) {
	g := e.Group("/v1/users")
	g.Use(middleware.JWTAuth(signer))

	g.GET("/me", u.Me)
	g.PATCH("/me", u.UpdateMe)
	g.POST("/me/password", u.ChangePassword)

	admin := g.Group("")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("", u.List)
	admin.PUT("/:id/role", u.SetRole)
	admin.DELETE("/:id", u.Delete)
}
