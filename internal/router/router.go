// Package router wires HTTP routes to handlers and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/harunaoki/cardroom-backend/internal/config"
	"github.com/harunaoki/cardroom-backend/internal/handler"
	"github.com/harunaoki/cardroom-backend/internal/middleware"
)

// Handlers collects every handler the router needs.
type Handlers struct {
	Auth        *handler.AuthHandler
	Admin       *handler.AdminHandler
	Seats       *handler.SeatHandler
	Tables      *handler.TableHandler
	Settlements *handler.SettlementHandler
	Withdrawals *handler.WithdrawalHandler
	Orders      *handler.OrderHandler
	Waitlist    *handler.WaitlistHandler
}

// Register wires all routes. Three surfaces:
//
//	/healthz, /v1/public/*  - unauthenticated; public reads are cached
//	/v1/*                   - any authenticated account
//	/v1/admin/*             - STAFF only
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Unauthenticated session endpoints.
	authGroup := e.Group("/v1/auth", rl)
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/refresh-access", h.Auth.RefreshAccess)
	authGroup.POST("/logout", h.Auth.Logout)

	// Public venue boards, cached. No account needed: these back the
	// lobby displays.
	public := e.Group("/v1/public", rl, cache)
	public.GET("/tables", h.Tables.List)
	public.GET("/tables/:id", h.Tables.Get)
	public.GET("/games", h.Tables.PublicGames)

	// Authenticated patron surface.
	v1 := e.Group("/v1", rl, middleware.JWTAuth(jwtSecret), middleware.RequireRole("STAFF", "PATRON"))
	v1.GET("/me", h.Auth.Me)

	v1.GET("/settlements/mine", h.Settlements.Mine)
	v1.POST("/settlements/confirm", h.Settlements.Confirm)

	v1.POST("/withdrawals", h.Withdrawals.Request)
	v1.GET("/withdrawals/mine", h.Withdrawals.Mine)
	v1.POST("/withdrawals/:id/confirm", h.Withdrawals.Confirm)

	v1.POST("/orders", h.Orders.Place)
	v1.GET("/orders/mine", h.Orders.Mine)
	v1.POST("/orders/:id/confirm", h.Orders.Confirm)

	v1.POST("/waitlist", h.Waitlist.Join)
	v1.GET("/waitlist/mine", h.Waitlist.Mine)
	v1.POST("/waitlist/:id/cancel", h.Waitlist.CancelMine)
	v1.POST("/waitlist/:id/confirm", h.Waitlist.ConfirmCall)

	// Staff surface.
	admin := e.Group("/v1/admin", rl, middleware.JWTAuth(jwtSecret), middleware.RequireRole("STAFF"))

	admin.POST("/staff", h.Admin.PromoteToStaff)
	admin.GET("/patrons", h.Admin.ListCheckedIn)
	admin.GET("/patrons/:id", h.Admin.GetPatron)
	admin.PATCH("/patrons/:id/approved", h.Admin.SetApproved)
	admin.POST("/patrons/:id/check-in", h.Admin.CheckIn)
	admin.POST("/patrons/:id/check-out", h.Admin.CheckOut)
	admin.POST("/patrons/:id/rebuy", h.Admin.Rebuy)

	admin.POST("/tables", h.Tables.Create)
	admin.PATCH("/tables/:id", h.Tables.Update)
	admin.POST("/seats/assign", h.Seats.Assign)
	admin.POST("/seats/release", h.Seats.Release)

	admin.POST("/games", h.Tables.CreateTemplate)
	admin.PATCH("/games/:id", h.Tables.UpdateTemplate)
	admin.GET("/games", h.Tables.ListTemplates)

	admin.POST("/settlements", h.Settlements.Initiate)
	admin.GET("/settlements", h.Settlements.ListOpen)
	admin.POST("/settlements/:userID/force", h.Settlements.Force)
	admin.POST("/settlements/:userID/cancel", h.Settlements.Cancel)

	admin.GET("/withdrawals", h.Withdrawals.ListOpen)
	admin.POST("/withdrawals/:id/approve", h.Withdrawals.Approve)
	admin.POST("/withdrawals/:id/dispense", h.Withdrawals.Dispense)
	admin.POST("/withdrawals/:id/deny", h.Withdrawals.Deny)

	admin.GET("/orders", h.Orders.ListActive)
	admin.POST("/orders/:id/preparing", h.Orders.Preparing)
	admin.POST("/orders/:id/deliver", h.Orders.Deliver)
	admin.POST("/orders/:id/cancel", h.Orders.Cancel)

	admin.GET("/waitlist/:templateID", h.Waitlist.Queue)
	admin.POST("/waitlist/:id/call", h.Waitlist.Call)
	admin.POST("/waitlist/:id/no-show", h.Waitlist.NoShow)
	admin.POST("/waitlist/:id/cancel", h.Waitlist.CancelByAdmin)
}
