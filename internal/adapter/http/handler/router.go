package handler

import (
	"krwx-ledger/internal/adapter/http/middleware"
	redisStore "krwx-ledger/internal/adapter/storage/redis"
	"krwx-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	MirrorSvc      ports.MirrorService // nil = mirror routes disabled
	TokenSvc       ports.TokenService
	StreamHub      *StreamHub                // nil = websocket stream disabled
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
// Reads are public, as on-chain state is; every mutation needs a bearer token.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// --- Public reads ---
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	v1.GET("/ledger", rl(middleware.GroupReads), ledgerHandler.GetLedger)
	accounts := v1.Group("/accounts", rl(middleware.GroupReads))
	{
		accounts.GET("/:address", ledgerHandler.GetAccount)
		accounts.GET("/:address/allowances/:spender", ledgerHandler.GetAllowance)
	}
	v1.GET("/roles/:role", rl(middleware.GroupReads), ledgerHandler.GetRoleMembers)

	// --- Holder operations ---
	transfers := v1.Group("/transfers", jwtAuth, rl(middleware.GroupTransfers))
	{
		transfers.POST("", ledgerHandler.Transfer)
		transfers.POST("/batch", ledgerHandler.BatchTransfer)
		transfers.POST("/from", ledgerHandler.TransferFrom)
	}
	v1.POST("/approvals", jwtAuth, rl(middleware.GroupTransfers), ledgerHandler.Approve)

	// --- Role-gated administration ---
	adminHandler := NewAdminHandler(deps.LedgerSvc)
	admin := v1.Group("/admin", jwtAuth, rl(middleware.GroupAdmin))
	{
		admin.POST("/mint", adminHandler.Mint)
		admin.POST("/burn", adminHandler.Burn)
		admin.POST("/pause", adminHandler.Pause)
		admin.POST("/unpause", adminHandler.Unpause)
		admin.POST("/blacklist", adminHandler.Blacklist)
		admin.POST("/unblacklist", adminHandler.Unblacklist)
		admin.POST("/fee-rate", adminHandler.SetFeeRate)
		admin.POST("/fee-recipient", adminHandler.SetFeeRecipient)
		admin.POST("/roles/grant", adminHandler.GrantRole)
		admin.POST("/roles/revoke", adminHandler.RevokeRole)
		admin.POST("/roles/renounce", adminHandler.RenounceRole)
		admin.POST("/recover", adminHandler.Recover)
		admin.POST("/stray-deposits", adminHandler.DepositStray)
	}

	// --- Event history and live stream ---
	if deps.MirrorSvc != nil {
		eventHandler := NewEventHandler(deps.MirrorSvc)
		v1.GET("/events", rl(middleware.GroupEvents), eventHandler.ListEvents)
		v1.GET("/mirror/balances/:address", rl(middleware.GroupEvents), eventHandler.GetMirroredBalance)
	}
	if deps.StreamHub != nil {
		v1.GET("/events/stream", rl(middleware.GroupEvents), deps.StreamHub.Serve)
	}

	return r
}
