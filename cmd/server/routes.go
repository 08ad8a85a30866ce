package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coinledger.backend/internal/interfaces/http/handlers"
	"coinledger.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	notifyHandler   *handlers.NotifyHandler
	ledgerHandler   *handlers.LedgerHandler
	transferHandler *handlers.TransferHandler
	adminHandler    *handlers.AdminHandler
	authMiddleware  gin.HandlerFunc
	notifyAuth      gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Daemon notification routes (token guarded)
		notify := v1.Group("/notify")
		notify.Use(d.notifyAuth)
		{
			notify.POST("/:currency/wallet", d.notifyHandler.WalletNotify)
			notify.POST("/:currency/block", d.notifyHandler.BlockNotify)
		}

		// User ledger routes (protected)
		users := v1.Group("/users")
		users.Use(d.authMiddleware)
		{
			users.GET("/:id/balances", d.ledgerHandler.GetBalances)
			users.GET("/:id/transactions", d.ledgerHandler.ListTransactions)
		}

		// Outgoing value routes (protected)
		v1.POST("/withdrawals", d.authMiddleware, d.transferHandler.CreateWithdrawal)
		v1.POST("/moves", d.authMiddleware, d.transferHandler.CreateMove)

		// Confirmation link (the nonce is the secret)
		v1.GET("/confirm/:nonce", d.transferHandler.Confirm)

		// Admin routes (protected)
		admin := v1.Group("/admin")
		admin.Use(d.authMiddleware, middleware.RequireAdmin())
		{
			admin.PUT("/wallets/:id/cursor", d.adminHandler.ResetCursor)
			admin.PUT("/deposit-cutoff", d.adminHandler.SetDepositCutoff)
			admin.POST("/reconcile", d.adminHandler.TriggerReconcile)
		}
	}
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "coinledger-backend",
			"version": "0.1.0",
		})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Notify-Token")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
