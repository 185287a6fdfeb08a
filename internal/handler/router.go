package handler

import (
	"net/http"

	"creditledger/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, cfg *config.Config, deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, cfg, deps)

	api := r.Group("/api/v1")
	{
		debts := api.Group("/debts")
		{
			debts.POST("", h.CreateDebt)
			debts.GET("/:id", h.GetDebt)
			debts.POST("/:id/payments", h.ApplyPayment)
			debts.GET("/:id/payments", h.ListPayments)
			debts.GET("/:id/on-chain", h.CompareOnChain)
			debts.POST("/:id/approve", h.ApproveDebt)
			debts.POST("/:id/reject", h.RejectDebt)
		}

		clients := api.Group("/clients")
		{
			clients.GET("/:id/score", h.ClientScore)
			clients.GET("/:id/debts", h.ClientDebts)
			clients.GET("/:id/debts/pending", h.PendingDebts)
		}

		catalog := api.Group("/catalog/items")
		{
			catalog.POST("", h.CreateCatalogItem)
			catalog.GET("", h.ListCatalogItems)
			catalog.DELETE("/:id", h.DeleteCatalogItem)
		}

		notifications := api.Group("/notifications")
		{
			notifications.POST("/devices", h.RegisterDevice)
			notifications.POST("/reminders/run", h.RunReminders)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
