package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"solana-mint-campaign/internal/observability"
)

// NewRouter wires the campaign API onto a gin engine, with health and
// Prometheus endpoints alongside.
func NewRouter(s Services) *gin.Engine {
	h := NewHandler(s)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	campaigns := r.Group("/campaigns")
	{
		campaigns.POST("", h.CreateCampaign)
		campaigns.GET("/:address", h.GetCampaign)
		campaigns.DELETE("/:address", h.DeleteCampaign)
		campaigns.POST("/:address/groups", h.AddGroup)
		campaigns.PUT("/:address/groups/:label/allowlist", h.SetAllowList)
		campaigns.POST("/:address/items", h.LoadItems)
		campaigns.POST("/:address/mint", h.Mint)
		campaigns.POST("/:address/thaw", h.Thaw)
		campaigns.POST("/:address/unlock-funds", h.UnlockFunds)
		campaigns.GET("/:address/eligibility", h.GetEligibility)
		campaigns.GET("/:address/receipts", h.ListReceipts)
		campaigns.GET("/:address/activity", h.GetActivity)
	}

	return r
}
