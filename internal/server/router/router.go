package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by New.
type Handlers struct {
	Webhook    *handlers.WebhookHandler
	Onboarding *handlers.OnboardingHandler
	Messaging  *handlers.MessagingHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if h.Webhook != nil {
		r.GET("/webhook/whatsapp", h.Webhook.Verify)
		r.GET("/webhook/whatsapp/:slug", h.Webhook.VerifyTenant)
		r.POST("/webhook/whatsapp/:slug", h.Webhook.Receive)
	}

	api := r.Group("/api/organizations/:orgID/whatsapp")
	if h.Onboarding != nil {
		api.POST("/setup/embedded", h.Onboarding.SetupEmbedded)
		api.POST("/setup/manual", h.Onboarding.SetupManual)
		api.POST("/refresh", h.Onboarding.Refresh)
		api.PUT("/access-token", h.Onboarding.UpdateAccessToken)
		api.GET("/config", h.Onboarding.GetConfig)
	}
	if h.Messaging != nil {
		api.POST("/messages", h.Messaging.Send)
		api.POST("/messages/react", h.Messaging.React)
		api.POST("/messages/read", h.Messaging.MarkRead)
		api.GET("/conversations/:conversationID/messages", h.Messaging.ConversationMessages)

		api.GET("/templates", h.Messaging.ListTemplates)
		api.POST("/templates", h.Messaging.CreateTemplate)
		api.POST("/templates/sync", h.Messaging.SyncTemplates)
		api.PUT("/templates/:templateID", h.Messaging.UpdateTemplate)
		api.DELETE("/templates/:templateID", h.Messaging.DeleteTemplate)

		api.GET("/business-profile", h.Messaging.GetBusinessProfile)
		api.PUT("/business-profile", h.Messaging.UpdateBusinessProfile)
		api.POST("/media", h.Messaging.UploadMedia)
		api.GET("/media/:mediaID", h.Messaging.GetMedia)
	}

	logger.Info("router initialized")
	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
