package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/service/webhook"
)

const maxWebhookBody = 4 << 20

// WebhookService describes the webhook operations the HTTP layer can perform.
type WebhookService interface {
	VerifyTenant(slug, mode, token, challenge string) (string, error)
	VerifyGlobal(mode, token, challenge string) (string, error)
	VerifySignature(body []byte, header string) error
	HandleDelivery(ctx context.Context, slug string, payload models.WebhookPayload) webhook.Result
}

// WebhookHandler handles the provider facing webhook surface.
type WebhookHandler struct {
	svc    WebhookService
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc WebhookService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

// Verify responds to the verification challenge of the account-level endpoint.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode, token, challenge := verificationParams(c)
	h.answerChallenge(c, "", func() (string, error) {
		return h.svc.VerifyGlobal(mode, token, challenge)
	})
}

// VerifyTenant responds to the verification challenge of a tenant endpoint.
func (h *WebhookHandler) VerifyTenant(c *gin.Context) {
	slug := c.Param("slug")
	mode, token, challenge := verificationParams(c)
	h.answerChallenge(c, slug, func() (string, error) {
		return h.svc.VerifyTenant(slug, mode, token, challenge)
	})
}

func (h *WebhookHandler) answerChallenge(c *gin.Context, slug string, verify func() (string, error)) {
	resp, err := verify()
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.String("slug", slug))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, resp)
}

// Receive ingests event deliveries. Anything past the signature check is
// acknowledged with 200 so the provider keeps delivering.
func (h *WebhookHandler) Receive(c *gin.Context) {
	slug := c.Param("slug")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("failed to read webhook body", zap.String("slug", slug), zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	if err := h.svc.VerifySignature(body, c.GetHeader(webhook.SignatureHeader)); err != nil {
		h.logger.Warn("webhook signature rejected", zap.String("slug", slug), zap.Error(err))
		c.Status(http.StatusUnauthorized)
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.String("slug", slug), zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	h.svc.HandleDelivery(c.Request.Context(), slug, payload)
	c.Status(http.StatusOK)
}

// verificationParams reads the provider's hub.* parameters, falling back to
// the bare names.
func verificationParams(c *gin.Context) (mode, token, challenge string) {
	get := func(name string) string {
		if v := c.Query("hub." + name); v != "" {
			return v
		}
		return c.Query(name)
	}
	return get("mode"), get("verify_token"), get("challenge")
}
