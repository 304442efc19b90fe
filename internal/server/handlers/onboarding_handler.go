package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/service/onboarding"
)

// OnboardingService describes the onboarding operations exposed over HTTP.
type OnboardingService interface {
	SetupEmbeddedSignup(ctx context.Context, orgID string, in onboarding.EmbeddedSignupInput) (*onboarding.Result, error)
	SetupManual(ctx context.Context, orgID string, in onboarding.ManualSetupInput) (*onboarding.Result, error)
	RefreshConfiguration(ctx context.Context, orgID string) (*onboarding.Result, error)
	UpdateAccessToken(ctx context.Context, orgID, accessToken string) (*onboarding.Result, error)
	GetConfiguration(ctx context.Context, orgID string) (*models.WhatsAppConfig, error)
}

// OnboardingHandler exposes tenant setup endpoints.
type OnboardingHandler struct {
	svc    OnboardingService
	logger *zap.Logger
}

// NewOnboardingHandler constructs the onboarding handler.
func NewOnboardingHandler(svc OnboardingService, logger *zap.Logger) *OnboardingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingHandler{svc: svc, logger: logger}
}

// SetupEmbedded runs the guided flow with the code returned by embedded signup.
func (h *OnboardingHandler) SetupEmbedded(c *gin.Context) {
	var in onboarding.EmbeddedSignupInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	h.respond(c, func(ctx context.Context, orgID string) (*onboarding.Result, error) {
		return h.svc.SetupEmbeddedSignup(ctx, orgID, in)
	})
}

// SetupManual stores operator supplied credentials after checking them.
func (h *OnboardingHandler) SetupManual(c *gin.Context) {
	var in onboarding.ManualSetupInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	h.respond(c, func(ctx context.Context, orgID string) (*onboarding.Result, error) {
		return h.svc.SetupManual(ctx, orgID, in)
	})
}

// Refresh re-reads the provider state for the stored credentials.
func (h *OnboardingHandler) Refresh(c *gin.Context) {
	h.respond(c, h.svc.RefreshConfiguration)
}

type accessTokenRequest struct {
	AccessToken string `json:"access_token"`
}

// UpdateAccessToken swaps the stored token after validating it.
func (h *OnboardingHandler) UpdateAccessToken(c *gin.Context) {
	var req accessTokenRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	h.respond(c, func(ctx context.Context, orgID string) (*onboarding.Result, error) {
		return h.svc.UpdateAccessToken(ctx, orgID, req.AccessToken)
	})
}

// GetConfig returns the stored configuration with secrets redacted.
func (h *OnboardingHandler) GetConfig(c *gin.Context) {
	cfg, err := h.svc.GetConfiguration(c.Request.Context(), c.Param("orgID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg})
}

func (h *OnboardingHandler) respond(c *gin.Context, run func(ctx context.Context, orgID string) (*onboarding.Result, error)) {
	orgID := c.Param("orgID")
	res, err := run(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("onboarding completed", zap.String("org_id", orgID), zap.Int("warnings", len(res.Warnings)))
	c.JSON(http.StatusOK, res)
}
