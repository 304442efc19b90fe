package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/service/messaging"
)

// MessagingHandler exposes the per-tenant messaging facade.
type MessagingHandler struct {
	svc    *messaging.Service
	logger *zap.Logger
}

// NewMessagingHandler constructs the messaging handler.
func NewMessagingHandler(svc *messaging.Service, logger *zap.Logger) *MessagingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagingHandler{svc: svc, logger: logger}
}

func (h *MessagingHandler) facade(c *gin.Context) *messaging.Facade {
	return h.svc.For(c.Param("orgID"))
}

// Send dispatches any supported message type.
func (h *MessagingHandler) Send(c *gin.Context) {
	var msg models.OutboundMessage
	if !bindJSON(c, h.logger, &msg) {
		return
	}
	out, err := h.facade(c).Send(c.Request.Context(), msg)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type reactionRequest struct {
	To        string `json:"to"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// React sends an emoji reaction.
func (h *MessagingHandler) React(c *gin.Context) {
	var req reactionRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := h.facade(c).ReactToMessage(c.Request.Context(), req.To, req.MessageID, req.Emoji); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type readRequest struct {
	MessageID string `json:"message_id"`
}

// MarkRead sends a read receipt.
func (h *MessagingHandler) MarkRead(c *gin.Context) {
	var req readRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := h.facade(c).MarkAsRead(c.Request.Context(), req.MessageID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ConversationMessages lists the newest messages of a conversation.
func (h *MessagingHandler) ConversationMessages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, h.logger, apperr.ErrInvalidFormat.WithFields("limit"))
			return
		}
		limit = n
	}

	msgs, err := h.facade(c).GetConversationMessages(c.Request.Context(), c.Param("conversationID"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ListTemplates returns the local template projection.
func (h *MessagingHandler) ListTemplates(c *gin.Context) {
	templates, err := h.facade(c).ListTemplates(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// CreateTemplate submits a new template.
func (h *MessagingHandler) CreateTemplate(c *gin.Context) {
	var in messaging.TemplateInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	tpl, err := h.facade(c).CreateTemplate(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"template": tpl})
}

// UpdateTemplate edits a template.
func (h *MessagingHandler) UpdateTemplate(c *gin.Context) {
	var in messaging.TemplateUpdate
	if !bindJSON(c, h.logger, &in) {
		return
	}
	tpl, err := h.facade(c).UpdateTemplate(c.Request.Context(), c.Param("templateID"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl})
}

// DeleteTemplate deletes one template language, or every language when the
// template id is "-".
func (h *MessagingHandler) DeleteTemplate(c *gin.Context) {
	externalID := c.Param("templateID")
	if externalID == "-" {
		externalID = ""
	}
	if err := h.facade(c).DeleteTemplate(c.Request.Context(), c.Query("name"), externalID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SyncTemplates reconciles the local projection with the provider.
func (h *MessagingHandler) SyncTemplates(c *gin.Context) {
	n, err := h.facade(c).SyncTemplates(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": n})
}

// GetBusinessProfile returns the live business profile.
func (h *MessagingHandler) GetBusinessProfile(c *gin.Context) {
	profile, err := h.facade(c).GetBusinessProfile(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"business_profile": profile})
}

// UpdateBusinessProfile changes the business profile.
func (h *MessagingHandler) UpdateBusinessProfile(c *gin.Context) {
	var in models.BusinessProfile
	if !bindJSON(c, h.logger, &in) {
		return
	}
	profile, err := h.facade(c).UpdateBusinessProfile(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"business_profile": profile})
}

// UploadMedia accepts a multipart "file" field.
func (h *MessagingHandler) UploadMedia(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, h.logger, apperr.ErrMissingFields.WithFields("file").WithCause(err))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, apperr.ErrValidation.WithMessage("unreadable upload").WithCause(err))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	id, err := h.facade(c).UploadMedia(c.Request.Context(), header.Filename, mimeType, file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// GetMedia returns the metadata of an uploaded media object.
func (h *MessagingHandler) GetMedia(c *gin.Context) {
	media, err := h.facade(c).GetMedia(c.Request.Context(), c.Param("mediaID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, media)
}
