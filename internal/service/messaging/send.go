package messaging

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
)

// Send dispatches msg and records it as an outbound message. Validation and
// type dispatch happen before any provider call.
func (f *Facade) Send(ctx context.Context, msg models.OutboundMessage) (*models.Message, error) {
	msg.To = strings.TrimSpace(msg.To)
	if msg.To == "" {
		return nil, apperr.ErrMissingFields.WithFields("to")
	}

	wireType, payload, err := buildPayload(msg)
	if err != nil {
		return nil, err
	}

	cfg, err := f.messagingConfig(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := f.svc.client.SendMessage(ctx, cfg.AccessToken, cfg.PhoneNumberID, payload)
	if err != nil {
		f.logger.Warn("send message failed", zap.String("type", string(msg.Type)), zap.Error(err))
		return nil, providerError("send message", err)
	}

	contact, err := f.svc.store.FindOrCreateContact(ctx, f.orgID, msg.To, nil)
	if err != nil {
		return nil, persistenceError("resolve contact", err)
	}

	record := &models.Message{
		OrganizationID: f.orgID,
		ConversationID: msg.ConversationID,
		ContactID:      contact.ID,
		Type:           msg.Type,
		Direction:      models.DirectionOutbound,
		Status:         models.MessageStatusSent,
		Content:        snapshot(map[string]any{wireType: payload[wireType]}),
		Timestamp:      time.Now().UTC(),
	}
	if record.ConversationID == "" {
		record.ConversationID = contact.ID
	}
	// the provider may queue a send without acknowledging an id
	if id := resp.FirstMessageID(); id != "" {
		record.ExternalMessageID = &id
	}

	if err := f.svc.store.CreateMessage(ctx, record); err != nil {
		return nil, persistenceError("store outbound message", err)
	}

	f.logger.Info("message sent",
		zap.String("type", string(msg.Type)),
		zap.String("message_id", record.ID),
		zap.String("conversation_id", record.ConversationID),
	)
	return record, nil
}

// SendText sends a plain text message.
func (f *Facade) SendText(ctx context.Context, to, body string) (*models.Message, error) {
	return f.Send(ctx, models.NewTextMessage(to, body))
}

// SendTemplateMessage sends an approved template.
func (f *Facade) SendTemplateMessage(ctx context.Context, to, name, language string, components []map[string]any) (*models.Message, error) {
	return f.Send(ctx, models.NewTemplateMessage(to, name, language, components))
}

// SendMediaMessage sends an image, video, audio or document.
func (f *Facade) SendMediaMessage(ctx context.Context, to string, kind models.MessageType, media models.OutboundMedia) (*models.Message, error) {
	return f.Send(ctx, models.NewMediaMessage(to, kind, media))
}

// SendLocationMessage sends a location pin.
func (f *Facade) SendLocationMessage(ctx context.Context, to string, location models.LocationContent) (*models.Message, error) {
	return f.Send(ctx, models.NewLocationMessage(to, location))
}

// SendContactMessage sends one or more contact cards.
func (f *Facade) SendContactMessage(ctx context.Context, to string, cards ...models.ContactCard) (*models.Message, error) {
	return f.Send(ctx, models.NewContactMessage(to, cards...))
}

// SendInteractiveMessage sends a reply-button or list message.
func (f *Facade) SendInteractiveMessage(ctx context.Context, to string, interactive models.OutboundInteractive) (*models.Message, error) {
	return f.Send(ctx, models.NewInteractiveMessage(to, interactive))
}

// ReactToMessage reacts to messageID with emoji. Reactions are not stored locally.
func (f *Facade) ReactToMessage(ctx context.Context, to, messageID, emoji string) error {
	var missing []string
	if strings.TrimSpace(to) == "" {
		missing = append(missing, "to")
	}
	if messageID == "" {
		missing = append(missing, "message_id")
	}
	if len(missing) > 0 {
		return apperr.ErrMissingFields.WithFields(missing...)
	}

	cfg, err := f.messagingConfig(ctx)
	if err != nil {
		return err
	}

	_, err = f.svc.client.SendMessage(ctx, cfg.AccessToken, cfg.PhoneNumberID, map[string]any{
		"recipient_type": "individual",
		"to":             strings.TrimSpace(to),
		"type":           "reaction",
		"reaction": map[string]any{
			"message_id": messageID,
			"emoji":      emoji,
		},
	})
	if err != nil {
		return providerError("react to message", err)
	}
	return nil
}

// MarkAsRead sends a read receipt for an inbound message.
func (f *Facade) MarkAsRead(ctx context.Context, messageID string) error {
	if messageID == "" {
		return apperr.ErrMissingFields.WithFields("message_id")
	}

	cfg, err := f.messagingConfig(ctx)
	if err != nil {
		return err
	}

	_, err = f.svc.client.SendMessage(ctx, cfg.AccessToken, cfg.PhoneNumberID, map[string]any{
		"status":     "read",
		"message_id": messageID,
	})
	if err != nil {
		return providerError("mark message as read", err)
	}
	return nil
}

// GetConversationMessages returns the newest stored messages of a conversation.
func (f *Facade) GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	messages, err := f.svc.store.ListMessages(ctx, f.orgID, conversationID, limit)
	if err != nil {
		return nil, persistenceError("list messages", err)
	}
	return messages, nil
}
