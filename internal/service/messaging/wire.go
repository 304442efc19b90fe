package messaging

import (
	"encoding/json"
	"strings"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
)

// buildPayload maps an outbound message onto the Cloud API wire shape. It
// returns the wire type key alongside the payload.
func buildPayload(msg models.OutboundMessage) (string, map[string]any, error) {
	var (
		wireType string
		body     any
	)

	switch msg.Type {
	case models.MessageTypeText:
		if msg.Text == nil || strings.TrimSpace(msg.Text.Body) == "" {
			return "", nil, apperr.ErrMissingFields.WithFields("text.body")
		}
		wireType = "text"
		text := map[string]any{"body": msg.Text.Body}
		if msg.Text.PreviewURL {
			text["preview_url"] = true
		}
		body = text

	case models.MessageTypeTemplate:
		if msg.Template == nil || msg.Template.Name == "" || msg.Template.Language == "" {
			return "", nil, apperr.ErrMissingFields.WithFields("template.name", "template.language")
		}
		wireType = "template"
		tpl := map[string]any{
			"name":     msg.Template.Name,
			"language": map[string]any{"code": msg.Template.Language},
		}
		if len(msg.Template.Components) > 0 {
			tpl["components"] = msg.Template.Components
		}
		body = tpl

	case models.MessageTypeImage, models.MessageTypeVideo, models.MessageTypeAudio, models.MessageTypeDocument:
		if msg.Media == nil || (msg.Media.Link == "" && msg.Media.ID == "") {
			return "", nil, apperr.ErrMissingFields.WithFields("media.link", "media.id")
		}
		wireType = string(msg.Type)
		media := map[string]any{}
		for key, value := range map[string]string{
			"link":     msg.Media.Link,
			"id":       msg.Media.ID,
			"caption":  msg.Media.Caption,
			"filename": msg.Media.Filename,
		} {
			if value != "" {
				media[key] = value
			}
		}
		body = media

	case models.MessageTypeLocation:
		if msg.Location == nil {
			return "", nil, apperr.ErrMissingFields.WithFields("location")
		}
		wireType = "location"
		body = msg.Location

	case models.MessageTypeContact:
		if len(msg.Contacts) == 0 {
			return "", nil, apperr.ErrMissingFields.WithFields("contacts")
		}
		wireType = "contacts"
		body = msg.Contacts

	case models.MessageTypeInteractive:
		interactive, err := buildInteractive(msg.Interactive)
		if err != nil {
			return "", nil, err
		}
		wireType = "interactive"
		body = interactive

	default:
		return "", nil, apperr.ErrUnsupportedType.WithMessage("unsupported message type %q", msg.Type).WithFields("type")
	}

	payload := map[string]any{
		"recipient_type": "individual",
		"to":             msg.To,
		"type":           wireType,
		wireType:         body,
	}
	if msg.ReplyTo != "" {
		payload["context"] = map[string]any{"message_id": msg.ReplyTo}
	}
	return wireType, payload, nil
}

func buildInteractive(in *models.OutboundInteractive) (map[string]any, error) {
	if in == nil || strings.TrimSpace(in.Body) == "" {
		return nil, apperr.ErrMissingFields.WithFields("interactive.body")
	}

	out := map[string]any{
		"body": map[string]any{"text": in.Body},
	}
	if in.Header != "" {
		out["header"] = map[string]any{"type": "text", "text": in.Header}
	}
	if in.Footer != "" {
		out["footer"] = map[string]any{"text": in.Footer}
	}

	switch in.Kind {
	case models.InteractiveButton:
		if len(in.Buttons) == 0 {
			return nil, apperr.ErrMissingFields.WithFields("interactive.buttons")
		}
		buttons := make([]map[string]any, 0, len(in.Buttons))
		for _, b := range in.Buttons {
			buttons = append(buttons, map[string]any{
				"type":  "reply",
				"reply": map[string]any{"id": b.ID, "title": b.Title},
			})
		}
		out["type"] = "button"
		out["action"] = map[string]any{"buttons": buttons}
	case models.InteractiveList:
		if len(in.Sections) == 0 || in.ButtonText == "" {
			return nil, apperr.ErrMissingFields.WithFields("interactive.sections", "interactive.button_text")
		}
		out["type"] = "list"
		out["action"] = map[string]any{"button": in.ButtonText, "sections": in.Sections}
	default:
		return nil, apperr.ErrUnsupportedType.WithMessage("unsupported interactive kind %q", in.Kind).WithFields("interactive.kind")
	}
	return out, nil
}

// snapshot returns a JSON-plain copy of v suitable for any store driver.
func snapshot(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	return out
}
