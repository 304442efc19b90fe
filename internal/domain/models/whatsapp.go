package models

import "encoding/json"

// WebhookPayload mirrors the structure sent by Meta's WhatsApp Cloud API webhook callbacks.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry represents one entry payload within the webhook body.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange captures the actual notification contents.
type WebhookChange struct {
	Value WebhookValue `json:"value"`
	Field string       `json:"field"`
}

// WebhookValue contains message metadata, contacts and message events sent by users.
type WebhookValue struct {
	MessagingProduct string               `json:"messaging_product"`
	Metadata         Metadata             `json:"metadata"`
	Contacts         []WebhookContact     `json:"contacts"`
	Messages         []InboundMessage     `json:"messages"`
	Statuses         []MessageStatusEvent `json:"statuses"`
	Errors           []WebhookError       `json:"errors"`
}

// Metadata contains WhatsApp phone identifiers for the business account.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// WebhookContact represents the WhatsApp user initiating the conversation.
type WebhookContact struct {
	Profile ContactProfileName `json:"profile"`
	WaID    string             `json:"wa_id"`
}

// ContactProfileName contains the human-friendly contact name.
type ContactProfileName struct {
	Name string `json:"name"`
}

// InboundMessage aggregates the inbound WhatsApp message shapes. The raw JSON
// of the message is kept so the content can be stored verbatim.
type InboundMessage struct {
	From        string            `json:"from"`
	ID          string            `json:"id"`
	Timestamp   string            `json:"timestamp"`
	Type        string            `json:"type"`
	Text        *TextContent      `json:"text,omitempty"`
	Interactive *InteractiveReply `json:"interactive,omitempty"`
	Button      *ButtonContent    `json:"button,omitempty"`
	Image       *MediaContent     `json:"image,omitempty"`
	Video       *MediaContent     `json:"video,omitempty"`
	Audio       *MediaContent     `json:"audio,omitempty"`
	Document    *MediaContent     `json:"document,omitempty"`
	Sticker     *MediaContent     `json:"sticker,omitempty"`
	Location    *LocationContent  `json:"location,omitempty"`
	Reaction    *ReactionContent  `json:"reaction,omitempty"`
	Context     *MessageContext   `json:"context,omitempty"`

	raw       json.RawMessage
	decodeErr error
}

// UnmarshalJSON decodes the message and retains its raw bytes. A malformed
// message does not fail the surrounding payload; DecodeErr reports it instead.
func (m *InboundMessage) UnmarshalJSON(b []byte) error {
	type alias InboundMessage
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		*m = InboundMessage{raw: append(json.RawMessage(nil), b...), decodeErr: err}
		return nil
	}
	*m = InboundMessage(a)
	m.raw = append(json.RawMessage(nil), b...)
	return nil
}

// DecodeErr returns the error hit while decoding this message, if any.
func (m InboundMessage) DecodeErr() error { return m.decodeErr }

// Content returns the type specific sub-object of the message, e.g.
// {"text": {"body": "hi"}}.
func (m InboundMessage) Content() map[string]any {
	raw := m.raw
	if len(raw) == 0 {
		type alias InboundMessage
		b, err := json.Marshal(alias(m))
		if err != nil {
			return map[string]any{}
		}
		raw = b
	}

	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return map[string]any{}
	}

	content := map[string]any{}
	if v, ok := all[m.Type]; ok {
		content[m.Type] = v
	}
	if v, ok := all["context"]; ok {
		content["context"] = v
	}
	return content
}

// TextContent contains text messages body.
type TextContent struct {
	Body string `json:"body"`
}

// InteractiveReply represents button/list replies.
type InteractiveReply struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
	ListReply   *ListReply   `json:"list_reply,omitempty"`
}

// ButtonReply models a pressed button payload.
type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListReply models a selected list item payload.
type ListReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ButtonContent is a quick reply button pressed on a template message.
type ButtonContent struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
}

// MediaContent represents media attachments minimal metadata.
type MediaContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Sha256   string `json:"sha256"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// LocationContent is a shared location.
type LocationContent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// ReactionContent is an emoji reaction to an earlier message.
type ReactionContent struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// MessageContext links a reply to the message it answers.
type MessageContext struct {
	From string `json:"from"`
	ID   string `json:"id"`
}

// MessageStatusEvent represents delivery/read receipts coming from WhatsApp.
type MessageStatusEvent struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Timestamp   string         `json:"timestamp"`
	RecipientID string         `json:"recipient_id"`
	Errors      []WebhookError `json:"errors,omitempty"`

	decodeErr error
}

// UnmarshalJSON never fails the surrounding payload; DecodeErr reports a malformed event.
func (e *MessageStatusEvent) UnmarshalJSON(b []byte) error {
	type alias MessageStatusEvent
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		*e = MessageStatusEvent{decodeErr: err}
		return nil
	}
	*e = MessageStatusEvent(a)
	return nil
}

// DecodeErr returns the error hit while decoding this event, if any.
func (e MessageStatusEvent) DecodeErr() error { return e.decodeErr }

// WebhookError exposes errors returned from Meta during webhook notifications.
type WebhookError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
