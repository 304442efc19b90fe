package models

import (
	"strings"
	"time"
)

// MessageType enumerates the content shapes a message can carry.
type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeTemplate    MessageType = "template"
	MessageTypeImage       MessageType = "image"
	MessageTypeVideo       MessageType = "video"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeDocument    MessageType = "document"
	MessageTypeLocation    MessageType = "location"
	MessageTypeContact     MessageType = "contact"
	MessageTypeInteractive MessageType = "interactive"
)

// IsMedia reports whether t is one of the link/id based media types.
func (t MessageType) IsMedia() bool {
	switch t {
	case MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeDocument:
		return true
	}
	return false
}

// ParseInboundType maps the type of a received provider message onto
// MessageType. Kinds without a local equivalent (reaction, order, system,
// unsupported) report false.
func ParseInboundType(s string) (MessageType, bool) {
	switch t := MessageType(strings.ToLower(s)); t {
	case MessageTypeText, MessageTypeTemplate, MessageTypeImage, MessageTypeVideo,
		MessageTypeAudio, MessageTypeDocument, MessageTypeLocation, MessageTypeInteractive:
		return t, true
	case "contacts", MessageTypeContact:
		return MessageTypeContact, true
	case "button":
		return MessageTypeInteractive, true
	case "sticker":
		return MessageTypeImage, true
	}
	return "", false
}

// Direction tells whether a message was sent or received by the tenant.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// MessageStatus is the delivery state reported by provider status events.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "SENT"
	MessageStatusDelivered MessageStatus = "DELIVERED"
	MessageStatusRead      MessageStatus = "READ"
	MessageStatusFailed    MessageStatus = "FAILED"
)

// ParseMessageStatus maps a provider status string onto MessageStatus.
func ParseMessageStatus(s string) (MessageStatus, bool) {
	switch st := MessageStatus(strings.ToUpper(s)); st {
	case MessageStatusSent, MessageStatusDelivered, MessageStatusRead, MessageStatusFailed:
		return st, true
	}
	return "", false
}

// Message is a locally stored inbound or outbound message.
type Message struct {
	ID                string         `json:"id" bson:"_id"`
	OrganizationID    string         `json:"organization_id" bson:"organization_id"`
	ExternalMessageID *string        `json:"external_message_id" bson:"external_message_id"`
	ConversationID    string         `json:"conversation_id" bson:"conversation_id"`
	ContactID         string         `json:"contact_id" bson:"contact_id"`
	Type              MessageType    `json:"type" bson:"type"`
	Direction         Direction      `json:"direction" bson:"direction"`
	Status            MessageStatus  `json:"status" bson:"status"`
	Content           map[string]any `json:"content" bson:"content"`
	Timestamp         time.Time      `json:"timestamp" bson:"timestamp"`
}

// Contact is unique per (OrganizationID, Phone).
type Contact struct {
	ID             string    `json:"id" bson:"_id"`
	OrganizationID string    `json:"organization_id" bson:"organization_id"`
	Phone          string    `json:"phone" bson:"phone"`
	Name           string    `json:"name,omitempty" bson:"name,omitempty"`
	Email          string    `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// ContactProfile carries optional enrichment for a contact.
type ContactProfile struct {
	Name  string
	Email string
}
