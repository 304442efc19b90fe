package models

// OutboundMessage is a send request. Type selects which one of the payload
// fields is read; the others must be left empty.
type OutboundMessage struct {
	To             string      `json:"to"`
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	ReplyTo        string      `json:"reply_to,omitempty"`

	Text        *OutboundText        `json:"text,omitempty"`
	Template    *OutboundTemplate    `json:"template,omitempty"`
	Media       *OutboundMedia       `json:"media,omitempty"`
	Location    *LocationContent     `json:"location,omitempty"`
	Contacts    []ContactCard        `json:"contacts,omitempty"`
	Interactive *OutboundInteractive `json:"interactive,omitempty"`
}

// OutboundText is a plain text body.
type OutboundText struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

// OutboundTemplate references an approved template by name and language.
type OutboundTemplate struct {
	Name       string           `json:"name"`
	Language   string           `json:"language"`
	Components []map[string]any `json:"components,omitempty"`
}

// OutboundMedia points at media either by public link or by uploaded media id.
type OutboundMedia struct {
	Link     string `json:"link,omitempty"`
	ID       string `json:"id,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ContactCard is one vCard-like entry of a contacts message.
type ContactCard struct {
	Name   ContactName    `json:"name"`
	Phones []ContactPhone `json:"phones,omitempty"`
	Emails []ContactEmail `json:"emails,omitempty"`
	Org    *ContactOrg    `json:"org,omitempty"`
}

type ContactName struct {
	FormattedName string `json:"formatted_name"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
}

type ContactPhone struct {
	Phone string `json:"phone"`
	Type  string `json:"type,omitempty"`
	WaID  string `json:"wa_id,omitempty"`
}

type ContactEmail struct {
	Email string `json:"email"`
	Type  string `json:"type,omitempty"`
}

type ContactOrg struct {
	Company    string `json:"company,omitempty"`
	Department string `json:"department,omitempty"`
	Title      string `json:"title,omitempty"`
}

// InteractiveKind is the interactive sub-type.
type InteractiveKind string

const (
	InteractiveButton InteractiveKind = "button"
	InteractiveList   InteractiveKind = "list"
)

// OutboundInteractive is a reply-button or list message.
type OutboundInteractive struct {
	Kind       InteractiveKind `json:"kind"`
	Header     string          `json:"header,omitempty"`
	Body       string          `json:"body"`
	Footer     string          `json:"footer,omitempty"`
	Buttons    []ReplyButton   `json:"buttons,omitempty"`
	ButtonText string          `json:"button_text,omitempty"`
	Sections   []ListSection   `json:"sections,omitempty"`
}

type ReplyButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ListSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []ListRow `json:"rows"`
}

type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// NewTextMessage builds a text message request.
func NewTextMessage(to, body string) OutboundMessage {
	return OutboundMessage{To: to, Type: MessageTypeText, Text: &OutboundText{Body: body}}
}

// NewTemplateMessage builds a template message request.
func NewTemplateMessage(to, name, language string, components []map[string]any) OutboundMessage {
	return OutboundMessage{
		To:   to,
		Type: MessageTypeTemplate,
		Template: &OutboundTemplate{
			Name:       name,
			Language:   language,
			Components: components,
		},
	}
}

// NewMediaMessage builds an image, video, audio or document message request.
func NewMediaMessage(to string, kind MessageType, media OutboundMedia) OutboundMessage {
	return OutboundMessage{To: to, Type: kind, Media: &media}
}

// NewLocationMessage builds a location message request.
func NewLocationMessage(to string, location LocationContent) OutboundMessage {
	return OutboundMessage{To: to, Type: MessageTypeLocation, Location: &location}
}

// NewContactMessage builds a contacts message request.
func NewContactMessage(to string, cards ...ContactCard) OutboundMessage {
	return OutboundMessage{To: to, Type: MessageTypeContact, Contacts: cards}
}

// NewInteractiveMessage builds a button or list message request.
func NewInteractiveMessage(to string, interactive OutboundInteractive) OutboundMessage {
	return OutboundMessage{To: to, Type: MessageTypeInteractive, Interactive: &interactive}
}
