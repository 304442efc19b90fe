package whatsapp

import "encoding/json"

// TokenResponse is returned by the OAuth code exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// DebugTokenData is the data object of /debug_token.
type DebugTokenData struct {
	AppID          string          `json:"app_id"`
	Type           string          `json:"type"`
	Application    string          `json:"application"`
	IsValid        bool            `json:"is_valid"`
	ExpiresAt      int64           `json:"expires_at"`
	Scopes         []string        `json:"scopes"`
	GranularScopes []GranularScope `json:"granular_scopes"`
}

// GranularScope lists the objects a scope was granted on.
type GranularScope struct {
	Scope     string   `json:"scope"`
	TargetIDs []string `json:"target_ids"`
}

// Graph API scopes carrying the shared WhatsApp Business Account id.
const (
	ScopeBusinessManagement = "whatsapp_business_management"
	ScopeBusinessMessaging  = "whatsapp_business_messaging"
)

// TargetFor returns the first target id granted for scope.
func (d *DebugTokenData) TargetFor(scope string) string {
	for _, s := range d.GranularScopes {
		if s.Scope == scope && len(s.TargetIDs) > 0 {
			return s.TargetIDs[0]
		}
	}
	return ""
}

// BusinessAccount is a WhatsApp Business Account node.
type BusinessAccount struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	AccountReviewStatus string `json:"account_review_status"`
	Currency            string `json:"currency,omitempty"`
	TimezoneID          string `json:"timezone_id,omitempty"`
}

// PhoneNumber is a phone number node.
type PhoneNumber struct {
	ID                     string `json:"id"`
	DisplayPhoneNumber     string `json:"display_phone_number"`
	VerifiedName           string `json:"verified_name"`
	QualityRating          string `json:"quality_rating"`
	NameStatus             string `json:"name_status"`
	MessagingLimitTier     string `json:"messaging_limit_tier"`
	CodeVerificationStatus string `json:"code_verification_status,omitempty"`
	PlatformType           string `json:"platform_type,omitempty"`
}

// BusinessProfile is the whatsapp_business_profile node.
type BusinessProfile struct {
	About             string   `json:"about"`
	Address           string   `json:"address"`
	Description       string   `json:"description"`
	Email             string   `json:"email"`
	ProfilePictureURL string   `json:"profile_picture_url"`
	Websites          []string `json:"websites"`
	Vertical          string   `json:"vertical"`
}

// BusinessProfileUpdate holds the profile fields to change; empty fields are omitted.
type BusinessProfileUpdate struct {
	About                string   `json:"about,omitempty"`
	Address              string   `json:"address,omitempty"`
	Description          string   `json:"description,omitempty"`
	Email                string   `json:"email,omitempty"`
	ProfilePictureHandle string   `json:"profile_picture_handle,omitempty"`
	Websites             []string `json:"websites,omitempty"`
	Vertical             string   `json:"vertical,omitempty"`
}

// MessageTemplate is one entry of the message_templates edge.
type MessageTemplate struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Language        string            `json:"language"`
	Category        string            `json:"category"`
	Status          string            `json:"status"`
	RejectedReason  string            `json:"rejected_reason,omitempty"`
	ParameterFormat string            `json:"parameter_format,omitempty"`
	Components      []json.RawMessage `json:"components,omitempty"`
}

// TemplateDefinition is the body of a template create or edit call.
type TemplateDefinition struct {
	Name                string           `json:"name,omitempty"`
	Language            string           `json:"language,omitempty"`
	Category            string           `json:"category,omitempty"`
	ParameterFormat     string           `json:"parameter_format,omitempty"`
	AllowCategoryChange bool             `json:"allow_category_change,omitempty"`
	Components          []map[string]any `json:"components,omitempty"`
}

// CreateTemplateResponse is returned by template creation.
type CreateTemplateResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Category string `json:"category"`
}

// SendMessageResponse mirrors the successful response from Meta.
type SendMessageResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID            string `json:"id"`
		MessageStatus string `json:"message_status,omitempty"`
	} `json:"messages"`
}

// FirstMessageID returns the id of the first acknowledged message, or "" when
// the provider queued the send without one.
func (r *SendMessageResponse) FirstMessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// MediaUploadResponse is returned by the media upload edge.
type MediaUploadResponse struct {
	ID string `json:"id"`
}

// MediaMetadata describes an uploaded media object.
type MediaMetadata struct {
	ID               string `json:"id"`
	URL              string `json:"url"`
	MimeType         string `json:"mime_type"`
	SHA256           string `json:"sha256"`
	FileSize         int64  `json:"file_size"`
	MessagingProduct string `json:"messaging_product"`
}

type dataEnvelope[T any] struct {
	Data   []T    `json:"data"`
	Paging paging `json:"paging"`
}

type paging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Next string `json:"next"`
}

type successResponse struct {
	Success *bool `json:"success"`
}
