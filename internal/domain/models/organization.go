package models

import "time"

// MetadataKeyWhatsApp is the key of the WhatsApp configuration inside Organization.Metadata.
const MetadataKeyWhatsApp = "whatsapp"

// Organization is the tenant aggregate. Only Metadata[MetadataKeyWhatsApp] is
// mutated by this service.
type Organization struct {
	ID        string         `json:"id" bson:"_id"`
	Slug      string         `json:"slug" bson:"slug"`
	Name      string         `json:"name" bson:"name"`
	IsActive  bool           `json:"is_active" bson:"is_active"`
	Metadata  map[string]any `json:"metadata" bson:"metadata"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}

// BusinessProfile mirrors the provider's WhatsApp business profile object.
type BusinessProfile struct {
	About             string   `json:"about" mapstructure:"about"`
	Address           string   `json:"address" mapstructure:"address"`
	Description       string   `json:"description" mapstructure:"description"`
	Email             string   `json:"email" mapstructure:"email"`
	ProfilePictureURL string   `json:"profile_picture_url" mapstructure:"profile_picture_url"`
	Websites          []string `json:"websites" mapstructure:"websites"`
	Vertical          string   `json:"vertical" mapstructure:"vertical"`
}

// WhatsAppConfig is the credential and descriptive bundle stored at
// organization.metadata.whatsapp.
type WhatsAppConfig struct {
	IsEmbeddedSignup bool `json:"is_embedded_signup" mapstructure:"is_embedded_signup"`

	AccessToken  string `json:"access_token" mapstructure:"access_token"`
	AppID        string `json:"app_id" mapstructure:"app_id"`
	ClientID     string `json:"client_id,omitempty" mapstructure:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty" mapstructure:"client_secret,omitempty"`
	ConfigID     string `json:"config_id,omitempty" mapstructure:"config_id,omitempty"`

	WabaID             string `json:"waba_id" mapstructure:"waba_id"`
	PhoneNumberID      string `json:"phone_number_id" mapstructure:"phone_number_id"`
	DisplayPhoneNumber string `json:"display_phone_number" mapstructure:"display_phone_number"`
	VerifiedName       string `json:"verified_name" mapstructure:"verified_name"`

	QualityRating       string `json:"quality_rating" mapstructure:"quality_rating"`
	NameStatus          string `json:"name_status" mapstructure:"name_status"`
	MessagingLimitTier  string `json:"messaging_limit_tier" mapstructure:"messaging_limit_tier"`
	AccountReviewStatus string `json:"account_review_status" mapstructure:"account_review_status"`

	BusinessProfile BusinessProfile `json:"business_profile" mapstructure:"business_profile"`
}

// MissingCredentials lists the credential fields that must be present before
// messaging is allowed.
func (c *WhatsAppConfig) MissingCredentials() []string {
	if c == nil {
		return []string{"access_token", "app_id", "waba_id", "phone_number_id"}
	}
	var missing []string
	if c.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if c.AppID == "" {
		missing = append(missing, "app_id")
	}
	if c.WabaID == "" {
		missing = append(missing, "waba_id")
	}
	if c.PhoneNumberID == "" {
		missing = append(missing, "phone_number_id")
	}
	return missing
}

// Redacted returns a copy safe to hand back to API callers.
func (c WhatsAppConfig) Redacted() WhatsAppConfig {
	if c.AccessToken != "" {
		c.AccessToken = redact(c.AccessToken)
	}
	if c.ClientSecret != "" {
		c.ClientSecret = "****"
	}
	return c
}

func redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
