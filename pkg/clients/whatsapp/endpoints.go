package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	phoneNumberFields     = "id,display_phone_number,verified_name,quality_rating,name_status,messaging_limit_tier,code_verification_status,platform_type"
	businessProfileFields = "about,address,description,email,profile_picture_url,websites,vertical"
	templateFields        = "id,name,language,category,status,rejected_reason,parameter_format,components"
	templatePageSize      = "100"
)

func (c *APIClient) ExchangeCode(ctx context.Context, clientID, clientSecret, code string) (*TokenResponse, error) {
	out := new(TokenResponse)
	err := c.do(ctx, Request{
		Method:   http.MethodGet,
		Endpoint: "oauth/access_token",
		Query: url.Values{
			"client_id":     {clientID},
			"client_secret": {clientSecret},
			"code":          {code},
		},
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) DebugToken(ctx context.Context, inputToken, appToken string) (*DebugTokenData, error) {
	var out struct {
		Data DebugTokenData `json:"data"`
	}
	err := c.do(ctx, Request{
		Method:      http.MethodGet,
		Endpoint:    "debug_token",
		AccessToken: appToken,
		Query:       url.Values{"input_token": {inputToken}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *APIClient) GetBusinessAccount(ctx context.Context, accessToken, wabaID string, fields ...string) (*BusinessAccount, error) {
	if len(fields) == 0 {
		fields = []string{"id", "name"}
	}
	out := new(BusinessAccount)
	err := c.do(ctx, Request{
		Method:      http.MethodGet,
		Endpoint:    wabaID,
		AccessToken: accessToken,
		Query:       url.Values{"fields": {strings.Join(fields, ",")}},
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) ListPhoneNumbers(ctx context.Context, accessToken, wabaID string) ([]PhoneNumber, error) {
	var out dataEnvelope[PhoneNumber]
	err := c.do(ctx, Request{
		Method:      http.MethodGet,
		Endpoint:    wabaID + "/phone_numbers",
		AccessToken: accessToken,
		Query:       url.Values{"fields": {phoneNumberFields}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *APIClient) GetPhoneNumber(ctx context.Context, accessToken, phoneNumberID string) (*PhoneNumber, error) {
	out := new(PhoneNumber)
	err := c.do(ctx, Request{
		Method:      http.MethodGet,
		Endpoint:    phoneNumberID,
		AccessToken: accessToken,
		Query:       url.Values{"fields": {phoneNumberFields}},
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) RegisterPhoneNumber(ctx context.Context, accessToken, phoneNumberID, pin string) error {
	return c.do(ctx, Request{
		Method:      http.MethodPost,
		Endpoint:    phoneNumberID + "/register",
		AccessToken: accessToken,
		Body: map[string]any{
			"messaging_product": "whatsapp",
			"pin":               pin,
		},
	}, nil)
}

func (c *APIClient) GetBusinessProfile(ctx context.Context, accessToken, phoneNumberID string) (*BusinessProfile, error) {
	var out dataEnvelope[BusinessProfile]
	err := c.do(ctx, Request{
		Method:      http.MethodGet,
		Endpoint:    phoneNumberID + "/whatsapp_business_profile",
		AccessToken: accessToken,
		Query:       url.Values{"fields": {businessProfileFields}},
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return &BusinessProfile{}, nil
	}
	return &out.Data[0], nil
}

func (c *APIClient) UpdateBusinessProfile(ctx context.Context, accessToken, phoneNumberID string, profile BusinessProfileUpdate) error {
	body := map[string]any{"messaging_product": "whatsapp"}
	if profile.About != "" {
		body["about"] = profile.About
	}
	if profile.Address != "" {
		body["address"] = profile.Address
	}
	if profile.Description != "" {
		body["description"] = profile.Description
	}
	if profile.Email != "" {
		body["email"] = profile.Email
	}
	if profile.ProfilePictureHandle != "" {
		body["profile_picture_handle"] = profile.ProfilePictureHandle
	}
	if len(profile.Websites) > 0 {
		body["websites"] = profile.Websites
	}
	if profile.Vertical != "" {
		body["vertical"] = profile.Vertical
	}

	return c.do(ctx, Request{
		Method:      http.MethodPost,
		Endpoint:    phoneNumberID + "/whatsapp_business_profile",
		AccessToken: accessToken,
		Body:        body,
	}, nil)
}

func (c *APIClient) SubscribeApp(ctx context.Context, accessToken, wabaID string, fields []string) error {
	var body any
	if len(fields) > 0 {
		body = map[string]any{"subscribed_fields": fields}
	}
	return c.expectSuccess(ctx, Request{
		Method:      http.MethodPost,
		Endpoint:    wabaID + "/subscribed_apps",
		AccessToken: accessToken,
		Body:        body,
	})
}

func (c *APIClient) OverrideCallbackURL(ctx context.Context, accessToken, wabaID, callbackURL, verifyToken string) error {
	return c.expectSuccess(ctx, Request{
		Method:      http.MethodPost,
		Endpoint:    wabaID + "/subscribed_apps",
		AccessToken: accessToken,
		Body: map[string]any{
			"override_callback_uri": callbackURL,
			"verify_token":          verifyToken,
		},
	})
}

// ListTemplates follows the cursor paging of message_templates until exhausted.
func (c *APIClient) ListTemplates(ctx context.Context, accessToken, wabaID string) ([]MessageTemplate, error) {
	var templates []MessageTemplate
	after := ""
	for {
		query := url.Values{
			"fields": {templateFields},
			"limit":  {templatePageSize},
		}
		if after != "" {
			query.Set("after", after)
		}

		var page dataEnvelope[MessageTemplate]
		err := c.do(ctx, Request{
			Method:      http.MethodGet,
			Endpoint:    wabaID + "/message_templates",
			AccessToken: accessToken,
			Query:       query,
		}, &page)
		if err != nil {
			return nil, err
		}

		templates = append(templates, page.Data...)
		if page.Paging.Next == "" || page.Paging.Cursors.After == "" || len(page.Data) == 0 {
			return templates, nil
		}
		after = page.Paging.Cursors.After
	}
}

func (c *APIClient) CreateTemplate(ctx context.Context, accessToken, wabaID string, template TemplateDefinition) (*CreateTemplateResponse, error) {
	out := new(CreateTemplateResponse)
	err := c.do(ctx, Request{
		Method:      http.MethodPost,
		Endpoint:    wabaID + "/message_templates",
		AccessToken: accessToken,
		Body:        template,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) UpdateTemplate(ctx context.Context, accessToken, templateID string, template TemplateDefinition) error {
	// name and language are immutable on edit
	template.Name = ""
	template.Language = ""
	return c.expectSuccess(ctx, Request{
		Method:      http.MethodPost,
		Endpoint:    templateID,
		AccessToken: accessToken,
		Body:        template,
	})
}

func (c *APIClient) DeleteTemplate(ctx context.Context, accessToken, wabaID, name, templateID string) error {
	query := url.Values{"name": {name}}
	if templateID != "" {
		query.Set("hsm_id", templateID)
	}
	return c.expectSuccess(ctx, Request{
		Method:      http.MethodDelete,
		Endpoint:    wabaID + "/message_templates",
		AccessToken: accessToken,
		Query:       query,
	})
}

func (c *APIClient) SendMessage(ctx context.Context, accessToken, phoneNumberID string, payload map[string]any) (*SendMessageResponse, error) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["messaging_product"] = "whatsapp"

	out := new(SendMessageResponse)
	err := c.do(ctx, Request{
		Method:      http.MethodPost,
		Endpoint:    phoneNumberID + "/messages",
		AccessToken: accessToken,
		Body:        body,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UploadMedia posts a multipart form to the media edge; it is the only call
// that is not JSON encoded.
func (c *APIClient) UploadMedia(ctx context.Context, accessToken, phoneNumberID, filename, mimeType string, data io.Reader) (*MediaUploadResponse, error) {
	out := new(MediaUploadResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetMultipartFormData(map[string]string{
			"messaging_product": "whatsapp",
			"type":              mimeType,
		}).
		SetMultipartField("file", filename, mimeType, data).
		SetResult(out).
		Post(phoneNumberID + "/media")
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("upload media: %v", err), cause: err}
	}
	if resp.IsError() {
		return nil, newAPIError(resp.StatusCode(), resp.Status(), resp.Body())
	}
	return out, nil
}

func (c *APIClient) GetMedia(ctx context.Context, accessToken, mediaID string) (*MediaMetadata, error) {
	out := new(MediaMetadata)
	err := c.do(ctx, Request{
		Method:      http.MethodGet,
		Endpoint:    mediaID,
		AccessToken: accessToken,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// expectSuccess treats {"success": false} as a failure even on a 2xx status.
func (c *APIClient) expectSuccess(ctx context.Context, req Request) error {
	body, err := c.Call(ctx, req)
	if err != nil {
		return err
	}

	var out successResponse
	if len(body) == 0 || json.Unmarshal(body, &out) != nil || out.Success == nil {
		return nil
	}
	if !*out.Success {
		return &APIError{
			Message:    fmt.Sprintf("%s %s: provider reported success=false", req.Method, req.Endpoint),
			HTTPStatus: http.StatusOK,
			Details:    body,
		}
	}
	return nil
}
