package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/wabahub/internal/config"
)

// Client exposes the WhatsApp Cloud / Graph API operations used by the application.
// Every call takes the access token explicitly so one Client serves all tenants.
type Client interface {
	Call(ctx context.Context, req Request) (json.RawMessage, error)

	ExchangeCode(ctx context.Context, clientID, clientSecret, code string) (*TokenResponse, error)
	DebugToken(ctx context.Context, inputToken, appToken string) (*DebugTokenData, error)
	GetBusinessAccount(ctx context.Context, accessToken, wabaID string, fields ...string) (*BusinessAccount, error)
	ListPhoneNumbers(ctx context.Context, accessToken, wabaID string) ([]PhoneNumber, error)
	GetPhoneNumber(ctx context.Context, accessToken, phoneNumberID string) (*PhoneNumber, error)
	RegisterPhoneNumber(ctx context.Context, accessToken, phoneNumberID, pin string) error
	GetBusinessProfile(ctx context.Context, accessToken, phoneNumberID string) (*BusinessProfile, error)
	UpdateBusinessProfile(ctx context.Context, accessToken, phoneNumberID string, profile BusinessProfileUpdate) error
	SubscribeApp(ctx context.Context, accessToken, wabaID string, fields []string) error
	OverrideCallbackURL(ctx context.Context, accessToken, wabaID, callbackURL, verifyToken string) error

	ListTemplates(ctx context.Context, accessToken, wabaID string) ([]MessageTemplate, error)
	CreateTemplate(ctx context.Context, accessToken, wabaID string, template TemplateDefinition) (*CreateTemplateResponse, error)
	UpdateTemplate(ctx context.Context, accessToken, templateID string, template TemplateDefinition) error
	DeleteTemplate(ctx context.Context, accessToken, wabaID, name, templateID string) error

	SendMessage(ctx context.Context, accessToken, phoneNumberID string, payload map[string]any) (*SendMessageResponse, error)
	UploadMedia(ctx context.Context, accessToken, phoneNumberID, filename, mimeType string, data io.Reader) (*MediaUploadResponse, error)
	GetMedia(ctx context.Context, accessToken, mediaID string) (*MediaMetadata, error)
}

// Request describes one Graph API call.
type Request struct {
	Method      string
	Endpoint    string
	Body        any
	AccessToken string
	Query       url.Values
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a Graph API client against {BaseURL}/{APIVersion}.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &APIClient{httpClient: restyClient}
}

// apiErrorEnvelope represents a WhatsApp Cloud API error payload.
type apiErrorEnvelope struct {
	Error struct {
		Message      string          `json:"message"`
		Type         string          `json:"type"`
		Code         int             `json:"code"`
		ErrorData    json.RawMessage `json:"error_data"`
		ErrorSubcode int             `json:"error_subcode"`
		FBTraceID    string          `json:"fbtrace_id"`
	} `json:"error"`
}

// Call performs a request and returns the raw JSON body. Non-2xx responses and
// transport failures come back as *APIError.
func (c *APIClient) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	r := c.httpClient.R().SetContext(ctx)
	if req.AccessToken != "" {
		r.SetAuthToken(req.AccessToken)
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	resp, err := r.Execute(method, strings.TrimPrefix(req.Endpoint, "/"))
	if err != nil {
		return nil, &APIError{
			Message: fmt.Sprintf("%s %s: %v", method, req.Endpoint, err),
			cause:   err,
		}
	}

	if resp.IsError() {
		return nil, newAPIError(resp.StatusCode(), resp.Status(), resp.Body())
	}

	return json.RawMessage(resp.Body()), nil
}

func (c *APIClient) do(ctx context.Context, req Request, result any) error {
	body, err := c.Call(ctx, req)
	if err != nil {
		return err
	}
	if result == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Endpoint, err)
	}
	return nil
}

func newAPIError(status int, statusText string, body []byte) *APIError {
	apiErr := &APIError{
		HTTPStatus: status,
		Details:    json.RawMessage(body),
	}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Code = envelope.Error.Code
		apiErr.Subcode = envelope.Error.ErrorSubcode
		apiErr.Type = envelope.Error.Type
		apiErr.FBTraceID = envelope.Error.FBTraceID
		return apiErr
	}

	apiErr.Message = statusText
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if !json.Valid(body) {
		apiErr.Details = nil
	}
	return apiErr
}
