package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Graph API error codes the application branches on.
const (
	CodeOAuthException     = 190
	CodePermissionDenied   = 10
	CodePermissionMissing  = 200
	CodeInvalidParameter   = 100
	CodeAccessTokenExpired = 463
)

// APIError is the single error shape for failed provider calls. HTTPStatus is
// zero when the request never got a response.
type APIError struct {
	Message    string          `json:"message"`
	Code       int             `json:"code,omitempty"`
	Subcode    int             `json:"error_subcode,omitempty"`
	Type       string          `json:"type,omitempty"`
	FBTraceID  string          `json:"fbtrace_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	HTTPStatus int             `json:"http_status"`

	cause error
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("whatsapp api error: status=%d code=%d message=%s", e.HTTPStatus, e.Code, e.Message)
	}
	return fmt.Sprintf("whatsapp api error: status=%d message=%s", e.HTTPStatus, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

// IsAuthError reports whether the provider rejected the token itself.
func (e *APIError) IsAuthError() bool {
	return e.Code == CodeOAuthException || e.Code == CodeAccessTokenExpired || e.HTTPStatus == 401
}

// IsPermissionError reports whether the token is valid but lacks a permission.
func (e *APIError) IsPermissionError() bool {
	return e.Code == CodePermissionDenied || e.Code == CodePermissionMissing || e.HTTPStatus == 403
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
