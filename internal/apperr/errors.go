package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind groups errors by how callers are expected to react to them.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConfig         Kind = "config"
	KindProvider       Kind = "provider"
	KindNotFound       Kind = "not_found"
	KindUnsupported    Kind = "unsupported"
	KindPersistence    Kind = "persistence"
	KindReconciliation Kind = "reconciliation"
)

// Error is the coded error shared by services and handlers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Fields, ", "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target carries the same code, so copies made through the
// With helpers still match their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) clone() *Error {
	c := *e
	c.Fields = append([]string(nil), e.Fields...)
	return &c
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	c := e.clone()
	c.Message = fmt.Sprintf(format, args...)
	return c
}

// WithFields returns a copy of e naming the offending input fields.
func (e *Error) WithFields(fields ...string) *Error {
	c := e.clone()
	c.Fields = append(c.Fields, fields...)
	return c
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.Cause = cause
	return c
}

func register(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrValidation             = register(KindValidation, "VALIDATION_FAILED", "invalid input")
	ErrMissingFields          = register(KindValidation, "MISSING_FIELDS", "missing required fields")
	ErrInvalidFormat          = register(KindValidation, "INVALID_FORMAT", "invalid field format")
	ErrWABAMismatch           = register(KindValidation, "WABA_MISMATCH", "access token does not belong to the supplied business account")
	ErrConfigNotFound         = register(KindConfig, "CONFIG_NOT_FOUND", "whatsapp is not configured for this organization")
	ErrConfigIncomplete       = register(KindConfig, "CONFIG_INCOMPLETE", "whatsapp configuration is incomplete")
	ErrMissingAppCredentials  = register(KindConfig, "MISSING_APP_CREDENTIALS", "embedded signup app credentials are not configured")
	ErrUnsupportedType        = register(KindUnsupported, "UNSUPPORTED_TYPE", "unsupported message type")
	ErrNoPhoneNumbers         = register(KindNotFound, "NO_PHONE_NUMBERS", "no phone numbers found for this business account")
	ErrPhoneNotInAccount      = register(KindNotFound, "PHONE_NOT_IN_ACCOUNT", "phone number not found in account")
	ErrOrganizationNotFound   = register(KindNotFound, "ORGANIZATION_NOT_FOUND", "organization not found")
	ErrNotFound               = register(KindNotFound, "NOT_FOUND", "record not found")
	ErrInvalidToken           = register(KindProvider, "INVALID_TOKEN", "invalid or expired access token")
	ErrInsufficientPermission = register(KindProvider, "INSUFFICIENT_PERMISSION", "access token lacks permission for this business account")
	ErrProvider               = register(KindProvider, "PROVIDER_ERROR", "whatsapp api request failed")
	ErrPersistence            = register(KindPersistence, "PERSISTENCE_FAILED", "storage operation failed")
	ErrUnmatched              = register(KindReconciliation, "UNMATCHED_EVENT", "webhook event could not be matched")
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
