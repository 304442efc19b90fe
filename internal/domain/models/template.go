package models

import (
	"reflect"
	"time"
)

// TemplateStatus mirrors the provider's approval state.
type TemplateStatus string

const (
	TemplateStatusPending  TemplateStatus = "PENDING"
	TemplateStatusApproved TemplateStatus = "APPROVED"
	TemplateStatusRejected TemplateStatus = "REJECTED"
)

// Template is the local projection of a provider message template, keyed by
// (OrganizationID, ExternalID).
type Template struct {
	ID              string         `json:"id" bson:"_id"`
	OrganizationID  string         `json:"organization_id" bson:"organization_id"`
	ExternalID      string         `json:"external_id" bson:"external_id"`
	Name            string         `json:"name" bson:"name"`
	Language        string         `json:"language" bson:"language"`
	Category        string         `json:"category" bson:"category"`
	Status          TemplateStatus `json:"status" bson:"status"`
	RejectionReason string         `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" bson:"updated_at"`
}

// TemplateFields are the mutable columns written by an upsert.
type TemplateFields struct {
	Name            string
	Language        string
	Category        string
	Status          TemplateStatus
	RejectionReason string
	Metadata        map[string]any
}

// TemplateFilter selects templates of one organization for deletion. Empty
// ExternalID and Name match every template of the organization.
type TemplateFilter struct {
	OrganizationID string
	ExternalID     string
	Name           string
}

// Matches reports whether applying f to t would change nothing.
func (f TemplateFields) Matches(t *Template) bool {
	if t == nil {
		return false
	}
	return t.Name == f.Name &&
		t.Language == f.Language &&
		t.Category == f.Category &&
		t.Status == f.Status &&
		t.RejectionReason == f.RejectionReason &&
		(len(t.Metadata) == 0 && len(f.Metadata) == 0 || reflect.DeepEqual(t.Metadata, f.Metadata))
}
