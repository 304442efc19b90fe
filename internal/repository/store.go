package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/wabahub/internal/domain/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("repository: not found")

// DefaultMessageLimit bounds ListMessages when the caller passes a non-positive limit.
const DefaultMessageLimit = 50

// Store is the persistence collaborator shared by every service. Every method
// is scoped to a single organization.
type Store interface {
	FindOrg(ctx context.Context, id string) (*models.Organization, error)
	FindOrgBySlug(ctx context.Context, slug string) (*models.Organization, error)
	ListActiveOrganizations(ctx context.Context) ([]models.Organization, error)
	UpdateOrgMetadata(ctx context.Context, id string, metadata map[string]any) error

	UpsertTemplate(ctx context.Context, orgID, externalID string, fields models.TemplateFields) (*models.Template, error)
	ListTemplates(ctx context.Context, orgID string) ([]models.Template, error)
	DeleteTemplates(ctx context.Context, filter models.TemplateFilter) (int64, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	// ListMessages returns the newest messages of a conversation first.
	ListMessages(ctx context.Context, orgID, conversationID string, limit int) ([]models.Message, error)
	UpdateMessageStatus(ctx context.Context, orgID, externalID string, status models.MessageStatus) error

	FindOrCreateContact(ctx context.Context, orgID, phone string, profile *models.ContactProfile) (*models.Contact, error)

	Close(ctx context.Context) error
}
