package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository"
)

// Store is an in-memory implementation of repository.Store for development and testing.
type Store struct {
	mu        sync.RWMutex
	orgs      map[string]*models.Organization
	templates map[string]*models.Template
	messages  []*models.Message
	contacts  map[string]*models.Contact

	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		orgs:      make(map[string]*models.Organization),
		templates: make(map[string]*models.Template),
		contacts:  make(map[string]*models.Contact),
		now:       time.Now,
	}
}

// AddOrganization seeds an organization; organizations are created outside this service.
func (s *Store) AddOrganization(org models.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if org.CreatedAt.IsZero() {
		org.CreatedAt = s.now()
	}
	org.UpdatedAt = org.CreatedAt
	org.Metadata = copyMap(org.Metadata)
	s.orgs[org.ID] = &org
}

func (s *Store) FindOrg(_ context.Context, id string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrg(org), nil
}

func (s *Store) FindOrgBySlug(_ context.Context, slug string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, org := range s.orgs {
		if org.Slug == slug {
			return cloneOrg(org), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListActiveOrganizations(_ context.Context) ([]models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Organization
	for _, org := range s.orgs {
		if org.IsActive {
			out = append(out, *cloneOrg(org))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateOrgMetadata(_ context.Context, id string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return repository.ErrNotFound
	}
	org.Metadata = copyMap(metadata)
	org.UpdatedAt = s.now()
	return nil
}

func (s *Store) UpsertTemplate(_ context.Context, orgID, externalID string, fields models.TemplateFields) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := templateKey(orgID, externalID)
	if existing, ok := s.templates[key]; ok {
		if !fields.Matches(existing) {
			applyTemplateFields(existing, fields)
			existing.UpdatedAt = s.now()
		}
		out := *existing
		out.Metadata = copyMap(existing.Metadata)
		return &out, nil
	}

	now := s.now()
	tpl := &models.Template{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		ExternalID:     externalID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	applyTemplateFields(tpl, fields)
	s.templates[key] = tpl

	out := *tpl
	out.Metadata = copyMap(tpl.Metadata)
	return &out, nil
}

func (s *Store) ListTemplates(_ context.Context, orgID string) ([]models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Template
	for _, tpl := range s.templates {
		if tpl.OrganizationID != orgID {
			continue
		}
		cp := *tpl
		cp.Metadata = copyMap(tpl.Metadata)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Language < out[j].Language
	})
	return out, nil
}

func (s *Store) DeleteTemplates(_ context.Context, filter models.TemplateFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key, tpl := range s.templates {
		if tpl.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.ExternalID != "" && tpl.ExternalID != filter.ExternalID {
			continue
		}
		if filter.Name != "" && tpl.Name != filter.Name {
			continue
		}
		delete(s.templates, key)
		deleted++
	}
	return deleted, nil
}

func (s *Store) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	cp := *msg
	cp.Content = copyMap(msg.Content)
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *Store) ListMessages(_ context.Context, orgID, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = repository.DefaultMessageLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		msg := s.messages[i]
		if msg.OrganizationID == orgID && msg.ConversationID == conversationID {
			cp := *msg
			cp.Content = copyMap(msg.Content)
			out = append(out, cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateMessageStatus(_ context.Context, orgID, externalID string, status models.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := false
	for _, msg := range s.messages {
		if msg.OrganizationID == orgID && msg.Direction == models.DirectionOutbound &&
			msg.ExternalMessageID != nil && *msg.ExternalMessageID == externalID {
			msg.Status = status
			updated = true
		}
	}
	if !updated {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) FindOrCreateContact(_ context.Context, orgID, phone string, profile *models.ContactProfile) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := orgID + "|" + phone
	contact, ok := s.contacts[key]
	if !ok {
		contact = &models.Contact{
			ID:             uuid.NewString(),
			OrganizationID: orgID,
			Phone:          phone,
			CreatedAt:      s.now(),
		}
		s.contacts[key] = contact
	}
	if profile != nil {
		if profile.Name != "" {
			contact.Name = profile.Name
		}
		if profile.Email != "" {
			contact.Email = profile.Email
		}
	}

	out := *contact
	return &out, nil
}

func (s *Store) Close(context.Context) error { return nil }

func templateKey(orgID, externalID string) string {
	return orgID + "|" + externalID
}

func applyTemplateFields(tpl *models.Template, fields models.TemplateFields) {
	tpl.Name = fields.Name
	tpl.Language = fields.Language
	tpl.Category = fields.Category
	tpl.Status = fields.Status
	tpl.RejectionReason = fields.RejectionReason
	tpl.Metadata = copyMap(fields.Metadata)
}

func cloneOrg(org *models.Organization) *models.Organization {
	cp := *org
	cp.Metadata = copyMap(org.Metadata)
	return &cp
}

// copyMap deep copies nested maps and slices so callers never share state with the store.
func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
