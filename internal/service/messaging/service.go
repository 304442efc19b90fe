package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/pkg/clients/whatsapp"
)

// ConfigStore exposes the tenant configuration to the facade.
type ConfigStore interface {
	Get(ctx context.Context, orgID string) (*models.WhatsAppConfig, error)
	Update(ctx context.Context, orgID string, partial map[string]any) (*models.WhatsAppConfig, error)
}

// Store is the slice of repository.Store used for messages, contacts and templates.
type Store interface {
	UpsertTemplate(ctx context.Context, orgID, externalID string, fields models.TemplateFields) (*models.Template, error)
	ListTemplates(ctx context.Context, orgID string) ([]models.Template, error)
	DeleteTemplates(ctx context.Context, filter models.TemplateFilter) (int64, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, orgID, conversationID string, limit int) ([]models.Message, error)
	FindOrCreateContact(ctx context.Context, orgID, phone string, profile *models.ContactProfile) (*models.Contact, error)
}

// Service hands out per-organization facades sharing one gateway and store.
type Service struct {
	client  whatsapp.Client
	configs ConfigStore
	store   Store
	logger  *zap.Logger
}

// NewService builds the messaging service.
func NewService(client whatsapp.Client, configs ConfigStore, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, configs: configs, store: store, logger: logger}
}

// For returns a facade bound to orgID. The configuration is loaded on first use.
func (s *Service) For(orgID string) *Facade {
	return &Facade{
		svc:    s,
		orgID:  orgID,
		logger: s.logger.With(zap.String("org_id", orgID)),
	}
}

// SyncTemplates reconciles the templates of orgID; used by onboarding and the scheduler.
func (s *Service) SyncTemplates(ctx context.Context, orgID string) (int, error) {
	return s.For(orgID).SyncTemplates(ctx)
}

// Facade runs messaging operations for a single organization.
type Facade struct {
	svc    *Service
	orgID  string
	logger *zap.Logger

	mu  sync.Mutex
	cfg *models.WhatsAppConfig
}

// OrganizationID returns the organization the facade acts for.
func (f *Facade) OrganizationID() string { return f.orgID }

func (f *Facade) config(ctx context.Context) (*models.WhatsAppConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cfg != nil {
		return f.cfg, nil
	}
	cfg, err := f.svc.configs.Get(ctx, f.orgID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, apperr.ErrConfigNotFound
	}
	f.cfg = cfg
	return cfg, nil
}

func (f *Facade) setConfig(cfg *models.WhatsAppConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

// messagingConfig returns the configuration once token and phone number are known.
func (f *Facade) messagingConfig(ctx context.Context) (*models.WhatsAppConfig, error) {
	cfg, err := f.config(ctx)
	if err != nil {
		return nil, err
	}

	var missing []string
	if cfg.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if cfg.PhoneNumberID == "" {
		missing = append(missing, "phone_number_id")
	}
	if len(missing) > 0 {
		return nil, apperr.ErrConfigIncomplete.WithFields(missing...)
	}
	return cfg, nil
}

// accountConfig additionally requires the business account id used by template calls.
func (f *Facade) accountConfig(ctx context.Context) (*models.WhatsAppConfig, error) {
	cfg, err := f.messagingConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.WabaID == "" {
		return nil, apperr.ErrConfigIncomplete.WithFields("waba_id")
	}
	return cfg, nil
}

func providerError(op string, err error) error {
	if apiErr, ok := whatsapp.AsAPIError(err); ok {
		return apperr.ErrProvider.WithMessage("%s: %s", op, apiErr.Message).WithCause(err)
	}
	return apperr.ErrProvider.WithMessage("%s", op).WithCause(err)
}

func persistenceError(op string, err error) error {
	return apperr.ErrPersistence.WithMessage("%s", op).WithCause(err)
}
