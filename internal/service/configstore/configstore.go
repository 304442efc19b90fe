package configstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository"
)

const businessProfileKey = "business_profile"

// OrganizationStore is the slice of repository.Store the config store needs.
type OrganizationStore interface {
	FindOrg(ctx context.Context, id string) (*models.Organization, error)
	UpdateOrgMetadata(ctx context.Context, id string, metadata map[string]any) error
}

// Service reads and writes the WhatsApp configuration kept at
// organization.metadata.whatsapp. Writes are last-write-wins.
type Service struct {
	orgs   OrganizationStore
	logger *zap.Logger
}

// New builds a config store over orgs.
func New(orgs OrganizationStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orgs: orgs, logger: logger}
}

// Get returns the stored configuration, or nil when the organization has none.
func (s *Service) Get(ctx context.Context, orgID string) (*models.WhatsAppConfig, error) {
	org, err := s.findOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	raw, ok := org.Metadata[models.MetadataKeyWhatsApp].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, nil
	}

	cfg, err := decode(raw)
	if err != nil {
		return nil, apperr.ErrPersistence.WithMessage("decode whatsapp config for %s", orgID).WithCause(err)
	}
	return cfg, nil
}

// Store replaces the whole configuration. Other metadata keys are preserved.
func (s *Service) Store(ctx context.Context, orgID string, cfg models.WhatsAppConfig) error {
	org, err := s.findOrg(ctx, orgID)
	if err != nil {
		return err
	}

	encoded, err := encode(cfg)
	if err != nil {
		return apperr.ErrPersistence.WithMessage("encode whatsapp config").WithCause(err)
	}
	return s.write(ctx, org, encoded)
}

// Update shallow-merges partial into the stored configuration; business_profile
// is merged one level deep. It fails with ErrConfigNotFound when nothing is stored.
func (s *Service) Update(ctx context.Context, orgID string, partial map[string]any) (*models.WhatsAppConfig, error) {
	org, err := s.findOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	current, ok := org.Metadata[models.MetadataKeyWhatsApp].(map[string]any)
	if !ok || len(current) == 0 {
		return nil, apperr.ErrConfigNotFound
	}

	merged := make(map[string]any, len(current)+len(partial))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range partial {
		if k == businessProfileKey {
			merged[k] = mergeProfile(current[k], v)
			continue
		}
		merged[k] = v
	}

	// round trip through the typed config so only known fields with valid types are kept
	cfg, err := decode(merged)
	if err != nil {
		return nil, apperr.ErrValidation.WithMessage("invalid configuration update").WithCause(err)
	}
	encoded, err := encode(*cfg)
	if err != nil {
		return nil, apperr.ErrPersistence.WithMessage("encode whatsapp config").WithCause(err)
	}
	if err := s.write(ctx, org, encoded); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Service) findOrg(ctx context.Context, orgID string) (*models.Organization, error) {
	org, err := s.orgs.FindOrg(ctx, orgID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrOrganizationNotFound.WithFields(orgID)
	}
	if err != nil {
		return nil, apperr.ErrPersistence.WithMessage("load organization %s", orgID).WithCause(err)
	}
	return org, nil
}

func (s *Service) write(ctx context.Context, org *models.Organization, encoded map[string]any) error {
	metadata := make(map[string]any, len(org.Metadata)+1)
	for k, v := range org.Metadata {
		metadata[k] = v
	}
	metadata[models.MetadataKeyWhatsApp] = encoded

	if err := s.orgs.UpdateOrgMetadata(ctx, org.ID, metadata); err != nil {
		return apperr.ErrPersistence.WithMessage("store whatsapp config for %s", org.ID).WithCause(err)
	}
	s.logger.Debug("whatsapp config stored", zap.String("org_id", org.ID))
	return nil
}

func mergeProfile(current, patch any) any {
	patchMap, ok := toMap(patch)
	if !ok {
		return patch
	}
	out := map[string]any{}
	if currentMap, ok := toMap(current); ok {
		for k, v := range currentMap {
			out[k] = v
		}
	}
	for k, v := range patchMap {
		out[k] = v
	}
	return out
}

func toMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case models.BusinessProfile:
		out, err := encodeValue(val)
		return out, err == nil
	case *models.BusinessProfile:
		if val == nil {
			return nil, false
		}
		out, err := encodeValue(*val)
		return out, err == nil
	}
	return nil, false
}

func decode(raw map[string]any) (*models.WhatsAppConfig, error) {
	var cfg models.WhatsAppConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode whatsapp config: %w", err)
	}
	return &cfg, nil
}

func encode(cfg models.WhatsAppConfig) (map[string]any, error) {
	return encodeValue(cfg)
}

func encodeValue(v any) (map[string]any, error) {
	out := map[string]any{}
	if err := mapstructure.Decode(v, &out); err != nil {
		return nil, err
	}
	return out, nil
}
