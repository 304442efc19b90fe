package onboarding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/config"
	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository"
	"github.com/mamadbah2/wabahub/pkg/clients/whatsapp"
)

// Defaults substituted when the provider omits phone or account status fields.
const (
	DefaultQualityRating       = "UNKNOWN"
	DefaultNameStatus          = "UNVERIFIED"
	DefaultMessagingLimitTier  = "TIER_1000"
	DefaultAccountReviewStatus = "PENDING"
)

// WebhookFields are the events every onboarded account is subscribed to.
var WebhookFields = []string{
	"messages",
	"message_deliveries",
	"message_reads",
	"message_reactions",
	"message_echoes",
}

// ConfigStore persists the tenant configuration.
type ConfigStore interface {
	Get(ctx context.Context, orgID string) (*models.WhatsAppConfig, error)
	Store(ctx context.Context, orgID string, cfg models.WhatsAppConfig) error
}

// OrganizationFinder resolves the tenant being onboarded.
type OrganizationFinder interface {
	FindOrg(ctx context.Context, id string) (*models.Organization, error)
}

// TemplateSyncer pulls the provider's templates into the local projection.
type TemplateSyncer interface {
	SyncTemplates(ctx context.Context, orgID string) (int, error)
}

// Result is returned by a successful onboarding run. Config has its secrets redacted.
type Result struct {
	Config   models.WhatsAppConfig `json:"config"`
	Warnings []Warning             `json:"warnings,omitempty"`
}

// Service runs the guided and manual onboarding flows.
type Service struct {
	client    whatsapp.Client
	configs   ConfigStore
	orgs      OrganizationFinder
	templates TemplateSyncer
	app       config.MetaAppConfig
	webhook   config.WebhookConfig
	logger    *zap.Logger
}

// New wires an onboarding service. templates may be nil, in which case the
// template sync step is skipped.
func New(
	client whatsapp.Client,
	configs ConfigStore,
	orgs OrganizationFinder,
	templates TemplateSyncer,
	app config.MetaAppConfig,
	webhook config.WebhookConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:    client,
		configs:   configs,
		orgs:      orgs,
		templates: templates,
		app:       app,
		webhook:   webhook,
		logger:    logger,
	}
}

// run carries the values produced by earlier steps to later ones.
type run struct {
	flow  string
	orgID string
	org   *models.Organization

	// guided inputs
	code string
	pin  string

	cfg models.WhatsAppConfig
}

// GetConfiguration returns the stored configuration with secrets redacted.
func (s *Service) GetConfiguration(ctx context.Context, orgID string) (*models.WhatsAppConfig, error) {
	cfg, err := s.configs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, apperr.ErrConfigNotFound
	}
	redacted := cfg.Redacted()
	return &redacted, nil
}

func (s *Service) loadOrg(ctx context.Context, orgID string) (*models.Organization, error) {
	org, err := s.orgs.FindOrg(ctx, orgID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrOrganizationNotFound.WithFields(orgID)
	}
	if err != nil {
		return nil, apperr.ErrPersistence.WithMessage("load organization %s", orgID).WithCause(err)
	}
	return org, nil
}

func (s *Service) result(r *run, warnings []Warning) *Result {
	return &Result{Config: r.cfg.Redacted(), Warnings: warnings}
}

// Steps shared by both flows.

// fetchPhoneStatus fills in the phone attributes; fields the provider omits
// fall back to the defaults.
func (s *Service) fetchPhoneStatus(ctx context.Context, r *run) error {
	phone, err := s.client.GetPhoneNumber(ctx, r.cfg.AccessToken, r.cfg.PhoneNumberID)
	if err != nil {
		return providerError("get phone number", err)
	}
	applyPhone(&r.cfg, *phone)
	applyPhoneDefaults(&r.cfg)
	return nil
}

func (s *Service) fetchAccountReview(ctx context.Context, r *run) error {
	account, err := s.client.GetBusinessAccount(ctx, r.cfg.AccessToken, r.cfg.WabaID, "id", "account_review_status")
	if err != nil {
		return providerError("get account review status", err)
	}
	r.cfg.AccountReviewStatus = account.AccountReviewStatus
	if r.cfg.AccountReviewStatus == "" {
		r.cfg.AccountReviewStatus = DefaultAccountReviewStatus
	}
	return nil
}

func (s *Service) fetchBusinessProfile(ctx context.Context, r *run) error {
	r.cfg.BusinessProfile = models.BusinessProfile{}

	profile, err := s.client.GetBusinessProfile(ctx, r.cfg.AccessToken, r.cfg.PhoneNumberID)
	if err != nil {
		return providerError("get business profile", err)
	}
	r.cfg.BusinessProfile = models.BusinessProfile{
		About:             profile.About,
		Address:           profile.Address,
		Description:       profile.Description,
		Email:             profile.Email,
		ProfilePictureURL: profile.ProfilePictureURL,
		Websites:          profile.Websites,
		Vertical:          profile.Vertical,
	}
	return nil
}

func (s *Service) persist(ctx context.Context, r *run) error {
	return s.configs.Store(ctx, r.orgID, r.cfg)
}

func (s *Service) syncTemplates(ctx context.Context, r *run) error {
	n, err := s.templates.SyncTemplates(ctx, r.orgID)
	if err != nil {
		return err
	}
	s.logger.Info("templates synced after onboarding", zap.String("org_id", r.orgID), zap.Int("count", n))
	return nil
}

func (s *Service) noTemplateSyncer(*run) bool { return s.templates == nil }

func applyPhoneDefaults(cfg *models.WhatsAppConfig) {
	if cfg.QualityRating == "" {
		cfg.QualityRating = DefaultQualityRating
	}
	if cfg.NameStatus == "" {
		cfg.NameStatus = DefaultNameStatus
	}
	if cfg.MessagingLimitTier == "" {
		cfg.MessagingLimitTier = DefaultMessagingLimitTier
	}
}

// applyPhone copies the non-empty phone attributes onto cfg.
func applyPhone(cfg *models.WhatsAppConfig, phone whatsapp.PhoneNumber) {
	if phone.DisplayPhoneNumber != "" {
		cfg.DisplayPhoneNumber = phone.DisplayPhoneNumber
	}
	if phone.VerifiedName != "" {
		cfg.VerifiedName = phone.VerifiedName
	}
	if phone.QualityRating != "" {
		cfg.QualityRating = phone.QualityRating
	}
	if phone.NameStatus != "" {
		cfg.NameStatus = phone.NameStatus
	}
	if phone.MessagingLimitTier != "" {
		cfg.MessagingLimitTier = phone.MessagingLimitTier
	}
}

// providerError wraps err as a provider error carrying Meta's message.
func providerError(op string, err error) error {
	if apiErr, ok := whatsapp.AsAPIError(err); ok {
		return apperr.ErrProvider.WithMessage("%s: %s", op, apiErr.Message).WithCause(err)
	}
	return apperr.ErrProvider.WithMessage("%s", op).WithCause(err)
}

// tokenError distinguishes a rejected token from a token lacking permissions.
func tokenError(op string, err error) error {
	apiErr, ok := whatsapp.AsAPIError(err)
	if !ok {
		return providerError(op, err)
	}
	switch {
	case apiErr.IsAuthError():
		return apperr.ErrInvalidToken.WithCause(err)
	case apiErr.IsPermissionError():
		return apperr.ErrInsufficientPermission.WithCause(err)
	default:
		return providerError(op, err)
	}
}

func callbackURL(base, slug string) string {
	return fmt.Sprintf("%s/webhook/whatsapp/%s", base, slug)
}
