package onboarding

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
)

var (
	accessTokenPattern = regexp.MustCompile(`^EAA[A-Za-z0-9]+$`)
	numericIDPattern   = regexp.MustCompile(`^[0-9]+$`)
)

// ManualSetupInput carries operator supplied credentials.
type ManualSetupInput struct {
	AccessToken   string `json:"access_token"`
	AppID         string `json:"app_id"`
	PhoneNumberID string `json:"phone_number_id"`
	WabaID        string `json:"waba_id"`
}

func (in ManualSetupInput) trimmed() ManualSetupInput {
	return ManualSetupInput{
		AccessToken:   strings.TrimSpace(in.AccessToken),
		AppID:         strings.TrimSpace(in.AppID),
		PhoneNumberID: strings.TrimSpace(in.PhoneNumberID),
		WabaID:        strings.TrimSpace(in.WabaID),
	}
}

// Validate checks presence first, then format. It never touches the network.
func (in ManualSetupInput) Validate() error {
	fields := []struct {
		name    string
		value   string
		pattern *regexp.Regexp
	}{
		{"access_token", in.AccessToken, accessTokenPattern},
		{"app_id", in.AppID, numericIDPattern},
		{"phone_number_id", in.PhoneNumberID, numericIDPattern},
		{"waba_id", in.WabaID, numericIDPattern},
	}

	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.ErrMissingFields.WithFields(missing...)
	}

	var malformed []string
	for _, f := range fields {
		if !f.pattern.MatchString(f.value) {
			malformed = append(malformed, f.name)
		}
	}
	if len(malformed) > 0 {
		return apperr.ErrInvalidFormat.WithFields(malformed...)
	}
	return nil
}

// SetupManual validates operator credentials against the provider and stores
// the resulting configuration.
func (s *Service) SetupManual(ctx context.Context, orgID string, in ManualSetupInput) (*Result, error) {
	return s.replayManual(ctx, orgID, in.trimmed())
}

// RefreshConfiguration re-runs manual setup with the stored credentials.
func (s *Service) RefreshConfiguration(ctx context.Context, orgID string) (*Result, error) {
	current, err := s.storedConfig(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.replayManual(ctx, orgID, credentialsOf(current))
}

// UpdateAccessToken re-runs manual setup with the stored ids and a new token.
func (s *Service) UpdateAccessToken(ctx context.Context, orgID, accessToken string) (*Result, error) {
	current, err := s.storedConfig(ctx, orgID)
	if err != nil {
		return nil, err
	}
	in := credentialsOf(current)
	in.AccessToken = strings.TrimSpace(accessToken)
	return s.replayManual(ctx, orgID, in)
}

func (s *Service) storedConfig(ctx context.Context, orgID string) (*models.WhatsAppConfig, error) {
	current, err := s.configs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperr.ErrConfigNotFound
	}
	return current, nil
}

func credentialsOf(cfg *models.WhatsAppConfig) ManualSetupInput {
	return ManualSetupInput{
		AccessToken:   cfg.AccessToken,
		AppID:         cfg.AppID,
		PhoneNumberID: cfg.PhoneNumberID,
		WabaID:        cfg.WabaID,
	}
}

// replayManual is the single code path behind setup, refresh and token rotation.
// The stored configuration it writes is always in manual mode.
func (s *Service) replayManual(ctx context.Context, orgID string, in ManualSetupInput) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	org, err := s.loadOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	r := &run{
		flow:  "manual",
		orgID: orgID,
		org:   org,
		cfg: models.WhatsAppConfig{
			AccessToken:   in.AccessToken,
			AppID:         in.AppID,
			PhoneNumberID: in.PhoneNumberID,
			WabaID:        in.WabaID,
		},
	}
	warnings, err := s.execute(ctx, r, s.manualSteps())
	if err != nil {
		return nil, err
	}

	s.logger.Info("manual whatsapp setup completed",
		zap.String("org_id", orgID),
		zap.String("waba_id", r.cfg.WabaID),
		zap.String("phone_number_id", r.cfg.PhoneNumberID),
		zap.Int("warnings", len(warnings)),
	)
	return s.result(r, warnings), nil
}

func (s *Service) manualSteps() []step {
	return []step{
		{name: StepTokenValidation, mode: fatal, exec: s.validateToken},
		{name: StepPhoneLookup, mode: fatal, exec: s.lookupPhone},
		{name: StepPhoneStatus, mode: fatal, exec: s.fetchPhoneStatus},
		{name: StepAccountReview, mode: fatal, exec: s.fetchAccountReview},
		{name: StepBusinessProfile, mode: bestEffort, exec: s.fetchBusinessProfile},
		{name: StepPersist, mode: fatal, exec: s.persist},
		{name: StepTemplateSync, mode: bestEffort, exec: s.syncTemplates, skip: s.noTemplateSyncer},
	}
}

func (s *Service) validateToken(ctx context.Context, r *run) error {
	account, err := s.client.GetBusinessAccount(ctx, r.cfg.AccessToken, r.cfg.WabaID, "id", "name")
	if err != nil {
		return tokenError("validate access token", err)
	}
	if account.ID != r.cfg.WabaID {
		return apperr.ErrWABAMismatch.WithFields("waba_id")
	}
	return nil
}

func (s *Service) lookupPhone(ctx context.Context, r *run) error {
	phones, err := s.client.ListPhoneNumbers(ctx, r.cfg.AccessToken, r.cfg.WabaID)
	if err != nil {
		return tokenError("list phone numbers", err)
	}
	for _, phone := range phones {
		if phone.ID == r.cfg.PhoneNumberID {
			applyPhone(&r.cfg, phone)
			return nil
		}
	}
	return apperr.ErrPhoneNotInAccount.WithFields("phone_number_id")
}
