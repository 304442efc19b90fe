package onboarding

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/pkg/clients/whatsapp"
)

// EmbeddedSignupInput is the result of the provider's embedded signup popup.
type EmbeddedSignupInput struct {
	Code string `json:"code"`
	// PIN registers the phone number when set.
	PIN string `json:"pin,omitempty"`
}

// SetupEmbeddedSignup runs the guided flow. Nothing is stored unless every
// fatal step succeeds.
func (s *Service) SetupEmbeddedSignup(ctx context.Context, orgID string, in EmbeddedSignupInput) (*Result, error) {
	if strings.TrimSpace(in.Code) == "" {
		return nil, apperr.ErrMissingFields.WithFields("code")
	}

	org, err := s.loadOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	r := &run{
		flow:  "embedded_signup",
		orgID: orgID,
		org:   org,
		code:  strings.TrimSpace(in.Code),
		pin:   strings.TrimSpace(in.PIN),
	}

	warnings, err := s.execute(ctx, r, s.guidedSteps())
	if err != nil {
		return nil, err
	}

	s.logger.Info("embedded signup completed",
		zap.String("org_id", orgID),
		zap.String("waba_id", r.cfg.WabaID),
		zap.String("phone_number_id", r.cfg.PhoneNumberID),
		zap.Int("warnings", len(warnings)),
	)
	return s.result(r, warnings), nil
}

func (s *Service) guidedSteps() []step {
	return []step{
		{name: StepCodeExchange, mode: fatal, exec: s.exchangeCode},
		{name: StepTokenDebug, mode: fatal, exec: s.debugToken},
		{name: StepPhoneDiscovery, mode: fatal, exec: s.discoverPhone},
		{name: StepPhoneStatus, mode: fatal, exec: s.fetchPhoneStatus},
		{name: StepAccountReview, mode: fatal, exec: s.fetchAccountReview},
		{name: StepPhoneRegistration, mode: fatal, exec: s.registerPhone, skip: func(r *run) bool { return r.pin == "" }},
		{name: StepBusinessProfile, mode: bestEffort, exec: s.fetchBusinessProfile},
		{name: StepWebhookSubscribe, mode: fatal, exec: s.subscribeWebhooks},
		{name: StepPersist, mode: fatal, exec: s.persist},
		{name: StepCallbackOverride, mode: bestEffort, exec: s.overrideCallback, skip: s.noCallbackBase},
		{name: StepTemplateSync, mode: bestEffort, exec: s.syncTemplates, skip: s.noTemplateSyncer},
	}
}

func (s *Service) exchangeCode(ctx context.Context, r *run) error {
	if !s.app.HasSignupCredentials() {
		return apperr.ErrMissingAppCredentials
	}

	token, err := s.client.ExchangeCode(ctx, s.app.ClientID, s.app.ClientSecret, r.code)
	if err != nil {
		return providerError("exchange authorization code", err)
	}
	if token.AccessToken == "" {
		return apperr.ErrInvalidToken.WithMessage("code exchange returned no access token")
	}

	r.cfg.IsEmbeddedSignup = true
	r.cfg.AccessToken = token.AccessToken
	r.cfg.ClientID = s.app.ClientID
	r.cfg.ClientSecret = s.app.ClientSecret
	r.cfg.ConfigID = s.app.ConfigID
	return nil
}

func (s *Service) debugToken(ctx context.Context, r *run) error {
	appToken := s.app.ClientID + "|" + s.app.ClientSecret
	data, err := s.client.DebugToken(ctx, r.cfg.AccessToken, appToken)
	if err != nil {
		return tokenError("debug token", err)
	}
	if !data.IsValid {
		return apperr.ErrInvalidToken
	}

	r.cfg.AppID = data.AppID
	if r.cfg.AppID == "" {
		r.cfg.AppID = s.app.AppID
	}

	r.cfg.WabaID = data.TargetFor(whatsapp.ScopeBusinessManagement)
	if r.cfg.WabaID == "" {
		r.cfg.WabaID = data.TargetFor(whatsapp.ScopeBusinessMessaging)
	}
	if r.cfg.WabaID == "" {
		return apperr.ErrNotFound.WithMessage("no whatsapp business account was shared with the app")
	}
	return nil
}

func (s *Service) discoverPhone(ctx context.Context, r *run) error {
	phones, err := s.client.ListPhoneNumbers(ctx, r.cfg.AccessToken, r.cfg.WabaID)
	if err != nil {
		return providerError("list phone numbers", err)
	}
	if len(phones) == 0 {
		return apperr.ErrNoPhoneNumbers
	}

	r.cfg.PhoneNumberID = phones[0].ID
	applyPhone(&r.cfg, phones[0])
	return nil
}

func (s *Service) registerPhone(ctx context.Context, r *run) error {
	if err := s.client.RegisterPhoneNumber(ctx, r.cfg.AccessToken, r.cfg.PhoneNumberID, r.pin); err != nil {
		return providerError("register phone number", err)
	}
	return nil
}

func (s *Service) subscribeWebhooks(ctx context.Context, r *run) error {
	if err := s.client.SubscribeApp(ctx, r.cfg.AccessToken, r.cfg.WabaID, WebhookFields); err != nil {
		return providerError("subscribe app to webhooks", err)
	}
	return nil
}

func (s *Service) overrideCallback(ctx context.Context, r *run) error {
	url := callbackURL(s.webhook.CallbackBaseURL, r.org.Slug)
	if err := s.client.OverrideCallbackURL(ctx, r.cfg.AccessToken, r.cfg.WabaID, url, r.org.Slug); err != nil {
		return providerError("override callback url", err)
	}
	return nil
}

func (s *Service) noCallbackBase(*run) bool { return s.webhook.CallbackBaseURL == "" }
