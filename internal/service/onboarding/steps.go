package onboarding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step names reported in StepError and Warning.
const (
	StepCodeExchange      = "code_exchange"
	StepTokenDebug        = "token_debug"
	StepTokenValidation   = "token_validation"
	StepPhoneDiscovery    = "phone_discovery"
	StepPhoneLookup       = "phone_lookup"
	StepPhoneStatus       = "phone_status"
	StepAccountReview     = "account_review"
	StepPhoneRegistration = "phone_registration"
	StepBusinessProfile   = "business_profile"
	StepWebhookSubscribe  = "webhook_subscribe"
	StepPersist           = "persist"
	StepCallbackOverride  = "callback_override"
	StepTemplateSync      = "template_sync"
)

type stepMode int

const (
	fatal stepMode = iota
	bestEffort
)

// step is one unit of an onboarding flow. Fatal steps abort the run; best-effort
// failures become warnings.
type step struct {
	name string
	mode stepMode
	// skip, when set and true, leaves the step out of this run.
	skip func(*run) bool
	exec func(context.Context, *run) error
}

// StepError is the failure of a fatal onboarding step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("onboarding step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Warning records a best-effort step that failed without failing the run.
type Warning struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

func (s *Service) execute(ctx context.Context, r *run, steps []step) ([]Warning, error) {
	logger := s.logger.With(zap.String("org_id", r.orgID), zap.String("flow", r.flow))

	var warnings []Warning
	for _, st := range steps {
		if st.skip != nil && st.skip(r) {
			logger.Debug("onboarding step skipped", zap.String("step", st.name))
			continue
		}

		err := st.exec(ctx, r)
		if err == nil {
			logger.Debug("onboarding step completed", zap.String("step", st.name))
			continue
		}

		if st.mode == bestEffort {
			logger.Warn("best-effort onboarding step failed", zap.String("step", st.name), zap.Error(err))
			warnings = append(warnings, Warning{Step: st.name, Message: err.Error()})
			continue
		}

		logger.Error("onboarding aborted", zap.String("step", st.name), zap.Error(err))
		return warnings, &StepError{Step: st.name, Err: err}
	}
	return warnings, nil
}
