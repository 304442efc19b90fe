package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository"
)

// SignatureHeader carries the HMAC of the raw webhook body.
const SignatureHeader = "X-Hub-Signature-256"

const subscribeMode = "subscribe"

var (
	// ErrVerificationFailed is returned for every rejected verification handshake.
	ErrVerificationFailed = errors.New("webhook verification failed")
	// ErrInvalidSignature is returned when a delivery's signature does not match the app secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// OrganizationFinder resolves the tenant a delivery endpoint belongs to.
type OrganizationFinder interface {
	FindOrgBySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// Store is the slice of repository.Store the reconciler writes to.
type Store interface {
	FindOrCreateContact(ctx context.Context, orgID, phone string, profile *models.ContactProfile) (*models.Contact, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	UpdateMessageStatus(ctx context.Context, orgID, externalID string, status models.MessageStatus) error
}

// Result counts what a delivery produced. Dropped items were skipped or failed.
type Result struct {
	Messages int
	Statuses int
	Dropped  int
}

// Service verifies webhook handshakes and reconciles event deliveries into
// the local message and contact projections.
type Service struct {
	orgs        OrganizationFinder
	store       Store
	verifyToken string
	appSecret   string
	logger      *zap.Logger
	now         func() time.Time
}

// New builds the webhook service. verifyToken is the global token of the
// account-level endpoint; an empty appSecret disables signature checks.
func New(orgs OrganizationFinder, store Store, verifyToken, appSecret string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orgs:        orgs,
		store:       store,
		verifyToken: verifyToken,
		appSecret:   appSecret,
		logger:      logger,
		now:         time.Now,
	}
}

// VerifyTenant answers the handshake of a tenant endpoint, whose token is the
// tenant slug. No lookup is made, so unknown slugs behave like wrong tokens.
func (s *Service) VerifyTenant(slug, mode, token, challenge string) (string, error) {
	return verify(slug, mode, token, challenge)
}

// VerifyGlobal answers the handshake of the account-level endpoint.
func (s *Service) VerifyGlobal(mode, token, challenge string) (string, error) {
	return verify(s.verifyToken, mode, token, challenge)
}

func verify(expected, mode, token, challenge string) (string, error) {
	// compare fixed size digests so neither value's length shows in the timing
	wantMode, gotMode := sha256.Sum256([]byte(subscribeMode)), sha256.Sum256([]byte(mode))
	wantToken, gotToken := sha256.Sum256([]byte(expected)), sha256.Sum256([]byte(token))

	ok := subtle.ConstantTimeCompare(wantMode[:], gotMode[:]) &
		subtle.ConstantTimeCompare(wantToken[:], gotToken[:])
	if ok != 1 || expected == "" {
		return "", ErrVerificationFailed
	}
	return challenge, nil
}

// VerifySignature checks the X-Hub-Signature-256 header against the raw body.
func (s *Service) VerifySignature(body []byte, header string) error {
	if s.appSecret == "" {
		return nil
	}

	sig, found := strings.CutPrefix(header, "sha256=")
	if !found || sig == "" {
		return ErrInvalidSignature
	}
	received, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.appSecret))
	mac.Write(body)
	if !hmac.Equal(received, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// HandleDelivery reconciles a delivery posted to the endpoint of slug. It
// never fails: unknown tenants and bad items are logged and dropped.
func (s *Service) HandleDelivery(ctx context.Context, slug string, payload models.WebhookPayload) Result {
	org, err := s.orgs.FindOrgBySlug(ctx, slug)
	if err != nil {
		level := zap.ErrorLevel
		if errors.Is(err, repository.ErrNotFound) {
			level = zap.WarnLevel
		}
		s.logger.Log(level, "webhook delivery for unresolved organization", zap.String("slug", slug), zap.Error(err))
		return Result{Dropped: countItems(payload)}
	}
	return s.Reconcile(ctx, org.ID, payload)
}

// Reconcile applies every message and status item of payload to orgID. Items
// are independent: a failing or panicking item does not stop its siblings.
func (s *Service) Reconcile(ctx context.Context, orgID string, payload models.WebhookPayload) Result {
	logger := s.logger.With(zap.String("org_id", orgID))
	var res Result

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			for _, e := range value.Errors {
				logger.Warn("provider reported webhook error",
					zap.Int("code", e.Code),
					zap.String("title", e.Title),
					zap.String("message", e.Message))
			}

			for i := range value.Messages {
				msg := value.Messages[i]
				if s.apply(logger, "message", msg.ID, func() error {
					return s.handleMessage(ctx, orgID, msg, value.Contacts)
				}) {
					res.Messages++
				} else {
					res.Dropped++
				}
			}

			for i := range value.Statuses {
				status := value.Statuses[i]
				if s.apply(logger, "status", status.ID, func() error {
					return s.handleStatus(ctx, orgID, status)
				}) {
					res.Statuses++
				} else {
					res.Dropped++
				}
			}
		}
	}

	logger.Info("webhook delivery reconciled",
		zap.Int("messages", res.Messages),
		zap.Int("statuses", res.Statuses),
		zap.Int("dropped", res.Dropped))
	return res
}

func (s *Service) apply(logger *zap.Logger, kind, id string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("webhook item panicked",
				zap.String("kind", kind),
				zap.String("message_id", id),
				zap.Any("panic", r))
			ok = false
		}
	}()

	if err := fn(); err != nil {
		fields := []zap.Field{zap.String("kind", kind), zap.String("message_id", id), zap.Error(err)}
		if errors.Is(err, apperr.ErrUnmatched) {
			logger.Warn("webhook item dropped", fields...)
		} else {
			logger.Error("webhook item failed", fields...)
		}
		return false
	}
	return true
}

func (s *Service) handleMessage(ctx context.Context, orgID string, msg models.InboundMessage, contacts []models.WebhookContact) error {
	if err := msg.DecodeErr(); err != nil {
		return apperr.ErrUnmatched.WithMessage("malformed inbound message").WithCause(err)
	}
	if msg.From == "" || msg.ID == "" {
		return apperr.ErrUnmatched.WithMessage("inbound message without sender or id")
	}
	msgType, ok := models.ParseInboundType(msg.Type)
	if !ok {
		return apperr.ErrUnmatched.WithMessage("unsupported inbound message type %q", msg.Type)
	}

	var profile *models.ContactProfile
	for _, c := range contacts {
		if c.WaID == msg.From && c.Profile.Name != "" {
			profile = &models.ContactProfile{Name: c.Profile.Name}
			break
		}
	}

	contact, err := s.store.FindOrCreateContact(ctx, orgID, msg.From, profile)
	if err != nil {
		return fmt.Errorf("failed to resolve contact %s: %w", msg.From, err)
	}

	externalID := msg.ID
	record := &models.Message{
		OrganizationID:    orgID,
		ExternalMessageID: &externalID,
		ConversationID:    contact.ID,
		ContactID:         contact.ID,
		Type:              msgType,
		Direction:         models.DirectionInbound,
		Status:            models.MessageStatusDelivered,
		Content:           msg.Content(),
		Timestamp:         s.parseTimestamp(msg.Timestamp),
	}
	if err := s.store.CreateMessage(ctx, record); err != nil {
		return fmt.Errorf("failed to store inbound message: %w", err)
	}
	return nil
}

func (s *Service) handleStatus(ctx context.Context, orgID string, event models.MessageStatusEvent) error {
	if err := event.DecodeErr(); err != nil {
		return apperr.ErrUnmatched.WithMessage("malformed status event").WithCause(err)
	}
	if event.ID == "" {
		return apperr.ErrUnmatched.WithMessage("status event without message id")
	}

	status, ok := models.ParseMessageStatus(event.Status)
	if !ok {
		return apperr.ErrUnmatched.WithMessage("unknown message status %q", event.Status)
	}

	err := s.store.UpdateMessageStatus(ctx, orgID, event.ID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrUnmatched.WithMessage("status for unknown message")
	}
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return nil
}

func (s *Service) parseTimestamp(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return s.now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}

func countItems(payload models.WebhookPayload) int {
	n := 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			n += len(change.Value.Messages) + len(change.Value.Statuses)
		}
	}
	return n
}
