package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DialectSQLite, filepath.Join(t.TempDir(), "wabahub.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	ctx := context.Background()
	require.NoError(t, s.SaveOrganization(ctx, models.Organization{ID: "org-1", Slug: "acme", IsActive: true}))
	require.NoError(t, s.SaveOrganization(ctx, models.Organization{ID: "org-2", Slug: "globex"}))
	return s
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := Open("oracle", "", nil)
	require.ErrorContains(t, err, "unsupported dialect")
}

func TestOrganizationMetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	meta := map[string]any{
		"whatsapp": map[string]any{
			"waba_id":          "3000",
			"business_profile": map[string]any{"about": "hi"},
		},
	}
	require.NoError(t, s.UpdateOrgMetadata(ctx, "org-1", meta))

	org, err := s.FindOrgBySlug(ctx, "acme")
	require.NoError(t, err)
	wa, ok := org.Metadata["whatsapp"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "3000", wa["waba_id"])

	require.ErrorIs(t, s.UpdateOrgMetadata(ctx, "missing", meta), repository.ErrNotFound)

	active, err := s.ListActiveOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestTemplateUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	fields := models.TemplateFields{
		Name:     "welcome",
		Language: "en_US",
		Category: "MARKETING",
		Status:   models.TemplateStatusPending,
		Metadata: map[string]any{"id": "tpl-1"},
	}
	first, err := s.UpsertTemplate(ctx, "org-1", "tpl-1", fields)
	require.NoError(t, err)

	again, err := s.UpsertTemplate(ctx, "org-1", "tpl-1", fields)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	fields.Status = models.TemplateStatusApproved
	updated, err := s.UpsertTemplate(ctx, "org-1", "tpl-1", fields)
	require.NoError(t, err)
	require.Equal(t, models.TemplateStatusApproved, updated.Status)

	n, err := s.DeleteTemplates(ctx, models.TemplateFilter{OrganizationID: "org-1", ExternalID: "tpl-1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	list, err := s.ListTemplates(ctx, "org-1")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestTemplateUpsertWithNumericMetadataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	fields := models.TemplateFields{
		Name:     "flash_sale",
		Language: "en_US",
		Category: "MARKETING",
		Status:   models.TemplateStatusApproved,
		Metadata: map[string]any{
			"components": []any{
				map[string]any{"limited_time_offer": map[string]any{"expiration_hours": float64(24)}},
			},
		},
	}
	first, err := s.UpsertTemplate(ctx, "org-1", "tpl-9", fields)
	require.NoError(t, err)

	stored, err := s.ListTemplates(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	components := stored[0].Metadata["components"].([]any)
	offer := components[0].(map[string]any)["limited_time_offer"].(map[string]any)
	require.IsType(t, float64(0), offer["expiration_hours"])
	require.True(t, fields.Matches(&stored[0]))

	again, err := s.UpsertTemplate(ctx, "org-1", "tpl-9", fields)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.True(t, stored[0].UpdatedAt.Equal(again.UpdatedAt))

	after, err := s.ListTemplates(ctx, "org-1")
	require.NoError(t, err)
	require.True(t, stored[0].UpdatedAt.Equal(after[0].UpdatedAt))
}

func TestUpdateMessageStatusIgnoresInboundMessages(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	ext := "wamid.in"
	require.NoError(t, s.CreateMessage(ctx, &models.Message{
		OrganizationID:    "org-1",
		ExternalMessageID: &ext,
		ConversationID:    "c-1",
		ContactID:         "c-1",
		Type:              models.MessageTypeText,
		Direction:         models.DirectionInbound,
		Status:            models.MessageStatusDelivered,
	}))

	require.ErrorIs(t, s.UpdateMessageStatus(ctx, "org-1", ext, models.MessageStatusRead), repository.ErrNotFound)

	msgs, err := s.ListMessages(ctx, "org-1", "c-1", 10)
	require.NoError(t, err)
	require.Equal(t, models.MessageStatusDelivered, msgs[0].Status)
}

func TestGormLoggerWritesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := newGormLogger(zap.New(core))
	ctx := context.Background()

	l.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gorm.ErrRecordNotFound)
	require.Zero(t, logs.Len())

	l.Warn(ctx, "slow migration on %s", "contacts")
	require.Equal(t, 1, logs.Len())
	require.Contains(t, logs.All()[0].Message, "slow migration on contacts")
	require.Equal(t, "gorm", logs.All()[0].LoggerName)
}

func TestMessagesAndContacts(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	contact, err := s.FindOrCreateContact(ctx, "org-1", "15550001", nil)
	require.NoError(t, err)
	same, err := s.FindOrCreateContact(ctx, "org-1", "15550001", &models.ContactProfile{Name: "Ada"})
	require.NoError(t, err)
	require.Equal(t, contact.ID, same.ID)
	require.Equal(t, "Ada", same.Name)

	ext := "wamid.1"
	require.NoError(t, s.CreateMessage(ctx, &models.Message{
		OrganizationID:    "org-1",
		ExternalMessageID: &ext,
		ConversationID:    contact.ID,
		ContactID:         contact.ID,
		Type:              models.MessageTypeText,
		Direction:         models.DirectionOutbound,
		Status:            models.MessageStatusSent,
		Content:           map[string]any{"body": "hello"},
	}))

	require.NoError(t, s.UpdateMessageStatus(ctx, "org-1", ext, models.MessageStatusDelivered))
	require.ErrorIs(t, s.UpdateMessageStatus(ctx, "org-1", "wamid.unknown", models.MessageStatusRead), repository.ErrNotFound)

	msgs, err := s.ListMessages(ctx, "org-1", contact.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, models.MessageStatusDelivered, msgs[0].Status)
	require.Equal(t, "hello", msgs[0].Content["body"])
}
