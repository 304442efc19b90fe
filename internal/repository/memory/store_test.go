package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	s.AddOrganization(models.Organization{ID: "org-1", Slug: "acme", IsActive: true})
	s.AddOrganization(models.Organization{ID: "org-2", Slug: "globex"})
	return s
}

func TestOrganizationLookups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	org, err := s.FindOrgBySlug(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "org-1", org.ID)

	_, err = s.FindOrg(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	active, err := s.ListActiveOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "acme", active[0].Slug)
}

func TestUpdateOrgMetadataIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	meta := map[string]any{"whatsapp": map[string]any{"waba_id": "3000"}}
	require.NoError(t, s.UpdateOrgMetadata(ctx, "org-1", meta))
	meta["whatsapp"].(map[string]any)["waba_id"] = "mutated"

	org, err := s.FindOrg(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, "3000", org.Metadata["whatsapp"].(map[string]any)["waba_id"])

	require.ErrorIs(t, s.UpdateOrgMetadata(ctx, "nope", meta), repository.ErrNotFound)
}

func TestUpsertTemplateIsStable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fields := models.TemplateFields{
		Name:     "order_update",
		Language: "en_US",
		Category: "UTILITY",
		Status:   models.TemplateStatusApproved,
		Metadata: map[string]any{"components": []any{map[string]any{"type": "BODY"}}},
	}

	first, err := s.UpsertTemplate(ctx, "org-1", "tpl-1", fields)
	require.NoError(t, err)
	second, err := s.UpsertTemplate(ctx, "org-1", "tpl-1", fields)
	require.NoError(t, err)
	require.Equal(t, first, second)

	fields.Status = models.TemplateStatusRejected
	third, err := s.UpsertTemplate(ctx, "org-1", "tpl-1", fields)
	require.NoError(t, err)
	require.Equal(t, first.ID, third.ID)
	require.Equal(t, models.TemplateStatusRejected, third.Status)
	require.True(t, third.UpdatedAt.After(first.UpdatedAt))

	list, err := s.ListTemplates(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	other, err := s.ListTemplates(ctx, "org-2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestDeleteTemplatesByFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, ext := range []string{"a", "b"} {
		_, err := s.UpsertTemplate(ctx, "org-1", ext, models.TemplateFields{Name: "tpl-" + ext})
		require.NoError(t, err)
	}
	_, err := s.UpsertTemplate(ctx, "org-2", "a", models.TemplateFields{Name: "tpl-a"})
	require.NoError(t, err)

	n, err := s.DeleteTemplates(ctx, models.TemplateFilter{OrganizationID: "org-1", Name: "tpl-a"})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	remaining, err := s.ListTemplates(ctx, "org-2")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}

func TestMessagesNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		ext := []string{"wamid.1", "wamid.2", "wamid.3"}[i]
		require.NoError(t, s.CreateMessage(ctx, &models.Message{
			OrganizationID:    "org-1",
			ConversationID:    "conv",
			ExternalMessageID: &ext,
			Direction:         models.DirectionOutbound,
			Status:            models.MessageStatusSent,
		}))
	}

	msgs, err := s.ListMessages(ctx, "org-1", "conv", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "wamid.3", *msgs[0].ExternalMessageID)
	require.Equal(t, "wamid.2", *msgs[1].ExternalMessageID)

	require.NoError(t, s.UpdateMessageStatus(ctx, "org-1", "wamid.1", models.MessageStatusRead))
	require.ErrorIs(t, s.UpdateMessageStatus(ctx, "org-2", "wamid.1", models.MessageStatusRead), repository.ErrNotFound)

	all, err := s.ListMessages(ctx, "org-1", "conv", 0)
	require.NoError(t, err)
	require.Equal(t, models.MessageStatusRead, all[2].Status)
}

func TestUpdateMessageStatusOnlyTouchesOutbound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ext := "wamid.in"
	require.NoError(t, s.CreateMessage(ctx, &models.Message{
		OrganizationID:    "org-1",
		ConversationID:    "conv",
		ExternalMessageID: &ext,
		Direction:         models.DirectionInbound,
		Status:            models.MessageStatusDelivered,
	}))

	require.ErrorIs(t, s.UpdateMessageStatus(ctx, "org-1", ext, models.MessageStatusRead), repository.ErrNotFound)

	msgs, err := s.ListMessages(ctx, "org-1", "conv", 0)
	require.NoError(t, err)
	require.Equal(t, models.MessageStatusDelivered, msgs[0].Status)
}

func TestFindOrCreateContactEnriches(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.FindOrCreateContact(ctx, "org-1", "15550001", nil)
	require.NoError(t, err)
	require.Empty(t, first.Name)

	second, err := s.FindOrCreateContact(ctx, "org-1", "15550001", &models.ContactProfile{Name: "Ada"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Ada", second.Name)

	otherTenant, err := s.FindOrCreateContact(ctx, "org-2", "15550001", nil)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, otherTenant.ID)
}
