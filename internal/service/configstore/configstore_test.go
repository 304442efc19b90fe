package configstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository/memory"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.AddOrganization(models.Organization{
		ID:       "org-1",
		Slug:     "acme",
		IsActive: true,
		Metadata: map[string]any{"plan": "pro"},
	})
	return New(store, nil), store
}

func sampleConfig() models.WhatsAppConfig {
	return models.WhatsAppConfig{
		AccessToken:   "EAA123",
		AppID:         "1000",
		WabaID:        "3000",
		PhoneNumberID: "2000",
		QualityRating: "GREEN",
		BusinessProfile: models.BusinessProfile{
			About:    "We sell things",
			Email:    "hi@acme.test",
			Websites: []string{"https://acme.test"},
		},
	}
}

func TestGetWithoutConfigReturnsNil(t *testing.T) {
	svc, _ := newService(t)

	cfg, err := svc.Get(context.Background(), "org-1")
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestGetUnknownOrganization(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, apperr.ErrOrganizationNotFound)
}

func TestStoreRoundTripPreservesOtherMetadata(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	require.NoError(t, svc.Store(ctx, "org-1", sampleConfig()))

	cfg, err := svc.Get(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, sampleConfig(), *cfg)

	org, err := store.FindOrg(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, "pro", org.Metadata["plan"])
	wa := org.Metadata[models.MetadataKeyWhatsApp].(map[string]any)
	require.Equal(t, "3000", wa["waba_id"])
	_, hasConfigID := wa["config_id"]
	require.False(t, hasConfigID)
}

func TestStoreReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	require.NoError(t, svc.Store(ctx, "org-1", sampleConfig()))
	require.NoError(t, svc.Store(ctx, "org-1", models.WhatsAppConfig{AccessToken: "EAA999", WabaID: "4000"}))

	cfg, err := svc.Get(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, "4000", cfg.WabaID)
	require.Empty(t, cfg.PhoneNumberID)
	require.Empty(t, cfg.BusinessProfile.About)
}

func TestUpdateRequiresExistingConfig(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Update(context.Background(), "org-1", map[string]any{"access_token": "EAA2"})
	require.ErrorIs(t, err, apperr.ErrConfigNotFound)
}

func TestUpdateMergesShallowAndProfileOneLevel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	require.NoError(t, svc.Store(ctx, "org-1", sampleConfig()))

	updated, err := svc.Update(ctx, "org-1", map[string]any{
		"access_token":     "EAA456",
		"business_profile": map[string]any{"about": "New about"},
	})
	require.NoError(t, err)
	require.Equal(t, "EAA456", updated.AccessToken)
	require.Equal(t, "2000", updated.PhoneNumberID)
	require.Equal(t, "New about", updated.BusinessProfile.About)
	require.Equal(t, "hi@acme.test", updated.BusinessProfile.Email)
	require.Equal(t, []string{"https://acme.test"}, updated.BusinessProfile.Websites)

	stored, err := svc.Get(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, *updated, *stored)
}

func TestUpdateAcceptsTypedProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	require.NoError(t, svc.Store(ctx, "org-1", sampleConfig()))

	updated, err := svc.Update(ctx, "org-1", map[string]any{
		"business_profile": models.BusinessProfile{Vertical: "RETAIL"},
	})
	require.NoError(t, err)
	require.Equal(t, "RETAIL", updated.BusinessProfile.Vertical)
}
