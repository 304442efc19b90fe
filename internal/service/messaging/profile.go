package messaging

import (
	"context"
	"io"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/pkg/clients/whatsapp"
)

// GetBusinessProfile fetches the live business profile of the phone number.
func (f *Facade) GetBusinessProfile(ctx context.Context) (*models.BusinessProfile, error) {
	cfg, err := f.messagingConfig(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := f.svc.client.GetBusinessProfile(ctx, cfg.AccessToken, cfg.PhoneNumberID)
	if err != nil {
		return nil, providerError("get business profile", err)
	}
	return &models.BusinessProfile{
		About:             profile.About,
		Address:           profile.Address,
		Description:       profile.Description,
		Email:             profile.Email,
		ProfilePictureURL: profile.ProfilePictureURL,
		Websites:          profile.Websites,
		Vertical:          profile.Vertical,
	}, nil
}

// UpdateBusinessProfile pushes the non-empty fields of profile to the provider
// and merges them into the stored configuration.
func (f *Facade) UpdateBusinessProfile(ctx context.Context, profile models.BusinessProfile) (*models.BusinessProfile, error) {
	patch := map[string]any{}
	for key, value := range map[string]string{
		"about":       profile.About,
		"address":     profile.Address,
		"description": profile.Description,
		"email":       profile.Email,
		"vertical":    profile.Vertical,
	} {
		if value != "" {
			patch[key] = value
		}
	}
	if len(profile.Websites) > 0 {
		patch["websites"] = profile.Websites
	}
	if len(patch) == 0 {
		return nil, apperr.ErrMissingFields.WithMessage("no business profile fields to update")
	}

	cfg, err := f.messagingConfig(ctx)
	if err != nil {
		return nil, err
	}

	err = f.svc.client.UpdateBusinessProfile(ctx, cfg.AccessToken, cfg.PhoneNumberID, whatsapp.BusinessProfileUpdate{
		About:       profile.About,
		Address:     profile.Address,
		Description: profile.Description,
		Email:       profile.Email,
		Websites:    profile.Websites,
		Vertical:    profile.Vertical,
	})
	if err != nil {
		return nil, providerError("update business profile", err)
	}

	updated, err := f.svc.configs.Update(ctx, f.orgID, map[string]any{"business_profile": patch})
	if err != nil {
		return nil, err
	}
	f.setConfig(updated)
	return &updated.BusinessProfile, nil
}

// UploadMedia uploads a file and returns the provider media id.
func (f *Facade) UploadMedia(ctx context.Context, filename, mimeType string, data io.Reader) (string, error) {
	if filename == "" || mimeType == "" {
		return "", apperr.ErrMissingFields.WithFields("file")
	}

	cfg, err := f.messagingConfig(ctx)
	if err != nil {
		return "", err
	}

	resp, err := f.svc.client.UploadMedia(ctx, cfg.AccessToken, cfg.PhoneNumberID, filename, mimeType, data)
	if err != nil {
		return "", providerError("upload media", err)
	}
	return resp.ID, nil
}

// GetMedia returns the metadata, including a short-lived download URL, of an uploaded media object.
func (f *Facade) GetMedia(ctx context.Context, mediaID string) (*whatsapp.MediaMetadata, error) {
	if mediaID == "" {
		return nil, apperr.ErrMissingFields.WithFields("media_id")
	}

	cfg, err := f.messagingConfig(ctx)
	if err != nil {
		return nil, err
	}

	media, err := f.svc.client.GetMedia(ctx, cfg.AccessToken, mediaID)
	if err != nil {
		return nil, providerError("get media", err)
	}
	return media, nil
}
