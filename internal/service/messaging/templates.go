package messaging

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/pkg/clients/whatsapp"
)

// TemplateInput describes a template to create.
type TemplateInput struct {
	Name            string           `json:"name"`
	Language        string           `json:"language"`
	Category        string           `json:"category"`
	ParameterFormat string           `json:"parameter_format,omitempty"`
	Components      []map[string]any `json:"components"`
}

// TemplateUpdate holds the editable parts of a template.
type TemplateUpdate struct {
	Category   string           `json:"category,omitempty"`
	Components []map[string]any `json:"components,omitempty"`
}

// ListTemplates returns the local template projection.
func (f *Facade) ListTemplates(ctx context.Context) ([]models.Template, error) {
	templates, err := f.svc.store.ListTemplates(ctx, f.orgID)
	if err != nil {
		return nil, persistenceError("list templates", err)
	}
	return templates, nil
}

// CreateTemplate submits a template for approval and records it locally. The
// returned template is nil when the provider did not return an id.
func (f *Facade) CreateTemplate(ctx context.Context, in TemplateInput) (*models.Template, error) {
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Language == "" {
		missing = append(missing, "language")
	}
	if in.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return nil, apperr.ErrMissingFields.WithFields(missing...)
	}

	cfg, err := f.accountConfig(ctx)
	if err != nil {
		return nil, err
	}

	def := whatsapp.TemplateDefinition{
		Name:            in.Name,
		Language:        in.Language,
		Category:        strings.ToUpper(in.Category),
		ParameterFormat: in.ParameterFormat,
		Components:      in.Components,
	}
	resp, err := f.svc.client.CreateTemplate(ctx, cfg.AccessToken, cfg.WabaID, def)
	if err != nil {
		return nil, providerError("create template", err)
	}
	if resp.ID == "" {
		f.logger.Warn("template created without id; not stored locally", zap.String("name", in.Name))
		return nil, nil
	}

	category := resp.Category
	if category == "" {
		category = def.Category
	}
	status := models.TemplateStatus(strings.ToUpper(resp.Status))
	if status == "" {
		status = models.TemplateStatusPending
	}

	tpl, err := f.svc.store.UpsertTemplate(ctx, f.orgID, resp.ID, models.TemplateFields{
		Name:     in.Name,
		Language: in.Language,
		Category: strings.ToUpper(category),
		Status:   status,
		Metadata: snapshot(def),
	})
	if err != nil {
		return nil, persistenceError("store template", err)
	}
	return tpl, nil
}

// UpdateTemplate edits a template at the provider. Edited templates go back to PENDING.
func (f *Facade) UpdateTemplate(ctx context.Context, externalID string, in TemplateUpdate) (*models.Template, error) {
	if externalID == "" {
		return nil, apperr.ErrMissingFields.WithFields("template_id")
	}
	if in.Category == "" && len(in.Components) == 0 {
		return nil, apperr.ErrMissingFields.WithFields("category", "components")
	}

	cfg, err := f.accountConfig(ctx)
	if err != nil {
		return nil, err
	}

	def := whatsapp.TemplateDefinition{
		Category:   strings.ToUpper(in.Category),
		Components: in.Components,
	}
	if err := f.svc.client.UpdateTemplate(ctx, cfg.AccessToken, externalID, def); err != nil {
		return nil, providerError("update template", err)
	}

	existing, err := f.findTemplate(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		f.logger.Info("edited template has no local row", zap.String("template_id", externalID))
		return nil, nil
	}

	fields := models.TemplateFields{
		Name:     existing.Name,
		Language: existing.Language,
		Category: existing.Category,
		Status:   models.TemplateStatusPending,
		Metadata: existing.Metadata,
	}
	if def.Category != "" {
		fields.Category = def.Category
	}
	if len(in.Components) > 0 {
		metadata := make(map[string]any, len(existing.Metadata)+1)
		for k, v := range existing.Metadata {
			metadata[k] = v
		}
		metadata["components"] = snapshot(map[string]any{"c": in.Components})["c"]
		fields.Metadata = metadata
	}

	tpl, err := f.svc.store.UpsertTemplate(ctx, f.orgID, externalID, fields)
	if err != nil {
		return nil, persistenceError("store template", err)
	}
	return tpl, nil
}

// DeleteTemplate deletes a template at the provider, then locally. When
// externalID is empty every language of the named template is removed.
func (f *Facade) DeleteTemplate(ctx context.Context, name, externalID string) error {
	if name == "" {
		return apperr.ErrMissingFields.WithFields("name")
	}

	cfg, err := f.accountConfig(ctx)
	if err != nil {
		return err
	}

	if err := f.svc.client.DeleteTemplate(ctx, cfg.AccessToken, cfg.WabaID, name, externalID); err != nil {
		return providerError("delete template", err)
	}

	filter := models.TemplateFilter{OrganizationID: f.orgID, Name: name}
	if externalID != "" {
		filter = models.TemplateFilter{OrganizationID: f.orgID, ExternalID: externalID}
	}
	n, err := f.svc.store.DeleteTemplates(ctx, filter)
	if err != nil {
		return persistenceError("delete local template", err)
	}
	f.logger.Info("template deleted", zap.String("name", name), zap.Int64("local_rows", n))
	return nil
}

// SyncTemplates upserts every provider template into the local projection.
// Local rows missing from the provider listing are kept.
func (f *Facade) SyncTemplates(ctx context.Context) (int, error) {
	cfg, err := f.accountConfig(ctx)
	if err != nil {
		return 0, err
	}

	remote, err := f.svc.client.ListTemplates(ctx, cfg.AccessToken, cfg.WabaID)
	if err != nil {
		return 0, providerError("list templates", err)
	}

	for _, t := range remote {
		if t.ID == "" {
			continue
		}
		fields := models.TemplateFields{
			Name:            t.Name,
			Language:        t.Language,
			Category:        strings.ToUpper(t.Category),
			Status:          models.TemplateStatus(strings.ToUpper(t.Status)),
			RejectionReason: t.RejectedReason,
			Metadata:        snapshot(t),
		}
		if _, err := f.svc.store.UpsertTemplate(ctx, f.orgID, t.ID, fields); err != nil {
			return 0, persistenceError("upsert template "+t.ID, err)
		}
	}

	f.logger.Info("templates synced", zap.Int("count", len(remote)))
	return len(remote), nil
}

func (f *Facade) findTemplate(ctx context.Context, externalID string) (*models.Template, error) {
	templates, err := f.svc.store.ListTemplates(ctx, f.orgID)
	if err != nil {
		return nil, persistenceError("list templates", err)
	}
	for i := range templates {
		if templates[i].ExternalID == externalID {
			return &templates[i], nil
		}
	}
	return nil, nil
}
