package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository"
)

// Dialects accepted by Open.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type organizationRow struct {
	ID        string `gorm:"primaryKey"`
	Slug      string `gorm:"uniqueIndex;not null"`
	IsActive  bool   `gorm:"index"`
	Name      string
	Metadata  datatypes.JSONMap
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (organizationRow) TableName() string { return "organizations" }

type templateRow struct {
	ID              string `gorm:"primaryKey"`
	OrganizationID  string `gorm:"uniqueIndex:idx_template_org_external;not null"`
	ExternalID      string `gorm:"uniqueIndex:idx_template_org_external;not null"`
	Name            string `gorm:"index"`
	Language        string
	Category        string
	Status          string
	RejectionReason string
	Metadata        datatypes.JSONMap
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (templateRow) TableName() string { return "whatsapp_templates" }

type messageRow struct {
	ID                string  `gorm:"primaryKey"`
	OrganizationID    string  `gorm:"index:idx_message_conversation;index:idx_message_external;not null"`
	ExternalMessageID *string `gorm:"index:idx_message_external"`
	ConversationID    string  `gorm:"index:idx_message_conversation"`
	ContactID         string
	Type              string
	Direction         string
	Status            string
	Content           datatypes.JSONMap
	Timestamp         time.Time `gorm:"index"`
}

func (messageRow) TableName() string { return "whatsapp_messages" }

type contactRow struct {
	ID             string `gorm:"primaryKey"`
	OrganizationID string `gorm:"uniqueIndex:idx_contact_org_phone;not null"`
	Phone          string `gorm:"uniqueIndex:idx_contact_org_phone;not null"`
	Name           string
	Email          string
	CreatedAt      time.Time
}

func (contactRow) TableName() string { return "contacts" }

// Store implements repository.Store on a relational database through gorm.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// Open connects with the given dialect and migrates the schema.
func Open(dialect, dsn string, logger *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}
	return New(db, logger)
}

// newGormLogger routes gorm's warnings through zap. Missing rows are an
// expected outcome of lookups and are not logged.
func newGormLogger(logger *zap.Logger) gormlogger.Interface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&organizationRow{}, &templateRow{}, &messageRow{}, &contactRow{}); err != nil {
		return nil, fmt.Errorf("failed to run auto-migration: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// SaveOrganization inserts or replaces an organization row. Organizations are
// owned by the signup flow; this is used for seeding.
func (s *Store) SaveOrganization(ctx context.Context, org models.Organization) error {
	row := organizationRow{
		ID:        org.ID,
		Slug:      org.Slug,
		Name:      org.Name,
		IsActive:  org.IsActive,
		Metadata:  datatypes.JSONMap(org.Metadata),
		CreatedAt: org.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save organization: %w", err)
	}
	return nil
}

func (s *Store) FindOrg(ctx context.Context, id string) (*models.Organization, error) {
	return s.findOrg(ctx, "id = ?", id)
}

func (s *Store) FindOrgBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return s.findOrg(ctx, "slug = ?", slug)
}

func (s *Store) findOrg(ctx context.Context, query string, arg string) (*models.Organization, error) {
	var row organizationRow
	err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	org := row.toModel()
	return &org, nil
}

func (s *Store) ListActiveOrganizations(ctx context.Context) ([]models.Organization, error) {
	var rows []organizationRow
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	orgs := make([]models.Organization, 0, len(rows))
	for _, row := range rows {
		orgs = append(orgs, row.toModel())
	}
	return orgs, nil
}

func (s *Store) UpdateOrgMetadata(ctx context.Context, id string, metadata map[string]any) error {
	res := s.db.WithContext(ctx).Model(&organizationRow{}).Where("id = ?", id).Updates(map[string]any{
		"metadata":   datatypes.JSONMap(metadata),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update organization metadata: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertTemplate(ctx context.Context, orgID, externalID string, fields models.TemplateFields) (*models.Template, error) {
	db := s.db.WithContext(ctx)

	var row templateRow
	err := db.Where("organization_id = ? AND external_id = ?", orgID, externalID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = templateRow{
			ID:             uuid.NewString(),
			OrganizationID: orgID,
			ExternalID:     externalID,
		}
		row.apply(fields)
		if err := db.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("failed to create template %s: %w", externalID, err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to find template %s: %w", externalID, err)
	default:
		current := row.toModel()
		if fields.Matches(&current) {
			return &current, nil
		}
		row.apply(fields)
		if err := db.Save(&row).Error; err != nil {
			return nil, fmt.Errorf("failed to update template %s: %w", externalID, err)
		}
	}

	tpl := row.toModel()
	return &tpl, nil
}

func (s *Store) ListTemplates(ctx context.Context, orgID string) ([]models.Template, error) {
	var rows []templateRow
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name").Order("language").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	templates := make([]models.Template, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, row.toModel())
	}
	return templates, nil
}

func (s *Store) DeleteTemplates(ctx context.Context, filter models.TemplateFilter) (int64, error) {
	q := s.db.WithContext(ctx).Where("organization_id = ?", filter.OrganizationID)
	if filter.ExternalID != "" {
		q = q.Where("external_id = ?", filter.ExternalID)
	}
	if filter.Name != "" {
		q = q.Where("name = ?", filter.Name)
	}
	res := q.Delete(&templateRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete templates: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	row := messageRow{
		ID:                msg.ID,
		OrganizationID:    msg.OrganizationID,
		ExternalMessageID: msg.ExternalMessageID,
		ConversationID:    msg.ConversationID,
		ContactID:         msg.ContactID,
		Type:              string(msg.Type),
		Direction:         string(msg.Direction),
		Status:            string(msg.Status),
		Content:           datatypes.JSONMap(msg.Content),
		Timestamp:         msg.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, orgID, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = repository.DefaultMessageLimit
	}

	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND conversation_id = ?", orgID, conversationID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, models.Message{
			ID:                row.ID,
			OrganizationID:    row.OrganizationID,
			ExternalMessageID: row.ExternalMessageID,
			ConversationID:    row.ConversationID,
			ContactID:         row.ContactID,
			Type:              models.MessageType(row.Type),
			Direction:         models.Direction(row.Direction),
			Status:            models.MessageStatus(row.Status),
			Content:           plainMap(row.Content),
			Timestamp:         row.Timestamp,
		})
	}
	return messages, nil
}

func (s *Store) UpdateMessageStatus(ctx context.Context, orgID, externalID string, status models.MessageStatus) error {
	res := s.db.WithContext(ctx).Model(&messageRow{}).
		Where("organization_id = ? AND external_message_id = ? AND direction = ?",
			orgID, externalID, string(models.DirectionOutbound)).
		Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("failed to update message status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) FindOrCreateContact(ctx context.Context, orgID, phone string, profile *models.ContactProfile) (*models.Contact, error) {
	db := s.db.WithContext(ctx)

	row := contactRow{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Phone:          phone,
		CreatedAt:      time.Now().UTC(),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "phone"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	if err := db.Where("organization_id = ? AND phone = ?", orgID, phone).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}

	if profile != nil {
		updates := map[string]any{}
		if profile.Name != "" && profile.Name != row.Name {
			updates["name"] = profile.Name
			row.Name = profile.Name
		}
		if profile.Email != "" && profile.Email != row.Email {
			updates["email"] = profile.Email
			row.Email = profile.Email
		}
		if len(updates) > 0 {
			if err := db.Model(&contactRow{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("failed to enrich contact: %w", err)
			}
		}
	}

	return &models.Contact{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Phone:          row.Phone,
		Name:           row.Name,
		Email:          row.Email,
		CreatedAt:      row.CreatedAt,
	}, nil
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r organizationRow) toModel() models.Organization {
	return models.Organization{
		ID:        r.ID,
		Slug:      r.Slug,
		Name:      r.Name,
		IsActive:  r.IsActive,
		Metadata:  plainMap(r.Metadata),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *templateRow) apply(fields models.TemplateFields) {
	r.Name = fields.Name
	r.Language = fields.Language
	r.Category = fields.Category
	r.Status = string(fields.Status)
	r.RejectionReason = fields.RejectionReason
	r.Metadata = datatypes.JSONMap(fields.Metadata)
}

func (r templateRow) toModel() models.Template {
	return models.Template{
		ID:              r.ID,
		OrganizationID:  r.OrganizationID,
		ExternalID:      r.ExternalID,
		Name:            r.Name,
		Language:        r.Language,
		Category:        r.Category,
		Status:          models.TemplateStatus(r.Status),
		RejectionReason: r.RejectionReason,
		Metadata:        plainMap(r.Metadata),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// plainMap re-decodes a JSONMap so numbers come back as float64 instead of the
// json.Number values datatypes.JSONMap scans into.
func plainMap(m datatypes.JSONMap) map[string]any {
	if m == nil {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return map[string]any(m)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any(m)
	}
	return out
}
