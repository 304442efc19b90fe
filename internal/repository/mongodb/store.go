package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/domain/models"
	"github.com/mamadbah2/wabahub/internal/repository"
)

const (
	organizationsCollection = "organizations"
	templatesCollection     = "whatsapp_templates"
	messagesCollection      = "whatsapp_messages"
	contactsCollection      = "contacts"
)

// Store implements repository.Store for MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// NewStore connects to MongoDB and ensures the indexes the store relies on.
func NewStore(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// nested documents decode as maps so organization metadata stays a plain map
	clientOptions := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName), logger: logger}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		organizationsCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		templatesCollection: {
			{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "external_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "external_message_id", Value: 1}}},
		},
		contactsCollection: {
			{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) FindOrg(ctx context.Context, id string) (*models.Organization, error) {
	return s.findOrg(ctx, bson.M{"_id": id})
}

func (s *Store) FindOrgBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return s.findOrg(ctx, bson.M{"slug": slug})
}

func (s *Store) findOrg(ctx context.Context, filter bson.M) (*models.Organization, error) {
	var org models.Organization
	err := s.db.Collection(organizationsCollection).FindOne(ctx, filter).Decode(&org)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	org.Metadata = normalizeMap(org.Metadata)
	return &org, nil
}

func (s *Store) ListActiveOrganizations(ctx context.Context) ([]models.Organization, error) {
	cur, err := s.db.Collection(organizationsCollection).Find(ctx, bson.M{"is_active": true},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, fmt.Errorf("failed to decode organizations: %w", err)
	}
	for i := range orgs {
		orgs[i].Metadata = normalizeMap(orgs[i].Metadata)
	}
	return orgs, nil
}

func (s *Store) UpdateOrgMetadata(ctx context.Context, id string, metadata map[string]any) error {
	res, err := s.db.Collection(organizationsCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"metadata": metadata, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update organization metadata: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertTemplate(ctx context.Context, orgID, externalID string, fields models.TemplateFields) (*models.Template, error) {
	coll := s.db.Collection(templatesCollection)
	filter := bson.M{"organization_id": orgID, "external_id": externalID}

	existing, err := s.findTemplate(ctx, filter)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && fields.Matches(existing) {
		return existing, nil
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":             fields.Name,
			"language":         fields.Language,
			"category":         fields.Category,
			"status":           fields.Status,
			"rejection_reason": fields.RejectionReason,
			"metadata":         fields.Metadata,
			"updated_at":       now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": now,
		},
	}
	if _, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return nil, fmt.Errorf("failed to upsert template %s: %w", externalID, err)
	}
	return s.findTemplate(ctx, filter)
}

func (s *Store) findTemplate(ctx context.Context, filter bson.M) (*models.Template, error) {
	var tpl models.Template
	err := s.db.Collection(templatesCollection).FindOne(ctx, filter).Decode(&tpl)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find template: %w", err)
	}
	tpl.Metadata = normalizeMap(tpl.Metadata)
	return &tpl, nil
}

func (s *Store) ListTemplates(ctx context.Context, orgID string) ([]models.Template, error) {
	cur, err := s.db.Collection(templatesCollection).Find(ctx, bson.M{"organization_id": orgID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "language", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	var templates []models.Template
	if err := cur.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	for i := range templates {
		templates[i].Metadata = normalizeMap(templates[i].Metadata)
	}
	return templates, nil
}

func (s *Store) DeleteTemplates(ctx context.Context, filter models.TemplateFilter) (int64, error) {
	query := bson.M{"organization_id": filter.OrganizationID}
	if filter.ExternalID != "" {
		query["external_id"] = filter.ExternalID
	}
	if filter.Name != "" {
		query["name"] = filter.Name
	}

	res, err := s.db.Collection(templatesCollection).DeleteMany(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete templates: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if _, err := s.db.Collection(messagesCollection).InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, orgID, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = repository.DefaultMessageLimit
	}

	cur, err := s.db.Collection(messagesCollection).Find(ctx,
		bson.M{"organization_id": orgID, "conversation_id": conversationID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var messages []models.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	for i := range messages {
		messages[i].Content = normalizeMap(messages[i].Content)
	}
	return messages, nil
}

func (s *Store) UpdateMessageStatus(ctx context.Context, orgID, externalID string, status models.MessageStatus) error {
	res, err := s.db.Collection(messagesCollection).UpdateMany(ctx,
		bson.M{
			"organization_id":     orgID,
			"external_message_id": externalID,
			"direction":           models.DirectionOutbound,
		},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) FindOrCreateContact(ctx context.Context, orgID, phone string, profile *models.ContactProfile) (*models.Contact, error) {
	set := bson.M{}
	if profile != nil {
		if profile.Name != "" {
			set["name"] = profile.Name
		}
		if profile.Email != "" {
			set["email"] = profile.Email
		}
	}

	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": time.Now().UTC(),
		},
	}
	if len(set) > 0 {
		update["$set"] = set
	}

	var contact models.Contact
	err := s.db.Collection(contactsCollection).FindOneAndUpdate(ctx,
		bson.M{"organization_id": orgID, "phone": phone},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&contact)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert contact: %w", err)
	}
	return &contact, nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// normalizeMap turns the driver's primitive.M and primitive.A values into
// plain maps and slices.
func normalizeMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case primitive.M:
		return normalizeMap(val)
	case map[string]any:
		return normalizeMap(val)
	case primitive.D:
		return normalizeMap(val.Map())
	case primitive.A:
		return normalizeSlice(val)
	case []any:
		return normalizeSlice(val)
	default:
		return v
	}
}

func normalizeSlice(in []any) []any {
	out := make([]any, len(in))
	for i, item := range in {
		out[i] = normalizeValue(item)
	}
	return out
}
