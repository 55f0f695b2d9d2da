package sync

import (
	"context"
	"errors"
	"fmt"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LinkRepository interface {
	// Upsert writes the link keyed by customer, provider and contact.
	Upsert(ctx context.Context, link *ContactLink) (*ContactLink, error)
	Get(ctx context.Context, customerID string, provider common_models.Provider, contactID string) (*ContactLink, error)
	List(ctx context.Context, customerID, contactID string) ([]ContactLink, error)
	EnsureIndexes(ctx context.Context) error
}

// ConflictLogRepository and SyncLogRepository are append-only.
type ConflictLogRepository interface {
	Insert(ctx context.Context, logs []ConflictLog) error
	List(ctx context.Context, customerID, contactID string, limit int64) ([]ConflictLog, error)
	EnsureIndexes(ctx context.Context) error
}

type SyncLogRepository interface {
	Insert(ctx context.Context, log *SyncLog) error
	List(ctx context.Context, customerID string, provider common_models.Provider, limit int64) ([]SyncLog, error)
	EnsureIndexes(ctx context.Context) error
}

// scoped pins every query to one customer.
func scoped(customerID string, filter bson.M) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	out["customerId"] = customerID
	return out
}

type LinkRepositoryImpl struct {
	collection *mongo.Collection
}

func NewLinkRepository(db *database.MongodbDB) LinkRepository {
	return &LinkRepositoryImpl{
		collection: db.DB.Collection("contact_links"),
	}
}

func (r *LinkRepositoryImpl) Upsert(ctx context.Context, link *ContactLink) (*ContactLink, error) {
	filter := scoped(link.CustomerID, bson.M{"provider": link.Provider, "contactId": link.ContactID})

	set := bson.M{
		"syncStatus": link.SyncStatus,
		"updatedAt":  link.UpdatedAt,
	}
	unset := bson.M{}
	if link.ExternalID != "" {
		set["externalId"] = link.ExternalID
	}
	if link.LastError != "" {
		set["lastError"] = link.LastError
	} else {
		unset["lastError"] = ""
	}
	if link.LastSyncedAt != nil {
		set["lastSyncedAt"] = link.LastSyncedAt
	}
	if link.CRMLastModified != nil {
		set["crmLastModified"] = link.CRMLastModified
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": link.CreatedAt},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var saved ContactLink
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s record %s is already linked to another contact",
				common_models.ErrLinkConflict, link.Provider, link.ExternalID)
		}
		return nil, err
	}
	return &saved, nil
}

func (r *LinkRepositoryImpl) Get(ctx context.Context, customerID string, provider common_models.Provider, contactID string) (*ContactLink, error) {
	var link ContactLink
	err := r.collection.FindOne(ctx, scoped(customerID, bson.M{"provider": provider, "contactId": contactID})).Decode(&link)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s link for contact %s: %w", provider, contactID, common_models.ErrNotFound)
		}
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepositoryImpl) List(ctx context.Context, customerID, contactID string) ([]ContactLink, error) {
	filter := bson.M{}
	if contactID != "" {
		filter["contactId"] = contactID
	}

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, scoped(customerID, filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	links := []ContactLink{}
	if err = cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// EnsureIndexes backs both uniqueness rules. Pending links may not know their
// external id yet, so that index only covers documents that carry one.
func (r *LinkRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "provider", Value: 1}, {Key: "externalId", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"externalId": bson.M{"$exists": true}}),
		},
		{
			Keys:    bson.D{{Key: "customerId", Value: 1}, {Key: "provider", Value: 1}, {Key: "contactId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

type ConflictLogRepositoryImpl struct {
	collection *mongo.Collection
}

func NewConflictLogRepository(db *database.MongodbDB) ConflictLogRepository {
	return &ConflictLogRepositoryImpl{
		collection: db.DB.Collection("conflict_logs"),
	}
}

func (r *ConflictLogRepositoryImpl) Insert(ctx context.Context, logs []ConflictLog) error {
	if len(logs) == 0 {
		return nil
	}
	docs := make([]interface{}, len(logs))
	for i := range logs {
		docs[i] = logs[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *ConflictLogRepositoryImpl) List(ctx context.Context, customerID, contactID string, limit int64) ([]ConflictLog, error) {
	filter := bson.M{}
	if contactID != "" {
		filter["contactId"] = contactID
	}

	opts := options.Find().SetSort(bson.D{{Key: "loggedAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, scoped(customerID, filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []ConflictLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *ConflictLogRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "loggedAt", Value: -1}}},
		{Keys: bson.D{{Key: "contactId", Value: 1}, {Key: "provider", Value: 1}}},
	})
	return err
}

type SyncLogRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSyncLogRepository(db *database.MongodbDB) SyncLogRepository {
	return &SyncLogRepositoryImpl{
		collection: db.DB.Collection("sync_logs"),
	}
}

func (r *SyncLogRepositoryImpl) Insert(ctx context.Context, log *SyncLog) error {
	res, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		log.ID = oid
	}
	return nil
}

func (r *SyncLogRepositoryImpl) List(ctx context.Context, customerID string, provider common_models.Provider, limit int64) ([]SyncLog, error) {
	filter := bson.M{}
	if provider != "" {
		filter["provider"] = provider
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, scoped(customerID, filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []SyncLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *SyncLogRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	return err
}
