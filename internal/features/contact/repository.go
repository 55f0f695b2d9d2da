package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/config"
	"contacts-sync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ContactRepository interface {
	List(ctx context.Context, customerID string) ([]Contact, error)
	Get(ctx context.Context, customerID, id string) (*Contact, error)
	Create(ctx context.Context, contact *Contact) error
	CreateMany(ctx context.Context, contacts []Contact) error
	Update(ctx context.Context, customerID, id string, in ContactInput, at time.Time) (*Contact, error)
	Delete(ctx context.Context, customerID, id string) error
	MarkSynced(ctx context.Context, customerID, id, provider string) error
	CustomerIDs(ctx context.Context) ([]string, error)
	EnsureIndexes(ctx context.Context) error
}

// NewContactRepository picks the backend named by CONTACT_STORE.
func NewContactRepository(cfg *config.Config, mongodb *database.MongodbDB, pg *database.PostgresDB) (ContactRepository, error) {
	switch cfg.ContactStore {
	case "", "mongo", "mongodb":
		return NewMongoContactRepository(mongodb), nil
	case "postgres":
		if pg == nil || pg.DB == nil {
			return nil, errors.New("postgres contact store selected but no connection is open")
		}
		return NewPostgresContactRepository(pg.DB), nil
	default:
		return nil, fmt.Errorf("unsupported contact store %q", cfg.ContactStore)
	}
}

type MongoContactRepository struct {
	collection *mongo.Collection
}

func NewMongoContactRepository(mongodb *database.MongodbDB) *MongoContactRepository {
	return &MongoContactRepository{
		collection: mongodb.DB.Collection("contacts"),
	}
}

// scopedFilter is the single tenant gate for every contacts query: the
// customer id always overrides whatever the caller put in the filter.
func scopedFilter(customerID string, filter bson.M) bson.M {
	scoped := bson.M{}
	for k, v := range filter {
		scoped[k] = v
	}
	scoped["customerId"] = customerID
	return scoped
}

func (r *MongoContactRepository) List(ctx context.Context, customerID string) ([]Contact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, scopedFilter(customerID, nil), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	contacts := []Contact{}
	if err = cursor.All(ctx, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *MongoContactRepository) Get(ctx context.Context, customerID, id string) (*Contact, error) {
	var contact Contact
	err := r.collection.FindOne(ctx, scopedFilter(customerID, bson.M{"id": id})).Decode(&contact)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
		}
		return nil, err
	}
	return &contact, nil
}

func (r *MongoContactRepository) Create(ctx context.Context, contact *Contact) error {
	_, err := r.collection.InsertOne(ctx, contact)
	return err
}

func (r *MongoContactRepository) CreateMany(ctx context.Context, contacts []Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	docs := make([]interface{}, len(contacts))
	for i := range contacts {
		docs[i] = contacts[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *MongoContactRepository) Update(ctx context.Context, customerID, id string, in ContactInput, at time.Time) (*Contact, error) {
	set := bson.M{
		"updatedAt":       at,
		"lastAppModified": at,
	}
	for key, value := range map[string]string{
		"name":     in.Name,
		"email":    in.Email,
		"phone":    in.Phone,
		"jobTitle": in.JobTitle,
		"pronouns": in.Pronouns,
	} {
		if value != "" {
			set[key] = value
		}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var contact Contact
	err := r.collection.FindOneAndUpdate(ctx, scopedFilter(customerID, bson.M{"id": id}), bson.M{"$set": set}, opts).Decode(&contact)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
		}
		return nil, err
	}
	return &contact, nil
}

func (r *MongoContactRepository) Delete(ctx context.Context, customerID, id string) error {
	res, err := r.collection.DeleteOne(ctx, scopedFilter(customerID, bson.M{"id": id}))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	return nil
}

func (r *MongoContactRepository) MarkSynced(ctx context.Context, customerID, id, provider string) error {
	res, err := r.collection.UpdateOne(ctx,
		scopedFilter(customerID, bson.M{"id": id}),
		bson.M{"$addToSet": bson.M{"syncedToCRMs": provider}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	return nil
}

func (r *MongoContactRepository) CustomerIDs(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "customerId", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

func (r *MongoContactRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	return err
}
