package contact

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/database"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestScopedFilterOverridesCustomer(t *testing.T) {
	filter := scopedFilter("cust_a", bson.M{"id": "c1", "customerId": "cust_b"})

	assert.Equal(t, "cust_a", filter["customerId"])
	assert.Equal(t, "c1", filter["id"])
}

func TestScopedFilterNil(t *testing.T) {
	assert.Equal(t, bson.M{"customerId": "cust_a"}, scopedFilter("cust_a", nil))
}

// The contract tests run against real stores when MONGO_TEST_URI or
// POSTGRES_TEST_DSN is set.

func TestMongoContactRepositoryContract(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	db := client.Database("contacts_test_" + uuid.NewString()[:8])
	defer db.Drop(context.Background())

	repo := NewMongoContactRepository(&database.MongodbDB{DB: db})
	require.NoError(t, repo.EnsureIndexes(ctx))
	runRepositoryContract(t, repo)
}

func TestPostgresContactRepositoryContract(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := NewPostgresContactRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	runRepositoryContract(t, repo)
}

func runRepositoryContract(t *testing.T, repo ContactRepository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	custA := "cust_a_" + uuid.NewString()
	custB := "cust_b_" + uuid.NewString()

	contact := &Contact{
		ID: uuid.NewString(), CustomerID: custA,
		Name: "Ann", Email: "a@x.com", Phone: "555", JobTitle: "Eng", Pronouns: "she/her",
		SyncedToCRMs: []string{}, LastAppModified: &now, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, contact))

	list, err := repo.List(ctx, custB)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = repo.Get(ctx, custB, contact.ID)
	assert.ErrorIs(t, err, common_models.ErrNotFound)
	_, err = repo.Update(ctx, custB, contact.ID, ContactInput{Name: "Mallory"}, now)
	assert.ErrorIs(t, err, common_models.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, custB, contact.ID), common_models.ErrNotFound)
	assert.ErrorIs(t, repo.MarkSynced(ctx, custB, contact.ID, "hubspot"), common_models.ErrNotFound)

	later := now.Add(time.Minute)
	updated, err := repo.Update(ctx, custA, contact.ID, ContactInput{Pronouns: "they/them"}, later)
	require.NoError(t, err)
	assert.Equal(t, "they/them", updated.Pronouns)
	assert.Equal(t, "Ann", updated.Name)
	assert.WithinDuration(t, later, updated.UpdatedAt, time.Millisecond)

	require.NoError(t, repo.MarkSynced(ctx, custA, contact.ID, "hubspot"))
	require.NoError(t, repo.MarkSynced(ctx, custA, contact.ID, "hubspot"))
	got, err := repo.Get(ctx, custA, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hubspot"}, got.SyncedToCRMs)

	ids, err := repo.CustomerIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, custA)

	require.NoError(t, repo.Delete(ctx, custA, contact.ID))
	list, err = repo.List(ctx, custA)
	require.NoError(t, err)
	assert.Empty(t, list)
}
