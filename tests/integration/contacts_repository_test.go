package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"pushflow/internal/constants"
	"pushflow/internal/contacts"
)

func collectStream(t *testing.T, stream contacts.Stream) []contacts.Contact {
	t.Helper()

	ctx := context.Background()
	defer stream.Close(ctx)

	var out []contacts.Contact
	for stream.Next(ctx) {
		contact, err := stream.Contact()
		require.NoError(t, err)
		out = append(out, contact)
	}
	require.NoError(t, stream.Err())
	return out
}

func TestContactsRepository_StreamActiveByDomain(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	ctx := context.Background()
	collection := infra.MongoDB.Collection(constants.ContactsCollection)

	now := time.Now().UTC()
	docs := []interface{}{
		createTestContact("shop.example", "https://push/1", map[string]string{"name": "Ada"}),
		createTestContact("shop.example", "https://push/2", nil),
		contacts.Contact{Domain: "shop.example", Endpoint: "https://push/3", Deleted: true, DeletedAt: &now},
		createTestContact("news.example", "https://push/4", nil),
	}
	_, err := collection.InsertMany(ctx, docs)
	require.NoError(t, err)

	repo := contacts.NewRepository(infra.MongoDB)
	stream, err := repo.StreamActiveByDomain(ctx, "shop.example")
	require.NoError(t, err)

	active := collectStream(t, stream)
	require.Len(t, active, 2)

	endpoints := []string{active[0].Endpoint, active[1].Endpoint}
	assert.ElementsMatch(t, []string{"https://push/1", "https://push/2"}, endpoints)
	for _, contact := range active {
		assert.Equal(t, "shop.example", contact.Domain)
		assert.False(t, contact.Deleted)
	}
}

func TestContactsRepository_StreamIncludesLegacyDocsWithoutDeletedField(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	ctx := context.Background()
	collection := infra.MongoDB.Collection(constants.ContactsCollection)

	// documents written before the deleted flag existed have no such field
	_, err := collection.InsertOne(ctx, bson.M{
		"domain":   "shop.example",
		"endpoint": "https://push/legacy",
		"p256dh":   "key",
		"auth":     "auth",
	})
	require.NoError(t, err)

	repo := contacts.NewRepository(infra.MongoDB)
	stream, err := repo.StreamActiveByDomain(ctx, "shop.example")
	require.NoError(t, err)

	active := collectStream(t, stream)
	require.Len(t, active, 1)
	assert.Equal(t, "https://push/legacy", active[0].Endpoint)
}

func TestContactsRepository_MarkDeleted(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	ctx := context.Background()
	collection := infra.MongoDB.Collection(constants.ContactsCollection)

	_, err := collection.InsertMany(ctx, []interface{}{
		createTestContact("shop.example", "https://push/1", nil),
		createTestContact("shop.example", "https://push/2", nil),
	})
	require.NoError(t, err)

	repo := contacts.NewRepository(infra.MongoDB)
	require.NoError(t, repo.MarkDeleted(ctx, "shop.example", "https://push/1"))

	stream, err := repo.StreamActiveByDomain(ctx, "shop.example")
	require.NoError(t, err)
	active := collectStream(t, stream)
	require.Len(t, active, 1)
	assert.Equal(t, "https://push/2", active[0].Endpoint)

	var deleted contacts.Contact
	err = collection.FindOne(ctx, bson.M{"endpoint": "https://push/1"}).Decode(&deleted)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	require.NotNil(t, deleted.DeletedAt)
	assert.WithinDuration(t, time.Now().UTC(), *deleted.DeletedAt, time.Minute)
}

func TestContactsRepository_MarkDeletedUnknownEndpointIsNoError(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	repo := contacts.NewRepository(infra.MongoDB)
	assert.NoError(t, repo.MarkDeleted(context.Background(), "shop.example", "https://push/missing"))
}
