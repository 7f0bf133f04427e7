package contacts

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"pushflow/internal/constants"
	"pushflow/pkg/models"
)

// Contact is one stored push subscription for a domain visitor.
type Contact struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Domain    string             `bson:"domain"`
	Endpoint  string             `bson:"endpoint"`
	P256DH    string             `bson:"p256dh"`
	Auth      string             `bson:"auth"`
	Fields    map[string]string  `bson:"fields,omitempty"`
	Deleted   bool               `bson:"deleted"`
	DeletedAt *time.Time         `bson:"deleted_at,omitempty"`
}

func (c Contact) Subscription() models.Subscription {
	return models.Subscription{
		Endpoint: c.Endpoint,
		P256DH:   c.P256DH,
		Auth:     c.Auth,
	}
}

// Stream is a lazy, finite, non-restartable sequence of contacts.
type Stream interface {
	Next(ctx context.Context) bool
	Contact() (Contact, error)
	Err() error
	Close(ctx context.Context) error
}

type Repository interface {
	// StreamActiveByDomain returns a lazy cursor over all non-deleted
	// contacts of a domain; the full set is never materialized.
	StreamActiveByDomain(ctx context.Context, domain string) (Stream, error)
	// MarkDeleted marks the contact with the given endpoint deleted.
	MarkDeleted(ctx context.Context, domain, endpoint string) error
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &MongoDBRepository{
		collection: db.Collection(constants.ContactsCollection),
	}
}

func (r *MongoDBRepository) StreamActiveByDomain(ctx context.Context, domain string) (Stream, error) {
	filter := bson.M{"domain": domain, "deleted": bson.M{"$ne": true}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open contacts cursor: %w", err)
	}

	return &mongoStream{cursor: cursor}, nil
}

func (r *MongoDBRepository) MarkDeleted(ctx context.Context, domain, endpoint string) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"deleted":    true,
			"deleted_at": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"domain": domain, "endpoint": endpoint}, update)
	if err != nil {
		return fmt.Errorf("failed to mark contact deleted: %w", err)
	}
	return nil
}

type mongoStream struct {
	cursor *mongo.Cursor
}

func (s *mongoStream) Next(ctx context.Context) bool {
	return s.cursor.Next(ctx)
}

func (s *mongoStream) Contact() (Contact, error) {
	var c Contact
	if err := s.cursor.Decode(&c); err != nil {
		return Contact{}, fmt.Errorf("failed to decode contact: %w", err)
	}
	return c, nil
}

func (s *mongoStream) Err() error {
	return s.cursor.Err()
}

func (s *mongoStream) Close(ctx context.Context) error {
	return s.cursor.Close(ctx)
}
