package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ConversationsCollection = "conversations"
	MessagesCollection      = "messages"
	ProfilesCollection      = "profiles"
)

type Database struct {
	client *mongo.Client
	DB     *mongo.Database
}

func NewDatabase(ctx context.Context, uri, name string) (*Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &Database{client: client, DB: client.Database(name)}, nil
}

func (d *Database) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the service relies on. The unique
// directKey index is load-bearing: it is what makes find-or-create of a
// direct conversation race-free.
func (d *Database) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		ConversationsCollection: {
			{
				Keys: bson.D{{Key: "directKey", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetSparse(true).
					SetName("unique_direct_pair"),
			},
			{Keys: bson.D{{Key: "members", Value: 1}}},
			{Keys: bson.D{{Key: "lastMessageAt", Value: -1}, {Key: "updatedAt", Value: -1}}},
		},
		MessagesCollection: {
			{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		ProfilesCollection: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "displayName", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := d.DB.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", coll, err)
		}
	}
	return nil
}
