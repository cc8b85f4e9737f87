package profile

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatwire/internal/db"
	"chatwire/pkg/apperror"
)

type Repository struct {
	coll *mongo.Collection
}

func NewRepository(database *db.Database) *Repository {
	return &Repository{coll: database.DB.Collection(db.ProfilesCollection)}
}

func (r *Repository) FindMany(ctx context.Context, userIDs []string) ([]Profile, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userId": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, apperror.Unavailable("profile lookup failed", err)
	}
	defer cursor.Close(ctx)

	var profiles []Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, apperror.Unavailable("profile decode failed", err)
	}
	return profiles, nil
}

func (r *Repository) List(ctx context.Context) ([]Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "displayName", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperror.Unavailable("profile list failed", err)
	}
	defer cursor.Close(ctx)

	var profiles []Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, apperror.Unavailable("profile decode failed", err)
	}
	return profiles, nil
}

// Upsert writes the caller's profile, creating it on first sync.
func (r *Repository) Upsert(ctx context.Context, p Profile) (*Profile, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"displayName": p.DisplayName,
			"avatarUrl":   p.AvatarURL,
			"email":       p.Email,
			"lastSeenAt":  now,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"userId":    p.UserID,
			"createdAt": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out Profile
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"userId": p.UserID}, update, opts).Decode(&out)
	if err != nil {
		return nil, apperror.Unavailable("profile upsert failed", err)
	}
	return &out, nil
}
