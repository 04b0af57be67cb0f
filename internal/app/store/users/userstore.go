// Package userstore is a read-only view of the users collection owned by the
// identity service. Only the public profile fields are loaded.
package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/roomhub/internal/app/store/storeerr"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var publicProfile = bson.M{
	"_id":             1,
	"first_name":      1,
	"last_name":       1,
	"user_name":       1,
	"hospital":        1,
	"picture_profile": 1,
	"country":         1,
}

// GetByID loads a user's public profile.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	opts := options.FindOne().SetProjection(publicProfile)
	err := s.c.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, storeerr.ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetMany loads the public profiles for ids keyed by ID. Unknown IDs are
// absent from the result.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(publicProfile)
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
