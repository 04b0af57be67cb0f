// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"regexp"
	"time"

	"github.com/dalemusser/roomhub/internal/app/system/clock"
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
	return &Store{c: db.Collection("messages")}
}

// Create stores m with a fresh ID and a created_at issued by clock.Now, so
// history order matches insertion order.
func (s *Store) Create(ctx context.Context, m models.Message) (models.Message, error) {
	m.ID = primitive.NewObjectID()
	m.CreatedAt = clock.Now()
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// Count returns the total number of messages in a room.
func (s *Store) Count(ctx context.Context, roomID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"room_id": roomID})
}

// CountAfter returns the number of messages created strictly after t.
func (s *Store) CountAfter(ctx context.Context, roomID primitive.ObjectID, t time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"room_id": roomID, "created_at": bson.M{"$gt": t}})
}

// List returns a window of a room's history. From is exclusive, To is
// inclusive, and a zero bound is open. Limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, roomID primitive.ObjectID, f models.MessageFilter) ([]models.Message, error) {
	filter := bson.M{"room_id": roomID}
	window := bson.M{}
	if !f.From.IsZero() {
		window["$gt"] = f.From
	}
	if !f.To.IsZero() {
		window["$lte"] = f.To
	}
	if len(window) > 0 {
		filter["created_at"] = window
	}
	if f.Text != "" {
		filter["text"] = bson.M{"$regex": regexp.QuoteMeta(f.Text), "$options": "i"}
	}

	dir := 1
	if f.Descending {
		dir = -1
	}
	sort := bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}}
	if f.Order == models.MessageOrderText {
		sort = append(bson.D{{Key: "text", Value: dir}}, sort...)
	}

	opts := options.Find().SetSort(sort)
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
