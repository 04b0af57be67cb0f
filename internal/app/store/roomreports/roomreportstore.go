// internal/app/store/roomreports/roomreportstore.go
package roomreportstore

import (
	"context"
	"time"

	"github.com/dalemusser/roomhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("room_reports")}
}

// Create records a report. Reports are append-only; moderation tooling reads
// them directly.
func (s *Store) Create(ctx context.Context, r models.RoomReport) (models.RoomReport, error) {
	r.ID = primitive.NewObjectID()
	r.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.RoomReport{}, err
	}
	return r, nil
}
