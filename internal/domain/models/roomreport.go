// internal/domain/models/roomreport.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoomReport is an abuse report filed by a user against a room. Moderation
// happens elsewhere; this is only the record.
type RoomReport struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID      primitive.ObjectID `bson:"room_id" json:"room_id"`
	ReporterID  primitive.ObjectID `bson:"reporter_id" json:"user_id"`
	Type        string             `bson:"type" json:"type"`
	Description string             `bson:"description" json:"description"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
