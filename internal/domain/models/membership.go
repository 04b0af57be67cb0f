// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership is the authoritative join between users and rooms.
// Exactly one document per (room_id, user_id); leaving or being kicked sets
// Removed rather than deleting the document.
type Membership struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID     primitive.ObjectID `bson:"room_id" json:"room_id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Removed    bool               `bson:"removed" json:"removed"`
	LastReadAt *time.Time         `bson:"last_read_at,omitempty" json:"last_read_at"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// Active reports whether the membership grants read/write access.
func (m Membership) Active() bool { return !m.Removed }

// ReadCursor returns LastReadAt, or the Unix epoch when the member has never
// marked the room read.
func (m Membership) ReadCursor() time.Time {
	if m.LastReadAt == nil {
		return time.Unix(0, 0).UTC()
	}
	return *m.LastReadAt
}
