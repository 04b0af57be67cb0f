// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is immutable once stored. MemberID ties it to the membership that
// was active when it was sent; UserID is denormalised for author lookups.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID    primitive.ObjectID `bson:"room_id" json:"room_id"`
	MemberID  primitive.ObjectID `bson:"member_id" json:"member_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Message ordering fields accepted by MessageFilter.Order.
const (
	MessageOrderCreatedAt = "created_at"
	MessageOrderText      = "text"
)

// MessageFilter selects a window of a room's history. From is exclusive and
// To inclusive; Text matches as a case-insensitive substring.
type MessageFilter struct {
	From       time.Time
	To         time.Time
	Text       string
	Limit      int
	Order      string
	Descending bool
}
