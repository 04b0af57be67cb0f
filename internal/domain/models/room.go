// internal/domain/models/room.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Room is a chat channel owned by one user.
//
// NOTE:
//   - Members are not embedded; the memberships collection is authoritative.
//   - ActiveMemberCount mirrors the number of non-removed memberships and is
//     only changed by the membership store's Admit/Deactivate primitives.
//   - Rooms are archived, never deleted.
type Room struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	OwnerID       primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Title         string             `bson:"title" json:"title"`
	TitleCI       string             `bson:"title_ci" json:"-"`
	Description   string             `bson:"description" json:"description"`
	DescriptionCI string             `bson:"description_ci" json:"-"`

	Topics    []string `bson:"topics" json:"topics"`
	Jobs      []string `bson:"jobs" json:"jobs"`
	Countries []string `bson:"countries" json:"countries"` // empty = unrestricted

	IsPrivate  bool                `bson:"is_private" json:"is_private"`
	Avatar     string              `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Background string              `bson:"background,omitempty" json:"background,omitempty"`
	CategoryID *primitive.ObjectID `bson:"category_id,omitempty" json:"category,omitempty"`

	MemberCountLimit  int  `bson:"member_count_limit" json:"member_count_limit"` // 0 = unlimited
	ActiveMemberCount int  `bson:"active_member_count" json:"active_member_count"`
	Archived          bool `bson:"archived" json:"archived"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AllowsCountry reports whether a user from country may join the room.
func (r Room) AllowsCountry(country string) bool {
	if len(r.Countries) == 0 {
		return true
	}
	for _, c := range r.Countries {
		if c == country {
			return true
		}
	}
	return false
}

// RoomPatch carries the owner-editable attributes of a room. Nil fields are
// left untouched.
type RoomPatch struct {
	Jobs             *[]string           `json:"jobs"`
	Topics           *[]string           `json:"topics"`
	Title            *string             `json:"title"`
	Description      *string             `json:"description"`
	Countries        *[]string           `json:"countries"`
	IsPrivate        *bool               `json:"is_private"`
	Avatar           *string             `json:"avatar"`
	Background       *string             `json:"background"`
	CategoryID       *primitive.ObjectID `json:"category"`
	Archived         *bool               `json:"archived"`
	MemberCountLimit *int                `json:"member_count_limit"`

	// ClearCategory removes the room's category. It wins over CategoryID.
	ClearCategory bool `json:"-"`
}

// EditableRoomFields is the fixed set of attribute keys a room owner may change.
var EditableRoomFields = []string{
	"jobs", "topics", "title", "description", "countries", "is_private",
	"avatar", "background", "category", "archived", "member_count_limit",
}

// IsEditableRoomField reports whether key is in EditableRoomFields.
func IsEditableRoomField(key string) bool {
	for _, f := range EditableRoomFields {
		if f == key {
			return true
		}
	}
	return false
}

// RoomFilter selects rooms. Title and Description match as case-insensitive
// substrings; the remaining set fields match exactly. Archived rooms are
// excluded unless Archived is set.
type RoomFilter struct {
	Title       string
	Description string
	OwnerID     *primitive.ObjectID
	CategoryID  *primitive.ObjectID
	IsPrivate   *bool
	Archived    *bool
	Country     string
	Topic       string
	Job         string
}
